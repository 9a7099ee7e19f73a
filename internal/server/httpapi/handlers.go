package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/postkeeper/internal/common"
	"github.com/dmitrijs2005/postkeeper/internal/server/auth"
	"github.com/gin-gonic/gin"
)

const userIDKey = "user_id"

type errorResponse struct {
	Error string `json:"error"`
}

type postStatus struct {
	LocalID   string   `json:"local_id"`
	State     string   `json:"state"`
	RemoteID  string   `json:"remote_id,omitempty"`
	ImageURLs []string `json:"image_urls,omitempty"`
	Reason    string   `json:"reason,omitempty"`
}

type statusResponse struct {
	Statuses []postStatus `json:"statuses"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// bearerAuth accepts "Authorization: Bearer <access token>" and stores the
// user id in the gin context.
func (s *Server) bearerAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "missing token"})
			return
		}

		userID, err := auth.GetUserIDFromToken(token, s.jwtSecret)
		if err != nil {
			msg := common.ErrInvalidToken.Error()
			if errors.Is(err, common.ErrTokenExpired) {
				msg = common.ErrTokenExpired.Error()
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: msg})
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

// postStatus handles GET /api/v1/posts/status?ref=<local id>&ref=...
func (s *Server) postStatus(c *gin.Context) {
	refs := c.QueryArray("ref")
	if len(refs) == 0 {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "at least one ref is required"})
		return
	}
	if len(refs) > maxRefs {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "too many refs"})
		return
	}

	reports, err := s.posts.Status(c.Request.Context(), c.GetString(userIDKey), refs)
	if err != nil {
		s.logger.Error(c.Request.Context(), "status lookup failed", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	out := statusResponse{Statuses: make([]postStatus, 0, len(reports))}
	for _, r := range reports {
		out.Statuses = append(out.Statuses, postStatus{
			LocalID:   r.LocalID,
			State:     r.State,
			RemoteID:  r.RemoteID,
			ImageURLs: r.ImageURLs,
			Reason:    r.Reason,
		})
	}
	c.JSON(http.StatusOK, out)
}
