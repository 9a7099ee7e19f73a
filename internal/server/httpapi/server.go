// Package httpapi serves read-only HTTP endpoints next to the gRPC API:
// a health check and post status lookups for the authenticated user.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/postkeeper/internal/logging"
	"github.com/dmitrijs2005/postkeeper/internal/server/services"
	"github.com/gin-gonic/gin"
)

// maxRefs caps the ref query parameters accepted by one status request.
const maxRefs = 100

const shutdownTimeout = 5 * time.Second

// StatusSource reports the server-side status of a user's posts.
type StatusSource interface {
	Status(ctx context.Context, userID string, localIDs []string) ([]services.StatusReport, error)
}

type Server struct {
	address   string
	posts     StatusSource
	jwtSecret []byte
	logger    logging.Logger
}

func NewServer(address string, posts StatusSource, secretKey string, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.Nop{}
	}
	return &Server{
		address:   address,
		posts:     posts,
		jwtSecret: []byte(secretKey),
		logger:    logger.With("module", "http_server"),
	}
}

// Router builds the gin engine with all routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", s.health)

	v1 := r.Group("/api/v1")
	v1.Use(s.bearerAuth())
	{
		v1.GET("/posts/status", s.postStatus)
	}
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.serve(ctx, listen)
}

func (s *Server) serve(ctx context.Context, listen net.Listener) error {
	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	stopped := make(chan error, 1)
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		stopped <- srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-stopped
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug(c.Request.Context(), "http",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}
