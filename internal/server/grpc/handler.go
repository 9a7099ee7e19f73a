package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/postkeeper/internal/common"
	"github.com/dmitrijs2005/postkeeper/internal/rpc"
	"github.com/dmitrijs2005/postkeeper/internal/server/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatus maps service errors to gRPC status errors. Internal details are
// logged, not returned.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrorUnauthorized):
		return status.Error(codes.Unauthenticated, "unauthorized")
	case errors.Is(err, common.ErrRefreshTokenExpired):
		return status.Error(codes.Unauthenticated, common.ErrRefreshTokenExpired.Error())
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, common.ErrorAlreadyExists):
		return status.Error(codes.AlreadyExists, "already exists")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	s.logger.Error(ctx, "request failed", "error", err)
	return status.Error(codes.Internal, "internal error")
}

func (s *GRPCServer) RegisterUser(ctx context.Context, req *rpc.RegisterUserRequest) (*rpc.RegisterUserResponse, error) {
	if req.Username == "" || len(req.Salt) == 0 || len(req.Verifier) == 0 {
		return nil, status.Error(codes.InvalidArgument, "username, salt and verifier are required")
	}

	result, err := s.users.Register(ctx, req.Username, req.Salt, req.Verifier)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	s.logger.Info(ctx, "Registered", "username", req.Username)
	return &rpc.RegisterUserResponse{UserID: result.ID}, nil
}

func (s *GRPCServer) GetSalt(ctx context.Context, req *rpc.GetSaltRequest) (*rpc.GetSaltResponse, error) {
	result, err := s.users.GetSalt(ctx, req.Username)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpc.GetSaltResponse{Salt: result}, nil
}

func (s *GRPCServer) Login(ctx context.Context, req *rpc.LoginRequest) (*rpc.LoginResponse, error) {
	tokens, err := s.users.Login(ctx, req.Username, req.VerifierCandidate)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpc.LoginResponse{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}, nil
}

func (s *GRPCServer) RefreshToken(ctx context.Context, req *rpc.RefreshTokenRequest) (*rpc.RefreshTokenResponse, error) {
	tokens, err := s.users.RefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpc.RefreshTokenResponse{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}, nil
}

func (s *GRPCServer) Ping(ctx context.Context, req *rpc.PingRequest) (*rpc.PingResponse, error) {
	return &rpc.PingResponse{Status: "OK"}, nil
}

func (s *GRPCServer) GetUploadURL(ctx context.Context, req *rpc.GetUploadURLRequest) (*rpc.GetUploadURLResponse, error) {
	userID, ok := userIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Internal, "missing user id")
	}

	key, url, err := s.media.GetUploadURL(ctx, userID, req.ContentType)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpc.GetUploadURLResponse{Key: key, URL: url}, nil
}

func (s *GRPCServer) SubmitPost(ctx context.Context, req *rpc.SubmitPostRequest) (*rpc.SubmitPostResponse, error) {
	userID, ok := userIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Internal, "missing user id")
	}
	if req.Post.LocalID == "" {
		return nil, status.Error(codes.InvalidArgument, "local id is required")
	}

	saved, err := s.posts.Submit(ctx, userID, postFromRPC(req))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpc.SubmitPostResponse{State: string(saved.Status), Reason: saved.Reason}, nil
}

func (s *GRPCServer) FetchStatus(ctx context.Context, req *rpc.FetchStatusRequest) (*rpc.FetchStatusResponse, error) {
	userID, ok := userIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Internal, "missing user id")
	}
	if len(req.Refs) > rpc.MaxStatusRefs {
		return nil, status.Errorf(codes.InvalidArgument, "at most %d refs per call", rpc.MaxStatusRefs)
	}

	localIDs := make([]string, 0, len(req.Refs))
	refs := make(map[string]rpc.PostRef, len(req.Refs))
	for _, r := range req.Refs {
		if _, dup := refs[r.LocalID]; dup {
			continue
		}
		refs[r.LocalID] = r
		localIDs = append(localIDs, r.LocalID)
	}

	reports, err := s.posts.Status(ctx, userID, localIDs)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	out := &rpc.FetchStatusResponse{Statuses: make([]rpc.PostStatus, 0, len(reports))}
	for _, r := range reports {
		out.Statuses = append(out.Statuses, rpc.PostStatus{
			Ref:            refs[r.LocalID],
			State:          r.State,
			RemoteID:       r.RemoteID,
			CloudImageURLs: r.ImageURLs,
			Reason:         r.Reason,
		})
	}
	return out, nil
}

func postFromRPC(req *rpc.SubmitPostRequest) models.Post {
	p := models.Post{
		LocalID:     req.Post.LocalID,
		Title:       req.Post.Title,
		Content:     req.Post.Content,
		ScheduledAt: req.Post.ScheduledAt.UTC(),
		Visibility:  req.Post.Visibility,
		MediaKeys:   req.MediaKeys,
	}
	if req.Post.Place != nil {
		p.Place = &models.Place{Lat: req.Post.Place.Lat, Lng: req.Post.Place.Lng, Address: req.Post.Place.Address}
	}
	return p
}
