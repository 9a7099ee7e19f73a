package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/postkeeper/internal/client/models"
	"github.com/dmitrijs2005/postkeeper/internal/common"
	"github.com/dmitrijs2005/postkeeper/internal/rpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      rpc.PostKeeperServiceClient

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) tokens() (string, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken, s.refreshToken
}

func (s *GRPCClient) setTokens(access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = access
	s.refreshToken = refresh
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {

	access, refresh := s.tokens()

	err := invoker(withAccessToken(ctx, access), method, req, reply, cc, opts...)
	if err == nil {
		return nil
	}

	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	if st.Code() != codes.Unauthenticated || st.Message() != common.ErrTokenExpired.Error() {
		return err
	}
	if refresh == "" || method == rpc.MethodRefreshToken {
		return err
	}

	resp, rerr := s.client.RefreshToken(ctx, &rpc.RefreshTokenRequest{RefreshToken: refresh})
	if rerr != nil {
		return err
	}
	s.setTokens(resp.AccessToken, resp.RefreshToken)

	return invoker(withAccessToken(ctx, resp.AccessToken), method, req, reply, cc, opts...)
}

func NewPostKeeperClient(endpointURL string) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL}
	if err := c.InitGRPCClient(); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient() error {
	conn, err := grpc.NewClient(s.endpointURL,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor),
	)
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = rpc.NewPostKeeperServiceClient(conn)
	return nil
}

func (s *GRPCClient) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *GRPCClient) Register(ctx context.Context, userName string, salt []byte, key []byte) error {
	req := &rpc.RegisterUserRequest{Username: userName, Salt: salt, Verifier: key}
	if _, err := s.client.RegisterUser(ctx, req); err != nil {
		return s.mapError(err)
	}
	return nil
}

func (s *GRPCClient) GetSalt(ctx context.Context, userName string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, 12*time.Second)
	defer cancel()

	resp, err := s.client.GetSalt(ctx, &rpc.GetSaltRequest{Username: userName})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp.Salt, nil
}

func (s *GRPCClient) Login(ctx context.Context, userName string, key []byte) error {
	resp, err := s.client.Login(ctx, &rpc.LoginRequest{Username: userName, VerifierCandidate: key})
	if err != nil {
		return s.mapError(err)
	}
	s.setTokens(resp.AccessToken, resp.RefreshToken)
	return nil
}

// Logout forgets the session tokens.
func (s *GRPCClient) Logout() {
	s.setTokens("", "")
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	resp, err := s.client.Ping(ctx, &rpc.PingRequest{})
	if err != nil {
		return s.mapError(err)
	}
	if resp.Status != "OK" {
		return ErrUnavailable
	}
	return nil
}

func (s *GRPCClient) GetUploadURL(ctx context.Context, contentType string) (string, string, error) {
	resp, err := s.client.GetUploadURL(ctx, &rpc.GetUploadURLRequest{ContentType: contentType})
	if err != nil {
		return "", "", s.mapError(err)
	}
	return resp.Key, resp.URL, nil
}

func (s *GRPCClient) SubmitPost(ctx context.Context, sub models.Submission) (models.RemoteStatus, error) {
	p := sub.Post
	if p.ScheduledAt == nil {
		return models.RemoteStatus{}, errors.New("post is not scheduled")
	}

	req := &rpc.SubmitPostRequest{
		Post: rpc.Post{
			LocalID:     p.LocalID,
			Title:       p.Title,
			Content:     p.Content,
			ScheduledAt: p.ScheduledAt.UTC(),
			Visibility:  p.Visibility,
		},
		MediaKeys: sub.MediaKeys,
	}
	if p.Place != nil {
		req.Post.Place = &rpc.Place{Lat: p.Place.Lat, Lng: p.Place.Lng, Address: p.Place.Address}
	}

	resp, err := s.client.SubmitPost(ctx, req)
	if err != nil {
		return models.RemoteStatus{}, s.mapError(err)
	}

	return models.RemoteStatus{
		Ref:    p.Ref(),
		State:  models.ParseRemoteState(resp.State),
		Reason: resp.Reason,
	}, nil
}

// FetchStatus asks the server about refs. It satisfies reconcile.StatusSource.
func (s *GRPCClient) FetchStatus(ctx context.Context, refs []models.PostRef) ([]models.RemoteStatus, error) {
	req := &rpc.FetchStatusRequest{Refs: make([]rpc.PostRef, 0, len(refs))}
	for _, r := range refs {
		req.Refs = append(req.Refs, rpc.PostRef{LocalID: r.LocalID, RemoteID: r.RemoteID})
	}

	resp, err := s.client.FetchStatus(ctx, req)
	if err != nil {
		return nil, s.mapError(err)
	}

	out := make([]models.RemoteStatus, 0, len(resp.Statuses))
	for _, st := range resp.Statuses {
		out = append(out, models.RemoteStatus{
			Ref:            models.PostRef{LocalID: st.Ref.LocalID, RemoteID: st.Ref.RemoteID},
			State:          models.ParseRemoteState(st.State),
			RemoteID:       st.RemoteID,
			CloudImageURLs: st.CloudImageURLs,
			Reason:         st.Reason,
		})
	}
	return out, nil
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return ErrUnauthorized
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	case codes.NotFound:
		return common.ErrorNotFound
	case codes.AlreadyExists:
		return common.ErrorAlreadyExists
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
