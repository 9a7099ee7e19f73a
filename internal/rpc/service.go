package rpc

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "postkeeper.PostKeeperService"

// MaxStatusRefs is the most refs one FetchStatus call may carry.
const MaxStatusRefs = 500

// Full method names.
const (
	MethodPing         = "/" + ServiceName + "/Ping"
	MethodRegisterUser = "/" + ServiceName + "/RegisterUser"
	MethodGetSalt      = "/" + ServiceName + "/GetSalt"
	MethodLogin        = "/" + ServiceName + "/Login"
	MethodRefreshToken = "/" + ServiceName + "/RefreshToken"
	MethodGetUploadURL = "/" + ServiceName + "/GetUploadURL"
	MethodSubmitPost   = "/" + ServiceName + "/SubmitPost"
	MethodFetchStatus  = "/" + ServiceName + "/FetchStatus"
)

// PostKeeperServiceServer is implemented by the server.
type PostKeeperServiceServer interface {
	Ping(context.Context, *PingRequest) (*PingResponse, error)
	RegisterUser(context.Context, *RegisterUserRequest) (*RegisterUserResponse, error)
	GetSalt(context.Context, *GetSaltRequest) (*GetSaltResponse, error)
	Login(context.Context, *LoginRequest) (*LoginResponse, error)
	RefreshToken(context.Context, *RefreshTokenRequest) (*RefreshTokenResponse, error)
	GetUploadURL(context.Context, *GetUploadURLRequest) (*GetUploadURLResponse, error)
	SubmitPost(context.Context, *SubmitPostRequest) (*SubmitPostResponse, error)
	FetchStatus(context.Context, *FetchStatusRequest) (*FetchStatusResponse, error)
}

// PostKeeperServiceClient is the client API for the service.
type PostKeeperServiceClient interface {
	Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error)
	RegisterUser(ctx context.Context, in *RegisterUserRequest, opts ...grpc.CallOption) (*RegisterUserResponse, error)
	GetSalt(ctx context.Context, in *GetSaltRequest, opts ...grpc.CallOption) (*GetSaltResponse, error)
	Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error)
	RefreshToken(ctx context.Context, in *RefreshTokenRequest, opts ...grpc.CallOption) (*RefreshTokenResponse, error)
	GetUploadURL(ctx context.Context, in *GetUploadURLRequest, opts ...grpc.CallOption) (*GetUploadURLResponse, error)
	SubmitPost(ctx context.Context, in *SubmitPostRequest, opts ...grpc.CallOption) (*SubmitPostResponse, error)
	FetchStatus(ctx context.Context, in *FetchStatusRequest, opts ...grpc.CallOption) (*FetchStatusResponse, error)
}

func handler[Req, Resp any](fullMethod string, call func(PostKeeperServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		s := srv.(PostKeeperServiceServer)
		if interceptor == nil {
			return call(s, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		next := func(ctx context.Context, req any) (any, error) {
			return call(s, ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, next)
	}
}

// ServiceDesc describes the service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PostKeeperServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Ping", Handler: handler(MethodPing, PostKeeperServiceServer.Ping)},
		{MethodName: "RegisterUser", Handler: handler(MethodRegisterUser, PostKeeperServiceServer.RegisterUser)},
		{MethodName: "GetSalt", Handler: handler(MethodGetSalt, PostKeeperServiceServer.GetSalt)},
		{MethodName: "Login", Handler: handler(MethodLogin, PostKeeperServiceServer.Login)},
		{MethodName: "RefreshToken", Handler: handler(MethodRefreshToken, PostKeeperServiceServer.RefreshToken)},
		{MethodName: "GetUploadURL", Handler: handler(MethodGetUploadURL, PostKeeperServiceServer.GetUploadURL)},
		{MethodName: "SubmitPost", Handler: handler(MethodSubmitPost, PostKeeperServiceServer.SubmitPost)},
		{MethodName: "FetchStatus", Handler: handler(MethodFetchStatus, PostKeeperServiceServer.FetchStatus)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "postkeeper/rpc",
}

// RegisterPostKeeperServiceServer registers srv with s.
func RegisterPostKeeperServiceServer(s grpc.ServiceRegistrar, srv PostKeeperServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

type postKeeperServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewPostKeeperServiceClient returns a client stub bound to cc.
func NewPostKeeperServiceClient(cc grpc.ClientConnInterface) PostKeeperServiceClient {
	return &postKeeperServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *postKeeperServiceClient) Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error) {
	return invoke[PingResponse](ctx, c.cc, MethodPing, in, opts)
}

func (c *postKeeperServiceClient) RegisterUser(ctx context.Context, in *RegisterUserRequest, opts ...grpc.CallOption) (*RegisterUserResponse, error) {
	return invoke[RegisterUserResponse](ctx, c.cc, MethodRegisterUser, in, opts)
}

func (c *postKeeperServiceClient) GetSalt(ctx context.Context, in *GetSaltRequest, opts ...grpc.CallOption) (*GetSaltResponse, error) {
	return invoke[GetSaltResponse](ctx, c.cc, MethodGetSalt, in, opts)
}

func (c *postKeeperServiceClient) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error) {
	return invoke[LoginResponse](ctx, c.cc, MethodLogin, in, opts)
}

func (c *postKeeperServiceClient) RefreshToken(ctx context.Context, in *RefreshTokenRequest, opts ...grpc.CallOption) (*RefreshTokenResponse, error) {
	return invoke[RefreshTokenResponse](ctx, c.cc, MethodRefreshToken, in, opts)
}

func (c *postKeeperServiceClient) GetUploadURL(ctx context.Context, in *GetUploadURLRequest, opts ...grpc.CallOption) (*GetUploadURLResponse, error) {
	return invoke[GetUploadURLResponse](ctx, c.cc, MethodGetUploadURL, in, opts)
}

func (c *postKeeperServiceClient) SubmitPost(ctx context.Context, in *SubmitPostRequest, opts ...grpc.CallOption) (*SubmitPostResponse, error) {
	return invoke[SubmitPostResponse](ctx, c.cc, MethodSubmitPost, in, opts)
}

func (c *postKeeperServiceClient) FetchStatus(ctx context.Context, in *FetchStatusRequest, opts ...grpc.CallOption) (*FetchStatusResponse, error) {
	return invoke[FetchStatusResponse](ctx, c.cc, MethodFetchStatus, in, opts)
}
