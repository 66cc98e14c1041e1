package rpcapi

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "securemsg.v1.Messenger"

// Method names of the Messenger service.
const (
	MethodRegister   = "Register"
	MethodLogin      = "Login"
	MethodLogout     = "Logout"
	MethodInbox      = "Inbox"
	MethodGetMessage = "GetMessage"
	MethodSend       = "Send"
	MethodPing       = "Ping"
)

// FullMethod returns the "/service/method" path of a Messenger method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// MessengerServer is implemented by the server side of the service.
type MessengerServer interface {
	Register(context.Context, *RegisterRequest) (*RegisterResponse, error)
	Login(context.Context, *LoginRequest) (*LoginResponse, error)
	Logout(context.Context, *LogoutRequest) (*LogoutResponse, error)
	Inbox(context.Context, *InboxRequest) (*InboxResponse, error)
	GetMessage(context.Context, *GetMessageRequest) (*GetMessageResponse, error)
	Send(context.Context, *SendRequest) (*SendResponse, error)
	Ping(context.Context, *PingRequest) (*PingResponse, error)
}

func unary[Req, Resp any](method string, call func(MessengerServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(MessengerServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(MessengerServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes the Messenger service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MessengerServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodRegister, MessengerServer.Register),
		unary(MethodLogin, MessengerServer.Login),
		unary(MethodLogout, MessengerServer.Logout),
		unary(MethodInbox, MessengerServer.Inbox),
		unary(MethodGetMessage, MessengerServer.GetMessage),
		unary(MethodSend, MessengerServer.Send),
		unary(MethodPing, MessengerServer.Ping),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "securemsg/v1/messenger",
}

func RegisterMessengerServer(s grpc.ServiceRegistrar, srv MessengerServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// MessengerClient is the client side of the service.
type MessengerClient interface {
	Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*RegisterResponse, error)
	Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error)
	Logout(ctx context.Context, in *LogoutRequest, opts ...grpc.CallOption) (*LogoutResponse, error)
	Inbox(ctx context.Context, in *InboxRequest, opts ...grpc.CallOption) (*InboxResponse, error)
	GetMessage(ctx context.Context, in *GetMessageRequest, opts ...grpc.CallOption) (*GetMessageResponse, error)
	Send(ctx context.Context, in *SendRequest, opts ...grpc.CallOption) (*SendResponse, error)
	Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error)
}

type messengerClient struct {
	cc grpc.ClientConnInterface
}

// NewMessengerClient returns a client that always uses the JSON codec.
func NewMessengerClient(cc grpc.ClientConnInterface) MessengerClient {
	return &messengerClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.ForceCodec(Codec{})}, opts...)
	if err := cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *messengerClient) Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*RegisterResponse, error) {
	return invoke[RegisterResponse](ctx, c.cc, MethodRegister, in, opts)
}

func (c *messengerClient) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error) {
	return invoke[LoginResponse](ctx, c.cc, MethodLogin, in, opts)
}

func (c *messengerClient) Logout(ctx context.Context, in *LogoutRequest, opts ...grpc.CallOption) (*LogoutResponse, error) {
	return invoke[LogoutResponse](ctx, c.cc, MethodLogout, in, opts)
}

func (c *messengerClient) Inbox(ctx context.Context, in *InboxRequest, opts ...grpc.CallOption) (*InboxResponse, error) {
	return invoke[InboxResponse](ctx, c.cc, MethodInbox, in, opts)
}

func (c *messengerClient) GetMessage(ctx context.Context, in *GetMessageRequest, opts ...grpc.CallOption) (*GetMessageResponse, error) {
	return invoke[GetMessageResponse](ctx, c.cc, MethodGetMessage, in, opts)
}

func (c *messengerClient) Send(ctx context.Context, in *SendRequest, opts ...grpc.CallOption) (*SendResponse, error) {
	return invoke[SendResponse](ctx, c.cc, MethodSend, in, opts)
}

func (c *messengerClient) Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error) {
	return invoke[PingResponse](ctx, c.cc, MethodPing, in, opts)
}
