package grpc

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "voicepay.VoiceAuth"

// Method names.
const (
	MethodRegister       = "Register"
	MethodAuthenticate   = "Authenticate"
	MethodGetUser        = "GetUser"
	MethodListUsers      = "ListUsers"
	MethodDeactivate     = "Deactivate"
	MethodReactivate     = "Reactivate"
	MethodDeleteUser     = "DeleteUser"
	MethodStats          = "Stats"
	MethodAnalyzePayment = "AnalyzePayment"
	MethodPing           = "Ping"
)

// FullMethod returns the path of a method as seen by interceptors.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// VoiceAuthServer is the server API of the voicepay.VoiceAuth service.
type VoiceAuthServer interface {
	Register(context.Context, *RegisterRequest) (*RegisterResponse, error)
	Authenticate(context.Context, *AuthenticateRequest) (*AuthenticateResponse, error)
	GetUser(context.Context, *UserRequest) (*GetUserResponse, error)
	ListUsers(context.Context, *ListUsersRequest) (*ListUsersResponse, error)
	Deactivate(context.Context, *UserRequest) (*StatusResponse, error)
	Reactivate(context.Context, *UserRequest) (*StatusResponse, error)
	DeleteUser(context.Context, *UserRequest) (*StatusResponse, error)
	Stats(context.Context, *StatsRequest) (*StatsResponse, error)
	AnalyzePayment(context.Context, *AnalyzePaymentRequest) (*AnalyzePaymentResponse, error)
	Ping(context.Context, *PingRequest) (*PingResponse, error)
}

// unary builds the descriptor of one unary method, decoding the request
// into Req and routing it through the server interceptor chain.
func unary[Req, Resp any](name string, call func(VoiceAuthServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(VoiceAuthServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(VoiceAuthServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes voicepay.VoiceAuth for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*VoiceAuthServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodRegister, VoiceAuthServer.Register),
		unary(MethodAuthenticate, VoiceAuthServer.Authenticate),
		unary(MethodGetUser, VoiceAuthServer.GetUser),
		unary(MethodListUsers, VoiceAuthServer.ListUsers),
		unary(MethodDeactivate, VoiceAuthServer.Deactivate),
		unary(MethodReactivate, VoiceAuthServer.Reactivate),
		unary(MethodDeleteUser, VoiceAuthServer.DeleteUser),
		unary(MethodStats, VoiceAuthServer.Stats),
		unary(MethodAnalyzePayment, VoiceAuthServer.AnalyzePayment),
		unary(MethodPing, VoiceAuthServer.Ping),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "voicepay/voiceauth.json",
}

// RegisterVoiceAuthServer registers srv on s.
func RegisterVoiceAuthServer(s grpc.ServiceRegistrar, srv VoiceAuthServer) {
	s.RegisterService(&ServiceDesc, srv)
}
