package grpc

import (
	"context"
	"time"

	"github.com/dmitrijs2005/voicepay/internal/common"
	"github.com/dmitrijs2005/voicepay/internal/server/auth"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

// UserIDKey holds the user id of a verified session token.
const UserIDKey ctxKey = "userID"

const requestIDKey ctxKey = "requestID"

// methodRoles lists the token role each protected method requires. Methods
// not listed are public.
var methodRoles = map[string]string{
	FullMethod(MethodRegister):       auth.RoleAdmin,
	FullMethod(MethodGetUser):        auth.RoleAdmin,
	FullMethod(MethodListUsers):      auth.RoleAdmin,
	FullMethod(MethodDeactivate):     auth.RoleAdmin,
	FullMethod(MethodReactivate):     auth.RoleAdmin,
	FullMethod(MethodDeleteUser):     auth.RoleAdmin,
	FullMethod(MethodStats):          auth.RoleAdmin,
	FullMethod(MethodAnalyzePayment): auth.RoleSession,
}

// RequestID returns the id the logging interceptor assigned to the call.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func (s *GRPCServer) loggingInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {

	id := uuid.NewString()
	ctx = context.WithValue(ctx, requestIDKey, id)
	_ = grpc.SetHeader(ctx, metadata.Pairs(common.RequestIDHeaderName, id))

	start := time.Now()
	resp, err := handler(ctx, req)

	s.logger.Info(ctx, "gRPC call",
		"request_id", id,
		"method", info.FullMethod,
		"code", status.Code(err).String(),
		"duration", time.Since(start))

	return resp, err
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {

	role, protected := methodRoles[info.FullMethod]
	if !protected {
		return handler(ctx, req)
	}

	var accessToken string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		values := md.Get(common.AccessTokenHeaderName)
		if len(values) > 0 {
			accessToken = values[0]
		}
	}
	if len(accessToken) == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	userID, err := auth.GetUserIDFromToken(accessToken, role, s.jwtSecret)
	if err != nil {
		s.logger.Warn(ctx, "token rejected", "method", info.FullMethod, "error", err)
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}

	ctx = context.WithValue(ctx, UserIDKey, userID)

	return handler(ctx, req)
}
