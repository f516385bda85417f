// Package grpc exposes the voice authentication service over gRPC. Messages
// are plain Go structs carried by a JSON codec, so no generated code is
// involved.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/voicepay/internal/logging"
	"github.com/dmitrijs2005/voicepay/internal/server/models"
	"github.com/dmitrijs2005/voicepay/internal/server/services"
	"google.golang.org/grpc"
)

// voiceAuthService is the part of services.VoiceAuthService the transport uses.
type voiceAuthService interface {
	Register(ctx context.Context, userID string, audio []byte) (*services.RegistrationSummary, error)
	Authenticate(ctx context.Context, audio []byte) (*services.AuthenticationResult, error)
	GetUserInfo(ctx context.Context, userID string) (*models.EnrollmentSummary, error)
	SampleLocation(ctx context.Context, userID string) (string, error)
	ListUsers(ctx context.Context) (*services.UserList, error)
	Deactivate(ctx context.Context, userID string) error
	Reactivate(ctx context.Context, userID string) error
	PermanentlyDelete(ctx context.Context, userID string) error
	Stats(ctx context.Context) (*services.ServiceStats, error)
	AnalyzePayment(ctx context.Context, payerID, transcript string) (*services.PaymentAnalysis, error)
}

type tokenIssuer interface {
	IssueSession(userID string) (string, error)
}

var (
	_ voiceAuthService = (*services.VoiceAuthService)(nil)
	_ tokenIssuer      = (*services.TokenService)(nil)
	_ VoiceAuthServer  = (*GRPCServer)(nil)
)

type GRPCServer struct {
	address   string
	voice     voiceAuthService
	tokens    tokenIssuer
	logger    logging.Logger
	jwtSecret []byte
}

func NewGRPCServer(a string, l logging.Logger, vs voiceAuthService, ts tokenIssuer, secretKey string) (*GRPCServer, error) {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		voice:     vs,
		tokens:    ts,
		jwtSecret: []byte(secretKey),
	}, nil
}

// NewServer builds the grpc.Server with the interceptor chain and the
// service registered.
func (s *GRPCServer) NewServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.accessTokenInterceptor))
	srv := grpc.NewServer(opts...)
	RegisterVoiceAuthServer(srv, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is cancelled, then stops
// gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {

	srv := s.NewServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}
