package grpc

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func (s *GRPCServer) Register(ctx context.Context, req *RegisterRequest) (*RegisterResponse, error) {

	s.logger.Info(ctx, "Registration request", "user_id", req.UserID, "audio_bytes", len(req.Audio))

	result, err := s.voice.Register(ctx, req.UserID, req.Audio)
	if err != nil {
		s.logger.Error(ctx, "registration failed", "user_id", req.UserID, "error", err)
		return nil, toStatus(err)
	}

	return &RegisterResponse{Registration: *result}, nil
}

func (s *GRPCServer) Authenticate(ctx context.Context, req *AuthenticateRequest) (*AuthenticateResponse, error) {

	result, err := s.voice.Authenticate(ctx, req.Audio)
	if err != nil {
		s.logger.Error(ctx, "authentication failed", "error", err)
		return nil, toStatus(err)
	}

	resp := &AuthenticateResponse{Result: *result}
	if result.Authenticated {
		token, err := s.tokens.IssueSession(result.UserID)
		if err != nil {
			return nil, toStatus(err)
		}
		resp.SessionToken = token
	}

	return resp, nil
}

func (s *GRPCServer) GetUser(ctx context.Context, req *UserRequest) (*GetUserResponse, error) {

	user, err := s.voice.GetUserInfo(ctx, req.UserID)
	if err != nil {
		return nil, toStatus(err)
	}

	resp := &GetUserResponse{User: *user}

	loc, err := s.voice.SampleLocation(ctx, req.UserID)
	if err != nil {
		s.logger.Warn(ctx, "sample location unavailable", "user_id", req.UserID, "error", err)
	} else {
		resp.SampleLocation = loc
	}

	return resp, nil
}

func (s *GRPCServer) ListUsers(ctx context.Context, req *ListUsersRequest) (*ListUsersResponse, error) {

	list, err := s.voice.ListUsers(ctx)
	if err != nil {
		return nil, toStatus(err)
	}

	return &ListUsersResponse{UserList: *list}, nil
}

func (s *GRPCServer) Deactivate(ctx context.Context, req *UserRequest) (*StatusResponse, error) {
	if err := s.voice.Deactivate(ctx, req.UserID); err != nil {
		return nil, toStatus(err)
	}
	return &StatusResponse{Status: "deactivated"}, nil
}

func (s *GRPCServer) Reactivate(ctx context.Context, req *UserRequest) (*StatusResponse, error) {
	if err := s.voice.Reactivate(ctx, req.UserID); err != nil {
		return nil, toStatus(err)
	}
	return &StatusResponse{Status: "reactivated"}, nil
}

func (s *GRPCServer) DeleteUser(ctx context.Context, req *UserRequest) (*StatusResponse, error) {
	if err := s.voice.PermanentlyDelete(ctx, req.UserID); err != nil {
		return nil, toStatus(err)
	}
	return &StatusResponse{Status: "deleted"}, nil
}

func (s *GRPCServer) Stats(ctx context.Context, req *StatsRequest) (*StatsResponse, error) {

	stats, err := s.voice.Stats(ctx)
	if err != nil {
		return nil, toStatus(err)
	}

	return &StatsResponse{ServiceStats: *stats}, nil
}

// AnalyzePayment uses the session token's user as the payer.
func (s *GRPCServer) AnalyzePayment(ctx context.Context, req *AnalyzePaymentRequest) (*AnalyzePaymentResponse, error) {

	payer, ok := ctx.Value(UserIDKey).(string)
	if !ok || payer == "" {
		return nil, status.Error(codes.Unauthenticated, "missing session")
	}

	analysis, err := s.voice.AnalyzePayment(ctx, payer, req.Transcript)
	if err != nil {
		return nil, toStatus(err)
	}

	return &AnalyzePaymentResponse{PaymentAnalysis: *analysis}, nil
}

func (s *GRPCServer) Ping(ctx context.Context, req *PingRequest) (*PingResponse, error) {

	return &PingResponse{Status: "OK"}, nil

}

