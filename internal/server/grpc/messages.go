package grpc

import (
	"github.com/dmitrijs2005/voicepay/internal/server/models"
	"github.com/dmitrijs2005/voicepay/internal/server/services"
)

type RegisterRequest struct {
	UserID string `json:"user_id"`
	Audio  []byte `json:"audio"`
}

type RegisterResponse struct {
	Registration services.RegistrationSummary `json:"registration"`
}

type AuthenticateRequest struct {
	Audio []byte `json:"audio"`
}

// AuthenticateResponse carries a session token only when Result.Authenticated.
type AuthenticateResponse struct {
	Result       services.AuthenticationResult `json:"result"`
	SessionToken string                        `json:"session_token,omitempty"`
}

// UserRequest addresses one enrollment in GetUser, Deactivate, Reactivate
// and DeleteUser.
type UserRequest struct {
	UserID string `json:"user_id"`
}

type GetUserResponse struct {
	User           models.EnrollmentSummary `json:"user"`
	SampleLocation string                   `json:"sample_location,omitempty"`
}

type ListUsersRequest struct{}

type ListUsersResponse struct {
	services.UserList
}

type StatusResponse struct {
	Status string `json:"status"`
}

type StatsRequest struct{}

type StatsResponse struct {
	services.ServiceStats
}

type AnalyzePaymentRequest struct {
	Transcript string `json:"transcript"`
}

type AnalyzePaymentResponse struct {
	services.PaymentAnalysis
}

type PingRequest struct{}

type PingResponse struct {
	Status string `json:"status"`
}
