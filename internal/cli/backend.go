package cli

import (
	"context"

	"github.com/dmitrijs2005/voicepay/internal/server"
	"github.com/dmitrijs2005/voicepay/internal/server/models"
	"github.com/dmitrijs2005/voicepay/internal/server/services"

	gs "github.com/dmitrijs2005/voicepay/internal/server/grpc"
)

// backend is what the commands drive: either the services in process or a
// remote server over gRPC.
type backend interface {
	Register(ctx context.Context, userID string, audio []byte) (*services.RegistrationSummary, error)
	Authenticate(ctx context.Context, audio []byte) (*services.AuthenticationResult, error)
	GetUser(ctx context.Context, userID string) (*models.EnrollmentSummary, error)
	ListUsers(ctx context.Context) (*services.UserList, error)
	Deactivate(ctx context.Context, userID string) error
	Reactivate(ctx context.Context, userID string) error
	Delete(ctx context.Context, userID string) error
	Stats(ctx context.Context) (*services.ServiceStats, error)
	// AnalyzePayment runs for payerID locally. Remotely the payer is the
	// user of the last successful Authenticate.
	AnalyzePayment(ctx context.Context, payerID, transcript string) (*services.PaymentAnalysis, error)
	Close() error
}

type localBackend struct {
	c *server.Components
}

func (b *localBackend) Register(ctx context.Context, userID string, audio []byte) (*services.RegistrationSummary, error) {
	return b.c.Voice.Register(ctx, userID, audio)
}

func (b *localBackend) Authenticate(ctx context.Context, audio []byte) (*services.AuthenticationResult, error) {
	return b.c.Voice.Authenticate(ctx, audio)
}

func (b *localBackend) GetUser(ctx context.Context, userID string) (*models.EnrollmentSummary, error) {
	return b.c.Voice.GetUserInfo(ctx, userID)
}

func (b *localBackend) ListUsers(ctx context.Context) (*services.UserList, error) {
	return b.c.Voice.ListUsers(ctx)
}

func (b *localBackend) Deactivate(ctx context.Context, userID string) error {
	return b.c.Voice.Deactivate(ctx, userID)
}

func (b *localBackend) Reactivate(ctx context.Context, userID string) error {
	return b.c.Voice.Reactivate(ctx, userID)
}

func (b *localBackend) Delete(ctx context.Context, userID string) error {
	return b.c.Voice.PermanentlyDelete(ctx, userID)
}

func (b *localBackend) Stats(ctx context.Context) (*services.ServiceStats, error) {
	return b.c.Voice.Stats(ctx)
}

func (b *localBackend) AnalyzePayment(ctx context.Context, payerID, transcript string) (*services.PaymentAnalysis, error) {
	return b.c.Voice.AnalyzePayment(ctx, payerID, transcript)
}

func (b *localBackend) Close() error { return b.c.Close() }

type remoteBackend struct {
	c *gs.Client
}

func (b *remoteBackend) Register(ctx context.Context, userID string, audio []byte) (*services.RegistrationSummary, error) {
	resp, err := b.c.Register(ctx, userID, audio)
	if err != nil {
		return nil, err
	}
	return &resp.Registration, nil
}

func (b *remoteBackend) Authenticate(ctx context.Context, audio []byte) (*services.AuthenticationResult, error) {
	resp, err := b.c.Authenticate(ctx, audio)
	if err != nil {
		return nil, err
	}
	return &resp.Result, nil
}

func (b *remoteBackend) GetUser(ctx context.Context, userID string) (*models.EnrollmentSummary, error) {
	resp, err := b.c.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &resp.User, nil
}

func (b *remoteBackend) ListUsers(ctx context.Context) (*services.UserList, error) {
	resp, err := b.c.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	return &resp.UserList, nil
}

func (b *remoteBackend) Deactivate(ctx context.Context, userID string) error {
	return b.c.Deactivate(ctx, userID)
}

func (b *remoteBackend) Reactivate(ctx context.Context, userID string) error {
	return b.c.Reactivate(ctx, userID)
}

func (b *remoteBackend) Delete(ctx context.Context, userID string) error {
	return b.c.DeleteUser(ctx, userID)
}

func (b *remoteBackend) Stats(ctx context.Context) (*services.ServiceStats, error) {
	resp, err := b.c.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &resp.ServiceStats, nil
}

func (b *remoteBackend) AnalyzePayment(ctx context.Context, _ string, transcript string) (*services.PaymentAnalysis, error) {
	resp, err := b.c.AnalyzePayment(ctx, transcript)
	if err != nil {
		return nil, err
	}
	return &resp.PaymentAnalysis, nil
}

func (b *remoteBackend) Close() error { return b.c.Close() }
