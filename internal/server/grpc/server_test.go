package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/voicepay/internal/logging"
	"github.com/dmitrijs2005/voicepay/internal/server/analyzer"
	"github.com/dmitrijs2005/voicepay/internal/server/auth"
	"github.com/dmitrijs2005/voicepay/internal/server/config"
	"github.com/dmitrijs2005/voicepay/internal/server/services"
	"github.com/dmitrijs2005/voicepay/internal/server/store"
	"github.com/dmitrijs2005/voicepay/internal/voiceprint"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type nopLogger struct{}

func (n nopLogger) Debug(context.Context, string, ...any) {}
func (n nopLogger) Info(context.Context, string, ...any)  {}
func (n nopLogger) Warn(context.Context, string, ...any)  {}
func (n nopLogger) Error(context.Context, string, ...any) {}
func (n nopLogger) With(...any) logging.Logger            { return n }

func TestRun_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	srv, err := NewGRPCServer("127.0.0.1:0", nopLogger{}, &fakeVoice{}, fakeTokens{}, "secret")
	if err != nil {
		t.Fatalf("NewGRPCServer error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx)
	}()

	select {
	case err := <-done:
		t.Fatalf("server exited too early: %v", err)
	case <-time.After(150 * time.Millisecond):
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error on graceful stop: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop within timeout after context cancel")
	}
}

func TestRun_ReturnsErrorOnBadAddress(t *testing.T) {
	t.Parallel()

	srv, err := NewGRPCServer("127.0.0.1:99999", nopLogger{}, &fakeVoice{}, fakeTokens{}, "secret")
	if err != nil {
		t.Fatalf("NewGRPCServer error (constructor should not fail here): %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.Run(ctx); err == nil {
		t.Fatal("expected error from Run on bad address, got nil")
	}
}

// startInMemory serves a real VoiceAuthService over bufconn and returns a
// connected client.
func startInMemory(t *testing.T, fake *analyzer.Fake) *Client {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.SecretKey = "secret"

	voice := services.NewVoiceAuthService(
		store.NewMemoryStore(),
		voiceprint.NewExtractor(),
		analyzer.NewSecretExtractor(fake, time.Second),
		analyzer.NewIntentExtractor(fake, time.Second),
		nil,
		nopLogger{},
		services.Options{Threshold: cfg.SimilarityThreshold, Workers: 1},
	)

	srv, err := NewGRPCServer("bufconn", nopLogger{}, voice, services.NewTokenService(cfg), cfg.SecretKey)
	if err != nil {
		t.Fatalf("NewGRPCServer error: %v", err)
	}

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, lis) }()

	client, err := NewClient("passthrough:///bufconn",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}))
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}

	t.Cleanup(func() {
		_ = client.Close()
		cancel()
		<-done
	})

	return client
}

func TestEndToEnd(t *testing.T) {
	fake := analyzer.NewFake()
	fake.DefaultAudio = `{"numbers": [1, 2, 3, 4, 5]}`
	fake.SetTextReply("send 5 dollars to bob",
		`{"success": true, "has_payment_command": true, "recipients": "bob", "action": "send", "amounts": 500, "currency": "usd", "confidence": 0.9}`)

	c := startInMemory(t, fake)
	ctx := context.Background()
	audio := []byte("not really audio, the fallback voiceprint is enough here")

	if _, err := c.Ping(ctx); err != nil {
		t.Fatalf("Ping error: %v", err)
	}

	// registration needs an admin token
	_, err := c.Register(ctx, "CARD_1", audio)
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated without token, got %v", err)
	}

	admin, err := auth.GenerateToken("ops", auth.RoleAdmin, []byte("secret"), time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}
	c.SetToken(admin)

	reg, err := c.Register(ctx, "CARD_1", audio)
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if reg.Registration.EmbeddingMethod != voiceprint.MethodFallback {
		t.Fatalf("unexpected method %q", reg.Registration.EmbeddingMethod)
	}

	list, err := c.ListUsers(ctx)
	if err != nil || list.Total != 1 {
		t.Fatalf("ListUsers: %+v, %v", list, err)
	}

	if err := c.Deactivate(ctx, "CARD_1"); err != nil {
		t.Fatalf("Deactivate error: %v", err)
	}
	if err := c.Deactivate(ctx, "CARD_1"); status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("expected FailedPrecondition, got %v", err)
	}
	if err := c.Reactivate(ctx, "CARD_1"); err != nil {
		t.Fatalf("Reactivate error: %v", err)
	}

	authResp, err := c.Authenticate(ctx, audio)
	if err != nil {
		t.Fatalf("Authenticate error: %v", err)
	}
	if !authResp.Result.Authenticated || authResp.Result.UserID != "CARD_1" || authResp.SessionToken == "" {
		t.Fatalf("unexpected authentication: %+v", authResp)
	}

	// the client now carries the session token
	pay, err := c.AnalyzePayment(ctx, "send 5 dollars to bob")
	if err != nil {
		t.Fatalf("AnalyzePayment error: %v", err)
	}
	if pay.PayerID != "CARD_1" || !pay.Validation.IsValid {
		t.Fatalf("unexpected analysis: %+v", pay)
	}

	// and is no longer an admin
	if _, err := c.Stats(ctx); status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated, got %v", err)
	}

	c.SetToken(admin)
	if err := c.DeleteUser(ctx, "CARD_1"); err != nil {
		t.Fatalf("DeleteUser error: %v", err)
	}
	if _, err := c.GetUser(ctx, "CARD_1"); status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}

	stats, err := c.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats error: %v", err)
	}
	if stats.Total != 0 || stats.Threshold != services.DefaultThreshold {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
