package cli

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/voicepay/internal/audiotest"
	"github.com/dmitrijs2005/voicepay/internal/common"
	"github.com/dmitrijs2005/voicepay/internal/logging"
	"github.com/dmitrijs2005/voicepay/internal/server"
	"github.com/dmitrijs2005/voicepay/internal/server/audiostore"
	"github.com/dmitrijs2005/voicepay/internal/server/auth"
	"github.com/dmitrijs2005/voicepay/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gs "github.com/dmitrijs2005/voicepay/internal/server/grpc"
)

// sharedBackend keeps one in-memory store alive across commands.
type sharedBackend struct{ backend }

func (sharedBackend) Close() error { return nil }

func testConfig() *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.StoreDriver = config.StoreMemory
	c.AnalyzerProvider = config.AnalyzerFake
	c.LogLevel = "error"
	return c
}

type harness struct {
	app *App
	out *bytes.Buffer
	c   *server.Components
}

func newHarness(t *testing.T, input string) *harness {
	t.Helper()

	cfg := testConfig()
	c, err := server.Build(context.Background(), cfg, logging.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	out := &bytes.Buffer{}
	a := NewApp(strings.NewReader(input), out, &bytes.Buffer{})
	a.cfg = cfg
	a.newBackend = func(context.Context) (backend, error) {
		return sharedBackend{&localBackend{c: c}}, nil
	}
	return &harness{app: a, out: out, c: c}
}

func (h *harness) run(args ...string) (string, error) {
	h.out.Reset()
	cmd := h.app.Command()
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return h.out.String(), err
}

func voiceFile(t *testing.T, name string, f0 float64) string {
	t.Helper()
	wav := audiotest.MonoWAV(t, audiotest.Voice(f0, 2, 16000), 16000)
	return audiotest.WriteFile(t, name, wav)
}

func TestRegisterAuthenticateAndList(t *testing.T) {
	h := newHarness(t, "")
	sample := voiceFile(t, "alice.wav", 140)

	out, err := h.run("register", "alice", sample)
	require.NoError(t, err)
	assert.Contains(t, out, "Registered")
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "100")

	out, err = h.run("authenticate", sample)
	require.NoError(t, err)
	assert.Contains(t, out, "authenticated as alice")
	assert.Contains(t, out, "1.0000")

	out, err = h.run("users", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "USER")
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "1 user(s)")

	out, err = h.run("users", "get", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "User alice")
	assert.Contains(t, out, "active")
}

func TestAuthenticate_NoUsers(t *testing.T) {
	h := newHarness(t, "")

	out, err := h.run("authenticate", voiceFile(t, "x.wav", 200))
	require.NoError(t, err)
	assert.Contains(t, out, "rejected")
	assert.Contains(t, out, common.NoMatchUserID)
}

func TestUsers_Lifecycle(t *testing.T) {
	h := newHarness(t, "")
	sample := voiceFile(t, "bob.wav", 120)

	_, err := h.run("register", "bob", sample)
	require.NoError(t, err)

	out, err := h.run("users", "deactivate", "bob")
	require.NoError(t, err)
	assert.Contains(t, out, "bob deactivated")

	out, err = h.run("authenticate", sample)
	require.NoError(t, err)
	assert.Contains(t, out, "rejected")

	_, err = h.run("users", "deactivate", "bob")
	require.ErrorIs(t, err, common.ErrorAlreadyInState)

	out, err = h.run("users", "reactivate", "bob")
	require.NoError(t, err)
	assert.Contains(t, out, "bob reactivated")

	out, err = h.run("users", "delete", "bob", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "bob deleted")

	_, err = h.run("users", "get", "bob")
	require.ErrorIs(t, err, common.ErrorNotFound)

	out, err = h.run("users", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "no users enrolled")
}

func TestUsersDelete_Confirmation(t *testing.T) {
	t.Run("refused without terminal", func(t *testing.T) {
		withTerminal(t, false)
		h := newHarness(t, "")
		_, err := h.run("register", "carol", voiceFile(t, "c.wav", 180))
		require.NoError(t, err)

		_, err = h.run("users", "delete", "carol")
		require.ErrorIs(t, err, errNotConfirmed)

		_, err = h.run("users", "get", "carol")
		require.NoError(t, err)
	})

	t.Run("confirmed at prompt", func(t *testing.T) {
		withTerminal(t, true)
		h := newHarness(t, "carol\n")
		_, err := h.run("register", "carol", voiceFile(t, "c.wav", 180))
		require.NoError(t, err)

		out, err := h.run("users", "delete", "carol")
		require.NoError(t, err)
		assert.Contains(t, out, "Type \"carol\" to confirm")
		assert.Contains(t, out, "carol deleted")
	})
}

func TestStats(t *testing.T) {
	h := newHarness(t, "")
	_, err := h.run("register", "dave", voiceFile(t, "d.wav", 160))
	require.NoError(t, err)

	out, err := h.run("stats")
	require.NoError(t, err)
	assert.Contains(t, out, "memory")
	assert.Contains(t, out, "0.85")
}

func TestExtract(t *testing.T) {
	h := newHarness(t, "")
	sample := voiceFile(t, "e.wav", 150)

	out, err := h.run("extract", sample)
	require.NoError(t, err)
	assert.Contains(t, out, "Voiceprint")
	assert.Contains(t, out, "100")
	assert.NotContains(t, out, "secret")

	out, err = h.run("extract", sample, "--secret")
	require.NoError(t, err)
	assert.Contains(t, out, "1-2-3-4-5")
}

func TestExtract_RejectsRemote(t *testing.T) {
	h := newHarness(t, "")
	_, err := h.run("--server", "127.0.0.1:1", "extract", "whatever.wav")
	require.ErrorIs(t, err, errLocalOnly)
}

func TestMissingAudioFile(t *testing.T) {
	h := newHarness(t, "")
	_, err := h.run("register", "erin", "/does/not/exist.wav")
	require.ErrorIs(t, err, common.ErrorInvalidInput)
}

func TestTokenAdmin(t *testing.T) {
	h := newHarness(t, "")

	out, err := h.run("token", "admin", "--name", "ops")
	require.NoError(t, err)

	sub, err := auth.GetUserIDFromToken(strings.TrimSpace(out), auth.RoleAdmin, []byte(h.app.cfg.SecretKey))
	require.NoError(t, err)
	assert.Equal(t, "ops", sub)
}

func TestIntent(t *testing.T) {
	h := newHarness(t, "")
	sample := voiceFile(t, "f.wav", 130)
	_, err := h.run("register", "frank", sample)
	require.NoError(t, err)

	out, err := h.run("intent", "what is the weather", "--payer", "frank")
	require.NoError(t, err)
	assert.Contains(t, out, "Payment")
	assert.Contains(t, out, "frank")

	out, err = h.run("intent", "what is the weather", "--audio", sample)
	require.NoError(t, err)
	assert.Contains(t, out, "frank")

	_, err = h.run("intent", "what is the weather")
	require.Error(t, err)

	_, err = h.run("intent", "pay", "--payer", "frank", "--audio", sample)
	require.Error(t, err)
}

func TestIntent_UnknownSpeaker(t *testing.T) {
	h := newHarness(t, "")

	out, err := h.run("intent", "pay bob ten dollars", "--audio", voiceFile(t, "g.wav", 210))
	require.ErrorIs(t, err, common.ErrorUnauthorized)
	assert.Contains(t, out, "rejected")
}

func TestRemoteBackend(t *testing.T) {
	h := newHarness(t, "")
	cfg := h.app.cfg

	srv, err := gs.NewGRPCServer("", logging.Nop(), h.c.Voice, h.c.Tokens, cfg.SecretKey)
	require.NoError(t, err)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, lis) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("server did not stop")
		}
	})

	admin, err := h.c.Tokens.IssueAdmin("test")
	require.NoError(t, err)

	h.app.newBackend = h.app.openBackend
	sample := voiceFile(t, "remote.wav", 145)

	_, err = h.run("--server", lis.Addr().String(), "users", "list")
	require.Error(t, err, "management calls need an admin token")

	out, err := h.run("--server", lis.Addr().String(), "--token", admin, "register", "grace", sample)
	require.NoError(t, err)
	assert.Contains(t, out, "grace")

	out, err = h.run("--server", lis.Addr().String(), "--token", admin, "users", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "grace")

	out, err = h.run("--server", lis.Addr().String(), "intent", "hello", "--audio", sample)
	require.NoError(t, err)
	assert.Contains(t, out, "grace")
}

func TestUnseal(t *testing.T) {
	h := newHarness(t, "")
	h.app.cfg.ArchiveKey = "passphrase"

	dir := t.TempDir()
	l, err := audiostore.NewLocal(dir)
	require.NoError(t, err)
	require.NoError(t, audiostore.NewSealed(l, "passphrase").Put(context.Background(), "samples/ab/abcd", []byte("RIFF-audio")))
	sealed := filepath.Join(dir, "samples", "ab", "abcd")

	out, err := h.run("unseal", sealed)
	require.NoError(t, err)
	assert.Equal(t, "RIFF-audio", out)

	target := filepath.Join(dir, "plain.wav")
	_, err = h.run("unseal", sealed, "-o", target)
	require.NoError(t, err)
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, []byte("RIFF-audio"), data)

	h.app.cfg.ArchiveKey = "wrong"
	_, err = h.run("unseal", sealed)
	assert.Error(t, err)

	h.app.cfg.ArchiveKey = ""
	_, err = h.run("unseal", sealed)
	assert.ErrorContains(t, err, "no archive key")
}
