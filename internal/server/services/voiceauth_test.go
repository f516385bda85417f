package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/voicepay/internal/audiotest"
	"github.com/dmitrijs2005/voicepay/internal/common"
	"github.com/dmitrijs2005/voicepay/internal/server/analyzer"
	"github.com/dmitrijs2005/voicepay/internal/server/audiostore"
	"github.com/dmitrijs2005/voicepay/internal/server/store"
	"github.com/dmitrijs2005/voicepay/internal/voiceprint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	secret12345 = `{"numbers": [1, 2, 3, 4, 5]}`
	secret99999 = `Sure! {"numbers": [9, 9, 9, 9, 9]}`
)

// --- helpers ---

type recordingArchive struct {
	mu   sync.Mutex
	puts map[string][]byte
	err  error
}

func (a *recordingArchive) Put(ctx context.Context, key string, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	if a.puts == nil {
		a.puts = map[string][]byte{}
	}
	a.puts[key] = data
	return nil
}

func (a *recordingArchive) Locate(ctx context.Context, key string) (string, error) {
	return "mem://" + key, nil
}

var _ audiostore.Archive = (*recordingArchive)(nil)

type fixture struct {
	svc     *VoiceAuthService
	fake    *analyzer.Fake
	store   *store.MemoryStore
	archive *recordingArchive
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fake := analyzer.NewFake()
	st := store.NewMemoryStore()
	arch := &recordingArchive{}
	svc := NewVoiceAuthService(
		st,
		voiceprint.NewExtractor(),
		analyzer.NewSecretExtractor(fake, time.Second),
		analyzer.NewIntentExtractor(fake, time.Second),
		arch,
		nil,
		Options{Workers: 2},
	)
	return &fixture{svc: svc, fake: fake, store: st, archive: arch}
}

func voiceWAV(t *testing.T, f0 float64) []byte {
	t.Helper()
	return audiotest.MonoWAV(t, audiotest.Voice(f0, 1.5, voiceprint.TargetSampleRate), voiceprint.TargetSampleRate)
}

// --- tests ---

func TestRegisterThenAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := voiceWAV(t, 140)
	f.fake.SetAudioReply(alice, secret12345)

	sum, err := f.svc.Register(ctx, "CARD_1", alice)
	require.NoError(t, err)
	assert.Equal(t, "CARD_1", sum.UserID)
	assert.Equal(t, common.VoiceprintDimensions, sum.EmbeddingDimensions)
	assert.Equal(t, common.SecretLength, sum.SecretDigits)
	assert.Len(t, sum.FileHashPrefix, 8)
	assert.Equal(t, voiceprint.ContentHash(alice)[:8], sum.FileHashPrefix)

	res, err := f.svc.Authenticate(ctx, alice)
	require.NoError(t, err)
	assert.True(t, res.Authenticated)
	assert.Equal(t, "CARD_1", res.UserID)
	assert.InDelta(t, 1.0, res.SimilarityScore, 1e-9)
	assert.Equal(t, DefaultThreshold, res.ThresholdUsed)

	require.Contains(t, f.archive.puts, audiostore.SampleKey(voiceprint.ContentHash(alice)))
}

func TestAuthenticate_UnknownSecret(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := voiceWAV(t, 140)
	f.fake.SetAudioReply(alice, secret12345)
	_, err := f.svc.Register(ctx, "CARD_1", alice)
	require.NoError(t, err)

	f.fake.SetAudioReply(alice, secret99999)
	res, err := f.svc.Authenticate(ctx, alice)
	require.NoError(t, err)
	assert.False(t, res.Authenticated)
	assert.Equal(t, common.NoMatchUserID, res.UserID)
	assert.Equal(t, 0.0, res.SimilarityScore)
	assert.Zero(t, res.SecretMatches)
}

func TestAuthenticate_EmptyStore(t *testing.T) {
	f := newFixture(t)
	f.fake.DefaultAudio = secret12345

	res, err := f.svc.Authenticate(context.Background(), voiceWAV(t, 200))
	require.NoError(t, err)
	assert.False(t, res.Authenticated)
	assert.Equal(t, "0", res.UserID)
}

func TestAuthenticateProbe_Scenarios(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.RegisterProbe(ctx, "CARD_1", Probe{Voiceprint: constVector(0.123), Secret: []int{1, 2, 3, 4, 5}})
	require.NoError(t, err)

	t.Run("identical", func(t *testing.T) {
		res, err := f.svc.AuthenticateProbe(ctx, Probe{Voiceprint: constVector(0.123), Secret: []int{1, 2, 3, 4, 5}})
		require.NoError(t, err)
		assert.Equal(t, "CARD_1", res.UserID)
		assert.InDelta(t, 1.0, res.SimilarityScore, 1e-9)
	})

	t.Run("zero norm voiceprint", func(t *testing.T) {
		res, err := f.svc.AuthenticateProbe(ctx, Probe{Voiceprint: constVector(0), Secret: []int{1, 2, 3, 4, 5}})
		require.NoError(t, err)
		assert.False(t, res.Authenticated)
		assert.Equal(t, "0", res.UserID)
		assert.Equal(t, 0.0, res.SimilarityScore)
		assert.Equal(t, 1, res.SecretMatches)
	})

	t.Run("wrong secret", func(t *testing.T) {
		res, err := f.svc.AuthenticateProbe(ctx, Probe{Voiceprint: constVector(0.123), Secret: []int{9, 9, 9, 9, 9}})
		require.NoError(t, err)
		assert.False(t, res.Authenticated)
		assert.Equal(t, "0", res.UserID)
	})
}

func TestSoftDeleteLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	probe := Probe{Voiceprint: constVector(0.123), Secret: []int{1, 2, 3, 4, 5}}

	_, err := f.svc.RegisterProbe(ctx, "CARD_1", probe)
	require.NoError(t, err)

	require.NoError(t, f.svc.Deactivate(ctx, "CARD_1"))
	assert.ErrorIs(t, f.svc.Deactivate(ctx, "CARD_1"), common.ErrorAlreadyInState)

	res, err := f.svc.AuthenticateProbe(ctx, probe)
	require.NoError(t, err)
	assert.False(t, res.Authenticated)

	info, err := f.svc.GetUserInfo(ctx, "CARD_1")
	require.NoError(t, err)
	assert.False(t, info.IsActive)
	assert.True(t, info.HasSecretNumbers)

	require.NoError(t, f.svc.Reactivate(ctx, "CARD_1"))
	assert.ErrorIs(t, f.svc.Reactivate(ctx, "CARD_1"), common.ErrorAlreadyInState)

	res, err = f.svc.AuthenticateProbe(ctx, probe)
	require.NoError(t, err)
	assert.Equal(t, "CARD_1", res.UserID)

	require.NoError(t, f.svc.PermanentlyDelete(ctx, "CARD_1"))
	assert.ErrorIs(t, f.svc.PermanentlyDelete(ctx, "CARD_1"), common.ErrorNotFound)
	_, err = f.svc.GetUserInfo(ctx, "CARD_1")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestManagement_UnknownUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.Deactivate(ctx, "ghost"), common.ErrorNotFound)
	assert.ErrorIs(t, f.svc.Reactivate(ctx, "ghost"), common.ErrorNotFound)
	assert.ErrorIs(t, f.svc.PermanentlyDelete(ctx, "ghost"), common.ErrorNotFound)
	_, err := f.svc.SampleLocation(ctx, "ghost")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestRegister_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("empty user id", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Register(ctx, " ", voiceWAV(t, 140))
		assert.ErrorIs(t, err, common.ErrorValidation)
		assert.Empty(t, f.fake.Calls())
	})

	t.Run("empty audio", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Register(ctx, "CARD_1", nil)
		assert.ErrorIs(t, err, common.ErrorInvalidInput)
	})

	t.Run("secret not heard", func(t *testing.T) {
		f := newFixture(t)
		f.fake.DefaultAudio = "I could not hear any numbers."
		_, err := f.svc.Register(ctx, "CARD_1", voiceWAV(t, 140))

		var se *StageError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, StageSecret, se.Stage)
		assert.ErrorIs(t, err, common.ErrorExtractionFailed)
	})

	t.Run("four digits", func(t *testing.T) {
		f := newFixture(t)
		f.fake.DefaultAudio = `{"numbers": [1, 2, 3, 4]}`
		_, err := f.svc.Register(ctx, "CARD_1", voiceWAV(t, 140))
		assert.ErrorIs(t, err, common.ErrorExtractionFailed)
	})

	t.Run("analyzer down", func(t *testing.T) {
		f := newFixture(t)
		f.fake.Err = errors.New("connection refused")
		_, err := f.svc.Register(ctx, "CARD_1", voiceWAV(t, 140))
		assert.ErrorIs(t, err, common.ErrorExtractionFailed)

		list, lerr := f.svc.ListUsers(ctx)
		require.NoError(t, lerr)
		assert.Zero(t, list.Total)
	})

	t.Run("bad probe", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.RegisterProbe(ctx, "CARD_1", Probe{Voiceprint: constVector(0.1)[:99], Secret: []int{1, 2, 3, 4, 5}})
		assert.ErrorIs(t, err, common.ErrorValidation)
	})
}

func TestRegister_FallbackVoiceprint(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fake.DefaultAudio = secret12345
	junk := []byte("definitely not an audio file, just some bytes")

	sum, err := f.svc.Register(ctx, "CARD_2", junk)
	require.NoError(t, err)
	assert.Equal(t, voiceprint.MethodFallback, sum.EmbeddingMethod)
	assert.NotEmpty(t, sum.FallbackReason)

	res, err := f.svc.Authenticate(ctx, junk)
	require.NoError(t, err)
	assert.Equal(t, "CARD_2", res.UserID)
}

func TestRegister_ArchiveFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.archive.err = errors.New("bucket gone")
	f.fake.DefaultAudio = secret12345

	_, err := f.svc.Register(context.Background(), "CARD_1", voiceWAV(t, 140))
	require.NoError(t, err)
}

func TestRegister_ReplacesEnrollment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first, second := voiceWAV(t, 140), voiceWAV(t, 220)
	f.fake.SetAudioReply(first, secret12345).SetAudioReply(second, secret99999)

	_, err := f.svc.Register(ctx, "CARD_1", first)
	require.NoError(t, err)
	_, err = f.svc.Register(ctx, "CARD_1", second)
	require.NoError(t, err)

	list, err := f.svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, list.Total)

	res, err := f.svc.Authenticate(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, "CARD_1", res.UserID)

	loc, err := f.svc.SampleLocation(ctx, "CARD_1")
	require.NoError(t, err)
	assert.Equal(t, "mem://"+audiostore.SampleKey(voiceprint.ContentHash(second)), loc)
}

func TestListUsersAndStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, id := range []string{"A", "B", "C"} {
		_, err := f.svc.RegisterProbe(ctx, id, Probe{Voiceprint: constVector(0.2), Secret: []int{1, 1, 1, 1, 1}})
		require.NoError(t, err)
	}
	require.NoError(t, f.svc.Deactivate(ctx, "B"))

	list, err := f.svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, list.Total)
	assert.Len(t, list.Users, 3)

	st, err := f.svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, st.Total)
	assert.Equal(t, 2, st.Active)
	assert.Equal(t, 1, st.Inactive)
	assert.Equal(t, DefaultThreshold, st.Threshold)
}

func TestAnalyzePayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.RegisterProbe(ctx, "CARD_1", Probe{Voiceprint: constVector(0.123), Secret: []int{1, 2, 3, 4, 5}})
	require.NoError(t, err)

	f.fake.SetTextReply("pay twenty dollars to starbucks coffee",
		`{"success": true, "has_payment_command": true, "recipients": "starbucks coffee", "action": "pay", "amounts": 2000, "currency": "usd", "confidence": 0.95}`)

	got, err := f.svc.AnalyzePayment(ctx, "CARD_1", "pay twenty dollars to starbucks coffee")
	require.NoError(t, err)
	assert.Equal(t, "CARD_1", got.Intent.Payer)
	assert.Equal(t, int64(2000), got.Intent.AmountCents)
	assert.True(t, got.Validation.IsValid)
	assert.True(t, got.Validation.ReadyForProcessing)

	t.Run("unknown payer", func(t *testing.T) {
		_, err := f.svc.AnalyzePayment(ctx, "ghost", "pay twenty dollars to starbucks coffee")
		assert.ErrorIs(t, err, common.ErrorUnauthorized)
	})

	t.Run("inactive payer", func(t *testing.T) {
		require.NoError(t, f.svc.Deactivate(ctx, "CARD_1"))
		t.Cleanup(func() { _ = f.svc.Reactivate(ctx, "CARD_1") })
		_, err := f.svc.AnalyzePayment(ctx, "CARD_1", "pay twenty dollars to starbucks coffee")
		assert.ErrorIs(t, err, common.ErrorUnauthorized)
	})

	t.Run("unparseable reply", func(t *testing.T) {
		f.fake.DefaultText = "no idea"
		_, err := f.svc.AnalyzePayment(ctx, "CARD_1", "hello there")
		var se *StageError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, StageIntent, se.Stage)
	})
}

func TestConcurrentAuthentications(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := voiceWAV(t, 140)
	f.fake.SetAudioReply(alice, secret12345)
	_, err := f.svc.Register(ctx, "CARD_1", alice)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]*AuthenticationResult, 8)
	errs := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.svc.Authenticate(ctx, alice)
		}(i)
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, "CARD_1", results[i].UserID)
	}
}

func TestStageError(t *testing.T) {
	err := &StageError{Stage: StageSecret, Err: common.ErrorExtractionFailed}
	assert.Equal(t, "secret stage: extraction failed", err.Error())
	assert.ErrorIs(t, err, common.ErrorExtractionFailed)
}

