package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-ingest/internal/cache"
	"github.com/Veraticus/spice-ingest/internal/keypool"
	"github.com/Veraticus/spice-ingest/internal/llm"
	"github.com/Veraticus/spice-ingest/internal/model"
	"github.com/Veraticus/spice-ingest/internal/throttle"
	"github.com/Veraticus/spice-ingest/internal/validator"
)

var testNow = time.Date(2026, 6, 15, 9, 30, 0, 0, time.UTC)

// fakeCompleter answers with a fixed completion or error and records calls.
type fakeCompleter struct {
	err      error
	response string
	model    string
	keys     []string
	prompts  []string
	mu       sync.Mutex
}

func (f *fakeCompleter) Complete(_ context.Context, apiKey, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, apiKey)
	f.prompts = append(f.prompts, prompt)
	return f.response, f.err
}

func (f *fakeCompleter) Provider() string { return "fake" }

func (f *fakeCompleter) Model() string {
	if f.model == "" {
		return "fake-small"
	}
	return f.model
}

func (f *fakeCompleter) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

// fakeModels serves one completer per model name.
type fakeModels map[string]*fakeCompleter

func (m fakeModels) For(name string) (llm.Completer, error) {
	c, ok := m[name]
	if !ok {
		return nil, errors.New("no such model")
	}
	return c, nil
}

// fakeRecorder stores what it is given.
type fakeRecorder struct {
	err    error
	saved  []model.ValidatedTransaction
	userID string
}

func (r *fakeRecorder) SaveTransactions(_ context.Context, userID string, txns []model.ValidatedTransaction) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	r.userID = userID
	r.saved = append(r.saved, txns...)
	return len(txns), nil
}

type testEnv struct {
	service   *Service
	completer *fakeCompleter
	pool      *keypool.Manager
	recorder  *fakeRecorder
}

func newTestEnv(t *testing.T, completer *fakeCompleter, secrets ...string) *testEnv {
	t.Helper()

	pool := keypool.NewManager(keypool.Config{
		RequestsPerWindow: 100,
		Window:            time.Minute,
		Cooldown:          time.Minute,
		QueuePause:        time.Millisecond,
	}, nil)
	t.Cleanup(func() { _ = pool.Close() })
	pool.AddCredentials(secrets...)

	mem := cache.New[string](100, time.Hour)
	t.Cleanup(mem.Close)

	throttler := throttle.New(throttle.DefaultConfig(), cache.NewMemoryStore(mem), nil,
		throttle.WithSleep(func(ctx context.Context, _ time.Duration) error { return ctx.Err() }))

	checker := validator.New(validator.DefaultConfig(), nil, nil,
		validator.WithClock(func() time.Time { return testNow }))
	t.Cleanup(checker.Close)

	recorder := &fakeRecorder{}
	ids := 0
	svc, err := New(Config{MaxRetries: 1}, Deps{
		Models:    fakeModels{"": completer, "big": {model: "fake-big", response: completer.response}},
		Pool:      pool,
		Throttler: throttler,
		Checker:   checker,
		Recorder:  recorder,
	}, nil,
		WithClock(func() time.Time { return testNow }),
		WithRequestIDs(func() string {
			ids++
			return fmt.Sprintf("id-%d", ids)
		}))
	require.NoError(t, err)

	return &testEnv{service: svc, completer: completer, pool: pool, recorder: recorder}
}
