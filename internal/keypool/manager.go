package keypool

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Veraticus/spice-ingest/internal/common"
)

// Credential is one API key handed out by the pool.
type Credential struct {
	ID     string
	Secret string
}

// keyState is the pool's bookkeeping for a credential.
type keyState struct {
	windowStart   time.Time
	lastUsed      time.Time
	cooldownUntil time.Time
	cred          Credential
	count         int
	failures      int
	active        bool
}

// Manager owns a set of credentials and hands them out round-robin.
type Manager struct {
	baseCtx    context.Context
	now        func() time.Time
	sleep      func(context.Context, time.Duration) error
	logger     *slog.Logger
	index      map[string]int
	wake       chan struct{}
	stopCh     chan struct{}
	queue      *requestQueue
	baseCancel context.CancelFunc
	keys       []*keyState
	cfg        Config
	wg         sync.WaitGroup
	cursor     int
	mu         sync.Mutex
	closeOnce  sync.Once
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithSleep overrides how the manager waits for a credential to free up.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(m *Manager) { m.sleep = sleep }
}

// NewManager creates a pool and starts its sweep and queue goroutines.
// Call Close to stop them.
func NewManager(cfg Config, logger *slog.Logger, opts ...Option) *Manager {
	baseCtx, baseCancel := context.WithCancel(context.Background())

	m := &Manager{
		baseCtx:    baseCtx,
		baseCancel: baseCancel,
		cfg:        cfg.withDefaults(),
		logger:     common.LoggerOrDefault(logger),
		now:        time.Now,
		sleep:      common.SleepContext,
		index:      make(map[string]int),
		wake:       make(chan struct{}, 1),
		stopCh:     make(chan struct{}),
		queue:      newRequestQueue(),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.wg.Add(2)
	go m.sweepLoop()
	go m.consume()

	return m
}

// AddCredentials appends credentials with zeroed counters. Blank and
// duplicate secrets are ignored.
func (m *Manager) AddCredentials(secrets ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	added := 0
	for _, secret := range secrets {
		secret = strings.TrimSpace(secret)
		if secret == "" {
			continue
		}
		if _, exists := m.index[secret]; exists {
			continue
		}

		idx := len(m.keys)
		m.keys = append(m.keys, &keyState{
			cred:   Credential{ID: fmt.Sprintf("key-%d", idx+1), Secret: secret},
			active: true,
		})
		m.index[secret] = idx
		added++
	}

	m.logger.Info("credentials added to pool", "added", added, "total", len(m.keys))
}

// Len returns the number of credentials in the pool.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.keys)
}

// TryAcquire returns the next usable credential without waiting. The
// credential is marked used in the same critical section, so two callers
// never receive the last slot of one window.
func (m *Manager) TryAcquire() (Credential, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	n := len(m.keys)
	for i := 0; i < n; i++ {
		idx := (m.cursor + i) % n
		k := m.keys[idx]
		m.resetWindowLocked(k, now)
		if !m.usableLocked(k, now) {
			continue
		}

		m.cursor = (idx + 1) % n
		k.count++
		k.lastUsed = now
		return k.cred, true
	}

	return Credential{}, false
}

// Acquire returns the next usable credential. When none is usable it waits
// until the soonest window reset or cooldown expiry and tries once more.
// It fails with common.ErrPoolExhausted when every credential is disabled.
func (m *Manager) Acquire(ctx context.Context) (Credential, error) {
	if cred, ok := m.TryAcquire(); ok {
		return cred, nil
	}

	wait, ok := m.nextAvailableIn()
	if !ok {
		return Credential{}, common.ErrPoolExhausted
	}

	m.logger.Debug("waiting for credential", "wait", wait)
	if err := m.sleep(ctx, wait); err != nil {
		return Credential{}, fmt.Errorf("waiting for credential: %w", err)
	}

	if cred, ok := m.TryAcquire(); ok {
		return cred, nil
	}
	if _, ok := m.nextAvailableIn(); !ok {
		return Credential{}, common.ErrPoolExhausted
	}
	return Credential{}, common.ErrNoCredentialAvailable
}

// MarkUsed counts one request against c.
func (m *Manager) MarkUsed(c Credential) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k, _ := m.lookupLocked(c)
	if k == nil {
		return
	}

	now := m.now()
	m.resetWindowLocked(k, now)
	k.count++
	k.lastUsed = now
}

// ReportRateLimited puts c into cooldown and saturates its window so it is
// skipped until both clear.
func (m *Manager) ReportRateLimited(c Credential) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k, idx := m.lookupLocked(c)
	if k == nil {
		return
	}

	now := m.now()
	m.resetWindowLocked(k, now)
	k.cooldownUntil = now.Add(m.cfg.Cooldown)
	k.count = m.cfg.RequestsPerWindow
	if n := len(m.keys); n > 0 && m.cursor == idx {
		m.cursor = (idx + 1) % n
	}

	m.logger.Warn("credential rate limited",
		"credential", k.cred.ID,
		"cooldown_until", k.cooldownUntil)
}

// ReportFailure records a non rate-limit failure for c and disables it
// once FailureCeiling consecutive failures are reached.
func (m *Manager) ReportFailure(c Credential, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k, _ := m.lookupLocked(c)
	if k == nil {
		return
	}

	k.failures++
	if k.active && k.failures >= m.cfg.FailureCeiling {
		k.active = false
		m.logger.Error("credential disabled after repeated failures",
			"credential", k.cred.ID,
			"failures", k.failures,
			"error", err)
		return
	}

	m.logger.Warn("credential request failed",
		"credential", k.cred.ID,
		"failures", k.failures,
		"error", err)
}

// ReportSuccess clears the consecutive failure count for c.
func (m *Manager) ReportSuccess(c Credential) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if k, _ := m.lookupLocked(c); k != nil {
		k.failures = 0
	}
}

// Close stops background goroutines. Queued requests fail with common.ErrClosed.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		close(m.stopCh)
		m.baseCancel()
	})
	m.wg.Wait()
	return nil
}

// nextAvailableIn returns how long until some active credential becomes
// usable. ok is false when no credential is active.
func (m *Manager) nextAvailableIn() (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var (
		best  time.Duration
		found bool
	)
	for _, k := range m.keys {
		if !k.active {
			continue
		}

		var wait time.Duration
		if now.Before(k.cooldownUntil) {
			wait = k.cooldownUntil.Sub(now)
		}
		if m.effectiveCountLocked(k, now) >= m.cfg.RequestsPerWindow {
			// Windows reset strictly after they elapse.
			if reset := k.windowStart.Add(m.cfg.Window).Sub(now) + time.Millisecond; reset > wait {
				wait = reset
			}
		}

		if !found || wait < best {
			best, found = wait, true
		}
	}

	return best, found
}

// sweepLoop periodically resets expired windows and clears finished cooldowns.
func (m *Manager) sweepLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *Manager) sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for _, k := range m.keys {
		m.resetWindowLocked(k, now)
		if !k.cooldownUntil.IsZero() && !now.Before(k.cooldownUntil) {
			k.cooldownUntil = time.Time{}
		}
	}
}

func (m *Manager) lookupLocked(c Credential) (*keyState, int) {
	idx, ok := m.index[c.Secret]
	if !ok {
		return nil, -1
	}
	return m.keys[idx], idx
}

func (m *Manager) resetWindowLocked(k *keyState, now time.Time) {
	if now.Sub(k.windowStart) > m.cfg.Window {
		k.count = 0
		k.windowStart = now
	}
}

func (m *Manager) effectiveCountLocked(k *keyState, now time.Time) int {
	if now.Sub(k.windowStart) > m.cfg.Window {
		return 0
	}
	return k.count
}

func (m *Manager) usableLocked(k *keyState, now time.Time) bool {
	return k.active &&
		!now.Before(k.cooldownUntil) &&
		m.effectiveCountLocked(k, now) < m.cfg.RequestsPerWindow
}
