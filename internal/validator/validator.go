package validator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/spice-ingest/internal/cache"
	"github.com/Veraticus/spice-ingest/internal/common"
	"github.com/Veraticus/spice-ingest/internal/model"
	"github.com/Veraticus/spice-ingest/internal/throttle"
)

// Validator runs the checks over parsed candidates.
type Validator struct {
	history HistoryStore
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string
	stats   *cache.Memory[CategoryStats]
	lookups *throttle.Batcher[historyQuery, CategoryStats]
	cfg     Config
}

// CategoryStats summarizes a user's recent spending in one category.
type CategoryStats struct {
	Mean    float64
	StdDev  float64
	Samples int
}

type historyQuery struct {
	since      time.Time
	userID     string
	categoryID string
}

// Option configures a Validator.
type Option func(*Validator)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) { v.now = now }
}

// WithIDGenerator overrides how transaction IDs are generated.
func WithIDGenerator(newID func() string) Option {
	return func(v *Validator) { v.newID = newID }
}

// New creates a Validator. history may be nil, which disables the
// spending-pattern check.
func New(cfg Config, history HistoryStore, logger *slog.Logger, opts ...Option) *Validator {
	cfg = cfg.withDefaults()
	v := &Validator{
		cfg:     cfg,
		history: history,
		logger:  common.LoggerOrDefault(logger),
		now:     time.Now,
		newID:   uuid.NewString,
		stats:   cache.New[CategoryStats](1000, cfg.StatsTTL),
	}
	for _, opt := range opts {
		opt(v)
	}

	v.lookups = throttle.NewBatcher(historyKey, cfg.BatchSize, cfg.BatchWait, v.loadStats)
	return v
}

// Close stops the statistics cache cleanup.
func (v *Validator) Close() {
	v.stats.Close()
}

// Validate checks every candidate and returns them in the same order.
func (v *Validator) Validate(ctx context.Context, userID string, candidates []model.Candidate) []model.ValidatedTransaction {
	results := make([]model.ValidatedTransaction, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.cfg.Concurrency)
	for i, c := range candidates {
		g.Go(func() error {
			results[i] = v.validateOne(gctx, userID, c)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (v *Validator) validateOne(ctx context.Context, userID string, c model.Candidate) model.ValidatedTransaction {
	reasons := []string{}
	for _, reason := range []string{
		v.checkLargeAmount(c),
		v.checkConfidence(c),
		v.checkSpendingPattern(ctx, userID, c),
		v.checkSuspiciousText(c),
		v.checkBusinessRules(c),
	} {
		if reason != "" {
			reasons = append(reasons, reason)
		}
	}

	return model.ValidatedTransaction{
		ID:             v.newID(),
		Candidate:      c,
		IsUnusual:      len(reasons) > 0,
		UnusualReasons: reasons,
	}
}

// categoryStats returns cached statistics or fetches them through the
// batcher, so concurrent candidates in one category share a lookup.
func (v *Validator) categoryStats(ctx context.Context, userID, categoryID string) (CategoryStats, error) {
	key := cache.Key(userID, categoryID)
	if s, ok := v.stats.Get(key); ok {
		return s, nil
	}

	s, err := v.lookups.Submit(ctx, historyQuery{
		userID:     userID,
		categoryID: categoryID,
		since:      v.now().AddDate(0, -v.cfg.LookbackMonths, 0),
	})
	if err != nil {
		return CategoryStats{}, err
	}

	v.stats.Set(key, s)
	return s, nil
}

func historyKey(q historyQuery) string {
	return cache.Key(q.userID, q.categoryID)
}

// loadStats runs one history query for a batch of identical lookups.
func (v *Validator) loadStats(ctx context.Context, _ string, queries []historyQuery) []throttle.Outcome[CategoryStats] {
	q := queries[0]
	for _, other := range queries[1:] {
		if other.since.Before(q.since) {
			q.since = other.since
		}
	}

	var out throttle.Outcome[CategoryStats]
	amounts, err := v.history.RecentAmounts(ctx, q.userID, q.categoryID, q.since)
	if err != nil {
		out.Err = fmt.Errorf("load history for %s: %w", q.categoryID, err)
	} else {
		out.Value = computeCategoryStats(amounts)
	}

	outcomes := make([]throttle.Outcome[CategoryStats], len(queries))
	for i := range outcomes {
		outcomes[i] = out
	}
	return outcomes
}
