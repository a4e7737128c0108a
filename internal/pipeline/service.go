package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/spice-ingest/internal/cache"
	"github.com/Veraticus/spice-ingest/internal/common"
	"github.com/Veraticus/spice-ingest/internal/keypool"
	"github.com/Veraticus/spice-ingest/internal/llm"
	"github.com/Veraticus/spice-ingest/internal/model"
	"github.com/Veraticus/spice-ingest/internal/parser"
	"github.com/Veraticus/spice-ingest/internal/throttle"
	"github.com/Veraticus/spice-ingest/internal/validator"
)

// Config holds pipeline settings.
type Config struct {
	// MaxRetries bounds how often a provider call is retried on another credential.
	MaxRetries int
	// MaxInputRunes rejects longer texts; zero means no limit.
	MaxInputRunes int
}

// Deps are the collaborators a Service needs. Recorder is optional.
type Deps struct {
	Models    CompleterSource
	Pool      CredentialPool
	Throttler *throttle.Throttler
	Parser    *parser.Parser
	Checker   Checker
	Recorder  Recorder
}

// Service processes transaction text end to end.
type Service struct {
	models    CompleterSource
	pool      CredentialPool
	throttler *throttle.Throttler
	parser    *parser.Parser
	checker   Checker
	recorder  Recorder
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
	cfg       Config
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRequestIDs overrides how request IDs are generated.
func WithRequestIDs(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// New creates a Service.
func New(cfg Config, deps Deps, logger *slog.Logger, opts ...Option) (*Service, error) {
	switch {
	case deps.Models == nil:
		return nil, fmt.Errorf("pipeline: completer source: %w", common.ErrMissingConfig)
	case deps.Pool == nil:
		return nil, fmt.Errorf("pipeline: credential pool: %w", common.ErrMissingConfig)
	case deps.Throttler == nil:
		return nil, fmt.Errorf("pipeline: throttler: %w", common.ErrMissingConfig)
	case deps.Checker == nil:
		return nil, fmt.Errorf("pipeline: validator: %w", common.ErrMissingConfig)
	}

	logger = common.LoggerOrDefault(logger)
	if deps.Parser == nil {
		deps.Parser = parser.New(logger)
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	s := &Service{
		models:    deps.Models,
		pool:      deps.Pool,
		throttler: deps.Throttler,
		parser:    deps.Parser,
		checker:   deps.Checker,
		recorder:  deps.Recorder,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
		cfg:       cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Process runs req through the pipeline. Provider failures degrade to the
// rule-based parser. Only an exhausted or closed pool, cancellation and
// invalid input are returned as errors.
func (s *Service) Process(ctx context.Context, req Request) (Response, error) {
	return s.process(ctx, req, func(string, string) error { return nil })
}

// Stream runs req like Process and reports its progress through emit. The
// final event is either complete or error. An error from emit stops
// processing and is returned.
func (s *Service) Stream(ctx context.Context, req Request, emit func(Event) error) error {
	progress := func(stage, msg string) error {
		return emit(Event{Type: EventProgress, Stage: stage, Message: msg})
	}

	resp, err := s.process(ctx, req, progress)
	if err != nil {
		if emitErr := emit(Event{Type: EventError, Error: err.Error()}); emitErr != nil {
			s.logger.Debug("failed to emit error event", "error", emitErr)
		}
		return err
	}

	for i := range resp.Transactions {
		if err := emit(Event{Type: EventTransaction, Transaction: &resp.Transactions[i]}); err != nil {
			return err
		}
	}
	return emit(Event{Type: EventComplete, Response: &resp})
}

func (s *Service) process(ctx context.Context, req Request, progress func(stage, msg string) error) (Response, error) {
	start := s.now()
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return Response{}, common.ErrEmptyInput
	}
	if s.cfg.MaxInputRunes > 0 && len([]rune(text)) > s.cfg.MaxInputRunes {
		return Response{}, common.NewUserError(
			fmt.Sprintf("text is longer than %d characters", s.cfg.MaxInputRunes), common.ErrInvalidConfig)
	}

	completer, err := s.models.For(req.Options.Model)
	if err != nil {
		return Response{}, common.NewUserError(fmt.Sprintf("unknown model %q", req.Options.Model), err)
	}

	meta := Metadata{
		RequestID: s.newID(),
		Provider:  completer.Provider(),
		Model:     completer.Model(),
	}
	logger := s.logger.With("request_id", meta.RequestID)

	if err := progress(StageQueued, "waiting for a credential"); err != nil {
		return Response{}, err
	}

	raw, hit, callErr := s.complete(ctx, completer, text, start)
	meta.CacheHit = hit
	if callErr != nil {
		if errors.Is(callErr, common.ErrPoolExhausted) || errors.Is(callErr, common.ErrClosed) || ctx.Err() != nil {
			return Response{}, callErr
		}
		logger.Warn("provider call failed, falling back to rule-based parsing",
			"provider", meta.Provider,
			"error", callErr)
		raw = ""
	}

	if err := progress(StageParsing, "parsing model response"); err != nil {
		return Response{}, err
	}
	parsed := s.parser.Parse(raw, text)
	if callErr != nil {
		parsed.Metadata.Issues = append(parsed.Metadata.Issues, "model call failed: "+callErr.Error())
	}
	meta.Parse = parsed.Metadata

	var txns []model.ValidatedTransaction
	if req.Options.SkipValidation {
		txns = s.unvalidated(parsed.Transactions)
	} else {
		if err := progress(StageValidating, fmt.Sprintf("validating %d transactions", len(parsed.Transactions))); err != nil {
			return Response{}, err
		}
		txns = s.checker.Validate(ctx, req.UserID, parsed.Transactions)
		meta.Validated = true
	}
	meta.Stats = validator.ComputeStats(txns)

	if req.Options.Record {
		meta.Recorded = s.record(ctx, logger, req.UserID, txns)
	}

	meta.ProcessingTime = s.now().Sub(start)
	meta.ProcessingMS = meta.ProcessingTime.Milliseconds()

	logger.Info("Processed transaction text",
		"transactions", len(txns),
		"unusual", meta.Stats.Unusual,
		"strategy", meta.Parse.Strategy,
		"quality", meta.Parse.ParsingQuality,
		"cache_hit", meta.CacheHit,
		"duration", meta.ProcessingTime)

	return Response{
		Transactions:    txns,
		AnalysisSummary: Summary(txns, meta.Parse),
		Metadata:        meta,
	}, nil
}

// complete fetches the completion for text, through the cache and throttler,
// on a pooled credential.
func (s *Service) complete(ctx context.Context, completer llm.Completer, text string, now time.Time) (string, bool, error) {
	prompt := llm.BuildExtractionPrompt(text, now)
	// Prompts mention today's date, so completions are only reused within a day.
	key := cache.Key(completer.Provider(), completer.Model(), now.Format("2006-01-02"), text)

	return s.throttler.RunCached(ctx, key, func(ctx context.Context) (string, error) {
		return s.pool.Enqueue(ctx, func(ctx context.Context, cred keypool.Credential) (string, error) {
			return completer.Complete(ctx, cred.Secret, prompt)
		}, s.cfg.MaxRetries)
	})
}

func (s *Service) unvalidated(candidates []model.Candidate) []model.ValidatedTransaction {
	txns := make([]model.ValidatedTransaction, len(candidates))
	for i, c := range candidates {
		txns[i] = model.ValidatedTransaction{
			ID:             s.newID(),
			Candidate:      c,
			UnusualReasons: []string{},
		}
	}
	return txns
}

// record saves the transactions that are well formed enough to keep as
// history and returns how many were new.
func (s *Service) record(ctx context.Context, logger *slog.Logger, userID string, txns []model.ValidatedTransaction) int {
	if s.recorder == nil || userID == "" {
		return 0
	}

	keep := make([]model.ValidatedTransaction, 0, len(txns))
	for _, t := range txns {
		if t.Type.Valid() && t.Amount > 0 && t.Description != "" {
			keep = append(keep, t)
		}
	}
	if len(keep) == 0 {
		return 0
	}

	n, err := s.recorder.SaveTransactions(ctx, userID, keep)
	if err != nil {
		logger.Error("failed to record transactions", "error", err)
		return 0
	}
	return n
}
