package pipeline

import (
	"time"

	"github.com/Veraticus/spice-ingest/internal/model"
	"github.com/Veraticus/spice-ingest/internal/validator"
)

// Options tune a single request.
type Options struct {
	// Model overrides the configured model.
	Model string `json:"model,omitempty"`
	// SkipValidation returns candidates without running the checks.
	SkipValidation bool `json:"skip_validation,omitempty"`
	// Record persists the validated transactions when a Recorder is configured.
	Record bool `json:"record,omitempty"`
}

// Request is one piece of user text to process.
type Request struct {
	Text    string  `json:"text"`
	UserID  string  `json:"user_id,omitempty"`
	Options Options `json:"options"`
}

// Metadata describes how a response was produced.
type Metadata struct {
	Parse          model.ParseMetadata `json:"parse"`
	Stats          validator.Stats     `json:"stats"`
	RequestID      string              `json:"request_id"`
	Provider       string              `json:"provider"`
	Model          string              `json:"model"`
	ProcessingTime time.Duration       `json:"-"`
	ProcessingMS   int64               `json:"processing_ms"`
	Recorded       int                 `json:"recorded,omitempty"`
	CacheHit       bool                `json:"cache_hit"`
	Validated      bool                `json:"validated"`
}

// Response is the result of processing a Request.
type Response struct {
	Transactions    []model.ValidatedTransaction `json:"transactions"`
	AnalysisSummary string                       `json:"analysis_summary"`
	Metadata        Metadata                     `json:"metadata"`
}

// Event types emitted by Stream.
const (
	EventProgress    = "progress"
	EventTransaction = "transaction"
	EventComplete    = "complete"
	EventError       = "error"
)

// Progress stages.
const (
	StageQueued     = "queued"
	StageParsing    = "parsing"
	StageValidating = "validating"
)

// Event is one streamed update.
type Event struct {
	Transaction *model.ValidatedTransaction `json:"transaction,omitempty"`
	Response    *Response                   `json:"response,omitempty"`
	Type        string                      `json:"type"`
	Stage       string                      `json:"stage,omitempty"`
	Message     string                      `json:"message,omitempty"`
	Error       string                      `json:"error,omitempty"`
}
