package pipeline

import (
	"context"

	"github.com/Veraticus/spice-ingest/internal/keypool"
	"github.com/Veraticus/spice-ingest/internal/llm"
	"github.com/Veraticus/spice-ingest/internal/model"
)

// CompleterSource picks the completer for a model name; "" is the default.
type CompleterSource interface {
	For(model string) (llm.Completer, error)
}

// CredentialPool runs provider calls with a pooled credential.
type CredentialPool interface {
	Enqueue(ctx context.Context, work keypool.WorkFunc, maxRetries int) (string, error)
}

// Checker validates parsed candidates.
type Checker interface {
	Validate(ctx context.Context, userID string, candidates []model.Candidate) []model.ValidatedTransaction
}

// Recorder persists validated transactions.
type Recorder interface {
	SaveTransactions(ctx context.Context, userID string, txns []model.ValidatedTransaction) (int, error)
}
