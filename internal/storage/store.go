package storage

import (
	"context"
	"time"

	"github.com/Veraticus/spice-ingest/internal/model"
)

// Store is a transaction history backend.
type Store interface {
	// RecentAmounts returns the user's expense amounts in categoryID dated on
	// or after since.
	RecentAmounts(ctx context.Context, userID, categoryID string, since time.Time) ([]float64, error)
	// SaveTransactions records validated transactions for userID and returns
	// how many were new. Transactions already saved (same ID) are skipped;
	// identical entries with distinct IDs are separate rows.
	SaveTransactions(ctx context.Context, userID string, txns []model.ValidatedTransaction) (int, error)
	// RecentTransactions returns the user's latest transactions, newest first.
	RecentTransactions(ctx context.Context, userID string, limit int) ([]model.HistoricalTransaction, error)
	Migrate(ctx context.Context) error
	Close() error
}

// toHistorical converts validated transactions into rows. at is used when a
// transaction carries no date of its own.
func toHistorical(userID string, txns []model.ValidatedTransaction, at time.Time) []model.HistoricalTransaction {
	rows := make([]model.HistoricalTransaction, 0, len(txns))
	for _, t := range txns {
		date := at
		if t.Date != nil {
			date = *t.Date
		}
		rows = append(rows, model.HistoricalTransaction{
			ID:          t.ID,
			UserID:      userID,
			Hash:        t.GenerateHash(userID, at),
			Date:        date,
			CreatedAt:   at,
			Type:        t.Type,
			Description: t.Description,
			CategoryID:  t.CategoryID,
			Merchant:    t.Merchant,
			Amount:      t.Amount,
		})
	}
	return rows
}
