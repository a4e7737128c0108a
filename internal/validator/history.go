package validator

import (
	"context"
	"time"
)

// HistoryStore answers the single query the spending-pattern check needs.
//
//go:generate mockgen -destination=mocks/mock_history.go -package=mocks . HistoryStore
type HistoryStore interface {
	// RecentAmounts returns the amounts of the user's expenses in categoryID
	// dated on or after since.
	RecentAmounts(ctx context.Context, userID, categoryID string, since time.Time) ([]float64, error)
}
