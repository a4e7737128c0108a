package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/spice-ingest/internal/model"
)

// dialect covers the few places where SQLite and Postgres differ.
type dialect interface {
	versioner
	bind(query string) string
	normalizeTime(t time.Time) time.Time
}

// sqlStore implements Store over database/sql for any supported dialect.
type sqlStore struct {
	db      *sql.DB
	dialect dialect
	logger  *slog.Logger
	now     func() time.Time
}

func newSQLStore(db *sql.DB, d dialect, logger *slog.Logger) *sqlStore {
	return &sqlStore{
		db:      db,
		dialect: d,
		logger:  logger,
		now:     time.Now,
	}
}

// Migrate brings the schema up to ExpectedSchemaVersion.
func (s *sqlStore) Migrate(ctx context.Context) error {
	return migrate(ctx, s.db, s.dialect, s.logger)
}

// Close closes the database connection.
func (s *sqlStore) Close() error {
	return s.db.Close()
}

// SaveTransactions records validated transactions, skipping ones whose hash
// is already stored.
func (s *sqlStore) SaveTransactions(ctx context.Context, userID string, txns []model.ValidatedTransaction) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return 0, err
	}

	rows := toHistorical(userID, txns, s.now())
	if err := validateTransactions(rows); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, s.dialect.bind(`
		INSERT INTO transactions (
			id, user_id, hash, date, type, description, category_id,
			merchant, amount, created_at, is_unusual, confidence
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() {
		if closeErr := stmt.Close(); closeErr != nil {
			s.logger.Warn("failed to close statement", "error", closeErr)
		}
	}()

	inserted := 0
	for i, row := range rows {
		result, execErr := stmt.ExecContext(ctx,
			row.ID,
			row.UserID,
			row.Hash,
			s.dialect.normalizeTime(row.Date),
			string(row.Type),
			row.Description,
			row.CategoryID,
			row.Merchant,
			row.Amount,
			s.dialect.normalizeTime(row.CreatedAt),
			txns[i].IsUnusual,
			txns[i].Confidence,
		)
		if execErr != nil {
			err = fmt.Errorf("failed to insert transaction %s: %w", row.ID, execErr)
			return 0, err
		}
		if n, affErr := result.RowsAffected(); affErr == nil {
			inserted += int(n)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transactions: %w", err)
	}

	s.logger.Debug("Saved transactions",
		"user_id", userID,
		"submitted", len(rows),
		"inserted", inserted)
	return inserted, nil
}

// RecentAmounts returns the user's expense amounts in categoryID dated on or
// after since.
func (s *sqlStore) RecentAmounts(ctx context.Context, userID, categoryID string, since time.Time) ([]float64, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	if err := validateString(categoryID, "categoryID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.bind(`
		SELECT amount FROM transactions
		WHERE user_id = ? AND category_id = ? AND type = ? AND date >= ?
		ORDER BY date
	`), userID, categoryID, string(model.TypeExpense), s.dialect.normalizeTime(since))
	if err != nil {
		return nil, fmt.Errorf("failed to query amounts: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn("failed to close rows", "error", closeErr)
		}
	}()

	var amounts []float64
	for rows.Next() {
		var amount float64
		if err := rows.Scan(&amount); err != nil {
			return nil, fmt.Errorf("failed to scan amount: %w", err)
		}
		amounts = append(amounts, amount)
	}
	return amounts, rows.Err()
}

// RecentTransactions returns the user's latest transactions, newest first.
func (s *sqlStore) RecentTransactions(ctx context.Context, userID string, limit int) ([]model.HistoricalTransaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.bind(`
		SELECT id, user_id, hash, date, type, description,
		       COALESCE(category_id, ''), COALESCE(merchant, ''), amount, created_at
		FROM transactions
		WHERE user_id = ?
		ORDER BY date DESC, created_at DESC
		LIMIT ?
	`), userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn("failed to close rows", "error", closeErr)
		}
	}()

	var result []model.HistoricalTransaction
	for rows.Next() {
		var (
			row     model.HistoricalTransaction
			txnType string
		)
		if err := rows.Scan(
			&row.ID,
			&row.UserID,
			&row.Hash,
			&row.Date,
			&txnType,
			&row.Description,
			&row.CategoryID,
			&row.Merchant,
			&row.Amount,
			&row.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		row.Type = model.TransactionType(txnType)
		result = append(result, row)
	}
	return result, rows.Err()
}
