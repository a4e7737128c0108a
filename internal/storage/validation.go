package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/spice-ingest/internal/model"
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrEmptySlice         = errors.New("slice cannot be empty")
	ErrInvalidTransaction = errors.New("invalid transaction")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateTransactions checks the rows about to be written.
func validateTransactions(rows []model.HistoricalTransaction) error {
	if len(rows) == 0 {
		return fmt.Errorf("%w: transactions", ErrEmptySlice)
	}

	for i, row := range rows {
		if err := validateTransaction(row); err != nil {
			return fmt.Errorf("transaction at index %d: %w", i, err)
		}
	}
	return nil
}

func validateTransaction(row model.HistoricalTransaction) error {
	switch {
	case row.ID == "":
		return fmt.Errorf("%w: missing ID", ErrInvalidTransaction)
	case row.UserID == "":
		return fmt.Errorf("%w: missing user ID", ErrInvalidTransaction)
	case row.Date.IsZero():
		return fmt.Errorf("%w: missing date", ErrInvalidTransaction)
	case !row.Type.Valid():
		return fmt.Errorf("%w: unknown type %q", ErrInvalidTransaction, row.Type)
	case row.Amount < 0:
		return fmt.Errorf("%w: negative amount", ErrInvalidTransaction)
	}
	return nil
}
