// Package model defines the transaction types shared across the ingestion pipeline.
package model

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"time"
)

// TransactionType is the direction of money for a transaction.
type TransactionType string

// Transaction types understood by the pipeline.
const (
	TypeExpense  TransactionType = "expense"
	TypeIncome   TransactionType = "income"
	TypeTransfer TransactionType = "transfer"
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	switch t {
	case TypeExpense, TypeIncome, TypeTransfer:
		return true
	default:
		return false
	}
}

// Candidate is a transaction extracted from user text, before validation.
// Amounts are in VND.
type Candidate struct {
	Date        *time.Time      `json:"date,omitempty"`
	Type        TransactionType `json:"type"`
	Description string          `json:"description"`
	CategoryID  string          `json:"category_id,omitempty"`
	Merchant    string          `json:"merchant,omitempty"`
	Notes       string          `json:"notes,omitempty"`
	Tags        []string        `json:"tags,omitempty"`
	Amount      float64         `json:"amount"`
	Confidence  float64         `json:"confidence"`
}

// Normalize trims text fields, lower-cases the type and clamps confidence into [0,1].
func (c *Candidate) Normalize() {
	c.Type = TransactionType(strings.ToLower(strings.TrimSpace(string(c.Type))))
	c.Description = strings.TrimSpace(c.Description)
	c.CategoryID = strings.TrimSpace(c.CategoryID)
	c.Merchant = strings.TrimSpace(c.Merchant)

	switch {
	case c.Confidence < 0:
		c.Confidence = 0
	case c.Confidence > 1:
		c.Confidence = 1
	}
}

// ValidatedTransaction is a candidate that has been through the validator.
type ValidatedTransaction struct {
	ID             string   `json:"id"`
	UnusualReasons []string `json:"unusual_reasons"`
	Candidate
	IsUnusual bool `json:"is_unusual"`
}

// GenerateHash identifies the transaction in a history store. The ID is
// part of the hash: two identical coffees on the same day are two rows, while
// saving the same transaction twice is a no-op.
func (t *ValidatedTransaction) GenerateHash(userID string, at time.Time) string {
	day := at
	if t.Date != nil {
		day = *t.Date
	}
	data := fmt.Sprintf("%s:%s:%s:%s:%.0f:%s",
		userID,
		t.ID,
		day.Format("2006-01-02"),
		t.Type,
		t.Amount,
		strings.ToLower(t.Description))
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// HistoricalTransaction is a previously recorded transaction as kept by a history store.
type HistoricalTransaction struct {
	Date        time.Time
	CreatedAt   time.Time
	ID          string
	UserID      string
	Hash        string
	Type        TransactionType
	Description string
	CategoryID  string
	Merchant    string
	Amount      float64
}
