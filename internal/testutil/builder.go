package testutil

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Veraticus/spice-ingest/internal/model"
)

var txnSeq atomic.Int64

// TxnBuilder assembles a model.ValidatedTransaction for tests. It starts as a
// confident expense with a unique ID.
type TxnBuilder struct {
	txn model.ValidatedTransaction
}

// NewTxn starts a builder for a transaction with the given description.
func NewTxn(description string) *TxnBuilder {
	return &TxnBuilder{txn: model.ValidatedTransaction{
		ID: fmt.Sprintf("txn-%d", txnSeq.Add(1)),
		Candidate: model.Candidate{
			Type:        model.TypeExpense,
			Description: description,
			Confidence:  0.9,
		},
	}}
}

// Expense makes the transaction an expense of amount VND.
func (b *TxnBuilder) Expense(amount float64) *TxnBuilder {
	b.txn.Type = model.TypeExpense
	b.txn.Amount = amount
	return b
}

// Income makes the transaction an income of amount VND.
func (b *TxnBuilder) Income(amount float64) *TxnBuilder {
	b.txn.Type = model.TypeIncome
	b.txn.Amount = amount
	return b
}

// Transfer makes the transaction a transfer of amount VND.
func (b *TxnBuilder) Transfer(amount float64) *TxnBuilder {
	b.txn.Type = model.TypeTransfer
	b.txn.Amount = amount
	return b
}

// Category sets the category ID.
func (b *TxnBuilder) Category(id string) *TxnBuilder {
	b.txn.CategoryID = id
	return b
}

// Merchant sets the merchant.
func (b *TxnBuilder) Merchant(name string) *TxnBuilder {
	b.txn.Merchant = name
	return b
}

// On dates the transaction.
func (b *TxnBuilder) On(day time.Time) *TxnBuilder {
	b.txn.Date = &day
	return b
}

// Confidence sets the extraction confidence.
func (b *TxnBuilder) Confidence(c float64) *TxnBuilder {
	b.txn.Confidence = c
	return b
}

// Unusual flags the transaction with reasons.
func (b *TxnBuilder) Unusual(reasons ...string) *TxnBuilder {
	b.txn.IsUnusual = true
	b.txn.UnusualReasons = reasons
	return b
}

// Build returns the transaction.
func (b *TxnBuilder) Build() model.ValidatedTransaction {
	return b.txn
}

// DailyExpenses returns n expenses of amount in category, one per day
// going back from end. Descriptions differ so hashes never collide.
func DailyExpenses(category string, amount float64, end time.Time, n int) []model.ValidatedTransaction {
	txns := make([]model.ValidatedTransaction, 0, n)
	for i := range n {
		txns = append(txns, NewTxn(fmt.Sprintf("%s #%d", category, i+1)).
			Expense(amount).
			Category(category).
			On(end.AddDate(0, 0, -i)).
			Build())
	}
	return txns
}
