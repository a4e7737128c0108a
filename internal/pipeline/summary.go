package pipeline

import (
	"fmt"
	"strings"

	"github.com/Veraticus/spice-ingest/internal/model"
)

// Summary describes txns in one short paragraph for end users.
func Summary(txns []model.ValidatedTransaction, meta model.ParseMetadata) string {
	if len(txns) == 0 {
		if meta.ParsingQuality == model.QualityFailed {
			return "No transactions could be extracted from the text."
		}
		return "No transactions found."
	}

	var expense, income, transfer float64
	unusual := 0
	for _, t := range txns {
		switch t.Type {
		case model.TypeExpense:
			expense += t.Amount
		case model.TypeIncome:
			income += t.Amount
		case model.TypeTransfer:
			transfer += t.Amount
		}
		if t.IsUnusual {
			unusual++
		}
	}

	noun := "transactions"
	if len(txns) == 1 {
		noun = "transaction"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d %s", len(txns), noun)

	var totals []string
	if expense > 0 {
		totals = append(totals, fmt.Sprintf("spent %sđ", model.FormatVND(expense)))
	}
	if income > 0 {
		totals = append(totals, fmt.Sprintf("received %sđ", model.FormatVND(income)))
	}
	if transfer > 0 {
		totals = append(totals, fmt.Sprintf("transferred %sđ", model.FormatVND(transfer)))
	}
	if len(totals) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(totals, ", "))
	}
	b.WriteString(".")

	if unusual > 0 {
		fmt.Fprintf(&b, " %d need review.", unusual)
	}
	if meta.ParsingQuality == model.QualityNeedsReview {
		b.WriteString(" Extraction confidence is low; please double-check.")
	}
	return b.String()
}
