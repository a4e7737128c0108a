package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Veraticus/spice-ingest/internal/model"
)

func TestSummary(t *testing.T) {
	vt := func(typ model.TransactionType, amount float64, unusual bool) model.ValidatedTransaction {
		return model.ValidatedTransaction{
			Candidate: model.Candidate{Type: typ, Amount: amount},
			IsUnusual: unusual,
		}
	}

	tests := []struct {
		name string
		meta model.ParseMetadata
		want string
		txns []model.ValidatedTransaction
	}{
		{
			name: "nothing found",
			meta: model.ParseMetadata{ParsingQuality: model.QualityNeedsReview},
			want: "No transactions found.",
		},
		{
			name: "failed parse",
			meta: model.ParseMetadata{ParsingQuality: model.QualityFailed},
			want: "No transactions could be extracted from the text.",
		},
		{
			name: "mixed types",
			meta: model.ParseMetadata{ParsingQuality: model.QualityGood},
			txns: []model.ValidatedTransaction{
				vt(model.TypeExpense, 30000, false),
				vt(model.TypeIncome, 15000000, false),
				vt(model.TypeTransfer, 2000000, true),
			},
			want: "Found 3 transactions: spent 30.000đ, received 15.000.000đ, transferred 2.000.000đ. 1 need review.",
		},
		{
			name: "low confidence",
			meta: model.ParseMetadata{ParsingQuality: model.QualityNeedsReview},
			txns: []model.ValidatedTransaction{vt(model.TypeExpense, 1500, false)},
			want: "Found 1 transaction: spent 1.500đ. Extraction confidence is low; please double-check.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Summary(tt.txns, tt.meta))
		})
	}
}
