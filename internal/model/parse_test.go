package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	tests := []struct {
		name        string
		candidates  []Candidate
		wantQuality ParsingQuality
		wantHigh    int
		wantMedium  int
		wantLow     int
	}{
		{
			name:        "empty",
			candidates:  nil,
			wantQuality: QualityNeedsReview,
		},
		{
			name:        "all high",
			candidates:  []Candidate{{Confidence: 0.9}, {Confidence: 0.95}},
			wantQuality: QualityExcellent,
			wantHigh:    2,
		},
		{
			name:        "mixed",
			candidates:  []Candidate{{Confidence: 0.9}, {Confidence: 0.65}, {Confidence: 0.3}},
			wantQuality: QualityGood,
			wantHigh:    1,
			wantMedium:  1,
			wantLow:     1,
		},
		{
			name:        "low",
			candidates:  []Candidate{{Confidence: 0.2}, {Confidence: 0.4}},
			wantQuality: QualityNeedsReview,
			wantLow:     2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := Summarize(tt.candidates)
			assert.Equal(t, tt.wantQuality, meta.ParsingQuality)
			assert.Equal(t, tt.wantHigh, meta.HighConfidence)
			assert.Equal(t, tt.wantMedium, meta.MediumConfidence)
			assert.Equal(t, tt.wantLow, meta.LowConfidence)
			assert.Equal(t, meta.TotalTransactions, meta.HighConfidence+meta.MediumConfidence+meta.LowConfidence)
		})
	}
}

func TestCandidateNormalize(t *testing.T) {
	c := Candidate{Type: " Expense ", Description: "  taxi ", Confidence: 1.4}
	c.Normalize()

	assert.Equal(t, TypeExpense, c.Type)
	assert.Equal(t, "taxi", c.Description)
	assert.InDelta(t, 1.0, c.Confidence, 1e-9)
	assert.True(t, c.Type.Valid())
	assert.False(t, TransactionType("refund").Valid())
}
