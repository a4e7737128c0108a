package validator

import (
	"math"
	"strings"

	"github.com/Veraticus/spice-ingest/internal/model"
)

// Stats aggregates a validated batch for reporting.
type Stats struct {
	ReasonBreakdown map[string]int `json:"reason_breakdown"`
	Total           int            `json:"total"`
	Unusual         int            `json:"unusual"`
	PercentUnusual  float64        `json:"percent_unusual"`
}

// Reason categories used as ReasonBreakdown keys.
const (
	CategoryLargeAmount     = "large_amount"
	CategoryLowConfidence   = "low_confidence"
	CategorySpendingPattern = "spending_pattern"
	CategorySuspiciousText  = "suspicious_text"
	CategoryBusinessRule    = "business_rule"
	CategoryOtherReason     = "other"
)

// ComputeStats counts unusual transactions and groups their reasons.
func ComputeStats(txns []model.ValidatedTransaction) Stats {
	s := Stats{
		Total:           len(txns),
		ReasonBreakdown: make(map[string]int),
	}

	for _, t := range txns {
		if t.IsUnusual {
			s.Unusual++
		}
		for _, reason := range t.UnusualReasons {
			s.ReasonBreakdown[ReasonCategory(reason)]++
		}
	}

	if s.Total > 0 {
		s.PercentUnusual = float64(s.Unusual) / float64(s.Total) * 100
	}
	return s
}

// ReasonCategory maps a reason string to its breakdown key.
func ReasonCategory(reason string) string {
	switch {
	case strings.HasPrefix(reason, reasonLargeAmount):
		return CategoryLargeAmount
	case strings.HasPrefix(reason, reasonLowConfidence):
		return CategoryLowConfidence
	case strings.HasPrefix(reason, reasonSpending):
		return CategorySpendingPattern
	case strings.HasPrefix(reason, reasonSuspicious):
		return CategorySuspiciousText
	case strings.HasPrefix(reason, reasonInvalid):
		return CategoryBusinessRule
	default:
		return CategoryOtherReason
	}
}

// computeCategoryStats returns the mean and population standard deviation.
func computeCategoryStats(amounts []float64) CategoryStats {
	n := len(amounts)
	if n == 0 {
		return CategoryStats{}
	}

	var sum float64
	for _, a := range amounts {
		sum += a
	}
	mean := sum / float64(n)

	var variance float64
	for _, a := range amounts {
		d := a - mean
		variance += d * d
	}
	variance /= float64(n)

	return CategoryStats{
		Mean:    mean,
		StdDev:  math.Sqrt(variance),
		Samples: n,
	}
}
