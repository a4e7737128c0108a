package validator

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Veraticus/spice-ingest/internal/common"
	"github.com/Veraticus/spice-ingest/internal/model"
)

// Reason prefixes. ComputeStats groups reasons by them.
const (
	reasonLargeAmount   = "Large amount"
	reasonLowConfidence = "Low confidence"
	reasonSpending      = "Unusually high for category"
	reasonSuspicious    = "Suspicious description"
	reasonInvalid       = "Invalid transaction"
)

var (
	testMarkers    = []string{"test", "testing", "dummy", "lorem ipsum", "sample", "placeholder"}
	keyboardMashes = []string{"asdf", "qwer", "zxcv", "hjkl", "uiop", "sdfg", "fdsa"}
)

// checkLargeAmount flags amounts above the configured threshold.
func (v *Validator) checkLargeAmount(c model.Candidate) string {
	if c.Amount <= v.cfg.LargeAmount {
		return ""
	}
	return fmt.Sprintf("%s: %s VND exceeds the %s VND threshold",
		reasonLargeAmount, model.FormatVND(c.Amount), model.FormatVND(v.cfg.LargeAmount))
}

// checkConfidence flags candidates the parser was unsure about.
func (v *Validator) checkConfidence(c model.Candidate) string {
	if c.Confidence >= v.cfg.LowConfidence {
		return ""
	}
	return fmt.Sprintf("%s: %.2f is below %.2f", reasonLowConfidence, c.Confidence, v.cfg.LowConfidence)
}

// checkSpendingPattern compares an expense with the user's recent history
// in its category. The amount must exceed both mean + k·stddev and mean × m.
// Lookup errors are logged and the check is skipped.
func (v *Validator) checkSpendingPattern(ctx context.Context, userID string, c model.Candidate) string {
	if c.Type != model.TypeExpense || c.CategoryID == "" || v.history == nil || userID == "" {
		return ""
	}

	stats, err := v.categoryStats(ctx, userID, c.CategoryID)
	if err != nil {
		v.logger.Warn("spending pattern check skipped",
			"user_id", userID,
			"category", c.CategoryID,
			"error", err)
		return ""
	}
	if stats.Samples < v.cfg.MinSamples {
		return ""
	}

	deviationLimit := stats.Mean + v.cfg.StdDevMultiplier*stats.StdDev
	averageLimit := stats.Mean * v.cfg.AverageMultiplier
	if c.Amount <= deviationLimit || c.Amount <= averageLimit {
		return ""
	}

	return fmt.Sprintf("%s %q: %s VND vs an average of %s VND over %d transactions",
		reasonSpending, c.CategoryID, model.FormatVND(c.Amount), model.FormatVND(stats.Mean), stats.Samples)
}

// checkSuspiciousText looks for test data and garbage in the free text.
func (v *Validator) checkSuspiciousText(c model.Candidate) string {
	var found []string

	for _, text := range []string{c.Description, c.Notes} {
		if text == "" {
			continue
		}
		lower := strings.ToLower(text)

		if common.ContainsAnyWord(lower, testMarkers) {
			found = append(found, "looks like test data")
		}
		for _, mash := range keyboardMashes {
			if strings.Contains(lower, mash) {
				found = append(found, "looks like keyboard mashing")
				break
			}
		}
		if longestRun(lower) >= 4 {
			found = append(found, "repeated characters")
		}
	}

	desc := strings.TrimSpace(c.Description)
	if n := utf8.RuneCountInString(desc); n > 0 && n < 2 {
		found = append(found, "description is too short")
	}

	if len(found) == 0 {
		return ""
	}
	return fmt.Sprintf("%s: %s", reasonSuspicious, strings.Join(dedupe(found), ", "))
}

// checkBusinessRules enforces invariants every transaction must satisfy.
func (v *Validator) checkBusinessRules(c model.Candidate) string {
	var violations []string

	if c.Amount <= 0 {
		violations = append(violations, "amount must be positive")
	} else if c.Amount >= v.cfg.SanityCeiling {
		violations = append(violations, fmt.Sprintf("amount must be below %s VND", model.FormatVND(v.cfg.SanityCeiling)))
	}
	if strings.TrimSpace(c.Description) == "" {
		violations = append(violations, "description is required")
	}
	if !c.Type.Valid() {
		violations = append(violations, fmt.Sprintf("unknown type %q", c.Type))
	}
	if (c.Type == model.TypeExpense || c.Type == model.TypeIncome) && c.CategoryID == "" {
		violations = append(violations, "category is required")
	}
	if c.Date != nil {
		now := v.now()
		if c.Date.Before(now.AddDate(-1, 0, 0)) {
			violations = append(violations, "date is more than a year ago")
		} else if c.Date.After(now.AddDate(0, 1, 0)) {
			violations = append(violations, "date is more than a month ahead")
		}
	}

	if len(violations) == 0 {
		return ""
	}
	return fmt.Sprintf("%s: %s", reasonInvalid, strings.Join(violations, "; "))
}

// longestRun returns the longest run of one repeated letter.
func longestRun(s string) int {
	var (
		best, run int
		prev      rune
	)
	for _, r := range s {
		if unicode.IsLetter(r) && r == prev {
			run++
		} else {
			run = 1
		}
		if run > best && unicode.IsLetter(r) {
			best = run
		}
		prev = r
	}
	return best
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := items[:0]
	for _, item := range items {
		if seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}
