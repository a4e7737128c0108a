package parser

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/Veraticus/spice-ingest/internal/common"
	"github.com/Veraticus/spice-ingest/internal/model"
)

// RuleBasedConfidence is assigned to every rule-based candidate. It is lower
// than a typical model score.
const RuleBasedConfidence = 0.6

var (
	transferKeywords = []string{
		"chuyển khoản", "chuyển tiền", "ck", "rút tiền", "nạp tiền", "gửi tiết kiệm", "trả nợ", "cho vay",
	}
	incomeKeywords = []string{
		"lương", "nhận lương", "thưởng", "nhận", "được cho", "được tặng", "lì xì", "thu nhập",
		"bán", "hoàn tiền", "tiền lãi", "lãi", "hoa hồng",
	}
)

// ruleBased extracts candidates from the user's own text.
func (p *Parser) ruleBased(input string) ([]model.Candidate, []string) {
	var (
		candidates []model.Candidate
		issues     []string
	)

	for _, segment := range splitSegments(input) {
		m, ok := findAmount(segment)
		if !ok || !m.value.IsPositive() {
			issues = append(issues, fmt.Sprintf("no amount in segment %q", segment))
			continue
		}

		txType := classifyType(segment)
		candidates = append(candidates, model.Candidate{
			Type:        txType,
			Amount:      m.value.InexactFloat64(),
			Description: describe(segment, m),
			CategoryID:  guessCategory(segment, txType, p.categories),
			Confidence:  RuleBasedConfidence,
		})
	}

	return candidates, issues
}

// splitSegments splits on newlines, semicolons and commas. A comma between
// two digits is a decimal or thousands separator and does not split.
func splitSegments(text string) []string {
	runes := []rune(text)
	var (
		segments []string
		current  strings.Builder
	)

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			segments = append(segments, s)
		}
		current.Reset()
	}

	for i, r := range runes {
		switch r {
		case '\n', ';':
			flush()
			continue
		case ',':
			if i > 0 && i+1 < len(runes) && unicode.IsDigit(runes[i-1]) && unicode.IsDigit(runes[i+1]) {
				break
			}
			flush()
			continue
		}
		current.WriteRune(r)
	}
	flush()

	return segments
}

func classifyType(segment string) model.TransactionType {
	switch {
	case common.ContainsAnyWord(segment, transferKeywords):
		return model.TypeTransfer
	case common.ContainsAnyWord(segment, incomeKeywords):
		return model.TypeIncome
	default:
		return model.TypeExpense
	}
}

// describe removes the amount from segment and tidies what is left.
func describe(segment string, m amountMatch) string {
	rest := segment[:m.start] + " " + segment[m.end:]
	rest = strings.Join(strings.Fields(rest), " ")
	return strings.Trim(rest, " :-=.+")
}

// guessCategory returns the first category of the matching type whose
// keywords appear in segment.
func guessCategory(segment string, txType model.TransactionType, categories []model.Category) string {
	want := model.CategoryType(txType)
	for _, c := range categories {
		if c.Type != want {
			continue
		}
		if common.ContainsAnyWord(segment, c.Keywords) {
			return c.ID
		}
	}
	return model.FallbackCategoryID(txType)
}
