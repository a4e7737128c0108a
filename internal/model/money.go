package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatVND renders a VND amount rounded to the dong with dot thousands
// separators, as in "1.500.000".
func FormatVND(amount float64) string {
	d := decimal.NewFromFloat(amount).Round(0)
	negative := d.IsNegative()
	digits := d.Abs().String()

	var sb strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			sb.WriteByte('.')
		}
		sb.WriteRune(r)
	}

	if negative {
		return "-" + sb.String()
	}
	return sb.String()
}
