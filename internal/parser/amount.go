package parser

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

var numberPattern = regexp.MustCompile(`\d+(?:[.,]\d+)*`)

// unit is a Vietnamese amount suffix and its multiplier. Loose units are
// unaccented spellings that are also ordinary words ("2 cu khoai"); they count
// only when no other number in the segment carries a unit.
type unit struct {
	text       string
	multiplier decimal.Decimal
	loose      bool
}

var (
	one      = decimal.NewFromInt(1)
	thousand = decimal.NewFromInt(1_000)
	million  = decimal.NewFromInt(1_000_000)
	billion  = decimal.NewFromInt(1_000_000_000)
)

// units are tried in order, so longer spellings come first.
var units = []unit{
	{text: "nghìn", multiplier: thousand}, {text: "nghin", multiplier: thousand},
	{text: "ngàn", multiplier: thousand}, {text: "ngan", multiplier: thousand},
	{text: "triệu", multiplier: million}, {text: "trieu", multiplier: million},
	{text: "đồng", multiplier: one}, {text: "dong", multiplier: one},
	{text: "vnđ", multiplier: one}, {text: "vnd", multiplier: one},
	{text: "tỷ", multiplier: billion}, {text: "tỉ", multiplier: billion},
	{text: "ty", multiplier: billion, loose: true},
	{text: "củ", multiplier: million},
	{text: "cu", multiplier: million, loose: true},
	{text: "tr", multiplier: million},
	{text: "k", multiplier: thousand},
	{text: "m", multiplier: million},
	{text: "đ", multiplier: one},
}

// amountMatch is an amount found in free text. start and end bound the
// number and its unit.
type amountMatch struct {
	value   decimal.Decimal
	start   int
	end     int
	hasUnit bool
}

// findAmount returns the amount in segment. The first number carrying a
// unit wins, then the first with a loose unit, then the largest bare number.
// A bare number glued to letters ("15h", "p2") is not an amount.
func findAmount(segment string) (amountMatch, bool) {
	var (
		bare, loose           amountMatch
		foundBare, foundLoose bool
	)

	for _, loc := range numberPattern.FindAllStringIndex(segment, -1) {
		if loc[0] > 0 {
			if r, _ := utf8.DecodeLastRuneInString(segment[:loc[0]]); unicode.IsLetter(r) {
				continue
			}
		}

		number := segment[loc[0]:loc[1]]
		u, unitLen, hasUnit := matchUnit(segment[loc[1]:])
		if !hasUnit {
			if r, _ := utf8.DecodeRuneInString(segment[loc[1]:]); unicode.IsLetter(r) {
				continue
			}
		}

		scaled := hasUnit && u.multiplier.GreaterThan(one)
		value, ok := parseNumber(number, scaled)
		if !ok {
			continue
		}

		end := loc[1] + unitLen
		if scaled && !strings.ContainsAny(number, ".,") {
			// "1tr5" is 1.5 million, "2k5" is 2,500.
			if frac := leadingDigits(segment[end:]); frac != "" {
				if f, err := decimal.NewFromString("0." + frac); err == nil {
					value = value.Add(f)
					end += len(frac)
				}
			}
		}

		m := amountMatch{
			value:   value.Mul(u.multiplier),
			start:   loc[0],
			end:     end,
			hasUnit: hasUnit,
		}
		switch {
		case hasUnit && !u.loose:
			return m, true
		case hasUnit:
			if !foundLoose {
				loose, foundLoose = m, true
			}
		case !foundBare || m.value.GreaterThan(bare.value):
			bare, foundBare = m, true
		}
	}

	if foundLoose {
		return loose, true
	}
	return bare, foundBare
}

// matchUnit reads an optional unit at the start of rest. unitLen includes
// any spaces between the number and the unit. A multiplying unit may be
// followed by digits ("1tr5"); otherwise the unit must end the word.
func matchUnit(rest string) (unit, int, bool) {
	trimmed := strings.TrimLeft(rest, " ")
	skipped := len(rest) - len(trimmed)

	for _, u := range units {
		n := len(u.text)
		if len(trimmed) < n || !strings.EqualFold(trimmed[:n], u.text) {
			continue
		}
		next, _ := utf8.DecodeRuneInString(trimmed[n:])
		if unicode.IsLetter(next) {
			continue
		}
		if unicode.IsDigit(next) && (skipped > 0 || !u.multiplier.GreaterThan(one)) {
			continue
		}
		return u, skipped + n, true
	}

	return unit{multiplier: one}, 0, false
}

func leadingDigits(s string) string {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i < len(s) {
		if r, _ := utf8.DecodeRuneInString(s[i:]); unicode.IsLetter(r) {
			return ""
		}
	}
	return s[:i]
}

// parseNumber reads digits with "." or "," separators. Groups of exactly
// three digits are thousands separators ("30.000") unless a multiplier
// follows a single separator, in which case it is a decimal point ("1,5tr").
func parseNumber(s string, scaled bool) (decimal.Decimal, bool) {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '.' || r == ',' })
	if len(parts) == 0 {
		return decimal.Zero, false
	}

	var digits string
	switch {
	case len(parts) == 1:
		digits = parts[0]
	case len(parts) == 2 && (scaled || len(parts[1]) != 3):
		digits = parts[0] + "." + parts[1]
	default:
		digits = strings.Join(parts, "")
	}

	value, err := decimal.NewFromString(digits)
	if err != nil {
		return decimal.Zero, false
	}
	return value, true
}

// ParseAmount reads a Vietnamese amount such as "30k", "1,5 triệu" or
// "30.000đ" and returns it in VND.
func ParseAmount(s string) (float64, bool) {
	m, ok := findAmount(strings.TrimSpace(s))
	if !ok {
		return 0, false
	}
	return m.value.InexactFloat64(), true
}
