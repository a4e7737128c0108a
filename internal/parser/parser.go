package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Veraticus/spice-ingest/internal/common"
	"github.com/Veraticus/spice-ingest/internal/model"
)

const (
	previewLength = 200
	riskCritical  = "critical"
)

// Parser runs the parsing cascade.
type Parser struct {
	logger     *slog.Logger
	categories []model.Category
}

// New creates a Parser using the built-in category keyword table.
func New(logger *slog.Logger) *Parser {
	return &Parser{
		logger:     common.LoggerOrDefault(logger),
		categories: model.DefaultCategories(),
	}
}

// Parse converts raw into a ParseResult, falling back to originalInput when
// raw is unusable. The metadata counts always match the returned candidates.
func (p *Parser) Parse(raw, originalInput string) model.ParseResult {
	var issues []string

	if strings.TrimSpace(raw) == "" {
		issues = append(issues, "empty model response")
	} else {
		candidates, jsonIssues, err := p.fromJSON(raw)
		issues = append(issues, jsonIssues...)
		switch {
		case err != nil:
			issues = append(issues, fmt.Sprintf("json repair failed: %v", err))
		case len(candidates) == 0:
			issues = append(issues, "model response contained no transactions")
		default:
			return p.result(candidates, model.StrategyJSONRepair, issues)
		}
	}

	candidates, ruleIssues := p.ruleBased(originalInput)
	issues = append(issues, ruleIssues...)
	if len(candidates) > 0 {
		p.logger.Debug("used rule-based fallback",
			"transactions", len(candidates),
			"issues", len(issues))
		return p.result(candidates, model.StrategyRuleBased, issues)
	}

	p.logger.Warn("all parsing strategies failed",
		"response_length", len(raw),
		"input_length", len(originalInput))

	meta := model.Summarize(nil)
	meta.ParsingQuality = model.QualityFailed
	meta.Strategy = model.StrategyFailed
	meta.FallbackRisk = riskCritical
	meta.Issues = nonNil(issues)
	meta.ResponseLength = utf8.RuneCountInString(raw)
	meta.ResponsePreview = preview(raw)
	meta.InputPreview = preview(originalInput)

	return model.ParseResult{Transactions: []model.Candidate{}, Metadata: meta}
}

func (p *Parser) result(candidates []model.Candidate, strategy model.ParseStrategy, issues []string) model.ParseResult {
	meta := model.Summarize(candidates)
	meta.Strategy = strategy
	meta.Issues = nonNil(issues)
	return model.ParseResult{Transactions: candidates, Metadata: meta}
}

// fromJSON repairs raw and reads its transactions array.
func (p *Parser) fromJSON(raw string) ([]model.Candidate, []string, error) {
	repaired, issues, err := repair(raw)
	if err != nil {
		return nil, issues, err
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(repaired), &doc); err != nil {
		return nil, issues, fmt.Errorf("decode repaired JSON: %w", err)
	}

	rawTxns, ok := doc["transactions"]
	if !ok || !bytes.HasPrefix(bytes.TrimSpace(rawTxns), []byte("[")) {
		return nil, issues, fmt.Errorf("response has no transactions array")
	}

	var items []json.RawMessage
	if err := json.Unmarshal(rawTxns, &items); err != nil {
		return nil, issues, fmt.Errorf("decode transactions: %w", err)
	}

	candidates := make([]model.Candidate, 0, len(items))
	for i, item := range items {
		c, itemIssues, ok := p.candidateFromJSON(item)
		for _, issue := range itemIssues {
			issues = append(issues, fmt.Sprintf("transaction %d: %s", i, issue))
		}
		if ok {
			candidates = append(candidates, c)
		}
	}

	return candidates, issues, nil
}

// jsonCandidate is the lenient wire shape of one model-produced transaction.
type jsonCandidate struct {
	Type        string     `json:"type"`
	Description string     `json:"description"`
	CategoryID  string     `json:"category_id"`
	Category    string     `json:"category"`
	Merchant    string     `json:"merchant"`
	Notes       string     `json:"notes"`
	Date        string     `json:"date"`
	Tags        []string   `json:"tags"`
	Amount      flexNumber `json:"amount"`
	Confidence  flexNumber `json:"confidence"`
}

func (p *Parser) candidateFromJSON(item json.RawMessage) (model.Candidate, []string, bool) {
	var (
		jc     jsonCandidate
		issues []string
	)
	if err := json.Unmarshal(item, &jc); err != nil {
		return model.Candidate{}, []string{"not an object, skipped"}, false
	}

	c := model.Candidate{
		Type:        model.TransactionType(jc.Type),
		Description: jc.Description,
		CategoryID:  jc.CategoryID,
		Merchant:    jc.Merchant,
		Notes:       jc.Notes,
		Tags:        jc.Tags,
		Amount:      jc.Amount.value,
		Confidence:  jc.Confidence.value,
	}
	if c.CategoryID == "" {
		c.CategoryID = jc.Category
	}

	if c.Amount < 0 {
		c.Amount = math.Abs(c.Amount)
		issues = append(issues, "negative amount made positive")
	}
	if !jc.Confidence.set {
		c.Confidence = model.MediumConfidenceThreshold
		issues = append(issues, "missing confidence")
	}
	if strings.TrimSpace(jc.Type) == "" {
		c.Type = model.TypeExpense
		issues = append(issues, "missing type, assumed expense")
	}

	if jc.Date != "" {
		if d, ok := parseDate(jc.Date); ok {
			c.Date = &d
		} else {
			issues = append(issues, fmt.Sprintf("unrecognized date %q", jc.Date))
		}
	}

	c.Normalize()
	if c.Amount == 0 && c.Description == "" {
		return model.Candidate{}, append(issues, "empty transaction, skipped"), false
	}
	return c, issues, true
}

// flexNumber accepts a JSON number, a numeric string or a Vietnamese amount
// string such as "30k". Anything else leaves it unset.
type flexNumber struct {
	value float64
	set   bool
}

func (f *flexNumber) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}

	var n float64
	if err := json.Unmarshal(b, &n); err == nil {
		f.value, f.set = n, true
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return nil
	}
	if v, ok := ParseAmount(s); ok {
		f.value, f.set = v, true
	}
	return nil
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func preview(s string) string {
	if utf8.RuneCountInString(s) <= previewLength {
		return s
	}
	return string([]rune(s)[:previewLength])
}

func nonNil(issues []string) []string {
	if issues == nil {
		return []string{}
	}
	return issues
}
