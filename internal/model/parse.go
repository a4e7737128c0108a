package model

// ParsingQuality labels how trustworthy a parse result is.
type ParsingQuality string

// Quality labels, best first.
const (
	QualityExcellent   ParsingQuality = "excellent"
	QualityGood        ParsingQuality = "good"
	QualityNeedsReview ParsingQuality = "needs_review"
	QualityFailed      ParsingQuality = "failed"
)

// ParseStrategy names the parser strategy that produced a result.
type ParseStrategy string

// Parser strategies in the order they are attempted.
const (
	StrategyJSONRepair ParseStrategy = "json_repair"
	StrategyRuleBased  ParseStrategy = "rule_based"
	StrategyFailed     ParseStrategy = "failed"
)

// Confidence bucket boundaries.
const (
	HighConfidenceThreshold   = 0.8
	MediumConfidenceThreshold = 0.6
)

// ParseMetadata describes a parse result. HighConfidence, MediumConfidence and
// LowConfidence always sum to TotalTransactions.
type ParseMetadata struct {
	ParsingQuality    ParsingQuality `json:"parsing_quality"`
	Strategy          ParseStrategy  `json:"strategy"`
	FallbackRisk      string         `json:"fallback_risk,omitempty"`
	ResponsePreview   string         `json:"response_preview,omitempty"`
	InputPreview      string         `json:"input_preview,omitempty"`
	Issues            []string       `json:"issues"`
	TotalTransactions int            `json:"total_transactions"`
	HighConfidence    int            `json:"high_confidence"`
	MediumConfidence  int            `json:"medium_confidence"`
	LowConfidence     int            `json:"low_confidence"`
	ResponseLength    int            `json:"response_length,omitempty"`
	AverageConfidence float64        `json:"average_confidence"`
}

// ParseResult is the output of the response parser.
type ParseResult struct {
	Transactions []Candidate   `json:"transactions"`
	Metadata     ParseMetadata `json:"metadata"`
}

// QualityFor maps an average confidence to a quality label.
func QualityFor(avg float64) ParsingQuality {
	switch {
	case avg >= HighConfidenceThreshold:
		return QualityExcellent
	case avg >= MediumConfidenceThreshold:
		return QualityGood
	default:
		return QualityNeedsReview
	}
}

// Summarize recomputes bucket counts, average confidence and quality for
// candidates. Issues and strategy are left to the caller.
func Summarize(candidates []Candidate) ParseMetadata {
	meta := ParseMetadata{
		TotalTransactions: len(candidates),
		Issues:            []string{},
	}
	if len(candidates) == 0 {
		meta.ParsingQuality = QualityNeedsReview
		return meta
	}

	var sum float64
	for _, c := range candidates {
		sum += c.Confidence
		switch {
		case c.Confidence >= HighConfidenceThreshold:
			meta.HighConfidence++
		case c.Confidence >= MediumConfidenceThreshold:
			meta.MediumConfidence++
		default:
			meta.LowConfidence++
		}
	}

	meta.AverageConfidence = sum / float64(len(candidates))
	meta.ParsingQuality = QualityFor(meta.AverageConfidence)
	return meta
}
