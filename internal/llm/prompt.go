package llm

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/spice-ingest/internal/model"
)

// BuildExtractionPrompt asks the provider to extract every transaction in
// text as {"transactions":[...]}. now anchors relative dates such as "hôm qua".
func BuildExtractionPrompt(text string, now time.Time) string {
	var categories strings.Builder
	for _, c := range model.DefaultCategories() {
		fmt.Fprintf(&categories, "- %s (%s, %s)\n", c.ID, c.Name, c.Type)
	}

	return fmt.Sprintf(`Extract every financial transaction from the Vietnamese text below.

Today is %s.

Rules:
- Amounts are in VND. Expand shorthand: "k", "nghìn", "ngàn" = ×1,000; "tr", "triệu", "m", "củ" = ×1,000,000; "tỷ" = ×1,000,000,000.
- type is one of: expense, income, transfer. Salary, bonuses and money received are income.
- category_id must be one of the ids below. Use "other" when nothing fits.
- description is a short Vietnamese phrase without the amount.
- date is YYYY-MM-DD, only when the text states or implies one.
- confidence is your certainty in [0,1] for each transaction.

Categories:
%s
Respond with JSON in exactly this shape:
{"transactions":[{"type":"expense","amount":30000,"description":"ăn sáng","category_id":"food","merchant":"","date":"","confidence":0.9,"tags":[]}]}

Text:
%s`, now.Format("2006-01-02"), categories.String(), strings.TrimSpace(text))
}
