package parser

import (
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/spice-ingest/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertCountsConsistent(t *testing.T, res model.ParseResult) {
	t.Helper()
	meta := res.Metadata
	assert.Equal(t, len(res.Transactions), meta.TotalTransactions)
	assert.Equal(t, meta.TotalTransactions, meta.HighConfidence+meta.MediumConfidence+meta.LowConfidence)
}

func TestParse_JSONStrategy(t *testing.T) {
	p := New(nil)
	raw := "```json\n" + `{
  "transactions": [
    {"type": "expense", "amount": 30000, "description": "ăn sáng", "category_id": "food", "confidence": 0.95, "date": "2025-03-01"},
    {"type": "income", "amount": "15tr", "description": "lương tháng 3", "category": "salary", "confidence": "0.9"},
  ],
  "metadata": {"parsing_quality": "failed"}
}` + "\n```"

	res := p.Parse(raw, "ăn sáng 30k, lương 15tr")

	require.Len(t, res.Transactions, 2)
	assert.Equal(t, model.StrategyJSONRepair, res.Metadata.Strategy)
	assert.Equal(t, model.QualityExcellent, res.Metadata.ParsingQuality, "quality is recomputed, not copied")
	assertCountsConsistent(t, res)

	first := res.Transactions[0]
	assert.Equal(t, model.TypeExpense, first.Type)
	assert.InDelta(t, 30000, first.Amount, 0.001)
	assert.Equal(t, "food", first.CategoryID)
	require.NotNil(t, first.Date)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), *first.Date)

	second := res.Transactions[1]
	assert.Equal(t, model.TypeIncome, second.Type)
	assert.InDelta(t, 15_000_000, second.Amount, 0.001)
	assert.Equal(t, "salary", second.CategoryID)
	assert.InDelta(t, 0.9, second.Confidence, 0.0001)
	assert.Contains(t, res.Metadata.Issues, issueMarkdownFence)
}

func TestParse_JSONDefaults(t *testing.T) {
	p := New(nil)
	res := p.Parse(`{"transactions":[{"amount":-50000,"description":"  trà sữa "}]}`, "")

	require.Len(t, res.Transactions, 1)
	c := res.Transactions[0]
	assert.Equal(t, model.TypeExpense, c.Type)
	assert.InDelta(t, 50000, c.Amount, 0.001)
	assert.Equal(t, "trà sữa", c.Description)
	assert.InDelta(t, model.MediumConfidenceThreshold, c.Confidence, 0.0001)
	assert.Equal(t, model.QualityGood, res.Metadata.ParsingQuality)

	joined := strings.Join(res.Metadata.Issues, "; ")
	assert.Contains(t, joined, "negative amount")
	assert.Contains(t, joined, "missing confidence")
	assert.Contains(t, joined, "missing type")
}

func TestParse_FallbackScenario(t *testing.T) {
	p := New(nil)

	for _, raw := range []string{"", "   ", "Xin lỗi, tôi không thể xử lý yêu cầu này."} {
		res := p.Parse(raw, "ăn sáng 30k, taxi 80k")

		require.Len(t, res.Transactions, 2, "raw=%q", raw)
		assert.Equal(t, model.StrategyRuleBased, res.Metadata.Strategy)
		assertCountsConsistent(t, res)

		assert.Equal(t, model.TypeExpense, res.Transactions[0].Type)
		assert.InDelta(t, 30000, res.Transactions[0].Amount, 0.001)
		assert.Equal(t, "ăn sáng", res.Transactions[0].Description)
		assert.Equal(t, model.CategoryFood, res.Transactions[0].CategoryID)

		assert.Equal(t, model.TypeExpense, res.Transactions[1].Type)
		assert.InDelta(t, 80000, res.Transactions[1].Amount, 0.001)
		assert.Equal(t, "taxi", res.Transactions[1].Description)
		assert.Equal(t, model.CategoryTransport, res.Transactions[1].CategoryID)

		assert.InDelta(t, RuleBasedConfidence, res.Transactions[0].Confidence, 0.0001)
	}
}

func TestParse_EmptyTransactionsFallsBack(t *testing.T) {
	p := New(nil)
	res := p.Parse(`{"transactions": []}`, "nhận lương 15 triệu")

	require.Len(t, res.Transactions, 1)
	assert.Equal(t, model.StrategyRuleBased, res.Metadata.Strategy)
	assert.Equal(t, model.TypeIncome, res.Transactions[0].Type)
	assert.InDelta(t, 15_000_000, res.Transactions[0].Amount, 0.001)
	assert.Equal(t, model.CategorySalary, res.Transactions[0].CategoryID)
	assert.Contains(t, res.Metadata.Issues, "model response contained no transactions")
}

func TestParse_MissingTransactionsArrayFallsBack(t *testing.T) {
	p := New(nil)
	res := p.Parse(`{"items":[{"amount":1}]}`, "cafe 25k")

	require.Len(t, res.Transactions, 1)
	assert.Equal(t, model.StrategyRuleBased, res.Metadata.Strategy)
}

func TestParse_Failure(t *testing.T) {
	p := New(nil)
	raw := strings.Repeat("không rõ ", 50)
	res := p.Parse(raw, "hôm nay trời đẹp")

	assert.Empty(t, res.Transactions)
	assert.NotNil(t, res.Transactions)
	assertCountsConsistent(t, res)

	meta := res.Metadata
	assert.Equal(t, model.QualityFailed, meta.ParsingQuality)
	assert.Equal(t, model.StrategyFailed, meta.Strategy)
	assert.Equal(t, "critical", meta.FallbackRisk)
	assert.Equal(t, 450, meta.ResponseLength)
	assert.Equal(t, 200, len([]rune(meta.ResponsePreview)))
	assert.Equal(t, "hôm nay trời đẹp", meta.InputPreview)
	assert.NotEmpty(t, meta.Issues)
}

func TestParse_RuleBasedTypes(t *testing.T) {
	tests := []struct {
		input    string
		wantType model.TransactionType
		wantCat  string
	}{
		{input: "chuyển khoản cho mẹ 2tr", wantType: model.TypeTransfer, wantCat: model.CategoryTransfer},
		{input: "được thưởng 500k", wantType: model.TypeIncome, wantCat: model.CategoryBonus},
		{input: "mua quần áo 450k", wantType: model.TypeExpense, wantCat: model.CategoryShopping},
		{input: "tiền điện 1,2 triệu", wantType: model.TypeExpense, wantCat: model.CategoryBills},
		{input: "linh tinh 20k", wantType: model.TypeExpense, wantCat: model.CategoryOther},
	}

	p := New(nil)
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			res := p.Parse("", tt.input)
			require.Len(t, res.Transactions, 1)
			assert.Equal(t, tt.wantType, res.Transactions[0].Type)
			assert.Equal(t, tt.wantCat, res.Transactions[0].CategoryID)
		})
	}
}

func TestParse_RuleBasedShorthand(t *testing.T) {
	tests := []struct {
		input     string
		wantDescs []string
		want      []float64
	}{
		{input: "1tr5 tiền nhà", want: []float64{1_500_000}, wantDescs: []string{"tiền nhà"}},
		{
			input:     "cà phê 25.000đ, mua 2 cu khoai 20k",
			want:      []float64{25_000, 20_000},
			wantDescs: []string{"cà phê", "mua 2 cu khoai"},
		},
	}

	p := New(nil)
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			res := p.Parse("", tt.input)
			require.Len(t, res.Transactions, len(tt.want))
			for i, txn := range res.Transactions {
				assert.InDelta(t, tt.want[i], txn.Amount, 0.001)
				assert.Equal(t, tt.wantDescs[i], txn.Description)
			}
		})
	}
}

func TestSplitSegments(t *testing.T) {
	got := splitSegments("ăn sáng 30k, xăng 1,5tr\ncafe 25k; ; gửi xe 5k,")
	assert.Equal(t, []string{"ăn sáng 30k", "xăng 1,5tr", "cafe 25k", "gửi xe 5k"}, got)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{in: "30k", want: 30_000, ok: true},
		{in: "30 K", want: 30_000, ok: true},
		{in: "50 nghìn", want: 50_000, ok: true},
		{in: "50 ngàn", want: 50_000, ok: true},
		{in: "1,5tr", want: 1_500_000, ok: true},
		{in: "1.5 triệu", want: 1_500_000, ok: true},
		{in: "2m", want: 2_000_000, ok: true},
		{in: "3 củ", want: 3_000_000, ok: true},
		{in: "1 tỷ", want: 1_000_000_000, ok: true},
		{in: "30.000", want: 30_000, ok: true},
		{in: "1.250.000đ", want: 1_250_000, ok: true},
		{in: "45000 vnd", want: 45_000, ok: true},
		{in: "mua 2 ly trà sữa 50k", want: 50_000, ok: true},
		{in: "iphone15 giá 20tr", want: 20_000_000, ok: true},
		{in: "1tr5", want: 1_500_000, ok: true},
		{in: "1tr250 tiền nhà", want: 1_250_000, ok: true},
		{in: "2k5", want: 2_500, ok: true},
		{in: "mua 2 cu khoai 20k", want: 20_000, ok: true},
		{in: "5 ty", want: 5_000_000_000, ok: true},
		{in: "15h ăn phở 40k", want: 40_000, ok: true},
		{in: "15h ăn phở", ok: false},
		{in: "ăn mì", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseAmount(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 0.001)
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	segment := "đổ xăng: 80k"
	m, ok := findAmount(segment)
	require.True(t, ok)
	assert.Equal(t, "đổ xăng", describe(segment, m))
}
