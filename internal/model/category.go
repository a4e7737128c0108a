package model

// CategoryType indicates whether a category is for income, expense, or transfers.
type CategoryType string

const (
	// CategoryTypeIncome represents categories for income transactions.
	CategoryTypeIncome CategoryType = "income"
	// CategoryTypeExpense represents categories for expense transactions.
	CategoryTypeExpense CategoryType = "expense"
	// CategoryTypeTransfer represents categories for moving money between accounts.
	CategoryTypeTransfer CategoryType = "transfer"
)

// Category is a spending or income category that transactions are filed under.
type Category struct {
	ID       string
	Name     string
	Type     CategoryType
	Keywords []string
}

// Category IDs used by the rule-based parser.
const (
	CategoryFood          = "food"
	CategoryTransport     = "transport"
	CategoryShopping      = "shopping"
	CategoryBills         = "bills"
	CategoryEntertainment = "entertainment"
	CategoryHealth        = "health"
	CategoryEducation     = "education"
	CategorySalary        = "salary"
	CategoryBonus         = "bonus"
	CategoryTransfer      = "transfer"
	CategoryOther         = "other"
)

// DefaultCategories returns the built-in Vietnamese keyword table. Order
// matters: the first category whose keywords match wins.
func DefaultCategories() []Category {
	return []Category{
		{
			ID:   CategoryFood,
			Name: "Ăn uống",
			Type: CategoryTypeExpense,
			Keywords: []string{
				"ăn", "ăn sáng", "ăn trưa", "ăn tối", "cafe", "cà phê", "trà đá", "trà sữa",
				"chè", "nhậu", "bia", "phở", "bún", "cơm", "bánh mì", "đồ ăn", "quán", "lẩu",
			},
		},
		{
			ID:   CategoryTransport,
			Name: "Di chuyển",
			Type: CategoryTypeExpense,
			Keywords: []string{
				"taxi", "grab", "be", "xe ôm", "xăng", "đổ xăng", "gửi xe", "vé xe", "xe buýt",
				"máy bay", "vé tàu", "sửa xe", "rửa xe", "gojek",
			},
		},
		{
			ID:   CategoryShopping,
			Name: "Mua sắm",
			Type: CategoryTypeExpense,
			Keywords: []string{
				"mua", "quần áo", "giày", "shopee", "lazada", "tiki", "siêu thị", "đi chợ", "chợ",
			},
		},
		{
			ID:   CategoryBills,
			Name: "Hóa đơn & sinh hoạt",
			Type: CategoryTypeExpense,
			Keywords: []string{
				"tiền điện", "điện", "tiền nước", "nước", "internet", "wifi", "điện thoại", "gas",
				"tiền nhà", "tiền trọ", "thuê nhà", "rác", "phí", "bảo hiểm",
			},
		},
		{
			ID:   CategoryEntertainment,
			Name: "Giải trí",
			Type: CategoryTypeExpense,
			Keywords: []string{
				"xem phim", "phim", "karaoke", "game", "du lịch", "spa", "massage", "netflix", "spotify",
			},
		},
		{
			ID:   CategoryHealth,
			Name: "Sức khỏe",
			Type: CategoryTypeExpense,
			Keywords: []string{"thuốc", "bệnh viện", "khám", "nha khoa", "gym", "phòng khám"},
		},
		{
			ID:   CategoryEducation,
			Name: "Giáo dục",
			Type: CategoryTypeExpense,
			Keywords: []string{"học phí", "sách", "khóa học", "học thêm"},
		},
		{
			ID:       CategorySalary,
			Name:     "Lương",
			Type:     CategoryTypeIncome,
			Keywords: []string{"lương", "nhận lương", "salary"},
		},
		{
			ID:       CategoryBonus,
			Name:     "Thưởng",
			Type:     CategoryTypeIncome,
			Keywords: []string{"thưởng", "lì xì", "hoa hồng", "tiền lãi", "lãi"},
		},
		{
			ID:       CategoryTransfer,
			Name:     "Chuyển khoản",
			Type:     CategoryTypeTransfer,
			Keywords: []string{"chuyển khoản", "chuyển tiền", "ck", "rút tiền", "nạp tiền"},
		},
	}
}

// FallbackCategoryID returns the catch-all category for a transaction type.
func FallbackCategoryID(t TransactionType) string {
	switch t {
	case TypeIncome:
		return CategoryBonus
	case TypeTransfer:
		return CategoryTransfer
	default:
		return CategoryOther
	}
}
