package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-ingest/internal/model"
)

func txn(id string, date time.Time, typ model.TransactionType, category, desc string, amount float64) model.ValidatedTransaction {
	d := date
	return model.ValidatedTransaction{
		ID: id,
		Candidate: model.Candidate{
			Date:        &d,
			Type:        typ,
			Description: desc,
			CategoryID:  category,
			Amount:      amount,
			Confidence:  0.9,
		},
	}
}

func TestSaveTransactions(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)
	day := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	batch := []model.ValidatedTransaction{
		txn("t1", day, model.TypeExpense, model.CategoryFood, "ăn sáng", 30000),
		txn("t2", day, model.TypeExpense, model.CategoryTransport, "taxi", 80000),
	}

	inserted, err := store.SaveTransactions(ctx, "user-1", batch)
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	t.Run("saving the same transaction again is ignored", func(t *testing.T) {
		inserted, err := store.SaveTransactions(ctx, "user-1", batch[:1])
		require.NoError(t, err)
		assert.Equal(t, 0, inserted)
	})

	t.Run("same text for another user is stored", func(t *testing.T) {
		other := []model.ValidatedTransaction{
			txn("t4", day, model.TypeExpense, model.CategoryFood, "ăn sáng", 30000),
		}
		inserted, err := store.SaveTransactions(ctx, "user-2", other)
		require.NoError(t, err)
		assert.Equal(t, 1, inserted)
	})

	t.Run("invalid rows abort the batch", func(t *testing.T) {
		bad := []model.ValidatedTransaction{
			txn("t5", day, model.TypeExpense, model.CategoryFood, "phở", 45000),
			txn("t6", day, model.TransactionType("gift"), model.CategoryOther, "quà", 10000),
		}
		_, err := store.SaveTransactions(ctx, "user-1", bad)
		require.ErrorIs(t, err, ErrInvalidTransaction)

		recent, err := store.RecentTransactions(ctx, "user-1", 10)
		require.NoError(t, err)
		assert.Len(t, recent, 2)
	})

	t.Run("identical entries on the same day are kept apart", func(t *testing.T) {
		coffees := []model.ValidatedTransaction{
			txn("c1", day, model.TypeExpense, model.CategoryFood, "cà phê", 25000),
			txn("c2", day, model.TypeExpense, model.CategoryFood, "cà phê", 25000),
		}
		inserted, err := store.SaveTransactions(ctx, "user-3", coffees)
		require.NoError(t, err)
		assert.Equal(t, 2, inserted)

		amounts, err := store.RecentAmounts(ctx, "user-3", model.CategoryFood, day.AddDate(0, 0, -1))
		require.NoError(t, err)
		assert.Equal(t, []float64{25000, 25000}, amounts)
	})

	t.Run("parameter validation", func(t *testing.T) {
		_, err := store.SaveTransactions(ctx, "", batch)
		assert.ErrorIs(t, err, ErrEmptyString)

		_, err = store.SaveTransactions(ctx, "user-1", nil)
		assert.ErrorIs(t, err, ErrEmptySlice)
	})
}

func TestSaveTransactionsUndatedUsesNow(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	undated := model.ValidatedTransaction{
		ID:        "u1",
		Candidate: model.Candidate{Type: model.TypeIncome, Description: "lương", CategoryID: model.CategorySalary, Amount: 15000000},
	}
	_, err := store.SaveTransactions(ctx, "user-1", []model.ValidatedTransaction{undated})
	require.NoError(t, err)

	recent, err := store.RecentTransactions(ctx, "user-1", 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.True(t, now.Equal(recent[0].Date))
	assert.True(t, now.Equal(recent[0].CreatedAt))
	assert.Equal(t, model.TypeIncome, recent[0].Type)
	assert.Equal(t, "lương", recent[0].Description)
}

func TestRecentAmounts(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)
	base := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

	_, err := store.SaveTransactions(ctx, "user-1", []model.ValidatedTransaction{
		txn("a", base.AddDate(0, -5, 0), model.TypeExpense, model.CategoryFood, "cơm cũ", 99000),
		txn("b", base.AddDate(0, 0, -10), model.TypeExpense, model.CategoryFood, "cơm", 50000),
		txn("c", base.AddDate(0, 0, -3), model.TypeExpense, model.CategoryFood, "bún", 40000),
		txn("d", base.AddDate(0, 0, -2), model.TypeIncome, model.CategoryFood, "hoàn tiền", 20000),
		txn("e", base.AddDate(0, 0, -1), model.TypeExpense, model.CategoryTransport, "grab", 60000),
	})
	require.NoError(t, err)

	tests := []struct {
		name     string
		userID   string
		category string
		since    time.Time
		want     []float64
	}{
		{"window excludes older rows and income", "user-1", model.CategoryFood, base.AddDate(0, -3, 0), []float64{50000, 40000}},
		{"whole history", "user-1", model.CategoryFood, base.AddDate(-1, 0, 0), []float64{99000, 50000, 40000}},
		{"other category", "user-1", model.CategoryTransport, base.AddDate(0, -3, 0), []float64{60000}},
		{"other user", "user-2", model.CategoryFood, base.AddDate(0, -3, 0), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.RecentAmounts(ctx, tt.userID, tt.category, tt.since)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err = store.RecentAmounts(ctx, "user-1", "", base)
	assert.ErrorIs(t, err, ErrEmptyString)
}

func TestRecentTransactionsOrderAndLimit(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)
	base := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

	_, err := store.SaveTransactions(ctx, "user-1", []model.ValidatedTransaction{
		txn("old", base.AddDate(0, 0, -2), model.TypeExpense, model.CategoryFood, "phở", 45000),
		txn("new", base, model.TypeExpense, model.CategoryShopping, "áo", 250000),
		txn("mid", base.AddDate(0, 0, -1), model.TypeTransfer, model.CategoryTransfer, "chuyển khoản", 1000000),
	})
	require.NoError(t, err)

	recent, err := store.RecentTransactions(ctx, "user-1", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "new", recent[0].ID)
	assert.Equal(t, "mid", recent[1].ID)
	assert.Equal(t, model.CategoryTransfer, recent[1].CategoryID)
	assert.NotEmpty(t, recent[0].Hash)
}
