package agent

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moneywise-app/moneywise/internal/model"
)

type stubRecaller struct {
	hits []string
}

func (s *stubRecaller) Retrieve(context.Context, string, string) ([]string, error) {
	return s.hits, nil
}

func (s *stubRecaller) RecordExchange(context.Context, string, string, string) error {
	return nil
}

func TestRenderEmptyContext(t *testing.T) {
	assert.Equal(t, "", (&FinancialContext{}).Render())
}

func TestBuildRendersDigest(t *testing.T) {
	store := newTestStore(t)
	user := seedTestUser(t, store, "Alex", "alex@example.com")
	checking := seedTestAccount(t, store, user.ID, "Main Checking", model.AccountChecking, "2500.00")
	seedTestAccount(t, store, user.ID, "Savings", model.AccountSavings, "8000.00")

	now := time.Now().UTC()
	insertTxn := func(amount, category, merchant string, age time.Duration) {
		require.NoError(t, store.InsertTransaction(context.Background(), &model.Transaction{
			AccountID:    checking.ID,
			Date:         now.Add(-age),
			Amount:       decimal.RequireFromString(amount),
			Merchant:     merchant,
			Category:     category,
			BalanceAfter: decimal.Zero,
		}))
	}
	insertTxn("4200.00", "income", "Payroll", 20*24*time.Hour)
	insertTxn("-300.00", "food", "Grocer", 10*24*time.Hour)
	insertTxn("-100.00", "transport", "Metro", 5*24*time.Hour)
	insertTxn("-50.00", "food", "Grocer", 2*24*time.Hour)
	// Outside the 30-day window; must not be counted.
	insertTxn("-999.00", "shopping", "Gadget Hut", 45*24*time.Hour)

	require.NoError(t, store.InsertSummary(context.Background(), &model.Summary{
		UserID: user.ID, Period: "6_months", StartDate: now.AddDate(0, -6, 0), EndDate: now,
		TotalIncome: decimal.NewFromInt(1), TotalExpenses: decimal.NewFromInt(1), NetChange: decimal.Zero,
		TopCategory: "food", Insights: "Spending is steady.",
	}))

	recaller := &stubRecaller{hits: []string{"User asked about savings goals."}}
	builder := NewContextBuilder(store, recaller, nil)

	fc, err := builder.Build(context.Background(), user.ID, "how am I doing?")
	require.NoError(t, err)
	digest := fc.Render()

	assert.Contains(t, digest, "User's accounts: Main Checking (checking): $2500.00, Savings (savings): $8000.00")
	assert.Contains(t, digest, "Recent activity (last 30 days): 4 transactions, $450.00 spent, $4200.00 income")
	assert.Contains(t, digest, "Top spending categories: food: $350.00, transport: $100.00")
	assert.Contains(t, digest, "Recent insights: Spending is steady.")
	assert.Contains(t, digest, "Relevant history:\n- User asked about savings goals.")
}

func TestBuildWithNoData(t *testing.T) {
	store := newTestStore(t)
	user := seedTestUser(t, store, "Alex", "alex@example.com")
	builder := NewContextBuilder(store, nil, nil)

	fc, err := builder.Build(context.Background(), user.ID, "hello")
	require.NoError(t, err)
	assert.Equal(t, "", fc.Render())
}

func TestTopCategoriesOrderAndTiebreak(t *testing.T) {
	txns := []model.Transaction{
		{Amount: decimal.RequireFromString("-10.00"), Category: "b"},
		{Amount: decimal.RequireFromString("-10.00"), Category: "a"},
		{Amount: decimal.RequireFromString("-30.00"), Category: "c"},
		{Amount: decimal.RequireFromString("-5.00"), Category: "d"},
		{Amount: decimal.RequireFromString("100.00"), Category: "income"},
	}

	top := topCategories(txns, 3)
	require.Len(t, top, 3)
	assert.Equal(t, "c", top[0].Category)
	// Equal totals order alphabetically.
	assert.Equal(t, "a", top[1].Category)
	assert.Equal(t, "b", top[2].Category)
}

func TestInsightExcerptTruncated(t *testing.T) {
	store := newTestStore(t)
	user := seedTestUser(t, store, "Alex", "alex@example.com")

	long := ""
	for i := 0; i < 30; i++ {
		long += "0123456789"
	}
	now := time.Now().UTC()
	require.NoError(t, store.InsertSummary(context.Background(), &model.Summary{
		UserID: user.ID, Period: "6_months", StartDate: now.AddDate(0, -6, 0), EndDate: now,
		TotalIncome: decimal.Zero, TotalExpenses: decimal.Zero, NetChange: decimal.Zero,
		Insights: long,
	}))

	builder := NewContextBuilder(store, nil, nil)
	fc, err := builder.Build(context.Background(), user.ID, "")
	require.NoError(t, err)
	assert.Len(t, fc.LastInsight, 203)
}
