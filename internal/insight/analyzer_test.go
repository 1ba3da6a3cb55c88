package insight

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moneywise-app/moneywise/internal/completion"
	"github.com/moneywise-app/moneywise/internal/model"
	"github.com/moneywise-app/moneywise/internal/storage"
)

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func txn(amount, category string, date time.Time) model.Transaction {
	return model.Transaction{
		Date:         date,
		Amount:       decimal.RequireFromString(amount),
		Merchant:     "m",
		Category:     category,
		BalanceAfter: decimal.Zero,
	}
}

func TestAggregate(t *testing.T) {
	jan := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)

	agg := Aggregate([]model.Transaction{
		txn("4000.00", "income", jan),
		txn("-1500.00", "housing", jan),
		txn("-200.00", "food", jan),
		txn("4000.00", "income", feb),
		txn("-300.00", "food", feb),
	})

	assert.Equal(t, "8000.00", agg.TotalIncome.StringFixed(2))
	assert.Equal(t, "2000.00", agg.TotalExpenses.StringFixed(2))
	assert.Equal(t, "6000.00", agg.NetChange.StringFixed(2))

	require.Len(t, agg.Monthly, 2)
	assert.Equal(t, "2026-01", agg.Monthly[0].Month)
	assert.Equal(t, "1700.00", agg.Monthly[0].Expenses.StringFixed(2))
	assert.Equal(t, "2026-02", agg.Monthly[1].Month)

	require.Len(t, agg.Categories, 2)
	assert.Equal(t, "housing", agg.Categories[0].Category)
	assert.Equal(t, "food", agg.Categories[1].Category)
	assert.Equal(t, "housing", agg.TopCategory)
}

func TestAggregateEmpty(t *testing.T) {
	agg := Aggregate(nil)
	assert.True(t, agg.NetChange.IsZero())
	assert.Empty(t, agg.Monthly)
	assert.Empty(t, agg.Categories)
	assert.Empty(t, agg.TopCategory)
}

func TestDetectAnomalies(t *testing.T) {
	now := time.Now().UTC()
	normal1 := txn("-50.00", "shopping", now)
	normal2 := txn("-70.00", "shopping", now)
	normal3 := txn("-60.00", "shopping", now)
	// Category average is around 500 with this outlier included; 1900
	// still clears 2.5x of it.
	outlier := txn("-1900.00", "shopping", now)
	flagged := txn("-20.00", "food", now)
	flagged.IsAnomaly = true

	anomalies := DetectAnomalies([]model.Transaction{normal1, normal2, normal3, outlier, flagged})
	require.Len(t, anomalies, 2)
	assert.Equal(t, "-1900.00", anomalies[0].Amount.StringFixed(2))
	assert.True(t, anomalies[1].IsAnomaly)
}

func TestDetectAnomaliesSingleDebitNeverFlags(t *testing.T) {
	anomalies := DetectAnomalies([]model.Transaction{txn("-5000.00", "travel", time.Now().UTC())})
	assert.Empty(t, anomalies)
}

func TestAnalyzePersistsSummaryAndNarrates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := &model.User{Name: "Alex", Email: "alex@example.com", PasswordHash: "x"}
	require.NoError(t, store.CreateUser(ctx, user))
	account := &model.Account{UserID: user.ID, Name: "Checking", Type: model.AccountChecking, Balance: decimal.Zero, Currency: "USD"}
	require.NoError(t, store.CreateAccount(ctx, account))

	now := time.Now().UTC()
	for _, tr := range []model.Transaction{
		txn("4000.00", "income", now.AddDate(0, -1, 0)),
		txn("-1200.00", "housing", now.AddDate(0, -1, 0)),
		txn("-400.00", "food", now.AddDate(0, 0, -10)),
	} {
		tr.AccountID = account.ID
		require.NoError(t, store.InsertTransaction(ctx, &tr))
	}

	client := completion.NewMock(&completion.Response{Text: "You spend most on housing."})
	analyzer := NewAnalyzer(store, client, nil, nil)

	report, err := analyzer.Analyze(ctx, user.ID)
	require.NoError(t, err)

	assert.Equal(t, "You spend most on housing.", report.Summary.Insights)
	assert.Equal(t, "housing", report.Summary.TopCategory)
	assert.Equal(t, "2400.00", report.Summary.NetChange.StringFixed(2))

	// The aggregation digest reaches the analyst prompt.
	require.Equal(t, 1, client.Calls())
	assert.Contains(t, client.Requests[0].Messages[0].Content, "Total income: $4000.00")

	latest, err := store.GetLatestSummary(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "You spend most on housing.", latest.Insights)
	assert.Equal(t, "6_months", latest.Period)
}

func TestAnalyzeFallsBackWhenCompletionFails(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := &model.User{Name: "Alex", Email: "alex@example.com", PasswordHash: "x"}
	require.NoError(t, store.CreateUser(ctx, user))

	client := completion.NewMock()
	client.FailWith(errors.New("unreachable"))
	analyzer := NewAnalyzer(store, client, nil, nil)

	report, err := analyzer.Analyze(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "No transactions recorded in the analysis period.", report.Summary.Insights)

	latest, err := store.GetLatestSummary(ctx, user.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, latest.Insights)
}
