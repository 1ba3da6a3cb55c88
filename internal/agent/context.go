package agent

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/moneywise-app/moneywise/internal/model"
	"github.com/moneywise-app/moneywise/internal/storage"
)

const (
	contextWindow     = 30 * 24 * time.Hour
	contextTxnLimit   = 20
	insightExcerptLen = 200
	topCategoryCount  = 3
)

// Recaller retrieves and records long-term conversational memory. It is
// optional; a nil Recaller disables recall.
type Recaller interface {
	Retrieve(ctx context.Context, userID, query string) ([]string, error)
	RecordExchange(ctx context.Context, userID, userMessage, assistantMessage string) error
}

// FinancialContext is the structured digest of a user's financial state
// used to ground the model. It is serialized to text only at the prompt
// boundary via Render.
type FinancialContext struct {
	Accounts      []AccountSummary
	Activity      *ActivitySummary
	TopCategories []CategoryTotal
	LastInsight   string
	Recall        []string
}

// AccountSummary is one account line of the digest.
type AccountSummary struct {
	ID       string
	Name     string
	Type     model.AccountType
	Balance  decimal.Decimal
	Currency string
}

// ActivitySummary aggregates the recent transaction window.
type ActivitySummary struct {
	Count       int
	TotalSpent  decimal.Decimal
	TotalIncome decimal.Decimal
}

// CategoryTotal is one spending category and its absolute debit total.
type CategoryTotal struct {
	Category string
	Total    decimal.Decimal
}

// ContextBuilder assembles FinancialContext values from the store and the
// optional memory recaller.
type ContextBuilder struct {
	store    *storage.Store
	recaller Recaller
	logger   *zap.Logger
}

// NewContextBuilder creates a builder. recaller may be nil.
func NewContextBuilder(store *storage.Store, recaller Recaller, logger *zap.Logger) *ContextBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContextBuilder{store: store, recaller: recaller, logger: logger}
}

// Build gathers the user's accounts, the last 30 days of activity (capped
// at the 20 most recent transactions), the latest stored insight and any
// memory recall hits for the query. Grounding is best-effort: a user with
// no data yields a context that renders to the empty string.
func (b *ContextBuilder) Build(ctx context.Context, userID, query string) (*FinancialContext, error) {
	fc := &FinancialContext{}

	accounts, err := b.store.GetAccountsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}
	for _, a := range accounts {
		fc.Accounts = append(fc.Accounts, AccountSummary{
			ID:       a.ID,
			Name:     a.Name,
			Type:     a.Type,
			Balance:  a.Balance,
			Currency: a.Currency,
		})
	}

	if len(accounts) > 0 {
		since := time.Now().UTC().Add(-contextWindow)
		txns, err := b.store.GetTransactionsByUserSince(ctx, userID, since, contextTxnLimit)
		if err != nil {
			return nil, fmt.Errorf("failed to load recent transactions: %w", err)
		}
		if len(txns) > 0 {
			fc.Activity = summarizeActivity(txns)
			fc.TopCategories = topCategories(txns, topCategoryCount)
		}
	}

	summary, err := b.store.GetLatestSummary(ctx, userID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to load latest summary: %w", err)
	}
	if summary != nil && summary.Insights != "" {
		fc.LastInsight = truncate(summary.Insights, insightExcerptLen)
	}

	if b.recaller != nil && query != "" {
		recall, err := b.recaller.Retrieve(ctx, userID, query)
		if err != nil {
			b.logger.Warn("memory retrieval failed", zap.Error(err))
		} else {
			fc.Recall = recall
		}
	}

	return fc, nil
}

func summarizeActivity(txns []model.Transaction) *ActivitySummary {
	activity := &ActivitySummary{Count: len(txns)}
	for _, t := range txns {
		if t.Amount.IsNegative() {
			activity.TotalSpent = activity.TotalSpent.Add(t.Amount.Abs())
		} else {
			activity.TotalIncome = activity.TotalIncome.Add(t.Amount)
		}
	}
	return activity
}

func topCategories(txns []model.Transaction, n int) []CategoryTotal {
	totals := make(map[string]decimal.Decimal)
	for _, t := range txns {
		if t.Amount.IsNegative() && t.Category != "" {
			totals[t.Category] = totals[t.Category].Add(t.Amount.Abs())
		}
	}

	categories := make([]CategoryTotal, 0, len(totals))
	for category, total := range totals {
		categories = append(categories, CategoryTotal{Category: category, Total: total})
	}
	sort.Slice(categories, func(i, j int) bool {
		if categories[i].Total.Equal(categories[j].Total) {
			return categories[i].Category < categories[j].Category
		}
		return categories[i].Total.GreaterThan(categories[j].Total)
	})

	if len(categories) > n {
		categories = categories[:n]
	}
	return categories
}

// Render serializes the context to the multi-line digest embedded in the
// system prompt. An empty context renders to the empty string.
func (c *FinancialContext) Render() string {
	var parts []string

	if len(c.Accounts) > 0 {
		lines := make([]string, 0, len(c.Accounts))
		for _, a := range c.Accounts {
			lines = append(lines, fmt.Sprintf("%s (%s): $%s", a.Name, a.Type, a.Balance.StringFixed(2)))
		}
		parts = append(parts, "User's accounts: "+strings.Join(lines, ", "))
	}

	if c.Activity != nil {
		parts = append(parts, fmt.Sprintf(
			"Recent activity (last 30 days): %d transactions, $%s spent, $%s income",
			c.Activity.Count, c.Activity.TotalSpent.StringFixed(2), c.Activity.TotalIncome.StringFixed(2)))
	}

	if len(c.TopCategories) > 0 {
		lines := make([]string, 0, len(c.TopCategories))
		for _, ct := range c.TopCategories {
			lines = append(lines, fmt.Sprintf("%s: $%s", ct.Category, ct.Total.StringFixed(2)))
		}
		parts = append(parts, "Top spending categories: "+strings.Join(lines, ", "))
	}

	if c.LastInsight != "" {
		parts = append(parts, "Recent insights: "+c.LastInsight)
	}

	if len(c.Recall) > 0 {
		lines := make([]string, 0, len(c.Recall)+1)
		lines = append(lines, "Relevant history:")
		for _, r := range c.Recall {
			lines = append(lines, "- "+r)
		}
		parts = append(parts, strings.Join(lines, "\n"))
	}

	return strings.Join(parts, "\n")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
