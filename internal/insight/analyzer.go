package insight

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/moneywise-app/moneywise/internal/completion"
	"github.com/moneywise-app/moneywise/internal/model"
	"github.com/moneywise-app/moneywise/internal/storage"
)

const (
	analysisWindowMonths = 6
	analysisPeriod       = "6_months"
	analysisMaxTokens    = 1024

	analysisSystemPrompt = `You are a financial analyst. Given a summary of a user's transaction history, write 2-3 short paragraphs of plain-language insights: where the money goes, how income compares to spending, and anything unusual worth flagging. Be specific with numbers and avoid generic advice.`
)

// InsightRecorder receives generated insights for long-term recall.
type InsightRecorder interface {
	RecordInsight(ctx context.Context, userID, insight string) error
}

// Report is the outcome of one analysis run.
type Report struct {
	Summary    model.Summary
	Monthly    []MonthlyBreakdown
	Categories []CategoryBreakdown
	Anomalies  []model.Transaction
}

// Analyzer aggregates six months of history, asks the completion service
// for a narrative, and persists the result as a Summary.
type Analyzer struct {
	store    *storage.Store
	client   completion.Client
	recorder InsightRecorder
	logger   *zap.Logger
}

// NewAnalyzer creates an Analyzer. recorder may be nil.
func NewAnalyzer(store *storage.Store, client completion.Client, recorder InsightRecorder, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{store: store, client: client, recorder: recorder, logger: logger}
}

// Analyze runs one analysis over the trailing six months. The completion
// call is best-effort: when it fails, the report falls back to a
// deterministic narrative so the endpoint keeps working offline.
func (a *Analyzer) Analyze(ctx context.Context, userID string) (*Report, error) {
	end := time.Now().UTC()
	start := end.AddDate(0, -analysisWindowMonths, 0)

	txns, err := a.store.GetTransactionsByUserSince(ctx, userID, start, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	agg := Aggregate(txns)
	anomalies := DetectAnomalies(txns)

	insights, err := a.narrate(ctx, agg, anomalies, len(txns))
	if err != nil {
		a.logger.Warn("insight narration unavailable, using fallback", zap.Error(err))
		insights = fallbackNarrative(agg, len(txns))
	}

	summary := model.Summary{
		UserID:        userID,
		Period:        analysisPeriod,
		StartDate:     start,
		EndDate:       end,
		TotalIncome:   agg.TotalIncome,
		TotalExpenses: agg.TotalExpenses,
		NetChange:     agg.NetChange,
		TopCategory:   agg.TopCategory,
		Insights:      insights,
	}
	if err := a.store.InsertSummary(ctx, &summary); err != nil {
		return nil, err
	}

	if a.recorder != nil {
		if err := a.recorder.RecordInsight(ctx, userID, insights); err != nil {
			a.logger.Warn("failed to record insight", zap.Error(err))
		}
	}

	a.logger.Info("analysis completed",
		zap.String("user_id", userID),
		zap.Int("transactions", len(txns)),
		zap.Int("anomalies", len(anomalies)))

	return &Report{
		Summary:    summary,
		Monthly:    agg.Monthly,
		Categories: agg.Categories,
		Anomalies:  anomalies,
	}, nil
}

func (a *Analyzer) narrate(ctx context.Context, agg *Aggregation, anomalies []model.Transaction, txnCount int) (string, error) {
	resp, err := a.client.Complete(ctx, &completion.Request{
		System: analysisSystemPrompt,
		Messages: []completion.Message{
			{Role: "user", Content: renderDigest(agg, anomalies, txnCount)},
		},
		MaxTokens: analysisMaxTokens,
	})
	if err != nil {
		return "", err
	}
	if resp.Text == "" {
		return "", fmt.Errorf("empty analysis response")
	}
	return resp.Text, nil
}

// renderDigest serializes the aggregation as the analyst prompt.
func renderDigest(agg *Aggregation, anomalies []model.Transaction, txnCount int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Transaction history for the last %d months (%d transactions):\n", analysisWindowMonths, txnCount)
	fmt.Fprintf(&b, "Total income: $%s\n", agg.TotalIncome.StringFixed(2))
	fmt.Fprintf(&b, "Total expenses: $%s\n", agg.TotalExpenses.StringFixed(2))
	fmt.Fprintf(&b, "Net change: $%s\n", agg.NetChange.StringFixed(2))

	if len(agg.Monthly) > 0 {
		b.WriteString("Monthly breakdown:\n")
		for _, m := range agg.Monthly {
			fmt.Fprintf(&b, "- %s: income $%s, expenses $%s\n", m.Month, m.Income.StringFixed(2), m.Expenses.StringFixed(2))
		}
	}
	if len(agg.Categories) > 0 {
		b.WriteString("Spending by category:\n")
		for _, c := range agg.Categories {
			fmt.Fprintf(&b, "- %s: $%s\n", c.Category, c.Total.StringFixed(2))
		}
	}
	if len(anomalies) > 0 {
		b.WriteString("Unusual transactions:\n")
		for _, t := range anomalies {
			fmt.Fprintf(&b, "- %s at %s: $%s (%s)\n",
				t.Date.UTC().Format("2006-01-02"), t.Merchant, t.Amount.Abs().StringFixed(2), t.Category)
		}
	}
	return b.String()
}

// fallbackNarrative produces a deterministic summary when the completion
// service is unreachable.
func fallbackNarrative(agg *Aggregation, txnCount int) string {
	if txnCount == 0 {
		return "No transactions recorded in the analysis period."
	}
	narrative := fmt.Sprintf(
		"Over the last %d months you recorded %d transactions with $%s income and $%s expenses, a net change of $%s.",
		analysisWindowMonths, txnCount,
		agg.TotalIncome.StringFixed(2), agg.TotalExpenses.StringFixed(2), agg.NetChange.StringFixed(2))
	if agg.TopCategory != "" {
		narrative += fmt.Sprintf(" Your largest spending category was %s.", agg.TopCategory)
	}
	return narrative
}
