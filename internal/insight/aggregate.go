// Package insight aggregates transaction history into spending reports
// and generates natural-language analysis of them.
package insight

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/moneywise-app/moneywise/internal/model"
)

// anomalyFactor flags debits larger than this multiple of their
// category's average debit.
var anomalyFactor = decimal.NewFromFloat(2.5)

// MonthlyBreakdown is income and expenses for one calendar month.
type MonthlyBreakdown struct {
	Month    string          `json:"month"`
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
}

// CategoryBreakdown is the absolute debit total for one category.
type CategoryBreakdown struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
}

// Aggregation summarizes a set of transactions.
type Aggregation struct {
	TotalIncome   decimal.Decimal
	TotalExpenses decimal.Decimal
	NetChange     decimal.Decimal
	Monthly       []MonthlyBreakdown
	Categories    []CategoryBreakdown
	TopCategory   string
}

// Aggregate computes totals, a chronological monthly breakdown and a
// descending category breakdown. Credits count as income, debits as
// expenses; expense totals are reported as positive magnitudes.
func Aggregate(txns []model.Transaction) *Aggregation {
	agg := &Aggregation{}
	monthly := make(map[string]*MonthlyBreakdown)
	categories := make(map[string]decimal.Decimal)

	for _, t := range txns {
		month := t.Date.UTC().Format("2006-01")
		mb, ok := monthly[month]
		if !ok {
			mb = &MonthlyBreakdown{Month: month}
			monthly[month] = mb
		}

		if t.Amount.IsNegative() {
			spent := t.Amount.Abs()
			agg.TotalExpenses = agg.TotalExpenses.Add(spent)
			mb.Expenses = mb.Expenses.Add(spent)
			if t.Category != "" {
				categories[t.Category] = categories[t.Category].Add(spent)
			}
		} else {
			agg.TotalIncome = agg.TotalIncome.Add(t.Amount)
			mb.Income = mb.Income.Add(t.Amount)
		}
	}
	agg.NetChange = agg.TotalIncome.Sub(agg.TotalExpenses)

	agg.Monthly = make([]MonthlyBreakdown, 0, len(monthly))
	for _, mb := range monthly {
		agg.Monthly = append(agg.Monthly, *mb)
	}
	sort.Slice(agg.Monthly, func(i, j int) bool {
		return agg.Monthly[i].Month < agg.Monthly[j].Month
	})

	agg.Categories = make([]CategoryBreakdown, 0, len(categories))
	for category, total := range categories {
		agg.Categories = append(agg.Categories, CategoryBreakdown{Category: category, Total: total})
	}
	sort.Slice(agg.Categories, func(i, j int) bool {
		if agg.Categories[i].Total.Equal(agg.Categories[j].Total) {
			return agg.Categories[i].Category < agg.Categories[j].Category
		}
		return agg.Categories[i].Total.GreaterThan(agg.Categories[j].Total)
	})
	if len(agg.Categories) > 0 {
		agg.TopCategory = agg.Categories[0].Category
	}

	return agg
}

// DetectAnomalies returns debits whose magnitude exceeds 2.5 times the
// average debit of their category, plus any transactions already flagged
// at write time. A category with a single debit is its own average and
// never trips the threshold.
func DetectAnomalies(txns []model.Transaction) []model.Transaction {
	totals := make(map[string]decimal.Decimal)
	counts := make(map[string]int64)
	for _, t := range txns {
		if t.Amount.IsNegative() && t.Category != "" {
			totals[t.Category] = totals[t.Category].Add(t.Amount.Abs())
			counts[t.Category]++
		}
	}

	averages := make(map[string]decimal.Decimal, len(totals))
	for category, total := range totals {
		averages[category] = total.Div(decimal.NewFromInt(counts[category]))
	}

	var anomalies []model.Transaction
	for _, t := range txns {
		if t.IsAnomaly {
			anomalies = append(anomalies, t)
			continue
		}
		if !t.Amount.IsNegative() || t.Category == "" {
			continue
		}
		avg, ok := averages[t.Category]
		if ok && avg.IsPositive() && t.Amount.Abs().GreaterThan(avg.Mul(anomalyFactor)) {
			anomalies = append(anomalies, t)
		}
	}
	return anomalies
}
