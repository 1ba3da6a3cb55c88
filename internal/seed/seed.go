// Package seed loads demo users, accounts and transaction history into
// an empty database. Seeding is idempotent: a user whose email already
// exists is skipped.
package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/moneywise-app/moneywise/internal/model"
	"github.com/moneywise-app/moneywise/internal/storage"
)

// DemoPassword is the password of every seeded user.
const DemoPassword = "password123"

const historyMonths = 6

type demoUser struct {
	name  string
	email string
}

var demoUsers = []demoUser{
	{name: "Alex Johnson", email: "alex@example.com"},
	{name: "Jamie Smith", email: "jamie@example.com"},
}

// A recurring monthly movement. Positive amounts are credits.
type movement struct {
	day      int
	amount   decimal.Decimal
	merchant string
	category string
}

func monthlyPattern() []movement {
	return []movement{
		{1, dec("4200.00"), "Employer Payroll", "income"},
		{2, dec("-1500.00"), "Oakwood Apartments", "housing"},
		{3, dec("-120.45"), "City Grocers", "food"},
		{5, dec("-15.99"), "StreamFlix", "entertainment"},
		{8, dec("-64.20"), "Metro Transit", "transport"},
		{10, dec("-95.30"), "City Grocers", "food"},
		{14, dec("-48.75"), "Corner Bistro", "dining"},
		{17, dec("-110.00"), "City Grocers", "food"},
		{21, dec("-32.50"), "Corner Bistro", "dining"},
		{24, dec("-89.99"), "Gadget Hut", "shopping"},
		{26, dec("-70.15"), "City Grocers", "food"},
	}
}

// Run seeds the demo dataset.
func Run(ctx context.Context, store *storage.Store, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash demo password: %w", err)
	}

	for i, du := range demoUsers {
		if _, err := store.GetUserByEmail(ctx, du.email); err == nil {
			logger.Info("seed user already exists, skipping", zap.String("email", du.email))
			continue
		} else if !errors.Is(err, storage.ErrNotFound) {
			return err
		}

		user := &model.User{
			Name:         du.name,
			Email:        du.email,
			PasswordHash: string(hash),
		}
		if err := store.CreateUser(ctx, user); err != nil {
			return err
		}

		if err := seedAccounts(ctx, store, user, i); err != nil {
			return err
		}
		logger.Info("seeded demo user", zap.String("email", du.email))
	}
	return nil
}

func seedAccounts(ctx context.Context, store *storage.Store, user *model.User, userIndex int) error {
	now := time.Now().UTC()
	start := now.AddDate(0, -historyMonths, 0)

	checking := &model.Account{
		UserID:    user.ID,
		Name:      "Main Checking",
		Type:      model.AccountChecking,
		Balance:   dec("2500.00"),
		Currency:  "USD",
		CreatedAt: start,
	}
	savings := &model.Account{
		UserID:    user.ID,
		Name:      "Savings",
		Type:      model.AccountSavings,
		Balance:   dec("8000.00"),
		Currency:  "USD",
		CreatedAt: start,
	}

	// Transactions are written with running balance-after values; the
	// opening balance is whatever makes the final balance match the
	// account row.
	txns := checkingHistory(start, now, userIndex)
	var net decimal.Decimal
	for _, t := range txns {
		net = net.Add(t.Amount)
	}
	running := checking.Balance.Sub(net)

	if err := store.CreateAccount(ctx, checking); err != nil {
		return err
	}
	if err := store.CreateAccount(ctx, savings); err != nil {
		return err
	}

	for i := range txns {
		txns[i].AccountID = checking.ID
		running = running.Add(txns[i].Amount)
		txns[i].BalanceAfter = running
		if err := store.InsertTransaction(ctx, &txns[i]); err != nil {
			return err
		}
	}
	return nil
}

// checkingHistory generates the monthly pattern over the history window,
// chronologically, plus one oversized purchase in the second-to-last
// month for the anomaly detector to find.
func checkingHistory(start, now time.Time, userIndex int) []model.Transaction {
	var txns []model.Transaction

	// Stagger users slightly so their histories are not identical.
	jitter := decimal.NewFromInt(int64(userIndex * 7))

	for m := 0; m < historyMonths; m++ {
		monthStart := time.Date(start.Year(), start.Month(), 1, 12, 0, 0, 0, time.UTC).AddDate(0, m+1, 0)
		for _, mv := range monthlyPattern() {
			date := monthStart.AddDate(0, 0, mv.day-1)
			if date.After(now) {
				continue
			}
			amount := mv.amount
			if amount.IsNegative() {
				amount = amount.Sub(jitter)
			}
			txns = append(txns, model.Transaction{
				Date:     date,
				Amount:   amount,
				Merchant: mv.merchant,
				Category: mv.category,
			})
		}

		if m == historyMonths-2 {
			txns = append(txns, model.Transaction{
				Date:     monthStart.AddDate(0, 0, 18),
				Amount:   dec("-1899.00"),
				Merchant: "Gadget Hut",
				Category: "shopping",
			})
		}
	}
	return txns
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
