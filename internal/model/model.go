// Package model defines the persistent entities of the moneywise ledger
// and chat transcript.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType enumerates the supported account kinds.
type AccountType string

const (
	AccountChecking   AccountType = "checking"
	AccountSavings    AccountType = "savings"
	AccountInvestment AccountType = "investment"
)

// User is a demo user who owns accounts and chat sessions.
type User struct {
	ID           string
	Name         string
	Email        string
	Avatar       string
	PasswordHash string
	CreatedAt    time.Time
}

// Account holds a running balance derived from its transactions.
// The balance must never change without a transaction row written in the
// same database transaction.
type Account struct {
	ID        string
	UserID    string
	Name      string
	Type      AccountType
	Balance   decimal.Decimal
	Currency  string
	CreatedAt time.Time
}

// Transaction is one signed ledger movement. Positive amounts are credits,
// negative amounts are debits. Rows are immutable once written.
type Transaction struct {
	ID           string
	AccountID    string
	Date         time.Time
	Amount       decimal.Decimal
	Merchant     string
	Category     string
	BalanceAfter decimal.Decimal
	IsAnomaly    bool
	Description  string
	CreatedAt    time.Time
}

// ChatSession groups the messages of one conversation.
type ChatSession struct {
	ID        string
	UserID    string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ChatMessage is one transcript entry. Role is "user" or "assistant".
type ChatMessage struct {
	ID        string
	SessionID string
	Role      string
	Content   string
	CreatedAt time.Time
}

// Summary is a stored financial analysis produced by the insight analyzer.
type Summary struct {
	ID            string
	UserID        string
	Period        string
	StartDate     time.Time
	EndDate       time.Time
	TotalIncome   decimal.Decimal
	TotalExpenses decimal.Decimal
	NetChange     decimal.Decimal
	TopCategory   string
	Insights      string
	CreatedAt     time.Time
}
