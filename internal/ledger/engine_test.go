package ledger

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moneywise-app/moneywise/internal/model"
	"github.com/moneywise-app/moneywise/internal/storage"
)

func newTestEngine(t *testing.T) (*Engine, *storage.Store) {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Migrate(context.Background()))
	return New(store, nil), store
}

func seedUser(t *testing.T, store *storage.Store, name, email string) *model.User {
	t.Helper()
	user := &model.User{Name: name, Email: email, PasswordHash: "x"}
	require.NoError(t, store.CreateUser(context.Background(), user))
	return user
}

func seedAccount(t *testing.T, store *storage.Store, userID string, accountType model.AccountType, balance string) *model.Account {
	t.Helper()
	account := &model.Account{
		UserID:   userID,
		Name:     "Test " + string(accountType),
		Type:     accountType,
		Balance:  decimal.RequireFromString(balance),
		Currency: "USD",
	}
	require.NoError(t, store.CreateAccount(context.Background(), account))
	return account
}

func accountBalance(t *testing.T, store *storage.Store, id string) decimal.Decimal {
	t.Helper()
	account, err := store.GetAccount(context.Background(), id)
	require.NoError(t, err)
	return account.Balance
}

func transactionCount(t *testing.T, store *storage.Store, accountID string) int {
	t.Helper()
	n, err := store.CountTransactionsByAccount(context.Background(), accountID)
	require.NoError(t, err)
	return n
}

func TestDeposit(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()
	user := seedUser(t, store, "Alex", "alex@example.com")
	account := seedAccount(t, store, user.ID, model.AccountChecking, "500.00")

	txn, err := engine.Deposit(ctx, user.ID, account.ID, decimal.RequireFromString("100.50"), "", "payday")
	require.NoError(t, err)

	assert.Equal(t, "100.50", txn.Amount.StringFixed(2))
	assert.Equal(t, "Deposit", txn.Merchant)
	assert.Equal(t, "income", txn.Category)
	assert.Equal(t, "600.50", txn.BalanceAfter.StringFixed(2))
	assert.Equal(t, "600.50", accountBalance(t, store, account.ID).StringFixed(2))
	assert.Equal(t, 1, transactionCount(t, store, account.ID))
}

func TestDepositRejectsNonPositiveAmount(t *testing.T) {
	engine, store := newTestEngine(t)
	user := seedUser(t, store, "Alex", "alex@example.com")
	account := seedAccount(t, store, user.ID, model.AccountChecking, "500.00")

	_, err := engine.Deposit(context.Background(), user.ID, account.ID, decimal.Zero, "", "")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 0, transactionCount(t, store, account.ID))
}

func TestWithdraw(t *testing.T) {
	engine, store := newTestEngine(t)
	user := seedUser(t, store, "Alex", "alex@example.com")
	account := seedAccount(t, store, user.ID, model.AccountChecking, "500.00")

	txn, err := engine.Withdraw(context.Background(), user.ID, account.ID, decimal.RequireFromString("75.25"), "ATM", "")
	require.NoError(t, err)

	assert.Equal(t, "-75.25", txn.Amount.StringFixed(2))
	assert.Equal(t, "ATM", txn.Merchant)
	assert.Equal(t, "transfer", txn.Category)
	assert.Equal(t, "424.75", accountBalance(t, store, account.ID).StringFixed(2))
}

func TestWithdrawInsufficientFundsLeavesNoTrace(t *testing.T) {
	engine, store := newTestEngine(t)
	user := seedUser(t, store, "Alex", "alex@example.com")
	account := seedAccount(t, store, user.ID, model.AccountChecking, "50.00")

	_, err := engine.Withdraw(context.Background(), user.ID, account.ID, decimal.RequireFromString("50.01"), "", "")
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, "50.00", accountBalance(t, store, account.ID).StringFixed(2))
	assert.Equal(t, 0, transactionCount(t, store, account.ID))
}

func TestWithdrawRequiresOwnership(t *testing.T) {
	engine, store := newTestEngine(t)
	owner := seedUser(t, store, "Alex", "alex@example.com")
	other := seedUser(t, store, "Jamie", "jamie@example.com")
	account := seedAccount(t, store, owner.ID, model.AccountChecking, "500.00")

	_, err := engine.Withdraw(context.Background(), other.ID, account.ID, decimal.RequireFromString("10.00"), "", "")
	assert.ErrorIs(t, err, ErrNotAuthorized)

	_, err = engine.Withdraw(context.Background(), other.ID, "missing", decimal.RequireFromString("10.00"), "", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTransferByAccount(t *testing.T) {
	engine, store := newTestEngine(t)
	user := seedUser(t, store, "Alex", "alex@example.com")
	checking := seedAccount(t, store, user.ID, model.AccountChecking, "500.00")
	savings := seedAccount(t, store, user.ID, model.AccountSavings, "100.00")

	result, err := engine.TransferByAccount(context.Background(), user.ID, checking.ID, savings.ID,
		decimal.RequireFromString("200.00"), "rainy day", false)
	require.NoError(t, err)

	assert.Equal(t, "-200.00", result.Debit.Amount.StringFixed(2))
	assert.Equal(t, "200.00", result.Credit.Amount.StringFixed(2))
	assert.Equal(t, "Transfer to Test savings (savings)", result.Debit.Merchant)
	assert.Equal(t, "Transfer from Test checking", result.Credit.Merchant)

	assert.Equal(t, "300.00", accountBalance(t, store, checking.ID).StringFixed(2))
	assert.Equal(t, "300.00", accountBalance(t, store, savings.ID).StringFixed(2))
	assert.Equal(t, 1, transactionCount(t, store, checking.ID))
	assert.Equal(t, 1, transactionCount(t, store, savings.ID))
}

func TestTransferByAccountRejectsSameAccount(t *testing.T) {
	engine, store := newTestEngine(t)
	user := seedUser(t, store, "Alex", "alex@example.com")
	account := seedAccount(t, store, user.ID, model.AccountChecking, "500.00")

	_, err := engine.TransferByAccount(context.Background(), user.ID, account.ID, account.ID,
		decimal.RequireFromString("10.00"), "", false)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTransferByAccountRequiresDestinationOwnership(t *testing.T) {
	engine, store := newTestEngine(t)
	user := seedUser(t, store, "Alex", "alex@example.com")
	other := seedUser(t, store, "Jamie", "jamie@example.com")
	from := seedAccount(t, store, user.ID, model.AccountChecking, "500.00")
	foreign := seedAccount(t, store, other.ID, model.AccountSavings, "0.00")

	_, err := engine.TransferByAccount(context.Background(), user.ID, from.ID, foreign.ID,
		decimal.RequireFromString("10.00"), "", false)
	assert.ErrorIs(t, err, ErrNotAuthorized)
	assert.Equal(t, "500.00", accountBalance(t, store, from.ID).StringFixed(2))
}

func TestTransferInsufficientFundsIsAtomic(t *testing.T) {
	engine, store := newTestEngine(t)
	user := seedUser(t, store, "Alex", "alex@example.com")
	checking := seedAccount(t, store, user.ID, model.AccountChecking, "10.00")
	savings := seedAccount(t, store, user.ID, model.AccountSavings, "0.00")

	_, err := engine.TransferByAccount(context.Background(), user.ID, checking.ID, savings.ID,
		decimal.RequireFromString("10.01"), "", false)
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	assert.Equal(t, "10.00", accountBalance(t, store, checking.ID).StringFixed(2))
	assert.Equal(t, "0.00", accountBalance(t, store, savings.ID).StringFixed(2))
	assert.Equal(t, 0, transactionCount(t, store, checking.ID))
	assert.Equal(t, 0, transactionCount(t, store, savings.ID))
}

func TestTransferByRecipient(t *testing.T) {
	engine, store := newTestEngine(t)
	sender := seedUser(t, store, "Alex", "alex@example.com")
	recipient := seedUser(t, store, "Jamie", "jamie@example.com")
	from := seedAccount(t, store, sender.ID, model.AccountChecking, "500.00")
	seedAccount(t, store, recipient.ID, model.AccountChecking, "0.00")
	savings := seedAccount(t, store, recipient.ID, model.AccountSavings, "0.00")

	result, err := engine.TransferByRecipient(context.Background(), sender.ID, from.ID, "jamie@example.com",
		decimal.RequireFromString("50.00"), "", true)
	require.NoError(t, err)

	// Email transfers land in the recipient's savings account, and the
	// assistant path tags both legs.
	assert.Equal(t, savings.ID, result.Credit.AccountID)
	assert.Equal(t, "AI Transfer to Jamie (jamie@example.com)", result.Debit.Merchant)
	assert.Equal(t, "AI Transfer from Alex", result.Credit.Merchant)
	assert.Equal(t, "Transfer via AI chat", result.Debit.Description)
	assert.Equal(t, "50.00", accountBalance(t, store, savings.ID).StringFixed(2))
	assert.Equal(t, "450.00", accountBalance(t, store, from.ID).StringFixed(2))
}

func TestTransferByRecipientRejectsSelf(t *testing.T) {
	engine, store := newTestEngine(t)
	user := seedUser(t, store, "Alex", "alex@example.com")
	from := seedAccount(t, store, user.ID, model.AccountChecking, "500.00")
	seedAccount(t, store, user.ID, model.AccountSavings, "0.00")

	_, err := engine.TransferByRecipient(context.Background(), user.ID, from.ID, "alex@example.com",
		decimal.RequireFromString("10.00"), "", false)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTransferByRecipientUnknownEmail(t *testing.T) {
	engine, store := newTestEngine(t)
	user := seedUser(t, store, "Alex", "alex@example.com")
	from := seedAccount(t, store, user.ID, model.AccountChecking, "500.00")

	_, err := engine.TransferByRecipient(context.Background(), user.ID, from.ID, "nobody@example.com",
		decimal.RequireFromString("10.00"), "", false)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentWithdrawalsSerialize(t *testing.T) {
	engine, store := newTestEngine(t)
	user := seedUser(t, store, "Alex", "alex@example.com")
	account := seedAccount(t, store, user.ID, model.AccountChecking, "100.00")

	const workers = 10
	amount := decimal.RequireFromString("30.00")

	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = engine.Withdraw(context.Background(), user.ID, account.ID, amount, "", "")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrInsufficientFunds)
		}
	}

	// Only three withdrawals fit in the starting balance; the rest must
	// observe the updated balance, never a stale one.
	assert.Equal(t, 3, succeeded)
	assert.Equal(t, "10.00", accountBalance(t, store, account.ID).StringFixed(2))
	assert.Equal(t, 3, transactionCount(t, store, account.ID))
}
