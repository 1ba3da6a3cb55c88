package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moneywise-app/moneywise/internal/model"
)

func TestGetAccountBalanceByID(t *testing.T) {
	store := newTestStore(t)
	executor := newTestExecutor(t, store)
	user := seedTestUser(t, store, "Alex", "alex@example.com")
	account := seedTestAccount(t, store, user.ID, "Checking", model.AccountChecking, "1234.56")

	result := executor.Execute(context.Background(), user.ID, ToolGetAccountBalance,
		json.RawMessage(fmt.Sprintf(`{"accountId":%q}`, account.ID)))

	require.True(t, result.Success)
	assert.Equal(t, account.ID, result.Data["accountId"])
	assert.Equal(t, "Checking", result.Data["accountName"])
	assert.Equal(t, "1234.56", result.Data["balance"])
	assert.Equal(t, "USD", result.Data["currency"])
}

func TestGetAccountBalanceRejectsForeignAccount(t *testing.T) {
	store := newTestStore(t)
	executor := newTestExecutor(t, store)
	owner := seedTestUser(t, store, "Alex", "alex@example.com")
	other := seedTestUser(t, store, "Jamie", "jamie@example.com")
	account := seedTestAccount(t, store, owner.ID, "Checking", model.AccountChecking, "1000.00")

	result := executor.Execute(context.Background(), other.ID, ToolGetAccountBalance,
		json.RawMessage(fmt.Sprintf(`{"accountId":%q}`, account.ID)))

	require.False(t, result.Success)
	assert.Equal(t, "account not found or unauthorized", result.Error)
}

func TestGetAccountBalanceDefaultsToPrimaryChecking(t *testing.T) {
	store := newTestStore(t)
	executor := newTestExecutor(t, store)
	user := seedTestUser(t, store, "Alex", "alex@example.com")
	seedTestAccount(t, store, user.ID, "Savings", model.AccountSavings, "9000.00")
	checking := seedTestAccount(t, store, user.ID, "Checking", model.AccountChecking, "100.00")

	result := executor.Execute(context.Background(), user.ID, ToolGetAccountBalance, json.RawMessage(`{}`))

	require.True(t, result.Success)
	assert.Equal(t, checking.ID, result.Data["accountId"])
}

func TestGetAccountBalanceNoAccounts(t *testing.T) {
	store := newTestStore(t)
	executor := newTestExecutor(t, store)
	user := seedTestUser(t, store, "Alex", "alex@example.com")

	result := executor.Execute(context.Background(), user.ID, ToolGetAccountBalance, json.RawMessage(`{}`))

	require.False(t, result.Success)
	assert.Equal(t, "account not found", result.Error)
}

func TestWithdrawMoneyTool(t *testing.T) {
	store := newTestStore(t)
	executor := newTestExecutor(t, store)
	user := seedTestUser(t, store, "Alex", "alex@example.com")
	account := seedTestAccount(t, store, user.ID, "Checking", model.AccountChecking, "500.00")

	result := executor.Execute(context.Background(), user.ID, ToolWithdrawMoney,
		json.RawMessage(fmt.Sprintf(`{"accountId":%q,"amount":120.40}`, account.ID)))

	require.True(t, result.Success, result.Error)
	assert.Equal(t, "Successfully withdrew $120.40", result.Data["message"])

	txns, _, err := store.GetTransactionsByAccount(context.Background(), account.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, "AI Assistant Withdrawal", txns[0].Merchant)
	assert.Equal(t, "Withdrawal via AI chat", txns[0].Description)
}

func TestWithdrawMoneyToolInsufficientFunds(t *testing.T) {
	store := newTestStore(t)
	executor := newTestExecutor(t, store)
	user := seedTestUser(t, store, "Alex", "alex@example.com")
	account := seedTestAccount(t, store, user.ID, "Checking", model.AccountChecking, "10.00")

	result := executor.Execute(context.Background(), user.ID, ToolWithdrawMoney,
		json.RawMessage(fmt.Sprintf(`{"accountId":%q,"amount":9999}`, account.ID)))

	require.False(t, result.Success)
	assert.Contains(t, result.Error, "insufficient funds")
}

func TestTransferMoneyToolDestinationChoice(t *testing.T) {
	store := newTestStore(t)
	executor := newTestExecutor(t, store)
	user := seedTestUser(t, store, "Alex", "alex@example.com")
	from := seedTestAccount(t, store, user.ID, "Checking", model.AccountChecking, "500.00")

	result := executor.Execute(context.Background(), user.ID, ToolTransferMoney,
		json.RawMessage(fmt.Sprintf(`{"fromAccountId":%q,"amount":10}`, from.ID)))
	require.False(t, result.Success)
	assert.Contains(t, result.Error, "either toAccountId or recipientEmail")

	result = executor.Execute(context.Background(), user.ID, ToolTransferMoney,
		json.RawMessage(fmt.Sprintf(`{"fromAccountId":%q,"toAccountId":"a2","recipientEmail":"x@y.z","amount":10}`, from.ID)))
	require.False(t, result.Success)
	assert.Contains(t, result.Error, "mutually exclusive")
}

func TestTransferMoneyToolByEmail(t *testing.T) {
	store := newTestStore(t)
	executor := newTestExecutor(t, store)
	sender := seedTestUser(t, store, "Alex", "alex@example.com")
	recipient := seedTestUser(t, store, "Jamie", "jamie@example.com")
	from := seedTestAccount(t, store, sender.ID, "Checking", model.AccountChecking, "500.00")
	savings := seedTestAccount(t, store, recipient.ID, "Savings", model.AccountSavings, "0.00")

	result := executor.Execute(context.Background(), sender.ID, ToolTransferMoney,
		json.RawMessage(fmt.Sprintf(`{"fromAccountId":%q,"recipientEmail":"jamie@example.com","amount":75}`, from.ID)))

	require.True(t, result.Success, result.Error)
	assert.Equal(t, "Successfully transferred $75.00 to Jamie (jamie@example.com)", result.Data["message"])

	account, err := store.GetAccount(context.Background(), savings.ID)
	require.NoError(t, err)
	assert.Equal(t, "75.00", account.Balance.StringFixed(2))
}

func TestExecuteUnknownTool(t *testing.T) {
	store := newTestStore(t)
	executor := newTestExecutor(t, store)
	user := seedTestUser(t, store, "Alex", "alex@example.com")

	result := executor.Execute(context.Background(), user.ID, "delete_account", nil)
	require.False(t, result.Success)
	assert.Contains(t, result.Error, "unknown tool")
}
