package agent

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/moneywise-app/moneywise/internal/completion"
	"github.com/moneywise-app/moneywise/internal/ledger"
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

func newTestExecutor(t *testing.T, store *storage.Store) *Executor {
	t.Helper()
	return NewExecutor(ledger.New(store, nil), store, nil)
}

func newTestOrchestrator(t *testing.T, store *storage.Store, client completion.Client) *Orchestrator {
	t.Helper()
	return NewOrchestrator(store,
		NewContextBuilder(store, nil, nil),
		NewRegistry(),
		newTestExecutor(t, store),
		client, nil, nil)
}

func seedTestUser(t *testing.T, store *storage.Store, name, email string) *model.User {
	t.Helper()
	user := &model.User{Name: name, Email: email, PasswordHash: "x"}
	require.NoError(t, store.CreateUser(context.Background(), user))
	return user
}

func seedTestAccount(t *testing.T, store *storage.Store, userID, name string, accountType model.AccountType, balance string) *model.Account {
	t.Helper()
	account := &model.Account{
		UserID:   userID,
		Name:     name,
		Type:     accountType,
		Balance:  decimal.RequireFromString(balance),
		Currency: "USD",
	}
	require.NoError(t, store.CreateAccount(context.Background(), account))
	return account
}
