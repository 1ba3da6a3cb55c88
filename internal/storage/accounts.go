package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/moneywise-app/moneywise/internal/model"
)

// CreateAccount inserts a new account. A zero ID is generated.
func (s *Store) CreateAccount(ctx context.Context, account *model.Account) error {
	return createAccount(ctx, s.db, account)
}

// CreateAccount inserts a new account within the transaction.
func (t *Tx) CreateAccount(ctx context.Context, account *model.Account) error {
	return createAccount(ctx, t.tx, account)
}

// GetAccount returns the account with the given id, or ErrNotFound.
func (s *Store) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	return getAccount(ctx, s.db, id)
}

// GetAccount returns the account with the given id inside the transaction.
// With _txlock=immediate the read is already serialized against other
// writers, which makes it safe to follow with a balance update.
func (t *Tx) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	return getAccount(ctx, t.tx, id)
}

// GetAccountsByUser returns the user's accounts ordered by creation time.
// The earliest checking account is the user's primary account.
func (s *Store) GetAccountsByUser(ctx context.Context, userID string) ([]model.Account, error) {
	return getAccountsByUser(ctx, s.db, userID)
}

// GetAccountByUserAndType returns the user's oldest account of the given
// type, or ErrNotFound.
func (t *Tx) GetAccountByUserAndType(ctx context.Context, userID string, accountType model.AccountType) (*model.Account, error) {
	return getAccountByUserAndType(ctx, t.tx, userID, accountType)
}

// UpdateAccountBalance sets the account's balance. Only valid inside a
// transaction that also inserts the matching ledger row.
func (t *Tx) UpdateAccountBalance(ctx context.Context, accountID string, balance decimal.Decimal) error {
	if err := validateString(accountID, "accountID"); err != nil {
		return err
	}

	res, err := t.tx.ExecContext(ctx,
		`UPDATE accounts SET balance = ? WHERE id = ?`,
		storeDecimal(balance), accountID)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check balance update: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("account %s: %w", accountID, ErrNotFound)
	}
	return nil
}

func createAccount(ctx context.Context, q querier, account *model.Account) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if account == nil {
		return errors.New("account cannot be nil")
	}
	if err := validateString(account.UserID, "account.UserID"); err != nil {
		return err
	}

	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	if account.Currency == "" {
		account.Currency = "USD"
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}

	_, err := q.ExecContext(ctx,
		`INSERT INTO accounts (id, user_id, name, type, balance, currency, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		account.ID, account.UserID, account.Name, string(account.Type),
		storeDecimal(account.Balance), account.Currency, account.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}
	return nil
}

func getAccount(ctx context.Context, q querier, id string) (*model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := q.QueryRowContext(ctx,
		`SELECT id, user_id, name, type, balance, currency, created_at
		 FROM accounts WHERE id = ?`, id)
	return scanAccount(row)
}

func getAccountsByUser(ctx context.Context, q querier, userID string) ([]model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	rows, err := q.QueryContext(ctx,
		`SELECT id, user_id, name, type, balance, currency, created_at
		 FROM accounts WHERE user_id = ? ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var accounts []model.Account
	for rows.Next() {
		account, err := scanAccountRows(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *account)
	}
	return accounts, rows.Err()
}

func getAccountByUserAndType(ctx context.Context, q querier, userID string, accountType model.AccountType) (*model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	row := q.QueryRowContext(ctx,
		`SELECT id, user_id, name, type, balance, currency, created_at
		 FROM accounts WHERE user_id = ? AND type = ?
		 ORDER BY created_at, id LIMIT 1`, userID, string(accountType))
	return scanAccount(row)
}

func scanAccount(row *sql.Row) (*model.Account, error) {
	var (
		account model.Account
		accType string
		balance string
	)
	err := row.Scan(&account.ID, &account.UserID, &account.Name, &accType,
		&balance, &account.Currency, &account.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}

	account.Type = model.AccountType(accType)
	if account.Balance, err = parseDecimal(balance, "accounts.balance"); err != nil {
		return nil, err
	}
	return &account, nil
}

func scanAccountRows(rows *sql.Rows) (*model.Account, error) {
	var (
		account model.Account
		accType string
		balance string
	)
	err := rows.Scan(&account.ID, &account.UserID, &account.Name, &accType,
		&balance, &account.Currency, &account.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}

	account.Type = model.AccountType(accType)
	if account.Balance, err = parseDecimal(balance, "accounts.balance"); err != nil {
		return nil, err
	}
	return &account, nil
}
