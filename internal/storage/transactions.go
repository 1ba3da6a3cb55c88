package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/moneywise-app/moneywise/internal/model"
)

// InsertTransaction appends a ledger row. Transactions are append-only;
// there is deliberately no update or delete.
func (s *Store) InsertTransaction(ctx context.Context, txn *model.Transaction) error {
	return insertTransaction(ctx, s.db, txn)
}

// InsertTransaction appends a ledger row within the transaction.
func (t *Tx) InsertTransaction(ctx context.Context, txn *model.Transaction) error {
	return insertTransaction(ctx, t.tx, txn)
}

// GetTransactionsByAccount returns one page of an account's transactions,
// newest first, along with the total row count for the account.
func (s *Store) GetTransactionsByAccount(ctx context.Context, accountID string, limit, offset int) ([]model.Transaction, int, error) {
	if err := validateContext(ctx); err != nil {
		return nil, 0, err
	}
	if err := validateString(accountID, "accountID"); err != nil {
		return nil, 0, err
	}
	if limit <= 0 {
		return nil, 0, errors.New("limit must be positive")
	}
	if offset < 0 {
		return nil, 0, errors.New("offset cannot be negative")
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE account_id = ?`, accountID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, account_id, date, amount, merchant, category, balance_after, is_anomaly, description, created_at
		 FROM transactions WHERE account_id = ?
		 ORDER BY date DESC, created_at DESC LIMIT ? OFFSET ?`,
		accountID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	txns, err := collectTransactions(rows)
	if err != nil {
		return nil, 0, err
	}
	return txns, total, nil
}

// GetTransactionsByUserSince returns transactions across all of the user's
// accounts dated on or after since, newest first. A limit of 0 means no
// limit.
func (s *Store) GetTransactionsByUserSince(ctx context.Context, userID string, since time.Time, limit int) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	query := `SELECT t.id, t.account_id, t.date, t.amount, t.merchant, t.category,
	                 t.balance_after, t.is_anomaly, t.description, t.created_at
	          FROM transactions t
	          JOIN accounts a ON a.id = t.account_id
	          WHERE a.user_id = ? AND t.date >= ?
	          ORDER BY t.date DESC, t.created_at DESC`
	args := []any{userID, since}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query user transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectTransactions(rows)
}

// CountTransactionsByAccount returns the number of ledger rows for an account.
func (s *Store) CountTransactionsByAccount(ctx context.Context, accountID string) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateString(accountID, "accountID"); err != nil {
		return 0, err
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE account_id = ?`, accountID).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return total, nil
}

func insertTransaction(ctx context.Context, q querier, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if txn == nil {
		return errors.New("transaction cannot be nil")
	}
	if err := validateString(txn.AccountID, "transaction.AccountID"); err != nil {
		return err
	}

	if txn.ID == "" {
		txn.ID = uuid.New().String()
	}
	if txn.Date.IsZero() {
		txn.Date = time.Now().UTC()
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now().UTC()
	}

	_, err := q.ExecContext(ctx,
		`INSERT INTO transactions (id, account_id, date, amount, merchant, category, balance_after, is_anomaly, description, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.ID, txn.AccountID, txn.Date, storeDecimal(txn.Amount), txn.Merchant,
		txn.Category, storeDecimal(txn.BalanceAfter), txn.IsAnomaly, txn.Description, txn.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

func collectTransactions(rows *sql.Rows) ([]model.Transaction, error) {
	var txns []model.Transaction
	for rows.Next() {
		var (
			txn          model.Transaction
			amount       string
			balanceAfter string
		)
		if err := rows.Scan(&txn.ID, &txn.AccountID, &txn.Date, &amount, &txn.Merchant,
			&txn.Category, &balanceAfter, &txn.IsAnomaly, &txn.Description, &txn.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}

		var err error
		if txn.Amount, err = parseDecimal(amount, "transactions.amount"); err != nil {
			return nil, err
		}
		if txn.BalanceAfter, err = parseDecimal(balanceAfter, "transactions.balance_after"); err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}
	return txns, rows.Err()
}
