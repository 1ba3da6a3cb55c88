// Package ledger implements the atomic money-movement primitives. Every
// operation runs inside a single store transaction: the balance read, the
// sufficiency check, the ledger inserts and the balance updates either all
// commit or none do.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/moneywise-app/moneywise/internal/model"
	"github.com/moneywise-app/moneywise/internal/storage"
)

// Engine performs ledger mutations on behalf of an acting user.
type Engine struct {
	store  *storage.Store
	logger *zap.Logger
}

// New creates an Engine backed by the given store.
func New(store *storage.Store, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{store: store, logger: logger}
}

// TransferResult describes the two legs of a completed transfer.
type TransferResult struct {
	Debit         model.Transaction
	Credit        model.Transaction
	RecipientName string
}

// Deposit credits amount to the account. The account must exist and belong
// to userID, and amount must be positive.
func (e *Engine) Deposit(ctx context.Context, userID, accountID string, amount decimal.Decimal, merchant, description string) (*model.Transaction, error) {
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if merchant == "" {
		merchant = "Deposit"
	}

	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	account, err := e.ownedAccount(ctx, tx, userID, accountID)
	if err != nil {
		return nil, err
	}

	newBalance := account.Balance.Add(amount)
	txn := &model.Transaction{
		AccountID:    account.ID,
		Date:         time.Now().UTC(),
		Amount:       amount,
		Merchant:     merchant,
		Category:     "income",
		BalanceAfter: newBalance,
		Description:  description,
	}

	if err := tx.InsertTransaction(ctx, txn); err != nil {
		return nil, err
	}
	if err := tx.UpdateAccountBalance(ctx, account.ID, newBalance); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit deposit: %w", err)
	}

	e.logger.Info("deposit completed",
		zap.String("account_id", account.ID),
		zap.String("amount", amount.StringFixed(2)),
		zap.String("balance", newBalance.StringFixed(2)))
	return txn, nil
}

// Withdraw debits amount from the account. Requires ownership and a balance
// of at least amount.
func (e *Engine) Withdraw(ctx context.Context, userID, accountID string, amount decimal.Decimal, merchant, description string) (*model.Transaction, error) {
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if merchant == "" {
		merchant = "Withdrawal"
	}

	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	account, err := e.ownedAccount(ctx, tx, userID, accountID)
	if err != nil {
		return nil, err
	}
	if account.Balance.LessThan(amount) {
		return nil, fmt.Errorf("%w: balance %s is below %s",
			ErrInsufficientFunds, account.Balance.StringFixed(2), amount.StringFixed(2))
	}

	newBalance := account.Balance.Sub(amount)
	txn := &model.Transaction{
		AccountID:    account.ID,
		Date:         time.Now().UTC(),
		Amount:       amount.Neg(),
		Merchant:     merchant,
		Category:     "transfer",
		BalanceAfter: newBalance,
		Description:  description,
	}

	if err := tx.InsertTransaction(ctx, txn); err != nil {
		return nil, err
	}
	if err := tx.UpdateAccountBalance(ctx, account.ID, newBalance); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit withdrawal: %w", err)
	}

	e.logger.Info("withdrawal completed",
		zap.String("account_id", account.ID),
		zap.String("amount", amount.StringFixed(2)),
		zap.String("balance", newBalance.StringFixed(2)))
	return txn, nil
}

// TransferByAccount moves amount between two accounts owned by userID.
// Both legs and both balance updates commit in one transaction.
func (e *Engine) TransferByAccount(ctx context.Context, userID, fromAccountID, toAccountID string, amount decimal.Decimal, description string, assistant bool) (*TransferResult, error) {
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if fromAccountID == toAccountID {
		return nil, fmt.Errorf("%w: source and destination accounts are the same", ErrValidation)
	}

	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	from, err := e.ownedAccount(ctx, tx, userID, fromAccountID)
	if err != nil {
		return nil, fmt.Errorf("source account: %w", err)
	}
	to, err := e.ownedAccount(ctx, tx, userID, toAccountID)
	if err != nil {
		return nil, fmt.Errorf("destination account: %w", err)
	}

	recipientName := fmt.Sprintf("%s (%s)", to.Name, to.Type)
	result, err := e.transfer(ctx, tx, from, to, amount, recipientName, from.Name, description, assistant)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transfer: %w", err)
	}

	e.logger.Info("transfer completed",
		zap.String("from", from.ID),
		zap.String("to", to.ID),
		zap.String("amount", amount.StringFixed(2)))
	return result, nil
}

// TransferByRecipient moves amount from the user's account to another
// user's savings account, resolved by exact email match. Transfers to the
// acting user's own email are rejected; account-to-account mode exists for
// that.
func (e *Engine) TransferByRecipient(ctx context.Context, userID, fromAccountID, recipientEmail string, amount decimal.Decimal, description string, assistant bool) (*TransferResult, error) {
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if recipientEmail == "" {
		return nil, fmt.Errorf("%w: recipient email is required", ErrValidation)
	}

	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	from, err := e.ownedAccount(ctx, tx, userID, fromAccountID)
	if err != nil {
		return nil, fmt.Errorf("source account: %w", err)
	}

	recipient, err := tx.GetUserByEmail(ctx, recipientEmail)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: recipient user", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if recipient.ID == userID {
		return nil, fmt.Errorf("%w: cannot transfer to yourself by email, use account-to-account transfer", ErrValidation)
	}

	to, err := tx.GetAccountByUserAndType(ctx, recipient.ID, model.AccountSavings)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: recipient has no savings account", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	sender, err := tx.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	recipientName := fmt.Sprintf("%s (%s)", recipient.Name, recipient.Email)
	result, err := e.transfer(ctx, tx, from, to, amount, recipientName, sender.Name, description, assistant)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transfer: %w", err)
	}

	e.logger.Info("transfer completed",
		zap.String("from", from.ID),
		zap.String("to", to.ID),
		zap.String("recipient", recipient.Email),
		zap.String("amount", amount.StringFixed(2)))
	return result, nil
}

// transfer writes the debit and credit legs plus both balance updates
// inside the caller's transaction.
func (e *Engine) transfer(ctx context.Context, tx *storage.Tx, from, to *model.Account, amount decimal.Decimal, recipientName, senderName, description string, assistant bool) (*TransferResult, error) {
	if from.Balance.LessThan(amount) {
		return nil, fmt.Errorf("%w: balance %s is below %s",
			ErrInsufficientFunds, from.Balance.StringFixed(2), amount.StringFixed(2))
	}

	prefix := ""
	if assistant {
		prefix = "AI "
		if description == "" {
			description = "Transfer via AI chat"
		}
	}

	now := time.Now().UTC()
	newFromBalance := from.Balance.Sub(amount)
	newToBalance := to.Balance.Add(amount)

	debit := model.Transaction{
		AccountID:    from.ID,
		Date:         now,
		Amount:       amount.Neg(),
		Merchant:     fmt.Sprintf("%sTransfer to %s", prefix, recipientName),
		Category:     "transfer",
		BalanceAfter: newFromBalance,
		Description:  description,
	}
	credit := model.Transaction{
		AccountID:    to.ID,
		Date:         now,
		Amount:       amount,
		Merchant:     fmt.Sprintf("%sTransfer from %s", prefix, senderName),
		Category:     "transfer",
		BalanceAfter: newToBalance,
		Description:  description,
	}

	if err := tx.InsertTransaction(ctx, &debit); err != nil {
		return nil, err
	}
	if err := tx.UpdateAccountBalance(ctx, from.ID, newFromBalance); err != nil {
		return nil, err
	}
	if err := tx.InsertTransaction(ctx, &credit); err != nil {
		return nil, err
	}
	if err := tx.UpdateAccountBalance(ctx, to.ID, newToBalance); err != nil {
		return nil, err
	}

	return &TransferResult{Debit: debit, Credit: credit, RecipientName: recipientName}, nil
}

// ownedAccount loads an account and verifies it belongs to userID.
func (e *Engine) ownedAccount(ctx context.Context, tx *storage.Tx, userID, accountID string) (*model.Account, error) {
	if accountID == "" {
		return nil, fmt.Errorf("%w: account id is required", ErrValidation)
	}

	account, err := tx.GetAccount(ctx, accountID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: account %s", ErrNotFound, accountID)
	}
	if err != nil {
		return nil, err
	}
	if account.UserID != userID {
		return nil, fmt.Errorf("%w: account %s", ErrNotAuthorized, accountID)
	}
	return account, nil
}
