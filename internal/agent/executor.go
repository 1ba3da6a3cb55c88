package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/moneywise-app/moneywise/internal/ledger"
	"github.com/moneywise-app/moneywise/internal/model"
	"github.com/moneywise-app/moneywise/internal/storage"
)

// Result is the normalized outcome of one tool execution.
type Result struct {
	Success bool           `json:"success"`
	Data    map[string]any `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// Invocation records one tool call made during a chat turn: the name and
// arguments the model supplied plus the execution result.
type Invocation struct {
	ToolName string          `json:"toolName"`
	Args     json.RawMessage `json:"args"`
	Result   Result          `json:"result"`
}

// Executor runs validated tool calls against the ledger engine on behalf
// of the acting user. Engine errors are converted to failed Results and
// never propagate; a tool failure must not abort the conversation turn.
type Executor struct {
	engine *ledger.Engine
	store  *storage.Store
	logger *zap.Logger
}

// NewExecutor creates an Executor.
func NewExecutor(engine *ledger.Engine, store *storage.Store, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{engine: engine, store: store, logger: logger}
}

// Execute dispatches one tool call. The name must be in the closed tool
// set; arguments are assumed schema-validated by the caller.
func (e *Executor) Execute(ctx context.Context, userID, name string, args json.RawMessage) Result {
	var result Result
	switch name {
	case ToolGetAccountBalance:
		result = e.getAccountBalance(ctx, userID, args)
	case ToolWithdrawMoney:
		result = e.withdrawMoney(ctx, userID, args)
	case ToolTransferMoney:
		result = e.transferMoney(ctx, userID, args)
	default:
		result = failure(fmt.Sprintf("unknown tool: %s", name))
	}

	e.logger.Info("tool executed",
		zap.String("tool", name),
		zap.String("user_id", userID),
		zap.Bool("success", result.Success))
	return result
}

func (e *Executor) getAccountBalance(ctx context.Context, userID string, args json.RawMessage) Result {
	var in struct {
		AccountID string `json:"accountId"`
	}
	if err := unmarshalArgs(args, &in); err != nil {
		return failure(err.Error())
	}

	var (
		account *model.Account
		err     error
	)
	if in.AccountID != "" {
		account, err = e.store.GetAccount(ctx, in.AccountID)
		if err == nil && account.UserID != userID {
			// Ownership is mandatory even on reads; an account id from the
			// model is not a capability.
			return failure("account not found or unauthorized")
		}
	} else {
		account, err = e.primaryAccount(ctx, userID)
	}
	if errors.Is(err, storage.ErrNotFound) {
		return failure("account not found")
	}
	if err != nil {
		return failure(err.Error())
	}

	return Result{
		Success: true,
		Data: map[string]any{
			"accountId":   account.ID,
			"accountName": account.Name,
			"balance":     account.Balance.StringFixed(2),
			"currency":    account.Currency,
		},
	}
}

func (e *Executor) withdrawMoney(ctx context.Context, userID string, args json.RawMessage) Result {
	var in struct {
		AccountID string      `json:"accountId"`
		Amount    json.Number `json:"amount"`
	}
	if err := unmarshalArgs(args, &in); err != nil {
		return failure(err.Error())
	}

	amount, err := parseAmount(in.Amount)
	if err != nil {
		return failure(err.Error())
	}

	if _, err := e.engine.Withdraw(ctx, userID, in.AccountID, amount,
		"AI Assistant Withdrawal", "Withdrawal via AI chat"); err != nil {
		return failure(err.Error())
	}

	return Result{
		Success: true,
		Data: map[string]any{
			"message": fmt.Sprintf("Successfully withdrew $%s", amount.StringFixed(2)),
			"amount":  amount.StringFixed(2),
		},
	}
}

func (e *Executor) transferMoney(ctx context.Context, userID string, args json.RawMessage) Result {
	var in struct {
		FromAccountID  string      `json:"fromAccountId"`
		ToAccountID    string      `json:"toAccountId"`
		RecipientEmail string      `json:"recipientEmail"`
		Amount         json.Number `json:"amount"`
		Description    string      `json:"description"`
	}
	if err := unmarshalArgs(args, &in); err != nil {
		return failure(err.Error())
	}

	if in.ToAccountID == "" && in.RecipientEmail == "" {
		return failure("either toAccountId or recipientEmail must be provided")
	}
	if in.ToAccountID != "" && in.RecipientEmail != "" {
		return failure("toAccountId and recipientEmail are mutually exclusive")
	}

	amount, err := parseAmount(in.Amount)
	if err != nil {
		return failure(err.Error())
	}

	var result *ledger.TransferResult
	if in.ToAccountID != "" {
		result, err = e.engine.TransferByAccount(ctx, userID, in.FromAccountID, in.ToAccountID, amount, in.Description, true)
	} else {
		result, err = e.engine.TransferByRecipient(ctx, userID, in.FromAccountID, in.RecipientEmail, amount, in.Description, true)
	}
	if err != nil {
		return failure(err.Error())
	}

	return Result{
		Success: true,
		Data: map[string]any{
			"message": fmt.Sprintf("Successfully transferred $%s to %s", amount.StringFixed(2), result.RecipientName),
			"amount":  amount.StringFixed(2),
		},
	}
}

// primaryAccount returns the user's earliest checking account, falling back
// to the earliest account of any type.
func (e *Executor) primaryAccount(ctx context.Context, userID string) (*model.Account, error) {
	accounts, err := e.store.GetAccountsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, storage.ErrNotFound
	}

	for i := range accounts {
		if accounts[i].Type == model.AccountChecking {
			return &accounts[i], nil
		}
	}
	return &accounts[0], nil
}

func unmarshalArgs(args json.RawMessage, v any) error {
	if len(args) == 0 {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("invalid tool arguments: %w", err)
	}
	return nil
}

// parseAmount converts the model-supplied number to a decimal without going
// through binary floating point.
func parseAmount(n json.Number) (decimal.Decimal, error) {
	if n == "" {
		return decimal.Decimal{}, errors.New("amount is required")
	}
	amount, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid amount %q", n.String())
	}
	if !amount.IsPositive() {
		return decimal.Decimal{}, errors.New("amount must be positive")
	}
	return amount.Round(2), nil
}

func failure(msg string) Result {
	return Result{Success: false, Error: msg}
}
