package agent

import "github.com/moneywise-app/moneywise/internal/completion"

// The closed set of tool names the model may invoke. Dispatch matches on
// these constants; any other name is rejected before business logic runs.
const (
	ToolGetAccountBalance = "get_account_balance"
	ToolWithdrawMoney     = "withdraw_money"
	ToolTransferMoney     = "transfer_money"
)

// Definition declares one callable tool: name, model-facing description and
// parameter schema.
type Definition struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// Definitions returns the three financial tools exposed to the model.
// Execution is always bound to the acting user's id; the arguments can
// select accounts but never the identity.
func Definitions() []Definition {
	return []Definition{
		{
			Name:        ToolGetAccountBalance,
			Description: "Get the current balance of the user's account. Use this when the user asks about their balance or available funds.",
			InputSchema: ObjectSchema(map[string]any{
				"accountId": StringProperty("The account ID to check balance for. If not specified, the user's primary account is used."),
			}),
		},
		{
			Name:        ToolWithdrawMoney,
			Description: "Withdraw money from the user's account. Use this when the user wants to withdraw cash or move money out of their account to external destinations.",
			InputSchema: ObjectSchema(map[string]any{
				"accountId": StringProperty("The account ID to withdraw from"),
				"amount":    NumberProperty("The amount to withdraw in dollars"),
			}, "accountId", "amount"),
		},
		{
			Name:        ToolTransferMoney,
			Description: "Transfer money between the user's own accounts or to another user. Provide toAccountId for transfers between own accounts, or recipientEmail for transfers to other users, never both.",
			InputSchema: ObjectSchema(map[string]any{
				"fromAccountId":  StringProperty("The account ID to transfer from"),
				"toAccountId":    StringProperty("The account ID to transfer to (for transfers between own accounts)"),
				"recipientEmail": StringProperty("The email of the recipient user (for transfers to other users)"),
				"amount":         NumberProperty("The amount to transfer in dollars"),
				"description":    StringProperty("Optional description for the transfer"),
			}, "fromAccountId", "amount"),
		},
	}
}

// Registry maps tool names to definitions for lookup during dispatch.
type Registry struct {
	defs map[string]Definition
}

// NewRegistry builds the registry from Definitions.
func NewRegistry() *Registry {
	defs := make(map[string]Definition)
	for _, def := range Definitions() {
		defs[def.Name] = def
	}
	return &Registry{defs: defs}
}

// Get returns the definition for name.
func (r *Registry) Get(name string) (Definition, bool) {
	def, ok := r.defs[name]
	return def, ok
}

// CompletionTools renders the registry as completion-service tool
// declarations.
func (r *Registry) CompletionTools() []completion.Tool {
	defs := Definitions()
	tools := make([]completion.Tool, 0, len(defs))
	for _, def := range defs {
		tools = append(tools, completion.Tool{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: def.InputSchema,
		})
	}
	return tools
}
