package ledger

import "errors"

// Error taxonomy for ledger operations. Handlers and the tool executor
// match on these with errors.Is; detail text is attached via %w wrapping.
var (
	// ErrValidation covers bad amounts, conflicting parameters and
	// self-transfers by email.
	ErrValidation = errors.New("validation failed")

	// ErrNotAuthorized means the acting user does not own the referenced
	// account.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrNotFound means the account or recipient does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientFunds means the source balance is below the amount.
	ErrInsufficientFunds = errors.New("insufficient funds")
)
