package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

func validateContext(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context cannot be nil")
	}
	return nil
}

func validateString(value, name string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	return nil
}

// parseDecimal converts a stored decimal string back to a decimal.Decimal.
func parseDecimal(value, column string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("corrupt decimal in column %s: %w", column, err)
	}
	return d, nil
}

// storeDecimal renders a decimal for storage with exactly two fraction digits.
func storeDecimal(d decimal.Decimal) string {
	return d.StringFixed(2)
}
