package domain

import "errors"

// Sentinel errors for ledger and registry outcomes. None of them is
// fatal: callers treat them as a no-op for the attempted operation.
var (
	ErrInsufficientFunds     = errors.New("insufficient_funds")
	ErrInsufficientInventory = errors.New("insufficient_inventory")
	ErrInsufficientHoldings  = errors.New("insufficient_holdings")
	ErrNotHeld               = errors.New("not_held")
	ErrNonPositiveQuantity   = errors.New("non_positive_quantity")
	ErrUnknownTicker         = errors.New("unknown_ticker")
	ErrUnknownAction         = errors.New("unknown_action")
	ErrDuplicateTicker       = errors.New("duplicate_ticker")
	ErrBrokerNotFound        = errors.New("broker_not_found")
	ErrDuplicateBroker       = errors.New("duplicate_broker")
)

// ValidationError represents a seed or configuration validation failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
