package entitlement

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("no entitlement configured for that year and type")
	ErrNegativeDays = errors.New("annual and carryover days must be non-negative")
)

// InsufficientBalanceError carries the figures so the caller can explain
// the shortfall ("available: 3, requested: 5").
type InsufficientBalanceError struct {
	Available int
	Requested int
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: available %d, requested %d", e.Available, e.Requested)
}
