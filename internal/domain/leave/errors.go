package leave

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("leave request not found")
	ErrForbidden    = errors.New("not allowed to perform this action")
	ErrInvalidState = errors.New("transition not allowed from current status")
)

type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalidInput(field, reason string) error {
	return &InvalidInputError{Field: field, Reason: reason}
}
