package model

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition = errors.New("invalid deal status transition")
	ErrNotOwner          = errors.New("only the post owner may do this")
	ErrAuthorUnavailable = errors.New("post author is no longer available")
	ErrPostExpired       = errors.New("post is expired")
	ErrPostClosed        = errors.New("post is closed")
	ErrPostNotFound      = errors.New("post not found")
	ErrInvalidValidity   = errors.New("validity period must be one of the offered tiers")
)

// InsufficientCreditError carries required vs. available so callers can
// tell the user exactly how many credits they are short.
type InsufficientCreditError struct {
	Kind      CreditKind
	Required  int64
	Available int64
}

func (e *InsufficientCreditError) Error() string {
	return fmt.Sprintf("insufficient %s balance: need %d more (required %d, available %d)",
		e.Kind, e.Required-e.Available, e.Required, e.Available)
}

func IsInsufficientCredit(err error) bool {
	var target *InsufficientCreditError
	return errors.As(err, &target)
}
