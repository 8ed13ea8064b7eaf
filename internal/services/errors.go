package services

import (
	"errors"
	"fmt"
)

var (
	ErrShopNotFound         = errors.New("shop not found")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrNoSession            = errors.New("no session for shop")
)

// ValidationError is a caller error: the request payload failed structural
// validation. Handlers map it to a 400 with the field list; everything else
// bubbling out of a service is an operational failure.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %d field(s)", len(e.Fields))
}
