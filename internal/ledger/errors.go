package ledger

import (
	"errors"
	"fmt"
)

// ErrInvalidRequest marks precondition violations: non-positive amounts,
// overpayment, a credit sale without a customer. Wrapped with a descriptive
// reason; never retried.
var ErrInvalidRequest = errors.New("invalid request")

// ErrNotFound marks a referenced entity that does not exist.
var ErrNotFound = errors.New("not found")

// InsufficientStockError reports a sale line asking for more units than the
// product has available.
type InsufficientStockError struct {
	ProductName string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: available %d, requested %d", e.ProductName, e.Available, e.Requested)
}

// Is lets callers match the error class with errors.Is against ErrInvalidRequest.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInvalidRequest
}

func invalidRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

func notFound(entity, id string) error {
	return fmt.Errorf("%w: %s %s", ErrNotFound, entity, id)
}
