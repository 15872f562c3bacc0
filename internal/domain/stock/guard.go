// Package stock implements the inventory-sufficiency check performed before
// any cart quantity commit. It is pure: no I/O, no side effects.
package stock

import (
	"fmt"

	"github.com/go-faster/errors"
)

// ErrOutOfStock is returned when a product has no available inventory at all.
var ErrOutOfStock = errors.New("out of stock")

// InsufficientStockError indicates the requested quantity exceeds the
// available inventory.
type InsufficientStockError struct {
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("only %d available, you request %d", e.Available, e.Requested)
}

// Validate checks a requested quantity against the available inventory.
// It returns ErrOutOfStock when nothing is available and
// InsufficientStockError when the request exceeds what remains.
func Validate(requested, available int) error {
	if available == 0 {
		return ErrOutOfStock
	}
	if available < requested {
		return &InsufficientStockError{Available: available, Requested: requested}
	}
	return nil
}
