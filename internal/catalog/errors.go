package catalog

import "fmt"

// ErrProductNotFound is returned when a referenced product row is absent.
type ErrProductNotFound struct {
	ProductID int64
}

func (e ErrProductNotFound) Error() string {
	return fmt.Sprintf("product %d not found", e.ProductID)
}

// ErrInsufficientStock is returned when a decrement would drive a product's
// on-hand quantity below zero. The commit it belongs to must abort entirely.
type ErrInsufficientStock struct {
	ProductID int64
	Requested int
	Available int
}

func (e ErrInsufficientStock) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// ErrValidation reports bad input shape or values on catalog writes.
type ErrValidation struct {
	Field  string
	Reason string
}

func (e ErrValidation) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ErrDuplicateCustomID is returned when a product create reuses an external code.
type ErrDuplicateCustomID struct {
	CustomID string
}

func (e ErrDuplicateCustomID) Error() string {
	return fmt.Sprintf("custom id %q already in use", e.CustomID)
}
