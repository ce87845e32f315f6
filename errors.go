package orderledger

import (
	"errors"
	"fmt"
	"strings"
)

// What a ParseError reports as missing.
const (
	MissingOrderID    = "order id"
	MissingGrandTotal = "grand total"
	MissingItems      = "items"
)

// ParseError is returned when a document does not contain a usable order.
type ParseError struct {
	Missing []string // what could not be recovered
	Err     error    // underlying causes, per representation
}

func (e *ParseError) Error() string {
	msg := "cannot parse order"
	if len(e.Missing) > 0 {
		msg += ": missing " + strings.Join(e.Missing, ", ")
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }

// MissingPriceError is returned by Allocate when an item has no unit price.
type MissingPriceError struct {
	Index int
	Name  string
}

func (e *MissingPriceError) Error() string {
	return fmt.Sprintf("item %d %q has no unit price", e.Index, e.Name)
}

var (
	// ErrEmptyAllocation is returned by Allocate when there is nothing to allocate.
	ErrEmptyAllocation = errors.New("no items to allocate")
	// ErrZeroSubtotal is returned by Allocate when the priced items sum to zero.
	ErrZeroSubtotal = errors.New("priced subtotal is zero")
	// ErrUnpricedItems is the reason for a consolidated fallback when prices are missing.
	ErrUnpricedItems = errors.New("some items have no unit price")
)
