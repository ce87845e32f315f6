package orderledger

import (
	"github.com/shopspring/decimal"
)

// cents is the precision allocated amounts are rounded to.
const cents = 2

// Tolerance is the largest acceptable difference between the allocated totals
// and the grand total.
var Tolerance = decimal.New(2, -2)

// AllocatedItem is a LineItem with its share of the order's tax.
type AllocatedItem struct {
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Subtotal  decimal.Decimal `json:"subtotal"` // UnitPrice * Quantity
	Tax       decimal.Decimal `json:"tax"`
	Total     decimal.Decimal `json:"total"` // Subtotal + Tax
}

// Allocation is the result of allocating an order's grand total to its items.
type Allocation struct {
	Items      []AllocatedItem `json:"items"`
	Subtotal   decimal.Decimal `json:"subtotal"` // sum of the priced subtotals
	Tax        decimal.Decimal `json:"tax"`      // GrandTotal - Subtotal, zero in proportional mode
	GrandTotal decimal.Decimal `json:"grandTotal"`

	// Proportional is true when prices exceeded the grand total: item amounts
	// were scaled down to the grand total and no tax is reported.
	Proportional bool `json:"proportional"`

	// Deviation is |sum(Total) - GrandTotal|.
	Deviation decimal.Decimal `json:"deviation"`
}

// Reconciled reports whether the allocated totals match the grand total within Tolerance.
func (a *Allocation) Reconciled() bool { return a.Deviation.LessThanOrEqual(Tolerance) }

// Allocate splits grandTotal over items. Every item must have a unit price.
//
// The tax (grandTotal minus the priced subtotal) is shared proportionally to
// each item's subtotal. Amounts are rounded to cents, except for the last
// item which receives the exact remainder, so that totals add up to grandTotal.
//
// When the priced subtotal exceeds grandTotal (stale or promotional prices) the
// tax would be negative: instead every item amount is scaled by
// grandTotal/subtotal, tax is zero and Allocation.Proportional is set.
func Allocate(items []LineItem, grandTotal decimal.Decimal) (*Allocation, error) {
	if len(items) == 0 {
		return nil, ErrEmptyAllocation
	}

	a := &Allocation{
		Items:      make([]AllocatedItem, len(items)),
		GrandTotal: grandTotal,
	}
	for i, it := range items {
		if !it.Priced() {
			return nil, &MissingPriceError{Index: i, Name: it.Name}
		}
		sub := it.UnitPrice.Decimal.Mul(decimal.NewFromInt(int64(it.Quantity)))
		a.Items[i] = AllocatedItem{
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice.Decimal,
			Subtotal:  sub,
		}
		a.Subtotal = a.Subtotal.Add(sub)
	}
	if a.Subtotal.IsZero() {
		return nil, ErrZeroSubtotal
	}

	totalTax := grandTotal.Sub(a.Subtotal)
	if totalTax.IsNegative() {
		a.scale()
	} else {
		a.Tax = totalTax
		a.share(totalTax)
	}

	sum := decimal.Zero
	for _, it := range a.Items {
		sum = sum.Add(it.Total)
	}
	a.Deviation = sum.Sub(grandTotal).Abs()
	return a, nil
}

// share allocates tax proportionally to the item subtotals, the last item
// absorbing the rounding remainder.
func (a *Allocation) share(tax decimal.Decimal) {
	last := len(a.Items) - 1
	assigned := decimal.Zero
	for i := range a.Items {
		it := &a.Items[i]
		if i == last {
			it.Tax = tax.Sub(assigned)
		} else {
			it.Tax = it.Subtotal.Mul(tax).Div(a.Subtotal).Round(cents)
			assigned = assigned.Add(it.Tax)
		}
		it.Total = it.Subtotal.Add(it.Tax)
	}
}

// scale scales every item down to the grand total, the last item absorbing the
// rounding remainder. Tax is zero.
func (a *Allocation) scale() {
	a.Proportional = true
	a.Tax = decimal.Zero
	last := len(a.Items) - 1
	assigned := decimal.Zero
	for i := range a.Items {
		it := &a.Items[i]
		if i == last {
			it.Subtotal = a.GrandTotal.Sub(assigned)
		} else {
			it.Subtotal = it.Subtotal.Mul(a.GrandTotal).Div(a.Subtotal).Round(cents)
			assigned = assigned.Add(it.Subtotal)
		}
		it.Tax = decimal.Zero
		it.Total = it.Subtotal
	}
}
