package orderledger

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// Order is one parsed purchase confirmation.
type Order struct {
	ID              string          `json:"id"`         // DDD-DDDDDDD-DDDDDDD
	GrandTotal      decimal.Decimal `json:"grandTotal"` // tax included
	Items           []LineItem      `json:"items"`      // in document order
	DeliveryAddress string          `json:"deliveryAddress,omitempty"`
	OrderDate       time.Time       `json:"orderDate"` // parse time, documents rarely carry a reliable one
}

// LineItem is one product entry of an Order.
type LineItem struct {
	Name       string              `json:"name"`
	Quantity   int                 `json:"quantity"`
	ProductURL string              `json:"productUrl,omitempty"` // empty when the document has no product link
	UnitPrice  decimal.NullDecimal `json:"unitPrice"`            // invalid until looked up
}

// Priced reports whether the item has a unit price.
func (i LineItem) Priced() bool { return i.UnitPrice.Valid }

// Validate checks the invariants of a parse result.
func (o *Order) Validate() error {
	var missing []string
	if o.ID == "" {
		missing = append(missing, MissingOrderID)
	}
	if !o.GrandTotal.IsPositive() {
		missing = append(missing, MissingGrandTotal)
	}
	if len(o.Items) == 0 {
		missing = append(missing, MissingItems)
	}
	if len(missing) > 0 {
		return &ParseError{Missing: missing}
	}
	return nil
}

// WithPrices returns a copy of the order whose items carry prices, index by index.
// Missing trailing prices leave items unpriced. The receiver is not modified.
func (o Order) WithPrices(prices []decimal.NullDecimal) Order {
	o.Items = slices.Clone(o.Items)
	for i := range o.Items {
		if i < len(prices) {
			o.Items[i].UnitPrice = prices[i]
		}
	}
	return o
}

// ItemNames returns the names of all items, in order.
func (o Order) ItemNames() []string {
	names := make([]string, 0, len(o.Items))
	for _, it := range o.Items {
		names = append(names, it.Name)
	}
	return names
}

// Unpriced returns the names of the items without a unit price.
func (o Order) Unpriced() []string {
	var names []string
	for _, it := range o.Items {
		if !it.Priced() {
			names = append(names, it.Name)
		}
	}
	return names
}
