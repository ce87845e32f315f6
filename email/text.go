package email

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/etnz/orderledger"
	"github.com/etnz/orderledger/extract"
	"github.com/shopspring/decimal"
)

var grandTotalLabel = regexp.MustCompile(`(?i)grand[\s\p{Zs}]+total`)

// textOrder reads an order from the plain-text alternative of a confirmation.
// It has no product links, so items are never priced.
func textOrder(text string) *orderledger.Order {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	o := &orderledger.Order{}
	o.ID, _ = findOrderID(text)
	o.GrandTotal, _ = textGrandTotal(text)
	o.Items = textItems(text)
	o.DeliveryAddress = deliveryAddress(text)
	return o
}

// textGrandTotal returns the first amount following a "Grand Total" label.
func textGrandTotal(text string) (decimal.Decimal, bool) {
	for _, loc := range grandTotalLabel.FindAllStringIndex(text, -1) {
		if v, ok := extract.FindCurrency(text[loc[1]:]); ok {
			return v, v.IsPositive()
		}
	}
	return decimal.Zero, false
}

// textItems returns the lines immediately followed by a quantity line.
func textItems(text string) []orderledger.LineItem {
	ls := extract.Lines(text)
	d := newDedup()
	for i := 0; i+1 < len(ls); i++ {
		l, next := ls[i], ls[i+1]
		if !quantityLine.MatchString(next) || quantityLine.MatchString(l) {
			continue
		}
		if grandTotalLabel.MatchString(l) || strings.Contains(l, "Order #") {
			continue
		}
		name := CleanName(l)
		if utf8.RuneCountInString(name) <= 3 {
			continue
		}
		d.add(orderledger.LineItem{Name: name, Quantity: quantityIn(next)}, "")
	}
	return d.items
}
