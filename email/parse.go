// Package email reads order confirmation emails: the order they describe, and
// the HTML and text parts of the raw message.
package email

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/etnz/orderledger"
	"github.com/etnz/orderledger/extract"
)

// Parser reads orders from confirmation documents.
type Parser struct {
	// Now stamps the parsed orders, time.Now when nil.
	Now func() time.Time
}

// Parse reads an order with a zero Parser.
func Parse(html, text string) (*orderledger.Order, error) {
	var p Parser
	return p.Parse(html, text)
}

// Parse reads the order from the HTML representation of a confirmation, and
// falls back to its plain-text representation when the HTML does not hold a
// complete order.
//
// The error is a *orderledger.ParseError when neither representation holds an
// order id, a grand total and at least one item.
func (p *Parser) Parse(html, text string) (*orderledger.Order, error) {
	var errs []error
	var missing []string
	if strings.TrimSpace(html) != "" {
		o, err := p.parseHTML(html)
		if err == nil {
			return o, nil
		}
		missing = missingOf(err)
		errs = append(errs, fmt.Errorf("html: %w", err))
	}
	if strings.TrimSpace(text) != "" {
		o, err := p.parseText(text)
		if err == nil {
			return o, nil
		}
		if missing == nil {
			missing = missingOf(err)
		}
		errs = append(errs, fmt.Errorf("text: %w", err))
	}
	if len(errs) == 0 {
		errs = append(errs, errors.New("empty document"))
		missing = []string{orderledger.MissingOrderID, orderledger.MissingGrandTotal, orderledger.MissingItems}
	}
	return nil, &orderledger.ParseError{Missing: missing, Err: errors.Join(errs...)}
}

func (p *Parser) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

func (p *Parser) parseHTML(src string) (*orderledger.Order, error) {
	h, err := newHTMLOrder(decodeQuotedPrintable(src))
	if err != nil {
		return nil, err
	}

	o := &orderledger.Order{OrderDate: p.now()}
	o.ID, _ = h.orderID()
	o.GrandTotal, _ = h.grandTotal()
	o.Items, _ = h.items()
	o.DeliveryAddress = deliveryAddress(h.text)
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return o, nil
}

func (p *Parser) parseText(src string) (*orderledger.Order, error) {
	o := textOrder(decodeQuotedPrintable(src))
	o.OrderDate = p.now()
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return o, nil
}

func newHTMLOrder(src string) (*htmlOrder, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("cannot read html: %w", err)
	}
	return &htmlOrder{doc: doc, text: extract.BlockText(doc.Selection)}, nil
}

func missingOf(err error) []string {
	var perr *orderledger.ParseError
	if errors.As(err, &perr) {
		return perr.Missing
	}
	return nil
}
