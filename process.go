package orderledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/etnz/orderledger/date"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Parser turns a raw order confirmation into an Order.
type Parser interface {
	Parse(html, text string) (*Order, error)
}

// PriceLookup resolves product pages to unit prices. It never fails: an
// unknown price is an invalid NullDecimal at the same index.
type PriceLookup interface {
	UnitPrices(ctx context.Context, urls []string) []decimal.NullDecimal
}

// Mode tells how an order was turned into records.
type Mode int

const (
	ModeSingle       Mode = iota + 1 // one item, one record at the grand total
	ModeItemized                     // one record per allocated item
	ModeConsolidated                 // itemization failed, one record for the whole order
)

func (m Mode) String() string {
	switch m {
	case ModeSingle:
		return "single"
	case ModeItemized:
		return "itemized"
	case ModeConsolidated:
		return "consolidated"
	}
	return "none"
}

func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// Record is a postable amount with its description.
type Record struct {
	Amount Money     `json:"amount"` // expense amount, positive
	Payee  string    `json:"payee"`
	Memo   string    `json:"memo"`
	Date   date.Date `json:"date"`
	Key    string    `json:"key"` // stable per order and line, for idempotent posting
}

// Outcome is the result of processing one document.
type Outcome struct {
	ID         string      `json:"id"` // processing run
	Order      *Order      `json:"order,omitempty"`
	Mode       Mode        `json:"mode"`
	Allocation *Allocation `json:"allocation,omitempty"`
	Records    []Record    `json:"records"`
	Fallback   error       `json:"-"` // why itemization was abandoned, if it was
	Err        error       `json:"-"` // the document could not be understood
}

// Success reports whether the document produced records.
func (o *Outcome) Success() bool { return o.Err == nil }

// DefaultPayee is the payee label of records when Processor.Payee is empty.
const DefaultPayee = "Amazon"

// DefaultCurrency is the currency of records when Processor.Currency is empty.
const DefaultCurrency = "USD"

// Processor runs the reconciliation pipeline on one document at a time.
type Processor struct {
	Parser   Parser
	Prices   PriceLookup
	Payee    string
	Currency string
	Logger   *zap.Logger
}

func (p *Processor) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}

func (p *Processor) payee() string {
	if p.Payee == "" {
		return DefaultPayee
	}
	return p.Payee
}

func (p *Processor) currency() string {
	if p.Currency == "" {
		return DefaultCurrency
	}
	return p.Currency
}

// Process parses a document and turns it into postable records.
//
// Only a parse failure fails the outcome. Multi-item orders are itemized when
// every item gets a price, otherwise, or on any error while itemizing, the
// whole order becomes a single consolidated record.
func (p *Processor) Process(ctx context.Context, html, text string) Outcome {
	out := Outcome{ID: uuid.NewString()}
	log := p.logger().With(zap.String("run", out.ID))

	order, err := p.Parser.Parse(html, text)
	if err != nil {
		log.Warn("cannot parse order", zap.Error(err))
		out.Err = err
		return out
	}
	out.Order = order
	log = log.With(zap.String("order", order.ID))
	log.Info("parsed order",
		zap.Stringer("grandTotal", order.GrandTotal),
		zap.Int("items", len(order.Items)),
		zap.Strings("names", order.ItemNames()))

	if len(order.Items) == 1 {
		out.Mode = ModeSingle
		out.Records = []Record{p.single(order)}
		log.Info("single item order", zap.Stringer("mode", out.Mode))
		return out
	}

	alloc, err := p.itemize(ctx, log, order)
	if err != nil {
		log.Warn("itemization abandoned, falling back to a consolidated record", zap.Error(err))
		out.Mode = ModeConsolidated
		out.Fallback = err
		out.Records = []Record{p.consolidated(order)}
		return out
	}
	out.Mode = ModeItemized
	out.Allocation = alloc
	out.Records = p.itemized(order, alloc)
	log.Info("itemized order", zap.Stringer("mode", out.Mode), zap.Int("records", len(out.Records)))
	return out
}

// itemize prices and allocates a multi-item order. Panics are turned into errors
// so that the caller can fall back.
func (p *Processor) itemize(ctx context.Context, log *zap.Logger, order *Order) (alloc *Allocation, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected failure while itemizing: %v", r)
		}
	}()

	if p.Prices == nil {
		return nil, errors.New("no price lookup configured")
	}

	var urls []string
	var index []int
	for i, it := range order.Items {
		if it.ProductURL != "" {
			urls = append(urls, it.ProductURL)
			index = append(index, i)
		}
	}
	fetched := p.Prices.UnitPrices(ctx, urls)
	prices := make([]decimal.NullDecimal, len(order.Items))
	for j, i := range index {
		if j < len(fetched) {
			prices[i] = fetched[j]
		}
	}
	priced := order.WithPrices(prices)

	if missing := priced.Unpriced(); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnpricedItems, strings.Join(missing, ", "))
	}

	alloc, err = Allocate(priced.Items, priced.GrandTotal)
	if err != nil {
		return nil, fmt.Errorf("cannot allocate tax: %w", err)
	}
	if alloc.Proportional {
		log.Warn("fetched prices exceed the grand total, amounts scaled without tax",
			zap.Stringer("subtotal", alloc.Subtotal),
			zap.Stringer("grandTotal", alloc.GrandTotal))
	}
	if !alloc.Reconciled() {
		log.Warn("allocated totals do not reconcile with the grand total",
			zap.Stringer("deviation", alloc.Deviation))
	}
	return alloc, nil
}

func (p *Processor) single(order *Order) Record {
	it := order.Items[0]
	return Record{
		Amount: M(order.GrandTotal, p.currency()),
		Payee:  p.payee(),
		Memo:   itemMemo(order.ID, it.Name, it.Quantity),
		Date:   date.Of(order.OrderDate),
		Key:    order.ID,
	}
}

func (p *Processor) consolidated(order *Order) Record {
	return Record{
		Amount: M(order.GrandTotal, p.currency()),
		Payee:  p.payee(),
		Memo:   fmt.Sprintf("Order #%s: %s", order.ID, strings.Join(order.ItemNames(), ", ")),
		Date:   date.Of(order.OrderDate),
		Key:    order.ID,
	}
}

func (p *Processor) itemized(order *Order, alloc *Allocation) []Record {
	records := make([]Record, 0, len(alloc.Items))
	for i, it := range alloc.Items {
		records = append(records, Record{
			Amount: M(it.Total, p.currency()),
			Payee:  p.payee(),
			Memo:   itemMemo(order.ID, it.Name, it.Quantity),
			Date:   date.Of(order.OrderDate),
			Key:    fmt.Sprintf("%s#%d", order.ID, i+1),
		})
	}
	return records
}

func itemMemo(orderID, name string, qty int) string {
	if qty > 1 {
		return fmt.Sprintf("%s (x%d) - Order #%s", name, qty, orderID)
	}
	return fmt.Sprintf("%s - Order #%s", name, orderID)
}
