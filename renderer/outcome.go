package renderer

import (
	"errors"
	"strings"

	"github.com/etnz/orderledger"
	"github.com/etnz/orderledger/extract"
	"github.com/etnz/orderledger/ledger"
	"github.com/shopspring/decimal"
)

// Outcome is the view of a processed document.
type Outcome struct {
	RunID           string
	OrderID         string
	GrandTotal      string
	DeliveryAddress string
	Mode            string
	Fallback        string
	Error           string
	Missing         []string
	Items           []Item
	Allocation      *Allocation
	Records         []Record
	RecordsTotal    string // sum of the records, when there are several
	Posting         []Posting
}

type Item struct {
	Name     string
	Quantity int
	Code     string // product code, when linked
	Link     string
}

type Allocation struct {
	Items        []AllocatedItem
	Subtotal     string
	Tax          string
	GrandTotal   string
	Proportional bool
	Reconciled   bool
	Deviation    string
}

type AllocatedItem struct {
	Name      string
	Quantity  int
	UnitPrice string
	Subtotal  string
	Tax       string
	Total     string
}

type Record struct {
	Date   string
	Payee  string
	Memo   string
	Amount string
}

type Posting struct {
	Key      string
	ImportID string
	Status   string
}

// NewOutcome builds the view of out, amounts in currency. results are the
// ledger postings of its records, if any.
func NewOutcome(out orderledger.Outcome, currency string, results []ledger.Result) *Outcome {
	money := func(d decimal.Decimal) string { return orderledger.M(d, currency).String() }

	o := &Outcome{RunID: out.ID, Mode: out.Mode.String()}
	if out.Err != nil {
		o.Error = out.Err.Error()
		if perr := asParseError(out.Err); perr != nil {
			o.Missing = perr.Missing
		}
		return o
	}
	if out.Fallback != nil {
		o.Fallback = out.Fallback.Error()
	}
	if order := out.Order; order != nil {
		o.OrderID = order.ID
		o.GrandTotal = money(order.GrandTotal)
		o.DeliveryAddress = order.DeliveryAddress
		for _, it := range order.Items {
			code, _ := extract.ProductCode(it.ProductURL)
			o.Items = append(o.Items, Item{Name: cell(it.Name), Quantity: it.Quantity, Code: code, Link: it.ProductURL})
		}
	}
	if a := out.Allocation; a != nil {
		v := &Allocation{
			Subtotal:     money(a.Subtotal),
			Tax:          money(a.Tax),
			GrandTotal:   money(a.GrandTotal),
			Proportional: a.Proportional,
			Reconciled:   a.Reconciled(),
			Deviation:    money(a.Deviation),
		}
		for _, it := range a.Items {
			v.Items = append(v.Items, AllocatedItem{
				Name:      cell(it.Name),
				Quantity:  it.Quantity,
				UnitPrice: money(it.UnitPrice),
				Subtotal:  money(it.Subtotal),
				Tax:       money(it.Tax),
				Total:     money(it.Total),
			})
		}
		o.Allocation = v
	}
	total := orderledger.M(0, "")
	for _, r := range out.Records {
		total = total.Add(r.Amount)
		o.Records = append(o.Records, Record{
			Date:   r.Date.String(),
			Payee:  cell(r.Payee),
			Memo:   cell(r.Memo),
			Amount: r.Amount.String(),
		})
	}
	if len(out.Records) > 1 {
		o.RecordsTotal = total.String()
	}
	for _, r := range results {
		p := Posting{Key: r.Key, ImportID: r.Transaction.ImportID, Status: "posted"}
		switch {
		case r.Duplicate:
			p.Status = "already in the ledger"
		case r.Err != nil:
			p.Status = cell("failed: " + r.Err.Error())
		}
		o.Posting = append(o.Posting, p)
	}
	return o
}

// RenderOutcome renders the Outcome struct to a markdown string.
func RenderOutcome(o *Outcome) string {
	partials := map[string]string{
		"outcome_failure":    "outcome_failure.md",
		"outcome_title":      "outcome_title.md",
		"outcome_items":      "outcome_items.md",
		"outcome_allocation": "outcome_allocation.md",
		"outcome_records":    "outcome_records.md",
		"outcome_posting":    "outcome_posting.md",
	}
	return renderTemplate("outcome", "outcome.md", partials, o)
}

// cell makes s safe for a table cell.
func cell(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "|", `\|`), "\n", " ")
}

func asParseError(err error) *orderledger.ParseError {
	var perr *orderledger.ParseError
	if errors.As(err, &perr) {
		return perr
	}
	return nil
}
