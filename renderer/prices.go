package renderer

import (
	"bytes"

	"github.com/etnz/orderledger"
	md "github.com/nao1215/markdown"
	"github.com/shopspring/decimal"
)

// Price is the result of one price lookup.
type Price struct {
	Ref   string // as given
	Page  string // product page, empty when Ref is not a product link
	Price decimal.NullDecimal
}

// PricesMarkdown renders price lookups as a table.
func PricesMarkdown(prices []Price, currency string) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1("Unit Prices")
	table := md.TableSet{
		Header: []string{"Product", "Page", md.Bold("Unit Price")},
	}
	found := 0
	for _, p := range prices {
		page, price := p.Page, "unknown"
		if page == "" {
			page = "not a product link"
		}
		if p.Price.Valid {
			price = orderledger.M(p.Price.Decimal, currency).String()
			found++
		}
		table.Rows = append(table.Rows, []string{cell(p.Ref), page, price})
	}
	doc.Table(table)
	doc.PlainTextf("%d of %d prices found.", found, len(prices))
	return doc.String()
}
