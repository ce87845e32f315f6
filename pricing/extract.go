package pricing

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/PuerkitoBio/goquery"
	"github.com/etnz/orderledger/extract"
	"github.com/shopspring/decimal"
)

// priceSelectors go from the most specific price widget to generic price
// labelled elements.
var priceSelectors = []string{
	"#corePrice_feature_div .a-price .a-offscreen",
	"#corePriceDisplay_desktop_feature_div .a-price .a-offscreen",
	"#apex_desktop .a-price .a-offscreen",
	"#priceblock_dealprice",
	"#priceblock_ourprice",
	"#price_inside_buybox",
	"#newBuyBoxPrice",
	".a-price .a-offscreen",
	"[itemprop=price]",
	".price",
}

// offerPaths locate the price of a schema.org Product in JSON-LD.
var offerPaths = []string{"$.offers.price", "$.offers[0].price", "$..price"}

// maxScannedPrice bounds the amounts accepted by the document scan.
var maxScannedPrice = decimal.NewFromInt(10000)

// ExtractPrice returns the unit price shown on a product page. It tries the
// known price selectors, then the JSON-LD offers, then a scan of the page text.
func ExtractPrice(page []byte) (decimal.Decimal, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return decimal.Zero, false
	}
	return extract.First[decimal.Decimal](
		func() (decimal.Decimal, bool) { return selectorPrice(doc) },
		func() (decimal.Decimal, bool) { return jsonLDPrice(doc) },
		func() (decimal.Decimal, bool) { return scanPrice(doc) },
	)
}

// selectorPrice reads the first priced element of the first matching selector.
// Struck-through list prices are ignored.
func selectorPrice(doc *goquery.Document) (price decimal.Decimal, ok bool) {
	for _, sel := range priceSelectors {
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if s.Closest(".a-text-price").Length() > 0 {
				return true
			}
			label := strings.TrimSpace(s.Text())
			if content, has := s.Attr("content"); has && label == "" {
				label = content
			}
			if v, found := extract.ParseAmount(label); found && v.IsPositive() {
				price, ok = v, true
				return false
			}
			return true
		})
		if ok {
			return price, true
		}
	}
	return decimal.Zero, false
}

// jsonLDPrice reads the offer price of the structured data blocks.
func jsonLDPrice(doc *goquery.Document) (price decimal.Decimal, ok bool) {
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var data any
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			return true
		}
		for _, path := range offerPaths {
			val, err := jsonpath.Get(path, data)
			if err != nil {
				continue
			}
			if v, found := lowestPrice(val); found {
				price, ok = v, true
				return false
			}
		}
		return true
	})
	return price, ok
}

// lowestPrice returns the lowest positive price of a jsonpath result, which
// is either a single value or a list of them.
func lowestPrice(val any) (decimal.Decimal, bool) {
	values, isList := val.([]any)
	if !isList {
		values = []any{val}
	}
	var lowest decimal.Decimal
	found := false
	for _, v := range values {
		var p decimal.Decimal
		var ok bool
		switch v := v.(type) {
		case float64:
			p, ok = decimal.NewFromFloat(v), true
		case string:
			p, ok = extract.ParseAmount(v)
		}
		if !ok || !p.IsPositive() {
			continue
		}
		if !found || p.LessThan(lowest) {
			lowest, found = p, true
		}
	}
	return lowest, found
}

// scanPrice returns the first plausible currency amount of the page text that
// is not presented as a former or list price.
func scanPrice(doc *goquery.Document) (decimal.Decimal, bool) {
	text := extract.BlockText(doc.Find("body"))
	prev := 0
	for _, m := range extract.FindAllCurrency(text) {
		// the label of an amount is the text since the previous amount on the
		// same or the previous line, up to 30 bytes.
		start := max(prev, m.Start-30, previousLine(text, m.Start))
		label := strings.ToLower(text[start:m.Start])
		prev = m.End
		if strings.Contains(label, "list") || strings.Contains(label, "was") {
			continue
		}
		if m.Value.IsPositive() && m.Value.LessThan(maxScannedPrice) {
			return m.Value, true
		}
	}
	return decimal.Zero, false
}

// previousLine returns the offset of the line before the one holding offset i.
func previousLine(text string, i int) int {
	cur := strings.LastIndexByte(text[:i], '\n')
	if cur <= 0 {
		return 0
	}
	return strings.LastIndexByte(text[:cur], '\n') + 1
}
