package email

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/etnz/orderledger"
	"github.com/etnz/orderledger/extract"
	"github.com/shopspring/decimal"
)

var (
	// orderIDPattern tolerates Unicode spaces and zero-width characters between
	// the marker and the id.
	orderIDPattern = regexp.MustCompile(`Order[\s\p{Zs}]*#[\s\p{Zs}\x{200B}\x{200C}\x{200D}\x{2060}\x{FEFF}]*(\d{3}-\d{7}-\d{7})`)
	standaloneID   = regexp.MustCompile(`(?:^|[^\d-])(\d{3}-\d{7}-\d{7})(?:[^\d-]|$)`)
	quantityLine   = regexp.MustCompile(`Quantity:[\s\p{Zs}]*(\d+)`)
)

// promoMarkers identify recommendation and sponsored links mixed with the ordered items.
var promoMarkers = []string{"pd_sim", "pd_rd_", "crossSell", "sspa", "recs_", "/ref=pd_"}

// maxAncestors bounds the search for an item's quantity.
const maxAncestors = 6

// htmlOrder holds an HTML document during parsing.
type htmlOrder struct {
	doc  *goquery.Document
	text string // block text of the whole document
}

func (h *htmlOrder) orderID() (string, bool) {
	return extract.First[string](h.orderIDFromText, h.orderIDFromContainers)
}

func (h *htmlOrder) orderIDFromText() (string, bool) {
	return findOrderID(h.text)
}

func findOrderID(text string) (string, bool) {
	m := orderIDPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// orderIDFromContainers looks for a short container holding nothing but an id.
func (h *htmlOrder) orderIDFromContainers() (id string, ok bool) {
	h.doc.Find("td, th, span, div, p, a, b, strong, h1, h2, h3, h4").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		t := extract.FlatText(s)
		if t == "" || utf8.RuneCountInString(t) > 80 {
			return true
		}
		if m := standaloneID.FindStringSubmatch(t); m != nil {
			id, ok = m[1], true
			return false
		}
		return true
	})
	return id, ok
}

func (h *htmlOrder) grandTotal() (decimal.Decimal, bool) {
	return extract.First[decimal.Decimal](h.grandTotalFromLabel, h.grandTotalFromTotals)
}

func isGrandTotalLabel(s string) bool {
	s = strings.ToLower(s)
	return s == "grand total" || s == "grand total:"
}

// grandTotalFromLabel reads the amount next to the "Grand Total" label, either
// in its next sibling or in a cell of the same table row.
func (h *htmlOrder) grandTotalFromLabel() (total decimal.Decimal, ok bool) {
	h.doc.Find("*").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !isGrandTotalLabel(ownText(s)) {
			return true
		}
		if v, found := extract.FindCurrency(extract.FlatText(s.Next())); found && v.IsPositive() {
			total, ok = v, true
			return false
		}
		s.Closest("tr").Find("td, th").EachWithBreak(func(_ int, cell *goquery.Selection) bool {
			if v, found := extract.FindCurrency(extract.FlatText(cell)); found {
				total, ok = v, v.IsPositive()
				return false
			}
			return true
		})
		return !ok
	})
	return total, ok
}

// grandTotalFromTotals reads the first short element mentioning a total with an amount.
func (h *htmlOrder) grandTotalFromTotals() (total decimal.Decimal, ok bool) {
	h.doc.Find("td, th, span, div, p, b, strong").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		t := extract.FlatText(s)
		if utf8.RuneCountInString(t) > 200 {
			return true
		}
		at := strings.Index(strings.ToLower(t), "total")
		if at < 0 {
			return true
		}
		matches := extract.FindAllCurrency(t)
		if len(matches) == 0 {
			return true
		}
		v := matches[0].Value
		for _, m := range matches {
			if m.Start > at {
				v = m.Value
				break
			}
		}
		total, ok = v, v.IsPositive()
		return false
	})
	return total, ok
}

func (h *htmlOrder) items() ([]orderledger.LineItem, bool) {
	return extract.First[[]orderledger.LineItem](h.itemsFromLinks, h.itemsFromContainers)
}

// itemsFromLinks reads items from their product links.
func (h *htmlOrder) itemsFromLinks() ([]orderledger.LineItem, bool) {
	d := newDedup()
	h.doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		target := extract.Unwrap(href)
		code, ok := extract.ProductCode(target)
		if !ok || isPromo(href) || isPromo(target) {
			return
		}
		name := CleanName(a.Text())
		if name == "" {
			alt, _ := a.Find("img[alt]").First().Attr("alt")
			name = CleanName(alt)
		}
		if utf8.RuneCountInString(name) <= 3 {
			return
		}
		d.add(orderledger.LineItem{Name: name, Quantity: quantityAround(a, code), ProductURL: target}, code)
	})
	return d.items, len(d.items) > 0
}

// itemsFromContainers reads items from the innermost containers showing a quantity.
func (h *htmlOrder) itemsFromContainers() ([]orderledger.LineItem, bool) {
	// a container qualifies when it shows a quantity after some other line.
	qualifies := func(_ int, s *goquery.Selection) bool {
		t := extract.BlockText(s)
		if !quantityLine.MatchString(t) || strings.Contains(t, "Grand Total") {
			return false
		}
		return !quantityLine.MatchString(extract.Lines(t)[0])
	}
	d := newDedup()
	h.doc.Find("li, td, div").FilterFunction(qualifies).Each(func(_ int, s *goquery.Selection) {
		if s.Find("li, td, div").FilterFunction(qualifies).Length() > 0 {
			return // not innermost
		}
		name := CleanName(extract.Lines(extract.BlockText(s))[0])
		if utf8.RuneCountInString(name) <= 3 {
			return
		}
		d.add(orderledger.LineItem{Name: name, Quantity: quantityIn(extract.BlockText(s))}, "")
	})
	return d.items, len(d.items) > 0
}

func isPromo(href string) bool {
	for _, m := range promoMarkers {
		if strings.Contains(href, m) {
			return true
		}
	}
	return false
}

// quantityAround returns the quantity shown in the nearest ancestor of the
// link to product code, 1 by default. The search stops at ancestors that also
// hold other products.
func quantityAround(s *goquery.Selection, code string) int {
	p := s.Parent()
	for i := 0; i < maxAncestors && p.Length() > 0; i++ {
		if holdsOtherProduct(p, code) {
			break
		}
		if quantityLine.MatchString(p.Text()) {
			return quantityIn(extract.BlockText(p))
		}
		p = p.Parent()
	}
	return 1
}

func holdsOtherProduct(s *goquery.Selection, code string) bool {
	return s.Find("a[href]").FilterFunction(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		other, ok := extract.ProductCode(href)
		return ok && other != code && !isPromo(href) && !isPromo(extract.Unwrap(href))
	}).Length() > 0
}

func quantityIn(text string) int {
	m := quantityLine.FindStringSubmatch(text)
	if m == nil {
		return 1
	}
	q, err := strconv.Atoi(m[1])
	if err != nil || q <= 0 {
		return 1
	}
	return q
}

// addressMarkers introduce the delivery address.
var addressMarkers = []string{"ship to", "shipping address", "delivery address", "deliver to", "arriving to"}

// deliveryAddress returns up to three lines following an address marker.
func deliveryAddress(text string) string {
	ls := extract.Lines(text)
	for i, l := range ls {
		low := strings.ToLower(l)
		for _, m := range addressMarkers {
			at := strings.Index(low, m)
			if at < 0 {
				continue
			}
			var addr []string
			if rest := strings.TrimSpace(strings.TrimLeft(l[at+len(m):], ": ")); rest != "" {
				addr = append(addr, rest)
			}
			for _, next := range ls[i+1:] {
				if len(addr) == 3 || endsAddress(next) {
					break
				}
				addr = append(addr, next)
			}
			return strings.Join(addr, ", ")
		}
	}
	return ""
}

// endsAddress reports whether a line starts another section of the document.
func endsAddress(l string) bool {
	return orderIDPattern.MatchString(l) || quantityLine.MatchString(l) ||
		extract.Currency.MatchString(l) || strings.Contains(strings.ToLower(l), "total")
}

// dedup collects items, dropping those with an already seen name or product code.
type dedup struct {
	names map[string]bool
	codes map[string]bool
	items []orderledger.LineItem
}

func newDedup() *dedup {
	return &dedup{names: map[string]bool{}, codes: map[string]bool{}}
}

func (d *dedup) add(it orderledger.LineItem, code string) {
	if d.names[it.Name] || (code != "" && d.codes[code]) {
		return
	}
	d.names[it.Name] = true
	if code != "" {
		d.codes[code] = true
	}
	d.items = append(d.items, it)
}
