package email

import (
	"bytes"
	"errors"
	"mime/quotedprintable"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/etnz/orderledger"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/shopspring/decimal"
)

func readTestdata(t *testing.T, name string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("cannot read test file: %v", err)
	}
	return string(b)
}

var parsedAt = time.Date(2025, 10, 17, 18, 30, 0, 0, time.UTC)

func testParser() *Parser { return &Parser{Now: func() time.Time { return parsedAt }} }

// compareOrders compares decimals by value.
var compareOrders = cmp.Options{
	cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) }),
	cmpopts.EquateEmpty(),
}

func TestParseConfirmation(t *testing.T) {
	want := &orderledger.Order{
		ID:         "113-8378477-8133849",
		GrandTotal: decimal.RequireFromString("26.82"),
		Items: []orderledger.LineItem{
			{Name: "Pet Bed Pillow", Quantity: 1, ProductURL: "https://www.amazon.com/dp/B08XQ7KQ2L/ref=pe_123_456"},
			{Name: "Epsom Salt Soak", Quantity: 4, ProductURL: "https://www.amazon.com/gp/product/B07PGL2N7J/ref=ox_sc_act_title_1"},
		},
		DeliveryAddress: "Jane Doe, 1200 Maple Street, SEATTLE, WA 98109",
		OrderDate:       parsedAt,
	}

	t.Run("html", func(t *testing.T) {
		got, err := testParser().Parse(readTestdata(t, "confirmation.html"), "")
		if err != nil {
			t.Fatalf("Parse() unexpected error = %v", err)
		}
		if diff := cmp.Diff(want, got, compareOrders); diff != "" {
			t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("text", func(t *testing.T) {
		got, err := testParser().Parse("", readTestdata(t, "confirmation.txt"))
		if err != nil {
			t.Fatalf("Parse() unexpected error = %v", err)
		}
		textWant := *want
		textWant.Items = []orderledger.LineItem{
			{Name: "Pet Bed Pillow", Quantity: 1},
			{Name: "Epsom Salt Soak", Quantity: 4},
		}
		if diff := cmp.Diff(&textWant, got, compareOrders); diff != "" {
			t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("quoted-printable html", func(t *testing.T) {
		var buf bytes.Buffer
		w := quotedprintable.NewWriter(&buf)
		if _, err := w.Write([]byte(readTestdata(t, "confirmation.html"))); err != nil {
			t.Fatal(err)
		}
		if err := w.Close(); err != nil {
			t.Fatal(err)
		}
		got, err := testParser().Parse(buf.String(), "")
		if err != nil {
			t.Fatalf("Parse() unexpected error = %v", err)
		}
		if diff := cmp.Diff(want, got, compareOrders); diff != "" {
			t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("broken html falls back to text", func(t *testing.T) {
		got, err := testParser().Parse("<html><body><p>Thanks!</p></body></html>", readTestdata(t, "confirmation.txt"))
		if err != nil {
			t.Fatalf("Parse() unexpected error = %v", err)
		}
		if got.ID != want.ID || len(got.Items) != 2 {
			t.Errorf("Parse() = %+v, want the text order", got)
		}
	})
}

func TestParseFailures(t *testing.T) {
	tests := []struct {
		name        string
		html, text  string
		wantMissing []string
	}{
		{
			name:        "no order id anywhere",
			html:        `<table><tr><td><a href="https://www.amazon.com/dp/B08XQ7KQ2L">Pet Bed Pillow</a></td></tr><tr><td>Grand Total:</td><td>$26.82</td></tr></table>`,
			text:        "Pet Bed Pillow\nQuantity: 1\nGrand Total: $26.82\n",
			wantMissing: []string{orderledger.MissingOrderID},
		},
		{
			name:        "zero grand total",
			html:        `<p>Order #113-8378477-8133849</p><a href="https://www.amazon.com/dp/B08XQ7KQ2L">Pet Bed Pillow</a><table><tr><td>Grand Total:</td><td>$0.00</td></tr></table>`,
			wantMissing: []string{orderledger.MissingGrandTotal},
		},
		{
			name:        "no items",
			text:        "Order #113-8378477-8133849\nGrand Total: $26.82\n",
			wantMissing: []string{orderledger.MissingItems},
		},
		{
			name:        "empty",
			wantMissing: []string{orderledger.MissingOrderID, orderledger.MissingGrandTotal, orderledger.MissingItems},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.html, tt.text)
			var perr *orderledger.ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("Parse() error = %v, want a ParseError", err)
			}
			if diff := cmp.Diff(tt.wantMissing, perr.Missing); diff != "" {
				t.Errorf("ParseError.Missing mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseItemIdentity(t *testing.T) {
	html := `<p>Order #113-8378477-8133849</p>
<table>
<tr><td><a href="https://www.amazon.com/dp/B000000001">Pet Bed Pillow</a><div>Quantity: 2</div></td></tr>
<tr><td><a href="https://www.amazon.com/dp/B000000002">Pet Bed Pillow</a><div>Quantity: 5</div></td></tr>
<tr><td><a href="https://www.amazon.com/dp/B000000003">Epsom Salt Soak</a></td></tr>
<tr><td><a href="https://www.amazon.com/dp/B000000003/ref=cart">Epsom Salt Soak, 3 lb bag</a></td></tr>
<tr><td><a href="https://www.amazon.com/dp/B000000004">Box</a></td></tr>
<tr><td>Grand Total:</td><td>$40.00</td></tr>
</table>`
	o, err := Parse(html, "")
	if err != nil {
		t.Fatalf("Parse() unexpected error = %v", err)
	}
	want := []orderledger.LineItem{
		{Name: "Pet Bed Pillow", Quantity: 2, ProductURL: "https://www.amazon.com/dp/B000000001"},
		{Name: "Epsom Salt Soak", Quantity: 1, ProductURL: "https://www.amazon.com/dp/B000000003"},
	}
	if diff := cmp.Diff(want, o.Items, compareOrders); diff != "" {
		t.Errorf("Parse() items mismatch (-want +got):\n%s", diff)
	}
}

func TestParseOrderIDStrategies(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{name: "marker", html: `<p>Order # 113-8378477-8133849</p>`, want: "113-8378477-8133849"},
		{name: "marker split across elements", html: `<p><span>Order #</span><br><span>114-0000000-1111111</span></p>`, want: "114-0000000-1111111"},
		{name: "zero-width joiner", html: "<p>Order #\u200d\ufeff112-1234567-7654321</p>", want: "112-1234567-7654321"},
		{name: "standalone id", html: `<table><tr><td>Reference</td><td><b>111-2222222-3333333</b></td></tr></table>`, want: "111-2222222-3333333"},
		{name: "longer number is not an id", html: `<p>Tracking 9111-2222222-33333334</p>`, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHTMLOrder(t, tt.html)
			got, _ := h.orderID()
			if got != tt.want {
				t.Errorf("orderID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseTextWithNonBreakingSpaces(t *testing.T) {
	text := "Your Order #\u00a0113-8378477-8133849\nPet Bed Pillow\nQuantity:\u00a02\nGrand\u00a0Total: $26.82\n"
	got, err := testParser().Parse("", text)
	if err != nil {
		t.Fatalf("Parse() unexpected error = %v", err)
	}
	if got.ID != "113-8378477-8133849" {
		t.Errorf("Parse() ID = %q, want 113-8378477-8133849", got.ID)
	}
	if !got.GrandTotal.Equal(decimal.RequireFromString("26.82")) {
		t.Errorf("Parse() GrandTotal = %v, want 26.82", got.GrandTotal)
	}
	want := []orderledger.LineItem{{Name: "Pet Bed Pillow", Quantity: 2}}
	if diff := cmp.Diff(want, got.Items, compareOrders); diff != "" {
		t.Errorf("Parse() items mismatch (-want +got):\n%s", diff)
	}
}

func TestParseGrandTotalStrategies(t *testing.T) {
	tests := []struct {
		name   string
		html   string
		want   string
		wantOk bool
	}{
		{name: "next sibling", html: `<div><span>Grand Total</span><span>$1,026.82</span></div>`, want: "1026.82", wantOk: true},
		{name: "same row", html: `<table><tr><td><b>grand total:</b></td><td>USD</td><td>$26.82</td></tr></table>`, want: "26.82", wantOk: true},
		{name: "total fallback", html: `<div><p>Order Total: $19.99</p></div>`, want: "19.99", wantOk: true},
		{name: "total fallback across blocks", html: `<div><p>Order Total:</p><p>$26.82</p><p>Thanks</p></div>`, want: "26.82", wantOk: true},
		{name: "next sibling block", html: `<div><div>Grand Total:</div><div><p>$26.82</p><p>charged to Visa</p></div></div>`, want: "26.82", wantOk: true},
		{name: "amount after the word", html: `<p>$5.00 off, your total is $14.99</p>`, want: "14.99", wantOk: true},
		{name: "zero", html: `<table><tr><td>Grand Total:</td><td>$0.00</td></tr></table>`, wantOk: false},
		{name: "none", html: `<p>Thanks for your order</p>`, wantOk: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHTMLOrder(t, tt.html)
			got, ok := h.grandTotal()
			if ok != tt.wantOk {
				t.Fatalf("grandTotal() ok = %v, want %v", ok, tt.wantOk)
			}
			if ok && !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("grandTotal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func newTestHTMLOrder(t *testing.T, src string) *htmlOrder {
	t.Helper()
	h, err := newHTMLOrder(src)
	if err != nil {
		t.Fatalf("cannot read html: %v", err)
	}
	return h
}

func TestParseItemsFromContainers(t *testing.T) {
	html := `<ul>
<li><div>Pet Bed Pillow</div><div>Quantity: 3</div></li>
<li>Epsom Salt Soak<br>Quantity: 1</li>
<li>Grand Total: $26.82 Quantity: 1</li>
</ul>`
	h := newTestHTMLOrder(t, html)
	got, ok := h.itemsFromContainers()
	if !ok {
		t.Fatal("itemsFromContainers() found nothing")
	}
	want := []orderledger.LineItem{
		{Name: "Pet Bed Pillow", Quantity: 3},
		{Name: "Epsom Salt Soak", Quantity: 1},
	}
	if diff := cmp.Diff(want, got, compareOrders); diff != "" {
		t.Errorf("itemsFromContainers() mismatch (-want +got):\n%s", diff)
	}
}
