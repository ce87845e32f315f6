package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/etnz/orderledger"
	"github.com/etnz/orderledger/ledger"
	"github.com/shopspring/decimal"
)

type fakeParser struct {
	order *orderledger.Order
}

func (f fakeParser) Parse(html, text string) (*orderledger.Order, error) {
	if f.order == nil {
		return nil, &orderledger.ParseError{Missing: []string{orderledger.MissingOrderID}}
	}
	o := *f.order
	return &o, nil
}

type fakePrices map[string]string

func (f fakePrices) UnitPrices(ctx context.Context, urls []string) []decimal.NullDecimal {
	res := make([]decimal.NullDecimal, len(urls))
	for i, u := range urls {
		if p, ok := f[u]; ok {
			res[i] = decimal.NewNullDecimal(decimal.RequireFromString(p))
		}
	}
	return res
}

// fakePoster fails on the keys in fail.
type fakePoster struct {
	fail   map[string]bool
	posted []ledger.Transaction
}

func (f *fakePoster) Post(ctx context.Context, tx ledger.Transaction) error {
	if f.fail[tx.Memo] {
		return errors.New("ledger unavailable")
	}
	f.posted = append(f.posted, tx)
	return nil
}

func order(items ...orderledger.LineItem) *orderledger.Order {
	return &orderledger.Order{
		ID:         "113-8378477-8133849",
		GrandTotal: decimal.RequireFromString("27.00"),
		Items:      items,
		OrderDate:  time.Date(2025, 10, 17, 0, 0, 0, 0, time.UTC),
	}
}

var (
	pillow = orderledger.LineItem{Name: "Pet Bed Pillow", Quantity: 1, ProductURL: "https://www.amazon.com/dp/B000000001"}
	salt   = orderledger.LineItem{Name: "Epsom Salt Soak", Quantity: 1, ProductURL: "https://www.amazon.com/dp/B000000002"}
	prices = fakePrices{
		"https://www.amazon.com/dp/B000000001": "10.00",
		"https://www.amazon.com/dp/B000000002": "15.00",
	}
)

func post(t *testing.T, s *Server, body, token string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("App().Test() unexpected error = %v", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("response %q is not JSON: %v", data, err)
	}
	return resp.StatusCode, got
}

func TestPostOrder(t *testing.T) {
	tests := []struct {
		name     string
		order    *orderledger.Order
		fail     []string
		status   int
		mode     string
		postings int
	}{
		{
			name:     "itemized",
			order:    order(pillow, salt),
			status:   http.StatusOK,
			mode:     "itemized",
			postings: 2,
		},
		{
			name:     "single item",
			order:    order(pillow),
			status:   http.StatusOK,
			mode:     "single",
			postings: 1,
		},
		{
			name:     "one itemized record fails",
			order:    order(pillow, salt),
			fail:     []string{"Pet Bed Pillow - Order #113-8378477-8133849"},
			status:   http.StatusOK,
			mode:     "itemized",
			postings: 2,
		},
		{
			name:     "every itemized record fails",
			order:    order(pillow, salt),
			fail:     []string{"Pet Bed Pillow - Order #113-8378477-8133849", "Epsom Salt Soak - Order #113-8378477-8133849"},
			status:   http.StatusBadGateway,
			mode:     "itemized",
			postings: 2,
		},
		{
			name:     "single record fails",
			order:    order(pillow),
			fail:     []string{"Pet Bed Pillow - Order #113-8378477-8133849"},
			status:   http.StatusBadGateway,
			mode:     "single",
			postings: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			poster := &fakePoster{fail: map[string]bool{}}
			for _, f := range tt.fail {
				poster.fail[f] = true
			}
			s := &Server{
				Processor: &orderledger.Processor{Parser: fakeParser{tt.order}, Prices: prices},
				Poster:    poster,
			}
			status, got := post(t, s, `{"html":"<html></html>"}`, "")
			if status != tt.status {
				t.Errorf("POST /orders status = %d, want %d: %v", status, tt.status, got)
			}
			if got["mode"] != tt.mode {
				t.Errorf("POST /orders mode = %v, want %s", got["mode"], tt.mode)
			}
			postings, _ := got["postings"].([]any)
			if len(postings) != tt.postings {
				t.Errorf("POST /orders returned %d postings, want %d", len(postings), tt.postings)
			}
			if want := tt.postings - len(tt.fail); len(poster.posted) != want {
				t.Errorf("ledger received %d transactions, want %d", len(poster.posted), want)
			}
		})
	}
}

func TestPostOrderFallback(t *testing.T) {
	s := &Server{Processor: &orderledger.Processor{Parser: fakeParser{order(pillow, salt)}}}
	status, got := post(t, s, `{"text":"Order #113-8378477-8133849"}`, "")
	if status != http.StatusOK {
		t.Fatalf("POST /orders status = %d, want 200: %v", status, got)
	}
	if got["mode"] != "consolidated" {
		t.Errorf("POST /orders mode = %v, want consolidated", got["mode"])
	}
	if got["fallback"] == nil {
		t.Error("POST /orders does not report why itemization was abandoned")
	}
	if got["postings"] != nil {
		t.Errorf("POST /orders posted %v without a ledger", got["postings"])
	}
}

func TestPostOrderRejects(t *testing.T) {
	tests := []struct {
		name   string
		token  string
		sent   string
		body   string
		status int
	}{
		{name: "malformed body", body: `{"html":`, status: http.StatusBadRequest},
		{name: "empty document", body: `{}`, status: http.StatusBadRequest},
		{name: "unparsable document", body: `{"html":"<p>hello</p>"}`, status: http.StatusUnprocessableEntity},
		{name: "missing token", token: "s3cret", body: `{"html":"<p>hello</p>"}`, status: http.StatusUnauthorized},
		{name: "wrong token", token: "s3cret", sent: "guess", body: `{"html":"<p>hello</p>"}`, status: http.StatusUnauthorized},
		{name: "valid token", token: "s3cret", sent: "s3cret", body: `{"html":"<p>hello</p>"}`, status: http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Server{Processor: &orderledger.Processor{Parser: fakeParser{}}, Token: tt.token}
			status, got := post(t, s, tt.body, tt.sent)
			if status != tt.status {
				t.Errorf("POST /orders status = %d, want %d: %v", status, tt.status, got)
			}
			if got["code"] == nil {
				t.Errorf("POST /orders error body %v has no code", got)
			}
		})
	}
}

func TestPostOrderReportsMissing(t *testing.T) {
	s := &Server{Processor: &orderledger.Processor{Parser: fakeParser{}}}
	_, got := post(t, s, `{"html":"<p>hello</p>"}`, "")
	missing, _ := got["missing"].([]any)
	if len(missing) != 1 || missing[0] != orderledger.MissingOrderID {
		t.Errorf("POST /orders missing = %v, want [%s]", got["missing"], orderledger.MissingOrderID)
	}
}

func TestHealthz(t *testing.T) {
	s := &Server{Processor: &orderledger.Processor{Parser: fakeParser{}}, Token: "s3cret"}
	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/healthz", nil), -1)
	if err != nil {
		t.Fatalf("App().Test() unexpected error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /healthz status = %d, want 200 without a token", resp.StatusCode)
	}
}

func TestListenAndServeStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{Processor: &orderledger.Processor{Parser: fakeParser{}}}
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()
	time.Sleep(100 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("ListenAndServe() = %v, want nil after cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("ListenAndServe() did not stop")
	}
}
