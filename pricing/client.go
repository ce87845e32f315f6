// Package pricing looks up the current unit price of products on the vendor's
// product pages.
//
// Lookups never fail: a price that cannot be found, for any reason, is
// reported as unknown and the caller decides what to do without it.
package pricing

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/etnz/orderledger/extract"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	// DefaultBaseURL is the storefront product pages are read from.
	DefaultBaseURL = "https://www.amazon.com"
	// DefaultMinDelay and DefaultMaxDelay bound the pause between two page fetches.
	DefaultMinDelay = time.Second
	DefaultMaxDelay = 2 * time.Second
)

// Client looks up unit prices, one page at a time.
type Client struct {
	Fetcher Fetcher
	BaseURL string // DefaultBaseURL when empty

	// MinDelay and MaxDelay bound the random pause between two consecutive
	// page fetches. Zero values mean no pause.
	MinDelay, MaxDelay time.Duration

	Logger *zap.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// New returns a Client using f with the default pacing.
func New(f Fetcher, logger *zap.Logger) *Client {
	return &Client{
		Fetcher:  f,
		BaseURL:  DefaultBaseURL,
		MinDelay: DefaultMinDelay,
		MaxDelay: DefaultMaxDelay,
		Logger:   logger,
	}
}

func (c *Client) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// PageURL returns the canonical product page of a product link, unwrapping
// tracking redirects. It reports false when ref does not point to a product.
func (c *Client) PageURL(ref string) (string, bool) {
	code, ok := extract.ProductCode(ref)
	if !ok {
		return "", false
	}
	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	return extract.ProductURL(base, code), true
}

// UnitPrice returns the current unit price of the product ref links to.
func (c *Client) UnitPrice(ctx context.Context, ref string) (decimal.Decimal, bool) {
	page, ok := c.PageURL(ref)
	if !ok {
		c.logger().Debug("not a product link", zap.String("url", ref))
		return decimal.Zero, false
	}
	return c.fetchPrice(ctx, page)
}

// UnitPrices returns the unit prices of refs, index by index, an invalid
// NullDecimal meaning unknown. Pages are fetched one after the other with a
// random pause in between. Once ctx is done the remaining prices are unknown.
func (c *Client) UnitPrices(ctx context.Context, refs []string) []decimal.NullDecimal {
	res := make([]decimal.NullDecimal, len(refs))
	fetched := false
	for i, ref := range refs {
		page, ok := c.PageURL(ref)
		if !ok {
			c.logger().Debug("not a product link", zap.String("url", ref))
			continue
		}
		if fetched {
			if err := c.pause(ctx); err != nil {
				break
			}
		}
		if ctx.Err() != nil {
			break
		}
		fetched = true
		if v, ok := c.fetchPrice(ctx, page); ok {
			res[i] = decimal.NewNullDecimal(v)
		}
	}
	if err := ctx.Err(); err != nil {
		c.logger().Warn("price lookup interrupted", zap.Error(err))
	}
	return res
}

func (c *Client) fetchPrice(ctx context.Context, page string) (decimal.Decimal, bool) {
	log := c.logger().With(zap.String("url", page))
	if c.Fetcher == nil {
		log.Warn("no fetcher configured")
		return decimal.Zero, false
	}
	body, err := c.Fetcher.Fetch(ctx, page)
	if err != nil {
		log.Warn("cannot fetch product page", zap.Error(err))
		return decimal.Zero, false
	}
	price, ok := ExtractPrice(body)
	if !ok {
		log.Warn("no price on product page", zap.Int("size", len(body)))
		return decimal.Zero, false
	}
	log.Info("found unit price", zap.Stringer("price", price))
	return price, true
}

// delay returns a random duration in [MinDelay, MaxDelay].
func (c *Client) delay() time.Duration {
	span := c.MaxDelay - c.MinDelay
	if span <= 0 {
		return c.MinDelay
	}
	return c.MinDelay + rand.N(span+1)
}

func (c *Client) pause(ctx context.Context) error {
	d := c.delay()
	if c.sleep != nil {
		return c.sleep(ctx, d)
	}
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
