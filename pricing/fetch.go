package pricing

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ybbus/httpretry"
	"go.uber.org/zap"
)

// Fetcher retrieves a product page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

const (
	// HTTPTimeout bounds a plain page fetch, retries included.
	HTTPTimeout = 15 * time.Second
	// BrowserTimeout bounds a browser-rendered page fetch.
	BrowserTimeout = 45 * time.Second
	// MaxRetries is the number of retries of a transient HTTP failure.
	MaxRetries = 2

	maxPageSize = 8 << 20
	userAgent   = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"
)

// HTTPFetcher fetches pages with plain HTTP GET requests.
type HTTPFetcher struct {
	Client *http.Client
}

// NewHTTPFetcher returns a fetcher retrying transient failures. Successful
// responses are cached for the day in cacheDir, unless it is empty.
func NewHTTPFetcher(cacheDir string, logger *zap.Logger, opts ...httpretry.Option) *HTTPFetcher {
	var transport http.RoundTripper = http.DefaultTransport
	if cacheDir != "" {
		transport = newDiskCache(transport, cacheDir, logger)
	}
	opts = append([]httpretry.Option{httpretry.WithMaxRetryCount(MaxRetries)}, opts...)
	client := httpretry.NewCustomClient(&http.Client{Timeout: HTTPTimeout, Transport: transport}, opts...)
	return &HTTPFetcher{Client: client}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("cannot create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: HTTPTimeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cannot GET %v: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("cannot GET %v%v: %v", resp.Request.URL.Host, resp.Request.URL.Path, resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
}

// BrowserFetcher renders pages in a headless browser, for pages that only
// show their price once scripts have run.
//
// Every Fetch starts its own browser and stops it before returning.
type BrowserFetcher struct {
	ExecPath string        // browser executable, looked up in the PATH when empty
	Timeout  time.Duration // BrowserTimeout when zero
}

func (f *BrowserFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	timeout := f.Timeout
	if timeout == 0 {
		timeout = BrowserTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(userAgent),
		chromedp.DisableGPU,
	)
	if f.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(f.ExecPath))
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var page string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &page, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("cannot render %v: %w", url, err)
	}
	return []byte(page), nil
}
