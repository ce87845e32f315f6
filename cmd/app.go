// Package cmd implements the ordr command line: reconcile order confirmation
// emails with a ledger.
package cmd

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/etnz/orderledger"
	"github.com/etnz/orderledger/email"
	"github.com/etnz/orderledger/ledger"
	"github.com/etnz/orderledger/pricing"
	"github.com/google/subcommands"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"
)

// Environment variables providing the flag defaults.
const (
	EnvPayee        = "ORDR_PAYEE"
	EnvCurrency     = "ORDR_CURRENCY"
	EnvLedgerURL    = "ORDR_LEDGER_URL"
	EnvLedgerToken  = "ORDR_LEDGER_TOKEN"
	EnvLedgerFile   = "ORDR_LEDGER_FILE"
	EnvToken        = "ORDR_TOKEN"
	EnvPriceBaseURL = "ORDR_PRICE_BASE_URL"
	EnvCacheDir     = "ORDR_CACHE_DIR"
	EnvBrowser      = "ORDR_BROWSER"
)

// Config holds the settings shared by every subcommand.
type Config struct {
	Payee        string
	Currency     string
	LedgerURL    string
	LedgerToken  string
	LedgerFile   string
	Token        string
	PriceBaseURL string
	PriceDelay   time.Duration
	CacheDir     string
	Browser      string // "" for plain HTTP, "auto" to look the browser up, or its path
	Verbose      bool
	Plain        bool
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.
var (
	config Config
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// Register the subcommands and the global flags on f.
//
// The .env file of the working directory, if any, is loaded first so that it
// provides flag defaults.
func Register(c *subcommands.Commander, f *flag.FlagSet) {
	if err := LoadEnv(".env"); err != nil {
		fmt.Fprintf(stderr, "Warning: %v\n", err)
	}
	config.SetFlags(f)

	c.Register(&processCmd{}, "orders")
	c.Register(&extractCmd{}, "orders")
	c.Register(&priceCmd{}, "orders")
	c.Register(&serveCmd{}, "server")
	c.Register(&topicCmd{}, "help")
}

// LoadEnv loads environment variables from a dotenv file. Variables already
// set are kept and a missing file is not an error.
func LoadEnv(path string) error {
	err := gotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cannot load %s: %w", path, err)
	}
	return nil
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

// SetFlags registers the global flags, with defaults read from the environment.
func (c *Config) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.Payee, "payee", envOr(EnvPayee, orderledger.DefaultPayee), "Payee of the ledger transactions")
	f.StringVar(&c.Currency, "currency", envOr(EnvCurrency, orderledger.DefaultCurrency), "Currency of the orders")
	f.StringVar(&c.LedgerURL, "ledger-url", envOr(EnvLedgerURL, ""), "Transactions endpoint of the ledger API")
	f.StringVar(&c.LedgerToken, "ledger-token", envOr(EnvLedgerToken, ""), "Bearer token of the ledger API")
	f.StringVar(&c.LedgerFile, "ledger-file", envOr(EnvLedgerFile, "transactions.jsonl"), "Ledger file (JSONL format), used when no ledger API is set")
	f.StringVar(&c.Token, "token", envOr(EnvToken, ""), "Bearer token required by the server")
	f.StringVar(&c.PriceBaseURL, "price-base-url", envOr(EnvPriceBaseURL, pricing.DefaultBaseURL), "Storefront product pages are read from")
	f.DurationVar(&c.PriceDelay, "price-delay", pricing.DefaultMinDelay, "Minimum pause between two product page fetches")
	f.StringVar(&c.CacheDir, "cache-dir", envOr(EnvCacheDir, ""), "Cache product pages for the day in this folder")
	f.StringVar(&c.Browser, "browser", envOr(EnvBrowser, ""), `Render product pages in a headless browser: "auto" or the browser path`)
	f.BoolVar(&c.Verbose, "v", false, "Verbose logs")
	f.BoolVar(&c.Plain, "plain", false, "Print reports as plain markdown")
}

// newLogger returns a JSON logger, or a human readable debug logger in verbose mode.
func (c *Config) newLogger() (*zap.Logger, error) {
	if c.Verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

func (c *Config) newFetcher(logger *zap.Logger) pricing.Fetcher {
	switch c.Browser {
	case "":
		return pricing.NewHTTPFetcher(c.CacheDir, logger)
	case "auto":
		return &pricing.BrowserFetcher{}
	default:
		return &pricing.BrowserFetcher{ExecPath: c.Browser}
	}
}

func (c *Config) newPriceClient(logger *zap.Logger) *pricing.Client {
	client := pricing.New(c.newFetcher(logger), logger)
	client.BaseURL = c.PriceBaseURL
	client.MinDelay = c.PriceDelay
	client.MaxDelay = 2 * c.PriceDelay
	return client
}

func (c *Config) newProcessor(logger *zap.Logger) *orderledger.Processor {
	return &orderledger.Processor{
		Parser:   &email.Parser{},
		Prices:   c.newPriceClient(logger),
		Payee:    c.Payee,
		Currency: c.Currency,
		Logger:   logger,
	}
}

// newPoster returns the ledger API client when an URL is set, the ledger file otherwise.
func (c *Config) newPoster() (ledger.Poster, error) {
	if c.LedgerURL != "" {
		return ledger.NewAPIClient(c.LedgerURL, c.LedgerToken), nil
	}
	if c.LedgerFile != "" {
		return &ledger.FilePoster{Path: c.LedgerFile}, nil
	}
	return nil, errors.New("no ledger configured, set -ledger-url or -ledger-file")
}
