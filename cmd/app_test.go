package cmd

import (
	"bytes"
	"context"
	"flag"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/etnz/orderledger/ledger"
	"github.com/google/subcommands"
)

// setup isolates the global configuration and captures the output of a test.
func setup(t *testing.T) (out, errs *bytes.Buffer) {
	t.Helper()
	saved, savedOut, savedErr := config, stdout, stderr
	t.Cleanup(func() { config, stdout, stderr = saved, savedOut, savedErr })

	out, errs = &bytes.Buffer{}, &bytes.Buffer{}
	stdout, stderr = out, errs
	config = Config{
		Payee:      "Amazon",
		Currency:   "USD",
		LedgerFile: filepath.Join(t.TempDir(), "transactions.jsonl"),
		Plain:      true,
	}
	return out, errs
}

// storefront serves product pages with the given prices by product code.
func storefront(t *testing.T, prices map[string]string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		price, ok := prices[filepath.Base(r.URL.Path)]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`<html><body><div id="corePrice_feature_div"><span class="a-price"><span class="a-offscreen">` +
			price + `</span></span></div></body></html>`))
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

// execute runs a subcommand with args.
func execute(t *testing.T, c subcommands.Command, args ...string) subcommands.ExitStatus {
	t.Helper()
	f := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
	c.SetFlags(f)
	if err := f.Parse(args); err != nil {
		t.Fatalf("cannot parse %v: %v", args, err)
	}
	return c.Execute(context.Background(), f)
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	env := filepath.Join(dir, ".env")
	content := "ORDR_PAYEE=Amazon.com\nORDR_CURRENCY=EUR\n"
	if err := os.WriteFile(env, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvPayee, "")
	os.Unsetenv(EnvPayee)
	t.Setenv(EnvCurrency, "CAD")

	if err := LoadEnv(env); err != nil {
		t.Fatalf("LoadEnv() unexpected error = %v", err)
	}
	if got := os.Getenv(EnvPayee); got != "Amazon.com" {
		t.Errorf("%s = %q, want the value of the file", EnvPayee, got)
	}
	if got := os.Getenv(EnvCurrency); got != "CAD" {
		t.Errorf("%s = %q, want the environment to win over the file", EnvCurrency, got)
	}

	if err := LoadEnv(filepath.Join(dir, "missing.env")); err != nil {
		t.Errorf("LoadEnv() of a missing file = %v, want nil", err)
	}
}

func TestConfigFlags(t *testing.T) {
	t.Setenv(EnvPayee, "Amazon.com")
	t.Setenv(EnvLedgerURL, "https://ledger.example.com/transactions")

	var c Config
	f := flag.NewFlagSet("ordr", flag.ContinueOnError)
	c.SetFlags(f)
	if err := f.Parse([]string{"-currency", "EUR", "-v"}); err != nil {
		t.Fatal(err)
	}
	if c.Payee != "Amazon.com" || c.LedgerURL != "https://ledger.example.com/transactions" {
		t.Errorf("defaults not read from the environment: %+v", c)
	}
	if c.Currency != "EUR" || !c.Verbose {
		t.Errorf("flags not applied: %+v", c)
	}
}

func TestNewPoster(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		want   string
	}{
		{"api", Config{LedgerURL: "https://ledger.example.com", LedgerFile: "transactions.jsonl"}, "*ledger.APIClient"},
		{"file", Config{LedgerFile: "transactions.jsonl"}, "*ledger.FilePoster"},
		{"none", Config{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tt.config.newPoster()
			switch p.(type) {
			case *ledger.APIClient:
				if tt.want != "*ledger.APIClient" {
					t.Errorf("newPoster() = %T, want %s", p, tt.want)
				}
			case *ledger.FilePoster:
				if tt.want != "*ledger.FilePoster" {
					t.Errorf("newPoster() = %T, want %s", p, tt.want)
				}
			default:
				if tt.want != "" || err == nil {
					t.Errorf("newPoster() = %T, %v, want %s", p, err, tt.want)
				}
			}
		})
	}
}
