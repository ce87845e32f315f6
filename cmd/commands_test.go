package cmd

import (
	"strings"
	"testing"

	"github.com/google/subcommands"
)

func TestPrice(t *testing.T) {
	out, errs := setup(t)
	config.PriceBaseURL = storefront(t, map[string]string{"B08XQ7KQ2L": "$12.99"})

	status := execute(t, &priceCmd{},
		"https://www.amazon.com/gp/r.html?U=https%3A%2F%2Fwww.amazon.com%2Fdp%2FB08XQ7KQ2L",
		"https://www.amazon.com/dp/B07PGL2N7J",
		"https://www.amazon.com/gp/help")
	if status != subcommands.ExitSuccess {
		t.Fatalf("price exited with %v: %s", status, errs)
	}
	for _, want := range []string{"# Unit Prices", "$12.99", "unknown", "not a product link", "1 of 3 prices found."} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output does not contain %q:\n%s", want, out)
		}
	}
}

func TestPriceUsage(t *testing.T) {
	setup(t)
	if status := execute(t, &priceCmd{}); status != subcommands.ExitUsageError {
		t.Errorf("price without links exited with %v, want a usage error", status)
	}
}

func TestTopic(t *testing.T) {
	out, _ := setup(t)
	if status := execute(t, &topicCmd{}, "ledger"); status != subcommands.ExitSuccess {
		t.Fatalf("topic exited with %v", status)
	}
	if !strings.HasPrefix(out.String(), "# Ledger") {
		t.Errorf("topic ledger = %q", out)
	}
	if status := execute(t, &topicCmd{}, "nope"); status != subcommands.ExitFailure {
		t.Errorf("topic nope exited with %v, want a failure", status)
	}
}
