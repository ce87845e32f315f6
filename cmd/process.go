package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/orderledger/email"
	"github.com/etnz/orderledger/ledger"
	"github.com/etnz/orderledger/renderer"
	"github.com/etnz/orderledger/server"
	"github.com/google/subcommands"
)

// processCmd runs the reconciliation pipeline on one confirmation.
type processCmd struct {
	eml    string
	html   string
	text   string
	post   bool
	dryRun bool
	json   bool
}

func (*processCmd) Name() string     { return "process" }
func (*processCmd) Synopsis() string { return "reconcile an order confirmation with the ledger" }
func (*processCmd) Usage() string {
	return `ordr process [-eml <file> | -html <file> -text <file>] [-post | -dry-run] [-json] [<file.eml>]

  Parse an order confirmation, look up the unit prices of its items and split
  its grand total into ledger records. With -post the records are added to the
  ledger, with -dry-run the transactions are printed instead.
`
}

func (c *processCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.eml, "eml", "", "Raw confirmation email")
	f.StringVar(&c.html, "html", "", "HTML part of the confirmation")
	f.StringVar(&c.text, "text", "", "Plain text part of the confirmation")
	f.BoolVar(&c.post, "post", false, "Post the records to the ledger")
	f.BoolVar(&c.dryRun, "dry-run", false, "Print the ledger transactions without posting them")
	f.BoolVar(&c.json, "json", false, "Print the outcome as JSON")
}

func (c *processCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.eml == "" && f.NArg() > 0 {
		c.eml = f.Arg(0)
	}
	html, text, err := c.document()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	logger, err := config.newLogger()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer logger.Sync()

	out := config.newProcessor(logger).Process(ctx, html, text)

	status := subcommands.ExitSuccess
	var results []ledger.Result
	if out.Success() && c.post && !c.dryRun {
		poster, err := config.newPoster()
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return subcommands.ExitUsageError
		}
		results, err = ledger.PostAll(ctx, poster, out.Records)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			if ledger.NonePosted(results) {
				status = subcommands.ExitFailure
			}
		}
	}
	if !out.Success() {
		status = subcommands.ExitFailure
	}

	if c.json {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(server.NewResponse(out, results)); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
	} else {
		printMarkdown(renderer.RenderOutcome(renderer.NewOutcome(out, config.Currency, results)))
	}

	if out.Success() && c.dryRun {
		txs := make([]ledger.Transaction, 0, len(out.Records))
		for _, r := range out.Records {
			txs = append(txs, ledger.FromRecord(r))
		}
		if err := ledger.Encode(stdout, txs...); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
	}
	return status
}

// document reads the html and text representations of the confirmation.
func (c *processCmd) document() (html, text string, err error) {
	if c.eml != "" {
		if c.html != "" || c.text != "" {
			return "", "", errors.New("-eml cannot be combined with -html or -text")
		}
		f, err := os.Open(c.eml)
		if err != nil {
			return "", "", err
		}
		defer f.Close()
		m, err := email.ReadMessage(f)
		if err != nil {
			return "", "", fmt.Errorf("cannot read %s: %w", c.eml, err)
		}
		return m.HTML, m.Text, nil
	}
	if c.html == "" && c.text == "" {
		return "", "", errors.New("a confirmation is required: -eml, -html or -text")
	}
	if c.html != "" {
		b, err := os.ReadFile(c.html)
		if err != nil {
			return "", "", err
		}
		html = string(b)
	}
	if c.text != "" {
		b, err := os.ReadFile(c.text)
		if err != nil {
			return "", "", err
		}
		text = string(b)
	}
	return html, text, nil
}
