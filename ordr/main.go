// Command ordr reconciles order confirmation emails with a ledger.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/etnz/orderledger/cmd"
	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

func main() {
	name := path.Base(os.Args[0])
	commander := subcommands.NewCommander(flag.CommandLine, name)
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	cmd.Register(commander, flag.CommandLine)

	completion().Complete(name)

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

// completion describes the command line for shell completion.
func completion() *complete.Command {
	emails := predict.Files("*.eml")
	return &complete.Command{
		Flags: map[string]complete.Predictor{
			"payee":          predict.Something,
			"currency":       predict.Set{"USD", "EUR", "GBP", "CAD", "JPY"},
			"ledger-url":     predict.Something,
			"ledger-token":   predict.Something,
			"ledger-file":    predict.Files("*.jsonl"),
			"token":          predict.Something,
			"price-base-url": predict.Something,
			"price-delay":    predict.Something,
			"cache-dir":      predict.Dirs("*"),
			"browser":        predict.Or(predict.Set{"auto"}, predict.Files("*")),
			"v":              predict.Nothing,
			"plain":          predict.Nothing,
		},
		Sub: map[string]*complete.Command{
			"process": {
				Flags: map[string]complete.Predictor{
					"eml":     emails,
					"html":    predict.Files("*.html"),
					"text":    predict.Files("*.txt"),
					"post":    predict.Nothing,
					"dry-run": predict.Nothing,
					"json":    predict.Nothing,
				},
				Args: emails,
			},
			"extract": {
				Flags: map[string]complete.Predictor{"o": predict.Dirs("*")},
				Args:  emails,
			},
			"price": {Args: predict.Something},
			"serve": {
				Flags: map[string]complete.Predictor{
					"addr":    predict.Something,
					"no-post": predict.Nothing,
				},
			},
			"topic": {Args: predict.Set{"*", "process", "configuration", "ledger", "server"}},
			"help":  {Args: predict.Set{"process", "extract", "price", "serve", "topic"}},
			"flags": {},
		},
	}
}
