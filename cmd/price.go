package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/etnz/orderledger/renderer"
	"github.com/google/subcommands"
)

// priceCmd looks up the unit price of products.
type priceCmd struct{}

func (*priceCmd) Name() string     { return "price" }
func (*priceCmd) Synopsis() string { return "look up the current unit price of products" }
func (*priceCmd) Usage() string {
	return `ordr price <product-url>...

  Look up the current unit price of each product link. Tracking redirects are
  followed to the product they point to.
`
}

func (c *priceCmd) SetFlags(f *flag.FlagSet) {}

func (c *priceCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(stderr, "Error: at least one product link is required")
		return subcommands.ExitUsageError
	}
	logger, err := config.newLogger()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer logger.Sync()

	client := config.newPriceClient(logger)
	found := client.UnitPrices(ctx, f.Args())
	prices := make([]renderer.Price, f.NArg())
	for i, ref := range f.Args() {
		prices[i].Ref = ref
		prices[i].Page, _ = client.PageURL(ref)
		if i < len(found) {
			prices[i].Price = found[i]
		}
	}
	printMarkdown(renderer.PricesMarkdown(prices, config.Currency))
	return subcommands.ExitSuccess
}
