package cmd

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/etnz/orderledger/ledger"
	"github.com/etnz/orderledger/server"
	"github.com/google/subcommands"
)

// serveCmd runs the HTTP endpoint.
type serveCmd struct {
	addr   string
	noPost bool
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "receive order confirmations over HTTP" }
func (*serveCmd) Usage() string {
	return `ordr serve [-addr <host:port>] [-no-post]

  Serve POST /orders: every confirmation received is processed and its
  records posted to the ledger. Requests must carry the -token bearer token
  when one is set.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.addr, "addr", ":8080", "Address to listen on")
	f.BoolVar(&c.noPost, "no-post", false, "Process confirmations without posting them")
}

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	logger, err := config.newLogger()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer logger.Sync()

	var poster ledger.Poster
	if !c.noPost {
		if poster, err = config.newPoster(); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return subcommands.ExitUsageError
		}
	}
	s := &server.Server{
		Processor: config.newProcessor(logger),
		Poster:    poster,
		Token:     config.Token,
		Logger:    logger,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := s.ListenAndServe(ctx, c.addr); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
