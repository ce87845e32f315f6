package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/etnz/orderledger/email"
	"github.com/google/subcommands"
)

// extractCmd splits raw emails into their HTML and text parts.
type extractCmd struct {
	dir string
}

func (*extractCmd) Name() string     { return "extract" }
func (*extractCmd) Synopsis() string { return "save the HTML and text parts of raw emails" }
func (*extractCmd) Usage() string {
	return `ordr extract [-o <dir>] <file.eml>...

  Save the HTML and text parts of each email as <name>.html and <name>.txt,
  ready for 'ordr process -html <name>.html -text <name>.txt'.
`
}

func (c *extractCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.dir, "o", "", "Output folder, defaults to the folder of each email")
}

func (c *extractCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(stderr, "Error: at least one email file is required")
		return subcommands.ExitUsageError
	}
	status := subcommands.ExitSuccess
	for _, path := range f.Args() {
		if err := c.extract(path); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			status = subcommands.ExitFailure
		}
	}
	return status
}

func (c *extractCmd) extract(path string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()
	m, err := email.ReadMessage(in)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	dir := c.dir
	if dir == "" {
		dir = filepath.Dir(path)
	}
	base := filepath.Join(dir, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))

	fmt.Fprintf(stdout, "%s: %q from %s\n", path, m.Subject, m.From)
	parts := []struct{ ext, content, name string }{
		{".html", m.HTML, "HTML"},
		{".txt", m.Text, "text"},
	}
	for _, p := range parts {
		if p.content == "" {
			fmt.Fprintf(stdout, "  no %s part\n", p.name)
			continue
		}
		if err := os.WriteFile(base+p.ext, []byte(p.content), 0o644); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "  %s part saved to %s (%d bytes)\n", p.name, base+p.ext, len(p.content))
	}
	return nil
}
