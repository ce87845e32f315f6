package cmd

import (
	"fmt"

	"github.com/charmbracelet/glamour"
)

const wordWrap = 100

// printMarkdown prints a markdown report, styled for the terminal unless
// -plain is set.
func printMarkdown(md string) {
	if config.Plain {
		fmt.Fprint(stdout, md)
		return
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(wordWrap))
	if err != nil {
		fmt.Fprint(stdout, md)
		return
	}
	out, err := r.Render(md)
	if err != nil {
		fmt.Fprint(stdout, md)
		return
	}
	fmt.Fprint(stdout, out)
}
