package extract

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// blocks are elements that break the text flow.
var blocks = map[atom.Atom]bool{
	atom.Br: true, atom.P: true, atom.Div: true, atom.Tr: true, atom.Li: true,
	atom.Td: true, atom.Th: true, atom.Table: true, atom.Ul: true, atom.Ol: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Section: true, atom.Article: true, atom.Header: true, atom.Footer: true,
}

// hidden elements have no visible text.
var hidden = map[atom.Atom]bool{
	atom.Script: true, atom.Style: true, atom.Head: true, atom.Noscript: true, atom.Template: true,
}

// BlockText returns the visible text of sel with one line per block, trimmed,
// blank lines dropped. Adjacent blocks never run into each other.
func BlockText(sel *goquery.Selection) string {
	var buf bytes.Buffer
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			buf.WriteString(n.Data)
			return
		case html.ElementNode:
			if hidden[n.DataAtom] {
				return
			}
		}
		brk := n.Type == html.ElementNode && blocks[n.DataAtom]
		if brk {
			buf.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if brk {
			buf.WriteByte('\n')
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return strings.Join(Lines(buf.String()), "\n")
}

// FlatText returns the block text of sel on a single line, blocks separated
// by a space.
func FlatText(sel *goquery.Selection) string {
	return strings.ReplaceAll(BlockText(sel), "\n", " ")
}

// Lines splits s into trimmed, whitespace collapsed, non-empty lines.
func Lines(s string) []string {
	var res []string
	for _, l := range strings.Split(s, "\n") {
		l = strings.Join(strings.Fields(l), " ")
		if l != "" {
			res = append(res, l)
		}
	}
	return res
}
