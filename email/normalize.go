package email

import (
	"encoding/hex"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// qpArtefact matches what a raw quoted-printable body leaks into a document:
// an encoded '=', a soft line break, encoded trailing whitespace or an
// encoded multi-byte character such as a zero-width space.
var qpArtefact = regexp.MustCompile(`=3D|=\r?\n|=(?:20|09)\r?\n|=[C-F][0-9A-F](?:=[89AB][0-9A-F])+`)

// decodeQuotedPrintable replaces the quoted-printable artefacts of s. Other
// '=' sequences are kept: they belong to already decoded text such as URL
// query strings.
func decodeQuotedPrintable(s string) string {
	return qpArtefact.ReplaceAllStringFunc(s, func(a string) string {
		switch {
		case a == "=3D":
			return "="
		case a[1] == '\r' || a[1] == '\n':
			return ""
		case strings.HasPrefix(a, "=20"):
			return " " + a[3:]
		case strings.HasPrefix(a, "=09"):
			return "\t" + a[3:]
		}
		b, err := hex.DecodeString(strings.ReplaceAll(a, "=", ""))
		if err != nil || !utf8.Valid(b) {
			return a
		}
		return string(b)
	})
}

// cleaner composes to NFC and removes format characters (zero-width spaces,
// joiners, byte order marks).
var cleaner = transform.Chain(norm.NFC, runes.Remove(runes.In(unicode.Cf)))

// CleanName normalises an item name: NFC, no format characters, collapsed
// whitespace.
func CleanName(s string) string {
	res, _, err := transform.String(cleaner, s)
	if err != nil {
		res = s
	}
	return strings.Join(strings.Fields(res), " ")
}

// ownText returns the text of the direct text children of sel, collapsed.
func ownText(sel *goquery.Selection) string {
	var parts []string
	sel.Contents().Each(func(_ int, c *goquery.Selection) {
		if len(c.Nodes) > 0 && c.Nodes[0].Type == html.TextNode {
			parts = append(parts, c.Nodes[0].Data)
		}
	})
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}
