package extract

import (
	"net/url"
	"regexp"
	"strings"
)

// productPath matches the two known product page shapes and captures the product code.
var productPath = regexp.MustCompile(`(?i)/(?:dp|gp/product)/([a-z0-9]{10})(?:[/?#]|$)`)

// redirectParams are the query parameters a tracking redirect carries its target in.
var redirectParams = []string{"U", "u", "url"}

// Unwrap returns the target of a redirect wrapper link, or href itself.
func Unwrap(href string) string {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	q := u.Query()
	for _, p := range redirectParams {
		target := q.Get(p)
		if target == "" {
			continue
		}
		t, err := url.Parse(target)
		if err != nil || (t.Scheme != "http" && t.Scheme != "https") {
			continue
		}
		return target
	}
	return href
}

// ProductCode extracts the canonical product code of a product link, unwrapping
// redirect wrappers first.
func ProductCode(href string) (string, bool) {
	target := Unwrap(href)
	u, err := url.Parse(target)
	if err != nil {
		return "", false
	}
	m := productPath.FindStringSubmatch(u.EscapedPath())
	if m == nil {
		return "", false
	}
	return strings.ToUpper(m[1]), true
}

// ProductURL returns the canonical product page for code on base.
func ProductURL(base, code string) string {
	return strings.TrimRight(base, "/") + "/dp/" + code
}
