// Package docs holds the user manual, one markdown file per topic.
package docs

import (
	"embed"
	"fmt"
	"io/fs"
	"slices"
	"strings"
)

//go:embed *.md
var manual embed.FS

// Readme is the topic listing the others.
const Readme = "readme"

// Topic returns the markdown of a topic.
func Topic(name string) (string, error) {
	b, err := manual.ReadFile(name + ".md")
	if err != nil {
		return "", fmt.Errorf("no topic %q, see 'ordr topic'", name)
	}
	return string(b), nil
}

// Topics returns the markdown of several topics, one after the other. "*"
// stands for every topic but the readme.
func Topics(names ...string) (string, error) {
	var b strings.Builder
	for _, name := range names {
		expanded := []string{name}
		if name == "*" {
			expanded = All()
		}
		for _, n := range expanded {
			content, err := Topic(n)
			if err != nil {
				return "", err
			}
			b.WriteString(content)
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}

// All returns the name of every topic but the readme, sorted.
func All() []string {
	entries, _ := fs.Glob(manual, "*.md")
	var names []string
	for _, e := range entries {
		if name := strings.TrimSuffix(e, ".md"); name != Readme {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}
