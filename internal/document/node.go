// Package document wraps a parsed HTML tree behind a small query surface so the
// extractors never touch the parser directly.
package document

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Node is a selection of zero or more elements in a parsed page. Every query on
// an empty Node yields another empty Node rather than an error.
type Node interface {
	// Find returns the descendants matching a CSS selector.
	Find(selector string) Node
	Len() int
	Eq(i int) Node
	First() Node
	// Each calls fn for every element in document order.
	Each(fn func(i int, n Node))
	// Attr reads an attribute of the first element.
	Attr(name string) (string, bool)
	// Text is the trimmed combined text of all elements, descendants included.
	Text() string
	// OwnText is the trimmed text of the first element's direct text children.
	OwnText() string
	// HTML is the inner markup of the first element.
	HTML() string
	// NextMatching returns the immediately following sibling when it matches.
	NextMatching(selector string) Node
	// Without returns a detached copy with matching descendants removed.
	Without(selector string) Node
	// Is reports whether any element matches the selector.
	Is(selector string) bool
}

// Selection is the goquery-backed Node.
type Selection struct {
	sel *goquery.Selection
}

var _ Node = (*Selection)(nil)

// Parse reads an HTML document.
func Parse(r io.Reader) (*Selection, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return Wrap(doc.Selection), nil
}

// ParseString parses an in-memory HTML document.
func ParseString(html string) (*Selection, error) {
	return Parse(strings.NewReader(html))
}

// Wrap adapts an existing goquery selection.
func Wrap(sel *goquery.Selection) *Selection {
	if sel == nil {
		return Empty()
	}
	return &Selection{sel: sel}
}

// Empty returns a Node matching nothing.
func Empty() *Selection {
	return &Selection{sel: &goquery.Selection{}}
}

func (s *Selection) Find(selector string) Node {
	return Wrap(s.sel.Find(selector))
}

func (s *Selection) Len() int {
	return s.sel.Length()
}

func (s *Selection) Eq(i int) Node {
	return Wrap(s.sel.Eq(i))
}

func (s *Selection) First() Node {
	return Wrap(s.sel.First())
}

func (s *Selection) Each(fn func(i int, n Node)) {
	s.sel.Each(func(i int, child *goquery.Selection) {
		fn(i, Wrap(child))
	})
}

func (s *Selection) Attr(name string) (string, bool) {
	return s.sel.Attr(name)
}

func (s *Selection) Text() string {
	return strings.TrimSpace(s.sel.Text())
}

func (s *Selection) OwnText() string {
	var b strings.Builder
	s.sel.First().Contents().Each(func(_ int, c *goquery.Selection) {
		if goquery.NodeName(c) == "#text" {
			b.WriteString(c.Text())
		}
	})
	return strings.TrimSpace(b.String())
}

func (s *Selection) HTML() string {
	if s.sel.Length() == 0 {
		return ""
	}
	html, err := s.sel.First().Html()
	if err != nil {
		return ""
	}
	return html
}

func (s *Selection) NextMatching(selector string) Node {
	return Wrap(s.sel.NextFiltered(selector))
}

func (s *Selection) Without(selector string) Node {
	clone := s.sel.Clone()
	clone.Find(selector).Remove()
	return Wrap(clone)
}

func (s *Selection) Is(selector string) bool {
	return s.sel.Is(selector)
}
