// Package audit cross-references a page's backdrop-filter usage against
// a capability snapshot: which compositing features the page relies on
// that the probed environment does not support.
//
// Usage is extracted from inline <style> elements and style attributes.
// External stylesheets are not fetched; the audit works on the DOM the
// caller hands it.
package audit

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"

	"github.com/glasshouse/capsight/probe"
)

// Source identifies where a declaration was found.
type Source string

const (
	SourceStyleElement   Source = "style-element"
	SourceStyleAttribute Source = "style-attribute"
)

// Usage is one backdrop-filter declaration found in the page.
type Usage struct {
	Source   Source `json:"source"`
	Property string `json:"property"`
	// Value is the declaration value, sanitized before inclusion since
	// page content is untrusted.
	Value string `json:"value"`
	// Advanced is true when the value combines blur with saturate or
	// brightness adjustments.
	Advanced bool `json:"advanced"`
}

// Result is the outcome of one audit pass.
type Result struct {
	Usages []Usage `json:"usages"`
	// Unsupported lists the usages the snapshot says the environment
	// cannot honour.
	Unsupported []Usage `json:"unsupported"`
}

// Clean reports whether the page uses nothing the environment lacks.
func (r *Result) Clean() bool {
	return len(r.Unsupported) == 0
}

// sanitizer strips all markup from extracted snippets. Declarations come
// from arbitrary pages and end up in reports and tool output.
var sanitizer = bluemonday.StrictPolicy()

// Audit parses doc and checks every backdrop-filter declaration against
// snap.
func Audit(doc []byte, snap probe.Snapshot) (*Result, error) {
	root, err := html.Parse(bytes.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("audit: parse html: %w", err)
	}

	res := &Result{}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if n.Data == "style" {
				res.Usages = append(res.Usages, fromCSS(collectText(n), SourceStyleElement)...)
			}
			for _, attr := range n.Attr {
				if attr.Key == "style" {
					res.Usages = append(res.Usages, fromCSS(attr.Val, SourceStyleAttribute)...)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	for _, u := range res.Usages {
		if !supported(u, snap) {
			res.Unsupported = append(res.Unsupported, u)
		}
	}
	return res, nil
}

func supported(u Usage, snap probe.Snapshot) bool {
	if u.Advanced {
		return snap.SupportsAdvancedBackdropFilter
	}
	return snap.SupportsBackdropFilter
}

// fromCSS extracts backdrop-filter declarations from a CSS fragment.
// A full CSS parser is deliberately avoided: declarations are split on
// ';' and '{'/'}' boundaries, which is enough for inline styles and the
// rule bodies we care about.
func fromCSS(css string, src Source) []Usage {
	var usages []Usage
	for _, decl := range splitDeclarations(css) {
		name, value, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if name != "backdrop-filter" && name != "-webkit-backdrop-filter" {
			continue
		}
		value = strings.TrimSpace(strings.TrimSuffix(value, "!important"))
		value = strings.TrimSpace(value)
		usages = append(usages, Usage{
			Source:   src,
			Property: name,
			Value:    sanitizer.Sanitize(value),
			Advanced: isAdvanced(value),
		})
	}
	return usages
}

// isAdvanced reports whether a value layers saturation or brightness
// adjustment on top of blur.
func isAdvanced(value string) bool {
	hasBlur := strings.Contains(value, "blur(")
	return hasBlur &&
		(strings.Contains(value, "saturate(") || strings.Contains(value, "brightness("))
}

func splitDeclarations(css string) []string {
	// Rule bodies and inline styles both reduce to ;-separated
	// declarations once braces are treated as separators.
	f := func(r rune) bool { return r == ';' || r == '{' || r == '}' }
	return strings.FieldsFunc(css, f)
}

func collectText(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}
