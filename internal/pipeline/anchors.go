package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// AnchorReport lists link-target problems found in a rendered page.
type AnchorReport struct {
	DuplicateIDs []string
	Dangling     []string // href="#x" targets with no element id x
}

// OK reports whether the page has no anchor problems.
func (r AnchorReport) OK() bool {
	return len(r.DuplicateIDs) == 0 && len(r.Dangling) == 0
}

// CheckAnchors parses the rendered page and verifies that every in-page link
// points at an existing id and that ids are unique. Problems are reported as
// anchor diagnostics; they never fail the conversion.
func CheckAnchors(content string, rep *Reporter) (AnchorReport, error) {
	doc, err := parseHTML(content)
	if err != nil {
		return AnchorReport{}, err
	}

	ids := make(map[string]int)
	var targets []string
	walk(doc, func(n *html.Node) {
		for _, a := range n.Attr {
			switch {
			case a.Key == "id" && a.Val != "":
				ids[a.Val]++
			case a.Key == "href" && n.DataAtom == atom.A && strings.HasPrefix(a.Val, "#") && len(a.Val) > 1:
				targets = append(targets, a.Val[1:])
			}
		}
	})

	var report AnchorReport
	for id, n := range ids {
		if n > 1 {
			report.DuplicateIDs = append(report.DuplicateIDs, id)
		}
	}
	seen := make(map[string]bool)
	for _, t := range targets {
		if ids[t] == 0 && !seen[t] {
			seen[t] = true
			report.Dangling = append(report.Dangling, t)
		}
	}
	sort.Strings(report.DuplicateIDs)
	sort.Strings(report.Dangling)

	for _, id := range report.DuplicateIDs {
		rep.Warn(DiagAnchor, id, fmt.Sprintf("id %q is used %d times", id, ids[id]))
	}
	for _, t := range report.Dangling {
		rep.Warn(DiagAnchor, t, fmt.Sprintf("link target #%s is not on this page", t))
	}
	return report, nil
}

// parseHTML parses HTML content, handling both full documents and fragments.
func parseHTML(content string) (*html.Node, error) {
	trimmed := strings.ToLower(strings.TrimSpace(content))

	// Full document: starts with <!DOCTYPE or <html
	if strings.HasPrefix(trimmed, "<!doctype") || strings.HasPrefix(trimmed, "<html") {
		return html.Parse(strings.NewReader(content))
	}

	// Fragment: parse with body context to avoid wrapping
	context := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Body,
		Data:     "body",
	}
	nodes, err := html.ParseFragment(strings.NewReader(content), context)
	if err != nil {
		return nil, err
	}

	// Wrap nodes in a container for uniform traversal
	container := &html.Node{Type: html.DocumentNode}
	for _, n := range nodes {
		container.AppendChild(n)
	}
	return container, nil
}

// walk visits every element node depth-first.
func walk(n *html.Node, fn func(*html.Node)) {
	if n.Type == html.ElementNode {
		fn(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}
