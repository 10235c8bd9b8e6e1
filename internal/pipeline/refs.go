package pipeline

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"
)

// ReferenceLinker defines the contract for resolving cross-references.
type ReferenceLinker interface {
	Link(ctx context.Context, body string, labels LabelTable) string
}

// RefLinker resolves \ref-style commands against a label table.
//
// References inside math become bare numbers because KaTeX cannot render
// markup there; references in prose become anchor links. Unresolved labels
// are flagged with the label name so they can be found in the page.
type RefLinker struct {
	Reporter *Reporter
}

// Compile-time interface check.
var _ ReferenceLinker = (*RefLinker)(nil)

var (
	refPattern   = regexp.MustCompile(`\\(ref|eqref|cref|Cref|autoref|pageref)\*?\{([^{}]*)\}`)
	labelPattern = regexp.MustCompile(`\\label\{([^{}]*)\}`)
)

// kindNames maps hyperref anchor prefixes to names used by \cref and \autoref.
var kindNames = map[string]string{
	"equation":   "equation",
	"section":    "section",
	"subsection": "section",
	"chapter":    "chapter",
	"figure":     "figure",
	"table":      "table",
	"item":       "item",
	"Item":       "item",
}

// Link resolves every reference command in body.
func (l *RefLinker) Link(ctx context.Context, body string, labels LabelTable) string {
	if ctx.Err() != nil {
		return body
	}
	body = l.linkMath(body, labels)

	var sh shield
	body = sh.protect(body, protectedSpans(body))
	body = refPattern.ReplaceAllStringFunc(body, func(m string) string {
		sub := refPattern.FindStringSubmatch(m)
		return l.proseRef(sub[1], sub[2], labels)
	})
	body = labelPattern.ReplaceAllStringFunc(body, func(m string) string {
		return anchorSpan(labelPattern.FindStringSubmatch(m)[1], labels)
	})
	return sh.restore(body)
}

// linkMath rewrites references inside math spans and moves equation labels
// out in front of the math as empty anchors.
func (l *RefLinker) linkMath(body string, labels LabelTable) string {
	spans := mathSpans(body)
	if len(spans) == 0 {
		return body
	}
	var b strings.Builder
	last := 0
	for _, sp := range spans {
		b.WriteString(body[last:sp.start])
		math := body[sp.start:sp.end]

		var anchors strings.Builder
		var tags []string
		math = labelPattern.ReplaceAllStringFunc(math, func(m string) string {
			name := labelPattern.FindStringSubmatch(m)[1]
			anchors.WriteString(anchorSpan(name, labels))
			if e, ok := labels.Lookup(html.UnescapeString(strings.TrimSpace(name))); ok && e.Number != "" {
				tags = append(tags, e.Number)
			}
			return ""
		})
		// A single-line equation can carry its aux number as a tag.
		if sp.env == "equation" && len(tags) == 1 {
			closing := endPrefix + sp.env + "}"
			math = strings.TrimSuffix(math, closing) + `\tag{` + tags[0] + `}` + closing
		}
		math = refPattern.ReplaceAllStringFunc(math, func(m string) string {
			sub := refPattern.FindStringSubmatch(m)
			return l.mathRef(sub[1], sub[2], labels)
		})

		b.WriteString(anchors.String())
		b.WriteString(math)
		last = sp.end
	}
	b.WriteString(body[last:])
	return b.String()
}

// mathRef renders a reference inside math: plain text only.
func (l *RefLinker) mathRef(cmd, arg string, labels LabelTable) string {
	var parts []string
	for _, name := range splitLabels(arg) {
		e, ok := labels.Lookup(html.UnescapeString(name))
		if !ok {
			l.Reporter.Warn(DiagUnresolvedRef, name, "reference not found in aux table")
			parts = append(parts, "["+name+"?]")
			continue
		}
		switch cmd {
		case "eqref":
			parts = append(parts, "("+e.Number+")")
		case "pageref":
			parts = append(parts, e.Page)
		default:
			parts = append(parts, e.Number)
		}
	}
	return strings.Join(parts, ", ")
}

// proseRef renders a reference in text as links.
func (l *RefLinker) proseRef(cmd, arg string, labels LabelTable) string {
	var parts []string
	for _, name := range splitLabels(arg) {
		e, ok := labels.Lookup(html.UnescapeString(name))
		if !ok {
			l.Reporter.Warn(DiagUnresolvedRef, name, "reference not found in aux table")
			parts = append(parts, fmt.Sprintf(`<span class="ref-missing" title="reference not found: %s">%s??</span>`, attr(name), name))
			continue
		}

		text := e.Number
		switch cmd {
		case "pageref":
			text = e.Page
		case "cref", "Cref", "autoref":
			if kind := refKind(e.Anchor); kind != "" {
				if cmd != "cref" {
					kind = strings.ToUpper(kind[:1]) + kind[1:]
				}
				text = kind + "&nbsp;" + e.Number
			}
		}
		link := fmt.Sprintf(`<a class="ref" href="#%s">%s</a>`, attr(e.Anchor), text)
		if cmd == "eqref" {
			link = "(" + link + ")"
		}
		parts = append(parts, link)
	}
	return strings.Join(parts, ", ")
}

// refKind derives the referenced environment from a hyperref anchor such as
// "theorem.1.2" or "equation.3.4".
func refKind(anchor string) string {
	prefix, _, ok := strings.Cut(anchor, ".")
	if !ok {
		return ""
	}
	if name, ok := kindNames[prefix]; ok {
		return name
	}
	if _, ok := theoremNames[prefix]; ok {
		return prefix
	}
	return ""
}

// anchorSpan renders a bare \label as an empty link target.
func anchorSpan(name string, labels LabelTable) string {
	key := html.UnescapeString(strings.TrimSpace(name))
	anchor := key
	if e, ok := labels.Lookup(key); ok {
		anchor = e.Anchor
	}
	return fmt.Sprintf(`<span class="label-anchor" id="%s"></span>`, attr(anchor))
}

func splitLabels(arg string) []string {
	var out []string
	for _, name := range strings.Split(arg, ",") {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}
