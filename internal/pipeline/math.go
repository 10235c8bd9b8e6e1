package pipeline

import (
	"regexp"
	"strconv"
	"strings"
)

// mathEnvs are display environments whose content belongs to KaTeX.
var mathEnvs = map[string]bool{
	"equation": true, "equation*": true,
	"align": true, "align*": true,
	"gather": true, "gather*": true,
	"multline": true, "multline*": true,
	"alignat": true, "alignat*": true,
	"flalign": true, "flalign*": true,
	"eqnarray": true, "eqnarray*": true,
	"displaymath": true, "math": true,
}

// span is a half-open byte range.
type span struct {
	start, end int
	env        string // math environment name, "" for delimiters
}

// mathSpans returns the math regions of s in order: $..$, $$..$$, \(..\),
// \[..\] and the display environments in mathEnvs. Unterminated openers are
// ignored.
func mathSpans(s string) []span {
	var spans []span
	for i := 0; i < len(s); {
		switch s[i] {
		case '\\':
			if i+1 >= len(s) {
				return spans
			}
			switch s[i+1] {
			case '[', '(':
				closer := `\]`
				if s[i+1] == '(' {
					closer = `\)`
				}
				if k := strings.Index(s[i+2:], closer); k >= 0 {
					end := i + 2 + k + 2
					spans = append(spans, span{start: i, end: end})
					i = end
					continue
				}
			case 'b':
				if tag, ok := nextEnvTag(s, i); ok && tag.pos == i && tag.begin && mathEnvs[tag.name] {
					if end, ok := findEnd(s, tag.after, tag.name); ok {
						spans = append(spans, span{start: i, end: end.after, env: tag.name})
						i = end.after
						continue
					}
				}
			}
			i += 2 // skip the escaped character or the command's first letter
		case '$':
			delim := "$"
			if i+1 < len(s) && s[i+1] == '$' {
				delim = "$$"
			}
			if k := indexUnescaped(s, i+len(delim), delim); k >= 0 {
				end := k + len(delim)
				spans = append(spans, span{start: i, end: end})
				i = end
				continue
			}
			i += len(delim)
		default:
			i++
		}
	}
	return spans
}

// indexUnescaped finds delim at or after from, ignoring occurrences preceded
// by an odd number of backslashes.
func indexUnescaped(s string, from int, delim string) int {
	for i := from; i < len(s); {
		k := strings.Index(s[i:], delim)
		if k < 0 {
			return -1
		}
		p := i + k
		if startsCommand(s, p) {
			return p
		}
		i = p + 1
	}
	return -1
}

// inSpans reports whether offset p falls inside any of spans.
func inSpans(p int, spans []span) bool {
	for _, sp := range spans {
		if p >= sp.start && p < sp.end {
			return true
		}
	}
	return false
}

// preSpans returns the <pre>...</pre> regions of generated HTML.
func preSpans(s string) []span {
	var spans []span
	for i := 0; ; {
		k := strings.Index(s[i:], "<pre")
		if k < 0 {
			return spans
		}
		start := i + k
		e := strings.Index(s[start:], "</pre>")
		if e < 0 {
			return spans
		}
		end := start + e + len("</pre>")
		spans = append(spans, span{start: start, end: end})
		i = end
	}
}

// Shield placeholders use Unicode Private Use Area characters, which never
// occur in LaTeX source and pass through every text pass unchanged.
const (
	shieldOpen  = "\uE000"
	shieldClose = "\uE001"
)

var shieldPattern = regexp.MustCompile(shieldOpen + `(\d+)` + shieldClose)

// shield swaps protected regions for placeholders and restores them later.
type shield struct {
	saved []string
}

// protect replaces the given non-overlapping, ordered spans with placeholders.
func (sh *shield) protect(s string, spans []span) string {
	if len(spans) == 0 {
		return s
	}
	var b strings.Builder
	last := 0
	for _, sp := range spans {
		if sp.start < last {
			continue
		}
		b.WriteString(s[last:sp.start])
		b.WriteString(shieldOpen + strconv.Itoa(len(sh.saved)) + shieldClose)
		sh.saved = append(sh.saved, s[sp.start:sp.end])
		last = sp.end
	}
	b.WriteString(s[last:])
	return b.String()
}

// restore puts protected regions back.
func (sh *shield) restore(s string) string {
	if len(sh.saved) == 0 {
		return s
	}
	return shieldPattern.ReplaceAllStringFunc(s, func(m string) string {
		n, err := strconv.Atoi(m[len(shieldOpen) : len(m)-len(shieldClose)])
		if err != nil || n >= len(sh.saved) {
			return m
		}
		return sh.saved[n]
	})
}

// protectedSpans merges math and <pre> regions in document order.
func protectedSpans(s string) []span {
	math := mathSpans(s)
	pre := preSpans(s)
	out := make([]span, 0, len(math)+len(pre))
	i, j := 0, 0
	for i < len(math) || j < len(pre) {
		switch {
		case j >= len(pre) || (i < len(math) && math[i].start < pre[j].start):
			out = append(out, math[i])
			i++
		default:
			out = append(out, pre[j])
			j++
		}
	}
	return out
}
