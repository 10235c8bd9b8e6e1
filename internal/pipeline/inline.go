package pipeline

import (
	"context"
	"fmt"
	"strings"
)

// InlinePass defines the contract for the final text-level pass.
type InlinePass interface {
	Format(ctx context.Context, body string) string
}

// InlineFormatter converts accents, inline formatting, spacing commands and
// TeX typography in the assembled body. Math and <pre> regions are left alone.
type InlineFormatter struct {
	// ReplaceImages converts \includegraphics outside figures. Optional.
	ReplaceImages func(string) string
}

// Compile-time interface check.
var _ InlinePass = (*InlineFormatter)(nil)

// Format applies the inline pass. Running it on its own output changes nothing.
func (f *InlineFormatter) Format(ctx context.Context, body string) string {
	if ctx.Err() != nil {
		return body
	}

	var sh shield
	body = sh.protect(body, protectedSpans(body))

	body = ReplaceAccents(body)
	body = formatCommands(body)
	if f.ReplaceImages != nil {
		body = f.ReplaceImages(body)
	}
	body = replaceSpacing(body)
	body = replaceSymbols(body)
	body = escapeTextNodes(body, typography)

	return sh.restore(body)
}

// inlineTags maps one-argument formatting commands to HTML.
var inlineTags = map[string][2]string{
	"emph":       {"<em>", "</em>"},
	"textit":     {"<i>", "</i>"},
	"textsl":     {"<i>", "</i>"},
	"textbf":     {"<strong>", "</strong>"},
	"texttt":     {"<code>", "</code>"},
	"underline":  {"<u>", "</u>"},
	"textsc":     {`<span class="smallcaps">`, "</span>"},
	"textsf":     {`<span class="sans">`, "</span>"},
	"textrm":     {"<span>", "</span>"},
	"textup":     {"<span>", "</span>"},
	"textnormal": {"<span>", "</span>"},
	"text":       {"<span>", "</span>"},
	"mbox":       {"<span>", "</span>"},
	"footnote":   {`<span class="footnote" role="note">`, "</span>"},
}

// oldStyleTags maps declarations used as {\bf text}.
var oldStyleTags = map[string][2]string{
	"bf": {"<strong>", "</strong>"},
	"it": {"<i>", "</i>"},
	"sl": {"<i>", "</i>"},
	"em": {"<em>", "</em>"},
	"tt": {"<code>", "</code>"},
	"sc": {`<span class="smallcaps">`, "</span>"},
	"sf": {`<span class="sans">`, "</span>"},
	"rm": {"<span>", "</span>"},
}

// formatCommands rewrites formatting commands, recursing into arguments so
// \textbf{\emph{x}} and {\bf \texttt{x}} both work.
func formatCommands(s string) string {
	var b strings.Builder
	i := 0
	for i < len(s) {
		k := strings.IndexAny(s[i:], `\{`)
		if k < 0 {
			break
		}
		p := i + k
		b.WriteString(s[i:p])

		if s[p] == '{' {
			if out, end, ok := oldStyleAt(s, p); ok {
				b.WriteString(out)
				i = end
				continue
			}
			// Plain grouping braces are invisible in the output.
			if group, end, ok := readGroup(s, p, '{', '}'); ok {
				b.WriteString(formatCommands(group))
				i = end
				continue
			}
			b.WriteByte('{')
			i = p + 1
			continue
		}

		if p+1 >= len(s) || !isLetter(s[p+1]) {
			// Control symbol such as \, \{ or \%: left for later passes.
			end := min(p+2, len(s))
			b.WriteString(s[p:end])
			i = end
			continue
		}
		j := p + 1
		for j < len(s) && isLetter(s[j]) {
			j++
		}
		name := s[p+1 : j]
		if out, end, ok := commandHTML(s, name, j); ok {
			b.WriteString(out)
			i = end
			continue
		}
		b.WriteString(s[p:j])
		i = keepArguments(&b, s, j)
	}
	b.WriteString(s[i:])
	return b.String()
}

// keepArguments copies the star, [options] and {arguments} that follow an
// unknown command, so \vspace{1cm} or \includegraphics[..]{f} reach the
// later passes intact. Only the braced arguments are formatted.
func keepArguments(b *strings.Builder, s string, i int) int {
	if i < len(s) && s[i] == '*' {
		b.WriteByte('*')
		i++
	}
	for i < len(s) {
		switch s[i] {
		case '[':
			opt, end, ok := readGroup(s, i, '[', ']')
			if !ok {
				return i
			}
			b.WriteString("[" + opt + "]")
			i = end
		case '{':
			arg, end, ok := readGroup(s, i, '{', '}')
			if !ok {
				return i
			}
			b.WriteString("{" + formatCommands(arg) + "}")
			i = end
		default:
			return i
		}
	}
	return i
}

// commandHTML renders \name whose arguments start at j.
func commandHTML(s, name string, j int) (string, int, bool) {
	switch name {
	case "url":
		u, end, ok := readArg(s, j)
		if !ok {
			return "", 0, false
		}
		return fmt.Sprintf(`<a class="url" href="%s">%s</a>`, hrefAttr(u), strings.TrimSpace(u)), end, true
	case "href":
		u, mid, ok := readArg(s, j)
		if !ok {
			return "", 0, false
		}
		text, end, ok := readArg(s, mid)
		if !ok {
			return "", 0, false
		}
		return fmt.Sprintf(`<a href="%s">%s</a>`, hrefAttr(u), formatCommands(text)), end, true
	}

	tags, ok := inlineTags[name]
	if !ok {
		return "", 0, false
	}
	arg, end, ok := readArg(s, j)
	if !ok {
		return "", 0, false
	}
	return tags[0] + formatCommands(arg) + tags[1], end, true
}

// oldStyleAt handles a {\bf ...} group starting at s[p] == '{'.
func oldStyleAt(s string, p int) (string, int, bool) {
	if p+1 >= len(s) || s[p+1] != '\\' {
		return "", 0, false
	}
	j := p + 2
	for j < len(s) && isLetter(s[j]) {
		j++
	}
	tags, ok := oldStyleTags[s[p+2:j]]
	if !ok {
		return "", 0, false
	}
	group, end, ok := readGroup(s, p, '{', '}')
	if !ok {
		return "", 0, false
	}
	inner := strings.TrimPrefix(group[j-p-1:], " ")
	return tags[0] + formatCommands(inner) + tags[1], end, true
}

func hrefAttr(u string) string {
	return strings.ReplaceAll(strings.TrimSpace(u), `"`, "%22")
}

var verticalSkips = map[string]string{
	"smallskip": `<span class="vspace smallskip"></span>`,
	"medskip":   `<span class="vspace medskip"></span>`,
	"bigskip":   `<span class="vspace bigskip"></span>`,
	"newpage":   `<span class="page-break"></span>`,
	"clearpage": `<span class="page-break"></span>`,
	"pagebreak": `<span class="page-break"></span>`,
}

// replaceSpacing converts whitespace and page-control commands. Spacers are
// spans styled as blocks so they stay valid inside paragraphs.
func replaceSpacing(s string) string {
	s = replaceStarredArgCommand(s, "vspace", func(arg string) string {
		if css, ok := cssLength(arg); ok {
			return fmt.Sprintf(`<span class="vspace" style="height:%s"></span>`, css)
		}
		return `<span class="vspace medskip"></span>`
	})
	for _, name := range []string{"smallskip", "medskip", "bigskip", "newpage", "clearpage", "pagebreak"} {
		s = replaceBareCommand(s, name, verticalSkips[name])
	}
	s = replaceHorizontalSpacing(s)

	s = replaceLineBreaks(s)
	s = replaceBareCommand(s, "newline", "<br>")
	s = replaceBareCommand(s, "noindent", "")
	s = replaceBareCommand(s, "centering", "")
	s = replaceBareCommand(s, "par", "")
	s = replaceBareCommand(s, "qquad", "&emsp;&emsp;")
	s = replaceBareCommand(s, "quad", "&emsp;")
	s = strings.ReplaceAll(s, beginPrefix+"center}", "")
	s = strings.ReplaceAll(s, endPrefix+"center}", "")
	return s
}

// replaceLineBreaks turns \\ (with an optional [length]) into <br>.
func replaceLineBreaks(s string) string {
	var b strings.Builder
	i := 0
	for {
		k := strings.Index(s[i:], `\\`)
		if k < 0 {
			break
		}
		p := i + k
		b.WriteString(s[i:p])
		b.WriteString("<br>")
		end := p + 2
		if end < len(s) && s[end] == '*' {
			end++
		}
		if _, after, ok := readOptional(s, end); ok {
			end = after
		}
		i = end
	}
	b.WriteString(s[i:])
	return b.String()
}

var symbols = strings.NewReplacer(
	`\&amp;`, "&amp;",
	`\%`, "%",
	`\$`, `<span class="dollar">$</span>`,
	`\#`, "#",
	`\_`, "_",
	`\{`, "{",
	`\}`, "}",
	`\,`, "&thinsp;",
	`\ `, " ",
	`\ldots`, "…",
	`\dots`, "…",
	`\LaTeX`, "LaTeX",
	`\TeX`, "TeX",
	`\textbackslash`, "&#92;",
	`\S `, "§ ",
	"{}", "",
)

func replaceSymbols(s string) string {
	return symbols.Replace(s)
}

var typography = strings.NewReplacer(
	"---", "—",
	"--", "–",
	"``", "“",
	"''", "”",
	"~", "&nbsp;",
)
