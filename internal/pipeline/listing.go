package pipeline

import (
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// ErrHighlight indicates a code listing could not be highlighted.
var ErrHighlight = errors.New("highlighting failed")

// DefaultHighlightStyle is the chroma style used when none is configured.
const DefaultHighlightStyle = "github"

// CodeHighlighter turns source code into HTML.
type CodeHighlighter interface {
	Highlight(code, lang string) (string, error)
}

var _ CodeHighlighter = (*Highlighter)(nil)

// Highlighter renders code listings with chroma using CSS classes.
type Highlighter struct {
	style     *chroma.Style
	formatter *chromahtml.Formatter
}

// NewHighlighter creates a Highlighter for the named chroma style. Unknown
// names fall back to chroma's default style.
func NewHighlighter(style string) *Highlighter {
	if style == "" {
		style = DefaultHighlightStyle
	}
	return &Highlighter{
		style:     styles.Get(style),
		formatter: chromahtml.New(chromahtml.WithClasses(true)),
	}
}

// Highlight returns the HTML for code in language lang.
func (h *Highlighter) Highlight(code, lang string) (string, error) {
	lexer := lexers.Get(lang)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	it, err := lexer.Tokenise(nil, code)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrHighlight, err)
	}
	var b strings.Builder
	if err := h.formatter.Format(&b, h.style, it); err != nil {
		return "", fmt.Errorf("%w: %v", ErrHighlight, err)
	}
	return b.String(), nil
}

// CSS returns the stylesheet for the highlighter's classes.
func (h *Highlighter) CSS() (string, error) {
	var b strings.Builder
	if err := h.formatter.WriteCSS(&b, h.style); err != nil {
		return "", fmt.Errorf("%w: %v", ErrHighlight, err)
	}
	return b.String(), nil
}

// latexInert escapes the characters later LaTeX passes and KaTeX react to,
// so code is shown exactly as written.
var latexInert = strings.NewReplacer(`\`, "&#92;", "$", "&#36;", "~", "&#126;", "-", "&#45;", "`", "&#96;", "'", "&#39;")

func (r *Renderer) listing(d *ListingData) string {
	code := html.UnescapeString(d.Code)

	var lang, caption string
	for _, kv := range strings.Split(d.Options, ",") {
		k, v, _ := strings.Cut(kv, "=")
		switch strings.TrimSpace(k) {
		case "language":
			lang = strings.TrimSpace(v)
		case "caption":
			caption = strings.Trim(strings.TrimSpace(v), "{}")
		}
	}

	var body string
	if r.Highlighter != nil {
		out, err := r.Highlighter.Highlight(code, lang)
		if err != nil {
			r.Reporter.Warn(DiagListing, d.Env, "listing shown without highlighting: "+err.Error())
		} else {
			body = out
		}
	}
	if body == "" {
		body = `<pre class="listing"><code>` + html.EscapeString(code) + `</code></pre>`
	}
	body = escapeTextNodes(body, latexInert)

	if caption == "" {
		return `<div class="listing">` + body + `</div>`
	}
	return `<figure class="listing">` + body + `<figcaption>` + caption + `</figcaption></figure>`
}

// escapeTextNodes applies rep to the text between tags of generated HTML.
func escapeTextNodes(s string, rep *strings.Replacer) string {
	var b strings.Builder
	for i := 0; i < len(s); {
		lt := strings.IndexByte(s[i:], '<')
		if lt < 0 {
			b.WriteString(rep.Replace(s[i:]))
			break
		}
		b.WriteString(rep.Replace(s[i : i+lt]))
		gt := strings.IndexByte(s[i+lt:], '>')
		if gt < 0 {
			b.WriteString(s[i+lt:])
			break
		}
		b.WriteString(s[i+lt : i+lt+gt+1])
		i += lt + gt + 1
	}
	return b.String()
}
