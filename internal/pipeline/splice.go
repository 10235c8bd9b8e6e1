package pipeline

import (
	"fmt"
	"regexp"
	"strings"
)

// SpliceResult is the text produced by Splice.
type SpliceResult struct {
	Text    string
	Blocks  []span // output ranges of spliced fragments
	Applied int
	Skipped int
}

// Splice replaces each element's source range with its HTML fragment.
//
// elems must be ordered by Start and carry offsets into text. The output is
// built in one left-to-right pass: unchanged text between elements is copied
// and each element contributes its fragment. An element that overlaps the
// previous one, or whose Raw no longer matches text at its range, is skipped
// and reported; its source stays in the output unconverted.
func Splice(text string, elems []Element, rep *Reporter) SpliceResult {
	var res SpliceResult
	var b strings.Builder
	b.Grow(len(text))

	cursor := 0
	for _, el := range elems {
		switch {
		case el.Start < cursor || el.Start > el.End || el.End > len(text):
			rep.Error(DiagSpliceMismatch, el.Kind.String(),
				fmt.Sprintf("%s at [%d,%d) overlaps the previous element, left unconverted", el.Kind, el.Start, el.End))
			res.Skipped++
			continue
		case text[el.Start:el.End] != el.Raw:
			rep.Error(DiagSpliceMismatch, el.Kind.String(),
				fmt.Sprintf("%s at [%d,%d) does not match its recorded source, left unconverted", el.Kind, el.Start, el.End))
			res.Skipped++
			continue
		}

		b.WriteString(text[cursor:el.Start])
		start := b.Len()
		b.WriteString(el.HTML)
		res.Blocks = append(res.Blocks, span{start: start, end: b.Len()})
		cursor = el.End
		res.Applied++
	}
	b.WriteString(text[cursor:])

	res.Text = b.String()
	return res
}

var (
	blankLine = regexp.MustCompile(`\n[ \t]*\n`)

	blockTag = regexp.MustCompile(`^<(?:div|figure|h[1-6]|ol|ul|dl|pre|table|section|hr|blockquote|p|nav)[\s>/]`)

	// A chunk made only of vertical spacing commands is not a paragraph.
	spacingOnly = regexp.MustCompile(`^(?:\\(?:smallskip|medskip|bigskip|newpage|clearpage|pagebreak)\b|\\vspace\*?\{[^{}]*\}|\s)+$`)
)

// Paragraphs wraps the text between spliced fragments in <p> elements,
// splitting on blank lines. Spliced fragments are emitted untouched. With
// tight set, a fragment that holds a single chunk of text is left unwrapped.
func Paragraphs(res SpliceResult, tight bool) string {
	type piece struct {
		text  string
		block bool
	}
	var pieces []piece
	last := 0
	for _, bl := range res.Blocks {
		pieces = append(pieces, piece{text: res.Text[last:bl.start]})
		pieces = append(pieces, piece{text: res.Text[bl.start:bl.end], block: true})
		last = bl.end
	}
	pieces = append(pieces, piece{text: res.Text[last:]})

	chunks := 0
	for _, p := range pieces {
		if !p.block {
			chunks += len(splitChunks(p.text))
		}
	}
	wrap := !tight || chunks > 1

	var out []string
	for _, p := range pieces {
		if p.block {
			out = append(out, p.text)
			continue
		}
		for _, c := range splitChunks(p.text) {
			if wrap {
				c = wrapParagraph(c)
			}
			out = append(out, c)
		}
	}
	return strings.Join(out, "\n")
}

func splitChunks(s string) []string {
	var out []string
	for _, c := range blankLine.Split(s, -1) {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

func wrapParagraph(chunk string) string {
	if blockTag.MatchString(chunk) || spacingOnly.MatchString(chunk) {
		return chunk
	}
	if commandAt(chunk, 0, "noindent") {
		return `<p class="noindent">` + strings.TrimSpace(chunk[len(`\noindent`):]) + `</p>`
	}
	return "<p>" + chunk + "</p>"
}
