package pipeline

import (
	"fmt"
	"html"
	"strings"
)

// Renderer turns extracted elements into HTML fragments and splices them
// back into the text. Bodies of theorems, proofs, list items and figures are
// rendered recursively with the same extraction, so nested lists, figures,
// claims and sub-proofs are converted wherever they appear.
type Renderer struct {
	Labels      LabelTable
	State       *ExtractState
	Reporter    *Reporter
	Highlighter CodeHighlighter

	// ImageDir is prepended to every image file name (e.g. "../images/").
	ImageDir string
}

// fragment describes where a piece of text is being rendered.
type fragment struct {
	parentID string // id of the enclosing element, "" at top level
	depth    int
	tight    bool // list items: no <p> around a single chunk
}

// Render converts a preprocessed document body into HTML with LaTeX inline
// commands still in place (the reference and inline passes run afterwards).
func (r *Renderer) Render(text string) string {
	if r.State == nil {
		r.State = NewExtractState()
	}
	return r.render(text, fragment{})
}

func (r *Renderer) render(text string, f fragment) string {
	return Paragraphs(r.splice(text, r.extractor(f).Extract(text), f), f.tight)
}

// renderWithin renders a piece of a list or figure body, reusing the
// elements already built for it.
func (r *Renderer) renderWithin(text string, inner []Element, f fragment) string {
	return Paragraphs(r.splice(text, r.extractor(f).ExtractWithin(text, inner), f), f.tight)
}

func (r *Renderer) extractor(f fragment) *Extractor {
	return &Extractor{
		Labels:   r.Labels,
		State:    r.State,
		Reporter: r.Reporter,
		ParentID: f.parentID,
	}
}

func (r *Renderer) splice(text string, elems []Element, f fragment) SpliceResult {
	for i := range elems {
		elems[i].HTML = r.transform(&elems[i], f)
	}
	return Splice(text, elems, r.Reporter)
}

func (r *Renderer) transform(el *Element, f fragment) string {
	switch el.Kind {
	case KindTheorem:
		return r.theorem(el.Theorem, f)
	case KindProof:
		return r.proof(el.Proof, f)
	case KindSection:
		return r.section(el.Section)
	case KindFigure:
		return r.figure(el, f)
	case KindEnumerate, KindItemize:
		return r.list(el, f)
	case KindListing:
		return r.listing(el.Listing)
	default:
		return el.Raw
	}
}

func (r *Renderer) theorem(d *TheoremData, f fragment) string {
	header := theoremNames[d.Env]
	if d.Number != "" {
		header += " " + d.Number
	}
	var title string
	if d.Title != "" {
		title = ` <span class="theorem-title">(` + d.Title + `)</span>`
	}
	body := r.render(d.Body, fragment{parentID: d.ID, depth: f.depth + 1})
	id := attr(d.ID)

	return fmt.Sprintf(`<div class="theorem-box env-%s" id="%s" data-collapse-id="%s">
<div class="theorem-header"><span class="theorem-name">%s</span>%s</div>
<div class="theorem-body">
%s
</div>
</div>`, d.Env, id, id, header, title, body)
}

func (r *Renderer) proof(d *ProofData, f fragment) string {
	class := "proof-box"
	if d.Nested {
		class = "nested-proof"
	}
	name := "Proof"
	if d.Title != "" {
		name = d.Title
	}
	body := r.render(d.Body, fragment{parentID: d.StableID, depth: f.depth + 1})
	id := attr(d.StableID)

	return fmt.Sprintf(`<div class="%s collapsible" id="%s" data-collapse-id="%s">
<div class="proof-header" role="button" tabindex="0" aria-expanded="true"><span class="proof-name">%s</span></div>
<div class="proof-body">
%s
<div class="qed">&#8718;</div>
</div>
</div>`, class, id, id, name, body)
}

func (r *Renderer) section(d *SectionData) string {
	var number string
	if d.Number != "" && d.Number != "?" {
		number = `<span class="section-number">` + d.Number + `</span> `
	}
	return fmt.Sprintf(`<h%d class="section-heading %s" id="%s">%s%s</h%d>`,
		d.Level, d.Command, attr(d.ID), number, d.Title, d.Level)
}

// attr normalizes a value for use inside a double-quoted attribute. Values
// coming from the source are already entity-escaped, values from the aux
// file are not; unescaping first makes both end up escaped exactly once.
func attr(s string) string {
	return html.EscapeString(html.UnescapeString(strings.TrimSpace(s)))
}
