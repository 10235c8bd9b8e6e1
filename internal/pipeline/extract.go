package pipeline

import (
	"fmt"
	"html"
	"sort"
	"strings"
)

// theoremNames maps each theorem-like environment to its display name.
var theoremNames = map[string]string{
	"theorem":      "Theorem",
	"lemma":        "Lemma",
	"proposition":  "Proposition",
	"corollary":    "Corollary",
	"definition":   "Definition",
	"example":      "Example",
	"remark":       "Remark",
	"conjecture":   "Conjecture",
	"claim":        "Claim",
	"fact":         "Fact",
	"notation":     "Notation",
	"axiom":        "Axiom",
	"construction": "Construction",
	"exercise":     "Exercise",
	"problem":      "Problem",
}

var (
	proofFamily    = map[string]bool{"proof": true}
	listFamily     = map[string]bool{"enumerate": true, "itemize": true}
	minipageFamily = map[string]bool{"minipage": true}
)

// sectionLevels maps sectioning commands to heading depth.
var sectionLevels = map[string]int{
	"chapter":       1,
	"section":       2,
	"subsection":    3,
	"subsubsection": 4,
	"paragraph":     5,
}

// Extractor finds environments in LaTeX text.
//
// Phase 1 scans the full text for theorem-like and proof environments. Their
// ranges are then blanked out and Phase 2 scans the masked copy for sections,
// figures, lists and listings. The result is ordered by start offset.
type Extractor struct {
	Labels   LabelTable
	State    *ExtractState
	Reporter *Reporter

	// ParentID is set when extracting inside another element's body.
	// Proofs found there become nested sub-blocks with ids derived from it.
	ParentID string

	nestedProofs int
}

// Extract returns every top-level element of text.
//
// Phase-1 elements that fall inside a list or figure are not returned at top
// level; they are attached to that element's Inner and rendered with its
// body through ExtractWithin.
func (x *Extractor) Extract(text string) []Element {
	if x.State == nil {
		x.State = NewExtractState()
	}
	return x.merge(text, x.extractPriority(text))
}

// ExtractWithin is Extract for a fragment of a list or figure body whose
// Phase-1 elements were already built along with the enclosing text. They are
// located in text instead of being extracted again, so occurrence counters
// and claimed labels advance once per environment.
func (x *Extractor) ExtractWithin(text string, inner []Element) []Element {
	if x.State == nil {
		x.State = NewExtractState()
	}
	return x.merge(text, relocate(text, inner))
}

func (x *Extractor) merge(text string, priority []Element) []Element {
	masked := maskRanges(text, priority)
	structural := x.extractStructural(masked, text)

	merged := make([]Element, 0, len(priority)+len(structural))
	for _, el := range priority {
		if k := containerOf(el, structural); k >= 0 {
			structural[k].Inner = append(structural[k].Inner, el)
			continue
		}
		merged = append(merged, el)
	}
	merged = append(merged, structural...)
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Start < merged[j].Start })
	return merged
}

// relocate moves already built elements onto text. An element keeps its
// offsets when text still holds its Raw there; otherwise Raw is searched for
// after the previous element. Elements not found are dropped.
func relocate(text string, elems []Element) []Element {
	out := make([]Element, 0, len(elems))
	cursor := 0
	for _, el := range elems {
		if el.Start < cursor || el.End > len(text) || el.Start > el.End || text[el.Start:el.End] != el.Raw {
			k := strings.Index(text[cursor:], el.Raw)
			if k < 0 {
				continue
			}
			el.Start = cursor + k
			el.End = el.Start + len(el.Raw)
		}
		out = append(out, el)
		cursor = el.End
	}
	return out
}

// extractPriority is Phase 1.
func (x *Extractor) extractPriority(text string) []Element {
	var out []Element
	labels := labelPositions(text)

	for i := 0; ; {
		tag, ok := nextEnvTag(text, i)
		if !ok {
			return out
		}
		i = tag.after
		if !tag.begin {
			continue
		}

		switch {
		case verbatimEnvs[tag.name]:
			if end, ok := findEnd(text, tag.after, tag.name); ok {
				i = end.after
			}

		case theoremNames[tag.name] != "":
			end, ok := findEnd(text, tag.after, tag.name)
			if !ok {
				x.Reporter.Warn(DiagUnterminated, tag.name, fmt.Sprintf(`\begin{%s} at offset %d has no matching \end`, tag.name, tag.pos))
				continue
			}
			out = append(out, x.theorem(text, tag, end))
			i = end.after

		case tag.name == "proof":
			end, ok := findBalancedEnd(text, tag.after, proofFamily)
			if !ok {
				x.Reporter.Warn(DiagUnterminated, "proof", fmt.Sprintf(`\begin{proof} at offset %d has no matching \end`, tag.pos))
				continue
			}
			out = append(out, x.proof(text, tag, end, labels, out))
			i = end.after
		}
	}
}

func (x *Extractor) theorem(text string, begin, end envTag) Element {
	title, bodyStart, _ := readOptional(text, begin.after)
	label, body := takeLabel(text[bodyStart:end.pos])

	d := &TheoremData{
		Env:        begin.name,
		Title:      strings.TrimSpace(title),
		Label:      label,
		Body:       strings.TrimSpace(body),
		Occurrence: x.State.nextOccurrence(begin.name),
	}
	switch {
	case label != "":
		d.Number, d.ID = x.resolve(label)
		x.State.usedIDs[d.ID] = true
	default:
		d.ID = x.State.uniqueID(fmt.Sprintf("%s-%d", begin.name, d.Occurrence))
	}

	return Element{
		Kind:    KindTheorem,
		Start:   begin.pos,
		End:     end.after,
		Raw:     text[begin.pos:end.after],
		Theorem: d,
	}
}

func (x *Extractor) proof(text string, begin, end envTag, labels []labelPos, earlier []Element) Element {
	title, bodyStart, _ := readOptional(text, begin.after)
	d := &ProofData{
		Title: strings.TrimSpace(title),
		Body:  strings.TrimSpace(text[bodyStart:end.pos]),
	}

	if x.ParentID != "" {
		x.nestedProofs++
		d.Nested = true
		d.StableID = x.State.uniqueID(fmt.Sprintf("%s-sub-%d", x.ParentID, x.nestedProofs))
	} else {
		x.State.proofOrdinal++
		d.StableID = x.proofID(begin.pos, d.Title, labels, earlier)
	}

	return Element{
		Kind:  KindProof,
		Start: begin.pos,
		End:   end.after,
		Raw:   text[begin.pos:end.after],
		Proof: d,
	}
}

// resolve returns the displayed number and element id for a label.
func (x *Extractor) resolve(label string) (number, id string) {
	key := html.UnescapeString(label)
	if e, ok := x.Labels.Lookup(key); ok {
		return e.Number, e.Anchor
	}
	x.Reporter.Warn(DiagUnresolvedRef, key, "label not found in aux table")
	return "?", key
}

// extractStructural is Phase 2. It scans masked but slices Raw from text,
// which is identical outside the masked ranges.
func (x *Extractor) extractStructural(masked, text string) []Element {
	var envs []Element
	for i := 0; ; {
		tag, ok := nextEnvTag(masked, i)
		if !ok {
			break
		}
		i = tag.after
		if !tag.begin {
			continue
		}

		var end envTag
		switch {
		case tag.name == "figure" || tag.name == "figure*":
			end, ok = findEnd(masked, tag.after, tag.name)
		case listFamily[tag.name]:
			end, ok = findBalancedEnd(masked, tag.after, listFamily)
		case verbatimEnvs[tag.name]:
			end, ok = findEnd(masked, tag.after, tag.name)
		default:
			continue
		}
		if !ok {
			x.Reporter.Warn(DiagUnterminated, tag.name, fmt.Sprintf(`\begin{%s} at offset %d has no matching \end`, tag.name, tag.pos))
			continue
		}
		envs = append(envs, x.structural(text, tag, end))
		i = end.after
	}

	out := envs
	for _, sec := range x.sections(masked, text) {
		if !containedIn(sec, envs) {
			out = append(out, sec)
		}
	}
	return out
}

func (x *Extractor) structural(text string, begin, end envTag) Element {
	el := Element{
		Start: begin.pos,
		End:   end.after,
		Raw:   text[begin.pos:end.after],
	}

	switch {
	case listFamily[begin.name]:
		opts, bodyStart, _ := readOptional(text, begin.after)
		el.Kind = KindItemize
		if begin.name == "enumerate" {
			el.Kind = KindEnumerate
		}
		el.List = &ListData{Options: strings.TrimSpace(opts), Body: text[bodyStart:end.pos], BodyStart: bodyStart}

	case verbatimEnvs[begin.name]:
		codeStart := begin.after
		var opts string
		if begin.name == "lstlisting" {
			opts, codeStart, _ = readOptional(text, begin.after)
		}
		code := strings.TrimPrefix(text[codeStart:end.pos], "\n")
		el.Kind = KindListing
		el.Listing = &ListingData{Env: begin.name, Options: opts, Code: strings.TrimRight(code, " \t\n")}

	default:
		_, bodyStart, _ := readOptional(text, begin.after)
		el.Kind = KindFigure
		el.Figure = x.figure(text[bodyStart:end.pos])
	}
	return el
}

// figure pulls the caption and label out of a figure body. Captions inside
// minipages belong to the subfigure and are left alone.
func (x *Extractor) figure(body string) *FigureData {
	skip := envSpans(body, minipageFamily)
	caption, body, hasCaption := takeCommand(body, "caption", skip)
	label, body, hasLabel := takeCommand(body, "label", envSpans(body, minipageFamily))
	if !hasLabel && hasCaption {
		label, caption, hasLabel = takeCommand(caption, "label", nil)
	}

	x.State.figures++
	d := &FigureData{Caption: strings.TrimSpace(caption), Body: strings.TrimSpace(body)}
	if hasLabel {
		d.Label = label
		d.Number, d.ID = x.resolve(label)
		x.State.usedIDs[d.ID] = true
	} else {
		d.ID = x.State.uniqueID(fmt.Sprintf("figure-%d", x.State.figures))
	}
	return d
}

// sections finds sectioning commands, absorbing a \label that directly follows.
func (x *Extractor) sections(masked, text string) []Element {
	var out []Element
	for i := 0; i < len(masked); {
		k := strings.IndexByte(masked[i:], '\\')
		if k < 0 {
			break
		}
		p := i + k
		i = p + 1
		if !startsCommand(masked, p) {
			continue
		}
		j := p + 1
		for j < len(masked) && isLetter(masked[j]) {
			j++
		}
		level, ok := sectionLevels[masked[p+1:j]]
		if !ok {
			continue
		}

		d := &SectionData{Command: masked[p+1 : j], Level: level}
		if j < len(masked) && masked[j] == '*' {
			d.Starred = true
			j++
		}
		if _, after, ok := readOptional(masked, j); ok {
			j = after
		}
		title, after, ok := readArg(masked, j)
		if !ok {
			continue
		}
		d.Title = strings.TrimSpace(title)
		end := after

		if l := skipSpaces(masked, after); commandAt(masked, l, "label") {
			if label, after, ok := readArg(masked, l+len(`\label`)); ok {
				d.Label = strings.TrimSpace(label)
				end = after
			}
		}
		if d.Label != "" {
			d.Number, d.ID = x.resolve(d.Label)
			if d.Starred {
				d.Number = ""
			}
		} else {
			d.ID = x.State.uniqueID(slugify(d.Title, "section"))
		}
		x.State.usedIDs[d.ID] = true

		out = append(out, Element{
			Kind:    KindSection,
			Start:   p,
			End:     end,
			Raw:     text[p:end],
			Section: d,
		})
		i = end
	}
	return out
}

// maskRanges overwrites each element's range with spaces of the same length.
func maskRanges(text string, elems []Element) string {
	if len(elems) == 0 {
		return text
	}
	b := []byte(text)
	for _, el := range elems {
		for k := el.Start; k < el.End; k++ {
			b[k] = ' '
		}
	}
	return string(b)
}

// containerOf returns the index of the element of outer that holds el, or -1.
func containerOf(el Element, outer []Element) int {
	for k, o := range outer {
		if el.Start >= o.Start && el.End <= o.End {
			return k
		}
	}
	return -1
}

// containedIn reports whether el lies inside any of outer.
func containedIn(el Element, outer []Element) bool {
	for _, o := range outer {
		if el.Start >= o.Start && el.End <= o.End {
			return true
		}
	}
	return false
}

// envSpans returns the top-level ranges of environments in family.
func envSpans(s string, family map[string]bool) []span {
	var spans []span
	for i := 0; ; {
		tag, ok := nextEnvTag(s, i)
		if !ok {
			return spans
		}
		i = tag.after
		if !tag.begin || !family[tag.name] {
			continue
		}
		end, ok := findBalancedEnd(s, tag.after, family)
		if !ok {
			return spans
		}
		spans = append(spans, span{start: tag.pos, end: end.after, env: tag.name})
		i = end.after
	}
}

// takeCommand removes the first \name{arg} of s that lies outside skip and
// returns its argument and the remaining text.
func takeCommand(s, name string, skip []span) (arg, rest string, ok bool) {
	for i := 0; ; {
		p := findCommand(s, i, name)
		if p < 0 {
			return "", s, false
		}
		i = p + 1
		if inSpans(p, skip) {
			continue
		}
		a, end, found := readArg(s, p+1+len(name))
		if !found {
			continue
		}
		return strings.TrimSpace(a), s[:p] + s[end:], true
	}
}

// takeLabel removes the first \label outside math from a body.
func takeLabel(body string) (string, string) {
	label, rest, ok := takeCommand(body, "label", mathSpans(body))
	if !ok {
		return "", body
	}
	return label, rest
}
