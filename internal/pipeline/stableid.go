package pipeline

import (
	"fmt"
	"html"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// labelPos is a \label occurrence in the text being extracted.
type labelPos struct {
	pos  int
	name string
}

// labelPositions lists every \label{..} in text in order.
func labelPositions(text string) []labelPos {
	var out []labelPos
	for i := 0; ; {
		p := findCommand(text, i, "label")
		if p < 0 {
			return out
		}
		i = p + 1
		if name, _, ok := readArg(text, p+len(`\label`)); ok && strings.TrimSpace(name) != "" {
			out = append(out, labelPos{pos: p, name: html.UnescapeString(strings.TrimSpace(name))})
		}
	}
}

// proofID derives the stable id of a top-level proof starting at pos.
//
// Priority: the nearest preceding label that is neither inside an earlier
// Phase-1 element nor claimed by another proof, then the title slug, then
// the proof ordinal. The label search can pick up an unrelated label when
// several unlabelled blocks sit between a label and its proof.
func (x *Extractor) proofID(pos int, title string, labels []labelPos, earlier []Element) string {
	for k := len(labels) - 1; k >= 0; k-- {
		l := labels[k]
		if l.pos >= pos || x.State.claimedLabels[l.name] || insideElements(l.pos, earlier) {
			continue
		}
		x.State.claimedLabels[l.name] = true
		return x.State.uniqueID("proof-for-" + l.name)
	}

	if slug := slugify(title, ""); slug != "" {
		if !strings.HasPrefix(slug, "proof") {
			slug = "proof-" + slug
		}
		return x.State.uniqueID(slug)
	}

	return x.State.uniqueID(fmt.Sprintf("proof-num-%d", x.State.proofOrdinal))
}

func insideElements(p int, elems []Element) bool {
	for _, el := range elems {
		if p >= el.Start && p < el.End {
			return true
		}
	}
	return false
}

// slugify lower-cases s, keeps ASCII letters and digits and collapses every
// other run into a single dash. It returns fallback for an empty result.
func slugify(s, fallback string) string {
	// Drop combining marks so "Démonstration" slugs as "demonstration".
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(stripMarks, html.UnescapeString(s)); err == nil {
		s = folded
	}
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimRight(b.String(), "-")
	if slug == "" {
		return fallback
	}
	return slug
}
