package pipeline

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// listItem is one \item of a list body.
type listItem struct {
	label    string
	hasLabel bool
	text     string
	start    int // offset of text in the list body
}

var (
	setCounterPattern = regexp.MustCompile(`\\setcounter\{enum(?:i|ii|iii|iv)\}\{\s*(-?\d+)\s*\}`)
	startOptPattern   = regexp.MustCompile(`(?:^|,)\s*start\s*=\s*(-?\d+)`)
)

// enumStyle is the numbering chosen by an enumerate option.
type enumStyle struct {
	typ    string // HTML type attribute: a, i, A, I or 1
	format string // marker as written, e.g. "(a)"
	paren  bool
}

// enumLabelMacros maps enumitem counter macros to list types.
var enumLabelMacros = []struct {
	macro string
	typ   string
}{
	{`\alph*`, "a"},
	{`\Alph*`, "A"},
	{`\roman*`, "i"},
	{`\Roman*`, "I"},
	{`\arabic*`, "1"},
	{`\alph`, "a"},
	{`\Alph`, "A"},
	{`\roman`, "i"},
	{`\Roman`, "I"},
	{`\arabic`, "1"},
}

// parseEnumStyle reads an enumerate option such as "(a)", "i." or
// "label=(\roman*)". It returns false when the option names no style.
func parseEnumStyle(opts string) (enumStyle, bool) {
	label := opts
	if strings.Contains(opts, "=") {
		label = ""
		for _, kv := range strings.Split(opts, ",") {
			k, v, ok := strings.Cut(kv, "=")
			if ok && strings.TrimSpace(k) == "label" {
				label = strings.TrimSpace(v)
			}
		}
		for _, m := range enumLabelMacros {
			if strings.Contains(label, m.macro) {
				return enumStyle{typ: m.typ, format: label, paren: strings.HasPrefix(label, "(")}, true
			}
		}
		return enumStyle{}, false
	}

	label = strings.TrimSpace(label)
	var marker rune
	for _, c := range label {
		if !unicode.IsLetter(c) && !unicode.IsDigit(c) {
			continue
		}
		// "(ii)" is still lower roman, "noitemsep" is not a marker.
		if marker != 0 && c != marker {
			return enumStyle{}, false
		}
		marker = c
	}
	switch marker {
	case 'a', 'A', 'i', 'I', '1':
		return enumStyle{typ: string(marker), format: label, paren: strings.HasPrefix(label, "(")}, true
	}
	return enumStyle{}, false
}

// splitItems splits a list body on \item at nesting depth zero. Text before
// the first \item is returned as the preamble.
func splitItems(body string) (string, []listItem) {
	var bounds []int
	depth := 0
	for i := 0; i < len(body); {
		k := strings.IndexByte(body[i:], '\\')
		if k < 0 {
			break
		}
		p := i + k
		if tag, ok := nextEnvTag(body, p); ok && tag.pos == p && listFamily[tag.name] {
			if tag.begin {
				depth++
			} else {
				depth--
			}
			i = tag.after
			continue
		}
		if depth == 0 && startsCommand(body, p) && commandAt(body, p, "item") {
			bounds = append(bounds, p)
		}
		i = p + 1
		if p+1 < len(body) && body[p+1] == '\\' {
			i = p + 2
		}
	}
	if len(bounds) == 0 {
		return body, nil
	}

	items := make([]listItem, 0, len(bounds))
	for n, start := range bounds {
		end := len(body)
		if n+1 < len(bounds) {
			end = bounds[n+1]
		}
		item := listItem{}
		j := start + len(`\item`)
		if opt, after, ok := readOptional(body, j); ok {
			item.label, item.hasLabel, j = strings.TrimSpace(opt), true, after
		}
		raw := body[j:end]
		item.text = strings.TrimSpace(raw)
		item.start = j + len(raw) - len(strings.TrimLeftFunc(raw, unicode.IsSpace))
		items = append(items, item)
	}
	return body[:bounds[0]], items
}

func (r *Renderer) list(el *Element, f fragment) string {
	d := el.List
	preamble, items := splitItems(d.Body)

	tag := "ul"
	var attrs []string
	if el.Kind == KindEnumerate {
		tag = "ol"
		class := "enumerate"
		if style, ok := parseEnumStyle(d.Options); ok {
			attrs = append(attrs, fmt.Sprintf(`type="%s"`, style.typ), fmt.Sprintf(`data-format="%s"`, attr(style.format)))
			if style.paren {
				class += " enum-paren"
			}
		}
		if start, ok := listStart(preamble, d.Options); ok {
			attrs = append(attrs, fmt.Sprintf(`start="%d"`, start))
		}
		attrs = append([]string{fmt.Sprintf(`class="%s"`, class)}, attrs...)
	} else {
		attrs = append(attrs, `class="itemize"`)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<%s %s>\n", tag, strings.Join(attrs, " "))
	for _, it := range items {
		inner := itemElements(el.Inner, d.BodyStart+it.start, len(it.text))
		content := r.renderWithin(it.text, inner, fragment{parentID: f.parentID, depth: f.depth + 1, tight: true})
		if it.hasLabel {
			fmt.Fprintf(&b, `<li class="custom-label"><span class="item-label">%s</span> %s</li>`+"\n", it.label, content)
			continue
		}
		fmt.Fprintf(&b, "<li>%s</li>\n", content)
	}
	fmt.Fprintf(&b, "</%s>", tag)
	return b.String()
}

// itemElements selects the elements lying in [start, start+n) and shifts
// them to offsets within that range.
func itemElements(elems []Element, start, n int) []Element {
	var out []Element
	for _, el := range elems {
		if el.Start < start || el.End > start+n {
			continue
		}
		el.Start -= start
		el.End -= start
		out = append(out, el)
	}
	return out
}

// listStart returns the first item number set by \setcounter{enumi}{N}
// (numbering continues at N+1) or by a start=N option.
func listStart(preamble, opts string) (int, bool) {
	if m := setCounterPattern.FindStringSubmatch(preamble); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n + 1, true
		}
	}
	if m := startOptPattern.FindStringSubmatch(opts); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n, true
		}
	}
	return 0, false
}
