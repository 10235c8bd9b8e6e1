package pipeline

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Combining marks for LaTeX accent commands.
var accentMarks = map[string]rune{
	"'": '\u0301', // acute
	"`": '\u0300', // grave
	"^": '\u0302', // circumflex
	`"`: '\u0308', // diaeresis
	"~": '\u0303', // tilde
	"=": '\u0304', // macron
	".": '\u0307', // dot above
	"u": '\u0306', // breve
	"v": '\u030C', // caron
	"H": '\u030B', // double acute
	"c": '\u0327', // cedilla
	"r": '\u030A', // ring above
	"k": '\u0328', // ogonek
	"d": '\u0323', // dot below
	"b": '\u0331', // macron below
}

// letterMacros are text-mode commands for single letters.
var letterMacros = []struct {
	name string
	r    string
}{
	{"ss", "ß"},
	{"ae", "æ"}, {"AE", "Æ"},
	{"oe", "œ"}, {"OE", "Œ"},
	{"aa", "å"}, {"AA", "Å"},
	{"o", "ø"}, {"O", "Ø"},
	{"l", "ł"}, {"L", "Ł"},
	{"i", "ı"}, {"j", "ȷ"},
}

// ReplaceAccents substitutes accent commands (\'e, \'{e}, \c{c}, \v s,
// \"{\i}) and letter macros (\ss, \o) with Unicode characters. Commands that
// do not compose to a single character are left untouched, which makes the
// pass idempotent.
func ReplaceAccents(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	i := 0
	for i < len(s) {
		k := strings.IndexByte(s[i:], '\\')
		if k < 0 {
			break
		}
		p := i + k
		b.WriteString(s[i:p])
		if !startsCommand(s, p) || p+1 >= len(s) {
			b.WriteByte('\\')
			i = p + 1
			continue
		}
		if out, end, ok := accentAt(s, p); ok {
			b.WriteString(out)
			i = end
			continue
		}
		if out, end, ok := letterMacroAt(s, p); ok {
			b.WriteString(out)
			i = end
			continue
		}
		if s[p+1] == '\\' {
			b.WriteString(`\\`)
			i = p + 2
			continue
		}
		b.WriteByte('\\')
		i = p + 1
	}
	b.WriteString(s[i:])
	return b.String()
}

// accentAt tries to read an accent command at s[p].
func accentAt(s string, p int) (string, int, bool) {
	cmd := s[p+1 : p+2]
	mark, ok := accentMarks[cmd]
	if !ok {
		return "", 0, false
	}
	j := p + 2
	letterCmd := isLetter(cmd[0])
	if letterCmd && j < len(s) && isLetter(s[j]) {
		return "", 0, false // \cref, \url, ...
	}

	var base string
	switch {
	case j < len(s) && s[j] == '{':
		arg, end, ok := readGroup(s, j, '{', '}')
		if !ok {
			return "", 0, false
		}
		base, j = dotless(strings.TrimSpace(arg)), end
	case letterCmd:
		// \c c, \v s: a space separates the command from its letter.
		k := skipInlineSpaces(s, j)
		if k == j || k >= len(s) || !isLetter(s[k]) {
			return "", 0, false
		}
		base, j = s[k:k+1], k+1
	case j < len(s) && isLetter(s[j]):
		base, j = s[j:j+1], j+1
	case strings.HasPrefix(s[j:], `\i`) || strings.HasPrefix(s[j:], `\j`):
		if j+2 < len(s) && isLetter(s[j+2]) {
			return "", 0, false
		}
		base, j = s[j+1:j+2], j+2
	default:
		return "", 0, false
	}

	if len(base) != 1 || !isLetter(base[0]) {
		return "", 0, false
	}
	composed := norm.NFC.String(base + string(mark))
	if utf8.RuneCountInString(composed) != 1 {
		return "", 0, false
	}
	return composed, j, true
}

// dotless maps the braced \i and \j forms to their base letters.
func dotless(arg string) string {
	switch arg {
	case `\i`:
		return "i"
	case `\j`:
		return "j"
	}
	return arg
}

func letterMacroAt(s string, p int) (string, int, bool) {
	for _, m := range letterMacros {
		if !commandAt(s, p, m.name) {
			continue
		}
		end := p + 1 + len(m.name)
		switch {
		case strings.HasPrefix(s[end:], "{}"):
			end += 2
		case end < len(s) && s[end] == ' ':
			end++
		}
		return m.r, end, true
	}
	return "", 0, false
}
