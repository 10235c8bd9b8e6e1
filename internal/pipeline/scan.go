package pipeline

import "strings"

// The helpers in this file implement a forward-only cursor over LaTeX text.
// Every function takes a byte offset and returns the offset just past what it
// consumed, so callers never re-scan or backtrack.

const (
	beginPrefix = `\begin{`
	endPrefix   = `\end{`
)

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// skipSpaces returns the first index at or after i that is not whitespace.
func skipSpaces(s string, i int) int {
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	return i
}

// skipInlineSpaces skips spaces and tabs but stops at a newline.
func skipInlineSpaces(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	return i
}

// readGroup reads a balanced group starting at s[i] == open. It returns the
// inner content and the index after the closing delimiter. Escaped delimiters
// (\{ or \]) do not count towards depth.
func readGroup(s string, i int, open, close byte) (string, int, bool) {
	if i >= len(s) || s[i] != open {
		return "", i, false
	}
	depth := 0
	for j := i; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++ // skip escaped character
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[i+1 : j], j + 1, true
			}
		}
	}
	return "", i, false
}

// readOptional reads an optional [..] argument right after i, allowing
// spaces but not a blank line in between.
func readOptional(s string, i int) (string, int, bool) {
	j := skipInlineSpaces(s, i)
	if j < len(s) && s[j] == '\n' {
		j = skipInlineSpaces(s, j+1)
	}
	if j >= len(s) || s[j] != '[' {
		return "", i, false
	}
	opt, end, ok := readGroup(s, j, '[', ']')
	if !ok {
		return "", i, false
	}
	return opt, end, true
}

// readArg reads a mandatory {..} argument, skipping leading whitespace.
func readArg(s string, i int) (string, int, bool) {
	return readGroup(s, skipSpaces(s, i), '{', '}')
}

// envTag is one \begin{name} or \end{name} occurrence.
type envTag struct {
	pos   int  // offset of the backslash
	after int  // offset just past the closing brace
	name  string
	begin bool // true for \begin, false for \end
}

// nextEnvTag finds the next \begin{..} or \end{..} at or after from.
func nextEnvTag(s string, from int) (envTag, bool) {
	for i := from; i < len(s); {
		k := strings.IndexByte(s[i:], '\\')
		if k < 0 {
			return envTag{}, false
		}
		p := i + k
		var prefix string
		var begin bool
		switch {
		case strings.HasPrefix(s[p:], beginPrefix):
			prefix, begin = beginPrefix, true
		case strings.HasPrefix(s[p:], endPrefix):
			prefix = endPrefix
		default:
			if p+1 < len(s) && s[p+1] == '\\' {
				i = p + 2 // \\ line break, not a command start
			} else {
				i = p + 1
			}
			continue
		}
		close := strings.IndexByte(s[p+len(prefix):], '}')
		if close < 0 {
			return envTag{}, false
		}
		nameEnd := p + len(prefix) + close
		return envTag{
			pos:   p,
			after: nameEnd + 1,
			name:  strings.TrimSpace(s[p+len(prefix) : nameEnd]),
			begin: begin,
		}, true
	}
	return envTag{}, false
}

// findEnd returns the first \end{name} at or after from (non-greedy match).
func findEnd(s string, from int, name string) (envTag, bool) {
	for i := from; ; {
		tag, ok := nextEnvTag(s, i)
		if !ok {
			return envTag{}, false
		}
		if !tag.begin && tag.name == name {
			return tag, true
		}
		i = tag.after
	}
}

// findBalancedEnd scans from just after an opening \begin whose name is in
// family and returns the \end tag that brings the family depth back to zero.
// Inner \begin tags of the family increment the depth, \end tags decrement it.
func findBalancedEnd(s string, from int, family map[string]bool) (envTag, bool) {
	depth := 1
	for i := from; ; {
		tag, ok := nextEnvTag(s, i)
		if !ok {
			return envTag{}, false
		}
		i = tag.after
		if !family[tag.name] {
			continue
		}
		if tag.begin {
			depth++
			continue
		}
		depth--
		if depth == 0 {
			return tag, true
		}
	}
}

// commandAt reports whether s[i:] starts with the control word \name
// (not followed by another letter).
func commandAt(s string, i int, name string) bool {
	if !strings.HasPrefix(s[i:], `\`+name) {
		return false
	}
	end := i + 1 + len(name)
	return end >= len(s) || !isLetter(s[end]) || !isLetter(name[len(name)-1])
}

// findCommand returns the offset of the next \name control word at or after from.
func findCommand(s string, from int, name string) int {
	for i := from; i < len(s); {
		k := strings.Index(s[i:], `\`+name)
		if k < 0 {
			return -1
		}
		p := i + k
		if startsCommand(s, p) && commandAt(s, p, name) {
			return p
		}
		i = p + 1
	}
	return -1
}

// startsCommand reports whether the backslash at p is preceded by an even run
// of backslashes, i.e. it starts a command rather than closing "\\".
func startsCommand(s string, p int) bool {
	n := 0
	for j := p - 1; j >= 0 && s[j] == '\\'; j-- {
		n++
	}
	return n%2 == 0
}

// stripCommand removes every \name{arg} occurrence from s and returns the
// cleaned text plus the arguments in order.
func stripCommand(s, name string) (string, []string) {
	var b strings.Builder
	var args []string
	i := 0
	for {
		p := findCommand(s, i, name)
		if p < 0 {
			break
		}
		arg, end, ok := readArg(s, p+1+len(name))
		if !ok {
			b.WriteString(s[i : p+1])
			i = p + 1
			continue
		}
		b.WriteString(s[i:p])
		args = append(args, strings.TrimSpace(arg))
		i = end
	}
	b.WriteString(s[i:])
	return b.String(), args
}
