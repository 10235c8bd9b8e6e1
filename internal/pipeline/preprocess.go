package pipeline

import (
	"context"
	"regexp"
	"strings"
)

// Precompiled regex patterns for performance.
var (
	// Line ending normalization
	crlfOrCR = regexp.MustCompile(`\r\n?`)

	// Compress multiple blank lines to max 2
	multipleBlankLines = regexp.MustCompile(`\n{3,}`)
)

const (
	beginDocument = `\begin{document}`
	endDocument   = `\end{document}`
)

// verbatimEnvs hold text that must reach the highlighter untouched.
var verbatimEnvs = map[string]bool{
	"verbatim":   true,
	"verbatim*":  true,
	"lstlisting": true,
}

// SourcePreprocessor defines the contract for LaTeX source preprocessing.
type SourcePreprocessor interface {
	Preprocess(ctx context.Context, content string) string
}

// LatexPreprocessor prepares LaTeX source for environment extraction.
type LatexPreprocessor struct{}

// Compile-time interface check.
var _ SourcePreprocessor = (*LatexPreprocessor)(nil)

// Preprocess normalizes line endings, drops comments and the document
// preamble/postamble, and escapes HTML metacharacters so every later stage
// can emit the text as HTML without further quoting.
func (p *LatexPreprocessor) Preprocess(ctx context.Context, content string) string {
	if ctx.Err() != nil {
		return content
	}

	content = normalizeLineEndings(content)
	content = stripComments(content)
	content = stripDocumentWrapper(content)
	content = escapeHTML(content)
	content = compressBlankLines(content)
	return strings.Trim(content, "\n")
}

// normalizeLineEndings converts \r\n and \r to \n.
func normalizeLineEndings(content string) string {
	return crlfOrCR.ReplaceAllString(content, "\n")
}

// compressBlankLines limits consecutive blank lines to 2 maximum.
func compressBlankLines(content string) string {
	return multipleBlankLines.ReplaceAllString(content, "\n\n")
}

// stripDocumentWrapper keeps only the text between \begin{document} and
// \end{document}. Either marker may be absent (chapter files usually have neither).
func stripDocumentWrapper(content string) string {
	if i := strings.Index(content, beginDocument); i >= 0 {
		content = content[i+len(beginDocument):]
	}
	if i := strings.Index(content, endDocument); i >= 0 {
		content = content[:i]
	}
	return content
}

// stripComments removes % comments outside verbatim environments. A line that
// holds only a comment is removed entirely so it cannot split a paragraph.
func stripComments(content string) string {
	lines := strings.Split(content, "\n")
	out := make([]string, 0, len(lines))
	inVerbatim := ""
	for _, line := range lines {
		if inVerbatim != "" {
			out = append(out, line)
			if strings.Contains(line, endPrefix+inVerbatim+"}") {
				inVerbatim = ""
			}
			continue
		}

		if k := commentStart(line); k >= 0 {
			if strings.TrimSpace(line[:k]) == "" {
				continue
			}
			line = line[:k]
		}
		out = append(out, line)

		if tag, ok := nextEnvTag(line, 0); ok && tag.begin && verbatimEnvs[tag.name] {
			if !strings.Contains(line[tag.after:], endPrefix+tag.name+"}") {
				inVerbatim = tag.name
			}
		}
	}
	return strings.Join(out, "\n")
}

// commentStart returns the offset of the first unescaped % in line, or -1.
func commentStart(line string) int {
	for i := 0; i < len(line); i++ {
		if line[i] == '%' && startsCommand(line, i) {
			return i
		}
	}
	return -1
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// escapeHTML escapes the characters that would otherwise be parsed as markup.
// Quotes are left alone; they only matter inside attributes, which are built
// separately.
func escapeHTML(content string) string {
	return htmlEscaper.Replace(content)
}
