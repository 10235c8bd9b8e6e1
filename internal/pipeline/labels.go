package pipeline

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LabelEntry is one resolved \newlabel record.
type LabelEntry struct {
	Number string
	Page   string
	Title  string
	Anchor string
}

// LabelTable maps label names to their resolved entries.
type LabelTable map[string]LabelEntry

// Lookup returns the entry for name.
func (t LabelTable) Lookup(name string) (LabelEntry, bool) {
	e, ok := t[name]
	return e, ok
}

// LabelResolver abstracts loading a label table for a conversion.
type LabelResolver interface {
	Resolve(ctx context.Context, auxPath string) (LabelTable, error)
}

// AuxResolver reads LaTeX .aux files.
type AuxResolver struct {
	Reporter *Reporter
}

// Compile-time interface check.
var _ LabelResolver = (*AuxResolver)(nil)

// Resolve parses auxPath and the files it pulls in with \@input, one level deep.
// Records from included files are merged after the primary file's records.
// A missing primary file yields an empty table and an aux-missing diagnostic.
func (r *AuxResolver) Resolve(ctx context.Context, auxPath string) (LabelTable, error) {
	table := make(LabelTable)
	if auxPath == "" {
		r.Reporter.Warn(DiagAuxMissing, "", "no aux file configured; references will be unresolved")
		return table, nil
	}

	data, err := os.ReadFile(auxPath) // #nosec G304 -- user-provided build artifact
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			r.Reporter.Warn(DiagAuxMissing, auxPath, "aux file not found; references will be unresolved")
			return table, nil
		}
		return nil, err
	}

	includes := parseAuxInto(table, string(data))

	dir := filepath.Dir(auxPath)
	for _, inc := range includes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := inc
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		child, err := os.ReadFile(path) // #nosec G304 -- referenced by the aux file
		if err != nil {
			r.Reporter.Warn(DiagAuxMissing, path, "included aux file unreadable: "+err.Error())
			continue
		}
		// Grandchild includes are not followed.
		_ = parseAuxInto(table, string(child))
	}
	return table, nil
}

// ParseAux parses aux content without following includes.
func ParseAux(data string) LabelTable {
	table := make(LabelTable)
	parseAuxInto(table, data)
	return table
}

const (
	newlabelCmd = `\newlabel{`
	inputCmd    = `\@input{`
)

// parseAuxInto adds every \newlabel record in data to table and returns the
// \@input targets in order of appearance.
func parseAuxInto(table LabelTable, data string) []string {
	var includes []string
	for _, line := range strings.Split(normalizeLineEndings(data), "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, newlabelCmd):
			name, entry, ok := parseNewlabel(line)
			if ok {
				table[name] = entry
			}
		case strings.HasPrefix(line, inputCmd):
			arg, _, ok := readGroup(line, len(inputCmd)-1, '{', '}')
			if ok && strings.TrimSpace(arg) != "" {
				includes = append(includes, strings.TrimSpace(arg))
			}
		}
	}
	return includes
}

// parseNewlabel parses `\newlabel{NAME}{{NUMBER}{PAGE}{TITLE}{ANCHOR}...}`.
func parseNewlabel(line string) (string, LabelEntry, bool) {
	name, next, ok := readGroup(line, len(newlabelCmd)-1, '{', '}')
	if !ok || name == "" {
		return "", LabelEntry{}, false
	}
	outer, _, ok := readGroup(line, skipSpaces(line, next), '{', '}')
	if !ok {
		return "", LabelEntry{}, false
	}

	var fields []string
	for i := skipSpaces(outer, 0); i < len(outer) && outer[i] == '{'; i = skipSpaces(outer, i) {
		f, end, ok := readGroup(outer, i, '{', '}')
		if !ok {
			break
		}
		fields = append(fields, f)
		i = end
	}
	if len(fields) == 0 {
		return "", LabelEntry{}, false
	}

	field := func(i int) string {
		if i < len(fields) {
			return cleanAuxValue(fields[i])
		}
		return ""
	}
	entry := LabelEntry{
		Number: field(0),
		Page:   field(1),
		Title:  field(2),
		Anchor: field(3),
	}
	if entry.Anchor == "" {
		entry.Anchor = name
	}
	return name, entry, true
}

// cleanAuxValue strips the \relax prefixes hyperref sometimes writes.
func cleanAuxValue(s string) string {
	s = strings.TrimSpace(s)
	for strings.HasPrefix(s, `\relax`) {
		s = strings.TrimSpace(strings.TrimPrefix(s, `\relax`))
	}
	return s
}
