// Package nav loads chapter and section metadata for the sidebar and the
// index page.
package nav

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/alnah/go-texnotes/internal/yamlutil"
)

// Sentinel errors for nav operations.
var (
	ErrNavNotFound = errors.New("nav file not found")
	ErrNavParse    = errors.New("failed to parse nav file")
	ErrInvalidNav  = errors.New("invalid nav entry")
)

// Limits.
const (
	MaxChapters      = 500
	MaxSections      = 200
	MaxTitleLength   = 200
	MaxSummaryLength = 16 * 1024
)

// Nav is the parsed metadata file.
//
//	title: Real Analysis
//	chapters:
//	  - title: Limits
//	    path: ch1/limits.html
//	    summary: |
//	      Sequences, **epsilon** arguments.
//	    sections:
//	      - title: Definition
//	        anchor: sec:def
type Nav struct {
	Title    string    `yaml:"title"`
	Chapters []Chapter `yaml:"chapters"`
}

// Chapter is one page of the site. Path is slash-separated and relative to
// the site root.
type Chapter struct {
	Title    string    `yaml:"title"`
	Path     string    `yaml:"path"`
	Summary  string    `yaml:"summary"` // markdown
	Sections []Section `yaml:"sections"`
}

// Section links to an anchor inside a chapter.
type Section struct {
	Title  string `yaml:"title"`
	Anchor string `yaml:"anchor"`
}

// Load reads and validates a nav file.
func Load(file string) (*Nav, error) {
	var n Nav
	if err := yamlutil.ReadFileStrict(file, &n); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNavNotFound, file)
		}
		return nil, fmt.Errorf("%w: %v", ErrNavParse, err)
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}
	return &n, nil
}

// Validate checks titles, paths and limits. Paths are normalized in place.
func (n *Nav) Validate() error {
	if len(n.Title) > MaxTitleLength {
		return fmt.Errorf("%w: title exceeds %d chars", ErrInvalidNav, MaxTitleLength)
	}
	if len(n.Chapters) > MaxChapters {
		return fmt.Errorf("%w: %d chapters (max %d)", ErrInvalidNav, len(n.Chapters), MaxChapters)
	}

	seen := make(map[string]int, len(n.Chapters))
	for i := range n.Chapters {
		ch := &n.Chapters[i]
		where := fmt.Sprintf("chapters[%d]", i)

		ch.Title = strings.TrimSpace(ch.Title)
		if ch.Title == "" {
			return fmt.Errorf("%w: %s: title is required", ErrInvalidNav, where)
		}
		if len(ch.Title) > MaxTitleLength {
			return fmt.Errorf("%w: %s: title exceeds %d chars", ErrInvalidNav, where, MaxTitleLength)
		}
		if len(ch.Summary) > MaxSummaryLength {
			return fmt.Errorf("%w: %s: summary exceeds %d bytes", ErrInvalidNav, where, MaxSummaryLength)
		}

		clean, err := cleanPath(ch.Path)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidNav, where, err)
		}
		if prev, dup := seen[clean]; dup {
			return fmt.Errorf("%w: %s: path %q already used by chapters[%d]", ErrInvalidNav, where, clean, prev)
		}
		seen[clean] = i
		ch.Path = clean

		if len(ch.Sections) > MaxSections {
			return fmt.Errorf("%w: %s: %d sections (max %d)", ErrInvalidNav, where, len(ch.Sections), MaxSections)
		}
		for j, s := range ch.Sections {
			if strings.TrimSpace(s.Title) == "" || strings.TrimSpace(s.Anchor) == "" {
				return fmt.Errorf("%w: %s.sections[%d]: title and anchor are required", ErrInvalidNav, where, j)
			}
			if strings.ContainsAny(s.Anchor, " #\"<>") {
				return fmt.Errorf("%w: %s.sections[%d]: anchor %q contains invalid characters", ErrInvalidNav, where, j, s.Anchor)
			}
		}
	}
	return nil
}

// cleanPath requires a relative .html path that stays inside the site root.
func cleanPath(p string) (string, error) {
	p = strings.TrimSpace(strings.ReplaceAll(p, `\`, "/"))
	if p == "" {
		return "", errors.New("path is required")
	}
	clean := path.Clean(p)
	if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("path %q is outside the site root", p)
	}
	if !strings.EqualFold(path.Ext(clean), ".html") {
		return "", fmt.Errorf("path %q must end in .html", p)
	}
	return clean, nil
}

// Find returns the chapter whose page is at rel.
func (n *Nav) Find(rel string) (Chapter, bool) {
	rel = path.Clean(strings.ReplaceAll(rel, `\`, "/"))
	for _, ch := range n.Chapters {
		if ch.Path == rel {
			return ch, true
		}
	}
	return Chapter{}, false
}

// Missing returns the chapter paths that are not in pages, in nav order.
// Used to warn about sidebar entries that will lead nowhere.
func (n *Nav) Missing(pages []string) []string {
	have := make(map[string]bool, len(pages))
	for _, p := range pages {
		have[path.Clean(p)] = true
	}
	var out []string
	for _, ch := range n.Chapters {
		if !have[ch.Path] {
			out = append(out, ch.Path)
		}
	}
	return out
}
