package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"path"
	"strings"
)

// Sentinel errors for document assembly.
var (
	ErrTemplate    = errors.New("template rendering failed")
	ErrOutsideRoot = errors.New("output path is outside the site root")
)

// DefaultMacros is the KaTeX macro dictionary every page starts from.
var DefaultMacros = map[string]string{
	`\R`:     `\mathbb{R}`,
	`\N`:     `\mathbb{N}`,
	`\Z`:     `\mathbb{Z}`,
	`\Q`:     `\mathbb{Q}`,
	`\C`:     `\mathbb{C}`,
	`\F`:     `\mathbb{F}`,
	`\E`:     `\mathbb{E}`,
	`\eps`:   `\varepsilon`,
	`\abs`:   `\left|#1\right|`,
	`\norm`:  `\left\lVert#1\right\rVert`,
	`\set`:   `\left\{#1\right\}`,
	`\ceil`:  `\left\lceil#1\right\rceil`,
	`\floor`: `\left\lfloor#1\right\rfloor`,
	`\inner`: `\left\langle#1,#2\right\rangle`,
}

// NavChapter is one sidebar entry. Path is relative to the site root.
type NavChapter struct {
	Title    string
	Path     string
	Sections []NavSection
}

// NavSection links to an anchor inside a chapter page.
type NavSection struct {
	Title  string
	Anchor string
}

// navLink is a NavChapter resolved for one page.
type navLink struct {
	Title    string
	Href     string
	Active   bool
	Sections []navSectionLink
}

type navSectionLink struct {
	Title string
	Href  string
}

// PageData holds everything the page template needs.
type PageData struct {
	Title     string
	SiteTitle string
	PageKey   string // key for persisted collapse state
	Root      string // relative prefix back to the site root
	Current   string // this page's path relative to the site root
	Body      string
	Nav       []NavChapter
	Macros    map[string]string
	CSS       string
	Script    string
	Reload    string // live-reload script, empty to disable
}

// templateData is PageData converted to template-safe types.
type templateData struct {
	Title     string
	SiteTitle string
	PageKey   string
	Root      string
	IndexHref string
	Body      template.HTML
	Nav       []navLink
	Macros    template.JS
	CSS       template.CSS
	Script    template.JS
	Reload    template.JS
}

// DocumentAssembler defines the contract for wrapping a body in a page.
type DocumentAssembler interface {
	Assemble(ctx context.Context, page PageData) (string, error)
}

// TemplateAssembler renders pages from an html/template.
type TemplateAssembler struct {
	tmpl *template.Template
}

// Compile-time interface check.
var _ DocumentAssembler = (*TemplateAssembler)(nil)

// NewTemplateAssembler parses the page template.
func NewTemplateAssembler(name, src string) (*TemplateAssembler, error) {
	tmpl, err := template.New(name).Parse(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplate, err)
	}
	return &TemplateAssembler{tmpl: tmpl}, nil
}

// Assemble renders the full HTML document for page.
func (a *TemplateAssembler) Assemble(ctx context.Context, page PageData) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	macros, err := MacrosJS(page.Macros)
	if err != nil {
		return "", err
	}
	// Body, CSS and scripts are produced by the pipeline or loaded from
	// trusted assets, so they bypass contextual escaping.
	data := templateData{
		Title:     page.Title,
		SiteTitle: page.SiteTitle,
		PageKey:   page.PageKey,
		Root:      page.Root,
		IndexHref: page.Root + "index.html",
		Body:      template.HTML(page.Body), // #nosec G203
		Nav:       buildNav(page.Nav, page.Root, page.Current),
		Macros:    macros,
		CSS:       template.CSS(page.CSS),   // #nosec G203
		Script:    template.JS(page.Script), // #nosec G203
		Reload:    template.JS(page.Reload), // #nosec G203
	}

	var buf bytes.Buffer
	if err := a.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplate, err)
	}
	return buf.String(), nil
}

// MacrosJS merges extra over DefaultMacros and encodes the result as a JS
// object literal for the KaTeX bootstrap.
func MacrosJS(extra map[string]string) (template.JS, error) {
	merged := make(map[string]string, len(DefaultMacros)+len(extra))
	for k, v := range DefaultMacros {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	out, err := json.Marshal(merged) // map keys are sorted by encoding/json
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplate, err)
	}
	return template.JS(out), nil // #nosec G203 -- JSON encoded
}

func buildNav(chapters []NavChapter, root, current string) []navLink {
	links := make([]navLink, 0, len(chapters))
	for _, ch := range chapters {
		href := root + ch.Path
		l := navLink{Title: ch.Title, Href: href, Active: ch.Path == current}
		for _, s := range ch.Sections {
			l.Sections = append(l.Sections, navSectionLink{Title: s.Title, Href: href + "#" + s.Anchor})
		}
		links = append(links, l)
	}
	return links
}

// RelativeRoot returns the prefix that leads from a page at outputRel (a
// slash-separated path relative to the site root) back to the root: "" for
// top-level pages, "../" for one directory down and so on.
func RelativeRoot(outputRel string) (string, error) {
	clean := path.Clean(strings.ReplaceAll(outputRel, `\`, "/"))
	if clean == "." || clean == "/" || path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %q", ErrOutsideRoot, outputRel)
	}
	depth := strings.Count(clean, "/")
	return strings.Repeat("../", depth), nil
}
