package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
)

// IndexChapter is one card on the site index. Summary is rendered HTML.
type IndexChapter struct {
	Title    string
	Path     string
	Summary  string
	Sections []NavSection
}

// IndexData holds everything the index template needs.
type IndexData struct {
	Title    string
	Chapters []IndexChapter
	CSS      string
	Reload   string
}

type indexCard struct {
	Title    string
	Href     string
	Summary  template.HTML
	Sections []navSectionLink
}

type indexTemplateData struct {
	Title    string
	Chapters []indexCard
	CSS      template.CSS
	Reload   template.JS
}

// IndexAssembler renders the site index page from an html/template.
type IndexAssembler struct {
	tmpl *template.Template
}

// NewIndexAssembler parses the index template.
func NewIndexAssembler(name, src string) (*IndexAssembler, error) {
	tmpl, err := template.New(name).Parse(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplate, err)
	}
	return &IndexAssembler{tmpl: tmpl}, nil
}

// Assemble renders the index document. The index lives at the site root,
// so chapter paths are used as-is.
func (a *IndexAssembler) Assemble(ctx context.Context, data IndexData) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	cards := make([]indexCard, 0, len(data.Chapters))
	for _, ch := range data.Chapters {
		card := indexCard{
			Title:   ch.Title,
			Href:    ch.Path,
			Summary: template.HTML(ch.Summary), // #nosec G203 -- goldmark output, raw HTML disabled
		}
		for _, s := range ch.Sections {
			card.Sections = append(card.Sections, navSectionLink{Title: s.Title, Href: ch.Path + "#" + s.Anchor})
		}
		cards = append(cards, card)
	}

	var buf bytes.Buffer
	err := a.tmpl.Execute(&buf, indexTemplateData{
		Title:    data.Title,
		Chapters: cards,
		CSS:      template.CSS(data.CSS),   // #nosec G203
		Reload:   template.JS(data.Reload), // #nosec G203
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplate, err)
	}
	return buf.String(), nil
}
