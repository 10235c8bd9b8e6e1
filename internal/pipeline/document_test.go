package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestRelativeRoot(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{input: "index.html", want: ""},
		{input: "ch1/intro.html", want: "../"},
		{input: "part/ch2/proofs.html", want: "../../"},
		{input: "./ch1/x.html", want: "../"},
		{input: `ch1\x.html`, want: "../"},
		{input: "ch1/../top.html", want: ""},
		{input: "../outside.html", wantErr: true},
		{input: "/abs/page.html", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			got, err := RelativeRoot(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrOutsideRoot) {
					t.Errorf("RelativeRoot(%q) error = %v, want ErrOutsideRoot", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("RelativeRoot(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("RelativeRoot(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

const testPage = `<!DOCTYPE html>
<html><head><title>{{.Title}} | {{.SiteTitle}}</title><style>{{.CSS}}</style></head>
<body data-page="{{.PageKey}}">
<nav class="sidebar"><a href="{{.IndexHref}}">Home</a>
{{range .Nav}}<a href="{{.Href}}"{{if .Active}} class="active"{{end}}>{{.Title}}</a>
{{range .Sections}}<a class="section" href="{{.Href}}">{{.Title}}</a>{{end}}
{{end}}</nav>
<main>{{.Body}}</main>
<script>const macros = {{.Macros}};</script>
{{if .Reload}}<script>{{.Reload}}</script>{{end}}
</body></html>`

func TestTemplateAssembler_Assemble(t *testing.T) {
	t.Parallel()

	a, err := NewTemplateAssembler("page", testPage)
	if err != nil {
		t.Fatalf("NewTemplateAssembler() error = %v", err)
	}

	page := PageData{
		Title:     "Groups & Rings",
		SiteTitle: "Notes",
		PageKey:   "ch1/groups",
		Root:      "../",
		Current:   "ch1/groups.html",
		Body:      `<div class="theorem-box" id="t:1">x</div>`,
		Nav: []NavChapter{
			{Title: "Groups", Path: "ch1/groups.html", Sections: []NavSection{{Title: "Intro", Anchor: "section.1"}}},
			{Title: "Fields", Path: "ch2/fields.html"},
		},
		Macros: map[string]string{`\G`: `\mathcal{G}`},
		CSS:    "body{margin:0}",
	}
	got, err := a.Assemble(context.Background(), page)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	for _, want := range []string{
		"<title>Groups &amp; Rings | Notes</title>",
		`<main><div class="theorem-box" id="t:1">x</div></main>`,
		`<a href="../index.html">Home</a>`,
		`<a href="../ch1/groups.html" class="active">Groups</a>`,
		`<a class="section" href="../ch1/groups.html#section.1">Intro</a>`,
		`<a href="../ch2/fields.html">Fields</a>`,
		`"\\G":"\\mathcal{G}"`,
		`"\\R":"\\mathbb{R}"`,
		"body{margin:0}",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("page missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "<script></script>") {
		t.Error("reload script rendered while disabled")
	}
}

func TestTemplateAssembler_Errors(t *testing.T) {
	t.Parallel()

	if _, err := NewTemplateAssembler("bad", "{{.Unclosed"); !errors.Is(err, ErrTemplate) {
		t.Errorf("parse error = %v, want ErrTemplate", err)
	}

	a, err := NewTemplateAssembler("exec", "{{.Missing.Field}}")
	if err != nil {
		t.Fatalf("NewTemplateAssembler() error = %v", err)
	}
	if _, err := a.Assemble(context.Background(), PageData{}); !errors.Is(err, ErrTemplate) {
		t.Errorf("exec error = %v, want ErrTemplate", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := a.Assemble(ctx, PageData{}); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled error = %v, want context.Canceled", err)
	}
}

func TestMacrosJS_Overrides(t *testing.T) {
	t.Parallel()

	js, err := MacrosJS(map[string]string{`\R`: `\mathbf{R}`})
	if err != nil {
		t.Fatalf("MacrosJS() error = %v", err)
	}
	s := string(js)
	if !strings.Contains(s, `"\\R":"\\mathbf{R}"`) {
		t.Errorf("override missing: %s", s)
	}
	if !strings.Contains(s, `"\\N":"\\mathbb{N}"`) {
		t.Errorf("defaults missing: %s", s)
	}
	if DefaultMacros[`\R`] != `\mathbb{R}` {
		t.Error("MacrosJS must not modify DefaultMacros")
	}
}
