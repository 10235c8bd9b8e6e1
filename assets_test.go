package texnotes

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alnah/go-texnotes/internal/assets"
)

func TestNewAssetLoader(t *testing.T) {
	t.Parallel()

	t.Run("embedded defaults", func(t *testing.T) {
		t.Parallel()

		loader, err := NewAssetLoader("")
		if err != nil {
			t.Fatalf("NewAssetLoader() error = %v", err)
		}
		if css, err := loader.LoadStyle(DefaultStyle); err != nil || css == "" {
			t.Errorf("LoadStyle() = %d bytes, %v", len(css), err)
		}
		if tmpl, err := loader.LoadTemplate(PageTemplate); err != nil || tmpl == "" {
			t.Errorf("LoadTemplate() = %d bytes, %v", len(tmpl), err)
		}
		if js, err := loader.LoadScript(ReloadScript); err != nil || js == "" {
			t.Errorf("LoadScript() = %d bytes, %v", len(js), err)
		}
	})

	t.Run("public sentinels", func(t *testing.T) {
		t.Parallel()

		loader, err := NewAssetLoader("")
		if err != nil {
			t.Fatalf("NewAssetLoader() error = %v", err)
		}
		if _, err := loader.LoadStyle("nope"); !errors.Is(err, ErrStyleNotFound) {
			t.Errorf("LoadStyle() error = %v, want ErrStyleNotFound", err)
		}
		if _, err := loader.LoadTemplate("nope"); !errors.Is(err, ErrTemplateNotFound) {
			t.Errorf("LoadTemplate() error = %v, want ErrTemplateNotFound", err)
		}
		if _, err := loader.LoadScript("nope"); !errors.Is(err, ErrScriptNotFound) {
			t.Errorf("LoadScript() error = %v, want ErrScriptNotFound", err)
		}
	})

	t.Run("invalid base path", func(t *testing.T) {
		t.Parallel()

		_, err := NewAssetLoader(filepath.Join(t.TempDir(), "missing"))
		if !errors.Is(err, ErrInvalidAssetPath) {
			t.Errorf("NewAssetLoader() error = %v, want ErrInvalidAssetPath", err)
		}
	})
}

func TestConvertAssetError(t *testing.T) {
	t.Parallel()

	other := errors.New("other")
	tests := []struct {
		name string
		in   error
		want error
	}{
		{name: "style", in: fmt.Errorf("%w: x", assets.ErrStyleNotFound), want: ErrStyleNotFound},
		{name: "template", in: fmt.Errorf("%w: x", assets.ErrTemplateNotFound), want: ErrTemplateNotFound},
		{name: "script", in: fmt.Errorf("%w: x", assets.ErrScriptNotFound), want: ErrScriptNotFound},
		{name: "base path", in: assets.ErrInvalidBasePath, want: ErrInvalidAssetPath},
		{name: "traversal", in: assets.ErrPathTraversal, want: ErrInvalidAssetPath},
		{name: "invalid name", in: assets.ErrInvalidAssetName, want: ErrStyleNotFound},
		{name: "passthrough", in: other, want: other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := convertAssetError(tt.in)
			if !errors.Is(got, tt.want) {
				t.Errorf("convertAssetError(%v) = %v, want %v", tt.in, got, tt.want)
			}
			if got.Error() != tt.in.Error() {
				t.Errorf("message changed: %q, want %q", got.Error(), tt.in.Error())
			}
		})
	}

	if convertAssetError(nil) != nil {
		t.Error("convertAssetError(nil) should be nil")
	}
}

// stubLoader serves fixed assets through the public interface.
type stubLoader struct{}

func (stubLoader) LoadStyle(string) (string, error) { return "main{}", nil }

func (stubLoader) LoadTemplate(name string) (string, error) {
	if name == PageTemplate {
		return `<main data-stub="page">{{.Body}}</main>`, nil
	}
	return `<ul>{{range .Chapters}}<li>{{.Title}}</li>{{end}}</ul>`, nil
}

func (stubLoader) LoadScript(string) (string, error) { return "", nil }

func TestWithAssetLoader(t *testing.T) {
	t.Parallel()

	conv := newTestConverter(t, WithAssetLoader(stubLoader{}), WithNavigation([]Chapter{{Title: "One", Path: "one.html"}}))

	res, err := conv.Convert(context.Background(), Input{Source: "Hi.", OutputRel: "one.html"})
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if !strings.HasPrefix(string(res.HTML), `<main data-stub="page">`) {
		t.Errorf("custom loader page template not used: %s", res.HTML)
	}

	idx, err := conv.RenderIndex(context.Background())
	if err != nil {
		t.Fatalf("RenderIndex() error = %v", err)
	}
	if string(idx) != "<ul><li>One</li></ul>" {
		t.Errorf("RenderIndex() = %q", idx)
	}
}
