package texnotes

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/alnah/go-texnotes/internal/assets"
	"github.com/alnah/go-texnotes/internal/fileutil"
	"github.com/alnah/go-texnotes/internal/pipeline"
)

// Compile-time interface implementation checks.
var (
	_ pipeline.SourcePreprocessor = (*pipeline.LatexPreprocessor)(nil)
	_ pipeline.LabelResolver      = (*pipeline.AuxResolver)(nil)
	_ pipeline.ReferenceLinker    = (*pipeline.RefLinker)(nil)
	_ pipeline.InlinePass         = (*pipeline.InlineFormatter)(nil)
	_ pipeline.DocumentAssembler  = (*pipeline.TemplateAssembler)(nil)
	_ pipeline.MarkdownRenderer   = (*pipeline.GoldmarkRenderer)(nil)
)

// Converter orchestrates the LaTeX-to-HTML pipeline.
// Create with NewConverter and call Convert once per source file.
type Converter struct {
	cfg               converterConfig
	log               *zap.Logger
	assetLoader       assets.AssetLoader
	publicAssetLoader AssetLoader
	preprocessor      pipeline.SourcePreprocessor
	highlighter       *pipeline.Highlighter
	markdown          pipeline.MarkdownRenderer
	page              pipeline.DocumentAssembler
	index             *pipeline.IndexAssembler
	css               string
	script            string
	reload            string
}

// NewConverter creates a Converter. Returns an error if assets cannot be
// loaded or a template does not parse.
func NewConverter(opts ...Option) (*Converter, error) {
	c := &Converter{
		cfg:          converterConfig{timeout: defaultTimeout, logger: zap.NewNop()},
		assetLoader:  assets.NewEmbeddedLoader(),
		preprocessor: &pipeline.LatexPreprocessor{},
		markdown:     pipeline.NewGoldmarkRenderer(),
	}

	for _, opt := range opts {
		opt(c)
	}
	c.log = c.cfg.logger

	if c.cfg.assetPath != "" {
		resolver, err := assets.NewAssetResolver(c.cfg.assetPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidAssetPath, err)
		}
		c.assetLoader = resolver
	}
	if c.publicAssetLoader != nil {
		c.assetLoader = &publicToInternalAdapter{pub: c.publicAssetLoader}
	}

	c.highlighter = pipeline.NewHighlighter(c.cfg.highlightStyle)
	if err := c.loadAssets(); err != nil {
		return nil, err
	}
	return c, nil
}

// loadAssets resolves the stylesheet, parses the templates and loads scripts.
func (c *Converter) loadAssets() error {
	style, err := c.resolveStyle()
	if err != nil {
		return err
	}
	chroma, err := c.highlighter.CSS()
	if err != nil {
		return err
	}
	c.css = style + "\n" + chroma

	pageSrc, err := c.assetLoader.LoadTemplate(assets.PageTemplateName)
	if err != nil {
		return fmt.Errorf("loading page template: %w", convertAssetError(err))
	}
	if c.page, err = pipeline.NewTemplateAssembler(assets.PageTemplateName, pageSrc); err != nil {
		return fmt.Errorf("%w: %v", ErrTemplateRender, err)
	}

	indexSrc, err := c.assetLoader.LoadTemplate(assets.IndexTemplateName)
	if err != nil {
		return fmt.Errorf("loading index template: %w", convertAssetError(err))
	}
	if c.index, err = pipeline.NewIndexAssembler(assets.IndexTemplateName, indexSrc); err != nil {
		return fmt.Errorf("%w: %v", ErrTemplateRender, err)
	}

	if c.script, err = c.assetLoader.LoadScript(assets.NotesScriptName); err != nil {
		return fmt.Errorf("loading notes script: %w", convertAssetError(err))
	}
	if c.cfg.liveReload {
		if c.reload, err = c.assetLoader.LoadScript(assets.ReloadScriptName); err != nil {
			return fmt.Errorf("loading reload script: %w", convertAssetError(err))
		}
	}
	return nil
}

// resolveStyle resolves the style input (name, path, or CSS content) to CSS.
func (c *Converter) resolveStyle() (string, error) {
	input := c.cfg.styleInput
	if input == "" {
		input = assets.DefaultStyleName
	}

	if fileutil.IsFilePath(input) {
		content, err := os.ReadFile(input) // #nosec G304 -- user-provided path
		if err != nil {
			return "", fmt.Errorf("loading style file %q: %w", input, err)
		}
		return string(content), nil
	}
	if fileutil.IsCSS(input) {
		return input, nil
	}

	css, err := c.assetLoader.LoadStyle(input)
	if err != nil {
		return "", fmt.Errorf("loading style %q: %w", input, convertAssetError(err))
	}
	return css, nil
}

// Convert runs the full pipeline for one source file. Non-fatal problems are
// returned in the result's Diagnostics. Recovers from internal panics so a
// malformed document cannot crash a batch.
func (c *Converter) Convert(ctx context.Context, input Input) (result *ConvertResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error: %v", r)
		}
	}()

	current, root, err := c.validateInput(input)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.timeout)
	defer cancel()

	rep := pipeline.NewReporter(c.log.With(zap.String("page", current)))

	text := c.preprocessor.Preprocess(ctx, input.Source)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	auxPath := input.AuxPath
	if auxPath == "" {
		auxPath = c.cfg.auxPath
	}
	resolver := &pipeline.AuxResolver{Reporter: rep}
	labels, err := resolver.Resolve(ctx, auxPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrReadAux, auxPath, err)
	}

	renderer := &pipeline.Renderer{
		Labels:      labels,
		State:       pipeline.NewExtractState(),
		Reporter:    rep,
		Highlighter: c.highlighter,
		ImageDir:    imageDir(root, c.cfg.imageDir),
	}
	body := renderer.Render(text)

	linker := &pipeline.RefLinker{Reporter: rep}
	body = linker.Link(ctx, body, labels)

	formatter := &pipeline.InlineFormatter{ReplaceImages: renderer.ReplaceImages}
	body = formatter.Format(ctx, body)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	pageKey := input.PageKey
	if pageKey == "" {
		pageKey = current
	}
	doc, err := c.page.Assemble(ctx, pipeline.PageData{
		Title:     c.pageTitle(input.Title, current),
		SiteTitle: c.cfg.siteTitle,
		PageKey:   pageKey,
		Root:      root,
		Current:   current,
		Body:      body,
		Nav:       toNav(c.cfg.nav),
		Macros:    c.cfg.macros,
		CSS:       c.css,
		Script:    c.script,
		Reload:    c.reload,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrTemplateRender, err)
	}

	anchors, err := pipeline.CheckAnchors(doc, rep)
	if err != nil {
		return nil, fmt.Errorf("checking anchors: %w", err)
	}

	return &ConvertResult{
		HTML:        []byte(doc),
		Diagnostics: toDiagnostics(rep.Diagnostics()),
		Anchors:     AnchorReport{DuplicateIDs: anchors.DuplicateIDs, Dangling: anchors.Dangling},
		Labels:      len(labels),
	}, nil
}

// ConvertFile reads srcPath and converts it to the page at outputRel.
func (c *Converter) ConvertFile(ctx context.Context, srcPath, outputRel string) (*ConvertResult, error) {
	data, err := os.ReadFile(srcPath) // #nosec G304 -- user-provided source
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrReadSource, srcPath, err)
	}
	return c.Convert(ctx, Input{Source: string(data), OutputRel: outputRel})
}

// RenderIndex renders the site index page listing every navigation chapter.
// Chapter summaries are markdown.
func (c *Converter) RenderIndex(ctx context.Context) ([]byte, error) {
	chapters := make([]pipeline.IndexChapter, 0, len(c.cfg.nav))
	for _, ch := range c.cfg.nav {
		var summary string
		if strings.TrimSpace(ch.Summary) != "" {
			out, err := c.markdown.ToHTML(ctx, ch.Summary)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return nil, err
				}
				return nil, fmt.Errorf("%w: %s: %v", ErrMarkdownRender, ch.Title, err)
			}
			summary = out
		}
		chapters = append(chapters, pipeline.IndexChapter{
			Title:    ch.Title,
			Path:     ch.Path,
			Summary:  summary,
			Sections: toNavSections(ch.Sections),
		})
	}

	title := c.cfg.siteTitle
	if title == "" {
		title = "Notes"
	}
	doc, err := c.index.Assemble(ctx, pipeline.IndexData{
		Title:    title,
		Chapters: chapters,
		CSS:      c.css,
		Reload:   c.reload,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrTemplateRender, err)
	}
	return []byte(doc), nil
}

// validateInput checks required fields and returns the cleaned output path
// and the relative prefix back to the site root.
//
// This is the trust boundary for library users building Input by hand; CLI
// input has already passed config validation.
func (c *Converter) validateInput(input Input) (current, root string, err error) {
	if strings.TrimSpace(input.Source) == "" {
		return "", "", ErrEmptySource
	}
	root, err = pipeline.RelativeRoot(input.OutputRel)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidOutputPath, err)
	}
	current = path.Clean(strings.ReplaceAll(input.OutputRel, `\`, "/"))
	current = strings.TrimPrefix(current, "./")
	return current, root, nil
}

// pageTitle picks the explicit title, else the navigation title, else the file name.
func (c *Converter) pageTitle(title, current string) string {
	if title != "" {
		return title
	}
	for _, ch := range c.cfg.nav {
		if path.Clean(ch.Path) == current {
			return ch.Title
		}
	}
	return strings.TrimSuffix(path.Base(current), path.Ext(current))
}

// imageDir joins the root prefix and the configured image directory.
func imageDir(root, dir string) string {
	if dir == "" {
		return ""
	}
	dir = strings.Trim(strings.ReplaceAll(dir, `\`, "/"), "/")
	return root + dir + "/"
}

func toNav(chapters []Chapter) []pipeline.NavChapter {
	nav := make([]pipeline.NavChapter, 0, len(chapters))
	for _, ch := range chapters {
		nav = append(nav, pipeline.NavChapter{
			Title:    ch.Title,
			Path:     ch.Path,
			Sections: toNavSections(ch.Sections),
		})
	}
	return nav
}

func toNavSections(sections []Section) []pipeline.NavSection {
	out := make([]pipeline.NavSection, 0, len(sections))
	for _, s := range sections {
		out = append(out, pipeline.NavSection(s))
	}
	return out
}

func toDiagnostics(items []pipeline.Diagnostic) []Diagnostic {
	out := make([]Diagnostic, 0, len(items))
	for _, d := range items {
		out = append(out, Diagnostic{Kind: string(d.Kind), Message: d.Message, Label: d.Label})
	}
	return out
}
