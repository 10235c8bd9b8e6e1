package texnotes

import (
	"time"

	"go.uber.org/zap"

	"github.com/alnah/go-texnotes/internal/pipeline"
)

// Input contains conversion parameters for one source file.
type Input struct {
	Source    string // LaTeX source (required)
	OutputRel string // output path relative to the site root, slash separated (required)
	Title     string // page title; defaults to the navigation title or the file name
	PageKey   string // key for persisted collapse state; defaults to OutputRel
	AuxPath   string // overrides the converter's aux file (optional)
}

// Chapter describes one page in the site navigation.
type Chapter struct {
	Title    string
	Path     string // output path relative to the site root
	Summary  string // markdown, shown on the index page
	Sections []Section
}

// Section links to an anchor inside a chapter page.
type Section struct {
	Title  string
	Anchor string
}

// Diagnostic kinds.
const (
	DiagAuxMissing     = string(pipeline.DiagAuxMissing)
	DiagUnresolvedRef  = string(pipeline.DiagUnresolvedRef)
	DiagSpliceMismatch = string(pipeline.DiagSpliceMismatch)
	DiagUnterminated   = string(pipeline.DiagUnterminated)
	DiagImage          = string(pipeline.DiagImage)
	DiagAnchor         = string(pipeline.DiagAnchor)
)

// Diagnostic is a non-fatal problem found while converting.
type Diagnostic struct {
	Kind    string
	Message string
	Label   string // label name or file the problem refers to, if any
}

// AnchorReport lists link-target problems in a converted page.
type AnchorReport struct {
	DuplicateIDs []string
	Dangling     []string
}

// ConvertResult contains the output of a conversion.
type ConvertResult struct {
	HTML        []byte
	Diagnostics []Diagnostic
	Anchors     AnchorReport
	Labels      int // entries in the resolved label table
}

// Count returns the number of diagnostics of the given kind.
func (r *ConvertResult) Count(kind string) int {
	n := 0
	for _, d := range r.Diagnostics {
		if d.Kind == kind {
			n++
		}
	}
	return n
}

// Option configures a Converter.
type Option func(*Converter)

// converterConfig holds internal configuration for Converter.
type converterConfig struct {
	timeout        time.Duration
	logger         *zap.Logger
	siteTitle      string
	nav            []Chapter
	macros         map[string]string
	imageDir       string
	styleInput     string
	assetPath      string
	liveReload     bool
	auxPath        string
	highlightStyle string
}

// defaultTimeout bounds a single conversion.
const defaultTimeout = 30 * time.Second

// WithTimeout sets the conversion timeout.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("texnotes: WithTimeout duration must be positive")
	}
	return func(c *Converter) {
		c.cfg.timeout = d
	}
}

// WithLogger sets the logger diagnostics are written to. Nil keeps the no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Converter) {
		if l != nil {
			c.cfg.logger = l
		}
	}
}

// WithSiteTitle sets the title shown in the sidebar and on the index page.
func WithSiteTitle(title string) Option {
	return func(c *Converter) {
		c.cfg.siteTitle = title
	}
}

// WithNavigation sets the chapters listed in the sidebar and on the index page.
func WithNavigation(chapters []Chapter) Option {
	return func(c *Converter) {
		c.cfg.nav = append([]Chapter(nil), chapters...)
	}
}

// WithMathMacros adds KaTeX macros; entries override the built-in ones.
func WithMathMacros(macros map[string]string) Option {
	return func(c *Converter) {
		c.cfg.macros = make(map[string]string, len(macros))
		for k, v := range macros {
			c.cfg.macros[k] = v
		}
	}
}

// WithImageDir sets the image directory relative to the site root.
func WithImageDir(dir string) Option {
	return func(c *Converter) {
		c.cfg.imageDir = dir
	}
}

// WithStyle sets the stylesheet: an asset name, a file path or CSS content.
func WithStyle(style string) Option {
	return func(c *Converter) {
		c.cfg.styleInput = style
	}
}

// WithAssetPath sets a directory whose styles, templates and scripts
// override the embedded ones.
func WithAssetPath(path string) Option {
	return func(c *Converter) {
		c.cfg.assetPath = path
	}
}

// WithAssetLoader sets a custom asset loader. Takes precedence over WithAssetPath.
func WithAssetLoader(loader AssetLoader) Option {
	return func(c *Converter) {
		c.publicAssetLoader = loader
	}
}

// WithLiveReload embeds the live-reload listener in every page.
func WithLiveReload(enabled bool) Option {
	return func(c *Converter) {
		c.cfg.liveReload = enabled
	}
}

// WithAuxPath sets the aux file labels are resolved from.
func WithAuxPath(path string) Option {
	return func(c *Converter) {
		c.cfg.auxPath = path
	}
}

// WithHighlightStyle sets the chroma style for code listings.
func WithHighlightStyle(style string) Option {
	return func(c *Converter) {
		c.cfg.highlightStyle = style
	}
}
