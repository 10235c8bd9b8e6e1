package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
	"unicode"

	"go.uber.org/zap"

	texnotes "github.com/alnah/go-texnotes"
	"github.com/alnah/go-texnotes/internal/compiler"
	"github.com/alnah/go-texnotes/internal/config"
	"github.com/alnah/go-texnotes/internal/fileutil"
	"github.com/alnah/go-texnotes/internal/hints"
	"github.com/alnah/go-texnotes/internal/nav"
)

// Sentinel errors for site operations.
var (
	ErrNoSources   = errors.New("no .tex files found")
	ErrNoPages     = errors.New("no built pages found")
	ErrWritePDF    = errors.New("failed to write PDF file")
	ErrPagesFailed = errors.New("some pages failed")
	ErrUnknownPage = errors.New("file is not a content page")
)

// indexPage is the site index, relative to the output directory.
const indexPage = "index.html"

// page maps one content file to its output.
type page struct {
	Source string // .tex file
	Rel    string // output path relative to the site root, slash separated
}

// pageResult holds the outcome of a single conversion.
type pageResult struct {
	Page        page
	Output      string
	Err         error
	Duration    time.Duration
	Diagnostics int
	Unresolved  int
}

// site builds the HTML notes for one configuration. Methods are not safe
// for concurrent use; watch mode serializes calls.
type site struct {
	cfg        *config.Config
	s          *settings
	log        *zap.Logger
	comp       *compiler.Compiler
	liveReload bool

	nav   *nav.Nav
	pages []page
	conv  *texnotes.Converter
}

// newSite prepares a site builder. The nav file is loaded now so metadata
// errors surface before any LaTeX run.
func newSite(s *settings, log *zap.Logger, liveReload bool) (*site, error) {
	st := &site{
		cfg:        s.cfg,
		s:          s,
		log:        log,
		comp:       compiler.New(s.cfg.Latex.Compiler, s.cfg.Latex.BuildDir, s.latexTimeout, log),
		liveReload: liveReload,
	}
	if err := st.loadNav(); err != nil {
		return nil, err
	}
	return st, nil
}

// navFile returns the configured nav file, or nav.yaml in the source
// directory when present.
func (st *site) navFile() string {
	if st.cfg.Site.NavFile != "" {
		return st.cfg.Site.NavFile
	}
	candidate := filepath.Join(st.cfg.Site.SourceDir, config.DefaultNavFileName)
	if fileutil.FileExists(candidate) {
		return candidate
	}
	return ""
}

func (st *site) loadNav() error {
	file := st.navFile()
	if file == "" {
		st.nav = nil
		return nil
	}
	n, err := nav.Load(file)
	if err != nil {
		return err
	}
	st.nav = n
	st.log.Debug("loaded nav", zap.String("file", file), zap.Int("chapters", len(n.Chapters)))
	return nil
}

// discover finds the content pages under the source directory. The main
// file is skipped: it only exists to number labels.
func (st *site) discover() error {
	files, err := fileutil.FindTeX(st.cfg.Site.SourceDir)
	if err != nil {
		return err
	}
	mainAbs := absPath(st.cfg.Latex.Main)

	pages := make([]page, 0, len(files))
	for _, f := range files {
		if mainAbs != "" && absPath(f) == mainAbs {
			continue
		}
		rel, err := fileutil.OutputRel(st.cfg.Site.SourceDir, f)
		if err != nil {
			return err
		}
		pages = append(pages, page{Source: f, Rel: rel})
	}
	if len(pages) == 0 {
		return fmt.Errorf("%w in %s", ErrNoSources, st.cfg.Site.SourceDir)
	}
	st.pages = pages

	if st.nav != nil {
		for _, p := range st.nav.Missing(st.rels()) {
			st.log.Warn("nav entry has no source file", zap.String("path", p))
		}
	}
	return nil
}

// selectPages returns the pages for the given source files, or all pages.
func (st *site) selectPages(files []string) ([]page, error) {
	if len(files) == 0 {
		return st.pages, nil
	}
	out := make([]page, 0, len(files))
	for _, f := range files {
		p, ok := st.pageFor(f)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownPage, f)
		}
		out = append(out, p)
	}
	return out, nil
}

func (st *site) pageFor(file string) (page, bool) {
	abs := absPath(file)
	for _, p := range st.pages {
		if absPath(p.Source) == abs {
			return p, true
		}
	}
	return page{}, false
}

func (st *site) rels() []string {
	rels := make([]string, len(st.pages))
	for i, p := range st.pages {
		rels[i] = p.Rel
	}
	return rels
}

// chapters returns the navigation: the nav file when there is one, else
// one chapter per page titled from its file name.
func (st *site) chapters() []texnotes.Chapter {
	if st.nav != nil {
		out := make([]texnotes.Chapter, 0, len(st.nav.Chapters))
		for _, ch := range st.nav.Chapters {
			c := texnotes.Chapter{Title: ch.Title, Path: ch.Path, Summary: ch.Summary}
			for _, s := range ch.Sections {
				c.Sections = append(c.Sections, texnotes.Section{Title: s.Title, Anchor: s.Anchor})
			}
			out = append(out, c)
		}
		return out
	}
	out := make([]texnotes.Chapter, 0, len(st.pages))
	for _, p := range st.pages {
		out = append(out, texnotes.Chapter{Title: titleFromFile(p.Rel), Path: p.Rel})
	}
	return out
}

// titleFromFile turns "ch1/power-series.html" into "Power series".
func titleFromFile(rel string) string {
	base := filepath.Base(filepath.FromSlash(rel))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.NewReplacer("-", " ", "_", " ").Replace(base)
	r := []rune(strings.TrimSpace(base))
	if len(r) == 0 {
		return rel
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func (st *site) siteTitle() string {
	if st.cfg.Site.Title != "" {
		return st.cfg.Site.Title
	}
	if st.nav != nil {
		return st.nav.Title
	}
	return ""
}

// newConverter builds the converter for the current page set.
func (st *site) newConverter() error {
	opts := []texnotes.Option{
		texnotes.WithLogger(st.log),
		texnotes.WithSiteTitle(st.siteTitle()),
		texnotes.WithNavigation(st.chapters()),
		texnotes.WithMathMacros(st.cfg.Math.Macros),
		texnotes.WithImageDir(st.cfg.Site.ImageDir),
		texnotes.WithStyle(st.cfg.Style.Name),
		texnotes.WithHighlightStyle(st.cfg.Style.Highlight),
		texnotes.WithAuxPath(st.cfg.AuxPath()),
		texnotes.WithLiveReload(st.liveReload),
	}
	if st.cfg.Assets.BasePath != "" {
		opts = append(opts, texnotes.WithAssetPath(st.cfg.Assets.BasePath))
	}
	conv, err := texnotes.NewConverter(opts...)
	if err != nil {
		return fmt.Errorf("creating converter: %w", err)
	}
	st.conv = conv
	return nil
}

// canCompile reports whether LaTeX may run: a main file is set, no
// explicit aux file was given and --no-compile is off.
func (st *site) canCompile() bool {
	return st.cfg.Latex.Main != "" && st.cfg.Latex.AuxPath == "" && !st.s.noCompile
}

// ensureAux compiles the main file when its aux is missing or older than
// any source, and reports whether label numbers changed.
func (st *site) ensureAux(ctx context.Context, force bool) (bool, error) {
	aux := st.cfg.AuxPath()
	if !st.canCompile() {
		if aux == "" || !fileutil.FileExists(aux) {
			st.log.Warn("no aux file, references stay unresolved", zap.String("aux", aux))
			st.log.Info(strings.TrimSpace(hints.ForAuxMissing(aux)))
		}
		return false, nil
	}

	sources := append([]string{st.cfg.Latex.Main}, sourcePaths(st.pages)...)
	if !force && !fileutil.IsStale(aux, sources...) {
		st.log.Debug("aux file is up to date", zap.String("aux", aux))
		return false, nil
	}

	st.log.Info("compiling", zap.String("main", st.cfg.Latex.Main))
	res, err := st.comp.Run(ctx, st.cfg.Latex.Main)
	if err != nil {
		base := strings.TrimSuffix(filepath.Base(st.cfg.Latex.Main), filepath.Ext(st.cfg.Latex.Main))
		return false, &compileError{
			err:     err,
			binary:  st.comp.Binary(),
			logPath: filepath.Join(st.cfg.Latex.BuildDir, base+".log"),
		}
	}
	return res.Changed, nil
}

func sourcePaths(pages []page) []string {
	out := make([]string, len(pages))
	for i, p := range pages {
		out[i] = p.Source
	}
	return out
}

// Build compiles if needed, converts the given files (all when empty) and
// writes the index page.
func (st *site) Build(ctx context.Context, files []string) ([]pageResult, error) {
	if err := st.discover(); err != nil {
		return nil, err
	}
	todo, err := st.selectPages(files)
	if err != nil {
		return nil, err
	}
	if _, err := st.ensureAux(ctx, st.s.force); err != nil {
		return nil, err
	}
	if err := st.newConverter(); err != nil {
		return nil, err
	}
	results := st.convertPages(ctx, todo)
	if err := st.writeIndex(ctx); err != nil {
		return results, err
	}
	return results, nil
}

// convertPages converts pages concurrently with a bounded worker pool.
func (st *site) convertPages(ctx context.Context, pages []page) []pageResult {
	if len(pages) == 0 {
		return nil
	}

	concurrency := st.s.workers
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}
	if concurrency > len(pages) {
		concurrency = len(pages)
	}

	results := make([]pageResult, len(pages))
	var wg sync.WaitGroup
	jobs := make(chan int, len(pages))

	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if ctx.Err() != nil {
					results[idx] = pageResult{Page: pages[idx], Err: ctx.Err()}
					continue
				}
				results[idx] = st.convertPage(ctx, pages[idx])
			}
		}()
	}

	for i := range pages {
		jobs <- i
	}
	close(jobs)

	wg.Wait()
	return results
}

// convertPage converts one page and writes it under the output directory.
func (st *site) convertPage(ctx context.Context, p page) pageResult {
	start := time.Now()
	result := pageResult{
		Page:   p,
		Output: filepath.Join(st.cfg.Site.OutputDir, filepath.FromSlash(p.Rel)),
	}

	res, err := st.conv.ConvertFile(ctx, p.Source, p.Rel)
	if err != nil {
		result.Err = err
		result.Duration = time.Since(start)
		return result
	}
	if err := fileutil.WriteFile(result.Output, res.HTML); err != nil {
		result.Err = fmt.Errorf("%w: %v", texnotes.ErrWriteOutput, err)
		result.Duration = time.Since(start)
		return result
	}

	result.Diagnostics = len(res.Diagnostics)
	result.Unresolved = res.Count(texnotes.DiagUnresolvedRef)
	result.Duration = time.Since(start)
	st.log.Debug("page written",
		zap.String("page", p.Rel),
		zap.Int("labels", res.Labels),
		zap.Int("diagnostics", result.Diagnostics),
		zap.Duration("duration", result.Duration))
	return result
}

// writeIndex renders the index page.
func (st *site) writeIndex(ctx context.Context) error {
	doc, err := st.conv.RenderIndex(ctx)
	if err != nil {
		return err
	}
	out := filepath.Join(st.cfg.Site.OutputDir, indexPage)
	if err := fileutil.WriteFile(out, doc); err != nil {
		return fmt.Errorf("%w: %v", texnotes.ErrWriteOutput, err)
	}
	return nil
}

// removeOutput deletes the page built from a source that no longer exists.
func (st *site) removeOutput(p page) {
	out := filepath.Join(st.cfg.Site.OutputDir, filepath.FromSlash(p.Rel))
	if err := os.Remove(out); err != nil && !errors.Is(err, os.ErrNotExist) {
		st.log.Warn("cannot remove stale page", zap.String("page", out), zap.Error(err))
		return
	}
	st.log.Info("removed page", zap.String("page", p.Rel))
}

// resultSummary holds the count of succeeded and failed conversions.
type resultSummary struct {
	Succeeded  int
	Failed     int
	Unresolved int
}

// countResults tallies results.
func countResults(results []pageResult) resultSummary {
	var summary resultSummary
	for _, r := range results {
		if r.Err != nil {
			summary.Failed++
			continue
		}
		summary.Succeeded++
		summary.Unresolved += r.Unresolved
	}
	return summary
}

// reportResults logs each result and returns ErrPagesFailed when any page
// failed.
func reportResults(log *zap.Logger, results []pageResult) error {
	for _, r := range results {
		if r.Err != nil {
			log.Error("page failed", zap.String("source", r.Page.Source), zap.Error(r.Err))
			continue
		}
		log.Info("created",
			zap.String("page", r.Output),
			zap.Duration("duration", r.Duration.Round(time.Millisecond)))
	}

	summary := countResults(results)
	if len(results) > 1 {
		log.Info("build finished",
			zap.Int("succeeded", summary.Succeeded),
			zap.Int("failed", summary.Failed),
			zap.Int("unresolved_refs", summary.Unresolved))
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrPagesFailed, summary.Failed, len(results))
	}
	return nil
}

// absPath returns the absolute form of p, or "" for an empty path.
func absPath(p string) string {
	if p == "" {
		return ""
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.Clean(p)
	}
	return abs
}
