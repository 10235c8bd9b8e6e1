package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	texnotes "github.com/alnah/go-texnotes"
	"github.com/alnah/go-texnotes/internal/fileutil"
)

// ExporterPool abstracts the browser pool for testability.
type ExporterPool interface {
	Acquire() texnotes.PageExporter
	Release(texnotes.PageExporter)
	Close() error
	Size() int
}

// Compile-time interface implementation check.
var _ ExporterPool = (*texnotes.ExporterPool)(nil)

func newExporterPool(n int, timeout time.Duration) ExporterPool {
	return texnotes.NewExporterPool(n, timeout)
}

// runExport prints built pages to PDF. Positional args are page paths
// relative to the site root; without them every built content page is
// exported.
func runExport(ctx context.Context, args []string, flags *cliFlags, env *Environment) error {
	s, err := loadSettings(flags, env)
	if err != nil {
		return err
	}
	pages, err := exportPages(s, env, args)
	if err != nil {
		return err
	}

	pool := env.Exporters(texnotes.ResolvePoolSize(s.workers), s.exportTimeout)
	defer func() {
		if err := pool.Close(); err != nil {
			env.log().Warn("closing browsers: " + err.Error())
		}
	}()

	results := exportBatch(ctx, pool, pages, s)
	return reportResults(env.log(), results)
}

// exportPages resolves the pages to print.
func exportPages(s *settings, env *Environment, args []string) ([]page, error) {
	var pages []page
	if len(args) > 0 {
		for _, a := range args {
			rel := filepath.ToSlash(filepath.Clean(a))
			if filepath.IsAbs(a) || rel == ".." || strings.HasPrefix(rel, "../") {
				return nil, fmt.Errorf("%w: %s is outside the site", ErrUnknownPage, a)
			}
			pages = append(pages, page{Rel: rel})
		}
	} else {
		st, err := newSite(s, env.log(), false)
		if err != nil {
			return nil, err
		}
		if err := st.discover(); err != nil {
			return nil, err
		}
		pages = st.pages
	}

	built := make([]page, 0, len(pages))
	for _, p := range pages {
		p.Source = filepath.Join(s.cfg.Site.OutputDir, filepath.FromSlash(p.Rel))
		if !fileutil.FileExists(p.Source) {
			if len(args) > 0 {
				return nil, fmt.Errorf("%w: %s (run texnotes build first)", ErrNoPages, p.Source)
			}
			env.log().Warn("page not built, skipping: " + p.Source)
			continue
		}
		built = append(built, p)
	}
	if len(built) == 0 {
		return nil, fmt.Errorf("%w in %s (run texnotes build first)", ErrNoPages, s.cfg.Site.OutputDir)
	}
	return built, nil
}

// exportBatch prints pages concurrently, one browser per worker. For
// export, page.Source is the built HTML file.
func exportBatch(ctx context.Context, pool ExporterPool, pages []page, s *settings) []pageResult {
	concurrency := min(pool.Size(), len(pages))

	results := make([]pageResult, len(pages))
	var wg sync.WaitGroup
	jobs := make(chan int, len(pages))

	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			exp := pool.Acquire()
			defer pool.Release(exp)

			for idx := range jobs {
				if ctx.Err() != nil {
					results[idx] = pageResult{Page: pages[idx], Err: ctx.Err()}
					continue
				}
				results[idx] = exportPage(ctx, exp, pages[idx], s)
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

// exportPage prints one page and writes the PDF.
func exportPage(ctx context.Context, exp texnotes.PageExporter, p page, s *settings) pageResult {
	start := time.Now()
	rel := strings.TrimSuffix(p.Rel, filepath.Ext(p.Rel)) + ".pdf"
	result := pageResult{
		Page:   p,
		Output: filepath.Join(s.cfg.Export.OutputDir, filepath.FromSlash(rel)),
	}

	pdf, err := exp.ExportFile(ctx, p.Source)
	if err != nil {
		result.Err = err
		result.Duration = time.Since(start)
		return result
	}
	if err := fileutil.WriteFile(result.Output, pdf); err != nil {
		result.Err = fmt.Errorf("%w: %v", ErrWritePDF, err)
	}
	result.Duration = time.Since(start)
	return result
}
