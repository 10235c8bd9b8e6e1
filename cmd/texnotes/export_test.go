package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	texnotes "github.com/alnah/go-texnotes"
)

// fakeExporter returns the HTML file's first bytes as "PDF".
type fakeExporter struct {
	fail string // pages whose path contains this fail
}

func (f *fakeExporter) ExportFile(ctx context.Context, htmlPath string) ([]byte, error) {
	if f.fail != "" && strings.Contains(htmlPath, f.fail) {
		return nil, fmt.Errorf("%w: %s", texnotes.ErrPDFGeneration, htmlPath)
	}
	data, err := os.ReadFile(htmlPath)
	if err != nil {
		return nil, err
	}
	return append([]byte("%PDF-"), data[:min(len(data), 15)]...), nil
}

func (f *fakeExporter) Close() error { return nil }

// fakePool hands out one shared fakeExporter and records its use.
type fakePool struct {
	exp *fakeExporter
	n   int

	mu       sync.Mutex
	acquired int
	closed   bool
}

func (p *fakePool) Acquire() texnotes.PageExporter {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.acquired++
	return p.exp
}

func (p *fakePool) Release(texnotes.PageExporter) {}

func (p *fakePool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePool) Size() int { return p.n }

var _ ExporterPool = (*fakePool)(nil)

func builtSite(t *testing.T) *testSite {
	t.Helper()
	ts := newTestSite(t)
	st := newTestBuilder(t, ts, zap.NewNop())
	if _, err := st.Build(context.Background(), nil); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return ts
}

func TestRunExport(t *testing.T) {
	t.Parallel()

	ts := builtSite(t)
	pool := &fakePool{exp: &fakeExporter{}, n: 4}
	env := ts.env(zap.NewNop())
	var gotTimeout time.Duration
	env.Exporters = func(n int, timeout time.Duration) ExporterPool {
		gotTimeout = timeout
		return pool
	}

	if err := runExport(context.Background(), nil, noFlags(t, "export"), env); err != nil {
		t.Fatalf("runExport() error = %v", err)
	}
	for _, rel := range []string{"pdf/intro.pdf", "pdf/ch1/limits.pdf"} {
		if got := readFile(t, ts.path(rel)); !strings.HasPrefix(got, "%PDF-<") {
			t.Errorf("%s = %q", rel, got)
		}
	}
	if !pool.closed {
		t.Error("pool not closed")
	}
	if pool.acquired != 2 {
		t.Errorf("acquired %d exporters, want one per worker (2)", pool.acquired)
	}
	if gotTimeout != 60*time.Second {
		t.Errorf("timeout = %v, want the config default", gotTimeout)
	}
}

func TestRunExport_SelectedPage(t *testing.T) {
	t.Parallel()

	ts := builtSite(t)
	env := ts.env(zap.NewNop())
	env.Exporters = func(int, time.Duration) ExporterPool {
		return &fakePool{exp: &fakeExporter{}, n: 1}
	}

	if err := runExport(context.Background(), []string{"ch1/limits.html"}, noFlags(t, "export"), env); err != nil {
		t.Fatalf("runExport() error = %v", err)
	}
	if _, err := os.Stat(ts.path("pdf/ch1/limits.pdf")); err != nil {
		t.Errorf("limits.pdf: %v", err)
	}
	if _, err := os.Stat(ts.path("pdf/intro.pdf")); !errors.Is(err, os.ErrNotExist) {
		t.Error("unselected page exported")
	}
}

func TestRunExport_Errors(t *testing.T) {
	t.Parallel()

	t.Run("nothing built", func(t *testing.T) {
		t.Parallel()
		ts := newTestSite(t)
		env := ts.env(zap.NewNop())
		env.Exporters = func(int, time.Duration) ExporterPool { return &fakePool{exp: &fakeExporter{}, n: 1} }
		err := runExport(context.Background(), nil, noFlags(t, "export"), env)
		if !errors.Is(err, ErrNoPages) {
			t.Errorf("error = %v, want ErrNoPages", err)
		}
	})

	t.Run("page outside site", func(t *testing.T) {
		t.Parallel()
		ts := builtSite(t)
		env := ts.env(zap.NewNop())
		err := runExport(context.Background(), []string{"../secret.html"}, noFlags(t, "export"), env)
		if !errors.Is(err, ErrUnknownPage) {
			t.Errorf("error = %v, want ErrUnknownPage", err)
		}
	})

	t.Run("browser failure", func(t *testing.T) {
		t.Parallel()
		ts := builtSite(t)
		env := ts.env(zap.NewNop())
		env.Exporters = func(int, time.Duration) ExporterPool {
			return &fakePool{exp: &fakeExporter{fail: "intro"}, n: 2}
		}
		err := runExport(context.Background(), nil, noFlags(t, "export"), env)
		if !errors.Is(err, ErrPagesFailed) {
			t.Fatalf("error = %v, want ErrPagesFailed", err)
		}
		if _, err := os.Stat(ts.path("pdf/ch1/limits.pdf")); err != nil {
			t.Errorf("other pages must still export: %v", err)
		}
	})
}

func TestExportBatch_Canceled(t *testing.T) {
	t.Parallel()

	ts := builtSite(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := &settings{cfg: ts.cfg}
	pages := []page{{Source: ts.path("site/intro.html"), Rel: "intro.html"}}
	results := exportBatch(ctx, &fakePool{exp: &fakeExporter{}, n: 1}, pages, s)
	if len(results) != 1 || !errors.Is(results[0].Err, context.Canceled) {
		t.Errorf("results = %+v, want canceled", results)
	}
}
