package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/alnah/go-texnotes/internal/compiler"
)

// fakeLaTeX writes an aux file that renumbers t:1 as 2.5.
const fakeLaTeX = `#!/bin/sh
for a in "$@"; do
  case "$a" in
    -output-directory=*) out="${a#*=}" ;;
    *.tex) file="$a" ;;
  esac
done
base=$(basename "$file" .tex)
printf '%s\n' '\newlabel{t:1}{{2.5}{3}}' > "$out/$base.aux"
`

func writeFakeCompiler(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake compiler is a shell script")
	}
	bin := filepath.Join(t.TempDir(), "fakelatex")
	if err := os.WriteFile(bin, []byte(fakeLaTeX), 0o755); err != nil {
		t.Fatal(err)
	}
	return bin
}

func newTestBuilder(t *testing.T, ts *testSite, log *zap.Logger) *site {
	t.Helper()
	s, err := loadSettings(noFlags(t, "build"), ts.env(log))
	if err != nil {
		t.Fatalf("loadSettings() error = %v", err)
	}
	st, err := newSite(s, log, false)
	if err != nil {
		t.Fatalf("newSite() error = %v", err)
	}
	return st
}

func TestSite_Build(t *testing.T) {
	t.Parallel()

	ts := newTestSite(t)
	st := newTestBuilder(t, ts, zap.NewNop())

	results, err := st.Build(context.Background(), nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2 (main.tex is not a page)", len(results))
	}
	for _, r := range results {
		if r.Err != nil {
			t.Errorf("%s: %v", r.Page.Source, r.Err)
		}
	}

	limits := readFile(t, ts.path("site/ch1/limits.html"))
	for _, want := range []string{"Theorem 1.2", `id="t:1"`, "<title>Limits | Analysis</title>"} {
		if !strings.Contains(limits, want) {
			t.Errorf("limits.html missing %q", want)
		}
	}
	if strings.Contains(limits, "EventSource") {
		t.Error("build output must not carry the live-reload script")
	}

	intro := readFile(t, ts.path("site/intro.html"))
	if !strings.Contains(intro, "nowhere??") {
		t.Error("unresolved reference is not flagged in intro.html")
	}

	index := readFile(t, ts.path("site/index.html"))
	for _, want := range []string{"Analysis", ">Intro<", ">Limits<", `href="ch1/limits.html"`} {
		if !strings.Contains(index, want) {
			t.Errorf("index.html missing %q", want)
		}
	}
	if _, err := os.Stat(ts.path("site/main.html")); !errors.Is(err, os.ErrNotExist) {
		t.Error("main.tex must not be converted")
	}
}

func TestSite_Build_SelectedFiles(t *testing.T) {
	t.Parallel()

	ts := newTestSite(t)
	st := newTestBuilder(t, ts, zap.NewNop())

	results, err := st.Build(context.Background(), []string{ts.path("tex/intro.tex")})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(results) != 1 || results[0].Page.Rel != "intro.html" {
		t.Fatalf("results = %+v, want intro.html only", results)
	}
	if _, err := os.Stat(ts.path("site/ch1/limits.html")); !errors.Is(err, os.ErrNotExist) {
		t.Error("unselected page was written")
	}
	if _, err := os.Stat(ts.path("site/index.html")); err != nil {
		t.Errorf("index not written: %v", err)
	}
}

func TestSite_Build_Errors(t *testing.T) {
	t.Parallel()

	t.Run("unknown file", func(t *testing.T) {
		t.Parallel()
		ts := newTestSite(t)
		st := newTestBuilder(t, ts, zap.NewNop())
		_, err := st.Build(context.Background(), []string{ts.path("elsewhere.tex")})
		if !errors.Is(err, ErrUnknownPage) {
			t.Errorf("error = %v, want ErrUnknownPage", err)
		}
	})

	t.Run("no sources", func(t *testing.T) {
		t.Parallel()
		ts := newTestSite(t)
		ts.cfg.Site.SourceDir = t.TempDir()
		ts.cfg.Latex.Main = ""
		st := newTestBuilder(t, ts, zap.NewNop())
		_, err := st.Build(context.Background(), nil)
		if !errors.Is(err, ErrNoSources) {
			t.Errorf("error = %v, want ErrNoSources", err)
		}
	})
}

func TestSite_TitlesFromNav(t *testing.T) {
	t.Parallel()

	ts := newTestSite(t)
	writeFile(t, ts.root, "tex/nav.yaml", `title: Real Analysis
chapters:
  - title: Sequences and Limits
    path: ch1/limits.html
    summary: Bolzano and **Weierstrass**.
  - title: Series
    path: ch2/series.html
`)
	ts.cfg.Site.Title = ""
	log, logs := observedLogger()
	st := newTestBuilder(t, ts, log)

	if _, err := st.Build(context.Background(), nil); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	limits := readFile(t, ts.path("site/ch1/limits.html"))
	if !strings.Contains(limits, "<title>Sequences and Limits | Real Analysis</title>") {
		t.Error("page title does not come from the nav file")
	}
	index := readFile(t, ts.path("site/index.html"))
	if !strings.Contains(index, "<strong>Weierstrass</strong>") {
		t.Error("chapter summary markdown not rendered on the index")
	}
	if logs.FilterMessage("nav entry has no source file").Len() != 1 {
		t.Error("expected a warning for ch2/series.html")
	}
}

func TestSite_EnsureAux(t *testing.T) {
	t.Parallel()

	t.Run("up to date aux is kept", func(t *testing.T) {
		t.Parallel()
		ts := newTestSite(t)
		ts.cfg.Latex.Compiler = "definitely-not-a-latex-binary"
		st := newTestBuilder(t, ts, zap.NewNop())
		if err := st.discover(); err != nil {
			t.Fatal(err)
		}
		changed, err := st.ensureAux(context.Background(), false)
		if err != nil || changed {
			t.Errorf("ensureAux() = %v, %v; want false, nil", changed, err)
		}
	})

	t.Run("stale aux is recompiled", func(t *testing.T) {
		t.Parallel()
		ts := newTestSite(t)
		ts.cfg.Latex.Compiler = writeFakeCompiler(t)
		past := time.Now().Add(-time.Hour)
		if err := os.Chtimes(ts.path("build/main.aux"), past, past); err != nil {
			t.Fatal(err)
		}
		st := newTestBuilder(t, ts, zap.NewNop())

		results, err := st.Build(context.Background(), nil)
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		if len(results) != 2 {
			t.Fatalf("got %d results", len(results))
		}
		if !strings.Contains(readFile(t, ts.path("site/ch1/limits.html")), "Theorem 2.5") {
			t.Error("page does not use the recompiled numbering")
		}
	})

	t.Run("no-compile warns about a missing aux", func(t *testing.T) {
		t.Parallel()
		ts := newTestSite(t)
		ts.cfg.Latex.BuildDir = t.TempDir()
		log, logs := observedLogger()
		st := newTestBuilder(t, ts, log)
		st.s.noCompile = true

		changed, err := st.ensureAux(context.Background(), true)
		if err != nil || changed {
			t.Errorf("ensureAux() = %v, %v; want false, nil", changed, err)
		}
		if logs.FilterMessage("no aux file, references stay unresolved").Len() != 1 {
			t.Error("missing aux was not reported")
		}
	})

	t.Run("compiler failure", func(t *testing.T) {
		t.Parallel()
		if runtime.GOOS == "windows" {
			t.Skip("uses /bin/false")
		}
		ts := newTestSite(t)
		ts.cfg.Latex.Compiler = "false"
		st := newTestBuilder(t, ts, zap.NewNop())
		if err := st.discover(); err != nil {
			t.Fatal(err)
		}

		_, err := st.ensureAux(context.Background(), true)
		if !errors.Is(err, compiler.ErrCompileFailed) {
			t.Fatalf("error = %v, want ErrCompileFailed", err)
		}
		if got := exitCodeFor(err); got != ExitCompile {
			t.Errorf("exit code = %d, want %d", got, ExitCompile)
		}
		if hint := hintFor(err); !strings.Contains(hint, filepath.Join(ts.cfg.Latex.BuildDir, "main.log")) {
			t.Errorf("hint = %q, want the LaTeX log path", hint)
		}
	})
}

func TestTitleFromFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		rel  string
		want string
	}{
		{"limits.html", "Limits"},
		{"ch1/power-series.html", "Power series"},
		{"ch2/fixed_points.html", "Fixed points"},
		{"éléments.html", "Éléments"},
	}
	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			t.Parallel()
			if got := titleFromFile(tt.rel); got != tt.want {
				t.Errorf("titleFromFile(%q) = %q, want %q", tt.rel, got, tt.want)
			}
		})
	}
}

func TestReportResults(t *testing.T) {
	t.Parallel()

	log, logs := observedLogger()
	err := reportResults(log, []pageResult{
		{Page: page{Source: "a.tex"}, Output: "a.html", Unresolved: 2},
		{Page: page{Source: "b.tex"}, Err: errors.New("boom")},
	})
	if !errors.Is(err, ErrPagesFailed) {
		t.Fatalf("error = %v, want ErrPagesFailed", err)
	}

	summary := logs.FilterMessage("build finished").All()
	if len(summary) != 1 {
		t.Fatalf("got %d summaries", len(summary))
	}
	fields := summary[0].ContextMap()
	if fields["succeeded"] != int64(1) || fields["failed"] != int64(1) || fields["unresolved_refs"] != int64(2) {
		t.Errorf("summary fields = %v", fields)
	}
}
