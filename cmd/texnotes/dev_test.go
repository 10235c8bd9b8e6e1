package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/alnah/go-texnotes/internal/reload"
)

func newTestLoop(t *testing.T, ts *testSite) (*devLoop, func() int) {
	t.Helper()
	log, logs := observedLogger()
	s, err := loadSettings(noFlags(t, "serve"), ts.env(log))
	if err != nil {
		t.Fatalf("loadSettings() error = %v", err)
	}
	st, err := newSite(s, log, true)
	if err != nil {
		t.Fatalf("newSite() error = %v", err)
	}
	d := &devLoop{st: st, hub: reload.NewHub(log), log: log}
	if err := d.initial(context.Background()); err != nil {
		t.Fatalf("initial() error = %v", err)
	}
	reloads := func() int { return logs.FilterMessage("reload sent").Len() }
	return d, reloads
}

func TestDevLoop_Initial(t *testing.T) {
	t.Parallel()

	ts := newTestSite(t)
	_, reloads := newTestLoop(t, ts)

	for _, rel := range []string{"site/index.html", "site/intro.html", "site/ch1/limits.html"} {
		if _, err := os.Stat(ts.path(rel)); err != nil {
			t.Errorf("%s: %v", rel, err)
		}
	}
	if !strings.Contains(readFile(t, ts.path("site/intro.html")), "EventSource") {
		t.Error("dev pages must carry the live-reload script")
	}
	if reloads() != 1 {
		t.Errorf("reloads = %d, want 1", reloads())
	}
}

func TestDevLoop_Handle(t *testing.T) {
	t.Parallel()

	t.Run("edited page is rebuilt", func(t *testing.T) {
		t.Parallel()
		ts := newTestSite(t)
		d, reloads := newTestLoop(t, ts)

		intro := writeFile(t, ts.root, "tex/intro.tex", introTeX+"\nFresh paragraph.\n")
		d.handle(context.Background(), []string{intro})

		if !strings.Contains(readFile(t, ts.path("site/intro.html")), "Fresh paragraph.") {
			t.Error("intro.html not rebuilt")
		}
		if reloads() != 2 {
			t.Errorf("reloads = %d, want 2", reloads())
		}
	})

	t.Run("new page joins the index", func(t *testing.T) {
		t.Parallel()
		ts := newTestSite(t)
		d, _ := newTestLoop(t, ts)

		series := writeFile(t, ts.root, "tex/ch2/series.tex", `\section{Series}`+"\nSums.\n")
		d.handle(context.Background(), []string{series})

		if _, err := os.Stat(ts.path("site/ch2/series.html")); err != nil {
			t.Errorf("series.html: %v", err)
		}
		if !strings.Contains(readFile(t, ts.path("site/index.html")), `href="ch2/series.html"`) {
			t.Error("index does not list the new page")
		}
		if !strings.Contains(readFile(t, ts.path("site/intro.html")), "ch2/series.html") {
			t.Error("existing pages keep a stale sidebar")
		}
	})

	t.Run("deleted source removes its page", func(t *testing.T) {
		t.Parallel()
		ts := newTestSite(t)
		d, _ := newTestLoop(t, ts)

		intro := ts.path("tex/intro.tex")
		if err := os.Remove(intro); err != nil {
			t.Fatal(err)
		}
		d.handle(context.Background(), []string{intro})

		if _, err := os.Stat(ts.path("site/intro.html")); !errors.Is(err, os.ErrNotExist) {
			t.Error("intro.html still exists")
		}
		if strings.Contains(readFile(t, ts.path("site/index.html")), "intro.html") {
			t.Error("index still lists the deleted page")
		}
	})

	t.Run("nav change retitles pages", func(t *testing.T) {
		t.Parallel()
		ts := newTestSite(t)
		navFile := writeFile(t, ts.root, "nav.yaml", "chapters:\n  - title: Opening\n    path: intro.html\n")
		ts.cfg.Site.NavFile = navFile
		d, _ := newTestLoop(t, ts)

		writeFile(t, ts.root, "nav.yaml", "chapters:\n  - title: Prologue\n    path: intro.html\n")
		d.handle(context.Background(), []string{navFile})

		if !strings.Contains(readFile(t, ts.path("site/intro.html")), "<title>Prologue | Analysis</title>") {
			t.Error("intro.html not retitled")
		}
	})

	t.Run("renumbered labels rebuild every page", func(t *testing.T) {
		t.Parallel()
		ts := newTestSite(t)
		ts.cfg.Latex.Compiler = writeFakeCompiler(t)
		d, _ := newTestLoop(t, ts)

		intro := writeFile(t, ts.root, "tex/intro.tex", introTeX+"\nEdited.\n")
		future := time.Now().Add(2 * time.Hour)
		if err := os.Chtimes(intro, future, future); err != nil {
			t.Fatal(err)
		}
		d.handle(context.Background(), []string{intro})

		if !strings.Contains(readFile(t, ts.path("site/ch1/limits.html")), "Theorem 2.5") {
			t.Error("unchanged page not rebuilt with the new numbering")
		}
	})
}

func TestRunServe(t *testing.T) {
	t.Parallel()

	ts := newTestSite(t)
	ts.cfg.Serve.Addr = "127.0.0.1:0"
	log, logs := observedLogger()
	env := ts.env(log)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runServe(ctx, nil, noFlags(t, "serve"), env) }()

	var url string
	deadline := time.Now().Add(10 * time.Second)
	for url == "" && time.Now().Before(deadline) {
		if entries := logs.FilterMessage("serving").All(); len(entries) > 0 {
			url = fmt.Sprint(entries[0].ContextMap()["url"])
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if url == "" {
		cancel()
		t.Fatalf("server did not start: %v", <-done)
	}

	resp, err := http.Get(url + "ch1/limits.html")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("runServe() error = %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("runServe did not stop")
	}
}

func TestRunServe_AddrInUse(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	ts := newTestSite(t)
	ts.cfg.Serve.Addr = ln.Addr().String()
	env := ts.env(zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = runServe(ctx, nil, noFlags(t, "serve"), env)
	if !errors.Is(err, reload.ErrListen) {
		t.Fatalf("error = %v, want ErrListen", err)
	}
	if code := exitCodeFor(err); code != ExitIO {
		t.Errorf("exit code = %d, want %d", code, ExitIO)
	}
	if !strings.Contains(hintFor(err), "--addr") {
		t.Errorf("hint = %q", hintFor(err))
	}
}
