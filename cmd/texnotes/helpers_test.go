package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/alnah/go-texnotes/internal/config"
)

const limitsTeX = `\begin{document}
\section{Limits}\label{sec:lim}
\begin{theorem}\label{t:1}
Every bounded sequence has a convergent subsequence.
\end{theorem}
By Theorem~\ref{t:1}.
\end{document}
`

const introTeX = `\section{Introduction}
See Theorem~\ref{t:1} and \ref{nowhere}.
`

const mainTeX = `\documentclass{article}
\begin{document}
\input{intro}
\input{ch1/limits}
\end{document}
`

const siteAux = `\relax
\newlabel{sec:lim}{{1}{1}}
\newlabel{t:1}{{1.2}{3}}
`

// testSite is a project directory with sources, a main file and an aux
// file that is newer than every source.
type testSite struct {
	root string
	cfg  *config.Config
}

func newTestSite(t *testing.T) *testSite {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "tex/intro.tex", introTeX)
	writeFile(t, root, "tex/ch1/limits.tex", limitsTeX)
	writeFile(t, root, "tex/main.tex", mainTeX)
	aux := writeFile(t, root, "build/main.aux", siteAux)

	// Keep the aux newer than the sources so nothing triggers LaTeX.
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(aux, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.Site.SourceDir = filepath.Join(root, "tex")
	cfg.Site.OutputDir = filepath.Join(root, "site")
	cfg.Site.Title = "Analysis"
	cfg.Latex.Main = filepath.Join(root, "tex", "main.tex")
	cfg.Latex.BuildDir = filepath.Join(root, "build")
	cfg.Export.OutputDir = filepath.Join(root, "pdf")
	return &testSite{root: root, cfg: cfg}
}

// path joins slash-separated rel onto the site root.
func (s *testSite) path(rel string) string {
	return filepath.Join(s.root, filepath.FromSlash(rel))
}

// env returns a test environment using the site's config.
func (s *testSite) env(log *zap.Logger) *Environment {
	env := DefaultEnv()
	env.Stdout = &bytes.Buffer{}
	env.Stderr = &bytes.Buffer{}
	env.Logger = log
	env.Config = s.cfg
	return env
}

// writeFile creates dir/rel with content and returns its path.
func writeFile(t *testing.T, dir, rel, content string) string {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
	return p
}

func readFile(t *testing.T, p string) string {
	t.Helper()
	data, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read %s: %v", p, err)
	}
	return string(data)
}

// observedLogger records entries at debug level and above.
func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

// noFlags returns parsed defaults for cmd.
func noFlags(t *testing.T, cmd string) *cliFlags {
	t.Helper()
	f, _, err := parseFlags(cmd, nil, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("parseFlags(%s) error = %v", cmd, err)
	}
	return f
}
