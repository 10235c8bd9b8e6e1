package main

import (
	"testing"
	"time"

	"github.com/alnah/go-texnotes/internal/config"
)

// Tests in this file use t.Setenv and cannot run in parallel.

func TestLoadEnvConfig(t *testing.T) {
	t.Setenv("TEXNOTES_SOURCE_DIR", "notes")
	t.Setenv("TEXNOTES_MAIN", "notes/main.tex")
	t.Setenv("TEXNOTES_TIMEOUT", "90s")
	t.Setenv("TEXNOTES_WORKERS", "3")

	env := loadEnvConfig()
	if env.SourceDir != "notes" || env.Main != "notes/main.tex" {
		t.Errorf("env = %+v", env)
	}
	if env.Timeout != 90*time.Second {
		t.Errorf("Timeout = %v, want 90s", env.Timeout)
	}
	if env.Workers != 3 {
		t.Errorf("Workers = %d, want 3", env.Workers)
	}
}

func TestLoadEnvConfig_IgnoresMalformed(t *testing.T) {
	t.Setenv("TEXNOTES_TIMEOUT", "soon")
	t.Setenv("TEXNOTES_WORKERS", "-2")

	env := loadEnvConfig()
	if env.Timeout != 0 || env.Workers != 0 {
		t.Errorf("env = %+v, want zero timeout and workers", env)
	}
}

func TestWarnUnknownEnvVars(t *testing.T) {
	t.Setenv("TEXNOTES_OUTDIR", "x")
	t.Setenv("TEXNOTES_OUTPUT_DIR", "site")

	log, logs := observedLogger()
	warnUnknownEnvVars(log)

	entries := logs.FilterMessage("unknown environment variable (typo?)").All()
	if len(entries) != 1 {
		t.Fatalf("got %d warnings, want 1", len(entries))
	}
	if got := entries[0].ContextMap()["name"]; got != "TEXNOTES_OUTDIR" {
		t.Errorf("name = %v", got)
	}
}

func TestApplyEnvConfig(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Site.SourceDir = "from-file"
	applyEnvConfig(&envConfig{
		SourceDir: "from-env",
		Compiler:  "lualatex",
		Timeout:   1500 * time.Millisecond,
	}, cfg)

	if cfg.Site.SourceDir != "from-env" {
		t.Errorf("SourceDir = %q, env must override the file", cfg.Site.SourceDir)
	}
	if cfg.Latex.Compiler != "lualatex" {
		t.Errorf("Compiler = %q", cfg.Latex.Compiler)
	}
	if cfg.Latex.TimeoutSeconds != 2 {
		t.Errorf("TimeoutSeconds = %d, want 2 (rounded up)", cfg.Latex.TimeoutSeconds)
	}
	if cfg.Site.OutputDir != config.DefaultOutputDir {
		t.Errorf("OutputDir = %q, unset env must not change it", cfg.Site.OutputDir)
	}
}
