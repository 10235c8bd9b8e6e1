package main

import (
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/alnah/go-texnotes/internal/config"
)

// envPrefix starts every environment variable texnotes reads.
const envPrefix = "TEXNOTES_"

// envConfig holds configuration from environment variables.
// Provides CI-friendly overrides without requiring YAML files.
type envConfig struct {
	ConfigPath string        // TEXNOTES_CONFIG: config file name or path
	SourceDir  string        // TEXNOTES_SOURCE_DIR: content directory
	OutputDir  string        // TEXNOTES_OUTPUT_DIR: site root
	Main       string        // TEXNOTES_MAIN: main .tex file
	Aux        string        // TEXNOTES_AUX: explicit aux file
	Compiler   string        // TEXNOTES_COMPILER: LaTeX binary
	Style      string        // TEXNOTES_STYLE: style name, path or CSS
	Addr       string        // TEXNOTES_ADDR: dev server address
	Timeout    time.Duration // TEXNOTES_TIMEOUT: LaTeX timeout
	Workers    int           // TEXNOTES_WORKERS: parallel workers
}

// knownEnvVars lists valid TEXNOTES_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	"TEXNOTES_CONFIG":     true,
	"TEXNOTES_SOURCE_DIR": true,
	"TEXNOTES_OUTPUT_DIR": true,
	"TEXNOTES_MAIN":       true,
	"TEXNOTES_AUX":        true,
	"TEXNOTES_COMPILER":   true,
	"TEXNOTES_STYLE":      true,
	"TEXNOTES_ADDR":       true,
	"TEXNOTES_TIMEOUT":    true,
	"TEXNOTES_WORKERS":    true,
	"TEXNOTES_CONTAINER":  true, // read by doctor
}

// loadEnvConfig reads configuration from environment variables.
// Malformed numbers and durations are ignored.
func loadEnvConfig() *envConfig {
	cfg := &envConfig{
		ConfigPath: os.Getenv("TEXNOTES_CONFIG"),
		SourceDir:  os.Getenv("TEXNOTES_SOURCE_DIR"),
		OutputDir:  os.Getenv("TEXNOTES_OUTPUT_DIR"),
		Main:       os.Getenv("TEXNOTES_MAIN"),
		Aux:        os.Getenv("TEXNOTES_AUX"),
		Compiler:   os.Getenv("TEXNOTES_COMPILER"),
		Style:      os.Getenv("TEXNOTES_STYLE"),
		Addr:       os.Getenv("TEXNOTES_ADDR"),
	}

	if timeout := os.Getenv("TEXNOTES_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil && d > 0 {
			cfg.Timeout = d
		}
	}
	if workers := os.Getenv("TEXNOTES_WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil && w > 0 {
			cfg.Workers = w
		}
	}
	return cfg
}

// warnUnknownEnvVars logs unrecognized TEXNOTES_* variables, which are
// usually typos like TEXNOTES_OUTDIR.
func warnUnknownEnvVars(log *zap.Logger) {
	for _, kv := range os.Environ() {
		if !strings.HasPrefix(kv, envPrefix) {
			continue
		}
		name, _, _ := strings.Cut(kv, "=")
		if !knownEnvVars[name] {
			log.Warn("unknown environment variable (typo?)", zap.String("name", name))
		}
	}
}

// applyEnvConfig overrides config file values with set environment
// variables. Flags are applied afterwards: flags > env > file > defaults.
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	setIf(&cfg.Site.SourceDir, env.SourceDir)
	setIf(&cfg.Site.OutputDir, env.OutputDir)
	setIf(&cfg.Latex.Main, env.Main)
	setIf(&cfg.Latex.AuxPath, env.Aux)
	setIf(&cfg.Latex.Compiler, env.Compiler)
	setIf(&cfg.Style.Name, env.Style)
	setIf(&cfg.Serve.Addr, env.Addr)
	if env.Timeout > 0 {
		cfg.Latex.TimeoutSeconds = durationSeconds(env.Timeout)
	}
}

// setIf overwrites *field when value is set.
func setIf(field *string, value string) {
	if value != "" {
		*field = value
	}
}

// durationSeconds rounds d up to whole seconds.
func durationSeconds(d time.Duration) int {
	return int((d + time.Second - 1) / time.Second)
}
