package main

import (
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/alnah/go-texnotes/internal/config"
)

// Environment holds injectable dependencies for testability.
type Environment struct {
	Now    func() time.Time
	Stdout io.Writer
	Stderr io.Writer
	// Logger overrides the logger built from -v/-q.
	Logger *zap.Logger
	// Config is used instead of loading one when set.
	Config *config.Config
	// Exporters builds the PDF exporter pool; tests swap in fakes.
	Exporters func(n int, timeout time.Duration) ExporterPool
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Now:       time.Now,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
		Exporters: newExporterPool,
	}
}

// withLogger returns a copy of env using log.
func (e *Environment) withLogger(log *zap.Logger) *Environment {
	cp := *e
	cp.Logger = log
	return &cp
}

// log returns the environment logger, or a no-op one.
func (e *Environment) log() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}
