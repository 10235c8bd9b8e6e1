package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	texnotes "github.com/alnah/go-texnotes"
	"github.com/alnah/go-texnotes/internal/assets"
	"github.com/alnah/go-texnotes/internal/compiler"
	"github.com/alnah/go-texnotes/internal/config"
	"github.com/alnah/go-texnotes/internal/hints"
	"github.com/alnah/go-texnotes/internal/nav"
	"github.com/alnah/go-texnotes/internal/reload"
	"github.com/alnah/go-texnotes/internal/watch"
)

// Exit codes for the texnotes CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess = 0 // Everything built
	ExitGeneral = 1 // General/unexpected error, or some pages failed
	ExitUsage   = 2 // Invalid flags, config, or validation
	ExitIO      = 3 // File not found, permission denied
	ExitBrowser = 4 // Browser/Chrome errors
	ExitCompile = 5 // LaTeX errors
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// LaTeX errors (exit 5)
	if errors.Is(err, compiler.ErrCompilerNotFound) ||
		errors.Is(err, compiler.ErrCompileFailed) ||
		errors.Is(err, compiler.ErrCompileTimeout) ||
		errors.Is(err, compiler.ErrAuxNotProduced) {
		return ExitCompile
	}

	// Browser errors (exit 4)
	if errors.Is(err, texnotes.ErrBrowserConnect) ||
		errors.Is(err, texnotes.ErrPageCreate) ||
		errors.Is(err, texnotes.ErrPageLoad) ||
		errors.Is(err, texnotes.ErrPDFGeneration) {
		return ExitBrowser
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, texnotes.ErrReadSource) ||
		errors.Is(err, texnotes.ErrReadAux) ||
		errors.Is(err, texnotes.ErrWriteOutput) ||
		errors.Is(err, ErrNoSources) ||
		errors.Is(err, ErrNoPages) ||
		errors.Is(err, ErrWritePDF) ||
		errors.Is(err, nav.ErrNavNotFound) ||
		errors.Is(err, watch.ErrWatch) ||
		errors.Is(err, reload.ErrListen) {
		return ExitIO
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, config.ErrEmptyConfigName) ||
		errors.Is(err, compiler.ErrInvalidMain) ||
		errors.Is(err, nav.ErrNavParse) ||
		errors.Is(err, nav.ErrInvalidNav) ||
		errors.Is(err, texnotes.ErrEmptySource) ||
		errors.Is(err, texnotes.ErrInvalidOutputPath) ||
		errors.Is(err, texnotes.ErrStyleNotFound) ||
		errors.Is(err, texnotes.ErrTemplateNotFound) ||
		errors.Is(err, texnotes.ErrScriptNotFound) ||
		errors.Is(err, texnotes.ErrInvalidAssetPath) ||
		errors.Is(err, ErrUnknownPage) ||
		errors.Is(err, ErrInvalidFlag) {
		return ExitUsage
	}

	return ExitGeneral
}

// hintFor returns an actionable hint for err, or "".
func hintFor(err error) string {
	switch {
	case errors.Is(err, compiler.ErrCompilerNotFound):
		binary := config.DefaultCompiler
		var ce *compileError
		if errors.As(err, &ce) {
			binary = ce.binary
		}
		return hints.ForCompilerNotFound(binary)
	case errors.Is(err, compiler.ErrCompileFailed):
		var ce *compileError
		if errors.As(err, &ce) {
			return hints.ForCompileFailed(ce.logPath)
		}
		return hints.ForCompileFailed("")
	case errors.Is(err, compiler.ErrCompileTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return hints.ForTimeout()
	case errors.Is(err, texnotes.ErrBrowserConnect):
		return hints.ForBrowserConnect()
	case errors.Is(err, config.ErrConfigNotFound):
		return hints.ForConfigNotFound(searchedConfigPaths())
	case errors.Is(err, texnotes.ErrStyleNotFound):
		return hints.ForStyleNotFound(assets.StyleNames())
	case errors.Is(err, reload.ErrListen):
		var ae *addrError
		if errors.As(err, &ae) {
			return hints.ForAddrInUse(ae.addr)
		}
	case errors.Is(err, ErrWritePDF), errors.Is(err, texnotes.ErrWriteOutput):
		return hints.ForOutputDirectory()
	}
	return ""
}

// compileError attaches the compiler binary and log path to a LaTeX error.
type compileError struct {
	err     error
	binary  string
	logPath string
}

func (e *compileError) Error() string { return e.err.Error() }
func (e *compileError) Unwrap() error { return e.err }

// addrError attaches the listen address to a server error.
type addrError struct {
	err  error
	addr string
}

func (e *addrError) Error() string { return e.err.Error() }
func (e *addrError) Unwrap() error { return e.err }

// searchedConfigPaths lists where the default config name is looked up.
func searchedConfigPaths() []string {
	paths := []string{config.DefaultName + ".yaml", config.DefaultName + ".yml"}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths,
			filepath.Join(dir, "texnotes", config.DefaultName+".yaml"),
			filepath.Join(dir, "texnotes", config.DefaultName+".yml"))
	}
	return paths
}
