// Package hints turns common failures into one-line suggestions. A hint is
// formatted as "\n  hint: <text>" so callers can append it to the error
// message.
package hints

import (
	"os"
	"path/filepath"
	"strings"
)

// ciVars are set by the CI systems we know about.
var ciVars = []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"}

// DetectContainer reports whether we run inside a container and which
// signal said so. Tests replace it.
var DetectContainer = func() (bool, string) {
	if os.Getenv("TEXNOTES_CONTAINER") == "1" {
		return true, "TEXNOTES_CONTAINER=1"
	}
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true, "/.dockerenv"
	}
	if v := os.Getenv("container"); v != "" {
		return true, "container=" + v
	}
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return true, "KUBERNETES_SERVICE_HOST"
	}
	return false, ""
}

// InCI reports whether a CI environment variable is set.
func InCI() bool {
	for _, v := range ciVars {
		if os.Getenv(v) != "" {
			return true
		}
	}
	return false
}

// NeedsNoSandbox reports whether Chrome will likely need ROD_NO_SANDBOX=1.
func NeedsNoSandbox() bool {
	if os.Getenv("ROD_NO_SANDBOX") == "1" {
		return false
	}
	inContainer, _ := DetectContainer()
	return inContainer || InCI()
}

// ForBrowserConnect returns hints for Chrome launch failures during export.
func ForBrowserConnect() string {
	var hints []string
	if NeedsNoSandbox() {
		hints = append(hints, "set ROD_NO_SANDBOX=1 for Docker/CI")
	}
	if os.Getenv("ROD_BROWSER_BIN") == "" {
		hints = append(hints, "set ROD_BROWSER_BIN to use custom Chrome")
	}
	return formatHints(hints)
}

// ForTimeout returns a hint about raising the LaTeX or page timeout.
func ForTimeout() string {
	return format("for long chapters or slow LaTeX runs, raise --timeout (export: --page-timeout)")
}

// ForConfigNotFound suggests --config and, when one was searched, the
// user-level config file.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/texnotes.yaml"
	for _, p := range searchedPaths {
		if filepath.Base(filepath.Dir(p)) == "texnotes" {
			hint += " or create " + p
			break
		}
	}
	return format(hint)
}

// ForCompilerNotFound returns hints when the LaTeX binary is not on PATH.
func ForCompilerNotFound(binary string) string {
	return formatHints([]string{
		"install a TeX distribution providing " + binary,
		"or set latex.compiler / TEXNOTES_COMPILER",
		"or pass --aux to use an existing .aux file",
	})
}

// ForCompileFailed points at the LaTeX log.
func ForCompileFailed(logPath string) string {
	if logPath == "" {
		return format("rerun with -v to see compiler output")
	}
	return format("see " + logPath + " for the LaTeX error")
}

// ForAuxMissing explains how to get an aux file when none is available,
// which leaves every reference unresolved.
func ForAuxMissing(auxPath string) string {
	if auxPath == "" {
		return format("set latex.main so labels can be compiled, or pass --aux")
	}
	return format("run texnotes build without --no-compile to create " + auxPath)
}

// ForAddrInUse returns a hint for a server address that cannot be bound.
func ForAddrInUse(addr string) string {
	return format(addr + " is taken; use --addr with another port")
}

// ForOutputDirectory returns hints for output directory creation errors.
func ForOutputDirectory() string {
	return format("check parent directory exists and is writable")
}

// ForStyleNotFound lists the embedded styles.
func ForStyleNotFound(available []string) string {
	if len(available) == 0 {
		return ""
	}
	return format("available: " + strings.Join(available, ", "))
}

func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
