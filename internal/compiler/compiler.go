// Package compiler runs LaTeX to produce the .aux file that holds label
// numbers. Only the aux file matters; the PDF is a by-product.
package compiler

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/alnah/go-texnotes/internal/process"
)

// Sentinel errors for compiler operations.
var (
	ErrCompilerNotFound = errors.New("LaTeX compiler not found")
	ErrCompileFailed    = errors.New("LaTeX compilation failed")
	ErrCompileTimeout   = errors.New("LaTeX compilation timed out")
	ErrAuxNotProduced   = errors.New("compiler did not produce an aux file")
	ErrInvalidMain      = errors.New("main file must be a .tex file")
)

// DefaultTimeout bounds a single compiler run.
const DefaultTimeout = 2 * time.Minute

// excerptLines is how much of the log an error carries.
const excerptLines = 12

// Result describes a successful run.
type Result struct {
	AuxPath  string
	LogPath  string // LaTeX's own .log file
	Output   string // combined stdout and stderr
	Duration time.Duration
	Changed  bool // aux content differs from before the run
}

// Compiler runs a LaTeX binary in nonstop mode.
type Compiler struct {
	binary   string
	buildDir string
	timeout  time.Duration
	log      *zap.Logger
	lookPath func(string) (string, error)
}

// New creates a Compiler. binary is looked up on PATH at each run so a TeX
// installation added after startup is picked up.
func New(binary, buildDir string, timeout time.Duration, log *zap.Logger) *Compiler {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Compiler{
		binary:   binary,
		buildDir: buildDir,
		timeout:  timeout,
		log:      log,
		lookPath: exec.LookPath,
	}
}

// Binary returns the configured compiler name.
func (c *Compiler) Binary() string { return c.binary }

// AuxPath returns where Run writes the aux file for mainTex.
func (c *Compiler) AuxPath(mainTex string) string {
	return filepath.Join(c.buildDir, baseName(mainTex)+".aux")
}

// Available reports whether the binary can be found, and its full path.
func (c *Compiler) Available() (string, bool) {
	p, err := c.lookPath(c.binary)
	return p, err == nil
}

// Run compiles mainTex once into the build directory. The source directory
// is added to TEXINPUTS so packages and included files next to mainTex
// resolve although output goes elsewhere.
func (c *Compiler) Run(ctx context.Context, mainTex string) (*Result, error) {
	if !strings.EqualFold(filepath.Ext(mainTex), ".tex") {
		return nil, fmt.Errorf("%w: %s", ErrInvalidMain, mainTex)
	}
	bin, err := c.lookPath(c.binary)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCompilerNotFound, c.binary)
	}

	texPath, err := filepath.Abs(mainTex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompileFailed, err)
	}
	outDir, err := filepath.Abs(c.buildDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompileFailed, err)
	}
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating build directory: %w", err)
	}
	texDir := filepath.Dir(texPath)
	auxPath := filepath.Join(outDir, baseName(texPath)+".aux")
	before := fileHash(auxPath)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, bin, buildArgs(outDir, filepath.Base(texPath))...)
	cmd.Dir = texDir
	cmd.Env = append(os.Environ(), texInputs(texDir))
	process.Isolate(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	c.log.Debug("running LaTeX",
		zap.String("binary", bin),
		zap.String("main", texPath),
		zap.String("outDir", outDir))

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)
	output := combineOutput(stdout.String(), stderr.String())

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return nil, fmt.Errorf("%w after %v", ErrCompileTimeout, c.timeout)
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case runErr != nil:
		return nil, fmt.Errorf("%w: %v\n%s", ErrCompileFailed, runErr, Excerpt(output))
	}

	if _, err := os.Stat(auxPath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrAuxNotProduced, auxPath)
	}

	res := &Result{
		AuxPath:  auxPath,
		LogPath:  filepath.Join(outDir, baseName(texPath)+".log"),
		Output:   output,
		Duration: elapsed,
		Changed:  !bytes.Equal(before, fileHash(auxPath)),
	}
	c.log.Info("LaTeX finished",
		zap.String("aux", auxPath),
		zap.Duration("duration", elapsed),
		zap.Bool("changed", res.Changed))
	return res, nil
}

// buildArgs stops at the first error instead of prompting.
func buildArgs(outDir, texFile string) []string {
	return []string{
		"-interaction=nonstopmode",
		"-halt-on-error",
		"-file-line-error",
		"-output-directory=" + outDir,
		texFile,
	}
}

// texInputs prepends dir to the TeX search path. The trailing separator
// keeps the default paths.
func texInputs(dir string) string {
	sep := string(os.PathListSeparator)
	existing := os.Getenv("TEXINPUTS")
	if existing != "" {
		return "TEXINPUTS=." + sep + dir + sep + strings.TrimSuffix(existing, sep) + sep
	}
	return "TEXINPUTS=." + sep + dir + sep
}

// Excerpt returns the error lines of a LaTeX log (lines starting with "!"
// or in file:line: form, with the two lines that follow) or its tail when
// none are found.
func Excerpt(output string) string {
	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
	var picked []string
	for i := 0; i < len(lines) && len(picked) < excerptLines; i++ {
		if !isErrorLine(lines[i]) {
			continue
		}
		end := min(i+3, len(lines))
		picked = append(picked, lines[i:end]...)
		i = end - 1
	}
	if len(picked) == 0 {
		start := max(0, len(lines)-excerptLines)
		picked = lines[start:]
	}
	if len(picked) > excerptLines {
		picked = picked[:excerptLines]
	}
	return strings.Join(picked, "\n")
}

func isErrorLine(line string) bool {
	if strings.HasPrefix(line, "!") {
		return true
	}
	// -file-line-error format: ./file.tex:12: Undefined control sequence.
	parts := strings.SplitN(line, ":", 3)
	if len(parts) < 3 || !strings.HasSuffix(parts[0], ".tex") {
		return false
	}
	for _, r := range parts[1] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return parts[1] != ""
}

func combineOutput(stdout, stderr string) string {
	var parts []string
	if stdout != "" {
		parts = append(parts, stdout)
	}
	if stderr != "" {
		parts = append(parts, stderr)
	}
	return strings.Join(parts, "\n")
}

func baseName(p string) string {
	b := filepath.Base(p)
	return strings.TrimSuffix(b, filepath.Ext(b))
}

// fileHash returns nil for unreadable files.
func fileHash(p string) []byte {
	data, err := os.ReadFile(p) // #nosec G304 -- build output
	if err != nil {
		return nil
	}
	sum := sha256.Sum256(data)
	return sum[:]
}
