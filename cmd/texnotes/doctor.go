package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/go-rod/rod/lib/launcher"

	"github.com/alnah/go-texnotes/internal/compiler"
	"github.com/alnah/go-texnotes/internal/config"
	"github.com/alnah/go-texnotes/internal/fileutil"
	"github.com/alnah/go-texnotes/internal/hints"
)

// doctorResult holds all diagnostic information.
type doctorResult struct {
	Status   string       `json:"status"` // "ready", "warnings", "errors"
	Latex    latexInfo    `json:"latex"`
	Chrome   chromeInfo   `json:"chrome"`
	Site     siteInfo     `json:"site"`
	Env      envInfo      `json:"environment"`
	Warnings []string     `json:"warnings,omitempty"`
	Errors   []string     `json:"errors,omitempty"`
	Config   configSource `json:"config"`
}

// latexInfo holds LaTeX compiler detection results.
type latexInfo struct {
	Compiler string `json:"compiler"`
	Found    bool   `json:"found"`
	Path     string `json:"path,omitempty"`
	Version  string `json:"version,omitempty"`
}

// chromeInfo holds Chrome/Chromium detection results.
type chromeInfo struct {
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
	Sandbox bool   `json:"sandbox"`
}

// siteInfo holds checks on the configured directories.
type siteInfo struct {
	SourceDir      string `json:"source_dir"`
	Sources        int    `json:"sources"`
	Main           string `json:"main,omitempty"`
	AuxPath        string `json:"aux_path,omitempty"`
	AuxFound       bool   `json:"aux_found"`
	OutputDir      string `json:"output_dir"`
	OutputWritable bool   `json:"output_writable"`
}

// envInfo holds environment detection results.
type envInfo struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	Container     bool   `json:"container"`
	ContainerHint string `json:"container_hint,omitempty"`
	CI            bool   `json:"ci"`
	NoSandbox     string `json:"rod_no_sandbox"`
	BrowserBin    string `json:"rod_browser_bin"`
}

// configSource tells where settings came from.
type configSource struct {
	File  string `json:"file,omitempty"`
	Error string `json:"error,omitempty"`
}

// versionTimeout bounds `<binary> --version` calls.
const versionTimeout = 5 * time.Second

// runDoctorCmd executes the doctor command and returns an exit code.
// Exit codes: 0 = OK (including warnings), 1 = errors found.
func runDoctorCmd(args []string, env *Environment) int {
	jsonOutput := false
	configName := ""
	for i := 0; i < len(args); i++ {
		switch a := args[i]; {
		case a == "--json":
			jsonOutput = true
		case (a == "-c" || a == "--config") && i+1 < len(args):
			configName = args[i+1]
			i++
		case strings.HasPrefix(a, "--config="):
			configName = strings.TrimPrefix(a, "--config=")
		}
	}

	result := runDoctor(doctorConfig(configName, env))

	if jsonOutput {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else {
		printDoctorResult(env.Stdout, result)
	}

	if result.Status == "errors" {
		return ExitGeneral
	}
	return ExitSuccess
}

// doctorConfig loads settings the way commands do, but never fails: a
// broken config is reported as an error in the result.
func doctorConfig(name string, env *Environment) (*config.Config, configSource) {
	src := configSource{File: name}
	envCfg := loadEnvConfig()
	cfg, err := loadConfig(name, envCfg.ConfigPath, env)
	if err != nil {
		src.Error = err.Error()
		cfg = config.DefaultConfig()
	}
	applyEnvConfig(envCfg, cfg)
	cfg.ApplyDefaults()
	return cfg, src
}

// runDoctor performs all diagnostic checks.
func runDoctor(cfg *config.Config, src configSource) *doctorResult {
	result := &doctorResult{
		Status: "ready",
		Config: src,
		Env: envInfo{
			OS:         runtime.GOOS,
			Arch:       runtime.GOARCH,
			NoSandbox:  os.Getenv("ROD_NO_SANDBOX"),
			BrowserBin: os.Getenv("ROD_BROWSER_BIN"),
		},
	}
	if src.Error != "" {
		result.Errors = append(result.Errors, "Config: "+src.Error)
	}

	checkLatex(result, cfg)
	checkChrome(result)
	checkSite(result, cfg)
	checkEnvironment(result)

	if len(result.Errors) > 0 {
		result.Status = "errors"
	} else if len(result.Warnings) > 0 {
		result.Status = "warnings"
	}
	return result
}

// checkLatex locates the compiler. A missing compiler is only a warning
// when an aux file is configured explicitly.
func checkLatex(result *doctorResult, cfg *config.Config) {
	comp := compiler.New(cfg.Latex.Compiler, cfg.Latex.BuildDir, 0, nil)
	result.Latex.Compiler = comp.Binary()

	path, ok := comp.Available()
	if !ok {
		msg := fmt.Sprintf("LaTeX compiler %q not found on PATH", comp.Binary())
		if cfg.Latex.AuxPath != "" {
			result.Warnings = append(result.Warnings, msg)
		} else {
			result.Errors = append(result.Errors, msg)
		}
		return
	}
	result.Latex.Found = true
	result.Latex.Path = path
	result.Latex.Version = firstLine(versionOf(path))
}

// checkChrome detects Chrome/Chromium installation.
func checkChrome(result *doctorResult) {
	chromePath := result.Env.BrowserBin
	if chromePath == "" {
		var found bool
		chromePath, found = launcher.LookPath()
		if !found {
			// Only export needs a browser.
			result.Warnings = append(result.Warnings,
				"Chrome/Chromium not found; export will download one or set ROD_BROWSER_BIN")
			return
		}
	}

	if _, err := os.Stat(chromePath); err != nil {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Chrome not found at %s", chromePath))
		return
	}

	result.Chrome.Found = true
	result.Chrome.Path = chromePath
	result.Chrome.Version = firstLine(versionOf(chromePath))
	result.Chrome.Sandbox = result.Env.NoSandbox != "1"
}

// checkSite checks the sources, the aux file and the output directory.
func checkSite(result *doctorResult, cfg *config.Config) {
	info := &result.Site
	info.SourceDir = cfg.Site.SourceDir
	info.OutputDir = cfg.Site.OutputDir
	info.Main = cfg.Latex.Main
	info.AuxPath = cfg.AuxPath()

	files, err := fileutil.FindTeX(cfg.Site.SourceDir)
	switch {
	case err != nil:
		result.Errors = append(result.Errors, fmt.Sprintf("Source directory: %v", err))
	case len(files) == 0:
		result.Errors = append(result.Errors, "No .tex files in "+cfg.Site.SourceDir)
	default:
		info.Sources = len(files)
	}

	if cfg.Latex.Main != "" && !fileutil.FileExists(cfg.Latex.Main) {
		result.Errors = append(result.Errors, "Main file not found: "+cfg.Latex.Main)
	}
	switch {
	case info.AuxPath == "":
		result.Warnings = append(result.Warnings,
			"No latex.main or aux file configured; references will show as unresolved")
	case fileutil.FileExists(info.AuxPath):
		info.AuxFound = true
	case cfg.Latex.AuxPath != "":
		result.Errors = append(result.Errors, "Aux file not found: "+info.AuxPath)
	default:
		result.Warnings = append(result.Warnings,
			"Aux file not built yet: "+info.AuxPath+" (texnotes build compiles it)")
	}

	if err := probeWritable(cfg.Site.OutputDir); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Output directory not writable: %v", err))
	} else {
		info.OutputWritable = true
	}
}

// probeWritable writes and removes a file in dir, or in its nearest
// existing parent when dir does not exist yet.
func probeWritable(dir string) error {
	for {
		if _, err := os.Stat(dir); err == nil {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	f, err := os.CreateTemp(dir, ".texnotes-doctor-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

// checkEnvironment detects container and CI environments.
func checkEnvironment(result *doctorResult) {
	result.Env.Container, result.Env.ContainerHint = hints.DetectContainer()
	result.Env.CI = hints.InCI()

	if hints.NeedsNoSandbox() {
		result.Warnings = append(result.Warnings,
			"Container/CI detected but ROD_NO_SANDBOX not set. Set ROD_NO_SANDBOX=1 for export")
	}
}

// versionOf runs `bin --version`, returning "" on failure.
func versionOf(bin string) string {
	ctx, cancel := context.WithTimeout(context.Background(), versionTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, bin, "--version").Output() // #nosec G204 -- located binary
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(line)
}

// printDoctorResult outputs human-readable diagnostic results.
func printDoctorResult(w io.Writer, r *doctorResult) {
	fmt.Fprintln(w, "texnotes doctor")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "LaTeX")
	if r.Latex.Found {
		fmt.Fprintf(w, "  [OK] %s at %s\n", r.Latex.Compiler, r.Latex.Path)
		if r.Latex.Version != "" {
			fmt.Fprintf(w, "  [OK] Version: %s\n", r.Latex.Version)
		}
	} else {
		fmt.Fprintf(w, "  [MISSING] %s\n", r.Latex.Compiler)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Chrome/Chromium")
	if r.Chrome.Found {
		fmt.Fprintf(w, "  [OK] Found at %s\n", r.Chrome.Path)
		if r.Chrome.Version != "" {
			fmt.Fprintf(w, "  [OK] Version: %s\n", r.Chrome.Version)
		}
		if r.Chrome.Sandbox {
			fmt.Fprintln(w, "  [OK] Sandbox: enabled")
		} else {
			fmt.Fprintln(w, "  [OK] Sandbox: disabled (ROD_NO_SANDBOX=1)")
		}
	} else {
		fmt.Fprintln(w, "  [MISSING] Not found")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Site")
	fmt.Fprintf(w, "  Sources: %d in %s\n", r.Site.Sources, r.Site.SourceDir)
	if r.Site.AuxPath != "" {
		state := "missing"
		if r.Site.AuxFound {
			state = "present"
		}
		fmt.Fprintf(w, "  Aux: %s (%s)\n", r.Site.AuxPath, state)
	}
	if r.Site.OutputWritable {
		fmt.Fprintf(w, "  [OK] Output: %s writable\n", r.Site.OutputDir)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Environment")
	fmt.Fprintf(w, "  [OK] Platform: %s/%s\n", r.Env.OS, r.Env.Arch)
	if r.Env.Container {
		fmt.Fprintf(w, "  [OK] Container: detected (%s)\n", r.Env.ContainerHint)
	}
	if r.Env.CI {
		fmt.Fprintln(w, "  [OK] CI: detected")
	}
	fmt.Fprintln(w)

	if len(r.Warnings) > 0 {
		fmt.Fprintln(w, "Warnings:")
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "  [WARN] %s\n", warn)
		}
		fmt.Fprintln(w)
	}

	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "Errors:")
		for _, err := range r.Errors {
			fmt.Fprintf(w, "  [ERROR] %s\n", err)
		}
		fmt.Fprintln(w)
	}

	switch r.Status {
	case "ready":
		fmt.Fprintln(w, "Status: Ready to build")
	case "warnings":
		fmt.Fprintln(w, "Status: Ready with warnings")
	case "errors":
		fmt.Fprintln(w, "Status: Not ready (see errors above)")
	}
}
