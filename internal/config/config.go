package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alnah/go-texnotes/internal/fileutil"
	"github.com/alnah/go-texnotes/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidValue    = errors.New("invalid config value")
)

// DefaultName is the config name searched for when none is given.
const DefaultName = "texnotes"

// Field length limits.
const (
	MaxTitleLength   = 200
	MaxPathLength    = 4096
	MaxCommandLength = 256
	MaxStyleLength   = 64 * 1024 // inline CSS is allowed
	MaxMacroLength   = 512
	MaxMacros        = 500
	MaxAddrLength    = 256
)

// Range limits.
const (
	MaxTimeoutSeconds  = 3600
	MaxDebounceMillis  = 10000
	DefaultDebounce    = 200
	DefaultTimeout     = 120
	DefaultExportWait  = 60
	DefaultAddr        = "127.0.0.1:8000"
	DefaultCompiler    = "pdflatex"
	DefaultSourceDir   = "tex"
	DefaultOutputDir   = "site"
	DefaultBuildDir    = "build"
	DefaultExportDir   = "pdf"
	DefaultHighlight   = "github"
	DefaultStyleName   = "default"
	DefaultNavFileName = "nav.yaml"
)

// Config holds the site build configuration.
type Config struct {
	Site   SiteConfig   `yaml:"site"`
	Latex  LatexConfig  `yaml:"latex"`
	Math   MathConfig   `yaml:"math"`
	Style  StyleConfig  `yaml:"style"`
	Assets AssetsConfig `yaml:"assets"`
	Serve  ServeConfig  `yaml:"serve"`
	Export ExportConfig `yaml:"export"`
}

// SiteConfig defines where content comes from and where pages go.
type SiteConfig struct {
	Title     string `yaml:"title"`
	SourceDir string `yaml:"sourceDir"` // content .tex files
	OutputDir string `yaml:"outputDir"` // site root
	ImageDir  string `yaml:"imageDir"`  // relative to the site root, empty = next to pages
	NavFile   string `yaml:"navFile"`   // chapter metadata, empty = no navigation
}

// LatexConfig defines how the aux file is produced.
type LatexConfig struct {
	Main           string `yaml:"main"`     // main .tex file compiled for labels
	Compiler       string `yaml:"compiler"` // default pdflatex
	BuildDir       string `yaml:"buildDir"`
	AuxPath        string `yaml:"auxPath"` // empty = {buildDir}/{main}.aux
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
}

// MathConfig defines KaTeX options.
type MathConfig struct {
	Macros map[string]string `yaml:"macros"`
}

// StyleConfig defines the page stylesheet and code highlighting.
type StyleConfig struct {
	Name      string `yaml:"name"`      // asset name, file path or CSS
	Highlight string `yaml:"highlight"` // chroma style
}

// AssetsConfig defines asset loading options.
type AssetsConfig struct {
	BasePath string `yaml:"basePath"` // empty = embedded assets
}

// ServeConfig defines the development server.
type ServeConfig struct {
	Addr       string `yaml:"addr"`
	DebounceMs int    `yaml:"debounceMs"`
}

// ExportConfig defines PDF export.
type ExportConfig struct {
	OutputDir      string `yaml:"outputDir"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
}

// Validate checks field lengths and ranges. Called by LoadConfig, and
// available for configs built in code.
func (c *Config) Validate() error {
	fields := []struct {
		name  string
		value string
		max   int
	}{
		{"site.title", c.Site.Title, MaxTitleLength},
		{"site.sourceDir", c.Site.SourceDir, MaxPathLength},
		{"site.outputDir", c.Site.OutputDir, MaxPathLength},
		{"site.imageDir", c.Site.ImageDir, MaxPathLength},
		{"site.navFile", c.Site.NavFile, MaxPathLength},
		{"latex.main", c.Latex.Main, MaxPathLength},
		{"latex.compiler", c.Latex.Compiler, MaxCommandLength},
		{"latex.buildDir", c.Latex.BuildDir, MaxPathLength},
		{"latex.auxPath", c.Latex.AuxPath, MaxPathLength},
		{"style.name", c.Style.Name, MaxStyleLength},
		{"style.highlight", c.Style.Highlight, MaxTitleLength},
		{"assets.basePath", c.Assets.BasePath, MaxPathLength},
		{"serve.addr", c.Serve.Addr, MaxAddrLength},
		{"export.outputDir", c.Export.OutputDir, MaxPathLength},
	}
	for _, f := range fields {
		if err := validateFieldLength(f.name, f.value, f.max); err != nil {
			return err
		}
	}

	if len(c.Math.Macros) > MaxMacros {
		return fmt.Errorf("%w: math.macros has %d entries (max %d)", ErrInvalidValue, len(c.Math.Macros), MaxMacros)
	}
	for name, body := range c.Math.Macros {
		if !isMacroName(name) {
			return fmt.Errorf(`%w: math.macros key %q must be a control word such as \R`, ErrInvalidValue, name)
		}
		if err := validateFieldLength("math.macros."+name, body, MaxMacroLength); err != nil {
			return err
		}
	}

	if err := validateRange("latex.timeoutSeconds", c.Latex.TimeoutSeconds, MaxTimeoutSeconds); err != nil {
		return err
	}
	if err := validateRange("export.timeoutSeconds", c.Export.TimeoutSeconds, MaxTimeoutSeconds); err != nil {
		return err
	}
	if err := validateRange("serve.debounceMs", c.Serve.DebounceMs, MaxDebounceMillis); err != nil {
		return err
	}

	if err := validateBasePath(c.Assets.BasePath); err != nil {
		return err
	}

	if c.Latex.Main != "" && !strings.EqualFold(filepath.Ext(c.Latex.Main), ".tex") {
		return fmt.Errorf("%w: latex.main must be a .tex file, got %q", ErrInvalidValue, c.Latex.Main)
	}
	return nil
}

// validateBasePath checks that a custom asset directory exists.
func validateBasePath(path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: assets.basePath %q does not exist", ErrInvalidValue, path)
		}
		return fmt.Errorf("%w: assets.basePath: %v", ErrInvalidValue, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: assets.basePath %q is not a directory", ErrInvalidValue, path)
	}
	return nil
}

// isMacroName reports whether s is a backslash followed by ASCII letters.
func isMacroName(s string) bool {
	if len(s) < 2 || s[0] != '\\' {
		return false
	}
	for i := 1; i < len(s); i++ {
		c := s[i]
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			return false
		}
	}
	return true
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// validateRange checks 0 <= value <= maxValue; zero means "use the default".
func validateRange(fieldName string, value, maxValue int) error {
	if value < 0 || value > maxValue {
		return fmt.Errorf("%w: %s must be between 0 and %d, got %d", ErrInvalidValue, fieldName, maxValue, value)
	}
	return nil
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			SourceDir: DefaultSourceDir,
			OutputDir: DefaultOutputDir,
		},
		Latex: LatexConfig{
			Compiler:       DefaultCompiler,
			BuildDir:       DefaultBuildDir,
			TimeoutSeconds: DefaultTimeout,
		},
		Style: StyleConfig{
			Name:      DefaultStyleName,
			Highlight: DefaultHighlight,
		},
		Serve: ServeConfig{
			Addr:       DefaultAddr,
			DebounceMs: DefaultDebounce,
		},
		Export: ExportConfig{
			OutputDir:      DefaultExportDir,
			TimeoutSeconds: DefaultExportWait,
		},
	}
}

// ApplyDefaults fills zero fields with DefaultConfig values.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	setDefault(&c.Site.SourceDir, d.Site.SourceDir)
	setDefault(&c.Site.OutputDir, d.Site.OutputDir)
	setDefault(&c.Latex.Compiler, d.Latex.Compiler)
	setDefault(&c.Latex.BuildDir, d.Latex.BuildDir)
	setDefault(&c.Style.Name, d.Style.Name)
	setDefault(&c.Style.Highlight, d.Style.Highlight)
	setDefault(&c.Serve.Addr, d.Serve.Addr)
	setDefault(&c.Export.OutputDir, d.Export.OutputDir)
	if c.Latex.TimeoutSeconds == 0 {
		c.Latex.TimeoutSeconds = d.Latex.TimeoutSeconds
	}
	if c.Serve.DebounceMs == 0 {
		c.Serve.DebounceMs = d.Serve.DebounceMs
	}
	if c.Export.TimeoutSeconds == 0 {
		c.Export.TimeoutSeconds = d.Export.TimeoutSeconds
	}
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

// AuxPath returns the aux file labels are read from: the explicit
// latex.auxPath, else {buildDir}/{main without .tex}.aux, else "".
func (c *Config) AuxPath() string {
	if c.Latex.AuxPath != "" {
		return c.Latex.AuxPath
	}
	if c.Latex.Main == "" {
		return ""
	}
	base := strings.TrimSuffix(filepath.Base(c.Latex.Main), filepath.Ext(c.Latex.Main))
	return filepath.Join(c.Latex.BuildDir, base+".aux")
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Returns error if the file is not found (no silent fallback).
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	var configPath string
	var err error

	if fileutil.IsFilePath(nameOrPath) {
		configPath = nameOrPath
	} else {
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yamlutil.UnmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()

	return &cfg, nil
}

// resolveConfigPath searches for a config file by name.
// Tries extensions in order: .yaml, .yml
// Tries locations in order: current directory, {user config dir}/texnotes/
func resolveConfigPath(name string) (string, error) {
	extensions := []string{".yaml", ".yml"}
	triedPaths := make([]string, 0, len(extensions)*2)

	for _, ext := range extensions {
		localPath := name + ext
		if fileutil.FileExists(localPath) {
			return localPath, nil
		}
		triedPaths = append(triedPaths, localPath)
	}

	userConfigDir, err := os.UserConfigDir()
	if err == nil {
		for _, ext := range extensions {
			userPath := filepath.Join(userConfigDir, "texnotes", name+ext)
			if fileutil.FileExists(userPath) {
				return userPath, nil
			}
			triedPaths = append(triedPaths, userPath)
		}
	}

	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(triedPaths, ", "))
}
