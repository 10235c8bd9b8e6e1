package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/alnah/go-texnotes/internal/config"
)

// ErrInvalidFlag indicates a flag value that cannot be parsed.
var ErrInvalidFlag = errors.New("invalid flag value")

// settings is the merged configuration a command runs with.
type settings struct {
	cfg           *config.Config
	workers       int
	latexTimeout  time.Duration
	exportTimeout time.Duration
	debounce      time.Duration
	noCompile     bool
	force         bool
}

// loadSettings merges defaults, the config file, TEXNOTES_* variables and
// flags, in increasing priority.
func loadSettings(flags *cliFlags, env *Environment) (*settings, error) {
	envCfg := loadEnvConfig()
	warnUnknownEnvVars(env.log())

	cfg, err := loadConfig(flags.common.config, envCfg.ConfigPath, env)
	if err != nil {
		return nil, err
	}
	applyEnvConfig(envCfg, cfg)
	if err := mergeFlags(flags, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()

	s := &settings{
		cfg:           cfg,
		workers:       envCfg.Workers,
		latexTimeout:  time.Duration(cfg.Latex.TimeoutSeconds) * time.Second,
		exportTimeout: time.Duration(cfg.Export.TimeoutSeconds) * time.Second,
		debounce:      time.Duration(cfg.Serve.DebounceMs) * time.Millisecond,
		noCompile:     flags.site.noCompile,
		force:         flags.site.force,
	}
	if flags.site.workers > 0 {
		s.workers = flags.site.workers
	}
	if flags.site.workers < 0 {
		return nil, fmt.Errorf("%w: --workers must not be negative", ErrInvalidFlag)
	}
	if flags.export.timeout != "" {
		d, err := parseTimeout("--page-timeout", flags.export.timeout)
		if err != nil {
			return nil, err
		}
		s.exportTimeout = d
	}
	return s, nil
}

// loadConfig picks the config by flag, then TEXNOTES_CONFIG, then the
// default name if such a file exists. An explicitly named config must exist.
func loadConfig(flagName, envName string, env *Environment) (*config.Config, error) {
	if env.Config != nil {
		cp := *env.Config
		return &cp, nil
	}
	name := flagName
	if name == "" {
		name = envName
	}
	if name != "" {
		return config.LoadConfig(name)
	}
	cfg, err := config.LoadConfig(config.DefaultName)
	if errors.Is(err, config.ErrConfigNotFound) {
		return config.DefaultConfig(), nil
	}
	return cfg, err
}

// mergeFlags applies set flags over cfg.
func mergeFlags(flags *cliFlags, cfg *config.Config) error {
	f := flags.site
	setIf(&cfg.Site.SourceDir, f.source)
	setIf(&cfg.Site.OutputDir, f.output)
	setIf(&cfg.Site.Title, f.title)
	setIf(&cfg.Site.ImageDir, f.imageDir)
	setIf(&cfg.Site.NavFile, f.nav)
	setIf(&cfg.Latex.Main, f.main)
	setIf(&cfg.Latex.AuxPath, f.aux)
	setIf(&cfg.Latex.Compiler, f.compiler)
	setIf(&cfg.Style.Name, f.style)
	setIf(&cfg.Style.Highlight, f.highlight)
	setIf(&cfg.Assets.BasePath, f.assetPath)
	setIf(&cfg.Serve.Addr, flags.serve.addr)
	setIf(&cfg.Export.OutputDir, flags.export.dir)

	if f.timeout != "" {
		d, err := parseTimeout("--timeout", f.timeout)
		if err != nil {
			return err
		}
		cfg.Latex.TimeoutSeconds = durationSeconds(d)
	}
	if flags.serve.debounce < 0 {
		return fmt.Errorf("%w: --debounce must not be negative", ErrInvalidFlag)
	}
	if flags.serve.debounce > 0 {
		cfg.Serve.DebounceMs = flags.serve.debounce
	}
	return nil
}

// parseTimeout parses a positive duration flag.
func parseTimeout(name, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q: %v", ErrInvalidFlag, name, value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: %s must be positive, got %s", ErrInvalidFlag, name, value)
	}
	return d, nil
}
