package main

import (
	"io"

	flag "github.com/spf13/pflag"
)

// errHelp is returned by parseFlags for -h/--help.
var errHelp = flag.ErrHelp

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
}

// siteFlags describe where sources and pages live and how to convert.
type siteFlags struct {
	source    string
	output    string
	main      string
	aux       string
	nav       string
	title     string
	imageDir  string
	style     string
	highlight string
	assetPath string
	compiler  string
	workers   int
	timeout   string
	noCompile bool
	force     bool
}

// serveFlags holds dev server flags.
type serveFlags struct {
	addr     string
	debounce int
}

// exportFlags holds PDF export flags.
type exportFlags struct {
	dir     string
	timeout string
}

// cliFlags holds every flag; each command registers the groups it uses.
type cliFlags struct {
	common commonFlags
	site   siteFlags
	serve  serveFlags
	export exportFlags
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show debug output")
}

// addSiteFlags adds source, output and conversion flags to a FlagSet.
func addSiteFlags(fs *flag.FlagSet, f *siteFlags) {
	fs.StringVarP(&f.source, "source", "s", "", "directory of content .tex files")
	fs.StringVarP(&f.output, "output", "o", "", "site output directory")
	fs.StringVarP(&f.main, "main", "m", "", "main .tex file compiled for labels")
	fs.StringVar(&f.aux, "aux", "", "use this .aux file instead of compiling")
	fs.StringVar(&f.nav, "nav", "", "chapter metadata YAML file")
	fs.StringVar(&f.title, "title", "", "site title")
	fs.StringVar(&f.imageDir, "image-dir", "", "image directory relative to the site root")
	fs.StringVar(&f.style, "style", "", "CSS style name, file path or CSS content")
	fs.StringVar(&f.highlight, "highlight", "", "chroma style for code listings")
	fs.StringVar(&f.assetPath, "asset-path", "", "directory overriding embedded assets")
	fs.StringVar(&f.compiler, "compiler", "", "LaTeX binary (default pdflatex)")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel workers (0 = auto)")
	fs.StringVarP(&f.timeout, "timeout", "t", "", "LaTeX timeout (e.g. 90s, 2m)")
	fs.BoolVar(&f.noCompile, "no-compile", false, "never run LaTeX, use the existing aux file")
	fs.BoolVarP(&f.force, "force", "f", false, "run LaTeX even if the aux file is up to date")
}

// addServeFlags adds dev server flags to a FlagSet.
func addServeFlags(fs *flag.FlagSet, f *serveFlags) {
	fs.StringVarP(&f.addr, "addr", "a", "", "listen address (default 127.0.0.1:8000)")
	fs.IntVar(&f.debounce, "debounce", 0, "milliseconds to wait for more changes")
}

// addExportFlags adds PDF export flags to a FlagSet.
func addExportFlags(fs *flag.FlagSet, f *exportFlags) {
	fs.StringVarP(&f.dir, "dir", "d", "", "PDF output directory")
	fs.StringVar(&f.timeout, "page-timeout", "", "per-page export timeout (e.g. 60s)")
}

// newFlagSet registers the flag groups cmd accepts into f.
func newFlagSet(cmd string, f *cliFlags) *flag.FlagSet {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	addCommonFlags(fs, &f.common)
	addSiteFlags(fs, &f.site)
	switch cmd {
	case "watch":
		fs.IntVar(&f.serve.debounce, "debounce", 0, "milliseconds to wait for more changes")
	case "serve":
		addServeFlags(fs, &f.serve)
	case "export":
		addExportFlags(fs, &f.export)
	}
	return fs
}

// parseFlags parses the flags of cmd and returns positional args. Usage
// goes to w on -h.
func parseFlags(cmd string, args []string, w io.Writer) (*cliFlags, []string, error) {
	f := &cliFlags{}
	fs := newFlagSet(cmd, f)
	fs.SetOutput(w)
	fs.Usage = func() { printCommandUsage(w, cmd) }

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}
