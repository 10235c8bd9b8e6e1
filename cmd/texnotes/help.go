package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: texnotes <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  build      Convert LaTeX notes to an HTML site")
	fmt.Fprintln(w, "  watch      Build, then rebuild on every change")
	fmt.Fprintln(w, "  serve      Watch and serve the site with live reload")
	fmt.Fprintln(w, "  export     Print built pages to PDF")
	fmt.Fprintln(w, "  doctor     Check LaTeX, Chrome and the site setup")
	fmt.Fprintln(w, "  completion Generate a shell completion script")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  help       Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'texnotes help <command>' for details on a specific command.")
}

// printCommandUsage prints usage for one command.
func printCommandUsage(w io.Writer, cmd string) {
	switch cmd {
	case "build":
		fmt.Fprintln(w, "Usage: texnotes build [files...] [flags]")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Compile the main file when its aux is missing or stale, convert every")
		fmt.Fprintln(w, "content file (or only the given ones) and write the index page.")
	case "watch":
		fmt.Fprintln(w, "Usage: texnotes watch [flags]")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Build once, then rebuild changed pages. LaTeX reruns in the background")
		fmt.Fprintln(w, "and every page is rebuilt when label numbers change.")
	case "serve":
		fmt.Fprintln(w, "Usage: texnotes serve [flags]")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Watch and serve the site; open pages reload after each rebuild.")
	case "export":
		fmt.Fprintln(w, "Usage: texnotes export [pages...] [flags]")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Print built pages to PDF with headless Chrome. Pages are paths relative")
		fmt.Fprintln(w, "to the site root; all pages are exported when none are given.")
	default:
		printUsage(w)
		return
	}
	fmt.Fprintln(w)
	printSiteFlags(w)
	switch cmd {
	case "watch":
		fmt.Fprintln(w, "Watch:")
		fmt.Fprintln(w, "      --debounce <ms>       Wait for more changes before rebuilding")
		fmt.Fprintln(w)
	case "serve":
		fmt.Fprintln(w, "Server:")
		fmt.Fprintln(w, "  -a, --addr <host:port>    Listen address (default 127.0.0.1:8000)")
		fmt.Fprintln(w, "      --debounce <ms>       Wait for more changes before rebuilding")
		fmt.Fprintln(w)
	case "export":
		fmt.Fprintln(w, "Export:")
		fmt.Fprintln(w, "  -d, --dir <path>          PDF output directory (default pdf)")
		fmt.Fprintln(w, "      --page-timeout <dur>  Per-page timeout (e.g. 60s)")
		fmt.Fprintln(w)
	}
	printCommonFlags(w)
}

func printSiteFlags(w io.Writer) {
	fmt.Fprintln(w, "Sources:")
	fmt.Fprintln(w, "  -s, --source <dir>        Content .tex directory (default tex)")
	fmt.Fprintln(w, "  -o, --output <dir>        Site output directory (default site)")
	fmt.Fprintln(w, "  -m, --main <file>         Main .tex file compiled for labels")
	fmt.Fprintln(w, "      --aux <file>          Use this .aux file instead of compiling")
	fmt.Fprintln(w, "      --nav <file>          Chapter metadata YAML")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "LaTeX:")
	fmt.Fprintln(w, "      --compiler <bin>      LaTeX binary (default pdflatex)")
	fmt.Fprintln(w, "  -t, --timeout <dur>       Compiler timeout (e.g. 90s, 2m)")
	fmt.Fprintln(w, "      --no-compile          Never run LaTeX")
	fmt.Fprintln(w, "  -f, --force               Run LaTeX even if the aux file is current")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Pages:")
	fmt.Fprintln(w, "      --title <s>           Site title")
	fmt.Fprintln(w, "      --image-dir <dir>     Image directory relative to the site root")
	fmt.Fprintln(w, "      --style <s>           Style name, CSS file or CSS content")
	fmt.Fprintln(w, "      --highlight <s>       Chroma style for code listings")
	fmt.Fprintln(w, "      --asset-path <dir>    Directory overriding embedded assets")
	fmt.Fprintln(w, "  -w, --workers <n>         Parallel workers (0 = auto)")
	fmt.Fprintln(w)
}

func printCommonFlags(w io.Writer) {
	fmt.Fprintln(w, "General:")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w, "  -q, --quiet               Only show errors")
	fmt.Fprintln(w, "  -v, --verbose             Show debug output")
	fmt.Fprintln(w, "  -h, --help                Show this help")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  TEXNOTES_CONFIG, TEXNOTES_SOURCE_DIR, TEXNOTES_OUTPUT_DIR, TEXNOTES_MAIN,")
	fmt.Fprintln(w, "  TEXNOTES_AUX, TEXNOTES_COMPILER, TEXNOTES_STYLE, TEXNOTES_ADDR,")
	fmt.Fprintln(w, "  TEXNOTES_TIMEOUT, TEXNOTES_WORKERS")
}

// runHelp prints help for the command named in args.
func runHelp(args []string, env *Environment) {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return
	}
	switch args[0] {
	case "doctor":
		fmt.Fprintln(env.Stdout, "Usage: texnotes doctor [--json] [-c config]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Check the LaTeX compiler, Chrome, the aux file and the output directory.")
	case "version":
		fmt.Fprintln(env.Stdout, "Usage: texnotes version")
	case "completion":
		printCompletionUsage(env.Stdout)
	case "build", "watch", "serve", "export":
		printCommandUsage(env.Stdout, args[0])
	default:
		fmt.Fprintf(env.Stderr, "unknown command: %s\n", args[0])
		printUsage(env.Stderr)
	}
}
