package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2/styles"
	flag "github.com/spf13/pflag"
)

// Shell is a shell that completion scripts can be generated for.
type Shell string

// Supported shells.
const (
	ShellBash Shell = "bash"
	ShellZsh  Shell = "zsh"
	ShellFish Shell = "fish"
)

// ErrUnsupportedShell is returned when an unknown shell is requested.
var ErrUnsupportedShell = errors.New("unsupported shell")

// flagDef describes a flag for completion purposes.
type flagDef struct {
	Long   string
	Short  string
	Desc   string
	Bool   bool     // takes no value
	Values []string // fixed choices
	Glob   string   // file pattern, e.g. "*.tex"
	Dir    bool
}

// commandDef describes a command for completion.
type commandDef struct {
	Name  string
	Desc  string
	Flags []flagDef
	Glob  string // positional file pattern, empty when the command takes none
}

// completionMeta holds the hints a FlagSet cannot express.
type completionMeta struct {
	Glob string
	Dir  bool
}

var flagCompletionMeta = map[string]completionMeta{
	"config":     {Glob: "*.yaml"},
	"nav":        {Glob: "*.yaml"},
	"main":       {Glob: "*.tex"},
	"aux":        {Glob: "*.aux"},
	"style":      {Glob: "*.css"},
	"source":     {Dir: true},
	"output":     {Dir: true},
	"asset-path": {Dir: true},
	"dir":        {Dir: true},
}

// extractFlags lists the flags registered in fs.
func extractFlags(fs *flag.FlagSet) []flagDef {
	var flags []flagDef
	fs.VisitAll(func(f *flag.Flag) {
		fd := flagDef{
			Long:  f.Name,
			Short: f.Shorthand,
			Desc:  f.Usage,
			Bool:  f.Value.Type() == "bool",
		}
		if meta, ok := flagCompletionMeta[f.Name]; ok {
			fd.Glob = meta.Glob
			fd.Dir = meta.Dir
		}
		if f.Name == "highlight" {
			fd.Values = styles.Names()
		}
		flags = append(flags, fd)
	})
	return flags
}

// getCommands returns the command registry. Flags come from the same
// FlagSets the commands parse with.
func getCommands() []commandDef {
	flagsOf := func(cmd string) []flagDef {
		return extractFlags(newFlagSet(cmd, &cliFlags{}))
	}
	return []commandDef{
		{Name: "build", Desc: "Convert LaTeX notes to an HTML site", Flags: flagsOf("build"), Glob: "*.tex"},
		{Name: "watch", Desc: "Build, then rebuild on every change", Flags: flagsOf("watch")},
		{Name: "serve", Desc: "Watch and serve the site with live reload", Flags: flagsOf("serve")},
		{Name: "export", Desc: "Print built pages to PDF", Flags: flagsOf("export"), Glob: "*.html"},
		{Name: "doctor", Desc: "Check LaTeX, Chrome and the site setup", Flags: []flagDef{
			{Long: "json", Desc: "machine-readable output", Bool: true},
			{Long: "config", Short: "c", Desc: "config file name or path", Glob: "*.yaml"},
		}},
		{Name: "completion", Desc: "Generate a shell completion script"},
		{Name: "version", Desc: "Show version information"},
		{Name: "help", Desc: "Show help for a command"},
	}
}

// GenerateCompletion writes the completion script for shell to w.
func GenerateCompletion(w io.Writer, shell Shell) error {
	var script string
	switch shell {
	case ShellBash:
		script = bashScript(getCommands())
	case ShellZsh:
		script = zshScript(getCommands())
	case ShellFish:
		script = fishScript(getCommands())
	default:
		return fmt.Errorf("%w: %q (supported: bash, zsh, fish)", ErrUnsupportedShell, shell)
	}
	_, err := io.WriteString(w, script)
	return err
}

// runCompletion handles the completion command.
func runCompletion(args []string, env *Environment) error {
	if len(args) == 0 {
		printCompletionUsage(env.Stdout)
		return nil
	}
	return GenerateCompletion(env.Stdout, Shell(args[0]))
}

func printCompletionUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: texnotes completion <bash|zsh|fish>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Installation:")
	fmt.Fprintln(w, "  Bash:  eval \"$(texnotes completion bash)\"  # in ~/.bashrc")
	fmt.Fprintln(w, "  Zsh:   eval \"$(texnotes completion zsh)\"   # in ~/.zshrc, before compinit")
	fmt.Fprintln(w, "  Fish:  texnotes completion fish > ~/.config/fish/completions/texnotes.fish")
}

func commandNames(cmds []commandDef) string {
	names := make([]string, len(cmds))
	for i, c := range cmds {
		names[i] = c.Name
	}
	return strings.Join(names, " ")
}

func bashScript(cmds []commandDef) string {
	var b strings.Builder
	b.WriteString("# bash completion for texnotes\n\n")
	b.WriteString("_texnotes_completions() {\n")
	b.WriteString("    local cur prev\n")
	b.WriteString("    cur=\"${COMP_WORDS[COMP_CWORD]}\"\n")
	b.WriteString("    prev=\"${COMP_WORDS[COMP_CWORD-1]}\"\n\n")
	b.WriteString("    if [[ $COMP_CWORD -eq 1 ]]; then\n")
	fmt.Fprintf(&b, "        COMPREPLY=($(compgen -W %q -- \"$cur\"))\n", commandNames(cmds))
	b.WriteString("        return\n    fi\n\n")
	b.WriteString("    case \"${COMP_WORDS[1]}\" in\n")
	for _, c := range cmds {
		if len(c.Flags) == 0 {
			continue
		}
		fmt.Fprintf(&b, "    %s)\n", c.Name)
		b.WriteString("        case \"$prev\" in\n")
		var names []string
		for _, f := range c.Flags {
			opts := "--" + f.Long
			if f.Short != "" {
				opts += "|-" + f.Short
			}
			names = append(names, "--"+f.Long)
			if f.Bool {
				continue
			}
			fmt.Fprintf(&b, "        %s) %s; return ;;\n", opts, bashValues(f))
		}
		b.WriteString("        esac\n")
		b.WriteString("        if [[ \"$cur\" == -* ]]; then\n")
		fmt.Fprintf(&b, "            COMPREPLY=($(compgen -W %q -- \"$cur\"))\n", strings.Join(names, " "))
		if c.Glob != "" {
			b.WriteString("        else\n")
			fmt.Fprintf(&b, "            COMPREPLY=($(compgen -f -X '!%s' -- \"$cur\"))\n", c.Glob)
		}
		b.WriteString("        fi\n        ;;\n")
	}
	b.WriteString("    completion)\n")
	b.WriteString("        COMPREPLY=($(compgen -W \"bash zsh fish\" -- \"$cur\"))\n        ;;\n")
	b.WriteString("    esac\n}\n\n")
	b.WriteString("complete -o filenames -F _texnotes_completions texnotes\n")
	return b.String()
}

func bashValues(f flagDef) string {
	switch {
	case len(f.Values) > 0:
		return fmt.Sprintf("COMPREPLY=($(compgen -W %q -- \"$cur\"))", strings.Join(f.Values, " "))
	case f.Dir:
		return "COMPREPLY=($(compgen -d -- \"$cur\"))"
	case f.Glob != "":
		return fmt.Sprintf("COMPREPLY=($(compgen -f -X '!%s' -- \"$cur\"))", f.Glob)
	default:
		return "COMPREPLY=()"
	}
}

var zshEscaper = strings.NewReplacer("[", `\[`, "]", `\]`, ":", `\:`, "'", `'\''`)

func zshScript(cmds []commandDef) string {
	var b strings.Builder
	b.WriteString("#compdef texnotes\n\n")
	b.WriteString("_texnotes() {\n")
	b.WriteString("    local -a commands\n    commands=(\n")
	for _, c := range cmds {
		fmt.Fprintf(&b, "        '%s:%s'\n", c.Name, zshEscaper.Replace(c.Desc))
	}
	b.WriteString("    )\n\n")
	b.WriteString("    if (( CURRENT == 2 )); then\n")
	b.WriteString("        _describe 'command' commands\n        return\n    fi\n\n")
	b.WriteString("    local cmd=\"${words[2]}\"\n")
	b.WriteString("    shift words\n    (( CURRENT-- ))\n\n")
	b.WriteString("    case \"$cmd\" in\n")
	for _, c := range cmds {
		if len(c.Flags) == 0 {
			continue
		}
		fmt.Fprintf(&b, "    %s)\n        _arguments \\\n", c.Name)
		for _, f := range c.Flags {
			fmt.Fprintf(&b, "            %s \\\n", zshFlag(f))
		}
		if c.Glob != "" {
			fmt.Fprintf(&b, "            '*:file:_files -g \"%s\"'\n", c.Glob)
		} else {
			b.WriteString("            && return\n")
		}
		b.WriteString("        ;;\n")
	}
	b.WriteString("    completion)\n        _values 'shell' bash zsh fish\n        ;;\n")
	b.WriteString("    esac\n}\n\n")
	b.WriteString("_texnotes \"$@\"\n")
	return b.String()
}

func zshFlag(f flagDef) string {
	desc := "[" + zshEscaper.Replace(f.Desc) + "]"
	arg := ""
	if !f.Bool {
		switch {
		case len(f.Values) > 0:
			arg = ":value:(" + strings.Join(f.Values, " ") + ")"
		case f.Dir:
			arg = ":directory:_files -/"
		case f.Glob != "":
			arg = `:file:_files -g "` + f.Glob + `"`
		default:
			arg = ":value: "
		}
	}
	if f.Short == "" {
		return "'--" + f.Long + desc + arg + "'"
	}
	return fmt.Sprintf("'(-%s --%s)'{-%s,--%s}'%s%s'", f.Short, f.Long, f.Short, f.Long, desc, arg)
}

func fishScript(cmds []commandDef) string {
	var b strings.Builder
	b.WriteString("# fish completion for texnotes\n\n")
	b.WriteString("function __fish_texnotes_needs_command\n")
	b.WriteString("    set -l cmd (commandline -opc)\n")
	b.WriteString("    test (count $cmd) -eq 1\nend\n\n")
	b.WriteString("function __fish_texnotes_using_command\n")
	b.WriteString("    set -l cmd (commandline -opc)\n")
	b.WriteString("    test (count $cmd) -gt 1; and test $cmd[2] = $argv[1]\nend\n\n")
	b.WriteString("complete -c texnotes -f\n")
	for _, c := range cmds {
		fmt.Fprintf(&b, "complete -c texnotes -n __fish_texnotes_needs_command -a %s -d %s\n", c.Name, fishQuote(c.Desc))
	}
	for _, c := range cmds {
		cond := fishQuote("__fish_texnotes_using_command " + c.Name)
		b.WriteString("\n")
		for _, f := range c.Flags {
			fmt.Fprintf(&b, "complete -c texnotes -n %s", cond)
			if f.Short != "" {
				fmt.Fprintf(&b, " -s %s", f.Short)
			}
			fmt.Fprintf(&b, " -l %s", f.Long)
			switch {
			case f.Bool:
			case len(f.Values) > 0:
				fmt.Fprintf(&b, " -x -a %s", fishQuote(strings.Join(f.Values, " ")))
			case f.Dir:
				b.WriteString(" -x -a '(__fish_complete_directories)'")
			case f.Glob != "":
				b.WriteString(" -r -F")
			default:
				b.WriteString(" -x")
			}
			fmt.Fprintf(&b, " -d %s\n", fishQuote(f.Desc))
		}
		if c.Glob != "" {
			fmt.Fprintf(&b, "complete -c texnotes -n %s -F\n", cond)
		}
	}
	b.WriteString("complete -c texnotes -n '__fish_texnotes_using_command completion' -x -a 'bash zsh fish'\n")
	return b.String()
}

func fishQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}
