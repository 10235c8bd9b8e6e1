package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestGenerateCompletion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		shell Shell
		want  []string
	}{
		{
			name:  "bash",
			shell: ShellBash,
			want: []string{
				"_texnotes_completions",
				"complete -o filenames -F _texnotes_completions texnotes",
				"build watch serve export doctor completion version help",
				"--main|-m) COMPREPLY=($(compgen -f -X '!*.tex'",
				"--output|-o) COMPREPLY=($(compgen -d",
				"--addr",
				"--page-timeout",
			},
		},
		{
			name:  "zsh",
			shell: ShellZsh,
			want: []string{
				"#compdef texnotes",
				"_describe 'command' commands",
				"'build:Convert LaTeX notes to an HTML site'",
				`'(-s --source)'{-s,--source}'[directory of content .tex files]:directory:_files -/'`,
				`'--aux[use this .aux file instead of compiling]:file:_files -g "*.aux"'`,
				`'--no-compile[never run LaTeX, use the existing aux file]'`,
				`'*:file:_files -g "*.html"'`,
			},
		},
		{
			name:  "fish",
			shell: ShellFish,
			want: []string{
				"complete -c texnotes -n __fish_texnotes_needs_command -a serve",
				"__fish_texnotes_using_command",
				"complete -c texnotes -n '__fish_texnotes_using_command serve' -s a -l addr -x",
				"-l json -d 'machine-readable output'",
				"-l style -r -F",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			if err := GenerateCompletion(&buf, tt.shell); err != nil {
				t.Fatalf("GenerateCompletion() error = %v", err)
			}
			out := buf.String()
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("script missing %q", w)
				}
			}
		})
	}
}

func TestGenerateCompletion_Unsupported(t *testing.T) {
	t.Parallel()

	err := GenerateCompletion(&bytes.Buffer{}, "tcsh")
	if !errors.Is(err, ErrUnsupportedShell) {
		t.Fatalf("error = %v, want ErrUnsupportedShell", err)
	}
}

func TestGetCommands_FlagsMatchParser(t *testing.T) {
	t.Parallel()

	for _, c := range getCommands() {
		switch c.Name {
		case "build", "watch", "serve", "export":
		default:
			continue
		}
		for _, f := range c.Flags {
			arg := "--" + f.Long
			args := []string{arg}
			if !f.Bool {
				args = append(args, "1")
			}
			if _, _, err := parseFlags(c.Name, args, &bytes.Buffer{}); err != nil {
				t.Errorf("%s %s: %v", c.Name, arg, err)
			}
		}
	}
}

func TestGetCommands_HighlightStyles(t *testing.T) {
	t.Parallel()

	for _, f := range getCommands()[0].Flags {
		if f.Long != "highlight" {
			continue
		}
		for _, v := range f.Values {
			if v == "monokai" {
				return
			}
		}
		t.Fatalf("highlight values %v lack monokai", f.Values)
	}
	t.Fatal("build has no --highlight flag")
}

func TestRunMain_Completion(t *testing.T) {
	t.Parallel()

	env := DefaultEnv()
	var stdout, stderr bytes.Buffer
	env.Stdout, env.Stderr = &stdout, &stderr

	if code := runMain(context.Background(), []string{"texnotes", "completion", "bash"}, env); code != ExitSuccess {
		t.Fatalf("exit code = %d, stderr = %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "_texnotes_completions") {
		t.Error("bash script not written to stdout")
	}

	stdout.Reset()
	if code := runMain(context.Background(), []string{"texnotes", "completion", "csh"}, env); code != ExitUsage {
		t.Errorf("exit code = %d, want %d", code, ExitUsage)
	}
}
