package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	ctx, stop := notifyContext(context.Background())
	code := runMain(ctx, os.Args, DefaultEnv())
	stop()
	os.Exit(code)
}

// runMain dispatches to a command and returns the process exit code.
func runMain(ctx context.Context, args []string, env *Environment) int {
	if len(args) < 2 {
		printUsage(env.Stderr)
		return ExitUsage
	}
	cmd, rest := args[1], args[2:]

	switch cmd {
	case "help", "-h", "--help":
		runHelp(rest, env)
		return ExitSuccess
	case "version", "--version":
		fmt.Fprintf(env.Stdout, "texnotes %s\n", Version)
		return ExitSuccess
	case "doctor":
		return runDoctorCmd(rest, env)
	case "completion":
		if err := runCompletion(rest, env); err != nil {
			fmt.Fprintln(env.Stderr, "error:", err)
			return ExitUsage
		}
		return ExitSuccess
	}

	command, ok := commands[cmd]
	if !ok {
		fmt.Fprintf(env.Stderr, "unknown command: %s\n", cmd)
		printUsage(env.Stderr)
		return ExitUsage
	}

	flags, positional, err := parseFlags(cmd, rest, env.Stderr)
	if err != nil {
		if errors.Is(err, errHelp) {
			return ExitSuccess
		}
		fmt.Fprintln(env.Stderr, err)
		return ExitUsage
	}

	log := env.Logger
	if log == nil {
		log = newLogger(env.Stderr, flags.common.verbose, flags.common.quiet)
		defer func() { _ = log.Sync() }()
	}
	setMaxProcs(log)

	if err := command(ctx, positional, flags, env.withLogger(log)); err != nil {
		code := exitCodeFor(err)
		if errors.Is(err, context.Canceled) {
			log.Info("interrupted")
			return code
		}
		fmt.Fprintln(env.Stderr, "error:", err.Error()+hintFor(err))
		return code
	}
	return ExitSuccess
}

// commandFunc runs one subcommand.
type commandFunc func(ctx context.Context, args []string, flags *cliFlags, env *Environment) error

var commands = map[string]commandFunc{
	"build":  runBuild,
	"watch":  runWatch,
	"serve":  runServe,
	"export": runExport,
}

// setMaxProcs configures GOMAXPROCS from the container CPU quota.
// Error ignored: maxprocs.Set only fails if GOMAXPROCS env is invalid,
// in which case Go runtime defaults apply and the program continues safely.
func setMaxProcs(log *zap.Logger) {
	sugar := log.Sugar()
	_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
		sugar.Debugf(format, args...)
	}))
}
