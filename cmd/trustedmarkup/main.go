package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/automaxprocs/maxprocs"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], DefaultEnv())
	stop()
	os.Exit(code)
}

// run dispatches the command line and returns the process exit code.
func run(ctx context.Context, args []string, env *Environment) int {
	if len(args) > 0 {
		switch args[0] {
		case "render":
			args = args[1:]
		case "version":
			printVersion(env.Stdout)
			return ExitSuccess
		case "help":
			printUsage(env.Stdout)
			return ExitSuccess
		}
	}

	flags, files, err := parseFlags(args)
	if err != nil {
		fmt.Fprintln(env.Stderr, err)
		printUsage(env.Stderr)
		return exitCodeFor(err)
	}
	if flags.help {
		printUsage(env.Stdout)
		return ExitSuccess
	}
	if flags.version {
		printVersion(env.Stdout)
		return ExitSuccess
	}

	logger := newLogger(env.Stderr, flags)

	// Error ignored: maxprocs.Set only fails if GOMAXPROCS env is invalid,
	// in which case Go runtime defaults apply and the program continues safely.
	_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
		logger.Debug(fmt.Sprintf(format, args...))
	}))

	if err := runRender(ctx, flags, files, env, logger); err != nil {
		fmt.Fprintln(env.Stderr, err)
		return exitCodeFor(err)
	}
	return ExitSuccess
}

// newLogger builds the stderr logger: warnings by default, debug with
// --verbose, errors only with --quiet.
func newLogger(w io.Writer, flags *renderFlags) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case flags.verbose:
		level = slog.LevelDebug
	case flags.quiet:
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
