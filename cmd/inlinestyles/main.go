package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"syscall"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

const appName = "inlinestyles"

func version() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version + " (" + runtime.Version() + ")"
	}
	return "(devel) (" + runtime.Version() + ")"
}

type env struct {
	Cfg *Config
	Log *zap.Logger
}

type envKey struct{}

func contextWithEnv(ctx context.Context) context.Context {
	return context.WithValue(ctx, envKey{}, &env{Log: zap.NewNop()})
}

func envFromContext(ctx context.Context) *env {
	if e, ok := ctx.Value(envKey{}).(*env); ok {
		return e
	}
	panic("program environment is missing from context")
}

// initializeAppContext loads the configuration and prepares logging after the
// command line has been parsed.
func initializeAppContext(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	var err error

	e := envFromContext(ctx)

	configFile := cmd.String("config")
	if e.Cfg, err = LoadConfiguration(configFile); err != nil {
		return ctx, fmt.Errorf("unable to prepare configuration: %w", err)
	}
	if cmd.Bool("debug") {
		e.Cfg.Logging.Level = "debug"
	}
	if e.Log, err = e.Cfg.Logging.Prepare(cmd.Root().ErrWriter); err != nil {
		return ctx, fmt.Errorf("unable to prepare logs: %w", err)
	}

	e.Log.Debug("Program started", zap.Strings("args", os.Args), zap.String("ver", version()))
	if len(configFile) == 0 {
		e.Log.Debug("Using defaults (no configuration file)")
	} else {
		e.Log.Debug("Using configuration", zap.String("file", filepath.Base(configFile)))
	}
	return ctx, nil
}

func destroyAppContext(ctx context.Context, cmd *cli.Command) error {
	e := envFromContext(ctx)
	e.Log.Debug("Program ended", zap.Strings("parsed args", cmd.Args().Slice()))
	// stderr cannot be synced on some systems, nothing to report
	_ = e.Log.Sync()
	return nil
}

var errWasHandled bool

func exitErrHandler(ctx context.Context, _ *cli.Command, err error) {
	e := envFromContext(ctx)
	if e.Cfg != nil && e.Cfg.Logging.Level != "none" {
		e.Log.Error("Program ended with error", zap.Error(err))
		errWasHandled = true
	}
}

func usageErrorHandler(_ context.Context, _ *cli.Command, err error, _ bool) error {
	return err
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:            appName,
		Usage:           "moves rules of embedded style elements into style attributes",
		Version:         version(),
		HideHelpCommand: true,
		Before:          initializeAppContext,
		After:           destroyAppContext,
		OnUsageError:    usageErrorHandler,
		ExitErrHandler:  exitErrHandler,
		Writer:          os.Stdout,
		ErrWriter:       os.Stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "load configuration from `FILE` (YAML)"},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "log every decision taken for every selector"},
		},
		Commands: []*cli.Command{
			{
				Name:         "inline",
				Usage:        "Inlines the style elements of HTML or SVG file(s)",
				OnUsageError: usageErrorHandler,
				Action:       runInline,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "merge-shared", Aliases: []string{"ms"}, Usage: "inline selectors even if they match more than one element"},
					&cli.BoolFlag{Name: "keep-selectors", Aliases: []string{"ks"}, Usage: "do not remove inlined selectors from the stylesheets"},
					&cli.BoolFlag{Name: "fragment", Aliases: []string{"f"}, Usage: "treat input as fragment (standalone svg, partial html)"},
					&cli.BoolFlag{Name: "overwrite", Aliases: []string{"ow"}, Usage: "write results back to the source files"},
					&cli.BoolFlag{Name: "stats", Usage: "print a summary for every source"},
				},
				ArgsUsage: "SOURCE...",
				CustomHelpTemplate: fmt.Sprintf(`%s
SOURCE:
    path to a file to process, "-" for standard input

    Without --overwrite exactly one SOURCE is accepted and the result is
    written to standard output.
`, cli.CommandHelpTemplate),
			},
			{
				Name:         "dumpconfig",
				Usage:        "Dumps either default or actual configuration (YAML)",
				OnUsageError: usageErrorHandler,
				Action:       outputConfiguration,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "default", Usage: "output default embedded configuration"},
				},
				ArgsUsage: "DESTINATION",
				CustomHelpTemplate: fmt.Sprintf(`%s
DESTINATION:
    file name to write configuration to, if absent - STDOUT
`, cli.CommandHelpTemplate),
			},
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(contextWithEnv(context.Background()), os.Interrupt, syscall.SIGTERM)

	if err := newApp().Run(ctx, os.Args); err != nil {
		if !errWasHandled {
			fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		}
		stop()
		os.Exit(1)
	}
	stop()
}
