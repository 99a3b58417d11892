// Package cli provides the command-line interface for treesync.
package cli

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/klauern/treesync/internal/config"
	"github.com/klauern/treesync/internal/logging"
	"github.com/klauern/treesync/internal/sync"
	"github.com/klauern/treesync/internal/ui"
)

var (
	// Version is the current version of the application.
	Version = "dev"
	// Commit is the git commit hash.
	Commit = "unknown"
	// BuildDate is the date and time of the build.
	BuildDate = "unknown"
)

// app holds the state shared by the commands of one invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer

	cfg     *config.Config
	logFile io.WriteCloser
}

// Run executes the CLI application with the given context and arguments.
// Robocopy-style switches in args are translated first.
func Run(ctx context.Context, args []string) error {
	return run(ctx, args, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	args, err := TranslateArgs(args)
	if err != nil {
		return &StatusError{Status: sync.StatusInvalidPolicy, Err: err}
	}

	a := &app{stdout: stdout, stderr: stderr}
	root := &cli.Command{
		Name:      "treesync",
		Usage:     "Make a destination directory tree match a source tree",
		UsageText: "treesync [options] <source> <destination> [pattern...]",
		Version:   Version,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags:     append(globalFlags(), syncFlags()...),
		Before:    a.before,
		After:     a.after,
		Action:    a.syncAction,
		Commands: []*cli.Command{
			versionCommand(a),
			configCommand(a),
		},
	}
	return root.Run(ctx, args)
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "Enable verbose output (info level logging)",
		},
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "Enable debug output (debug level logging, implies verbose)",
		},
		&cli.BoolFlag{
			Name:  "no-color",
			Usage: "Disable colored output",
		},
		&cli.StringFlag{
			Name:  "config",
			Usage: "Read configuration from `FILE` (.yaml or .toml)",
		},
	}
}

// before loads the configuration and sets up colors and logging. It runs
// ahead of every command.
func (a *app) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, err := loadConfig(cmd.String("config"))
	if err != nil {
		return ctx, err
	}
	a.cfg = cfg

	if err := configureColors(cmd, cfg); err != nil {
		return ctx, err
	}
	return ctx, a.configureLogging(cmd)
}

func (a *app) after(ctx context.Context, cmd *cli.Command) error {
	if a.logFile == nil {
		return nil
	}
	err := a.logFile.Close()
	a.logFile = nil
	return err
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

// configureColors sets up color output from the config and CLI flags.
func configureColors(cmd *cli.Command, cfg *config.Config) error {
	if cmd.Bool("no-color") {
		ui.DisableColors()
		return nil
	}
	return ui.SetColorMode(cfg.Output.Color)
}

// configureLogging sets up the console logger and, when a log file is
// configured, a rotating copy of every record.
func (a *app) configureLogging(cmd *cli.Command) error {
	opts := logging.DefaultOptions()
	opts.Output = a.stderr
	opts.NoColor = !ui.IsColorEnabled()
	opts.JSON = a.cfg.Log.JSON

	level, err := config.ParseLevel(a.cfg.Log.Level)
	if err != nil {
		return err
	}
	opts.Level = level
	fileLevel := slog.LevelInfo

	if cmd.Bool("debug") {
		opts.Level = slog.LevelDebug
		opts.AddSource = true
		fileLevel = slog.LevelDebug
	} else if cmd.Bool("verbose") {
		opts.Level = slog.LevelInfo
	}

	path := a.cfg.Log.File
	if cmd.IsSet("log") {
		path = cmd.String("log")
	}
	if path != "" {
		f, err := logging.OpenFile(path, logging.FileOptions{
			MaxSizeMB:  a.cfg.Log.MaxSizeMB,
			MaxBackups: a.cfg.Log.MaxBackups,
			MaxAgeDays: a.cfg.Log.MaxAgeDays,
		})
		if err != nil {
			return err
		}
		a.logFile = f
		opts.File = f
		opts.FileLevel = &fileLevel
	}

	logger := logging.New(opts)
	logging.SetDefault(logger)

	logging.Debug("logging configured", slog.String("level", opts.Level.String()))

	return nil
}
