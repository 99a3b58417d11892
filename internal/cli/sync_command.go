package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/klauern/treesync/internal/erase"
	"github.com/klauern/treesync/internal/logging"
	"github.com/klauern/treesync/internal/model"
	"github.com/klauern/treesync/internal/progress"
	"github.com/klauern/treesync/internal/sync"
	"github.com/klauern/treesync/internal/ui"
)

func syncFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "subdirs",
			Aliases: []string{"s"},
			Usage:   "Copy subdirectories, skipping ones that would end up empty (/S)",
		},
		&cli.BoolFlag{
			Name:    "empty-dirs",
			Aliases: []string{"e"},
			Usage:   "Copy subdirectories, including empty ones (/E)",
		},
		&cli.BoolFlag{
			Name:    "restartable",
			Aliases: []string{"z"},
			Usage:   "Resume interrupted file copies (/Z)",
		},
		&cli.BoolFlag{
			Name:   "backup",
			Usage:  "Backup mode (/B); accepted for compatibility and ignored",
			Hidden: true,
		},
		&cli.BoolFlag{
			Name:  "purge",
			Usage: "Delete destination entries that no longer exist in the source (/PURGE)",
		},
		&cli.BoolFlag{
			Name:  "mirror",
			Usage: "Mirror the tree: --empty-dirs plus --purge (/MIR)",
		},
		&cli.BoolFlag{
			Name:  "mov",
			Usage: "Move files: delete them from the source after copying (/MOV)",
		},
		&cli.BoolFlag{
			Name:  "move",
			Usage: "Move files and directories (/MOVE)",
		},
		&cli.BoolFlag{
			Name:    "list-only",
			Aliases: []string{"l"},
			Usage:   "Report what would change without changing anything (/L)",
		},
		&cli.BoolFlag{
			Name:  "no-progress",
			Usage: "Do not report percent complete (/NP)",
		},
		&cli.BoolFlag{
			Name:  "no-file-list",
			Usage: "Do not list copied files (/NFL)",
		},
		&cli.BoolFlag{
			Name:  "empty-files",
			Usage: "Create zero-byte files instead of copying content (/EMPTY)",
		},
		&cli.BoolFlag{
			Name:  "child-only",
			Usage: "Synchronize each immediate source subdirectory on its own (/CHILDONLY)",
		},
		&cli.BoolFlag{
			Name:  "shred",
			Usage: "Overwrite files before deleting them (/SHRED)",
		},
		&cli.StringFlag{
			Name:  "attr-add",
			Usage: "Add attribute `LETTERS` (RASHCNETO) to copied files (/A+:)",
		},
		&cli.StringFlag{
			Name:  "attr-remove",
			Usage: "Remove attribute `LETTERS` (RASHCNETO) from copied files (/A-:)",
		},
		&cli.IntFlag{
			Name:  "threads",
			Usage: fmt.Sprintf("Number of concurrent workers, 1 to %d (/MT:n)", model.MaxWorkers),
			Value: model.DefaultWorkers,
		},
		&cli.IntFlag{
			Name:  "retries",
			Usage: "Retries of a failing action (/R:n)",
			Value: model.DefaultMaxRetries,
		},
		&cli.DurationFlag{
			Name:  "wait",
			Usage: "Wait between retries (/W:n)",
			Value: model.DefaultRetryWait,
		},
		&cli.StringFlag{
			Name:  "log",
			Usage: "Also write the log and summary to `FILE` (/LOG:file)",
		},
		&cli.BoolFlag{
			Name:  "ignore-case",
			Usage: "Match patterns case-insensitively",
		},
		&cli.BoolFlag{
			Name:  "case-sensitive",
			Usage: "Match patterns case-sensitively",
		},
		&cli.DurationFlag{
			Name:  "mtime-window",
			Usage: "Treat modification times this close as equal (e.g. 2s for FAT)",
		},
		&cli.StringSliceFlag{
			Name:  "erase-pass",
			Usage: "Secure-delete overwrite pass: zero, one, random or a byte like 0xAA (repeatable)",
		},
	}
}

// syncAction runs one synchronization and prints its banner and summary.
func (a *app) syncAction(ctx context.Context, cmd *cli.Command) error {
	opts, err := a.syncOptions(cmd)
	if err != nil {
		logging.Error("invalid arguments", logging.Err(err))
		return &StatusError{Status: sync.StatusInvalidPolicy, Err: err}
	}
	if cmd.Bool("backup") {
		logging.Warn("backup mode is not supported, copying with the current privileges")
	}

	reporter := progress.NewReporter(progress.ReporterOptions{
		Writer:   a.stdout,
		Progress: a.cfg.Output.Progress && !cmd.Bool("no-progress"),
		FileList: a.cfg.Output.FileList && !cmd.Bool("no-file-list"),
	})
	opts.Observer = reporter
	opts.OnStart = func(r *sync.Result) {
		a.banner(r.Header())
	}
	opts.OnPass = func(name string) {
		_, _ = fmt.Fprintln(a.stdout, ui.Heading(name))
	}

	result, err := sync.New(opts).Run(ctx)
	reporter.Finish()
	if err != nil {
		return &StatusError{Status: result.Status, Err: err}
	}

	a.printFailures(result)
	a.banner(result.Summary())

	if result.Status != sync.StatusSuccess {
		return &StatusError{Status: result.Status}
	}
	return nil
}

// syncOptions builds the run options from the configuration, overridden by
// any flag set on the command line.
func (a *app) syncOptions(cmd *cli.Command) (sync.Options, error) {
	args := cmd.Args().Slice()
	if len(args) < 2 {
		return sync.Options{}, &model.ArgumentError{
			Field:   "destination",
			Message: "usage: treesync [options] <source> <destination> [pattern...]",
		}
	}
	if err := a.cfg.Validate(); err != nil {
		return sync.Options{}, err
	}

	opts := sync.DefaultOptions()
	opts.Source = args[0]
	opts.Destination = args[1]
	opts.Workers = a.cfg.Sync.Threads
	opts.Retry = a.cfg.RetryPolicy()

	passes, err := a.cfg.ErasePasses()
	if err != nil {
		return sync.Options{}, err
	}
	opts.ErasePasses = passes

	policy, err := a.policy(cmd, args[2:])
	if err != nil {
		return sync.Options{}, err
	}
	opts.Policy = policy

	if cmd.IsSet("threads") {
		opts.Workers = int(cmd.Int("threads"))
	}
	if cmd.IsSet("retries") {
		opts.Retry.MaxRetries = int(cmd.Int("retries"))
	}
	if cmd.IsSet("wait") {
		opts.Retry.Wait = cmd.Duration("wait")
	}
	if cmd.Bool("restartable") {
		opts.Retry.Restartable = true
	}
	if cmd.IsSet("erase-pass") {
		passes, err := erase.ParsePasses(cmd.StringSlice("erase-pass"))
		if err != nil {
			return sync.Options{}, err
		}
		opts.ErasePasses = passes
	}
	return opts, nil
}

func (a *app) policy(cmd *cli.Command, patterns []string) (model.Policy, error) {
	p := model.Policy{
		RecurseNonEmpty: cmd.Bool("subdirs"),
		RecurseEmpty:    cmd.Bool("empty-dirs"),
		Purge:           cmd.Bool("purge"),
		Mirror:          cmd.Bool("mirror"),
		EmptyFiles:      cmd.Bool("empty-files"),
		ChildOnly:       cmd.Bool("child-only"),
		SecureDelete:    cmd.Bool("shred"),
		ListOnly:        cmd.Bool("list-only"),
		Include:         patterns,
		IgnoreCase:      a.cfg.IgnoreCase(),
		ModTimeWindow:   a.cfg.Sync.MTimeWindow,
	}
	if len(p.Include) == 0 {
		p.Include = a.cfg.Match.Patterns
	}

	switch {
	case cmd.Bool("move"):
		p.Move = model.MoveAll
	case cmd.Bool("mov"):
		p.Move = model.MoveFiles
	}

	switch {
	case cmd.Bool("ignore-case") && cmd.Bool("case-sensitive"):
		return p, &model.ArgumentError{Field: "ignore-case", Message: "conflicts with --case-sensitive"}
	case cmd.Bool("ignore-case"):
		p.IgnoreCase = true
	case cmd.Bool("case-sensitive"):
		p.IgnoreCase = false
	}

	if cmd.IsSet("mtime-window") {
		p.ModTimeWindow = cmd.Duration("mtime-window")
	}

	var errs model.ArgumentErrors
	if s := cmd.String("attr-add"); s != "" {
		attrs, err := model.ParseAttributes(s)
		if err != nil {
			errs = append(errs, err)
		}
		p.AttrAdd = attrs
	}
	if s := cmd.String("attr-remove"); s != "" {
		attrs, err := model.ParseAttributes(s)
		if err != nil {
			errs = append(errs, err)
		}
		p.AttrRemove = attrs
	}
	if len(errs) > 0 {
		return p, errs
	}
	return p, nil
}

// banner writes text to stdout with styled rule lines and copies it
// verbatim into the log file.
func (a *app) banner(text string) {
	for _, line := range strings.SplitAfter(text, "\n") {
		if strings.HasPrefix(line, "---") {
			line = ui.Rule(strings.TrimSuffix(line, "\n")) + "\n"
		}
		_, _ = io.WriteString(a.stdout, line)
	}
	if a.logFile != nil {
		if _, err := io.WriteString(a.logFile, text); err != nil {
			logging.Warn("failed to write log file", logging.Err(err))
		}
	}
}

func (a *app) printFailures(result *sync.Result) {
	failures := result.Failures()
	if len(failures) == 0 {
		return
	}
	_, _ = fmt.Fprintln(a.stdout, ui.Heading(fmt.Sprintf("%d failed", len(failures))))
	for _, f := range failures {
		_, _ = fmt.Fprintln(a.stdout, ui.StatusError(fmt.Sprintf("%s %s: %v", f.Action, f.Path, f.Err)))
	}
}
