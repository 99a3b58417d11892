package cli

import (
	"context"
	"fmt"
	"runtime"

	"github.com/urfave/cli/v3"
)

func versionCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Display version and build information",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			_, _ = fmt.Fprintf(a.stdout, "treesync version %s\n", Version)
			_, _ = fmt.Fprintf(a.stdout, "  commit: %s\n", Commit)
			_, _ = fmt.Fprintf(a.stdout, "  built: %s\n", BuildDate)
			_, _ = fmt.Fprintf(a.stdout, "  go: %s\n", runtime.Version())
			return nil
		},
	}
}
