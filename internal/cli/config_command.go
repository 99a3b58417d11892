package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/klauern/treesync/internal/config"
	"github.com/klauern/treesync/internal/ui"
	"github.com/klauern/treesync/internal/util"
)

func configCommand(a *app) *cli.Command {
	show := func(_ context.Context, cmd *cli.Command) error {
		data, err := a.cfg.Marshal(cmd.Bool("toml"))
		if err != nil {
			return err
		}
		_, err = a.stdout.Write(data)
		return err
	}
	tomlFlag := func() cli.Flag {
		return &cli.BoolFlag{
			Name:  "toml",
			Usage: "Use TOML instead of YAML",
		}
	}

	return &cli.Command{
		Name:   "config",
		Usage:  "Display or create the configuration",
		Flags:  []cli.Flag{tomlFlag()},
		Action: show,
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Print the effective configuration (file, environment and defaults)",
				Flags:  []cli.Flag{tomlFlag()},
				Action: show,
			},
			{
				Name:  "path",
				Usage: "Print the configuration file path",
				Action: func(_ context.Context, cmd *cli.Command) error {
					path := cmd.String("config")
					if path == "" {
						path = config.FilePath()
					}
					_, err := fmt.Fprintln(a.stdout, path)
					return err
				},
			},
			{
				Name:      "init",
				Usage:     "Write the default configuration file",
				ArgsUsage: "[file]",
				Flags: []cli.Flag{
					tomlFlag(),
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite an existing file",
					},
				},
				Action: func(_ context.Context, cmd *cli.Command) error {
					path := cmd.Args().First()
					if path == "" {
						name := "config.yaml"
						if cmd.Bool("toml") {
							name = "config.toml"
						}
						path = filepath.Join(util.ConfigDir(), name)
					}
					if _, err := os.Stat(path); err == nil && !cmd.Bool("force") {
						return errors.New(path + " already exists (use --force to overwrite)")
					}
					if err := config.Default().SaveToPath(path); err != nil {
						return err
					}
					_, err := fmt.Fprintln(a.stdout, ui.StatusSuccess("wrote "+path))
					return err
				},
			},
		},
	}
}
