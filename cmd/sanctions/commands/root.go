package commands

import (
	"slices"

	"github.com/urfave/cli/v3"
)

// Root builds the sanctions command tree.
func Root(deps *CLIDependencies, logDir string) *cli.Command {
	return &cli.Command{
		Name:  "sanctions",
		Usage: "Manage and query moderation sanctions",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config.toml or database_config.json (searched when empty)",
			},
			&cli.StringFlag{
				Name:  "log-dir",
				Value: logDir,
				Usage: "Base directory for log sessions",
			},
		},
		Commands: slices.Concat(
			QueryCommands(deps),
			SanctionCommands(deps),
			StatsCommands(deps),
			ExportCommands(deps),
			ReportCommands(deps),
			HealthCommands(deps),
		),
	}
}
