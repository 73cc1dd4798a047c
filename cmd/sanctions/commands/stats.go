package commands

import (
	"context"

	"github.com/c2tools/sanctions/internal/setup"
	"github.com/urfave/cli/v3"
)

// StatsCommands returns the statistics commands.
func StatsCommands(deps *CLIDependencies) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "stats",
			Usage: "Show sanction totals and per-moderator and per-server counts",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: jsonFlag, Usage: "Print JSON instead of tables"},
			},
			Action: withApp(deps, handleStats(deps)),
		},
	}
}

// handleStats handles the 'stats' command.
func handleStats(deps *CLIDependencies) func(context.Context, *cli.Command, *setup.App) error {
	return func(ctx context.Context, c *cli.Command, app *setup.App) error {
		stats, err := app.DB.Service().Stats().GetStatistics(ctx)
		if err != nil {
			return err
		}

		if c.Bool(jsonFlag) {
			return writeJSON(deps.Out, stats)
		}

		renderStatistics(deps.Out, stats)
		return nil
	}
}
