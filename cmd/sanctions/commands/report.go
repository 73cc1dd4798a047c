package commands

import (
	"context"

	"github.com/c2tools/sanctions/internal/report"
	"github.com/c2tools/sanctions/internal/setup"
	"github.com/urfave/cli/v3"
)

// ReportCommands returns the per-player and per-moderator reports.
func ReportCommands(deps *CLIDependencies) []*cli.Command {
	return []*cli.Command{
		{
			Name:      "player-report",
			Usage:     "Summarize the sanction history of a player",
			ArgsUsage: "PLAYER_ID",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: jsonFlag, Usage: "Print JSON instead of tables"},
			},
			Action: withApp(deps, handlePlayerReport(deps)),
		},
		{
			Name:      "moderator-report",
			Usage:     "Summarize the sanctions issued by a moderator",
			ArgsUsage: "MODERATOR_ID",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: jsonFlag, Usage: "Print JSON instead of tables"},
			},
			Action: withApp(deps, handleModeratorReport(deps)),
		},
	}
}

// handlePlayerReport handles the 'player-report' command.
func handlePlayerReport(deps *CLIDependencies) func(context.Context, *cli.Command, *setup.App) error {
	return func(ctx context.Context, c *cli.Command, app *setup.App) error {
		if c.Args().Len() != 1 {
			return ErrPlayerRequired
		}

		r, err := report.New(app.DB.Service().Query(), app.Logger).PlayerReport(ctx, c.Args().First())
		if err != nil {
			return err
		}

		if c.Bool(jsonFlag) {
			return writeJSON(deps.Out, r)
		}

		renderPlayerReport(deps.Out, r)
		return nil
	}
}

// handleModeratorReport handles the 'moderator-report' command.
func handleModeratorReport(deps *CLIDependencies) func(context.Context, *cli.Command, *setup.App) error {
	return func(ctx context.Context, c *cli.Command, app *setup.App) error {
		if c.Args().Len() != 1 {
			return ErrModeratorRequired
		}

		r, err := report.New(app.DB.Service().Query(), app.Logger).ModeratorReport(ctx, c.Args().First())
		if err != nil {
			return err
		}

		if c.Bool(jsonFlag) {
			return writeJSON(deps.Out, r)
		}

		renderModeratorReport(deps.Out, r)
		return nil
	}
}
