package commands

import (
	"context"

	"github.com/c2tools/sanctions/internal/setup"
	"github.com/urfave/cli/v3"
)

// QueryCommands returns the read-only sanction lookups.
func QueryCommands(deps *CLIDependencies) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "list",
			Usage: "List sanctions, newest first",
			Description: `List every sanction, or only those currently in force.

Examples:
  sanctions list                     # All sanctions
  sanctions list --active            # Only sanctions in force right now
  sanctions list --limit 20 --offset 40`,
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "active", Usage: "Only sanctions currently in force"},
				&cli.IntFlag{Name: "limit", Usage: "Maximum number of results (0 = no limit)"},
				&cli.IntFlag{Name: "offset", Usage: "Number of results to skip"},
				&cli.BoolFlag{Name: jsonFlag, Usage: "Print JSON instead of a table"},
			},
			Action: withApp(deps, handleList(deps)),
		},
		{
			Name:  "search",
			Usage: "Search sanctions by player, moderator, server, kind or username",
			Description: `All filters combine with AND. Results are ordered newest first.

Examples:
  sanctions search --player 76561198000000000
  sanctions search --kind ban --active --server EU-1
  sanctions search --username bob --limit 10`,
			Flags: append(filterFlags(),
				&cli.BoolFlag{Name: jsonFlag, Usage: "Print JSON instead of a table"},
			),
			Action: withApp(deps, handleSearch(deps)),
		},
		{
			Name:      "view",
			Usage:     "Show one sanction in full",
			ArgsUsage: "ID",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: jsonFlag, Usage: "Print JSON instead of a table"},
			},
			Action: withApp(deps, handleView(deps)),
		},
	}
}

// handleList handles the 'list' command.
func handleList(deps *CLIDependencies) func(context.Context, *cli.Command, *setup.App) error {
	return func(ctx context.Context, c *cli.Command, app *setup.App) error {
		query := app.DB.Service().Query()
		limit, offset := int(c.Int("limit")), int(c.Int("offset"))

		list := query.ListAll
		if c.Bool("active") {
			list = query.ListActive
		}

		sanctions, err := list(ctx, limit, offset)
		if err != nil {
			return err
		}

		if c.Bool(jsonFlag) {
			return writeJSON(deps.Out, sanctions)
		}

		renderSanctions(deps.Out, sanctions, deps.Now())
		return nil
	}
}

// handleSearch handles the 'search' command.
func handleSearch(deps *CLIDependencies) func(context.Context, *cli.Command, *setup.App) error {
	return func(ctx context.Context, c *cli.Command, app *setup.App) error {
		filter, err := filterFromFlags(c)
		if err != nil {
			return err
		}

		sanctions, err := app.DB.Service().Query().Search(ctx, filter)
		if err != nil {
			return err
		}

		if c.Bool(jsonFlag) {
			return writeJSON(deps.Out, sanctions)
		}

		renderSanctions(deps.Out, sanctions, deps.Now())
		return nil
	}
}

// handleView handles the 'view' command.
func handleView(deps *CLIDependencies) func(context.Context, *cli.Command, *setup.App) error {
	return func(ctx context.Context, c *cli.Command, app *setup.App) error {
		id, err := parseID(c)
		if err != nil {
			return err
		}

		sanction, err := app.DB.Service().Sanction().Get(ctx, id)
		if err != nil {
			return err
		}

		if c.Bool(jsonFlag) {
			return writeJSON(deps.Out, sanction)
		}

		renderSanction(deps.Out, sanction, deps.Now())
		return nil
	}
}
