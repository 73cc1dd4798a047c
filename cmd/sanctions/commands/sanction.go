package commands

import (
	"context"

	"github.com/c2tools/sanctions/internal/database/types"
	"github.com/c2tools/sanctions/internal/setup"
	"github.com/urfave/cli/v3"
)

// SanctionCommands returns the commands that write sanctions.
func SanctionCommands(deps *CLIDependencies) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create",
			Usage: "Record a new ban or kick",
			Description: `A timed ban needs --duration, a permanent ban needs --permanent and a
kick takes neither.

Examples:
  sanctions create --kind ban --player P1 --reason "FFA" --duration 24 --moderator-id m1 --moderator-name Alice
  sanctions create --kind ban --player P1 --reason "Cheating" --permanent --moderator-id m1 --moderator-name Alice
  sanctions create --kind kick --player P2 --reason "Spam" --moderator-id m1 --moderator-name Alice`,
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "kind", Usage: "ban or kick", Required: true},
				&cli.StringFlag{Name: "player", Usage: "Player id", Required: true},
				&cli.StringFlag{Name: "username", Usage: "Player name at the time of the sanction"},
				&cli.StringFlag{Name: "reason", Usage: "Reason shown to the player", Required: true},
				&cli.Float64Flag{Name: "duration", Usage: "Ban length in hours (timed bans only)"},
				&cli.BoolFlag{Name: "permanent", Usage: "Ban with no end"},
				&cli.StringFlag{Name: "moderator-id", Usage: "Issuing moderator id", Required: true},
				&cli.StringFlag{Name: "moderator-name", Usage: "Issuing moderator name", Required: true},
				&cli.StringFlag{Name: "server", Usage: "Server the sanction was issued on"},
				&cli.StringFlag{Name: "notes", Usage: "Additional notes"},
				&cli.BoolFlag{Name: "notified-ingame", Usage: "The player was told in game"},
				&cli.BoolFlag{Name: "notified-discord", Usage: "The sanction was posted to Discord"},
			},
			Action: withApp(deps, handleCreate(deps)),
		},
		{
			Name:      "update",
			Usage:     "Change mutable fields of a sanction",
			ArgsUsage: "ID",
			Description: `Mutable fields: reason, additional_notes, server_name, notified_ingame,
notified_discord. Each has its own flag; --set reaches them by column name.

Examples:
  sanctions update 42 --reason "Team killing" --notified-discord
  sanctions update 42 --set additional_notes="appealed on forum"`,
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "reason", Usage: "New reason"},
				&cli.StringFlag{Name: "notes", Usage: "New additional notes"},
				&cli.StringFlag{Name: "server", Usage: "New server name (empty clears it)"},
				&cli.BoolFlag{Name: "notified-ingame", Usage: "Whether the player was told in game"},
				&cli.BoolFlag{Name: "notified-discord", Usage: "Whether the sanction was posted to Discord"},
				&cli.StringSliceFlag{Name: "set", Usage: "field=value to change (repeatable)"},
			},
			Action: withApp(deps, handleUpdate(deps)),
		},
		{
			Name:      "revoke",
			Usage:     "Revoke a sanction",
			ArgsUsage: "ID",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "by", Usage: "Name of the moderator revoking", Required: true},
				&cli.StringFlag{Name: "reason", Usage: "Why the sanction is revoked"},
			},
			Action: withApp(deps, handleRevoke(deps)),
		},
	}
}

// handleCreate handles the 'create' command.
func handleCreate(deps *CLIDependencies) func(context.Context, *cli.Command, *setup.App) error {
	return func(ctx context.Context, c *cli.Command, app *setup.App) error {
		kind, err := types.ParseKind(c.String("kind"))
		if err != nil {
			return err
		}

		input := &types.NewSanction{
			Kind:            kind,
			PlayerID:        c.String("player"),
			Username:        c.String("username"),
			Reason:          c.String("reason"),
			IsPermanent:     c.Bool("permanent"),
			ModeratorID:     c.String("moderator-id"),
			ModeratorName:   c.String("moderator-name"),
			ServerName:      c.String("server"),
			AdditionalNotes: c.String("notes"),
			NotifiedIngame:  c.Bool("notified-ingame"),
			NotifiedDiscord: c.Bool("notified-discord"),
		}

		if c.IsSet("duration") {
			hours := c.Float64("duration")
			input.DurationHours = &hours
		}

		sanction, err := app.DB.Service().Sanction().Create(ctx, input)
		if err != nil {
			return err
		}

		renderSanction(deps.Out, sanction, deps.Now())
		return nil
	}
}

// handleUpdate handles the 'update' command.
func handleUpdate(deps *CLIDependencies) func(context.Context, *cli.Command, *setup.App) error {
	return func(ctx context.Context, c *cli.Command, app *setup.App) error {
		id, err := parseID(c)
		if err != nil {
			return err
		}

		patch, err := parseAssignments(c.StringSlice("set"))
		if err != nil {
			return err
		}

		// Typed flags win over --set for the same field
		for field, value := range updateFromFlags(c).Patch() {
			patch[field] = value
		}

		sanction, err := app.DB.Service().Sanction().Update(ctx, id, patch)
		if err != nil {
			return err
		}

		renderSanction(deps.Out, sanction, deps.Now())
		return nil
	}
}

// updateFromFlags collects the typed update flags that were given.
func updateFromFlags(c *cli.Command) types.SanctionUpdate {
	var update types.SanctionUpdate
	if c.IsSet("reason") {
		v := c.String("reason")
		update.Reason = &v
	}
	if c.IsSet("notes") {
		v := c.String("notes")
		update.AdditionalNotes = &v
	}
	if c.IsSet("server") {
		v := c.String("server")
		update.ServerName = &v
	}
	if c.IsSet("notified-ingame") {
		v := c.Bool("notified-ingame")
		update.NotifiedIngame = &v
	}
	if c.IsSet("notified-discord") {
		v := c.Bool("notified-discord")
		update.NotifiedDiscord = &v
	}
	return update
}

// handleRevoke handles the 'revoke' command.
func handleRevoke(deps *CLIDependencies) func(context.Context, *cli.Command, *setup.App) error {
	return func(ctx context.Context, c *cli.Command, app *setup.App) error {
		id, err := parseID(c)
		if err != nil {
			return err
		}

		sanction, err := app.DB.Service().Sanction().Revoke(ctx, id, c.String("by"), c.String("reason"))
		if err != nil {
			return err
		}

		renderSanction(deps.Out, sanction, deps.Now())
		return nil
	}
}
