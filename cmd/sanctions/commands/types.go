package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/c2tools/sanctions/internal/database/types"
	"github.com/c2tools/sanctions/internal/setup"
	"github.com/urfave/cli/v3"
)

var (
	ErrIDRequired        = errors.New("ID argument required")
	ErrPlayerRequired    = errors.New("PLAYER_ID argument required")
	ErrModeratorRequired = errors.New("MODERATOR_ID argument required")
	ErrInvalidAssignment = errors.New("expected field=value")
)

// CLIDependencies holds the dependencies shared by CLI commands. The
// application is initialized on first use so flag errors never touch the
// database.
type CLIDependencies struct {
	Out io.Writer
	Now func() time.Time

	app *setup.App
}

// NewCLIDependencies creates dependencies that print to out.
func NewCLIDependencies(out io.Writer) *CLIDependencies {
	return &CLIDependencies{Out: out, Now: time.Now}
}

// App returns the initialized application, creating it on first call from
// the root --config and --log-dir flags.
func (d *CLIDependencies) App(ctx context.Context, c *cli.Command) (*setup.App, error) {
	if d.app != nil {
		return d.app, nil
	}

	app, err := setup.InitializeApp(ctx, c.String("config"), c.String("log-dir"), "cli")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize application: %w", err)
	}

	d.app = app
	return app, nil
}

// SetApp injects an already initialized application.
func (d *CLIDependencies) SetApp(app *setup.App) {
	d.app = app
}

// Cleanup releases the application if one was initialized.
func (d *CLIDependencies) Cleanup() {
	if d.app != nil {
		d.app.Cleanup()
		d.app = nil
	}
}

// withApp adapts a handler that needs the application into a cli.ActionFunc.
func withApp(
	deps *CLIDependencies, fn func(ctx context.Context, c *cli.Command, app *setup.App) error,
) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		app, err := deps.App(ctx, c)
		if err != nil {
			return err
		}
		return fn(ctx, c, app)
	}
}

// filterFlags are accepted by every command that runs a search.
func filterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "player", Usage: "Only sanctions against this player id"},
		&cli.StringFlag{Name: "moderator", Usage: "Only sanctions issued by this moderator id"},
		&cli.StringFlag{Name: "server", Usage: "Only sanctions issued on this server"},
		&cli.StringFlag{Name: "kind", Usage: "Only this kind (ban or kick)"},
		&cli.StringFlag{Name: "username", Usage: "Case-insensitive substring of the username"},
		&cli.BoolFlag{Name: "active", Usage: "Only sanctions currently in force"},
		&cli.IntFlag{Name: "limit", Usage: "Maximum number of results (0 = no limit)"},
		&cli.IntFlag{Name: "offset", Usage: "Number of results to skip"},
	}
}

// filterFromFlags builds a search filter from filterFlags.
func filterFromFlags(c *cli.Command) (types.SanctionFilter, error) {
	filter := types.SanctionFilter{
		PlayerID:    c.String("player"),
		ModeratorID: c.String("moderator"),
		ServerName:  c.String("server"),
		Username:    c.String("username"),
		ActiveOnly:  c.Bool("active"),
		Limit:       int(c.Int("limit")),
		Offset:      int(c.Int("offset")),
	}

	if kind := c.String("kind"); kind != "" {
		parsed, err := types.ParseKind(kind)
		if err != nil {
			return types.SanctionFilter{}, err
		}
		filter.Kind = parsed
	}

	return filter, filter.Validate()
}

// parseID reads the sanction id from the first argument.
func parseID(c *cli.Command) (int64, error) {
	if c.Args().Len() != 1 {
		return 0, ErrIDRequired
	}

	id, err := strconv.ParseInt(c.Args().First(), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid sanction id %q", types.ErrValidation, c.Args().First())
	}

	return id, nil
}

// parseAssignments turns field=value pairs into a patch. Values stay strings;
// the store coerces boolean fields.
func parseAssignments(assignments []string) (types.Patch, error) {
	patch := make(types.Patch, len(assignments))
	for _, assignment := range assignments {
		field, value, ok := strings.Cut(assignment, "=")
		field = strings.TrimSpace(field)
		if !ok || field == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAssignment, assignment)
		}
		patch[field] = value
	}
	return patch, nil
}
