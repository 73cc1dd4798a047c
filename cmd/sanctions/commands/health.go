package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/c2tools/sanctions/internal/setup"
	"github.com/urfave/cli/v3"
)

var ErrUnhealthy = errors.New("database health check failed")

// HealthCommands returns the connectivity check.
func HealthCommands(deps *CLIDependencies) []*cli.Command {
	return []*cli.Command{
		{
			Name:   "health",
			Usage:  "Check that the configured database answers",
			Action: withApp(deps, handleHealth(deps)),
		},
	}
}

// handleHealth handles the 'health' command.
func handleHealth(deps *CLIDependencies) func(context.Context, *cli.Command, *setup.App) error {
	return func(ctx context.Context, _ *cli.Command, app *setup.App) error {
		backend := app.DB.Backend()

		if !app.DB.HealthCheck(ctx) {
			_, _ = fmt.Fprintf(deps.Out, "%s backend: unhealthy\n", backend)
			return ErrUnhealthy
		}

		_, err := fmt.Fprintf(deps.Out, "%s backend: ok (config %s)\n", backend, app.ConfigPath)
		return err
	}
}
