package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/c2tools/sanctions/internal/export"
	"github.com/c2tools/sanctions/internal/setup"
	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v3"
)

const formatAll = "all"

// ExportCommands returns the export command.
func ExportCommands(deps *CLIDependencies) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "export",
			Usage: "Write matching sanctions to JSON, CSV or SQLite files",
			Description: `With --format all every format is written into a timestamped directory
below --output. With a single format --output names the file.

Examples:
  sanctions export                                   # All formats into exports/<timestamp>/
  sanctions export --format csv --output bans.csv --kind ban
  sanctions export --format sqlite --output active.db --active`,
			Flags: append(filterFlags(),
				&cli.StringFlag{
					Name:    "format",
					Aliases: []string{"f"},
					Value:   formatAll,
					Usage:   "json, csv, sqlite or all",
				},
				&cli.StringFlag{
					Name:    "output",
					Aliases: []string{"o"},
					Usage:   "Output file, or base directory for all formats (default: exports)",
				},
			),
			Action: withApp(deps, handleExport(deps)),
		},
	}
}

// handleExport handles the 'export' command.
func handleExport(deps *CLIDependencies) func(context.Context, *cli.Command, *setup.App) error {
	return func(ctx context.Context, c *cli.Command, app *setup.App) error {
		filter, err := filterFromFlags(c)
		if err != nil {
			return err
		}

		exporter := export.New(app.DB.Service().Query(), app.Logger)
		output := c.String("output")

		var results []*export.Result

		if strings.EqualFold(c.String("format"), formatAll) {
			if output == "" {
				output = "exports"
			}

			outDir := filepath.Join(output, deps.Now().UTC().Format("2006-01-02_150405"))
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}

			results, err = exporter.ExportAll(ctx, outDir, filter)
			if err != nil {
				return fmt.Errorf("failed to export data: %w", err)
			}
		} else {
			format, err := export.ParseFormat(c.String("format"))
			if err != nil {
				return err
			}

			if output == "" {
				output = "sanctions" + format.Extension()
			}

			result, err := exporter.Export(ctx, format, output, filter)
			if err != nil {
				return fmt.Errorf("failed to export data: %w", err)
			}
			results = []*export.Result{result}
		}

		t := newTable(deps.Out)
		t.AppendHeader(table.Row{"Format", "Path", "Sanctions", "Size"})
		for _, result := range results {
			size := "-"
			if info, err := os.Stat(result.Path); err == nil {
				size = humanize.Bytes(uint64(info.Size())) //nolint:gosec // file sizes are never negative
			}
			t.AppendRow(table.Row{strings.ToUpper(string(result.Format)), result.Path, result.Count, size})
		}
		t.Render()

		return nil
	}
}
