package export

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	dbTypes "github.com/c2tools/sanctions/internal/database/types"
	"github.com/c2tools/sanctions/internal/export/csv"
	"github.com/c2tools/sanctions/internal/export/json"
	"github.com/c2tools/sanctions/internal/export/sqlite"
	"github.com/c2tools/sanctions/internal/export/types"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

var ErrUnsupportedFormat = errors.New("unsupported export format")

// Format represents a supported export format.
type Format string

const (
	FormatJSON   Format = "json"
	FormatCSV    Format = "csv"
	FormatSQLite Format = "sqlite"
)

// Formats lists every supported format in the order ExportAll writes them.
var Formats = []Format{FormatJSON, FormatCSV, FormatSQLite}

const (
	// EngineVersion represents the version of the export engine.
	// This should be updated when making breaking changes to the export format.
	EngineVersion = "1.0.0"
)

// ParseFormat converts user input into a Format.
func ParseFormat(s string) (Format, error) {
	format := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, f := range Formats {
		if f == format {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, s)
}

// Extension returns the file extension for the format.
func (f Format) Extension() string {
	if f == FormatSQLite {
		return ".db"
	}
	return "." + string(f)
}

// Searcher runs filtered sanction queries.
type Searcher interface {
	Search(ctx context.Context, filter dbTypes.SanctionFilter) ([]*dbTypes.Sanction, error)
}

// Result describes one written export file.
type Result struct {
	Format Format
	Path   string
	Count  int
}

// Exporter handles exporting query results to flat files.
type Exporter struct {
	query  Searcher
	now    func() time.Time
	logger *zap.Logger
}

// New creates a new exporter instance.
func New(query Searcher, logger *zap.Logger) *Exporter {
	return &Exporter{
		query:  query,
		now:    time.Now,
		logger: logger.Named("exporter"),
	}
}

// ExportJSON writes the sanctions matching filter to a JSON file at path.
func (e *Exporter) ExportJSON(ctx context.Context, path string, filter dbTypes.SanctionFilter) (*Result, error) {
	return e.Export(ctx, FormatJSON, path, filter)
}

// ExportCSV writes the sanctions matching filter to a CSV file at path.
func (e *Exporter) ExportCSV(ctx context.Context, path string, filter dbTypes.SanctionFilter) (*Result, error) {
	return e.Export(ctx, FormatCSV, path, filter)
}

// ExportSQLite writes the sanctions matching filter to a SQLite file at path.
func (e *Exporter) ExportSQLite(ctx context.Context, path string, filter dbTypes.SanctionFilter) (*Result, error) {
	return e.Export(ctx, FormatSQLite, path, filter)
}

// Export writes the sanctions matching filter to path in the given format.
func (e *Exporter) Export(
	ctx context.Context, format Format, path string, filter dbTypes.SanctionFilter,
) (*Result, error) {
	if _, err := ParseFormat(string(format)); err != nil {
		return nil, err
	}

	records, meta, err := e.fetch(ctx, filter)
	if err != nil {
		return nil, err
	}

	return e.write(format, path, records, meta)
}

// ExportAll queries once and writes every format into outDir concurrently.
// Files are named sanctions.json, sanctions.csv and sanctions.db.
func (e *Exporter) ExportAll(ctx context.Context, outDir string, filter dbTypes.SanctionFilter) ([]*Result, error) {
	records, meta, err := e.fetch(ctx, filter)
	if err != nil {
		return nil, err
	}

	results := make([]*Result, len(Formats))
	p := pool.New().WithErrors().WithContext(ctx)

	for i, format := range Formats {
		p.Go(func(context.Context) error {
			path := filepath.Join(outDir, "sanctions"+format.Extension())

			result, err := e.write(format, path, records, meta)
			if err != nil {
				return fmt.Errorf("failed to export %s format: %w", format, err)
			}

			results[i] = result
			return nil
		})
	}

	if err := p.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// fetch runs the query and flattens the result with one shared timestamp.
func (e *Exporter) fetch(
	ctx context.Context, filter dbTypes.SanctionFilter,
) ([]*types.ExportRecord, *types.Metadata, error) {
	sanctions, err := e.query.Search(ctx, filter)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query sanctions: %w", err)
	}

	now := e.now().UTC()
	records := types.FromSanctions(sanctions, now)

	meta := &types.Metadata{
		ExportID:      uuid.NewString(),
		ExportedAt:    now,
		EngineVersion: EngineVersion,
		Count:         len(records),
		Filter:        describeFilter(filter),
	}

	return records, meta, nil
}

func (e *Exporter) write(
	format Format, path string, records []*types.ExportRecord, meta *types.Metadata,
) (*Result, error) {
	var exporter interface {
		Export(records []*types.ExportRecord, meta *types.Metadata) error
	}

	switch format {
	case FormatJSON:
		exporter = json.New(path)
	case FormatCSV:
		exporter = csv.New(path)
	case FormatSQLite:
		exporter = sqlite.New(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	if err := exporter.Export(records, meta); err != nil {
		return nil, err
	}

	e.logger.Info("Exported sanctions",
		zap.String("format", string(format)),
		zap.String("path", path),
		zap.Int("count", len(records)),
		zap.String("export_id", meta.ExportID))

	return &Result{Format: format, Path: path, Count: len(records)}, nil
}

// describeFilter keeps the filter fields that narrowed the export.
func describeFilter(filter dbTypes.SanctionFilter) map[string]any {
	fields := map[string]any{}

	if filter.PlayerID != "" {
		fields["player_id"] = filter.PlayerID
	}
	if filter.ModeratorID != "" {
		fields["moderator_id"] = filter.ModeratorID
	}
	if filter.ServerName != "" {
		fields["server_name"] = filter.ServerName
	}
	if filter.Kind != "" {
		fields["kind"] = filter.Kind.String()
	}
	if filter.Username != "" {
		fields["username"] = filter.Username
	}
	if filter.ActiveOnly {
		fields["active_only"] = true
	}
	if filter.Limit > 0 {
		fields["limit"] = filter.Limit
	}
	if filter.Offset > 0 {
		fields["offset"] = filter.Offset
	}

	if len(fields) == 0 {
		return nil
	}

	return fields
}
