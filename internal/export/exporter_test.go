package export_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	dbTypes "github.com/c2tools/sanctions/internal/database/types"
	"github.com/c2tools/sanctions/internal/export"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeSearcher struct {
	sanctions []*dbTypes.Sanction
	err       error
	filters   []dbTypes.SanctionFilter
}

func (f *fakeSearcher) Search(_ context.Context, filter dbTypes.SanctionFilter) ([]*dbTypes.Sanction, error) {
	f.filters = append(f.filters, filter)
	if f.err != nil {
		return nil, f.err
	}

	var out []*dbTypes.Sanction
	for _, s := range f.sanctions {
		if filter.Matches(s, time.Now()) {
			out = append(out, s)
		}
	}
	return out, nil
}

func sampleSanctions() []*dbTypes.Sanction {
	applied := time.Now().UTC().Add(-time.Hour).Truncate(time.Millisecond)
	expires := applied.Add(24 * time.Hour)
	d := 24.0

	return []*dbTypes.Sanction{
		{
			ID: 2, Kind: dbTypes.KindBan, PlayerID: "P1", Username: "Bob", Reason: "FFA",
			DurationHours: &d, ModeratorID: "m1", ModeratorName: "Alice",
			AppliedAt: applied, ExpiresAt: &expires, IsActive: true,
		},
		{
			ID: 1, Kind: dbTypes.KindKick, PlayerID: "P2", Username: "Eve", Reason: "language",
			ModeratorID: "m1", ModeratorName: "Alice", AppliedAt: applied, IsActive: true,
		},
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"json", "CSV", " sqlite "} {
		_, err := export.ParseFormat(in)
		require.NoError(t, err, in)
	}

	_, err := export.ParseFormat("xml")
	require.ErrorIs(t, err, export.ErrUnsupportedFormat)
}

func TestExporter_Export(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format export.Format
		call   func(*export.Exporter, context.Context, string, dbTypes.SanctionFilter) (*export.Result, error)
	}{
		{format: export.FormatJSON, call: (*export.Exporter).ExportJSON},
		{format: export.FormatCSV, call: (*export.Exporter).ExportCSV},
		{format: export.FormatSQLite, call: (*export.Exporter).ExportSQLite},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			t.Parallel()

			searcher := &fakeSearcher{sanctions: sampleSanctions()}
			exporter := export.New(searcher, zaptest.NewLogger(t))

			path := filepath.Join(t.TempDir(), "out"+tt.format.Extension())
			filter := dbTypes.SanctionFilter{PlayerID: "P1"}

			result, err := tt.call(exporter, t.Context(), path, filter)
			require.NoError(t, err)
			assert.Equal(t, tt.format, result.Format)
			assert.Equal(t, path, result.Path)
			assert.Equal(t, 1, result.Count)

			require.Len(t, searcher.filters, 1)
			assert.Equal(t, filter, searcher.filters[0])

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Positive(t, info.Size())
		})
	}
}

func TestExporter_ExportAll(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{sanctions: sampleSanctions()}
	exporter := export.New(searcher, zaptest.NewLogger(t))

	outDir := filepath.Join(t.TempDir(), "exports")

	results, err := exporter.ExportAll(t.Context(), outDir, dbTypes.SanctionFilter{})
	require.NoError(t, err)
	require.Len(t, results, len(export.Formats))

	// The query runs once for every format
	assert.Len(t, searcher.filters, 1)

	for i, format := range export.Formats {
		assert.Equal(t, format, results[i].Format)
		assert.Equal(t, 2, results[i].Count)
		assert.FileExists(t, filepath.Join(outDir, "sanctions"+format.Extension()))
	}
}

func TestExporter_Errors(t *testing.T) {
	t.Parallel()

	errBackend := errors.New("backend down")
	exporter := export.New(&fakeSearcher{err: errBackend}, zaptest.NewLogger(t))

	_, err := exporter.ExportJSON(t.Context(), filepath.Join(t.TempDir(), "a.json"), dbTypes.SanctionFilter{})
	require.ErrorIs(t, err, errBackend)

	_, err = exporter.ExportAll(t.Context(), t.TempDir(), dbTypes.SanctionFilter{})
	require.ErrorIs(t, err, errBackend)

	_, err = exporter.Export(t.Context(), "xml", filepath.Join(t.TempDir(), "a.xml"), dbTypes.SanctionFilter{})
	require.ErrorIs(t, err, export.ErrUnsupportedFormat)
}
