package csv_test

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	exportCSV "github.com/c2tools/sanctions/internal/export/csv"
	"github.com/c2tools/sanctions/internal/export/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// verifyCSVFile reads a CSV file and verifies its contents match the expected records.
func verifyCSVFile(t *testing.T, path string, expectedRecords []*types.ExportRecord) {
	t.Helper()

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	reader := csv.NewReader(file)

	// Read and verify header
	header, err := reader.Read()
	require.NoError(t, err)
	assert.Equal(t, types.Columns, header)

	// Read and verify each record
	for _, expected := range expectedRecords {
		record, err := reader.Read()
		require.NoError(t, err)
		assert.Equal(t, expected.Strings(), record)
	}

	// Verify we're at the end
	_, err = reader.Read()
	assert.Equal(t, io.EOF, err, "expected EOF after last record")
}

func TestExporter_Export(t *testing.T) {
	t.Parallel()

	applied := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)
	expires := applied.Add(24 * time.Hour)
	d := 24.0

	tests := []struct {
		name    string
		records []*types.ExportRecord
	}{
		{
			name: "basic export",
			records: []*types.ExportRecord{
				{
					ID: 2, Kind: "ban", PlayerID: "P1", Username: "Bob", Reason: "FFA",
					DurationHours: &d, ModeratorID: "m1", ModeratorName: "Alice",
					AppliedAt: applied, ExpiresAt: &expires, IsActive: true,
					CurrentlyActive: true, Status: "active", ServerName: "EU-1",
				},
				{
					ID: 1, Kind: "kick", PlayerID: "P2", Username: "Eve", Reason: "language",
					ModeratorID: "m1", ModeratorName: "Alice", AppliedAt: applied,
					IsActive: true, CurrentlyActive: true, Status: "active",
				},
			},
		},
		{
			name:    "empty records",
			records: []*types.ExportRecord{},
		},
		{
			name: "records with special characters",
			records: []*types.ExportRecord{
				{ID: 3, Kind: "kick", Reason: "reason with, comma", AppliedAt: applied, Status: "active"},
				{ID: 4, Kind: "kick", Reason: "reason with \"quotes\"\nand a newline", AppliedAt: applied, Status: "active"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "out", "sanctions.csv")

			err := exportCSV.New(path).Export(tt.records, nil)
			require.NoError(t, err)

			verifyCSVFile(t, path, tt.records)
		})
	}
}

func TestExporter_ExistingFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sanctions.csv")
	require.NoError(t, os.WriteFile(path, []byte("existing content\nmore\nlines\n"), 0o644))

	records := []*types.ExportRecord{
		{ID: 1, Kind: "kick", Reason: "test reason", Status: "active"},
	}

	// Export should overwrite the existing file
	require.NoError(t, exportCSV.New(path).Export(records, nil))
	verifyCSVFile(t, path, records)
}
