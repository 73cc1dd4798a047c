package csv

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/c2tools/sanctions/internal/export/types"
)

// Exporter handles exporting sanctions to a csv file.
type Exporter struct {
	path string
}

// New creates a new csv exporter instance writing to path.
func New(path string) *Exporter {
	return &Exporter{path: path}
}

// Export writes a header row followed by one row per record, replacing
// any existing file.
func (e *Exporter) Export(records []*types.ExportRecord, _ *types.Metadata) error {
	if err := os.MkdirAll(filepath.Dir(e.path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.Create(e.path)
	if err != nil {
		return fmt.Errorf("failed to create csv file: %w", err)
	}
	defer file.Close()

	// Create CSV writer
	writer := csv.NewWriter(file)

	// Write header
	if err := writer.Write(types.Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	// Write each record
	for _, record := range records {
		if err := writer.Write(record.Strings()); err != nil {
			return fmt.Errorf("failed to write record %d: %w", record.ID, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush csv file: %w", err)
	}

	return file.Close()
}
