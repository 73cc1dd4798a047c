package json

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
	"github.com/c2tools/sanctions/internal/export/types"
)

// Document is the layout of an exported JSON file.
type Document struct {
	*types.Metadata

	Sanctions []*types.ExportRecord `json:"sanctions"`
}

// Exporter handles exporting sanctions to a JSON file.
type Exporter struct {
	path string
}

// New creates a new JSON exporter instance writing to path.
func New(path string) *Exporter {
	return &Exporter{path: path}
}

// Export writes the metadata and records as one indented document,
// replacing any existing file.
func (e *Exporter) Export(records []*types.ExportRecord, meta *types.Metadata) error {
	if meta == nil {
		meta = &types.Metadata{Count: len(records)}
	}

	if records == nil {
		records = []*types.ExportRecord{}
	}

	data, err := sonic.ConfigStd.MarshalIndent(Document{Metadata: meta, Sanctions: records}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal sanctions: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(e.path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := os.WriteFile(e.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write json file: %w", err)
	}

	return nil
}
