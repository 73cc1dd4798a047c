package sqlite

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/c2tools/sanctions/internal/export/types"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// Table is the name of the exported table.
const Table = "sanctions"

const createTable = `
	CREATE TABLE sanctions (
		id INTEGER PRIMARY KEY,
		kind TEXT NOT NULL,
		player_id TEXT NOT NULL,
		username TEXT NOT NULL,
		reason TEXT NOT NULL,
		duration_hours REAL,
		is_permanent INTEGER NOT NULL,
		moderator_id TEXT NOT NULL,
		moderator_name TEXT NOT NULL,
		applied_at TEXT NOT NULL,
		expires_at TEXT,
		is_active INTEGER NOT NULL,
		currently_active INTEGER NOT NULL,
		status TEXT NOT NULL,
		revoked_at TEXT,
		revoked_by TEXT,
		revoke_reason TEXT,
		notified_ingame INTEGER NOT NULL,
		notified_discord INTEGER NOT NULL,
		server_name TEXT,
		additional_notes TEXT NOT NULL
	);
	CREATE TABLE export_metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
`

// Exporter handles exporting sanctions to a standalone SQLite database.
type Exporter struct {
	path string
}

// New creates a new SQLite exporter instance writing to path.
func New(path string) *Exporter {
	return &Exporter{path: path}
}

// Export writes the records and run metadata to a fresh database file,
// replacing any existing one.
func (e *Exporter) Export(records []*types.ExportRecord, meta *types.Metadata) error {
	if err := os.MkdirAll(filepath.Dir(e.path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// Remove existing file if it exists
	if err := os.Remove(e.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove existing file %s: %w", e.path, err)
	}

	// Open database
	conn, err := sqlite.OpenConn(e.path, sqlite.OpenCreate|sqlite.OpenReadWrite)
	if err != nil {
		return fmt.Errorf("failed to open SQLite database: %w", err)
	}
	defer conn.Close()

	// Create tables
	if err := sqlitex.ExecuteScript(conn, createTable, nil); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	if meta != nil {
		if err := writeMetadata(conn, meta); err != nil {
			return err
		}
	}

	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		Table,
		strings.Join(types.Columns, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(types.Columns)), ", "))

	// Insert records in batches
	const batchSize = 1000
	for i := 0; i < len(records); i += batchSize {
		end := min(i+batchSize, len(records))

		if err := insertBatch(conn, insert, records[i:end]); err != nil {
			return err
		}
	}

	return nil
}

// insertBatch writes one batch inside a transaction.
func insertBatch(conn *sqlite.Conn, insert string, records []*types.ExportRecord) (err error) {
	endFn, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer endFn(&err)

	for _, record := range records {
		err = sqlitex.Execute(conn, insert, &sqlitex.ExecOptions{
			Args: sqliteArgs(record.Values()),
		})
		if err != nil {
			return fmt.Errorf("failed to insert record %d: %w", record.ID, err)
		}
	}

	return nil
}

func writeMetadata(conn *sqlite.Conn, meta *types.Metadata) error {
	rows := [][2]string{
		{"export_id", meta.ExportID},
		{"exported_at", meta.ExportedAt.UTC().Format(types.TimeLayout)},
		{"engine_version", meta.EngineVersion},
		{"count", fmt.Sprint(meta.Count)},
	}

	for _, row := range rows {
		err := sqlitex.Execute(conn, "INSERT INTO export_metadata (key, value) VALUES (?, ?)", &sqlitex.ExecOptions{
			Args: []any{row[0], row[1]},
		})
		if err != nil {
			return fmt.Errorf("failed to write metadata: %w", err)
		}
	}

	return nil
}

// sqliteArgs stores booleans as 0 or 1.
func sqliteArgs(values []any) []any {
	for i, v := range values {
		if b, ok := v.(bool); ok {
			if b {
				values[i] = int64(1)
			} else {
				values[i] = int64(0)
			}
		}
	}
	return values
}
