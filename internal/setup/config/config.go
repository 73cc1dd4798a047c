package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var (
	ErrConfigFileNotFound    = errors.New("could not find config file in any config path")
	ErrConfigVersionMissing  = errors.New("config file is missing version field")
	ErrConfigVersionMismatch = errors.New("config file version mismatch")
	ErrUnsupportedFormat     = errors.New("unsupported config file format")
)

// CurrentVersion is the current version of the config file.
const CurrentVersion = 1

// EnvPrefix prefixes environment overrides, e.g. SANCTIONS_DATABASE__PASSWORD.
const EnvPrefix = "SANCTIONS_"

// DatabaseType selects a backend variant.
type DatabaseType string

const (
	// DatabaseEmbedded is a single-file store opened in process.
	DatabaseEmbedded DatabaseType = "embedded"
	// DatabaseNetworked is a relational server reached over TCP.
	DatabaseNetworked DatabaseType = "networked"
)

// Normalize maps legacy backend names onto the two supported variants.
func (t DatabaseType) Normalize() DatabaseType {
	switch strings.ToLower(strings.TrimSpace(string(t))) {
	case "embedded", "sqlite", "sqlite3":
		return DatabaseEmbedded
	case "networked", "postgresql", "postgres", "mysql", "mariadb":
		return DatabaseNetworked
	default:
		return t
	}
}

// DatabaseEngine selects the server software behind a networked backend.
type DatabaseEngine string

const (
	EnginePostgres DatabaseEngine = "postgres"
	EngineMySQL    DatabaseEngine = "mysql"
)

// Normalize maps engine aliases onto the supported engines. Unknown values
// are returned unchanged.
func (e DatabaseEngine) Normalize() DatabaseEngine {
	switch strings.ToLower(strings.TrimSpace(string(e))) {
	case "postgres", "postgresql", "pg":
		return EnginePostgres
	case "mysql", "mariadb":
		return EngineMySQL
	default:
		return e
	}
}

// DefaultPort returns the port the engine listens on by default.
func (e DatabaseEngine) DefaultPort() int {
	if e == EngineMySQL {
		return 3306
	}
	return 5432
}

// Resolve returns the backend variant and, for a networked backend, its
// engine. An explicit engine wins; otherwise the legacy type alias decides
// and PostgreSQL is the fallback.
func (d *Database) Resolve() (DatabaseType, DatabaseEngine) {
	kind := d.Type.Normalize()
	if kind != DatabaseNetworked {
		return kind, ""
	}

	if d.Engine != "" {
		return kind, d.Engine.Normalize()
	}

	if DatabaseEngine(d.Type).Normalize() == EngineMySQL {
		return kind, EngineMySQL
	}

	return kind, EnginePostgres
}

// Config represents the entire application configuration.
type Config struct {
	// Version of the config file.
	Version  int      `koanf:"version"`
	Debug    Debug    `koanf:"debug"`
	Database Database `koanf:"database"`
}

// Debug contains logging configuration.
type Debug struct {
	// Log level (debug, info, warn, error).
	LogLevel string `koanf:"log_level"`
	// Maximum log sessions to keep.
	MaxLogsToKeep int `koanf:"max_logs_to_keep"`
	// Maximum lines per log file.
	MaxLogLines int `koanf:"max_log_lines"`
}

// Database contains backend connection configuration.
type Database struct {
	// Backend variant: embedded or networked.
	Type DatabaseType `koanf:"type"`
	// Database file path (embedded).
	Path string `koanf:"path"`
	// Server engine: postgres or mysql (networked).
	Engine DatabaseEngine `koanf:"engine"`
	// Database hostname (networked).
	Host string `koanf:"host"`
	// Database port (networked).
	Port int `koanf:"port"`
	// Database name (networked).
	Database string `koanf:"database"`
	// Database username (networked).
	Username string `koanf:"username"`
	// Database password (networked).
	Password string `koanf:"password"`
	// Connections kept open while idle (networked).
	PoolSize int `koanf:"pool_size"`
	// Connections allowed beyond pool_size under load (networked).
	MaxOverflow int `koanf:"max_overflow"`
	// Maximum wait for a free connection in milliseconds.
	PoolTimeoutMS int `koanf:"pool_timeout_ms"`
	// Require TLS to the server (networked).
	TLSRequired bool `koanf:"tls_required"`
}

// Defaults returns the values used for keys missing from every source.
func Defaults() map[string]any {
	return map[string]any{
		"debug.log_level":          "info",
		"debug.max_logs_to_keep":   10,
		"debug.max_log_lines":      10000,
		"database.type":            string(DatabaseEmbedded),
		"database.path":            "sanctions.db",
		"database.pool_size":       5,
		"database.max_overflow":    10,
		"database.pool_timeout_ms": 30000,
	}
}

// LoadConfig loads the configuration. An explicit path is used as is;
// otherwise config.toml and then database_config.json are searched in the
// standard config paths. Returns the config along with the used config path.
func LoadConfig(path string) (*Config, string, error) {
	if path == "" {
		found, err := findConfigFile()
		if err != nil {
			return nil, "", err
		}
		path = found
	}

	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, "", fmt.Errorf("error loading config defaults: %w", err)
	}

	parser, err := parserFor(path)
	if err != nil {
		return nil, "", err
	}

	legacy, err := loadFile(k, path, parser)
	if err != nil {
		return nil, "", fmt.Errorf("error loading config file %s: %w", path, err)
	}

	// SANCTIONS_DATABASE__PASSWORD -> database.password
	err = k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil)
	if err != nil {
		return nil, "", fmt.Errorf("error loading environment overrides: %w", err)
	}

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, "", fmt.Errorf("error unmarshaling config: %w", err)
	}

	if legacy {
		config.Version = CurrentVersion
	} else if err := checkConfigVersion(filepath.Base(path), config.Version, CurrentVersion); err != nil {
		return nil, "", err
	}

	kind, engine := config.Database.Resolve()
	config.Database.Type, config.Database.Engine = kind, engine

	if kind == DatabaseNetworked && config.Database.Port == 0 {
		config.Database.Port = engine.DefaultPort()
	}

	return &config, path, nil
}

// loadFile merges the config file into k and reports whether it used the
// legacy layout. database_config.json files were written as one flat object
// with a top-level type and no version; their keys belong to the database
// section and pool_timeout is in seconds.
func loadFile(k *koanf.Koanf, path string, parser koanf.Parser) (bool, error) {
	f := koanf.New(".")
	if err := f.Load(file.Provider(path), parser); err != nil {
		return false, err
	}

	if !f.Exists("type") {
		return false, k.Merge(f)
	}

	section, err := legacyDatabaseSection(f.Raw())
	if err != nil {
		return true, err
	}

	return true, k.Load(confmap.Provider(section, "."), nil)
}

// legacyDatabaseSection moves flat legacy keys under database. Networked
// settings the legacy file left out get the values it used to assume.
func legacyDatabaseSection(raw map[string]any) (map[string]any, error) {
	section := make(map[string]any, len(raw)+3)

	for key, value := range raw {
		if key != "pool_timeout" {
			section["database."+key] = value
			continue
		}

		var seconds float64
		switch v := value.(type) {
		case float64:
			seconds = v
		case int:
			seconds = float64(v)
		case int64:
			seconds = float64(v)
		default:
			return nil, fmt.Errorf("pool_timeout must be a number of seconds, got %T", value)
		}
		section["database.pool_timeout_ms"] = int(seconds * 1000)
	}

	legacy := &Database{Type: DatabaseType(fmt.Sprint(raw["type"]))}
	if kind, engine := legacy.Resolve(); kind == DatabaseNetworked {
		username := "postgres"
		if engine == EngineMySQL {
			username = "root"
		}

		for key, value := range map[string]any{
			"database.host":     "localhost",
			"database.database": "sanctions",
			"database.username": username,
		} {
			if _, ok := section[key]; !ok {
				section[key] = value
			}
		}
	}

	return section, nil
}

// findConfigFile searches the standard config paths.
func findConfigFile() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	configPaths := []string{
		".sanctions",
		homeDir + "/.sanctions/config",
		"/etc/sanctions/config",
		"config",
		".",
	}

	for _, name := range []string{"config.toml", "database_config.json"} {
		for _, dir := range configPaths {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}
	}

	return "", fmt.Errorf("%w: config.toml", ErrConfigFileNotFound)
}

// parserFor picks a koanf parser from the file extension.
func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return toml.Parser(), nil
	case ".json":
		return json.Parser(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// checkConfigVersion checks if the config file version is correct.
func checkConfigVersion(name string, current, expected int) error {
	if current == 0 {
		return fmt.Errorf("%w: %s", ErrConfigVersionMissing, name)
	}

	if current != expected {
		return fmt.Errorf("%w: %s (got: %d, expected: %d)",
			ErrConfigVersionMismatch, name, current, expected)
	}

	return nil
}
