package backend

import (
	"crypto/tls"
	"database/sql"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/c2tools/sanctions/internal/database/types"
	"github.com/c2tools/sanctions/internal/setup/config"
	"github.com/go-sql-driver/mysql"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory embedded store.
const MemoryPath = ":memory:"

// Backend is one persistence variant the connector can drive.
type Backend interface {
	// Name identifies the variant in logs and traces.
	Name() string
	// Capacity is the number of connections that may be in use at once.
	Capacity() int
	// Connect builds the pooled handle. It does not dial.
	Connect() (*bun.DB, error)
}

// NewBackend validates cfg and returns the variant it selects.
func NewBackend(cfg *config.Database) (Backend, error) {
	if cfg.PoolTimeoutMS <= 0 {
		return nil, fmt.Errorf("%w: pool_timeout_ms must be positive", types.ErrConfiguration)
	}

	switch cfg.Type.Normalize() {
	case config.DatabaseEmbedded:
		if strings.TrimSpace(cfg.Path) == "" {
			return nil, fmt.Errorf("%w: embedded backend requires path", types.ErrConfiguration)
		}
		return &Embedded{Path: cfg.Path}, nil

	case config.DatabaseNetworked:
		_, engine := cfg.Resolve()
		if engine != config.EnginePostgres && engine != config.EngineMySQL {
			return nil, fmt.Errorf("%w: unknown database engine %q", types.ErrConfiguration, cfg.Engine)
		}

		var missing []string
		if strings.TrimSpace(cfg.Host) == "" {
			missing = append(missing, "host")
		}
		if strings.TrimSpace(cfg.Database) == "" {
			missing = append(missing, "database")
		}
		if strings.TrimSpace(cfg.Username) == "" {
			missing = append(missing, "username")
		}
		if len(missing) > 0 {
			return nil, fmt.Errorf("%w: networked backend requires %s",
				types.ErrConfiguration, strings.Join(missing, ", "))
		}

		port := cfg.Port
		if port == 0 {
			port = engine.DefaultPort()
		}
		if port < 0 || port > 65535 {
			return nil, fmt.Errorf("%w: invalid port %d", types.ErrConfiguration, cfg.Port)
		}
		if cfg.PoolSize < 1 {
			return nil, fmt.Errorf("%w: pool_size must be at least 1", types.ErrConfiguration)
		}
		if cfg.MaxOverflow < 0 {
			return nil, fmt.Errorf("%w: max_overflow must not be negative", types.ErrConfiguration)
		}

		return &Networked{
			Engine:      engine,
			Host:        cfg.Host,
			Port:        port,
			Database:    cfg.Database,
			Username:    cfg.Username,
			Password:    cfg.Password,
			PoolSize:    cfg.PoolSize,
			MaxOverflow: cfg.MaxOverflow,
			DialTimeout: time.Duration(cfg.PoolTimeoutMS) * time.Millisecond,
			TLSRequired: cfg.TLSRequired,
		}, nil

	case "":
		return nil, fmt.Errorf("%w: database type is required", types.ErrConfiguration)

	default:
		return nil, fmt.Errorf("%w: unknown database type %q", types.ErrConfiguration, cfg.Type)
	}
}

// Embedded is a single-file store opened in process.
type Embedded struct {
	Path string
}

func (e *Embedded) Name() string { return "embedded" }

// Capacity is one: the file accepts a single writer and an in-memory store
// exists only for the connection that created it.
func (e *Embedded) Capacity() int { return 1 }

func (e *Embedded) Connect() (*bun.DB, error) {
	dsn := e.Path
	if e.Path != MemoryPath {
		if dir := filepath.Dir(e.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		dsn = "file:" + e.Path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded store: %w", err)
	}

	// The connection must never be recycled or an in-memory store is lost
	sqldb.SetMaxOpenConns(1)
	sqldb.SetMaxIdleConns(1)
	sqldb.SetConnMaxLifetime(0)
	sqldb.SetConnMaxIdleTime(0)

	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

// Networked is a PostgreSQL or MySQL server reached over TCP.
type Networked struct {
	Engine      config.DatabaseEngine
	Host        string
	Port        int
	Database    string
	Username    string
	Password    string
	PoolSize    int
	MaxOverflow int
	DialTimeout time.Duration
	TLSRequired bool
}

func (n *Networked) Name() string { return "networked" }

// Capacity allows max_overflow connections beyond the idle pool.
func (n *Networked) Capacity() int { return n.PoolSize + n.MaxOverflow }

func (n *Networked) Connect() (*bun.DB, error) {
	var db *bun.DB
	switch n.Engine {
	case config.EngineMySQL:
		connector, err := mysql.NewConnector(n.mysqlConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to build mysql connector: %w", err)
		}
		db = bun.NewDB(sql.OpenDB(connector), mysqldialect.New())
	case config.EnginePostgres, "":
		db = bun.NewDB(sql.OpenDB(pgdriver.NewConnector(n.pgOptions()...)), pgdialect.New())
	default:
		return nil, fmt.Errorf("%w: unknown database engine %q", types.ErrConfiguration, n.Engine)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(n.Capacity())
	db.SetMaxIdleConns(n.PoolSize)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return db, nil
}

func (n *Networked) pgOptions() []pgdriver.Option {
	opts := []pgdriver.Option{
		pgdriver.WithAddr(net.JoinHostPort(n.Host, strconv.Itoa(n.Port))),
		pgdriver.WithUser(n.Username),
		pgdriver.WithPassword(n.Password),
		pgdriver.WithDatabase(n.Database),
		pgdriver.WithApplicationName("sanctions"),
		pgdriver.WithDialTimeout(n.DialTimeout),
	}

	if n.TLSRequired {
		opts = append(opts, pgdriver.WithTLSConfig(&tls.Config{
			ServerName: n.Host,
			MinVersion: tls.VersionTLS12,
		}))
	} else {
		opts = append(opts, pgdriver.WithInsecure(true))
	}

	return opts
}

// mysqlConfig reports matched rather than changed rows so an update that
// rewrites a field with its current value still counts as found.
func (n *Networked) mysqlConfig() *mysql.Config {
	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(n.Host, strconv.Itoa(n.Port))
	cfg.User = n.Username
	cfg.Passwd = n.Password
	cfg.DBName = n.Database
	cfg.Timeout = n.DialTimeout
	cfg.ClientFoundRows = true
	cfg.Params = map[string]string{"charset": "utf8mb4"}

	if n.TLSRequired {
		cfg.TLS = &tls.Config{
			ServerName: n.Host,
			MinVersion: tls.VersionTLS12,
		}
	}

	return cfg
}
