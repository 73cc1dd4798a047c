package backend_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/c2tools/sanctions/internal/database/backend"
	"github.com/c2tools/sanctions/internal/database/schema"
	"github.com/c2tools/sanctions/internal/database/types"
	"github.com/c2tools/sanctions/internal/setup/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"go.uber.org/zap/zaptest"
)

func openMemory(t *testing.T, poolTimeout time.Duration) *backend.Connector {
	t.Helper()

	conn := backend.NewWithBackend(&backend.Embedded{Path: backend.MemoryPath}, poolTimeout, zaptest.NewLogger(t))
	require.NoError(t, conn.Open(t.Context()))
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func insertRow(ctx context.Context, db bun.IDB, playerID string) error {
	row := &schema.SanctionRow{
		Kind:          "kick",
		PlayerID:      playerID,
		Username:      "someone",
		Reason:        "test",
		ModeratorID:   "mod-1",
		ModeratorName: "Mod",
		AppliedAt:     time.Now().UnixMilli(),
		IsActive:      true,
	}
	_, err := db.NewInsert().Model(row).Exec(ctx)
	return err
}

func countRows(t *testing.T, conn *backend.Connector) int {
	t.Helper()

	var count int
	err := conn.Session(t.Context(), func(ctx context.Context, db bun.IDB) error {
		var err error
		count, err = db.NewSelect().Model((*schema.SanctionRow)(nil)).Count(ctx)
		return err
	})
	require.NoError(t, err)

	return count
}

func TestNew_Configuration(t *testing.T) {
	t.Parallel()

	networked := func(mutate func(*config.Database)) *config.Database {
		cfg := &config.Database{
			Type:          config.DatabaseNetworked,
			Host:          "db.internal",
			Port:          5432,
			Database:      "sanctions",
			Username:      "mod",
			PoolSize:      5,
			MaxOverflow:   10,
			PoolTimeoutMS: 1000,
		}
		mutate(cfg)
		return cfg
	}

	tests := []struct {
		name    string
		cfg     *config.Database
		wantErr bool
	}{
		{name: "nil config", cfg: nil, wantErr: true},
		{name: "missing type", cfg: &config.Database{Path: "a.db", PoolTimeoutMS: 1000}, wantErr: true},
		{name: "unknown type", cfg: &config.Database{Type: "oracle", PoolTimeoutMS: 1000}, wantErr: true},
		{name: "embedded without path", cfg: &config.Database{Type: config.DatabaseEmbedded, PoolTimeoutMS: 1000}, wantErr: true},
		{name: "embedded", cfg: &config.Database{Type: config.DatabaseEmbedded, Path: "a.db", PoolTimeoutMS: 1000}},
		{name: "legacy sqlite alias", cfg: &config.Database{Type: "sqlite", Path: "a.db", PoolTimeoutMS: 1000}},
		{name: "networked", cfg: networked(func(*config.Database) {})},
		{name: "networked mysql", cfg: networked(func(c *config.Database) { c.Engine = config.EngineMySQL })},
		{name: "legacy mariadb alias", cfg: networked(func(c *config.Database) { c.Type = "mariadb" })},
		{name: "networked unknown engine", cfg: networked(func(c *config.Database) { c.Engine = "oracle" }), wantErr: true},
		{name: "networked without host", cfg: networked(func(c *config.Database) { c.Host = "" }), wantErr: true},
		{name: "networked without credentials", cfg: networked(func(c *config.Database) { c.Username = "" }), wantErr: true},
		{name: "networked bad port", cfg: networked(func(c *config.Database) { c.Port = 70000 }), wantErr: true},
		{name: "networked empty pool", cfg: networked(func(c *config.Database) { c.PoolSize = 0 }), wantErr: true},
		{name: "networked negative overflow", cfg: networked(func(c *config.Database) { c.MaxOverflow = -1 }), wantErr: true},
		{name: "zero pool timeout", cfg: networked(func(c *config.Database) { c.PoolTimeoutMS = 0 }), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			conn, err := backend.New(tt.cfg, zaptest.NewLogger(t))
			if tt.wantErr {
				require.ErrorIs(t, err, types.ErrConfiguration)
				assert.Nil(t, conn)
				return
			}

			require.NoError(t, err)
			assert.NotNil(t, conn)
		})
	}
}

func TestNetworked_Capacity(t *testing.T) {
	t.Parallel()

	b, err := backend.NewBackend(&config.Database{
		Type: "postgresql", Host: "h", Port: 5432, Database: "d", Username: "u",
		PoolSize: 3, MaxOverflow: 4, PoolTimeoutMS: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, "networked", b.Name())
	assert.Equal(t, 7, b.Capacity())
}

func TestNetworked_Engine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		cfg         *config.Database
		wantEngine  config.DatabaseEngine
		wantPort    int
		wantDialect dialect.Name
	}{
		{
			name:        "postgres by default",
			cfg:         &config.Database{Type: config.DatabaseNetworked},
			wantEngine:  config.EnginePostgres,
			wantPort:    5432,
			wantDialect: dialect.PG,
		},
		{
			name:        "mysql engine",
			cfg:         &config.Database{Type: config.DatabaseNetworked, Engine: "mysql"},
			wantEngine:  config.EngineMySQL,
			wantPort:    3306,
			wantDialect: dialect.MySQL,
		},
		{
			name:        "mariadb type alias",
			cfg:         &config.Database{Type: "mariadb"},
			wantEngine:  config.EngineMySQL,
			wantPort:    3306,
			wantDialect: dialect.MySQL,
		},
		{
			name:        "explicit port",
			cfg:         &config.Database{Type: "mysql", Port: 3307},
			wantEngine:  config.EngineMySQL,
			wantPort:    3307,
			wantDialect: dialect.MySQL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tt.cfg.Host = "db.internal"
			tt.cfg.Database = "sanctions"
			tt.cfg.Username = "mod"
			tt.cfg.PoolSize = 2
			tt.cfg.MaxOverflow = 1
			tt.cfg.PoolTimeoutMS = 100

			b, err := backend.NewBackend(tt.cfg)
			require.NoError(t, err)

			networked, ok := b.(*backend.Networked)
			require.True(t, ok)
			assert.Equal(t, tt.wantEngine, networked.Engine)
			assert.Equal(t, tt.wantPort, networked.Port)

			// Connect builds the pool without dialing
			db, err := b.Connect()
			require.NoError(t, err)
			t.Cleanup(func() { _ = db.Close() })

			assert.Equal(t, tt.wantDialect, db.Dialect().Name())
			assert.Equal(t, 3, db.Stats().MaxOpenConnections)
		})
	}
}

func TestConnector_OpenIsIdempotent(t *testing.T) {
	t.Parallel()

	conn := openMemory(t, time.Second)
	require.NoError(t, insertRow(t.Context(), conn.DB(), "p-1"))

	// A second open keeps the same store
	require.NoError(t, conn.Open(t.Context()))
	assert.Equal(t, 1, countRows(t, conn))
}

func TestConnector_Closed(t *testing.T) {
	t.Parallel()

	conn := backend.NewWithBackend(&backend.Embedded{Path: backend.MemoryPath}, time.Second, zaptest.NewLogger(t))

	noop := func(context.Context, bun.IDB) error { return nil }

	// Not yet open
	require.ErrorIs(t, conn.Session(t.Context(), noop), types.ErrClosed)
	assert.False(t, conn.HealthCheck(t.Context()))

	require.NoError(t, conn.Open(t.Context()))
	assert.True(t, conn.HealthCheck(t.Context()))

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())

	require.ErrorIs(t, conn.Session(t.Context(), noop), types.ErrClosed)
	require.ErrorIs(t, conn.Open(t.Context()), types.ErrClosed)
	assert.False(t, conn.HealthCheck(t.Context()))
	assert.Nil(t, conn.DB())
}

func TestConnector_SessionRollsBack(t *testing.T) {
	t.Parallel()

	conn := openMemory(t, time.Second)
	errAbort := errors.New("abort")

	err := conn.Session(t.Context(), func(ctx context.Context, db bun.IDB) error {
		require.NoError(t, insertRow(ctx, db, "p-1"))
		return errAbort
	})
	require.ErrorIs(t, err, errAbort)
	assert.Equal(t, 0, countRows(t, conn))

	err = conn.Session(t.Context(), func(ctx context.Context, db bun.IDB) error {
		return insertRow(ctx, db, "p-1")
	})
	require.NoError(t, err)
	assert.Equal(t, 1, countRows(t, conn))
}

func TestConnector_NestedSessionReusesTransaction(t *testing.T) {
	t.Parallel()

	// Capacity is one, so a nested call that started its own unit of work
	// would wait for the outer one and fail with ErrPoolExhausted.
	conn := openMemory(t, 50*time.Millisecond)

	err := conn.Session(t.Context(), func(ctx context.Context, db bun.IDB) error {
		if err := insertRow(ctx, db, "p-1"); err != nil {
			return err
		}

		return conn.Session(ctx, func(ctx context.Context, inner bun.IDB) error {
			count, err := inner.NewSelect().Model((*schema.SanctionRow)(nil)).Count(ctx)
			if err != nil {
				return err
			}
			assert.Equal(t, 1, count, "nested session must see the outer uncommitted insert")
			return nil
		})
	})
	require.NoError(t, err)
}

func TestConnector_PoolExhausted(t *testing.T) {
	t.Parallel()

	conn := openMemory(t, 50*time.Millisecond)

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- conn.Session(context.Background(), func(context.Context, bun.IDB) error {
			close(started)
			<-release
			return nil
		})
	}()

	<-started

	err := conn.Session(t.Context(), func(context.Context, bun.IDB) error { return nil })
	require.ErrorIs(t, err, types.ErrPoolExhausted)
	assert.False(t, conn.HealthCheck(t.Context()))

	close(release)
	require.NoError(t, <-done)

	// The slot is returned once the holder finishes
	require.NoError(t, conn.Session(t.Context(), func(context.Context, bun.IDB) error { return nil }))
}

func TestConnector_CanceledCaller(t *testing.T) {
	t.Parallel()

	conn := openMemory(t, time.Second)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	err := conn.Session(ctx, func(ctx context.Context, db bun.IDB) error {
		return insertRow(ctx, db, "p-1")
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, countRows(t, conn))
}

func TestConnector_EmbeddedFilePersists(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "sanctions.db")
	cfg := &config.Database{Type: config.DatabaseEmbedded, Path: path, PoolTimeoutMS: 1000}

	first, err := backend.New(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, first.Open(t.Context()))
	require.NoError(t, first.Session(t.Context(), func(ctx context.Context, db bun.IDB) error {
		return insertRow(ctx, db, "p-1")
	}))
	require.NoError(t, first.Close())

	second, err := backend.New(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, second.Open(t.Context()))
	t.Cleanup(func() { _ = second.Close() })

	assert.Equal(t, 1, countRows(t, second))
}

func TestConnector_UnreachableServer(t *testing.T) {
	t.Parallel()

	conn, err := backend.New(&config.Database{
		Type:          config.DatabaseNetworked,
		Host:          "127.0.0.1",
		Port:          1,
		Database:      "sanctions",
		Username:      "mod",
		PoolSize:      1,
		PoolTimeoutMS: 500,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	require.ErrorIs(t, conn.Open(t.Context()), types.ErrConnection)
	assert.False(t, conn.HealthCheck(t.Context()))
}
