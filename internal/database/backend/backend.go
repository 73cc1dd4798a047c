// Package backend opens and pools connections to one configured relational
// backend and hands out transactional sessions over it.
package backend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/c2tools/sanctions/internal/database/dbretry"
	"github.com/c2tools/sanctions/internal/database/schema"
	"github.com/c2tools/sanctions/internal/database/types"
	"github.com/c2tools/sanctions/internal/setup/config"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/extra/bunjson"
	"github.com/uptrace/bun/extra/bunotel"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// sonicProvider is a JSON provider that uses Sonic for encoding and decoding.
type sonicProvider struct{}

func (sonicProvider) Marshal(v any) ([]byte, error) {
	return sonic.Marshal(v)
}

func (sonicProvider) Unmarshal(data []byte, v any) error {
	return sonic.Unmarshal(data, v)
}

func (sonicProvider) NewEncoder(w io.Writer) bunjson.Encoder {
	return sonic.ConfigDefault.NewEncoder(w)
}

func (sonicProvider) NewDecoder(r io.Reader) bunjson.Decoder {
	return sonic.ConfigDefault.NewDecoder(r)
}

var providerOnce sync.Once

// SessionFunc is one unit of work. The context it receives carries the
// session, so store calls made with it join the same transaction.
type SessionFunc func(ctx context.Context, db bun.IDB) error

// sessionKey marks a context that already runs inside a session of conn.
type sessionKey struct{}

type session struct {
	conn *Connector
	tx   bun.Tx
}

// Connector drives one Backend variant behind a bounded connection pool.
type Connector struct {
	backend     Backend
	logger      *zap.Logger
	queryLogger *zap.Logger
	sem         *semaphore.Weighted
	poolTimeout time.Duration

	mu     sync.RWMutex
	db     *bun.DB
	closed bool
}

// New validates the configuration and returns a connector for the selected
// variant. No connection is made until Open.
func New(cfg *config.Database, logger *zap.Logger) (*Connector, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: missing database section", types.ErrConfiguration)
	}

	backend, err := NewBackend(cfg)
	if err != nil {
		return nil, err
	}

	return NewWithBackend(backend, time.Duration(cfg.PoolTimeoutMS)*time.Millisecond, logger), nil
}

// NewWithBackend returns a connector for an already validated backend.
func NewWithBackend(backend Backend, poolTimeout time.Duration, logger *zap.Logger) *Connector {
	return &Connector{
		backend:     backend,
		logger:      logger.Named("db_connector"),
		queryLogger: logger.Named("db_query"),
		sem:         semaphore.NewWeighted(int64(backend.Capacity())),
		poolTimeout: poolTimeout,
	}
}

// Name returns the backend variant in use.
func (c *Connector) Name() string {
	return c.backend.Name()
}

// Open establishes the pool and ensures the schema exists. Calling Open on an
// open connector does nothing.
func (c *Connector) Open(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return types.ErrClosed
	}

	if c.db != nil {
		return nil
	}

	providerOnce.Do(func() {
		bunjson.SetProvider(sonicProvider{})
	})

	db, err := c.backend.Connect()
	if err != nil {
		return fmt.Errorf("%w: %w", types.ErrConnection, err)
	}

	db.AddQueryHook(NewQueryLogger(c.queryLogger, c.backend.Name(), DefaultSlowQuery))
	db.AddQueryHook(bunotel.NewQueryHook(bunotel.WithDBName(c.backend.Name())))

	pingCtx, cancel := context.WithTimeout(ctx, c.poolTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %s backend unreachable: %w", types.ErrConnection, c.backend.Name(), err)
	}

	if err := schema.Ensure(ctx, db); err != nil {
		_ = db.Close()
		if dbretry.IsConnectionError(err) {
			return fmt.Errorf("%w: %w", types.ErrConnection, err)
		}
		return err
	}

	c.db = db

	c.logger.Info("Database connection established",
		zap.String("backend", c.backend.Name()),
		zap.Int("capacity", c.backend.Capacity()),
		zap.Duration("pool_timeout", c.poolTimeout))

	return nil
}

// Session runs fn as one unit of work inside a transaction. The transaction
// commits when fn returns nil and rolls back on any error, panic or
// cancellation. A ctx that already carries a session of this connector
// reuses it instead of starting another, so nested calls stay atomic.
func (c *Connector) Session(ctx context.Context, fn SessionFunc) error {
	if s, ok := ctx.Value(sessionKey{}).(*session); ok && s.conn == c {
		return fn(ctx, s.tx)
	}

	db, err := c.handle()
	if err != nil {
		return err
	}

	if err := c.acquire(ctx); err != nil {
		return err
	}
	defer c.sem.Release(1)

	err = dbretry.NoResult(ctx, func(ctx context.Context) error {
		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			return fn(context.WithValue(ctx, sessionKey{}, &session{conn: c, tx: tx}), tx)
		})
	})

	return c.classify(err)
}

// Close releases every pooled connection. Later sessions fail with ErrClosed.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if c.db == nil {
		return nil
	}

	err := c.db.Close()
	c.db = nil
	if err != nil {
		c.logger.Error("Failed to close database connection", zap.Error(err))
		return err
	}

	c.logger.Info("Database connection closed")

	return nil
}

// HealthCheck performs a round trip and reports whether it succeeded.
// Unavailability is logged, never returned.
func (c *Connector) HealthCheck(ctx context.Context) bool {
	db, err := c.handle()
	if err != nil {
		return false
	}

	if err := c.acquire(ctx); err != nil {
		c.logger.Warn("Health check could not get a connection", zap.Error(err))
		return false
	}
	defer c.sem.Release(1)

	var one int
	if err := db.NewRaw("SELECT 1").Scan(ctx, &one); err != nil {
		c.logger.Warn("Health check failed", zap.Error(err))
		return false
	}

	return one == 1
}

// DB returns the underlying bun.DB, or nil when the connector is not open.
func (c *Connector) DB() *bun.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}

func (c *Connector) handle() (*bun.DB, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, types.ErrClosed
	}

	if c.db == nil {
		return nil, fmt.Errorf("%w: connector is not open", types.ErrClosed)
	}

	return c.db, nil
}

// acquire takes one slot of the pool, waiting at most the pool timeout.
func (c *Connector) acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, c.poolTimeout)
	defer cancel()

	if err := c.sem.Acquire(waitCtx, 1); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: no connection free after %s", types.ErrPoolExhausted, c.poolTimeout)
	}

	return nil
}

// classify maps backend failures onto the engine's error taxonomy.
func (c *Connector) classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrConnDone), dbretry.IsConnectionError(err):
		if errors.Is(err, types.ErrConnection) {
			return err
		}
		return fmt.Errorf("%w: %w", types.ErrConnection, err)
	default:
		return err
	}
}
