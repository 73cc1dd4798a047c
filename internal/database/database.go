package database

import (
	"context"

	"github.com/c2tools/sanctions/internal/database/backend"
	"github.com/c2tools/sanctions/internal/database/service"
	"github.com/c2tools/sanctions/internal/setup/config"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Client defines the methods that a database client must implement.
type Client interface {
	// Model returns the repository containing all model operations.
	Model() *Repository
	// Service returns the service containing all service operations.
	Service() *Service
	// HealthCheck reports whether the backend answers a round trip.
	HealthCheck(ctx context.Context) bool
	// Backend returns the name of the backend variant in use.
	Backend() string
	// Close gracefully shuts down the database connection.
	Close() error
	// DB returns the underlying bun.DB instance.
	DB() *bun.DB
}

// Option adjusts how a client is built.
type Option func(*options)

type options struct {
	clock service.Clock
}

// WithClock makes every service read the time from clock.
func WithClock(clock service.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// clientImpl represents the concrete implementation of the database client.
type clientImpl struct {
	conn    *backend.Connector
	logger  *zap.Logger
	repo    *Repository
	service *Service
}

// NewConnection validates cfg, opens the configured backend, ensures the
// schema and returns a Client instance.
func NewConnection(
	ctx context.Context, cfg *config.Database, logger *zap.Logger, opts ...Option,
) (Client, error) {
	conn, err := backend.New(cfg, logger)
	if err != nil {
		return nil, err
	}

	return NewWithConnector(ctx, conn, logger, opts...)
}

// NewWithConnector opens conn and returns a Client built on it.
func NewWithConnector(
	ctx context.Context, conn *backend.Connector, logger *zap.Logger, opts ...Option,
) (Client, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if err := conn.Open(ctx); err != nil {
		return nil, err
	}

	// Create client instance
	repo := NewRepository(conn, logger)
	service := NewService(repo, o.clock, logger)

	return &clientImpl{
		conn:    conn,
		logger:  logger,
		repo:    repo,
		service: service,
	}, nil
}

// Close gracefully shuts down the database connection.
func (c *clientImpl) Close() error {
	return c.conn.Close()
}

// HealthCheck reports whether the backend answers a round trip.
func (c *clientImpl) HealthCheck(ctx context.Context) bool {
	return c.conn.HealthCheck(ctx)
}

// Backend returns the name of the backend variant in use.
func (c *clientImpl) Backend() string {
	return c.conn.Name()
}

// Model returns the repository containing all model operations.
func (c *clientImpl) Model() *Repository {
	return c.repo
}

// Service returns the service containing all service operations.
func (c *clientImpl) Service() *Service {
	return c.service
}

// DB returns the underlying bun.DB instance.
func (c *clientImpl) DB() *bun.DB {
	return c.conn.DB()
}
