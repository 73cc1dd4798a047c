package database

import (
	"github.com/c2tools/sanctions/internal/database/backend"
	"github.com/c2tools/sanctions/internal/database/models"
	"go.uber.org/zap"
)

// Repository provides access to all database models.
type Repository struct {
	sanction *models.SanctionModel
	stats    *models.StatsModel
}

// NewRepository creates a new repository instance with all models.
func NewRepository(conn *backend.Connector, logger *zap.Logger) *Repository {
	return &Repository{
		sanction: models.NewSanction(conn, logger),
		stats:    models.NewStats(conn, logger),
	}
}

// Sanction returns the sanction model repository.
func (r *Repository) Sanction() *models.SanctionModel {
	return r.sanction
}

// Stats returns the stats model repository.
func (r *Repository) Stats() *models.StatsModel {
	return r.stats
}
