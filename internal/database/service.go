package database

import (
	"github.com/c2tools/sanctions/internal/database/service"
	"go.uber.org/zap"
)

// Service provides access to all business logic services.
type Service struct {
	sanction *service.SanctionService
	query    *service.QueryService
	stats    *service.StatsService
}

// NewService creates a new service instance with all services.
func NewService(repository *Repository, clock service.Clock, logger *zap.Logger) *Service {
	sanctionModel := repository.Sanction()
	statsModel := repository.Stats()

	return &Service{
		sanction: service.NewSanction(sanctionModel, clock, logger),
		query:    service.NewQuery(sanctionModel, clock, logger),
		stats:    service.NewStats(statsModel, clock, logger),
	}
}

// Sanction returns the sanction lifecycle service.
func (s *Service) Sanction() *service.SanctionService {
	return s.sanction
}

// Query returns the query service.
func (s *Service) Query() *service.QueryService {
	return s.query
}

// Stats returns the stats service.
func (s *Service) Stats() *service.StatsService {
	return s.stats
}
