package service

import (
	"context"
	"fmt"
	"time"

	"github.com/c2tools/sanctions/internal/database/models"
	"github.com/c2tools/sanctions/internal/database/types"
	"go.uber.org/zap"
)

// StatsService handles statistics-related business logic.
type StatsService struct {
	model  *models.StatsModel
	now    Clock
	logger *zap.Logger
}

// NewStats creates a new stats service. A nil clock uses time.Now.
func NewStats(model *models.StatsModel, now Clock, logger *zap.Logger) *StatsService {
	if now == nil {
		now = time.Now
	}

	return &StatsService{
		model:  model,
		now:    now,
		logger: logger.Named("stats_service"),
	}
}

// GetStatistics computes the current sanction statistics.
func (s *StatsService) GetStatistics(ctx context.Context) (*types.Statistics, error) {
	stats, err := s.model.Aggregate(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to get statistics: %w", err)
	}

	return stats, nil
}
