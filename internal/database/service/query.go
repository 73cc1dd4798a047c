package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/c2tools/sanctions/internal/database/models"
	"github.com/c2tools/sanctions/internal/database/types"
	"go.uber.org/zap"
)

// QueryService handles filtered retrieval of sanctions.
type QueryService struct {
	model  *models.SanctionModel
	now    Clock
	logger *zap.Logger
}

// NewQuery creates a new query service. A nil clock uses time.Now.
func NewQuery(model *models.SanctionModel, now Clock, logger *zap.Logger) *QueryService {
	if now == nil {
		now = time.Now
	}

	return &QueryService{
		model:  model,
		now:    now,
		logger: logger.Named("query_service"),
	}
}

// Search returns the sanctions matching filter ordered by applied_at and
// then id, both descending. No match yields an empty slice.
func (q *QueryService) Search(ctx context.Context, filter types.SanctionFilter) ([]*types.Sanction, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	return q.model.Search(ctx, filter, q.now())
}

// Count returns how many sanctions match filter, ignoring pagination.
func (q *QueryService) Count(ctx context.Context, filter types.SanctionFilter) (int, error) {
	if err := filter.Validate(); err != nil {
		return 0, err
	}

	return q.model.Count(ctx, filter, q.now())
}

// ListActive pages through the sanctions currently in force.
func (q *QueryService) ListActive(ctx context.Context, limit, offset int) ([]*types.Sanction, error) {
	return q.Search(ctx, types.SanctionFilter{ActiveOnly: true, Limit: limit, Offset: offset})
}

// ListAll pages through every sanction.
func (q *QueryService) ListAll(ctx context.Context, limit, offset int) ([]*types.Sanction, error) {
	return q.Search(ctx, types.SanctionFilter{Limit: limit, Offset: offset})
}

// ByPlayer returns every sanction issued against playerID.
func (q *QueryService) ByPlayer(ctx context.Context, playerID string) ([]*types.Sanction, error) {
	if strings.TrimSpace(playerID) == "" {
		return nil, fmt.Errorf("%w: player_id is required", types.ErrValidation)
	}

	return q.Search(ctx, types.SanctionFilter{PlayerID: playerID})
}

// ByModerator returns every sanction issued by moderatorID.
func (q *QueryService) ByModerator(ctx context.Context, moderatorID string) ([]*types.Sanction, error) {
	if strings.TrimSpace(moderatorID) == "" {
		return nil, fmt.Errorf("%w: moderator_id is required", types.ErrValidation)
	}

	return q.Search(ctx, types.SanctionFilter{ModeratorID: moderatorID})
}
