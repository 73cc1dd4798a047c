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

// Clock returns the current time. Services take one so lifecycle decisions
// can be tested at fixed instants.
type Clock func() time.Time

// SanctionService handles the sanction lifecycle: creation, edits and
// revocation.
type SanctionService struct {
	model  *models.SanctionModel
	now    Clock
	logger *zap.Logger
}

// NewSanction creates a new sanction service. A nil clock uses time.Now.
func NewSanction(model *models.SanctionModel, now Clock, logger *zap.Logger) *SanctionService {
	if now == nil {
		now = time.Now
	}

	return &SanctionService{
		model:  model,
		now:    now,
		logger: logger.Named("sanction_service"),
	}
}

// Create validates input, stamps applied_at and expiry, and persists the
// new sanction.
func (s *SanctionService) Create(ctx context.Context, input *types.NewSanction) (*types.Sanction, error) {
	if input == nil {
		return nil, fmt.Errorf("%w: missing sanction input", types.ErrValidation)
	}

	if err := input.Validate(); err != nil {
		return nil, err
	}

	sanction := input.Build(s.now())

	if err := s.model.Insert(ctx, sanction); err != nil {
		return nil, err
	}

	s.logger.Info("Created sanction",
		zap.Int64("id", sanction.ID),
		zap.String("kind", sanction.Kind.String()),
		zap.String("player_id", sanction.PlayerID),
		zap.String("moderator_id", sanction.ModeratorID),
		zap.Bool("permanent", sanction.IsPermanent))

	return sanction, nil
}

// Get returns the sanction with the given ID or ErrNotFound.
func (s *SanctionService) Get(ctx context.Context, id int64) (*types.Sanction, error) {
	return s.model.GetByID(ctx, id)
}

// Update applies a partial update. Only reason, additional_notes,
// server_name and the notification flags may change.
func (s *SanctionService) Update(ctx context.Context, id int64, patch types.Patch) (*types.Sanction, error) {
	normalized, err := patch.Normalize()
	if err != nil {
		return nil, err
	}

	sanction, err := s.model.Update(ctx, id, normalized)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Updated sanction",
		zap.Int64("id", id),
		zap.Strings("fields", normalized.Fields()))

	return sanction, nil
}

// Revoke ends a sanction for good. A sanction can be revoked once; later
// attempts fail with ErrAlreadyRevoked and leave the first audit trail intact.
func (s *SanctionService) Revoke(
	ctx context.Context, id int64, revokedBy, reason string,
) (*types.Sanction, error) {
	if strings.TrimSpace(revokedBy) == "" {
		return nil, fmt.Errorf("%w: revoked_by is required", types.ErrValidation)
	}

	revokedAt := s.now().UTC().Truncate(types.TimePrecision)

	sanction, err := s.model.Revoke(ctx, id, revokedBy, reason, revokedAt)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Revoked sanction",
		zap.Int64("id", id),
		zap.String("revoked_by", revokedBy))

	return sanction, nil
}

// IsCurrentlyActive reports whether sanction is in force now.
func (s *SanctionService) IsCurrentlyActive(sanction *types.Sanction) bool {
	return types.IsCurrentlyActive(sanction, s.now())
}
