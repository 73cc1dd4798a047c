package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/c2tools/sanctions/internal/database/backend"
	"github.com/c2tools/sanctions/internal/database/schema"
	"github.com/c2tools/sanctions/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// likeEscape escapes LIKE wildcards in user supplied patterns.
var likeEscape = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// SanctionModel handles database operations for sanction records.
type SanctionModel struct {
	conn   *backend.Connector
	logger *zap.Logger
}

// NewSanction creates a new SanctionModel instance.
func NewSanction(conn *backend.Connector, logger *zap.Logger) *SanctionModel {
	return &SanctionModel{
		conn:   conn,
		logger: logger.Named("db_sanction"),
	}
}

// Insert persists a new sanction and sets its ID.
func (m *SanctionModel) Insert(ctx context.Context, sanction *types.Sanction) error {
	return m.conn.Session(ctx, func(ctx context.Context, db bun.IDB) error {
		row := schema.FromSanction(sanction)
		row.ID = 0

		res, err := db.NewInsert().
			Model(row).
			Returning("id").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert sanction: %w", err)
		}

		// MySQL has no RETURNING and reports the key on the result instead
		if row.ID == 0 {
			if row.ID, err = res.LastInsertId(); err != nil {
				return fmt.Errorf("failed to read inserted sanction id: %w", err)
			}
		}

		sanction.ID = row.ID

		return nil
	})
}

// GetByID retrieves a sanction by its ID.
func (m *SanctionModel) GetByID(ctx context.Context, id int64) (*types.Sanction, error) {
	var result *types.Sanction

	err := m.conn.Session(ctx, func(ctx context.Context, db bun.IDB) error {
		var row schema.SanctionRow

		err := db.NewSelect().
			Model(&row).
			Where("id = ?", id).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: %d", types.ErrNotFound, id)
			}
			return fmt.Errorf("failed to get sanction: %w", err)
		}

		result, err = row.ToSanction()
		return err
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// Update writes a normalized patch and returns the updated sanction.
func (m *SanctionModel) Update(ctx context.Context, id int64, patch types.Patch) (*types.Sanction, error) {
	var result *types.Sanction

	err := m.conn.Session(ctx, func(ctx context.Context, db bun.IDB) error {
		query := db.NewUpdate().
			Model((*schema.SanctionRow)(nil)).
			Where("id = ?", id)

		for _, field := range patch.Fields() {
			value := patch[field]
			if field == types.FieldServerName && value == "" {
				value = nil
			}
			query = query.Set("? = ?", bun.Ident(field), value)
		}

		res, err := query.Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to update sanction: %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to update sanction: %w", err)
		}

		if affected == 0 {
			return fmt.Errorf("%w: %d", types.ErrNotFound, id)
		}

		result, err = m.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// Revoke stamps the revocation fields and deactivates the sanction in one
// conditional write. Of several concurrent revokes on the same sanction only
// one matches; the others see ErrAlreadyRevoked.
func (m *SanctionModel) Revoke(
	ctx context.Context, id int64, revokedBy, reason string, revokedAt time.Time,
) (*types.Sanction, error) {
	var result *types.Sanction

	err := m.conn.Session(ctx, func(ctx context.Context, db bun.IDB) error {
		var revokeReason *string
		if reason != "" {
			revokeReason = &reason
		}

		res, err := db.NewUpdate().
			Model((*schema.SanctionRow)(nil)).
			Set("is_active = ?", false).
			Set("revoked_at = ?", schema.ToMillis(revokedAt)).
			Set("revoked_by = ?", revokedBy).
			Set("revoke_reason = ?", revokeReason).
			Where("id = ?", id).
			Where("revoked_at IS NULL").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to revoke sanction: %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to revoke sanction: %w", err)
		}

		if affected == 0 {
			exists, err := db.NewSelect().
				Model((*schema.SanctionRow)(nil)).
				Where("id = ?", id).
				Exists(ctx)
			if err != nil {
				return fmt.Errorf("failed to check sanction: %w", err)
			}

			if !exists {
				return fmt.Errorf("%w: %d", types.ErrNotFound, id)
			}

			return fmt.Errorf("%w: %d", types.ErrAlreadyRevoked, id)
		}

		result, err = m.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// Search returns the sanctions matching filter at now, newest first.
func (m *SanctionModel) Search(
	ctx context.Context, filter types.SanctionFilter, now time.Time,
) ([]*types.Sanction, error) {
	var result []*types.Sanction

	err := m.conn.Session(ctx, func(ctx context.Context, db bun.IDB) error {
		var rows []*schema.SanctionRow

		query := db.NewSelect().Model(&rows)
		query = ApplyFilter(query, filter, now).
			OrderExpr("applied_at DESC, id DESC")

		if filter.Limit > 0 {
			query = query.Limit(filter.Limit)
		}

		if filter.Offset > 0 {
			// SQLite requires a LIMIT before OFFSET
			if filter.Limit == 0 {
				query = query.Limit(math.MaxInt32)
			}
			query = query.Offset(filter.Offset)
		}

		if err := query.Scan(ctx); err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to search sanctions: %w", err)
		}

		var err error
		result, err = schema.ToSanctions(rows)
		return err
	})
	if err != nil {
		return nil, err
	}

	m.logger.Debug("Searched sanctions",
		zap.Any("filter", filter),
		zap.Int("count", len(result)))

	return result, nil
}

// Count returns the number of sanctions matching filter at now,
// ignoring pagination.
func (m *SanctionModel) Count(ctx context.Context, filter types.SanctionFilter, now time.Time) (int, error) {
	var count int

	err := m.conn.Session(ctx, func(ctx context.Context, db bun.IDB) error {
		var err error
		count, err = ApplyFilter(db.NewSelect().Model((*schema.SanctionRow)(nil)), filter, now).Count(ctx)
		if err != nil {
			return fmt.Errorf("failed to count sanctions: %w", err)
		}
		return nil
	})

	return count, err
}

// ApplyFilter adds the predicates of filter to query. Pagination is left to
// the caller.
func ApplyFilter(query *bun.SelectQuery, filter types.SanctionFilter, now time.Time) *bun.SelectQuery {
	if filter.PlayerID != "" {
		query = query.Where("player_id = ?", filter.PlayerID)
	}

	if filter.ModeratorID != "" {
		query = query.Where("moderator_id = ?", filter.ModeratorID)
	}

	if filter.ServerName != "" {
		query = query.Where("server_name = ?", filter.ServerName)
	}

	if filter.Kind != "" {
		query = query.Where("kind = ?", filter.Kind.String())
	}

	if filter.Username != "" {
		pattern := "%" + likeEscape.Replace(strings.ToLower(filter.Username)) + "%"
		query = query.Where("LOWER(username) LIKE ? ESCAPE '!'", pattern)
	}

	if filter.ActiveOnly {
		query = WhereCurrentlyActive(query, now)
	}

	return query
}

// WhereCurrentlyActive restricts query to sanctions in force at now. It is
// the query form of types.IsCurrentlyActive and must stay in step with it.
func WhereCurrentlyActive(query *bun.SelectQuery, now time.Time) *bun.SelectQuery {
	return query.
		Where("is_active = ?", true).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("expires_at IS NULL").
				WhereOr("expires_at > ?", schema.ToMillis(now))
		})
}
