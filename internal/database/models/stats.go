package models

import (
	"context"
	"fmt"
	"time"

	"github.com/c2tools/sanctions/internal/database/backend"
	"github.com/c2tools/sanctions/internal/database/schema"
	"github.com/c2tools/sanctions/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// StatsModel handles aggregate queries over sanctions.
type StatsModel struct {
	conn   *backend.Connector
	logger *zap.Logger
}

// NewStats creates a new StatsModel.
func NewStats(conn *backend.Connector, logger *zap.Logger) *StatsModel {
	return &StatsModel{
		conn:   conn,
		logger: logger.Named("db_stats"),
	}
}

// Aggregate computes every statistic at now inside one session, so all
// counts describe the same snapshot.
func (r *StatsModel) Aggregate(ctx context.Context, now time.Time) (*types.Statistics, error) {
	stats := &types.Statistics{ComputedAt: now.UTC()}
	nowMillis := schema.ToMillis(now)

	err := r.conn.Session(ctx, func(ctx context.Context, db bun.IDB) error {
		counts := []struct {
			name   string
			target *int
			apply  func(q *bun.SelectQuery) *bun.SelectQuery
		}{
			{"total", &stats.Total, func(q *bun.SelectQuery) *bun.SelectQuery {
				return q
			}},
			{"total_bans", &stats.TotalBans, func(q *bun.SelectQuery) *bun.SelectQuery {
				return q.Where("kind = ?", types.KindBan.String())
			}},
			{"total_kicks", &stats.TotalKicks, func(q *bun.SelectQuery) *bun.SelectQuery {
				return q.Where("kind = ?", types.KindKick.String())
			}},
			{"active_bans", &stats.ActiveBans, func(q *bun.SelectQuery) *bun.SelectQuery {
				// Kicks are events, never "active"
				return WhereCurrentlyActive(q.Where("kind = ?", types.KindBan.String()), now)
			}},
			{"permanent_bans", &stats.PermanentBans, func(q *bun.SelectQuery) *bun.SelectQuery {
				return q.Where("kind = ?", types.KindBan.String()).Where("is_permanent = ?", true)
			}},
			{"expired_bans", &stats.ExpiredBans, func(q *bun.SelectQuery) *bun.SelectQuery {
				return q.Where("kind = ?", types.KindBan.String()).
					Where("revoked_at IS NULL").
					Where("expires_at IS NOT NULL").
					Where("expires_at <= ?", nowMillis)
			}},
			{"revoked", &stats.Revoked, func(q *bun.SelectQuery) *bun.SelectQuery {
				return q.Where("revoked_at IS NOT NULL")
			}},
		}

		for _, c := range counts {
			count, err := c.apply(db.NewSelect().Model((*schema.SanctionRow)(nil))).Count(ctx)
			if err != nil {
				return fmt.Errorf("failed to count %s: %w", c.name, err)
			}
			*c.target = count
		}

		var err error
		if stats.PerModerator, err = groupCounts(ctx, db, "moderator_id"); err != nil {
			return err
		}

		if stats.PerServer, err = groupCounts(ctx, db, "server_name"); err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Debug("Computed sanction statistics",
		zap.Int("total", stats.Total),
		zap.Int("active_bans", stats.ActiveBans))

	return stats, nil
}

// groupCounts counts sanctions per distinct value of column. NULL values are
// counted under the empty key.
func groupCounts(ctx context.Context, db bun.IDB, column string) (map[string]int, error) {
	var groups []types.GroupCount

	err := db.NewSelect().
		Model((*schema.SanctionRow)(nil)).
		ColumnExpr("COALESCE(?, '') AS group_key", bun.Ident(column)).
		ColumnExpr("COUNT(*) AS total").
		GroupExpr("group_key").
		Scan(ctx, &groups)
	if err != nil {
		return nil, fmt.Errorf("failed to count sanctions by %s: %w", column, err)
	}

	result := make(map[string]int, len(groups))
	for _, g := range groups {
		result[g.Key] = g.Total
	}

	return result, nil
}
