// Package report summarizes the sanction history of one player or one
// moderator.
package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/c2tools/sanctions/internal/database/types"
	"go.uber.org/zap"
)

// PlayerReport summarizes every sanction issued against one player.
type PlayerReport struct {
	PlayerID           string            `json:"playerId"`
	MostRecentUsername string            `json:"mostRecentUsername,omitempty"`
	GeneratedAt        time.Time         `json:"generatedAt"`
	Total              int               `json:"total"`
	Bans               int               `json:"bans"`
	Kicks              int               `json:"kicks"`
	Revoked            int               `json:"revoked"`
	CurrentlyBanned    bool              `json:"currentlyBanned"`
	ActiveBan          *types.Sanction   `json:"activeBan,omitempty"`
	FirstSanction      *time.Time        `json:"firstSanction,omitempty"`
	LastSanction       *time.Time        `json:"lastSanction,omitempty"`
	Sanctions          []*types.Sanction `json:"sanctions"`
}

// ModeratorReport summarizes every sanction issued by one moderator.
type ModeratorReport struct {
	ModeratorID   string            `json:"moderatorId"`
	ModeratorName string            `json:"moderatorName,omitempty"`
	GeneratedAt   time.Time         `json:"generatedAt"`
	Total         int               `json:"total"`
	Bans          int               `json:"bans"`
	Kicks         int               `json:"kicks"`
	Revoked       int               `json:"revoked"`
	ByServer      map[string]int    `json:"byServer"`
	FirstSanction *time.Time        `json:"firstSanction,omitempty"`
	LastSanction  *time.Time        `json:"lastSanction,omitempty"`
	Sanctions     []*types.Sanction `json:"sanctions"`
}

// counts holds the tallies both reports share.
type counts struct {
	total, bans, kicks, revoked int
	first, last                 *types.Sanction
}

func tally(sanctions []*types.Sanction) counts {
	var c counts
	for _, s := range sanctions {
		c.total++
		switch s.Kind {
		case types.KindBan:
			c.bans++
		case types.KindKick:
			c.kicks++
		}
		if s.IsRevoked() {
			c.revoked++
		}
		if c.first == nil || s.AppliedAt.Before(c.first.AppliedAt) {
			c.first = s
		}
		if c.last == nil || s.AppliedAt.After(c.last.AppliedAt) {
			c.last = s
		}
	}
	return c
}

func appliedAt(s *types.Sanction) *time.Time {
	if s == nil {
		return nil
	}
	t := s.AppliedAt
	return &t
}

// BuildPlayerReport summarizes sanctions, all of which must belong to
// playerID, at now. No sanctions give a zero report.
func BuildPlayerReport(playerID string, sanctions []*types.Sanction, now time.Time) *PlayerReport {
	c := tally(sanctions)

	report := &PlayerReport{
		PlayerID:      playerID,
		GeneratedAt:   now.UTC(),
		Total:         c.total,
		Bans:          c.bans,
		Kicks:         c.kicks,
		Revoked:       c.revoked,
		FirstSanction: appliedAt(c.first),
		LastSanction:  appliedAt(c.last),
		Sanctions:     sanctions,
	}

	if report.Sanctions == nil {
		report.Sanctions = []*types.Sanction{}
	}

	if c.last != nil {
		report.MostRecentUsername = c.last.Username
	}

	// The most recent ban still in force is the one that applies
	for _, s := range sanctions {
		if s.Kind != types.KindBan || !s.IsCurrentlyActive(now) {
			continue
		}
		if report.ActiveBan == nil || s.AppliedAt.After(report.ActiveBan.AppliedAt) {
			report.ActiveBan = s
		}
	}
	report.CurrentlyBanned = report.ActiveBan != nil

	return report
}

// BuildModeratorReport summarizes sanctions, all of which must have been
// issued by moderatorID. No sanctions give a zero report.
func BuildModeratorReport(moderatorID string, sanctions []*types.Sanction, now time.Time) *ModeratorReport {
	c := tally(sanctions)

	report := &ModeratorReport{
		ModeratorID:   moderatorID,
		GeneratedAt:   now.UTC(),
		Total:         c.total,
		Bans:          c.bans,
		Kicks:         c.kicks,
		Revoked:       c.revoked,
		ByServer:      make(map[string]int),
		FirstSanction: appliedAt(c.first),
		LastSanction:  appliedAt(c.last),
		Sanctions:     sanctions,
	}

	if report.Sanctions == nil {
		report.Sanctions = []*types.Sanction{}
	}

	if c.last != nil {
		report.ModeratorName = c.last.ModeratorName
	}

	for _, s := range sanctions {
		report.ByServer[s.ServerName]++
	}

	return report
}

// Searcher runs filtered sanction queries.
type Searcher interface {
	Search(ctx context.Context, filter types.SanctionFilter) ([]*types.Sanction, error)
}

// Reporter builds reports from live query results.
type Reporter struct {
	query  Searcher
	now    func() time.Time
	logger *zap.Logger
}

// New creates a new Reporter.
func New(query Searcher, logger *zap.Logger) *Reporter {
	return &Reporter{
		query:  query,
		now:    time.Now,
		logger: logger.Named("reporter"),
	}
}

// PlayerReport builds the report for playerID.
func (r *Reporter) PlayerReport(ctx context.Context, playerID string) (*PlayerReport, error) {
	if strings.TrimSpace(playerID) == "" {
		return nil, fmt.Errorf("%w: player_id is required", types.ErrValidation)
	}

	sanctions, err := r.query.Search(ctx, types.SanctionFilter{PlayerID: playerID})
	if err != nil {
		return nil, fmt.Errorf("failed to get player sanctions: %w", err)
	}

	report := BuildPlayerReport(playerID, sanctions, r.now())

	r.logger.Debug("Built player report",
		zap.String("player_id", playerID),
		zap.Int("total", report.Total))

	return report, nil
}

// ModeratorReport builds the report for moderatorID.
func (r *Reporter) ModeratorReport(ctx context.Context, moderatorID string) (*ModeratorReport, error) {
	if strings.TrimSpace(moderatorID) == "" {
		return nil, fmt.Errorf("%w: moderator_id is required", types.ErrValidation)
	}

	sanctions, err := r.query.Search(ctx, types.SanctionFilter{ModeratorID: moderatorID})
	if err != nil {
		return nil, fmt.Errorf("failed to get moderator sanctions: %w", err)
	}

	report := BuildModeratorReport(moderatorID, sanctions, r.now())

	r.logger.Debug("Built moderator report",
		zap.String("moderator_id", moderatorID),
		zap.Int("total", report.Total))

	return report, nil
}
