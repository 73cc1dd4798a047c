// Package schema defines the sanctions table and maps rows to sanctions.
//
// Timestamps are stored as UTC unix milliseconds and the kind as text, so
// the same column types and comparisons work on every backend.
package schema

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/c2tools/sanctions/internal/database/types"
	"github.com/go-sql-driver/mysql"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// TableName is the name of the sanctions table.
const TableName = "sanctions"

// SanctionRow is the backend representation of a sanction.
type SanctionRow struct {
	bun.BaseModel `bun:"table:sanctions"`

	ID              int64    `bun:"id,pk,autoincrement"`
	Kind            string   `bun:"kind,notnull"`
	PlayerID        string   `bun:"player_id,notnull"`
	Username        string   `bun:"username,notnull"`
	Reason          string   `bun:"reason,notnull,type:text"`
	DurationHours   *float64 `bun:"duration_hours,type:double precision"`
	IsPermanent     bool     `bun:"is_permanent,notnull"`
	ModeratorID     string   `bun:"moderator_id,notnull"`
	ModeratorName   string   `bun:"moderator_name,notnull"`
	AppliedAt       int64    `bun:"applied_at,notnull"`
	ExpiresAt       *int64   `bun:"expires_at"`
	IsActive        bool     `bun:"is_active,notnull"`
	RevokedAt       *int64   `bun:"revoked_at"`
	RevokedBy       *string  `bun:"revoked_by"`
	RevokeReason    *string  `bun:"revoke_reason,type:text"`
	NotifiedIngame  bool     `bun:"notified_ingame,notnull"`
	NotifiedDiscord bool     `bun:"notified_discord,notnull"`
	ServerName      *string  `bun:"server_name"`
	AdditionalNotes string   `bun:"additional_notes,notnull,type:text"`
}

// Index describes one secondary index on the sanctions table.
type Index struct {
	Name    string
	Columns []string
}

// Indexes lists the secondary indexes for the columns queried at volume.
var Indexes = []Index{
	{Name: "idx_sanctions_player_id", Columns: []string{"player_id"}},
	{Name: "idx_sanctions_applied_at", Columns: []string{"applied_at", "id"}},
	{Name: "idx_sanctions_is_active", Columns: []string{"is_active"}},
	{Name: "idx_sanctions_moderator_id", Columns: []string{"moderator_id"}},
}

// Ensure creates the sanctions table and its indexes if they are absent.
func Ensure(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateTable().
		Model((*SanctionRow)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create table %s: %w", TableName, err)
	}

	// MySQL has no CREATE INDEX IF NOT EXISTS; an existing index fails with 1061
	isMySQL := db.Dialect().Name() == dialect.MySQL

	for _, index := range Indexes {
		q := db.NewCreateIndex().
			Model((*SanctionRow)(nil)).
			Index(index.Name).
			Column(index.Columns...)
		if !isMySQL {
			q = q.IfNotExists()
		}

		if _, err := q.Exec(ctx); err != nil {
			if isMySQL && isDuplicateIndex(err) {
				continue
			}
			return fmt.Errorf("failed to create index %s: %w", index.Name, err)
		}
	}

	return nil
}

func isDuplicateIndex(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateKeyName
}

const mysqlDuplicateKeyName = 1061

// ToMillis converts a timestamp to its stored form.
func ToMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

// FromMillis converts a stored timestamp back to UTC.
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// FromSanction maps a sanction onto a row.
func FromSanction(s *types.Sanction) *SanctionRow {
	row := &SanctionRow{
		ID:              s.ID,
		Kind:            s.Kind.String(),
		PlayerID:        s.PlayerID,
		Username:        s.Username,
		Reason:          s.Reason,
		DurationHours:   s.DurationHours,
		IsPermanent:     s.IsPermanent,
		ModeratorID:     s.ModeratorID,
		ModeratorName:   s.ModeratorName,
		AppliedAt:       ToMillis(s.AppliedAt),
		IsActive:        s.IsActive,
		NotifiedIngame:  s.NotifiedIngame,
		NotifiedDiscord: s.NotifiedDiscord,
		ServerName:      nullString(s.ServerName),
		AdditionalNotes: s.AdditionalNotes,
		RevokedBy:       nullString(s.RevokedBy),
		RevokeReason:    nullString(s.RevokeReason),
	}

	if s.ExpiresAt != nil {
		ms := ToMillis(*s.ExpiresAt)
		row.ExpiresAt = &ms
	}

	if s.RevokedAt != nil {
		ms := ToMillis(*s.RevokedAt)
		row.RevokedAt = &ms
	}

	return row
}

// ToSanction maps a row back onto a sanction.
func (r *SanctionRow) ToSanction() (*types.Sanction, error) {
	kind, err := types.ParseKind(r.Kind)
	if err != nil {
		return nil, fmt.Errorf("sanction %d has corrupt kind: %w", r.ID, err)
	}

	s := &types.Sanction{
		ID:              r.ID,
		Kind:            kind,
		PlayerID:        r.PlayerID,
		Username:        r.Username,
		Reason:          r.Reason,
		DurationHours:   r.DurationHours,
		IsPermanent:     r.IsPermanent,
		ModeratorID:     r.ModeratorID,
		ModeratorName:   r.ModeratorName,
		AppliedAt:       FromMillis(r.AppliedAt),
		IsActive:        r.IsActive,
		NotifiedIngame:  r.NotifiedIngame,
		NotifiedDiscord: r.NotifiedDiscord,
		AdditionalNotes: r.AdditionalNotes,
	}

	if r.ExpiresAt != nil {
		t := FromMillis(*r.ExpiresAt)
		s.ExpiresAt = &t
	}

	if r.RevokedAt != nil {
		t := FromMillis(*r.RevokedAt)
		s.RevokedAt = &t
	}

	if r.RevokedBy != nil {
		s.RevokedBy = *r.RevokedBy
	}

	if r.RevokeReason != nil {
		s.RevokeReason = *r.RevokeReason
	}

	if r.ServerName != nil {
		s.ServerName = *r.ServerName
	}

	return s, nil
}

// ToSanctions maps a row slice, preserving order.
func ToSanctions(rows []*SanctionRow) ([]*types.Sanction, error) {
	sanctions := make([]*types.Sanction, 0, len(rows))
	for _, row := range rows {
		s, err := row.ToSanction()
		if err != nil {
			return nil, err
		}
		sanctions = append(sanctions, s)
	}
	return sanctions, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
