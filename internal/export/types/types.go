package types

import (
	"strconv"
	"time"

	dbTypes "github.com/c2tools/sanctions/internal/database/types"
)

// TimeLayout is the timestamp format used by every export target.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Columns lists the flat export columns in order.
var Columns = []string{
	"id", "kind", "player_id", "username", "reason", "duration_hours", "is_permanent",
	"moderator_id", "moderator_name", "applied_at", "expires_at", "is_active",
	"currently_active", "status", "revoked_at", "revoked_by", "revoke_reason",
	"notified_ingame", "notified_discord", "server_name", "additional_notes",
}

// ExportRecord represents a record in the export file.
type ExportRecord struct {
	ID              int64      `json:"id"`
	Kind            string     `json:"kind"`
	PlayerID        string     `json:"player_id"`
	Username        string     `json:"username"`
	Reason          string     `json:"reason"`
	DurationHours   *float64   `json:"duration_hours"`
	IsPermanent     bool       `json:"is_permanent"`
	ModeratorID     string     `json:"moderator_id"`
	ModeratorName   string     `json:"moderator_name"`
	AppliedAt       time.Time  `json:"applied_at"`
	ExpiresAt       *time.Time `json:"expires_at"`
	IsActive        bool       `json:"is_active"`
	CurrentlyActive bool       `json:"currently_active"`
	Status          string     `json:"status"`
	RevokedAt       *time.Time `json:"revoked_at"`
	RevokedBy       string     `json:"revoked_by"`
	RevokeReason    string     `json:"revoke_reason"`
	NotifiedIngame  bool       `json:"notified_ingame"`
	NotifiedDiscord bool       `json:"notified_discord"`
	ServerName      string     `json:"server_name"`
	AdditionalNotes string     `json:"additional_notes"`
}

// Metadata describes one export run.
type Metadata struct {
	ExportID      string         `json:"export_id"`
	ExportedAt    time.Time      `json:"exported_at"`
	EngineVersion string         `json:"engine_version"`
	Count         int            `json:"count"`
	Filter        map[string]any `json:"filter,omitempty"`
}

// FromSanction flattens a sanction, deriving its status at now.
func FromSanction(s *dbTypes.Sanction, now time.Time) *ExportRecord {
	return &ExportRecord{
		ID:              s.ID,
		Kind:            s.Kind.String(),
		PlayerID:        s.PlayerID,
		Username:        s.Username,
		Reason:          s.Reason,
		DurationHours:   s.DurationHours,
		IsPermanent:     s.IsPermanent,
		ModeratorID:     s.ModeratorID,
		ModeratorName:   s.ModeratorName,
		AppliedAt:       s.AppliedAt,
		ExpiresAt:       s.ExpiresAt,
		IsActive:        s.IsActive,
		CurrentlyActive: s.IsCurrentlyActive(now),
		Status:          string(s.Status(now)),
		RevokedAt:       s.RevokedAt,
		RevokedBy:       s.RevokedBy,
		RevokeReason:    s.RevokeReason,
		NotifiedIngame:  s.NotifiedIngame,
		NotifiedDiscord: s.NotifiedDiscord,
		ServerName:      s.ServerName,
		AdditionalNotes: s.AdditionalNotes,
	}
}

// FromSanctions flattens a result set, preserving order.
func FromSanctions(sanctions []*dbTypes.Sanction, now time.Time) []*ExportRecord {
	records := make([]*ExportRecord, len(sanctions))
	for i, s := range sanctions {
		records[i] = FromSanction(s, now)
	}
	return records
}

// Strings renders the record as text cells in Columns order. Absent
// optional values become empty cells.
func (r *ExportRecord) Strings() []string {
	return []string{
		strconv.FormatInt(r.ID, 10),
		r.Kind,
		r.PlayerID,
		r.Username,
		r.Reason,
		formatFloat(r.DurationHours),
		strconv.FormatBool(r.IsPermanent),
		r.ModeratorID,
		r.ModeratorName,
		r.AppliedAt.UTC().Format(TimeLayout),
		formatTime(r.ExpiresAt),
		strconv.FormatBool(r.IsActive),
		strconv.FormatBool(r.CurrentlyActive),
		r.Status,
		formatTime(r.RevokedAt),
		r.RevokedBy,
		r.RevokeReason,
		strconv.FormatBool(r.NotifiedIngame),
		strconv.FormatBool(r.NotifiedDiscord),
		r.ServerName,
		r.AdditionalNotes,
	}
}

// Values renders the record as typed cells in Columns order, with nil for
// absent optional values.
func (r *ExportRecord) Values() []any {
	var duration any
	if r.DurationHours != nil {
		duration = *r.DurationHours
	}

	return []any{
		r.ID,
		r.Kind,
		r.PlayerID,
		r.Username,
		r.Reason,
		duration,
		r.IsPermanent,
		r.ModeratorID,
		r.ModeratorName,
		r.AppliedAt.UTC().Format(TimeLayout),
		nullable(formatTime(r.ExpiresAt)),
		r.IsActive,
		r.CurrentlyActive,
		r.Status,
		nullable(formatTime(r.RevokedAt)),
		nullable(r.RevokedBy),
		nullable(r.RevokeReason),
		r.NotifiedIngame,
		r.NotifiedDiscord,
		nullable(r.ServerName),
		r.AdditionalNotes,
	}
}

func formatFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(TimeLayout)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
