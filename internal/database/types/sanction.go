package types

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Kind identifies what sort of sanction was issued.
type Kind string

const (
	// KindBan removes a player from the server, either for a fixed window or permanently.
	KindBan Kind = "ban"
	// KindKick removes a player once. Kicks never expire because they never last.
	KindKick Kind = "kick"
)

// ParseKind converts user or backend input into a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindBan:
		return KindBan, nil
	case KindKick:
		return KindKick, nil
	default:
		return "", fmt.Errorf("%w: unknown sanction kind %q", ErrValidation, s)
	}
}

// String returns the wire form of the kind.
func (k Kind) String() string {
	return string(k)
}

// Status is the lifecycle state of a sanction at a point in time.
type Status string

const (
	StatusActive  Status = "active"
	StatusExpired Status = "expired"
	StatusRevoked Status = "revoked"
)

// Timestamps are persisted with millisecond precision.
const TimePrecision = time.Millisecond

// MaxDurationHours bounds timed bans so expiry never overflows time.Duration.
const MaxDurationHours = 2_000_000

// Sanction is one ban or kick event.
type Sanction struct {
	ID              int64      `json:"id"`
	Kind            Kind       `json:"kind"`
	PlayerID        string     `json:"playerId"`
	Username        string     `json:"username"`
	Reason          string     `json:"reason"`
	DurationHours   *float64   `json:"durationHours,omitempty"`
	IsPermanent     bool       `json:"isPermanent"`
	ModeratorID     string     `json:"moderatorId"`
	ModeratorName   string     `json:"moderatorName"`
	AppliedAt       time.Time  `json:"appliedAt"`
	ExpiresAt       *time.Time `json:"expiresAt,omitempty"`
	IsActive        bool       `json:"isActive"`
	RevokedAt       *time.Time `json:"revokedAt,omitempty"`
	RevokedBy       string     `json:"revokedBy,omitempty"`
	RevokeReason    string     `json:"revokeReason,omitempty"`
	NotifiedIngame  bool       `json:"notifiedIngame"`
	NotifiedDiscord bool       `json:"notifiedDiscord"`
	ServerName      string     `json:"serverName,omitempty"`
	AdditionalNotes string     `json:"additionalNotes,omitempty"`
}

// IsCurrentlyActive reports whether the sanction is in force at now.
// The stored flag and the expiry window must both agree; expiry is never
// written back, so neither check is sufficient on its own.
func IsCurrentlyActive(s *Sanction, now time.Time) bool {
	if s == nil || !s.IsActive {
		return false
	}

	return s.ExpiresAt == nil || s.ExpiresAt.After(now)
}

// IsCurrentlyActive reports whether the sanction is in force at now.
func (s *Sanction) IsCurrentlyActive(now time.Time) bool {
	return IsCurrentlyActive(s, now)
}

// IsRevoked reports whether the sanction was explicitly revoked.
func (s *Sanction) IsRevoked() bool {
	return s.RevokedAt != nil
}

// IsExpired reports whether a timed ban's window has closed at now.
func (s *Sanction) IsExpired(now time.Time) bool {
	return s.ExpiresAt != nil && !s.ExpiresAt.After(now)
}

// Status derives the lifecycle state at now. Revocation wins over expiry.
func (s *Sanction) Status(now time.Time) Status {
	switch {
	case s.IsRevoked():
		return StatusRevoked
	case !s.IsActive || s.IsExpired(now):
		return StatusExpired
	default:
		return StatusActive
	}
}

// DurationFromHours converts a ban length into a duration at storage precision.
func DurationFromHours(hours float64) time.Duration {
	return time.Duration(math.Round(hours*float64(time.Hour/TimePrecision))) * TimePrecision
}

// ExpiryFor returns when a timed ban applied at appliedAt ends.
func ExpiryFor(appliedAt time.Time, hours float64) time.Time {
	return appliedAt.Add(DurationFromHours(hours))
}

// NewSanction holds the caller-supplied fields of a sanction to create.
type NewSanction struct {
	Kind            Kind
	PlayerID        string
	Username        string
	Reason          string
	DurationHours   *float64
	IsPermanent     bool
	ModeratorID     string
	ModeratorName   string
	ServerName      string
	AdditionalNotes string
	NotifiedIngame  bool
	NotifiedDiscord bool
}

// Validate checks the input without altering it.
func (n *NewSanction) Validate() error {
	if n.Kind != KindBan && n.Kind != KindKick {
		return fmt.Errorf("%w: unknown sanction kind %q", ErrValidation, n.Kind)
	}

	if strings.TrimSpace(n.PlayerID) == "" {
		return fmt.Errorf("%w: player_id is required", ErrValidation)
	}

	// Identifiers are matched exactly by every lookup
	if strings.TrimSpace(n.PlayerID) != n.PlayerID {
		return fmt.Errorf("%w: player_id must not have surrounding whitespace", ErrValidation)
	}

	if strings.TrimSpace(n.Reason) == "" {
		return fmt.Errorf("%w: reason is required", ErrValidation)
	}

	if strings.TrimSpace(n.ModeratorID) == "" || strings.TrimSpace(n.ModeratorName) == "" {
		return fmt.Errorf("%w: moderator_id and moderator_name are required", ErrValidation)
	}

	if strings.TrimSpace(n.ModeratorID) != n.ModeratorID {
		return fmt.Errorf("%w: moderator_id must not have surrounding whitespace", ErrValidation)
	}

	if n.Kind == KindKick {
		if n.IsPermanent {
			return fmt.Errorf("%w: a kick cannot be permanent", ErrValidation)
		}

		if n.DurationHours != nil {
			return fmt.Errorf("%w: a kick cannot have duration_hours", ErrValidation)
		}

		return nil
	}

	if n.IsPermanent {
		if n.DurationHours != nil {
			return fmt.Errorf("%w: a permanent ban cannot have duration_hours", ErrValidation)
		}

		return nil
	}

	if n.DurationHours == nil {
		return fmt.Errorf("%w: a timed ban requires duration_hours", ErrValidation)
	}

	hours := *n.DurationHours
	if math.IsNaN(hours) || math.IsInf(hours, 0) || hours <= 0 {
		return fmt.Errorf("%w: duration_hours must be a positive number", ErrValidation)
	}

	if hours > MaxDurationHours {
		return fmt.Errorf("%w: duration_hours must not exceed %d", ErrValidation, MaxDurationHours)
	}

	if DurationFromHours(hours) <= 0 {
		return fmt.Errorf("%w: duration_hours is shorter than %s", ErrValidation, TimePrecision)
	}

	return nil
}

// Build produces the sanction that creating n at appliedAt yields.
// The caller must have validated n.
func (n *NewSanction) Build(appliedAt time.Time) *Sanction {
	appliedAt = appliedAt.UTC().Truncate(TimePrecision)

	s := &Sanction{
		Kind:            n.Kind,
		PlayerID:        n.PlayerID,
		Username:        n.Username,
		Reason:          n.Reason,
		IsPermanent:     n.IsPermanent,
		ModeratorID:     n.ModeratorID,
		ModeratorName:   n.ModeratorName,
		AppliedAt:       appliedAt,
		IsActive:        true,
		NotifiedIngame:  n.NotifiedIngame,
		NotifiedDiscord: n.NotifiedDiscord,
		ServerName:      n.ServerName,
		AdditionalNotes: n.AdditionalNotes,
	}

	if n.Kind == KindBan && !n.IsPermanent && n.DurationHours != nil {
		hours := *n.DurationHours
		expiresAt := ExpiryFor(appliedAt, hours)
		s.DurationHours = &hours
		s.ExpiresAt = &expiresAt
	}

	return s
}
