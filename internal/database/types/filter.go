package types

import (
	"fmt"
	"strings"
	"time"
)

// SanctionFilter narrows a sanction search. Zero values do not filter.
type SanctionFilter struct {
	PlayerID    string
	ModeratorID string
	ServerName  string
	Kind        Kind
	// Username matches the username snapshot case-insensitively as a substring.
	Username string
	// ActiveOnly keeps only sanctions that are currently active.
	ActiveOnly bool
	// Limit caps the number of results; 0 means no limit.
	Limit int
	// Offset skips that many results of the ordered sequence.
	Offset int
}

// Validate rejects filters the query engine cannot serve.
func (f SanctionFilter) Validate() error {
	if f.Limit < 0 {
		return fmt.Errorf("%w: limit must not be negative", ErrValidation)
	}

	if f.Offset < 0 {
		return fmt.Errorf("%w: offset must not be negative", ErrValidation)
	}

	if f.Kind != "" && f.Kind != KindBan && f.Kind != KindKick {
		return fmt.Errorf("%w: unknown sanction kind %q", ErrValidation, f.Kind)
	}

	return nil
}

// Matches reports whether s passes every predicate of f at now,
// ignoring pagination.
func (f SanctionFilter) Matches(s *Sanction, now time.Time) bool {
	if f.PlayerID != "" && s.PlayerID != f.PlayerID {
		return false
	}
	if f.ModeratorID != "" && s.ModeratorID != f.ModeratorID {
		return false
	}
	if f.ServerName != "" && s.ServerName != f.ServerName {
		return false
	}
	if f.Kind != "" && s.Kind != f.Kind {
		return false
	}
	if f.Username != "" && !strings.Contains(strings.ToLower(s.Username), strings.ToLower(f.Username)) {
		return false
	}
	if f.ActiveOnly && !s.IsCurrentlyActive(now) {
		return false
	}
	return true
}
