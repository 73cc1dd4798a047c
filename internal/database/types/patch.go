package types

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Patch is a partial update keyed by field name.
type Patch map[string]any

// Fields a Patch may change.
const (
	FieldReason          = "reason"
	FieldAdditionalNotes = "additional_notes"
	FieldServerName      = "server_name"
	FieldNotifiedIngame  = "notified_ingame"
	FieldNotifiedDiscord = "notified_discord"
)

var (
	mutableStringFields = []string{FieldReason, FieldAdditionalNotes, FieldServerName}
	mutableBoolFields   = []string{FieldNotifiedIngame, FieldNotifiedDiscord}

	// immutableFields change only at creation or through revoke.
	immutableFields = []string{
		"id", "kind", "player_id", "username", "duration_hours", "is_permanent",
		"moderator_id", "moderator_name", "applied_at", "expires_at", "is_active",
		"revoked_at", "revoked_by", "revoke_reason",
	}
)

// SanctionUpdate is the typed form of a Patch.
type SanctionUpdate struct {
	Reason          *string
	AdditionalNotes *string
	ServerName      *string
	NotifiedIngame  *bool
	NotifiedDiscord *bool
}

// Patch converts the update into its keyed form, skipping unset fields.
func (u SanctionUpdate) Patch() Patch {
	p := make(Patch)
	if u.Reason != nil {
		p[FieldReason] = *u.Reason
	}
	if u.AdditionalNotes != nil {
		p[FieldAdditionalNotes] = *u.AdditionalNotes
	}
	if u.ServerName != nil {
		p[FieldServerName] = *u.ServerName
	}
	if u.NotifiedIngame != nil {
		p[FieldNotifiedIngame] = *u.NotifiedIngame
	}
	if u.NotifiedDiscord != nil {
		p[FieldNotifiedDiscord] = *u.NotifiedDiscord
	}
	return p
}

// Normalize validates the patch and returns a copy whose values have the
// column types: string for text fields and bool for flags. String flag
// values such as "true" are accepted so CLI input can be passed through.
func (p Patch) Normalize() (Patch, error) {
	if len(p) == 0 {
		return nil, fmt.Errorf("%w: no fields to update", ErrValidation)
	}

	out := make(Patch, len(p))
	for field, value := range p {
		switch {
		case slices.Contains(mutableStringFields, field):
			s, ok := value.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s must be a string", ErrValidation, field)
			}
			if field == FieldReason && strings.TrimSpace(s) == "" {
				return nil, fmt.Errorf("%w: reason is required", ErrValidation)
			}
			out[field] = s

		case slices.Contains(mutableBoolFields, field):
			b, err := asBool(value)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrValidation, field, err)
			}
			out[field] = b

		case slices.Contains(immutableFields, field):
			return nil, fmt.Errorf("%w: field %s cannot be updated", ErrValidation, field)

		default:
			return nil, fmt.Errorf("%w: unknown field %s", ErrValidation, field)
		}
	}

	return out, nil
}

// Fields returns the patch keys in sorted order.
func (p Patch) Fields() []string {
	fields := make([]string, 0, len(p))
	for field := range p {
		fields = append(fields, field)
	}
	slices.Sort(fields)
	return fields
}

func asBool(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, fmt.Errorf("invalid boolean %q", v)
		}
		return b, nil
	default:
		return false, fmt.Errorf("must be a boolean, got %T", value)
	}
}
