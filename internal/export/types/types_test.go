package types_test

import (
	"testing"
	"time"

	dbTypes "github.com/c2tools/sanctions/internal/database/types"
	"github.com/c2tools/sanctions/internal/export/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromSanction(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	applied := now.Add(-48 * time.Hour)
	expires := applied.Add(24 * time.Hour)
	d := 24.0

	expired := &dbTypes.Sanction{
		ID:            7,
		Kind:          dbTypes.KindBan,
		PlayerID:      "P1",
		Username:      "Bob",
		Reason:        "FFA",
		DurationHours: &d,
		ModeratorID:   "m1",
		ModeratorName: "Alice",
		AppliedAt:     applied,
		ExpiresAt:     &expires,
		IsActive:      true,
	}

	record := types.FromSanction(expired, now)
	assert.Equal(t, "expired", record.Status)
	assert.True(t, record.IsActive)
	assert.False(t, record.CurrentlyActive)

	cells := record.Strings()
	require.Len(t, cells, len(types.Columns))
	assert.Equal(t, "7", cells[0])
	assert.Equal(t, "24", cells[5])
	assert.Equal(t, "2025-04-29T00:00:00.000Z", cells[9])
	assert.Equal(t, "2025-04-30T00:00:00.000Z", cells[10])
	assert.Empty(t, cells[14], "revoked_at")

	values := record.Values()
	require.Len(t, values, len(types.Columns))
	assert.Equal(t, 24.0, values[5])
	assert.Nil(t, values[14])
	assert.Nil(t, values[19], "server_name")

	kick := &dbTypes.Sanction{Kind: dbTypes.KindKick, IsActive: true, AppliedAt: applied}
	assert.Nil(t, types.FromSanction(kick, now).Values()[5])
	assert.Empty(t, types.FromSanction(kick, now).Strings()[5])
}
