package report_test

import (
	"testing"
	"time"

	"github.com/c2tools/sanctions/internal/database"
	"github.com/c2tools/sanctions/internal/database/backend"
	"github.com/c2tools/sanctions/internal/database/types"
	"github.com/c2tools/sanctions/internal/report"
	"github.com/c2tools/sanctions/internal/setup/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestBuildPlayerReport(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	at := func(h int) time.Time { return now.Add(time.Duration(-h) * time.Hour) }
	expiresSoon := now.Add(time.Hour)
	expired := at(10)
	revokedAt := at(1)

	oldBan := &types.Sanction{ID: 1, Kind: types.KindBan, PlayerID: "P1", Username: "old", AppliedAt: at(100), ExpiresAt: &expired, IsActive: true}
	kick := &types.Sanction{ID: 2, Kind: types.KindKick, PlayerID: "P1", Username: "mid", AppliedAt: at(50), IsActive: true}
	revoked := &types.Sanction{ID: 3, Kind: types.KindBan, PlayerID: "P1", Username: "mid", AppliedAt: at(20), IsPermanent: true, RevokedAt: &revokedAt}
	current := &types.Sanction{ID: 4, Kind: types.KindBan, PlayerID: "P1", Username: "new", AppliedAt: at(5), ExpiresAt: &expiresSoon, IsActive: true}

	r := report.BuildPlayerReport("P1", []*types.Sanction{current, revoked, kick, oldBan}, now)

	assert.Equal(t, "P1", r.PlayerID)
	assert.Equal(t, 4, r.Total)
	assert.Equal(t, 3, r.Bans)
	assert.Equal(t, 1, r.Kicks)
	assert.Equal(t, 1, r.Revoked)
	assert.Equal(t, "new", r.MostRecentUsername)
	assert.True(t, r.CurrentlyBanned)
	assert.Equal(t, current, r.ActiveBan)
	require.NotNil(t, r.FirstSanction)
	assert.Equal(t, at(100), *r.FirstSanction)
	require.NotNil(t, r.LastSanction)
	assert.Equal(t, at(5), *r.LastSanction)

	// An hour later the remaining ban lapses
	later := report.BuildPlayerReport("P1", []*types.Sanction{current, revoked, kick, oldBan}, now.Add(2*time.Hour))
	assert.False(t, later.CurrentlyBanned)
	assert.Nil(t, later.ActiveBan)
}

func TestBuildPlayerReport_Empty(t *testing.T) {
	t.Parallel()

	r := report.BuildPlayerReport("ghost", nil, time.Now())
	assert.Zero(t, r.Total)
	assert.False(t, r.CurrentlyBanned)
	assert.Nil(t, r.FirstSanction)
	assert.NotNil(t, r.Sanctions)
	assert.Empty(t, r.Sanctions)
}

func TestBuildModeratorReport(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	revokedAt := now

	sanctions := []*types.Sanction{
		{ID: 3, Kind: types.KindBan, ModeratorID: "m1", ModeratorName: "Alice R.", ServerName: "EU-1", AppliedAt: now.Add(-time.Hour), RevokedAt: &revokedAt},
		{ID: 2, Kind: types.KindKick, ModeratorID: "m1", ModeratorName: "Alice", ServerName: "EU-1", AppliedAt: now.Add(-2 * time.Hour)},
		{ID: 1, Kind: types.KindKick, ModeratorID: "m1", ModeratorName: "Alice", AppliedAt: now.Add(-3 * time.Hour)},
	}

	r := report.BuildModeratorReport("m1", sanctions, now)

	assert.Equal(t, "Alice R.", r.ModeratorName)
	assert.Equal(t, 3, r.Total)
	assert.Equal(t, 1, r.Bans)
	assert.Equal(t, 2, r.Kicks)
	assert.Equal(t, 1, r.Revoked)
	assert.Equal(t, map[string]int{"EU-1": 2, "": 1}, r.ByServer)
	assert.Equal(t, now.Add(-3*time.Hour), *r.FirstSanction)
	assert.Equal(t, now.Add(-time.Hour), *r.LastSanction)

	empty := report.BuildModeratorReport("m2", nil, now)
	assert.Zero(t, empty.Total)
	assert.Empty(t, empty.ByServer)
	assert.Empty(t, empty.ModeratorName)
}

func TestReporter(t *testing.T) {
	t.Parallel()

	logger := zaptest.NewLogger(t)

	client, err := database.NewConnection(t.Context(), &config.Database{
		Type:          config.DatabaseEmbedded,
		Path:          backend.MemoryPath,
		PoolTimeoutMS: 5000,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	sanctions := client.Service().Sanction()
	for _, input := range []*types.NewSanction{
		{Kind: types.KindBan, PlayerID: "P1", Username: "Bob", Reason: "FFA", IsPermanent: true, ModeratorID: "m1", ModeratorName: "Alice", ServerName: "EU-1"},
		{Kind: types.KindKick, PlayerID: "P1", Username: "Bob", Reason: "language", ModeratorID: "m2", ModeratorName: "Carol"},
		{Kind: types.KindKick, PlayerID: "P2", Username: "Eve", Reason: "spam", ModeratorID: "m1", ModeratorName: "Alice", ServerName: "US-1"},
	} {
		_, err := sanctions.Create(t.Context(), input)
		require.NoError(t, err)
	}

	reporter := report.New(client.Service().Query(), logger)

	player, err := reporter.PlayerReport(t.Context(), "P1")
	require.NoError(t, err)
	assert.Equal(t, 2, player.Total)
	assert.True(t, player.CurrentlyBanned)
	assert.Equal(t, "Bob", player.MostRecentUsername)

	moderator, err := reporter.ModeratorReport(t.Context(), "m1")
	require.NoError(t, err)
	assert.Equal(t, 2, moderator.Total)
	assert.Equal(t, map[string]int{"EU-1": 1, "US-1": 1}, moderator.ByServer)

	nobody, err := reporter.PlayerReport(t.Context(), "P404")
	require.NoError(t, err)
	assert.Zero(t, nobody.Total)

	_, err = reporter.ModeratorReport(t.Context(), "")
	require.ErrorIs(t, err, types.ErrValidation)
}
