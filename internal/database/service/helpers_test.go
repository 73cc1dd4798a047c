package service_test

import (
	"sync"
	"testing"
	"time"

	"github.com/c2tools/sanctions/internal/database"
	"github.com/c2tools/sanctions/internal/database/backend"
	"github.com/c2tools/sanctions/internal/database/types"
	"github.com/c2tools/sanctions/internal/setup/config"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestClient(t *testing.T) (database.Client, *fakeClock) {
	t.Helper()

	clock := &fakeClock{now: t0}

	client, err := database.NewConnection(t.Context(), &config.Database{
		Type:          config.DatabaseEmbedded,
		Path:          backend.MemoryPath,
		PoolTimeoutMS: 5000,
	}, zaptest.NewLogger(t), database.WithClock(clock.Now))
	require.NoError(t, err)

	t.Cleanup(func() { _ = client.Close() })

	return client, clock
}

func hours(h float64) *float64 {
	return &h
}

func timedBan(playerID string, durationHours float64) *types.NewSanction {
	return &types.NewSanction{
		Kind:          types.KindBan,
		PlayerID:      playerID,
		Username:      "user-" + playerID,
		Reason:        "FFA",
		DurationHours: hours(durationHours),
		ModeratorID:   "mod-1",
		ModeratorName: "Alice",
		ServerName:    "EU-1",
	}
}

func permanentBan(playerID string) *types.NewSanction {
	return &types.NewSanction{
		Kind:          types.KindBan,
		PlayerID:      playerID,
		Username:      "user-" + playerID,
		Reason:        "cheating",
		IsPermanent:   true,
		ModeratorID:   "mod-2",
		ModeratorName: "Bob",
		ServerName:    "US-1",
	}
}

func kick(playerID string) *types.NewSanction {
	return &types.NewSanction{
		Kind:          types.KindKick,
		PlayerID:      playerID,
		Username:      "user-" + playerID,
		Reason:        "language",
		ModeratorID:   "mod-1",
		ModeratorName: "Alice",
	}
}

func mustCreate(t *testing.T, client database.Client, input *types.NewSanction) *types.Sanction {
	t.Helper()

	sanction, err := client.Service().Sanction().Create(t.Context(), input)
	require.NoError(t, err)

	return sanction
}
