package types

import "time"

// Statistics stores aggregate sanction counts at a point in time.
type Statistics struct {
	ComputedAt    time.Time `json:"computedAt"`
	Total         int       `json:"total"`
	TotalBans     int       `json:"totalBans"`
	TotalKicks    int       `json:"totalKicks"`
	ActiveBans    int       `json:"activeBans"`
	PermanentBans int       `json:"permanentBans"`
	ExpiredBans   int       `json:"expiredBans"`
	Revoked       int       `json:"revoked"`
	// PerModerator maps moderator IDs to the number of sanctions they issued.
	PerModerator map[string]int `json:"perModerator"`
	// PerServer maps server names to sanction counts; "" collects unlabeled sanctions.
	PerServer map[string]int `json:"perServer"`
}

// GroupCount is one row of a grouped count query.
type GroupCount struct {
	Key   string `bun:"group_key"`
	Total int    `bun:"total"`
}
