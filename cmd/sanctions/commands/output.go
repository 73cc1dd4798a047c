package commands

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/c2tools/sanctions/internal/database/types"
	"github.com/c2tools/sanctions/internal/report"
	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const timeLayout = "2006-01-02 15:04:05"

var titleCaser = cases.Title(language.English)

// jsonFlag toggles machine-readable output.
const jsonFlag = "json"

func writeJSON(w io.Writer, v any) error {
	data, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}

	_, err = fmt.Fprintln(w, string(data))
	return err
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(timeLayout)
}

func formatRelative(t *time.Time, now time.Time) string {
	if t == nil {
		return "-"
	}
	return fmt.Sprintf("%s (%s)", t.UTC().Format(timeLayout), humanize.RelTime(*t, now, "ago", "from now"))
}

func formatDuration(s *types.Sanction) string {
	switch {
	case s.Kind == types.KindKick:
		return "-"
	case s.IsPermanent:
		return "permanent"
	case s.DurationHours != nil:
		return strconv.FormatFloat(*s.DurationHours, 'f', -1, 64) + "h"
	default:
		return "-"
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// renderSanctions prints one row per sanction, newest first as given.
func renderSanctions(w io.Writer, sanctions []*types.Sanction, now time.Time) {
	t := newTable(w)
	t.AppendHeader(table.Row{"ID", "Kind", "Player", "Username", "Reason", "Duration", "Moderator", "Server", "Applied", "Status"})

	for _, s := range sanctions {
		t.AppendRow(table.Row{
			s.ID,
			titleCaser.String(s.Kind.String()),
			s.PlayerID,
			orDash(s.Username),
			s.Reason,
			formatDuration(s),
			s.ModeratorName,
			orDash(s.ServerName),
			s.AppliedAt.UTC().Format(timeLayout),
			titleCaser.String(string(s.Status(now))),
		})
	}

	t.AppendFooter(table.Row{"", "", "", "", "", "", "", "", "Total", len(sanctions)})
	t.Render()
}

// renderSanction prints every field of one sanction.
func renderSanction(w io.Writer, s *types.Sanction, now time.Time) {
	t := newTable(w)
	t.AppendRows([]table.Row{
		{"ID", s.ID},
		{"Kind", titleCaser.String(s.Kind.String())},
		{"Status", titleCaser.String(string(s.Status(now)))},
		{"Player", s.PlayerID},
		{"Username", orDash(s.Username)},
		{"Reason", s.Reason},
		{"Duration", formatDuration(s)},
		{"Moderator", fmt.Sprintf("%s (%s)", s.ModeratorName, s.ModeratorID)},
		{"Server", orDash(s.ServerName)},
		{"Applied", formatRelative(&s.AppliedAt, now)},
		{"Expires", formatRelative(s.ExpiresAt, now)},
		{"Notified In-Game", s.NotifiedIngame},
		{"Notified Discord", s.NotifiedDiscord},
		{"Notes", orDash(s.AdditionalNotes)},
	})

	if s.IsRevoked() {
		t.AppendSeparator()
		t.AppendRows([]table.Row{
			{"Revoked", formatRelative(s.RevokedAt, now)},
			{"Revoked By", s.RevokedBy},
			{"Revoke Reason", orDash(s.RevokeReason)},
		})
	}

	t.Render()
}

// renderCounts prints a two-column breakdown sorted by key.
func renderCounts(w io.Writer, title string, counts map[string]int) {
	t := newTable(w)
	t.SetTitle(title)
	t.AppendHeader(table.Row{"Name", "Sanctions"})

	for _, key := range slices.Sorted(maps.Keys(counts)) {
		label := key
		if label == "" {
			label = "(none)"
		}
		t.AppendRow(table.Row{label, humanize.Comma(int64(counts[key]))})
	}

	t.Render()
}

func renderStatistics(w io.Writer, stats *types.Statistics) {
	t := newTable(w)
	t.SetTitle("Sanction Statistics")
	t.AppendRows([]table.Row{
		{"Total", humanize.Comma(int64(stats.Total))},
		{"Bans", humanize.Comma(int64(stats.TotalBans))},
		{"Kicks", humanize.Comma(int64(stats.TotalKicks))},
		{"Active Bans", humanize.Comma(int64(stats.ActiveBans))},
		{"Permanent Bans", humanize.Comma(int64(stats.PermanentBans))},
		{"Expired Bans", humanize.Comma(int64(stats.ExpiredBans))},
		{"Revoked", humanize.Comma(int64(stats.Revoked))},
	})
	t.AppendFooter(table.Row{"Computed", stats.ComputedAt.UTC().Format(timeLayout)})
	t.Render()

	renderCounts(w, "Per Moderator", stats.PerModerator)
	renderCounts(w, "Per Server", stats.PerServer)
}

func renderPlayerReport(w io.Writer, r *report.PlayerReport) {
	t := newTable(w)
	t.SetTitle("Player " + r.PlayerID)
	t.AppendRows([]table.Row{
		{"Username", orDash(r.MostRecentUsername)},
		{"Sanctions", r.Total},
		{"Bans", r.Bans},
		{"Kicks", r.Kicks},
		{"Revoked", r.Revoked},
		{"Currently Banned", r.CurrentlyBanned},
		{"First Sanction", formatRelative(r.FirstSanction, r.GeneratedAt)},
		{"Last Sanction", formatRelative(r.LastSanction, r.GeneratedAt)},
	})
	if r.ActiveBan != nil {
		t.AppendRow(table.Row{"Active Ban Expires", formatRelative(r.ActiveBan.ExpiresAt, r.GeneratedAt)})
	}
	t.Render()

	if len(r.Sanctions) > 0 {
		renderSanctions(w, r.Sanctions, r.GeneratedAt)
	}
}

func renderModeratorReport(w io.Writer, r *report.ModeratorReport) {
	t := newTable(w)
	t.SetTitle("Moderator " + r.ModeratorID)
	t.AppendRows([]table.Row{
		{"Name", orDash(r.ModeratorName)},
		{"Sanctions", r.Total},
		{"Bans", r.Bans},
		{"Kicks", r.Kicks},
		{"Revoked", r.Revoked},
		{"First Sanction", formatRelative(r.FirstSanction, r.GeneratedAt)},
		{"Last Sanction", formatRelative(r.LastSanction, r.GeneratedAt)},
	})
	t.Render()

	if len(r.ByServer) > 0 {
		renderCounts(w, "Per Server", r.ByServer)
	}
	if len(r.Sanctions) > 0 {
		renderSanctions(w, r.Sanctions, r.GeneratedAt)
	}
}
