package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/haukened/lockin/internal/lockin/domain"
	"github.com/haukened/lockin/internal/lockin/services/watchdog"
)

var (
	keyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(12)
	valueStyle  = lipgloss.NewStyle().Bold(true)
	activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	idleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	nameStyle   = lipgloss.NewStyle().Bold(true).Width(16)
	boxStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1)
)

type row struct{ key, value string }

func renderRows(rows []row) string {
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, keyStyle.Render(r.key)+valueStyle.Render(r.value))
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}

func renderStatus(st domain.Status) string {
	if !st.Active {
		return idleStyle.Render("No active session.")
	}
	return activeStyle.Render("Locked in") + "\n" + renderRows([]row{
		{"profile", st.Profile},
		{"remaining", formatRemaining(st.Remaining)},
		{"ends at", st.EndsAt.Local().Format("15:04:05")},
		{"domains", fmt.Sprint(st.Domains)},
		{"apps", fmt.Sprint(st.Apps)},
	})
}

func renderStarted(res startResult) string {
	s := res.Session
	return activeStyle.Render("Session started") + "\n" + renderRows([]row{
		{"profile", s.Profile},
		{"duration", s.Duration().String()},
		{"ends at", s.EndsAt().Local().Format("15:04:05")},
		{"domains", fmt.Sprint(len(s.Domains))},
		{"apps", fmt.Sprint(len(s.Apps))},
		{"stopped", fmt.Sprint(len(res.Processes.Terminated) + len(res.Processes.Killed))},
	})
}

func renderReport(rep watchdog.Report) string {
	rows := []row{{"state", rep.State.String()}}
	if rep.Profile != "" {
		rows = append(rows,
			row{"profile", rep.Profile},
			row{"cycles", fmt.Sprint(rep.Cycles)},
			row{"clock", trust(rep.WallTrusted)},
			row{"package", repaired(rep.PackageRepaired)},
		)
	}
	if rep.Reason != "" {
		rows = append(rows, row{"reason", rep.Reason})
	}
	rows = append(rows,
		row{"hosts", repaired(rep.HostsRepaired)},
		row{"stopped", fmt.Sprint(len(rep.Processes.Terminated) + len(rep.Processes.Killed))},
	)
	if rep.Released {
		rows = append(rows, row{"released", "yes"})
	}
	return renderRows(rows)
}

func renderPresets(presets []domain.Preset) string {
	lines := make([]string, 0, len(presets))
	for _, p := range presets {
		lines = append(lines, fmt.Sprintf("%s%s %s",
			nameStyle.Render(p.Name),
			p.Description,
			keyStyle.UnsetWidth().Render(fmt.Sprintf("(%d domains, %d apps)", len(p.Domains), len(p.Apps))),
		))
	}
	return strings.Join(lines, "\n")
}

// formatRemaining renders whole seconds as 1h02m03s or 4m05s.
func formatRemaining(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

func trust(ok bool) string {
	if ok {
		return "trusted"
	}
	return "untrusted"
}

func repaired(ok bool) string {
	if ok {
		return "repaired"
	}
	return "ok"
}
