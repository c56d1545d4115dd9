package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"cull/internal/triage"
)

type SummaryRow struct {
	Label string
	Value string
}

// RenderSummary draws rows as a two-column table between rules.
func RenderSummary(rows []SummaryRow, st Styles) string {
	labelWidth := 0
	valueWidth := 0
	for _, row := range rows {
		labelWidth = max(labelWidth, lipgloss.Width(row.Label))
		valueWidth = max(valueWidth, lipgloss.Width(row.Value))
	}

	hline := st.Dim.Render(strings.Repeat("-", labelWidth+valueWidth+3))
	lines := []string{hline}
	for _, row := range rows {
		label := padRight(row.Label, labelWidth)
		value := padRight(row.Value, valueWidth)
		lines = append(lines, fmt.Sprintf("%s | %s", st.Label.Render(label), st.Value.Render(value)))
	}
	lines = append(lines, hline)
	return strings.Join(lines, "\n")
}

// SessionSummary lists the closing numbers of a triage session.
func SessionSummary(snap triage.Snapshot, done, failed, dropped int) []SummaryRow {
	return []SummaryRow{
		{Label: "Folder", Value: snap.Folder},
		{Label: "Sorted this session", Value: fmt.Sprintf("%d / %d", snap.SessionDone, snap.SessionTotal)},
		{Label: "Sorted overall", Value: fmt.Sprintf("%d / %d", snap.Triaged, snap.FolderTotal)},
		{Label: "File writes completed", Value: fmt.Sprintf("%d", done-failed)},
		{Label: "File writes failed", Value: fmt.Sprintf("%d", failed)},
		{Label: "File writes abandoned", Value: fmt.Sprintf("%d", dropped)},
	}
}

func padRight(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}
