package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"cull/internal/triage"
)

// Theme is an immutable colour palette.
type Theme struct {
	Name      string
	Fg        lipgloss.Color
	Panel     lipgloss.Color
	Keep      lipgloss.Color
	Discard   lipgloss.Color
	Maybe     lipgloss.Color
	Highlight lipgloss.Color
	TextDim   lipgloss.Color
	ExifFg    lipgloss.Color
}

var (
	DarkTheme = Theme{
		Name:      "dark",
		Fg:        lipgloss.Color("#ffffff"),
		Panel:     lipgloss.Color("#2d2d2d"),
		Keep:      lipgloss.Color("#4caf50"),
		Discard:   lipgloss.Color("#f44336"),
		Maybe:     lipgloss.Color("#ff9800"),
		Highlight: lipgloss.Color("#2196f3"),
		TextDim:   lipgloss.Color("#aaaaaa"),
		ExifFg:    lipgloss.Color("#dddddd"),
	}
	LightTheme = Theme{
		Name:      "light",
		Fg:        lipgloss.Color("#000000"),
		Panel:     lipgloss.Color("#ffffff"),
		Keep:      lipgloss.Color("#388e3c"),
		Discard:   lipgloss.Color("#d32f2f"),
		Maybe:     lipgloss.Color("#f57c00"),
		Highlight: lipgloss.Color("#1976d2"),
		TextDim:   lipgloss.Color("#555555"),
		ExifFg:    lipgloss.Color("#000000"),
	}
)

// ThemeByName returns the named theme, defaulting to dark.
func ThemeByName(name string) Theme {
	if strings.EqualFold(name, LightTheme.Name) {
		return LightTheme
	}
	return DarkTheme
}

// Toggled returns the other theme.
func (t Theme) Toggled() Theme {
	if t.Name == LightTheme.Name {
		return DarkTheme
	}
	return LightTheme
}

// Styles are the lipgloss styles derived from a Theme.
type Styles struct {
	Title     lipgloss.Style
	Label     lipgloss.Style
	Value     lipgloss.Style
	Dim       lipgloss.Style
	Bar       lipgloss.Style
	Highlight lipgloss.Style
	Error     lipgloss.Style
	Exif      lipgloss.Style
	Complete  lipgloss.Style
	Sidebar   lipgloss.Style
	actions   map[triage.Action]lipgloss.Style
}

// NewStyles derives every style from t.
func NewStyles(t Theme) Styles {
	return Styles{
		Title:     lipgloss.NewStyle().Bold(true).Foreground(t.Fg),
		Label:     lipgloss.NewStyle().Foreground(t.Fg),
		Value:     lipgloss.NewStyle().Foreground(t.Fg).Bold(true),
		Dim:       lipgloss.NewStyle().Foreground(t.TextDim),
		Bar:       lipgloss.NewStyle().Foreground(t.Highlight),
		Highlight: lipgloss.NewStyle().Bold(true).Foreground(t.Highlight),
		Error:     lipgloss.NewStyle().Bold(true).Foreground(t.Discard),
		Exif:      lipgloss.NewStyle().Foreground(t.ExifFg),
		Complete:  lipgloss.NewStyle().Bold(true).Foreground(t.Keep),
		Sidebar:   lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(t.TextDim).Padding(0, 1),
		actions: map[triage.Action]lipgloss.Style{
			triage.Keep:    lipgloss.NewStyle().Bold(true).Foreground(t.Keep),
			triage.Discard: lipgloss.NewStyle().Bold(true).Foreground(t.Discard),
			triage.Maybe:   lipgloss.NewStyle().Bold(true).Foreground(t.Maybe),
		},
	}
}

// Action returns the style used for an action's label.
func (s Styles) Action(a triage.Action) lipgloss.Style {
	if st, ok := s.actions[a]; ok {
		return st
	}
	return s.Label
}
