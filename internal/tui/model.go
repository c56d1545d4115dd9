package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"cull/internal/preview"
	"cull/internal/triage"
)

type Options struct {
	Theme Theme
	// OnTheme is called with the new theme whenever the user toggles it.
	OnTheme func(Theme)
	// Describe reads image metadata; defaults to preview.Describe.
	Describe func(path string) preview.Preview
}

// Model is the triage viewer. It owns the interactive goroutine: every
// session call happens inside Update.
type Model struct {
	session  *triage.Session
	events   <-chan triage.Event
	keys     KeyMap
	theme    Theme
	styles   Styles
	onTheme  func(Theme)
	describe func(string) preview.Preview

	preview  preview.Preview
	loaded   bool
	lastKind string
	err      string
	showHelp bool
	width    int
	started  time.Time
	quitting bool
}

type eventMsg triage.Event

type eventsClosedMsg struct{}

type previewMsg preview.Preview

func NewModel(session *triage.Session, events <-chan triage.Event, opts Options) Model {
	theme := opts.Theme
	if theme.Name == "" {
		theme = DarkTheme
	}
	describe := opts.Describe
	if describe == nil {
		describe = preview.Describe
	}
	return Model{
		session:  session,
		events:   events,
		keys:     DefaultKeyMap(),
		theme:    theme,
		styles:   NewStyles(theme),
		onTheme:  opts.OnTheme,
		describe: describe,
		started:  time.Now(),
	}
}

// Theme reports the theme in use, including any toggle made by the user.
func (m Model) Theme() Theme { return m.theme }

func (m Model) Init() tea.Cmd {
	return tea.Batch(listenForEvents(m.events), m.loadPreview())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		m.session.HandleEvent(triage.Event(msg))
		return m, listenForEvents(m.events)
	case eventsClosedMsg:
		return m, nil
	case previewMsg:
		if cur, ok := m.session.Current(); ok && cur.Path == msg.Path {
			m.preview = preview.Preview(msg)
			m.loaded = true
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		return m, nil
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Keep):
		return m.commit(triage.Keep)
	case key.Matches(msg, m.keys.Discard):
		return m.commit(triage.Discard)
	case key.Matches(msg, m.keys.Maybe):
		return m.commit(triage.Maybe)
	case key.Matches(msg, m.keys.Undo):
		m.err = ""
		undone, err := m.session.Undo()
		if err != nil {
			m.err = err.Error()
		}
		if undone {
			m.lastKind = "undo"
		}
		return m, m.loadPreview()
	case key.Matches(msg, m.keys.Theme):
		m.theme = m.theme.Toggled()
		m.styles = NewStyles(m.theme)
		if m.onTheme != nil {
			m.onTheme(m.theme)
		}
		return m, nil
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return m, nil
	}
	return m, nil
}

func (m Model) commit(action triage.Action) (tea.Model, tea.Cmd) {
	m.err = ""
	res, err := m.session.Commit(action)
	if err != nil {
		m.err = err.Error()
		return m, nil
	}
	if res == triage.CommitQueued {
		m.lastKind = action.String()
	}
	return m, m.loadPreview()
}

// loadPreview reads metadata for the current entry off the update loop.
func (m *Model) loadPreview() tea.Cmd {
	cur, ok := m.session.Current()
	if !ok {
		m.preview = preview.Preview{}
		return nil
	}
	if m.preview.Path == cur.Path {
		return nil
	}
	m.preview = preview.Preview{Name: cur.Name, Path: cur.Path}
	m.loaded = false
	describe := m.describe
	return func() tea.Msg {
		return previewMsg(describe(cur.Path))
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	snap := m.session.Snapshot()
	st := m.styles

	lines := []string{st.Title.Render("cull") + "  " + st.Dim.Render(snap.Folder), ""}
	if snap.Complete {
		lines = append(lines, st.Complete.Render("SESSION COMPLETE!"))
	} else {
		lines = append(lines, st.Value.Render(snap.Current.Name))
		for _, line := range m.previewLines() {
			lines = append(lines, st.Exif.Render(line))
		}
	}
	main := strings.Join(lines, "\n")

	side := m.sidebar(snap)
	var body string
	if m.width == 0 || m.width >= 100 {
		body = lipgloss.JoinHorizontal(lipgloss.Top, lipgloss.NewStyle().Width(m.mainWidth()).Render(main), side)
	} else {
		body = lipgloss.JoinVertical(lipgloss.Left, main, side)
	}
	return body + "\n" + m.helpView()
}

func (m Model) previewLines() []string {
	if !m.loaded {
		return []string{"reading metadata…"}
	}
	lines := m.preview.Lines()
	lines[0] = fmt.Sprintf("%s, %s", m.preview.Kind, m.preview.SizeText())
	return lines
}

func (m Model) mainWidth() int {
	if m.width == 0 {
		return 60
	}
	return m.width - 40
}

func (m Model) sidebar(snap triage.Snapshot) string {
	st := m.styles

	ratio := 0.0
	if snap.SessionTotal > 0 {
		ratio = math.Min(1, float64(snap.SessionDone)/float64(snap.SessionTotal))
	}

	last := st.Dim.Render("Ready")
	if snap.LastAction != "" {
		style := st.Highlight
		if action, err := triage.ParseAction(m.lastKind); err == nil {
			style = st.Action(action)
		}
		last = style.Render(snap.LastAction)
	}

	lines := []string{
		st.Title.Render(fmt.Sprintf("Session: %d / %d", snap.SessionDone, snap.SessionTotal)),
		st.Dim.Render(fmt.Sprintf("Total: %d / %d", snap.Triaged, snap.FolderTotal)),
		st.Bar.Render(renderBar(26, ratio)),
		"",
		st.Label.Render("Last action: ") + last,
		st.Dim.Render(fmt.Sprintf("Writes pending: %d", snap.PendingJobs)),
		st.Dim.Render(fmt.Sprintf("Strategy: %s", m.session.Strategy())),
	}
	if msg := firstNonEmpty(m.err, snap.LastError); msg != "" {
		lines = append(lines, "", st.Error.Render(msg))
	}
	return st.Sidebar.Render(strings.Join(lines, "\n"))
}

func (m Model) helpView() string {
	bindings := m.keys.ShortHelp()
	if m.showHelp {
		bindings = m.keys.FullHelp()
	}
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	elapsed := time.Since(m.started).Round(time.Second)
	return m.styles.Dim.Render(strings.Join(parts, " • ") + fmt.Sprintf("   %s", elapsed))
}

func listenForEvents(events <-chan triage.Event) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg(ev)
	}
}

func renderBar(width int, ratio float64) string {
	filled := int(math.Round(ratio * float64(width)))
	filled = min(max(filled, 0), width)
	return "[" + strings.Repeat("=", filled) + strings.Repeat(" ", width-filled) + "]"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
