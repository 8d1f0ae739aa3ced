// Package browse is a terminal viewer for generated corpora: a searchable table of
// entries with a detail view of the selected one.
package browse

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/cluso-ift/pkg/template"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF")).
			MarginLeft(2).
			MarginTop(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FFFF")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FFFF")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFF00"))

	contentStyle = lipgloss.NewStyle().
			MarginLeft(2).
			MarginTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginTop(1).
			MarginLeft(2)
)

type view int

const (
	listView view = iota
	detailView
)

type keyMap struct {
	Search key.Binding
	Enter  key.Binding
	Back   key.Binding
	Quit   key.Binding
	Up     key.Binding
	Down   key.Binding
}

var keys = keyMap{
	Search: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "search"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "open"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "back"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Search, k.Enter, k.Back, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Enter},
		{k.Search, k.Back, k.Quit},
	}
}

// Model is the browser state.
type Model struct {
	title       string
	entries     []template.Entry
	visible     []int // indexes into entries matching the search
	currentView view
	table       table.Model
	search      textinput.Model
	detail      viewport.Model
	help        help.Model
	keys        keyMap
	width       int
	height      int
	message     string
}

// New creates a browser over entries.
func New(title string, entries []template.Entry) Model {
	ti := textinput.New()
	ti.Placeholder = "filter instruction, input or output"
	ti.CharLimit = 200
	ti.Width = 60

	t := table.New(
		table.WithColumns(columns(100)),
		table.WithFocused(true),
		table.WithHeight(15),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#00FFFF")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#FF00FF")).
		Bold(false)
	t.SetStyles(s)

	m := Model{
		title:   title,
		entries: entries,
		table:   t,
		search:  ti,
		detail:  viewport.New(100, 20),
		help:    help.New(),
		keys:    keys,
	}
	m.applySearch("")
	return m
}

func columns(width int) []table.Column {
	text := (width - 8) / 3
	if text < 10 {
		text = 10
	}
	return []table.Column{
		{Title: "#", Width: 6},
		{Title: "Instruction", Width: text},
		{Title: "Input", Width: text},
		{Title: "Output", Width: text},
	}
}

// Visible returns how many entries match the current search.
func (m Model) Visible() int {
	return len(m.visible)
}

// Selected returns the entry under the cursor.
func (m Model) Selected() (template.Entry, bool) {
	c := m.table.Cursor()
	if c < 0 || c >= len(m.visible) {
		return template.Entry{}, false
	}
	return m.entries[m.visible[c]], true
}

// applySearch keeps the entries containing query, case-insensitively.
func (m *Model) applySearch(query string) {
	query = strings.ToLower(strings.TrimSpace(query))
	m.visible = nil
	rows := make([]table.Row, 0, len(m.entries))
	for i, e := range m.entries {
		if query != "" && !matches(e, query) {
			continue
		}
		m.visible = append(m.visible, i)
		rows = append(rows, table.Row{
			strconv.Itoa(i + 1),
			oneLine(e.Instruction),
			oneLine(e.Input),
			oneLine(e.Output),
		})
	}
	m.table.SetRows(rows)
	m.table.SetCursor(0)

	if query != "" && len(m.visible) == 0 {
		m.message = fmt.Sprintf("No entries match %q", query)
	} else {
		m.message = ""
	}
}

func matches(e template.Entry, query string) bool {
	for _, text := range []string{e.Instruction, e.Input, e.Output} {
		if strings.Contains(strings.ToLower(text), query) {
			return true
		}
	}
	return false
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.table.SetColumns(columns(msg.Width - 4))
		m.table.SetHeight(max(msg.Height-12, 3))
		m.detail.Width = msg.Width - 4
		m.detail.Height = max(msg.Height-10, 3)
		return m, nil

	case tea.KeyMsg:
		if m.search.Focused() {
			switch {
			case key.Matches(msg, m.keys.Enter):
				m.search.Blur()
				m.table.Focus()
				return m, nil
			case key.Matches(msg, m.keys.Back):
				m.search.SetValue("")
				m.search.Blur()
				m.table.Focus()
				m.applySearch("")
				return m, nil
			}
			m.search, cmd = m.search.Update(msg)
			m.applySearch(m.search.Value())
			return m, cmd
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Search) && m.currentView == listView:
			m.table.Blur()
			return m, m.search.Focus()

		case key.Matches(msg, m.keys.Enter) && m.currentView == listView:
			if e, ok := m.Selected(); ok {
				m.currentView = detailView
				m.detail.SetContent(renderEntry(e, m.detail.Width))
				m.detail.GotoTop()
			}
			return m, nil

		case key.Matches(msg, m.keys.Back) && m.currentView == detailView:
			m.currentView = listView
			return m, nil
		}
	}

	switch m.currentView {
	case listView:
		m.table, cmd = m.table.Update(msg)
	case detailView:
		m.detail, cmd = m.detail.Update(msg)
	}
	return m, cmd
}

func renderEntry(e template.Entry, width int) string {
	wrap := lipgloss.NewStyle().Width(max(width, 20))
	var s strings.Builder
	for _, part := range []struct{ label, text string }{
		{"Instruction", e.Instruction},
		{"Input", e.Input},
		{"Output", e.Output},
	} {
		s.WriteString(labelStyle.Render(part.label))
		s.WriteString("\n")
		s.WriteString(wrap.Render(part.text))
		s.WriteString("\n\n")
	}
	return s.String()
}

func (m Model) View() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(m.title))
	s.WriteString("\n\n")

	switch m.currentView {
	case listView:
		header := fmt.Sprintf("Entries %d/%d", len(m.visible), len(m.entries))
		s.WriteString(contentStyle.Render(headerStyle.Render(header)))
		s.WriteString("\n")
		if m.search.Focused() || m.search.Value() != "" {
			s.WriteString(contentStyle.Render(m.search.View()))
			s.WriteString("\n")
		}
		s.WriteString(contentStyle.Render(m.table.View()))
	case detailView:
		c := m.table.Cursor()
		header := fmt.Sprintf("Entry %d", m.visible[c]+1)
		s.WriteString(contentStyle.Render(headerStyle.Render(header)))
		s.WriteString("\n")
		s.WriteString(contentStyle.Render(m.detail.View()))
	}

	if m.message != "" {
		s.WriteString("\n\n")
		s.WriteString(errorStyle.Render("✗ " + m.message))
	}

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render(m.help.ShortHelpView(m.keys.ShortHelp())))
	return s.String()
}

// Run shows entries full screen until the user quits.
func Run(title string, entries []template.Entry) error {
	p := tea.NewProgram(New(title, entries), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("browser failed: %w", err)
	}
	return nil
}
