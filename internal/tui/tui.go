package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/tldr-it-stepankutaj/toolbox/internal/app"
	"github.com/tldr-it-stepankutaj/toolbox/internal/logging"
	"github.com/tldr-it-stepankutaj/toolbox/internal/modules"
	"github.com/tldr-it-stepankutaj/toolbox/internal/navigation"
)

type focus int

const (
	focusNav focus = iota
	focusPanel
)

// Options configures the host model.
type Options struct {
	Settings modules.Settings
	Logger   *log.Logger
	// Title is shown above the navigation list.
	Title string
}

// Model is the host window: the unit list on the left, the selected
// unit's panel on the right.
type Model struct {
	host   *host
	nav    *navigation.Navigator
	keys   keyMap
	focus  focus
	title  string
	notice string
	width  int
	height int
	logger *log.Logger
}

// New binds reg against a fresh host and returns the model.
func New(reg *modules.Registry, opts Options) Model {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	title := opts.Title
	if title == "" {
		title = "Toolbox"
	}

	h := newHost(opts.Settings, logger.WithPrefix("host"))
	nav := navigation.Bind(reg, h, logger.WithPrefix("navigation"))
	h.nav = nav

	m := Model{
		host:   h,
		nav:    nav,
		keys:   defaultKeys(),
		title:  title,
		logger: logger.WithPrefix("host"),
	}
	if skipped := len(reg.Diagnostics()) + len(nav.Failures()); skipped > 0 {
		m.notice = fmt.Sprintf("%d unit(s) skipped, see log", skipped)
	}
	if nav.Len() == 0 {
		m.notice = fmt.Sprintf("no units loaded from %s (run `toolbox init`)", reg.Dir())
	}
	m.logger.Info("host ready", "units", nav.Len(), "selected", nav.Selected())
	return m
}

// Navigator exposes the bound navigation state.
func (m Model) Navigator() *navigation.Navigator { return m.nav }

func (m Model) Init() tea.Cmd {
	var cmds []tea.Cmd
	for _, e := range m.nav.Entries() {
		cmds = append(cmds, e.Instance.Init())
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, m.broadcast(m.panelSize())

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Force) {
			return m, tea.Quit
		}
		if m.focus == focusPanel {
			return m.updateFocusedPanel(msg)
		}
		return m.updateNav(msg)
	}

	// Anything else is a result addressed to some panel; each panel drops
	// messages it does not own.
	return m, m.broadcast(msg)
}

func (m Model) updateNav(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		m.nav.Prev()
	case key.Matches(msg, m.keys.Down):
		m.nav.Next()
	case key.Matches(msg, m.keys.Jump):
		m.nav.Select(int(msg.Runes[0] - '1'))
	case key.Matches(msg, m.keys.Enter):
		if _, ok := m.nav.Current(); ok {
			m.focus = focusPanel
			return m, m.focusCurrent()
		}
	}
	return m, nil
}

func (m Model) updateFocusedPanel(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Back) {
		m.blurCurrent()
		m.focus = focusNav
		return m, nil
	}
	before := m.nav.Selected()
	cmd := m.updatePanel(before, msg)
	if m.nav.Selected() != before {
		// The panel moved the selection through the host.
		m.blurIndex(before)
		m.focus = focusNav
	}
	return m, cmd
}

func (m Model) updatePanel(index int, msg tea.Msg) tea.Cmd {
	entries := m.nav.Entries()
	if index < 0 || index >= len(entries) {
		return nil
	}
	p, cmd := entries[index].Instance.Update(msg)
	if err := m.nav.SetInstance(index, p); err != nil {
		m.logger.Error("panel update dropped", "id", entries[index].Label, "err", err)
	}
	return cmd
}

func (m Model) broadcast(msg tea.Msg) tea.Cmd {
	var cmds []tea.Cmd
	for i := range m.nav.Entries() {
		cmds = append(cmds, m.updatePanel(i, msg))
	}
	return tea.Batch(cmds...)
}

func (m Model) focusCurrent() tea.Cmd {
	cur, ok := m.nav.Current()
	if !ok {
		return nil
	}
	if f, ok := cur.Instance.(modules.Focusable); ok {
		return f.Focus()
	}
	return nil
}

func (m Model) blurCurrent() { m.blurIndex(m.nav.Selected()) }

func (m Model) blurIndex(index int) {
	entries := m.nav.Entries()
	if index < 0 || index >= len(entries) {
		return
	}
	if f, ok := entries[index].Instance.(modules.Focusable); ok {
		f.Blur()
	}
}

// panelSize is the content area handed to panels.
func (m Model) panelSize() tea.WindowSizeMsg {
	navOuter := navWidth + navStyle.GetHorizontalBorderSize()
	w := m.width - navOuter - panelStyle.GetHorizontalFrameSize()
	h := m.height - 2 - panelStyle.GetVerticalFrameSize()
	return tea.WindowSizeMsg{Width: max(w, 0), Height: max(h, 0)}
}

func (m Model) View() string {
	title := titleStyle.Render(m.title)

	var list strings.Builder
	for i, label := range m.nav.Labels() {
		line := fmt.Sprintf("%d %s", i+1, label)
		if i == m.nav.Selected() {
			list.WriteString(selectedItem.Render(line))
		} else {
			list.WriteString(itemStyle.Render(line))
		}
		list.WriteString("\n")
	}

	nav, panel := navStyle, panelStyle
	if m.focus == focusNav {
		nav = nav.BorderForeground(focusedBorder)
		panel = panel.BorderForeground(blurredBorder)
	} else {
		nav = nav.BorderForeground(blurredBorder)
		panel = panel.BorderForeground(focusedBorder)
	}

	size := m.panelSize()
	if m.height > 0 {
		nav = nav.Height(size.Height)
		panel = panel.Height(size.Height)
	}
	if m.width > 0 {
		panel = panel.Width(size.Width + panelStyle.GetHorizontalPadding())
	}

	body := ""
	if cur, ok := m.nav.Current(); ok {
		body = cur.Instance.View()
	} else {
		body = errStyle.Render(m.notice)
	}

	row := lipgloss.JoinHorizontal(lipgloss.Top,
		nav.Render(strings.TrimSuffix(list.String(), "\n")),
		panel.Render(body),
	)
	frame := lipgloss.JoinVertical(lipgloss.Left, title, row, helpStyle.Render(m.helpLine()))
	return m.frameStyle().Render(frame)
}

func (m Model) helpLine() string {
	var help string
	if m.focus == focusNav {
		help = "↑/↓ select • 1-9 jump • enter open • q quit"
	} else {
		help = "esc back to list • ctrl+c quit"
	}
	if m.notice != "" && m.nav.Len() > 0 {
		help += " • " + m.notice
	}
	return help
}

func (m Model) frameStyle() lipgloss.Style {
	s := lipgloss.NewStyle()
	if m.host.background != "" {
		s = s.Background(lipgloss.Color(m.host.background))
	}
	if m.host.foreground != "" {
		s = s.Foreground(lipgloss.Color(m.host.foreground))
	}
	if m.width > 0 && m.height > 0 {
		s = s.Width(m.width).Height(m.height)
	}
	return s
}

// Run binds reg and runs the host until the user quits.
func Run(appCtx app.Context, reg *modules.Registry, settings modules.Settings) error {
	m := New(reg, Options{Settings: settings, Logger: appCtx.Logger})
	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if appCtx.Ctx != nil {
		opts = append(opts, tea.WithContext(appCtx.Ctx))
	}
	_, err := tea.NewProgram(m, opts...).Run()
	return err
}
