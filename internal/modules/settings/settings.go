// Package settings is the host-aware unit that changes the shell colours
// and lists the loaded units.
package settings

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/tldr-it-stepankutaj/toolbox/internal/logging"
	"github.com/tldr-it-stepankutaj/toolbox/internal/modules"
	"github.com/tldr-it-stepankutaj/toolbox/internal/prefs"
)

// TypeName is the catalog name of the settings panel.
const TypeName = "Settings"

// Preset is a named colour choice. An empty Color is the terminal default.
type Preset struct {
	Name  string
	Color string
}

var (
	Backgrounds = []Preset{
		{"Default", ""},
		{"Midnight", "#1e1e2e"},
		{"Slate", "#2e3440"},
		{"Forest", "#1b2b1b"},
		{"Paper", "#f5f5f0"},
	}
	TextColors = []Preset{
		{"Default", ""},
		{"White", "#ffffff"},
		{"Black", "#000000"},
		{"Amber", "#ffbf00"},
		{"Mint", "#98ff98"},
	}
)

const (
	groupBackground = iota
	groupText
)

var (
	headStyle   = lipgloss.NewStyle().Bold(true)
	cursorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#73F59F"))
	activeMark  = lipgloss.NewStyle().Foreground(lipgloss.Color("#73F59F")).Render("*")
	hintStyle   = lipgloss.NewStyle().Faint(true)
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
)

// Panel picks background and text colours from the presets, applies them
// through the host and persists them under ui_settings.
type Panel struct {
	host    modules.Host
	group   int
	cursor  [2]int
	applied [2]string
	status  string
	failed  bool
	logger  *log.Logger
}

func New(host modules.Host, logger *log.Logger) *Panel {
	if logger == nil {
		logger = logging.Discard()
	}
	p := &Panel{host: host, logger: logger, status: "tab: switch list • enter: apply • r: reset"}
	if s := host.Settings(); s != nil {
		p.applied[groupBackground] = s.GetString(prefs.SectionUI, prefs.OptionBackground, "")
		p.applied[groupText] = s.GetString(prefs.SectionUI, prefs.OptionTextColor, "")
	}
	p.cursor[groupBackground] = indexOf(Backgrounds, p.applied[groupBackground])
	p.cursor[groupText] = indexOf(TextColors, p.applied[groupText])
	return p
}

func indexOf(presets []Preset, color string) int {
	for i, pr := range presets {
		if strings.EqualFold(pr.Color, color) {
			return i
		}
	}
	return 0
}

func presets(group int) []Preset {
	if group == groupText {
		return TextColors
	}
	return Backgrounds
}

func (p *Panel) Init() tea.Cmd { return nil }

func (p *Panel) Update(msg tea.Msg) (modules.Panel, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return p, nil
	}
	switch key.String() {
	case "tab", "shift+tab":
		p.group = 1 - p.group
	case "up", "k":
		if p.cursor[p.group] > 0 {
			p.cursor[p.group]--
		}
	case "down", "j":
		if p.cursor[p.group] < len(presets(p.group))-1 {
			p.cursor[p.group]++
		}
	case "enter":
		p.apply(p.group, presets(p.group)[p.cursor[p.group]])
	case "r":
		p.reset()
	}
	return p, nil
}

func (p *Panel) apply(group int, pr Preset) {
	var err error
	option := prefs.OptionBackground
	if group == groupText {
		option = prefs.OptionTextColor
		err = p.host.SetTextColor(pr.Color)
	} else {
		err = p.host.SetBackground(pr.Color)
	}
	if err != nil {
		p.fail(err)
		return
	}
	p.applied[group] = pr.Color
	if s := p.host.Settings(); s != nil {
		if err := s.Set(prefs.SectionUI, option, pr.Color); err != nil {
			p.fail(fmt.Errorf("colour applied but not saved: %w", err))
			return
		}
	}
	p.failed = false
	p.status = "applied " + pr.Name
}

func (p *Panel) reset() {
	p.cursor = [2]int{}
	p.apply(groupBackground, Backgrounds[0])
	if p.failed {
		return
	}
	p.apply(groupText, TextColors[0])
	if !p.failed {
		p.status = "restored defaults"
	}
}

func (p *Panel) fail(err error) {
	p.failed = true
	p.status = err.Error()
	p.logger.Warn("settings change failed", "err", err)
}

func (p *Panel) View() string {
	var b strings.Builder
	for _, g := range []int{groupBackground, groupText} {
		title := "Background"
		if g == groupText {
			title = "Text colour"
		}
		b.WriteString(headStyle.Render(title) + "\n")
		for i, pr := range presets(g) {
			mark := " "
			if strings.EqualFold(pr.Color, p.applied[g]) {
				mark = activeMark
			}
			label := pr.Name
			if pr.Color != "" {
				label += " (" + pr.Color + ")"
			}
			if g == p.group && i == p.cursor[g] {
				b.WriteString(mark + cursorStyle.Render("> "+label) + "\n")
			} else {
				b.WriteString(mark + "  " + label + "\n")
			}
		}
		b.WriteString("\n")
	}

	b.WriteString(headStyle.Render("Loaded units") + "\n")
	if nav := p.host.Navigation(); nav != nil {
		sel := nav.Selected()
		for i, l := range nav.Labels() {
			if i == sel {
				l += " (open)"
			}
			fmt.Fprintf(&b, "  %d. %s\n", i+1, l)
		}
	} else {
		b.WriteString(hintStyle.Render("  binding in progress") + "\n")
	}
	b.WriteString("\n")
	if p.failed {
		b.WriteString(errStyle.Render(p.status))
	} else {
		b.WriteString(hintStyle.Render(p.status))
	}
	return b.String()
}
