package classifier

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/tldr-it-stepankutaj/toolbox/internal/logging"
	"github.com/tldr-it-stepankutaj/toolbox/internal/modules"
	"github.com/tldr-it-stepankutaj/toolbox/internal/prefs"
)

// TypeName is the catalog name of the classifier panel.
const TypeName = "FileClassifier"

const (
	fieldFolder = iota
	fieldInclude
	fieldExclude
	fieldKeyword
	fieldCount
)

var (
	labels     = [fieldCount]string{"Folder", "Include", "Exclude", "Search"}
	labelStyle = lipgloss.NewStyle().Width(9).Bold(true)
	infoStyle  = lipgloss.NewStyle().Faint(true)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
)

var panelSeq atomic.Int64

type scanDoneMsg struct {
	panel  int64
	result Result
	err    error
}

// Panel is the interactive front end of Scan and Search.
type Panel struct {
	id       int64
	inputs   [fieldCount]textinput.Model
	field    int
	view     viewport.Model
	result   Result
	scanned  bool
	busy     bool
	status   string
	failed   bool
	settings modules.Settings
	ctx      context.Context
	logger   *log.Logger
}

var _ modules.Focusable = (*Panel)(nil)

// New builds the panel, restoring the last folder and filters from
// settings when available. Scans stop when ctx is cancelled.
func New(ctx context.Context, settings modules.Settings, logger *log.Logger) *Panel {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = logging.Discard()
	}
	p := &Panel{
		id:       panelSeq.Add(1),
		view:     viewport.New(60, 10),
		settings: settings,
		ctx:      ctx,
		logger:   logger,
		status:   "enter: scan • tab: next field • pgup/pgdn: scroll",
	}
	placeholders := [fieldCount]string{"/path/to/folder", ".jpg,.png (empty = all)", ".tmp,.log", "part of a file name"}
	for i := range p.inputs {
		in := textinput.New()
		in.Prompt = ""
		in.Placeholder = placeholders[i]
		in.Width = 50
		p.inputs[i] = in
	}
	if settings != nil {
		p.inputs[fieldFolder].SetValue(settings.GetString(prefs.SectionClassifier, prefs.OptionFolder, ""))
		p.inputs[fieldInclude].SetValue(settings.GetString(prefs.SectionClassifier, prefs.OptionFilterTypes, ""))
		p.inputs[fieldExclude].SetValue(settings.GetString(prefs.SectionClassifier, prefs.OptionExcludeType, ""))
	}
	return p
}

func (p *Panel) Init() tea.Cmd { return nil }

func (p *Panel) Focus() tea.Cmd { return p.inputs[p.field].Focus() }

func (p *Panel) Blur() {
	for i := range p.inputs {
		p.inputs[i].Blur()
	}
}

func (p *Panel) Update(msg tea.Msg) (modules.Panel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		w := max(msg.Width-labelStyle.GetWidth()-1, 10)
		for i := range p.inputs {
			p.inputs[i].Width = w
		}
		p.view.Width = max(msg.Width, 10)
		p.view.Height = max(msg.Height-int(fieldCount)-2, 1)
		return p, nil

	case scanDoneMsg:
		if msg.panel != p.id {
			return p, nil
		}
		p.busy = false
		if msg.err != nil {
			p.failed = true
			p.status = msg.err.Error()
			p.logger.Error("scan failed", "root", p.inputs[fieldFolder].Value(), "err", msg.err)
			return p, nil
		}
		p.failed = false
		p.result = msg.result
		p.scanned = true
		p.logger.Info("scan finished", "root", msg.result.Root, "files", msg.result.Count(), "folders", len(msg.result.Groups))
		p.refresh()
		return p, nil

	case tea.KeyMsg:
		return p.handleKey(msg)
	}
	return p, nil
}

func (p *Panel) handleKey(msg tea.KeyMsg) (modules.Panel, tea.Cmd) {
	switch msg.String() {
	case "tab", "down":
		return p, p.moveField(1)
	case "shift+tab", "up":
		return p, p.moveField(-1)
	case "pgup", "pgdown":
		var cmd tea.Cmd
		p.view, cmd = p.view.Update(msg)
		return p, cmd
	case "enter":
		if p.field == fieldKeyword && p.scanned {
			p.refresh()
			return p, nil
		}
		return p, p.startScan()
	}
	var cmd tea.Cmd
	p.inputs[p.field], cmd = p.inputs[p.field].Update(msg)
	return p, cmd
}

func (p *Panel) moveField(delta int) tea.Cmd {
	p.inputs[p.field].Blur()
	p.field = (p.field + delta + int(fieldCount)) % int(fieldCount)
	return p.inputs[p.field].Focus()
}

func (p *Panel) filter() Filter {
	return Filter{
		Include: ParseExtensions(p.inputs[fieldInclude].Value()),
		Exclude: ParseExtensions(p.inputs[fieldExclude].Value()),
	}
}

func (p *Panel) startScan() tea.Cmd {
	if p.busy {
		return nil
	}
	root := strings.TrimSpace(p.inputs[fieldFolder].Value())
	if root == "" {
		p.failed = true
		p.status = "choose a folder first"
		return nil
	}
	p.saveSettings()
	p.busy = true
	p.failed = false
	p.status = "scanning " + root + "..."

	id, f, ctx := p.id, p.filter(), p.ctx
	return func() tea.Msg {
		res, err := Scan(ctx, root, f)
		return scanDoneMsg{panel: id, result: res, err: err}
	}
}

func (p *Panel) saveSettings() {
	if p.settings == nil {
		return
	}
	values := map[string]string{
		prefs.OptionFolder:      p.inputs[fieldFolder].Value(),
		prefs.OptionFilterTypes: p.inputs[fieldInclude].Value(),
		prefs.OptionExcludeType: p.inputs[fieldExclude].Value(),
	}
	for option, v := range values {
		if err := p.settings.Set(prefs.SectionClassifier, option, v); err != nil {
			p.logger.Warn("failed to save setting", "option", option, "err", err)
		}
	}
}

func (p *Panel) refresh() {
	shown := p.result.Search(p.inputs[fieldKeyword].Value())
	p.status = fmt.Sprintf("%d file(s) in %d folder(s)", shown.Count(), len(shown.Groups))
	if shown.Count() == 0 {
		p.view.SetContent("no matching files")
	} else {
		p.view.SetContent(shown.Render())
	}
	p.view.GotoTop()
}

func (p *Panel) View() string {
	var b strings.Builder
	for i := range p.inputs {
		b.WriteString(labelStyle.Render(labels[i]) + " " + p.inputs[i].View() + "\n")
	}
	if p.failed {
		b.WriteString(errStyle.Render(p.status))
	} else {
		b.WriteString(infoStyle.Render(p.status))
	}
	b.WriteString("\n\n")
	if p.scanned {
		b.WriteString(p.view.View())
	}
	return b.String()
}
