package system

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/tldr-it-stepankutaj/toolbox/internal/logging"
	"github.com/tldr-it-stepankutaj/toolbox/internal/modules"
)

// TypeName is the catalog name of the system tool panel.
const TypeName = "SystemTool"

var (
	cursorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#73F59F"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#73F59F"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	hintStyle   = lipgloss.NewStyle().Faint(true)
)

var panelSeq atomic.Int64

type actionDoneMsg struct {
	panel  int64
	report Report
}

// Options carries the session services of a panel. Zero values fall back
// to context.Background, time.Now and a discarding logger.
type Options struct {
	Ctx    context.Context
	Now    func() time.Time
	Logger *log.Logger
}

// Panel lists the actions and runs the chosen one in the background.
type Panel struct {
	id      int64
	exec    Executor
	actions []Action
	cursor  int
	running string
	pending string
	history []Report
	out     viewport.Model
	ctx     context.Context
	now     func() time.Time
	logger  *log.Logger
}

func New(exec Executor, actions []Action, opts Options) *Panel {
	p := &Panel{
		id:      panelSeq.Add(1),
		exec:    exec,
		actions: actions,
		out:     viewport.New(60, 10),
		ctx:     opts.Ctx,
		now:     opts.Now,
		logger:  opts.Logger,
	}
	if p.ctx == nil {
		p.ctx = context.Background()
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.logger == nil {
		p.logger = logging.Discard()
	}
	return p
}

func (p *Panel) Init() tea.Cmd { return nil }

func (p *Panel) Update(msg tea.Msg) (modules.Panel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.out.Width = max(msg.Width, 10)
		p.out.Height = max(msg.Height-len(p.actions)-3, 1)
		return p, nil

	case actionDoneMsg:
		if msg.panel != p.id {
			return p, nil
		}
		p.running = ""
		p.history = append([]Report{msg.report}, p.history...)
		if msg.report.OK() {
			p.logger.Info("action finished", "action", msg.report.Action)
		} else {
			p.logger.Error("action failed", "action", msg.report.Action, "summary", msg.report.Summary, "err", msg.report.Err)
		}
		p.out.SetContent(p.renderHistory())
		p.out.GotoTop()
		return p, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if p.cursor > 0 {
				p.cursor--
			}
			p.pending = ""
		case "down", "j":
			if p.cursor < len(p.actions)-1 {
				p.cursor++
			}
			p.pending = ""
		case "pgup", "pgdown":
			var cmd tea.Cmd
			p.out, cmd = p.out.Update(msg)
			return p, cmd
		case "enter":
			return p, p.run()
		}
	}
	return p, nil
}

func (p *Panel) run() tea.Cmd {
	if p.running != "" || len(p.actions) == 0 {
		return nil
	}
	a := p.actions[p.cursor]
	if a.Confirm && p.pending != a.ID {
		p.pending = a.ID
		return nil
	}
	p.pending = ""
	p.running = a.ID
	p.logger.Info("running action", "action", a.ID)

	id, exec, ctx, now := p.id, p.exec, p.ctx, p.now
	return func() tea.Msg {
		rep := exec.Execute(ctx, a)
		rep.At = now()
		return actionDoneMsg{panel: id, report: rep}
	}
}

func (p *Panel) renderHistory() string {
	var b strings.Builder
	for _, r := range p.history {
		mark := okStyle.Render("ok  ")
		if !r.OK() {
			mark = failStyle.Render("fail")
		}
		summary := r.Summary
		if summary == "" {
			summary = r.Action
		}
		fmt.Fprintf(&b, "%s %s %s\n", r.At.Format(time.TimeOnly), mark, summary)
		for _, s := range r.Steps {
			fmt.Fprintf(&b, "     $ %s (exit %d)\n", s.Command, s.ExitCode)
			if s.Output != "" {
				fmt.Fprintf(&b, "       %s\n", strings.ReplaceAll(s.Output, "\n", "\n       "))
			}
			if s.Err != nil {
				fmt.Fprintf(&b, "       %v\n", s.Err)
			}
		}
		if r.Err != nil {
			fmt.Fprintf(&b, "     %v\n", r.Err)
		}
	}
	return b.String()
}

func (p *Panel) View() string {
	var b strings.Builder
	for i, a := range p.actions {
		line := "  " + a.Title
		if i == p.cursor {
			line = cursorStyle.Render("> " + a.Title)
		}
		if a.ID == p.running {
			line += hintStyle.Render(" (running...)")
		}
		b.WriteString(line + "\n")
	}
	switch {
	case p.pending != "":
		b.WriteString(failStyle.Render("press enter again to confirm"))
	case p.running != "":
		b.WriteString(hintStyle.Render("working..."))
	default:
		b.WriteString(hintStyle.Render("enter: run • pgup/pgdn: scroll output"))
	}
	b.WriteString("\n\n")
	if len(p.history) > 0 {
		b.WriteString(p.out.View())
	}
	return b.String()
}
