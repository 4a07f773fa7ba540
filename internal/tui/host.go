package tui

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/charmbracelet/log"

	"github.com/tldr-it-stepankutaj/toolbox/internal/modules"
	"github.com/tldr-it-stepankutaj/toolbox/internal/navigation"
	"github.com/tldr-it-stepankutaj/toolbox/internal/prefs"
)

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// ValidColor accepts "" (terminal default), #rrggbb and ANSI 0-255.
func ValidColor(c string) bool {
	if c == "" || hexColor.MatchString(c) {
		return true
	}
	n, err := strconv.Atoi(c)
	return err == nil && n >= 0 && n <= 255
}

// host is the modules.Host handed to host-aware units. The model reads
// its colours on every render.
type host struct {
	background string
	foreground string
	settings   modules.Settings
	nav        *navigation.Navigator
	logger     *log.Logger
}

var _ modules.Host = (*host)(nil)

func newHost(settings modules.Settings, logger *log.Logger) *host {
	h := &host{settings: settings, logger: logger}
	if settings == nil {
		return h
	}
	if bg := settings.GetString(prefs.SectionUI, prefs.OptionBackground, ""); ValidColor(bg) {
		h.background = bg
	} else {
		logger.Warn("ignoring invalid background colour", "value", bg)
	}
	if fg := settings.GetString(prefs.SectionUI, prefs.OptionTextColor, ""); ValidColor(fg) {
		h.foreground = fg
	} else {
		logger.Warn("ignoring invalid text colour", "value", fg)
	}
	return h
}

func (h *host) SetBackground(color string) error {
	if !ValidColor(color) {
		return fmt.Errorf("invalid colour %q", color)
	}
	h.background = color
	h.logger.Info("background changed", "color", color)
	return nil
}

func (h *host) SetTextColor(color string) error {
	if !ValidColor(color) {
		return fmt.Errorf("invalid colour %q", color)
	}
	h.foreground = color
	h.logger.Info("text colour changed", "color", color)
	return nil
}

func (h *host) Settings() modules.Settings { return h.settings }

// Navigation is nil until binding has finished.
func (h *host) Navigation() modules.Navigation {
	if h.nav == nil {
		return nil
	}
	return h.nav
}
