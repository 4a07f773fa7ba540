package modules

import (
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// Panel is the display surface a unit contributes to the host window.
type Panel interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (Panel, tea.Cmd)
	View() string
}

// Focusable is implemented by panels that track keyboard focus.
type Focusable interface {
	Focus() tea.Cmd
	Blur()
}

// Settings is the persisted section/option key-value store exposed to units.
type Settings interface {
	Get(section, option string, def any) any
	GetString(section, option, def string) string
	Set(section, option string, value any) error
}

// Navigation gives read access to the bound navigation state.
type Navigation interface {
	Labels() []string
	Selected() int
	Select(index int) bool
}

// Host is the owning shell handed to host-aware units at construction.
type Host interface {
	SetBackground(color string) error
	SetTextColor(color string) error
	Settings() Settings
	Navigation() Navigation
}

// Descriptor is one discovered unit. It is never mutated after creation.
type Descriptor struct {
	// ID is unique within a single scan result.
	ID string
	// Type is the catalog entry the unit resolved to.
	Type        string
	Path        string
	Description string
	Factory     Factory
}

// Priority reports whether the unit sorts last and receives the host.
func (d Descriptor) Priority() bool { return d.Factory.HostAware() }

// Registry is the ordered result of a scan.
type Registry struct {
	dir         string
	modules     []Descriptor
	diagnostics []Diagnostic
}

// NewRegistry returns a registry holding descs in (priority, ID) order.
func NewRegistry(descs ...Descriptor) *Registry {
	r := &Registry{modules: append([]Descriptor(nil), descs...)}
	sortDescriptors(r.modules)
	return r
}

func sortDescriptors(descs []Descriptor) {
	sort.SliceStable(descs, func(i, j int) bool {
		pi, pj := descs[i].Priority(), descs[j].Priority()
		if pi != pj {
			return !pi
		}
		return strings.Compare(descs[i].ID, descs[j].ID) < 0
	})
}

// Dir returns the scanned directory, empty for registries built in code.
func (r *Registry) Dir() string { return r.dir }

func (r *Registry) Get(id string) (Descriptor, bool) {
	for _, d := range r.modules {
		if d.ID == id {
			return d, true
		}
	}
	return Descriptor{}, false
}

// All returns the descriptors in registry order.
func (r *Registry) All() []Descriptor {
	return append([]Descriptor(nil), r.modules...)
}

// IDs returns the identifier sequence in registry order.
func (r *Registry) IDs() []string {
	out := make([]string, 0, len(r.modules))
	for _, d := range r.modules {
		out = append(out, d.ID)
	}
	return out
}

func (r *Registry) Len() int { return len(r.modules) }

// Diagnostics returns the non-fatal problems recorded while scanning.
func (r *Registry) Diagnostics() []Diagnostic {
	return append([]Diagnostic(nil), r.diagnostics...)
}
