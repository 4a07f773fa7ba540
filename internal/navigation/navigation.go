// Package navigation turns a module registry into the host's one-of-many
// view: a selector list and a display stack that share a single slice of
// entries, so index i always names the same unit in both.
package navigation

import (
	"errors"

	"github.com/charmbracelet/log"

	"github.com/tldr-it-stepankutaj/toolbox/internal/logging"
	"github.com/tldr-it-stepankutaj/toolbox/internal/modules"
)

// NoSelection is the selection state of an empty navigator.
const NoSelection = -1

// Entry is a constructed unit at a fixed position.
type Entry struct {
	Index      int
	Label      string
	Instance   modules.Panel
	Descriptor modules.Descriptor
}

// Navigator owns the bound entries and the current selection.
type Navigator struct {
	entries  []Entry
	selected int
	failures []*modules.ConstructionError
	logger   *log.Logger
}

// Bind constructs every descriptor in registry order. Host-aware units
// receive host; the rest are built without arguments. A unit whose
// constructor fails is logged and left out.
func Bind(reg *modules.Registry, host modules.Host, logger *log.Logger) *Navigator {
	if logger == nil {
		logger = logging.Discard()
	}
	n := &Navigator{selected: NoSelection, logger: logger}

	for _, d := range reg.All() {
		logger.Debug("constructing unit", "id", d.ID, "host_aware", d.Priority())
		p, err := d.Factory.Build(host)
		if err != nil {
			cerr := &modules.ConstructionError{ID: d.ID, Err: err}
			n.failures = append(n.failures, cerr)
			logger.Error("failed to construct unit", "id", d.ID, "err", err)
			continue
		}
		n.entries = append(n.entries, Entry{
			Index:      len(n.entries),
			Label:      d.ID,
			Instance:   p,
			Descriptor: d,
		})
		logger.Info("unit ready", "id", d.ID, "index", len(n.entries)-1)
	}

	if len(n.entries) > 0 {
		n.selected = 0
	}
	return n
}

// Entries returns the bound entries in display order.
func (n *Navigator) Entries() []Entry {
	return append([]Entry(nil), n.entries...)
}

func (n *Navigator) Len() int { return len(n.entries) }

// Labels is the selector list.
func (n *Navigator) Labels() []string {
	out := make([]string, len(n.entries))
	for i, e := range n.entries {
		out[i] = e.Label
	}
	return out
}

// Selected returns the selected index or NoSelection.
func (n *Navigator) Selected() int { return n.selected }

// Select moves the selection to index. Out-of-range indexes are ignored
// and leave the state unchanged.
func (n *Navigator) Select(index int) bool {
	if index < 0 || index >= len(n.entries) {
		return false
	}
	if index != n.selected {
		n.selected = index
		n.logger.Info("switched unit", "id", n.entries[index].Label, "index", index)
	}
	return true
}

func (n *Navigator) Next() bool { return n.Select(n.selected + 1) }
func (n *Navigator) Prev() bool { return n.Select(n.selected - 1) }

// Current returns the entry on display.
func (n *Navigator) Current() (Entry, bool) {
	if n.selected == NoSelection {
		return Entry{}, false
	}
	return n.entries[n.selected], true
}

// SetInstance stores the panel returned by an update of entry index.
// The label and position of the entry never change.
func (n *Navigator) SetInstance(index int, p modules.Panel) error {
	if index < 0 || index >= len(n.entries) {
		return errors.New("navigation index out of range")
	}
	if p == nil {
		return errors.New("nil panel")
	}
	n.entries[index].Instance = p
	return nil
}

// Failures lists the units left out because construction failed.
func (n *Navigator) Failures() []*modules.ConstructionError {
	return append([]*modules.ConstructionError(nil), n.failures...)
}
