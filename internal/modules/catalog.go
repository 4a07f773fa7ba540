package modules

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Factory builds a panel. It is either Regular (no arguments) or
// HostAware (receives the host); the zero value builds nothing.
type Factory struct {
	regular   func() (Panel, error)
	hostAware func(Host) (Panel, error)
}

// Regular wraps a constructor that takes no arguments.
func Regular(fn func() (Panel, error)) Factory {
	return Factory{regular: fn}
}

// HostAware wraps a constructor that needs a reference to the host.
func HostAware(fn func(Host) (Panel, error)) Factory {
	return Factory{hostAware: fn}
}

// HostAware reports whether the factory takes the host as its argument.
func (f Factory) HostAware() bool { return f.hostAware != nil }

func (f Factory) valid() bool { return f.regular != nil || f.hostAware != nil }

// Build invokes the factory. Panics raised by the constructor are
// returned as errors. host is ignored by regular factories.
func (f Factory) Build(host Host) (p Panel, err error) {
	defer func() {
		if r := recover(); r != nil {
			p, err = nil, fmt.Errorf("constructor panicked: %v", r)
		}
	}()
	switch {
	case f.hostAware != nil:
		p, err = f.hostAware(host)
	case f.regular != nil:
		p, err = f.regular()
	default:
		return nil, errors.New("empty factory")
	}
	if err == nil && p == nil {
		err = errors.New("constructor returned a nil panel")
	}
	return p, err
}

// Catalog is the compiled-in table of panel types a unit definition may
// select. Scanned files can only refer to entries of this table.
type Catalog struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewCatalog() *Catalog {
	return &Catalog{factories: make(map[string]Factory)}
}

// Register adds a panel type. Names are unique.
func (c *Catalog) Register(name string, f Factory) error {
	if name == "" {
		return errors.New("panel type name cannot be empty")
	}
	if !f.valid() {
		return fmt.Errorf("panel type %s: empty factory", name)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.factories[name]; exists {
		return fmt.Errorf("panel type %s already registered", name)
	}
	c.factories[name] = f
	return nil
}

// MustRegister is Register for built-in tables; it panics on error.
func (c *Catalog) MustRegister(name string, f Factory) {
	if err := c.Register(name, f); err != nil {
		panic(err)
	}
}

func (c *Catalog) Lookup(name string) (Factory, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.factories[name]
	return f, ok
}

// Names returns the registered panel types sorted by name.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.factories))
	for name := range c.factories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
