package modules

import (
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
)

type stubPanel struct {
	name string
	host Host
}

func (p *stubPanel) Init() tea.Cmd                   { return nil }
func (p *stubPanel) Update(tea.Msg) (Panel, tea.Cmd) { return p, nil }
func (p *stubPanel) View() string                    { return p.name }

func regularStub(name string) Factory {
	return Regular(func() (Panel, error) { return &stubPanel{name: name}, nil })
}

func hostAwareStub(name string) Factory {
	return HostAware(func(h Host) (Panel, error) { return &stubPanel{name: name, host: h}, nil })
}

func writeUnit(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

// testCatalog knows AlphaPanel, BetaPanel and the host-aware Settings.
func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	cat := NewCatalog()
	require.NoError(t, cat.Register("AlphaPanel", regularStub("AlphaPanel")))
	require.NoError(t, cat.Register("BetaPanel", regularStub("BetaPanel")))
	require.NoError(t, cat.Register("Settings", hostAwareStub("Settings")))
	return cat
}
