package classifier

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tldr-it-stepankutaj/toolbox/internal/prefs"
)

func makeTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := []string{
		"a.JPG",
		"notes.txt",
		"photos/beach.jpg",
		"photos/beach.png",
		"photos/raw/beach.cr2",
		"tmp/cache.tmp",
		"tmp/holiday.jpg.tmp",
	}
	for _, f := range files {
		path := filepath.Join(root, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	}
	return root
}

func TestParseExtensions(t *testing.T) {
	assert.Equal(t, []string{".jpg", "png", "txt"}, ParseExtensions(" .jpg, png;txt "))
	assert.Empty(t, ParseExtensions(" , ; "))
}

func TestFilter_Keep(t *testing.T) {
	f := Filter{Include: []string{".jpg"}, Exclude: []string{".tmp"}}
	assert.True(t, f.Keep("A.JPG"))
	assert.False(t, f.Keep("a.png"))
	assert.False(t, f.Keep("a.jpg.tmp"))

	assert.True(t, Filter{}.Keep("anything"))
	assert.False(t, Filter{Exclude: []string{"log"}}.Keep("x.LOG"))
}

func TestScan_GroupsByDirectory(t *testing.T) {
	root := makeTree(t)

	res, err := Scan(context.Background(), root, Filter{Include: []string{".jpg", ".png"}})
	require.NoError(t, err)

	require.Len(t, res.Groups, 2)
	assert.Equal(t, root, res.Groups[0].Dir)
	assert.Equal(t, []string{filepath.Join(root, "a.JPG")}, res.Groups[0].Files)
	assert.Equal(t, filepath.Join(root, "photos"), res.Groups[1].Dir)
	assert.Equal(t, []string{
		filepath.Join(root, "photos", "beach.jpg"),
		filepath.Join(root, "photos", "beach.png"),
	}, res.Groups[1].Files)
	assert.Equal(t, 3, res.Count())
}

func TestScan_ExcludeOnly(t *testing.T) {
	root := makeTree(t)

	res, err := Scan(context.Background(), root, Filter{Exclude: []string{".tmp"}})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Count())
	for _, g := range res.Groups {
		assert.NotEqual(t, filepath.Join(root, "tmp"), g.Dir)
	}
}

func TestScan_Errors(t *testing.T) {
	_, err := Scan(context.Background(), "", Filter{})
	require.Error(t, err)

	_, err = Scan(context.Background(), filepath.Join(t.TempDir(), "missing"), Filter{})
	require.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Scan(ctx, makeTree(t), Filter{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestResult_SearchAndRender(t *testing.T) {
	root := makeTree(t)
	res, err := Scan(context.Background(), root, Filter{})
	require.NoError(t, err)

	hits := res.Search("BEACH")
	assert.Equal(t, 3, hits.Count())
	require.Len(t, hits.Groups, 2)

	out := hits.Render()
	assert.Contains(t, out, "Folder: "+filepath.Join(root, "photos")+"\nCount: 2\n")
	assert.Contains(t, out, "Count: 1\n  "+filepath.Join(root, "photos", "raw", "beach.cr2"))

	assert.Equal(t, res, res.Search("  "))
	assert.Zero(t, res.Search("nothing-like-this").Count())
}

type memSettings map[string]any

func (s memSettings) Get(section, option string, def any) any {
	if v, ok := s[section+"."+option]; ok {
		return v
	}
	return def
}

func (s memSettings) GetString(section, option, def string) string {
	if v, ok := s[section+"."+option]; ok {
		return v.(string)
	}
	return def
}

func (s memSettings) Set(section, option string, value any) error {
	s[section+"."+option] = value
	return nil
}

func TestPanel_ScanRoundTrip(t *testing.T) {
	root := makeTree(t)
	settings := memSettings{prefs.SectionClassifier + "." + prefs.OptionFilterTypes: ".jpg"}

	p := New(context.Background(), settings, nil)
	p.Focus()
	for _, r := range root {
		p.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}

	_, cmd := p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.True(t, p.busy)
	assert.Equal(t, root, settings[prefs.SectionClassifier+"."+prefs.OptionFolder])

	msg := cmd()
	done, ok := msg.(scanDoneMsg)
	require.True(t, ok)
	require.NoError(t, done.err)

	other := New(context.Background(), nil, nil)
	other.Update(msg)
	assert.False(t, other.scanned, "results are addressed to one panel")

	p.Update(msg)
	assert.False(t, p.busy)
	assert.True(t, p.scanned)
	assert.Equal(t, 2, p.result.Count())
	assert.Contains(t, p.View(), "2 file(s) in 2 folder(s)")
}

func TestPanel_SearchFieldFiltersWithoutRescan(t *testing.T) {
	root := makeTree(t)
	p := New(context.Background(), nil, nil)
	res, err := Scan(context.Background(), root, Filter{})
	require.NoError(t, err)
	p.Update(scanDoneMsg{panel: p.id, result: res})

	p.Focus()
	for i := 0; i < fieldKeyword; i++ {
		p.Update(tea.KeyMsg{Type: tea.KeyTab})
	}
	for _, r := range "notes" {
		p.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	_, cmd := p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Contains(t, p.status, "1 file(s) in 1 folder(s)")
}

func TestPanel_EnterWithoutFolder(t *testing.T) {
	p := New(context.Background(), nil, nil)
	_, cmd := p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.True(t, p.failed)
}

func TestPanel_ScanHonoursSessionContext(t *testing.T) {
	root := makeTree(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New(ctx, nil, nil)
	p.inputs[fieldFolder].SetValue(root)
	_, cmd := p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	p.Update(cmd())
	assert.True(t, p.failed)
	assert.False(t, p.scanned)
	assert.Contains(t, p.status, context.Canceled.Error())
}
