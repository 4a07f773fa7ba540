// Package builtin installs the panel types compiled into toolbox and
// writes their default unit files.
package builtin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/tldr-it-stepankutaj/toolbox/internal/logging"
	"github.com/tldr-it-stepankutaj/toolbox/internal/modules"
	"github.com/tldr-it-stepankutaj/toolbox/internal/modules/classifier"
	"github.com/tldr-it-stepankutaj/toolbox/internal/modules/settings"
	"github.com/tldr-it-stepankutaj/toolbox/internal/modules/system"
	"github.com/tldr-it-stepankutaj/toolbox/internal/prefs"
)

// Deps are the shared services handed to the built-in panels.
type Deps struct {
	// Ctx bounds background work started by panels.
	Ctx      context.Context
	Now      func() time.Time
	Settings modules.Settings
	Logger   *log.Logger
	// Timeout bounds each system command. Zero falls back to the
	// system_tool.command_timeout setting.
	Timeout time.Duration
}

// Defaults lists the built-in units in the order init writes them.
var Defaults = []modules.Definition{
	{Description: "Group files by folder and filter them by extension", Panels: []string{classifier.TypeName}},
	{Description: "Network repair and housekeeping commands", Panels: []string{system.TypeName}},
	{Description: "Colours and loaded units", Panels: []string{settings.TypeName}},
}

// Register adds every built-in panel type to cat.
func Register(cat *modules.Catalog, deps Deps) error {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	classifierFactory := modules.Regular(func() (modules.Panel, error) {
		return classifier.New(deps.Ctx, deps.Settings, logger.WithPrefix(classifier.TypeName)), nil
	})
	systemFactory := modules.Regular(func() (modules.Panel, error) {
		exec := system.Executor{
			Runner:     system.Runner{Timeout: commandTimeout(deps)},
			TempDir:    os.TempDir(),
			HostsPath:  system.HostsPath(runtime.GOOS),
			ResolvConf: system.ResolvConfPath,
			DNS:        &system.DNSChoice{},
		}
		return system.New(exec, system.Actions(runtime.GOOS), system.Options{
			Ctx:    deps.Ctx,
			Now:    deps.Now,
			Logger: logger.WithPrefix(system.TypeName),
		}), nil
	})
	settingsFactory := modules.HostAware(func(h modules.Host) (modules.Panel, error) {
		if h == nil {
			return nil, errors.New("settings panel needs a host")
		}
		return settings.New(h, logger.WithPrefix(settings.TypeName)), nil
	})

	return errors.Join(
		cat.Register(classifier.TypeName, classifierFactory),
		cat.Register(system.TypeName, systemFactory),
		cat.Register(settings.TypeName, settingsFactory),
	)
}

func commandTimeout(deps Deps) time.Duration {
	if deps.Timeout > 0 {
		return deps.Timeout
	}
	def := prefs.Defaults[prefs.SectionSystem][prefs.OptionCmdTimeout].(string)
	raw := def
	if deps.Settings != nil {
		raw = deps.Settings.GetString(prefs.SectionSystem, prefs.OptionCmdTimeout, def)
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(def)
	}
	return d
}

// Manifest is the index file written next to the unit files. Scanning
// never reads it.
type Manifest struct {
	Units []string `yaml:"units"`
}

// WriteDefinitions writes one <Type>.yaml per default unit into dir,
// leaving existing files alone, and refreshes index.yaml. It returns the
// paths it created.
func WriteDefinitions(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create units directory: %w", err)
	}

	var created []string
	manifest := Manifest{}
	for _, def := range Defaults {
		name := def.Panels[0] + ".yaml"
		manifest.Units = append(manifest.Units, name)

		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		data, err := def.Encode(".yaml")
		if err != nil {
			return created, fmt.Errorf("encode %s: %w", name, err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // unit files are not secret
			return created, fmt.Errorf("write %s: %w", name, err)
		}
		created = append(created, path)
	}

	data, err := yaml.Marshal(manifest)
	if err != nil {
		return created, fmt.Errorf("encode manifest: %w", err)
	}
	index := filepath.Join(dir, modules.ManifestName+".yaml")
	if err := os.WriteFile(index, data, 0o644); err != nil { //nolint:gosec // unit files are not secret
		return created, fmt.Errorf("write manifest: %w", err)
	}
	return created, nil
}
