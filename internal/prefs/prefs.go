// Package prefs persists the section/option key-value settings that units
// and the host share, e.g. ui_settings.background_color.
package prefs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

// Sections and options known to the built-in units.
const (
	SectionUI         = "ui_settings"
	OptionBackground  = "background_color"
	OptionTextColor   = "text_color"
	SectionClassifier = "file_classifier"
	OptionFolder      = "folder_path"
	OptionFilterTypes = "filter_types"
	OptionExcludeType = "exclude_types"
	SectionSystem     = "system_tool"
	OptionCmdTimeout  = "command_timeout"
)

// Defaults are seeded into a fresh settings file.
var Defaults = map[string]map[string]any{
	SectionUI: {
		OptionBackground: "",
		OptionTextColor:  "",
	},
	SectionClassifier: {
		OptionFolder:      "",
		OptionFilterTypes: "",
		OptionExcludeType: "",
	},
	SectionSystem: {
		OptionCmdTimeout: "30s",
	},
}

// Store is a viper-backed settings file. Every Set writes through.
type Store struct {
	mu   sync.Mutex
	v    *viper.Viper
	path string
}

// Open loads path, creating it with Defaults when it does not exist.
func Open(path string) (*Store, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	for section, options := range Defaults {
		for option, value := range options {
			v.SetDefault(key(section, option), value)
		}
	}

	s := &Store{v: v, path: path}
	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read settings %s: %w", path, err)
		}
		if err := s.write(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func key(section, option string) string { return section + "." + option }

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

// Get returns the stored value or def when the option is unset.
func (s *Store) Get(section, option string, def any) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(section, option)
	if !s.v.IsSet(k) {
		return def
	}
	return s.v.Get(k)
}

// GetString is Get for string options.
func (s *Store) GetString(section, option, def string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(section, option)
	if !s.v.IsSet(k) {
		return def
	}
	return s.v.GetString(k)
}

// Set stores value under section/option and saves the file.
func (s *Store) Set(section, option string, value any) error {
	if section == "" || option == "" {
		return fmt.Errorf("section and option are required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.v.Set(key(section, option), value)
	return s.write()
}

func (s *Store) write() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	if err := s.v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("failed to write settings %s: %w", s.path, err)
	}
	return nil
}
