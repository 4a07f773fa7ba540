package modules

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/charmbracelet/log"
)

// Scanner discovers unit definitions in a directory and resolves them
// against a catalog.
type Scanner struct {
	catalog *Catalog
	logger  *log.Logger
}

func NewScanner(catalog *Catalog, logger *log.Logger) *Scanner {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Scanner{catalog: catalog, logger: logger}
}

// Scan performs a full scan of dir. Problems with single candidates are
// logged and recorded as diagnostics; the only error returned is a
// *DiscoveryError, in which case the registry is empty but usable.
func (s *Scanner) Scan(dir string) (*Registry, error) {
	reg := &Registry{dir: dir}

	info, err := os.Stat(dir)
	if err == nil && !info.IsDir() {
		err = errors.New("not a directory")
	}
	var entries []os.DirEntry
	if err == nil {
		entries, err = os.ReadDir(dir)
	}
	if err != nil {
		derr := &DiscoveryError{Dir: dir, Err: err}
		s.logger.Error("units directory unavailable", "dir", dir, "err", err)
		reg.diagnostics = append(reg.diagnostics, Diagnostic{
			Severity: SeverityError,
			Code:     "units_dir_unavailable",
			Message:  derr.Error(),
			Path:     dir,
			Cause:    derr,
		})
		return reg, derr
	}

	// Candidates are processed in name order; the first file to claim an
	// identifier keeps it.
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !IsDefinitionFile(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	seen := make(map[string]string, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		d, ok := s.load(reg, path)
		if !ok {
			continue
		}
		if first, dup := seen[d.ID]; dup {
			s.fail(reg, &LoadError{Path: path, Err: fmt.Errorf("identifier %s already provided by %s", d.ID, first)}, "unit_duplicate_id")
			continue
		}
		seen[d.ID] = path
		reg.modules = append(reg.modules, d)
		s.logger.Info("loaded unit", "id", d.ID, "type", d.Type, "host_aware", d.Priority(), "path", path)
	}

	sortDescriptors(reg.modules)
	s.logger.Debug("scan finished", "dir", dir, "units", len(reg.modules), "diagnostics", len(reg.diagnostics))
	return reg, nil
}

func (s *Scanner) load(reg *Registry, path string) (Descriptor, bool) {
	if info, err := os.Stat(path); err != nil || !info.Mode().IsRegular() {
		if err == nil {
			err = errors.New("not a regular file")
		}
		s.fail(reg, &LoadError{Path: path, Err: err}, "unit_load_failed")
		return Descriptor{}, false
	}

	def, err := ReadDefinition(path)
	if err != nil {
		s.fail(reg, &LoadError{Path: path, Err: err}, "unit_load_failed")
		return Descriptor{}, false
	}

	// The first declared type known to the catalog wins.
	for _, typ := range def.Panels {
		f, ok := s.catalog.Lookup(typ)
		if !ok {
			s.logger.Debug("ignoring unknown panel type", "type", typ, "path", path)
			continue
		}
		id := def.Name
		if id == "" {
			id = typ
		}
		return Descriptor{ID: id, Type: typ, Path: path, Description: def.Description, Factory: f}, true
	}

	w := &EligibilityWarning{Path: path, Declared: def.Panels}
	s.logger.Warn("skipping unit without eligible panel", "path", path, "declared", def.Panels)
	reg.diagnostics = append(reg.diagnostics, Diagnostic{
		Severity: SeverityWarning,
		Code:     "unit_not_eligible",
		Message:  w.Error(),
		Path:     path,
		Cause:    w,
	})
	return Descriptor{}, false
}

func (s *Scanner) fail(reg *Registry, err *LoadError, code string) {
	s.logger.Error("failed to load unit", "path", err.Path, "err", err.Err)
	reg.diagnostics = append(reg.diagnostics, Diagnostic{
		Severity: SeverityError,
		Code:     code,
		Message:  err.Error(),
		Path:     err.Path,
		Cause:    err,
	})
}
