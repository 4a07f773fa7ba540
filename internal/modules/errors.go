package modules

import (
	"fmt"
	"strings"
)

// DiscoveryError means the units directory is missing or unreadable.
// The scan still returns an (empty) registry.
type DiscoveryError struct {
	Dir string
	Err error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("units directory %s unavailable: %v", e.Dir, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// LoadError means a candidate file could not be read or decoded, or
// repeats an identifier already taken by an earlier candidate.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load unit %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// EligibilityWarning means a candidate loaded but declares no panel type
// known to the catalog.
type EligibilityWarning struct {
	Path     string
	Declared []string
}

func (e *EligibilityWarning) Error() string {
	if len(e.Declared) == 0 {
		return fmt.Sprintf("unit %s declares no panel types", e.Path)
	}
	return fmt.Sprintf("unit %s declares no known panel type (declared: %s)", e.Path, strings.Join(e.Declared, ", "))
}

// ConstructionError means a descriptor's factory failed during binding.
type ConstructionError struct {
	ID  string
	Err error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("construct unit %s: %v", e.ID, e.Err)
}

func (e *ConstructionError) Unwrap() error { return e.Err }

const (
	// SeverityWarning marks a skipped candidate that is not broken.
	SeverityWarning Severity = "warning"
	// SeverityError marks a candidate or directory that failed to load.
	SeverityError Severity = "error"
)

type (
	// Severity is the level of a scan diagnostic.
	Severity string

	// Diagnostic is a non-fatal scan problem returned to callers for
	// rendering, alongside the log line emitted for it.
	Diagnostic struct {
		Severity Severity
		// Code is machine readable, e.g. "unit_load_failed".
		Code    string
		Message string
		Path    string
		Cause   error
	}
)

func (d Diagnostic) String() string {
	return fmt.Sprintf("[%s] %s: %s", d.Severity, d.Code, d.Message)
}
