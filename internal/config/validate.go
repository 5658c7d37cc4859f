// This file adds a lightweight linter/validator for Pipeline values. It
// performs static checks over a decoded Pipeline and returns a list of issues
// (errors and warnings) that callers can surface in a CLI or tests.
package config

import (
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but may not necessarily block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation/lint finding for a Pipeline.
//
// Path is a dotted path into the config (e.g. "catalog.path",
// "join.tolerance_seconds"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// ValidatePipeline performs static validation / linting of a Pipeline.
//
// It does not mutate the pipeline. Instead it returns a slice of Issue values.
// Callers may decide whether to treat warnings as fatal or not.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it is used for metrics labeling and identifying runs",
		})
	}

	if strings.TrimSpace(p.Catalog.Path) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "catalog.path",
			Message:  "catalog.path must point at the song/artist metadata directory",
		})
	}
	if strings.TrimSpace(p.Events.Path) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "events.path",
			Message:  "events.path must point at the usage event directory",
		})
	}
	if strings.TrimSpace(p.Output.Path) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "output.path",
			Message:  "output.path must name the base output directory",
		})
	}
	if p.Catalog.Path != "" && p.Catalog.Path == p.Events.Path {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "events.path",
			Message:  "events.path equals catalog.path; both sources reading the same tree is almost certainly a mistake",
		})
	}

	if p.Join.ToleranceSeconds < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "join.tolerance_seconds",
			Message:  "join.tolerance_seconds must be >= 0 (0 selects the default of 2.0)",
		})
	}

	if p.Runtime.TableWorkers < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.table_workers",
			Message:  "runtime.table_workers must be >= 0 (0 selects the default)",
		})
	}

	return issues
}

// HasError reports whether any issue in the slice is severity error.
func HasError(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}
