// Package validate walks a score (or a single measure with explicit
// context) and reports findings against the musical-timeline invariants:
// duration bookkeeping, bracket pairing, voice/staff legality, and
// part-level structure. Findings never mutate the score.
package validate

import "fmt"

// Level classifies a finding's severity.
type Level string

// Severity levels. Errors mark a structurally invalid document; warnings
// are notable but not disqualifying; info findings are purely advisory.
const (
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
)

// Location points a finding at a place in the score. Index fields hold -1
// when not applicable; string fields are empty when unknown.
type Location struct {
	PartIndex     int    `json:"part_index"`
	PartID        string `json:"part_id,omitempty"`
	MeasureIndex  int    `json:"measure_index"`
	MeasureNumber string `json:"measure_number,omitempty"`
	EntryIndex    int    `json:"entry_index"`
	Voice         int    `json:"voice"`
	Staff         int    `json:"staff"`
}

// NoLocation returns a Location with every index unset.
func NoLocation() Location {
	return Location{PartIndex: -1, MeasureIndex: -1, EntryIndex: -1, Voice: -1, Staff: -1}
}

// Finding is one validator observation. Code is a stable identifier that
// callers match on; it is never renumbered across versions.
type Finding struct {
	Code     string         `json:"code"`
	Level    Level          `json:"level"`
	Message  string         `json:"message"`
	Location Location       `json:"location"`
	Details  map[string]any `json:"details,omitempty"`
}

func (f Finding) String() string {
	return fmt.Sprintf("%s %s: %s", f.Level, f.Code, f.Message)
}

// IsError reports whether the finding blocks a commit.
func (f Finding) IsError() bool { return f.Level == LevelError }

// HasErrors reports whether any finding in the list is an error.
func HasErrors(findings []Finding) bool {
	for _, f := range findings {
		if f.IsError() {
			return true
		}
	}
	return false
}

// Errors returns only the error-level findings.
func Errors(findings []Finding) []Finding {
	var out []Finding
	for _, f := range findings {
		if f.IsError() {
			out = append(out, f)
		}
	}
	return out
}

// Warnings returns only the warning-level findings.
func Warnings(findings []Finding) []Finding {
	var out []Finding
	for _, f := range findings {
		if f.Level == LevelWarning {
			out = append(out, f)
		}
	}
	return out
}

func newFinding(code string, level Level, loc Location, format string, args ...any) Finding {
	return Finding{
		Code:     code,
		Level:    level,
		Message:  fmt.Sprintf(format, args...),
		Location: loc,
	}
}

// NewFinding builds a finding. Edit operations use it to report pre-check
// failures in the same shape the validator emits.
func NewFinding(code string, level Level, loc Location, format string, args ...any) Finding {
	return newFinding(code, level, loc, format, args...)
}
