// Package ops is the catalog of score-transforming operations. Every
// operation treats its input as read-only: it deep-copies the score,
// mutates the copy, validates the affected region, and either commits the
// copy or discards it wholesale. A caller holding the input score is never
// exposed to partial state.
package ops

import (
	"github.com/scorekit/scorekit/core/score"
	"github.com/scorekit/scorekit/core/validate"
)

// Result is the outcome of one operation. On success Score holds the new
// document and Warnings any non-blocking findings; on failure Score is nil
// and Errors holds the findings that blocked the commit.
type Result struct {
	Score    *score.Score
	Warnings []validate.Finding
	Errors   []validate.Finding
}

// OK reports whether the operation committed.
func (r Result) OK() bool { return r.Score != nil && len(r.Errors) == 0 }

// commit turns a mutated copy plus its validation findings into a Result.
// Error-level findings discard the copy; warnings and infos ride along.
func commit(s *score.Score, findings []validate.Finding) Result {
	if errs := validate.Errors(findings); len(errs) > 0 {
		return Result{Errors: errs}
	}
	return Result{Score: s, Warnings: validate.Warnings(findings)}
}

// fail builds a failure result from pre-check findings.
func fail(findings ...validate.Finding) Result {
	return Result{Errors: findings}
}

// failf builds a single-finding failure.
func failf(code string, loc validate.Location, format string, args ...any) Result {
	return fail(validate.NewFinding(code, validate.LevelError, loc, format, args...))
}
