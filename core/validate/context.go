package validate

import "github.com/scorekit/scorekit/core/score"

// Context is the measure-external state the timeline checks depend on:
// the attributes inherited from earlier measures. It is produced by an
// explicit fold over measures, never by module state.
type Context struct {
	// Divisions is the active divisions-per-quarter; 0 if never stated.
	Divisions int

	// Time is the active time signature; nil if never stated.
	Time *score.TimeSignature

	// Staves is the active staff count; 0 if never stated (meaning 1).
	Staves int
}

// apply folds one attributes block into the context.
func (c Context) apply(a *score.Attributes) Context {
	if a == nil {
		return c
	}
	if a.Divisions > 0 {
		c.Divisions = a.Divisions
	}
	if a.Time != nil {
		t := *a.Time
		c.Time = &t
	}
	if a.Staves > 0 {
		c.Staves = a.Staves
	}
	return c
}

// applyMeasure folds a whole measure (leading attributes plus mid-measure
// attributes entries) into the context.
func (c Context) applyMeasure(m *score.Measure) Context {
	c = c.apply(m.Attributes)
	for _, e := range m.Entries {
		if ae, ok := e.(*score.AttributesEntry); ok {
			c = c.apply(ae.Attributes)
		}
	}
	return c
}

// EffectiveStaves returns the staff count, defaulting to 1.
func (c Context) EffectiveStaves() int {
	if c.Staves == 0 {
		return 1
	}
	return c.Staves
}

// ExpectedDuration returns the measure duration implied by the context as
// the exact fraction num/den of division units. den is always positive;
// ok is false when the context cannot state a duration (no divisions, no
// time signature, an unparsable beats string, or senza misura).
func (c Context) ExpectedDuration() (num, den int, ok bool) {
	if c.Divisions <= 0 || c.Time == nil || c.Time.SenzaMisura || c.Time.BeatType <= 0 {
		return 0, 1, false
	}
	beats, ok := parseBeats(c.Time.Beats)
	if !ok {
		return 0, 1, false
	}
	return beats * 4 * c.Divisions, c.Time.BeatType, true
}

// parseBeats sums an additive numerator such as "3+2". It fails on any
// non-numeric component.
func parseBeats(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	total := 0
	n := 0
	seen := false
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == '+' {
			if !seen {
				return 0, false
			}
			total += n
			n, seen = 0, false
			continue
		}
		ch := s[i]
		if ch < '0' || ch > '9' {
			return 0, false
		}
		n = n*10 + int(ch-'0')
		seen = true
	}
	return total, true
}

// ContextAt computes the context in force at the start of the given
// measure of the given part by scanning forward from measure 0. It is how
// local (single-measure) validation obtains its carried-forward state.
func ContextAt(s *score.Score, partIndex, measureIndex int) Context {
	var ctx Context
	if partIndex < 0 || partIndex >= len(s.Parts) {
		return ctx
	}
	p := s.Parts[partIndex]
	for i := 0; i < measureIndex && i < len(p.Measures); i++ {
		ctx = ctx.applyMeasure(p.Measures[i])
	}
	return ctx
}
