package ops

import (
	"github.com/scorekit/scorekit/core/pitch"
	"github.com/scorekit/scorekit/core/score"
	"github.com/scorekit/scorekit/core/validate"
)

// pitchops.go - Operations that change what a note sounds like. All
// spelling decisions are delegated to core/pitch; the key signature in
// force at the edited note always participates.

// Transpose shifts every pitched note by delta semitones, respelling each
// under the key signature in force at its position. Upward transposition
// prefers sharps, downward prefers flats.
//
// Transposing by zero is an explicit fast path: the input score itself is
// returned, not a copy.
func Transpose(s *score.Score, delta int) Result {
	if delta == 0 {
		return Result{Score: s}
	}
	cp := s.Clone()
	preferSharp := delta > 0
	for _, p := range cp.Parts {
		var key *score.KeySignature
		for _, m := range p.Measures {
			if m.Attributes != nil && m.Attributes.Key != nil {
				key = m.Attributes.Key
			}
			for _, e := range m.Entries {
				switch v := e.(type) {
				case *score.Note:
					if v.Pitch != nil {
						np := pitch.Shift(v.Pitch, delta, key, preferSharp)
						v.Pitch = &np
					}
				case *score.AttributesEntry:
					if v.Attributes != nil && v.Attributes.Key != nil {
						key = v.Attributes.Key
					}
				}
			}
		}
	}
	return commit(cp, validate.ValidateScore(cp))
}

// ShiftSemitones respells one note delta semitones away. A zero delta
// returns the input score itself.
func ShiftSemitones(s *score.Score, partIndex, measureIndex, entryIndex, delta int) Result {
	if delta == 0 {
		if _, _, findings := noteAt(s, partIndex, measureIndex, entryIndex); findings != nil {
			return fail(findings...)
		}
		return Result{Score: s}
	}
	return mutatePitch(s, partIndex, measureIndex, entryIndex,
		func(p *score.Pitch, key *score.KeySignature) (score.Pitch, []validate.Finding) {
			return pitch.Shift(p, delta, key, delta > 0), nil
		})
}

// SetSemitone respells one note to an absolute semitone value (C4 = 48).
func SetSemitone(s *score.Score, partIndex, measureIndex, entryIndex, semitone int, preferSharp bool) Result {
	return mutatePitch(s, partIndex, measureIndex, entryIndex,
		func(p *score.Pitch, key *score.KeySignature) (score.Pitch, []validate.Finding) {
			return pitch.Spell(semitone, key, preferSharp), nil
		})
}

// RaiseAccidental sharpens one note by a chromatic step, keeping its step
// letter. Fails with ACCIDENTAL_OUT_OF_BOUNDS past double sharp.
func RaiseAccidental(s *score.Score, partIndex, measureIndex, entryIndex int) Result {
	return mutatePitch(s, partIndex, measureIndex, entryIndex,
		func(p *score.Pitch, key *score.KeySignature) (score.Pitch, []validate.Finding) {
			np, err := pitch.Raise(p)
			if err != nil {
				return score.Pitch{}, []validate.Finding{validate.NewFinding(
					validate.CodeAccidentalOutOfBounds, validate.LevelError,
					validate.NoLocation(), "%v", err)}
			}
			return np, nil
		})
}

// LowerAccidental flattens one note by a chromatic step, keeping its step
// letter. Fails with ACCIDENTAL_OUT_OF_BOUNDS past double flat.
func LowerAccidental(s *score.Score, partIndex, measureIndex, entryIndex int) Result {
	return mutatePitch(s, partIndex, measureIndex, entryIndex,
		func(p *score.Pitch, key *score.KeySignature) (score.Pitch, []validate.Finding) {
			np, err := pitch.Lower(p)
			if err != nil {
				return score.Pitch{}, []validate.Finding{validate.NewFinding(
					validate.CodeAccidentalOutOfBounds, validate.LevelError,
					validate.NoLocation(), "%v", err)}
			}
			return np, nil
		})
}

// mutatePitch is the shared shape of single-note pitch edits: bounds
// checks on the input, deep copy, pitch replacement, local validation.
func mutatePitch(s *score.Score, partIndex, measureIndex, entryIndex int,
	fn func(*score.Pitch, *score.KeySignature) (score.Pitch, []validate.Finding)) Result {

	if _, _, findings := noteAt(s, partIndex, measureIndex, entryIndex); findings != nil {
		return fail(findings...)
	}
	cp := s.Clone()
	n, loc, _ := noteAt(cp, partIndex, measureIndex, entryIndex)
	if n.Pitch == nil {
		return failf(validate.CodeInvalidArgument, loc,
			"entry %d in measure %s has no pitch to edit", entryIndex, loc.MeasureNumber)
	}
	key := keyInForce(cp.Parts[partIndex], measureIndex, entryIndex)
	np, findings := fn(n.Pitch, key)
	if findings != nil {
		for i := range findings {
			findings[i].Location = loc
		}
		return fail(findings...)
	}
	n.Pitch = &np
	return commit(cp, validateMeasureLocal(cp, partIndex, measureIndex))
}
