// Package pitch converts between absolute semitone pitch and notated
// spellings (step + alteration + octave) under a key-signature context.
package pitch

import (
	"errors"
	"fmt"

	"github.com/scorekit/scorekit/core/score"
)

// Alterations outside [-2, +2] (double flat through double sharp) are not
// representable; operations that would leave that range fail with this.
var ErrAccidentalOutOfBounds = errors.New("accidental out of bounds")

// naturalSemitone maps each step to its pitch class with no alteration.
var naturalSemitone = map[score.Step]int{
	score.StepC: 0,
	score.StepD: 2,
	score.StepE: 4,
	score.StepF: 5,
	score.StepG: 7,
	score.StepA: 9,
	score.StepB: 11,
}

// steps in pitch-class order, used when enumerating spelling candidates.
var steps = []score.Step{
	score.StepC, score.StepD, score.StepE, score.StepF,
	score.StepG, score.StepA, score.StepB,
}

// Semitone returns the absolute semitone value of a spelled pitch:
// octave*12 + pitch class. Middle C (C4) is 48.
func Semitone(p *score.Pitch) int {
	return p.Octave*12 + naturalSemitone[p.Step] + p.Alter
}

// candidate is one possible spelling of a pitch class.
type candidate struct {
	step   score.Step
	alter  int
	octave int
}

// Spell chooses a spelling for an absolute semitone value.
//
// Candidates are the natural steps whose required alteration, normalized
// into [-6, +6] by wrapping at the octave, lies within [-2, +2]. Among
// candidates the precedence is a fixed three-tier order:
//
//  1. a spelling whose alteration matches the key signature's default for
//     its step wins;
//  2. otherwise the smallest absolute alteration wins, with the caller's
//     sharp/flat preference breaking exact ties;
//  3. the preference alone never overrides a strictly smaller alteration.
func Spell(semitone int, key *score.KeySignature, preferSharp bool) score.Pitch {
	pc := ((semitone % 12) + 12) % 12

	var cands []candidate
	for _, st := range steps {
		diff := pc - naturalSemitone[st]
		// Wrap to the representative closest to zero.
		if diff > 6 {
			diff -= 12
		} else if diff < -6 {
			diff += 12
		}
		if diff < -2 || diff > 2 {
			continue
		}
		cands = append(cands, candidate{
			step:   st,
			alter:  diff,
			octave: (semitone - naturalSemitone[st] - diff) / 12,
		})
	}

	best := cands[0]
	for _, c := range cands[1:] {
		if better(c, best, key, preferSharp) {
			best = c
		}
	}
	return score.Pitch{Step: best.step, Alter: best.alter, Octave: best.octave}
}

// better reports whether a should be preferred over b.
func better(a, b candidate, key *score.KeySignature, preferSharp bool) bool {
	am := key != nil && key.DefaultAlter(a.step) == a.alter
	bm := key != nil && key.DefaultAlter(b.step) == b.alter
	if am != bm {
		return am
	}
	aa, ba := abs(a.alter), abs(b.alter)
	if aa != ba {
		return aa < ba
	}
	if preferSharp {
		return a.alter > b.alter
	}
	return a.alter < b.alter
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// Shift respells a pitch delta semitones away. A zero delta returns the
// input unchanged.
func Shift(p *score.Pitch, delta int, key *score.KeySignature, preferSharp bool) score.Pitch {
	if delta == 0 {
		return *p
	}
	return Spell(Semitone(p)+delta, key, preferSharp)
}

// Raise sharpens the pitch by one chromatic step without changing its
// step letter. Fails if the result would pass double sharp.
func Raise(p *score.Pitch) (score.Pitch, error) {
	if p.Alter >= 2 {
		return score.Pitch{}, fmt.Errorf("raise %s%+d: %w", p.Step, p.Alter, ErrAccidentalOutOfBounds)
	}
	return score.Pitch{Step: p.Step, Alter: p.Alter + 1, Octave: p.Octave}, nil
}

// Lower flattens the pitch by one chromatic step without changing its
// step letter. Fails if the result would pass double flat.
func Lower(p *score.Pitch) (score.Pitch, error) {
	if p.Alter <= -2 {
		return score.Pitch{}, fmt.Errorf("lower %s%+d: %w", p.Step, p.Alter, ErrAccidentalOutOfBounds)
	}
	return score.Pitch{Step: p.Step, Alter: p.Alter - 1, Octave: p.Octave}, nil
}

// Accidental is a printed accidental glyph name.
type Accidental string

// Accidental names, matching MusicXML accidental values.
const (
	AccidentalSharp       Accidental = "sharp"
	AccidentalFlat        Accidental = "flat"
	AccidentalNatural     Accidental = "natural"
	AccidentalDoubleSharp Accidental = "double-sharp"
	AccidentalFlatFlat    Accidental = "flat-flat"
)

// accidentalFor maps an alteration to its glyph.
var accidentalFor = map[int]Accidental{
	-2: AccidentalFlatFlat,
	-1: AccidentalFlat,
	0:  AccidentalNatural,
	1:  AccidentalSharp,
	2:  AccidentalDoubleSharp,
}

// NeedsAccidental decides whether a spelled pitch requires a printed
// accidental under the active key signature. It returns the accidental
// (an explicit natural when cancelling a key sharp or flat) and true, or
// "" and false when the key already implies the alteration.
func NeedsAccidental(p *score.Pitch, key *score.KeySignature) (Accidental, bool) {
	if p.Alter == key.DefaultAlter(p.Step) {
		return "", false
	}
	return accidentalFor[p.Alter], true
}
