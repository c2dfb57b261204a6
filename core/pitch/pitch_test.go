package pitch

import (
	"errors"
	"testing"

	"github.com/scorekit/scorekit/core/score"
)

func TestSemitone(t *testing.T) {
	tests := []struct {
		p    score.Pitch
		want int
	}{
		{score.Pitch{Step: score.StepC, Octave: 4}, 48},
		{score.Pitch{Step: score.StepC, Alter: 1, Octave: 4}, 49},
		{score.Pitch{Step: score.StepD, Alter: -1, Octave: 4}, 49},
		{score.Pitch{Step: score.StepB, Octave: 3}, 47},
		{score.Pitch{Step: score.StepB, Alter: 1, Octave: 3}, 48},
		{score.Pitch{Step: score.StepA, Octave: 0}, 9},
		{score.Pitch{Step: score.StepC, Alter: -1, Octave: 0}, -1},
	}
	for _, tt := range tests {
		if got := Semitone(&tt.p); got != tt.want {
			t.Errorf("Semitone(%s%+d oct %d) = %d, want %d",
				tt.p.Step, tt.p.Alter, tt.p.Octave, got, tt.want)
		}
	}
}

func TestSpellRoundTrip(t *testing.T) {
	// The spelling may differ enharmonically across keys but must denote
	// the same pitch.
	for fifths := -7; fifths <= 7; fifths++ {
		key := &score.KeySignature{Fifths: fifths}
		for s := 0; s < 96; s++ {
			for _, sharp := range []bool{true, false} {
				p := Spell(s, key, sharp)
				if got := Semitone(&p); got != s {
					t.Fatalf("fifths=%d sharp=%v: Semitone(Spell(%d)) = %d",
						fifths, sharp, s, got)
				}
				if p.Alter < -2 || p.Alter > 2 {
					t.Fatalf("Spell(%d) produced out-of-range alter %d", s, p.Alter)
				}
			}
		}
	}
}

func TestSpellNaturals(t *testing.T) {
	// Natural pitch classes spell as plain steps in C major.
	wants := map[int]score.Step{
		0: score.StepC, 2: score.StepD, 4: score.StepE, 5: score.StepF,
		7: score.StepG, 9: score.StepA, 11: score.StepB,
	}
	for pc, step := range wants {
		p := Spell(48+pc, &score.KeySignature{Fifths: 0}, true)
		if p.Step != step || p.Alter != 0 {
			t.Errorf("Spell(%d) = %s%+d, want %s natural", 48+pc, p.Step, p.Alter, step)
		}
	}
}

func TestSpellPreference(t *testing.T) {
	// Without a key match, the sharp/flat preference decides exact ties.
	p := Spell(49, nil, true)
	if p.Step != score.StepC || p.Alter != 1 || p.Octave != 4 {
		t.Errorf("Spell(49, sharp) = %s%+d oct %d, want C+1 oct 4", p.Step, p.Alter, p.Octave)
	}
	p = Spell(49, nil, false)
	if p.Step != score.StepD || p.Alter != -1 || p.Octave != 4 {
		t.Errorf("Spell(49, flat) = %s%+d oct %d, want D-1 oct 4", p.Step, p.Alter, p.Octave)
	}
}

func TestSpellKeySignatureWins(t *testing.T) {
	// The key-signature match overrides the explicit preference.
	tests := []struct {
		semitone int
		fifths   int
		sharp    bool
		step     score.Step
		alter    int
	}{
		// C#/Db in D major (F# C#): spelled C# even when flats preferred.
		{49, 2, false, score.StepC, 1},
		// C#/Db in Ab major (Bb Eb Ab Db): spelled Db even when sharps preferred.
		{49, -4, true, score.StepD, -1},
		// F#/Gb in G major: F#.
		{54, 1, false, score.StepF, 1},
		// F#/Gb in Gb major (6 flats): Gb.
		{54, -6, true, score.StepG, -1},
	}
	for _, tt := range tests {
		key := &score.KeySignature{Fifths: tt.fifths}
		p := Spell(tt.semitone, key, tt.sharp)
		if p.Step != tt.step || p.Alter != tt.alter {
			t.Errorf("Spell(%d, fifths=%d, sharp=%v) = %s%+d, want %s%+d",
				tt.semitone, tt.fifths, tt.sharp, p.Step, p.Alter, tt.step, tt.alter)
		}
	}
}

func TestSpellNearestAlterationBeatsPreference(t *testing.T) {
	// G natural: preferring flats must not produce Abb; the smaller
	// alteration wins outright.
	p := Spell(55, nil, false)
	if p.Step != score.StepG || p.Alter != 0 {
		t.Errorf("Spell(55, flat) = %s%+d, want G natural", p.Step, p.Alter)
	}
}

func TestSpellNegativeSemitones(t *testing.T) {
	p := Spell(-1, nil, false)
	if got := Semitone(&p); got != -1 {
		t.Errorf("Semitone(Spell(-1)) = %d, want -1", got)
	}
	if p.Step != score.StepB || p.Octave != -1 {
		t.Errorf("Spell(-1) = %s oct %d, want B oct -1", p.Step, p.Octave)
	}
}

func TestShiftZeroIsIdentity(t *testing.T) {
	p := score.Pitch{Step: score.StepE, Alter: -1, Octave: 3}
	got := Shift(&p, 0, nil, true)
	if got != p {
		t.Errorf("Shift by 0 = %+v, want unchanged %+v", got, p)
	}
}

func TestShift(t *testing.T) {
	c4 := score.Pitch{Step: score.StepC, Octave: 4}
	up := Shift(&c4, 2, &score.KeySignature{Fifths: 0}, true)
	if up.Step != score.StepD || up.Alter != 0 || up.Octave != 4 {
		t.Errorf("C4 + 2 = %s%+d oct %d, want D4", up.Step, up.Alter, up.Octave)
	}
	down := Shift(&c4, -1, &score.KeySignature{Fifths: 0}, false)
	if got := Semitone(&down); got != 47 {
		t.Errorf("C4 - 1 semitone = %d, want 47", got)
	}
}

func TestRaiseLowerBounds(t *testing.T) {
	dblSharp := score.Pitch{Step: score.StepF, Alter: 2, Octave: 4}
	if _, err := Raise(&dblSharp); !errors.Is(err, ErrAccidentalOutOfBounds) {
		t.Errorf("Raise at +2: err = %v, want ErrAccidentalOutOfBounds", err)
	}
	dblFlat := score.Pitch{Step: score.StepB, Alter: -2, Octave: 4}
	if _, err := Lower(&dblFlat); !errors.Is(err, ErrAccidentalOutOfBounds) {
		t.Errorf("Lower at -2: err = %v, want ErrAccidentalOutOfBounds", err)
	}
}

func TestRaiseThenLowerRoundTrips(t *testing.T) {
	p := score.Pitch{Step: score.StepG, Alter: 1, Octave: 5}
	up, err := Raise(&p)
	if err != nil {
		t.Fatalf("Raise: %v", err)
	}
	if up.Alter != 2 || up.Step != score.StepG {
		t.Fatalf("Raise(G#) = %s%+d, want G+2", up.Step, up.Alter)
	}
	back, err := Lower(&up)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	if back != p {
		t.Errorf("Raise then Lower = %+v, want %+v", back, p)
	}
}

func TestNeedsAccidental(t *testing.T) {
	gMajor := &score.KeySignature{Fifths: 1} // F#
	tests := []struct {
		p    score.Pitch
		key  *score.KeySignature
		want Accidental
		need bool
	}{
		// F# in G major: implied by the key.
		{score.Pitch{Step: score.StepF, Alter: 1, Octave: 4}, gMajor, "", false},
		// F natural in G major: explicit natural cancels the key sharp.
		{score.Pitch{Step: score.StepF, Octave: 4}, gMajor, AccidentalNatural, true},
		// C# in G major: explicit sharp.
		{score.Pitch{Step: score.StepC, Alter: 1, Octave: 4}, gMajor, AccidentalSharp, true},
		// Bb with no key context: explicit flat.
		{score.Pitch{Step: score.StepB, Alter: -1, Octave: 3}, nil, AccidentalFlat, true},
		// C natural with no key context: nothing printed.
		{score.Pitch{Step: score.StepC, Octave: 4}, nil, "", false},
		// Fx in G major: double sharp.
		{score.Pitch{Step: score.StepF, Alter: 2, Octave: 4}, gMajor, AccidentalDoubleSharp, true},
	}
	for _, tt := range tests {
		acc, need := NeedsAccidental(&tt.p, tt.key)
		if acc != tt.want || need != tt.need {
			t.Errorf("NeedsAccidental(%s%+d) = (%q, %v), want (%q, %v)",
				tt.p.Step, tt.p.Alter, acc, need, tt.want, tt.need)
		}
	}
}
