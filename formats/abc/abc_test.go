package abc

import (
	"strings"
	"testing"

	"github.com/scorekit/scorekit/core/fingerprint"
	"github.com/scorekit/scorekit/core/score"
)

func TestParseKeyField(t *testing.T) {
	tests := []struct {
		value  string
		fifths int
		mode   score.Mode
	}{
		{"C", 0, score.ModeMajor},
		{"G", 1, score.ModeMajor},
		{"F", -1, score.ModeMajor},
		{"Bb", -2, score.ModeMajor},
		{"F#", 6, score.ModeMajor},
		{"Am", 0, score.ModeMinor},
		{"Em", 1, score.ModeMinor},
		{"F#m", 3, score.ModeMinor},
		{"Amin", 0, score.ModeMinor},
		{"D dorian", 0, score.ModeMajor},
		{"Gmix", 0, score.ModeMajor},
		{"none", 0, score.ModeMajor},
		{"", 0, score.ModeMajor},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			k, err := parseKeyField(tt.value)
			if err != nil {
				t.Fatalf("parseKeyField(%q) error = %v", tt.value, err)
			}
			if k.Fifths != tt.fifths || k.Mode != tt.mode {
				t.Errorf("parseKeyField(%q) = %d %s, want %d %s",
					tt.value, k.Fifths, k.Mode, tt.fifths, tt.mode)
			}
		})
	}

	for _, bad := range []string{"H", "Cbm", "Cfoo"} {
		if _, err := parseKeyField(bad); err == nil {
			t.Errorf("parseKeyField(%q) error = nil, want error", bad)
		}
	}
}

func TestParseMeterField(t *testing.T) {
	tests := []struct {
		value    string
		beats    string
		beatType int
		senza    bool
	}{
		{"4/4", "4", 4, false},
		{"6/8", "6", 8, false},
		{"3+2/8", "3+2", 8, false},
		{"C", "4", 4, false},
		{"C|", "2", 2, false},
		{"none", "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			ts, err := parseMeterField(tt.value)
			if err != nil {
				t.Fatalf("parseMeterField(%q) error = %v", tt.value, err)
			}
			if ts.Beats != tt.beats || ts.BeatType != tt.beatType || ts.SenzaMisura != tt.senza {
				t.Errorf("parseMeterField(%q) = %+v", tt.value, ts)
			}
		})
	}

	if _, err := parseMeterField("waltz"); err == nil {
		t.Error("parseMeterField(waltz) error = nil, want error")
	}
}

func TestParseTempoField(t *testing.T) {
	tests := []struct {
		value string
		want  float64
	}{
		{"120", 120},
		{"1/4=120", 120},
		{"1/2=60", 120},
		{"3/8=40", 60},
	}
	for _, tt := range tests {
		got, err := parseTempoField(tt.value)
		if err != nil {
			t.Fatalf("parseTempoField(%q) error = %v", tt.value, err)
		}
		if got != tt.want {
			t.Errorf("parseTempoField(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func decodeTune(t *testing.T, tune string) *score.Score {
	t.Helper()
	s, err := Decode(strings.NewReader(tune))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	return s
}

func notesOf(t *testing.T, m *score.Measure) []*score.Note {
	t.Helper()
	var out []*score.Note
	for _, e := range m.Entries {
		if n, ok := e.(*score.Note); ok {
			out = append(out, n)
		}
	}
	return out
}

func TestDecodeBasicTune(t *testing.T) {
	s := decodeTune(t, `X:1
T:Test Tune
C:Trad.
M:4/4
L:1/8
Q:1/4=96
K:G
GABc d2e2 | g4 z4 |]
`)

	if s.Title != "Test Tune" {
		t.Errorf("Title = %q, want Test Tune", s.Title)
	}
	if len(s.Creators) != 1 || s.Creators[0].Name != "Trad." {
		t.Errorf("Creators = %+v", s.Creators)
	}
	if len(s.Parts) != 1 {
		t.Fatalf("len(Parts) = %d, want 1", len(s.Parts))
	}
	p := s.Parts[0]
	if len(p.Measures) != 2 {
		t.Fatalf("len(Measures) = %d, want 2", len(p.Measures))
	}

	a := p.Measures[0].Attributes
	if a == nil || a.Divisions != 24 {
		t.Fatalf("attributes = %+v, want divisions 24", a)
	}
	if a.Key == nil || a.Key.Fifths != 1 {
		t.Errorf("Key = %+v, want 1 sharp", a.Key)
	}
	if a.Time == nil || a.Time.Beats != "4" || a.Time.BeatType != 4 {
		t.Errorf("Time = %+v, want 4/4", a.Time)
	}

	var tempo float64
	for _, e := range p.Measures[0].Entries {
		if snd, ok := e.(*score.Sound); ok {
			tempo = snd.Tempo
		}
	}
	if tempo != 96 {
		t.Errorf("tempo = %v, want 96", tempo)
	}

	notes := notesOf(t, p.Measures[0])
	if len(notes) != 6 {
		t.Fatalf("measure 1 notes = %d, want 6", len(notes))
	}
	// G A B c: eighths at divisions 24.
	if notes[0].Pitch.Step != score.StepG || notes[0].Pitch.Octave != 4 || notes[0].Duration != 12 {
		t.Errorf("note 1 = %+v", notes[0])
	}
	if notes[3].Pitch.Step != score.StepC || notes[3].Pitch.Octave != 5 {
		t.Errorf("note 4 = %+v, want c5", notes[3].Pitch)
	}
	if notes[4].Duration != 24 {
		t.Errorf("d2 duration = %d, want 24", notes[4].Duration)
	}
	// F would be sharp in G major, but F never appears; check key default
	// applies to the written notes: none of G A B c d e carries alteration.
	for i, n := range notes {
		if n.Pitch.Alter != 0 {
			t.Errorf("note %d Alter = %d, want 0", i+1, n.Pitch.Alter)
		}
	}

	m2 := notesOf(t, p.Measures[1])
	if len(m2) != 2 || !m2[1].Rest || m2[1].Duration != 48 {
		t.Errorf("measure 2 = %+v, want g4 and half rest", m2)
	}
	if len(p.Measures[1].Barlines) != 1 || p.Measures[1].Barlines[0].BarStyle != "light-heavy" {
		t.Errorf("final barline = %+v", p.Measures[1].Barlines)
	}
}

func TestDecodeKeyDefaultAccidentals(t *testing.T) {
	s := decodeTune(t, `X:1
M:4/4
L:1/4
K:D
FGAB | =FGAB | FGAB |
`)
	p := s.Parts[0]
	if n := notesOf(t, p.Measures[0]); n[0].Pitch.Alter != 1 {
		t.Errorf("measure 1 F Alter = %d, want 1 (key sharp)", n[0].Pitch.Alter)
	}
	m2 := notesOf(t, p.Measures[1])
	if m2[0].Pitch.Alter != 0 {
		t.Errorf("measure 2 =F Alter = %d, want 0", m2[0].Pitch.Alter)
	}
	// The natural does not leak into measure 3.
	if n := notesOf(t, p.Measures[2]); n[0].Pitch.Alter != 1 {
		t.Errorf("measure 3 F Alter = %d, want 1 again", n[0].Pitch.Alter)
	}
}

func TestDecodeAccidentalPersistsThroughMeasure(t *testing.T) {
	s := decodeTune(t, `X:1
M:4/4
L:1/4
K:C
^FFGF | F4 |
`)
	m1 := notesOf(t, s.Parts[0].Measures[0])
	if m1[0].Pitch.Alter != 1 || m1[1].Pitch.Alter != 1 {
		t.Errorf("sharp should persist: %d %d", m1[0].Pitch.Alter, m1[1].Pitch.Alter)
	}
	if m1[3].Pitch.Alter != 1 {
		t.Errorf("fourth F Alter = %d, want 1", m1[3].Pitch.Alter)
	}
	m2 := notesOf(t, s.Parts[0].Measures[1])
	if m2[0].Pitch.Alter != 0 {
		t.Errorf("next measure F Alter = %d, want 0", m2[0].Pitch.Alter)
	}
}

func TestDecodeOctaveMarks(t *testing.T) {
	s := decodeTune(t, `X:1
L:1/4
K:C
C, C c c' |
`)
	n := notesOf(t, s.Parts[0].Measures[0])
	want := []int{3, 4, 5, 6}
	for i, o := range want {
		if n[i].Pitch.Octave != o {
			t.Errorf("note %d octave = %d, want %d", i+1, n[i].Pitch.Octave, o)
		}
	}
}

func TestDecodeTieAndSlur(t *testing.T) {
	s := decodeTune(t, `X:1
M:4/4
L:1/4
K:C
C2- C2 | (DEF) G |
`)
	m1 := notesOf(t, s.Parts[0].Measures[0])
	if m1[0].TieOf(score.Start) == nil {
		t.Error("first note missing tie start")
	}
	if m1[1].TieOf(score.Stop) == nil {
		t.Error("second note missing tie stop")
	}

	m2 := notesOf(t, s.Parts[0].Measures[1])
	if m2[0].Notations == nil || len(m2[0].Notations.Slurs) != 1 || m2[0].Notations.Slurs[0].Type != score.SlurStart {
		t.Errorf("slur start missing: %+v", m2[0].Notations)
	}
	if m2[2].Notations == nil || len(m2[2].Notations.Slurs) != 1 || m2[2].Notations.Slurs[0].Type != score.SlurStop {
		t.Errorf("slur stop missing: %+v", m2[2].Notations)
	}
	if m2[3].Notations != nil && len(m2[3].Notations.Slurs) != 0 {
		t.Errorf("note after slur has slur marks: %+v", m2[3].Notations)
	}
}

func TestDecodeChord(t *testing.T) {
	s := decodeTune(t, `X:1
L:1/4
K:C
[CEG]2 C |
`)
	n := notesOf(t, s.Parts[0].Measures[0])
	if len(n) != 4 {
		t.Fatalf("notes = %d, want 4", len(n))
	}
	if n[0].Chord || !n[1].Chord || !n[2].Chord {
		t.Errorf("chord flags = %v %v %v, want false true true", n[0].Chord, n[1].Chord, n[2].Chord)
	}
	for i := 0; i < 3; i++ {
		if n[i].Duration != 48 {
			t.Errorf("chord member %d duration = %d, want 48", i, n[i].Duration)
		}
	}
}

func TestDecodeTuplet(t *testing.T) {
	s := decodeTune(t, `X:1
M:4/4
L:1/8
K:C
(3CDE F6 |
`)
	n := notesOf(t, s.Parts[0].Measures[0])
	for i := 0; i < 3; i++ {
		if n[i].Duration != 8 {
			t.Errorf("triplet note %d duration = %d, want 8", i, n[i].Duration)
		}
		if n[i].TimeMod == nil || n[i].TimeMod.ActualNotes != 3 || n[i].TimeMod.NormalNotes != 2 {
			t.Errorf("triplet note %d TimeMod = %+v", i, n[i].TimeMod)
		}
	}
	if n[0].Notations == nil || len(n[0].Notations.Tuplets) != 1 || n[0].Notations.Tuplets[0].Type != score.Start {
		t.Error("tuplet start marker missing")
	}
	if n[2].Notations == nil || len(n[2].Notations.Tuplets) != 1 || n[2].Notations.Tuplets[0].Type != score.Stop {
		t.Error("tuplet stop marker missing")
	}
	if n[3].TimeMod != nil {
		t.Error("note after tuplet still carries TimeMod")
	}
}

func TestDecodeGraceNotes(t *testing.T) {
	s := decodeTune(t, `X:1
L:1/4
K:C
{AB}c2 |
`)
	n := notesOf(t, s.Parts[0].Measures[0])
	if len(n) != 3 {
		t.Fatalf("notes = %d, want 3", len(n))
	}
	if !n[0].Grace || !n[1].Grace || n[2].Grace {
		t.Errorf("grace flags = %v %v %v", n[0].Grace, n[1].Grace, n[2].Grace)
	}
	if n[0].Duration != 0 {
		t.Errorf("grace duration = %d, want 0", n[0].Duration)
	}
}

func TestDecodeBrokenRhythm(t *testing.T) {
	s := decodeTune(t, `X:1
L:1/8
K:C
C>D E<F |
`)
	n := notesOf(t, s.Parts[0].Measures[0])
	if n[0].Duration != 18 || n[1].Duration != 6 {
		t.Errorf("C>D durations = %d %d, want 18 6", n[0].Duration, n[1].Duration)
	}
	if n[2].Duration != 6 || n[3].Duration != 18 {
		t.Errorf("E<F durations = %d %d, want 6 18", n[2].Duration, n[3].Duration)
	}
}

func TestDecodeRepeatsAndEndings(t *testing.T) {
	s := decodeTune(t, `X:1
M:4/4
L:1/4
K:C
|: CDEF |1 GABc :|2 cBAG |]
`)
	p := s.Parts[0]
	if len(p.Measures) != 3 {
		t.Fatalf("measures = %d, want 3", len(p.Measures))
	}

	var m1Left *score.Barline
	for _, b := range p.Measures[0].Barlines {
		if b.Location == score.BarlineLeft {
			m1Left = b
		}
	}
	if m1Left == nil || m1Left.Repeat == nil || m1Left.Repeat.Direction != "forward" {
		t.Errorf("measure 1 left barline = %+v, want forward repeat", m1Left)
	}

	var m2Left, m2Right *score.Barline
	for _, b := range p.Measures[1].Barlines {
		if b.Location == score.BarlineLeft {
			m2Left = b
		} else {
			m2Right = b
		}
	}
	if m2Left == nil || m2Left.Ending == nil || m2Left.Ending.Number != "1" || m2Left.Ending.Type != "start" {
		t.Errorf("measure 2 left barline = %+v, want ending 1 start", m2Left)
	}
	if m2Right == nil || m2Right.Repeat == nil || m2Right.Repeat.Direction != "backward" {
		t.Errorf("measure 2 right barline = %+v, want backward repeat", m2Right)
	}
	if m2Right.Ending == nil || m2Right.Ending.Type != "stop" {
		t.Errorf("measure 2 right ending = %+v, want stop", m2Right.Ending)
	}

	var m3Left *score.Barline
	for _, b := range p.Measures[2].Barlines {
		if b.Location == score.BarlineLeft {
			m3Left = b
		}
	}
	if m3Left == nil || m3Left.Ending == nil || m3Left.Ending.Number != "2" {
		t.Errorf("measure 3 left barline = %+v, want ending 2", m3Left)
	}
}

func TestDecodeInlineFields(t *testing.T) {
	s := decodeTune(t, `X:1
M:4/4
L:1/4
K:C
CDEF | [K:D][M:3/4] FGA |
`)
	m2 := s.Parts[0].Measures[1]
	a := m2.Attributes
	if a == nil || a.Key == nil || a.Key.Fifths != 2 {
		t.Fatalf("measure 2 attributes = %+v, want key D", a)
	}
	if a.Time == nil || a.Time.Beats != "3" || a.Time.BeatType != 4 {
		t.Errorf("measure 2 time = %+v, want 3/4", a.Time)
	}
	// F is sharp under the new key.
	if n := notesOf(t, m2); n[0].Pitch.Alter != 1 {
		t.Errorf("F Alter after [K:D] = %d, want 1", n[0].Pitch.Alter)
	}
}

func TestDecodeVoices(t *testing.T) {
	s := decodeTune(t, `X:1
M:4/4
L:1/4
V:1 name="Melody"
V:2 name="Bass"
K:C
V:1
cdef |
V:2
C,4 |
`)
	if len(s.Parts) != 2 {
		t.Fatalf("parts = %d, want 2", len(s.Parts))
	}
	if s.Parts[0].ID != "V1" || s.Parts[0].Name != "Melody" {
		t.Errorf("part 1 = %s %q", s.Parts[0].ID, s.Parts[0].Name)
	}
	if s.Parts[1].Name != "Bass" {
		t.Errorf("part 2 name = %q, want Bass", s.Parts[1].Name)
	}
	if len(s.PartList) != 2 || s.PartList[0].PartID != "V1" {
		t.Errorf("part list = %+v", s.PartList)
	}
	bass := notesOf(t, s.Parts[1].Measures[0])
	if len(bass) != 1 || bass[0].Pitch.Octave != 3 || bass[0].Duration != 96 {
		t.Errorf("bass measure = %+v", bass)
	}
}

func TestDecodePickupMeasure(t *testing.T) {
	s := decodeTune(t, `X:1
M:4/4
L:1/4
K:C
C | DEFG | A4 |
`)
	p := s.Parts[0]
	if len(p.Measures) != 3 {
		t.Fatalf("measures = %d, want 3", len(p.Measures))
	}
	if !p.Measures[0].Implicit || p.Measures[0].Number != "0" {
		t.Errorf("pickup = implicit %v number %q, want implicit 0",
			p.Measures[0].Implicit, p.Measures[0].Number)
	}
	if p.Measures[1].Number != "1" || p.Measures[2].Number != "2" {
		t.Errorf("numbers = %q %q, want 1 2", p.Measures[1].Number, p.Measures[2].Number)
	}
}

func TestDecodeChordSymbols(t *testing.T) {
	s := decodeTune(t, `X:1
L:1/4
K:C
"Gm7"CDEF | "F#/A#"G4 |
`)
	var h *score.Harmony
	for _, e := range s.Parts[0].Measures[0].Entries {
		if v, ok := e.(*score.Harmony); ok {
			h = v
		}
	}
	if h == nil {
		t.Fatal("no harmony entry decoded")
	}
	if h.Root.Step != score.StepG || h.HKind != "minor-seventh" {
		t.Errorf("harmony = %+v, want G minor-seventh", h)
	}

	var h2 *score.Harmony
	for _, e := range s.Parts[0].Measures[1].Entries {
		if v, ok := e.(*score.Harmony); ok {
			h2 = v
		}
	}
	if h2 == nil || h2.Root.Alter != 1 || h2.Bass == nil || h2.Bass.Alter != 1 {
		t.Errorf("harmony 2 = %+v, want F# over A#", h2)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		tune string
	}{
		{"no header", "CDEF |\n"},
		{"bad key", "X:1\nK:H\nCDEF |\n"},
		{"dangling accidental", "X:1\nK:C\n^ |\n"},
		{"unterminated chord", "X:1\nK:C\n[CEG\n"},
		{"unterminated grace", "X:1\nK:C\n{AB\n"},
		{"tie without note", "X:1\nK:C\n- C |\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(strings.NewReader(tt.tune)); err == nil {
				t.Error("Decode() error = nil, want error")
			}
		})
	}
}

func TestEncodeBasic(t *testing.T) {
	s := decodeTune(t, `X:1
T:Round Trip
M:6/8
L:1/8
K:D
ABd f2e d3 |]
`)
	out, err := EncodeBytes(s)
	if err != nil {
		t.Fatalf("EncodeBytes() error = %v", err)
	}
	text := string(out)
	for _, want := range []string{"X:1", "T:Round Trip", "M:6/8", "L:1/8", "K:D"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
}

func TestEncodeRejectsBackup(t *testing.T) {
	s := score.NewScore()
	p := score.NewPart("P1", "One")
	m := score.NewMeasure("1")
	m.Attributes = score.NewAttributes()
	m.Attributes.Divisions = 1
	m.Entries = append(m.Entries,
		score.NewNote(score.Pitch{Step: score.StepC, Octave: 4}, 4, 1),
		score.NewBackup(4),
		score.NewRest(4, 2),
	)
	p.Measures = append(p.Measures, m)
	s.Parts = append(s.Parts, p)

	if _, err := EncodeBytes(s); err == nil {
		t.Error("EncodeBytes(backup) error = nil, want unsupported")
	}
}

func TestRoundTrip(t *testing.T) {
	tune := `X:1
T:Round Trip
C:Trad.
M:4/4
L:1/8
Q:1/4=120
K:G
|: G2AB (3cde d2 |1 "D7"A2F2 D4 :|2 g2f2 g4 |]
`
	first := decodeTune(t, tune)
	out, err := EncodeBytes(first)
	if err != nil {
		t.Fatalf("EncodeBytes() error = %v", err)
	}
	second, err := DecodeBytes(out)
	if err != nil {
		t.Fatalf("re-Decode error = %v\noutput:\n%s", err, out)
	}

	same, err := fingerprint.Equal(first, second)
	if err != nil {
		t.Fatalf("Equal() error = %v", err)
	}
	if !same {
		t.Errorf("round trip changed the score\noutput:\n%s", out)
	}
}
