package ops

import (
	"testing"

	"github.com/scorekit/scorekit/core/score"
	"github.com/scorekit/scorekit/core/validate"
)

// quarterScore is one 4/4 measure with divisions=1 holding four quarter
// notes C4 D4 E4 F4 in voice 1.
func quarterScore() *score.Score {
	s := wholeNoteScore()
	m := s.Parts[0].Measures[0]
	m.Entries = []score.Entry{
		score.NewNote(score.Pitch{Step: score.StepC, Octave: 4}, 1, 1),
		score.NewNote(score.Pitch{Step: score.StepD, Octave: 4}, 1, 1),
		score.NewNote(score.Pitch{Step: score.StepE, Octave: 4}, 1, 1),
		score.NewNote(score.Pitch{Step: score.StepF, Octave: 4}, 1, 1),
	}
	return s
}

func entriesOf(s *score.Score) []score.Entry {
	return s.Parts[0].Measures[0].Entries
}

func TestAddNoteAtCursor(t *testing.T) {
	s := wholeNoteScore()
	s.Parts[0].Measures[0].Entries = []score.Entry{
		score.NewNote(score.Pitch{Step: score.StepC, Octave: 4}, 2, 1),
	}
	res := AddNote(s, 0, 0, 2, score.Pitch{Step: score.StepD, Octave: 4}, 2, 1)
	if !res.OK() {
		t.Fatalf("add failed: %v", errorCodes(res))
	}
	entries := entriesOf(res.Score)
	if len(entries) != 2 {
		t.Fatalf("entry count = %d, want 2 (no backup or forward needed)", len(entries))
	}
	n, ok := entries[1].(*score.Note)
	if !ok || n.Pitch.Step != score.StepD {
		t.Errorf("appended entry = %+v, want the D note", entries[1])
	}
	if len(entriesOf(s)) != 1 {
		t.Error("add mutated the input score")
	}
}

func TestAddNoteSecondVoiceUsesBackup(t *testing.T) {
	s := wholeNoteScore()
	res := AddNote(s, 0, 0, 0, score.Pitch{Step: score.StepE, Octave: 3}, 4, 2)
	if !res.OK() {
		t.Fatalf("add failed: %v", errorCodes(res))
	}
	entries := entriesOf(res.Score)
	if len(entries) != 3 {
		t.Fatalf("entry count = %d, want note+backup+note", len(entries))
	}
	bk, ok := entries[1].(*score.Backup)
	if !ok || bk.Duration != 4 {
		t.Fatalf("entry 1 = %+v, want a backup of 4", entries[1])
	}
	n := entries[2].(*score.Note)
	if n.Voice != 2 || n.Pitch.Step != score.StepE {
		t.Errorf("voice-2 note wrong: %+v", n)
	}
	if findings := validateMeasureLocal(res.Score, 0, 0); len(findings) != 0 {
		t.Errorf("two full voices should validate clean, got %v", findings)
	}
}

func TestAddNoteLaterPositionUsesForward(t *testing.T) {
	s := wholeNoteScore()
	s.Parts[0].Measures[0].Entries = []score.Entry{
		score.NewNote(score.Pitch{Step: score.StepC, Octave: 4}, 1, 1),
	}
	res := AddNote(s, 0, 0, 3, score.Pitch{Step: score.StepG, Octave: 4}, 1, 1)
	if !res.OK() {
		t.Fatalf("add failed: %v", errorCodes(res))
	}
	entries := entriesOf(res.Score)
	if len(entries) != 3 {
		t.Fatalf("entry count = %d, want note+forward+note", len(entries))
	}
	fw, ok := entries[1].(*score.Forward)
	if !ok || fw.Duration != 2 {
		t.Errorf("entry 1 = %+v, want a forward of 2", entries[1])
	}
}

func TestAddNoteOverflowRejected(t *testing.T) {
	s := wholeNoteScore()
	res := AddNote(s, 0, 0, 4, score.Pitch{Step: score.StepA, Octave: 4}, 2, 1)
	if res.OK() || !hasErrorCode(res, validate.CodeMeasureDurationOverflow) {
		t.Errorf("want %s, got %v", validate.CodeMeasureDurationOverflow, errorCodes(res))
	}
	if len(entriesOf(s)) != 1 {
		t.Error("rejected add mutated the input score")
	}
}

func TestAddNoteBadArguments(t *testing.T) {
	s := wholeNoteScore()
	for _, c := range []struct {
		at, dur, voice int
	}{{-1, 1, 1}, {0, 0, 1}, {0, 1, 0}} {
		res := AddNote(s, 0, 0, c.at, score.Pitch{Step: score.StepC, Octave: 4}, c.dur, c.voice)
		if res.OK() || !hasErrorCode(res, validate.CodeInvalidArgument) {
			t.Errorf("at=%d dur=%d voice=%d: want %s, got %v",
				c.at, c.dur, c.voice, validate.CodeInvalidArgument, errorCodes(res))
		}
	}
}

func TestDeleteNoteLeavesRest(t *testing.T) {
	s := quarterScore()
	res := DeleteNote(s, 0, 0, 0)
	if !res.OK() {
		t.Fatalf("delete failed: %v", errorCodes(res))
	}
	entries := entriesOf(res.Score)
	if len(entries) != 4 {
		t.Fatalf("entry count = %d, want 4 preserved", len(entries))
	}
	r := entries[0].(*score.Note)
	if !r.Rest || r.Duration != 1 || r.Voice != 1 {
		t.Errorf("replacement = %+v, want a rest of duration 1 in voice 1", r)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("rest substitution keeps the measure full, got warnings %v", res.Warnings)
	}
}

func TestDeleteChordMemberRemovesEntry(t *testing.T) {
	s := quarterScore()
	res := AddChordNote(s, 0, 0, 0, score.Pitch{Step: score.StepE, Octave: 4})
	if !res.OK() {
		t.Fatalf("chord setup failed: %v", errorCodes(res))
	}
	res = DeleteNote(res.Score, 0, 0, 1)
	if !res.OK() {
		t.Fatalf("delete failed: %v", errorCodes(res))
	}
	if got := len(entriesOf(res.Score)); got != 4 {
		t.Errorf("entry count = %d, want chord member removed outright", got)
	}
}

func TestAddChordNote(t *testing.T) {
	s := quarterScore()
	res := AddChordNote(s, 0, 0, 1, score.Pitch{Step: score.StepF, Octave: 4})
	if !res.OK() {
		t.Fatalf("add chord note failed: %v", errorCodes(res))
	}
	entries := entriesOf(res.Score)
	if len(entries) != 5 {
		t.Fatalf("entry count = %d, want 5", len(entries))
	}
	cn := entries[2].(*score.Note)
	if !cn.Chord || cn.Duration != 1 || cn.Voice != 1 || cn.Pitch.Step != score.StepF {
		t.Errorf("chord note = %+v", cn)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("a chord note adds no time, got warnings %v", res.Warnings)
	}
}

func TestAddChordNoteAppendsAfterExistingMembers(t *testing.T) {
	s := quarterScore()
	res := AddChordNote(s, 0, 0, 0, score.Pitch{Step: score.StepE, Octave: 4})
	if !res.OK() {
		t.Fatalf("first chord note failed: %v", errorCodes(res))
	}
	res = AddChordNote(res.Score, 0, 0, 0, score.Pitch{Step: score.StepG, Octave: 4})
	if !res.OK() {
		t.Fatalf("second chord note failed: %v", errorCodes(res))
	}
	entries := entriesOf(res.Score)
	second := entries[2].(*score.Note)
	if !second.Chord || second.Pitch.Step != score.StepG {
		t.Errorf("entry 2 = %+v, want the G chord member after the E", second)
	}
	if n := entries[3].(*score.Note); n.Chord {
		t.Errorf("entry 3 should be the original D, got %+v", n)
	}
}

func TestAddChordNoteToRestRejected(t *testing.T) {
	s := quarterScore()
	s.Parts[0].Measures[0].Entries[0] = score.NewRest(1, 1)
	res := AddChordNote(s, 0, 0, 0, score.Pitch{Step: score.StepE, Octave: 4})
	if res.OK() || !hasErrorCode(res, validate.CodeInvalidArgument) {
		t.Errorf("want %s, got %v", validate.CodeInvalidArgument, errorCodes(res))
	}
}

// tripletScore is a 4/4 measure at divisions=6: three eighth notes then a
// rest filling the remaining time.
func tripletScore() *score.Score {
	s := wholeNoteScore()
	m := s.Parts[0].Measures[0]
	m.Attributes.Divisions = 6
	m.Entries = []score.Entry{
		score.NewNote(score.Pitch{Step: score.StepC, Octave: 5}, 3, 1),
		score.NewNote(score.Pitch{Step: score.StepD, Octave: 5}, 3, 1),
		score.NewNote(score.Pitch{Step: score.StepE, Octave: 5}, 3, 1),
		score.NewRest(15, 1),
	}
	return s
}

func TestCreateTuplet(t *testing.T) {
	res := CreateTuplet(tripletScore(), 0, 0, 0, 3, 3, 2)
	if !res.OK() {
		t.Fatalf("tuplet failed: %v", errorCodes(res))
	}
	entries := entriesOf(res.Score)
	for i := 0; i < 3; i++ {
		n := entries[i].(*score.Note)
		if n.Duration != 2 {
			t.Errorf("note %d duration = %d, want 2 (three in the time of two)", i, n.Duration)
		}
		if n.TimeMod == nil || n.TimeMod.ActualNotes != 3 || n.TimeMod.NormalNotes != 2 {
			t.Errorf("note %d time modification = %+v", i, n.TimeMod)
		}
	}
	first := entries[0].(*score.Note)
	last := entries[2].(*score.Note)
	if first.Notations == nil || len(first.Notations.Tuplets) != 1 || first.Notations.Tuplets[0].Type != score.Start {
		t.Errorf("first note should open the bracket, got %+v", first.Notations)
	}
	if last.Notations == nil || len(last.Notations.Tuplets) != 1 || last.Notations.Tuplets[0].Type != score.Stop {
		t.Errorf("last note should close the bracket, got %+v", last.Notations)
	}
	// Shrinking three eighths into a triplet leaves the voice short.
	found := false
	for _, w := range res.Warnings {
		if w.Code == validate.CodeMeasureDurationUnderflow {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an underflow warning, got %v", res.Warnings)
	}
}

func TestCreateTupletUnevenDurationRejected(t *testing.T) {
	s := tripletScore()
	for _, e := range entriesOf(s)[:3] {
		e.(*score.Note).Duration = 1
	}
	res := CreateTuplet(s, 0, 0, 0, 3, 3, 2)
	if res.OK() || !hasErrorCode(res, validate.CodeInvalidArgument) {
		t.Errorf("want %s, got %v", validate.CodeInvalidArgument, errorCodes(res))
	}
}

func TestCreateTupletRejectsNestedTimeMod(t *testing.T) {
	s := tripletScore()
	entriesOf(s)[1].(*score.Note).TimeMod = &score.TimeModification{ActualNotes: 3, NormalNotes: 2}
	res := CreateTuplet(s, 0, 0, 0, 3, 3, 2)
	if res.OK() || !hasErrorCode(res, validate.CodeInvalidArgument) {
		t.Errorf("want %s, got %v", validate.CodeInvalidArgument, errorCodes(res))
	}
}

func TestAddBeam(t *testing.T) {
	s := quarterScore()
	res := AddBeam(s, 0, 0, 0, 3, 1)
	if !res.OK() {
		t.Fatalf("beam failed: %v", errorCodes(res))
	}
	want := []score.BeamValue{score.BeamBegin, score.BeamContinue, score.BeamContinue, score.BeamEnd}
	for i, w := range want {
		n := entriesOf(res.Score)[i].(*score.Note)
		if len(n.Beams) != 1 || n.Beams[0].Value != w || n.Beams[0].Number != 1 {
			t.Errorf("note %d beams = %+v, want %s", i, n.Beams, w)
		}
	}
	if n := entriesOf(s)[0].(*score.Note); len(n.Beams) != 0 {
		t.Error("beam mutated the input score")
	}
}

func TestAddBeamAlreadyBeamedRejected(t *testing.T) {
	res := AddBeam(quarterScore(), 0, 0, 0, 3, 1)
	if !res.OK() {
		t.Fatalf("setup beam failed: %v", errorCodes(res))
	}
	res2 := AddBeam(res.Score, 0, 0, 0, 1, 1)
	if res2.OK() || !hasErrorCode(res2, validate.CodeInvalidArgument) {
		t.Errorf("want %s, got %v", validate.CodeInvalidArgument, errorCodes(res2))
	}
}

func TestRemoveBeam(t *testing.T) {
	res := AddBeam(quarterScore(), 0, 0, 0, 3, 1)
	if !res.OK() {
		t.Fatalf("setup beam failed: %v", errorCodes(res))
	}
	res = RemoveBeam(res.Score, 0, 0, 0, 3, 1)
	if !res.OK() {
		t.Fatalf("remove failed: %v", errorCodes(res))
	}
	for i := 0; i < 4; i++ {
		if n := entriesOf(res.Score)[i].(*score.Note); len(n.Beams) != 0 {
			t.Errorf("note %d still beamed: %+v", i, n.Beams)
		}
	}
}

func TestRemoveBeamAbsentRejected(t *testing.T) {
	res := RemoveBeam(quarterScore(), 0, 0, 0, 3, 1)
	if res.OK() || !hasErrorCode(res, validate.CodeInvalidArgument) {
		t.Errorf("want %s, got %v", validate.CodeInvalidArgument, errorCodes(res))
	}
}

// tieScore is a 4/4 measure with two half notes C4 C4.
func tieScore() *score.Score {
	s := wholeNoteScore()
	m := s.Parts[0].Measures[0]
	m.Entries = []score.Entry{
		score.NewNote(score.Pitch{Step: score.StepC, Octave: 4}, 2, 1),
		score.NewNote(score.Pitch{Step: score.StepC, Octave: 4}, 2, 1),
	}
	return s
}

func TestAddTie(t *testing.T) {
	s := tieScore()
	res := AddTie(s, 0, 0, 0, 0, 1)
	if !res.OK() {
		t.Fatalf("tie failed: %v", errorCodes(res))
	}
	a := entriesOf(res.Score)[0].(*score.Note)
	b := entriesOf(res.Score)[1].(*score.Note)
	if !hasTie(a, score.Start) || !hasTie(b, score.Stop) {
		t.Errorf("tie markers missing: %+v / %+v", a.Ties, b.Ties)
	}
	if a.Notations == nil || len(a.Notations.Tied) != 1 {
		t.Errorf("tied notation missing on the start note: %+v", a.Notations)
	}
	if n := entriesOf(s)[0].(*score.Note); len(n.Ties) != 0 {
		t.Error("tie mutated the input score")
	}
}

func TestAddTiePitchMismatch(t *testing.T) {
	s := tieScore()
	entriesOf(s)[1].(*score.Note).Pitch = &score.Pitch{Step: score.StepD, Octave: 4}
	res := AddTie(s, 0, 0, 0, 0, 1)
	if res.OK() || !hasErrorCode(res, validate.CodeTiePitchMismatch) {
		t.Errorf("want %s, got %v", validate.CodeTiePitchMismatch, errorCodes(res))
	}
}

func TestAddTieOrdering(t *testing.T) {
	res := AddTie(tieScore(), 0, 0, 1, 0, 0)
	if res.OK() || !hasErrorCode(res, validate.CodeInvalidArgument) {
		t.Errorf("want %s for a backwards tie, got %v", validate.CodeInvalidArgument, errorCodes(res))
	}
}

func TestAddTieAcrossMeasures(t *testing.T) {
	s := tieScore()
	m2 := score.NewMeasure("2")
	m2.Entries = []score.Entry{
		score.NewNote(score.Pitch{Step: score.StepC, Octave: 4}, 4, 1),
	}
	s.Parts[0].Measures = append(s.Parts[0].Measures, m2)
	res := AddTie(s, 0, 0, 1, 1, 0)
	if !res.OK() {
		t.Fatalf("cross-measure tie failed: %v", errorCodes(res))
	}
	if findings := validate.ValidateCrossMeasure(res.Score); len(findings) != 0 {
		t.Errorf("cross-measure pairing should be clean, got %v", findings)
	}
}

func TestRemoveTie(t *testing.T) {
	res := AddTie(tieScore(), 0, 0, 0, 0, 1)
	if !res.OK() {
		t.Fatalf("setup tie failed: %v", errorCodes(res))
	}
	res = RemoveTie(res.Score, 0, 0, 0, 0, 1)
	if !res.OK() {
		t.Fatalf("remove failed: %v", errorCodes(res))
	}
	a := entriesOf(res.Score)[0].(*score.Note)
	if len(a.Ties) != 0 || (a.Notations != nil && len(a.Notations.Tied) != 0) {
		t.Errorf("tie markers survive removal: %+v", a)
	}
}

func TestRemoveTieAbsent(t *testing.T) {
	res := RemoveTie(tieScore(), 0, 0, 0, 0, 1)
	if res.OK() || !hasErrorCode(res, validate.CodeInvalidArgument) {
		t.Errorf("want %s, got %v", validate.CodeInvalidArgument, errorCodes(res))
	}
}

func TestAddSlur(t *testing.T) {
	s := quarterScore()
	res := AddSlur(s, 0, 0, 0, 0, 3, 1)
	if !res.OK() {
		t.Fatalf("slur failed: %v", errorCodes(res))
	}
	a := entriesOf(res.Score)[0].(*score.Note)
	b := entriesOf(res.Score)[3].(*score.Note)
	if !hasSlur(a, 1, score.SlurStart) || !hasSlur(b, 1, score.SlurStop) {
		t.Errorf("slur markers missing: %+v / %+v", a.Notations, b.Notations)
	}
}

func TestAddSlurDuplicateStartRejected(t *testing.T) {
	res := AddSlur(quarterScore(), 0, 0, 0, 0, 3, 1)
	if !res.OK() {
		t.Fatalf("setup slur failed: %v", errorCodes(res))
	}
	res2 := AddSlur(res.Score, 0, 0, 0, 0, 2, 1)
	if res2.OK() || !hasErrorCode(res2, validate.CodeInvalidArgument) {
		t.Errorf("want %s, got %v", validate.CodeInvalidArgument, errorCodes(res2))
	}
}

func TestNestedSlurs(t *testing.T) {
	res := AddSlur(quarterScore(), 0, 0, 0, 0, 3, 1)
	if !res.OK() {
		t.Fatalf("outer slur failed: %v", errorCodes(res))
	}
	res = AddSlur(res.Score, 0, 0, 1, 0, 2, 2)
	if !res.OK() {
		t.Fatalf("inner slur with its own number failed: %v", errorCodes(res))
	}
}

func TestRemoveSlur(t *testing.T) {
	res := AddSlur(quarterScore(), 0, 0, 0, 0, 3, 1)
	if !res.OK() {
		t.Fatalf("setup slur failed: %v", errorCodes(res))
	}
	res = RemoveSlur(res.Score, 0, 0, 0, 0, 3, 1)
	if !res.OK() {
		t.Fatalf("remove failed: %v", errorCodes(res))
	}
	a := entriesOf(res.Score)[0].(*score.Note)
	if a.Notations != nil && len(a.Notations.Slurs) != 0 {
		t.Errorf("slur survives removal: %+v", a.Notations.Slurs)
	}
}

func TestRemoveSlurAbsent(t *testing.T) {
	res := RemoveSlur(quarterScore(), 0, 0, 0, 0, 3, 1)
	if res.OK() || !hasErrorCode(res, validate.CodeInvalidArgument) {
		t.Errorf("want %s, got %v", validate.CodeInvalidArgument, errorCodes(res))
	}
}
