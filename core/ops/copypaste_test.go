package ops

import (
	"testing"

	"github.com/scorekit/scorekit/core/score"
	"github.com/scorekit/scorekit/core/validate"
)

func TestCopyMeasuresSnapshot(t *testing.T) {
	s := twoMeasureScore()
	clip, findings := CopyMeasures(s, 0, 1)
	if findings != nil {
		t.Fatalf("copy failed: %v", findings)
	}
	if clip.Width() != 2 || len(clip.Measures) != 2 {
		t.Fatalf("clip shape %dx%d, want 2 parts x 2 measures", len(clip.Measures), clip.Width())
	}

	// The snapshot must be detached from the source.
	n := s.Parts[0].Measures[0].Entries[0].(*score.Note)
	n.Pitch.Step = score.StepA
	cn := clip.Measures[0][0].Entries[0].(*score.Note)
	if cn.Pitch.Step != score.StepG {
		t.Errorf("clip follows source edits: %s", cn.Pitch.Step)
	}
}

func TestCopyMeasuresBounds(t *testing.T) {
	s := twoMeasureScore()
	if _, findings := CopyMeasures(s, 0, 5); findings == nil {
		t.Error("range past the end must fail")
	}
	if _, findings := CopyMeasures(s, 1, 0); findings == nil {
		t.Error("inverted range must fail")
	}
}

func TestPasteMeasures(t *testing.T) {
	s := twoMeasureScore()
	clip, findings := CopyMeasures(s, 0, 0)
	if findings != nil {
		t.Fatalf("copy failed: %v", findings)
	}
	res := PasteMeasures(s, clip, 2)
	if !res.OK() {
		t.Fatalf("paste failed: %v", errorCodes(res))
	}
	for _, p := range res.Score.Parts {
		if len(p.Measures) != 3 {
			t.Fatalf("part %s has %d measures, want 3", p.ID, len(p.Measures))
		}
		if got := measureNumbers(p); got[2] != "3" {
			t.Errorf("part %s numbers = %v, want renumbered through 3", p.ID, got)
		}
		pasted := p.Measures[2].Entries[0].(*score.Note)
		if pasted.Pitch.Step != score.StepG {
			t.Errorf("pasted content wrong: %+v", pasted.Pitch)
		}
		if pasted.ID == p.Measures[0].Entries[0].EntryID() {
			t.Error("pasted entries must carry fresh IDs")
		}
	}
	if len(s.Parts[0].Measures) != 2 {
		t.Error("paste mutated the input score")
	}
}

func TestPasteSameClipTwice(t *testing.T) {
	s := twoMeasureScore()
	clip, findings := CopyMeasures(s, 0, 0)
	if findings != nil {
		t.Fatalf("copy failed: %v", findings)
	}
	res := PasteMeasures(s, clip, 2)
	if !res.OK() {
		t.Fatalf("first paste failed: %v", errorCodes(res))
	}
	res = PasteMeasures(res.Score, clip, 3)
	if !res.OK() {
		t.Fatalf("second paste failed: %v", errorCodes(res))
	}
	p := res.Score.Parts[0]
	if len(p.Measures) != 4 {
		t.Fatalf("measure count = %d, want 4", len(p.Measures))
	}
	if p.Measures[2].ID == p.Measures[3].ID {
		t.Error("each paste must stamp fresh measure IDs")
	}
}

func TestPasteMeasuresPartMismatch(t *testing.T) {
	s := twoMeasureScore()
	clip, findings := CopyMeasures(s, 0, 0)
	if findings != nil {
		t.Fatalf("copy failed: %v", findings)
	}
	one := wholeNoteScore()
	res := PasteMeasures(one, clip, 0)
	if res.OK() || !hasErrorCode(res, validate.CodeInvalidArgument) {
		t.Errorf("want %s, got %v", validate.CodeInvalidArgument, errorCodes(res))
	}
}

func TestPasteMeasuresOutOfRange(t *testing.T) {
	s := twoMeasureScore()
	clip, findings := CopyMeasures(s, 0, 0)
	if findings != nil {
		t.Fatalf("copy failed: %v", findings)
	}
	res := PasteMeasures(s, clip, 7)
	if res.OK() || !hasErrorCode(res, validate.CodeIndexOutOfRange) {
		t.Errorf("want %s, got %v", validate.CodeIndexOutOfRange, errorCodes(res))
	}
	if res = PasteMeasures(s, nil, 0); res.OK() {
		t.Error("nil clip must fail")
	}
}
