package ops

import (
	"github.com/scorekit/scorekit/core/score"
	"github.com/scorekit/scorekit/core/validate"
)

// copypaste.go - Clipboard-style duplication of measure ranges. A copy is
// a deep snapshot detached from its source score; pasting stamps it into
// a target with fresh element identifiers each time, so the same clip can
// be pasted repeatedly.

// Clip is a copied range of measures, one column per part.
type Clip struct {
	PartIDs  []string
	Measures [][]*score.Measure
}

// Width returns the number of measures in the clip.
func (c *Clip) Width() int {
	if len(c.Measures) == 0 {
		return 0
	}
	return len(c.Measures[0])
}

// CopyMeasures snapshots measures [from, to] of every part. The snapshot
// is a deep copy; later edits to the source score do not affect it.
func CopyMeasures(s *score.Score, from, to int) (*Clip, []validate.Finding) {
	if from < 0 || to < from {
		return nil, []validate.Finding{validate.NewFinding(
			validate.CodeIndexOutOfRange, validate.LevelError, validate.NoLocation(),
			"measure range [%d, %d] is malformed", from, to)}
	}
	for _, p := range s.Parts {
		if to >= len(p.Measures) {
			loc := validate.NoLocation()
			loc.PartID = p.ID
			return nil, []validate.Finding{validate.NewFinding(
				validate.CodeIndexOutOfRange, validate.LevelError, loc,
				"measure range [%d, %d] out of range in part %q (have %d measures)",
				from, to, p.ID, len(p.Measures))}
		}
	}
	clip := &Clip{}
	for _, p := range s.Parts {
		clip.PartIDs = append(clip.PartIDs, p.ID)
		var col []*score.Measure
		for _, m := range p.Measures[from : to+1] {
			col = append(col, m.Clone())
		}
		clip.Measures = append(clip.Measures, col)
	}
	return clip, nil
}

// PasteMeasures inserts a clip's measures at index at in every part and
// renumbers. The clip must have been copied from a score with the same
// part count; part identity beyond the count is not checked, so material
// can be pasted across compatible scores. at may equal the measure count
// to append.
func PasteMeasures(s *score.Score, clip *Clip, at int) Result {
	if clip == nil || clip.Width() == 0 {
		return failf(validate.CodeInvalidArgument, validate.NoLocation(), "empty clip")
	}
	if len(clip.Measures) != len(s.Parts) {
		return failf(validate.CodeInvalidArgument, validate.NoLocation(),
			"clip covers %d parts, score has %d", len(clip.Measures), len(s.Parts))
	}
	for _, p := range s.Parts {
		if at < 0 || at > len(p.Measures) {
			loc := validate.NoLocation()
			loc.PartID = p.ID
			return failf(validate.CodeIndexOutOfRange, loc,
				"measure index %d out of range in part %q (have %d measures)",
				at, p.ID, len(p.Measures))
		}
	}
	cp := s.Clone()
	for pi, p := range cp.Parts {
		var block []*score.Measure
		for _, m := range clip.Measures[pi] {
			stamped := m.Clone()
			refreshMeasureIDs(stamped)
			block = append(block, stamped)
		}
		p.Measures = append(p.Measures[:at], append(block, p.Measures[at:]...)...)
		renumber(p)
	}
	return commit(cp, validate.ValidateScore(cp))
}
