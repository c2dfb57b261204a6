package ops

import (
	"github.com/scorekit/scorekit/core/score"
	"github.com/scorekit/scorekit/core/validate"
)

// structops.go - Operations on the part/measure skeleton. These edits
// cross part boundaries, so they re-run the whole-score validator before
// committing.

// InsertMeasure inserts an empty measure at index in every part and
// renumbers the measures that follow. index may equal the measure count
// to append.
func InsertMeasure(s *score.Score, index int) Result {
	for _, p := range s.Parts {
		if index < 0 || index > len(p.Measures) {
			loc := validate.NoLocation()
			loc.PartID = p.ID
			return failf(validate.CodeIndexOutOfRange, loc,
				"measure index %d out of range in part %q (have %d measures)",
				index, p.ID, len(p.Measures))
		}
	}
	cp := s.Clone()
	for _, p := range cp.Parts {
		m := score.NewMeasure("")
		p.Measures = append(p.Measures[:index], append([]*score.Measure{m}, p.Measures[index:]...)...)
		renumber(p)
	}
	return commit(cp, validate.ValidateScore(cp))
}

// DeleteMeasure removes the measure at index from every part and
// renumbers the remainder.
func DeleteMeasure(s *score.Score, index int) Result {
	for _, p := range s.Parts {
		if index < 0 || index >= len(p.Measures) {
			loc := validate.NoLocation()
			loc.PartID = p.ID
			return failf(validate.CodeIndexOutOfRange, loc,
				"measure index %d out of range in part %q (have %d measures)",
				index, p.ID, len(p.Measures))
		}
	}
	cp := s.Clone()
	for _, p := range cp.Parts {
		p.Measures = append(p.Measures[:index], p.Measures[index+1:]...)
		renumber(p)
	}
	return commit(cp, validate.ValidateScore(cp))
}

// AddPart appends a part with the given id and name, mirroring the first
// part's measure numbers with empty measures, and lists it in the part
// list.
func AddPart(s *score.Score, id, name string) Result {
	if s.PartIndex(id) >= 0 {
		loc := validate.NoLocation()
		loc.PartID = id
		return failf(validate.CodeDuplicatePartID, loc, "part id %q already in use", id)
	}
	cp := s.Clone()
	p := score.NewPart(id, name)
	if len(cp.Parts) > 0 {
		for _, src := range cp.Parts[0].Measures {
			m := score.NewMeasure(src.Number)
			m.Implicit = src.Implicit
			p.Measures = append(p.Measures, m)
		}
	}
	cp.Parts = append(cp.Parts, p)
	cp.PartList = append(cp.PartList, score.PartListItem{
		Kind:     score.PartListScorePart,
		PartID:   id,
		PartName: name,
	})
	return commit(cp, validate.ValidateScore(cp))
}

// RemovePart removes the part with the given id and its part-list entry.
func RemovePart(s *score.Score, id string) Result {
	idx, findings := partByID(s, id)
	if findings != nil {
		return fail(findings...)
	}
	cp := s.Clone()
	cp.Parts = append(cp.Parts[:idx], cp.Parts[idx+1:]...)
	list := cp.PartList[:0]
	for _, item := range cp.PartList {
		if item.Kind == score.PartListScorePart && item.PartID == id {
			continue
		}
		list = append(list, item)
	}
	cp.PartList = list
	return commit(cp, validate.ValidateScore(cp))
}

// DuplicatePart copies the part with the given id under a new id, with
// fresh element identifiers throughout, placing it right after the
// source in both the part slice and the part list.
func DuplicatePart(s *score.Score, id, newID, newName string) Result {
	idx, findings := partByID(s, id)
	if findings != nil {
		return fail(findings...)
	}
	if s.PartIndex(newID) >= 0 {
		loc := validate.NoLocation()
		loc.PartID = newID
		return failf(validate.CodeDuplicatePartID, loc, "part id %q already in use", newID)
	}
	cp := s.Clone()
	dup := cp.Parts[idx].Clone()
	dup.ID = newID
	dup.Name = newName
	refreshIDs(dup)
	cp.Parts = append(cp.Parts[:idx+1], append([]*score.Part{dup}, cp.Parts[idx+1:]...)...)

	item := score.PartListItem{Kind: score.PartListScorePart, PartID: newID, PartName: newName}
	inserted := false
	list := make([]score.PartListItem, 0, len(cp.PartList)+1)
	for _, it := range cp.PartList {
		list = append(list, it)
		if it.Kind == score.PartListScorePart && it.PartID == id {
			list = append(list, item)
			inserted = true
		}
	}
	if !inserted {
		list = append(list, item)
	}
	cp.PartList = list
	return commit(cp, validate.ValidateScore(cp))
}

// SetStaves sets the staff count of a part, stated in its first measure's
// attributes. Notes already sitting on a higher staff make the validator
// reject the edit.
func SetStaves(s *score.Score, id string, staves int) Result {
	idx, findings := partByID(s, id)
	if findings != nil {
		return fail(findings...)
	}
	if staves < 1 {
		loc := validate.NoLocation()
		loc.PartID = id
		return failf(validate.CodeInvalidArgument, loc, "staff count must be at least 1, got %d", staves)
	}
	cp := s.Clone()
	p := cp.Parts[idx]
	if len(p.Measures) == 0 {
		p.Measures = append(p.Measures, score.NewMeasure("1"))
	}
	m := p.Measures[0]
	if m.Attributes == nil {
		m.Attributes = score.NewAttributes()
	}
	m.Attributes.Staves = staves
	return commit(cp, validate.ValidatePart(cp, idx))
}

// SetKeySignature states a key signature at the given measure in every
// part. fifths counts sharps (positive) or flats (negative) and must lie
// within [-7, 7].
func SetKeySignature(s *score.Score, measureIndex, fifths int, mode score.Mode) Result {
	if fifths < -7 || fifths > 7 {
		return failf(validate.CodeInvalidArgument, validate.NoLocation(),
			"fifths must lie in [-7, 7], got %d", fifths)
	}
	return setAttributes(s, measureIndex, func(a *score.Attributes) {
		a.Key = &score.KeySignature{Fifths: fifths, Mode: mode}
	})
}

// SetTimeSignature states a time signature at the given measure in every
// part. Measures that no longer fill the new meter make the validator
// reject the edit.
func SetTimeSignature(s *score.Score, measureIndex int, beats string, beatType int) Result {
	if beats == "" || beatType < 1 {
		return failf(validate.CodeInvalidArgument, validate.NoLocation(),
			"malformed time signature %q/%d", beats, beatType)
	}
	return setAttributes(s, measureIndex, func(a *score.Attributes) {
		a.Time = &score.TimeSignature{Beats: beats, BeatType: beatType}
	})
}

func setAttributes(s *score.Score, measureIndex int, set func(*score.Attributes)) Result {
	for _, p := range s.Parts {
		if measureIndex < 0 || measureIndex >= len(p.Measures) {
			loc := validate.NoLocation()
			loc.PartID = p.ID
			return failf(validate.CodeIndexOutOfRange, loc,
				"measure index %d out of range in part %q (have %d measures)",
				measureIndex, p.ID, len(p.Measures))
		}
	}
	cp := s.Clone()
	for _, p := range cp.Parts {
		m := p.Measures[measureIndex]
		if m.Attributes == nil {
			m.Attributes = score.NewAttributes()
		}
		set(m.Attributes)
	}
	return commit(cp, validate.ValidateScore(cp))
}
