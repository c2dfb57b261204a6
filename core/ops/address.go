package ops

import (
	"strconv"

	"github.com/scorekit/scorekit/core/score"
	"github.com/scorekit/scorekit/core/validate"
)

// address.go - Shared helpers for resolving (part, measure, entry)
// indices on a score copy and for the bookkeeping edits leave behind
// (renumbering, identifier refresh, key context).

// measureAt resolves part and measure indices, reporting an
// INDEX_OUT_OF_RANGE finding when either is out of bounds.
func measureAt(s *score.Score, partIndex, measureIndex int) (*score.Measure, validate.Location, []validate.Finding) {
	loc := validate.NoLocation()
	if partIndex < 0 || partIndex >= len(s.Parts) {
		return nil, loc, []validate.Finding{validate.NewFinding(
			validate.CodeIndexOutOfRange, validate.LevelError, loc,
			"part index %d out of range (have %d parts)", partIndex, len(s.Parts))}
	}
	p := s.Parts[partIndex]
	loc.PartIndex = partIndex
	loc.PartID = p.ID
	if measureIndex < 0 || measureIndex >= len(p.Measures) {
		return nil, loc, []validate.Finding{validate.NewFinding(
			validate.CodeIndexOutOfRange, validate.LevelError, loc,
			"measure index %d out of range in part %q (have %d measures)",
			measureIndex, p.ID, len(p.Measures))}
	}
	m := p.Measures[measureIndex]
	loc.MeasureIndex = measureIndex
	loc.MeasureNumber = m.Number
	return m, loc, nil
}

// noteAt resolves indices down to a note entry. Non-note entries report
// NOT_A_NOTE.
func noteAt(s *score.Score, partIndex, measureIndex, entryIndex int) (*score.Note, validate.Location, []validate.Finding) {
	m, loc, findings := measureAt(s, partIndex, measureIndex)
	if findings != nil {
		return nil, loc, findings
	}
	if entryIndex < 0 || entryIndex >= len(m.Entries) {
		return nil, loc, []validate.Finding{validate.NewFinding(
			validate.CodeIndexOutOfRange, validate.LevelError, loc,
			"entry index %d out of range in measure %s (have %d entries)",
			entryIndex, m.Number, len(m.Entries))}
	}
	loc.EntryIndex = entryIndex
	n, ok := m.Entries[entryIndex].(*score.Note)
	if !ok {
		return nil, loc, []validate.Finding{validate.NewFinding(
			validate.CodeNotANote, validate.LevelError, loc,
			"entry %d in measure %s is a %s, not a note",
			entryIndex, m.Number, m.Entries[entryIndex].Kind())}
	}
	loc.Voice = n.EffectiveVoice()
	loc.Staff = n.EffectiveStaff()
	return n, loc, nil
}

// partByID resolves a part identifier, reporting PART_NOT_FOUND.
func partByID(s *score.Score, id string) (int, []validate.Finding) {
	if i := s.PartIndex(id); i >= 0 {
		return i, nil
	}
	return -1, []validate.Finding{validate.NewFinding(
		validate.CodePartNotFound, validate.LevelError, validate.NoLocation(),
		"no part with id %q", id)}
}

// keyInForce folds key-signature changes through a part up to (and
// including) the attributes of the measure at measureIndex, plus any
// attributes entries before entryIndex within it. Pass len(entries) to
// cover the whole measure.
func keyInForce(p *score.Part, measureIndex, entryIndex int) *score.KeySignature {
	var key *score.KeySignature
	for mi, m := range p.Measures {
		if mi > measureIndex {
			break
		}
		if m.Attributes != nil && m.Attributes.Key != nil {
			key = m.Attributes.Key
		}
		limit := len(m.Entries)
		if mi == measureIndex && entryIndex < limit {
			limit = entryIndex
		}
		for _, e := range m.Entries[:limit] {
			if ae, ok := e.(*score.AttributesEntry); ok &&
				ae.Attributes != nil && ae.Attributes.Key != nil {
				key = ae.Attributes.Key
			}
		}
	}
	return key
}

// endCursor walks a measure's entries and returns the time position after
// the last one, in division units. Chord and grace notes do not advance.
func endCursor(m *score.Measure) int {
	cursor := 0
	for _, e := range m.Entries {
		switch v := e.(type) {
		case *score.Note:
			if !v.Chord && !v.Grace {
				cursor += v.Duration
			}
		case *score.Backup:
			cursor -= v.Duration
		case *score.Forward:
			cursor += v.Duration
		}
	}
	return cursor
}

// renumber rewrites measure numbers into a contiguous sequence starting
// at 1. Implicit (pickup) measures keep their stated number and do not
// consume a slot.
func renumber(p *score.Part) {
	n := 1
	for _, m := range p.Measures {
		if m.Implicit {
			continue
		}
		m.Number = strconv.Itoa(n)
		n++
	}
}

// refreshIDs assigns fresh identifiers to a part's measures and entries.
// Duplicated material must not share element IDs with its source.
func refreshIDs(p *score.Part) {
	for _, m := range p.Measures {
		refreshMeasureIDs(m)
	}
}

func refreshMeasureIDs(m *score.Measure) {
	m.ID = score.NewID()
	if m.Attributes != nil {
		m.Attributes.ID = score.NewID()
	}
	for _, e := range m.Entries {
		switch v := e.(type) {
		case *score.Note:
			v.ID = score.NewID()
		case *score.Backup:
			v.ID = score.NewID()
		case *score.Forward:
			v.ID = score.NewID()
		case *score.Direction:
			v.ID = score.NewID()
		case *score.AttributesEntry:
			v.ID = score.NewID()
			if v.Attributes != nil {
				v.Attributes.ID = score.NewID()
			}
		case *score.Harmony:
			v.ID = score.NewID()
		case *score.Sound:
			v.ID = score.NewID()
		}
	}
}

// validateMeasureLocal runs the measure-scoped validator with the context
// carried forward from the start of the score.
func validateMeasureLocal(s *score.Score, partIndex, measureIndex int) []validate.Finding {
	m := s.Parts[partIndex].Measures[measureIndex]
	base := validate.NoLocation()
	base.PartIndex = partIndex
	base.PartID = s.Parts[partIndex].ID
	base.MeasureIndex = measureIndex
	base.MeasureNumber = m.Number
	return validate.ValidateMeasure(m, validate.ContextAt(s, partIndex, measureIndex), base)
}
