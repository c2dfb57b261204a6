package validate

import (
	"github.com/scorekit/scorekit/core/score"
)

// score.go - Whole-score validation: the measure walk with carried context
// plus the part-level structural, cross-reference, and staff checks.

// ValidateScore walks every part and measure, carrying divisions, time
// signature, and staves forward, and returns all findings.
func ValidateScore(s *score.Score) []Finding {
	var findings []Finding

	for pi, p := range s.Parts {
		var ctx Context
		for mi, m := range p.Measures {
			base := NoLocation()
			base.PartIndex = pi
			base.PartID = p.ID
			base.MeasureIndex = mi
			base.MeasureNumber = m.Number

			findings = append(findings, staffStructureFindings(m, ctx, base)...)
			findings = append(findings, ValidateMeasure(m, ctx, base)...)
			ctx = ctx.applyMeasure(m)
		}
	}

	findings = append(findings, partStructureFindings(s)...)
	findings = append(findings, partListFindings(s)...)
	return findings
}

// ValidatePart runs the measure walk and cross-measure checks for a
// single part, identified by index. Used by part-scoped operations.
func ValidatePart(s *score.Score, partIndex int) []Finding {
	if partIndex < 0 || partIndex >= len(s.Parts) {
		return nil
	}
	var findings []Finding
	p := s.Parts[partIndex]
	var ctx Context
	for mi, m := range p.Measures {
		base := NoLocation()
		base.PartIndex = partIndex
		base.PartID = p.ID
		base.MeasureIndex = mi
		base.MeasureNumber = m.Number
		findings = append(findings, ValidateMeasure(m, ctx, base)...)
		ctx = ctx.applyMeasure(m)
	}
	return findings
}

// staffStructureFindings checks a measure's attributes against the
// carried context: staves-count changes, clef staff numbers, and clef
// coverage.
func staffStructureFindings(m *score.Measure, ctx Context, base Location) []Finding {
	a := m.Attributes
	if a == nil {
		return nil
	}
	var findings []Finding

	if a.Staves > 0 && ctx.Staves > 0 && a.Staves != ctx.Staves {
		f := newFinding(CodeStavesChanged, LevelInfo, base,
			"staves count changes from %d to %d", ctx.Staves, a.Staves)
		f.Details = map[string]any{"from": ctx.Staves, "to": a.Staves}
		findings = append(findings, f)
	}

	staves := a.Staves
	if staves == 0 {
		staves = ctx.EffectiveStaves()
	}

	covered := map[int]bool{}
	for _, c := range a.Clefs {
		n := c.Number
		if n == 0 {
			n = 1
		}
		if n < 1 || n > staves {
			loc := base
			loc.Staff = n
			findings = append(findings, newFinding(CodeClefStaffOutOfRange, LevelError, loc,
				"clef assigned to staff %d of %d", n, staves))
			continue
		}
		covered[n] = true
	}
	if len(a.Clefs) > 0 && len(covered) < staves {
		for st := 1; st <= staves; st++ {
			if !covered[st] {
				loc := base
				loc.Staff = st
				findings = append(findings, newFinding(CodeClefMissing, LevelInfo, loc,
					"no clef stated for staff %d", st))
			}
		}
	}
	return findings
}

// partStructureFindings checks duplicate part IDs and measure agreement
// across parts. Measure counts and numbers are compared against part 0;
// disagreement is notable but not disqualifying.
func partStructureFindings(s *score.Score) []Finding {
	var findings []Finding

	seen := map[string]int{}
	for pi, p := range s.Parts {
		if prev, dup := seen[p.ID]; dup {
			loc := NoLocation()
			loc.PartIndex = pi
			loc.PartID = p.ID
			f := newFinding(CodeDuplicatePartID, LevelError, loc,
				"part ID %q already used by part %d", p.ID, prev)
			findings = append(findings, f)
			continue
		}
		seen[p.ID] = pi
	}

	if len(s.Parts) < 2 {
		return findings
	}
	ref := s.Parts[0]
	for pi, p := range s.Parts[1:] {
		loc := NoLocation()
		loc.PartIndex = pi + 1
		loc.PartID = p.ID
		if len(p.Measures) != len(ref.Measures) {
			f := newFinding(CodeMeasureCountMismatch, LevelWarning, loc,
				"part %q has %d measures, part %q has %d",
				p.ID, len(p.Measures), ref.ID, len(ref.Measures))
			findings = append(findings, f)
			continue
		}
		for mi, m := range p.Measures {
			if m.Number != ref.Measures[mi].Number {
				mloc := loc
				mloc.MeasureIndex = mi
				mloc.MeasureNumber = m.Number
				findings = append(findings, newFinding(CodeMeasureNumberMismatch, LevelWarning, mloc,
					"measure %d numbered %q here but %q in part %q",
					mi, m.Number, ref.Measures[mi].Number, ref.ID))
			}
		}
	}
	return findings
}

// partListFindings checks part/part-list referential integrity and
// part-group start/stop pairing.
func partListFindings(s *score.Score) []Finding {
	var findings []Finding

	declared := map[string]bool{}
	groups := openBrackets{}
	for i, item := range s.PartList {
		loc := NoLocation()
		loc.EntryIndex = i
		switch item.Kind {
		case score.PartListScorePart:
			if declared[item.PartID] {
				loc.PartID = item.PartID
				findings = append(findings, newFinding(CodePartListDuplicate, LevelError, loc,
					"part list declares %q twice", item.PartID))
				continue
			}
			declared[item.PartID] = true
		case score.PartListPartGroup:
			key := bracketKey{number: groupNumber(item.GroupNumber)}
			switch item.GroupType {
			case score.Start:
				if !groups.open(key, loc) {
					findings = append(findings, newFinding(CodeGroupAlreadyOpen, LevelError, loc,
						"part group %q started while already open", item.GroupNumber))
				}
			case score.Stop:
				if !groups.close(key) {
					findings = append(findings, newFinding(CodeGroupStopWithoutStart, LevelError, loc,
						"part group %q stopped without a start", item.GroupNumber))
				}
			}
		}
	}
	for key, opened := range groups {
		findings = append(findings, newFinding(CodeGroupUnclosed, LevelError, opened,
			"part group %d never stopped", key.number))
	}

	// Every part must resolve to a score-part entry, and vice versa.
	for pi, p := range s.Parts {
		if !declared[p.ID] {
			loc := NoLocation()
			loc.PartIndex = pi
			loc.PartID = p.ID
			findings = append(findings, newFinding(CodePartNotInPartList, LevelError, loc,
				"part %q has no score-part entry in the part list", p.ID))
		}
	}
	for id := range declared {
		if s.Part(id) == nil {
			loc := NoLocation()
			loc.PartID = id
			findings = append(findings, newFinding(CodePartListOrphan, LevelError, loc,
				"part list declares %q but no such part exists", id))
		}
	}
	return findings
}

// groupNumber parses a part-group number attribute; MusicXML defaults the
// attribute to "1" and non-numeric values collapse to that default.
func groupNumber(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 1
		}
		n = n*10 + int(s[i]-'0')
	}
	if s == "" {
		return 1
	}
	return n
}
