package validate

import (
	"github.com/scorekit/scorekit/core/score"
)

// measure.go - The per-measure timeline checks: duration-per-voice
// accounting, backup/forward position tracking, measure-scoped bracket
// pairing, and voice/staff legality.

// voiceKey identifies one (staff, voice) line within a measure.
type voiceKey struct {
	staff int
	voice int
}

// ValidateMeasure runs the timeline checks on one measure given the
// context carried forward from measure 0. base locates the measure inside
// its score; its entry/voice/staff fields are filled in per finding.
func ValidateMeasure(m *score.Measure, ctx Context, base Location) []Finding {
	var findings []Finding

	ctx = ctx.apply(m.Attributes)

	// Running time cursor, shared across voices; backup/forward move it.
	cursor := 0
	minPos := 0
	maxEnd := map[voiceKey]int{}

	ties := openBrackets{}
	beams := openBrackets{}
	slurs := openBrackets{}
	tuplets := openBrackets{}

	for i, entry := range m.Entries {
		loc := base
		loc.EntryIndex = i

		switch e := entry.(type) {
		case *score.Note:
			loc.Voice = e.EffectiveVoice()
			loc.Staff = e.EffectiveStaff()
			findings = append(findings, checkVoiceStaff(e, ctx, loc)...)

			key := voiceKey{staff: e.EffectiveStaff(), voice: e.EffectiveVoice()}
			if !e.Chord && !e.Grace {
				end := cursor + e.Duration
				if end > maxEnd[key] {
					maxEnd[key] = end
				}
				cursor = end
			}

			findings = append(findings, checkNoteBrackets(e, loc, ties, beams, slurs, tuplets)...)

		case *score.Backup:
			if e.Duration > cursor {
				f := newFinding(CodeBackupExceedsPosition, LevelError, loc,
					"backup of %d at position %d rewinds past the measure start", e.Duration, cursor)
				f.Details = map[string]any{"position": cursor, "duration": e.Duration}
				findings = append(findings, f)
			}
			cursor -= e.Duration
			if cursor < minPos {
				minPos = cursor
			}

		case *score.Forward:
			cursor += e.Duration
			if e.Voice > 0 {
				key := voiceKey{staff: forwardStaff(e), voice: e.Voice}
				if cursor > maxEnd[key] {
					maxEnd[key] = cursor
				}
			}

		case *score.AttributesEntry:
			ctx = ctx.apply(e.Attributes)
		}
	}

	if minPos < 0 {
		f := newFinding(CodeMeasurePositionNegative, LevelError, base,
			"measure position reaches %d", minPos)
		f.Details = map[string]any{"min_position": minPos}
		findings = append(findings, f)
	}

	findings = append(findings, checkDurations(maxEnd, ctx, m, base)...)

	// Beams are measure-scoped; an open beam at measure end is a defect.
	for key, opened := range beams {
		f := newFinding(CodeBeamUnclosed, LevelError, opened,
			"beam %d still open at end of measure %s", key.number, m.Number)
		findings = append(findings, f)
	}
	// Tuplets tolerate continuing into the next measure, but it is rare
	// enough to surface.
	for key, opened := range tuplets {
		f := newFinding(CodeTupletUnclosed, LevelWarning, opened,
			"tuplet %d still open at end of measure %s", key.number, m.Number)
		findings = append(findings, f)
	}
	// Open ties and slurs may legally continue; the cross-measure
	// validator pairs them across barlines.

	return findings
}

// forwardStaff returns the staff of a forward entry, defaulting to 1.
func forwardStaff(f *score.Forward) int {
	if f.Staff == 0 {
		return 1
	}
	return f.Staff
}

// checkDurations compares each voice's maximum end position against the
// expected measure duration. Positions are compared as scaled integers so
// meters like 7/8 never lose a fractional division unit.
func checkDurations(maxEnd map[voiceKey]int, ctx Context, m *score.Measure, base Location) []Finding {
	num, den, ok := ctx.ExpectedDuration()
	if !ok {
		return nil
	}

	var findings []Finding
	for key, end := range maxEnd {
		loc := base
		loc.Voice = key.voice
		loc.Staff = key.staff
		switch {
		case end*den > num:
			// An overlong voice is always a structural defect.
			f := newFinding(CodeMeasureDurationOverflow, LevelError, loc,
				"voice %d exceeds measure %s duration: %d units, expected %d/%d",
				key.voice, m.Number, end, num, den)
			f.Details = map[string]any{"actual": end, "expected_num": num, "expected_den": den}
			findings = append(findings, f)
		case end*den < num:
			// A short voice is often legitimate (upbeats, partial bars).
			f := newFinding(CodeMeasureDurationUnderflow, LevelWarning, loc,
				"voice %d under-fills measure %s: %d units, expected %d/%d",
				key.voice, m.Number, end, num, den)
			f.Details = map[string]any{"actual": end, "expected_num": num, "expected_den": den}
			findings = append(findings, f)
		}
	}
	return findings
}

// checkVoiceStaff verifies voice/staff numbering against the context.
func checkVoiceStaff(n *score.Note, ctx Context, loc Location) []Finding {
	var findings []Finding
	if n.Voice < 0 {
		findings = append(findings, newFinding(CodeVoiceNumberInvalid, LevelError, loc,
			"voice number %d is not positive", n.Voice))
	}
	if n.Staff < 0 {
		findings = append(findings, newFinding(CodeStaffNumberInvalid, LevelError, loc,
			"staff number %d is not positive", n.Staff))
	} else if staves := ctx.EffectiveStaves(); n.EffectiveStaff() > staves {
		findings = append(findings, newFinding(CodeStaffExceedsStaves, LevelError, loc,
			"staff %d exceeds declared staves %d", n.EffectiveStaff(), staves))
	}
	return findings
}

// checkNoteBrackets feeds a note's tie, beam, slur, and tuplet markers
// through the pairing maps and reports pairing violations.
func checkNoteBrackets(n *score.Note, loc Location, ties, beams, slurs, tuplets openBrackets) []Finding {
	var findings []Finding
	key := bracketKey{voice: n.EffectiveVoice(), staff: n.EffectiveStaff()}

	for _, tie := range n.Ties {
		switch tie.Type {
		case score.Start:
			if !ties.open(key, loc) {
				// Two starts without a stop; usually a doubled marking.
				findings = append(findings, newFinding(CodeTieAlreadyOpen, LevelWarning, loc,
					"tie started twice in voice %d", key.voice))
			}
		case score.Stop:
			if !ties.close(key) {
				// The tie may originate in the previous measure.
				findings = append(findings, newFinding(CodeTieStopWithoutStart, LevelInfo, loc,
					"tie stop without a start in this measure (voice %d)", key.voice))
			}
		}
	}

	for _, b := range n.Beams {
		bkey := key
		bkey.number = b.Number
		switch b.Value {
		case score.BeamBegin:
			if !beams.open(bkey, loc) {
				findings = append(findings, newFinding(CodeBeamAlreadyOpen, LevelError, loc,
					"beam %d begun while already open", b.Number))
			}
		case score.BeamContinue:
			if !beams.has(bkey) {
				findings = append(findings, newFinding(CodeBeamContinueNotOpen, LevelError, loc,
					"beam %d continued without a begin", b.Number))
			}
		case score.BeamEnd:
			if !beams.close(bkey) {
				findings = append(findings, newFinding(CodeBeamStopWithoutStart, LevelError, loc,
					"beam %d ended without a begin", b.Number))
			}
		}
		// Hooks are self-contained and need no pairing.
	}

	if n.Notations != nil {
		for _, s := range n.Notations.Slurs {
			skey := key
			skey.number = s.Number
			switch s.Type {
			case score.SlurStart:
				if !slurs.open(skey, loc) {
					// Nested slurs are legal under distinct numbers; a
					// same-number restart is a doubled marking.
					findings = append(findings, newFinding(CodeSlurAlreadyOpen, LevelWarning, loc,
						"slur %d started twice without a stop", s.Number))
				}
			case score.SlurStop:
				if !slurs.close(skey) {
					findings = append(findings, newFinding(CodeSlurStopWithoutStart, LevelInfo, loc,
						"slur %d stop without a start in this measure", s.Number))
				}
			}
		}
		for _, tp := range n.Notations.Tuplets {
			tkey := key
			tkey.number = tp.Number
			switch tp.Type {
			case score.Start:
				if !tuplets.open(tkey, loc) {
					findings = append(findings, newFinding(CodeTupletAlreadyOpen, LevelError, loc,
						"tuplet %d started while already open", tp.Number))
				}
			case score.Stop:
				if !tuplets.close(tkey) {
					findings = append(findings, newFinding(CodeTupletStopWithout, LevelError, loc,
						"tuplet %d stopped without a start", tp.Number))
				}
			}
		}
	}

	return findings
}
