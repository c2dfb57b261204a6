package ops

import (
	"github.com/scorekit/scorekit/core/score"
	"github.com/scorekit/scorekit/core/validate"
)

// noteops.go - Operations on timed entries within a measure. Adding an
// entry at a time position is responsible for the backup/forward
// arithmetic that lands it there; deleting a sounding event keeps the
// timeline shape by substituting a rest.

// AddNote adds a pitched note of the given duration and voice at time
// position at (in division units) in one measure. When the measure's
// entry walk does not already end at that position, a backup or forward
// entry is appended first to move the cursor there.
func AddNote(s *score.Score, partIndex, measureIndex, at int, p score.Pitch, duration, voice int) Result {
	if _, _, findings := measureAt(s, partIndex, measureIndex); findings != nil {
		return fail(findings...)
	}
	if duration < 1 || at < 0 || voice < 1 {
		loc := validate.NoLocation()
		loc.PartIndex = partIndex
		loc.MeasureIndex = measureIndex
		return failf(validate.CodeInvalidArgument, loc,
			"note placement needs duration >= 1, position >= 0 and voice >= 1 (got %d, %d, %d)",
			duration, at, voice)
	}
	cp := s.Clone()
	m, _, _ := measureAt(cp, partIndex, measureIndex)
	end := endCursor(m)
	switch {
	case at < end:
		m.Entries = append(m.Entries, score.NewBackup(end-at))
	case at > end:
		fw := score.NewForward(at - end)
		fw.Voice = voice
		m.Entries = append(m.Entries, fw)
	}
	m.Entries = append(m.Entries, score.NewNote(p, duration, voice))
	return commit(cp, validateMeasureLocal(cp, partIndex, measureIndex))
}

// DeleteNote removes a sounding event. A plain note is replaced by a rest
// of the same duration, voice and staff, preserving the entry count and
// the timeline; chord members and grace notes, which occupy no time of
// their own, are removed outright.
func DeleteNote(s *score.Score, partIndex, measureIndex, entryIndex int) Result {
	if _, _, findings := noteAt(s, partIndex, measureIndex, entryIndex); findings != nil {
		return fail(findings...)
	}
	cp := s.Clone()
	m, _, _ := measureAt(cp, partIndex, measureIndex)
	n := m.Entries[entryIndex].(*score.Note)
	if n.Chord || n.Grace {
		m.Entries = append(m.Entries[:entryIndex], m.Entries[entryIndex+1:]...)
	} else {
		rest := score.NewRest(n.Duration, n.Voice)
		rest.Staff = n.Staff
		rest.Type = n.Type
		rest.Dots = n.Dots
		m.Entries[entryIndex] = rest
	}
	return commit(cp, validateMeasureLocal(cp, partIndex, measureIndex))
}

// AddChordNote attaches another pitch to the note at entryIndex, inserted
// after any chord members already following it. The new note copies the
// base note's duration, voice, staff and written type.
func AddChordNote(s *score.Score, partIndex, measureIndex, entryIndex int, p score.Pitch) Result {
	base, loc, findings := noteAt(s, partIndex, measureIndex, entryIndex)
	if findings != nil {
		return fail(findings...)
	}
	if base.Pitch == nil {
		return failf(validate.CodeInvalidArgument, loc,
			"entry %d in measure %s is not a pitched note, cannot chord with it",
			entryIndex, loc.MeasureNumber)
	}
	cp := s.Clone()
	m, _, _ := measureAt(cp, partIndex, measureIndex)
	src := m.Entries[entryIndex].(*score.Note)

	cn := score.NewNote(p, src.Duration, src.EffectiveVoice())
	cn.Chord = true
	cn.Staff = src.Staff
	cn.Grace = src.Grace
	cn.Type = src.Type
	cn.Dots = src.Dots
	if src.TimeMod != nil {
		tm := *src.TimeMod
		cn.TimeMod = &tm
	}

	at := entryIndex + 1
	for at < len(m.Entries) {
		next, ok := m.Entries[at].(*score.Note)
		if !ok || !next.Chord {
			break
		}
		at++
	}
	m.Entries = append(m.Entries[:at], append([]score.Entry{cn}, m.Entries[at:]...)...)
	return commit(cp, validateMeasureLocal(cp, partIndex, measureIndex))
}

// CreateTuplet turns count consecutive note entries starting at
// startIndex into an actual:normal tuplet: durations are rescaled by
// normal/actual, every note gets the time modification, and the first and
// last get the bracket markers. Durations that do not divide evenly and
// notes already inside a tuplet are rejected.
func CreateTuplet(s *score.Score, partIndex, measureIndex, startIndex, count, actual, normal int) Result {
	m, mloc, findings := measureAt(s, partIndex, measureIndex)
	if findings != nil {
		return fail(findings...)
	}
	if count < 2 || actual < 2 || normal < 1 {
		return failf(validate.CodeInvalidArgument, mloc,
			"tuplet needs at least 2 notes and an actual:normal ratio, got %d notes %d:%d",
			count, actual, normal)
	}
	if startIndex < 0 || startIndex+count > len(m.Entries) {
		return failf(validate.CodeIndexOutOfRange, mloc,
			"entries [%d, %d) out of range in measure %s (have %d entries)",
			startIndex, startIndex+count, m.Number, len(m.Entries))
	}
	voice := 0
	for i := startIndex; i < startIndex+count; i++ {
		n, loc, findings := noteAt(s, partIndex, measureIndex, i)
		if findings != nil {
			return fail(findings...)
		}
		if n.TimeMod != nil {
			return failf(validate.CodeInvalidArgument, loc,
				"entry %d in measure %s is already inside a tuplet", i, m.Number)
		}
		if voice == 0 {
			voice = n.EffectiveVoice()
		} else if n.EffectiveVoice() != voice {
			return failf(validate.CodeInvalidArgument, loc,
				"tuplet spans voices %d and %d in measure %s", voice, n.EffectiveVoice(), m.Number)
		}
		if (n.Duration*normal)%actual != 0 {
			return failf(validate.CodeInvalidArgument, loc,
				"duration %d does not divide evenly into a %d:%d tuplet", n.Duration, actual, normal)
		}
	}

	cp := s.Clone()
	cm, _, _ := measureAt(cp, partIndex, measureIndex)
	number := freeTupletNumber(cm)
	for i := startIndex; i < startIndex+count; i++ {
		n := cm.Entries[i].(*score.Note)
		n.Duration = n.Duration * normal / actual
		n.TimeMod = &score.TimeModification{ActualNotes: actual, NormalNotes: normal}
	}
	first := cm.Entries[startIndex].(*score.Note)
	last := cm.Entries[startIndex+count-1].(*score.Note)
	ensureNotations(first).Tuplets = append(ensureNotations(first).Tuplets,
		&score.Tuplet{Number: number, Type: score.Start})
	ensureNotations(last).Tuplets = append(ensureNotations(last).Tuplets,
		&score.Tuplet{Number: number, Type: score.Stop})
	return commit(cp, validateMeasureLocal(cp, partIndex, measureIndex))
}

// AddBeam beams the notes from startIndex through endIndex at the given
// beam level. Chord members inherit the beam of their base note and are
// skipped; the remaining notes get begin/continue/end markers in order.
func AddBeam(s *score.Score, partIndex, measureIndex, startIndex, endIndex, number int) Result {
	m, mloc, findings := measureAt(s, partIndex, measureIndex)
	if findings != nil {
		return fail(findings...)
	}
	if number < 1 {
		return failf(validate.CodeInvalidArgument, mloc, "beam number must be at least 1, got %d", number)
	}
	if startIndex < 0 || endIndex >= len(m.Entries) || startIndex >= endIndex {
		return failf(validate.CodeIndexOutOfRange, mloc,
			"beam range [%d, %d] invalid in measure %s (have %d entries)",
			startIndex, endIndex, m.Number, len(m.Entries))
	}
	var targets []int
	voice := 0
	for i := startIndex; i <= endIndex; i++ {
		n, loc, findings := noteAt(s, partIndex, measureIndex, i)
		if findings != nil {
			return fail(findings...)
		}
		if n.Chord {
			continue
		}
		if voice == 0 {
			voice = n.EffectiveVoice()
		} else if n.EffectiveVoice() != voice {
			return failf(validate.CodeInvalidArgument, loc,
				"beam spans voices %d and %d in measure %s", voice, n.EffectiveVoice(), m.Number)
		}
		for _, b := range n.Beams {
			if b.Number == number {
				return failf(validate.CodeInvalidArgument, loc,
					"entry %d in measure %s already carries beam %d", i, m.Number, number)
			}
		}
		targets = append(targets, i)
	}
	if len(targets) < 2 {
		return failf(validate.CodeInvalidArgument, mloc,
			"beam range [%d, %d] covers fewer than 2 beamable notes", startIndex, endIndex)
	}

	cp := s.Clone()
	cm, _, _ := measureAt(cp, partIndex, measureIndex)
	for pos, i := range targets {
		n := cm.Entries[i].(*score.Note)
		value := score.BeamContinue
		switch pos {
		case 0:
			value = score.BeamBegin
		case len(targets) - 1:
			value = score.BeamEnd
		}
		n.Beams = append(n.Beams, &score.Beam{Number: number, Value: value})
	}
	return commit(cp, validateMeasureLocal(cp, partIndex, measureIndex))
}

// RemoveBeam strips the given beam level from the notes in the range.
func RemoveBeam(s *score.Score, partIndex, measureIndex, startIndex, endIndex, number int) Result {
	m, mloc, findings := measureAt(s, partIndex, measureIndex)
	if findings != nil {
		return fail(findings...)
	}
	if startIndex < 0 || endIndex >= len(m.Entries) || startIndex > endIndex {
		return failf(validate.CodeIndexOutOfRange, mloc,
			"beam range [%d, %d] invalid in measure %s (have %d entries)",
			startIndex, endIndex, m.Number, len(m.Entries))
	}
	cp := s.Clone()
	cm, _, _ := measureAt(cp, partIndex, measureIndex)
	removed := false
	for i := startIndex; i <= endIndex; i++ {
		n, ok := cm.Entries[i].(*score.Note)
		if !ok {
			continue
		}
		kept := n.Beams[:0]
		for _, b := range n.Beams {
			if b.Number == number {
				removed = true
				continue
			}
			kept = append(kept, b)
		}
		if len(kept) == 0 {
			n.Beams = nil
		} else {
			n.Beams = kept
		}
	}
	if !removed {
		return failf(validate.CodeInvalidArgument, mloc,
			"no beam %d on entries [%d, %d] of measure %s", number, startIndex, endIndex, m.Number)
	}
	return commit(cp, validateMeasureLocal(cp, partIndex, measureIndex))
}

// AddTie ties the note at (fromMeasure, fromEntry) to the note at
// (toMeasure, toEntry) in the same part. Ties bind identical pitches
// only; a step, alteration or octave difference is rejected with
// TIE_PITCH_MISMATCH before anything is copied.
func AddTie(s *score.Score, partIndex, fromMeasure, fromEntry, toMeasure, toEntry int) Result {
	a, aloc, findings := noteAt(s, partIndex, fromMeasure, fromEntry)
	if findings != nil {
		return fail(findings...)
	}
	b, bloc, findings := noteAt(s, partIndex, toMeasure, toEntry)
	if findings != nil {
		return fail(findings...)
	}
	if fromMeasure > toMeasure || (fromMeasure == toMeasure && fromEntry >= toEntry) {
		return failf(validate.CodeInvalidArgument, aloc,
			"tie start (measure %d, entry %d) must precede its stop (measure %d, entry %d)",
			fromMeasure, fromEntry, toMeasure, toEntry)
	}
	if a.Pitch == nil || b.Pitch == nil {
		return failf(validate.CodeInvalidArgument, aloc, "ties need pitched notes at both ends")
	}
	if !a.Pitch.Equal(b.Pitch) {
		return failf(validate.CodeTiePitchMismatch, bloc,
			"tie endpoints differ: %s%+d octave %d vs %s%+d octave %d",
			a.Pitch.Step, a.Pitch.Alter, a.Pitch.Octave,
			b.Pitch.Step, b.Pitch.Alter, b.Pitch.Octave)
	}
	if hasTie(a, score.Start) {
		return failf(validate.CodeInvalidArgument, aloc, "note already starts a tie")
	}
	if hasTie(b, score.Stop) {
		return failf(validate.CodeInvalidArgument, bloc, "note already stops a tie")
	}

	cp := s.Clone()
	ca, _, _ := noteAt(cp, partIndex, fromMeasure, fromEntry)
	cb, _, _ := noteAt(cp, partIndex, toMeasure, toEntry)
	ca.Ties = append(ca.Ties, &score.Tie{Type: score.Start})
	ensureNotations(ca).Tied = append(ensureNotations(ca).Tied, &score.Tied{Type: score.Start})
	cb.Ties = append(cb.Ties, &score.Tie{Type: score.Stop})
	ensureNotations(cb).Tied = append(ensureNotations(cb).Tied, &score.Tied{Type: score.Stop})

	findings = validateMeasureLocal(cp, partIndex, fromMeasure)
	if toMeasure != fromMeasure {
		findings = append(findings, validateMeasureLocal(cp, partIndex, toMeasure)...)
	}
	return commit(cp, findings)
}

// RemoveTie removes the tie between the two notes.
func RemoveTie(s *score.Score, partIndex, fromMeasure, fromEntry, toMeasure, toEntry int) Result {
	a, aloc, findings := noteAt(s, partIndex, fromMeasure, fromEntry)
	if findings != nil {
		return fail(findings...)
	}
	b, bloc, findings := noteAt(s, partIndex, toMeasure, toEntry)
	if findings != nil {
		return fail(findings...)
	}
	if !hasTie(a, score.Start) {
		return failf(validate.CodeInvalidArgument, aloc, "note does not start a tie")
	}
	if !hasTie(b, score.Stop) {
		return failf(validate.CodeInvalidArgument, bloc, "note does not stop a tie")
	}

	cp := s.Clone()
	ca, _, _ := noteAt(cp, partIndex, fromMeasure, fromEntry)
	cb, _, _ := noteAt(cp, partIndex, toMeasure, toEntry)
	dropTie(ca, score.Start)
	dropTie(cb, score.Stop)

	findings = validateMeasureLocal(cp, partIndex, fromMeasure)
	if toMeasure != fromMeasure {
		findings = append(findings, validateMeasureLocal(cp, partIndex, toMeasure)...)
	}
	return commit(cp, findings)
}

// AddSlur slurs from one note to another in the same part at the given
// slur number. Unlike ties the endpoints may differ in pitch.
func AddSlur(s *score.Score, partIndex, fromMeasure, fromEntry, toMeasure, toEntry, number int) Result {
	a, aloc, findings := noteAt(s, partIndex, fromMeasure, fromEntry)
	if findings != nil {
		return fail(findings...)
	}
	if _, _, findings := noteAt(s, partIndex, toMeasure, toEntry); findings != nil {
		return fail(findings...)
	}
	if number < 1 {
		return failf(validate.CodeInvalidArgument, aloc, "slur number must be at least 1, got %d", number)
	}
	if fromMeasure > toMeasure || (fromMeasure == toMeasure && fromEntry >= toEntry) {
		return failf(validate.CodeInvalidArgument, aloc,
			"slur start (measure %d, entry %d) must precede its stop (measure %d, entry %d)",
			fromMeasure, fromEntry, toMeasure, toEntry)
	}
	if hasSlur(a, number, score.SlurStart) {
		return failf(validate.CodeInvalidArgument, aloc, "note already starts slur %d", number)
	}

	cp := s.Clone()
	ca, _, _ := noteAt(cp, partIndex, fromMeasure, fromEntry)
	cb, _, _ := noteAt(cp, partIndex, toMeasure, toEntry)
	ensureNotations(ca).Slurs = append(ensureNotations(ca).Slurs,
		&score.Slur{Number: number, Type: score.SlurStart})
	ensureNotations(cb).Slurs = append(ensureNotations(cb).Slurs,
		&score.Slur{Number: number, Type: score.SlurStop})

	findings = validateMeasureLocal(cp, partIndex, fromMeasure)
	if toMeasure != fromMeasure {
		findings = append(findings, validateMeasureLocal(cp, partIndex, toMeasure)...)
	}
	return commit(cp, findings)
}

// RemoveSlur removes the slur with the given number between the two notes.
func RemoveSlur(s *score.Score, partIndex, fromMeasure, fromEntry, toMeasure, toEntry, number int) Result {
	a, aloc, findings := noteAt(s, partIndex, fromMeasure, fromEntry)
	if findings != nil {
		return fail(findings...)
	}
	b, bloc, findings := noteAt(s, partIndex, toMeasure, toEntry)
	if findings != nil {
		return fail(findings...)
	}
	if !hasSlur(a, number, score.SlurStart) {
		return failf(validate.CodeInvalidArgument, aloc, "note does not start slur %d", number)
	}
	if !hasSlur(b, number, score.SlurStop) {
		return failf(validate.CodeInvalidArgument, bloc, "note does not stop slur %d", number)
	}

	cp := s.Clone()
	ca, _, _ := noteAt(cp, partIndex, fromMeasure, fromEntry)
	cb, _, _ := noteAt(cp, partIndex, toMeasure, toEntry)
	dropSlur(ca, number, score.SlurStart)
	dropSlur(cb, number, score.SlurStop)

	findings = validateMeasureLocal(cp, partIndex, fromMeasure)
	if toMeasure != fromMeasure {
		findings = append(findings, validateMeasureLocal(cp, partIndex, toMeasure)...)
	}
	return commit(cp, findings)
}

func ensureNotations(n *score.Note) *score.Notations {
	if n.Notations == nil {
		n.Notations = &score.Notations{}
	}
	return n.Notations
}

func hasTie(n *score.Note, typ score.StartStop) bool {
	for _, t := range n.Ties {
		if t.Type == typ {
			return true
		}
	}
	return false
}

func dropTie(n *score.Note, typ score.StartStop) {
	kept := n.Ties[:0]
	for _, t := range n.Ties {
		if t.Type != typ {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		n.Ties = nil
	} else {
		n.Ties = kept
	}
	if n.Notations == nil {
		return
	}
	tied := n.Notations.Tied[:0]
	for _, t := range n.Notations.Tied {
		if t.Type != typ {
			tied = append(tied, t)
		}
	}
	if len(tied) == 0 {
		n.Notations.Tied = nil
	} else {
		n.Notations.Tied = tied
	}
}

func hasSlur(n *score.Note, number int, typ score.SlurType) bool {
	if n.Notations == nil {
		return false
	}
	for _, sl := range n.Notations.Slurs {
		if sl.Number == number && sl.Type == typ {
			return true
		}
	}
	return false
}

func dropSlur(n *score.Note, number int, typ score.SlurType) {
	if n.Notations == nil {
		return
	}
	kept := n.Notations.Slurs[:0]
	for _, sl := range n.Notations.Slurs {
		if sl.Number == number && sl.Type == typ {
			continue
		}
		kept = append(kept, sl)
	}
	if len(kept) == 0 {
		n.Notations.Slurs = nil
	} else {
		n.Notations.Slurs = kept
	}
}

// freeTupletNumber returns the lowest bracket number not already used by
// a tuplet marker anywhere in the measure.
func freeTupletNumber(m *score.Measure) int {
	used := map[int]bool{}
	for _, e := range m.Entries {
		n, ok := e.(*score.Note)
		if !ok || n.Notations == nil {
			continue
		}
		for _, t := range n.Notations.Tuplets {
			used[t.Number] = true
		}
	}
	num := 1
	for used[num] {
		num++
	}
	return num
}
