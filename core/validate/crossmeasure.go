package validate

import (
	"github.com/scorekit/scorekit/core/score"
)

// crossmeasure.go - Opt-in validator pairing ties and slurs across measure
// boundaries within one part. The measure-scoped checks deliberately stay
// silent about ties and slurs that remain open at a barline; this pass
// closes the loop over the whole part.

// ValidateCrossMeasure pairs tie and slur brackets across the measures of
// every part and reports starts that never stop and stops that never
// started anywhere earlier in the part.
func ValidateCrossMeasure(s *score.Score) []Finding {
	var findings []Finding
	for pi, p := range s.Parts {
		findings = append(findings, crossMeasurePart(p, pi)...)
	}
	return findings
}

func crossMeasurePart(p *score.Part, partIndex int) []Finding {
	var findings []Finding
	ties := openBrackets{}
	slurs := openBrackets{}

	for mi, m := range p.Measures {
		for ei, entry := range m.Entries {
			n, ok := entry.(*score.Note)
			if !ok {
				continue
			}
			loc := NoLocation()
			loc.PartIndex = partIndex
			loc.PartID = p.ID
			loc.MeasureIndex = mi
			loc.MeasureNumber = m.Number
			loc.EntryIndex = ei
			loc.Voice = n.EffectiveVoice()
			loc.Staff = n.EffectiveStaff()
			key := bracketKey{voice: n.EffectiveVoice(), staff: n.EffectiveStaff()}

			for _, tie := range n.Ties {
				switch tie.Type {
				case score.Start:
					// A second start simply extends a tie chain; keep the
					// earliest opening for reporting.
					ties.open(key, loc)
				case score.Stop:
					if !ties.close(key) {
						findings = append(findings, newFinding(CodeTieStopWithoutStart, LevelWarning, loc,
							"tie stop with no start anywhere earlier in part %q", p.ID))
					}
				}
			}
			if n.Notations != nil {
				for _, sl := range n.Notations.Slurs {
					skey := key
					skey.number = sl.Number
					switch sl.Type {
					case score.SlurStart:
						slurs.open(skey, loc)
					case score.SlurStop:
						if !slurs.close(skey) {
							findings = append(findings, newFinding(CodeSlurStopWithoutStart, LevelWarning, loc,
								"slur %d stop with no start anywhere earlier in part %q", sl.Number, p.ID))
						}
					}
				}
			}
		}
	}

	for key, opened := range ties {
		findings = append(findings, newFinding(CodeTieUnclosed, LevelWarning, opened,
			"tie in voice %d never stops in part %q", key.voice, p.ID))
	}
	for key, opened := range slurs {
		findings = append(findings, newFinding(CodeSlurUnclosed, LevelWarning, opened,
			"slur %d never stops in part %q", key.number, p.ID))
	}
	return findings
}
