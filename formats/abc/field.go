// Package abc converts between ABC notation and the score model.
// Header fields are parsed with structured grammars; the tune body uses a
// hand lexer because ABC body syntax is positional and whitespace-sensitive.
package abc

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/scorekit/scorekit/core/score"
)

// keyGrammar parses a K: field value.
// Examples: "C", "G", "Am", "F#m", "Bb", "D mixolydian", "Edor", "none"
//
//nolint:govet // participle grammar tags are not standard struct tags
type keyGrammar struct {
	Tonic      string `@Note`
	Accidental string `@Accidental?`
	Mode       string `@Mode?`
}

var keyLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Note", Pattern: `[A-G]`},
	{Name: "Accidental", Pattern: `[#b]`},
	{Name: "Mode", Pattern: `[A-Za-z]+`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var keyParser = participle.MustBuild[keyGrammar](
	participle.Lexer(keyLexer),
	participle.Elide("Whitespace"),
)

// meterGrammar parses an M: field value.
// Examples: "4/4", "6/8", "3+2/8"
//
//nolint:govet // participle grammar tags are not standard struct tags
type meterGrammar struct {
	Beats    []int `@Int ( "+" @Int )*`
	BeatType int   `"/" @Int`
}

var meterLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Punct", Pattern: `[+/]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var meterParser = participle.MustBuild[meterGrammar](
	participle.Lexer(meterLexer),
	participle.Elide("Whitespace"),
)

// tempoGrammar parses a Q: field value.
// Examples: "120", "1/4=120"
//
//nolint:govet // participle grammar tags are not standard struct tags
type tempoGrammar struct {
	UnitNum *int `( @Int "/"`
	UnitDen *int `  @Int "=" )?`
	BPM     int  `@Int`
}

var tempoParser = participle.MustBuild[tempoGrammar](
	participle.Lexer(meterLexer),
	participle.Elide("Whitespace"),
)

// fractionGrammar parses an L: field value, e.g. "1/8".
//
//nolint:govet // participle grammar tags are not standard struct tags
type fractionGrammar struct {
	Num int `@Int`
	Den int `"/" @Int`
}

var fractionParser = participle.MustBuild[fractionGrammar](
	participle.Lexer(meterLexer),
	participle.Elide("Whitespace"),
)

// majorFifths maps a major tonic to its key signature fifths count.
var majorFifths = map[string]int{
	"Cb": -7, "Gb": -6, "Db": -5, "Ab": -4, "Eb": -3, "Bb": -2, "F": -1,
	"C": 0, "G": 1, "D": 2, "A": 3, "E": 4, "B": 5, "F#": 6, "C#": 7,
}

// modeOffsets maps a mode name to its fifths offset from the major scale
// on the same tonic.
var modeOffsets = map[string]int{
	"": 0, "maj": 0, "major": 0, "ion": 0, "ionian": 0,
	"m": -3, "min": -3, "minor": -3, "aeo": -3, "aeolian": -3,
	"mix": -1, "mixolydian": -1,
	"dor": -2, "dorian": -2,
	"phr": -4, "phrygian": -4,
	"lyd": 1, "lydian": 1,
	"loc": -5, "locrian": -5,
}

// modeNames maps mode names to the model's Mode values. Modes beyond
// major/minor keep their fifths but are recorded as major.
var modeNames = map[string]score.Mode{
	"m": score.ModeMinor, "min": score.ModeMinor, "minor": score.ModeMinor,
	"aeo": score.ModeMinor, "aeolian": score.ModeMinor,
}

// parseKeyField converts a K: value to a key signature. "none" and an
// empty value mean no key (C major, no signature).
func parseKeyField(value string) (*score.KeySignature, error) {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "none") {
		return &score.KeySignature{Fifths: 0, Mode: score.ModeMajor}, nil
	}

	parsed, err := keyParser.ParseString("", value)
	if err != nil {
		return nil, fmt.Errorf("invalid key %q: %w", value, err)
	}

	tonic := parsed.Tonic + parsed.Accidental
	base, ok := majorFifths[tonic]
	if !ok {
		return nil, fmt.Errorf("invalid key tonic %q", tonic)
	}
	modeName := strings.ToLower(parsed.Mode)
	offset, ok := modeOffsets[modeName]
	if !ok {
		return nil, fmt.Errorf("unknown mode %q", parsed.Mode)
	}
	fifths := base + offset
	if fifths < -7 || fifths > 7 {
		return nil, fmt.Errorf("key %q exceeds seven accidentals", value)
	}

	mode := score.ModeMajor
	if m, ok := modeNames[modeName]; ok {
		mode = m
	}
	return &score.KeySignature{Fifths: fifths, Mode: mode}, nil
}

// parseMeterField converts an M: value to a time signature. "C" is common
// time, "C|" cut time, "none" free meter.
func parseMeterField(value string) (*score.TimeSignature, error) {
	value = strings.TrimSpace(value)
	switch value {
	case "C":
		return &score.TimeSignature{Beats: "4", BeatType: 4}, nil
	case "C|":
		return &score.TimeSignature{Beats: "2", BeatType: 2}, nil
	case "none", "":
		return &score.TimeSignature{SenzaMisura: true}, nil
	}

	parsed, err := meterParser.ParseString("", value)
	if err != nil {
		return nil, fmt.Errorf("invalid meter %q: %w", value, err)
	}
	parts := make([]string, len(parsed.Beats))
	for i, b := range parsed.Beats {
		parts[i] = fmt.Sprintf("%d", b)
	}
	return &score.TimeSignature{
		Beats:    strings.Join(parts, "+"),
		BeatType: parsed.BeatType,
	}, nil
}

// parseTempoField converts a Q: value to a quarter-note tempo. A bare
// number is taken as beats per unit note length of 1/4.
func parseTempoField(value string) (float64, error) {
	parsed, err := tempoParser.ParseString("", strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid tempo %q: %w", value, err)
	}
	if parsed.UnitNum == nil {
		return float64(parsed.BPM), nil
	}
	if *parsed.UnitDen == 0 {
		return 0, fmt.Errorf("invalid tempo %q: zero denominator", value)
	}
	// Scale to quarter-note BPM: 1/2=60 plays like 1/4=120.
	return float64(parsed.BPM) * 4 * float64(*parsed.UnitNum) / float64(*parsed.UnitDen), nil
}

// parseLengthField converts an L: value to a unit length fraction of a
// whole note.
func parseLengthField(value string) (num, den int, err error) {
	parsed, err := fractionParser.ParseString("", strings.TrimSpace(value))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid unit note length %q: %w", value, err)
	}
	if parsed.Num == 0 || parsed.Den == 0 {
		return 0, 0, fmt.Errorf("invalid unit note length %q", value)
	}
	return parsed.Num, parsed.Den, nil
}

// keyFieldValue renders a key signature back to a K: value.
func keyFieldValue(k *score.KeySignature) string {
	if k == nil {
		return "C"
	}
	fifths := k.Fifths
	if k.Mode == score.ModeMinor {
		fifths += 3
	}
	for tonic, f := range majorFifths {
		if f == fifths {
			if k.Mode == score.ModeMinor {
				return tonic + "m"
			}
			return tonic
		}
	}
	return "C"
}

// meterFieldValue renders a time signature back to an M: value.
func meterFieldValue(t *score.TimeSignature) string {
	if t == nil || t.SenzaMisura {
		return "none"
	}
	return fmt.Sprintf("%s/%d", t.Beats, t.BeatType)
}
