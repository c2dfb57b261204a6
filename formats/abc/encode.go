package abc

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/scorekit/scorekit/core/encoding"
	"github.com/scorekit/scorekit/core/errors"
	"github.com/scorekit/scorekit/core/score"
)

// measuresPerLine is how many measures the encoder packs on one music line.
const measuresPerLine = 4

// Encode writes a Score as a single ABC tune with unit note length 1/8.
// Voices become V: sections; measures with backup entries cannot be
// expressed in ABC and return an UnsupportedError.
func Encode(w io.Writer, s *score.Score) error {
	data, err := EncodeBytes(s)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// EncodeBytes serializes a Score to ABC text.
func EncodeBytes(s *score.Score) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("X:1\n")
	if s.Title != "" {
		fmt.Fprintf(&buf, "T:%s\n", encoding.EscapeABCField(s.Title))
	}
	for _, c := range s.Creators {
		if c.Type == "composer" || c.Type == "" {
			fmt.Fprintf(&buf, "C:%s\n", encoding.EscapeABCField(c.Name))
		}
	}

	key, tm, tempo := headerContext(s)
	fmt.Fprintf(&buf, "M:%s\n", meterFieldValue(tm))
	buf.WriteString("L:1/8\n")
	if tempo > 0 {
		fmt.Fprintf(&buf, "Q:1/4=%d\n", int(tempo+0.5))
	}
	if len(s.Parts) > 1 {
		for i, p := range s.Parts {
			id := voiceID(p, i)
			if p.Name != "" {
				fmt.Fprintf(&buf, "V:%s name=%q\n", id, p.Name)
			} else {
				fmt.Fprintf(&buf, "V:%s\n", id)
			}
		}
	}
	fmt.Fprintf(&buf, "K:%s\n", keyFieldValue(key))

	for i, p := range s.Parts {
		if len(s.Parts) > 1 {
			fmt.Fprintf(&buf, "V:%s\n", voiceID(p, i))
		}
		if err := encodePart(&buf, p, key); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// voiceID derives the V: identifier for a part. Part IDs of the form the
// decoder produces ("V1") map back to their number.
func voiceID(p *score.Part, index int) string {
	if strings.HasPrefix(p.ID, "V") && len(p.ID) > 1 {
		if _, err := strconv.Atoi(p.ID[1:]); err == nil {
			return p.ID[1:]
		}
	}
	return strconv.Itoa(index + 1)
}

// headerContext pulls the initial key, meter, and tempo from the first
// measure of the first part.
func headerContext(s *score.Score) (*score.KeySignature, *score.TimeSignature, float64) {
	key := &score.KeySignature{Mode: score.ModeMajor}
	var tm *score.TimeSignature
	var tempo float64
	if len(s.Parts) == 0 || len(s.Parts[0].Measures) == 0 {
		return key, tm, tempo
	}
	m := s.Parts[0].Measures[0]
	if m.Attributes != nil {
		if m.Attributes.Key != nil {
			key = m.Attributes.Key
		}
		tm = m.Attributes.Time
	}
	for _, e := range m.Entries {
		switch v := e.(type) {
		case *score.Sound:
			if v.Tempo > 0 {
				tempo = v.Tempo
			}
		case *score.Direction:
			if v.Sound != nil && v.Sound.Tempo > 0 {
				tempo = v.Sound.Tempo
			}
		}
	}
	return key, tm, tempo
}

// partEncoder walks one part's measures tracking divisions and key state.
type partEncoder struct {
	buf *bytes.Buffer

	divisions int
	key       *score.KeySignature

	// accidentals tracks explicit alterations through the measure.
	accidentals map[string]int
}

func encodePart(buf *bytes.Buffer, p *score.Part, key *score.KeySignature) error {
	pe := &partEncoder{
		buf:         buf,
		divisions:   divisions,
		key:         key,
		accidentals: make(map[string]int),
	}
	if len(p.Measures) > 0 {
		pe.leadingBar(p.Measures[0])
	}
	for mi, m := range p.Measures {
		if err := pe.measure(m, mi); err != nil {
			return errors.Wrapf(err, "part %s measure %d", p.ID, mi+1)
		}
		pe.boundary(m, next(p.Measures, mi))
		if (mi+1)%measuresPerLine == 0 || mi == len(p.Measures)-1 {
			buf.WriteByte('\n')
		}
	}
	return nil
}

func next(ms []*score.Measure, i int) *score.Measure {
	if i+1 < len(ms) {
		return ms[i+1]
	}
	return nil
}

func (pe *partEncoder) measure(m *score.Measure, index int) error {
	pe.accidentals = make(map[string]int)
	if m.Attributes != nil {
		pe.applyAttributes(m.Attributes, index > 0)
	}

	entries := m.Entries
	for i := 0; i < len(entries); i++ {
		switch v := entries[i].(type) {
		case *score.Note:
			var err error
			i, err = pe.noteGroup(entries, i)
			if err != nil {
				return err
			}
		case *score.Backup:
			return errors.NewUnsupported("multi-voice measures", "ABC output is one voice per part")
		case *score.Forward:
			pe.buf.WriteString("x")
			pe.buf.WriteString(pe.length(v.Duration))
		case *score.AttributesEntry:
			pe.applyAttributes(v.Attributes, true)
		case *score.Harmony:
			fmt.Fprintf(pe.buf, "%q", harmonyText(v))
		case *score.Sound:
			// The opening tempo is already in the Q: header field.
			if v.Tempo > 0 && index > 0 {
				fmt.Fprintf(pe.buf, "[Q:1/4=%d]", int(v.Tempo+0.5))
			}
		case *score.Direction:
			// expressive directions have no ABC body form
		}
	}
	return nil
}

// applyAttributes updates divisions and key state, emitting inline field
// changes for mid-tune key and meter switches.
func (pe *partEncoder) applyAttributes(a *score.Attributes, emit bool) {
	if a == nil {
		return
	}
	if a.Divisions > 0 {
		pe.divisions = a.Divisions
	}
	if a.Key != nil {
		if emit && (a.Key.Fifths != pe.key.Fifths || a.Key.Mode != pe.key.Mode) {
			fmt.Fprintf(pe.buf, "[K:%s]", keyFieldValue(a.Key))
		}
		pe.key = a.Key
	}
	if a.Time != nil && emit {
		fmt.Fprintf(pe.buf, "[M:%s]", meterFieldValue(a.Time))
	}
}

// noteGroup emits one note, chord, or grace run starting at index i and
// returns the index of the last entry consumed.
func (pe *partEncoder) noteGroup(entries []score.Entry, i int) (int, error) {
	n := entries[i].(*score.Note)

	if n.Grace {
		pe.buf.WriteByte('{')
		for {
			pe.emitPitched(entries[i].(*score.Note), true)
			nx, ok := peekNote(entries, i+1)
			if !ok || !nx.Grace {
				break
			}
			i++
		}
		pe.buf.WriteByte('}')
		return i, nil
	}

	if n.Rest {
		pe.emitPrefix(n)
		pe.buf.WriteByte('z')
		pe.buf.WriteString(pe.length(n.Duration))
		pe.emitSuffix(n)
		return i, nil
	}

	// Gather chord members that follow the principal note.
	last := i
	for {
		nx, ok := peekNote(entries, last+1)
		if !ok || !nx.Chord {
			break
		}
		last++
	}

	pe.emitPrefix(n)
	if last > i {
		pe.buf.WriteByte('[')
		for j := i; j <= last; j++ {
			pe.emitPitched(entries[j].(*score.Note), false)
		}
		pe.buf.WriteByte(']')
	} else {
		pe.emitPitched(n, false)
	}
	pe.emitSuffix(n)
	return last, nil
}

func peekNote(entries []score.Entry, i int) (*score.Note, bool) {
	if i >= len(entries) {
		return nil, false
	}
	n, ok := entries[i].(*score.Note)
	return n, ok
}

// emitPrefix writes marks that precede a note: tuplet markers, slur opens,
// articulations, fermata.
func (pe *partEncoder) emitPrefix(n *score.Note) {
	if nt := n.Notations; nt != nil {
		for _, t := range nt.Tuplets {
			if t.Type == score.Start && n.TimeMod != nil {
				p := n.TimeMod.ActualNotes
				q := n.TimeMod.NormalNotes
				if q == defaultTupletQ(p) {
					fmt.Fprintf(pe.buf, "(%d", p)
				} else {
					fmt.Fprintf(pe.buf, "(%d:%d", p, q)
				}
			}
		}
		for _, sl := range nt.Slurs {
			if sl.Type == score.SlurStart {
				pe.buf.WriteByte('(')
			}
		}
		for _, a := range nt.Articulations {
			if a == "staccato" {
				pe.buf.WriteByte('.')
			} else {
				fmt.Fprintf(pe.buf, "!%s!", a)
			}
		}
		if nt.Fermata {
			pe.buf.WriteString("!fermata!")
		}
	}
}

// emitSuffix writes marks that follow a note: ties and slur closes.
func (pe *partEncoder) emitSuffix(n *score.Note) {
	if n.TieOf(score.Start) != nil {
		pe.buf.WriteByte('-')
	}
	if nt := n.Notations; nt != nil {
		for _, sl := range nt.Slurs {
			if sl.Type == score.SlurStop {
				pe.buf.WriteByte(')')
			}
		}
	}
}

// emitPitched writes accidental, letter, octave marks, and length for one
// pitched note.
func (pe *partEncoder) emitPitched(n *score.Note, grace bool) {
	p := n.Pitch
	if p == nil {
		if n.Unpitched != nil {
			p = &score.Pitch{Step: n.Unpitched.DisplayStep, Octave: n.Unpitched.DisplayOctave}
		} else {
			pe.buf.WriteByte('z')
			pe.buf.WriteString(pe.length(n.Duration))
			return
		}
	}

	accKey := string(p.Step) + strconv.Itoa(p.Octave)
	effective := pe.key.DefaultAlter(p.Step)
	if a, ok := pe.accidentals[accKey]; ok {
		effective = a
	}
	if p.Alter != effective {
		pe.buf.WriteString(alterPrefix(p.Alter))
		pe.accidentals[accKey] = p.Alter
	}

	letter := byte(p.Step[0])
	octave := p.Octave
	if octave >= 5 {
		letter = letter - 'A' + 'a'
	}
	pe.buf.WriteByte(letter)
	for o := octave; o > 5; o-- {
		pe.buf.WriteByte('\'')
	}
	for o := octave; o < 4; o++ {
		pe.buf.WriteByte(',')
	}
	if !grace {
		pe.buf.WriteString(pe.length(n.Duration))
	}
}

func alterPrefix(alter int) string {
	switch alter {
	case 2:
		return "^^"
	case 1:
		return "^"
	case -1:
		return "_"
	case -2:
		return "__"
	default:
		return "="
	}
}

// length renders a duration in the current divisions as a multiple of the
// 1/8 unit note.
func (pe *partEncoder) length(duration int) string {
	whole := pe.divisions * 4
	num := duration * 8
	den := whole
	g := gcd(num, den)
	num /= g
	den /= g

	switch {
	case num == 1 && den == 1:
		return ""
	case den == 1:
		return strconv.Itoa(num)
	case num == 1 && den == 2:
		return "/"
	case num == 1:
		return "/" + strconv.Itoa(den)
	default:
		return strconv.Itoa(num) + "/" + strconv.Itoa(den)
	}
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}

// leadingBar writes the opening bar token when the first measure carries a
// left repeat or volta barline.
func (pe *partEncoder) leadingBar(m *score.Measure) {
	tok := ""
	for _, b := range m.Barlines {
		if b.Location != score.BarlineLeft {
			continue
		}
		if b.Repeat != nil && b.Repeat.Direction == "forward" {
			tok = "|:"
		}
		if b.Ending != nil && b.Ending.Type == "start" {
			if tok == "" {
				tok = "["
			}
			tok += b.Ending.Number
		}
	}
	if tok != "" {
		pe.buf.WriteString(tok + " ")
	}
}

// boundary writes the bar token between a measure and its successor.
func (pe *partEncoder) boundary(m, nextM *score.Measure) {
	tok := "|"
	for _, b := range m.Barlines {
		if b.Location != score.BarlineRight {
			continue
		}
		switch {
		case b.Repeat != nil && b.Repeat.Direction == "backward":
			tok = ":|"
		case b.BarStyle == "light-light":
			tok = "||"
		case b.BarStyle == "light-heavy":
			tok = "|]"
		}
	}
	if nextM != nil {
		for _, b := range nextM.Barlines {
			if b.Location != score.BarlineLeft {
				continue
			}
			if b.Repeat != nil && b.Repeat.Direction == "forward" {
				tok += ":"
			}
			if b.Ending != nil && b.Ending.Type == "start" {
				tok += b.Ending.Number
			}
		}
	}
	pe.buf.WriteString(tok + " ")
}

// harmonyKindSuffixes is the inverse of harmonyKinds for chord symbols.
var harmonyKindSuffixes = map[string]string{
	"major":              "",
	"minor":              "m",
	"dominant":           "7",
	"major-seventh":      "maj7",
	"minor-seventh":      "m7",
	"diminished":         "dim",
	"diminished-seventh": "dim7",
	"augmented":          "aug",
	"major-sixth":        "6",
	"minor-sixth":        "m6",
	"dominant-ninth":     "9",
	"suspended-fourth":   "sus4",
	"suspended-second":   "sus2",
}

func harmonyText(h *score.Harmony) string {
	var sb strings.Builder
	sb.WriteString(rootText(h.Root))
	if suffix, ok := harmonyKindSuffixes[h.HKind]; ok {
		sb.WriteString(suffix)
	}
	if h.Bass != nil {
		sb.WriteByte('/')
		sb.WriteString(rootText(*h.Bass))
	}
	return sb.String()
}

func rootText(r score.HarmonyRoot) string {
	s := string(r.Step)
	switch r.Alter {
	case 1:
		s += "#"
	case -1:
		s += "b"
	}
	return s
}
