package abc

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/scorekit/scorekit/core/errors"
	"github.com/scorekit/scorekit/core/score"
)

// divisions is the fixed timing resolution used for decoded tunes. It is
// divisible by 2, 3, and 8, so sixteenths, dotted values, and triplets all
// land on integral durations.
const divisions = 24

// wholeNote is a whole note in division units.
const wholeNote = divisions * 4

// Decode parses the first tune of an ABC file into a Score.
func Decode(r io.Reader) (*score.Score, error) {
	d := &decoder{
		s:       score.NewScore(),
		unitNum: 1,
		unitDen: 8,
		key:     &score.KeySignature{Mode: score.ModeMajor},
		byID:    make(map[string]*voiceState),
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	inTune := false
	inHeader := false
	for scanner.Scan() {
		d.line++
		line := stripComment(scanner.Text())
		trimmed := strings.TrimSpace(line)

		if !inTune {
			if strings.HasPrefix(trimmed, "X:") {
				inTune = true
				inHeader = true
			}
			continue
		}
		if trimmed == "" {
			break // blank line ends the tune
		}

		if isFieldLine(trimmed) {
			done, err := d.field(trimmed, inHeader)
			if err != nil {
				return nil, err
			}
			if done {
				inHeader = false
			}
			continue
		}
		if inHeader {
			continue // free text before the key field
		}
		if err := d.musicLine(line); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.NewIO("read", "", err)
	}
	if !inTune {
		return nil, errors.NewParse("ABC", "", "no tune header (X: field) found")
	}

	d.finish()
	return d.s, nil
}

// DecodeBytes parses ABC text from memory.
func DecodeBytes(data []byte) (*score.Score, error) {
	return Decode(strings.NewReader(string(data)))
}

type decoder struct {
	s    *score.Score
	line int

	unitNum, unitDen int
	key              *score.KeySignature
	time             *score.TimeSignature
	tempo            float64

	voices []*voiceState
	byID   map[string]*voiceState
	cur    *voiceState
}

// voiceState is the per-voice parse state. Each voice becomes a Part.
type voiceState struct {
	part    *score.Part
	measure *score.Measure
	started bool // measure has received a leading attributes block

	// accidentals carries explicit accidentals through the current
	// measure, keyed by step+octave.
	accidentals map[string]int

	prevNote   *score.Note
	tiePending bool

	slurDepth    int
	openSlurs    []int
	nextSlurNum  int
	pendingSlurs int

	tupletLeft           int
	tupletActual         int
	tupletNormal         int
	pendingLeftBar       *score.Barline
	openEnding           string
	pendingFermata       bool
	pendingArticulations []string

	brokenPrev *score.Note
	brokenDir  int // +1 for '>', -1 for '<'
}

func (d *decoder) parseErr(format string, args ...any) error {
	return errors.NewParseAt("ABC", "", d.line, fmt.Sprintf(format, args...))
}

// unitDur is the duration of one unit note in division units.
func (d *decoder) unitDur() int {
	return wholeNote * d.unitNum / d.unitDen
}

func stripComment(line string) string {
	// A %% pseudo-comment directive is dropped like any other comment.
	if i := strings.IndexByte(line, '%'); i >= 0 {
		return line[:i]
	}
	return line
}

func isFieldLine(line string) bool {
	return len(line) >= 2 && line[1] == ':' &&
		((line[0] >= 'A' && line[0] <= 'Z') || (line[0] >= 'a' && line[0] <= 'z'))
}

// field handles one field line. It returns true when the field ends the
// header (the K: field).
func (d *decoder) field(line string, inHeader bool) (bool, error) {
	tag := line[0]
	value := strings.TrimSpace(line[2:])

	switch tag {
	case 'X':
		// reference number, not carried in the model
	case 'T':
		if d.s.Title == "" {
			d.s.Title = value
		}
	case 'C':
		d.s.Creators = append(d.s.Creators, score.Creator{Type: "composer", Name: value})
	case 'M':
		t, err := parseMeterField(value)
		if err != nil {
			return false, d.parseErr("%v", err)
		}
		if inHeader {
			d.time = t
		} else {
			d.inlineAttributes(&score.Attributes{ID: score.NewID(), Time: t})
		}
	case 'L':
		num, den, err := parseLengthField(value)
		if err != nil {
			return false, d.parseErr("%v", err)
		}
		d.unitNum, d.unitDen = num, den
	case 'Q':
		bpm, err := parseTempoField(value)
		if err != nil {
			return false, d.parseErr("%v", err)
		}
		if inHeader {
			d.tempo = bpm
		} else {
			d.voice().measure.Entries = append(d.voice().measure.Entries,
				&score.Sound{ID: score.NewID(), Tempo: bpm})
		}
	case 'K':
		k, err := parseKeyField(value)
		if err != nil {
			return false, d.parseErr("%v", err)
		}
		if inHeader {
			d.key = k
			return true, nil
		}
		d.key = k
		d.inlineAttributes(&score.Attributes{ID: score.NewID(), Key: k})
	case 'V':
		d.selectVoice(value)
	case 'w', 'W':
		// lyric lines are not aligned to notes here
	default:
		// unhandled information fields (A:, O:, R:, ...) are skipped
	}
	return false, nil
}

// voice returns the current voice, creating the default voice "1" on first
// use.
func (d *decoder) voice() *voiceState {
	if d.cur == nil {
		d.selectVoice("1")
	}
	return d.cur
}

// selectVoice switches to (or creates) the voice named by a V: field value.
func (d *decoder) selectVoice(value string) {
	fields := strings.Fields(value)
	id := "1"
	if len(fields) > 0 {
		id = fields[0]
	}
	name := ""
	for _, f := range fields[1:] {
		if strings.HasPrefix(f, "name=") {
			name = strings.Trim(strings.TrimPrefix(f, "name="), `"`)
		}
	}

	if v, ok := d.byID[id]; ok {
		d.cur = v
		if name != "" && v.part.Name == "" {
			v.part.Name = name
		}
		return
	}

	partID := "V" + id
	v := &voiceState{
		part:        score.NewPart(partID, name),
		accidentals: make(map[string]int),
		nextSlurNum: 1,
	}
	v.measure = score.NewMeasure("1")
	d.byID[id] = v
	d.voices = append(d.voices, v)
	d.cur = v
	d.s.Parts = append(d.s.Parts, v.part)
	d.s.PartList = append(d.s.PartList, score.PartListItem{
		Kind:     score.PartListScorePart,
		PartID:   partID,
		PartName: name,
	})
}

// inlineAttributes appends a mid-measure attributes change, or folds it into
// the leading block when nothing timed has happened yet.
func (d *decoder) inlineAttributes(a *score.Attributes) {
	v := d.voice()
	if len(v.measure.Entries) == 0 {
		if v.measure.Attributes == nil {
			v.measure.Attributes = a
			return
		}
		if a.Key != nil {
			v.measure.Attributes.Key = a.Key
		}
		if a.Time != nil {
			v.measure.Attributes.Time = a.Time
		}
		return
	}
	v.measure.Entries = append(v.measure.Entries, &score.AttributesEntry{ID: score.NewID(), Attributes: a})
}

// leadAttributes stamps the first measure of a voice with the tune context.
func (d *decoder) leadAttributes(v *voiceState) {
	if v.started {
		return
	}
	v.started = true
	a := score.NewAttributes()
	a.Divisions = divisions
	k := *d.key
	a.Key = &k
	if d.time != nil {
		t := *d.time
		a.Time = &t
	}
	if v.measure.Attributes != nil {
		if v.measure.Attributes.Key != nil {
			a.Key = v.measure.Attributes.Key
		}
		if v.measure.Attributes.Time != nil {
			a.Time = v.measure.Attributes.Time
		}
	}
	v.measure.Attributes = a
	if d.tempo > 0 {
		v.measure.Entries = append(v.measure.Entries, &score.Sound{ID: score.NewID(), Tempo: d.tempo})
		d.tempo = 0
	}
}

func (d *decoder) musicLine(line string) error {
	v := d.voice()
	d.leadAttributes(v)

	i := 0
	for i < len(line) {
		c := line[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '\\' && i == len(line)-1:
			i++ // line continuation
		case c == '|' || c == ':':
			var err error
			i, err = d.barToken(line, i)
			if err != nil {
				return err
			}
		case c == '[':
			var err error
			i, err = d.openBracket(line, i)
			if err != nil {
				return err
			}
		case c == ']':
			return d.parseErr("unmatched ']'")
		case c == '(':
			if i+1 < len(line) && line[i+1] >= '2' && line[i+1] <= '9' {
				var err error
				i, err = d.tupletToken(line, i)
				if err != nil {
					return err
				}
			} else {
				v.pendingSlurs++
				i++
			}
		case c == ')':
			if err := d.endSlur(v); err != nil {
				return err
			}
			i++
		case c == '{':
			var err error
			i, err = d.graceGroup(line, i)
			if err != nil {
				return err
			}
		case c == '}':
			return d.parseErr("unmatched '}'")
		case c == '!':
			var err error
			i, err = d.decoration(line, i)
			if err != nil {
				return err
			}
		case c == '.':
			v.pendingArticulations = append(v.pendingArticulations, "staccato")
			i++
		case c == '~':
			i++ // roll ornament, not carried
		case c == '-':
			if v.prevNote == nil {
				return d.parseErr("tie with no preceding note")
			}
			if v.prevNote.TieOf(score.Start) == nil {
				v.prevNote.Ties = append(v.prevNote.Ties, &score.Tie{Type: score.Start})
				ensureNotations(v.prevNote).Tied = append(ensureNotations(v.prevNote).Tied, &score.Tied{Type: score.Start})
			}
			v.tiePending = true
			i++
		case c == '>' || c == '<':
			if v.prevNote == nil {
				return d.parseErr("broken rhythm with no preceding note")
			}
			v.brokenPrev = v.prevNote
			if c == '>' {
				v.brokenDir = 1
			} else {
				v.brokenDir = -1
			}
			i++
		case c == '"':
			var err error
			i, err = d.chordSymbol(line, i)
			if err != nil {
				return err
			}
		case c == 'z' || c == 'x':
			var err error
			i, err = d.rest(line, i)
			if err != nil {
				return err
			}
		case c == 'Z':
			var err error
			i, err = d.measureRest(line, i)
			if err != nil {
				return err
			}
		case isNoteStart(c):
			var err error
			i, _, err = d.note(line, i, false)
			if err != nil {
				return err
			}
		default:
			return d.parseErr("unexpected character %q", string(c))
		}
	}
	return nil
}

func isNoteStart(c byte) bool {
	return c == '^' || c == '_' || c == '=' ||
		(c >= 'A' && c <= 'G') || (c >= 'a' && c <= 'g')
}

// note parses one note (accidental, letter, octave marks, length) starting
// at i and appends it to the current voice. It returns the new position and
// the parsed note.
func (d *decoder) note(line string, i int, grace bool) (int, *score.Note, error) {
	v := d.voice()

	var explicit *int
	switch {
	case strings.HasPrefix(line[i:], "^^"):
		two := 2
		explicit = &two
		i += 2
	case strings.HasPrefix(line[i:], "__"):
		minusTwo := -2
		explicit = &minusTwo
		i += 2
	case line[i] == '^':
		one := 1
		explicit = &one
		i++
	case line[i] == '_':
		minusOne := -1
		explicit = &minusOne
		i++
	case line[i] == '=':
		zero := 0
		explicit = &zero
		i++
	}

	if i >= len(line) || !((line[i] >= 'A' && line[i] <= 'G') || (line[i] >= 'a' && line[i] <= 'g')) {
		return 0, nil, d.parseErr("accidental without note letter")
	}
	letter := line[i]
	i++

	octave := 4
	step := score.Step(letter)
	if letter >= 'a' {
		octave = 5
		step = score.Step(letter - 'a' + 'A')
	}
	for i < len(line) && (line[i] == '\'' || line[i] == ',') {
		if line[i] == '\'' {
			octave++
		} else {
			octave--
		}
		i++
	}

	var num, den int
	i, num, den = parseLength(line, i)

	alter := 0
	accKey := string(step) + strconv.Itoa(octave)
	switch {
	case explicit != nil:
		alter = *explicit
		v.accidentals[accKey] = alter
	default:
		if a, ok := v.accidentals[accKey]; ok {
			alter = a
		} else {
			alter = d.key.DefaultAlter(step)
		}
	}

	dur, err := d.scaledDuration(num, den)
	if err != nil {
		return 0, nil, err
	}

	n := &score.Note{
		ID:       score.NewID(),
		Pitch:    &score.Pitch{Step: step, Alter: alter, Octave: octave},
		Duration: dur,
		Voice:    1,
		Grace:    grace,
	}
	if grace {
		n.Duration = 0
	}

	d.attachNote(v, n)
	return i, n, nil
}

// parseLength reads a note length suffix: "2", "/2", "/", "3/2", "//".
func parseLength(line string, i int) (pos, num, den int) {
	num, den = 1, 1
	start := i
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i > start {
		num, _ = strconv.Atoi(line[start:i])
	}
	for i < len(line) && line[i] == '/' {
		i++
		ds := i
		for i < len(line) && line[i] >= '0' && line[i] <= '9' {
			i++
		}
		if i > ds {
			n, _ := strconv.Atoi(line[ds:i])
			den *= n
		} else {
			den *= 2
		}
	}
	return i, num, den
}

// scaledDuration converts a length fraction to division units, applying
// the active tuplet ratio.
func (d *decoder) scaledDuration(num, den int) (int, error) {
	v := d.voice()
	raw := d.unitDur() * num
	if v.tupletLeft > 0 {
		raw *= v.tupletNormal
		den *= v.tupletActual
	}
	if raw%den != 0 {
		return 0, d.parseErr("note length %d/%d does not divide evenly", num, den)
	}
	return raw / den, nil
}

// attachNote applies pending state (slurs, ties, tuplets, decorations,
// broken rhythm) and appends the note to the current measure.
func (d *decoder) attachNote(v *voiceState, n *score.Note) {
	if v.tiePending {
		if v.prevNote != nil && v.prevNote.Pitch.Equal(n.Pitch) {
			n.Ties = append(n.Ties, &score.Tie{Type: score.Stop})
			ensureNotations(n).Tied = append(ensureNotations(n).Tied, &score.Tied{Type: score.Stop})
		}
		v.tiePending = false
	}

	for ; v.pendingSlurs > 0; v.pendingSlurs-- {
		num := v.nextSlurNum
		v.nextSlurNum++
		v.openSlurs = append(v.openSlurs, num)
		ensureNotations(n).Slurs = append(ensureNotations(n).Slurs, &score.Slur{Number: num, Type: score.SlurStart})
	}

	if !n.Grace && v.tupletLeft > 0 {
		n.TimeMod = &score.TimeModification{ActualNotes: v.tupletActual, NormalNotes: v.tupletNormal}
		if v.tupletLeft == v.tupletActual {
			ensureNotations(n).Tuplets = append(ensureNotations(n).Tuplets, &score.Tuplet{Number: 1, Type: score.Start})
		}
		v.tupletLeft--
		if v.tupletLeft == 0 {
			ensureNotations(n).Tuplets = append(ensureNotations(n).Tuplets, &score.Tuplet{Number: 1, Type: score.Stop})
		}
	}

	if v.pendingFermata {
		ensureNotations(n).Fermata = true
		v.pendingFermata = false
	}
	if len(v.pendingArticulations) > 0 {
		ensureNotations(n).Articulations = append(ensureNotations(n).Articulations, v.pendingArticulations...)
		v.pendingArticulations = nil
	}

	if !n.Grace && v.brokenPrev != nil {
		// a>b lengthens a by half and halves b.
		if v.brokenDir > 0 {
			v.brokenPrev.Duration += v.brokenPrev.Duration / 2
			n.Duration /= 2
		} else {
			n.Duration += n.Duration / 2
			v.brokenPrev.Duration /= 2
		}
		v.brokenPrev = nil
		v.brokenDir = 0
	}

	v.measure.Entries = append(v.measure.Entries, n)
	if !n.Grace {
		v.prevNote = n
	}
}

func ensureNotations(n *score.Note) *score.Notations {
	if n.Notations == nil {
		n.Notations = &score.Notations{}
	}
	return n.Notations
}

func (d *decoder) endSlur(v *voiceState) error {
	if len(v.openSlurs) == 0 || v.prevNote == nil {
		return d.parseErr("slur close with no open slur")
	}
	num := v.openSlurs[len(v.openSlurs)-1]
	v.openSlurs = v.openSlurs[:len(v.openSlurs)-1]
	ensureNotations(v.prevNote).Slurs = append(ensureNotations(v.prevNote).Slurs, &score.Slur{Number: num, Type: score.SlurStop})
	return nil
}

func (d *decoder) rest(line string, i int) (int, error) {
	v := d.voice()
	i++
	var num, den int
	i, num, den = parseLength(line, i)
	dur, err := d.scaledDuration(num, den)
	if err != nil {
		return 0, err
	}
	n := score.NewRest(dur, 1)

	// Rests participate in tuplets but not in ties or slurs.
	if v.tupletLeft > 0 {
		n.TimeMod = &score.TimeModification{ActualNotes: v.tupletActual, NormalNotes: v.tupletNormal}
		if v.tupletLeft == v.tupletActual {
			ensureNotations(n).Tuplets = append(ensureNotations(n).Tuplets, &score.Tuplet{Number: 1, Type: score.Start})
		}
		v.tupletLeft--
		if v.tupletLeft == 0 {
			ensureNotations(n).Tuplets = append(ensureNotations(n).Tuplets, &score.Tuplet{Number: 1, Type: score.Stop})
		}
	}

	v.measure.Entries = append(v.measure.Entries, n)
	return i, nil
}

// measureRest handles Z, a whole-measure rest.
func (d *decoder) measureRest(line string, i int) (int, error) {
	v := d.voice()
	i++
	count := 1
	start := i
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i > start {
		count, _ = strconv.Atoi(line[start:i])
	}

	dur := wholeNote
	if d.time != nil && !d.time.SenzaMisura && d.time.BeatType > 0 {
		beats := 0
		for _, p := range strings.Split(d.time.Beats, "+") {
			b, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil {
				return 0, d.parseErr("cannot size measure rest under meter %q", d.time.Beats)
			}
			beats += b
		}
		dur = beats * wholeNote / d.time.BeatType
	}

	for j := 0; j < count; j++ {
		v.measure.Entries = append(v.measure.Entries, score.NewRest(dur, 1))
		if j < count-1 {
			d.closeMeasure(v, &score.Barline{Location: score.BarlineRight, BarStyle: "regular"})
		}
	}
	return i, nil
}

// tupletToken handles "(3", "(3:2", and "(p:q:r".
func (d *decoder) tupletToken(line string, i int) (int, error) {
	v := d.voice()
	i++ // consume '('
	readInt := func() (int, bool) {
		s := i
		for i < len(line) && line[i] >= '0' && line[i] <= '9' {
			i++
		}
		if i == s {
			return 0, false
		}
		n, _ := strconv.Atoi(line[s:i])
		return n, true
	}

	p, _ := readInt()
	q, r := defaultTupletQ(p), p
	if i < len(line) && line[i] == ':' {
		i++
		if n, ok := readInt(); ok {
			q = n
		}
		if i < len(line) && line[i] == ':' {
			i++
			if n, ok := readInt(); ok {
				r = n
			}
		}
	}
	if p < 2 || q < 1 || r < 1 {
		return 0, d.parseErr("invalid tuplet marker")
	}
	v.tupletActual = p
	v.tupletNormal = q
	v.tupletLeft = r
	return i, nil
}

// defaultTupletQ is the conventional "fits in the time of" value when a
// tuplet marker gives only p.
func defaultTupletQ(p int) int {
	switch p {
	case 2, 4, 8:
		return 3
	default:
		return 2
	}
}

// graceGroup parses "{...}" as grace notes attached before the next note.
func (d *decoder) graceGroup(line string, i int) (int, error) {
	i++ // consume '{'
	for i < len(line) && line[i] != '}' {
		if line[i] == '/' {
			i++ // acciaccatura slash
			continue
		}
		if !isNoteStart(line[i]) {
			return 0, d.parseErr("unexpected %q in grace group", string(line[i]))
		}
		var err error
		i, _, err = d.note(line, i, true)
		if err != nil {
			return 0, err
		}
	}
	if i >= len(line) {
		return 0, d.parseErr("unterminated grace group")
	}
	return i + 1, nil
}

// decoration skips a "!...!" decoration, keeping the ones the model carries.
func (d *decoder) decoration(line string, i int) (int, error) {
	end := strings.IndexByte(line[i+1:], '!')
	if end < 0 {
		return 0, d.parseErr("unterminated decoration")
	}
	name := line[i+1 : i+1+end]
	v := d.voice()
	switch name {
	case "fermata":
		v.pendingFermata = true
	case "accent", "tenuto", "marcato", "staccato":
		v.pendingArticulations = append(v.pendingArticulations, name)
	}
	return i + 2 + end, nil
}

// chordSymbol parses a quoted chord symbol into a Harmony entry.
func (d *decoder) chordSymbol(line string, i int) (int, error) {
	end := strings.IndexByte(line[i+1:], '"')
	if end < 0 {
		return 0, d.parseErr("unterminated chord symbol")
	}
	text := line[i+1 : i+1+end]
	v := d.voice()
	if h := parseHarmony(text); h != nil {
		v.measure.Entries = append(v.measure.Entries, h)
	}
	return i + 2 + end, nil
}

// harmonyKinds maps ABC chord quality suffixes to MusicXML kind names.
var harmonyKinds = map[string]string{
	"":     "major",
	"m":    "minor",
	"min":  "minor",
	"7":    "dominant",
	"maj7": "major-seventh",
	"M7":   "major-seventh",
	"m7":   "minor-seventh",
	"min7": "minor-seventh",
	"dim":  "diminished",
	"dim7": "diminished-seventh",
	"aug":  "augmented",
	"+":    "augmented",
	"6":    "major-sixth",
	"m6":   "minor-sixth",
	"9":    "dominant-ninth",
	"sus4": "suspended-fourth",
	"sus2": "suspended-second",
}

// parseHarmony interprets a chord symbol like "Gm7" or "F#/A#". Symbols
// that do not look like chords (annotations such as "^slowly") return nil.
func parseHarmony(text string) *score.Harmony {
	if text == "" || text[0] < 'A' || text[0] > 'G' {
		return nil
	}
	root, rest := parseHarmonyRoot(text)
	var bass *score.HarmonyRoot
	if slash := strings.IndexByte(rest, '/'); slash >= 0 {
		b, _ := parseHarmonyRoot(rest[slash+1:])
		bass = &b
		rest = rest[:slash]
	}
	kind, ok := harmonyKinds[rest]
	if !ok {
		kind = "major"
	}
	return &score.Harmony{ID: score.NewID(), Root: root, HKind: kind, Bass: bass}
}

func parseHarmonyRoot(text string) (score.HarmonyRoot, string) {
	r := score.HarmonyRoot{Step: score.Step(text[0])}
	rest := text[1:]
	if strings.HasPrefix(rest, "#") {
		r.Alter = 1
		rest = rest[1:]
	} else if strings.HasPrefix(rest, "b") {
		r.Alter = -1
		rest = rest[1:]
	}
	return r, rest
}

// openBracket dispatches '[': inline field, ending start, left bar, or chord.
func (d *decoder) openBracket(line string, i int) (int, error) {
	rest := line[i+1:]
	switch {
	case len(rest) >= 2 && rest[1] == ':' && isFieldLine(rest):
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return 0, d.parseErr("unterminated inline field")
		}
		if _, err := d.field(rest[:end], false); err != nil {
			return 0, err
		}
		return i + 2 + end, nil
	case len(rest) > 0 && rest[0] >= '1' && rest[0] <= '9':
		return d.endingStart(line, i+1)
	case len(rest) > 0 && rest[0] == '|':
		// [| heavy-light bar
		v := d.voice()
		v.pendingLeftBar = &score.Barline{Location: score.BarlineLeft, BarStyle: "heavy-light"}
		if len(v.part.Measures) == 0 && !hasTimed(v.measure) {
			v.measure.Barlines = append(v.measure.Barlines, v.pendingLeftBar)
			v.pendingLeftBar = nil
		} else {
			d.closeMeasure(v, &score.Barline{Location: score.BarlineRight, BarStyle: "regular"})
		}
		return i + 2, nil
	default:
		return d.chordGroup(line, i)
	}
}

// chordGroup parses "[CEG]" with an optional shared length suffix.
func (d *decoder) chordGroup(line string, i int) (int, error) {
	v := d.voice()
	i++ // consume '['
	var first *score.Note
	var members []*score.Note
	for i < len(line) && line[i] != ']' {
		if !isNoteStart(line[i]) {
			return 0, d.parseErr("unexpected %q in chord", string(line[i]))
		}
		var n *score.Note
		var err error
		i, n, err = d.note(line, i, false)
		if err != nil {
			return 0, err
		}
		if first == nil {
			first = n
		} else {
			n.Chord = true
		}
		members = append(members, n)
	}
	if i >= len(line) {
		return 0, d.parseErr("unterminated chord")
	}
	if first == nil {
		return 0, d.parseErr("empty chord")
	}
	i++ // consume ']'

	// A length after the bracket multiplies every member.
	var num, den int
	i, num, den = parseLength(line, i)
	if num != 1 || den != 1 {
		for _, n := range members {
			scaled := n.Duration * num
			if scaled%den != 0 {
				return 0, d.parseErr("chord length does not divide evenly")
			}
			n.Duration = scaled / den
		}
	}
	// Chord members share the first note's duration.
	for _, n := range members[1:] {
		n.Duration = first.Duration
	}
	v.prevNote = first
	return i, nil
}

// barToken classifies a run of bar characters and finalizes the measure.
func (d *decoder) barToken(line string, i int) (int, error) {
	v := d.voice()
	start := i
	for i < len(line) && (line[i] == '|' || line[i] == ':' || line[i] == ']') {
		i++
	}
	tok := line[start:i]

	right := &score.Barline{Location: score.BarlineRight}
	var left *score.Barline
	switch tok {
	case "|":
		right.BarStyle = "regular"
	case "||":
		right.BarStyle = "light-light"
	case "|]":
		right.BarStyle = "light-heavy"
	case ":|", ":|]":
		right.BarStyle = "light-heavy"
		right.Repeat = &score.Repeat{Direction: "backward"}
	case "|:":
		right.BarStyle = "regular"
		left = &score.Barline{
			Location: score.BarlineLeft,
			BarStyle: "heavy-light",
			Repeat:   &score.Repeat{Direction: "forward"},
		}
	case "::", ":|:", ":||:":
		right.BarStyle = "light-heavy"
		right.Repeat = &score.Repeat{Direction: "backward"}
		left = &score.Barline{
			Location: score.BarlineLeft,
			BarStyle: "heavy-light",
			Repeat:   &score.Repeat{Direction: "forward"},
		}
	default:
		return 0, d.parseErr("unrecognized barline %q", tok)
	}

	if v.openEnding != "" && (right.Repeat != nil || tok == "|]") {
		right.Ending = &score.Ending{Number: v.openEnding, Type: "stop"}
		v.openEnding = ""
	}

	// A bar before any music decorates the opening measure instead of
	// closing an empty one.
	if len(v.part.Measures) == 0 && !hasTimed(v.measure) {
		if left != nil {
			v.measure.Barlines = append(v.measure.Barlines, left)
		}
	} else {
		v.pendingLeftBar = left
		d.closeMeasure(v, right)
	}

	// An ending number straight after the bar starts a volta.
	if i < len(line) && line[i] >= '1' && line[i] <= '9' {
		return d.endingStart(line, i)
	}
	return i, nil
}

func hasTimed(m *score.Measure) bool {
	for _, e := range m.Entries {
		switch e.Kind() {
		case score.EntryNote, score.EntryBackup, score.EntryForward:
			return true
		}
	}
	return false
}

// endingStart reads a volta number list ("1" or "1,2") and attaches an
// ending-start barline to the current (just-opened) measure.
func (d *decoder) endingStart(line string, i int) (int, error) {
	v := d.voice()
	start := i
	for i < len(line) && ((line[i] >= '0' && line[i] <= '9') || line[i] == ',') {
		i++
	}
	number := line[start:i]
	if number == "" {
		return 0, d.parseErr("empty ending number")
	}

	var left *score.Barline
	for _, b := range v.measure.Barlines {
		if b.Location == score.BarlineLeft {
			left = b
		}
	}
	if left == nil {
		left = &score.Barline{Location: score.BarlineLeft, BarStyle: "regular"}
		v.measure.Barlines = append(v.measure.Barlines, left)
	}
	left.Ending = &score.Ending{Number: number, Type: "start"}
	v.openEnding = number
	return i, nil
}

// closeMeasure finishes the current measure and opens the next one.
func (d *decoder) closeMeasure(v *voiceState, right *score.Barline) {
	if right != nil && (right.BarStyle != "regular" || right.Repeat != nil || right.Ending != nil) {
		v.measure.Barlines = append(v.measure.Barlines, right)
	}
	v.part.Measures = append(v.part.Measures, v.measure)
	v.measure = score.NewMeasure("")
	if v.pendingLeftBar != nil {
		v.measure.Barlines = append(v.measure.Barlines, v.pendingLeftBar)
		v.pendingLeftBar = nil
	}
	v.accidentals = make(map[string]int)
}

// finish closes open measures and assigns measure numbers, marking a short
// first measure as an implicit pickup.
func (d *decoder) finish() {
	for _, v := range d.voices {
		if len(v.measure.Entries) > 0 || v.measure.Attributes != nil {
			v.part.Measures = append(v.part.Measures, v.measure)
		}
		d.numberMeasures(v.part)
	}
}

func (d *decoder) numberMeasures(p *score.Part) {
	if len(p.Measures) == 0 {
		return
	}
	first := 0
	if d.isPickup(p.Measures[0]) {
		p.Measures[0].Number = "0"
		p.Measures[0].Implicit = true
		first = 1
	}
	n := 1
	for _, m := range p.Measures[first:] {
		m.Number = strconv.Itoa(n)
		n++
	}
}

// isPickup reports whether the measure is shorter than the meter implies.
func (d *decoder) isPickup(m *score.Measure) bool {
	if d.time == nil || d.time.SenzaMisura || d.time.BeatType == 0 {
		return false
	}
	beats := 0
	for _, p := range strings.Split(d.time.Beats, "+") {
		b, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return false
		}
		beats += b
	}
	expected := beats * wholeNote / d.time.BeatType

	sum := 0
	for _, e := range m.Entries {
		if n, ok := e.(*score.Note); ok && !n.Chord && !n.Grace {
			sum += n.Duration
		}
	}
	return sum > 0 && sum < expected
}
