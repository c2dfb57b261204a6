package score

// entries.go - The timed-entry union. A measure's Entries slice interleaves
// notes with the pseudo-entries (backup, forward) that move the time cursor,
// plus non-sounding payloads (directions, mid-measure attributes, harmony,
// standalone sound directives).

// EntryKind identifies a concrete entry type.
type EntryKind string

// Entry kinds.
const (
	EntryNote       EntryKind = "note"
	EntryBackup     EntryKind = "backup"
	EntryForward    EntryKind = "forward"
	EntryDirection  EntryKind = "direction"
	EntryAttributes EntryKind = "attributes"
	EntryHarmony    EntryKind = "harmony"
	EntrySound      EntryKind = "sound"
)

// Entry is one element of a measure's timed sequence.
type Entry interface {
	// Kind identifies the concrete type without a type switch.
	Kind() EntryKind

	// EntryID returns the element's random identifier.
	EntryID() string

	// CloneEntry returns a deep copy sharing no memory with the receiver.
	CloneEntry() Entry
}

// Step is a natural note name, A through G.
type Step string

// Natural steps.
const (
	StepA Step = "A"
	StepB Step = "B"
	StepC Step = "C"
	StepD Step = "D"
	StepE Step = "E"
	StepF Step = "F"
	StepG Step = "G"
)

// validSteps is the set of valid steps.
var validSteps = map[Step]bool{
	StepA: true, StepB: true, StepC: true, StepD: true,
	StepE: true, StepF: true, StepG: true,
}

// IsValid returns true if the step is one of A-G.
func (s Step) IsValid() bool {
	return validSteps[s]
}

// Pitch is a notated pitch: step, octave, and a signed semitone alteration.
// A zero Alter means natural; the conventional range is -2 (double flat)
// through +2 (double sharp).
type Pitch struct {
	Step   Step `json:"step"`
	Alter  int  `json:"alter,omitempty"`
	Octave int  `json:"octave"`
}

// Equal reports whether two pitches agree in step, alteration, and octave.
func (p *Pitch) Equal(o *Pitch) bool {
	if p == nil || o == nil {
		return p == o
	}
	return p.Step == o.Step && p.Alter == o.Alter && p.Octave == o.Octave
}

// Unpitched marks a percussion note with a display position instead of a pitch.
type Unpitched struct {
	DisplayStep   Step `json:"display_step,omitempty"`
	DisplayOctave int  `json:"display_octave,omitempty"`
}

// TimeModification is the tuplet ratio: ActualNotes sound in the written
// time of NormalNotes (3/2 for a triplet).
type TimeModification struct {
	ActualNotes int `json:"actual_notes"`
	NormalNotes int `json:"normal_notes"`
}

// Tie is a playback tie marker on a note.
type Tie struct {
	Type StartStop `json:"type"`
}

// BeamValue is the state of one beam level at a note.
type BeamValue string

// Beam values.
const (
	BeamBegin        BeamValue = "begin"
	BeamContinue     BeamValue = "continue"
	BeamEnd          BeamValue = "end"
	BeamForwardHook  BeamValue = "forward hook"
	BeamBackwardHook BeamValue = "backward hook"
)

// Beam is one beam level (number 1 = eighth, 2 = sixteenth, ...) at a note.
type Beam struct {
	Number int       `json:"number"`
	Value  BeamValue `json:"value"`
}

// SlurType is the state of a slur at a note.
type SlurType string

// Slur states.
const (
	SlurStart    SlurType = "start"
	SlurStop     SlurType = "stop"
	SlurContinue SlurType = "continue"
)

// Slur is a slur marker; Number distinguishes overlapping slurs.
type Slur struct {
	Number int      `json:"number"`
	Type   SlurType `json:"type"`
}

// Tuplet is a tuplet bracket marker; Number pairs start with stop.
type Tuplet struct {
	Number int       `json:"number"`
	Type   StartStop `json:"type"`
}

// Tied is the notational counterpart of Tie (the drawn curve).
type Tied struct {
	Type StartStop `json:"type"`
}

// Notations carries the notation attachments of a note.
type Notations struct {
	Tied          []*Tied   `json:"tied,omitempty"`
	Slurs         []*Slur   `json:"slurs,omitempty"`
	Tuplets       []*Tuplet `json:"tuplets,omitempty"`
	Articulations []string  `json:"articulations,omitempty"`
	Fermata       bool      `json:"fermata,omitempty"`
}

// Lyric is one syllable of one lyric line.
type Lyric struct {
	// Number is the 1-based lyric line.
	Number int `json:"number,omitempty"`

	// Syllabic is single, begin, middle, or end.
	Syllabic string `json:"syllabic,omitempty"`

	Text string `json:"text"`
}

// Note is a sounding event: a pitched note, an unpitched note, or a rest.
// Duration is in the measure's division units; chord notes repeat the
// duration of the note they attach to and do not advance the cursor.
type Note struct {
	ID string `json:"id"`

	// Exactly one of Pitch, Unpitched, Rest describes what sounds.
	Pitch     *Pitch     `json:"pitch,omitempty"`
	Unpitched *Unpitched `json:"unpitched,omitempty"`
	Rest      bool       `json:"rest,omitempty"`

	// Duration in division units. Grace notes carry zero.
	Duration int `json:"duration"`

	// Voice is the 1-based voice number.
	Voice int `json:"voice,omitempty"`

	// Staff is the 1-based staff number; 0 means staff 1.
	Staff int `json:"staff,omitempty"`

	// Chord marks this note simultaneous with the preceding note.
	Chord bool `json:"chord,omitempty"`

	// Grace marks a grace note.
	Grace bool `json:"grace,omitempty"`

	// Type is the written note value ("quarter", "eighth", ...).
	Type string `json:"type,omitempty"`

	// Dots is the augmentation dot count.
	Dots int `json:"dots,omitempty"`

	Ties      []*Tie            `json:"ties,omitempty"`
	TimeMod   *TimeModification `json:"time_modification,omitempty"`
	Beams     []*Beam           `json:"beams,omitempty"`
	Notations *Notations        `json:"notations,omitempty"`
	Lyrics    []*Lyric          `json:"lyrics,omitempty"`
}

// Kind implements Entry.
func (n *Note) Kind() EntryKind { return EntryNote }

// EntryID implements Entry.
func (n *Note) EntryID() string { return n.ID }

// IsRest reports whether the note is a rest.
func (n *Note) IsRest() bool { return n.Rest }

// TieOf returns the tie of the given type, or nil.
func (n *Note) TieOf(t StartStop) *Tie {
	for _, tie := range n.Ties {
		if tie.Type == t {
			return tie
		}
	}
	return nil
}

// EffectiveStaff returns the staff number, defaulting to 1.
func (n *Note) EffectiveStaff() int {
	if n.Staff == 0 {
		return 1
	}
	return n.Staff
}

// EffectiveVoice returns the voice number, defaulting to 1.
func (n *Note) EffectiveVoice() int {
	if n.Voice == 0 {
		return 1
	}
	return n.Voice
}

// Backup rewinds the measure's time cursor by Duration division units.
type Backup struct {
	ID       string `json:"id"`
	Duration int    `json:"duration"`
}

// Kind implements Entry.
func (b *Backup) Kind() EntryKind { return EntryBackup }

// EntryID implements Entry.
func (b *Backup) EntryID() string { return b.ID }

// Forward advances the measure's time cursor by Duration division units
// without sounding anything.
type Forward struct {
	ID       string `json:"id"`
	Duration int    `json:"duration"`
	Voice    int    `json:"voice,omitempty"`
	Staff    int    `json:"staff,omitempty"`
}

// Kind implements Entry.
func (f *Forward) Kind() EntryKind { return EntryForward }

// EntryID implements Entry.
func (f *Forward) EntryID() string { return f.ID }

// DirectionKind identifies a direction-type payload.
type DirectionKind string

// Direction-type payload kinds.
const (
	DirWords       DirectionKind = "words"
	DirDynamics    DirectionKind = "dynamics"
	DirWedge       DirectionKind = "wedge"
	DirMetronome   DirectionKind = "metronome"
	DirPedal       DirectionKind = "pedal"
	DirOctaveShift DirectionKind = "octave-shift"
	DirSegno       DirectionKind = "segno"
	DirCoda        DirectionKind = "coda"
	DirRehearsal   DirectionKind = "rehearsal"
)

// DirectionType is one typed payload inside a Direction.
type DirectionType struct {
	Kind DirectionKind `json:"kind"`

	// Words and Rehearsal text, or the dynamics mark ("mf", "p").
	Text string `json:"text,omitempty"`

	// WedgeType is crescendo, diminuendo, or stop.
	WedgeType string `json:"wedge_type,omitempty"`

	// Metronome fields.
	BeatUnit  string `json:"beat_unit,omitempty"`
	PerMinute int    `json:"per_minute,omitempty"`

	// PedalType is start, stop, or change.
	PedalType string `json:"pedal_type,omitempty"`

	// Octave-shift fields; Size is 8 or 15.
	ShiftType string `json:"shift_type,omitempty"`
	ShiftSize int    `json:"shift_size,omitempty"`
}

// Direction is an expressive or performance marking holding one or more
// typed payloads plus optional playback hints.
type Direction struct {
	ID        string          `json:"id"`
	Placement string          `json:"placement,omitempty"`
	Types     []DirectionType `json:"types"`
	Voice     int             `json:"voice,omitempty"`
	Staff     int             `json:"staff,omitempty"`
	Sound     *Sound          `json:"sound,omitempty"`
}

// Kind implements Entry.
func (d *Direction) Kind() EntryKind { return EntryDirection }

// EntryID implements Entry.
func (d *Direction) EntryID() string { return d.ID }

// AttributesEntry is a mid-measure attributes change.
type AttributesEntry struct {
	ID         string      `json:"id"`
	Attributes *Attributes `json:"attributes"`
}

// Kind implements Entry.
func (a *AttributesEntry) Kind() EntryKind { return EntryAttributes }

// EntryID implements Entry.
func (a *AttributesEntry) EntryID() string { return a.ID }

// HarmonyDegree is one degree alteration of a chord symbol.
type HarmonyDegree struct {
	Value int `json:"value"`
	Alter int `json:"alter,omitempty"`

	// Type is add, alter, or subtract.
	Type string `json:"type"`
}

// HarmonyRoot is the root or bass of a chord symbol.
type HarmonyRoot struct {
	Step  Step `json:"step"`
	Alter int  `json:"alter,omitempty"`
}

// Harmony is a chord symbol.
type Harmony struct {
	ID      string          `json:"id"`
	Root    HarmonyRoot     `json:"root"`
	HKind   string          `json:"harmony_kind"`
	Bass    *HarmonyRoot    `json:"bass,omitempty"`
	Degrees []HarmonyDegree `json:"degrees,omitempty"`
}

// Kind implements Entry.
func (h *Harmony) Kind() EntryKind { return EntryHarmony }

// EntryID implements Entry.
func (h *Harmony) EntryID() string { return h.ID }

// Sound is a playback directive, standalone or attached to a direction.
type Sound struct {
	ID       string  `json:"id,omitempty"`
	Tempo    float64 `json:"tempo,omitempty"`
	Dynamics float64 `json:"dynamics,omitempty"`
	DaCapo   bool    `json:"dacapo,omitempty"`
	DalSegno string  `json:"dalsegno,omitempty"`
	Segno    string  `json:"segno,omitempty"`
	Coda     string  `json:"coda,omitempty"`
	ToCoda   string  `json:"tocoda,omitempty"`
	Fine     bool    `json:"fine,omitempty"`
}

// Kind implements Entry.
func (s *Sound) Kind() EntryKind { return EntrySound }

// EntryID implements Entry.
func (s *Sound) EntryID() string { return s.ID }
