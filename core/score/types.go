package score

// types.go - Consolidated score document schema.
// This file contains the structural types of the score model: the Score root,
// parts, measures, and the descriptors (key, time, clef, barline) that measures
// carry. Timed entries live in entries.go. All format handlers should import
// these types from core/score rather than defining their own.

// Score is the root entity of a notation document. It owns its parts
// exclusively; nothing outside a Score holds references into its tree.
type Score struct {
	// ID is a process-unique random identifier, assigned at creation.
	ID string `json:"id"`

	// Title is the work title, if known.
	Title string `json:"title,omitempty"`

	// Creators lists composers, lyricists, arrangers.
	Creators []Creator `json:"creators,omitempty"`

	// PartList describes display order and grouping of parts. Every
	// Part.ID must appear exactly once as a score-part item, and vice
	// versa; the validator checks this, the type does not enforce it.
	PartList []PartListItem `json:"part_list,omitempty"`

	// Parts are the performance parts in score order.
	Parts []*Part `json:"parts,omitempty"`

	// Attributes contains additional metadata as key-value pairs.
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Creator is a named contributor with a role.
type Creator struct {
	// Type is the contributor role (e.g., "composer", "lyricist").
	Type string `json:"type,omitempty"`

	// Name is the contributor name.
	Name string `json:"name"`
}

// PartListKind distinguishes part-list items.
type PartListKind string

// Part-list item kinds.
const (
	PartListScorePart PartListKind = "score-part"
	PartListPartGroup PartListKind = "part-group"
)

// StartStop marks the two ends of a paired bracket.
type StartStop string

// Bracket end constants.
const (
	Start StartStop = "start"
	Stop  StartStop = "stop"
)

// PartListItem is one entry of the score's part list: either a score-part
// declaring a part, or a part-group bracket around a run of score-parts.
type PartListItem struct {
	// Kind selects which of the field groups below is meaningful.
	Kind PartListKind `json:"kind"`

	// PartID references Part.ID (score-part only).
	PartID string `json:"part_id,omitempty"`

	// PartName is the display name (score-part only).
	PartName string `json:"part_name,omitempty"`

	// PartAbbreviation is the short display name (score-part only).
	PartAbbreviation string `json:"part_abbreviation,omitempty"`

	// GroupNumber pairs a group start with its stop (part-group only).
	GroupNumber string `json:"group_number,omitempty"`

	// GroupType is start or stop (part-group only).
	GroupType StartStop `json:"group_type,omitempty"`

	// GroupSymbol is the bracket style, e.g. "brace" (part-group only).
	GroupSymbol string `json:"group_symbol,omitempty"`

	// GroupName is the group display name (part-group only).
	GroupName string `json:"group_name,omitempty"`
}

// Part is one performance part: an identity plus its measures in order.
type Part struct {
	// ID is the part identifier referenced from the part list.
	ID string `json:"id"`

	// Name is the part name, duplicated from the part list for convenience.
	Name string `json:"name,omitempty"`

	// Measures are the part's measures in timeline order.
	Measures []*Measure `json:"measures,omitempty"`
}

// Measure is one measure of one part. Number is a display string: it is not
// required to be numeric or unique, and pickup measures commonly repeat or
// skip numbers.
type Measure struct {
	// ID is a process-unique random identifier, assigned at creation.
	ID string `json:"id"`

	// Number is the display number.
	Number string `json:"number"`

	// Implicit marks measures excluded from numbering (pickup measures).
	Implicit bool `json:"implicit,omitempty"`

	// Attributes holds the measure-leading attributes block, if present.
	// Mid-measure changes appear as Attributes entries in Entries.
	Attributes *Attributes `json:"attributes,omitempty"`

	// Barlines holds explicit left/right barlines, if any.
	Barlines []*Barline `json:"barlines,omitempty"`

	// Entries is the ordered sequence of timed entries.
	Entries []Entry `json:"entries,omitempty"`
}

// Attributes describes the measure context that persists forward until
// overridden: timing resolution, key, meter, staff layout, and clefs.
// A zero Divisions or Staves means "not stated here".
type Attributes struct {
	// ID is a process-unique random identifier, assigned at creation.
	ID string `json:"id"`

	// Divisions is the number of duration units per quarter note.
	Divisions int `json:"divisions,omitempty"`

	// Key is the key signature, if stated.
	Key *KeySignature `json:"key,omitempty"`

	// Time is the time signature, if stated.
	Time *TimeSignature `json:"time,omitempty"`

	// Staves is the declared staff count for the part, if stated.
	Staves int `json:"staves,omitempty"`

	// Clefs are the clefs per staff, if stated.
	Clefs []*Clef `json:"clefs,omitempty"`
}

// Mode is the mode of a key signature.
type Mode string

// Key signature modes.
const (
	ModeMajor Mode = "major"
	ModeMinor Mode = "minor"
	ModeNone  Mode = ""
)

// KeySignature is a signed fifths count plus an optional mode. Positive
// fifths are sharps, negative are flats.
type KeySignature struct {
	Fifths int  `json:"fifths"`
	Mode   Mode `json:"mode,omitempty"`
}

// TimeSignature is a meter. Beats is kept as a string because complex
// meters write additive numerators like "3+2". SenzaMisura exempts the
// measure from duration checking.
type TimeSignature struct {
	Beats       string `json:"beats,omitempty"`
	BeatType    int    `json:"beat_type,omitempty"`
	SenzaMisura bool   `json:"senza_misura,omitempty"`
}

// Clef positions a clef sign on a staff. Number is the 1-based staff the
// clef applies to; 0 means staff 1 of a single-staff part.
type Clef struct {
	Sign         string `json:"sign"`
	Line         int    `json:"line,omitempty"`
	OctaveChange int    `json:"octave_change,omitempty"`
	Number       int    `json:"number,omitempty"`
}

// BarlineLocation places a barline at an edge of its measure.
type BarlineLocation string

// Barline locations.
const (
	BarlineLeft  BarlineLocation = "left"
	BarlineRight BarlineLocation = "right"
)

// Barline is an explicit barline with optional repeat and volta markings.
type Barline struct {
	Location BarlineLocation `json:"location"`
	BarStyle string          `json:"bar_style,omitempty"`
	Repeat   *Repeat         `json:"repeat,omitempty"`
	Ending   *Ending         `json:"ending,omitempty"`
}

// Repeat is a repeat sign attached to a barline.
type Repeat struct {
	// Direction is "forward" or "backward".
	Direction string `json:"direction"`

	// Times is the play count for backward repeats; 0 means default.
	Times int `json:"times,omitempty"`
}

// Ending is a volta bracket attached to a barline.
type Ending struct {
	// Number lists the pass numbers, e.g. "1" or "1,2".
	Number string `json:"number"`

	// Type is start, stop, or discontinue.
	Type string `json:"type"`
}

// Part returns the part with the given ID, or nil.
func (s *Score) Part(id string) *Part {
	for _, p := range s.Parts {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// PartIndex returns the index of the part with the given ID, or -1.
func (s *Score) PartIndex(id string) int {
	for i, p := range s.Parts {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// ScorePartIDs returns the part IDs declared in the part list, in order.
func (s *Score) ScorePartIDs() []string {
	var ids []string
	for _, item := range s.PartList {
		if item.Kind == PartListScorePart {
			ids = append(ids, item.PartID)
		}
	}
	return ids
}

// DefaultAlter returns the alteration the key signature assigns to a step:
// +1 for sharped steps, -1 for flatted steps, 0 otherwise.
func (k *KeySignature) DefaultAlter(step Step) int {
	if k == nil {
		return 0
	}
	// Order in which sharps and flats accumulate on the staff.
	sharps := []Step{StepF, StepC, StepG, StepD, StepA, StepE, StepB}
	flats := []Step{StepB, StepE, StepA, StepD, StepG, StepC, StepF}

	n := k.Fifths
	if n > 0 {
		if n > 7 {
			n = 7
		}
		for _, s := range sharps[:n] {
			if s == step {
				return 1
			}
		}
	} else if n < 0 {
		if n < -7 {
			n = -7
		}
		for _, s := range flats[:-n] {
			if s == step {
				return -1
			}
		}
	}
	return 0
}
