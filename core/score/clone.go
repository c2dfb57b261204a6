package score

// clone.go - Structural deep copy. Every mutating operation works on a clone
// and returns it; the input score is never touched. Clones preserve element
// IDs so that edits can address the same note across copies.

// Clone returns a deep copy of the score sharing no memory with the receiver.
func (s *Score) Clone() *Score {
	if s == nil {
		return nil
	}
	out := &Score{
		ID:    s.ID,
		Title: s.Title,
	}
	if s.Creators != nil {
		out.Creators = make([]Creator, len(s.Creators))
		copy(out.Creators, s.Creators)
	}
	if s.PartList != nil {
		out.PartList = make([]PartListItem, len(s.PartList))
		copy(out.PartList, s.PartList)
	}
	for _, p := range s.Parts {
		out.Parts = append(out.Parts, p.Clone())
	}
	if s.Attributes != nil {
		out.Attributes = make(map[string]string, len(s.Attributes))
		for k, v := range s.Attributes {
			out.Attributes[k] = v
		}
	}
	return out
}

// Clone returns a deep copy of the part.
func (p *Part) Clone() *Part {
	if p == nil {
		return nil
	}
	out := &Part{ID: p.ID, Name: p.Name}
	for _, m := range p.Measures {
		out.Measures = append(out.Measures, m.Clone())
	}
	return out
}

// Clone returns a deep copy of the measure.
func (m *Measure) Clone() *Measure {
	if m == nil {
		return nil
	}
	out := &Measure{
		ID:         m.ID,
		Number:     m.Number,
		Implicit:   m.Implicit,
		Attributes: m.Attributes.Clone(),
	}
	for _, b := range m.Barlines {
		out.Barlines = append(out.Barlines, b.Clone())
	}
	for _, e := range m.Entries {
		out.Entries = append(out.Entries, e.CloneEntry())
	}
	return out
}

// Clone returns a deep copy of the attributes block.
func (a *Attributes) Clone() *Attributes {
	if a == nil {
		return nil
	}
	out := &Attributes{
		ID:        a.ID,
		Divisions: a.Divisions,
		Staves:    a.Staves,
	}
	if a.Key != nil {
		k := *a.Key
		out.Key = &k
	}
	if a.Time != nil {
		t := *a.Time
		out.Time = &t
	}
	for _, c := range a.Clefs {
		cc := *c
		out.Clefs = append(out.Clefs, &cc)
	}
	return out
}

// Clone returns a deep copy of the barline.
func (b *Barline) Clone() *Barline {
	if b == nil {
		return nil
	}
	out := &Barline{Location: b.Location, BarStyle: b.BarStyle}
	if b.Repeat != nil {
		r := *b.Repeat
		out.Repeat = &r
	}
	if b.Ending != nil {
		e := *b.Ending
		out.Ending = &e
	}
	return out
}

// Clone returns a deep copy of the notations block.
func (n *Notations) Clone() *Notations {
	if n == nil {
		return nil
	}
	out := &Notations{Fermata: n.Fermata}
	for _, t := range n.Tied {
		tt := *t
		out.Tied = append(out.Tied, &tt)
	}
	for _, s := range n.Slurs {
		ss := *s
		out.Slurs = append(out.Slurs, &ss)
	}
	for _, t := range n.Tuplets {
		tt := *t
		out.Tuplets = append(out.Tuplets, &tt)
	}
	if n.Articulations != nil {
		out.Articulations = make([]string, len(n.Articulations))
		copy(out.Articulations, n.Articulations)
	}
	return out
}

// Clone returns a deep copy of the note.
func (n *Note) Clone() *Note {
	if n == nil {
		return nil
	}
	out := &Note{
		ID:       n.ID,
		Rest:     n.Rest,
		Duration: n.Duration,
		Voice:    n.Voice,
		Staff:    n.Staff,
		Chord:    n.Chord,
		Grace:    n.Grace,
		Type:     n.Type,
		Dots:     n.Dots,
	}
	if n.Pitch != nil {
		p := *n.Pitch
		out.Pitch = &p
	}
	if n.Unpitched != nil {
		u := *n.Unpitched
		out.Unpitched = &u
	}
	for _, t := range n.Ties {
		tt := *t
		out.Ties = append(out.Ties, &tt)
	}
	if n.TimeMod != nil {
		tm := *n.TimeMod
		out.TimeMod = &tm
	}
	for _, b := range n.Beams {
		bb := *b
		out.Beams = append(out.Beams, &bb)
	}
	out.Notations = n.Notations.Clone()
	for _, l := range n.Lyrics {
		ll := *l
		out.Lyrics = append(out.Lyrics, &ll)
	}
	return out
}

// CloneEntry implements Entry.
func (n *Note) CloneEntry() Entry { return n.Clone() }

// CloneEntry implements Entry.
func (b *Backup) CloneEntry() Entry {
	bb := *b
	return &bb
}

// CloneEntry implements Entry.
func (f *Forward) CloneEntry() Entry {
	ff := *f
	return &ff
}

// CloneEntry implements Entry.
func (d *Direction) CloneEntry() Entry {
	out := &Direction{
		ID:        d.ID,
		Placement: d.Placement,
		Voice:     d.Voice,
		Staff:     d.Staff,
	}
	if d.Types != nil {
		out.Types = make([]DirectionType, len(d.Types))
		copy(out.Types, d.Types)
	}
	if d.Sound != nil {
		s := *d.Sound
		out.Sound = &s
	}
	return out
}

// CloneEntry implements Entry.
func (a *AttributesEntry) CloneEntry() Entry {
	return &AttributesEntry{ID: a.ID, Attributes: a.Attributes.Clone()}
}

// CloneEntry implements Entry.
func (h *Harmony) CloneEntry() Entry {
	out := &Harmony{
		ID:    h.ID,
		Root:  h.Root,
		HKind: h.HKind,
	}
	if h.Bass != nil {
		b := *h.Bass
		out.Bass = &b
	}
	if h.Degrees != nil {
		out.Degrees = make([]HarmonyDegree, len(h.Degrees))
		copy(out.Degrees, h.Degrees)
	}
	return out
}

// CloneEntry implements Entry.
func (s *Sound) CloneEntry() Entry {
	ss := *s
	return &ss
}
