package score

// build.go - Constructors that assign element IDs. Parsers and edit
// operations create entries through these so that every element is
// addressable across copies.

// NewScore returns an empty score with a fresh ID.
func NewScore() *Score {
	return &Score{ID: NewID()}
}

// NewPart returns an empty part and registers it nowhere; callers append it
// to Score.Parts and add a matching score-part item to the part list.
func NewPart(id, name string) *Part {
	return &Part{ID: id, Name: name}
}

// NewMeasure returns an empty measure with the given display number.
func NewMeasure(number string) *Measure {
	return &Measure{ID: NewID(), Number: number}
}

// NewNote returns a pitched note.
func NewNote(p Pitch, duration, voice int) *Note {
	pp := p
	return &Note{ID: NewID(), Pitch: &pp, Duration: duration, Voice: voice}
}

// NewRest returns a rest of the given duration.
func NewRest(duration, voice int) *Note {
	return &Note{ID: NewID(), Rest: true, Duration: duration, Voice: voice}
}

// NewBackup returns a backup pseudo-entry.
func NewBackup(duration int) *Backup {
	return &Backup{ID: NewID(), Duration: duration}
}

// NewForward returns a forward pseudo-entry.
func NewForward(duration int) *Forward {
	return &Forward{ID: NewID(), Duration: duration}
}

// NewAttributes returns an empty attributes block.
func NewAttributes() *Attributes {
	return &Attributes{ID: NewID()}
}
