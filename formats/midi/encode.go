// Package midi exports scores as Standard MIDI Files. Export is one way:
// notation detail (voices, beams, spellings) does not survive a MIDI round
// trip, so there is no decoder.
package midi

import (
	"bytes"
	"io"
	"sort"
	"strconv"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/scorekit/scorekit/core/errors"
	"github.com/scorekit/scorekit/core/pitch"
	"github.com/scorekit/scorekit/core/score"
)

// ticksPerQuarter is the SMF timing resolution. 480 is divisible by the
// duration grids the decoders emit.
const ticksPerQuarter = 480

// defaultVelocity is used when the score states no dynamics.
const defaultVelocity = 80

// Encode writes a Score as a format-1 SMF: a conductor track carrying tempo
// and meter, then one track per part.
func Encode(w io.Writer, s *score.Score) error {
	if len(s.Parts) == 0 {
		return errors.NewValidation("parts", "score has no parts to export")
	}

	out := smf.New()
	out.TimeFormat = smf.MetricTicks(ticksPerQuarter)

	conductor, err := conductorTrack(s)
	if err != nil {
		return err
	}
	if err := out.Add(conductor); err != nil {
		return errors.Wrap(err, "adding conductor track")
	}

	for i, p := range s.Parts {
		tr, err := partTrack(p, uint8(i%16))
		if err != nil {
			return errors.Wrapf(err, "part %s", p.ID)
		}
		if err := out.Add(tr); err != nil {
			return errors.Wrapf(err, "adding track for part %s", p.ID)
		}
	}

	_, err = out.WriteTo(w)
	return err
}

// EncodeBytes serializes a Score to SMF bytes.
func EncodeBytes(s *score.Score) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// event is one timed message before delta encoding. Order breaks ties at
// the same tick: note-offs sort before note-ons so repeated pitches do not
// cancel each other.
type event struct {
	tick  int64
	order int
	msg   smf.Message
}

const (
	orderMeta = iota
	orderNoteOff
	orderNoteOn
)

func toTrack(name string, events []event) smf.Track {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].tick != events[j].tick {
			return events[i].tick < events[j].tick
		}
		return events[i].order < events[j].order
	})

	var tr smf.Track
	tr.Add(0, smf.MetaTrackSequenceName(name))
	var at int64
	for _, e := range events {
		tr.Add(uint32(e.tick-at), e.msg)
		at = e.tick
	}
	tr.Close(0)
	return tr
}

// conductorTrack collects tempo and meter changes, timed against part 0.
func conductorTrack(s *score.Score) (smf.Track, error) {
	name := s.Title
	if name == "" {
		name = "conductor"
	}

	var events []event
	w := newWalker()
	for _, m := range s.Parts[0].Measures {
		w.startMeasure(m)
		if m.Attributes != nil && m.Attributes.Time != nil {
			if e, ok := meterEvent(w.measureStart, m.Attributes.Time); ok {
				events = append(events, e)
			}
		}
		for _, entry := range m.Entries {
			tick := w.measureStart + w.offset
			switch v := entry.(type) {
			case *score.AttributesEntry:
				w.applyAttributes(v.Attributes)
				if v.Attributes != nil && v.Attributes.Time != nil {
					if e, ok := meterEvent(tick, v.Attributes.Time); ok {
						events = append(events, e)
					}
				}
			case *score.Sound:
				if v.Tempo > 0 {
					events = append(events, event{tick, orderMeta, smf.MetaTempo(v.Tempo)})
				}
			case *score.Direction:
				if v.Sound != nil && v.Sound.Tempo > 0 {
					events = append(events, event{tick, orderMeta, smf.MetaTempo(v.Sound.Tempo)})
				}
			default:
				if err := w.advance(entry); err != nil {
					return nil, err
				}
			}
		}
		w.endMeasure(m)
	}
	return toTrack(name, events), nil
}

// partTrack converts one part's timeline into note events.
func partTrack(p *score.Part, channel uint8) (smf.Track, error) {
	name := p.Name
	if name == "" {
		name = p.ID
	}

	type span struct {
		start, end int64
		key        uint8
		velocity   uint8
	}
	var spans []*span
	open := make(map[uint8]*span) // tied notes awaiting their stop

	velocity := uint8(defaultVelocity)
	w := newWalker()
	var prevStart int64

	for _, m := range p.Measures {
		w.startMeasure(m)
		for _, entry := range m.Entries {
			switch v := entry.(type) {
			case *score.Note:
				start := w.measureStart + w.offset
				if v.Chord {
					start = prevStart
				}
				durTicks := w.ticks(v.Duration)
				if !v.Chord && !v.Grace {
					prevStart = start
				}

				if key, ok := noteKey(v); ok && !v.Grace && v.Duration > 0 {
					tiedFrom, isTiedTo := open[key], v.TieOf(score.Stop) != nil
					switch {
					case isTiedTo && tiedFrom != nil:
						tiedFrom.end = start + durTicks
						if v.TieOf(score.Start) == nil {
							delete(open, key)
						}
					default:
						sp := &span{start: start, end: start + durTicks, key: key, velocity: velocity}
						spans = append(spans, sp)
						if v.TieOf(score.Start) != nil {
							open[key] = sp
						}
					}
				}
				if err := w.advance(entry); err != nil {
					return nil, err
				}
			case *score.Sound:
				if v.Dynamics > 0 {
					velocity = dynamicsVelocity(v.Dynamics)
				}
			case *score.Direction:
				if v.Sound != nil && v.Sound.Dynamics > 0 {
					velocity = dynamicsVelocity(v.Sound.Dynamics)
				}
			case *score.AttributesEntry:
				w.applyAttributes(v.Attributes)
			default:
				if err := w.advance(entry); err != nil {
					return nil, err
				}
			}
		}
		w.endMeasure(m)
	}

	var events []event
	for _, sp := range spans {
		events = append(events, event{sp.start, orderNoteOn, smf.Message(midi.NoteOn(channel, sp.key, sp.velocity))})
		events = append(events, event{sp.end, orderNoteOff, smf.Message(midi.NoteOff(channel, sp.key))})
	}
	return toTrack(name, events), nil
}

// noteKey maps a note to its MIDI key number. The pitch package puts C4 at
// 48; MIDI puts it at 60.
func noteKey(n *score.Note) (uint8, bool) {
	p := n.Pitch
	if p == nil {
		if n.Unpitched == nil || n.Unpitched.DisplayStep == "" {
			return 0, false
		}
		p = &score.Pitch{Step: n.Unpitched.DisplayStep, Octave: n.Unpitched.DisplayOctave}
	}
	key := pitch.Semitone(p) + 12
	if key < 0 || key > 127 {
		return 0, false
	}
	return uint8(key), true
}

func dynamicsVelocity(dynamics float64) uint8 {
	// MusicXML dynamics are a percentage of forte (velocity 90).
	v := int(90*dynamics/100 + 0.5)
	if v < 1 {
		v = 1
	}
	if v > 127 {
		v = 127
	}
	return uint8(v)
}

func meterEvent(tick int64, t *score.TimeSignature) (event, bool) {
	if t.SenzaMisura || t.BeatType <= 0 {
		return event{}, false
	}
	beats := 0
	for _, part := range strings.Split(t.Beats, "+") {
		b, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return event{}, false
		}
		beats += b
	}
	if beats <= 0 || beats > 255 {
		return event{}, false
	}
	return event{tick, orderMeta, smf.MetaMeter(uint8(beats), uint8(t.BeatType))}, true
}

// walker tracks the time cursor through a part: divisions in force, the
// measure's start tick, and the offset within the measure.
type walker struct {
	divisions    int
	measureStart int64
	offset       int64
	maxOffset    int64
}

func newWalker() *walker {
	return &walker{divisions: 1}
}

func (w *walker) startMeasure(m *score.Measure) {
	w.offset = 0
	w.maxOffset = 0
	if m.Attributes != nil {
		w.applyAttributes(m.Attributes)
	}
}

func (w *walker) applyAttributes(a *score.Attributes) {
	if a != nil && a.Divisions > 0 {
		w.divisions = a.Divisions
	}
}

func (w *walker) ticks(duration int) int64 {
	return int64(duration) * ticksPerQuarter / int64(w.divisions)
}

// advance moves the cursor past a timed entry.
func (w *walker) advance(entry score.Entry) error {
	switch v := entry.(type) {
	case *score.Note:
		if !v.Chord && !v.Grace {
			w.offset += w.ticks(v.Duration)
		}
	case *score.Backup:
		w.offset -= w.ticks(v.Duration)
		if w.offset < 0 {
			return errors.NewValidation("backup", "backup rewinds past the start of the measure")
		}
	case *score.Forward:
		w.offset += w.ticks(v.Duration)
	}
	if w.offset > w.maxOffset {
		w.maxOffset = w.offset
	}
	return nil
}

func (w *walker) endMeasure(*score.Measure) {
	w.measureStart += w.maxOffset
}
