package musicxml

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/scorekit/scorekit/core/encoding"
	"github.com/scorekit/scorekit/core/score"
)

const (
	xmlHeader = `<?xml version="1.0" encoding="UTF-8"?>` + "\n" +
		`<!DOCTYPE score-partwise PUBLIC "-//Recordare//DTD MusicXML 4.0 Partwise//EN" "http://www.musicxml.org/dtds/partwise.dtd">` + "\n"
	indentUnit = "  "
)

// Encode writes a Score as a MusicXML score-partwise document.
func Encode(w io.Writer, s *score.Score) error {
	data, err := EncodeBytes(s)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// EncodeBytes serializes a Score to MusicXML text.
func EncodeBytes(s *score.Score) ([]byte, error) {
	e := &encoder{}
	e.buf.WriteString(xmlHeader)
	e.open("score-partwise", attr{"version", "4.0"})
	if s.Title != "" {
		e.open("work")
		e.text("work-title", s.Title)
		e.close("work")
	}
	if len(s.Creators) > 0 {
		e.open("identification")
		for _, c := range s.Creators {
			e.textAttrs("creator", c.Name, attr{"type", c.Type})
		}
		e.close("identification")
	}
	e.encodePartList(s)
	for _, p := range s.Parts {
		e.open("part", attr{"id", p.ID})
		for _, m := range p.Measures {
			e.encodeMeasure(m)
		}
		e.close("part")
	}
	e.close("score-partwise")
	return e.buf.Bytes(), nil
}

// attr is one attribute of an emitted element. Empty values are skipped.
type attr struct {
	name  string
	value string
}

type encoder struct {
	buf   bytes.Buffer
	depth int
}

func (e *encoder) indent() {
	for i := 0; i < e.depth; i++ {
		e.buf.WriteString(indentUnit)
	}
}

func (e *encoder) openTag(name string, selfClose bool, attrs ...attr) {
	e.indent()
	e.buf.WriteByte('<')
	e.buf.WriteString(name)
	for _, a := range attrs {
		if a.value == "" {
			continue
		}
		fmt.Fprintf(&e.buf, ` %s="%s"`, a.name, encoding.EscapeXMLAttr(a.value))
	}
	if selfClose {
		e.buf.WriteString("/>\n")
		return
	}
	e.buf.WriteString(">\n")
	e.depth++
}

func (e *encoder) open(name string, attrs ...attr) {
	e.openTag(name, false, attrs...)
}

func (e *encoder) close(name string) {
	e.depth--
	e.indent()
	fmt.Fprintf(&e.buf, "</%s>\n", name)
}

// empty emits a self-closing element.
func (e *encoder) empty(name string, attrs ...attr) {
	e.openTag(name, true, attrs...)
}

// text emits <name>value</name> on one line.
func (e *encoder) text(name, value string) {
	e.textAttrs(name, value)
}

func (e *encoder) textAttrs(name, value string, attrs ...attr) {
	e.indent()
	e.buf.WriteByte('<')
	e.buf.WriteString(name)
	for _, a := range attrs {
		if a.value == "" {
			continue
		}
		fmt.Fprintf(&e.buf, ` %s="%s"`, a.name, encoding.EscapeXMLAttr(a.value))
	}
	fmt.Fprintf(&e.buf, ">%s</%s>\n", encoding.EscapeXMLText(value), name)
}

func (e *encoder) intText(name string, v int) {
	e.text(name, strconv.Itoa(v))
}

func (e *encoder) encodePartList(s *score.Score) {
	e.open("part-list")
	for _, item := range s.PartList {
		switch item.Kind {
		case score.PartListScorePart:
			e.open("score-part", attr{"id", item.PartID})
			e.text("part-name", item.PartName)
			if item.PartAbbreviation != "" {
				e.text("part-abbreviation", item.PartAbbreviation)
			}
			e.close("score-part")
		case score.PartListPartGroup:
			e.open("part-group", attr{"type", string(item.GroupType)}, attr{"number", item.GroupNumber})
			if item.GroupName != "" {
				e.text("group-name", item.GroupName)
			}
			if item.GroupSymbol != "" {
				e.text("group-symbol", item.GroupSymbol)
			}
			e.close("part-group")
		}
	}
	e.close("part-list")
}

func (e *encoder) encodeMeasure(m *score.Measure) {
	implicit := ""
	if m.Implicit {
		implicit = "yes"
	}
	e.open("measure", attr{"number", m.Number}, attr{"implicit", implicit})
	for _, b := range m.Barlines {
		if b.Location == score.BarlineLeft {
			e.encodeBarline(b)
		}
	}
	if m.Attributes != nil {
		e.encodeAttributes(m.Attributes)
	}
	for _, entry := range m.Entries {
		e.encodeEntry(entry)
	}
	for _, b := range m.Barlines {
		if b.Location != score.BarlineLeft {
			e.encodeBarline(b)
		}
	}
	e.close("measure")
}

func (e *encoder) encodeEntry(entry score.Entry) {
	switch v := entry.(type) {
	case *score.Note:
		e.encodeNote(v)
	case *score.Backup:
		e.open("backup")
		e.intText("duration", v.Duration)
		e.close("backup")
	case *score.Forward:
		e.open("forward")
		e.intText("duration", v.Duration)
		if v.Voice != 0 {
			e.intText("voice", v.Voice)
		}
		if v.Staff != 0 {
			e.intText("staff", v.Staff)
		}
		e.close("forward")
	case *score.Direction:
		e.encodeDirection(v)
	case *score.AttributesEntry:
		if v.Attributes != nil {
			e.encodeAttributes(v.Attributes)
		}
	case *score.Harmony:
		e.encodeHarmony(v)
	case *score.Sound:
		e.encodeSound(v)
	}
}

func (e *encoder) encodeAttributes(a *score.Attributes) {
	e.open("attributes")
	if a.Divisions != 0 {
		e.intText("divisions", a.Divisions)
	}
	if a.Key != nil {
		e.open("key")
		e.intText("fifths", a.Key.Fifths)
		if a.Key.Mode != score.ModeNone {
			e.text("mode", string(a.Key.Mode))
		}
		e.close("key")
	}
	if a.Time != nil {
		if a.Time.SenzaMisura {
			e.open("time")
			e.empty("senza-misura")
			e.close("time")
		} else {
			e.open("time")
			e.text("beats", a.Time.Beats)
			e.intText("beat-type", a.Time.BeatType)
			e.close("time")
		}
	}
	if a.Staves != 0 {
		e.intText("staves", a.Staves)
	}
	for _, c := range a.Clefs {
		num := ""
		if c.Number != 0 {
			num = strconv.Itoa(c.Number)
		}
		e.open("clef", attr{"number", num})
		e.text("sign", c.Sign)
		if c.Line != 0 {
			e.intText("line", c.Line)
		}
		if c.OctaveChange != 0 {
			e.intText("clef-octave-change", c.OctaveChange)
		}
		e.close("clef")
	}
	e.close("attributes")
}

func (e *encoder) encodeNote(n *score.Note) {
	e.open("note")
	if n.Grace {
		e.empty("grace")
	}
	if n.Chord {
		e.empty("chord")
	}
	switch {
	case n.Pitch != nil:
		e.open("pitch")
		e.text("step", string(n.Pitch.Step))
		if n.Pitch.Alter != 0 {
			e.intText("alter", n.Pitch.Alter)
		}
		e.intText("octave", n.Pitch.Octave)
		e.close("pitch")
	case n.Unpitched != nil:
		e.open("unpitched")
		if n.Unpitched.DisplayStep != "" {
			e.text("display-step", string(n.Unpitched.DisplayStep))
			e.intText("display-octave", n.Unpitched.DisplayOctave)
		}
		e.close("unpitched")
	case n.Rest:
		e.empty("rest")
	}
	if !n.Grace {
		e.intText("duration", n.Duration)
	}
	for _, t := range n.Ties {
		e.empty("tie", attr{"type", string(t.Type)})
	}
	if n.Voice != 0 {
		e.intText("voice", n.Voice)
	}
	if n.Type != "" {
		e.text("type", n.Type)
	}
	for i := 0; i < n.Dots; i++ {
		e.empty("dot")
	}
	if n.TimeMod != nil {
		e.open("time-modification")
		e.intText("actual-notes", n.TimeMod.ActualNotes)
		e.intText("normal-notes", n.TimeMod.NormalNotes)
		e.close("time-modification")
	}
	if n.Staff != 0 {
		e.intText("staff", n.Staff)
	}
	for _, b := range n.Beams {
		e.textAttrs("beam", string(b.Value), attr{"number", strconv.Itoa(b.Number)})
	}
	if n.Notations != nil {
		e.encodeNotations(n.Notations)
	}
	for _, l := range n.Lyrics {
		num := ""
		if l.Number != 0 {
			num = strconv.Itoa(l.Number)
		}
		e.open("lyric", attr{"number", num})
		if l.Syllabic != "" {
			e.text("syllabic", l.Syllabic)
		}
		e.text("text", l.Text)
		e.close("lyric")
	}
	e.close("note")
}

func (e *encoder) encodeNotations(nt *score.Notations) {
	e.open("notations")
	for _, t := range nt.Tied {
		e.empty("tied", attr{"type", string(t.Type)})
	}
	for _, s := range nt.Slurs {
		e.empty("slur", attr{"type", string(s.Type)}, attr{"number", strconv.Itoa(s.Number)})
	}
	for _, t := range nt.Tuplets {
		e.empty("tuplet", attr{"type", string(t.Type)}, attr{"number", strconv.Itoa(t.Number)})
	}
	if len(nt.Articulations) > 0 {
		e.open("articulations")
		for _, a := range nt.Articulations {
			e.empty(a)
		}
		e.close("articulations")
	}
	if nt.Fermata {
		e.empty("fermata")
	}
	e.close("notations")
}

func (e *encoder) encodeDirection(d *score.Direction) {
	e.open("direction", attr{"placement", d.Placement})
	for _, t := range d.Types {
		e.open("direction-type")
		switch t.Kind {
		case score.DirWords:
			e.text("words", t.Text)
		case score.DirDynamics:
			e.open("dynamics")
			e.empty(t.Text)
			e.close("dynamics")
		case score.DirWedge:
			e.empty("wedge", attr{"type", t.WedgeType})
		case score.DirMetronome:
			e.open("metronome")
			e.text("beat-unit", t.BeatUnit)
			e.intText("per-minute", t.PerMinute)
			e.close("metronome")
		case score.DirPedal:
			e.empty("pedal", attr{"type", t.PedalType})
		case score.DirOctaveShift:
			size := ""
			if t.ShiftSize != 0 {
				size = strconv.Itoa(t.ShiftSize)
			}
			e.empty("octave-shift", attr{"type", t.ShiftType}, attr{"size", size})
		case score.DirSegno:
			e.empty("segno")
		case score.DirCoda:
			e.empty("coda")
		case score.DirRehearsal:
			e.text("rehearsal", t.Text)
		}
		e.close("direction-type")
	}
	if d.Voice != 0 {
		e.intText("voice", d.Voice)
	}
	if d.Staff != 0 {
		e.intText("staff", d.Staff)
	}
	if d.Sound != nil {
		e.encodeSound(d.Sound)
	}
	e.close("direction")
}

func (e *encoder) encodeHarmony(h *score.Harmony) {
	e.open("harmony")
	e.open("root")
	e.text("root-step", string(h.Root.Step))
	if h.Root.Alter != 0 {
		e.intText("root-alter", h.Root.Alter)
	}
	e.close("root")
	e.text("kind", h.HKind)
	if h.Bass != nil {
		e.open("bass")
		e.text("bass-step", string(h.Bass.Step))
		if h.Bass.Alter != 0 {
			e.intText("bass-alter", h.Bass.Alter)
		}
		e.close("bass")
	}
	for _, d := range h.Degrees {
		e.open("degree")
		e.intText("degree-value", d.Value)
		if d.Alter != 0 {
			e.intText("degree-alter", d.Alter)
		}
		e.text("degree-type", d.Type)
		e.close("degree")
	}
	e.close("harmony")
}

func (e *encoder) encodeSound(s *score.Sound) {
	attrs := []attr{
		{"tempo", floatAttr(s.Tempo)},
		{"dynamics", floatAttr(s.Dynamics)},
		{"dacapo", yesIf(s.DaCapo)},
		{"dalsegno", s.DalSegno},
		{"segno", s.Segno},
		{"coda", s.Coda},
		{"tocoda", s.ToCoda},
		{"fine", yesIf(s.Fine)},
	}
	e.empty("sound", attrs...)
}

func (e *encoder) encodeBarline(b *score.Barline) {
	e.open("barline", attr{"location", string(b.Location)})
	if b.BarStyle != "" {
		e.text("bar-style", b.BarStyle)
	}
	if b.Ending != nil {
		e.empty("ending", attr{"number", b.Ending.Number}, attr{"type", b.Ending.Type})
	}
	if b.Repeat != nil {
		times := ""
		if b.Repeat.Times != 0 {
			times = strconv.Itoa(b.Repeat.Times)
		}
		e.empty("repeat", attr{"direction", b.Repeat.Direction}, attr{"times", times})
	}
	e.close("barline")
}

func floatAttr(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func yesIf(b bool) string {
	if b {
		return "yes"
	}
	return ""
}
