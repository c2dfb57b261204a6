// Package musicxml converts between MusicXML text and the score model.
// Only the partwise form is handled; timewise documents must be converted
// upstream before decoding.
package musicxml

import (
	"bytes"
	"io"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/scorekit/scorekit/core/errors"
	"github.com/scorekit/scorekit/core/score"
)

// Decode parses a MusicXML score-partwise document into a Score.
func Decode(r io.Reader) (*score.Score, error) {
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return nil, errors.NewParse("MusicXML", "", err.Error())
	}
	root := xmlquery.FindOne(doc, "//score-partwise")
	if root == nil {
		if xmlquery.FindOne(doc, "//score-timewise") != nil {
			return nil, errors.NewUnsupported("score-timewise", "only the partwise form is supported")
		}
		return nil, errors.NewParse("MusicXML", "", "no score-partwise root element")
	}
	return decodeScore(root)
}

// DecodeBytes parses MusicXML from a byte slice.
func DecodeBytes(data []byte) (*score.Score, error) {
	return Decode(bytes.NewReader(data))
}

func decodeScore(root *xmlquery.Node) (*score.Score, error) {
	s := score.NewScore()

	if work := childElem(root, "work"); work != nil {
		s.Title = childText(work, "work-title")
	}
	if s.Title == "" {
		s.Title = childText(root, "movement-title")
	}
	if ident := childElem(root, "identification"); ident != nil {
		for _, c := range childElems(ident, "creator") {
			s.Creators = append(s.Creators, score.Creator{
				Type: attrOf(c, "type"),
				Name: strings.TrimSpace(c.InnerText()),
			})
		}
	}

	if list := childElem(root, "part-list"); list != nil {
		for c := list.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != xmlquery.ElementNode {
				continue
			}
			switch c.Data {
			case "score-part":
				s.PartList = append(s.PartList, score.PartListItem{
					Kind:             score.PartListScorePart,
					PartID:           attrOf(c, "id"),
					PartName:         childText(c, "part-name"),
					PartAbbreviation: childText(c, "part-abbreviation"),
				})
			case "part-group":
				s.PartList = append(s.PartList, score.PartListItem{
					Kind:        score.PartListPartGroup,
					GroupNumber: attrOf(c, "number"),
					GroupType:   score.StartStop(attrOf(c, "type")),
					GroupSymbol: childText(c, "group-symbol"),
					GroupName:   childText(c, "group-name"),
				})
			}
		}
	}

	names := make(map[string]string)
	for _, item := range s.PartList {
		if item.Kind == score.PartListScorePart {
			names[item.PartID] = item.PartName
		}
	}

	for _, pn := range childElems(root, "part") {
		id := attrOf(pn, "id")
		if id == "" {
			return nil, errors.NewParse("MusicXML", "", "part element without id attribute")
		}
		p := &score.Part{ID: id, Name: names[id]}
		for _, mn := range childElems(pn, "measure") {
			m, err := decodeMeasure(mn)
			if err != nil {
				return nil, err
			}
			p.Measures = append(p.Measures, m)
		}
		s.Parts = append(s.Parts, p)
	}

	return s, nil
}

func decodeMeasure(mn *xmlquery.Node) (*score.Measure, error) {
	m := score.NewMeasure(attrOf(mn, "number"))
	m.Implicit = attrOf(mn, "implicit") == "yes"

	timed := false
	for c := mn.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != xmlquery.ElementNode {
			continue
		}
		switch c.Data {
		case "attributes":
			a := decodeAttributes(c)
			if m.Attributes == nil && !timed {
				m.Attributes = a
			} else {
				m.Entries = append(m.Entries, &score.AttributesEntry{ID: score.NewID(), Attributes: a})
			}
		case "note":
			n, err := decodeNote(c)
			if err != nil {
				return nil, err
			}
			m.Entries = append(m.Entries, n)
			timed = true
		case "backup":
			m.Entries = append(m.Entries, score.NewBackup(childInt(c, "duration")))
			timed = true
		case "forward":
			f := score.NewForward(childInt(c, "duration"))
			f.Voice = childInt(c, "voice")
			f.Staff = childInt(c, "staff")
			m.Entries = append(m.Entries, f)
			timed = true
		case "direction":
			m.Entries = append(m.Entries, decodeDirection(c))
		case "harmony":
			m.Entries = append(m.Entries, decodeHarmony(c))
		case "sound":
			m.Entries = append(m.Entries, decodeSound(c, true))
		case "barline":
			m.Barlines = append(m.Barlines, decodeBarline(c))
		}
	}
	return m, nil
}

func decodeAttributes(n *xmlquery.Node) *score.Attributes {
	a := score.NewAttributes()
	a.Divisions = childInt(n, "divisions")
	if k := childElem(n, "key"); k != nil {
		a.Key = &score.KeySignature{
			Fifths: childInt(k, "fifths"),
			Mode:   score.Mode(childText(k, "mode")),
		}
	}
	if t := childElem(n, "time"); t != nil {
		ts := &score.TimeSignature{}
		if childElem(t, "senza-misura") != nil || attrOf(t, "symbol") == "senza-misura" {
			ts.SenzaMisura = true
		} else {
			ts.Beats = childText(t, "beats")
			ts.BeatType = childInt(t, "beat-type")
		}
		a.Time = ts
	}
	a.Staves = childInt(n, "staves")
	for _, cn := range childElems(n, "clef") {
		a.Clefs = append(a.Clefs, &score.Clef{
			Sign:         childText(cn, "sign"),
			Line:         childInt(cn, "line"),
			OctaveChange: childInt(cn, "clef-octave-change"),
			Number:       atoi(attrOf(cn, "number")),
		})
	}
	return a
}

func decodeNote(n *xmlquery.Node) (*score.Note, error) {
	note := &score.Note{ID: score.NewID()}
	note.Grace = childElem(n, "grace") != nil
	note.Chord = childElem(n, "chord") != nil

	switch {
	case childElem(n, "pitch") != nil:
		pn := childElem(n, "pitch")
		note.Pitch = &score.Pitch{
			Step:   score.Step(childText(pn, "step")),
			Alter:  childInt(pn, "alter"),
			Octave: childInt(pn, "octave"),
		}
	case childElem(n, "unpitched") != nil:
		un := childElem(n, "unpitched")
		note.Unpitched = &score.Unpitched{
			DisplayStep:   score.Step(childText(un, "display-step")),
			DisplayOctave: childInt(un, "display-octave"),
		}
	case childElem(n, "rest") != nil:
		note.Rest = true
	default:
		return nil, errors.NewParse("MusicXML", "", "note without pitch, unpitched, or rest")
	}

	note.Duration = childInt(n, "duration")
	note.Voice = childInt(n, "voice")
	note.Staff = childInt(n, "staff")
	note.Type = childText(n, "type")
	note.Dots = len(childElems(n, "dot"))

	for _, tn := range childElems(n, "tie") {
		note.Ties = append(note.Ties, &score.Tie{Type: score.StartStop(attrOf(tn, "type"))})
	}
	if tm := childElem(n, "time-modification"); tm != nil {
		note.TimeMod = &score.TimeModification{
			ActualNotes: childInt(tm, "actual-notes"),
			NormalNotes: childInt(tm, "normal-notes"),
		}
	}
	for _, bn := range childElems(n, "beam") {
		num := atoi(attrOf(bn, "number"))
		if num == 0 {
			num = 1
		}
		note.Beams = append(note.Beams, &score.Beam{
			Number: num,
			Value:  score.BeamValue(strings.TrimSpace(bn.InnerText())),
		})
	}
	if nn := childElem(n, "notations"); nn != nil {
		note.Notations = decodeNotations(nn)
	}
	for _, ln := range childElems(n, "lyric") {
		note.Lyrics = append(note.Lyrics, &score.Lyric{
			Number:   atoi(attrOf(ln, "number")),
			Syllabic: childText(ln, "syllabic"),
			Text:     childText(ln, "text"),
		})
	}
	return note, nil
}

func decodeNotations(n *xmlquery.Node) *score.Notations {
	nt := &score.Notations{}
	for _, c := range childElems(n, "tied") {
		nt.Tied = append(nt.Tied, &score.Tied{Type: score.StartStop(attrOf(c, "type"))})
	}
	for _, c := range childElems(n, "slur") {
		num := atoi(attrOf(c, "number"))
		if num == 0 {
			num = 1
		}
		nt.Slurs = append(nt.Slurs, &score.Slur{Number: num, Type: score.SlurType(attrOf(c, "type"))})
	}
	for _, c := range childElems(n, "tuplet") {
		num := atoi(attrOf(c, "number"))
		if num == 0 {
			num = 1
		}
		nt.Tuplets = append(nt.Tuplets, &score.Tuplet{Number: num, Type: score.StartStop(attrOf(c, "type"))})
	}
	if art := childElem(n, "articulations"); art != nil {
		for c := art.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == xmlquery.ElementNode {
				nt.Articulations = append(nt.Articulations, c.Data)
			}
		}
	}
	nt.Fermata = childElem(n, "fermata") != nil
	return nt
}

// dynamicMarks is the set of dynamics child element names recognized when
// decoding a direction-type.
var dynamicMarks = map[string]bool{
	"pppp": true, "ppp": true, "pp": true, "p": true,
	"mp": true, "mf": true,
	"f": true, "ff": true, "fff": true, "ffff": true,
	"sf": true, "sfz": true, "fp": true, "fz": true, "rf": true, "rfz": true,
}

func decodeDirection(n *xmlquery.Node) *score.Direction {
	d := &score.Direction{
		ID:        score.NewID(),
		Placement: attrOf(n, "placement"),
		Voice:     childInt(n, "voice"),
		Staff:     childInt(n, "staff"),
	}
	for _, dt := range childElems(n, "direction-type") {
		for c := dt.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != xmlquery.ElementNode {
				continue
			}
			switch c.Data {
			case "words":
				d.Types = append(d.Types, score.DirectionType{
					Kind: score.DirWords,
					Text: strings.TrimSpace(c.InnerText()),
				})
			case "dynamics":
				for dc := c.FirstChild; dc != nil; dc = dc.NextSibling {
					if dc.Type == xmlquery.ElementNode && dynamicMarks[dc.Data] {
						d.Types = append(d.Types, score.DirectionType{Kind: score.DirDynamics, Text: dc.Data})
					}
				}
			case "wedge":
				d.Types = append(d.Types, score.DirectionType{
					Kind:      score.DirWedge,
					WedgeType: attrOf(c, "type"),
				})
			case "metronome":
				d.Types = append(d.Types, score.DirectionType{
					Kind:      score.DirMetronome,
					BeatUnit:  childText(c, "beat-unit"),
					PerMinute: childInt(c, "per-minute"),
				})
			case "pedal":
				d.Types = append(d.Types, score.DirectionType{
					Kind:      score.DirPedal,
					PedalType: attrOf(c, "type"),
				})
			case "octave-shift":
				size := atoi(attrOf(c, "size"))
				if size == 0 {
					size = 8
				}
				d.Types = append(d.Types, score.DirectionType{
					Kind:      score.DirOctaveShift,
					ShiftType: attrOf(c, "type"),
					ShiftSize: size,
				})
			case "segno":
				d.Types = append(d.Types, score.DirectionType{Kind: score.DirSegno})
			case "coda":
				d.Types = append(d.Types, score.DirectionType{Kind: score.DirCoda})
			case "rehearsal":
				d.Types = append(d.Types, score.DirectionType{
					Kind: score.DirRehearsal,
					Text: strings.TrimSpace(c.InnerText()),
				})
			}
		}
	}
	if sn := childElem(n, "sound"); sn != nil {
		d.Sound = decodeSound(sn, false)
	}
	return d
}

func decodeHarmony(n *xmlquery.Node) *score.Harmony {
	h := &score.Harmony{ID: score.NewID(), HKind: childText(n, "kind")}
	if rn := childElem(n, "root"); rn != nil {
		h.Root = score.HarmonyRoot{
			Step:  score.Step(childText(rn, "root-step")),
			Alter: childInt(rn, "root-alter"),
		}
	}
	if bn := childElem(n, "bass"); bn != nil {
		h.Bass = &score.HarmonyRoot{
			Step:  score.Step(childText(bn, "bass-step")),
			Alter: childInt(bn, "bass-alter"),
		}
	}
	for _, dn := range childElems(n, "degree") {
		h.Degrees = append(h.Degrees, score.HarmonyDegree{
			Value: childInt(dn, "degree-value"),
			Alter: childInt(dn, "degree-alter"),
			Type:  childText(dn, "degree-type"),
		})
	}
	return h
}

// decodeSound decodes a sound element. Standalone sounds get an ID so they
// can participate in the entry sequence; direction-attached sounds do not.
func decodeSound(n *xmlquery.Node, standalone bool) *score.Sound {
	s := &score.Sound{
		Tempo:    atof(attrOf(n, "tempo")),
		Dynamics: atof(attrOf(n, "dynamics")),
		DaCapo:   attrOf(n, "dacapo") == "yes",
		DalSegno: attrOf(n, "dalsegno"),
		Segno:    attrOf(n, "segno"),
		Coda:     attrOf(n, "coda"),
		ToCoda:   attrOf(n, "tocoda"),
		Fine:     attrOf(n, "fine") == "yes",
	}
	if standalone {
		s.ID = score.NewID()
	}
	return s
}

func decodeBarline(n *xmlquery.Node) *score.Barline {
	loc := score.BarlineLocation(attrOf(n, "location"))
	if loc == "" {
		loc = score.BarlineRight
	}
	b := &score.Barline{Location: loc, BarStyle: childText(n, "bar-style")}
	if rn := childElem(n, "repeat"); rn != nil {
		b.Repeat = &score.Repeat{
			Direction: attrOf(rn, "direction"),
			Times:     atoi(attrOf(rn, "times")),
		}
	}
	if en := childElem(n, "ending"); en != nil {
		b.Ending = &score.Ending{
			Number: attrOf(en, "number"),
			Type:   attrOf(en, "type"),
		}
	}
	return b
}

// childElem returns the first element child with the given name, or nil.
func childElem(n *xmlquery.Node, name string) *xmlquery.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode && c.Data == name {
			return c
		}
	}
	return nil
}

// childElems returns all element children with the given name.
func childElems(n *xmlquery.Node, name string) []*xmlquery.Node {
	var out []*xmlquery.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode && c.Data == name {
			out = append(out, c)
		}
	}
	return out
}

// childText returns the trimmed text content of the named child, or "".
func childText(n *xmlquery.Node, name string) string {
	if c := childElem(n, name); c != nil {
		return strings.TrimSpace(c.InnerText())
	}
	return ""
}

// childInt returns the named child's text as an int, or 0.
func childInt(n *xmlquery.Node, name string) int {
	return atoi(childText(n, name))
}

func attrOf(n *xmlquery.Node, name string) string {
	for _, a := range n.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func atoi(s string) int {
	v, _ := strconv.Atoi(strings.TrimSpace(s))
	return v
}

func atof(s string) float64 {
	v, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return v
}
