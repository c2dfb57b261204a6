package fileio

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/scorekit/scorekit/core/score"
	"github.com/scorekit/scorekit/formats/musicxml"
)

const xmlDoc = `<score-partwise version="4.0">
  <work><work-title>Dispatch Test</work-title></work>
  <part-list>
    <score-part id="P1"><part-name>One</part-name></score-part>
  </part-list>
  <part id="P1">
    <measure number="1">
      <attributes><divisions>1</divisions></attributes>
      <note><pitch><step>C</step><octave>4</octave></pitch><duration>4</duration><voice>1</voice></note>
    </measure>
  </part>
</score-partwise>`

const abcDoc = `X:1
T:Dispatch Test
M:4/4
L:1/4
K:C
CDEF |
`

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"tune.xml", FormatMusicXML},
		{"tune.musicxml", FormatMusicXML},
		{"TUNE.XML", FormatMusicXML},
		{"tune.xml.xz", FormatMusicXML},
		{"tune.mxl", FormatMXL},
		{"tune.abc", FormatABC},
		{"tune.mid", FormatMIDI},
		{"tune.midi", FormatMIDI},
		{"tune.pdf", FormatUnknown},
		{"tune", FormatUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := DetectFormat(tt.path); got != tt.want {
				t.Errorf("DetectFormat(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestReadScoreByExtension(t *testing.T) {
	dir := t.TempDir()

	xmlPath := filepath.Join(dir, "tune.xml")
	if err := os.WriteFile(xmlPath, []byte(xmlDoc), 0644); err != nil {
		t.Fatal(err)
	}
	abcPath := filepath.Join(dir, "tune.abc")
	if err := os.WriteFile(abcPath, []byte(abcDoc), 0644); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{xmlPath, abcPath} {
		s, err := ReadScore(path)
		if err != nil {
			t.Fatalf("ReadScore(%s) error = %v", path, err)
		}
		if s.Title != "Dispatch Test" {
			t.Errorf("ReadScore(%s) title = %q", path, s.Title)
		}
	}
}

func TestReadScoreMissingFile(t *testing.T) {
	if _, err := ReadScore(filepath.Join(t.TempDir(), "absent.xml")); err == nil {
		t.Error("ReadScore(absent) error = nil, want IO error")
	}
}

func TestWriteAndReadRoundTrip(t *testing.T) {
	src, err := musicxml.DecodeBytes([]byte(xmlDoc))
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()

	for _, name := range []string{"out.xml", "out.mxl", "out.abc", "out.xml.xz"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if err := WriteScore(path, src); err != nil {
				t.Fatalf("WriteScore() error = %v", err)
			}
			got, err := ReadScore(path)
			if err != nil {
				t.Fatalf("ReadScore() error = %v", err)
			}
			if got.Title != "Dispatch Test" {
				t.Errorf("title = %q, want Dispatch Test", got.Title)
			}
		})
	}
}

func TestWriteMIDI(t *testing.T) {
	src, err := musicxml.DecodeBytes([]byte(xmlDoc))
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "out.mid")
	if err := WriteScore(path, src); err != nil {
		t.Fatalf("WriteScore() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) < 4 || string(data[:4]) != "MThd" {
		t.Errorf("MIDI header = %q, want MThd", data[:4])
	}
}

func TestReadMIDIRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.mid")
	if err := os.WriteFile(path, []byte("MThd"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadScore(path); err == nil {
		t.Error("ReadScore(.mid) error = nil, want unsupported")
	}
}

func TestMagicOverridesExtension(t *testing.T) {
	src, err := musicxml.DecodeBytes([]byte(xmlDoc))
	if err != nil {
		t.Fatal(err)
	}
	// An .mxl payload saved with an .xml name still reads as a container.
	container, err := EncodeScore("x.mxl", src)
	if err != nil {
		t.Fatal(err)
	}
	s, err := ReadScoreBytes("mislabeled.xml", container)
	if err != nil {
		t.Fatalf("ReadScoreBytes() error = %v", err)
	}
	if s.Title != "Dispatch Test" {
		t.Errorf("title = %q", s.Title)
	}
}

func TestSniffUnknownExtension(t *testing.T) {
	if _, err := ReadScoreBytes("noext", []byte(xmlDoc)); err != nil {
		t.Errorf("sniff xml error = %v", err)
	}
	if _, err := ReadScoreBytes("noext", []byte(abcDoc)); err != nil {
		t.Errorf("sniff abc error = %v", err)
	}
	if _, err := ReadScoreBytes("noext", []byte{0x00, 0x01, 0x02}); err == nil {
		t.Error("sniff binary error = nil, want unsupported")
	}
}

func utf16Bytes(s string, order binary.ByteOrder, bom bool) []byte {
	var out []byte
	if bom {
		var b [2]byte
		order.PutUint16(b[:], 0xFEFF)
		out = append(out, b[:]...)
	}
	for _, r := range s {
		var b [2]byte
		order.PutUint16(b[:], uint16(r))
		out = append(out, b[:]...)
	}
	return out
}

func TestNormalizeText(t *testing.T) {
	plain := "X:1\nK:C\n"
	tests := []struct {
		name string
		data []byte
	}{
		{"utf8 bom", append([]byte{0xEF, 0xBB, 0xBF}, plain...)},
		{"utf16le bom", utf16Bytes(plain, binary.LittleEndian, true)},
		{"utf16be bom", utf16Bytes(plain, binary.BigEndian, true)},
		{"utf16le no bom", utf16Bytes(plain, binary.LittleEndian, false)},
		{"utf16be no bom", utf16Bytes(plain, binary.BigEndian, false)},
		{"plain", []byte(plain)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(NormalizeText(tt.data)); got != plain {
				t.Errorf("NormalizeText() = %q, want %q", got, plain)
			}
		})
	}
}

func TestNormalizeTextLeavesBinaryAlone(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	if got := NormalizeText(data); string(got) != string(data) {
		t.Error("binary data was altered")
	}
}

func TestReadUTF16MusicXML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tune.xml")
	if err := os.WriteFile(path, utf16Bytes(xmlDoc, binary.LittleEndian, true), 0644); err != nil {
		t.Fatal(err)
	}
	s, err := ReadScore(path)
	if err != nil {
		t.Fatalf("ReadScore(utf16) error = %v", err)
	}
	if s.Title != "Dispatch Test" {
		t.Errorf("title = %q", s.Title)
	}
}

func TestWriteUnknownExtension(t *testing.T) {
	if err := WriteScore(filepath.Join(t.TempDir(), "out.pdf"), score.NewScore()); err == nil {
		t.Error("WriteScore(.pdf) error = nil, want unsupported")
	}
}
