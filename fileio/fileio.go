// Package fileio reads and writes score files, dispatching on file
// extension with magic-byte fallbacks, and normalizing text encodings
// (UTF-8/UTF-16 BOMs, transparent .xz decompression) before parsing.
package fileio

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/ulikunitz/xz"

	"github.com/scorekit/scorekit/core/errors"
	"github.com/scorekit/scorekit/core/score"
	"github.com/scorekit/scorekit/formats/abc"
	"github.com/scorekit/scorekit/formats/midi"
	"github.com/scorekit/scorekit/formats/musicxml"
	"github.com/scorekit/scorekit/formats/mxl"
)

// Format identifies a score file format.
type Format string

// Known formats.
const (
	FormatMusicXML Format = "musicxml"
	FormatMXL      Format = "mxl"
	FormatABC      Format = "abc"
	FormatMIDI     Format = "midi"
	FormatUnknown  Format = ""
)

// DetectFormat maps a file path to its format by extension. A trailing
// .xz is transparent: "score.xml.xz" detects as MusicXML.
func DetectFormat(path string) Format {
	name := strings.ToLower(path)
	name = strings.TrimSuffix(name, ".xz")
	switch filepath.Ext(name) {
	case ".xml", ".musicxml":
		return FormatMusicXML
	case ".mxl":
		return FormatMXL
	case ".abc":
		return FormatABC
	case ".mid", ".midi":
		return FormatMIDI
	default:
		return FormatUnknown
	}
}

// ReadScore loads a score file, decompressing and normalizing as needed.
func ReadScore(path string) (*score.Score, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIO("read", path, err)
	}
	return ReadScoreBytes(path, data)
}

// ReadScoreBytes parses score data already in memory. The path supplies
// the extension hint; magic bytes override it where they disagree.
func ReadScoreBytes(path string, data []byte) (*score.Score, error) {
	if isXZ(data) {
		decompressed, err := decompressXZ(data)
		if err != nil {
			return nil, errors.NewIO("decompress", path, err)
		}
		data = decompressed
	}

	format := DetectFormat(path)
	if mxl.IsMXL(data) {
		format = FormatMXL
	}

	switch format {
	case FormatMXL:
		return mxl.DecodeBytes(data)
	case FormatMusicXML:
		return musicxml.DecodeBytes(NormalizeText(data))
	case FormatABC:
		return abc.DecodeBytes(NormalizeText(data))
	case FormatMIDI:
		return nil, errors.NewUnsupported("MIDI import", "MIDI is an export-only format")
	default:
		return sniff(path, data)
	}
}

// sniff guesses the format of data with an unknown extension.
func sniff(path string, data []byte) (*score.Score, error) {
	text := NormalizeText(data)
	trimmed := bytes.TrimLeft(text, " \t\r\n")
	if bytes.HasPrefix(trimmed, []byte("<")) {
		return musicxml.DecodeBytes(text)
	}
	if bytes.Contains(trimmed, []byte("\nK:")) || bytes.HasPrefix(trimmed, []byte("X:")) {
		return abc.DecodeBytes(text)
	}
	return nil, errors.NewUnsupported("file format", "cannot determine format of "+filepath.Base(path))
}

// WriteScore serializes a score to the format the path's extension names.
// A trailing .xz compresses the output.
func WriteScore(path string, s *score.Score) error {
	data, err := EncodeScore(path, s)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.NewIO("write", path, err)
	}
	return nil
}

// EncodeScore serializes a score for the given path without writing it.
func EncodeScore(path string, s *score.Score) ([]byte, error) {
	var data []byte
	var err error
	switch DetectFormat(path) {
	case FormatMusicXML:
		data, err = musicxml.EncodeBytes(s)
	case FormatMXL:
		data, err = mxl.EncodeBytes(s)
	case FormatABC:
		data, err = abc.EncodeBytes(s)
	case FormatMIDI:
		data, err = midi.EncodeBytes(s)
	default:
		return nil, errors.NewUnsupported("file format", "cannot determine format of "+filepath.Base(path))
	}
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(strings.ToLower(path), ".xz") {
		return compressXZ(data)
	}
	return data, nil
}

// xz magic: fd 37 7a 58 5a 00
var xzMagic = []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}

func isXZ(data []byte) bool {
	return bytes.HasPrefix(data, xzMagic)
}

func decompressXZ(data []byte) ([]byte, error) {
	r, err := xz.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}

func compressXZ(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// NormalizeText converts textual input to plain UTF-8: it strips a UTF-8
// BOM and transcodes UTF-16 (detected by BOM, or by NUL distribution when
// no BOM is present).
func NormalizeText(data []byte) []byte {
	switch {
	case bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}):
		return data[3:]
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}):
		return utf16Decode(data[2:], binary.LittleEndian)
	case bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		return utf16Decode(data[2:], binary.BigEndian)
	}
	if order, ok := guessUTF16(data); ok {
		return utf16Decode(data, order)
	}
	return data
}

// guessUTF16 detects BOM-less UTF-16 by looking for alternating NUL bytes
// in the first words, which ASCII-heavy notation files always produce.
func guessUTF16(data []byte) (binary.ByteOrder, bool) {
	if len(data) < 4 || len(data)%2 != 0 {
		return nil, false
	}
	n := len(data)
	if n > 64 {
		n = 64
	}
	evenNul, oddNul := 0, 0
	for i := 0; i < n; i++ {
		if data[i] == 0 {
			if i%2 == 0 {
				evenNul++
			} else {
				oddNul++
			}
		}
	}
	words := n / 2
	switch {
	case oddNul > words/2 && evenNul == 0:
		return binary.LittleEndian, true
	case evenNul > words/2 && oddNul == 0:
		return binary.BigEndian, true
	}
	return nil, false
}

func utf16Decode(data []byte, order binary.ByteOrder) []byte {
	units := make([]uint16, 0, len(data)/2)
	for i := 0; i+1 < len(data); i += 2 {
		units = append(units, order.Uint16(data[i:]))
	}
	runes := utf16.Decode(units)
	out := make([]byte, 0, len(runes))
	var buf [utf8.UTFMax]byte
	for _, r := range runes {
		n := utf8.EncodeRune(buf[:], r)
		out = append(out, buf[:n]...)
	}
	return out
}
