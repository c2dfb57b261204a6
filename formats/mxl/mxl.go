// Package mxl reads and writes the compressed MusicXML container format.
// An .mxl file is a ZIP archive with a stored mimetype entry and a
// META-INF/container.xml pointing at the rootfile holding the score.
package mxl

import (
	"archive/zip"
	"bytes"
	"io"
	"path"
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/scorekit/scorekit/core/errors"
	"github.com/scorekit/scorekit/core/score"
	"github.com/scorekit/scorekit/formats/musicxml"
)

// Mimetype is the container media type written to the mimetype entry.
const Mimetype = "application/vnd.recordare.musicxml"

// defaultRootfile is the score entry name Encode writes.
const defaultRootfile = "score.xml"

// IsMXL reports whether data starts with the ZIP local-file magic.
func IsMXL(data []byte) bool {
	return len(data) >= 4 &&
		data[0] == 0x50 && data[1] == 0x4b && data[2] == 0x03 && data[3] == 0x04
}

// Decode reads a compressed MusicXML container and returns its score.
func Decode(r io.Reader) (*score.Score, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.NewIO("read", "", err)
	}
	return DecodeBytes(data)
}

// DecodeBytes decodes a compressed MusicXML container from memory.
func DecodeBytes(data []byte) (*score.Score, error) {
	if !IsMXL(data) {
		return nil, errors.NewParse("MXL", "", "not a ZIP archive (wrong magic bytes)")
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.NewParse("MXL", "", err.Error())
	}

	name, err := rootfileName(zr)
	if err != nil {
		return nil, err
	}
	payload, err := readEntry(zr, name)
	if err != nil {
		return nil, err
	}
	s, err := musicxml.DecodeBytes(payload)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding rootfile %s", name)
	}
	return s, nil
}

// DecodeAuto decodes either a compressed container or plain MusicXML text,
// dispatching on the ZIP magic.
func DecodeAuto(data []byte) (*score.Score, error) {
	if IsMXL(data) {
		return DecodeBytes(data)
	}
	return musicxml.DecodeBytes(data)
}

// Encode writes a Score as a compressed MusicXML container. The mimetype
// entry is written first and uncompressed, per the container convention.
func Encode(w io.Writer, s *score.Score) error {
	payload, err := musicxml.EncodeBytes(s)
	if err != nil {
		return err
	}

	zw := zip.NewWriter(w)

	mt, err := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		return errors.Wrap(err, "creating mimetype entry")
	}
	if _, err := mt.Write([]byte(Mimetype)); err != nil {
		return errors.Wrap(err, "writing mimetype entry")
	}

	cf, err := zw.Create("META-INF/container.xml")
	if err != nil {
		return errors.Wrap(err, "creating container.xml")
	}
	if _, err := cf.Write([]byte(containerXML(defaultRootfile))); err != nil {
		return errors.Wrap(err, "writing container.xml")
	}

	sf, err := zw.Create(defaultRootfile)
	if err != nil {
		return errors.Wrap(err, "creating score entry")
	}
	if _, err := sf.Write(payload); err != nil {
		return errors.Wrap(err, "writing score entry")
	}

	return zw.Close()
}

// EncodeBytes serializes a Score to compressed container bytes.
func EncodeBytes(s *score.Score) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// rootfileName resolves the score entry name from META-INF/container.xml.
// Containers without one fall back to the first XML entry outside META-INF.
func rootfileName(zr *zip.Reader) (string, error) {
	if data, err := readEntry(zr, "META-INF/container.xml"); err == nil {
		doc, err := xmlquery.Parse(bytes.NewReader(data))
		if err != nil {
			return "", errors.NewParse("MXL", "META-INF/container.xml", err.Error())
		}
		rf := xmlquery.FindOne(doc, "//rootfile")
		if rf == nil {
			return "", errors.NewParse("MXL", "META-INF/container.xml", "no rootfile element")
		}
		for _, a := range rf.Attr {
			if a.Name.Local == "full-path" && a.Value != "" {
				return a.Value, nil
			}
		}
		return "", errors.NewParse("MXL", "META-INF/container.xml", "rootfile without full-path")
	}

	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, "META-INF/") || f.FileInfo().IsDir() {
			continue
		}
		switch strings.ToLower(path.Ext(f.Name)) {
		case ".xml", ".musicxml":
			return f.Name, nil
		}
	}
	return "", errors.NewParse("MXL", "", "no score entry found in container")
}

func readEntry(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, errors.NewIO("open", name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, errors.NewIO("read", name, err)
		}
		return data, nil
	}
	return nil, errors.NewNotFound("container entry", name)
}

func containerXML(rootfile string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<container>
  <rootfiles>
    <rootfile full-path="` + rootfile + `" media-type="application/vnd.recordare.musicxml+xml"/>
  </rootfiles>
</container>
`
}
