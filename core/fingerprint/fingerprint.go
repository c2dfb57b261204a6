// Package fingerprint computes content digests of scores. Two scores with
// the same musical content fingerprint identically even when their element
// IDs differ, so a fingerprint identifies what a document says, not which
// in-memory copy said it.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/zeebo/blake3"

	"github.com/scorekit/scorekit/core/score"
)

// Fingerprint carries both digests of one canonical form. SHA-256 is the
// primary hash (catalog keys, deduplication); BLAKE3 is kept alongside
// for fast lookup tables.
type Fingerprint struct {
	SHA256 string `json:"sha256"`
	BLAKE3 string `json:"blake3"`
}

// Compute canonicalizes the score and hashes it.
func Compute(s *score.Score) (Fingerprint, error) {
	data, err := Canonical(s)
	if err != nil {
		return Fingerprint{}, err
	}
	sh := sha256.Sum256(data)
	b3 := blake3.Sum256(data)
	return Fingerprint{
		SHA256: hex.EncodeToString(sh[:]),
		BLAKE3: hex.EncodeToString(b3[:]),
	}, nil
}

// Canonical returns the canonical byte form of a score: a JSON encoding
// of a deep copy with every random element ID blanked. Part IDs stay,
// they are musical content (the part list references them).
func Canonical(s *score.Score) ([]byte, error) {
	cp := s.Clone()
	stripIDs(cp)
	return json.Marshal(cp)
}

// Equal reports whether two scores have identical musical content.
func Equal(a, b *score.Score) (bool, error) {
	fa, err := Compute(a)
	if err != nil {
		return false, err
	}
	fb, err := Compute(b)
	if err != nil {
		return false, err
	}
	return fa.SHA256 == fb.SHA256, nil
}

func stripIDs(s *score.Score) {
	s.ID = ""
	for _, p := range s.Parts {
		for _, m := range p.Measures {
			m.ID = ""
			if m.Attributes != nil {
				m.Attributes.ID = ""
			}
			for _, e := range m.Entries {
				stripEntryID(e)
			}
		}
	}
}

func stripEntryID(e score.Entry) {
	switch v := e.(type) {
	case *score.Note:
		v.ID = ""
	case *score.Backup:
		v.ID = ""
	case *score.Forward:
		v.ID = ""
	case *score.Direction:
		v.ID = ""
	case *score.AttributesEntry:
		v.ID = ""
		if v.Attributes != nil {
			v.Attributes.ID = ""
		}
	case *score.Harmony:
		v.ID = ""
	case *score.Sound:
		v.ID = ""
	}
}
