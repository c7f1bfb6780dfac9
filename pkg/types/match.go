package types

import (
	"crypto/sha1"
	"encoding/hex"
)

// Match records a method selected by a configuration.
type Match struct {
	BlobID          BlobID    `json:"blob_id"`
	StructuralID    string    `json:"structural_id"` // SHA-1(blob_id + '\0' + class + '\0' + name + '\0' + descriptor)
	Method          MethodRef `json:"method"`
	Rule            string    `json:"rule"` // first including config, in rule notation
	SaveReturnValue bool      `json:"save_return_value"`
	Location        string    `json:"location,omitempty"` // provenance path of the class file
}

// ComputeStructuralID computes a content-based ID so rescanning the same
// class file does not duplicate matches.
func (m *Match) ComputeStructuralID() string {
	h := sha1.New()

	h.Write(m.BlobID[:])
	h.Write([]byte{0})

	h.Write([]byte(m.Method.Class))
	h.Write([]byte{0})

	h.Write([]byte(m.Method.Name))
	h.Write([]byte{0})

	h.Write([]byte(m.Method.Descriptor))

	return hex.EncodeToString(h.Sum(nil))
}
