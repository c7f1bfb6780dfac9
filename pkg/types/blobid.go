package types

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
)

// BlobID is the Git-style SHA-1 of a class file's bytes. It keys incremental
// scans: an unchanged class file hashes to the same ID.
type BlobID [20]byte

// ComputeBlobID hashes content the way git hash-object does:
// SHA-1("blob {len}\0{content}").
func ComputeBlobID(content []byte) BlobID {
	h := sha1.New()
	h.Write([]byte("blob " + strconv.Itoa(len(content)) + "\x00"))
	h.Write(content)

	var id BlobID
	copy(id[:], h.Sum(nil))
	return id
}

// Hex returns the 40 character hex form.
func (id BlobID) Hex() string {
	return hex.EncodeToString(id[:])
}

func (id BlobID) String() string {
	return id.Hex()
}

// Short returns the first 8 hex characters, for log output.
func (id BlobID) Short() string {
	return id.Hex()[:8]
}

// ParseBlobID parses the 40 character hex form.
func ParseBlobID(hexStr string) (BlobID, error) {
	if len(hexStr) != 40 {
		return BlobID{}, fmt.Errorf("invalid blob ID length: expected 40, got %d", len(hexStr))
	}

	decoded, err := hex.DecodeString(hexStr)
	if err != nil {
		return BlobID{}, fmt.Errorf("invalid hex string: %w", err)
	}

	var id BlobID
	copy(id[:], decoded)
	return id, nil
}

// MarshalJSON encodes the ID as a hex string.
func (id BlobID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.Hex())
}

// UnmarshalJSON decodes a hex string.
func (id *BlobID) UnmarshalJSON(data []byte) error {
	var hexStr string
	if err := json.Unmarshal(data, &hexStr); err != nil {
		return err
	}

	parsed, err := ParseBlobID(hexStr)
	if err != nil {
		return err
	}

	*id = parsed
	return nil
}
