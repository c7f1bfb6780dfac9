package store

import (
	"fmt"

	"github.com/korniloval/fierix/pkg/types"
)

// Store provides persistence for scan results.
// This interface abstracts the underlying storage implementation so the
// scanner can write to SQLite or to memory.
type Store interface {
	// AddBlob stores a blob record.
	AddBlob(id types.BlobID, size int64) error

	// BlobExists checks if a blob has already been scanned.
	BlobExists(id types.BlobID) (bool, error)

	// AddProvenance associates provenance with a blob.
	AddProvenance(blobID types.BlobID, prov types.Provenance) error

	// GetProvenance retrieves every provenance recorded for a blob.
	GetProvenance(blobID types.BlobID) ([]types.Provenance, error)

	// AddMatch stores a selected method. Matches with a known structural ID
	// are ignored.
	AddMatch(m *types.Match) error

	// GetMatches retrieves matches for a blob.
	GetMatches(blobID types.BlobID) ([]*types.Match, error)

	// GetAllMatches retrieves all matches ordered by class and method.
	GetAllMatches() ([]*types.Match, error)

	// GetMatchesForClass retrieves matches of one class (dotted name).
	GetMatchesForClass(className string) ([]*types.Match, error)

	// Close closes the database connection.
	Close() error
}

// Config for store initialization.
type Config struct {
	// Path is the database file path.
	// Use ":memory:" for an in-memory store (useful for testing).
	Path string
}

// New creates a store: MemoryStore for ":memory:", SQLite otherwise.
func New(cfg Config) (Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("path is required")
	}

	if cfg.Path == ":memory:" {
		return NewMemory(), nil
	}

	return NewSQLite(cfg.Path)
}
