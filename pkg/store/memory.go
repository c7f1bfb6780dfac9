package store

import (
	"sort"
	"sync"

	"github.com/korniloval/fierix/pkg/types"
)

// MemoryStore implements Store using in-memory data structures.
type MemoryStore struct {
	mu         sync.RWMutex
	blobs      map[types.BlobID]int64              // blob -> size
	matches    []*types.Match                      // insertion order
	structural map[string]bool                     // known structural IDs
	provenance map[types.BlobID][]types.Provenance // blob -> provenance
}

// NewMemory creates a new in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		blobs:      make(map[types.BlobID]int64),
		matches:    make([]*types.Match, 0),
		structural: make(map[string]bool),
		provenance: make(map[types.BlobID][]types.Provenance),
	}
}

// AddBlob stores a blob record.
func (m *MemoryStore) AddBlob(id types.BlobID, size int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.blobs[id]; !exists {
		m.blobs[id] = size
	}
	return nil
}

// BlobExists checks if a blob has already been scanned.
func (m *MemoryStore) BlobExists(id types.BlobID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, exists := m.blobs[id]
	return exists, nil
}

// AddProvenance associates provenance with a blob.
func (m *MemoryStore) AddProvenance(blobID types.BlobID, prov types.Provenance) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// provenance types are comparable structs
	for _, p := range m.provenance[blobID] {
		if p == prov {
			return nil
		}
	}

	m.provenance[blobID] = append(m.provenance[blobID], prov)
	return nil
}

// GetProvenance retrieves every provenance recorded for a blob.
func (m *MemoryStore) GetProvenance(blobID types.BlobID) ([]types.Provenance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]types.Provenance, len(m.provenance[blobID]))
	copy(result, m.provenance[blobID])
	return result, nil
}

// AddMatch stores a match record.
func (m *MemoryStore) AddMatch(match *types.Match) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.structural[match.StructuralID] {
		return nil
	}
	m.structural[match.StructuralID] = true
	m.matches = append(m.matches, match)
	return nil
}

// GetMatches retrieves matches for a blob.
func (m *MemoryStore) GetMatches(blobID types.BlobID) ([]*types.Match, error) {
	return m.filter(func(match *types.Match) bool {
		return match.BlobID == blobID
	}), nil
}

// GetAllMatches retrieves all matches ordered by class and method.
func (m *MemoryStore) GetAllMatches() ([]*types.Match, error) {
	result := m.filter(func(*types.Match) bool { return true })
	sortMatches(result)
	return result, nil
}

// GetMatchesForClass retrieves matches of one class.
func (m *MemoryStore) GetMatchesForClass(className string) ([]*types.Match, error) {
	result := m.filter(func(match *types.Match) bool {
		return match.Method.Class == className
	})
	sortMatches(result)
	return result, nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error {
	return nil
}

func (m *MemoryStore) filter(keep func(*types.Match) bool) []*types.Match {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*types.Match, 0)
	for _, match := range m.matches {
		if keep(match) {
			result = append(result, match)
		}
	}
	return result
}

// sortMatches orders matches the way the SQLite store does.
func sortMatches(matches []*types.Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i].Method, matches[j].Method
		if a.Class != b.Class {
			return a.Class < b.Class
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Descriptor < b.Descriptor
	})
}
