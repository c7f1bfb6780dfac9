package scanner

import (
	"github.com/korniloval/fierix/pkg/rule"
	"github.com/korniloval/fierix/pkg/store"
)

// Config configures a Scanner.
type Config struct {
	// Configuration decides which methods are selected. Edits made to it
	// while a scan runs apply to classes scanned afterwards.
	Configuration *rule.Configuration

	// Store receives blobs, provenance and matches. Nil means an in-memory
	// store.
	Store store.Store

	// Incremental skips blobs the store already knows.
	Incremental bool

	// IncludeSynthetic also reports compiler generated bridge and accessor
	// methods.
	IncludeSynthetic bool
}

// Stats summarizes a scan.
type Stats struct {
	Classes int `json:"classes"` // class files parsed
	Skipped int `json:"skipped"` // blobs skipped by incremental mode
	Failed  int `json:"failed"`  // blobs that were not valid class files
	Methods int `json:"methods"` // methods evaluated
	Matches int `json:"matches"` // methods selected
}
