package enum

import (
	"context"

	"github.com/korniloval/fierix/pkg/types"
)

// Enumerator discovers class files to scan from a source.
type Enumerator interface {
	// Enumerate yields class file blobs from the source.
	// The callback receives blob content, its ID, and provenance information.
	Enumerate(ctx context.Context, callback func(content []byte, blobID types.BlobID, prov types.Provenance) error) error
}

// Config for enumeration.
type Config struct {
	// Root is the starting path for enumeration: a directory, a class file
	// or an archive.
	Root string

	// Include restricts enumeration to paths matching any of these
	// doublestar globs, relative to Root (e.g. "com/acme/**/*.class").
	Include []string

	// IncludeHidden includes hidden files/directories (starting with .).
	IncludeHidden bool

	// MaxFileSize is the maximum file size to process (0 = no limit).
	MaxFileSize int64

	// FollowSymlinks follows symbolic links.
	FollowSymlinks bool

	// SkipArchives disables reading class files from jar, war, ear and zip
	// archives.
	SkipArchives bool

	// Workers is the number of parallel readers (0 = number of CPUs).
	Workers int
}
