package enum

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/sabhiram/go-gitignore"

	"github.com/korniloval/fierix/pkg/classfile"
	"github.com/korniloval/fierix/pkg/logging"
	"github.com/korniloval/fierix/pkg/types"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// FilesystemEnumerator enumerates class files from a filesystem path.
type FilesystemEnumerator struct {
	config Config
	logger zerolog.Logger
}

// NewFilesystemEnumerator creates a new filesystem enumerator.
func NewFilesystemEnumerator(config Config) *FilesystemEnumerator {
	return &FilesystemEnumerator{
		config: config,
		logger: logging.GetLogger("enum"),
	}
}

// fileEntry holds metadata collected during the walk phase.
type fileEntry struct {
	path    string
	archive bool
}

// Enumerate walks the filesystem and yields class file blobs.
// Phase 1: Walk directory tree and collect eligible file paths (fast, sequential).
// Phase 2: Read files and invoke callback in parallel.
func (e *FilesystemEnumerator) Enumerate(ctx context.Context, callback func(content []byte, blobID types.BlobID, prov types.Provenance) error) error {
	for _, pattern := range e.config.Include {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid include glob %q", pattern)
		}
	}

	// Load .gitignore patterns if present
	var ignore *gitignore.GitIgnore
	gitignorePath := filepath.Join(e.config.Root, ".gitignore")
	if _, err := os.Stat(gitignorePath); err == nil {
		ignore, _ = gitignore.CompileIgnoreFile(gitignorePath)
	}

	// Phase 1: Walk and collect eligible file paths
	var files []fileEntry
	err := filepath.Walk(e.config.Root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if info.IsDir() {
			if path != e.config.Root && !e.config.IncludeHidden && isHidden(info.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		if info.Mode()&os.ModeSymlink != 0 && !e.config.FollowSymlinks {
			return nil
		}

		if !e.config.IncludeHidden && isHidden(info.Name()) {
			return nil
		}

		if e.config.MaxFileSize > 0 && info.Size() > e.config.MaxFileSize {
			return nil
		}

		kind := kindOf(path)
		if kind == kindOther || (kind == kindArchive && e.config.SkipArchives) {
			return nil
		}

		relPath, err := filepath.Rel(e.config.Root, path)
		if err != nil {
			return err
		}
		if relPath == "." {
			relPath = filepath.Base(path)
		}

		if ignore != nil && ignore.MatchesPath(relPath) {
			return nil
		}

		if !e.included(filepath.ToSlash(relPath)) {
			return nil
		}

		files = append(files, fileEntry{path: path, archive: kind == kindArchive})
		return nil
	})
	if err != nil {
		return err
	}

	// Phase 2: Read and process files in parallel
	numReaders := e.config.Workers
	if numReaders < 1 {
		numReaders = runtime.NumCPU()
	}

	origCtx := ctx
	g, ctx := errgroup.WithContext(ctx)
	pathsCh := make(chan fileEntry, numReaders*2)

	// Feed paths to readers
	g.Go(func() error {
		defer close(pathsCh)
		for _, f := range files {
			select {
			case pathsCh <- f:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	// Parallel readers
	for i := 0; i < numReaders; i++ {
		g.Go(func() error {
			for f := range pathsCh {
				if err := e.processFile(ctx, f, callback); err != nil {
					return err
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	// If the caller's context was cancelled but all goroutines finished
	// before noticing, propagate the cancellation.
	if origCtx.Err() != nil {
		return origCtx.Err()
	}
	return nil
}

// processFile reads a single file and invokes the callback for it or for
// each class file inside it.
func (e *FilesystemEnumerator) processFile(ctx context.Context, f fileEntry, callback func(content []byte, blobID types.BlobID, prov types.Provenance) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	content, err := os.ReadFile(f.path)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", f.path, err)
	}

	if f.archive {
		entries, err := ExtractClasses(content, e.config.MaxFileSize)
		if err != nil {
			e.logger.Warn().
				Err(err).
				Str("path", f.path).
				Msg("Skipping unreadable archive")
			return nil
		}
		for _, entry := range entries {
			prov := types.ArchiveProvenance{
				ArchivePath: f.path,
				MemberPath:  entry.Name,
			}
			if err := callback(entry.Content, types.ComputeBlobID(entry.Content), prov); err != nil {
				return err
			}
		}
		return nil
	}

	if !classfile.IsClassFile(content) {
		return nil
	}

	blobID := types.ComputeBlobID(content)
	prov := types.FileProvenance{
		FilePath: f.path,
	}

	return callback(content, blobID, prov)
}

// included reports whether relPath passes the include globs.
func (e *FilesystemEnumerator) included(relPath string) bool {
	if len(e.config.Include) == 0 {
		return true
	}
	for _, pattern := range e.config.Include {
		if ok, _ := doublestar.Match(pattern, relPath); ok {
			return true
		}
	}
	return false
}

type fileKind int

const (
	kindOther fileKind = iota
	kindClass
	kindArchive
)

// kindOf classifies a path by extension.
func kindOf(path string) fileKind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".class":
		return kindClass
	case ".jar", ".war", ".ear", ".zip":
		return kindArchive
	default:
		return kindOther
	}
}

// isHidden checks if a filename is hidden (starts with .).
// The special entries "." and ".." are NOT considered hidden.
func isHidden(name string) bool {
	if name == "." || name == ".." {
		return false
	}
	return strings.HasPrefix(name, ".")
}
