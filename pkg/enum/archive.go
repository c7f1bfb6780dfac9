package enum

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/korniloval/fierix/pkg/classfile"
)

// maxNestingDepth bounds archives inside archives (war → WEB-INF/lib/*.jar).
const maxNestingDepth = 2

// ArchiveEntry is a class file read from an archive.
type ArchiveEntry struct {
	Name    string // path within the archive, nested archives joined with "!/"
	Content []byte
}

// ExtractClasses returns the class files in a jar, war, ear or zip archive,
// descending into nested archives. Entries larger than maxSize are skipped
// (0 = no limit). module-info and multi-release duplicates are kept; the
// scanner decides what to do with them.
func ExtractClasses(content []byte, maxSize int64) ([]ArchiveEntry, error) {
	return extractClasses(content, maxSize, 0)
}

func extractClasses(content []byte, maxSize int64, depth int) ([]ArchiveEntry, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	var results []ArchiveEntry
	for _, file := range zr.File {
		if file.FileInfo().IsDir() {
			continue
		}
		if maxSize > 0 && int64(file.UncompressedSize64) > maxSize {
			continue
		}

		kind := kindOf(file.Name)
		if kind == kindOther || (kind == kindArchive && depth >= maxNestingDepth) {
			continue
		}

		data, err := readEntry(file)
		if err != nil {
			continue
		}

		if kind == kindArchive {
			nested, err := extractClasses(data, maxSize, depth+1)
			if err != nil {
				continue
			}
			for _, n := range nested {
				results = append(results, ArchiveEntry{
					Name:    file.Name + "!/" + n.Name,
					Content: n.Content,
				})
			}
			continue
		}

		if !classfile.IsClassFile(data) {
			continue
		}
		results = append(results, ArchiveEntry{
			Name:    path.Clean(strings.TrimPrefix(file.Name, "/")),
			Content: data,
		})
	}

	return results, nil
}

func readEntry(file *zip.File) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
