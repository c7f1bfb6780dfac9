package types

// Provenance tracks where a class file was discovered.
type Provenance interface {
	Kind() string
	// Path returns displayable path
	Path() string
}

// FileProvenance for class files on disk.
type FileProvenance struct {
	FilePath string
}

// Kind returns "file".
func (f FileProvenance) Kind() string {
	return "file"
}

// Path returns the file path.
func (f FileProvenance) Path() string {
	return f.FilePath
}
