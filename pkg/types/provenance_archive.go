package types

import "fmt"

// ArchiveProvenance tracks class files read from a jar or zip archive.
type ArchiveProvenance struct {
	ArchivePath string // path to the jar
	MemberPath  string // entry inside the jar, e.g. "com/foo/Bar.class"
}

// Kind returns "archive".
func (a ArchiveProvenance) Kind() string {
	return "archive"
}

// Path returns "<archive>!/<member>", the notation the JVM uses for jar URLs.
func (a ArchiveProvenance) Path() string {
	return fmt.Sprintf("%s!/%s", a.ArchivePath, a.MemberPath)
}
