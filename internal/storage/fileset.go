package storage

import (
	"sort"
)

// FileSet maps site-relative slash paths to file contents.
// Build it with Add so that every key is a cleaned path.
type FileSet map[string][]byte

// Add stores data under the cleaned form of name. A later Add of the same
// path replaces the earlier content.
func (s FileSet) Add(name string, data []byte) error {
	cleaned, err := CleanEntryName(name)
	if err != nil {
		return err
	}
	s[cleaned] = data
	return nil
}

// Merge copies every file of other into s.
func (s FileSet) Merge(other FileSet) {
	for name, data := range other {
		s[name] = data
	}
}

// Paths returns the file paths in lexical order.
func (s FileSet) Paths() []string {
	paths := make([]string, 0, len(s))
	for p := range s {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Size returns the total number of content bytes.
func (s FileSet) Size() int64 {
	var total int64
	for _, data := range s {
		total += int64(len(data))
	}
	return total
}
