package mappings

import (
	"sort"
)

// FileSet is a set of relative source paths.
type FileSet map[string]struct{}

// NewFileSet creates a set holding files.
func NewFileSet(files ...string) FileSet {
	ret := make(FileSet, len(files))
	for _, f := range files {
		ret[f] = struct{}{}
	}
	return ret
}

// Add adds file and reports whether it was absent.
func (s FileSet) Add(file string) bool {
	if _, ok := s[file]; ok {
		return false
	}
	s[file] = struct{}{}
	return true
}

// AddAll adds every file.
func (s FileSet) AddAll(files ...string) {
	for _, f := range files {
		s[f] = struct{}{}
	}
}

// Contains reports whether file is in the set; a nil set contains nothing.
func (s FileSet) Contains(file string) bool {
	_, ok := s[file]
	return ok
}

// Remove removes file.
func (s FileSet) Remove(file string) {
	delete(s, file)
}

// Sorted returns the files in lexical order.
func (s FileSet) Sorted() []string {
	ret := make([]string, 0, len(s))
	for f := range s {
		ret = append(ret, f)
	}
	sort.Strings(ret)
	return ret
}
