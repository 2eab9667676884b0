// Package naming interns class, member and file names into compact integer handles.
package naming

import (
	"sort"
)

// Name is an interned string handle.
type Name int32

// Empty is the handle of the empty string in every enumerator.
const Empty Name = 0

// NameSet is a set of names.
type NameSet map[Name]struct{}

// NewNameSet creates a set holding names.
func NewNameSet(names ...Name) NameSet {
	ret := make(NameSet, len(names))
	for _, n := range names {
		ret[n] = struct{}{}
	}
	return ret
}

// Add adds n and reports whether the set changed.
func (s NameSet) Add(n Name) bool {
	if _, ok := s[n]; ok {
		return false
	}
	s[n] = struct{}{}
	return true
}

// AddAll adds every element of other and reports whether the set changed.
func (s NameSet) AddAll(other NameSet) bool {
	changed := false
	for n := range other {
		if s.Add(n) {
			changed = true
		}
	}
	return changed
}

// Contains reports whether n is in the set.
func (s NameSet) Contains(n Name) bool {
	_, ok := s[n]
	return ok
}

// Remove removes n and reports whether it was present.
func (s NameSet) Remove(n Name) bool {
	if _, ok := s[n]; !ok {
		return false
	}
	delete(s, n)
	return true
}

// RemoveAll removes every element of other and reports whether the set changed.
func (s NameSet) RemoveAll(other NameSet) bool {
	changed := false
	for n := range other {
		if s.Remove(n) {
			changed = true
		}
	}
	return changed
}

// Clone returns a copy of the set.
func (s NameSet) Clone() NameSet {
	ret := make(NameSet, len(s))
	for n := range s {
		ret[n] = struct{}{}
	}
	return ret
}

// Equal reports whether both sets hold the same names.
func (s NameSet) Equal(other NameSet) bool {
	if len(s) != len(other) {
		return false
	}
	for n := range s {
		if !other.Contains(n) {
			return false
		}
	}
	return true
}

// Sorted returns the names in ascending handle order.
func (s NameSet) Sorted() []Name {
	ret := make([]Name, 0, len(s))
	for n := range s {
		ret = append(ret, n)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i] < ret[j] })
	return ret
}
