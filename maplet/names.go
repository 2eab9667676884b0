package maplet

import (
	"github.com/viant/depview/naming"
)

// IntIntMultiMaplet maps a name to a set of names.
type IntIntMultiMaplet struct {
	MultiMaplet[naming.Name, naming.Name]
}

// NewTransientNames creates an in-memory name to names maplet.
func NewTransientNames() IntIntMultiMaplet {
	return IntIntMultiMaplet{NewTransient[naming.Name, naming.Name](NameValues)}
}

// Names returns the values of key as a set, never nil.
func (m IntIntMultiMaplet) Names(key naming.Name) naming.NameSet {
	return naming.NewNameSet(m.Get(key)...)
}

// PutSet adds every name of values under key.
func (m IntIntMultiMaplet) PutSet(key naming.Name, values naming.NameSet) {
	m.PutAll(key, values.Sorted())
}

// ReplaceSet sets the values of key; an empty set removes it.
func (m IntIntMultiMaplet) ReplaceSet(key naming.Name, values naming.NameSet) {
	m.Replace(key, values.Sorted())
}

// RemoveSet removes every name of values from key.
func (m IntIntMultiMaplet) RemoveSet(key naming.Name, values naming.NameSet) {
	m.RemoveAll(key, values.Sorted())
}
