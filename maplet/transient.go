package maplet

import (
	"sort"
)

// Transient is an in-memory MultiMaplet backing deltas and scratch maps.
type Transient[K comparable, V any] struct {
	identity func(V) []byte
	entries  map[K]map[string]V
}

// NewTransient creates an empty in-memory maplet.
func NewTransient[K comparable, V any](values Codec[V]) *Transient[K, V] {
	return &Transient[K, V]{identity: values.Identity, entries: map[K]map[string]V{}}
}

func (t *Transient[K, V]) Contains(key K) bool {
	return len(t.entries[key]) > 0
}

func (t *Transient[K, V]) Get(key K) []V {
	return sortedValues(t.entries[key])
}

func (t *Transient[K, V]) Put(key K, value V) {
	values, ok := t.entries[key]
	if !ok {
		values = map[string]V{}
		t.entries[key] = values
	}
	values[string(t.identity(value))] = value
}

func (t *Transient[K, V]) PutAll(key K, values []V) {
	for _, v := range values {
		t.Put(key, v)
	}
}

func (t *Transient[K, V]) PutAllFrom(other MultiMaplet[K, V]) {
	other.ForEachEntry(func(key K, values []V) bool {
		t.PutAll(key, values)
		return true
	})
}

func (t *Transient[K, V]) Replace(key K, values []V) {
	delete(t.entries, key)
	t.PutAll(key, values)
}

func (t *Transient[K, V]) ReplaceAll(other MultiMaplet[K, V]) {
	other.ForEachEntry(func(key K, values []V) bool {
		t.Replace(key, values)
		return true
	})
}

func (t *Transient[K, V]) Remove(key K) {
	delete(t.entries, key)
}

func (t *Transient[K, V]) RemoveFrom(key K, value V) {
	values, ok := t.entries[key]
	if !ok {
		return
	}
	delete(values, string(t.identity(value)))
	if len(values) == 0 {
		delete(t.entries, key)
	}
}

func (t *Transient[K, V]) RemoveAll(key K, values []V) {
	for _, v := range values {
		t.RemoveFrom(key, v)
	}
}

// ForEachEntry visits entries in unspecified order.
func (t *Transient[K, V]) ForEachEntry(fn func(key K, values []V) bool) {
	for key, values := range t.entries {
		if len(values) == 0 {
			continue
		}
		if !fn(key, sortedValues(values)) {
			return
		}
	}
}

// Keys returns the keys holding at least one value.
func (t *Transient[K, V]) Keys() []K {
	ret := make([]K, 0, len(t.entries))
	for key, values := range t.entries {
		if len(values) > 0 {
			ret = append(ret, key)
		}
	}
	return ret
}

func (t *Transient[K, V]) Flush(bool) error {
	return nil
}

func (t *Transient[K, V]) Close() error {
	t.entries = map[K]map[string]V{}
	return nil
}

func sortedValues[V any](values map[string]V) []V {
	if len(values) == 0 {
		return nil
	}
	ids := make([]string, 0, len(values))
	for id := range values {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	ret := make([]V, 0, len(ids))
	for _, id := range ids {
		ret = append(ret, values[id])
	}
	return ret
}
