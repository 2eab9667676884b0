package naming

import (
	"fmt"
	"sync"
)

// Enumerator maps strings to names and back. Assignment is monotonic: a string keeps its name forever.
type Enumerator interface {
	// Enumerate returns the name of value, assigning a new one if needed.
	Enumerate(value string) Name
	// Value returns the string of name.
	Value(name Name) string
	// Flush persists pending state; memoryOnly drops in-memory caches instead.
	Flush(memoryOnly bool) error
	Close() error
}

// MemoryEnumerator is a transient enumerator.
type MemoryEnumerator struct {
	mu     sync.Mutex
	ids    map[string]Name
	values []string
}

// NewMemoryEnumerator creates an empty transient enumerator.
func NewMemoryEnumerator() *MemoryEnumerator {
	return &MemoryEnumerator{
		ids:    map[string]Name{"": Empty},
		values: []string{""},
	}
}

func (e *MemoryEnumerator) Enumerate(value string) Name {
	e.mu.Lock()
	defer e.mu.Unlock()
	if id, ok := e.ids[value]; ok {
		return id
	}
	id := Name(len(e.values))
	e.values = append(e.values, value)
	e.ids[value] = id
	return id
}

func (e *MemoryEnumerator) Value(name Name) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if name < 0 || int(name) >= len(e.values) {
		panic(fmt.Sprintf("unknown name %d", name))
	}
	return e.values[name]
}

// Len returns the number of interned strings, the empty string included.
func (e *MemoryEnumerator) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.values)
}

func (e *MemoryEnumerator) Flush(bool) error {
	return nil
}

func (e *MemoryEnumerator) Close() error {
	return nil
}
