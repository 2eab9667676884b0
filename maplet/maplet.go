// Package maplet provides the multi-valued indexes of a dependency store,
// in a transient (in-memory) and a persistent (badger) flavour.
package maplet

import (
	"encoding/binary"
	"fmt"

	"github.com/viant/depview/naming"
)

// MultiMaplet maps a key to a set of values. Values are identified by their codec identity;
// putting a value with an existing identity replaces it.
type MultiMaplet[K comparable, V any] interface {
	Contains(key K) bool
	// Get returns the values of key ordered by identity, nil when absent.
	Get(key K) []V
	Put(key K, value V)
	PutAll(key K, values []V)
	// PutAllFrom adds every entry of other.
	PutAllFrom(other MultiMaplet[K, V])
	// Replace sets the values of key; an empty list removes the key.
	Replace(key K, values []V)
	// ReplaceAll replaces every key present in other.
	ReplaceAll(other MultiMaplet[K, V])
	Remove(key K)
	RemoveFrom(key K, value V)
	RemoveAll(key K, values []V)
	// ForEachEntry visits entries until fn returns false. fn must not modify the maplet.
	ForEachEntry(fn func(key K, values []V) bool)
	// Flush persists pending writes; memoryOnly only drops caches.
	Flush(memoryOnly bool) error
	Close() error
}

// KeyCodec converts keys to and from bytes.
type KeyCodec[K comparable] struct {
	Encode func(K) []byte
	Decode func([]byte) (K, error)
}

// Codec identifies and encodes values. Identity bytes are part of the persisted key,
// Decode receives them along with the encoded payload.
type Codec[V any] struct {
	Identity func(V) []byte
	Encode   func(V) []byte
	Decode   func(identity, payload []byte) (V, error)
}

// NameKeys encodes names as big-endian uint32.
var NameKeys = KeyCodec[naming.Name]{
	Encode: nameBytes,
	Decode: func(data []byte) (naming.Name, error) {
		if len(data) != 4 {
			return 0, fmt.Errorf("invalid name key length %d", len(data))
		}
		return naming.Name(binary.BigEndian.Uint32(data)), nil
	},
}

// StringKeys encodes strings as raw bytes.
var StringKeys = KeyCodec[string]{
	Encode: func(s string) []byte { return []byte(s) },
	Decode: func(data []byte) (string, error) { return string(data), nil },
}

// NameValues stores names entirely in their identity.
var NameValues = Codec[naming.Name]{
	Identity: nameBytes,
	Encode:   func(naming.Name) []byte { return nil },
	Decode: func(identity, _ []byte) (naming.Name, error) {
		return NameKeys.Decode(identity)
	},
}

// StringValues stores strings entirely in their identity.
var StringValues = Codec[string]{
	Identity: func(s string) []byte { return []byte(s) },
	Encode:   func(string) []byte { return nil },
	Decode:   func(identity, _ []byte) (string, error) { return string(identity), nil },
}

func nameBytes(n naming.Name) []byte {
	ret := make([]byte, 4)
	binary.BigEndian.PutUint32(ret, uint32(n))
	return ret
}
