package naming

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/viant/depview/storage"
)

var (
	nextKey     = []byte("#next")
	valuePrefix = byte('s')
	namePrefix  = byte('n')
)

// PersistentEnumerator keeps the string table in badger and caches it in memory.
type PersistentEnumerator struct {
	mu     sync.Mutex
	db     *storage.DB
	next   Name
	ids    map[string]Name
	values map[Name]string
}

// OpenEnumerator opens the string table stored in db.
func OpenEnumerator(db *storage.DB) (*PersistentEnumerator, error) {
	ret := &PersistentEnumerator{db: db, next: 1}
	ret.resetCaches()
	err := db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(nextKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		data, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if len(data) != 4 {
			return fmt.Errorf("invalid counter length %d", len(data))
		}
		ret.next = Name(binary.BigEndian.Uint32(data))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: read name counter: %v", storage.ErrCorrupted, err)
	}
	return ret, nil
}

func (e *PersistentEnumerator) resetCaches() {
	e.ids = map[string]Name{"": Empty}
	e.values = map[Name]string{Empty: ""}
}

func (e *PersistentEnumerator) Enumerate(value string) Name {
	e.mu.Lock()
	defer e.mu.Unlock()
	if id, ok := e.ids[value]; ok {
		return id
	}
	valueKey := append([]byte{valuePrefix}, value...)
	id := Empty
	err := e.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(valueKey)
		switch {
		case err == nil:
			data, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			id = Name(binary.BigEndian.Uint32(data))
			return nil
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		id = e.next
		encoded := nameBytes(id)
		if err := txn.Set(valueKey, encoded); err != nil {
			return err
		}
		if err := txn.Set(append([]byte{namePrefix}, encoded...), []byte(value)); err != nil {
			return err
		}
		return txn.Set(nextKey, nameBytes(id+1))
	})
	if err != nil {
		storage.Fail("enumerate "+value, err)
	}
	if id >= e.next {
		e.next = id + 1
	}
	e.ids[value] = id
	e.values[id] = value
	return id
}

func (e *PersistentEnumerator) Value(name Name) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if value, ok := e.values[name]; ok {
		return value
	}
	var value string
	err := e.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(append([]byte{namePrefix}, nameBytes(name)...))
		if err != nil {
			return err
		}
		data, err := item.ValueCopy(nil)
		value = string(data)
		return err
	})
	if err != nil {
		storage.Fail(fmt.Sprintf("resolve name %d", name), err)
	}
	e.values[name] = value
	e.ids[value] = name
	return value
}

func (e *PersistentEnumerator) Flush(memoryOnly bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if memoryOnly {
		e.resetCaches()
		return nil
	}
	return e.db.Sync()
}

func (e *PersistentEnumerator) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.db.Close()
}

func nameBytes(n Name) []byte {
	ret := make([]byte, 4)
	binary.BigEndian.PutUint32(ret, uint32(n))
	return ret
}
