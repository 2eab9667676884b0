package maplet

import (
	"encoding/binary"
	"errors"
	"fmt"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/ristretto/v2"
	"github.com/viant/depview/storage"
)

// DefaultCacheSize is the number of decoded keys kept in memory per persistent maplet.
const DefaultCacheSize = 512

// Persistent is a MultiMaplet stored in its own badger database.
// Every (key, value) pair is one entry under uvarint(len(key)) | key | identity(value).
type Persistent[K comparable, V any] struct {
	name   string
	db     *storage.DB
	keys   KeyCodec[K]
	values Codec[V]
	cache  *ristretto.Cache[string, []V]
}

// OpenPersistent opens the maplet database described by cfg.
func OpenPersistent[K comparable, V any](name string, cfg storage.Config, keys KeyCodec[K], values Codec[V], cacheSize int) (*Persistent[K, V], error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := ristretto.NewCache(&ristretto.Config[string, []V]{
		NumCounters: int64(cacheSize) * 10,
		MaxCost:     int64(cacheSize),
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create cache for %s: %w", name, err)
	}
	db, err := storage.Open(cfg)
	if err != nil {
		cache.Close()
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return &Persistent[K, V]{name: name, db: db, keys: keys, values: values, cache: cache}, nil
}

// Name returns the maplet name used in diagnostics.
func (p *Persistent[K, V]) Name() string {
	return p.name
}

func (p *Persistent[K, V]) prefix(key K) []byte {
	encoded := p.keys.Encode(key)
	ret := binary.AppendUvarint(make([]byte, 0, len(encoded)+binary.MaxVarintLen32), uint64(len(encoded)))
	return append(ret, encoded...)
}

func (p *Persistent[K, V]) entryKey(prefix []byte, value V) []byte {
	return append(slices.Clip(prefix), p.values.Identity(value)...)
}

func (p *Persistent[K, V]) fail(op string, err error) {
	storage.Fail(p.name+": "+op, err)
}

func (p *Persistent[K, V]) Contains(key K) bool {
	prefix := p.prefix(key)
	if values, ok := p.cache.Get(string(prefix)); ok {
		return len(values) > 0
	}
	found := false
	err := p.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		it.Seek(prefix)
		found = it.ValidForPrefix(prefix)
		return nil
	})
	if err != nil {
		p.fail("contains", err)
	}
	return found
}

func (p *Persistent[K, V]) Get(key K) []V {
	prefix := p.prefix(key)
	if values, ok := p.cache.Get(string(prefix)); ok {
		return slices.Clone(values)
	}
	var ret []V
	err := p.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			value, err := p.decode(it.Item(), len(prefix))
			if err != nil {
				return err
			}
			ret = append(ret, value)
		}
		return nil
	})
	if err != nil {
		p.fail("get", err)
	}
	p.cache.Set(string(prefix), ret, 1)
	p.cache.Wait()
	return slices.Clone(ret)
}

func (p *Persistent[K, V]) decode(item *badger.Item, prefixLen int) (V, error) {
	identity := item.KeyCopy(nil)[prefixLen:]
	payload, err := item.ValueCopy(nil)
	if err != nil {
		var zero V
		return zero, err
	}
	return p.values.Decode(identity, payload)
}

func (p *Persistent[K, V]) Put(key K, value V) {
	p.PutAll(key, []V{value})
}

func (p *Persistent[K, V]) PutAll(key K, values []V) {
	if len(values) == 0 {
		return
	}
	prefix := p.prefix(key)
	p.cache.Del(string(prefix))
	batch := p.db.NewWriteBatch()
	defer batch.Cancel()
	for _, v := range values {
		if err := batch.Set(p.entryKey(prefix, v), p.values.Encode(v)); err != nil {
			p.fail("put", err)
		}
	}
	if err := batch.Flush(); err != nil {
		p.fail("put", err)
	}
}

func (p *Persistent[K, V]) PutAllFrom(other MultiMaplet[K, V]) {
	other.ForEachEntry(func(key K, values []V) bool {
		p.PutAll(key, values)
		return true
	})
}

func (p *Persistent[K, V]) Replace(key K, values []V) {
	prefix := p.prefix(key)
	p.cache.Del(string(prefix))
	keep := make(map[string]V, len(values))
	for _, v := range values {
		keep[string(p.entryKey(prefix, v))] = v
	}
	stale := p.entryKeys(prefix, func(entry []byte) bool {
		_, ok := keep[string(entry)]
		return !ok
	})
	batch := p.db.NewWriteBatch()
	defer batch.Cancel()
	for _, entry := range stale {
		if err := batch.Delete(entry); err != nil {
			p.fail("replace", err)
		}
	}
	for entry, v := range keep {
		if err := batch.Set([]byte(entry), p.values.Encode(v)); err != nil {
			p.fail("replace", err)
		}
	}
	if err := batch.Flush(); err != nil {
		p.fail("replace", err)
	}
}

// entryKeys lists the entry keys under prefix accepted by filter.
func (p *Persistent[K, V]) entryKeys(prefix []byte, filter func(entry []byte) bool) [][]byte {
	var ret [][]byte
	err := p.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			entry := it.Item().KeyCopy(nil)
			if filter(entry) {
				ret = append(ret, entry)
			}
		}
		return nil
	})
	if err != nil {
		p.fail("scan", err)
	}
	return ret
}

func (p *Persistent[K, V]) ReplaceAll(other MultiMaplet[K, V]) {
	other.ForEachEntry(func(key K, values []V) bool {
		p.Replace(key, values)
		return true
	})
}

func (p *Persistent[K, V]) Remove(key K) {
	prefix := p.prefix(key)
	p.cache.Del(string(prefix))
	p.delete("remove", p.entryKeys(prefix, func([]byte) bool { return true }))
}

func (p *Persistent[K, V]) RemoveFrom(key K, value V) {
	p.RemoveAll(key, []V{value})
}

func (p *Persistent[K, V]) RemoveAll(key K, values []V) {
	if len(values) == 0 {
		return
	}
	prefix := p.prefix(key)
	p.cache.Del(string(prefix))
	entries := make([][]byte, 0, len(values))
	for _, v := range values {
		entries = append(entries, p.entryKey(prefix, v))
	}
	p.delete("remove", entries)
}

func (p *Persistent[K, V]) delete(op string, entries [][]byte) {
	if len(entries) == 0 {
		return
	}
	batch := p.db.NewWriteBatch()
	defer batch.Cancel()
	for _, entry := range entries {
		if err := batch.Delete(entry); err != nil {
			p.fail(op, err)
		}
	}
	if err := batch.Flush(); err != nil {
		p.fail(op, err)
	}
}

// ForEachEntry visits entries in key byte order.
func (p *Persistent[K, V]) ForEachEntry(fn func(key K, values []V) bool) {
	var (
		current []byte
		key     K
		values  []V
		stopped bool
	)
	emit := func() {
		if current != nil && !stopped {
			stopped = !fn(key, values)
		}
	}
	err := p.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid() && !stopped; it.Next() {
			entry := it.Item().Key()
			size, n := binary.Uvarint(entry)
			if n <= 0 || uint64(len(entry)-n) < size {
				return errors.New("malformed entry key")
			}
			prefixLen := n + int(size)
			if current == nil || string(entry[:prefixLen]) != string(current) {
				emit()
				if stopped {
					return nil
				}
				current = slices.Clone(entry[:prefixLen])
				decoded, err := p.keys.Decode(current[n:])
				if err != nil {
					return err
				}
				key = decoded
				values = nil
			}
			value, err := p.decode(it.Item(), prefixLen)
			if err != nil {
				return err
			}
			values = append(values, value)
		}
		return nil
	})
	if err != nil {
		p.fail("iterate", err)
	}
	emit()
}

func (p *Persistent[K, V]) Flush(memoryOnly bool) error {
	p.cache.Clear()
	if memoryOnly {
		return nil
	}
	return p.db.Sync()
}

func (p *Persistent[K, V]) Close() error {
	p.cache.Close()
	return p.db.Close()
}
