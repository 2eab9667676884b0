package repr

import (
	"sort"

	"github.com/minio/highwayhash"
)

var digestKey = []byte("0123456789ABCDEF0123456789ABCDEF")

// Digest hashes data with highwayhash.
func Digest(data []byte) (uint64, error) {
	hash, err := highwayhash.New64(digestKey)
	if err != nil {
		return 0, err
	}
	_, err = hash.Write(data)
	return hash.Sum64(), err
}

// digestKeys hashes a set of keys independently of their order.
func digestKeys(keys []string) uint64 {
	sort.Strings(keys)
	hash, err := highwayhash.New64(digestKey)
	if err != nil {
		panic(err)
	}
	for _, k := range keys {
		_, _ = hash.Write([]byte(k))
		_, _ = hash.Write([]byte{0})
	}
	return hash.Sum64()
}
