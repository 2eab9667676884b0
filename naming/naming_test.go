package naming_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/depview/naming"
	"github.com/viant/depview/storage"
)

func openEnumerator(t *testing.T, path string) *naming.PersistentEnumerator {
	t.Helper()
	db, err := storage.Open(storage.DefaultConfig(path))
	require.NoError(t, err)
	ret, err := naming.OpenEnumerator(db)
	require.NoError(t, err)
	return ret
}

func TestEnumerators(t *testing.T) {
	path := filepath.Join(t.TempDir(), "names.tab")
	persistent := openEnumerator(t, path)
	defer persistent.Close()

	for description, enumerator := range map[string]naming.Enumerator{
		"memory":     naming.NewMemoryEnumerator(),
		"persistent": persistent,
	} {
		t.Run(description, func(t *testing.T) {
			assert.Equal(t, naming.Empty, enumerator.Enumerate(""))
			first := enumerator.Enumerate("java/lang/String")
			second := enumerator.Enumerate("java/util/List")
			assert.NotEqual(t, first, second)
			assert.Equal(t, first, enumerator.Enumerate("java/lang/String"))
			assert.Equal(t, "java/util/List", enumerator.Value(second))
		})
	}
}

func TestPersistentEnumerator_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "names.tab")
	enumerator := openEnumerator(t, path)
	name := enumerator.Enumerate("p/A")
	require.NoError(t, enumerator.Flush(true))
	assert.Equal(t, "p/A", enumerator.Value(name))
	require.NoError(t, enumerator.Close())

	reopened := openEnumerator(t, path)
	defer reopened.Close()
	assert.Equal(t, "p/A", reopened.Value(name))
	assert.Equal(t, name, reopened.Enumerate("p/A"))
	assert.Greater(t, reopened.Enumerate("p/B"), name)
}

func TestPersistentEnumerator_UnknownName(t *testing.T) {
	enumerator := openEnumerator(t, filepath.Join(t.TempDir(), "names.tab"))
	defer enumerator.Close()
	resolve := func() (err error) {
		defer storage.Recover(&err)
		enumerator.Value(naming.Name(42))
		return nil
	}
	err := resolve()
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrCorrupted))
}

func TestNameSet(t *testing.T) {
	set := naming.NewNameSet(3, 1)
	assert.True(t, set.Add(2))
	assert.False(t, set.Add(2))
	assert.Equal(t, []naming.Name{1, 2, 3}, set.Sorted())

	clone := set.Clone()
	assert.True(t, clone.RemoveAll(naming.NewNameSet(1, 5)))
	assert.False(t, clone.Contains(1))
	assert.True(t, set.Contains(1))
	assert.False(t, set.Equal(clone))
	assert.True(t, clone.AddAll(naming.NewNameSet(1)))
	assert.True(t, set.Equal(clone))
}
