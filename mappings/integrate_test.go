package mappings_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
	"github.com/viant/depview/maplet"
	"github.com/viant/depview/mappings"
	"github.com/viant/depview/storage"
)

func dumpString(t *testing.T, m *mappings.Mappings) string {
	t.Helper()
	buf := &bytes.Buffer{}
	require.NoError(t, m.ToStream(buf))
	return buf.String()
}

func TestMappings_ToStream(t *testing.T) {
	populate := func(f *fixture, reversed bool) {
		units := []unit{
			compiled("p/A.java", f.class("p/A", public)),
			compiled("p/B.java", f.class("p/B", public, f.extends("p/A"))),
			compiled("q/C.java", f.class("q/C", public, withUsages(f.call("p/B", "run", "()V")))),
		}
		if reversed {
			for i, j := 0, len(units)-1; i < j; i, j = i+1, j-1 {
				units[i], units[j] = units[j], units[i]
			}
		}
		f.build(units...)
	}
	first, second := newFixture(t), newFixture(t)
	populate(first, false)
	populate(second, true)

	dump := dumpString(t, first.base)
	assert.Equal(t, dump, dumpString(t, second.base))
	assert.Contains(t, dump, "begin of ClassToSubclasses\n  p/A ->\n    p/B\nend of ClassToSubclasses\n")
	assert.Contains(t, dump, "  p/B ->\n    q/C\n")
	assert.Contains(t, dump, "  q/C.java ->\n    q/C\n")
	assert.Contains(t, dump, "begin of ShortClassNameIndex\n")
}

func TestMappings_DumpTo(t *testing.T) {
	f := newFixture(t)
	f.build(compiled("p/A.java", f.class("p/A", public)))
	target := t.TempDir()
	require.NoError(t, f.base.DumpTo(context.Background(), afs.New(), target))

	for _, section := range []string{
		mappings.ClassToSubclassesSection,
		mappings.ClassToClassDependencySection,
		mappings.SourceFileToClassesSection,
		mappings.ClassToSourceFileSection,
		mappings.ShortClassNameIndexSection,
	} {
		data, err := os.ReadFile(filepath.Join(target, section+".txt"))
		require.NoError(t, err, section)
		assert.Contains(t, string(data), "begin of "+section)
	}
}

func TestMappings_Reopen(t *testing.T) {
	root := t.TempDir()
	base, err := mappings.New(root)
	require.NoError(t, err)
	f := &fixture{t: t, root: root, base: base, ctx: base.Context()}
	f.build(
		compiled("p/A.java", f.class("p/A", public)),
		compiled("p/B.java", f.class("p/B", public, f.extends("p/A"))),
	)
	require.NoError(t, base.Close())

	reopened, err := mappings.New(root)
	require.NoError(t, err)
	defer reopened.Close()
	sources, err := reopened.GetSources("p/B")
	require.NoError(t, err)
	assert.Equal(t, []string{"p/B.java"}, sources)
	classes, err := reopened.GetClasses("p/B.java")
	require.NoError(t, err)
	require.Len(t, classes, 1)
	assert.Equal(t, "p/B", reopened.Context().Value(classes[0].ID()))
}

func TestMappings_CorruptedEntry(t *testing.T) {
	f := newFixture(t)
	f.build(compiled("p/A.java", f.class("p/A", public)))
	name := f.ctx.Get("p/A")
	require.NoError(t, f.base.Close())

	db, err := storage.Open(storage.DefaultConfig(filepath.Join(f.root, mappings.SourceToClassTable)))
	require.NoError(t, err)
	key := binary.AppendUvarint(nil, uint64(len("p/A.java")))
	key = append(key, "p/A.java"...)
	key = append(key, maplet.NameKeys.Encode(name)...)
	require.NoError(t, db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, []byte{0xff})
	}))
	require.NoError(t, db.Close())

	reopened, err := mappings.New(f.root)
	require.NoError(t, err)
	defer reopened.Close()
	_, err = reopened.GetClasses("p/A.java")
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrCorrupted))
}

func TestMappings_Lifecycle(t *testing.T) {
	tests := []struct {
		description string
		run         func(f *fixture)
	}{
		{
			description: "differentiating a delta twice",
			run: func(f *fixture) {
				delta := f.delta(nil)
				defer delta.Close()
				_ = f.base.DifferentiateOnRebuild(delta)
				_ = f.base.DifferentiateOnRebuild(delta)
			},
		},
		{
			description: "integrating an undifferentiated delta",
			run: func(f *fixture) {
				delta := f.delta(nil)
				defer delta.Close()
				_ = f.base.Integrate(context.Background(), delta)
			},
		},
		{
			description: "creating a delta of a delta",
			run: func(f *fixture) {
				delta := f.delta(nil)
				defer delta.Close()
				_, _ = delta.CreateDelta()
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			f := newFixture(t)
			assert.Panics(t, func() { tc.run(f) })
		})
	}
}

func TestMappings_Clean(t *testing.T) {
	f := newFixture(t)
	f.build(compiled("p/A.java", f.class("p/A", public)))
	require.NoError(t, f.base.Clean(context.Background()))
	classes, err := f.base.GetClasses("p/A.java")
	require.NoError(t, err)
	assert.Empty(t, classes)
}

func TestIntegrate_MovedClass(t *testing.T) {
	f := newFixture(t)
	f.build(
		compiled("p/Old.java", f.class("p/A", public)),
		compiled("p/B.java", f.class("p/B", public, withUsages(f.classUsage("p/A")))),
	)
	incremental, affected := f.round(&mappings.Request{Removed: []string{"p/Old.java"}},
		compiled("p/A.java", f.class("p/A", public)),
	)
	assert.True(t, incremental)
	assert.NotContains(t, affected, "p/Old.java")

	sources, err := f.base.GetSources("p/A")
	require.NoError(t, err)
	assert.Equal(t, []string{"p/A.java"}, sources)
	assert.Contains(t, dumpString(t, f.base), "  p/A ->\n    p/B\n")
}

func TestIntegrate_TransientDelta(t *testing.T) {
	f := newFixture(t, mappings.WithTransientDelta(true))
	f.build(
		compiled("p/A.java", f.class("p/A", public, withMethods(f.method("m", public, "()V")))),
		compiled("p/B.java", f.class("p/B", public, withUsages(f.call("p/A", "m", "()V")))),
	)
	incremental, affected := f.round(nil, compiled("p/A.java", f.class("p/A", public)))
	assert.True(t, incremental)
	assert.Equal(t, []string{"p/B.java"}, affected)
}

func TestMappings_RebuildStoreFailure(t *testing.T) {
	f := newFixture(t)
	delta := f.delta([]unit{compiled("p/A.java", f.class("p/A", public))})
	delta.Backend().RegisterImports("p.A", []string{"q.B"}, nil)
	require.NoError(t, delta.Close())

	err := f.base.DifferentiateOnRebuild(delta)
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrCorrupted))
}
