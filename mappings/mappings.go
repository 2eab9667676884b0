// Package mappings holds the dependency store of a Java build and the differential
// that decides which sources must be recompiled after a compilation round.
package mappings

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/viant/afs"
	"github.com/viant/afs/url"
	"github.com/viant/depview/maplet"
	"github.com/viant/depview/naming"
	"github.com/viant/depview/repr"
	"github.com/viant/depview/storage"
	"golang.org/x/sync/errgroup"
)

// Index directory names under the store root.
const (
	ClassToSubclassesTable = "classToSubclasses.tab"
	ClassToClassTable      = "classToClass.tab"
	ShortNamesTable        = "shortNames.tab"
	SourceToClassTable     = "sourceToClass.tab"
	ClassToSourceTable     = "classToSource.tab"
	NamesTable             = "names.tab"
)

// deletedClass is a class removed from one of its sources.
type deletedClass struct {
	repr repr.ClassFileRepr
	file string
}

// Mappings is a dependency store: the base store of a build, or a delta recording one compilation round.
type Mappings struct {
	mu       *sync.Mutex
	root     string
	isDelta  bool
	ctx      *repr.Context
	namesDB  *storage.DB
	logger   *slog.Logger
	trackers []AnnotationTracker
	analyzer Analyzer
	fs       afs.Service

	sourceBaseURL  string
	transientDelta bool
	cacheSize      int
	syncWrites     bool
	inMemory       bool

	// classToSubclasses maps a class to its direct subclasses and implementations.
	classToSubclasses maplet.IntIntMultiMaplet
	// classToClass maps a used class to the classes using it.
	classToClass maplet.IntIntMultiMaplet
	// shortNames maps a simple class name to qualified names; base store only.
	shortNames    maplet.IntIntMultiMaplet
	sourceToClass maplet.MultiMaplet[string, repr.ClassFileRepr]
	classToSource maplet.MultiMaplet[naming.Name, string]

	changedClasses      naming.NameSet
	changedFiles        FileSet
	deletedClasses      map[string]deletedClass
	addedClasses        map[naming.Name]repr.ClassFileRepr
	addedSuperClasses   maplet.IntIntMultiMaplet
	removedSuperClasses maplet.IntIntMultiMaplet
	removedFiles        []string
	// emptySources are compiled sources that produced no class.
	emptySources   FileSet
	postPasses     []func()
	differentiated bool
	rebuild        bool
	closed         bool
}

// New opens the store rooted at root, creating it when missing.
func New(root string, opts ...Option) (*Mappings, error) {
	ret := &Mappings{
		mu:        &sync.Mutex{},
		root:      root,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		cacheSize: maplet.DefaultCacheSize,
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.fs == nil {
		ret.fs = afs.New()
	}
	if err := ret.createImplementation(); err != nil {
		return nil, err
	}
	return ret, nil
}

// CreateDelta creates an overlay recording one compilation round. It shares the arena and lock of m.
func (m *Mappings) CreateDelta() (*Mappings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assertBase("create delta")
	ret := &Mappings{
		mu:             m.mu,
		isDelta:        true,
		ctx:            m.ctx,
		logger:         m.logger,
		trackers:       m.trackers,
		analyzer:       m.analyzer,
		fs:             m.fs,
		sourceBaseURL:  m.sourceBaseURL,
		transientDelta: m.transientDelta,
		cacheSize:      m.cacheSize,
		syncWrites:     m.syncWrites,
		inMemory:       m.inMemory,
	}
	if !ret.transientDelta && !ret.inMemory {
		ret.root = filepath.Join(m.root, "delta-"+uuid.NewString())
	}
	if err := ret.createImplementation(); err != nil {
		return nil, err
	}
	return ret, nil
}

func (m *Mappings) storageConfig(table string) storage.Config {
	return storage.Config{
		Path:       filepath.Join(m.root, table),
		InMemory:   m.inMemory,
		SyncWrites: m.syncWrites,
		Logger:     m.logger,
	}
}

func (m *Mappings) createImplementation() (err error) {
	if !m.isDelta {
		if m.namesDB, err = storage.Open(m.storageConfig(NamesTable)); err != nil {
			return err
		}
		names, err := naming.OpenEnumerator(m.namesDB)
		if err != nil {
			_ = m.namesDB.Close()
			return err
		}
		m.ctx = repr.NewContext(names)
	} else {
		m.changedClasses = naming.NewNameSet()
		m.changedFiles = NewFileSet()
		m.deletedClasses = map[string]deletedClass{}
		m.addedClasses = map[naming.Name]repr.ClassFileRepr{}
		m.addedSuperClasses = maplet.NewTransientNames()
		m.removedSuperClasses = maplet.NewTransientNames()
		m.emptySources = NewFileSet()
	}
	transient := m.isDelta && m.transientDelta
	if m.classToSubclasses, err = m.openNames(ClassToSubclassesTable, transient); err != nil {
		return err
	}
	if m.classToClass, err = m.openNames(ClassToClassTable, transient); err != nil {
		return err
	}
	if !m.isDelta {
		if m.shortNames, err = m.openNames(ShortNamesTable, false); err != nil {
			return err
		}
	}
	if m.sourceToClass, err = openMaplet(m, SourceToClassTable, transient, maplet.StringKeys, classFileCodec(m.ctx)); err != nil {
		return err
	}
	if m.classToSource, err = openMaplet(m, ClassToSourceTable, transient, maplet.NameKeys, maplet.StringValues); err != nil {
		return err
	}
	m.closed = false
	return nil
}

func (m *Mappings) openNames(table string, transient bool) (maplet.IntIntMultiMaplet, error) {
	ret, err := openMaplet(m, table, transient, maplet.NameKeys, maplet.NameValues)
	if err != nil {
		return maplet.IntIntMultiMaplet{}, err
	}
	return maplet.IntIntMultiMaplet{MultiMaplet: ret}, nil
}

func openMaplet[K comparable, V any](m *Mappings, table string, transient bool, keys maplet.KeyCodec[K], values maplet.Codec[V]) (maplet.MultiMaplet[K, V], error) {
	if transient {
		return maplet.NewTransient[K, V](values), nil
	}
	ret, err := maplet.OpenPersistent(table, m.storageConfig(table), keys, values, m.cacheSize)
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// classFileCodec identifies snapshots by class name and stores their persisted form.
func classFileCodec(ctx *repr.Context) maplet.Codec[repr.ClassFileRepr] {
	return maplet.Codec[repr.ClassFileRepr]{
		Identity: func(r repr.ClassFileRepr) []byte { return maplet.NameKeys.Encode(r.ID()) },
		Encode:   repr.MarshalClassFile,
		Decode: func(_, payload []byte) (repr.ClassFileRepr, error) {
			return repr.UnmarshalClassFile(ctx, payload)
		},
	}
}

// Context returns the arena shared by the store and its deltas.
func (m *Mappings) Context() *repr.Context {
	return m.ctx
}

// Backend returns the callbacks recording analyzer output into m.
func (m *Mappings) Backend() *Backend {
	return &Backend{mappings: m}
}

// Clean deletes every index and reopens an empty store.
func (m *Mappings) Clean(ctx context.Context) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assertBase("clean")
	if err = m.close(); err != nil {
		return err
	}
	if !m.inMemory {
		if err = m.fs.Delete(ctx, m.root); err != nil {
			return fmt.Errorf("failed to delete %v: %w", m.root, err)
		}
	}
	return m.createImplementation()
}

// Close releases every index. The base store also closes the shared arena; a persistent delta removes its directory.
func (m *Mappings) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.close()
}

func (m *Mappings) close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	group := errgroup.Group{}
	for _, closer := range m.closers() {
		group.Go(closer)
	}
	err := group.Wait()
	if !m.isDelta {
		if cerr := m.ctx.Close(); err == nil {
			err = cerr
		}
		return err
	}
	if m.root != "" {
		if derr := m.fs.Delete(context.Background(), m.root); err == nil && derr != nil {
			err = fmt.Errorf("failed to delete delta %v: %w", m.root, derr)
		}
	}
	return err
}

func (m *Mappings) closers() []func() error {
	ret := []func() error{
		m.classToSubclasses.Close,
		m.classToClass.Close,
		m.sourceToClass.Close,
		m.classToSource.Close,
	}
	if m.shortNames.MultiMaplet != nil {
		ret = append(ret, m.shortNames.Close)
	}
	return ret
}

// Flush persists every index; memoryOnly drops the in-memory caches instead.
func (m *Mappings) Flush(memoryOnly bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var firstErr error
	for _, flush := range []func(bool) error{
		m.classToSubclasses.Flush,
		m.classToClass.Flush,
		m.sourceToClass.Flush,
		m.classToSource.Flush,
	} {
		if err := flush(memoryOnly); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if m.isDelta {
		return firstErr
	}
	if err := m.shortNames.Flush(memoryOnly); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := m.ctx.Flush(memoryOnly); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// GetClasses returns the snapshots compiled from source, nil when unknown.
func (m *Mappings) GetClasses(source string) (ret []repr.ClassFileRepr, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer storage.Recover(&err)
	return m.sourceToClass.Get(source), nil
}

// GetSources returns the sources of the class with the given internal name.
func (m *Mappings) GetSources(className string) (ret []string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer storage.Recover(&err)
	return m.classToSource.Get(m.ctx.Get(className)), nil
}

func (m *Mappings) assertBase(op string) {
	if m.isDelta {
		panic("mappings: " + op + " called on a delta")
	}
}

func (m *Mappings) assertDelta(op string) {
	if !m.isDelta {
		panic("mappings: " + op + " requires a delta")
	}
}

// sourcesOf returns the sources of class name.
func (m *Mappings) sourcesOf(name naming.Name) []string {
	return m.classToSource.Get(name)
}

// reprByName finds the snapshot of name in source, or in any of its sources when source is empty.
func (m *Mappings) reprByName(source string, name naming.Name) repr.ClassFileRepr {
	sources := []string{source}
	if source == "" {
		sources = m.sourcesOf(name)
	}
	for _, src := range sources {
		for _, r := range m.sourceToClass.Get(src) {
			if r.ID() == name {
				return r
			}
		}
	}
	return nil
}

func (m *Mappings) classReprByName(source string, name naming.Name) *repr.ClassRepr {
	ret, _ := m.reprByName(source, name).(*repr.ClassRepr)
	return ret
}

func (m *Mappings) moduleReprByName(name naming.Name) *repr.ModuleRepr {
	ret, _ := m.reprByName("", name).(*repr.ModuleRepr)
	return ret
}

// sourceURL resolves a relative source against the configured base URL.
func (m *Mappings) sourceURL(source string) string {
	if m.sourceBaseURL == "" {
		return source
	}
	return url.Join(m.sourceBaseURL, source)
}

// sourceExists reports whether source is still present; probe failures count as present.
func (m *Mappings) sourceExists(ctx context.Context, source string) bool {
	ok, err := m.fs.Exists(ctx, m.sourceURL(source))
	if err != nil {
		m.logger.Debug("source probe failed", slog.String("source", source), slog.Any("error", err))
		return true
	}
	return ok
}

// compensateRemovedContent maps compiled sources that produced no class to an empty class list.
func (m *Mappings) compensateRemovedContent(compiled, compiledWithErrors FileSet) {
	for _, file := range compiled.Sorted() {
		if compiledWithErrors.Contains(file) {
			continue
		}
		if !m.sourceToClass.Contains(file) {
			m.emptySources.Add(file)
		}
	}
}

// sourceFiles lists the sources the delta compiled, including the ones without output.
func (m *Mappings) sourceFiles() []string {
	files := NewFileSet()
	m.sourceToClass.ForEachEntry(func(file string, _ []repr.ClassFileRepr) bool {
		files.Add(file)
		return true
	})
	for file := range m.emptySources {
		files.Add(file)
	}
	return files.Sorted()
}

func (m *Mappings) registerAddedSuperClass(class, super naming.Name) {
	m.addedSuperClasses.Put(super, class)
}

func (m *Mappings) registerRemovedSuperClass(class, super naming.Name) {
	m.removedSuperClasses.Put(super, class)
}

func (m *Mappings) addDeletedClass(r repr.ClassFileRepr, file string) {
	m.deletedClasses[fmt.Sprintf("%d|%s", r.ID(), file)] = deletedClass{repr: r, file: file}
	m.addChangedClass(r.ID())
	m.changedFiles.Add(file)
}

func (m *Mappings) addAddedClass(r repr.ClassFileRepr) {
	m.addedClasses[r.ID()] = r
	m.addChangedClass(r.ID())
}

func (m *Mappings) addChangedClass(name naming.Name) {
	m.changedClasses.Add(name)
	m.changedFiles.AddAll(m.sourcesOf(name)...)
}

// deletedClassList returns the deleted classes ordered by name and file.
func (m *Mappings) deletedClassList() []deletedClass {
	keys := make([]string, 0, len(m.deletedClasses))
	for k := range m.deletedClasses {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	ret := make([]deletedClass, 0, len(keys))
	for _, k := range keys {
		ret = append(ret, m.deletedClasses[k])
	}
	return ret
}

func (m *Mappings) deletedClassNames() naming.NameSet {
	ret := naming.NewNameSet()
	for _, d := range m.deletedClasses {
		ret.Add(d.repr.ID())
	}
	return ret
}

func (m *Mappings) addedClassList() []repr.ClassFileRepr {
	names := naming.NewNameSet()
	for name := range m.addedClasses {
		names.Add(name)
	}
	ret := make([]repr.ClassFileRepr, 0, len(names))
	for _, name := range names.Sorted() {
		ret = append(ret, m.addedClasses[name])
	}
	return ret
}

// runPostPasses applies deferred registrations; classes deleted without a new source are no longer changed.
func (m *Mappings) runPostPasses() {
	for _, d := range m.deletedClasses {
		if len(m.sourcesOf(d.repr.ID())) == 0 {
			m.changedClasses.Remove(d.repr.ID())
		}
	}
	m.applyPostPasses()
}

func (m *Mappings) applyPostPasses() {
	passes := m.postPasses
	m.postPasses = nil
	for _, pass := range passes {
		pass()
	}
}

func keysOf(m maplet.IntIntMultiMaplet) naming.NameSet {
	ret := naming.NewNameSet()
	m.ForEachEntry(func(key naming.Name, _ []naming.Name) bool {
		ret.Add(key)
		return true
	})
	return ret
}
