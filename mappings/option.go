package mappings

import (
	"log/slog"

	"github.com/viant/afs"
)

type Option func(*Mappings)

// WithLogger sets the logger receiving rule decisions at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Mappings) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithAnnotationTracker registers a tracker; trackers are consulted in registration order.
func WithAnnotationTracker(tracker AnnotationTracker) Option {
	return func(m *Mappings) {
		m.trackers = append(m.trackers, tracker)
	}
}

// WithTransientDelta keeps deltas in memory instead of under the store directory.
func WithTransientDelta(transient bool) Option {
	return func(m *Mappings) {
		m.transientDelta = transient
	}
}

// WithCacheSize sets the number of decoded keys cached per persistent index.
func WithCacheSize(size int) Option {
	return func(m *Mappings) {
		m.cacheSize = size
	}
}

// WithSyncWrites fsyncs every index write.
func WithSyncWrites(sync bool) Option {
	return func(m *Mappings) {
		m.syncWrites = sync
	}
}

// WithInMemory keeps the base indexes in in-memory badger databases.
func WithInMemory(inMemory bool) Option {
	return func(m *Mappings) {
		m.inMemory = inMemory
	}
}

// WithFileSystem sets the file system used to probe source existence, with sources resolved against baseURL.
func WithFileSystem(fs afs.Service, baseURL string) Option {
	return func(m *Mappings) {
		m.fs = fs
		m.sourceBaseURL = baseURL
	}
}

// WithAnalyzer sets the class file analyzer used by Backend.Associate.
func WithAnalyzer(analyzer Analyzer) Option {
	return func(m *Mappings) {
		m.analyzer = analyzer
	}
}
