package mappings

import (
	"context"
	"log/slog"
	"time"

	"github.com/viant/depview/maplet"
	"github.com/viant/depview/naming"
	"github.com/viant/depview/repr"
	"github.com/viant/depview/storage"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Integrate merges a differentiated delta into m and closes the delta.
func (m *Mappings) Integrate(ctx context.Context, delta *Mappings) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assertBase("integrate")
	delta.assertDelta("integrate")
	if !delta.differentiated {
		panic("mappings: delta must be differentiated before integration")
	}
	_, span := tracer.Start(ctx, "mappings.Integrate", trace.WithAttributes(
		attribute.Bool("rebuild", delta.rebuild),
		attribute.Int("removed", len(delta.removedFiles)),
	))
	started := time.Now()
	defer func() {
		integrateDuration.Observe(time.Since(started).Seconds())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "integrate failed")
		}
		span.End()
	}()
	defer func() {
		if cerr := delta.close(); err == nil {
			err = cerr
		}
	}()
	defer storage.Recover(&err)

	delta.runPostPasses()
	trash := maplet.NewTransientNames()
	defer trash.Close()

	for _, file := range delta.removedFiles {
		for _, r := range m.sourceToClass.Get(file) {
			m.cleanupRemovedClass(delta, r, file, trash)
		}
		m.sourceToClass.Remove(file)
	}

	if delta.rebuild {
		m.integrateRebuild(delta)
	} else {
		m.integrateIncremental(delta, trash)
	}

	users := keysOf(trash)
	users.AddAll(keysOf(delta.classToClass))
	for _, used := range users.Sorted() {
		current := m.classToClass.Names(used)
		current.RemoveAll(trash.Names(used))
		current.AddAll(delta.classToClass.Names(used))
		m.classToClass.ReplaceSet(used, current)
	}
	m.logger.Debug("integrated delta", slog.Bool("rebuild", delta.rebuild), slog.Int("changedFiles", len(delta.changedFiles)))
	return nil
}

func (m *Mappings) integrateRebuild(delta *Mappings) {
	m.classToSubclasses.PutAllFrom(delta.classToSubclasses)
	m.classToSource.ReplaceAll(delta.classToSource)
	m.sourceToClass.ReplaceAll(delta.sourceToClass)
	delta.sourceToClass.ForEachEntry(func(_ string, reprs []repr.ClassFileRepr) bool {
		for _, r := range reprs {
			m.registerShortName(r)
		}
		return true
	})
}

func (m *Mappings) integrateIncremental(delta *Mappings, trash maplet.IntIntMultiMaplet) {
	for _, deleted := range delta.deletedClassList() {
		m.cleanupRemovedClass(delta, deleted.repr, deleted.file, trash)
	}
	for _, r := range delta.addedClassList() {
		m.registerShortName(r)
	}

	supers := keysOf(delta.addedSuperClasses)
	supers.AddAll(keysOf(delta.removedSuperClasses))
	for _, super := range supers.Sorted() {
		current := m.classToSubclasses.Names(super)
		current.RemoveAll(delta.removedSuperClasses.Names(super))
		current.AddAll(delta.addedSuperClasses.Names(super))
		m.classToSubclasses.ReplaceSet(super, current)
	}

	changed := delta.changedClasses.Sorted()
	for _, name := range changed {
		if past := m.reprByName("", name); past != nil {
			m.cleanupBackDependency(name, past.Usages(), trash)
		}
	}
	for _, name := range changed {
		sources := delta.sourcesOf(name)
		if len(sources) == 0 {
			continue
		}
		// sources not recompiled in this round keep listing the class, with its new snapshot
		if now := delta.reprByName("", name); now != nil {
			compiled := NewFileSet(sources...)
			for _, file := range m.sourcesOf(name) {
				if !compiled.Contains(file) && !delta.changedFiles.Contains(file) {
					m.sourceToClass.Put(file, now)
				}
			}
		}
		m.classToSource.Replace(name, sources)
	}

	for _, file := range delta.changedFiles.Sorted() {
		if reprs := delta.sourceToClass.Get(file); len(reprs) > 0 {
			m.sourceToClass.Replace(file, reprs)
		} else {
			m.sourceToClass.Remove(file)
		}
	}
}

// cleanupRemovedClass drops r, compiled from file, from every index unless another source still produces it.
func (m *Mappings) cleanupRemovedClass(delta *Mappings, r repr.ClassFileRepr, file string, trash maplet.IntIntMultiMaplet) {
	name := r.ID()
	m.classToSource.RemoveFrom(name, file)
	if len(m.classToSource.Get(name)) > 0 {
		return
	}
	m.cleanupBackDependency(name, r.Usages(), trash)
	if len(delta.sourcesOf(name)) > 0 {
		return
	}
	m.logger.Debug("removing class", slog.String("class", m.ctx.Value(name)), slog.String("file", file))
	if class, ok := r.(*repr.ClassRepr); ok {
		for _, super := range class.Supers() {
			m.classToSubclasses.RemoveFrom(super, name)
		}
		if !class.Anonymous && !class.Local {
			m.shortNames.RemoveFrom(m.ctx.Get(class.ShortName(m.ctx)), name)
		}
	}
	m.classToSubclasses.Remove(name)
	m.classToClass.Remove(name)
}

// cleanupBackDependency schedules the dependency edges of className recorded from usages for removal.
func (m *Mappings) cleanupBackDependency(className naming.Name, usages []*repr.Usage, trash maplet.IntIntMultiMaplet) {
	for _, u := range usages {
		if u.Owner != className {
			trash.Put(u.Owner, className)
		}
	}
}

func (m *Mappings) registerShortName(r repr.ClassFileRepr) {
	class, ok := r.(*repr.ClassRepr)
	if !ok || class.Anonymous || class.Local {
		return
	}
	m.shortNames.Put(m.ctx.Get(class.ShortName(m.ctx)), class.Name)
}
