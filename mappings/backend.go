package mappings

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/viant/depview/naming"
	"github.com/viant/depview/repr"
	"github.com/viant/depview/storage"
)

// ErrNoAnalyzer is returned by Backend.Associate when the store has no Analyzer.
var ErrNoAnalyzer = errors.New("mappings: no analyzer configured")

// Backend records the compiler output of a round into a store, usually a delta.
type Backend struct {
	mappings *Mappings
}

// Associate analyzes a compiled class file and records it as produced by sources.
func (b *Backend) Associate(classFileName string, sources []string, content []byte, generated bool) (err error) {
	m := b.mappings
	m.mu.Lock()
	defer m.mu.Unlock()
	defer storage.Recover(&err)
	if m.analyzer == nil {
		return ErrNoAnalyzer
	}
	r, err := m.analyzer.Analyze(m.ctx, m.ctx.Get(classFileName), content, generated)
	if err != nil {
		return fmt.Errorf("failed to analyze %v: %w", classFileName, err)
	}
	m.associate(sources, r)
	return nil
}

// AssociateRepr records an already analyzed snapshot as produced by sources.
func (b *Backend) AssociateRepr(sources []string, r repr.ClassFileRepr) (err error) {
	m := b.mappings
	m.mu.Lock()
	defer m.mu.Unlock()
	defer storage.Recover(&err)
	m.associate(sources, r)
	return nil
}

// RegisterImports records the import statements of the source declaring className, in dotted form.
// Registration is applied when the delta is differentiated, before classes are compared.
func (b *Backend) RegisterImports(className string, imports, staticImports []string) {
	m := b.mappings
	m.mu.Lock()
	defer m.mu.Unlock()
	m.postPasses = append(m.postPasses, func() {
		var usages []*repr.Usage
		for _, imp := range imports {
			if strings.HasSuffix(imp, ".*") {
				continue
			}
			usages = append(usages, m.ctx.ClassUsage(m.ctx.Get(internalName(imp))))
		}
		for _, imp := range staticImports {
			if owner, ok := strings.CutSuffix(imp, ".*"); ok {
				usages = append(usages, m.ctx.ImportStaticOnDemandUsage(m.ctx.Get(internalName(owner))))
				continue
			}
			idx := strings.LastIndex(imp, ".")
			if idx <= 0 {
				continue
			}
			owner, member := imp[:idx], imp[idx+1:]
			usages = append(usages, m.ctx.ImportStaticMemberUsage(m.ctx.Get(internalName(owner)), m.ctx.Get(member)))
		}
		m.addUsages(m.ctx.Get(internalName(className)), usages, false)
	})
}

// RegisterConstantReferences records the constants the compiler folded into className.
// Registration is applied when the delta is differentiated, before classes are compared.
func (b *Backend) RegisterConstantReferences(className string, refs []ConstantRef) {
	m := b.mappings
	m.mu.Lock()
	defer m.mu.Unlock()
	m.postPasses = append(m.postPasses, func() {
		name := m.ctx.Get(internalName(className))
		var usages []*repr.Usage
		for _, ref := range refs {
			owner := m.ctx.Get(internalName(ref.Owner))
			if owner == name {
				continue
			}
			typ, err := m.ctx.ParseType(ref.Descriptor)
			if err != nil {
				m.logger.Warn("invalid constant descriptor", slog.String("class", className), slog.String("field", ref.Name), slog.Any("error", err))
				continue
			}
			usages = append(usages, m.ctx.FieldUsage(owner, m.ctx.Get(ref.Name), typ))
		}
		if len(usages) > 0 {
			m.addUsages(name, usages, true)
		}
	})
}

func (m *Mappings) associate(sources []string, r repr.ClassFileRepr) {
	name := r.ID()
	for _, src := range sources {
		m.sourceToClass.Put(src, r)
	}
	m.classToSource.PutAll(name, sources)
	if class, ok := r.(*repr.ClassRepr); ok {
		for _, super := range class.Supers() {
			m.classToSubclasses.Put(super, name)
		}
		if !m.isDelta {
			m.registerShortName(class)
		}
	}
	m.addDependencies(name, r.Usages())
}

func (m *Mappings) addDependencies(name naming.Name, usages []*repr.Usage) {
	for _, u := range usages {
		if u.Owner != name && u.Owner != naming.Empty {
			m.classToClass.Put(u.Owner, name)
		}
	}
}

// addUsages adds usages to every stored snapshot of name; inlined marks them as folded constants.
func (m *Mappings) addUsages(name naming.Name, usages []*repr.Usage, inlined bool) {
	for _, src := range m.sourcesOf(name) {
		r := m.reprByName(src, name)
		if r == nil {
			continue
		}
		modified := false
		for _, u := range usages {
			if r.AddUsage(u) {
				modified = true
			}
		}
		if class, ok := r.(*repr.ClassRepr); ok && inlined && !class.HasInlinedConstants {
			class.HasInlinedConstants = true
			modified = true
		}
		if modified {
			m.sourceToClass.Put(src, r)
		}
	}
	m.addDependencies(name, usages)
}

// internalName converts a dotted binary name to the slash separated internal form.
func internalName(name string) string {
	return strings.ReplaceAll(name, ".", "/")
}
