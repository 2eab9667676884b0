package mappings

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/viant/depview/naming"
	"github.com/viant/depview/repr"
	"github.com/viant/depview/storage"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// desperateMask marks fields the compiler may inline into their users.
const desperateMask = repr.AccStatic | repr.AccFinal

// constantQueryLimit bounds concurrent constant affection lookups.
const constantQueryLimit = 8

type constantWork struct {
	owner         naming.Name
	field         *repr.FieldRepr
	removed       bool
	accessChanged bool
}

// differential compares a delta with its base and collects the files to recompile.
type differential struct {
	goCtx  context.Context
	base   *Mappings
	delta  *Mappings
	ctx    *repr.Context
	logger *slog.Logger

	present *view
	future  *view
	// easy only prepares the delta for integration.
	easy bool

	removed            FileSet
	filesToCompile     FileSet
	compiledWithErrors FileSet
	compiled           FileSet
	affected           FileSet
	filter             DependentFilesFilter
	resolver           ConstantResolver
	incrementalConsts  bool

	works []constantWork
}

func newDifferential(goCtx context.Context, base, delta *Mappings, easy bool) *differential {
	return &differential{
		goCtx:              goCtx,
		base:               base,
		delta:              delta,
		ctx:                base.ctx,
		logger:             base.logger,
		present:            newView(base, nil),
		future:             newView(base, delta),
		easy:               easy,
		removed:            NewFileSet(),
		filesToCompile:     NewFileSet(),
		compiledWithErrors: NewFileSet(),
		compiled:           NewFileSet(),
		affected:           NewFileSet(),
		filter:             AllFiles,
	}
}

// DifferentiateOnRebuild marks delta as a full rebuild; integration then replaces every index.
func (m *Mappings) DifferentiateOnRebuild(delta *Mappings) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assertBase("differentiate")
	delta.assertDelta("differentiate")
	defer storage.Recover(&err)
	delta.rebuild = true
	newDifferential(context.Background(), m, delta, true).differentiate()
	differentiateTotal.WithLabelValues(modeRebuild, "done").Inc()
	return nil
}

// DifferentiateOnNonIncrementalMake prepares delta for integration after removed were deleted
// and filesToCompile were recompiled, without computing affected files.
func (m *Mappings) DifferentiateOnNonIncrementalMake(delta *Mappings, removed, filesToCompile []string) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assertBase("differentiate")
	delta.assertDelta("differentiate")
	defer storage.Recover(&err)
	d := newDifferential(context.Background(), m, delta, true)
	d.removed.AddAll(removed...)
	d.filesToCompile.AddAll(filesToCompile...)
	delta.removedFiles = removed
	d.differentiate()
	differentiateTotal.WithLabelValues(modeNonIncremental, "done").Inc()
	return nil
}

// DifferentiateOnIncrementalMake compares delta with m and adds the files to recompile to req.AffectedFiles.
// It returns false when the round cannot stay incremental.
func (m *Mappings) DifferentiateOnIncrementalMake(ctx context.Context, delta *Mappings, req *Request) (incremental bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assertBase("differentiate")
	delta.assertDelta("differentiate")
	ctx, span := tracer.Start(ctx, "mappings.DifferentiateOnIncrementalMake",
		trace.WithAttributes(
			attribute.Int("files_to_compile", len(req.FilesToCompile)),
			attribute.Int("removed", len(req.Removed)),
		),
	)
	defer span.End()
	defer func() {
		switch {
		case err != nil:
			span.RecordError(err)
			span.SetStatus(codes.Error, "differentiate failed")
			differentiateTotal.WithLabelValues(modeIncremental, "error").Inc()
		case incremental:
			span.SetAttributes(attribute.Int("affected_files", len(req.AffectedFiles)))
			affectedFiles.Observe(float64(len(req.AffectedFiles)))
			differentiateTotal.WithLabelValues(modeIncremental, "incremental").Inc()
		default:
			differentiateTotal.WithLabelValues(modeIncremental, "non_incremental").Inc()
		}
	}()
	defer storage.Recover(&err)
	if req.AffectedFiles == nil {
		req.AffectedFiles = NewFileSet()
	}
	d := newDifferential(ctx, m, delta, false)
	d.removed.AddAll(req.Removed...)
	d.filesToCompile.AddAll(req.FilesToCompile...)
	d.compiledWithErrors.AddAll(req.CompiledWithErrors...)
	d.compiled.AddAll(req.CompiledFiles...)
	d.affected = req.AffectedFiles
	if req.Filter != nil {
		d.filter = req.Filter
	}
	d.resolver = req.ConstantResolver
	d.incrementalConsts = req.ProcessConstantsIncrementally
	delta.removedFiles = req.Removed
	return d.differentiate(), nil
}

func (d *differential) differentiate() bool {
	if d.delta.differentiated {
		panic("mappings: delta is already differentiated")
	}
	d.delta.differentiated = true
	d.delta.applyPostPasses()
	if d.delta.rebuild {
		return true
	}
	d.logger.Debug("differentiate", slog.Bool("easy", d.easy))
	d.processDisappearedClasses()
	files := d.delta.sourceFiles()
	d.compiled.AddAll(files...)
	for _, file := range files {
		pastClasses, pastModules := splitReprs(d.base.sourceToClass.Get(file))
		nowClasses, nowModules := splitReprs(d.delta.sourceToClass.Get(file))
		classes := repr.DeepMake(pastClasses, nowClasses, (*repr.ClassRepr).Key, d.diffClass)
		modules := repr.DeepMake(pastModules, nowModules, moduleKey, repr.DiffModule)
		state := newDiffState()
		d.processModules(state, modules, file)
		if !d.processChangedClasses(state, classes) && !d.easy {
			d.logger.Debug("non-incremental decision", slog.String("file", file))
			return false
		}
		d.processRemovedClasses(state, classes, file)
		d.processAddedClasses(state, classes, file)
		if !d.easy {
			d.calculateAffectedFiles(state)
		}
	}
	if d.easy {
		return false
	}
	for file := range d.removed {
		d.affected.Remove(file)
	}
	if !d.doWork() {
		return false
	}
	return !d.generatedSourceAffected()
}

// generatedSourceAffected reports whether any affected file holds a generated class.
func (d *differential) generatedSourceAffected() bool {
	for _, file := range d.affected.Sorted() {
		for _, r := range d.base.sourceToClass.Get(file) {
			if class, ok := r.(*repr.ClassRepr); ok && class.Generated {
				d.logger.Debug("generated source affected", slog.String("file", file), slog.String("class", d.className(class.Name)))
				return true
			}
		}
	}
	return false
}

func (d *differential) diffClass(now, past *repr.ClassRepr) *repr.ClassDiff {
	return repr.DiffClass(d.ctx, now, past)
}

func splitReprs(reprs []repr.ClassFileRepr) (classes []*repr.ClassRepr, modules []*repr.ModuleRepr) {
	for _, r := range reprs {
		switch actual := r.(type) {
		case *repr.ClassRepr:
			classes = append(classes, actual)
		case *repr.ModuleRepr:
			modules = append(modules, actual)
		}
	}
	return classes, modules
}

func moduleKey(m *repr.ModuleRepr) string {
	return strconv.Itoa(int(m.Name))
}

func (d *differential) className(name naming.Name) string {
	return d.ctx.Value(name)
}

// processDisappearedClasses treats recompiled sources without output as emptied, and affects
// the dependants of classes whose sources were deleted.
func (d *differential) processDisappearedClasses() {
	d.delta.compensateRemovedContent(d.filesToCompile, d.compiledWithErrors)
	if d.easy {
		return
	}
	for _, file := range d.removed.Sorted() {
		for _, r := range d.base.sourceToClass.Get(file) {
			d.logger.Debug("affecting usages of removed class", slog.String("class", d.className(r.ID())))
			d.affectAll(r.ID())
		}
	}
}

// affectAll schedules every accepted source depending on className, except its own sources.
func (d *differential) affectAll(className naming.Name) {
	own := NewFileSet(d.base.sourcesOf(className)...)
	if len(own) == 0 {
		return
	}
	for _, dep := range d.present.dependants(className).Sorted() {
		for _, file := range d.base.sourcesOf(dep) {
			if !own.Contains(file) && d.filter.Accept(file) {
				d.affected.Add(file)
			}
		}
	}
}

// affectSubclasses schedules className and its transitive subclasses, optionally affecting their class usages.
func (d *differential) affectSubclasses(state *diffState, className naming.Name, usages bool) {
	visited := naming.NewNameSet()
	stack := []naming.Name{className}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !visited.Add(current) {
			continue
		}
		sources := d.future.sources(current)
		if len(sources) == 0 {
			continue
		}
		if usages {
			if r := d.future.reprByName(current); r != nil {
				state.affect(r.CreateUsage(d.ctx))
			}
		}
		d.future.appendDependents(current, state.dependants)
		for _, file := range sources {
			if !d.compiled.Contains(file) {
				d.affected.Add(file)
			}
		}
		stack = append(stack, d.future.subclasses(current).Sorted()...)
	}
}

// affectLambdaInstantiations affects lambda and method reference sites of className and its subclasses.
func (d *differential) affectLambdaInstantiations(state *diffState, className naming.Name) {
	for _, name := range d.future.allSubclasses(className).Sorted() {
		state.affect(d.ctx.ClassNewUsage(name))
		d.future.appendDependents(name, state.dependants)
	}
}

// incrementalDecision widens the round for a change whose users cannot be tracked; false gives up.
func (d *differential) incrementalDecision(owner naming.Name, member *repr.Proto, isField bool) bool {
	if member.IsPublic() {
		d.logger.Debug("public access, switching to non-incremental mode", slog.String("class", d.className(owner)))
		return false
	}
	if member.IsProtected() {
		name := naming.Empty
		if isField {
			name = member.Name
		}
		for _, c := range d.present.propagateFieldAccess(name, owner).Sorted() {
			for _, file := range d.base.sourcesOf(c) {
				if !d.filesToCompile.Contains(file) {
					d.affected.Add(file)
				}
			}
		}
	}
	packageOf := member.Name
	if isField {
		packageOf = owner
	}
	packageName := repr.PackageName(d.ctx.Value(packageOf))
	d.logger.Debug("adding package classes for recompilation", slog.String("package", packageName))
	d.base.classToSource.ForEachEntry(func(className naming.Name, files []string) bool {
		if repr.PackageName(d.ctx.Value(className)) != packageName {
			return true
		}
		for _, file := range files {
			if d.filter.Accept(file) && !d.filesToCompile.Contains(file) {
				d.affected.Add(file)
			}
		}
		return true
	})
	return true
}

// affectConstant handles a changed or removed inlinable constant of owner.
func (d *differential) affectConstant(state *diffState, owner naming.Name, field *repr.FieldRepr, removed, accessChanged bool) {
	if !d.incrementalConsts {
		d.works = append(d.works, constantWork{owner: owner, field: field, removed: removed, accessChanged: accessChanged})
		return
	}
	propagated := d.future.propagateFieldAccess(field.Name, owner)
	state.affect(d.future.affectFieldUsages(field, propagated, field.CreateUsage(d.ctx, owner), state.dependants)...)
	state.affect(d.future.affectStaticMemberImportUsages(field.Name, owner, propagated, state.dependants)...)
	state.affect(d.future.affectStaticMemberOnDemandUsages(owner, propagated, state.dependants)...)
}

// doWork resolves the delayed constant changes; lookups run concurrently and results apply in order.
func (d *differential) doWork() bool {
	if len(d.works) == 0 {
		return true
	}
	affections := make([]*ConstantAffection, len(d.works))
	if d.resolver != nil {
		group, ctx := errgroup.WithContext(d.goCtx)
		group.SetLimit(constantQueryLimit)
		for i, w := range d.works {
			i, w := i, w
			owner := strings.ReplaceAll(d.ctx.Value(w.owner), "/", ".")
			field := d.ctx.Value(w.field.Name)
			group.Go(func() error {
				affection, err := d.resolver.FindAffectedFiles(ctx, owner, field, w.field.Access, w.removed, w.accessChanged)
				if err != nil {
					constantQueries.WithLabelValues("error").Inc()
					d.logger.Warn("constant search failed", slog.String("class", owner), slog.String("field", field), slog.Any("error", err))
					return nil
				}
				affections[i] = affection
				return nil
			})
		}
		_ = group.Wait()
	}
	for i, w := range d.works {
		affection := affections[i]
		if affection == nil || !affection.Known {
			constantQueries.WithLabelValues("unknown").Inc()
			if !d.incrementalDecision(w.owner, &w.field.Proto, true) {
				return false
			}
			continue
		}
		constantQueries.WithLabelValues("known").Inc()
		for _, file := range affection.Files {
			if d.filter.Accept(file) {
				d.affected.Add(file)
			}
		}
	}
	return true
}

func (d *differential) processRemovedClasses(state *diffState, classes *repr.Specifier[*repr.ClassRepr, *repr.ClassDiff], file string) {
	for _, c := range classes.Removed {
		d.delta.addDeletedClass(c, file)
		if d.easy {
			continue
		}
		d.present.appendDependents(c.Name, state.dependants)
		state.affect(c.CreateUsage(d.ctx))
		d.logger.Debug("affecting usages of removed class", slog.String("class", d.className(c.Name)))
		d.affectAll(c.Name)
	}
}

func (d *differential) processAddedClasses(state *diffState, classes *repr.Specifier[*repr.ClassRepr, *repr.ClassDiff], file string) {
	if len(classes.Added) == 0 {
		return
	}
	if !d.easy && d.scheduleDuplicates(classes.Added) {
		return
	}
	for _, c := range classes.Added {
		d.delta.addAddedClass(c)
		for _, s := range c.Supers() {
			d.delta.registerAddedSuperClass(c.Name, s)
		}
		if d.easy || c.Anonymous || c.Local {
			continue
		}
		toAffect := naming.NewNameSet(c.Name)
		toAffect.AddAll(d.base.shortNames.Names(d.ctx.Get(c.ShortName(d.ctx))))
		for _, name := range toAffect.Sorted() {
			for _, dep := range d.present.dependants(name).Sorted() {
				for _, depFile := range d.base.sourcesOf(dep) {
					if d.filter.Accept(depFile) {
						d.affected.Add(depFile)
					}
				}
			}
		}
	}
}

// scheduleDuplicates checks the first top-level added class against other still existing sources
// of the current chunk. When found, both sides are scheduled and the file is left out of integration.
func (d *differential) scheduleDuplicates(added []*repr.ClassRepr) bool {
	for _, c := range added {
		if c.Local || c.Anonymous || c.IsInner() {
			continue
		}
		newSources := NewFileSet(d.delta.sourcesOf(c.Name)...)
		var candidates []string
		for _, file := range d.base.sourcesOf(c.Name) {
			if d.compiled.Contains(file) || newSources.Contains(file) || d.removed.Contains(file) {
				continue
			}
			if !d.base.sourceExists(d.goCtx, file) || !d.filter.BelongsToCurrentTargetChunk(file) {
				continue
			}
			candidates = append(candidates, file)
		}
		if len(candidates) == 0 {
			return false
		}
		d.logger.Debug("scheduling duplicated sources", slog.String("class", d.className(c.Name)), slog.Any("sources", candidates))
		d.affected.AddAll(d.base.sourcesOf(c.Name)...)
		d.affected.AddAll(newSources.Sorted()...)
		return true
	}
	return false
}

// calculateAffectedFiles schedules the sources of dependants whose recorded usages are affected.
func (d *differential) calculateAffectedFiles(state *diffState) {
	for _, dep := range state.dependants.Sorted() {
		for _, file := range d.base.sourcesOf(dep) {
			if d.affected.Contains(file) {
				continue
			}
			r := d.base.reprByName(file, dep)
			if r == nil {
				continue
			}
			class, _ := r.(*repr.ClassRepr)
			fieldsOnly := d.compiled.Contains(file)
			if fieldsOnly && (class == nil || !class.HasInlinedConstants) {
				continue
			}
			if d.isAffected(state, dep, r, fieldsOnly) {
				d.affected.Add(file)
			}
		}
	}
}

func (d *differential) isAffected(state *diffState, dep naming.Name, r repr.ClassFileRepr, fieldsOnly bool) bool {
	for _, u := range r.Usages() {
		if fieldsOnly && !u.IsField() {
			continue
		}
		if u.Kind == repr.AnnotationReference {
			if state.satisfiesQuery(u) {
				return true
			}
			continue
		}
		if c := state.constraintOf(d.ctx, u); c != nil && c.checkResidence(dep) {
			return true
		}
	}
	return false
}
