package mappings

import (
	"log/slog"

	"github.com/viant/depview/naming"
	"github.com/viant/depview/repr"
)

// processChangedClasses applies the class rules; false means the round cannot stay incremental.
func (d *differential) processChangedClasses(state *diffState, classes *repr.Specifier[*repr.ClassRepr, *repr.ClassDiff]) bool {
	for _, change := range classes.Changed {
		it, now, diff := change.Past, change.Now, change.Diff
		d.delta.addChangedClass(it.Name)
		d.logger.Debug("changed class", slog.String("class", d.className(it.Name)))

		superChanged := diff.Has(repr.ChangeSuperclass)
		interfacesChanged := !diff.Interfaces.Unchanged()
		signatureChanged := diff.Has(repr.ChangeSignature)

		if superChanged {
			if past := it.SuperClassName(); past != naming.Empty {
				d.delta.registerRemovedSuperClass(it.Name, past)
			}
			if present := now.SuperClassName(); present != naming.Empty {
				d.delta.registerAddedSuperClass(it.Name, present)
			}
		}
		for _, t := range diff.Interfaces.Removed {
			d.delta.registerRemovedSuperClass(it.Name, t.Name)
		}
		for _, t := range diff.Interfaces.Added {
			d.delta.registerAddedSuperClass(it.Name, t.Name)
		}

		if d.easy {
			continue
		}

		d.present.appendDependents(it.Name, state.dependants)

		if superChanged || interfacesChanged || signatureChanged {
			extendsChanged := superChanged && !diff.ExtendsAdded
			interfacesRemoved := interfacesChanged && len(diff.Interfaces.Removed) > 0
			d.affectSubclasses(state, it.Name, extendsChanged || interfacesRemoved || signatureChanged)
			if extendsChanged {
				d.affectThrowingMethodUsages(state, it.Name)
			}
			if !it.Anonymous {
				d.affectLostGenericBounds(state, it.Name)
			}
		}

		if (diff.AddedModifiers|diff.RemovedModifiers)&repr.AccInterface != 0 {
			d.logger.Debug("class to interface conversion", slog.String("class", d.className(it.Name)))
			state.affect(it.CreateUsage(d.ctx))
		}

		if it.IsAnnotation() && it.Retention == repr.RetentionSource {
			d.logger.Debug("SOURCE retention annotation changed", slog.String("class", d.className(it.Name)))
			if !d.incrementalDecision(it.OuterClass, &it.Proto, false) {
				return false
			}
		}

		if diff.AddedModifiers&repr.AccProtected != 0 {
			state.affectConstrained(d.future.inheritanceConstraint(it.Name), it.CreateUsage(d.ctx))
		}
		if diff.PackageLocalOn {
			state.affectConstrained(d.future.packageConstraint(it.PackageName(d.ctx)), it.CreateUsage(d.ctx))
		}
		if diff.AddedModifiers&(repr.AccFinal|repr.AccPrivate) != 0 {
			state.affect(it.CreateUsage(d.ctx))
		}
		if diff.AddedModifiers&(repr.AccAbstract|repr.AccStatic) != 0 {
			state.affect(d.ctx.ClassNewUsage(it.Name))
		}
		if it.IsInner() && diff.AccessRestricted {
			state.affect(it.CreateUsage(d.ctx))
		}

		if it.IsAnnotation() && !d.processChangedAnnotationType(state, it, diff) {
			return false
		}

		if !diff.Annotations.Unchanged() && len(d.base.trackers) > 0 {
			recompile := collectRecompile(d.base.trackers, func(t AnnotationTracker) RecompileSet {
				return t.ClassAnnotationsChanged(d.ctx, now, diff.Annotations)
			})
			if recompile.Has(RecompileUsages) {
				state.affect(it.CreateUsage(d.ctx))
				state.affect(d.ctx.ClassNewUsage(it.Name))
			}
			if recompile.Has(RecompileSubclasses) {
				d.affectSubclasses(state, it.Name, false)
			}
		}

		d.processAddedMethods(state, diff, it)
		d.processRemovedMethods(state, diff, it)
		d.processChangedMethods(state, diff, it)

		if !d.processAddedFields(state, diff, it) {
			return false
		}
		if !d.processRemovedFields(state, diff, it) {
			return false
		}
		if !d.processChangedFields(state, diff, it) {
			return false
		}
	}
	return !d.easy
}

func (d *differential) processChangedAnnotationType(state *diffState, it *repr.ClassRepr, diff *repr.ClassDiff) bool {
	if diff.RetentionChanged || diff.TargetAttributeCategoryMightChange {
		state.affect(it.CreateUsage(d.ctx))
		return true
	}
	removed := repr.NewElemTypes(diff.Targets.Removed...)
	if removed.Has(repr.TargetLocalVariable) {
		d.logger.Debug("LOCAL_VARIABLE target removed", slog.String("class", d.className(it.Name)))
		if !d.incrementalDecision(it.OuterClass, &it.Proto, false) {
			return false
		}
	}
	if removed != 0 {
		state.addAnnotationQuery(d.ctx.AnnotationUsage(d.ctx.ClassType(it.Name), nil, removed))
	}
	for _, m := range diff.Methods.Added {
		if !m.HasValue() {
			state.affect(it.CreateUsage(d.ctx))
			break
		}
	}
	return true
}

// affectThrowingMethodUsages affects calls of methods throwing className, whose exception hierarchy changed.
func (d *differential) affectThrowingMethodUsages(state *diffState, className naming.Name) {
	for _, dep := range d.present.dependants(className).Sorted() {
		r := d.present.reprByName(dep)
		if r == nil {
			continue
		}
		for _, m := range r.FindMethods(func(m *repr.MethodRepr) bool { return m.Throws(className) }) {
			propagated := d.present.propagateMethodAccess(m, dep)
			state.affect(d.present.affectMethodUsages(m, propagated, m.CreateUsage(d.ctx, dep), state.dependants)...)
			d.present.appendDependents(dep, state.dependants)
		}
	}
}

// affectLostGenericBounds affects generic bound usages of ancestors className no longer has.
func (d *differential) affectLostGenericBounds(state *diffState, className naming.Name) {
	parents := naming.NewNameSet()
	d.present.collectSupersRecursively(className, parents)
	futureParents := naming.NewNameSet()
	d.future.collectSupersRecursively(className, futureParents)
	parents.RemoveAll(futureParents)
	parents.Remove(d.ctx.ObjectName())
	for _, parent := range parents.Sorted() {
		d.logger.Debug("affecting generic bound usages", slog.String("class", d.className(parent)))
		state.affect(d.ctx.ClassAsGenericBoundUsage(parent))
		d.present.appendDependents(parent, state.dependants)
	}
}
