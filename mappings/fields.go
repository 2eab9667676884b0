package mappings

import (
	"log/slog"

	"github.com/viant/depview/naming"
	"github.com/viant/depview/repr"
)

// isInlinable reports whether the compiler may have folded f into its users.
func isInlinable(f *repr.FieldRepr) bool {
	return !f.IsPrivate() && f.Access&desperateMask == desperateMask && f.HasValue()
}

func (d *differential) processAddedFields(state *diffState, diff *repr.ClassDiff, it *repr.ClassRepr) bool {
	if len(diff.Fields.Added) == 0 {
		return true
	}
	if it.IsEnum() {
		d.logger.Debug("constants added to enum, affecting switch map usages", slog.String("class", d.className(it.Name)))
		state.affectConstrained(&syntheticConstraint{view: d.future}, it.CreateUsage(d.ctx))
	}
	for _, f := range diff.Fields.Added {
		d.logger.Debug("added field", slog.String("class", d.className(it.Name)), slog.String("field", d.className(f.Name)))
		withSubclasses := d.future.propagateFieldAccess(f.Name, it.Name)
		withSubclasses.Add(it.Name)
		for _, sub := range withSubclasses.Sorted() {
			if !f.IsPrivate() && d.hidesSurrounding(sub, f) {
				for _, file := range d.base.sourcesOf(sub) {
					if !d.compiled.Contains(file) {
						d.affected.Add(file)
					}
				}
			}
			if !f.IsPrivate() && f.IsStatic() {
				state.affect(d.ctx.ImportStaticOnDemandUsage(sub))
			}
			d.future.appendDependents(sub, state.dependants)
			// an access to the same name through sub may now bind to f
			state.addMemberQuery(sub, f.Name)
		}
	}
	return true
}

// hidesSurrounding reports whether a field added to an ancestor of className may hide a local
// variable or a field of an enclosing class.
func (d *differential) hidesSurrounding(className naming.Name, f *repr.FieldRepr) bool {
	r := d.future.reprByName(className)
	if r == nil {
		return false
	}
	if r.Local {
		return true
	}
	return r.IsInner() && d.future.isFieldVisible(r.OuterClass, f)
}

func (d *differential) processRemovedFields(state *diffState, diff *repr.ClassDiff, it *repr.ClassRepr) bool {
	for _, f := range diff.Fields.Removed {
		d.logger.Debug("removed field", slog.String("class", d.className(it.Name)), slog.String("field", d.className(f.Name)))
		if isInlinable(f) {
			d.affectConstant(state, it.Name, f, true, false)
		}
		propagated := d.future.propagateFieldAccess(f.Name, it.Name)
		state.affect(d.future.affectFieldUsages(f, propagated, f.CreateUsage(d.ctx, it.Name), state.dependants)...)
		if !f.IsPrivate() && f.IsStatic() {
			state.affect(d.future.affectStaticMemberImportUsages(f.Name, it.Name, propagated, state.dependants)...)
		}
	}
	return true
}

func (d *differential) processChangedFields(state *diffState, diff *repr.ClassDiff, it *repr.ClassRepr) bool {
	for _, change := range diff.Fields.Changed {
		f, fd := change.Past, change.Diff
		if fd.No() {
			continue
		}
		d.logger.Debug("changed field", slog.String("class", d.className(it.Name)), slog.String("field", d.className(f.Name)))
		propagated := newMemo(func() naming.NameSet { return d.future.propagateFieldAccess(f.Name, it.Name) })
		usages := newMemo(func() []*repr.Usage {
			return d.future.affectFieldUsages(f, propagated.get(), f.CreateUsage(d.ctx, it.Name), state.dependants)
		})

		if isInlinable(f) {
			changedModifiers := fd.AddedModifiers | fd.RemovedModifiers
			harmful := changedModifiers&(repr.AccStatic|repr.AccFinal) != 0
			accessChanged := changedModifiers&(repr.AccPublic|repr.AccPrivate|repr.AccProtected) != 0
			if harmful || fd.Has(repr.ChangeValue) || fd.AccessRestricted {
				d.logger.Debug("inlinable field changed its access or value")
				d.affectConstant(state, it.Name, f, false, accessChanged)
			}
		}

		switch {
		case fd.Has(repr.ChangeType | repr.ChangeSignature):
			state.affect(usages.get()...)
		case fd.Has(repr.ChangeAccess):
			added, removed := fd.AddedModifiers, fd.RemovedModifiers
			if (added|removed)&repr.AccStatic != 0 || added&(repr.AccPrivate|repr.AccVolatile) != 0 {
				state.affect(usages.get()...)
				if !f.IsPrivate() {
					if added&repr.AccStatic != 0 {
						state.affect(d.future.affectStaticMemberOnDemandUsages(it.Name, propagated.get(), state.dependants)...)
					} else if removed&repr.AccStatic != 0 {
						state.affect(d.future.affectStaticMemberImportUsages(f.Name, it.Name, propagated.get(), state.dependants)...)
					}
				}
				break
			}
			var constraint usageConstraint
			switch {
			case removed&repr.AccPublic != 0:
				if added&repr.AccProtected != 0 {
					constraint = d.future.inheritanceConstraint(it.Name)
				} else {
					constraint = d.future.packageConstraint(it.PackageName(d.ctx))
				}
				state.affectConstrained(constraint, usages.get()...)
			case removed&repr.AccProtected != 0 && fd.AccessRestricted:
				constraint = d.future.packageConstraint(it.PackageName(d.ctx))
				state.affectConstrained(constraint, usages.get()...)
			}
			if added&repr.AccFinal != 0 {
				assign := d.future.affectFieldUsages(f, propagated.get(), f.CreateAssignUsage(d.ctx, it.Name), state.dependants)
				if constraint != nil {
					state.affectConstrained(constraint, assign...)
				} else {
					state.affect(assign...)
				}
			}
		}

		if !fd.Annotations.Unchanged() && len(d.base.trackers) > 0 {
			recompile := collectRecompile(d.base.trackers, func(t AnnotationTracker) RecompileSet {
				return t.FieldAnnotationsChanged(d.ctx, change.Now, fd.Annotations)
			})
			if recompile.Has(RecompileUsages) {
				state.affect(usages.get()...)
			}
			if recompile.Has(RecompileSubclasses) {
				d.affectSubclasses(state, it.Name, false)
			}
		}
	}
	return true
}
