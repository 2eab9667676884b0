package mappings

import (
	"log/slog"

	"github.com/viant/depview/naming"
	"github.com/viant/depview/repr"
)

func (d *differential) processAddedMethods(state *diffState, diff *repr.ClassDiff, it *repr.ClassRepr) {
	if len(diff.Methods.Added) == 0 || it.IsAnnotation() {
		return
	}
	pastIt := newMemo(func() *repr.ClassRepr { return d.base.classReprByName("", it.Name) })
	for _, m := range diff.Methods.Added {
		d.logger.Debug("added method", slog.String("class", d.className(it.Name)), slog.String("method", d.className(m.Name)))
		if it.IsInterface() || it.IsAbstract() || m.IsAbstract() {
			d.affectSubclasses(state, it.Name, false)
			if it.IsInterface() && m.IsAbstract() && d.present.isLambdaTarget(it.Name) {
				d.affectLambdaInstantiations(state, it.Name)
			}
		}
		propagated := newMemo(func() naming.NameSet { return d.future.propagateMethodAccess(m, it.Name) })

		if !m.IsPrivate() && !m.IsConstructor(d.ctx) {
			past := pastIt.get()
			overridden := past != nil && d.present.hasOverriddenMethods(past, equalByJavaRules(m))
			if !overridden && len(m.Args) > 0 {
				d.logger.Debug("conservative case on overriding methods, affecting method usages")
				state.affect(d.future.affectMethodUsages(m, propagated.get(), m.CreateMetaUsage(d.ctx, it.Name), state.dependants)...)
			}
		}

		if m.IsStatic() {
			state.affect(d.future.affectStaticMemberOnDemandUsages(it.Name, propagated.get(), state.dependants)...)
		}

		if m.IsPrivate() {
			continue
		}

		for _, mm := range it.FindMethods(d.future.lessSpecific(m)) {
			if mm.Key() == m.Key() {
				continue
			}
			d.logger.Debug("found less specific method, affecting method usages")
			state.affect(d.future.affectMethodUsages(mm, propagated.get(), mm.CreateUsage(d.ctx, it.Name), state.dependants)...)
		}

		for _, pair := range d.future.findAllMethodsBySpecificity(m, it) {
			method, methodClass := pair.member, pair.class
			if methodClass == nil {
				continue
			}
			inheritor := d.present.isInheritorOf(methodClass.Name, it.Name)
			if m.EqualByJavaRules(method) && inheritor {
				d.affected.AddAll(d.base.sourcesOf(methodClass.Name)...)
				continue
			}
			yetPropagated := d.present.propagateMethodAccess(method, it.Name)
			if inheritor {
				d.present.appendDependents(methodClass.Name, state.dependants)
				state.affect(d.future.affectMethodUsages(method, yetPropagated, method.CreateUsage(d.ctx, methodClass.Name), state.dependants)...)
			}
			state.affect(d.future.affectMethodUsages(method, yetPropagated, method.CreateUsage(d.ctx, it.Name), state.dependants)...)
		}

		// an inner subclass may have called a method of its outer class that m now hides
		for _, sub := range d.future.allSubclasses(it.Name).Sorted() {
			r := d.future.reprByName(sub)
			if r == nil || !r.IsInner() || !d.future.isMethodVisible(r.OuterClass, m) {
				continue
			}
			for _, file := range d.base.sourcesOf(sub) {
				if !d.compiled.Contains(file) {
					d.affected.Add(file)
				}
			}
		}
	}
}

func (d *differential) processRemovedMethods(state *diffState, diff *repr.ClassDiff, it *repr.ClassRepr) {
	for _, m := range diff.Methods.Removed {
		d.logger.Debug("removed method", slog.String("class", d.className(it.Name)), slog.String("method", d.className(m.Name)))
		overridden := d.future.findOverriddenMethods(m, it)
		propagated := d.future.propagateMethodAccess(m, it.Name)

		if len(overridden) == 0 || !clearlyOverridden(m, overridden) || m.IsPackageLocal() {
			state.affect(d.future.affectMethodUsages(m, propagated, m.CreateUsage(d.ctx, it.Name), state.dependants)...)
		}
		if m.IsStatic() {
			state.affect(d.future.affectStaticMemberImportUsages(m.Name, it.Name, propagated, state.dependants)...)
		}

		for _, pair := range d.future.overridingMethods(m, it, equalByJavaRules(m)) {
			d.affected.AddAll(d.base.sourcesOf(pair.class.Name)...)
		}

		if m.IsAbstract() {
			continue
		}
		// a subclass relying on m to implement an abstract method must now declare it
		for _, p := range propagated.Sorted() {
			if p == it.Name {
				continue
			}
			s := d.future.reprByName(p)
			if s == nil {
				continue
			}
			inS := append(d.future.findOverriddenMethods(m, s), overridden...)
			allAbstract, visited := true, false
			for _, pair := range inS {
				if pair.class == nil {
					visited = true
					continue
				}
				if pair.class.Name == it.Name {
					continue
				}
				visited = true
				allAbstract = pair.member.IsAbstract() || pair.class.IsInterface()
				if !allAbstract {
					break
				}
			}
			if !allAbstract || !visited {
				continue
			}
			for _, file := range d.base.sourcesOf(p) {
				if !d.compiled.Contains(file) {
					d.affected.Add(file)
				}
			}
		}
	}
}

// clearlyOverridden reports whether every overridden method keeps the call sites of m valid.
func clearlyOverridden(m *repr.MethodRepr, overridden []methodPair) bool {
	for _, pair := range overridden {
		mm := pair.member
		if mm == nil || mm.Type.Key() != m.Type.Key() || mm.Signature != naming.Empty ||
			m.Signature != naming.Empty || m.IsMoreAccessibleThan(&mm.Proto) {
			return false
		}
	}
	return true
}

func (d *differential) processChangedMethods(state *diffState, diff *repr.ClassDiff, it *repr.ClassRepr) {
	for _, change := range diff.Methods.Changed {
		m, md := change.Past, change.Diff
		throwsChanged := !md.Exceptions.Unchanged()
		d.logger.Debug("changed method", slog.String("class", d.className(it.Name)), slog.String("method", d.className(m.Name)))

		if it.IsAnnotation() {
			if md.DefaultRemoved {
				state.addAnnotationQuery(d.ctx.AnnotationUsage(d.ctx.ClassType(it.Name), []naming.Name{m.Name}, 0))
			}
			continue
		}
		if md.No() {
			continue
		}
		propagated := newMemo(func() naming.NameSet { return d.future.propagateMethodAccess(m, it.Name) })
		usages := newMemo(func() []*repr.Usage {
			return d.future.affectMethodUsages(m, propagated.get(), m.CreateUsage(d.ctx, it.Name), state.dependants)
		})

		if !md.Difference.No() || throwsChanged {
			affected, constrained := false, false
			if md.PackageLocalOn {
				d.logger.Debug("method became package-local, affecting usages outside the package")
				state.affectConstrained(d.future.packageConstraint(it.PackageName(d.ctx)), usages.get()...)
				affected, constrained = true, true
			}

			if md.Has(repr.ChangeType|repr.ChangeSignature) || throwsChanged {
				if !affected {
					state.affect(usages.get()...)
					for _, pair := range d.future.overridingMethods(m, it, equalByJavaRules(m)) {
						d.affected.AddAll(d.base.sourcesOf(pair.class.Name)...)
					}
				}
			} else if md.Has(repr.ChangeAccess) {
				const callSiteModifiers = repr.AccStatic | repr.AccPrivate | repr.AccSynthetic | repr.AccBridge
				if md.AddedModifiers&callSiteModifiers != 0 || md.RemovedModifiers&repr.AccStatic != 0 {
					if !affected {
						state.affect(usages.get()...)
					}
					if md.AddedModifiers&repr.AccStatic != 0 {
						d.affectSubclasses(state, it.Name, false)
					}
					if md.RemovedModifiers&repr.AccStatic != 0 {
						state.affect(d.future.affectStaticMemberImportUsages(m.Name, it.Name, propagated.get(), state.dependants)...)
					}
				} else {
					if md.AddedModifiers&(repr.AccFinal|repr.AccPublic|repr.AccAbstract) != 0 {
						d.affectSubclasses(state, it.Name, false)
					}
					if md.AddedModifiers&repr.AccProtected != 0 && md.RemovedModifiers&repr.AccPrivate == 0 && !constrained {
						state.affectConstrained(d.future.inheritanceConstraint(it.Name), usages.get()...)
					}
				}
			}
		}

		if (!md.Annotations.Unchanged() || !md.ParamAnnotations.Unchanged()) && len(d.base.trackers) > 0 {
			recompile := collectRecompile(d.base.trackers, func(t AnnotationTracker) RecompileSet {
				return t.MethodAnnotationsChanged(d.ctx, change.Now, md.Annotations, md.ParamAnnotations)
			})
			if recompile.Has(RecompileUsages) {
				state.affect(usages.get()...)
			}
			if recompile.Has(RecompileSubclasses) {
				d.affectSubclasses(state, it.Name, false)
			}
		}

		if md.AccessExpanded {
			d.affectOverloads(state, it, m, propagated.get())
		}

		if it.IsInterface() && md.RemovedModifiers&repr.AccAbstract != 0 {
			d.affectLambdaInstantiations(state, it.Name)
		}
	}
}

// affectOverloads affects calls of other overloads of m that may now resolve to m,
// except calls already inside the past visibility scope of m.
func (d *differential) affectOverloads(state *diffState, it *repr.ClassRepr, m *repr.MethodRepr, propagated naming.NameSet) {
	var constraint usageConstraint
	switch {
	case m.IsPrivate():
		constraint = &negationConstraint{x: &exactMatchConstraint{names: naming.NewNameSet(it.Name)}}
	case m.IsProtected():
		constraint = d.future.inheritanceConstraint(it.Name)
	case m.IsPackageLocal():
		constraint = d.future.packageConstraint(it.PackageName(d.ctx))
	default:
		return
	}
	overloads := it.FindMethods(func(mm *repr.MethodRepr) bool {
		return mm.Name == m.Name && !mm.EqualByJavaRules(m)
	})
	for _, mm := range overloads {
		state.affectConstrained(constraint, d.future.affectMethodUsages(mm, propagated, mm.CreateUsage(d.ctx, it.Name), state.dependants)...)
	}
}
