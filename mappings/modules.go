package mappings

import (
	"log/slog"

	"github.com/viant/depview/naming"
	"github.com/viant/depview/repr"
)

func (d *differential) processModules(state *diffState, modules *repr.Specifier[*repr.ModuleRepr, *repr.ModuleDiff], file string) {
	for _, m := range modules.Added {
		d.delta.addAddedClass(m)
		if d.easy {
			continue
		}
		// the new descriptor may lack requires directives the sources need
		d.affectModule(m.Name, d.future)
	}
	for _, m := range modules.Removed {
		d.delta.addDeletedClass(m, file)
		if d.easy {
			continue
		}
		d.affectDependentModules(state, m.Name, true, nil)
	}
	for _, change := range modules.Changed {
		it, diff := change.Past, change.Diff
		d.delta.addChangedClass(it.Name)
		if d.easy {
			continue
		}
		d.logger.Debug("changed module", slog.String("module", d.className(it.Name)))
		if diff.VersionChanged {
			d.affectDependentModules(state, it.Name, false, &requiresVersionConstraint{view: d.present, module: it.Name, version: it.Version})
		}

		affectSelf, affectDeps := false, false
		for _, r := range diff.Requires.Removed {
			affectSelf = true
			if r.IsTransitive() {
				affectDeps = true
				break
			}
		}
		for _, c := range diff.Requires.Changed {
			affectSelf = affectSelf || c.Diff.VersionChanged
			affectDeps = affectDeps || c.Diff.BecameNonTransitive
		}

		targets := naming.NewNameSet()
		if !affectDeps && len(diff.Exports.Removed) > 0 {
			affectDeps = true
			qualifiedOnly := true
			for _, p := range diff.Exports.Removed {
				if !p.IsQualified() {
					qualifiedOnly = false
					break
				}
			}
			if qualifiedOnly {
				for _, p := range diff.Exports.Removed {
					targets.AddAll(naming.NewNameSet(p.Targets...))
				}
			}
		}
		if !affectDeps || len(targets) > 0 {
			for _, c := range diff.Exports.Changed {
				removedTargets := c.Diff.Targets.Removed
				if len(removedTargets) > 0 {
					affectDeps = true
				}
				if affectDeps {
					targets.AddAll(naming.NewNameSet(removedTargets...))
				}
			}
		}

		if affectSelf {
			d.affectModule(it.Name, d.present)
		}
		if affectDeps {
			var constraint usageConstraint
			if len(targets) > 0 {
				constraint = &exactMatchConstraint{names: targets}
			}
			d.affectDependentModules(state, it.Name, true, constraint)
		}
	}
}

// affectModule schedules the sources of the module descriptor.
func (d *differential) affectModule(name naming.Name, v *view) {
	d.logger.Debug("affecting module sources", slog.String("module", d.className(name)))
	for _, file := range v.sources(name) {
		if d.filter.Accept(file) {
			d.affected.Add(file)
		}
	}
}

// affectDependentModules affects the readers of name; with checkTransitive it follows modules
// re-exporting name through "requires transitive".
func (d *differential) affectDependentModules(state *diffState, name naming.Name, checkTransitive bool, constraint usageConstraint) {
	visited := naming.NewNameSet()
	stack := []naming.Name{name}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !visited.Add(current) {
			continue
		}
		d.logger.Debug("affecting modules depending on module", slog.String("module", d.className(current)))
		usage := d.ctx.ModuleUsage(current)
		if constraint != nil {
			state.affectConstrained(constraint, usage)
		} else {
			state.affect(usage)
		}
		dependants := d.present.dependants(current)
		state.dependants.AddAll(dependants)
		if !checkTransitive {
			continue
		}
		for _, dep := range dependants.Sorted() {
			if m := d.present.moduleByName(dep); m != nil && m.RequiresTransitively(current) {
				stack = append(stack, dep)
			}
		}
	}
}
