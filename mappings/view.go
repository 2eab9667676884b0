package mappings

import (
	"github.com/viant/depview/naming"
	"github.com/viant/depview/repr"
)

// view resolves classes either in the base alone (present) or in the delta over the base (future).
// Dependency edges always come from the base.
type view struct {
	base  *Mappings
	delta *Mappings
	ctx   *repr.Context
}

// memberPair is a member found in a hierarchy walk; a nil class marks an unknown ancestor.
type memberPair[T any] struct {
	member T
	class  *repr.ClassRepr
}

type methodPair = memberPair[*repr.MethodRepr]

type fieldPair = memberPair[*repr.FieldRepr]

func newView(base, delta *Mappings) *view {
	return &view{base: base, delta: delta, ctx: base.ctx}
}

func (v *view) reprByName(name naming.Name) *repr.ClassRepr {
	if v.delta != nil {
		if r := v.delta.classReprByName("", name); r != nil {
			return r
		}
	}
	return v.base.classReprByName("", name)
}

func (v *view) moduleByName(name naming.Name) *repr.ModuleRepr {
	if v.delta != nil {
		if r := v.delta.moduleReprByName(name); r != nil {
			return r
		}
	}
	return v.base.moduleReprByName(name)
}

func (v *view) subclasses(name naming.Name) naming.NameSet {
	ret := v.base.classToSubclasses.Names(name)
	if v.delta != nil {
		ret.AddAll(v.delta.classToSubclasses.Names(name))
	}
	return ret
}

func (v *view) sources(name naming.Name) []string {
	ret := v.base.sourcesOf(name)
	if v.delta != nil {
		files := NewFileSet(ret...)
		files.AddAll(v.delta.sourcesOf(name)...)
		ret = files.Sorted()
	}
	return ret
}

func (v *view) dependants(name naming.Name) naming.NameSet {
	return v.base.classToClass.Names(name)
}

func (v *view) appendDependents(name naming.Name, result naming.NameSet) {
	result.AddAll(v.dependants(name))
}

// allSubclasses returns root and its transitive subclasses.
func (v *view) allSubclasses(root naming.Name) naming.NameSet {
	ret := naming.NewNameSet(root)
	stack := []naming.Name{root}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, s := range v.subclasses(current).Sorted() {
			if ret.Add(s) {
				stack = append(stack, s)
			}
		}
	}
	return ret
}

// propagateMemberAccess returns the subclasses of className inheriting a member; a subclass declaring
// the same member ends its branch.
func (v *view) propagateMemberAccess(isField bool, same func(m *repr.Member, args []*repr.Type) bool, className naming.Name) naming.NameSet {
	ret := naming.NewNameSet()
	if v.reprByName(className) == nil {
		return ret
	}
	visited := naming.NewNameSet(className)
	stack := v.subclasses(className).Sorted()
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !visited.Add(current) {
			continue
		}
		r := v.reprByName(current)
		if r == nil || declares(r, isField, same) {
			continue
		}
		ret.Add(current)
		stack = append(stack, v.subclasses(current).Sorted()...)
	}
	return ret
}

func declares(r *repr.ClassRepr, isField bool, same func(m *repr.Member, args []*repr.Type) bool) bool {
	if isField {
		for _, f := range r.Fields {
			if same(&f.Member, nil) {
				return true
			}
		}
		return false
	}
	for _, m := range r.Methods {
		if same(&m.Member, m.Args) {
			return true
		}
	}
	return false
}

func (v *view) propagateFieldAccess(name, className naming.Name) naming.NameSet {
	return v.propagateMemberAccess(true, func(m *repr.Member, _ []*repr.Type) bool {
		return m.Name == name
	}, className)
}

func (v *view) propagateMethodAccess(method *repr.MethodRepr, className naming.Name) naming.NameSet {
	probe := &repr.MethodRepr{}
	return v.propagateMemberAccess(false, func(m *repr.Member, args []*repr.Type) bool {
		probe.Name, probe.Args = m.Name, args
		return method.EqualByJavaRules(probe)
	}, className)
}

// lessSpecific matches the overloads of than a call could resolve to before than existed.
func (v *view) lessSpecific(than *repr.MethodRepr) func(m *repr.MethodRepr) bool {
	return func(m *repr.MethodRepr) bool {
		if m.Name == v.ctx.InitName() || m.Name != than.Name || len(m.Args) != len(than.Args) {
			return false
		}
		for i := range than.Args {
			if subtype, known := v.isSubtypeOf(than.Args[i], m.Args[i]); known && !subtype {
				return false
			}
		}
		return true
	}
}

func equalByJavaRules(m *repr.MethodRepr) func(*repr.MethodRepr) bool {
	return m.EqualByJavaRules
}

// overridingMethods collects methods of subclasses of from matching predicate; a match ends its branch.
func (v *view) overridingMethods(m *repr.MethodRepr, from *repr.ClassRepr, predicate func(*repr.MethodRepr) bool) []methodPair {
	var ret []methodPair
	visited := naming.NewNameSet(from.Name)
	stack := []*repr.ClassRepr{from}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, s := range v.subclasses(current.Name).Sorted() {
			if !visited.Add(s) {
				continue
			}
			r := v.reprByName(s)
			if r == nil {
				continue
			}
			found := false
			for _, mm := range r.FindMethods(predicate) {
				if isVisibleIn(v.ctx, current, &m.Proto, r) {
					ret = append(ret, methodPair{member: mm, class: r})
					found = true
				}
			}
			if !found {
				stack = append(stack, r)
			}
		}
	}
	return ret
}

// overriddenMethods collects methods of ancestors of from matching predicate; an unknown ancestor
// contributes a pair with a nil class.
func (v *view) overriddenMethods(from *repr.ClassRepr, predicate func(*repr.MethodRepr) bool) []methodPair {
	var ret []methodPair
	visited := naming.NewNameSet(from.Name)
	stack := []*repr.ClassRepr{from}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, s := range current.Supers() {
			if !visited.Add(s) {
				continue
			}
			super := v.reprByName(s)
			if super == nil {
				ret = append(ret, methodPair{})
				continue
			}
			found := false
			for _, mm := range super.FindMethods(predicate) {
				if isVisibleIn(v.ctx, super, &mm.Proto, current) {
					ret = append(ret, methodPair{member: mm, class: super})
					found = true
				}
			}
			if !found {
				stack = append(stack, super)
			}
		}
	}
	return ret
}

// hasOverriddenMethods reports whether an ancestor of from declares a visible method matching predicate.
// Unknown ancestors are assumed to.
func (v *view) hasOverriddenMethods(from *repr.ClassRepr, predicate func(*repr.MethodRepr) bool) bool {
	visited := naming.NewNameSet(from.Name)
	stack := []*repr.ClassRepr{from}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, s := range current.Supers() {
			if !visited.Add(s) {
				continue
			}
			super := v.reprByName(s)
			if super == nil {
				return true
			}
			for _, mm := range super.FindMethods(predicate) {
				if isVisibleIn(v.ctx, super, &mm.Proto, current) {
					return true
				}
			}
			stack = append(stack, super)
		}
	}
	return false
}

// findAllMethodsBySpecificity returns the overloads of m in the hierarchy of c that m may now shadow.
func (v *view) findAllMethodsBySpecificity(m *repr.MethodRepr, c *repr.ClassRepr) []methodPair {
	predicate := v.lessSpecific(m)
	ret := v.overriddenMethods(c, predicate)
	return append(ret, v.overridingMethods(m, c, predicate)...)
}

func (v *view) findOverriddenMethods(m *repr.MethodRepr, c *repr.ClassRepr) []methodPair {
	return v.overriddenMethods(c, equalByJavaRules(m))
}

// overriddenFields collects the nearest visible fields named like f in the ancestors of from.
func (v *view) overriddenFields(f *repr.FieldRepr, from *repr.ClassRepr) []fieldPair {
	var ret []fieldPair
	visited := naming.NewNameSet(from.Name)
	stack := []*repr.ClassRepr{from}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, s := range current.Supers() {
			if !visited.Add(s) {
				continue
			}
			super := v.reprByName(s)
			if super == nil {
				continue
			}
			if ff := super.FindField(f.Name); ff != nil && isVisibleIn(v.ctx, super, &ff.Proto, current) {
				ret = append(ret, fieldPair{member: ff, class: super})
				continue
			}
			stack = append(stack, super)
		}
	}
	return ret
}

func (v *view) hasOverriddenFields(f *repr.FieldRepr, from *repr.ClassRepr) bool {
	visited := naming.NewNameSet(from.Name)
	stack := []*repr.ClassRepr{from}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, s := range current.Supers() {
			if !visited.Add(s) {
				continue
			}
			super := v.reprByName(s)
			if super == nil {
				continue
			}
			if ff := super.FindField(f.Name); ff != nil && isVisibleIn(v.ctx, super, &ff.Proto, current) {
				return true
			}
			stack = append(stack, super)
		}
	}
	return false
}

// isInheritorOf reports whether who is proven to be whom or one of its subtypes.
func (v *view) isInheritorOf(who, whom naming.Name) bool {
	visited := naming.NewNameSet()
	stack := []naming.Name{who}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if current == whom {
			return true
		}
		if !visited.Add(current) {
			continue
		}
		if r := v.reprByName(current); r != nil {
			stack = append(stack, r.Supers()...)
		}
	}
	return false
}

var arraySupertypes = []string{repr.ObjectClassName, "java/lang/Cloneable", "java/io/Serializable"}

// isSubtypeOf compares types; known is false when the hierarchy cannot prove or refute the relation.
func (v *view) isSubtypeOf(who, whom *repr.Type) (subtype bool, known bool) {
	for {
		if who.Key() == whom.Key() {
			return true, true
		}
		if who.Kind == repr.PrimitiveKind || whom.Kind == repr.PrimitiveKind {
			return false, true
		}
		if who.Kind != repr.ArrayKind {
			break
		}
		if whom.Kind == repr.ArrayKind {
			who, whom = who.Elem, whom.Elem
			continue
		}
		name := v.ctx.Value(whom.Name)
		for _, candidate := range arraySupertypes {
			if name == candidate {
				return true, true
			}
		}
		return false, true
	}
	if whom.Kind == repr.ClassKind {
		if v.isInheritorOf(who.Name, whom.Name) {
			return true, true
		}
		return false, false
	}
	return false, true
}

func (v *view) isMethodVisible(className naming.Name, m *repr.MethodRepr) bool {
	r := v.reprByName(className)
	if r == nil {
		return false
	}
	if len(r.FindMethods(equalByJavaRules(m))) > 0 {
		return true
	}
	return v.hasOverriddenMethods(r, equalByJavaRules(m))
}

func (v *view) isFieldVisible(className naming.Name, f *repr.FieldRepr) bool {
	r := v.reprByName(className)
	if r == nil || r.FindField(f.Name) != nil {
		return true
	}
	return v.hasOverriddenFields(f, r)
}

// collectSupersRecursively adds every known ancestor name of className to container.
func (v *view) collectSupersRecursively(className naming.Name, container naming.NameSet) {
	visited := naming.NewNameSet()
	stack := []naming.Name{className}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !visited.Add(current) {
			continue
		}
		r := v.reprByName(current)
		if r == nil {
			continue
		}
		for _, s := range r.Supers() {
			container.Add(s)
			stack = append(stack, s)
		}
	}
}

// isLambdaTarget reports whether className is an interface with exactly one abstract method.
func (v *view) isLambdaTarget(className naming.Name) bool {
	r := v.reprByName(className)
	if r == nil || !r.IsInterface() {
		return false
	}
	abstract := map[string]bool{}
	visited := naming.NewNameSet()
	stack := []*repr.ClassRepr{r}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !visited.Add(current.Name) {
			continue
		}
		for _, m := range current.Methods {
			if m.IsAbstract() && !m.IsStatic() {
				abstract[m.Key()] = true
			}
		}
		for _, s := range current.Interfaces {
			if super := v.reprByName(s.Name); super != nil {
				stack = append(stack, super)
			}
		}
	}
	return len(abstract) == 1
}

// affectFieldUsages returns root and its equivalents through every propagated class, recording their dependants.
func (v *view) affectFieldUsages(field *repr.FieldRepr, propagated naming.NameSet, root *repr.Usage, dependants naming.NameSet) []*repr.Usage {
	ret := []*repr.Usage{root}
	for _, p := range propagated.Sorted() {
		dependants.AddAll(v.dependants(p))
		if root.Kind == repr.FieldWrite {
			ret = append(ret, field.CreateAssignUsage(v.ctx, p))
		} else {
			ret = append(ret, field.CreateUsage(v.ctx, p))
		}
	}
	return ret
}

// affectMethodUsages returns root and its equivalents through every propagated class, recording their dependants.
func (v *view) affectMethodUsages(method *repr.MethodRepr, propagated naming.NameSet, root *repr.Usage, dependants naming.NameSet) []*repr.Usage {
	ret := []*repr.Usage{root}
	for _, p := range propagated.Sorted() {
		dependants.AddAll(v.dependants(p))
		if root.Kind == repr.MetaMethodCall {
			ret = append(ret, method.CreateMetaUsage(v.ctx, p))
		} else {
			ret = append(ret, method.CreateUsage(v.ctx, p))
		}
	}
	return ret
}

// affectStaticMemberImportUsages returns the single static imports of name through owner and propagated.
func (v *view) affectStaticMemberImportUsages(name, owner naming.Name, propagated naming.NameSet, dependants naming.NameSet) []*repr.Usage {
	ret := []*repr.Usage{v.ctx.ImportStaticMemberUsage(owner, name)}
	for _, p := range propagated.Sorted() {
		dependants.AddAll(v.dependants(p))
		ret = append(ret, v.ctx.ImportStaticMemberUsage(p, name))
	}
	return ret
}

// affectStaticMemberOnDemandUsages returns the on-demand static imports of owner and propagated.
func (v *view) affectStaticMemberOnDemandUsages(owner naming.Name, propagated naming.NameSet, dependants naming.NameSet) []*repr.Usage {
	ret := []*repr.Usage{v.ctx.ImportStaticOnDemandUsage(owner)}
	for _, p := range propagated.Sorted() {
		dependants.AddAll(v.dependants(p))
		ret = append(ret, v.ctx.ImportStaticOnDemandUsage(p))
	}
	return ret
}

// isVisibleIn reports whether member m of class c is accessible from scope.
func isVisibleIn(ctx *repr.Context, c *repr.ClassRepr, m *repr.Proto, scope *repr.ClassRepr) bool {
	privacy := m.IsPrivate() && c.Name != scope.Name
	packageLocality := m.IsPackageLocal() && c.PackageName(ctx) != scope.PackageName(ctx)
	return !privacy && !packageLocality
}
