package repr

import (
	"sort"
	"strconv"
	"strings"

	"github.com/viant/depview/naming"
)

// ClassFileRepr is the snapshot of one compiled class file: a class or a module descriptor.
type ClassFileRepr interface {
	// ID returns the class or module name.
	ID() naming.Name
	// ClassFile returns the class file name.
	ClassFile() naming.Name
	// Usages returns the recorded usages sorted by key.
	Usages() []*Usage
	// AddUsage records u and reports whether it was new.
	AddUsage(u *Usage) bool
	// IsModule reports whether the snapshot is a module descriptor.
	IsModule() bool
}

// usageSet holds the usages of a class file.
type usageSet struct {
	usages map[string]*Usage
	digest uint64
}

func (s *usageSet) Usages() []*Usage {
	ret := make([]*Usage, 0, len(s.usages))
	for _, u := range s.usages {
		ret = append(ret, u)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].key < ret[j].key })
	return ret
}

func (s *usageSet) AddUsage(u *Usage) bool {
	if s.usages == nil {
		s.usages = map[string]*Usage{}
	}
	if _, ok := s.usages[u.key]; ok {
		return false
	}
	s.usages[u.key] = u
	s.digest = 0
	return true
}

// HasUsage reports whether u is recorded.
func (s *usageSet) HasUsage(u *Usage) bool {
	_, ok := s.usages[u.key]
	return ok
}

func (s *usageSet) usagesDigest() uint64 {
	if s.digest == 0 && len(s.usages) > 0 {
		keys := make([]string, 0, len(s.usages))
		for k := range s.usages {
			keys = append(keys, k)
		}
		s.digest = digestKeys(keys)
	}
	return s.digest
}

func (s *usageSet) sameUsages(other *usageSet) bool {
	if len(s.usages) != len(other.usages) {
		return false
	}
	if s.usagesDigest() != other.usagesDigest() {
		return false
	}
	for k := range s.usages {
		if _, ok := other.usages[k]; !ok {
			return false
		}
	}
	return true
}

// ClassRepr is a class, interface, enum or annotation type snapshot.
type ClassRepr struct {
	Proto
	usageSet
	File       naming.Name
	SuperClass *Type
	Interfaces []*Type
	Fields     []*FieldRepr
	Methods    []*MethodRepr
	// Targets and Retention apply to annotation types.
	Targets   ElemTypes
	Retention RetentionPolicy
	// OuterClass is naming.Empty for top-level classes.
	OuterClass          naming.Name
	Local               bool
	Anonymous           bool
	Generated           bool
	HasInlinedConstants bool
}

func (c *ClassRepr) ID() naming.Name        { return c.Name }
func (c *ClassRepr) ClassFile() naming.Name { return c.File }
func (c *ClassRepr) IsModule() bool         { return false }

// Key returns the class identity.
func (c *ClassRepr) Key() string {
	return strconv.Itoa(int(c.Name))
}

func (c *ClassRepr) IsInterface() bool  { return c.Access&AccInterface != 0 }
func (c *ClassRepr) IsAnnotation() bool { return c.Access&AccAnnotation != 0 }
func (c *ClassRepr) IsEnum() bool       { return c.Access&AccEnum != 0 }

// IsInner reports whether the class is nested in an outer class.
func (c *ClassRepr) IsInner() bool {
	return c.OuterClass != naming.Empty
}

// Supers returns the names of the superclass and the direct interfaces.
func (c *ClassRepr) Supers() []naming.Name {
	ret := make([]naming.Name, 0, len(c.Interfaces)+1)
	if c.SuperClass != nil {
		ret = append(ret, c.SuperClass.Name)
	}
	for _, i := range c.Interfaces {
		ret = append(ret, i.Name)
	}
	return ret
}

// SuperClassName returns the superclass name or naming.Empty.
func (c *ClassRepr) SuperClassName() naming.Name {
	if c.SuperClass == nil {
		return naming.Empty
	}
	return c.SuperClass.Name
}

// PackageName returns the internal package name of the class.
func (c *ClassRepr) PackageName(ctx *Context) string {
	return PackageName(ctx.Value(c.Name))
}

// ShortName returns the simple name of the class, stripped of its package and outer class.
func (c *ClassRepr) ShortName(ctx *Context) string {
	fqn := ctx.Value(c.Name)
	if c.IsInner() {
		outer := ctx.Value(c.OuterClass)
		if strings.HasPrefix(fqn, outer+"$") {
			return fqn[len(outer)+1:]
		}
	}
	if i := strings.LastIndexByte(fqn, '/'); i >= 0 {
		return fqn[i+1:]
	}
	return fqn
}

// CreateUsage returns a reference to the class.
func (c *ClassRepr) CreateUsage(ctx *Context) *Usage {
	return ctx.ClassUsage(c.Name)
}

// FindMethods returns the methods matching predicate.
func (c *ClassRepr) FindMethods(predicate func(m *MethodRepr) bool) []*MethodRepr {
	var ret []*MethodRepr
	for _, m := range c.Methods {
		if predicate(m) {
			ret = append(ret, m)
		}
	}
	return ret
}

// FindField returns the field called name.
func (c *ClassRepr) FindField(name naming.Name) *FieldRepr {
	for _, f := range c.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// PackageName returns the package part of an internal class name.
func PackageName(className string) string {
	if i := strings.LastIndexByte(className, '/'); i >= 0 {
		return className[:i]
	}
	return ""
}

// ClassDiff is the difference of two class snapshots.
type ClassDiff struct {
	Difference
	Interfaces *Specifier[*Type, NoDiff]
	Fields     *Specifier[*FieldRepr, *FieldDiff]
	Methods    *Specifier[*MethodRepr, *MethodDiff]
	Targets    *Specifier[ElemType, NoDiff]
	// RetentionChanged treats an unset retention as CLASS.
	RetentionChanged bool
	// ExtendsAdded is set when the class used to extend java/lang/Object and now extends another class.
	ExtendsAdded bool
	// TargetAttributeCategoryMightChange is set when targets changed and TYPE_USE or
	// RECORD_COMPONENT was involved, which moves annotations between bytecode attributes.
	TargetAttributeCategoryMightChange bool
}

func (d *ClassDiff) No() bool {
	return d.Difference.No() && d.Interfaces.Unchanged() && d.Fields.Unchanged() &&
		d.Methods.Unchanged() && d.Targets.Unchanged() && !d.RetentionChanged
}

// DiffClass compares two versions of a class.
func DiffClass(ctx *Context, now, past *ClassRepr) *ClassDiff {
	ret := &ClassDiff{Difference: diffProto(&now.Proto, &past.Proto)}
	if typeKeyOf(now.SuperClass) != typeKeyOf(past.SuperClass) {
		ret.Base |= ChangeSuperclass
		ret.ExtendsAdded = now.SuperClass != nil && past.SuperClassName() == ctx.ObjectName()
	}
	if !now.sameUsages(&past.usageSet) {
		ret.Base |= ChangeUsages
	}
	if now.HasInlinedConstants != past.HasInlinedConstants {
		ret.Base |= ChangeConstantReferences
	}
	ret.Interfaces = Make(past.Interfaces, now.Interfaces, (*Type).Key)
	ret.Fields = DeepMake(past.Fields, now.Fields, (*FieldRepr).Key, DiffField)
	ret.Methods = DeepMake(past.Methods, now.Methods, (*MethodRepr).Key, DiffMethod)
	ret.Targets = Make(past.Targets.Slice(), now.Targets.Slice(), ElemType.String)
	ret.RetentionChanged = normalizedRetention(now.Retention) != normalizedRetention(past.Retention)
	if !ret.Targets.Unchanged() {
		for _, t := range []ElemType{TargetTypeUse, TargetRecordComponent} {
			if contains(ret.Targets.Added, t) || contains(ret.Targets.Removed, t) || past.Targets.Has(t) {
				ret.TargetAttributeCategoryMightChange = true
				break
			}
		}
	}
	return ret
}

func normalizedRetention(r RetentionPolicy) RetentionPolicy {
	if r == RetentionUnset {
		return RetentionClass
	}
	return r
}

func typeKeyOf(t *Type) string {
	if t == nil {
		return ""
	}
	return t.key
}

func contains[T comparable](items []T, item T) bool {
	for _, candidate := range items {
		if candidate == item {
			return true
		}
	}
	return false
}
