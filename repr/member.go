package repr

import (
	"strconv"

	"github.com/viant/depview/naming"
)

// FieldRepr is a field snapshot. Fields are identified by name.
type FieldRepr struct {
	Member
}

// Key returns the field identity.
func (f *FieldRepr) Key() string {
	return strconv.Itoa(int(f.Name))
}

// CreateUsage returns a read of the field through owner.
func (f *FieldRepr) CreateUsage(ctx *Context, owner naming.Name) *Usage {
	return ctx.FieldUsage(owner, f.Name, f.Type)
}

// CreateAssignUsage returns a write of the field through owner.
func (f *FieldRepr) CreateAssignUsage(ctx *Context, owner naming.Name) *Usage {
	return ctx.FieldAssignUsage(owner, f.Name, f.Type)
}

// FieldDiff is the difference of two field snapshots.
type FieldDiff struct {
	Difference
}

// DiffField compares two versions of a field.
func DiffField(now, past *FieldRepr) *FieldDiff {
	return &FieldDiff{Difference: diffMember(&now.Member, &past.Member)}
}

// ParamAnnotation is an annotation on a method parameter.
type ParamAnnotation struct {
	Index int
	Type  *Type
}

// Key returns the parameter annotation identity.
func (p ParamAnnotation) Key() string {
	return strconv.Itoa(p.Index) + ":" + p.Type.key
}

// MethodRepr is a method snapshot. Methods are identified by name and descriptor;
// Member.Type is the return type.
type MethodRepr struct {
	Member
	Args             []*Type
	Exceptions       []*Type
	ParamAnnotations []ParamAnnotation
}

// Key returns the method identity: name plus full descriptor.
func (m *MethodRepr) Key() string {
	return strconv.Itoa(int(m.Name)) + "(" + typeKeys(m.Args) + ")" + m.Type.key
}

// EqualByJavaRules reports whether other has the same name and parameter types,
// the notion used for overriding and hiding.
func (m *MethodRepr) EqualByJavaRules(other *MethodRepr) bool {
	return m.Name == other.Name && typesEqual(m.Args, other.Args)
}

// IsConstructor reports whether the method is an instance initializer.
func (m *MethodRepr) IsConstructor(ctx *Context) bool {
	return m.Name == ctx.InitName()
}

// CreateUsage returns a call of the method through owner.
func (m *MethodRepr) CreateUsage(ctx *Context, owner naming.Name) *Usage {
	return ctx.MethodUsage(owner, m.Name, m.Args, m.Type)
}

// CreateMetaUsage returns the descriptor-insensitive call of the method through owner.
func (m *MethodRepr) CreateMetaUsage(ctx *Context, owner naming.Name) *Usage {
	return ctx.MetaMethodUsage(owner, m.Name)
}

// Throws reports whether the method declares exception class name.
func (m *MethodRepr) Throws(name naming.Name) bool {
	for _, e := range m.Exceptions {
		if e.Kind == ClassKind && e.Name == name {
			return true
		}
	}
	return false
}

// MethodDiff is the difference of two method snapshots.
type MethodDiff struct {
	Difference
	Exceptions       *Specifier[*Type, NoDiff]
	ParamAnnotations *Specifier[ParamAnnotation, NoDiff]
	DefaultAdded     bool
	DefaultRemoved   bool
}

func (d *MethodDiff) No() bool {
	return d.Difference.No() && d.Exceptions.Unchanged() && d.ParamAnnotations.Unchanged() &&
		!d.DefaultAdded && !d.DefaultRemoved
}

// DiffMethod compares two versions of a method.
func DiffMethod(now, past *MethodRepr) *MethodDiff {
	return &MethodDiff{
		Difference:       diffMember(&now.Member, &past.Member),
		Exceptions:       Make(past.Exceptions, now.Exceptions, (*Type).Key),
		ParamAnnotations: Make(past.ParamAnnotations, now.ParamAnnotations, ParamAnnotation.Key),
		DefaultAdded:     !past.HasValue() && now.HasValue(),
		DefaultRemoved:   past.HasValue() && !now.HasValue(),
	}
}
