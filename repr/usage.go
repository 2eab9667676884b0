package repr

import (
	"strconv"
	"strings"

	"github.com/viant/depview/naming"
)

// UsageKind names the way a program element is referenced.
type UsageKind uint8

const (
	FieldRead UsageKind = iota + 1
	FieldWrite
	MethodCall
	// MetaMethodCall matches calls by owner and name regardless of descriptor.
	MetaMethodCall
	ClassReference
	ClassExtends
	ClassAsGenericBound
	ClassInstantiation
	AnnotationReference
	ModuleReference
	StaticImportMember
	StaticImportOnDemand
)

var usageKindNames = map[UsageKind]string{
	FieldRead:            "FIELD_READ",
	FieldWrite:           "FIELD_WRITE",
	MethodCall:           "METHOD_CALL",
	MetaMethodCall:       "META_METHOD_CALL",
	ClassReference:       "CLASS",
	ClassExtends:         "CLASS_EXTENDS",
	ClassAsGenericBound:  "CLASS_AS_GENERIC_BOUND",
	ClassInstantiation:   "CLASS_NEW",
	AnnotationReference:  "ANNOTATION",
	ModuleReference:      "MODULE",
	StaticImportMember:   "IMPORT_STATIC_MEMBER",
	StaticImportOnDemand: "IMPORT_STATIC_ON_DEMAND",
}

func (k UsageKind) String() string {
	if name, ok := usageKindNames[k]; ok {
		return name
	}
	return "UNKNOWN"
}

// Usage is a canonical record of one class referencing a program element.
// Instances are created by Context only.
type Usage struct {
	Kind UsageKind
	// Owner is the class (or module) the referenced element belongs to.
	Owner naming.Name
	// Name is the member name for field, method and static member usages.
	Name naming.Name
	// Type is the field type, the method return type or the annotation type.
	Type *Type
	// Args are the method parameter types.
	Args []*Type
	// UsedArgs are the annotation attributes set explicitly, sorted.
	UsedArgs []naming.Name
	// Targets are the annotation targets the usage appears on.
	Targets ElemTypes
	key     string
}

// Key returns the structural identity of the usage.
func (u *Usage) Key() string {
	return u.key
}

// IsField reports whether u reads or writes a field.
func (u *Usage) IsField() bool {
	return u.Kind == FieldRead || u.Kind == FieldWrite
}

// Satisfies reports whether annotation query u matches the recorded annotation usage:
// both refer to the same annotation and the usage either omits one of the queried
// attributes or appears on one of the queried targets.
func (u *Usage) Satisfies(usage *Usage) bool {
	if u.Kind != AnnotationReference || usage.Kind != AnnotationReference {
		return false
	}
	if u.Type.key != usage.Type.key {
		return false
	}
	used := naming.NewNameSet(usage.UsedArgs...)
	for _, arg := range u.UsedArgs {
		if !used.Contains(arg) {
			return true
		}
	}
	return u.Targets&usage.Targets != 0
}

// Descriptor renders the JVM member descriptor carried by the usage, if any.
func (u *Usage) Descriptor(ctx *Context) string {
	switch u.Kind {
	case MethodCall:
		return MethodDescriptor(ctx, u.Args, u.Type)
	case FieldRead, FieldWrite:
		return u.Type.Descriptor(ctx)
	}
	return ""
}

// MethodDescriptor renders (args)ret.
func MethodDescriptor(ctx *Context, args []*Type, ret *Type) string {
	b := strings.Builder{}
	b.WriteString("(")
	for _, arg := range args {
		b.WriteString(arg.Descriptor(ctx))
	}
	b.WriteString(")")
	b.WriteString(ret.Descriptor(ctx))
	return b.String()
}

func usageKey(u *Usage) string {
	b := strings.Builder{}
	b.WriteString(strconv.Itoa(int(u.Kind)))
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(int(u.Owner)))
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(int(u.Name)))
	b.WriteByte('|')
	if u.Type != nil {
		b.WriteString(u.Type.key)
	}
	if u.Kind == MethodCall {
		b.WriteByte('(')
		b.WriteString(typeKeys(u.Args))
		b.WriteByte(')')
	}
	if u.Kind == AnnotationReference {
		b.WriteByte('{')
		for i, arg := range u.UsedArgs {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Itoa(int(arg)))
		}
		b.WriteByte('}')
		b.WriteString(strconv.Itoa(int(u.Targets)))
	}
	return b.String()
}
