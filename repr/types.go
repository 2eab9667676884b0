package repr

import (
	"strconv"
	"strings"

	"github.com/viant/depview/naming"
)

// TypeKind discriminates Type.
type TypeKind uint8

const (
	PrimitiveKind TypeKind = iota + 1
	ArrayKind
	ClassKind
)

// Type is a canonical JVM type: primitive, array or class with optional type arguments.
// Instances are created by Context only; structurally equal types share one instance per context.
type Type struct {
	Kind TypeKind
	// Name is the primitive descriptor ("I", "Z", ...) or the internal class name.
	Name naming.Name
	Elem *Type
	Args []*Type
	key  string
}

// Key returns the structural identity of the type.
func (t *Type) Key() string {
	return t.key
}

// IsClass reports whether t is a class type.
func (t *Type) IsClass() bool {
	return t != nil && t.Kind == ClassKind
}

// Descriptor renders the erased JVM descriptor of t.
func (t *Type) Descriptor(ctx *Context) string {
	switch t.Kind {
	case PrimitiveKind:
		return ctx.Value(t.Name)
	case ArrayKind:
		return "[" + t.Elem.Descriptor(ctx)
	}
	return "L" + ctx.Value(t.Name) + ";"
}

func typeKey(t *Type) string {
	switch t.Kind {
	case PrimitiveKind:
		return "P" + strconv.Itoa(int(t.Name)) + ";"
	case ArrayKind:
		return "[" + t.Elem.key
	}
	b := strings.Builder{}
	b.WriteString("L")
	b.WriteString(strconv.Itoa(int(t.Name)))
	b.WriteString(";")
	if len(t.Args) > 0 {
		b.WriteString("<")
		for i, arg := range t.Args {
			if i > 0 {
				b.WriteString(",")
			}
			b.WriteString(arg.key)
		}
		b.WriteString(">")
	}
	return b.String()
}

func typeKeys(types []*Type) string {
	b := strings.Builder{}
	for _, t := range types {
		b.WriteString(t.key)
	}
	return b.String()
}

// typesEqual compares type lists by identity and order.
func typesEqual(a, b []*Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].key != b[i].key {
			return false
		}
	}
	return true
}
