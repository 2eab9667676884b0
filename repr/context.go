package repr

import (
	"fmt"
	"sort"
	"sync"

	"github.com/viant/depview/naming"
)

// Well-known names.
const (
	ObjectClassName = "java/lang/Object"
	InitMethodName  = "<init>"
	ClinitName      = "<clinit>"
)

// Context is the interning arena shared by a store and its deltas:
// it owns the name enumerator and the canonical type and usage tables.
type Context struct {
	names  naming.Enumerator
	mu     sync.Mutex
	types  map[string]*Type
	usages map[string]*Usage
	object naming.Name
	init   naming.Name
}

// NewContext creates an arena over names.
func NewContext(names naming.Enumerator) *Context {
	ret := &Context{names: names}
	ret.resetTables()
	ret.object = names.Enumerate(ObjectClassName)
	ret.init = names.Enumerate(InitMethodName)
	return ret
}

func (c *Context) resetTables() {
	c.types = map[string]*Type{}
	c.usages = map[string]*Usage{}
}

// Get returns the name of s.
func (c *Context) Get(s string) naming.Name {
	return c.names.Enumerate(s)
}

// Value returns the string of name.
func (c *Context) Value(name naming.Name) string {
	return c.names.Value(name)
}

// ObjectName returns the name of java/lang/Object.
func (c *Context) ObjectName() naming.Name {
	return c.object
}

// InitName returns the name of constructors.
func (c *Context) InitName() naming.Name {
	return c.init
}

// ClearMemoryCaches drops the canonical tables and the enumerator caches.
// Logical identity is preserved since equality is structural.
func (c *Context) ClearMemoryCaches() error {
	c.mu.Lock()
	c.resetTables()
	c.mu.Unlock()
	return c.names.Flush(true)
}

// Flush persists the enumerator.
func (c *Context) Flush(memoryOnly bool) error {
	if memoryOnly {
		return c.ClearMemoryCaches()
	}
	return c.names.Flush(false)
}

// Close closes the enumerator.
func (c *Context) Close() error {
	return c.names.Close()
}

func (c *Context) canonicalType(t *Type) *Type {
	t.key = typeKey(t)
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.types[t.key]; ok {
		return existing
	}
	c.types[t.key] = t
	return t
}

func (c *Context) canonicalUsage(u *Usage) *Usage {
	u.key = usageKey(u)
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.usages[u.key]; ok {
		return existing
	}
	c.usages[u.key] = u
	return u
}

// PrimitiveType returns the primitive type of descriptor ("I", "Z", "V", ...).
func (c *Context) PrimitiveType(descriptor string) *Type {
	return c.canonicalType(&Type{Kind: PrimitiveKind, Name: c.Get(descriptor)})
}

// ArrayType returns the array type of elem.
func (c *Context) ArrayType(elem *Type) *Type {
	return c.canonicalType(&Type{Kind: ArrayKind, Elem: elem})
}

// ClassType returns the class type of name with optional type arguments.
func (c *Context) ClassType(name naming.Name, args ...*Type) *Type {
	return c.canonicalType(&Type{Kind: ClassKind, Name: name, Args: args})
}

// ClassTypeOf returns the class type of an internal class name.
func (c *Context) ClassTypeOf(className string) *Type {
	return c.ClassType(c.Get(className))
}

// ParseType parses a field descriptor such as "I", "[J" or "Ljava/lang/String;".
func (c *Context) ParseType(descriptor string) (*Type, error) {
	t, rest, err := c.parseType(descriptor)
	if err != nil {
		return nil, err
	}
	if rest != "" {
		return nil, fmt.Errorf("invalid descriptor %q: trailing %q", descriptor, rest)
	}
	return t, nil
}

// ParseMethod parses a method descriptor into parameter and return types.
func (c *Context) ParseMethod(descriptor string) ([]*Type, *Type, error) {
	if len(descriptor) == 0 || descriptor[0] != '(' {
		return nil, nil, fmt.Errorf("invalid method descriptor %q", descriptor)
	}
	var args []*Type
	rest := descriptor[1:]
	for len(rest) > 0 && rest[0] != ')' {
		arg, tail, err := c.parseType(rest)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid method descriptor %q: %w", descriptor, err)
		}
		args = append(args, arg)
		rest = tail
	}
	if len(rest) == 0 {
		return nil, nil, fmt.Errorf("invalid method descriptor %q: missing ')'", descriptor)
	}
	ret, err := c.ParseType(rest[1:])
	if err != nil {
		return nil, nil, fmt.Errorf("invalid method descriptor %q: %w", descriptor, err)
	}
	return args, ret, nil
}

func (c *Context) parseType(descriptor string) (*Type, string, error) {
	if descriptor == "" {
		return nil, "", fmt.Errorf("empty descriptor")
	}
	switch descriptor[0] {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 'V':
		return c.PrimitiveType(descriptor[:1]), descriptor[1:], nil
	case '[':
		elem, rest, err := c.parseType(descriptor[1:])
		if err != nil {
			return nil, "", err
		}
		return c.ArrayType(elem), rest, nil
	case 'L':
		for i := 1; i < len(descriptor); i++ {
			if descriptor[i] == ';' {
				return c.ClassTypeOf(descriptor[1:i]), descriptor[i+1:], nil
			}
		}
		return nil, "", fmt.Errorf("unterminated class descriptor %q", descriptor)
	}
	return nil, "", fmt.Errorf("unsupported descriptor %q", descriptor)
}

// FieldUsage returns a field read of owner.name.
func (c *Context) FieldUsage(owner, name naming.Name, typ *Type) *Usage {
	return c.canonicalUsage(&Usage{Kind: FieldRead, Owner: owner, Name: name, Type: typ})
}

// FieldAssignUsage returns a field write of owner.name.
func (c *Context) FieldAssignUsage(owner, name naming.Name, typ *Type) *Usage {
	return c.canonicalUsage(&Usage{Kind: FieldWrite, Owner: owner, Name: name, Type: typ})
}

// MethodUsage returns a call of owner.name with the given descriptor types.
func (c *Context) MethodUsage(owner, name naming.Name, args []*Type, ret *Type) *Usage {
	return c.canonicalUsage(&Usage{Kind: MethodCall, Owner: owner, Name: name, Args: args, Type: ret})
}

// MetaMethodUsage returns the descriptor-insensitive call of owner.name.
func (c *Context) MetaMethodUsage(owner, name naming.Name) *Usage {
	return c.canonicalUsage(&Usage{Kind: MetaMethodCall, Owner: owner, Name: name})
}

// ClassUsage returns a reference to class name.
func (c *Context) ClassUsage(name naming.Name) *Usage {
	return c.canonicalUsage(&Usage{Kind: ClassReference, Owner: name})
}

// ClassExtendsUsage returns a subclassing reference to class name.
func (c *Context) ClassExtendsUsage(name naming.Name) *Usage {
	return c.canonicalUsage(&Usage{Kind: ClassExtends, Owner: name})
}

// ClassNewUsage returns an instantiation of class name.
func (c *Context) ClassNewUsage(name naming.Name) *Usage {
	return c.canonicalUsage(&Usage{Kind: ClassInstantiation, Owner: name})
}

// ClassAsGenericBoundUsage returns a reference to class name as a type parameter bound.
func (c *Context) ClassAsGenericBoundUsage(name naming.Name) *Usage {
	return c.canonicalUsage(&Usage{Kind: ClassAsGenericBound, Owner: name})
}

// AnnotationUsage returns a use of annotation typ setting usedArgs and placed on targets.
func (c *Context) AnnotationUsage(typ *Type, usedArgs []naming.Name, targets ElemTypes) *Usage {
	args := append([]naming.Name(nil), usedArgs...)
	sort.Slice(args, func(i, j int) bool { return args[i] < args[j] })
	args = compactNames(args)
	return c.canonicalUsage(&Usage{Kind: AnnotationReference, Owner: typ.Name, Type: typ, UsedArgs: args, Targets: targets})
}

// ModuleUsage returns a requires reference to module name.
func (c *Context) ModuleUsage(name naming.Name) *Usage {
	return c.canonicalUsage(&Usage{Kind: ModuleReference, Owner: name})
}

// ImportStaticMemberUsage returns a single static import of owner.name.
func (c *Context) ImportStaticMemberUsage(owner, name naming.Name) *Usage {
	return c.canonicalUsage(&Usage{Kind: StaticImportMember, Owner: owner, Name: name})
}

// ImportStaticOnDemandUsage returns an on-demand static import of owner.
func (c *Context) ImportStaticOnDemandUsage(owner naming.Name) *Usage {
	return c.canonicalUsage(&Usage{Kind: StaticImportOnDemand, Owner: owner})
}

func compactNames(names []naming.Name) []naming.Name {
	if len(names) == 0 {
		return nil
	}
	ret := names[:1]
	for _, n := range names[1:] {
		if n != ret[len(ret)-1] {
			ret = append(ret, n)
		}
	}
	return ret
}
