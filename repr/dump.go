package repr

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/viant/depview/naming"
)

// TypeString renders t for diagnostics, including type arguments.
func TypeString(ctx *Context, t *Type) string {
	if t == nil {
		return "<none>"
	}
	switch t.Kind {
	case PrimitiveKind:
		return ctx.Value(t.Name)
	case ArrayKind:
		return TypeString(ctx, t.Elem) + "[]"
	}
	ret := ctx.Value(t.Name)
	if len(t.Args) > 0 {
		args := make([]string, 0, len(t.Args))
		for _, arg := range t.Args {
			args = append(args, TypeString(ctx, arg))
		}
		ret += "<" + strings.Join(args, ",") + ">"
	}
	return ret
}

// UsageString renders u for diagnostics.
func UsageString(ctx *Context, u *Usage) string {
	b := strings.Builder{}
	b.WriteString(u.Kind.String())
	b.WriteString(" ")
	b.WriteString(ctx.Value(u.Owner))
	if u.Name != naming.Empty {
		b.WriteString(".")
		b.WriteString(ctx.Value(u.Name))
	}
	switch u.Kind {
	case MethodCall, FieldRead, FieldWrite:
		b.WriteString(" ")
		b.WriteString(u.Descriptor(ctx))
	case AnnotationReference:
		args := make([]string, 0, len(u.UsedArgs))
		for _, arg := range u.UsedArgs {
			args = append(args, ctx.Value(arg))
		}
		sort.Strings(args)
		fmt.Fprintf(&b, " args=[%s] targets=[%s]", strings.Join(args, ","), u.Targets)
	}
	return b.String()
}

// DumpClassFile writes a deterministic, human readable rendering of r.
func DumpClassFile(ctx *Context, w io.Writer, r ClassFileRepr) error {
	lines := []string{}
	add := func(format string, args ...any) {
		lines = append(lines, fmt.Sprintf(format, args...))
	}
	switch actual := r.(type) {
	case *ClassRepr:
		add("Class %s", ctx.Value(actual.Name))
		add("  access: %#x", actual.Access)
		add("  signature: %s", ctx.Value(actual.Signature))
		add("  file: %s", ctx.Value(actual.File))
		add("  superclass: %s", TypeString(ctx, actual.SuperClass))
		add("  interfaces: %s", typeList(ctx, actual.Interfaces))
		add("  annotations: %s", typeList(ctx, actual.Annotations))
		add("  outer: %s local=%t anonymous=%t generated=%t inlined-constants=%t",
			ctx.Value(actual.OuterClass), actual.Local, actual.Anonymous, actual.Generated, actual.HasInlinedConstants)
		if actual.IsAnnotation() {
			add("  targets: [%s] retention: %s", actual.Targets, actual.Retention)
		}
		fields := make([]string, 0, len(actual.Fields))
		for _, f := range actual.Fields {
			fields = append(fields, fmt.Sprintf("    field %s %s access=%#x value=%v", ctx.Value(f.Name), f.Type.Descriptor(ctx), f.Access, f.Value))
		}
		sort.Strings(fields)
		lines = append(lines, fields...)
		methods := make([]string, 0, len(actual.Methods))
		for _, m := range actual.Methods {
			methods = append(methods, fmt.Sprintf("    method %s%s access=%#x throws=%s",
				ctx.Value(m.Name), MethodDescriptor(ctx, m.Args, m.Type), m.Access, typeList(ctx, m.Exceptions)))
		}
		sort.Strings(methods)
		lines = append(lines, methods...)
	case *ModuleRepr:
		add("Module %s", ctx.Value(actual.Name))
		add("  version: %s", ctx.Value(actual.Version))
		requires := make([]string, 0, len(actual.Requires))
		for _, req := range actual.Requires {
			requires = append(requires, fmt.Sprintf("    requires %s transitive=%t version=%s", ctx.Value(req.Name), req.IsTransitive(), ctx.Value(req.Version)))
		}
		sort.Strings(requires)
		lines = append(lines, requires...)
		exports := make([]string, 0, len(actual.Exports))
		for _, p := range actual.Exports {
			targets := make([]string, 0, len(p.Targets))
			for _, t := range p.Targets {
				targets = append(targets, ctx.Value(t))
			}
			sort.Strings(targets)
			exports = append(exports, fmt.Sprintf("    exports %s to [%s]", ctx.Value(p.Name), strings.Join(targets, ",")))
		}
		sort.Strings(exports)
		lines = append(lines, exports...)
	}
	sum, err := Digest(MarshalClassFile(r))
	if err != nil {
		return err
	}
	add("  digest: %016x", sum)
	usages := make([]string, 0)
	for _, u := range r.Usages() {
		usages = append(usages, "    usage "+UsageString(ctx, u))
	}
	sort.Strings(usages)
	lines = append(lines, usages...)
	for _, line := range lines {
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return err
		}
	}
	return nil
}

func typeList(ctx *Context, types []*Type) string {
	items := make([]string, 0, len(types))
	for _, t := range types {
		items = append(items, TypeString(ctx, t))
	}
	sort.Strings(items)
	return "[" + strings.Join(items, ",") + "]"
}
