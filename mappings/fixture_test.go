package mappings_test

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/viant/depview/mappings"
	"github.com/viant/depview/repr"
)

// fixture drives compilation rounds over a persistent store in a temp dir.
type fixture struct {
	t    *testing.T
	root string
	base *mappings.Mappings
	ctx  *repr.Context
}

func newFixture(t *testing.T, opts ...mappings.Option) *fixture {
	t.Helper()
	root := t.TempDir()
	base, err := mappings.New(root, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = base.Close() })
	return &fixture{t: t, root: root, base: base, ctx: base.Context()}
}

func (f *fixture) class(name string, access int, options ...func(c *repr.ClassRepr)) *repr.ClassRepr {
	ret := &repr.ClassRepr{
		Proto: repr.Proto{Access: access, Name: f.ctx.Get(name)},
		File:  f.ctx.Get(name + ".class"),
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

func (f *fixture) method(name string, access int, descriptor string) *repr.MethodRepr {
	args, ret, err := f.ctx.ParseMethod(descriptor)
	require.NoError(f.t, err)
	return &repr.MethodRepr{
		Member: repr.Member{Proto: repr.Proto{Access: access, Name: f.ctx.Get(name)}, Type: ret},
		Args:   args,
	}
}

func (f *fixture) field(name string, access int, descriptor string, value any) *repr.FieldRepr {
	typ, err := f.ctx.ParseType(descriptor)
	require.NoError(f.t, err)
	return &repr.FieldRepr{Member: repr.Member{Proto: repr.Proto{Access: access, Name: f.ctx.Get(name)}, Type: typ, Value: value}}
}

func (f *fixture) extends(super string) func(c *repr.ClassRepr) {
	return func(c *repr.ClassRepr) {
		c.SuperClass = f.ctx.ClassTypeOf(super)
		c.AddUsage(f.ctx.ClassExtendsUsage(c.SuperClass.Name))
	}
}

func withMethods(methods ...*repr.MethodRepr) func(c *repr.ClassRepr) {
	return func(c *repr.ClassRepr) { c.Methods = append(c.Methods, methods...) }
}

func withFields(fields ...*repr.FieldRepr) func(c *repr.ClassRepr) {
	return func(c *repr.ClassRepr) { c.Fields = append(c.Fields, fields...) }
}

func withUsages(usages ...*repr.Usage) func(c *repr.ClassRepr) {
	return func(c *repr.ClassRepr) {
		for _, u := range usages {
			c.AddUsage(u)
		}
	}
}

func (f *fixture) call(owner, name, descriptor string) *repr.Usage {
	args, ret, err := f.ctx.ParseMethod(descriptor)
	require.NoError(f.t, err)
	return f.ctx.MethodUsage(f.ctx.Get(owner), f.ctx.Get(name), args, ret)
}

func (f *fixture) classUsage(name string) *repr.Usage {
	return f.ctx.ClassUsage(f.ctx.Get(name))
}

type unit struct {
	source string
	reprs  []repr.ClassFileRepr
}

func compiled(source string, reprs ...repr.ClassFileRepr) unit {
	return unit{source: source, reprs: reprs}
}

func (f *fixture) delta(units []unit) *mappings.Mappings {
	delta, err := f.base.CreateDelta()
	require.NoError(f.t, err)
	backend := delta.Backend()
	for _, u := range units {
		for _, r := range u.reprs {
			require.NoError(f.t, backend.AssociateRepr([]string{u.source}, r))
		}
	}
	return delta
}

// build records a full rebuild.
func (f *fixture) build(units ...unit) {
	delta := f.delta(units)
	require.NoError(f.t, f.base.DifferentiateOnRebuild(delta))
	require.NoError(f.t, f.base.Integrate(context.Background(), delta))
}

// round runs one incremental round and integrates it; the scheduled sources default to the compiled units.
func (f *fixture) round(req *mappings.Request, units ...unit) (bool, []string) {
	delta := f.delta(units)
	if req == nil {
		req = &mappings.Request{}
	}
	if req.FilesToCompile == nil {
		for _, u := range units {
			req.FilesToCompile = append(req.FilesToCompile, u.source)
		}
	}
	incremental, err := f.base.DifferentiateOnIncrementalMake(context.Background(), delta, req)
	require.NoError(f.t, err)
	require.NoError(f.t, f.base.Integrate(context.Background(), delta))
	affected := req.AffectedFiles.Sorted()
	sort.Strings(affected)
	return incremental, affected
}
