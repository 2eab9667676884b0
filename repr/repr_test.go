package repr_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/depview/naming"
	"github.com/viant/depview/repr"
)

func newContext() *repr.Context {
	return repr.NewContext(naming.NewMemoryEnumerator())
}

func identity(s string) string { return s }

func TestMake(t *testing.T) {
	tests := []struct {
		description string
		past        []string
		now         []string
		added       []string
		removed     []string
	}{
		{description: "both empty"},
		{description: "all added", now: []string{"a", "b", "a"}, added: []string{"a", "b"}},
		{description: "all removed", past: []string{"a"}, removed: []string{"a"}},
		{description: "partition", past: []string{"a", "b"}, now: []string{"b", "c"}, added: []string{"c"}, removed: []string{"a"}},
		{description: "same elements", past: []string{"a", "b"}, now: []string{"b", "a"}},
	}

	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			actual := repr.Make(tc.past, tc.now, identity)
			assert.ElementsMatch(t, tc.added, actual.Added)
			assert.ElementsMatch(t, tc.removed, actual.Removed)
			assert.Empty(t, actual.Changed)
			assert.Equal(t, len(tc.added) == 0 && len(tc.removed) == 0, actual.Unchanged())
		})
	}
}

func TestDiffClass(t *testing.T) {
	ctx := newContext()
	intType, err := ctx.ParseType("I")
	require.NoError(t, err)
	class := func(options ...func(c *repr.ClassRepr)) *repr.ClassRepr {
		ret := &repr.ClassRepr{
			Proto: repr.Proto{Access: repr.AccPublic, Name: ctx.Get("p/A")},
			File:  ctx.Get("p/A.class"),
			Fields: []*repr.FieldRepr{{Member: repr.Member{
				Proto: repr.Proto{Access: repr.AccPublic | repr.AccStatic | repr.AccFinal, Name: ctx.Get("X")},
				Type:  intType,
				Value: int32(1),
			}}},
		}
		for _, option := range options {
			option(ret)
		}
		return ret
	}

	t.Run("identical snapshots", func(t *testing.T) {
		assert.True(t, repr.DiffClass(ctx, class(), class()).No())
	})

	t.Run("narrowed access", func(t *testing.T) {
		diff := repr.DiffClass(ctx, class(func(c *repr.ClassRepr) { c.Access = 0 }), class())
		assert.True(t, diff.Has(repr.ChangeAccess))
		assert.True(t, diff.PackageLocalOn)
		assert.False(t, diff.AccessExpanded)
		assert.Equal(t, repr.AccPublic, diff.RemovedModifiers)
	})

	t.Run("changed constant", func(t *testing.T) {
		diff := repr.DiffClass(ctx, class(func(c *repr.ClassRepr) { c.Fields[0].Value = int32(2) }), class())
		require.Len(t, diff.Fields.Changed, 1)
		fieldDiff := diff.Fields.Changed[0].Diff
		assert.True(t, fieldDiff.Has(repr.ChangeValue))
		assert.False(t, fieldDiff.Has(repr.ChangeType))
		assert.True(t, fieldDiff.HadValue)
	})

	t.Run("superclass replaces Object", func(t *testing.T) {
		diff := repr.DiffClass(ctx,
			class(func(c *repr.ClassRepr) { c.SuperClass = ctx.ClassTypeOf("p/Base") }),
			class(func(c *repr.ClassRepr) { c.SuperClass = ctx.ClassTypeOf(repr.ObjectClassName) }),
		)
		assert.True(t, diff.Has(repr.ChangeSuperclass))
		assert.True(t, diff.ExtendsAdded)
	})

	t.Run("superclass removed is not an added extends", func(t *testing.T) {
		diff := repr.DiffClass(ctx,
			class(),
			class(func(c *repr.ClassRepr) { c.SuperClass = ctx.ClassTypeOf(repr.ObjectClassName) }),
		)
		assert.True(t, diff.Has(repr.ChangeSuperclass))
		assert.False(t, diff.ExtendsAdded)
	})

	t.Run("NaN constant is unchanged", func(t *testing.T) {
		doubleType, err := ctx.ParseType("D")
		require.NoError(t, err)
		nan := func(c *repr.ClassRepr) {
			c.Fields[0].Type = doubleType
			c.Fields[0].Value = math.NaN()
		}
		assert.True(t, repr.DiffClass(ctx, class(nan), class(nan)).No())
	})

	t.Run("usages only", func(t *testing.T) {
		diff := repr.DiffClass(ctx, class(func(c *repr.ClassRepr) { c.AddUsage(ctx.ClassUsage(ctx.Get("p/B"))) }), class())
		assert.False(t, diff.No())
		assert.True(t, diff.Has(repr.ChangeUsages))
		assert.True(t, diff.Fields.Unchanged())
	})
}

func TestContext_ParseMethod(t *testing.T) {
	ctx := newContext()
	tests := []struct {
		description string
		descriptor  string
		args        []string
		ret         string
		hasError    bool
	}{
		{description: "no arguments", descriptor: "()V", ret: "V"},
		{description: "mixed arguments", descriptor: "(I[JLjava/lang/String;)Ljava/util/List;", args: []string{"I", "[J", "Ljava/lang/String;"}, ret: "Ljava/util/List;"},
		{description: "missing parenthesis", descriptor: "I)V", hasError: true},
		{description: "unterminated class", descriptor: "(Ljava/lang/String)V", hasError: true},
		{description: "trailing data", descriptor: "()VV", hasError: true},
	}

	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			args, ret, err := ctx.ParseMethod(tc.descriptor)
			if tc.hasError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			var actual []string
			for _, arg := range args {
				actual = append(actual, arg.Descriptor(ctx))
			}
			assert.Equal(t, tc.args, actual)
			assert.Equal(t, tc.ret, ret.Descriptor(ctx))
		})
	}
}

func TestContext_CanonicalUsages(t *testing.T) {
	ctx := newContext()
	args, ret, err := ctx.ParseMethod("(I)V")
	require.NoError(t, err)
	first := ctx.MethodUsage(ctx.Get("p/A"), ctx.Get("m"), args, ret)
	second := ctx.MethodUsage(ctx.Get("p/A"), ctx.Get("m"), args, ret)
	assert.Same(t, first, second)
	assert.NotEqual(t, first.Key(), ctx.MethodUsage(ctx.Get("p/B"), ctx.Get("m"), args, ret).Key())
}

func TestUnmarshalClassFile(t *testing.T) {
	ctx := newContext()
	descriptor := func(d string) *repr.Type {
		typ, err := ctx.ParseType(d)
		require.NoError(t, err)
		return typ
	}
	method := func(name string, access int, d string, value any) *repr.MethodRepr {
		args, ret, err := ctx.ParseMethod(d)
		require.NoError(t, err)
		return &repr.MethodRepr{Member: repr.Member{Proto: repr.Proto{Access: access, Name: ctx.Get(name)}, Type: ret, Value: value}, Args: args}
	}
	field := func(name string, access int, d string, value any) *repr.FieldRepr {
		return &repr.FieldRepr{Member: repr.Member{Proto: repr.Proto{Access: access, Name: ctx.Get(name)}, Type: descriptor(d), Value: value}}
	}
	marker := ctx.ClassTypeOf("p/Marker")
	abstract := repr.AccPublic | repr.AccAbstract

	tests := []struct {
		description string
		class       func() *repr.ClassRepr
	}{
		{
			description: "abstract class with generic signature and throwing method",
			class: func() *repr.ClassRepr {
				size := method("size", repr.AccPublic, "(Ljava/lang/String;)I", nil)
				size.Exceptions = []*repr.Type{ctx.ClassTypeOf("java/io/IOException")}
				size.ParamAnnotations = []repr.ParamAnnotation{{Index: 0, Type: marker}}
				size.Signature = ctx.Get("<T:Ljava/lang/Object;>(TT;)I")
				return &repr.ClassRepr{
					Proto:      repr.Proto{Access: abstract, Name: ctx.Get("p/A"), Signature: ctx.Get("<T:Ljava/lang/Object;>Ljava/lang/Object;"), Annotations: []*repr.Type{marker}},
					File:       ctx.Get("p/A.class"),
					SuperClass: ctx.ClassTypeOf("p/Base"),
					Interfaces: []*repr.Type{ctx.ClassTypeOf("java/lang/Runnable")},
					Methods:    []*repr.MethodRepr{size},
					OuterClass: ctx.Get("p/Outer"),
				}
			},
		},
		{
			description: "interface without signature",
			class: func() *repr.ClassRepr {
				return &repr.ClassRepr{
					Proto:   repr.Proto{Access: repr.AccPublic | repr.AccInterface | repr.AccAbstract, Name: ctx.Get("p/I")},
					File:    ctx.Get("p/I.class"),
					Methods: []*repr.MethodRepr{method("run", abstract, "()V", nil)},
				}
			},
		},
		{
			description: "enum with constants of every value kind",
			class: func() *repr.ClassRepr {
				return &repr.ClassRepr{
					Proto:      repr.Proto{Access: repr.AccPublic | repr.AccFinal | repr.AccEnum, Name: ctx.Get("p/E")},
					File:       ctx.Get("p/E.class"),
					SuperClass: ctx.ClassType(ctx.Get("java/lang/Enum"), ctx.ClassTypeOf("p/E")),
					Fields: []*repr.FieldRepr{
						field("RED", repr.AccPublic|repr.AccStatic|repr.AccFinal|repr.AccEnum, "Lp/E;", nil),
						field("I", repr.AccPublic|repr.AccStatic|repr.AccFinal, "I", int32(-7)),
						field("J", repr.AccPublic|repr.AccStatic|repr.AccFinal, "J", int64(1)<<40),
						field("F", repr.AccPublic|repr.AccStatic|repr.AccFinal, "F", float32(1.5)),
						field("D", repr.AccPublic|repr.AccStatic|repr.AccFinal, "D", math.NaN()),
						field("S", repr.AccPublic|repr.AccStatic|repr.AccFinal, "Ljava/lang/String;", "red"),
						field("EMPTY", repr.AccPublic|repr.AccStatic|repr.AccFinal, "Ljava/lang/String;", ""),
						field("VALUES", repr.AccPrivate|repr.AccStatic|repr.AccFinal|repr.AccSynthetic, "[Lp/E;", nil),
					},
					Generated:           true,
					HasInlinedConstants: true,
				}
			},
		},
		{
			description: "annotation type with targets retention and defaults",
			class: func() *repr.ClassRepr {
				return &repr.ClassRepr{
					Proto:      repr.Proto{Access: repr.AccPublic | repr.AccInterface | repr.AccAbstract | repr.AccAnnotation, Name: ctx.Get("p/Marker")},
					File:       ctx.Get("p/Marker.class"),
					Interfaces: []*repr.Type{ctx.ClassTypeOf("java/lang/annotation/Annotation")},
					Methods: []*repr.MethodRepr{
						method("count", abstract, "()I", int32(3)),
						method("size", abstract, "()J", int64(-1)),
						method("ratio", abstract, "()F", float32(0.25)),
						method("weight", abstract, "()D", 2.5),
						method("name", abstract, "()Ljava/lang/String;", "x"),
						method("required", abstract, "()Ljava/lang/String;", nil),
					},
					Targets:   repr.NewElemTypes(repr.TargetType, repr.TargetMethod, repr.TargetTypeUse),
					Retention: repr.RetentionRuntime,
				}
			},
		},
		{
			description: "local and anonymous flags",
			class: func() *repr.ClassRepr {
				return &repr.ClassRepr{
					Proto:      repr.Proto{Name: ctx.Get("p/A$1")},
					File:       ctx.Get("p/A$1.class"),
					SuperClass: ctx.ClassTypeOf(repr.ObjectClassName),
					OuterClass: ctx.Get("p/A"),
					Local:      true,
					Anonymous:  true,
				}
			},
		},
		{
			description: "every usage kind",
			class: func() *repr.ClassRepr {
				owner, name := ctx.Get("p/B"), ctx.Get("m")
				args, ret, err := ctx.ParseMethod("(I[Ljava/lang/String;)V")
				require.NoError(t, err)
				c := &repr.ClassRepr{Proto: repr.Proto{Access: repr.AccPublic, Name: ctx.Get("p/U")}, File: ctx.Get("p/U.class")}
				for _, u := range []*repr.Usage{
					ctx.FieldUsage(owner, ctx.Get("f"), descriptor("I")),
					ctx.FieldAssignUsage(owner, ctx.Get("f"), descriptor("I")),
					ctx.MethodUsage(owner, name, args, ret),
					ctx.MetaMethodUsage(owner, name),
					ctx.ClassUsage(owner),
					ctx.ClassExtendsUsage(owner),
					ctx.ClassAsGenericBoundUsage(owner),
					ctx.ClassNewUsage(owner),
					ctx.AnnotationUsage(marker, []naming.Name{ctx.Get("value"), ctx.Get("count")}, repr.NewElemTypes(repr.TargetMethod, repr.TargetField)),
					ctx.AnnotationUsage(marker, nil, 0),
					ctx.ModuleUsage(ctx.Get("m.lib")),
					ctx.ImportStaticMemberUsage(owner, ctx.Get("CONST")),
					ctx.ImportStaticOnDemandUsage(owner),
				} {
					c.AddUsage(u)
				}
				return c
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			expected := tc.class()
			decoded, err := repr.UnmarshalClassFile(ctx, repr.MarshalClassFile(expected))
			require.NoError(t, err)
			actual, ok := decoded.(*repr.ClassRepr)
			require.True(t, ok)
			assert.True(t, repr.DiffClass(ctx, actual, expected).No())
			assert.Equal(t, expected.Usages(), actual.Usages())
			assert.Equal(t, expected.File, actual.File)
			assert.Equal(t, expected.Signature, actual.Signature)
			assert.Equal(t, expected.OuterClass, actual.OuterClass)
			assert.Equal(t, expected.Targets, actual.Targets)
			assert.Equal(t, expected.Retention, actual.Retention)
			assert.Equal(t, []bool{expected.Local, expected.Anonymous, expected.Generated, expected.HasInlinedConstants},
				[]bool{actual.Local, actual.Anonymous, actual.Generated, actual.HasInlinedConstants})
			assert.Same(t, expected.SuperClass, actual.SuperClass)
			require.Len(t, actual.Methods, len(expected.Methods))
			for i, m := range expected.Methods {
				assert.Equal(t, m.Signature, actual.Methods[i].Signature)
				assert.Equal(t, m.ParamAnnotations, actual.Methods[i].ParamAnnotations)
			}
		})
	}

	t.Run("corrupted input", func(t *testing.T) {
		data := repr.MarshalClassFile(tests[0].class())
		for _, input := range [][]byte{{0xff}, data[:5], append(append([]byte{}, data...), 0)} {
			_, err := repr.UnmarshalClassFile(ctx, input)
			assert.Error(t, err)
		}
	})
}

func TestUnmarshalClassFile_Module(t *testing.T) {
	ctx := newContext()
	tests := []struct {
		description string
		module      func() *repr.ModuleRepr
	}{
		{
			description: "empty module",
			module: func() *repr.ModuleRepr {
				return repr.NewModuleRepr(ctx, repr.AccModule, ctx.Get("m.empty"), ctx.Get("module-info.class"), naming.Empty, nil, nil)
			},
		},
		{
			description: "requires with version and access, qualified exports",
			module: func() *repr.ModuleRepr {
				return repr.NewModuleRepr(ctx, repr.AccModule, ctx.Get("m.app"), ctx.Get("module-info.class"), ctx.Get("1.0"),
					[]repr.ModuleRequires{
						{Name: ctx.Get("java.base"), Access: repr.AccSynthetic, Version: ctx.Get("21")},
						{Name: ctx.Get("m.lib"), Access: repr.AccTransitive},
					},
					[]repr.ModulePackage{
						{Name: ctx.Get("app/api")},
						{Name: ctx.Get("app/spi"), Targets: []naming.Name{ctx.Get("m.friend"), ctx.Get("m.other")}},
					})
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			expected := tc.module()
			decoded, err := repr.UnmarshalClassFile(ctx, repr.MarshalClassFile(expected))
			require.NoError(t, err)
			actual, ok := decoded.(*repr.ModuleRepr)
			require.True(t, ok)
			assert.True(t, repr.DiffModule(actual, expected).No())
			assert.Equal(t, expected.Usages(), actual.Usages())
			assert.Equal(t, expected.Requires, actual.Requires)
			assert.Equal(t, expected.Exports, actual.Exports)
			assert.Equal(t, expected.Version, actual.Version)
		})
	}
}

func TestDiffModule(t *testing.T) {
	ctx := newContext()
	lib, api := ctx.Get("m.lib"), ctx.Get("lib/api")
	past := repr.NewModuleRepr(ctx, 0, ctx.Get("m.app"), ctx.Get("module-info.class"), naming.Empty,
		[]repr.ModuleRequires{{Name: lib, Access: repr.AccTransitive}},
		[]repr.ModulePackage{{Name: api}})
	now := repr.NewModuleRepr(ctx, 0, ctx.Get("m.app"), ctx.Get("module-info.class"), naming.Empty,
		[]repr.ModuleRequires{{Name: lib}},
		[]repr.ModulePackage{{Name: api, Targets: []naming.Name{ctx.Get("m.friend")}}})

	diff := repr.DiffModule(now, past)
	assert.False(t, diff.No())
	require.Len(t, diff.Requires.Changed, 1)
	assert.True(t, diff.Requires.Changed[0].Diff.BecameNonTransitive)
	require.Len(t, diff.Exports.Changed, 1)
	assert.Len(t, diff.Exports.Changed[0].Diff.Targets.Added, 1)
	assert.True(t, repr.DiffModule(past, past).No())
	assert.Contains(t, now.Usages(), ctx.ModuleUsage(lib))
}
