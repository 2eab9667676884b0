package mappings_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
	"github.com/viant/depview/mappings"
	"github.com/viant/depview/repr"
)

const (
	public         = repr.AccPublic
	publicAbstract = repr.AccPublic | repr.AccAbstract
	constant       = repr.AccPublic | repr.AccStatic | repr.AccFinal
)

func TestDifferentiate_MethodRules(t *testing.T) {
	tests := []ruleCase{
		{
			description: "added overload schedules callers of the existing one",
			build: func(f *fixture) []unit {
				return []unit{
					compiled("p/A.java", f.class("p/A", public, withMethods(f.method("m", public, "(Ljava/lang/String;)V")))),
					compiled("p/B.java", f.class("p/B", public, withUsages(f.classUsage("p/A"), f.call("p/A", "m", "(Ljava/lang/String;)V")))),
				}
			},
			change: func(f *fixture) []unit {
				return []unit{
					compiled("p/A.java", f.class("p/A", public, withMethods(
						f.method("m", public, "(Ljava/lang/String;)V"),
						f.method("m", public, "(Ljava/lang/Object;)V"),
					))),
				}
			},
			incremental: true,
			affected:    []string{"p/B.java"},
		},
		{
			description: "package-local method affects callers outside the package only",
			build: func(f *fixture) []unit {
				return []unit{
					compiled("p/A.java", f.class("p/A", public, withMethods(f.method("foo", public, "()V")))),
					compiled("q/B.java", f.class("q/B", public, withUsages(f.call("p/A", "foo", "()V")))),
					compiled("p/C.java", f.class("p/C", public, withUsages(f.call("p/A", "foo", "()V")))),
				}
			},
			change: func(f *fixture) []unit {
				return []unit{compiled("p/A.java", f.class("p/A", public, withMethods(f.method("foo", 0, "()V"))))}
			},
			incremental: true,
			affected:    []string{"q/B.java"},
		},
		{
			description: "abstract method added to root schedules every transitive subclass",
			build: func(f *fixture) []unit {
				return []unit{
					compiled("p/A.java", f.class("p/A", publicAbstract)),
					compiled("p/B.java", f.class("p/B", publicAbstract, f.extends("p/A"))),
					compiled("p/C.java", f.class("p/C", public, f.extends("p/B"))),
				}
			},
			change: func(f *fixture) []unit {
				return []unit{compiled("p/A.java", f.class("p/A", publicAbstract, withMethods(f.method("run", publicAbstract, "()V"))))}
			},
			incremental: true,
			affected:    []string{"p/B.java", "p/C.java"},
		},
		{
			description: "own member access does not affect the declaring source",
			build: func(f *fixture) []unit {
				return []unit{
					compiled("p/A.java", f.class("p/A", public,
						withMethods(f.method("helper", repr.AccPrivate, "()I")),
						withUsages(f.call("p/A", "helper", "()I")),
					)),
					compiled("p/C.java", f.class("p/C", public, withUsages(f.classUsage("p/A")))),
				}
			},
			change: func(f *fixture) []unit {
				return []unit{compiled("p/A.java", f.class("p/A", public,
					withMethods(f.method("helper", repr.AccPrivate, "()J")),
					withUsages(f.call("p/A", "helper", "()J")),
				))}
			},
			incremental: true,
			affected:    []string{},
		},
		{
			description: "removed method affects callers",
			build: func(f *fixture) []unit {
				return []unit{
					compiled("p/A.java", f.class("p/A", public, withMethods(f.method("m", public, "(I)V")))),
					compiled("p/B.java", f.class("p/B", public, withUsages(f.call("p/A", "m", "(I)V")))),
					compiled("p/D.java", f.class("p/D", public, withUsages(f.classUsage("p/A")))),
				}
			},
			change: func(f *fixture) []unit {
				return []unit{compiled("p/A.java", f.class("p/A", public))}
			},
			incremental: true,
			affected:    []string{"p/B.java"},
		},
		{
			description: "affected generated source gives up",
			build: func(f *fixture) []unit {
				return []unit{
					compiled("p/A.java", f.class("p/A", public, withMethods(f.method("m", public, "()I")))),
					compiled("gen/G.java", f.class("gen/G", public, withUsages(f.call("p/A", "m", "()I")), func(c *repr.ClassRepr) {
						c.Generated = true
					})),
				}
			},
			change: func(f *fixture) []unit {
				return []unit{compiled("p/A.java", f.class("p/A", public, withMethods(f.method("m", public, "()J"))))}
			},
			incremental: false,
		},
		{
			description: "generated subclass scheduled for a new abstract method gives up",
			build: func(f *fixture) []unit {
				return []unit{
					compiled("p/A.java", f.class("p/A", publicAbstract)),
					compiled("gen/G.java", f.class("gen/G", public, f.extends("p/A"), func(c *repr.ClassRepr) {
						c.Generated = true
					})),
				}
			},
			change: func(f *fixture) []unit {
				return []unit{compiled("p/A.java", f.class("p/A", publicAbstract, withMethods(f.method("run", publicAbstract, "()V"))))}
			},
			incremental: false,
		},
		{
			description: "inherited call recorded through the subclass is affected by a return type change",
			build: func(f *fixture) []unit {
				return []unit{
					compiled("p/A.java", f.class("p/A", public, withMethods(f.method("m", public, "()I")))),
					compiled("p/B.java", f.class("p/B", public, f.extends("p/A"), withUsages(f.call("p/B", "m", "()I")))),
				}
			},
			change: func(f *fixture) []unit {
				return []unit{compiled("p/A.java", f.class("p/A", public, withMethods(f.method("m", public, "()J"))))}
			},
			incremental: true,
			affected:    []string{"p/B.java"},
		},
		{
			description: "added static method affects on-demand static imports",
			build: func(f *fixture) []unit {
				return []unit{
					compiled("p/A.java", f.class("p/A", public)),
					compiled("q/B.java", f.class("q/B", public, withUsages(f.ctx.ImportStaticOnDemandUsage(f.ctx.Get("p/A"))))),
					compiled("q/C.java", f.class("q/C", public, withUsages(f.classUsage("p/A")))),
				}
			},
			change: func(f *fixture) []unit {
				return []unit{compiled("p/A.java", f.class("p/A", public, withMethods(f.method("helper", public|repr.AccStatic, "()V"))))}
			},
			incremental: true,
			affected:    []string{"q/B.java"},
		},
		{
			description: "removed implementation leaves subclass with abstract methods only",
			build: func(f *fixture) []unit {
				return []unit{
					compiled("p/I.java", f.class("p/I", publicAbstract|repr.AccInterface, withMethods(f.method("run", publicAbstract, "()V")))),
					compiled("p/A.java", f.class("p/A", publicAbstract, f.implements("p/I"), withMethods(f.method("run", public, "()V")))),
					compiled("p/B.java", f.class("p/B", public, f.extends("p/A"))),
				}
			},
			change: func(f *fixture) []unit {
				return []unit{compiled("p/A.java", f.class("p/A", publicAbstract, f.implements("p/I")))}
			},
			incremental: true,
			affected:    []string{"p/B.java"},
		},
		{
			description: "public method becoming protected spares inheritors in the package",
			build: func(f *fixture) []unit {
				return []unit{
					compiled("p/A.java", f.class("p/A", public, withMethods(f.method("m", public, "()V")))),
					compiled("p/Sub.java", f.class("p/Sub", public, f.extends("p/A"), withUsages(f.call("p/A", "m", "()V")))),
					compiled("q/User.java", f.class("q/User", public, withUsages(f.call("p/A", "m", "()V")))),
				}
			},
			change: func(f *fixture) []unit {
				return []unit{compiled("p/A.java", f.class("p/A", public, withMethods(f.method("m", repr.AccProtected, "()V"))))}
			},
			incremental: true,
			affected:    []string{"q/User.java"},
		},
	}

	runRuleCases(t, tests)
}

type ruleCase = struct {
	description string
	build       func(f *fixture) []unit
	change      func(f *fixture) []unit
	incremental bool
	affected    []string
}

// runRuleCases builds each case, recompiles its changed units and checks the scheduled sources.
func runRuleCases(t *testing.T, tests []ruleCase) {
	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			f := newFixture(t)
			f.build(tc.build(f)...)
			incremental, affected := f.round(nil, tc.change(f)...)
			assert.Equal(t, tc.incremental, incremental)
			if tc.incremental {
				assert.Equal(t, tc.affected, affected)
			}
		})
	}
}

const annotationType = repr.AccPublic | repr.AccInterface | repr.AccAbstract | repr.AccAnnotation

func withTargets(targets ...repr.ElemType) func(c *repr.ClassRepr) {
	return func(c *repr.ClassRepr) { c.Targets = repr.NewElemTypes(targets...) }
}

func withDefault(m *repr.MethodRepr, value any) *repr.MethodRepr {
	m.Value = value
	return m
}

func (f *fixture) implements(names ...string) func(c *repr.ClassRepr) {
	return func(c *repr.ClassRepr) {
		for _, name := range names {
			c.Interfaces = append(c.Interfaces, f.ctx.ClassTypeOf(name))
			c.AddUsage(f.ctx.ClassExtendsUsage(f.ctx.Get(name)))
		}
	}
}

func (f *fixture) nestedIn(outer string) func(c *repr.ClassRepr) {
	return func(c *repr.ClassRepr) { c.OuterClass = f.ctx.Get(outer) }
}

func (f *fixture) read(owner, name, descriptor string) *repr.Usage {
	typ, err := f.ctx.ParseType(descriptor)
	require.NoError(f.t, err)
	return f.ctx.FieldUsage(f.ctx.Get(owner), f.ctx.Get(name), typ)
}

func TestDifferentiate_ClassRules(t *testing.T) {
	annotationUsers := func(f *fixture, annotation *repr.ClassRepr) []unit {
		marker := f.ctx.ClassTypeOf("p/Ann")
		return []unit{
			compiled("p/Ann.java", annotation),
			compiled("p/B.java", f.class("p/B", public, withUsages(f.classUsage("p/Ann")))),
			compiled("q/C.java", f.class("q/C", public, withUsages(f.ctx.AnnotationUsage(marker, nil, repr.NewElemTypes(repr.TargetType))))),
		}
	}
	tests := []ruleCase{
		{
			description: "annotation retention change affects usages",
			build: func(f *fixture) []unit {
				return annotationUsers(f, f.class("p/Ann", annotationType, withTargets(repr.TargetType)))
			},
			change: func(f *fixture) []unit {
				return []unit{compiled("p/Ann.java", f.class("p/Ann", annotationType, withTargets(repr.TargetType), func(c *repr.ClassRepr) {
					c.Retention = repr.RetentionRuntime
				}))}
			},
			incremental: true,
			affected:    []string{"p/B.java"},
		},
		{
			description: "TYPE_USE target moves annotations to another attribute",
			build: func(f *fixture) []unit {
				return annotationUsers(f, f.class("p/Ann", annotationType, withTargets(repr.TargetType)))
			},
			change: func(f *fixture) []unit {
				return []unit{compiled("p/Ann.java", f.class("p/Ann", annotationType, withTargets(repr.TargetType, repr.TargetTypeUse)))}
			},
			incremental: true,
			affected:    []string{"p/B.java"},
		},
		{
			description: "public annotation losing LOCAL_VARIABLE gives up",
			build: func(f *fixture) []unit {
				return annotationUsers(f, f.class("p/Ann", annotationType, withTargets(repr.TargetType, repr.TargetLocalVariable)))
			},
			change: func(f *fixture) []unit {
				return []unit{compiled("p/Ann.java", f.class("p/Ann", annotationType, withTargets(repr.TargetType)))}
			},
			incremental: false,
		},
		{
			description: "package-local annotation losing LOCAL_VARIABLE schedules its package",
			build: func(f *fixture) []unit {
				return annotationUsers(f, f.class("p/Ann", annotationType&^repr.AccPublic, withTargets(repr.TargetType, repr.TargetLocalVariable)))
			},
			change: func(f *fixture) []unit {
				return []unit{compiled("p/Ann.java", f.class("p/Ann", annotationType&^repr.AccPublic, withTargets(repr.TargetType)))}
			},
			incremental: true,
			affected:    []string{"p/B.java"},
		},
		{
			description: "annotation member added without default affects usages",
			build: func(f *fixture) []unit {
				return annotationUsers(f, f.class("p/Ann", annotationType, withTargets(repr.TargetType)))
			},
			change: func(f *fixture) []unit {
				return []unit{compiled("p/Ann.java", f.class("p/Ann", annotationType, withTargets(repr.TargetType),
					withMethods(f.method("count", publicAbstract, "()I")),
				))}
			},
			incremental: true,
			affected:    []string{"p/B.java"},
		},
		{
			description: "annotation member added with default is compatible",
			build: func(f *fixture) []unit {
				return annotationUsers(f, f.class("p/Ann", annotationType, withTargets(repr.TargetType)))
			},
			change: func(f *fixture) []unit {
				return []unit{compiled("p/Ann.java", f.class("p/Ann", annotationType, withTargets(repr.TargetType),
					withMethods(withDefault(f.method("count", publicAbstract, "()I"), int32(1))),
				))}
			},
			incremental: true,
			affected:    []string{},
		},
		{
			description: "class converted to interface affects class usages",
			build: func(f *fixture) []unit {
				return []unit{
					compiled("p/A.java", f.class("p/A", public)),
					compiled("p/B.java", f.class("p/B", public, withUsages(f.classUsage("p/A")))),
					compiled("q/C.java", f.class("q/C", public)),
				}
			},
			change: func(f *fixture) []unit {
				return []unit{compiled("p/A.java", f.class("p/A", publicAbstract|repr.AccInterface))}
			},
			incremental: true,
			affected:    []string{"p/B.java"},
		},
		{
			description: "interface converted to class affects class usages",
			build: func(f *fixture) []unit {
				return []unit{
					compiled("p/A.java", f.class("p/A", publicAbstract|repr.AccInterface)),
					compiled("p/B.java", f.class("p/B", public, withUsages(f.classUsage("p/A")))),
				}
			},
			change: func(f *fixture) []unit {
				return []unit{compiled("p/A.java", f.class("p/A", public))}
			},
			incremental: true,
			affected:    []string{"p/B.java"},
		},
		{
			description: "added class sharing a short name affects users of the other class",
			build: func(f *fixture) []unit {
				return []unit{
					compiled("q/Util.java", f.class("q/Util", public)),
					compiled("r/U.java", f.class("r/U", public, withUsages(f.classUsage("q/Util")))),
					compiled("r/V.java", f.class("r/V", public)),
				}
			},
			change: func(f *fixture) []unit {
				return []unit{compiled("p/Util.java", f.class("p/Util", public))}
			},
			incremental: true,
			affected:    []string{"r/U.java"},
		},
	}

	runRuleCases(t, tests)
}

func TestDifferentiate_FieldRules(t *testing.T) {
	tests := []ruleCase{
		{
			description: "enum constant added affects synthetic switch maps only",
			build: func(f *fixture) []unit {
				color := repr.AccPublic | repr.AccFinal | repr.AccEnum
				return []unit{
					compiled("p/Color.java", f.class("p/Color", color, withFields(f.field("RED", constant|repr.AccEnum, "Lp/Color;", nil)))),
					compiled("p/Sw.java", f.class("p/Sw$1", repr.AccStatic|repr.AccSynthetic, withUsages(f.classUsage("p/Color")))),
					compiled("q/User.java", f.class("q/User", public, withUsages(f.classUsage("p/Color")))),
				}
			},
			change: func(f *fixture) []unit {
				color := repr.AccPublic | repr.AccFinal | repr.AccEnum
				return []unit{compiled("p/Color.java", f.class("p/Color", color, withFields(
					f.field("RED", constant|repr.AccEnum, "Lp/Color;", nil),
					f.field("GREEN", constant|repr.AccEnum, "Lp/Color;", nil),
				)))}
			},
			incremental: true,
			affected:    []string{"p/Sw.java"},
		},
		{
			description: "added field hides a field of the outer class",
			build: func(f *fixture) []unit {
				return []unit{
					compiled("p/A.java", f.class("p/A", public)),
					compiled("p/Outer.java",
						f.class("p/Outer", public, withFields(f.field("x", public, "I", nil))),
						f.class("p/Outer$Inner", public, f.extends("p/A"), f.nestedIn("p/Outer")),
					),
				}
			},
			change: func(f *fixture) []unit {
				return []unit{compiled("p/A.java", f.class("p/A", public, withFields(f.field("x", public, "I", nil))))}
			},
			incremental: true,
			affected:    []string{"p/Outer.java"},
		},
		{
			description: "public field becoming protected spares inheritors in the package",
			build: func(f *fixture) []unit {
				return []unit{
					compiled("p/A.java", f.class("p/A", public, withFields(f.field("f", public, "I", nil)))),
					compiled("p/Sub.java", f.class("p/Sub", public, f.extends("p/A"), withUsages(f.read("p/A", "f", "I")))),
					compiled("q/User.java", f.class("q/User", public, withUsages(f.read("p/A", "f", "I")))),
				}
			},
			change: func(f *fixture) []unit {
				return []unit{compiled("p/A.java", f.class("p/A", public, withFields(f.field("f", repr.AccProtected, "I", nil))))}
			},
			incremental: true,
			affected:    []string{"q/User.java"},
		},
	}

	runRuleCases(t, tests)
}

type constantResolver struct {
	affection *mappings.ConstantAffection
	err       error
}

func (r *constantResolver) FindAffectedFiles(_ context.Context, owner, field string, _ int, _, _ bool) (*mappings.ConstantAffection, error) {
	return r.affection, r.err
}

func TestDifferentiate_ConstantChange(t *testing.T) {
	tests := []struct {
		description string
		request     func() *mappings.Request
		incremental bool
		affected    []string
	}{
		{
			description: "public constant without resolver gives up",
			request:     func() *mappings.Request { return &mappings.Request{} },
			incremental: false,
		},
		{
			description: "resolver failure gives up",
			request: func() *mappings.Request {
				return &mappings.Request{ConstantResolver: &constantResolver{err: errors.New("index unavailable")}}
			},
			incremental: false,
		},
		{
			description: "known affection schedules resolved files",
			request: func() *mappings.Request {
				return &mappings.Request{ConstantResolver: &constantResolver{affection: &mappings.ConstantAffection{Known: true, Files: []string{"p/B.java"}}}}
			},
			incremental: true,
			affected:    []string{"p/B.java"},
		},
		{
			description: "incremental constants affect recorded reads",
			request:     func() *mappings.Request { return &mappings.Request{ProcessConstantsIncrementally: true} },
			incremental: true,
			affected:    []string{"p/B.java"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			f := newFixture(t)
			intType, err := f.ctx.ParseType("I")
			require.NoError(t, err)
			f.build(
				compiled("p/A.java", f.class("p/A", public, withFields(f.field("X", constant, "I", int32(1))))),
				compiled("p/B.java", f.class("p/B", public,
					withUsages(f.ctx.FieldUsage(f.ctx.Get("p/A"), f.ctx.Get("X"), intType)),
					func(c *repr.ClassRepr) { c.HasInlinedConstants = true },
				)),
			)
			incremental, affected := f.round(tc.request(),
				compiled("p/A.java", f.class("p/A", public, withFields(f.field("X", constant, "I", int32(2))))),
			)
			assert.Equal(t, tc.incremental, incremental)
			if tc.incremental {
				assert.Equal(t, tc.affected, affected)
			}
		})
	}
}

func TestDifferentiate_DeletionCascade(t *testing.T) {
	f := newFixture(t)
	f.build(
		compiled("p/X.java", f.class("p/X", public, withMethods(f.method("m", public, "()V")))),
		compiled("p/Y.java", f.class("p/Y", public, f.extends("p/X"), withUsages(f.call("p/X", "m", "()V")))),
		compiled("p/Z.java", f.class("p/Z", public, withUsages(f.classUsage("p/X")))),
		compiled("p/W.java", f.class("p/W", public)),
	)
	incremental, affected := f.round(&mappings.Request{Removed: []string{"p/X.java"}})
	assert.True(t, incremental)
	assert.Equal(t, []string{"p/Y.java", "p/Z.java"}, affected)

	classes, err := f.base.GetClasses("p/X.java")
	require.NoError(t, err)
	assert.Empty(t, classes)
	sources, err := f.base.GetSources("p/X")
	require.NoError(t, err)
	assert.Empty(t, sources)

	dump := dumpString(t, f.base)
	assert.NotContains(t, dump, "p/X")
	assert.Contains(t, dump, "p/W")
}

func TestDifferentiate_ModuleExportsRemoved(t *testing.T) {
	f := newFixture(t)
	moduleB, moduleA, pkg := f.ctx.Get("m.b"), f.ctx.Get("m.a"), f.ctx.Get("b/api")
	file := f.ctx.Get("module-info.class")
	f.build(
		compiled("b/module-info.java", repr.NewModuleRepr(f.ctx, repr.AccModule, moduleB, file, 0, nil,
			[]repr.ModulePackage{{Name: pkg}})),
		compiled("a/module-info.java", repr.NewModuleRepr(f.ctx, repr.AccModule, moduleA, file, 0,
			[]repr.ModuleRequires{{Name: moduleB}}, nil)),
	)
	incremental, affected := f.round(nil,
		compiled("b/module-info.java", repr.NewModuleRepr(f.ctx, repr.AccModule, moduleB, file, 0, nil, nil)),
	)
	assert.True(t, incremental)
	assert.Equal(t, []string{"a/module-info.java"}, affected)
}

type annotationTracker struct {
	recompile mappings.RecompileSet
}

func (a *annotationTracker) ClassAnnotationsChanged(*repr.Context, *repr.ClassRepr, *repr.Specifier[*repr.Type, repr.NoDiff]) mappings.RecompileSet {
	return a.recompile
}

func (a *annotationTracker) MethodAnnotationsChanged(*repr.Context, *repr.MethodRepr, *repr.Specifier[*repr.Type, repr.NoDiff], *repr.Specifier[repr.ParamAnnotation, repr.NoDiff]) mappings.RecompileSet {
	return a.recompile
}

func (a *annotationTracker) FieldAnnotationsChanged(*repr.Context, *repr.FieldRepr, *repr.Specifier[*repr.Type, repr.NoDiff]) mappings.RecompileSet {
	return a.recompile
}

func TestDifferentiate_AnnotationTracker(t *testing.T) {
	tests := []struct {
		description string
		options     []mappings.Option
		affected    []string
	}{
		{
			description: "annotation change alone is compatible",
			affected:    []string{},
		},
		{
			description: "tracker requests usages",
			options:     []mappings.Option{mappings.WithAnnotationTracker(&annotationTracker{recompile: mappings.RecompileUsages})},
			affected:    []string{"p/B.java"},
		},
		{
			description: "tracker requests subclasses",
			options:     []mappings.Option{mappings.WithAnnotationTracker(&annotationTracker{recompile: mappings.RecompileSubclasses})},
			affected:    []string{"p/S.java"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			f := newFixture(t, tc.options...)
			f.build(
				compiled("p/A.java", f.class("p/A", public)),
				compiled("p/B.java", f.class("p/B", public, withUsages(f.classUsage("p/A")))),
				compiled("p/S.java", f.class("p/S", public, f.extends("p/A"))),
			)
			incremental, affected := f.round(nil, compiled("p/A.java", f.class("p/A", public, func(c *repr.ClassRepr) {
				c.Annotations = []*repr.Type{f.ctx.ClassTypeOf("p/Marker")}
			})))
			assert.True(t, incremental)
			assert.Equal(t, tc.affected, affected)
		})
	}
}

func TestDifferentiate_DuplicateClass(t *testing.T) {
	sourceRoot := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(sourceRoot, "p"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sourceRoot, "p", "A.java"), []byte("package p; class A {}"), 0o644))

	f := newFixture(t, mappings.WithFileSystem(afs.New(), sourceRoot))
	f.build(compiled("p/A.java", f.class("p/A", public)))
	incremental, affected := f.round(nil, compiled("p/Copy.java", f.class("p/A", public)))
	assert.True(t, incremental)
	assert.Equal(t, []string{"p/A.java", "p/Copy.java"}, affected)
}

func TestDifferentiate_ImportsRecordDependencies(t *testing.T) {
	f := newFixture(t)
	f.build(
		compiled("p/A.java", f.class("p/A", public)),
		compiled("q/B.java", f.class("q/B", public)),
	)

	delta, err := f.base.CreateDelta()
	require.NoError(t, err)
	backend := delta.Backend()
	require.NoError(t, backend.AssociateRepr([]string{"q/B.java"}, f.class("q/B", public)))
	backend.RegisterImports("q.B", []string{"p.A", "java.util.*"}, []string{"p.A.CONST"})
	incremental, err := f.base.DifferentiateOnIncrementalMake(context.Background(), delta, &mappings.Request{FilesToCompile: []string{"q/B.java"}})
	require.NoError(t, err)
	assert.True(t, incremental)
	require.NoError(t, f.base.Integrate(context.Background(), delta))

	classes, err := f.base.GetClasses("q/B.java")
	require.NoError(t, err)
	require.Len(t, classes, 1)
	assert.Contains(t, classes[0].Usages(), f.classUsage("p/A"))
	assert.Contains(t, classes[0].Usages(), f.ctx.ImportStaticMemberUsage(f.ctx.Get("p/A"), f.ctx.Get("CONST")))

	incremental, affected := f.round(&mappings.Request{Removed: []string{"p/A.java"}})
	assert.True(t, incremental)
	assert.Equal(t, []string{"q/B.java"}, affected)
}

func TestDifferentiate_NonIncrementalMake(t *testing.T) {
	f := newFixture(t)
	f.build(
		compiled("p/A.java", f.class("p/A", public)),
		compiled("p/B.java", f.class("p/B", public, f.extends("p/A"))),
	)
	delta := f.delta([]unit{compiled("p/B.java", f.class("p/B", public))})
	require.NoError(t, f.base.DifferentiateOnNonIncrementalMake(delta, nil, []string{"p/B.java"}))
	require.NoError(t, f.base.Integrate(context.Background(), delta))

	classes, err := f.base.GetClasses("p/B.java")
	require.NoError(t, err)
	require.Len(t, classes, 1)
	class, ok := classes[0].(*repr.ClassRepr)
	require.True(t, ok)
	assert.Nil(t, class.SuperClass)
}
