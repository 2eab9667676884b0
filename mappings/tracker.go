package mappings

import (
	"github.com/viant/depview/repr"
)

// Recompile is an extra recompilation scope requested by an AnnotationTracker.
type Recompile uint8

const (
	// RecompileUsages affects every usage of the element.
	RecompileUsages Recompile = 1 << iota
	// RecompileSubclasses affects every subclass of the owner class.
	RecompileSubclasses
)

// RecompileAll holds every scope.
const RecompileAll = RecompileUsages | RecompileSubclasses

// RecompileSet is a set of Recompile scopes.
type RecompileSet = Recompile

// Has reports whether s holds every scope of r.
func (s Recompile) Has(r Recompile) bool {
	return s&r == r
}

// AnnotationTracker reacts to annotation changes with domain specific semantics,
// e.g. annotation driven code generation. Trackers run in registration order
// until all scopes are requested.
type AnnotationTracker interface {
	ClassAnnotationsChanged(ctx *repr.Context, class *repr.ClassRepr, annotations *repr.Specifier[*repr.Type, repr.NoDiff]) RecompileSet
	MethodAnnotationsChanged(ctx *repr.Context, method *repr.MethodRepr, annotations *repr.Specifier[*repr.Type, repr.NoDiff], params *repr.Specifier[repr.ParamAnnotation, repr.NoDiff]) RecompileSet
	FieldAnnotationsChanged(ctx *repr.Context, field *repr.FieldRepr, annotations *repr.Specifier[*repr.Type, repr.NoDiff]) RecompileSet
}

// collectRecompile asks trackers in order, stopping once every scope is requested.
func collectRecompile(trackers []AnnotationTracker, ask func(t AnnotationTracker) RecompileSet) RecompileSet {
	var ret RecompileSet
	for _, t := range trackers {
		if ret.Has(RecompileAll) {
			break
		}
		ret |= ask(t)
	}
	return ret
}
