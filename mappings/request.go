package mappings

import (
	"context"

	"github.com/viant/depview/naming"
	"github.com/viant/depview/repr"
)

// Analyzer turns class file content into a snapshot. Bytecode parsing lives outside this module.
type Analyzer interface {
	Analyze(ctx *repr.Context, classFileName naming.Name, content []byte, generated bool) (repr.ClassFileRepr, error)
}

// DependentFilesFilter scopes affected files to the current build target.
type DependentFilesFilter interface {
	// Accept reports whether file may be scheduled for recompilation.
	Accept(file string) bool
	// BelongsToCurrentTargetChunk reports whether file is compiled together with the current round.
	BelongsToCurrentTargetChunk(file string) bool
}

// AllFiles accepts every file.
var AllFiles DependentFilesFilter = allFiles{}

type allFiles struct{}

func (allFiles) Accept(string) bool                       { return true }
func (allFiles) BelongsToCurrentTargetChunk(string) bool { return true }

// ConstantAffection is the outcome of a constant usage search.
type ConstantAffection struct {
	// Known is false when the search could not tell which files reference the constant.
	Known bool
	Files []string
}

// ConstantResolver finds the files referencing a compile-time constant, typically through
// an external index, since inlining erases the reference from bytecode.
type ConstantResolver interface {
	FindAffectedFiles(ctx context.Context, owner, field string, access int, removed, accessChanged bool) (*ConstantAffection, error)
}

// Request carries the inputs and the result of an incremental differentiation.
type Request struct {
	// Removed lists deleted source files.
	Removed []string
	// FilesToCompile lists the sources scheduled in this round.
	FilesToCompile []string
	// CompiledWithErrors lists scheduled sources whose compilation failed; they keep their classes.
	CompiledWithErrors []string
	// CompiledFiles lists the sources already compiled in this build.
	CompiledFiles []string
	// Filter scopes affected files, AllFiles when nil.
	Filter DependentFilesFilter
	// ConstantResolver is consulted for changed constants unless ProcessConstantsIncrementally is set.
	ConstantResolver ConstantResolver
	// ProcessConstantsIncrementally affects the recorded usages of changed constants
	// instead of widening the recompilation scope.
	ProcessConstantsIncrementally bool
	// AffectedFiles receives the additional files to recompile.
	AffectedFiles FileSet
}

// ConstantRef is a constant folded into a class by the compiler.
type ConstantRef struct {
	// Owner is the binary name of the declaring class, dots or slashes.
	Owner string
	Name  string
	// Descriptor is the JVM field descriptor.
	Descriptor string
}
