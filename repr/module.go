package repr

import (
	"strconv"

	"github.com/viant/depview/naming"
)

// ModuleRequires is one requires directive of a module descriptor.
type ModuleRequires struct {
	Name    naming.Name
	Access  int
	Version naming.Name
}

// Key returns the requires identity.
func (r ModuleRequires) Key() string {
	return strconv.Itoa(int(r.Name))
}

// IsTransitive reports whether the directive is "requires transitive".
func (r ModuleRequires) IsTransitive() bool {
	return r.Access&AccTransitive != 0
}

// RequiresDiff is the difference of two requires directives.
type RequiresDiff struct {
	AccessChanged       bool
	VersionChanged      bool
	BecameNonTransitive bool
}

func (d *RequiresDiff) No() bool {
	return !d.AccessChanged && !d.VersionChanged
}

// DiffRequires compares two versions of a requires directive.
func DiffRequires(now, past ModuleRequires) *RequiresDiff {
	return &RequiresDiff{
		AccessChanged:       now.Access != past.Access,
		VersionChanged:      now.Version != past.Version,
		BecameNonTransitive: past.IsTransitive() && !now.IsTransitive(),
	}
}

// ModulePackage is one exports directive; Targets is empty for unqualified exports.
type ModulePackage struct {
	Name    naming.Name
	Targets []naming.Name
}

// Key returns the exported package identity.
func (p ModulePackage) Key() string {
	return strconv.Itoa(int(p.Name))
}

// IsQualified reports whether the package is exported to named modules only.
func (p ModulePackage) IsQualified() bool {
	return len(p.Targets) > 0
}

// ExportsDiff is the difference of two exports directives.
type ExportsDiff struct {
	Targets *Specifier[naming.Name, NoDiff]
}

func (d *ExportsDiff) No() bool {
	return d.Targets.Unchanged()
}

// DiffExports compares two versions of an exports directive.
func DiffExports(now, past ModulePackage) *ExportsDiff {
	return &ExportsDiff{Targets: Make(past.Targets, now.Targets, nameKey)}
}

// ModuleRepr is a compiled module descriptor snapshot.
type ModuleRepr struct {
	Proto
	usageSet
	File     naming.Name
	Version  naming.Name
	Requires []ModuleRequires
	Exports  []ModulePackage
}

// NewModuleRepr creates a module snapshot recording a module usage for every requires directive.
func NewModuleRepr(ctx *Context, access int, name, file, version naming.Name, requires []ModuleRequires, exports []ModulePackage) *ModuleRepr {
	ret := &ModuleRepr{
		Proto:    Proto{Access: access, Name: name},
		File:     file,
		Version:  version,
		Requires: requires,
		Exports:  exports,
	}
	for _, r := range requires {
		ret.AddUsage(ctx.ModuleUsage(r.Name))
	}
	return ret
}

func (m *ModuleRepr) ID() naming.Name        { return m.Name }
func (m *ModuleRepr) ClassFile() naming.Name { return m.File }
func (m *ModuleRepr) IsModule() bool         { return true }

// RequiresTransitively reports whether the module re-exports module name to its readers.
func (m *ModuleRepr) RequiresTransitively(name naming.Name) bool {
	for _, r := range m.Requires {
		if r.Name == name {
			return r.IsTransitive()
		}
	}
	return false
}

// ModuleDiff is the difference of two module snapshots.
type ModuleDiff struct {
	Difference
	Requires       *Specifier[ModuleRequires, *RequiresDiff]
	Exports        *Specifier[ModulePackage, *ExportsDiff]
	VersionChanged bool
}

func (d *ModuleDiff) No() bool {
	return d.Difference.No() && d.Requires.Unchanged() && d.Exports.Unchanged() && !d.VersionChanged
}

// DiffModule compares two versions of a module descriptor.
func DiffModule(now, past *ModuleRepr) *ModuleDiff {
	ret := &ModuleDiff{
		Difference:     diffProto(&now.Proto, &past.Proto),
		Requires:       DeepMake(past.Requires, now.Requires, ModuleRequires.Key, DiffRequires),
		Exports:        DeepMake(past.Exports, now.Exports, ModulePackage.Key, DiffExports),
		VersionChanged: now.Version != past.Version,
	}
	if !now.sameUsages(&past.usageSet) {
		ret.Base |= ChangeUsages
	}
	return ret
}

func nameKey(n naming.Name) string {
	return strconv.Itoa(int(n))
}
