package source

import (
	"github.com/viant/depview/mappings"
)

// Register records the imports of u for each of its top-level types.
func (u *Unit) Register(backend *mappings.Backend) {
	if len(u.Imports) == 0 && len(u.StaticImports) == 0 {
		return
	}
	for _, className := range u.ClassNames() {
		backend.RegisterImports(className, u.Imports, u.StaticImports)
	}
}
