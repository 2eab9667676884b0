package mappings

import (
	"github.com/viant/depview/naming"
	"github.com/viant/depview/repr"
)

// usageConstraint narrows an affected usage to the classes (or modules) whose residence satisfies it.
type usageConstraint interface {
	checkResidence(residence naming.Name) bool
}

// anyConstraint accepts every residence.
type anyConstraint struct{}

func (anyConstraint) checkResidence(naming.Name) bool { return true }

// packageConstraint accepts residences outside the package.
type packageConstraint struct {
	view        *view
	packageName string
}

func (c *packageConstraint) checkResidence(residence naming.Name) bool {
	return repr.PackageName(c.view.ctx.Value(residence)) != c.packageName
}

// inheritanceConstraint accepts residences that are not proven inheritors of root, or live outside its package.
type inheritanceConstraint struct {
	packageConstraint
	root naming.Name
}

func (c *inheritanceConstraint) checkResidence(residence naming.Name) bool {
	return !c.view.isInheritorOf(residence, c.root) || c.packageConstraint.checkResidence(residence)
}

type negationConstraint struct {
	x usageConstraint
}

func (c *negationConstraint) checkResidence(residence naming.Name) bool {
	return !c.x.checkResidence(residence)
}

type andConstraint struct {
	x, y usageConstraint
}

func (c *andConstraint) checkResidence(residence naming.Name) bool {
	return c.x.checkResidence(residence) && c.y.checkResidence(residence)
}

type orConstraint struct {
	x, y usageConstraint
}

func (c *orConstraint) checkResidence(residence naming.Name) bool {
	return c.x.checkResidence(residence) || c.y.checkResidence(residence)
}

// exactMatchConstraint accepts the listed residences only.
type exactMatchConstraint struct {
	names naming.NameSet
}

func (c *exactMatchConstraint) checkResidence(residence naming.Name) bool {
	return c.names.Contains(residence)
}

// syntheticConstraint accepts synthetic classes, such as the switch map holders generated for enums.
type syntheticConstraint struct {
	view *view
}

func (c *syntheticConstraint) checkResidence(residence naming.Name) bool {
	r := c.view.reprByName(residence)
	return r == nil || r.IsSynthetic()
}

// requiresVersionConstraint accepts modules requiring module at its past version.
type requiresVersionConstraint struct {
	view    *view
	module  naming.Name
	version naming.Name
}

func (c *requiresVersionConstraint) checkResidence(residence naming.Name) bool {
	dependent := c.view.moduleByName(residence)
	if dependent == nil {
		return false
	}
	for _, r := range dependent.Requires {
		if r.Name == c.module {
			return r.Version == c.version
		}
	}
	return false
}

func (v *view) packageConstraint(packageName string) usageConstraint {
	return &packageConstraint{view: v, packageName: packageName}
}

func (v *view) inheritanceConstraint(root naming.Name) usageConstraint {
	return &inheritanceConstraint{
		packageConstraint: packageConstraint{view: v, packageName: repr.PackageName(v.ctx.Value(root))},
		root:              root,
	}
}

// or combines constraints; a nil or unconstrained side wins.
func or(x, y usageConstraint) usageConstraint {
	if x == nil {
		return y
	}
	if y == nil {
		return x
	}
	if _, ok := x.(anyConstraint); ok {
		return x
	}
	if _, ok := y.(anyConstraint); ok {
		return y
	}
	return &orConstraint{x: x, y: y}
}
