package repr

import (
	"math"

	"github.com/viant/depview/naming"
)

// Mask holds the coarse change categories of a Difference.
type Mask int

const (
	ChangeNone   Mask = 0
	ChangeAccess Mask = 1 << iota
	ChangeType
	ChangeValue
	ChangeSignature
	ChangeSuperclass
	ChangeUsages
	ChangeAnnotations
	ChangeConstantReferences
)

// Proto is the common part of classes, modules and members.
type Proto struct {
	Access    int
	Signature naming.Name
	Name      naming.Name
	// Annotations are the class types of annotations with CLASS or RUNTIME retention.
	Annotations []*Type
}

func (p *Proto) IsPublic() bool       { return p.Access&AccPublic != 0 }
func (p *Proto) IsProtected() bool    { return p.Access&AccProtected != 0 }
func (p *Proto) IsPrivate() bool      { return p.Access&AccPrivate != 0 }
func (p *Proto) IsPackageLocal() bool { return IsPackageLocal(p.Access) }
func (p *Proto) IsStatic() bool       { return p.Access&AccStatic != 0 }
func (p *Proto) IsFinal() bool        { return p.Access&AccFinal != 0 }
func (p *Proto) IsAbstract() bool     { return p.Access&AccAbstract != 0 }
func (p *Proto) IsSynthetic() bool    { return p.Access&AccSynthetic != 0 }
func (p *Proto) IsBridge() bool       { return p.Access&AccBridge != 0 }

// IsMoreAccessibleThan compares visibility only.
func (p *Proto) IsMoreAccessibleThan(other *Proto) bool {
	return accessRank(p.Access) > accessRank(other.Access)
}

// Difference describes how a program element changed.
type Difference struct {
	Base             Mask
	AddedModifiers   int
	RemovedModifiers int
	// PackageLocalOn is set when a visibility modifier was dropped.
	PackageLocalOn bool
	// AccessExpanded is set when visibility widened.
	AccessExpanded bool
	// AccessRestricted is set when visibility narrowed.
	AccessRestricted bool
	// HadValue is set when the past member carried a constant or default value.
	HadValue    bool
	Annotations *Specifier[*Type, NoDiff]
}

// Has reports whether any of the categories in m changed.
func (d *Difference) Has(m Mask) bool {
	return d.Base&m != 0
}

// No reports whether nothing changed.
func (d *Difference) No() bool {
	return d.Base == ChangeNone
}

func diffProto(now, past *Proto) Difference {
	ret := Difference{
		AddedModifiers:   ^past.Access & now.Access,
		RemovedModifiers: ^now.Access & past.Access,
		AccessExpanded:   weakerAccess(past.Access, now.Access),
		AccessRestricted: weakerAccess(now.Access, past.Access),
		Annotations:      Make(past.Annotations, now.Annotations, (*Type).Key),
	}
	if past.Access != now.Access {
		ret.Base |= ChangeAccess
	}
	if past.Signature != now.Signature {
		ret.Base |= ChangeSignature
	}
	if !ret.Annotations.Unchanged() {
		ret.Base |= ChangeAnnotations
	}
	ret.PackageLocalOn = past.Access&visibilityMask != 0 && IsPackageLocal(now.Access)
	return ret
}

// Member is a field or method: a Proto with a declared type and an optional value.
type Member struct {
	Proto
	Type *Type
	// Value is the constant value of a field or the default value of an annotation method:
	// nil, int32, int64, float32, float64 or string.
	Value any
}

// HasValue reports whether the member carries a constant or default value.
func (m *Member) HasValue() bool {
	return m.Value != nil
}

func diffMember(now, past *Member) Difference {
	ret := diffProto(&now.Proto, &past.Proto)
	if now.Type.key != past.Type.key {
		ret.Base |= ChangeType
	}
	switch {
	case now.Value == nil && past.Value == nil:
	case now.Value == nil || past.Value == nil:
		ret.Base |= ChangeValue
	case !sameValue(now.Value, past.Value):
		ret.Base |= ChangeValue
	}
	ret.HadValue = past.HasValue()
	return ret
}

// sameValue compares floating point constants by their bits so NaN equals itself.
func sameValue(now, past any) bool {
	switch n := now.(type) {
	case float32:
		p, ok := past.(float32)
		return ok && math.Float32bits(n) == math.Float32bits(p)
	case float64:
		p, ok := past.(float64)
		return ok && math.Float64bits(n) == math.Float64bits(p)
	}
	return now == past
}
