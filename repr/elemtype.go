package repr

import "strings"

// ElemType is a java.lang.annotation.ElementType target.
type ElemType uint8

const (
	TargetType ElemType = iota
	TargetField
	TargetMethod
	TargetParameter
	TargetConstructor
	TargetLocalVariable
	TargetAnnotationType
	TargetPackage
	TargetTypeParameter
	TargetTypeUse
	TargetModule
	TargetRecordComponent
)

var elemTypeNames = [...]string{
	"TYPE", "FIELD", "METHOD", "PARAMETER", "CONSTRUCTOR", "LOCAL_VARIABLE",
	"ANNOTATION_TYPE", "PACKAGE", "TYPE_PARAMETER", "TYPE_USE", "MODULE", "RECORD_COMPONENT",
}

func (e ElemType) String() string {
	if int(e) < len(elemTypeNames) {
		return elemTypeNames[e]
	}
	return "UNKNOWN"
}

// ElemTypes is a set of annotation targets.
type ElemTypes uint16

// NewElemTypes creates a target set.
func NewElemTypes(targets ...ElemType) ElemTypes {
	var ret ElemTypes
	for _, t := range targets {
		ret |= 1 << t
	}
	return ret
}

// Has reports whether t is in the set.
func (s ElemTypes) Has(t ElemType) bool {
	return s&(1<<t) != 0
}

// Slice returns the targets in declaration order.
func (s ElemTypes) Slice() []ElemType {
	var ret []ElemType
	for t := TargetType; t <= TargetRecordComponent; t++ {
		if s.Has(t) {
			ret = append(ret, t)
		}
	}
	return ret
}

func (s ElemTypes) String() string {
	var names []string
	for _, t := range s.Slice() {
		names = append(names, t.String())
	}
	return strings.Join(names, ",")
}

// RetentionPolicy of an annotation type; RetentionUnset when not declared.
type RetentionPolicy uint8

const (
	RetentionUnset RetentionPolicy = iota
	RetentionSource
	RetentionClass
	RetentionRuntime
)

func (r RetentionPolicy) String() string {
	switch r {
	case RetentionSource:
		return "SOURCE"
	case RetentionClass:
		return "CLASS"
	case RetentionRuntime:
		return "RUNTIME"
	}
	return ""
}
