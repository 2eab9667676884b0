package mappings

import (
	"strconv"

	"github.com/viant/depview/naming"
	"github.com/viant/depview/repr"
)

// diffState accumulates the effects of one recompiled source.
type diffState struct {
	dependants naming.NameSet
	affected   map[string]*repr.Usage
	// constraints holds one entry per affected usage; anyConstraint marks an unconstrained one.
	constraints       map[string]usageConstraint
	annotationQueries []*repr.Usage
	// memberQueries match field usages by owner and name regardless of type.
	memberQueries map[string]bool
}

func newDiffState() *diffState {
	return &diffState{
		dependants:    naming.NewNameSet(),
		affected:      map[string]*repr.Usage{},
		constraints:   map[string]usageConstraint{},
		memberQueries: map[string]bool{},
	}
}

func (s *diffState) affect(usages ...*repr.Usage) {
	for _, u := range usages {
		s.affected[u.Key()] = u
		s.constraints[u.Key()] = anyConstraint{}
	}
}

func (s *diffState) affectConstrained(c usageConstraint, usages ...*repr.Usage) {
	for _, u := range usages {
		key := u.Key()
		s.affected[key] = u
		s.constraints[key] = or(s.constraints[key], c)
	}
}

func (s *diffState) addAnnotationQuery(query *repr.Usage) {
	s.annotationQueries = append(s.annotationQueries, query)
}

func (s *diffState) addMemberQuery(owner, name naming.Name) {
	s.memberQueries[memberKey(owner, name)] = true
}

// constraintOf returns the constraint of an affected usage matching recorded, nil when none does.
func (s *diffState) constraintOf(ctx *repr.Context, recorded *repr.Usage) usageConstraint {
	ret := s.constraints[recorded.Key()]
	switch {
	case recorded.Kind == repr.MethodCall && len(s.constraints) > 0:
		ret = or(ret, s.constraints[ctx.MetaMethodUsage(recorded.Owner, recorded.Name).Key()])
	case recorded.IsField() && s.memberQueries[memberKey(recorded.Owner, recorded.Name)]:
		ret = anyConstraint{}
	}
	return ret
}

// satisfiesQuery reports whether any annotation query matches recorded.
func (s *diffState) satisfiesQuery(recorded *repr.Usage) bool {
	for _, q := range s.annotationQueries {
		if q.Satisfies(recorded) {
			return true
		}
	}
	return false
}

func memberKey(owner, name naming.Name) string {
	return strconv.Itoa(int(owner)) + "." + strconv.Itoa(int(name))
}

// memo computes a value on first use within one rule evaluation.
type memo[T any] struct {
	compute func() T
	value   T
	done    bool
}

func newMemo[T any](compute func() T) *memo[T] {
	return &memo[T]{compute: compute}
}

func (m *memo[T]) get() T {
	if !m.done {
		m.value = m.compute()
		m.done = true
	}
	return m.value
}
