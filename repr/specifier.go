package repr

// NoDiff is the change type of elements compared by identity only.
type NoDiff struct{}

func (NoDiff) No() bool { return true }

// Diff is a per-element structural difference.
type Diff interface {
	No() bool
}

// Change pairs the past and present versions of one element with their difference.
type Change[T any, D Diff] struct {
	Past T
	Now  T
	Diff D
}

// Specifier partitions two versions of a set into added, removed and changed elements.
type Specifier[T any, D Diff] struct {
	Added   []T
	Removed []T
	Changed []Change[T, D]
}

// Unchanged reports whether nothing was added, removed or changed.
func (s *Specifier[T, D]) Unchanged() bool {
	return s == nil || (len(s.Added) == 0 && len(s.Removed) == 0 && len(s.Changed) == 0)
}

// Make compares past and now by identity key only.
func Make[T any](past, now []T, key func(T) string) *Specifier[T, NoDiff] {
	return DeepMake[T, NoDiff](past, now, key, nil)
}

// DeepMake compares past and now by identity key and diffs elements present in both with diff.
// A nil diff compares by identity only.
func DeepMake[T any, D Diff](past, now []T, key func(T) string, diff func(now, past T) D) *Specifier[T, D] {
	ret := &Specifier[T, D]{}
	if len(past) == 0 && len(now) == 0 {
		return ret
	}
	if len(past) == 0 {
		ret.Added = dedup(now, key)
		return ret
	}
	if len(now) == 0 {
		ret.Removed = dedup(past, key)
		return ret
	}
	nowByKey := make(map[string]T, len(now))
	for _, x := range now {
		nowByKey[key(x)] = x
	}
	pastKeys := make(map[string]bool, len(past))
	for _, x := range past {
		k := key(x)
		if pastKeys[k] {
			continue
		}
		pastKeys[k] = true
		y, ok := nowByKey[k]
		if !ok {
			ret.Removed = append(ret.Removed, x)
			continue
		}
		if diff == nil {
			continue
		}
		if d := diff(y, x); !d.No() {
			ret.Changed = append(ret.Changed, Change[T, D]{Past: x, Now: y, Diff: d})
		}
	}
	seen := make(map[string]bool, len(now))
	for _, x := range now {
		k := key(x)
		if pastKeys[k] || seen[k] {
			continue
		}
		seen[k] = true
		ret.Added = append(ret.Added, x)
	}
	return ret
}

func dedup[T any](items []T, key func(T) string) []T {
	seen := make(map[string]bool, len(items))
	ret := make([]T, 0, len(items))
	for _, x := range items {
		k := key(x)
		if seen[k] {
			continue
		}
		seen[k] = true
		ret = append(ret, x)
	}
	return ret
}
