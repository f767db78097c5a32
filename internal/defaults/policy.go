// Package defaults enforces the at-most-one-default rule over sibling records: whenever a record
// becomes the default of its partition, every conflicting sibling loses the flag in the same step.
package defaults

// Policy describes how a record type carries its default flag and which records share a partition.
type Policy[T any] struct {
	ID         func(T) string
	IsDefault  func(T) bool
	SetDefault func(T, bool) T
	// Conflicts reports whether a and b may not both be default. It must be symmetric.
	Conflicts func(a, b T) bool
}

// clearConflicts unsets the flag on every default record in items that conflicts with target,
// skipping index skip. It returns the ids it cleared.
func (p Policy[T]) clearConflicts(items []T, target T, skip int) []string {
	var cleared []string
	for i := range items {
		if i == skip || !p.IsDefault(items[i]) || !p.Conflicts(target, items[i]) {
			continue
		}
		items[i] = p.SetDefault(items[i], false)
		cleared = append(cleared, p.ID(items[i]))
	}
	return cleared
}

// Violations returns the id pairs of records that are both default while conflicting.
// An empty result means the invariant holds.
func (p Policy[T]) Violations(items []T) [][2]string {
	var out [][2]string
	for i := range items {
		if !p.IsDefault(items[i]) {
			continue
		}
		for j := i + 1; j < len(items); j++ {
			if p.IsDefault(items[j]) && p.Conflicts(items[i], items[j]) {
				out = append(out, [2]string{p.ID(items[i]), p.ID(items[j])})
			}
		}
	}
	return out
}
