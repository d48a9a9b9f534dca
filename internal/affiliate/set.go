// Package affiliate models the set of users holding the affiliate role and
// the plan that brings the role in line with the latest announcements.
package affiliate

import (
	"slices"

	"github.com/disgoorg/snowflake/v2"
)

// Set is an unordered collection of unique Discord user IDs.
type Set map[snowflake.ID]struct{}

// NewSet creates a set holding the given IDs.
func NewSet(ids ...snowflake.ID) Set {
	s := make(Set, len(ids))
	s.Add(ids...)

	return s
}

// Add inserts the IDs into the set.
func (s Set) Add(ids ...snowflake.ID) {
	for _, id := range ids {
		s[id] = struct{}{}
	}
}

// Has reports whether id is in the set.
func (s Set) Has(id snowflake.ID) bool {
	_, ok := s[id]
	return ok
}

// Len returns the number of IDs in the set.
func (s Set) Len() int {
	return len(s)
}

// Difference returns the IDs in s that are not in other.
func (s Set) Difference(other Set) Set {
	result := make(Set)

	for id := range s {
		if !other.Has(id) {
			result[id] = struct{}{}
		}
	}

	return result
}

// Sorted returns the IDs in ascending order.
func (s Set) Sorted() []snowflake.ID {
	ids := make([]snowflake.ID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}

	slices.Sort(ids)

	return ids
}

// Uint64s returns the IDs in ascending order as plain integers.
func (s Set) Uint64s() []uint64 {
	ids := make([]uint64, 0, len(s))
	for _, id := range s.Sorted() {
		ids = append(ids, uint64(id))
	}

	return ids
}
