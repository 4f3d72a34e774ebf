package schema

import (
	"encoding/json"
	"strings"
)

// TypeSet is an unordered set of logical types. The zero value is empty.
// Sets are values; every operation returns a new set.
type TypeSet uint32

// NewTypeSet builds a set from the given types. Unknown is ignored.
func NewTypeSet(types ...LogicalType) TypeSet {
	var s TypeSet
	for _, t := range types {
		s = s.Add(t)
	}
	return s
}

// Add returns s with t included.
func (s TypeSet) Add(t LogicalType) TypeSet {
	if !t.Valid() {
		return s
	}
	return s | 1<<uint(t)
}

// Remove returns s without t.
func (s TypeSet) Remove(t LogicalType) TypeSet {
	if !t.Valid() {
		return s
	}
	return s &^ (1 << uint(t))
}

// Has reports whether t is in s.
func (s TypeSet) Has(t LogicalType) bool {
	return t.Valid() && s&(1<<uint(t)) != 0
}

// HasAny reports whether any of types is in s.
func (s TypeSet) HasAny(types ...LogicalType) bool {
	for _, t := range types {
		if s.Has(t) {
			return true
		}
	}
	return false
}

// Union returns the types in either set.
func (s TypeSet) Union(o TypeSet) TypeSet { return s | o }

// Intersect returns the types in both sets.
func (s TypeSet) Intersect(o TypeSet) TypeSet { return s & o }

// IsEmpty reports whether s has no members.
func (s TypeSet) IsEmpty() bool { return s == 0 }

// Len returns the number of members.
func (s TypeSet) Len() int {
	n := 0
	for v := uint32(s); v != 0; v &= v - 1 {
		n++
	}
	return n
}

// Types returns the members in enumeration order.
func (s TypeSet) Types() []LogicalType {
	out := make([]LogicalType, 0, s.Len())
	for t := TinyInt; t < numLogicalTypes; t++ {
		if s.Has(t) {
			out = append(out, t)
		}
	}
	return out
}

// Only returns the single member of a one-element set.
func (s TypeSet) Only() (LogicalType, bool) {
	if s.Len() != 1 {
		return Unknown, false
	}
	return s.Types()[0], true
}

// Filter returns the members for which keep returns true.
func (s TypeSet) Filter(keep func(LogicalType) bool) TypeSet {
	var out TypeSet
	for _, t := range s.Types() {
		if keep(t) {
			out = out.Add(t)
		}
	}
	return out
}

func (s TypeSet) String() string {
	types := s.Types()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}
	return "{" + strings.Join(names, ", ") + "}"
}

// MarshalJSON encodes the set as a list of type names in enumeration order.
func (s TypeSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Types())
}

// UnmarshalJSON decodes a list of type names.
func (s *TypeSet) UnmarshalJSON(b []byte) error {
	var types []LogicalType
	if err := json.Unmarshal(b, &types); err != nil {
		return err
	}
	*s = NewTypeSet(types...)
	return nil
}
