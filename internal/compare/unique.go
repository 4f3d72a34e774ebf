package compare

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/tableload/internal/schema"
)

// UniqueConflict reports rows sharing a key of a unique constraint.
type UniqueConflict struct {
	Constraint schema.UniqueConstraint
	Key        []any
	Rows       []int64 // first occurrence followed by duplicates
}

func (u *UniqueConflict) Error() string {
	return fmt.Sprintf("duplicate key %v for constraint %q (rows %v)", u.Key, u.Constraint.Name, u.Rows)
}

// UniqueChecker detects duplicate keys of one constraint across a stream of
// rows. It keeps every key it has seen and is not safe for concurrent use.
type UniqueChecker struct {
	constraint schema.UniqueConstraint
	ordinals   []int
	seen       map[string]int64
}

// NewUniqueChecker resolves the constraint's columns against the source
// columns. Names are matched according to the constraint's case sensitivity.
func NewUniqueChecker(c schema.UniqueConstraint, columns []schema.SourceColumnDefinition) (*UniqueChecker, error) {
	ordinals := make([]int, len(c.Columns))
	for i, name := range c.Columns {
		found := -1
		for _, col := range columns {
			if col.Name == name || (!c.CaseSensitive && strings.EqualFold(col.Name, name)) {
				found = col.Ordinal
				break
			}
		}
		if found < 0 {
			return nil, fmt.Errorf("constraint %q: column %q not in source", c.Name, name)
		}
		ordinals[i] = found
	}
	return &UniqueChecker{constraint: c, ordinals: ordinals, seen: make(map[string]int64)}, nil
}

// Check records the row's key. It returns a *UniqueConflict when the key was
// seen before. Keys with a null part never conflict.
func (u *UniqueChecker) Check(row schema.DataRow) error {
	key := make([]any, len(u.ordinals))
	var b strings.Builder
	for i, ord := range u.ordinals {
		v := row.Value(ord)
		if v == nil {
			return nil
		}
		key[i] = v
		fmt.Fprintf(&b, "%T\x1f%v\x1e", v, v)
	}

	k := b.String()
	if first, ok := u.seen[k]; ok {
		return &UniqueConflict{Constraint: u.constraint, Key: key, Rows: []int64{first, row.RowNo}}
	}
	u.seen[k] = row.RowNo
	return nil
}

// CheckUnique runs every constraint over rows and returns all conflicts,
// grouped per key.
func CheckUnique(constraints []schema.UniqueConstraint, columns []schema.SourceColumnDefinition, rows []schema.DataRow) ([]UniqueConflict, error) {
	var out []UniqueConflict
	for _, c := range constraints {
		checker, err := NewUniqueChecker(c, columns)
		if err != nil {
			return nil, err
		}
		index := make(map[string]int)
		for _, row := range rows {
			err := checker.Check(row)
			conflict, ok := err.(*UniqueConflict)
			if !ok {
				continue
			}
			k := fmt.Sprint(conflict.Key...)
			if i, ok := index[k]; ok {
				out[i].Rows = append(out[i].Rows, row.RowNo)
				continue
			}
			index[k] = len(out)
			out = append(out, *conflict)
		}
	}
	return out, nil
}
