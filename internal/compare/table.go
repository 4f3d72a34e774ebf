package compare

import (
	"github.com/JonMunkholm/tableload/internal/schema"
)

// ColumnPair is a source column matched by name to a destination column.
type ColumnPair struct {
	Source      schema.SourceColumnDefinition `json:"source"`
	Destination schema.ColumnDefinition       `json:"destination"`
	Result      schema.CompareColumnResult    `json:"result"`
}

// TableComparison is the column-by-column outcome of comparing a source
// table with a destination table.
type TableComparison struct {
	Pairs       []ColumnPair                    `json:"pairs"`
	Missing     []schema.SourceColumnDefinition `json:"missing,omitempty"`     // in source, absent from destination
	Superfluous []schema.ColumnDefinition       `json:"superfluous,omitempty"` // in destination, absent from source
}

// Tables matches columns by name, using the destination's case sensitivity,
// and compares every matched pair.
func Tables(
	src schema.TableDefinition[schema.SourceColumnDefinition],
	dst schema.TableDefinition[schema.ColumnDefinition],
	opts ...Option,
) TableComparison {
	var cmp TableComparison
	used := make([]bool, len(dst.Columns))

	for _, s := range src.Columns {
		i := dst.Index(s.Name)
		if i < 0 {
			cmp.Missing = append(cmp.Missing, s)
			continue
		}
		used[i] = true
		cmp.Pairs = append(cmp.Pairs, ColumnPair{
			Source:      s,
			Destination: dst.Columns[i],
			Result:      Column(s, dst.Columns[i], opts...),
		})
	}
	for i, d := range dst.Columns {
		if !used[i] {
			cmp.Superfluous = append(cmp.Superfluous, d)
		}
	}
	return cmp
}

// TypeConflicts returns the pairs whose types do not match.
func (c TableComparison) TypeConflicts() []ColumnPair {
	var out []ColumnPair
	for _, p := range c.Pairs {
		if !p.Result.TypeMatched {
			out = append(out, p)
		}
	}
	return out
}

// MayTruncate returns the pairs whose types match but whose data may not fit.
func (c TableComparison) MayTruncate() []ColumnPair {
	var out []ColumnPair
	for _, p := range c.Pairs {
		if p.Result.TypeMatched && !p.Result.CanLoadDataFrom {
			out = append(out, p)
		}
	}
	return out
}

// Unloadable returns the pairs whose data cannot be loaded, matched or not.
func (c TableComparison) Unloadable() []ColumnPair {
	var out []ColumnPair
	for _, p := range c.Pairs {
		if !p.Result.CanLoadDataFrom {
			out = append(out, p)
		}
	}
	return out
}

// SameSchema reports whether both tables have exactly the same column names.
func (c TableComparison) SameSchema() bool {
	return len(c.Missing) == 0 && len(c.Superfluous) == 0
}

// Identical reports whether the tables have the same columns with matching,
// loadable types.
func (c TableComparison) Identical() bool {
	return c.SameSchema() && len(c.TypeConflicts()) == 0 && len(c.MayTruncate()) == 0
}

// Loadable reports whether every source column can be written to the
// destination, even where types differ.
func (c TableComparison) Loadable() bool {
	return c.SameSchema() && len(c.Unloadable()) == 0
}
