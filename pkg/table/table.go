// Package table provides an immutable, column-oriented table of named float and string columns.
//
// Every operation returns a new Table. Column data may be shared between tables, but no
// method ever writes to a slice it did not allocate, so sharing is never observable.
// Missing numeric values are represented by NaN.
package table

import (
	"fmt"
	"math"
)

// Kind is the element type of a column
type Kind int

const (
	Float Kind = iota
	String
)

func (k Kind) String() string {
	switch k {
	case Float:
		return "float"
	case String:
		return "string"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Column is a named sequence of values of a single kind
type Column struct {
	Name    string
	Kind    Kind
	floats  []float64
	strings []string
}

// NewFloat creates a float column holding a copy of values
func NewFloat(name string, values []float64) Column {
	return Column{Name: name, Kind: Float, floats: append([]float64(nil), values...)}
}

// NewString creates a string column holding a copy of values
func NewString(name string, values []string) Column {
	return Column{Name: name, Kind: String, strings: append([]string(nil), values...)}
}

// Len returns the number of values
func (c Column) Len() int {
	if c.Kind == Float {
		return len(c.floats)
	}
	return len(c.strings)
}

// Floats returns a copy of the float values, or nil for string columns
func (c Column) Floats() []float64 {
	if c.Kind != Float {
		return nil
	}
	return append([]float64(nil), c.floats...)
}

// Strings returns a copy of the string values, or nil for float columns
func (c Column) Strings() []string {
	if c.Kind != String {
		return nil
	}
	return append([]string(nil), c.strings...)
}

// Table is an immutable ordered set of equal-length columns
type Table struct {
	cols  []Column
	index map[string]int
	rows  int
}

// New builds a table from columns. Names must be unique and lengths equal.
func New(cols ...Column) (*Table, error) {
	t := &Table{index: make(map[string]int, len(cols))}
	for i, c := range cols {
		if c.Name == "" {
			return nil, fmt.Errorf("column %d has no name", i)
		}
		if _, dup := t.index[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column %q", c.Name)
		}
		if i == 0 {
			t.rows = c.Len()
		} else if c.Len() != t.rows {
			return nil, fmt.Errorf("column %q has %d rows, expected %d", c.Name, c.Len(), t.rows)
		}
		t.index[c.Name] = i
		t.cols = append(t.cols, c)
	}
	return t, nil
}

// MustNew is like New but panics on error. Intended for tests and literals.
func MustNew(cols ...Column) *Table {
	t, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return t
}

// FromMatrix builds a float table from row-major data
func FromMatrix(names []string, rows [][]float64) (*Table, error) {
	cols := make([]Column, len(names))
	for j, name := range names {
		values := make([]float64, len(rows))
		for i, row := range rows {
			if len(row) != len(names) {
				return nil, fmt.Errorf("row %d has %d values, expected %d", i, len(row), len(names))
			}
			values[i] = row[j]
		}
		cols[j] = Column{Name: name, Kind: Float, floats: values}
	}
	return New(cols...)
}

// NumRows returns the number of rows
func (t *Table) NumRows() int { return t.rows }

// NumCols returns the number of columns
func (t *Table) NumCols() int { return len(t.cols) }

// Names returns the column names in order
func (t *Table) Names() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.Name
	}
	return names
}

// FloatNames returns the names of float columns in order
func (t *Table) FloatNames() []string {
	var names []string
	for _, c := range t.cols {
		if c.Kind == Float {
			names = append(names, c.Name)
		}
	}
	return names
}

// Has reports whether the named column exists
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Missing returns the names that are not columns of t, in the order given
func (t *Table) Missing(names ...string) []string {
	var missing []string
	for _, name := range names {
		if !t.Has(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// Column returns the named column
func (t *Table) Column(name string) (Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return Column{}, false
	}
	return t.cols[i], true
}

// Float returns a copy of the named float column
func (t *Table) Float(name string) ([]float64, error) {
	c, ok := t.Column(name)
	if !ok {
		return nil, fmt.Errorf("column %q not found", name)
	}
	if c.Kind != Float {
		return nil, fmt.Errorf("column %q is %s, not float", name, c.Kind)
	}
	return c.Floats(), nil
}

// Strings returns the named column rendered as strings. Float values use %g.
func (t *Table) Strings(name string) ([]string, error) {
	c, ok := t.Column(name)
	if !ok {
		return nil, fmt.Errorf("column %q not found", name)
	}
	if c.Kind == String {
		return c.Strings(), nil
	}
	out := make([]string, len(c.floats))
	for i, v := range c.floats {
		out[i] = formatFloat(v)
	}
	return out, nil
}

// floatsView returns the backing slice of a float column without copying. Callers must not modify it.
func (t *Table) floatsView(name string) ([]float64, bool) {
	c, ok := t.Column(name)
	if !ok || c.Kind != Float {
		return nil, false
	}
	return c.floats, true
}

// Rename returns a table with columns renamed by mapping. Unmapped columns keep their names.
func (t *Table) Rename(mapping map[string]string) (*Table, error) {
	cols := make([]Column, len(t.cols))
	for i, c := range t.cols {
		if to, ok := mapping[c.Name]; ok {
			c.Name = to
		}
		cols[i] = c
	}
	return New(cols...)
}

// Drop returns a table without the named columns. Unknown names are ignored.
func (t *Table) Drop(names ...string) *Table {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	out := &Table{index: make(map[string]int), rows: t.rows}
	for _, c := range t.cols {
		if drop[c.Name] {
			continue
		}
		out.index[c.Name] = len(out.cols)
		out.cols = append(out.cols, c)
	}
	return out
}

// Select returns a table holding only the named columns, in the order given
func (t *Table) Select(names ...string) (*Table, error) {
	if missing := t.Missing(names...); len(missing) > 0 {
		return nil, fmt.Errorf("columns not found: %v", missing)
	}
	out := &Table{index: make(map[string]int, len(names)), rows: t.rows}
	for _, n := range names {
		if _, dup := out.index[n]; dup {
			return nil, fmt.Errorf("duplicate column %q", n)
		}
		out.index[n] = len(out.cols)
		out.cols = append(out.cols, t.cols[t.index[n]])
	}
	return out, nil
}

// With returns a table with c added, or replacing the column of the same name in place
func (t *Table) With(c Column) (*Table, error) {
	if len(t.cols) > 0 && c.Len() != t.rows {
		return nil, fmt.Errorf("column %q has %d rows, expected %d", c.Name, c.Len(), t.rows)
	}
	cols := append([]Column(nil), t.cols...)
	if i, ok := t.index[c.Name]; ok {
		cols[i] = c
	} else {
		cols = append(cols, c)
	}
	return New(cols...)
}

// WithFloat is shorthand for With(NewFloat(name, values))
func (t *Table) WithFloat(name string, values []float64) (*Table, error) {
	return t.With(NewFloat(name, values))
}

// WithString is shorthand for With(NewString(name, values))
func (t *Table) WithString(name string, values []string) (*Table, error) {
	return t.With(NewString(name, values))
}

// Take returns the rows at the given indices, in that order. Indices may repeat.
func (t *Table) Take(rows []int) (*Table, error) {
	for _, r := range rows {
		if r < 0 || r >= t.rows {
			return nil, fmt.Errorf("row %d out of range [0,%d)", r, t.rows)
		}
	}
	cols := make([]Column, len(t.cols))
	for i, c := range t.cols {
		nc := Column{Name: c.Name, Kind: c.Kind}
		if c.Kind == Float {
			nc.floats = make([]float64, len(rows))
			for j, r := range rows {
				nc.floats[j] = c.floats[r]
			}
		} else {
			nc.strings = make([]string, len(rows))
			for j, r := range rows {
				nc.strings[j] = c.strings[r]
			}
		}
		cols[i] = nc
	}
	out, err := New(cols...)
	if err != nil {
		return nil, err
	}
	out.rows = len(rows)
	return out, nil
}

// Matrix returns the named float columns as row-major data
func (t *Table) Matrix(names ...string) ([][]float64, error) {
	views := make([][]float64, len(names))
	for j, n := range names {
		v, ok := t.floatsView(n)
		if !ok {
			return nil, fmt.Errorf("float column %q not found", n)
		}
		views[j] = v
	}
	out := make([][]float64, t.rows)
	for i := range out {
		row := make([]float64, len(names))
		for j := range names {
			row[j] = views[j][i]
		}
		out[i] = row
	}
	return out, nil
}

// MapFloat returns a table where fn has been applied to every value of the named float columns
func (t *Table) MapFloat(fn func(float64) float64, names ...string) (*Table, error) {
	out := t
	for _, n := range names {
		v, ok := t.floatsView(n)
		if !ok {
			return nil, fmt.Errorf("float column %q not found", n)
		}
		mapped := make([]float64, len(v))
		for i, x := range v {
			mapped[i] = fn(x)
		}
		var err error
		if out, err = out.With(Column{Name: n, Kind: Float, floats: mapped}); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return fmt.Sprintf("%g", v)
}
