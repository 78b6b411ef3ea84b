package model

import (
	"math"
	"sort"
	"strconv"
)

//Frame is a minimal column-keyed table used to carry upstream tabular payloads
//before schema normalization. Cells are kept as strings; typed access parses
//on demand. Column order is preserved for rendering.
type Frame struct {
	cols []string
	data map[string][]string
	rows int
}

//NewFrame creates a frame with the given column names.
func NewFrame(cols ...string) *Frame {
	f := &Frame{cols: append([]string{}, cols...), data: make(map[string][]string)}
	for _, c := range cols {
		f.data[c] = nil
	}
	return f
}

//Append adds one row; values follow column order. Missing cells become "".
func (f *Frame) Append(values ...string) {
	for i, c := range f.cols {
		v := ""
		if i < len(values) {
			v = values[i]
		}
		f.data[c] = append(f.data[c], v)
	}
	f.rows++
}

//Len returns the row count.
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return f.rows
}

//Empty reports whether the frame holds no rows.
func (f *Frame) Empty() bool {
	return f.Len() == 0
}

//Cols returns the column names in order.
func (f *Frame) Cols() []string {
	return append([]string{}, f.cols...)
}

//Has reports whether the named column exists.
func (f *Frame) Has(col string) bool {
	if f == nil {
		return false
	}
	_, ok := f.data[col]
	return ok
}

//Col returns the named column, or nil when absent.
func (f *Frame) Col(col string) []string {
	return f.data[col]
}

//Cell returns one cell, or "" when out of range.
func (f *Frame) Cell(col string, row int) string {
	c := f.data[col]
	if row < 0 || row >= len(c) {
		return ""
	}
	return c[row]
}

//Floats parses the named column; unparsable cells become NaN.
func (f *Frame) Floats(col string) []float64 {
	c, ok := f.data[col]
	if !ok {
		return nil
	}
	vals := make([]float64, len(c))
	for i, s := range c {
		v, e := strconv.ParseFloat(s, 64)
		if e != nil {
			v = math.NaN()
		}
		vals[i] = v
	}
	return vals
}

//Rename renames a column in place; no-op when the source column is absent.
//Renaming onto an existing column replaces it.
func (f *Frame) Rename(old, new string) bool {
	c, ok := f.data[old]
	if !ok || old == new {
		return false
	}
	existed := f.Has(new)
	f.data[new] = c
	delete(f.data, old)
	for i, name := range f.cols {
		if name == old {
			f.cols[i] = new
		}
	}
	if existed {
		f.dropDuplicateCol(new)
	}
	return true
}

func (f *Frame) dropDuplicateCol(name string) {
	seen := false
	kept := f.cols[:0]
	for _, c := range f.cols {
		if c == name {
			if seen {
				continue
			}
			seen = true
		}
		kept = append(kept, c)
	}
	f.cols = kept
}

//SetCol adds or replaces a column with the given cells. Short columns are
//padded with "" to the frame's row count.
func (f *Frame) SetCol(col string, cells []string) {
	for len(cells) < f.rows {
		cells = append(cells, "")
	}
	if !f.Has(col) {
		f.cols = append(f.cols, col)
	}
	f.data[col] = cells[:f.rows]
}

//SetConstCol adds or replaces a column where every cell has the same value.
func (f *Frame) SetConstCol(col, value string) {
	cells := make([]string, f.rows)
	for i := range cells {
		cells[i] = value
	}
	f.SetCol(col, cells)
}

//SortBy stably reorders all rows by the named column ascending.
func (f *Frame) SortBy(col string) {
	key, ok := f.data[col]
	if !ok || f.rows < 2 {
		return
	}
	idx := make([]int, f.rows)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return key[idx[a]] < key[idx[b]]
	})
	for name, cells := range f.data {
		ordered := make([]string, len(cells))
		for to, from := range idx {
			ordered[to] = cells[from]
		}
		f.data[name] = ordered
	}
}

//Equal reports structural equality, used by tests and idempotence checks.
func (f *Frame) Equal(o *Frame) bool {
	if f.Len() != o.Len() || len(f.cols) != len(o.cols) {
		return false
	}
	for i, c := range f.cols {
		if o.cols[i] != c {
			return false
		}
		oc := o.data[c]
		for j, v := range f.data[c] {
			if oc[j] != v {
				return false
			}
		}
	}
	return true
}

//Clone deep-copies the frame.
func (f *Frame) Clone() *Frame {
	n := NewFrame(f.cols...)
	n.rows = f.rows
	for c, cells := range f.data {
		n.data[c] = append([]string{}, cells...)
	}
	return n
}
