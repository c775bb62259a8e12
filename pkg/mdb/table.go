package mdb

import (
	"fmt"

	"github.com/murphy-project/murphyd/pkg/attr"
	"github.com/murphy-project/murphyd/pkg/merr"
)

// ColumnDef declares one column of a table.
type ColumnDef struct {
	Name string
	Type attr.Type
}

// Row is one table row, keyed by column name.
type Row map[string]attr.Value

func (r Row) clone() Row {
	c := make(Row, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

// Trigger is called once per row mutation when the outermost transaction
// that produced it commits. cols, when non-empty, restricts delivery to
// mutations that touched at least one of the named columns.
type Trigger struct {
	cols []string
	fn   func(LogEntry)
}

// Table is an in-memory row store with a unique key column, a stamp
// bumped on every mutation (and stepped back when a rollback undoes
// one), and a log of the entries committed at the outermost level.
// Rollback works from the DB's transaction frames, not from this log.
// Tables are never used
// concurrently from multiple goroutines without external serialization,
// matching the rest of this package's single-threaded model.
type Table struct {
	name    string
	columns []ColumnDef
	keyCol  string
	stamp   uint32
	rows    map[attr.Value]Row
	order   []attr.Value
	trig    []Trigger
	log     []LogEntry
}

func newTable(name string, columns []ColumnDef, keyCol string) (*Table, error) {
	found := false
	for _, c := range columns {
		if c.Name == keyCol {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("mdb: %w: key column %q not declared", merr.ErrSchemaInvalid, keyCol)
	}
	return &Table{
		name:    name,
		columns: columns,
		keyCol:  keyCol,
		rows:    make(map[attr.Value]Row),
	}, nil
}

// Name returns the table's name.
func (t *Table) Name() string { return t.name }

// Stamp returns the table's current change stamp.
func (t *Table) Stamp() uint32 { return t.stamp }

// NumRows returns the current row count.
func (t *Table) NumRows() int { return len(t.rows) }

// Columns returns the table's column schema.
func (t *Table) Columns() []ColumnDef {
	out := make([]ColumnDef, len(t.columns))
	copy(out, t.columns)
	return out
}

// Select returns a copy of the row with the given key, if any.
func (t *Table) Select(key attr.Value) (Row, bool) {
	row, ok := t.rows[key]
	if !ok {
		return nil, false
	}
	return row.clone(), true
}

// All returns a copy of every row, in insertion order.
func (t *Table) All() []Row {
	out := make([]Row, 0, len(t.order))
	for _, k := range t.order {
		if row, ok := t.rows[k]; ok {
			out = append(out, row.clone())
		}
	}
	return out
}

func (t *Table) validate(row Row) error {
	for _, c := range t.columns {
		v, ok := row[c.Name]
		if !ok {
			continue
		}
		if v.Type != c.Type {
			return fmt.Errorf("mdb: %w: column %q wants %s, got %s", merr.ErrTypeMismatch, c.Name, c.Type, v.Type)
		}
	}
	return nil
}

func (t *Table) keyOf(row Row) (attr.Value, error) {
	key, ok := row[t.keyCol]
	if !ok {
		return attr.Value{}, fmt.Errorf("mdb: %w: row missing key column %q", merr.ErrSchemaInvalid, t.keyCol)
	}
	return key, nil
}

func (t *Table) onRowChange(fn func(LogEntry)) {
	t.trig = append(t.trig, Trigger{fn: fn})
}

func (t *Table) onColumnChange(cols []string, fn func(LogEntry)) {
	t.trig = append(t.trig, Trigger{cols: cols, fn: fn})
}

func (t *Table) fire(entry LogEntry) {
	t.log = append(t.log, entry)
	for _, trig := range t.trig {
		if len(trig.cols) == 0 {
			trig.fn(entry)
			continue
		}
		if entry.touches(trig.cols) {
			trig.fn(entry)
		}
	}
}

// iterateLog returns entries from the table's committed change log in
// dir order. When consume is true, the returned entries are removed
// from the log; a subsequent call sees only entries committed since.
// Only outermost-commit mutations are ever appended here (rolled-back
// mutations never reach fire), matching trigger-delivery semantics.
func (t *Table) iterateLog(dir Direction, consume bool) []LogEntry {
	out := make([]LogEntry, len(t.log))
	copy(out, t.log)
	if dir == Backward {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	if consume {
		t.log = t.log[:0]
	}
	return out
}

// touches reports whether entry's before/after rows differ on any of cols.
func (e LogEntry) touches(cols []string) bool {
	for _, c := range cols {
		var before, after attr.Value
		var hasBefore, hasAfter bool
		if e.Before != nil {
			before, hasBefore = e.Before[c]
		}
		if e.After != nil {
			after, hasAfter = e.After[c]
		}
		if hasBefore != hasAfter || before != after {
			return true
		}
	}
	return false
}
