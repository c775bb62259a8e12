// Package mdb implements an in-memory, transactional, multi-table row
// store. It keeps the closure-scoped transaction shape idiomatic to this
// codebase's disk-backed stores (db.Update(func(tx) error {...})) but
// backs it with nothing but process memory: there is no WAL, no file
// handle, and no recovery path, because this store never outlives the
// process that created it.
//
// Transactions nest. Every call to DB.Update opens one more level; the
// outermost Commit is the only one that fires table triggers, and a
// Rollback at any depth undoes exactly the mutations made since its
// matching Update call, in reverse order.
package mdb

import (
	"fmt"

	"github.com/murphy-project/murphyd/pkg/attr"
	"github.com/murphy-project/murphyd/pkg/merr"
)

// DB owns a set of named tables and the transaction stack shared across
// them.
type DB struct {
	tables map[string]*Table
	depth  int
	frames [][]logRecord
}

type logRecord struct {
	table *Table
	entry LogEntry
}

// New creates an empty DB.
func New() *DB {
	return &DB{tables: make(map[string]*Table)}
}

// CreateTable registers a new table. ErrNameCollision if name is taken.
func (db *DB) CreateTable(name string, columns []ColumnDef, keyCol string) (*Table, error) {
	if _, exists := db.tables[name]; exists {
		return nil, fmt.Errorf("mdb: %w: table %q", merr.ErrNameCollision, name)
	}
	t, err := newTable(name, columns, keyCol)
	if err != nil {
		return nil, err
	}
	db.tables[name] = t
	return t, nil
}

// Table looks up a registered table by name.
func (db *DB) Table(name string) (*Table, bool) {
	t, ok := db.tables[name]
	return t, ok
}

// Tables returns every registered table name.
func (db *DB) Tables() []string {
	names := make([]string, 0, len(db.tables))
	for name := range db.tables {
		names = append(names, name)
	}
	return names
}

// Tx is a handle scoped to one (possibly nested) transaction, used to
// mutate tables so the change is tracked for rollback/trigger purposes.
type Tx struct {
	db    *DB
	depth int
}

// Update opens a new transaction level, runs fn, and commits on success
// or rolls back on error — the nesting depth increases by one for each
// call, including calls made from within an already-running fn.
func (db *DB) Update(fn func(tx *Tx) error) error {
	tx := db.begin()
	if err := fn(tx); err != nil {
		db.rollback(tx)
		return err
	}
	return db.commit(tx)
}

func (db *DB) begin() *Tx {
	db.depth++
	db.frames = append(db.frames, nil)
	return &Tx{db: db, depth: db.depth}
}

func (db *DB) commit(tx *Tx) error {
	frame := db.frames[len(db.frames)-1]
	db.frames = db.frames[:len(db.frames)-1]
	db.depth--

	if db.depth == 0 {
		for _, rec := range frame {
			rec.table.fire(rec.entry)
		}
		return nil
	}

	parent := db.frames[len(db.frames)-1]
	db.frames[len(db.frames)-1] = append(parent, frame...)
	return nil
}

func (db *DB) rollback(tx *Tx) error {
	frame := db.frames[len(db.frames)-1]
	db.frames = db.frames[:len(db.frames)-1]
	db.depth--

	for i := len(frame) - 1; i >= 0; i-- {
		undo(frame[i])
	}
	return nil
}

func undo(rec logRecord) {
	t := rec.table
	e := rec.entry
	switch e.Op {
	case OpInsert:
		delete(t.rows, e.Key)
		t.order = removeKey(t.order, e.Key)
	case OpDelete:
		t.rows[e.Key] = e.Before.clone()
		t.order = append(t.order, e.Key)
	case OpUpdate:
		t.rows[e.Key] = e.Before.clone()
	}
	t.stamp--
}

func removeKey(order []attr.Value, key attr.Value) []attr.Value {
	for i, k := range order {
		if k == key {
			return append(order[:i], order[i+1:]...)
		}
	}
	return order
}

func (tx *Tx) record(entry LogEntry) {
	entry.Depth = tx.depth
	db := tx.db
	db.frames[len(db.frames)-1] = append(db.frames[len(db.frames)-1], logRecord{table: tableByName(db, entry.Table), entry: entry})
}

func tableByName(db *DB, name string) *Table {
	return db.tables[name]
}

// Insert adds a new row. ErrConstraint if the key already exists.
func (tx *Tx) Insert(table string, row Row) error {
	t, ok := tx.db.tables[table]
	if !ok {
		return fmt.Errorf("mdb: %w: table %q", merr.ErrNoSuchRow, table)
	}
	if err := t.validate(row); err != nil {
		return err
	}
	key, err := t.keyOf(row)
	if err != nil {
		return err
	}
	if _, exists := t.rows[key]; exists {
		return fmt.Errorf("mdb: %w: key %v already present in %q", merr.ErrConstraint, key, table)
	}

	stored := row.clone()
	t.rows[key] = stored
	t.order = append(t.order, key)
	t.stamp++

	tx.record(LogEntry{Table: table, Op: OpInsert, Key: key, After: stored})
	return nil
}

// Update merges changes into the row with the given key.
// ErrNoSuchRow if the key is absent.
func (tx *Tx) Update(table string, key attr.Value, changes Row) error {
	t, ok := tx.db.tables[table]
	if !ok {
		return fmt.Errorf("mdb: %w: table %q", merr.ErrNoSuchRow, table)
	}
	before, ok := t.rows[key]
	if !ok {
		return fmt.Errorf("mdb: %w: key %v in %q", merr.ErrNoSuchRow, key, table)
	}
	if err := t.validate(changes); err != nil {
		return err
	}

	beforeCopy := before.clone()
	after := before.clone()
	for k, v := range changes {
		after[k] = v
	}
	t.rows[key] = after
	t.stamp++

	tx.record(LogEntry{Table: table, Op: OpUpdate, Key: key, Before: beforeCopy, After: after.clone()})
	return nil
}

// Delete removes the row with the given key.
// ErrNoSuchRow if the key is absent.
func (tx *Tx) Delete(table string, key attr.Value) error {
	t, ok := tx.db.tables[table]
	if !ok {
		return fmt.Errorf("mdb: %w: table %q", merr.ErrNoSuchRow, table)
	}
	before, ok := t.rows[key]
	if !ok {
		return fmt.Errorf("mdb: %w: key %v in %q", merr.ErrNoSuchRow, key, table)
	}

	beforeCopy := before.clone()
	delete(t.rows, key)
	t.order = removeKey(t.order, key)
	t.stamp++

	tx.record(LogEntry{Table: table, Op: OpDelete, Key: key, Before: beforeCopy})
	return nil
}

// OnRowChange registers fn to run, for every committed mutation to
// table, once the outermost transaction containing it commits.
func (db *DB) OnRowChange(table string, fn func(LogEntry)) error {
	t, ok := db.tables[table]
	if !ok {
		return fmt.Errorf("mdb: %w: table %q", merr.ErrNoSuchRow, table)
	}
	t.onRowChange(fn)
	return nil
}

// OnColumnChange is like OnRowChange but only fires when the mutation
// touched one of cols.
func (db *DB) OnColumnChange(table string, cols []string, fn func(LogEntry)) error {
	t, ok := db.tables[table]
	if !ok {
		return fmt.Errorf("mdb: %w: table %q", merr.ErrNoSuchRow, table)
	}
	t.onColumnChange(cols, fn)
	return nil
}

// IterateLog returns table's committed change log in dir order
// (Forward: oldest first, Backward: newest first). If consume is true,
// the returned entries are removed from the table's log as they are
// handed back, so a later call only sees entries committed since.
// ErrNoSuchRow if table was never created.
func (db *DB) IterateLog(table string, dir Direction, consume bool) ([]LogEntry, error) {
	t, ok := db.tables[table]
	if !ok {
		return nil, fmt.Errorf("mdb: %w: table %q", merr.ErrNoSuchRow, table)
	}
	return t.iterateLog(dir, consume), nil
}
