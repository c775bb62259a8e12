/*
Package mdb is murphyd's in-memory transactional table store.

# Architecture

	┌──────────────────────── MDB ────────────────────────────┐
	│                                                           │
	│   DB                                                      │
	│    ├─ tables map[string]*Table                           │
	│    └─ frames [][]logRecord   (transaction nesting stack)  │
	│                                                           │
	│   DB.Update(func(tx *Tx) error { ... })                  │
	│    ├─ begin()   push a new frame, depth++                │
	│    ├─ fn(tx)    tx.Insert/Update/Delete record a          │
	│    │            logRecord{table, LogEntry} in the         │
	│    │            top frame and mutate the row immediately  │
	│    ├─ commit()  pop the frame; at depth 0 fire every      │
	│    │            table's triggers in log order, otherwise  │
	│    │            fold the frame into its parent            │
	│    └─ rollback() pop the frame and undo its entries in    │
	│                   reverse order                            │
	│                                                           │
	└───────────────────────────────────────────────────────────┘

Nested DB.Update calls are the transaction-depth stack: the outermost
commit is the only one that fires triggers, matching the rule that a
rolled-back inner transaction must leave no trigger observably fired.

Each Table also keeps its own persisted change log, fed from the same
outermost-commit point as triggers (so a rolled-back mutation never
appears in it either). DB.IterateLog walks that log forward (oldest
first) or backward (newest first), optionally consuming the entries it
returns so a later caller only sees what has committed since.

There is no disk persistence and no WAL — a murphyd process that exits
loses the table contents, by design: this store's job is to hold the
arbitration daemon's live resource and fact state, not to survive a
restart.
*/
package mdb
