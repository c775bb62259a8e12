package mdb

import (
	"errors"
	"testing"

	"github.com/murphy-project/murphyd/pkg/attr"
	"github.com/murphy-project/murphyd/pkg/merr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUsersTable(t *testing.T, db *DB) {
	t.Helper()
	_, err := db.CreateTable("users", []ColumnDef{
		{Name: "id", Type: attr.TypeString},
		{Name: "priority", Type: attr.TypeInt},
	}, "id")
	require.NoError(t, err)
}

func TestInsertAndSelect(t *testing.T) {
	db := New()
	newUsersTable(t, db)

	err := db.Update(func(tx *Tx) error {
		return tx.Insert("users", Row{"id": attr.String("alice"), "priority": attr.Int(1)})
	})
	require.NoError(t, err)

	tbl, _ := db.Table("users")
	row, ok := tbl.Select(attr.String("alice"))
	require.True(t, ok)
	assert.Equal(t, attr.Int(1), row["priority"])
	assert.EqualValues(t, 1, tbl.Stamp())
}

func TestInsertDuplicateKeyFails(t *testing.T) {
	db := New()
	newUsersTable(t, db)

	insert := func() error {
		return db.Update(func(tx *Tx) error {
			return tx.Insert("users", Row{"id": attr.String("alice"), "priority": attr.Int(1)})
		})
	}
	require.NoError(t, insert())

	err := insert()
	require.Error(t, err)
	assert.True(t, errors.Is(err, merr.ErrConstraint))
}

func TestUpdateUnknownKeyFails(t *testing.T) {
	db := New()
	newUsersTable(t, db)

	err := db.Update(func(tx *Tx) error {
		return tx.Update("users", attr.String("nope"), Row{"priority": attr.Int(2)})
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, merr.ErrNoSuchRow))
}

func TestRollbackUndoesMutations(t *testing.T) {
	db := New()
	newUsersTable(t, db)

	err := db.Update(func(tx *Tx) error {
		if err := tx.Insert("users", Row{"id": attr.String("bob"), "priority": attr.Int(1)}); err != nil {
			return err
		}
		return errors.New("force rollback")
	})
	require.Error(t, err)

	tbl, _ := db.Table("users")
	_, ok := tbl.Select(attr.String("bob"))
	assert.False(t, ok)
	assert.Equal(t, 0, tbl.NumRows())
}

func TestNestedTransactionsOnlyFireTriggersAtOutermostCommit(t *testing.T) {
	db := New()
	newUsersTable(t, db)

	var fired int
	require.NoError(t, db.OnRowChange("users", func(e LogEntry) { fired++ }))

	err := db.Update(func(outer *Tx) error {
		if err := outer.db.Update(func(inner *Tx) error {
			return inner.Insert("users", Row{"id": attr.String("carol"), "priority": attr.Int(3)})
		}); err != nil {
			return err
		}
		assert.Equal(t, 0, fired, "inner commit must not fire triggers")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, fired)
}

func TestNestedRollbackLeavesOuterMutationsIntact(t *testing.T) {
	db := New()
	newUsersTable(t, db)

	err := db.Update(func(outer *Tx) error {
		require.NoError(t, outer.Insert("users", Row{"id": attr.String("dave"), "priority": attr.Int(1)}))

		innerErr := outer.db.Update(func(inner *Tx) error {
			if err := inner.Update("users", attr.String("dave"), Row{"priority": attr.Int(99)}); err != nil {
				return err
			}
			return errors.New("abort inner")
		})
		assert.Error(t, innerErr)
		return nil
	})
	require.NoError(t, err)

	tbl, _ := db.Table("users")
	row, ok := tbl.Select(attr.String("dave"))
	require.True(t, ok)
	assert.Equal(t, attr.Int(1), row["priority"], "inner rollback must not leak into outer transaction")
}

func TestOnColumnChangeFiltersByColumn(t *testing.T) {
	db := New()
	newUsersTable(t, db)
	require.NoError(t, db.Update(func(tx *Tx) error {
		return tx.Insert("users", Row{"id": attr.String("erin"), "priority": attr.Int(1)})
	}))

	var priorityFired, idFired int
	require.NoError(t, db.OnColumnChange("users", []string{"priority"}, func(e LogEntry) { priorityFired++ }))
	require.NoError(t, db.OnColumnChange("users", []string{"id"}, func(e LogEntry) { idFired++ }))

	err := db.Update(func(tx *Tx) error {
		return tx.Update("users", attr.String("erin"), Row{"priority": attr.Int(2)})
	})
	require.NoError(t, err)

	assert.Equal(t, 1, priorityFired)
	assert.Equal(t, 0, idFired)
}

func TestIterateLogForwardAndBackward(t *testing.T) {
	db := New()
	newUsersTable(t, db)

	require.NoError(t, db.Update(func(tx *Tx) error {
		return tx.Insert("users", Row{"id": attr.String("gail"), "priority": attr.Int(1)})
	}))
	require.NoError(t, db.Update(func(tx *Tx) error {
		return tx.Update("users", attr.String("gail"), Row{"priority": attr.Int(2)})
	}))

	forward, err := db.IterateLog("users", Forward, false)
	require.NoError(t, err)
	require.Len(t, forward, 2)
	assert.Equal(t, OpInsert, forward[0].Op)
	assert.Equal(t, OpUpdate, forward[1].Op)

	backward, err := db.IterateLog("users", Backward, false)
	require.NoError(t, err)
	require.Len(t, backward, 2)
	assert.Equal(t, OpUpdate, backward[0].Op)
	assert.Equal(t, OpInsert, backward[1].Op)
}

func TestIterateLogConsumeDrainsEntries(t *testing.T) {
	db := New()
	newUsersTable(t, db)

	require.NoError(t, db.Update(func(tx *Tx) error {
		return tx.Insert("users", Row{"id": attr.String("hank"), "priority": attr.Int(1)})
	}))

	first, err := db.IterateLog("users", Forward, true)
	require.NoError(t, err)
	assert.Len(t, first, 1)

	second, err := db.IterateLog("users", Forward, true)
	require.NoError(t, err)
	assert.Empty(t, second, "consumed entries must not be returned again")
}

func TestIterateLogSkipsRolledBackMutations(t *testing.T) {
	db := New()
	newUsersTable(t, db)

	err := db.Update(func(tx *Tx) error {
		if err := tx.Insert("users", Row{"id": attr.String("ivy"), "priority": attr.Int(1)}); err != nil {
			return err
		}
		return errors.New("force rollback")
	})
	require.Error(t, err)

	entries, err := db.IterateLog("users", Forward, false)
	require.NoError(t, err)
	assert.Empty(t, entries, "rolled-back mutations must never reach the committed log")
}

func TestDeleteRemovesRow(t *testing.T) {
	db := New()
	newUsersTable(t, db)
	require.NoError(t, db.Update(func(tx *Tx) error {
		return tx.Insert("users", Row{"id": attr.String("finn"), "priority": attr.Int(1)})
	}))

	require.NoError(t, db.Update(func(tx *Tx) error {
		return tx.Delete("users", attr.String("finn"))
	}))

	tbl, _ := db.Table("users")
	_, ok := tbl.Select(attr.String("finn"))
	assert.False(t, ok)
}
