package resolver

import (
	"errors"
	"testing"

	"github.com/murphy-project/murphyd/pkg/attr"
	"github.com/murphy-project/murphyd/pkg/fact"
	"github.com/murphy-project/murphyd/pkg/mdb"
	"github.com/murphy-project/murphyd/pkg/merr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinkTopologicalOrder(t *testing.T) {
	g, err := Link([]ParsedTarget{
		{Name: "c", Depends: []string{"a", "b"}},
		{Name: "b", Depends: []string{"a"}},
		{Name: "a"},
	}, nil)
	require.NoError(t, err)

	order := g.Order()
	pos := make(map[string]int, len(order))
	for i, name := range order {
		pos[name] = i
	}
	assert.Less(t, pos["a"], pos["b"])
	assert.Less(t, pos["b"], pos["c"])
}

func TestLinkDuplicateTargetNameFails(t *testing.T) {
	_, err := Link([]ParsedTarget{
		{Name: "a"},
		{Name: "a"},
	}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, merr.ErrNameCollision))
}

func TestLinkUnknownDependencyFails(t *testing.T) {
	_, err := Link([]ParsedTarget{
		{Name: "a", Depends: []string{"ghost"}},
	}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, merr.ErrUnknownDependency))
}

func TestLinkCyclicGraphFails(t *testing.T) {
	_, err := Link([]ParsedTarget{
		{Name: "a", Depends: []string{"b"}},
		{Name: "b", Depends: []string{"c"}},
		{Name: "c", Depends: []string{"a"}},
	}, nil)
	require.Error(t, err)

	var cyc *CyclicGraphError
	require.True(t, errors.As(err, &cyc))
	assert.True(t, errors.Is(err, merr.ErrCyclicGraph))
	assert.Contains(t, cyc.Path, "a")
	assert.Contains(t, cyc.Path, "b")
	assert.Contains(t, cyc.Path, "c")
}

func TestLinkFactDependencySubscribes(t *testing.T) {
	db := mdb.New()
	facts := fact.New(db)
	_, err := facts.Declare("f", []mdb.ColumnDef{{Name: "id", Type: attr.TypeString}}, "id")
	require.NoError(t, err)

	g, err := Link([]ParsedTarget{
		{Name: "t1", Depends: []string{"f"}},
	}, facts)
	require.NoError(t, err)

	tgt, ok := g.Target("t1")
	require.True(t, ok)
	assert.Contains(t, tgt.factDeps, "f")
}

func TestLinkAllTargetsStartStale(t *testing.T) {
	g, err := Link([]ParsedTarget{{Name: "a"}}, nil)
	require.NoError(t, err)
	tgt, ok := g.Target("a")
	require.True(t, ok)
	assert.True(t, tgt.Stale())
}
