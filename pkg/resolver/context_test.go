package resolver

import (
	"errors"
	"testing"

	"github.com/murphy-project/murphyd/pkg/merr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeclareSameTypeTwiceIsNoop(t *testing.T) {
	c := NewContextTable()
	require.NoError(t, c.Declare("speed", VarU32))
	require.NoError(t, c.Declare("speed", VarU32))
}

func TestDeclareConflictingTypeFails(t *testing.T) {
	c := NewContextTable()
	require.NoError(t, c.Declare("speed", VarU32))

	err := c.Declare("speed", VarString)
	require.Error(t, err)
	assert.True(t, errors.Is(err, merr.ErrTypeMismatch))
}

func TestSetUnknownNameFails(t *testing.T) {
	c := NewContextTable()
	err := c.Set("speed", VU32(10))
	require.Error(t, err)
	assert.True(t, errors.Is(err, merr.ErrUnknownName))
}

func TestSetTypeMismatchFails(t *testing.T) {
	c := NewContextTable()
	require.NoError(t, c.Declare("speed", VarU32))

	err := c.Set("speed", VString("fast"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, merr.ErrTypeMismatch))
}

func TestGetResolvesInnermostFrameFirst(t *testing.T) {
	c := NewContextTable()
	require.NoError(t, c.Declare("speed", VarU32))
	require.NoError(t, c.Set("speed", VU32(10)))

	c.PushFrame()
	require.NoError(t, c.Set("speed", VU32(99)))

	v, ok := c.Get("speed")
	require.True(t, ok)
	assert.Equal(t, uint64(99), v.U64)

	c.PopFrame()
	v, ok = c.Get("speed")
	require.True(t, ok)
	assert.Equal(t, uint64(10), v.U64)
}

func TestPopBaseFramePanics(t *testing.T) {
	c := NewContextTable()
	assert.Panics(t, func() { c.PopFrame() })
}

func TestGetMissingNameReturnsFalse(t *testing.T) {
	c := NewContextTable()
	_, ok := c.Get("nope")
	assert.False(t, ok)
}

func TestBindingsFlattensAllFrames(t *testing.T) {
	c := NewContextTable()
	require.NoError(t, c.Declare("speed", VarU32))
	require.NoError(t, c.Declare("label", VarString))
	require.NoError(t, c.Set("speed", VU32(10)))

	c.PushFrame()
	require.NoError(t, c.Set("label", VString("zone1")))

	b := c.Bindings()
	require.Len(t, b, 2)
	assert.Equal(t, uint32(10), b["speed"].U32)
	assert.Equal(t, "zone1", b["label"].Str)
}

func TestMustBindingsBuildsMap(t *testing.T) {
	b := MustBindings("speed", VU32(42), "label", VString("x"))
	assert.Equal(t, uint64(42), b["speed"].U64)
	assert.Equal(t, "x", b["label"].Str)
}

func TestMustBindingsPanicsOnOddArgs(t *testing.T) {
	assert.Panics(t, func() { MustBindings("speed", VU32(1), "orphan") })
}

func TestMustBindingsPanicsOnWrongTypes(t *testing.T) {
	assert.Panics(t, func() { MustBindings(1, VU32(1)) })
	assert.Panics(t, func() { MustBindings("speed", 1) })
}
