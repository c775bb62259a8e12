package must

import (
	"testing"

	"github.com/murphy-project/murphyd/pkg/attr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileAndExecuteReturnsParsedStatus(t *testing.T) {
	interp := New()
	h, err := interp.Compile(" 0 ")
	require.NoError(t, err)

	status, err := interp.Execute(h)
	require.NoError(t, err)
	assert.Equal(t, 0, status)
}

func TestCompileInvalidSourceFails(t *testing.T) {
	interp := New()
	_, err := interp.Compile("not-a-number")
	require.Error(t, err)
}

func TestPrepareStoresBindingsForInspection(t *testing.T) {
	interp := New()
	h, err := interp.Compile("1")
	require.NoError(t, err)

	bindings := map[string]attr.Value{"speed": attr.Int(42)}
	require.NoError(t, interp.Prepare(h, bindings))

	status, err := interp.Execute(h)
	require.NoError(t, err)
	assert.Equal(t, 1, status)
	assert.Equal(t, bindings, h.(*handle).LastBindings)

	interp.Cleanup(h)
	assert.Nil(t, h.(*handle).LastBindings)
}
