package attr

import (
	"errors"
	"testing"

	"github.com/murphy-project/murphyd/pkg/merr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDefs() []Def {
	return []Def{
		{Name: "priority", Type: TypeInt, Default: Int(0)},
		{Name: "shareable", Type: TypeBool, Default: Bool(false)},
		{Name: "label", Type: TypeString, Default: String("")},
	}
}

func TestNewRecordSeedsDefaults(t *testing.T) {
	r := NewRecord(testDefs())

	v, ok := r.Get("priority")
	require.True(t, ok)
	assert.Equal(t, Int(0), v)

	assert.ElementsMatch(t, []string{"priority", "shareable", "label"}, r.Names())
}

func TestRecordSet(t *testing.T) {
	tests := []struct {
		name    string
		attr    string
		value   Value
		wantErr error
	}{
		{name: "valid update", attr: "priority", value: Int(5)},
		{name: "unknown name", attr: "nope", value: Int(1), wantErr: merr.ErrUnknownName},
		{name: "type mismatch", attr: "priority", value: String("x"), wantErr: merr.ErrTypeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRecord(testDefs())
			err := r.Set(tt.attr, tt.value)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr))
				return
			}

			require.NoError(t, err)
			got, ok := r.Get(tt.attr)
			require.True(t, ok)
			assert.Equal(t, tt.value, got)
		})
	}
}

func TestRecordCloneIsIndependent(t *testing.T) {
	r := NewRecord(testDefs())
	require.NoError(t, r.Set("priority", Int(3)))

	clone := r.Clone()
	require.NoError(t, clone.Set("priority", Int(9)))

	original, _ := r.Get("priority")
	cloned, _ := clone.Get("priority")

	assert.Equal(t, Int(3), original)
	assert.Equal(t, Int(9), cloned)
}
