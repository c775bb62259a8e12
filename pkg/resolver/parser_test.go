package resolver

import (
	"errors"
	"testing"

	"github.com/murphy-project/murphyd/pkg/merr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRulesTargetsWithDependsAndScript(t *testing.T) {
	src := `
# a comment line is insignificant
target zone.audio {
    depends audio, low
    script lua "return 0"
}

target zone.video {
    depends zone.audio
}
`
	targets, err := ParseRules(src)
	require.NoError(t, err)
	require.Len(t, targets, 2)

	assert.Equal(t, "zone.audio", targets[0].Name)
	assert.Equal(t, []string{"audio", "low"}, targets[0].Depends)
	require.NotNil(t, targets[0].Script)
	assert.Equal(t, "lua", targets[0].Script.Tag)
	assert.Equal(t, "return 0", targets[0].Script.Source)

	assert.Equal(t, "zone.video", targets[1].Name)
	assert.Nil(t, targets[1].Script)
}

func TestParseRulesSyntaxErrorWrapsSchemaInvalid(t *testing.T) {
	_, err := ParseRules("target { }")
	require.Error(t, err)
	assert.True(t, errors.Is(err, merr.ErrSchemaInvalid))
}

func TestParseRulesEmptyFile(t *testing.T) {
	targets, err := ParseRules("")
	require.NoError(t, err)
	assert.Empty(t, targets)
}
