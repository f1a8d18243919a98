package tmpl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOutputProjectorRejectsBadKey(t *testing.T) {
	_, err := ParseOutputProjector("act", map[string]string{"bad-key": "$"})
	require.Error(t, err)
}

func TestParseOutputProjectorRejectsBadExpression(t *testing.T) {
	_, err := ParseOutputProjector("act", map[string]string{"x": "a.b"})
	require.Error(t, err)
}

func TestProjectWholeDocument(t *testing.T) {
	p, err := ParseOutputProjector("act", map[string]string{"whole": "$"})
	require.NoError(t, err)

	out, err := p.Project(map[string]any{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 1}, out["whole"])
}

func TestProjectNestedPath(t *testing.T) {
	p, err := ParseOutputProjector("act", map[string]string{"name": "$.person.name"})
	require.NoError(t, err)

	out, err := p.Project(map[string]any{"person": map[string]any{"name": "ada"}})
	require.NoError(t, err)
	assert.Equal(t, "ada", out["name"])
}

func TestProjectUnresolvedPathAborts(t *testing.T) {
	p, err := ParseOutputProjector("act", map[string]string{"missing": "$.nope"})
	require.NoError(t, err)

	_, err = p.Project(map[string]any{"a": 1})
	assert.Error(t, err)
}

func TestProjectEmptySpecIsNoOp(t *testing.T) {
	p, err := ParseOutputProjector("act", nil)
	require.NoError(t, err)

	out, err := p.Project(map[string]any{"a": 1})
	require.NoError(t, err)
	assert.Empty(t, out)
}
