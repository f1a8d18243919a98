package tmpl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInputTemplateRejectsUndeclaredVariable(t *testing.T) {
	_, err := ParseInputTemplate("greet", `{"x": {{.mystery}}}`, map[string]struct{}{})
	require.Error(t, err)
}

func TestParseInputTemplateAcceptsInputVar(t *testing.T) {
	it, err := ParseInputTemplate("greet", `{"who": {{.__input__.who}}}`, map[string]struct{}{})
	require.NoError(t, err)
	require.NotNil(t, it)
}

func TestParseInputTemplateAcceptsDeclaredParent(t *testing.T) {
	declared := map[string]struct{}{"step_a": {}}
	it, err := ParseInputTemplate("greet", `{"x": {{.step_a.value}}}`, declared)
	require.NoError(t, err)
	require.NotNil(t, it)
}

func TestRenderSubstitutesJSON(t *testing.T) {
	it, err := ParseInputTemplate("greet", `{"who": {{.__input__.who}}, "count": {{.__input__.count}}}`, map[string]struct{}{})
	require.NoError(t, err)

	out, err := it.Render(map[string]any{
		InputVar: map[string]any{"who": "world", "count": 3},
	})
	require.NoError(t, err)
	assert.Equal(t, "world", out["who"])
	assert.Equal(t, float64(3), out["count"])
}

func TestRenderFieldsInsideRangeAreNotFreeVariables(t *testing.T) {
	declared := map[string]struct{}{"step_a": {}}
	it, err := ParseInputTemplate("greet", `{"items": [{{range .step_a.items}}{{.name}}{{end}}]}`, declared)
	require.NoError(t, err)
	require.NotNil(t, it)
}

// Scenario 7: a template referencing a declared parent, the whole __input__
// document, and a dotted field of __input__ all in one document.
func TestRenderSubstitutesParentAndInputTogether(t *testing.T) {
	declared := map[string]struct{}{"foo": {}}
	it, err := ParseInputTemplate("greet", `{"parent": {{.foo}}, "whole": {{.__input__}}, "who": {{.__input__.who}}}`, declared)
	require.NoError(t, err)

	out, err := it.Render(map[string]any{
		"foo":    map[string]any{"bar": 1},
		InputVar: map[string]any{"who": "world"},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"bar": float64(1)}, out["parent"])
	assert.Equal(t, map[string]any{"who": "world"}, out["whole"])
	assert.Equal(t, "world", out["who"])
}

func TestRenderProducesInvalidJSONIsRuntimeAbort(t *testing.T) {
	it, err := ParseInputTemplate("greet", `{"who": {{.__input__.who}}`, map[string]struct{}{})
	require.NoError(t, err)

	_, err = it.Render(map[string]any{InputVar: map[string]any{"who": "world"}})
	assert.Error(t, err)
}
