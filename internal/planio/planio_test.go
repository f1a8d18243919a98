package planio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseYAML(t *testing.T) {
	doc := []byte(`
name: hello
version: "1"
activities:
  - name: HelloWorld
    version: "1"
steps:
  - name: saying_hi
    activity: HelloWorld
`)
	p, err := Parse(doc, FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, "hello", p.Name)
	require.Len(t, p.Steps, 1)
	assert.Equal(t, "saying_hi", p.Steps[0].Name)
}

func TestParseJSON(t *testing.T) {
	doc := []byte(`{
		"name": "hello",
		"version": "1",
		"activities": [{"name": "HelloWorld", "version": "1"}],
		"steps": [{"name": "saying_hi", "activity": "HelloWorld"}]
	}`)
	p, err := Parse(doc, FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "hello", p.Name)
}

func TestParseInvalidYAMLIsLoadError(t *testing.T) {
	_, err := Parse([]byte("not: valid: yaml: [}"), FormatYAML)
	assert.Error(t, err)
}

func TestFormatForExtension(t *testing.T) {
	assert.Equal(t, FormatJSON, formatFor("plan.json"))
	assert.Equal(t, FormatYAML, formatFor("plan.yaml"))
	assert.Equal(t, FormatYAML, formatFor("plan.yml"))
}
