package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequiresBareString(t *testing.T) {
	entries, err := parseRequires([]any{"a"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a", entries[0].Parent)
	assert.Equal(t, "", entries[0].Status)
}

func TestParseRequiresPair(t *testing.T) {
	entries, err := parseRequires([]any{[]any{"a", "succeeded"}})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a", entries[0].Parent)
	assert.Equal(t, "succeeded", entries[0].Status)
}

func TestParseRequiresRejectsBadShape(t *testing.T) {
	_, err := parseRequires([]any{[]any{"a", "b", "c"}})
	assert.Error(t, err)

	_, err = parseRequires([]any{42})
	assert.Error(t, err)
}

func TestStepRequirementMap(t *testing.T) {
	s := &Step{
		Requires: []Requirement{{Parent: "a"}},
	}
	m := s.RequirementMap()
	assert.Contains(t, m, "a")
}
