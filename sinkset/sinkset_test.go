package sinkset_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaintrace/chaintrace/sinkset"
)

func TestNames(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{
		"buffer-write",
		"command-injection",
		"format-string",
		"path-traversal",
	}, sinkset.Names())
}

func TestCatalogSinglePreset(t *testing.T) {
	t.Parallel()

	catalog, err := sinkset.Catalog("command-injection")
	require.NoError(t, err)
	require.NotEmpty(t, catalog)

	found := false
	for _, sink := range catalog {
		if sink.Name == "system" {
			found = true
			assert.Equal(t, 0, sink.ParamIndex)
			assert.Equal(t, "rule", sink.By)
		}
	}
	assert.True(t, found, "command-injection must include system")
}

func TestCatalogCommaSeparated(t *testing.T) {
	t.Parallel()

	catalog, err := sinkset.Catalog("command-injection, buffer-write")
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, sink := range catalog {
		names[sink.Name] = true
	}
	assert.True(t, names["system"])
	assert.True(t, names["strcpy"])
	assert.True(t, names["memcpy"])
}

func TestCatalogUnknownPreset(t *testing.T) {
	t.Parallel()

	_, err := sinkset.Catalog("no-such-preset")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no-such-preset")
	assert.Contains(t, err.Error(), "command-injection")
}

func TestCatalogSkipsEmptyNames(t *testing.T) {
	t.Parallel()

	catalog, err := sinkset.Catalog("", " ,, ")
	require.NoError(t, err)
	assert.Empty(t, catalog)
}

func TestPresetParamIndices(t *testing.T) {
	t.Parallel()

	byName := make(map[string]int)
	for _, sink := range sinkset.FormatString() {
		byName[sink.Name] = sink.ParamIndex
	}
	assert.Equal(t, 0, byName["printf"])
	assert.Equal(t, 1, byName["fprintf"])
	assert.Equal(t, 2, byName["snprintf"])

	for _, sink := range sinkset.BufferWrite() {
		if sink.Name == "memcpy" {
			assert.Equal(t, 2, sink.ParamIndex)
		}
	}
}
