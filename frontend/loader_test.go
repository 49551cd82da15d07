package frontend_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaintrace/chaintrace/frontend"
	"github.com/chaintrace/chaintrace/model"
)

const sampleProject = `{
  "functions": [
    {
      "name": "main",
      "file": "main.c",
      "line": 3,
      "end_line": 8,
      "params": ["argc", "argv"],
      "blocks": [
        {
          "name": "entry",
          "instrs": [
            {"uses": ["argv"], "line": 5, "call": {"callee": "system", "file": "main.c", "line": 5}}
          ]
        }
      ]
    },
    {"name": "system", "declared": true}
  ]
}`

func TestReadProject(t *testing.T) {
	t.Parallel()

	p, err := frontend.ReadProject(strings.NewReader(sampleProject))
	require.NoError(t, err)
	require.Len(t, p.Functions, 2)

	mainFn := p.FunctionByName("main")
	require.NotNil(t, mainFn)
	assert.True(t, mainFn.IsDefinition())
	assert.Equal(t, []string{"argc", "argv"}, mainFn.Params)

	// Bind must have run: back-references are in place.
	entry := mainFn.Blocks[0]
	assert.Same(t, mainFn, entry.Parent)
	require.Len(t, entry.Instrs, 1)
	assert.Same(t, entry, entry.Instrs[0].Block)
	require.NotNil(t, entry.Instrs[0].Call)
	assert.Equal(t, "system", entry.Instrs[0].Call.Callee)

	assert.True(t, p.IsKnownName("system"))
	assert.False(t, p.FunctionByName("system").IsDefinition())
}

func TestReadProjectRejectsEmptyFunctionList(t *testing.T) {
	t.Parallel()

	_, err := frontend.ReadProject(strings.NewReader(`{"functions": []}`))
	assert.True(t, errors.Is(err, model.ErrNoFunctions))
}

func TestReadProjectRejectsSchemaViolations(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"missing functions":  `{}`,
		"nameless function":  `{"functions": [{"file": "a.c"}]}`,
		"bad line type":      `{"functions": [{"name": "f", "line": "ten"}]}`,
		"negative call line": `{"functions": [{"name": "f", "blocks": [{"name": "b", "instrs": [{"call": {"line": -1}}]}]}]}`,
	}

	for name, doc := range cases {
		doc := doc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := frontend.ReadProject(strings.NewReader(doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid project document")
		})
	}
}

func TestReadProjectRejectsMalformedJSON(t *testing.T) {
	t.Parallel()

	_, err := frontend.ReadProject(strings.NewReader(`{"functions": [`))
	assert.Error(t, err)
}

func TestLoadProject(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "project.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleProject), 0o600))

	p, err := frontend.LoadProject(path)
	require.NoError(t, err)
	assert.NotNil(t, p.FunctionByName("main"))

	_, err = frontend.LoadProject(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}
