// Package frontend loads function models produced by external front
// ends. The core owns no parser: any tool able to emit the project JSON
// shape (blocks, instructions, def/use names, call sites) can feed the
// engine. The gossa subpackage is one such front end for Go source.
package frontend

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/chaintrace/chaintrace/model"
)

//go:embed schema.json
var schemaFS embed.FS

const schemaName = "schema.json"

// LoadProject reads, validates, and binds a project JSON file.
func LoadProject(path string) (*model.Project, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("frontend: open project: %w", err)
	}
	defer f.Close()
	return ReadProject(f)
}

// ReadProject decodes a project from a reader. The document is validated
// against the embedded schema before decoding, so shape errors surface
// with schema paths instead of partial models. An empty function list is
// the pipeline's single fatal precondition.
func ReadProject(r io.Reader) (*model.Project, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("frontend: read project: %w", err)
	}

	if err := validate(data); err != nil {
		return nil, fmt.Errorf("frontend: invalid project document: %w", err)
	}

	var project model.Project
	if err := json.Unmarshal(data, &project); err != nil {
		return nil, fmt.Errorf("frontend: decode project: %w", err)
	}
	if len(project.Functions) == 0 {
		return nil, model.ErrNoFunctions
	}

	project.Bind()
	return &project, nil
}

func validate(data []byte) error {
	raw, err := schemaFS.ReadFile(schemaName)
	if err != nil {
		return err
	}
	schemaDoc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return err
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaName, schemaDoc); err != nil {
		return err
	}
	schema, err := compiler.Compile(schemaName)
	if err != nil {
		return err
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return err
	}
	return schema.Validate(doc)
}
