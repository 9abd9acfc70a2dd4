package analyzer

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"github.com/spigell/resume-insight/internal/prompts"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	schemasOnce sync.Once
	schemas     map[prompts.Kind]*gojsonschema.Schema
	schemasErr  error
)

func loadSchemas() {
	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		schemasErr = fmt.Errorf("read shape schemas: %w", err)
		return
	}

	schemas = make(map[prompts.Kind]*gojsonschema.Schema, len(entries))
	for _, entry := range entries {
		data, err := schemaFS.ReadFile("schemas/" + entry.Name())
		if err != nil {
			schemasErr = fmt.Errorf("read schema %s: %w", entry.Name(), err)
			return
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
		if err != nil {
			schemasErr = fmt.Errorf("compile schema %s: %w", entry.Name(), err)
			return
		}
		schemas[prompts.Kind(strings.TrimSuffix(entry.Name(), ".json"))] = schema
	}
}

// shapeProblems lists the ways rec deviates from the documented output shape
// of kind. Kinds without a schema never report problems.
func shapeProblems(kind prompts.Kind, rec map[string]any) ([]string, error) {
	schemasOnce.Do(loadSchemas)
	if schemasErr != nil {
		return nil, schemasErr
	}

	schema, ok := schemas[kind]
	if !ok {
		return nil, nil
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(rec))
	if err != nil {
		return nil, fmt.Errorf("validate %s shape: %w", kind, err)
	}
	if result.Valid() {
		return nil, nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		problems = append(problems, field+": "+desc.Description())
	}
	return problems, nil
}
