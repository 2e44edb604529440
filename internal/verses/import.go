package verses

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"versekeep/internal/api"
)

// importSchema describes the verse import file: a JSON array of verse
// objects keyed by reference.
var importSchema = map[string]any{
	"type": "array",
	"items": map[string]any{
		"type":                 "object",
		"required":             []any{"reference", "text"},
		"additionalProperties": false,
		"properties": map[string]any{
			"reference": map[string]any{
				"type":      "string",
				"minLength": 1,
			},
			"text": map[string]any{
				"type":      "string",
				"minLength": 1,
			},
			"translation": map[string]any{
				"type": "string",
			},
			"status": map[string]any{
				"type": "string",
				"enum": []any{"not_started", "in_progress", "mastered"},
			},
		},
	},
}

var (
	compiledImportSchema *jsonschema.Schema
	compileImportOnce    sync.Once
	compileImportErr     error
)

func importSchemaCompiled() (*jsonschema.Schema, error) {
	compileImportOnce.Do(func() {
		// The jsonschema library expects a parsed JSON value (any), not raw
		// bytes. Marshal then unmarshal to get a clean any representation.
		defBytes, err := json.Marshal(importSchema)
		if err != nil {
			compileImportErr = fmt.Errorf("marshal schema definition: %w", err)
			return
		}
		var defParsed any
		if err := json.Unmarshal(defBytes, &defParsed); err != nil {
			compileImportErr = fmt.Errorf("parse schema definition: %w", err)
			return
		}

		c := jsonschema.NewCompiler()
		const schemaURL = "schema://verse-import.json"
		if err := c.AddResource(schemaURL, defParsed); err != nil {
			compileImportErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiledImportSchema, compileImportErr = c.Compile(schemaURL)
	})
	return compiledImportSchema, compileImportErr
}

// ImportResult summarizes an import run.
type ImportResult struct {
	Added   int
	Queued  int      // parked in the ledger for later sync
	Skipped []string // references the server already had
}

// Import reads a JSON verse file, validates it against the import schema,
// and adds every verse. Duplicates are skipped; transient failures queue the
// remaining verses through the normal ledger fallback.
func (s *Service) Import(ctx context.Context, path string) (ImportResult, error) {
	var result ImportResult

	raw, err := os.ReadFile(path)
	if err != nil {
		return result, fmt.Errorf("read import file: %w", err)
	}

	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return result, fmt.Errorf("invalid JSON: %w", err)
	}

	schema, err := importSchemaCompiled()
	if err != nil {
		return result, fmt.Errorf("compile import schema: %w", err)
	}
	if err := schema.Validate(parsed); err != nil {
		return result, fmt.Errorf("import file rejected: %w", err)
	}

	var entries []api.Verse
	if err := json.Unmarshal(raw, &entries); err != nil {
		return result, fmt.Errorf("decode verses: %w", err)
	}

	for _, v := range entries {
		err := s.Add(ctx, v)
		switch {
		case err == nil:
			result.Added++
		case errors.Is(err, ErrQueuedOffline):
			result.Queued++
		case errors.Is(err, api.ErrConflict):
			result.Skipped = append(result.Skipped, v.Reference)
		default:
			return result, fmt.Errorf("import %s: %w", v.Reference, err)
		}
	}
	return result, nil
}
