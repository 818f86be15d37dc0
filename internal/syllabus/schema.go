package syllabus

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

const definitions = `
	"question": {
		"type": "object",
		"required": ["question", "options", "correctAnswer"],
		"properties": {
			"question": {"type": "string", "minLength": 1},
			"options": {
				"oneOf": [
					{"type": "array", "items": {"type": "string"}},
					{"type": "string"}
				]
			},
			"correctAnswer": {"type": "string"}
		}
	},
	"chapter": {
		"type": "object",
		"required": ["title"],
		"properties": {
			"title": {"type": "string"},
			"description": {"type": "string"},
			"content": {"type": "string"},
			"quiz": {"type": "array", "items": {"$ref": "#/definitions/question"}}
		}
	},
	"node": {
		"type": "object",
		"required": ["id", "title"],
		"properties": {
			"id": {"type": "string", "minLength": 1},
			"title": {"type": "string"},
			"description": {"type": "string"},
			"content": {"type": "string"},
			"quiz": {"type": "array", "items": {"$ref": "#/definitions/question"}},
			"children": {"type": "array", "items": {"$ref": "#/definitions/node"}}
		}
	}`

const nestedSchema = `{
	"$schema": "http://json-schema.org/draft-04/schema#",
	"type": "object",
	"required": ["chapters"],
	"properties": {
		"chapters": {"type": "array", "items": {"$ref": "#/definitions/node"}}
	},
	"definitions": {` + definitions + `}
}`

const flatSchema = `{
	"$schema": "http://json-schema.org/draft-04/schema#",
	"type": "object",
	"additionalProperties": {"$ref": "#/definitions/chapter"},
	"definitions": {` + definitions + `}
}`

var loadSchemas = sync.OnceValues(func() ([2]*gojsonschema.Schema, error) {
	nested, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(nestedSchema))
	if err != nil {
		return [2]*gojsonschema.Schema{}, fmt.Errorf("compile nested schema: %w", err)
	}
	flat, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(flatSchema))
	if err != nil {
		return [2]*gojsonschema.Schema{}, fmt.Errorf("compile flat schema: %w", err)
	}
	return [2]*gojsonschema.Schema{nested, flat}, nil
})

// Validate checks raw JSON against the nested schema when it has a
// "chapters" key and against the flat schema otherwise. Node ids of a
// nested document must be unique across the whole tree. Violations are
// reported as ErrInvalidDocument.
func Validate(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil || probe == nil {
		return fmt.Errorf("%w: document must be a JSON object", ErrInvalidDocument)
	}

	schemas, err := loadSchemas()
	if err != nil {
		return err
	}
	schema := schemas[1]
	if _, ok := probe[nestedKey]; ok {
		schema = schemas[0]
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("validate syllabus: %w", err)
	}
	if result.Valid() {
		if schema == schemas[0] {
			return uniqueIDs(probe[nestedKey])
		}
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", ErrInvalidDocument, strings.Join(msgs, "; "))
}

// uniqueIDs rejects a nested chapters list in which any id appears twice,
// at any depth.
func uniqueIDs(raw json.RawMessage) error {
	type idNode struct {
		ID       string   `json:"id"`
		Children []idNode `json:"children"`
	}
	var nodes []idNode
	if err := json.Unmarshal(raw, &nodes); err != nil {
		return fmt.Errorf("%w: chapters: %v", ErrInvalidDocument, err)
	}

	seen := map[string]bool{}
	var walk func([]idNode) error
	walk = func(nodes []idNode) error {
		for _, n := range nodes {
			if seen[n.ID] {
				return fmt.Errorf("%w: duplicate node id %q", ErrInvalidDocument, n.ID)
			}
			seen[n.ID] = true
			if err := walk(n.Children); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(nodes)
}

// ParseValid validates raw JSON and then parses it.
func ParseValid(data []byte) (Document, error) {
	if err := Validate(data); err != nil {
		return Document{}, err
	}
	return ParseDocument(data)
}
