package ai

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// VocabularyWord is one entry of the vocabulary builder.
type VocabularyWord struct {
	Word          string `json:"word"`
	Pronunciation string `json:"pronunciation"`
	HindiMeaning  string `json:"hindiMeaning"`
}

// QuizQuestion is one grammar gym question.
type QuizQuestion struct {
	QuestionText  string   `json:"questionText"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
}

// Output shapes understood by DecodeStructured.
const (
	ShapeVocabulary = "vocabulary"
	ShapeQuiz       = "quiz"
	ShapeSentences  = "sentences"
)

var outputSchemas = map[string]string{
	ShapeVocabulary: `{
		"$schema": "http://json-schema.org/draft-04/schema#",
		"type": "array",
		"items": {
			"type": "object",
			"required": ["word", "pronunciation", "hindiMeaning"],
			"properties": {
				"word": {"type": "string", "minLength": 1},
				"pronunciation": {"type": "string"},
				"hindiMeaning": {"type": "string"}
			}
		}
	}`,
	ShapeQuiz: `{
		"$schema": "http://json-schema.org/draft-04/schema#",
		"type": "array",
		"items": {
			"type": "object",
			"required": ["questionText", "options", "correctAnswer"],
			"properties": {
				"questionText": {"type": "string", "minLength": 1},
				"options": {
					"type": "array",
					"items": {"type": "string"},
					"minItems": 4,
					"maxItems": 4
				},
				"correctAnswer": {"type": "string"}
			}
		}
	}`,
	ShapeSentences: `{
		"$schema": "http://json-schema.org/draft-04/schema#",
		"type": "array",
		"items": {"type": "string", "minLength": 1}
	}`,
}

var compiledSchemas = sync.OnceValues(func() (map[string]*gojsonschema.Schema, error) {
	out := make(map[string]*gojsonschema.Schema, len(outputSchemas))
	for shape, src := range outputSchemas {
		s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
		if err != nil {
			return nil, fmt.Errorf("compile %s schema: %w", shape, err)
		}
		out[shape] = s
	}
	return out, nil
})

// StripCodeFence removes a Markdown code fence, with or without a language
// tag, from around a model reply.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// DecodeStructured strips fences from a reply, validates it against the
// named output shape and decodes it into v.
func DecodeStructured(reply, shape string, v any) error {
	schemas, err := compiledSchemas()
	if err != nil {
		return err
	}
	schema, ok := schemas[shape]
	if !ok {
		return fmt.Errorf("unknown output shape %q", shape)
	}

	body := StripCodeFence(reply)
	if !json.Valid([]byte(body)) {
		return fmt.Errorf("%w: reply is not JSON", ErrMalformedOutput)
	}

	result, err := schema.Validate(gojsonschema.NewStringLoader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", ErrMalformedOutput, strings.Join(msgs, "; "))
	}

	if err := json.Unmarshal([]byte(body), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return nil
}

// checkAnswers drops questions whose correct answer is not one of the
// options.
func checkAnswers(qs []QuizQuestion) []QuizQuestion {
	return slices.DeleteFunc(qs, func(q QuizQuestion) bool {
		return !slices.Contains(q.Options, q.CorrectAnswer)
	})
}
