package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/p-n-ai/pai-lingo/internal/keyvault"
	"github.com/p-n-ai/pai-lingo/internal/prompts"
)

// ErrUnknownTool means the tool name is not one of the learning tools.
var ErrUnknownTool = errors.New("unknown AI tool")

// ErrMissingInput means a tool was called without a variable its prompt
// needs.
var ErrMissingInput = errors.New("missing tool input")

// maxCount bounds how many items a structured tool may ask for.
const maxCount = 50

// Tool binds a prompt template to the provider, key slot and model that
// run it.
type Tool struct {
	Name     string   `json:"name"`
	Provider string   `json:"provider"`
	Slot     string   `json:"slot"`
	Model    string   `json:"model"`
	Inputs   []string `json:"inputs,omitempty"`
	Shape    string   `json:"shape,omitempty"`
	// DefaultCount is used when a structured tool is called without a count.
	DefaultCount int `json:"defaultCount,omitempty"`
}

var toolset = []Tool{
	{Name: prompts.SentenceImprover, Provider: ProviderOpenRouter, Slot: keyvault.OpenRouterWriting, Model: defaultOpenRouterModel, Inputs: []string{"sentence"}},
	{Name: prompts.DailyPractice, Provider: ProviderOpenRouter, Slot: keyvault.OpenRouterWriting, Model: defaultOpenRouterModel},
	{Name: prompts.GrammarAssistant, Provider: ProviderOpenRouter, Slot: keyvault.OpenRouterCreative, Model: defaultOpenRouterModel, Inputs: []string{"question"}},
	{Name: prompts.StoryGenerator, Provider: ProviderGemini, Slot: keyvault.GeminiGym, Model: "gemini-1.5-flash-latest", Inputs: []string{"topic"}},
	{Name: prompts.AIVocabulary, Provider: ProviderGemini, Slot: keyvault.GeminiQuiz, Model: defaultGeminiModel, Shape: ShapeVocabulary, DefaultCount: 20},
	{Name: prompts.GrammarGym, Provider: ProviderGemini, Slot: keyvault.GeminiGym, Model: defaultGeminiModel, Inputs: []string{"topic"}, Shape: ShapeQuiz, DefaultCount: 20},
	{Name: prompts.PronunciationLab, Provider: ProviderGemini, Slot: keyvault.GeminiSentences, Model: defaultGeminiModel, Shape: ShapeSentences, DefaultCount: 10},
}

// Tools lists the learning tools.
func Tools() []Tool {
	return slices.Clone(toolset)
}

// LookupTool finds a tool by name.
func LookupTool(name string) (Tool, bool) {
	i := slices.IndexFunc(toolset, func(t Tool) bool { return t.Name == name })
	if i < 0 {
		return Tool{}, false
	}
	return toolset[i], true
}

// Generator produces text for a prompt. *Router satisfies it.
type Generator interface {
	Generate(ctx context.Context, provider, apiKey, model, prompt string) (string, error)
}

// Templates renders named prompt templates. *prompts.Service satisfies it.
type Templates interface {
	Render(ctx context.Context, name string, vars map[string]string) (string, error)
}

// Keys resolves a learner's key for a slot. *keyvault.Vault satisfies it.
type Keys interface {
	Key(ctx context.Context, learnerID, slot string) (string, error)
}

// Toolkit runs the learning tools on behalf of a learner.
type Toolkit struct {
	gen       Generator
	templates Templates
	keys      Keys
	platform  map[string]string
}

// ToolkitOption configures a Toolkit.
type ToolkitOption func(*Toolkit)

// WithPlatformKeys sets per-provider keys used when the learner has not
// stored one for the tool's slot.
func WithPlatformKeys(keys map[string]string) ToolkitOption {
	return func(t *Toolkit) {
		for provider, key := range keys {
			if key != "" {
				t.platform[provider] = key
			}
		}
	}
}

// NewToolkit creates a toolkit.
func NewToolkit(gen Generator, templates Templates, keys Keys, opts ...ToolkitOption) *Toolkit {
	t := &Toolkit{gen: gen, templates: templates, keys: keys, platform: make(map[string]string)}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Run renders the tool's prompt with vars, sends it with the learner's key
// and returns the raw reply.
func (t *Toolkit) Run(ctx context.Context, learnerID, name string, vars map[string]string) (string, error) {
	tool, ok := LookupTool(name)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
	for _, in := range tool.Inputs {
		if strings.TrimSpace(vars[in]) == "" {
			return "", fmt.Errorf("%w: %s needs %q", ErrMissingInput, name, in)
		}
	}
	if tool.Shape != "" {
		vars = withCount(vars, tool.DefaultCount)
	}

	key, err := t.key(ctx, learnerID, tool)
	if err != nil {
		return "", err
	}

	prompt, err := t.templates.Render(ctx, tool.Name, vars)
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}

	reply, err := t.gen.Generate(ctx, tool.Provider, key, tool.Model, prompt)
	if err != nil {
		return "", err
	}
	slog.Debug("AI tool completed", "tool", name, "learner_id", learnerID)
	return reply, nil
}

func (t *Toolkit) key(ctx context.Context, learnerID string, tool Tool) (string, error) {
	key, err := t.keys.Key(ctx, learnerID, tool.Slot)
	switch {
	case err == nil:
		return key, nil
	case errors.Is(err, keyvault.ErrNoKey):
		if key, ok := t.platform[tool.Provider]; ok {
			return key, nil
		}
		return "", fmt.Errorf("%s: %w", tool.Slot, ErrMissingKey)
	default:
		return "", fmt.Errorf("resolve key: %w", err)
	}
}

// Vocabulary asks for count vocabulary words.
func (t *Toolkit) Vocabulary(ctx context.Context, learnerID string, count int) ([]VocabularyWord, error) {
	var words []VocabularyWord
	if err := t.structured(ctx, learnerID, prompts.AIVocabulary, countVars(count, nil), &words); err != nil {
		return nil, err
	}
	return words, nil
}

// GrammarQuiz asks for count questions on topic. Questions whose answer is
// not among their options are discarded.
func (t *Toolkit) GrammarQuiz(ctx context.Context, learnerID string, count int, topic string) ([]QuizQuestion, error) {
	var qs []QuizQuestion
	vars := countVars(count, map[string]string{"topic": topic})
	if err := t.structured(ctx, learnerID, prompts.GrammarGym, vars, &qs); err != nil {
		return nil, err
	}
	valid := checkAnswers(qs)
	if dropped := len(qs) - len(valid); dropped > 0 {
		slog.Warn("discarded quiz questions with no matching answer", "learner_id", learnerID, "dropped", dropped)
	}
	return valid, nil
}

// PronunciationSentences asks for count practice sentences.
func (t *Toolkit) PronunciationSentences(ctx context.Context, learnerID string, count int) ([]string, error) {
	var out []string
	if err := t.structured(ctx, learnerID, prompts.PronunciationLab, countVars(count, nil), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Structured runs a structured tool and returns the decoded value.
func (t *Toolkit) Structured(ctx context.Context, learnerID, name string, vars map[string]string) (any, error) {
	tool, ok := LookupTool(name)
	if !ok || tool.Shape == "" {
		return nil, fmt.Errorf("%w: %q is not structured", ErrUnknownTool, name)
	}
	count, _ := strconv.Atoi(vars["count"])
	switch tool.Shape {
	case ShapeVocabulary:
		return t.Vocabulary(ctx, learnerID, count)
	case ShapeQuiz:
		return t.GrammarQuiz(ctx, learnerID, count, vars["topic"])
	default:
		return t.PronunciationSentences(ctx, learnerID, count)
	}
}

func (t *Toolkit) structured(ctx context.Context, learnerID, name string, vars map[string]string, v any) error {
	tool, _ := LookupTool(name)
	reply, err := t.Run(ctx, learnerID, name, vars)
	if err != nil {
		return err
	}
	if err := DecodeStructured(reply, tool.Shape, v); err != nil {
		slog.Warn("AI tool returned malformed output", "tool", name, "learner_id", learnerID, "error", err)
		return err
	}
	return nil
}

func countVars(count int, vars map[string]string) map[string]string {
	if vars == nil {
		vars = make(map[string]string, 1)
	}
	if count > 0 {
		vars["count"] = strconv.Itoa(min(count, maxCount))
	}
	return vars
}

// withCount fills in a missing or invalid count and clamps it.
func withCount(vars map[string]string, def int) map[string]string {
	out := make(map[string]string, len(vars)+1)
	for k, v := range vars {
		out[k] = v
	}
	n, err := strconv.Atoi(vars["count"])
	if err != nil || n <= 0 {
		n = def
	}
	out["count"] = strconv.Itoa(min(n, maxCount))
	return out
}
