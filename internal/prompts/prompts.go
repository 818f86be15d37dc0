// Package prompts manages the text templates sent to the generative AI
// tools. Built-in defaults apply until an admin overrides a template.
package prompts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
)

// Template names.
const (
	SentenceImprover = "sentenceImprover"
	DailyPractice    = "dailyPractice"
	GrammarAssistant = "grammarAssistant"
	StoryGenerator   = "storyGenerator"
	AIVocabulary     = "aiVocabulary"
	GrammarGym       = "grammarGym"
	PronunciationLab = "pronunciationLab"
)

var (
	// ErrUnknownPrompt means the name is not one of the known templates.
	ErrUnknownPrompt = errors.New("unknown prompt")
	// ErrEmptyTemplate means an update carried no text.
	ErrEmptyTemplate = errors.New("prompt text is required")
)

var defaults = map[string]string{
	SentenceImprover: "You are an English language expert. Your task is to correct any grammatical errors and improve the user's sentence to make it sound more natural. Provide a brief explanation of the changes you made.\n\nUser's sentence: \"{sentence}\"",
	DailyPractice:    "You are a creative writing coach. Generate a single, engaging writing prompt for an English learner. Provide only the topic, nothing else. Do not add any introductory text like 'Here is a writing prompt:'. Just give the topic directly.",
	GrammarAssistant: "You are a friendly and helpful English grammar expert. Provide a clear, simple, and accurate explanation for the user's question with examples. User's question: \"{question}\"",
	StoryGenerator:   "You are a creative storyteller. Write a short, simple story (about 150 words) for an English learner based on the following topic: \"{topic}\"",
	AIVocabulary:     "You are an English vocabulary expert for Hindi speakers. Generate {count} vocabulary words for an English learner. Return the result as a valid JSON array of objects. Do not include any text outside of the JSON array. Each object in the array must have these exact keys: \"word\" (string), \"pronunciation\" (string, e.g., 'he-lo'), and \"hindiMeaning\" (a string with a short, simple meaning in Hindi).",
	GrammarGym:       "You are a language education expert. Generate {count} multiple-choice quiz questions about English grammar on the topic \"{topic}\".\nReturn the result as a valid JSON array of objects. Do not include any text outside of the JSON array.\nEach object in the array must have these exact keys: \"questionText\" (string), \"options\" (an array of 4 strings), and \"correctAnswer\" (a string that is an exact match of one of the options).",
	PronunciationLab: "You are a language education expert. Generate {count} simple English sentences suitable for pronunciation practice.\nReturn the result as a valid JSON array of strings. Do not include any text outside of the JSON array.",
}

// Defaults returns a copy of the built-in templates.
func Defaults() map[string]string {
	return maps.Clone(defaults)
}

// Names lists the known template names in sorted order.
func Names() []string {
	return slices.Sorted(maps.Keys(defaults))
}

// Store persists admin overrides.
type Store interface {
	// Overrides returns every stored template by name.
	Overrides(ctx context.Context) (map[string]string, error)
	// Set stores one template.
	Set(ctx context.Context, name, template string) error
}

// Service resolves templates from defaults and overrides.
type Service struct {
	store Store
}

// NewService creates a prompt service.
func NewService(store Store) *Service {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Service{store: store}
}

// All returns every known template with overrides applied over defaults.
// Stored names that are no longer known are ignored.
func (s *Service) All(ctx context.Context) (map[string]string, error) {
	overrides, err := s.store.Overrides(ctx)
	if err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}
	out := Defaults()
	for name, text := range overrides {
		if _, known := defaults[name]; known && strings.TrimSpace(text) != "" {
			out[name] = text
		}
	}
	return out, nil
}

// Get returns one resolved template.
func (s *Service) Get(ctx context.Context, name string) (string, error) {
	if _, ok := defaults[name]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownPrompt, name)
	}
	all, err := s.All(ctx)
	if err != nil {
		return "", err
	}
	return all[name], nil
}

// Update overrides one template.
func (s *Service) Update(ctx context.Context, name, template string) error {
	if _, ok := defaults[name]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPrompt, name)
	}
	if strings.TrimSpace(template) == "" {
		return ErrEmptyTemplate
	}
	if err := s.store.Set(ctx, name, template); err != nil {
		return fmt.Errorf("update prompt %s: %w", name, err)
	}
	slog.Info("prompt updated", "name", name, "length", len(template))
	return nil
}

// Render resolves the named template and fills its {placeholders}.
func (s *Service) Render(ctx context.Context, name string, vars map[string]string) (string, error) {
	tmpl, err := s.Get(ctx, name)
	if err != nil {
		return "", err
	}
	return Fill(tmpl, vars), nil
}

// Fill replaces each {key} in tmpl with vars[key]. Placeholders without a
// value are left as written.
func Fill(tmpl string, vars map[string]string) string {
	if len(vars) == 0 {
		return tmpl
	}
	pairs := make([]string, 0, len(vars)*2)
	for _, k := range slices.Sorted(maps.Keys(vars)) {
		pairs = append(pairs, "{"+k+"}", vars[k])
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}
