// Package syllabus models learning-path documents and projects a learner's
// completion state onto them.
//
// A document is either flat (chapter id -> chapter, ordered by a
// numeric-aware sort of the ids) or nested (an ordered "chapters" list of
// parts, sections and lessons). Leaves are the unit of completion; internal
// nodes take their status from their children.
package syllabus

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound means no document exists for the path, or no chapter with the id.
	ErrNotFound = errors.New("syllabus not found")
	// ErrInvalidDocument means a document failed structural validation.
	ErrInvalidDocument = errors.New("invalid syllabus document")
	// ErrNestedDocument means a flat-only operation targeted a nested document.
	ErrNestedDocument = errors.New("syllabus document is nested")
)

// Status is the derived progress state of a node.
type Status string

const (
	StatusLocked     Status = "locked"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Question is one multiple-choice quiz item.
type Question struct {
	Question      string  `json:"question"`
	Options       Options `json:"options"`
	CorrectAnswer string  `json:"correctAnswer"`
}

// Options is a list of answer choices. It decodes from either a JSON array
// or a comma-separated string, trimming each entry.
type Options []string

func (o *Options) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*o = list
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("options must be a list or a comma-separated string")
	}
	*o = SplitOptions(s)
	return nil
}

// MarshalJSON always writes an array, never null.
func (o Options) MarshalJSON() ([]byte, error) {
	if o == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(o))
}

// SplitOptions splits comma-separated answer choices.
func SplitOptions(s string) Options {
	if strings.TrimSpace(s) == "" {
		return Options{}
	}
	parts := strings.Split(s, ",")
	out := make(Options, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

// Node is a syllabus entry. A node without children is a lesson (leaf);
// an empty children list is treated the same as an absent one.
type Node struct {
	ID          string     `json:"id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Content     string     `json:"content,omitempty"`
	Quiz        []Question `json:"quiz,omitempty"`
	Children    []Node     `json:"children,omitempty"`
}

// IsLeaf reports whether the node is a completable lesson.
func (n Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// AnnotatedNode is a node with its derived status. It is never persisted.
type AnnotatedNode struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Status      Status          `json:"status"`
	Children    []AnnotatedNode `json:"children,omitempty"`
}
