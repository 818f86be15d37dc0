package syllabus

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
)

// nestedKey marks a nested document.
const nestedKey = "chapters"

// Document is one learning path. A non-nil Chapters makes it nested and
// Flat is ignored; otherwise Flat holds the chapters keyed by id.
type Document struct {
	Chapters []Node
	Flat     map[string]Node
}

// IsNested reports whether the document carries an ordered chapters tree.
func (d Document) IsNested() bool {
	return d.Chapters != nil
}

// IsEmpty reports whether the document has no content at all.
func (d Document) IsEmpty() bool {
	return len(d.Chapters) == 0 && len(d.Flat) == 0
}

// ParseDocument decodes the persisted JSON shape of a syllabus. An object
// with a "chapters" array is nested; any other object is flat, keyed by
// chapter id. Flat entries that are not chapter objects are skipped.
// Nodes repeating an ancestor id are dropped.
func ParseDocument(data []byte) (Document, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if top == nil {
		return Document{}, fmt.Errorf("%w: document is null", ErrInvalidDocument)
	}

	if raw, ok := top[nestedKey]; ok && isJSONArray(raw) {
		var nodes []Node
		if err := json.Unmarshal(raw, &nodes); err != nil {
			return Document{}, fmt.Errorf("%w: chapters: %v", ErrInvalidDocument, err)
		}
		if nodes == nil {
			nodes = []Node{}
		}
		return Document{Chapters: pruneRepeated(nodes, nil)}, nil
	}

	flat := make(map[string]Node, len(top))
	for id, raw := range top {
		var n Node
		if !isJSONObject(raw) {
			slog.Warn("skipping non-object syllabus entry", "chapter_id", id)
			continue
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			slog.Warn("skipping malformed syllabus entry", "chapter_id", id, "error", err)
			continue
		}
		n.ID = id
		// Flat chapters are lessons; nested children under a flat key are ignored.
		n.Children = nil
		flat[id] = n
	}
	return Document{Flat: flat}, nil
}

// MarshalJSON writes the persisted shape read by ParseDocument.
func (d Document) MarshalJSON() ([]byte, error) {
	if d.IsNested() {
		return json.Marshal(map[string][]Node{nestedKey: d.Chapters})
	}
	out := make(map[string]Node, len(d.Flat))
	for id, n := range d.Flat {
		n.ID = ""
		n.Children = nil
		out[id] = n
	}
	return json.Marshal(out)
}

// Clone returns a deep copy.
func (d Document) Clone() Document {
	out := Document{}
	if d.Chapters != nil {
		out.Chapters = cloneNodes(d.Chapters)
	}
	if d.Flat != nil {
		out.Flat = make(map[string]Node, len(d.Flat))
		for id, n := range d.Flat {
			out.Flat[id] = cloneNode(n)
		}
	}
	return out
}

// WithChapter returns a copy of a flat document with n stored under id.
func (d Document) WithChapter(id string, n Node) (Document, error) {
	if d.IsNested() {
		return Document{}, ErrNestedDocument
	}
	if id == "" || id == nestedKey {
		return Document{}, fmt.Errorf("%w: chapter id %q", ErrInvalidDocument, id)
	}
	out := d.Clone()
	if out.Flat == nil {
		out.Flat = map[string]Node{}
	}
	n = cloneNode(n)
	n.ID = id
	n.Children = nil
	out.Flat[id] = n
	return out, nil
}

// WithoutChapter returns a copy of a flat document with id removed.
func (d Document) WithoutChapter(id string) (Document, error) {
	if d.IsNested() {
		return Document{}, ErrNestedDocument
	}
	if _, ok := d.Flat[id]; !ok {
		return Document{}, fmt.Errorf("chapter %s: %w", id, ErrNotFound)
	}
	out := d.Clone()
	delete(out.Flat, id)
	return out, nil
}

// pruneRepeated drops any node whose id already names one of its ancestors.
func pruneRepeated(nodes []Node, ancestors map[string]bool) []Node {
	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		if n.ID != "" && ancestors[n.ID] {
			slog.Warn("dropping syllabus node that repeats an ancestor id", "node_id", n.ID)
			continue
		}
		if len(n.Children) > 0 {
			next := maps.Clone(ancestors)
			if next == nil {
				next = map[string]bool{}
			}
			if n.ID != "" {
				next[n.ID] = true
			}
			n.Children = pruneRepeated(n.Children, next)
		}
		out = append(out, n)
	}
	return out
}

func cloneNodes(nodes []Node) []Node {
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = cloneNode(n)
	}
	return out
}

func cloneNode(n Node) Node {
	if n.Quiz != nil {
		quiz := make([]Question, len(n.Quiz))
		for i, q := range n.Quiz {
			q.Options = append(Options(nil), q.Options...)
			quiz[i] = q
		}
		n.Quiz = quiz
	}
	if n.Children != nil {
		n.Children = cloneNodes(n.Children)
	}
	return n
}

func isJSONArray(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}

func isJSONObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}
