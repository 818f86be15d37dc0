package syllabus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadDir reads every .yaml/.yml file under dir as a syllabus document.
// The path is the file's "path" key, or its base name without extension.
// Files that fail to parse or validate are skipped with a warning.
func LoadDir(dir string) (map[string]Document, error) {
	docs := make(map[string]Document)

	err := filepath.WalkDir(dir, func(file string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(file)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		path, doc, err := loadFile(file)
		if err != nil {
			slog.Warn("skipping invalid syllabus YAML", "file", file, "error", err)
			return nil
		}
		if _, dup := docs[path]; dup {
			slog.Warn("duplicate syllabus path, keeping last", "path", path, "file", file)
		}
		docs[path] = doc
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading syllabi: %w", err)
	}
	return docs, nil
}

func loadFile(file string) (string, Document, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return "", Document{}, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return "", Document{}, err
	}
	if raw == nil {
		return "", Document{}, fmt.Errorf("empty document")
	}

	path := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	if p, ok := raw["path"].(string); ok && p != "" {
		path = p
	}
	delete(raw, "path")

	asJSON, err := json.Marshal(raw)
	if err != nil {
		return "", Document{}, fmt.Errorf("convert to JSON: %w", err)
	}
	doc, err := ParseValid(asJSON)
	if err != nil {
		return "", Document{}, err
	}
	return path, doc, nil
}

// Seed stores every loaded document whose path is not already present, so
// admin edits made after the first start are never overwritten.
func Seed(ctx context.Context, store Store, docs map[string]Document) (int, error) {
	existing, err := store.Paths(ctx)
	if err != nil {
		return 0, fmt.Errorf("seed syllabi: %w", err)
	}
	have := make(map[string]bool, len(existing))
	for _, p := range existing {
		have[p] = true
	}

	seeded := 0
	for path, doc := range docs {
		if have[path] {
			continue
		}
		if err := store.Put(ctx, path, doc); err != nil {
			return seeded, fmt.Errorf("seed %s: %w", path, err)
		}
		seeded++
	}
	slog.Info("syllabi seeded", "loaded", len(docs), "seeded", seeded)
	return seeded, nil
}
