package syllabus

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// Store persists syllabus documents by path.
type Store interface {
	// Get returns the document for path or ErrNotFound.
	Get(ctx context.Context, path string) (Document, error)
	// Put replaces the whole document for path.
	Put(ctx context.Context, path string, doc Document) error
	// SaveChapter merges one chapter into a flat document, creating the
	// document when missing. ErrNestedDocument for nested documents.
	SaveChapter(ctx context.Context, path, chapterID string, n Node) error
	// DeleteChapter removes one chapter from a flat document.
	DeleteChapter(ctx context.Context, path, chapterID string) error
	// Paths lists stored paths in natural order.
	Paths(ctx context.Context) ([]string, error)
}

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	docs map[string]Document
	mu   sync.RWMutex
}

// NewMemoryStore creates a new in-memory syllabus store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string]Document),
	}
}

func (s *MemoryStore) Get(_ context.Context, path string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[path]
	if !ok {
		return Document{}, fmt.Errorf("path %s: %w", path, ErrNotFound)
	}
	return doc.Clone(), nil
}

func (s *MemoryStore) Put(_ context.Context, path string, doc Document) error {
	if path == "" {
		return fmt.Errorf("%w: path is empty", ErrInvalidDocument)
	}
	s.mu.Lock()
	s.docs[path] = doc.Clone()
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) SaveChapter(_ context.Context, path, chapterID string, n Node) error {
	if path == "" {
		return fmt.Errorf("%w: path is empty", ErrInvalidDocument)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.docs[path].WithChapter(chapterID, n)
	if err != nil {
		return err
	}
	s.docs[path] = next
	return nil
}

func (s *MemoryStore) DeleteChapter(_ context.Context, path, chapterID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[path]
	if !ok {
		return fmt.Errorf("path %s: %w", path, ErrNotFound)
	}
	next, err := doc.WithoutChapter(chapterID)
	if err != nil {
		return err
	}
	s.docs[path] = next
	return nil
}

func (s *MemoryStore) Paths(_ context.Context) ([]string, error) {
	s.mu.RLock()
	paths := make([]string, 0, len(s.docs))
	for p := range s.docs {
		paths = append(paths, p)
	}
	s.mu.RUnlock()

	SortNatural(paths)
	return slices.Clip(paths), nil
}
