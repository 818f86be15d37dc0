package syllabus

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

const cacheKeyPrefix = "syllabus:"

// Cache is the key/value surface CachedStore needs; *cache.Cache satisfies it.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// CachedStore is a read-through cache in front of another Store. Writes go
// to the backing store first and then invalidate the cached document. Cache
// failures are logged and never fail the request.
type CachedStore struct {
	Store
	cache Cache
	ttl   time.Duration
}

// NewCachedStore wraps store with a read-through cache.
func NewCachedStore(store Store, cache Cache, ttl time.Duration) *CachedStore {
	return &CachedStore{Store: store, cache: cache, ttl: ttl}
}

func (s *CachedStore) Get(ctx context.Context, path string) (Document, error) {
	key := cacheKeyPrefix + path

	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		slog.Warn("syllabus cache read failed", "path", path, "error", err)
	}
	if ok {
		doc, err := ParseDocument(raw)
		if err == nil {
			return doc, nil
		}
		slog.Warn("discarding unreadable cached syllabus", "path", path, "error", err)
	}

	doc, err := s.Store.Get(ctx, path)
	if err != nil {
		return Document{}, err
	}

	data, err := json.Marshal(doc)
	if err == nil {
		err = s.cache.Set(ctx, key, data, s.ttl)
	}
	if err != nil {
		slog.Warn("syllabus cache fill failed", "path", path, "error", err)
	}
	return doc, nil
}

func (s *CachedStore) Put(ctx context.Context, path string, doc Document) error {
	if err := s.Store.Put(ctx, path, doc); err != nil {
		return err
	}
	s.invalidate(ctx, path)
	return nil
}

func (s *CachedStore) SaveChapter(ctx context.Context, path, chapterID string, n Node) error {
	if err := s.Store.SaveChapter(ctx, path, chapterID, n); err != nil {
		return err
	}
	s.invalidate(ctx, path)
	return nil
}

func (s *CachedStore) DeleteChapter(ctx context.Context, path, chapterID string) error {
	if err := s.Store.DeleteChapter(ctx, path, chapterID); err != nil {
		return err
	}
	s.invalidate(ctx, path)
	return nil
}

func (s *CachedStore) invalidate(ctx context.Context, path string) {
	if err := s.cache.Delete(ctx, cacheKeyPrefix+path); err != nil {
		slog.Warn("syllabus cache invalidation failed", "path", path, "error", err)
	}
}
