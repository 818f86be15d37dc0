package content

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store persists videos.
type Store interface {
	Insert(ctx context.Context, v Video) error
	List(ctx context.Context) ([]Video, error)
	Delete(ctx context.Context, id string) error
}

// Catalogue validates and assigns ids before handing videos to a Store.
type Catalogue struct {
	store Store
	now   func() time.Time
}

// NewCatalogue creates a catalogue over store.
func NewCatalogue(store Store) *Catalogue {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Catalogue{store: store, now: time.Now}
}

// Add stores a new video and returns it with its id.
func (c *Catalogue) Add(ctx context.Context, title, youtubeURL string) (Video, error) {
	title = strings.TrimSpace(title)
	youtubeURL = strings.TrimSpace(youtubeURL)
	if title == "" || youtubeURL == "" {
		return Video{}, ErrInvalidVideo
	}

	v := Video{
		ID:         uuid.NewString(),
		Title:      title,
		YouTubeURL: youtubeURL,
		CreatedAt:  c.now().UTC(),
	}
	if err := c.store.Insert(ctx, v); err != nil {
		return Video{}, fmt.Errorf("add video: %w", err)
	}
	slog.Info("video added", "video_id", v.ID, "title", v.Title)
	return v, nil
}

// List returns all videos, newest first.
func (c *Catalogue) List(ctx context.Context) ([]Video, error) {
	videos, err := c.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	return videos, nil
}

// Delete removes a video. Completion credit already awarded is kept.
func (c *Catalogue) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("delete video: %w", ErrNotFound)
	}
	if err := c.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete video: %w", err)
	}
	slog.Info("video deleted", "video_id", id)
	return nil
}

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	videos map[string]Video
	mu     sync.RWMutex
}

// NewMemoryStore creates a new in-memory video store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{videos: make(map[string]Video)}
}

func (s *MemoryStore) Insert(_ context.Context, v Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.videos[v.ID]; ok {
		return fmt.Errorf("video %s already exists", v.ID)
	}
	s.videos[v.ID] = v
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]Video, error) {
	s.mu.RLock()
	out := make([]Video, 0, len(s.videos))
	for _, v := range s.videos {
		out = append(out, v)
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b Video) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.videos[id]; !ok {
		return fmt.Errorf("video %s: %w", id, ErrNotFound)
	}
	delete(s.videos, id)
	return nil
}
