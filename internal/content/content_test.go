package content_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/p-n-ai/pai-lingo/internal/content"
)

func TestCatalogue_AddListDelete(t *testing.T) {
	ctx := context.Background()
	cat := content.NewCatalogue(content.NewMemoryStore())

	first, err := cat.Add(ctx, "  Greetings ", "https://www.youtube.com/watch?v=abc123")
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if _, err := uuid.Parse(first.ID); err != nil {
		t.Errorf("ID %q is not a UUID: %v", first.ID, err)
	}
	if first.Title != "Greetings" {
		t.Errorf("Title = %q, want trimmed", first.Title)
	}

	time.Sleep(time.Millisecond)
	second, err := cat.Add(ctx, "Numbers", "https://youtu.be/xyz789")
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	videos, err := cat.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(videos) != 2 || videos[0].ID != second.ID {
		t.Fatalf("List() = %v, want newest first", videos)
	}

	if err := cat.Delete(ctx, first.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := cat.Delete(ctx, first.ID); !errors.Is(err, content.ErrNotFound) {
		t.Errorf("Delete(again) error = %v, want ErrNotFound", err)
	}
	if err := cat.Delete(ctx, ""); !errors.Is(err, content.ErrNotFound) {
		t.Errorf("Delete(empty) error = %v, want ErrNotFound", err)
	}
}

func TestCatalogue_AddRequiresFields(t *testing.T) {
	cat := content.NewCatalogue(nil)
	tests := []struct{ title, url string }{
		{"", "https://youtu.be/x"},
		{"Title", ""},
		{"  ", "  "},
	}
	for _, tt := range tests {
		if _, err := cat.Add(context.Background(), tt.title, tt.url); !errors.Is(err, content.ErrInvalidVideo) {
			t.Errorf("Add(%q, %q) error = %v, want ErrInvalidVideo", tt.title, tt.url, err)
		}
	}
}

func TestVideo_YouTubeID(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://youtube.com/watch?v=abc&t=30", "abc"},
		{"https://m.youtube.com/watch?v=mob", "mob"},
		{"https://youtu.be/short1", "short1"},
		{"https://www.youtube.com/embed/emb2", "emb2"},
		{"https://vimeo.com/123", ""},
		{"not a url at all", ""},
		{"", ""},
	}
	for _, tt := range tests {
		v := content.Video{YouTubeURL: tt.url}
		if got := v.YouTubeID(); got != tt.want {
			t.Errorf("YouTubeID(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestVideo_ThumbnailAndEmbed(t *testing.T) {
	v := content.Video{YouTubeURL: "https://youtu.be/abc"}
	if got := v.ThumbnailURL(); got != "https://img.youtube.com/vi/abc/hqdefault.jpg" {
		t.Errorf("ThumbnailURL() = %q", got)
	}
	if got := v.EmbedURL(); got != "https://www.youtube.com/embed/abc" {
		t.Errorf("EmbedURL() = %q", got)
	}

	none := content.Video{YouTubeURL: "https://example.com"}
	if none.ThumbnailURL() != "" || none.EmbedURL() != "" {
		t.Error("non-YouTube links should have no thumbnail or embed URL")
	}
}

func TestNewPostgresStore_NilPool(t *testing.T) {
	if _, err := content.NewPostgresStore(nil); err == nil {
		t.Fatal("expected error for nil pool")
	}
}
