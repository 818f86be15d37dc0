package syllabus_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/p-n-ai/pai-lingo/internal/platform/database"
	"github.com/p-n-ai/pai-lingo/internal/syllabus"
)

func TestPostgresStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx := context.Background()
	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("lingo"),
		postgres.WithUsername("lingo"),
		postgres.WithPassword("lingo"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	url, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("ConnectionString() error = %v", err)
	}
	db, err := database.New(ctx, url, 4, 1)
	if err != nil {
		t.Fatalf("database.New() error = %v", err)
	}
	t.Cleanup(db.Close)
	if err := database.Migrate(ctx, db.Pool); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	store, err := syllabus.NewPostgresStore(db.Pool)
	if err != nil {
		t.Fatalf("NewPostgresStore() error = %v", err)
	}

	// Flat chapters merge one at a time.
	for _, id := range []string{"ch-10", "ch-2", "ch-1"} {
		if err := store.SaveChapter(ctx, "beginner", id, syllabus.Node{Title: id}); err != nil {
			t.Fatalf("SaveChapter(%s) error = %v", id, err)
		}
	}
	doc, err := store.Get(ctx, "beginner")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got := ids(syllabus.FlattenLeaves(doc)); !slices.Equal(got, []string{"ch-1", "ch-2", "ch-10"}) {
		t.Errorf("leaves = %v", got)
	}

	if err := store.DeleteChapter(ctx, "beginner", "ch-2"); err != nil {
		t.Fatalf("DeleteChapter() error = %v", err)
	}
	if err := store.DeleteChapter(ctx, "beginner", "ch-2"); !errors.Is(err, syllabus.ErrNotFound) {
		t.Errorf("DeleteChapter(again) error = %v, want ErrNotFound", err)
	}

	if err := store.Put(ctx, "grammar", nestedDoc()); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := store.SaveChapter(ctx, "grammar", "x", syllabus.Node{Title: "x"}); !errors.Is(err, syllabus.ErrNestedDocument) {
		t.Errorf("SaveChapter(nested) error = %v, want ErrNestedDocument", err)
	}
	nested, err := store.Get(ctx, "grammar")
	if err != nil {
		t.Fatalf("Get(nested) error = %v", err)
	}
	if got := ids(syllabus.FlattenLeaves(nested)); !slices.Equal(got, []string{"l1", "l2", "l3", "l4"}) {
		t.Errorf("nested leaves = %v", got)
	}

	paths, err := store.Paths(ctx)
	if err != nil {
		t.Fatalf("Paths() error = %v", err)
	}
	if !slices.Equal(paths, []string{"beginner", "grammar"}) {
		t.Errorf("Paths() = %v", paths)
	}

	if _, err := store.Get(ctx, "nope"); !errors.Is(err, syllabus.ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
}
