package syllabus_test

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/p-n-ai/pai-lingo/internal/syllabus"
)

func setupTestSyllabi(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	files := map[string]string{
		"beginner.yaml": `
ch-10:
  title: Past tense
  description: Regular verbs
ch-2:
  title: Articles
  description: a, an, the
  quiz:
    - question: "Pick the article: ___ apple"
      options: "a, an, the"
      correctAnswer: an
ch-1:
  title: Greetings
  description: Hello and goodbye
`,
		"grammar/deep.yml": `
path: grammarsDeepDive
chapters:
  - id: gdd-part1
    title: "Part 1: Tenses"
    description: Present and past
    children:
      - id: gdd-l1
        title: Present simple
        description: Habits
      - id: gdd-l2
        title: Present continuous
        description: Now
  - id: gdd-part2
    title: "Part 2: Empty"
    description: Coming soon
    children: []
`,
		"broken.yaml":  "chapters: [\n",
		"invalid.yaml": "chapters:\n  - title: no id\n",
		"notes.md":     "# not a syllabus",
	}
	for name, content := range files {
		p := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestLoadDir(t *testing.T) {
	docs, err := syllabus.LoadDir(setupTestSyllabi(t))
	if err != nil {
		t.Fatalf("LoadDir() error = %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("len(docs) = %d, want 2 (invalid files skipped)", len(docs))
	}

	flat, ok := docs["beginner"]
	if !ok {
		t.Fatal("beginner path not loaded from file name")
	}
	if got := ids(syllabus.FlattenLeaves(flat)); !slices.Equal(got, []string{"ch-1", "ch-2", "ch-10"}) {
		t.Errorf("beginner leaves = %v", got)
	}
	if opts := flat.Flat["ch-2"].Quiz[0].Options; !slices.Equal([]string(opts), []string{"a", "an", "the"}) {
		t.Errorf("options = %v, want split list", opts)
	}

	nested, ok := docs["grammarsDeepDive"]
	if !ok {
		t.Fatal("grammarsDeepDive path not taken from the path key")
	}
	if got := ids(syllabus.FlattenLeaves(nested)); !slices.Equal(got, []string{"gdd-l1", "gdd-l2", "gdd-part2"}) {
		t.Errorf("nested leaves = %v", got)
	}
}

func TestLoadDir_MissingDir(t *testing.T) {
	if _, err := syllabus.LoadDir(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("LoadDir() should fail for a missing directory")
	}
}

func TestSeed_KeepsExistingPaths(t *testing.T) {
	ctx := context.Background()
	store := syllabus.NewMemoryStore()
	edited := flatDoc("custom")
	if err := store.Put(ctx, "beginner", edited); err != nil {
		t.Fatal(err)
	}

	docs, err := syllabus.LoadDir(setupTestSyllabi(t))
	if err != nil {
		t.Fatalf("LoadDir() error = %v", err)
	}
	n, err := syllabus.Seed(ctx, store, docs)
	if err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	if n != 1 {
		t.Errorf("seeded = %d, want 1", n)
	}

	got, _ := store.Get(ctx, "beginner")
	if _, ok := got.Flat["custom"]; !ok {
		t.Error("Seed() overwrote an existing path")
	}
	paths, _ := store.Paths(ctx)
	if !slices.Equal(paths, []string{"beginner", "grammarsDeepDive"}) {
		t.Errorf("Paths() = %v", paths)
	}
}
