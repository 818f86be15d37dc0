package syllabus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// CompletionReader supplies a learner's completed lesson ids for a path.
// A learner without a profile must yield an empty set, not an error.
type CompletionReader interface {
	CompletedChapters(ctx context.Context, learnerID, path string) (map[string]bool, error)
}

// Projector combines stored syllabi with learner progress.
type Projector struct {
	store     Store
	completed CompletionReader
}

// NewProjector creates a projector.
func NewProjector(store Store, completed CompletionReader) *Projector {
	return &Projector{store: store, completed: completed}
}

// LearningPath returns the lessons of path in order, annotated for the
// learner. A missing or malformed document yields an empty list.
func (p *Projector) LearningPath(ctx context.Context, learnerID, path string) ([]AnnotatedNode, error) {
	doc, completed, err := p.load(ctx, learnerID, path)
	if err != nil {
		return nil, err
	}
	return ComputeLinearStatus(FlattenLeaves(doc), completed), nil
}

// Tree returns the annotated node tree of path. Lesson statuses follow
// the linear rule over FlattenLeaves order and internal nodes derive theirs
// from their children. Flat documents yield a single level of lessons.
func (p *Projector) Tree(ctx context.Context, learnerID, path string) ([]AnnotatedNode, error) {
	doc, completed, err := p.load(ctx, learnerID, path)
	if err != nil {
		return nil, err
	}
	linear := ComputeLinearStatus(FlattenLeaves(doc), completed)
	if !doc.IsNested() {
		return linear, nil
	}
	return BuildHierarchy(doc.Chapters, StatusMap(linear)), nil
}

// LessonView is a lesson with its neighbours in learning order.
type LessonView struct {
	Lesson   Node  `json:"lesson"`
	Previous *Node `json:"previous,omitempty"`
	Next     *Node `json:"next,omitempty"`
}

// Lesson returns the node with chapterID and its neighbouring lessons.
func (p *Projector) Lesson(ctx context.Context, path, chapterID string) (LessonView, error) {
	doc, err := p.store.Get(ctx, path)
	if err != nil {
		return LessonView{}, fmt.Errorf("lesson %s/%s: %w", path, chapterID, err)
	}
	n, ok := FindNode(doc, chapterID)
	if !ok {
		return LessonView{}, fmt.Errorf("lesson %s/%s: %w", path, chapterID, ErrNotFound)
	}
	if n.ID == "" {
		n.ID = chapterID
	}
	prev, next := Neighbours(doc, chapterID)
	return LessonView{Lesson: n, Previous: prev, Next: next}, nil
}

// load fetches the document and the completed set concurrently.
func (p *Projector) load(ctx context.Context, learnerID, path string) (Document, map[string]bool, error) {
	var (
		doc       Document
		completed map[string]bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d, err := p.store.Get(gctx, path)
		switch {
		case err == nil:
			doc = d
		case errors.Is(err, ErrNotFound):
			slog.Debug("no syllabus for path", "path", path)
		case errors.Is(err, ErrInvalidDocument):
			slog.Warn("malformed syllabus, projecting empty", "path", path, "error", err)
		default:
			return fmt.Errorf("load syllabus %s: %w", path, err)
		}
		return nil
	})
	g.Go(func() error {
		c, err := p.completed.CompletedChapters(gctx, learnerID, path)
		if err != nil {
			return fmt.Errorf("load progress: %w", err)
		}
		completed = c
		return nil
	})
	if err := g.Wait(); err != nil {
		return Document{}, nil, err
	}
	return doc, completed, nil
}
