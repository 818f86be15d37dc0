package syllabus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// PostgresStore keeps one JSONB document per path in the syllabi table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed syllabus store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Get(ctx context.Context, path string) (Document, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT document FROM syllabi WHERE path = $1`, path).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, fmt.Errorf("path %s: %w", path, ErrNotFound)
		}
		return Document{}, fmt.Errorf("get syllabus: %w", err)
	}
	return ParseDocument(raw)
}

func (s *PostgresStore) Put(ctx context.Context, path string, doc Document) error {
	if path == "" {
		return fmt.Errorf("%w: path is empty", ErrInvalidDocument)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal syllabus: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err = s.pool.Exec(ctx,
		`INSERT INTO syllabi (path, document, updated_at)
		 VALUES ($1, $2::jsonb, NOW())
		 ON CONFLICT (path) DO UPDATE SET document = EXCLUDED.document, updated_at = NOW()`,
		path,
		string(data),
	)
	if err != nil {
		return fmt.Errorf("put syllabus: %w", err)
	}
	slog.Debug("syllabus saved", "path", path, "nested", doc.IsNested())
	return nil
}

// SaveChapter merges at the top level of the JSONB object, so concurrent
// saves of different chapters do not overwrite each other.
func (s *PostgresStore) SaveChapter(ctx context.Context, path, chapterID string, n Node) error {
	if path == "" {
		return fmt.Errorf("%w: path is empty", ErrInvalidDocument)
	}
	entry, err := Document{}.WithChapter(chapterID, n)
	if err != nil {
		return err
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal chapter: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cmd, err := s.pool.Exec(ctx,
		`INSERT INTO syllabi (path, document, updated_at)
		 VALUES ($1, $2::jsonb, NOW())
		 ON CONFLICT (path) DO UPDATE
		   SET document = syllabi.document || EXCLUDED.document, updated_at = NOW()
		   WHERE NOT (syllabi.document ? 'chapters')`,
		path,
		string(data),
	)
	if err != nil {
		return fmt.Errorf("save chapter: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNestedDocument
	}
	slog.Debug("syllabus chapter saved", "path", path, "chapter_id", chapterID)
	return nil
}

func (s *PostgresStore) DeleteChapter(ctx context.Context, path, chapterID string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var nested, present bool
	err := s.pool.QueryRow(ctx,
		`SELECT document ? 'chapters', document ? $2 FROM syllabi WHERE path = $1`,
		path, chapterID,
	).Scan(&nested, &present)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("path %s: %w", path, ErrNotFound)
		}
		return fmt.Errorf("delete chapter: %w", err)
	}
	if nested {
		return ErrNestedDocument
	}
	if !present {
		return fmt.Errorf("chapter %s: %w", chapterID, ErrNotFound)
	}

	_, err = s.pool.Exec(ctx,
		`UPDATE syllabi SET document = document - $2::text, updated_at = NOW() WHERE path = $1`,
		path, chapterID,
	)
	if err != nil {
		return fmt.Errorf("delete chapter: %w", err)
	}
	return nil
}

func (s *PostgresStore) Paths(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, `SELECT path FROM syllabi`)
	if err != nil {
		return nil, fmt.Errorf("list syllabi: %w", err)
	}
	paths, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan syllabi: %w", err)
	}
	SortNatural(paths)
	return paths, nil
}
