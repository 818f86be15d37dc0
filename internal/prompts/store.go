package prompts

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	mu        sync.RWMutex
	templates map[string]string
}

// NewMemoryStore creates a new in-memory prompt store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{templates: make(map[string]string)}
}

func (s *MemoryStore) Overrides(_ context.Context) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.templates), nil
}

func (s *MemoryStore) Set(_ context.Context, name, template string) error {
	s.mu.Lock()
	s.templates[name] = template
	s.mu.Unlock()
	return nil
}

// PostgresStore keeps overrides in the ai_prompts table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed prompt store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Overrides(ctx context.Context) (map[string]string, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, `SELECT name, template FROM ai_prompts`)
	if err != nil {
		return nil, fmt.Errorf("query prompts: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var name, template string
		if err := rows.Scan(&name, &template); err != nil {
			return nil, fmt.Errorf("scan prompt: %w", err)
		}
		out[name] = template
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate prompts: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Set(ctx context.Context, name, template string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO ai_prompts (name, template, updated_at) VALUES ($1, $2, NOW())
		 ON CONFLICT (name) DO UPDATE SET template = EXCLUDED.template, updated_at = NOW()`,
		name, template,
	)
	if err != nil {
		return fmt.Errorf("upsert prompt: %w", err)
	}
	return nil
}
