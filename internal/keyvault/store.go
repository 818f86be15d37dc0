package keyvault

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	mu   sync.RWMutex
	keys map[string]map[string][]byte
}

// NewMemoryStore creates a new in-memory key store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{keys: make(map[string]map[string][]byte)}
}

func (s *MemoryStore) Sealed(_ context.Context, learnerID string) (map[string][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]byte, len(s.keys[learnerID]))
	for slot, b := range s.keys[learnerID] {
		out[slot] = slices.Clone(b)
	}
	return out, nil
}

func (s *MemoryStore) PutSealed(_ context.Context, learnerID string, sealed map[string][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.keys[learnerID]
	if current == nil {
		current = make(map[string][]byte, len(sealed))
		s.keys[learnerID] = current
	}
	for slot, b := range maps.All(sealed) {
		current[slot] = slices.Clone(b)
	}
	return nil
}

// PostgresStore keeps sealed keys in the learner_api_keys table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed key store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Sealed(ctx context.Context, learnerID string) (map[string][]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT provider, sealed FROM learner_api_keys WHERE learner_id = $1`, learnerID)
	if err != nil {
		return nil, fmt.Errorf("query api keys: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]byte)
	for rows.Next() {
		var slot string
		var sealed []byte
		if err := rows.Scan(&slot, &sealed); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		out[slot] = sealed
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate api keys: %w", err)
	}
	return out, nil
}

// PutSealed upserts all slots in one transaction.
func (s *PostgresStore) PutSealed(ctx context.Context, learnerID string, sealed map[string][]byte) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin api key tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, slot := range slices.Sorted(maps.Keys(sealed)) {
		_, err := tx.Exec(ctx,
			`INSERT INTO learner_api_keys (learner_id, provider, sealed, updated_at)
			 VALUES ($1, $2, $3, NOW())
			 ON CONFLICT (learner_id, provider) DO UPDATE SET sealed = EXCLUDED.sealed, updated_at = NOW()`,
			learnerID, slot, sealed[slot],
		)
		if err != nil {
			return fmt.Errorf("upsert api key %s: %w", slot, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit api keys: %w", err)
	}
	return nil
}
