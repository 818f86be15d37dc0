package progress

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// TxFunc mutates a profile inside a transaction. Returning an error aborts
// the transaction and nothing is written.
type TxFunc func(p *Profile) error

// Store persists learner profiles.
type Store interface {
	// Create inserts a new profile; ErrProfileExists if the learner has one.
	Create(ctx context.Context, p Profile) error
	// Get returns a profile or ErrNotFound.
	Get(ctx context.Context, learnerID string) (*Profile, error)
	// Transact runs one optimistic read-modify-write attempt. It returns
	// ErrNotFound for a missing profile and ErrWriteConflict when the profile
	// changed between the read and the write.
	Transact(ctx context.Context, learnerID string, fn TxFunc) (*Profile, error)
	// List returns all profiles ordered by points descending.
	List(ctx context.Context) ([]Profile, error)
}

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	profiles map[string]*Profile
	mu       sync.RWMutex
}

// NewMemoryStore creates a new in-memory profile store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[string]*Profile),
	}
}

func (s *MemoryStore) Create(_ context.Context, p Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[p.LearnerID]; ok {
		return ErrProfileExists
	}
	now := time.Now()
	p = p.Clone()
	p.Version = 0
	p.CreatedAt = now
	p.UpdatedAt = now
	s.profiles[p.LearnerID] = &p
	return nil
}

func (s *MemoryStore) Get(_ context.Context, learnerID string) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[learnerID]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", learnerID, ErrNotFound)
	}
	out := p.Clone()
	return &out, nil
}

// Transact reads a snapshot, releases the lock while fn runs, and commits
// only if no other write landed in between.
func (s *MemoryStore) Transact(ctx context.Context, learnerID string, fn TxFunc) (*Profile, error) {
	snapshot, err := s.Get(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	readVersion := snapshot.Version

	if err := fn(snapshot); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.profiles[learnerID]
	if !ok {
		return nil, fmt.Errorf("commit %s: %w", learnerID, ErrNotFound)
	}
	if current.Version != readVersion {
		return nil, ErrWriteConflict
	}

	next := snapshot.Clone()
	next.Version = readVersion + 1
	next.UpdatedAt = time.Now()
	s.profiles[learnerID] = &next

	out := next.Clone()
	return &out, nil
}

func (s *MemoryStore) List(_ context.Context) ([]Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		return out[i].LearnerID < out[j].LearnerID
	})
	return out, nil
}
