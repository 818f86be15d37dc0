package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

const selectProfile = `SELECT learner_id, points, level, daily_streak, last_completed_at,
	completed_chapters, completed_videos, version, created_at, updated_at
	FROM learner_profiles`

// PostgresStore is a PostgreSQL-backed Store implementation.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed profile store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Create(ctx context.Context, p Profile) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	chapters, videos, err := encodeSets(&p)
	if err != nil {
		return err
	}

	cmd, err := s.pool.Exec(ctx,
		`INSERT INTO learner_profiles
		   (learner_id, points, level, daily_streak, last_completed_at, completed_chapters, completed_videos)
		 VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7::jsonb)
		 ON CONFLICT (learner_id) DO NOTHING`,
		p.LearnerID,
		p.Points,
		p.Level,
		p.DailyStreak,
		p.LastCompletedAt,
		chapters,
		videos,
	)
	if err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrProfileExists
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, learnerID string) (*Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	p, err := scanProfile(s.pool.QueryRow(ctx, selectProfile+` WHERE learner_id = $1`, learnerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get %s: %w", learnerID, ErrNotFound)
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// Transact reads the row and writes it back guarded by its version, so a
// concurrent award between the two statements turns into ErrWriteConflict
// instead of a lost update.
func (s *PostgresStore) Transact(ctx context.Context, learnerID string, fn TxFunc) (*Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin profile tx: %w", mapConflict(err))
	}
	defer func() { _ = tx.Rollback(ctx) }()

	p, err := scanProfile(tx.QueryRow(ctx, selectProfile+` WHERE learner_id = $1`, learnerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("transact %s: %w", learnerID, ErrNotFound)
		}
		return nil, fmt.Errorf("read profile: %w", mapConflict(err))
	}
	readVersion := p.Version

	if err := fn(p); err != nil {
		return nil, err
	}

	chapters, videos, err := encodeSets(p)
	if err != nil {
		return nil, err
	}

	err = tx.QueryRow(ctx,
		`UPDATE learner_profiles
		 SET points = $2, level = $3, daily_streak = $4, last_completed_at = $5,
		     completed_chapters = $6::jsonb, completed_videos = $7::jsonb,
		     version = version + 1, updated_at = NOW()
		 WHERE learner_id = $1 AND version = $8
		 RETURNING version, updated_at`,
		p.LearnerID,
		p.Points,
		p.Level,
		p.DailyStreak,
		p.LastCompletedAt,
		chapters,
		videos,
		readVersion,
	).Scan(&p.Version, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWriteConflict
		}
		return nil, fmt.Errorf("update profile: %w", mapConflict(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit profile: %w", mapConflict(err))
	}
	return p, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, selectProfile+` ORDER BY points DESC, learner_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var out []Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}
	return out, nil
}

func scanProfile(row pgx.Row) (*Profile, error) {
	p := &Profile{}
	var chapters, videos []byte
	err := row.Scan(
		&p.LearnerID,
		&p.Points,
		&p.Level,
		&p.DailyStreak,
		&p.LastCompletedAt,
		&chapters,
		&videos,
		&p.Version,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.CompletedChapters = map[string][]string{}
	if len(chapters) > 0 {
		if err := json.Unmarshal(chapters, &p.CompletedChapters); err != nil {
			return nil, fmt.Errorf("decode completed_chapters: %w", err)
		}
	}
	p.CompletedVideos = []string{}
	if len(videos) > 0 {
		if err := json.Unmarshal(videos, &p.CompletedVideos); err != nil {
			return nil, fmt.Errorf("decode completed_videos: %w", err)
		}
	}
	return p, nil
}

func encodeSets(p *Profile) (string, string, error) {
	chapters := p.CompletedChapters
	if chapters == nil {
		chapters = map[string][]string{}
	}
	videos := p.CompletedVideos
	if videos == nil {
		videos = []string{}
	}
	c, err := json.Marshal(chapters)
	if err != nil {
		return "", "", fmt.Errorf("encode completed_chapters: %w", err)
	}
	v, err := json.Marshal(videos)
	if err != nil {
		return "", "", fmt.Errorf("encode completed_videos: %w", err)
	}
	return string(c), string(v), nil
}

// mapConflict turns serialization failures and deadlocks into ErrWriteConflict.
func mapConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return errors.Join(ErrWriteConflict, err)
		}
	}
	return err
}
