package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"time"
)

const (
	defaultMaxAttempts = 5
	defaultBackoff     = 10 * time.Millisecond
)

// errUnchanged aborts a transaction that has nothing to write.
var errUnchanged = errors.New("profile unchanged")

// Publisher receives the profile after every committed award.
type Publisher interface {
	Publish(learnerID string, p Profile)
}

// LedgerConfig holds dependencies for the ledger.
type LedgerConfig struct {
	Store       Store
	Events      EventLogger
	Publisher   Publisher
	Location    *time.Location   // streak day boundary (default UTC)
	MaxAttempts int              // transaction attempts before ErrWriteConflict surfaces (default 5)
	Backoff     time.Duration    // base delay between attempts (default 10ms, negative disables)
	Now         func() time.Time // clock, overridable in tests
}

// Result describes the outcome of an award.
type Result struct {
	Profile          Profile `json:"profile"`
	Awarded          int     `json:"awarded"`
	AlreadyCompleted bool    `json:"already_completed"`
}

// Ledger applies credit awards to learner profiles.
type Ledger struct {
	store       Store
	events      EventLogger
	publisher   Publisher
	loc         *time.Location
	maxAttempts int
	backoff     time.Duration
	now         func() time.Time
}

// NewLedger creates a ledger.
func NewLedger(cfg LedgerConfig) *Ledger {
	store := cfg.Store
	if store == nil {
		store = NewMemoryStore()
	}
	events := cfg.Events
	if events == nil {
		events = NopEventLogger{}
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	backoff := cfg.Backoff
	if backoff == 0 {
		backoff = defaultBackoff
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Ledger{
		store:       store,
		events:      events,
		publisher:   cfg.Publisher,
		loc:         loc,
		maxAttempts: attempts,
		backoff:     backoff,
		now:         now,
	}
}

// CreateProfile creates the zero-valued profile for a newly registered
// learner. Creating an existing profile is not an error; the stored profile
// is returned unchanged.
func (l *Ledger) CreateProfile(ctx context.Context, learnerID string) (*Profile, error) {
	if strings.TrimSpace(learnerID) == "" {
		return nil, fmt.Errorf("create profile: learner id: %w", ErrMalformedInput)
	}

	err := l.store.Create(ctx, NewProfile(learnerID))
	switch {
	case err == nil:
		slog.Info("profile created", "learner_id", learnerID)
		l.logEvent(Event{LearnerID: learnerID, EventType: EventProfileCreated})
	case errors.Is(err, ErrProfileExists):
	default:
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return l.store.Get(ctx, learnerID)
}

// AwardChapterCompletion credits a completed syllabus chapter once.
// Completing the same chapter again succeeds with AlreadyCompleted set and
// changes nothing.
func (l *Ledger) AwardChapterCompletion(ctx context.Context, learnerID, path, chapterID string) (Result, error) {
	if err := requireIDs(map[string]string{"learner id": learnerID, "syllabus path": path, "chapter id": chapterID}); err != nil {
		return Result{}, fmt.Errorf("award chapter: %w", err)
	}

	p, err := l.transact(ctx, learnerID, func(p *Profile) error {
		if p.HasChapter(path, chapterID) {
			return errUnchanged
		}
		if p.CompletedChapters == nil {
			p.CompletedChapters = map[string][]string{}
		}
		p.CompletedChapters[path] = append(p.CompletedChapters[path], chapterID)
		p.credit(ChapterReward, l.now(), l.loc)
		return nil
	})
	if errors.Is(err, errUnchanged) {
		current, getErr := l.store.Get(ctx, learnerID)
		if getErr != nil {
			return Result{}, fmt.Errorf("award chapter: %w", getErr)
		}
		return Result{Profile: *current, AlreadyCompleted: true}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("award chapter: %w", err)
	}

	slog.Info("chapter completed",
		"learner_id", learnerID,
		"path", path,
		"chapter_id", chapterID,
		"points", p.Points,
		"streak", p.DailyStreak,
	)
	l.afterCommit(*p, Event{
		LearnerID: learnerID,
		EventType: EventChapterCompleted,
		Data:      map[string]any{"path": path, "chapter_id": chapterID, "points": ChapterReward},
	})
	return Result{Profile: *p, Awarded: ChapterReward}, nil
}

// AwardVideoCompletion credits a watched video once. A repeat returns
// ErrAlreadyCompleted and changes nothing.
func (l *Ledger) AwardVideoCompletion(ctx context.Context, learnerID, videoID string) (Result, error) {
	if err := requireIDs(map[string]string{"learner id": learnerID, "video id": videoID}); err != nil {
		return Result{}, fmt.Errorf("award video: %w", err)
	}

	p, err := l.transact(ctx, learnerID, func(p *Profile) error {
		if p.HasVideo(videoID) {
			return ErrAlreadyCompleted
		}
		p.CompletedVideos = append(p.CompletedVideos, videoID)
		p.credit(VideoReward, l.now(), l.loc)
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("award video: %w", err)
	}

	slog.Info("video completed",
		"learner_id", learnerID,
		"video_id", videoID,
		"points", p.Points,
		"streak", p.DailyStreak,
	)
	l.afterCommit(*p, Event{
		LearnerID: learnerID,
		EventType: EventVideoCompleted,
		Data:      map[string]any{"video_id": videoID, "points": VideoReward},
	})
	return Result{Profile: *p, Awarded: VideoReward}, nil
}

// ReadProfile returns the learner's profile, or a fresh default profile when
// none exists. Store failures other than a missing profile are returned.
func (l *Ledger) ReadProfile(ctx context.Context, learnerID string) (Profile, error) {
	p, err := l.store.Get(ctx, learnerID)
	if errors.Is(err, ErrNotFound) {
		return NewProfile(learnerID), nil
	}
	if err != nil {
		return Profile{}, fmt.Errorf("read profile: %w", err)
	}
	return *p, nil
}

// CompletedChapters returns the completed chapter ids under path. A missing
// profile yields an empty set.
func (l *Ledger) CompletedChapters(ctx context.Context, learnerID, path string) (map[string]bool, error) {
	p, err := l.ReadProfile(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	return p.CompletedSet(path), nil
}

// Leaderboard returns up to limit profiles ranked by points. A limit of zero
// or less returns every profile.
func (l *Ledger) Leaderboard(ctx context.Context, limit int) ([]Profile, error) {
	all, err := l.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// transact retries fn on write conflicts until maxAttempts is reached.
func (l *Ledger) transact(ctx context.Context, learnerID string, fn TxFunc) (*Profile, error) {
	var lastErr error
	for attempt := 1; attempt <= l.maxAttempts; attempt++ {
		p, err := l.store.Transact(ctx, learnerID, fn)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, ErrWriteConflict) {
			return nil, err
		}
		lastErr = err
		if attempt == l.maxAttempts {
			break
		}

		slog.Debug("profile write conflict, retrying",
			"learner_id", learnerID,
			"attempt", attempt,
		)
		if err := l.sleep(ctx, attempt); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("after %d attempts: %w", l.maxAttempts, lastErr)
}

func (l *Ledger) sleep(ctx context.Context, attempt int) error {
	if l.backoff < 0 {
		return ctx.Err()
	}
	d := l.backoff * time.Duration(attempt)
	d += rand.N(l.backoff + 1)
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (l *Ledger) afterCommit(p Profile, event Event) {
	event.CreatedAt = l.now()
	l.logEvent(event)
	if l.publisher != nil {
		l.publisher.Publish(p.LearnerID, p)
	}
}

func (l *Ledger) logEvent(event Event) {
	if err := l.events.LogEvent(event); err != nil {
		slog.Warn("failed to log progress event",
			"type", event.EventType,
			"learner_id", event.LearnerID,
			"error", err,
		)
	}
}

func requireIDs(ids map[string]string) error {
	names := make([]string, 0, len(ids))
	for name := range ids {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if strings.TrimSpace(ids[name]) == "" {
			return fmt.Errorf("%s is empty: %w", name, ErrMalformedInput)
		}
	}
	return nil
}
