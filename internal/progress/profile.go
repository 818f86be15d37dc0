// Package progress owns learner profiles: points, level, daily streak and the
// sets of completed chapters and videos. Credit is awarded through the Ledger,
// which applies each award as a single optimistic read-modify-write.
package progress

import (
	"errors"
	"slices"
	"time"
)

const (
	// ChapterReward is awarded once per completed syllabus chapter.
	ChapterReward = 10
	// VideoReward is awarded once per completed video.
	VideoReward = 20

	pointsPerLevel = 100
)

var (
	// ErrNotFound means the learner has no profile.
	ErrNotFound = errors.New("profile not found")
	// ErrAlreadyCompleted means credit for the item was already awarded.
	ErrAlreadyCompleted = errors.New("already completed")
	// ErrWriteConflict means a concurrent award changed the profile first.
	ErrWriteConflict = errors.New("profile write conflict")
	// ErrMalformedInput means a required identifier was missing.
	ErrMalformedInput = errors.New("malformed input")
	// ErrProfileExists is returned by Store.Create for an existing learner.
	ErrProfileExists = errors.New("profile already exists")
)

// Profile is the mutable progress record of one learner.
type Profile struct {
	LearnerID         string              `json:"learner_id"`
	Points            int                 `json:"points"`
	Level             int                 `json:"level"`
	DailyStreak       int                 `json:"daily_streak"`
	LastCompletedAt   *time.Time          `json:"last_completed_at,omitempty"`
	CompletedChapters map[string][]string `json:"completed_chapters"`
	CompletedVideos   []string            `json:"completed_videos"`
	Version           int64               `json:"-"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

// NewProfile returns the zero-valued profile created at registration.
func NewProfile(learnerID string) Profile {
	return Profile{
		LearnerID:         learnerID,
		Level:             LevelFor(0),
		CompletedChapters: map[string][]string{},
		CompletedVideos:   []string{},
	}
}

// LevelFor derives the level from a point total.
func LevelFor(points int) int {
	if points < 0 {
		points = 0
	}
	return points/pointsPerLevel + 1
}

// HasChapter reports whether chapterID is completed under path.
func (p *Profile) HasChapter(path, chapterID string) bool {
	return slices.Contains(p.CompletedChapters[path], chapterID)
}

// HasVideo reports whether videoID is completed.
func (p *Profile) HasVideo(videoID string) bool {
	return slices.Contains(p.CompletedVideos, videoID)
}

// CompletedSet returns the completed chapter ids under path as a set.
func (p *Profile) CompletedSet(path string) map[string]bool {
	ids := p.CompletedChapters[path]
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// Clone returns a deep copy so callers can mutate without sharing slices.
func (p Profile) Clone() Profile {
	out := p
	if p.LastCompletedAt != nil {
		t := *p.LastCompletedAt
		out.LastCompletedAt = &t
	}
	out.CompletedChapters = make(map[string][]string, len(p.CompletedChapters))
	for path, ids := range p.CompletedChapters {
		out.CompletedChapters[path] = slices.Clone(ids)
	}
	out.CompletedVideos = slices.Clone(p.CompletedVideos)
	if out.CompletedVideos == nil {
		out.CompletedVideos = []string{}
	}
	return out
}

// credit adds points, recomputes the level and advances the streak.
func (p *Profile) credit(points int, now time.Time, loc *time.Location) {
	p.Points += points
	p.Level = LevelFor(p.Points)
	p.DailyStreak = NextStreak(p.DailyStreak, p.LastCompletedAt, now, loc)
	completedAt := now
	p.LastCompletedAt = &completedAt
}
