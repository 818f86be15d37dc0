package progress_test

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/p-n-ai/pai-lingo/internal/progress"
)

func TestNextStreak(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	at := func(days int, hour int) *time.Time {
		t := time.Date(2026, 3, 10+days, hour, 0, 0, 0, time.UTC)
		return &t
	}

	tests := []struct {
		name    string
		current int
		last    *time.Time
		want    int
	}{
		{name: "first completion", current: 0, last: nil, want: 1},
		{name: "yesterday continues", current: 3, last: at(-1, 23), want: 4},
		{name: "yesterday early morning continues", current: 1, last: at(-1, 0), want: 2},
		{name: "two days ago resets", current: 7, last: at(-2, 12), want: 1},
		{name: "long gap resets", current: 40, last: at(-30, 12), want: 1},
		{name: "same day unchanged", current: 5, last: at(0, 1), want: 5},
		{name: "same day later in the day unchanged", current: 2, last: at(0, 9), want: 2},
		{name: "same day with zero streak becomes one", current: 0, last: at(0, 8), want: 1},
		{name: "future timestamp unchanged", current: 3, last: at(1, 8), want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := progress.NextStreak(tt.current, tt.last, now, time.UTC)
			if got != tt.want {
				t.Errorf("NextStreak() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNextStreak_UsesLocationDayBoundary(t *testing.T) {
	kolkata, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Fatalf("LoadLocation() error = %v", err)
	}

	// 20:00 UTC on the 9th is 01:30 on the 10th in Kolkata.
	last := time.Date(2026, 3, 9, 20, 0, 0, 0, time.UTC)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	if got := progress.NextStreak(4, &last, now, time.UTC); got != 5 {
		t.Errorf("UTC NextStreak() = %d, want 5", got)
	}
	if got := progress.NextStreak(4, &last, now, kolkata); got != 4 {
		t.Errorf("Kolkata NextStreak() = %d, want 4 (same local day)", got)
	}
}

func TestNextStreak_NilLocationIsUTC(t *testing.T) {
	last := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	if got := progress.NextStreak(1, &last, now, nil); got != 2 {
		t.Errorf("NextStreak() = %d, want 2", got)
	}
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		points int
		want   int
	}{
		{0, 1},
		{95, 1},
		{99, 1},
		{100, 2},
		{249, 3},
		{1000, 11},
		{-5, 1},
	}
	for _, tt := range tests {
		if got := progress.LevelFor(tt.points); got != tt.want {
			t.Errorf("LevelFor(%d) = %d, want %d", tt.points, got, tt.want)
		}
	}
}

func TestProfile_Clone(t *testing.T) {
	last := time.Now()
	p := progress.NewProfile("learner-1")
	p.LastCompletedAt = &last
	p.CompletedChapters["grammar"] = []string{"ch-1"}
	p.CompletedVideos = []string{"v1"}

	c := p.Clone()
	c.CompletedChapters["grammar"][0] = "changed"
	c.CompletedVideos[0] = "changed"
	*c.LastCompletedAt = last.Add(time.Hour)

	if p.CompletedChapters["grammar"][0] != "ch-1" {
		t.Error("Clone() shares completed chapter slices")
	}
	if p.CompletedVideos[0] != "v1" {
		t.Error("Clone() shares completed videos")
	}
	if !p.LastCompletedAt.Equal(last) {
		t.Error("Clone() shares LastCompletedAt")
	}
}

func TestNewProfile_Defaults(t *testing.T) {
	p := progress.NewProfile("learner-1")
	if p.Points != 0 || p.Level != 1 || p.DailyStreak != 0 {
		t.Errorf("NewProfile() = points %d level %d streak %d, want 0 1 0", p.Points, p.Level, p.DailyStreak)
	}
	if p.CompletedVideos == nil || len(p.CompletedVideos) != 0 {
		t.Errorf("CompletedVideos = %v, want empty non-nil", p.CompletedVideos)
	}
	if p.LastCompletedAt != nil {
		t.Error("LastCompletedAt should be nil before any completion")
	}
}
