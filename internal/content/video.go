// Package content holds the video catalogue learners earn points from.
package content

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrNotFound means no video has the id.
	ErrNotFound = errors.New("video not found")
	// ErrInvalidVideo means a required video field was missing.
	ErrInvalidVideo = errors.New("title and YouTube URL are required")
)

// Video is one catalogue entry.
type Video struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	YouTubeURL string    `json:"youtubeUrl"`
	CreatedAt  time.Time `json:"created_at"`
}

// YouTubeID extracts the video id from youtu.be and youtube.com links.
// It returns "" for anything else.
func (v Video) YouTubeID() string {
	u, err := url.Parse(strings.TrimSpace(v.YouTubeURL))
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	switch {
	case host == "youtu.be":
		return strings.Trim(u.Path, "/")
	case strings.HasSuffix(host, "youtube.com"):
		if id := u.Query().Get("v"); id != "" {
			return id
		}
		if rest, ok := strings.CutPrefix(u.Path, "/embed/"); ok {
			return strings.Trim(rest, "/")
		}
	}
	return ""
}

// ThumbnailURL returns the high-quality YouTube thumbnail, or "" when the
// link is not a recognised YouTube URL.
func (v Video) ThumbnailURL() string {
	id := v.YouTubeID()
	if id == "" {
		return ""
	}
	return "https://img.youtube.com/vi/" + url.PathEscape(id) + "/hqdefault.jpg"
}

// EmbedURL returns the player URL for the video, or "".
func (v Video) EmbedURL() string {
	id := v.YouTubeID()
	if id == "" {
		return ""
	}
	return "https://www.youtube.com/embed/" + url.PathEscape(id)
}
