package model

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Video is a single discovered content item with its platform metadata.
type Video struct {
	ID                string    `json:"id"`
	URL               string    `json:"url"`
	Title             string    `json:"title"`
	PublishedAt       time.Time `json:"published_at"`
	ChannelID         string    `json:"channel_id"`
	ChannelTitle      string    `json:"channel_title"`
	Views             int64     `json:"views"`
	Likes             int64     `json:"likes"`
	CommentCount      int64     `json:"comment_count"`
	Duration          string    `json:"duration"`
	DurationFormatted string    `json:"duration_formatted"`
}

// Comment is a single top-level viewer comment on a video.
type Comment struct {
	VideoID     string    `json:"video_id"`
	Author      string    `json:"author"`
	Text        string    `json:"text"`
	Likes       int64     `json:"likes"`
	PublishedAt time.Time `json:"published_at"`
}

var isoDurationRe = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// FormatDuration converts an ISO 8601 duration (PT1H2M3S) to HH:MM:SS.
// Unparseable input yields "00:00:00".
func FormatDuration(iso string) string {
	m := isoDurationRe.FindStringSubmatch(iso)
	if m == nil {
		return "00:00:00"
	}
	h, _ := strconv.Atoi(zeroIfEmpty(m[1]))
	min, _ := strconv.Atoi(zeroIfEmpty(m[2]))
	s, _ := strconv.Atoi(zeroIfEmpty(m[3]))
	return fmt.Sprintf("%02d:%02d:%02d", h, min, s)
}

func zeroIfEmpty(s string) string {
	if s == "" {
		return "0"
	}
	return s
}

var watchURLRe = regexp.MustCompile(`[?&]v=([a-zA-Z0-9_-]+)`)

// VideoIDFromURL extracts the video id from a watch URL. If the URL has no
// v= parameter the input is returned unchanged, matching how short ids are
// passed around internally.
func VideoIDFromURL(url string) string {
	if m := watchURLRe.FindStringSubmatch(url); m != nil {
		return m[1]
	}
	return url
}

// WatchURL builds the canonical watch URL for a video id.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}
