package models

import (
	"time"
)

// Video status as presented by listings. A record with no video key has not
// completed upload and must not be presented as playable.
const (
	VideoStatusPending = "pending"
	VideoStatusReady   = "ready"
)

// Video is the persisted record correlating a user, an archive, and the
// final storage locations of its media artifacts.
type Video struct {
	ID           int64     `json:"id"`
	UserID       string    `json:"user_id"`
	ArchiveID    string    `json:"archive_id"`
	Title        string    `json:"title"`
	Summary      string    `json:"summary"`
	Category     string    `json:"category"`
	IsPrivate    bool      `json:"is_private"`
	Duration     int       `json:"duration"`
	VideoKey     *string   `json:"video_key"`
	ThumbnailKey *string   `json:"thumbnail_key"`
	Source       string    `json:"source"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Status reports whether the record is playable.
func (v *Video) Status() string {
	if v.VideoKey == nil || *v.VideoKey == "" {
		return VideoStatusPending
	}
	return VideoStatusReady
}
