// Package domain holds the posts types and ports
package domain

import (
	"time"

	"github.com/google/uuid"
)

// MediaType is the kind of media a post carries
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaAudio MediaType = "audio"
	MediaVideo MediaType = "video"
)

// Author identifies who wrote a post or comment
type Author struct {
	Name string `json:"name"`
}

// Comment is an authored remark on a post with optional text and a remote
// audio location. The id is stable and is the identity the detail screen
// caches audio on
type Comment struct {
	ID        uuid.UUID `json:"id"`
	PostID    uuid.UUID `json:"post_id"`
	Author    Author    `json:"author"`
	Text      string    `json:"text,omitempty"`
	AudioURL  string    `json:"audio_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// HasAudio reports whether the comment points at remote audio
func (c Comment) HasAudio() bool { return c.AudioURL != "" }

// Post is a media post. Comments[0] is the caption written by the author
type Post struct {
	ID        uuid.UUID `json:"id"`
	Author    Author    `json:"author"`
	MediaType MediaType `json:"media_type"`
	MediaURL  string    `json:"media_url,omitempty"`
	Ratio     float64   `json:"ratio,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Comments  []Comment `json:"comments"`
}

// Title is the caption text, empty when the post has no comments
func (p Post) Title() string {
	if len(p.Comments) == 0 {
		return ""
	}
	return p.Comments[0].Text
}

// Blob is a stored audio payload
type Blob struct {
	ContentType string
	Data        []byte
}
