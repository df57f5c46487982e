// Package domain holds the post detail screen types and seams
package domain

import (
	"timeline/internal/core/opqueue"
	"timeline/internal/core/reconcile"
	"timeline/internal/platform/notify"
	posts "timeline/internal/services/posts/domain"
)

// Notifications the detail screen listens for
const (
	// AudioCommentPosted carries the new posts.Comment; the table reloads
	AudioCommentPosted notify.Name = "audio_comment_posted"
	// ReplacePost carries a fresh posts.Post that replaces the shown one
	ReplacePost notify.Name = "replace_post"
)

// AudioSlot is a reusable visual slot that can show one audio comment.
// Every method must be called on the main queue
type AudioSlot interface {
	Comment(mc *opqueue.MainContext) (posts.Comment, bool)
	SetAudioData(mc *opqueue.MainContext, data []byte)
	AudioData(mc *opqueue.MainContext) []byte
}

// RowHandle is the row a load was requested for and the slot showing it then
type RowHandle struct {
	Row  int
	Slot AudioSlot
}

// Table maps rows to the slots currently displaying them
type Table = reconcile.Locator[AudioSlot]

// PlaybackDelegate is asked to play a slot's recording. Slots hold it as a
// plain interface value and the owner clears it on teardown
type PlaybackDelegate interface {
	PlayRecording(mc *opqueue.MainContext, slot AudioSlot)
}

// Player starts playback of an audio payload and returns without waiting
// for it to end
type Player interface {
	Play(data []byte) error
}

// Stats is a snapshot of the loader counters
type Stats struct {
	CacheHits      int
	CacheMisses    int
	FetchesStarted int
	DedupAttaches  int
	StaleDiscards  int
	Succeeded      int
	Failed         int
	Cancelled      int
	Cached         int
}
