package service

import (
	"timeline/internal/core/opqueue"
	"timeline/internal/services/detail/domain"
	posts "timeline/internal/services/posts/domain"
)

// AudioCell is the reusable slot an audio comment row is shown in. Play is
// enabled exactly when the cell holds audio data
type AudioCell struct {
	id int

	comment    posts.Comment
	hasComment bool
	author     string
	audio      []byte
	playable   bool

	delegate domain.PlaybackDelegate
}

var _ domain.AudioSlot = (*AudioCell)(nil)

// NewAudioCell returns an empty cell with a stable pool id
func NewAudioCell(id int) *AudioCell { return &AudioCell{id: id} }

// ID is the cell's position in the pool
func (c *AudioCell) ID() int { return c.id }

// Configure shows comment in the cell and sets who handles play taps
func (c *AudioCell) Configure(mc *opqueue.MainContext, comment posts.Comment, d domain.PlaybackDelegate) {
	mc.Assert()
	c.comment, c.hasComment = comment, true
	c.author = comment.Author.Name
	c.delegate = d
}

// PrepareForReuse disables playback and forgets the previous audio
func (c *AudioCell) PrepareForReuse(mc *opqueue.MainContext) {
	mc.Assert()
	c.playable = false
	c.audio = nil
}

// Comment implements domain.AudioSlot
func (c *AudioCell) Comment(mc *opqueue.MainContext) (posts.Comment, bool) {
	mc.Assert()
	return c.comment, c.hasComment
}

// SetAudioData implements domain.AudioSlot
func (c *AudioCell) SetAudioData(mc *opqueue.MainContext, data []byte) {
	mc.Assert()
	c.audio = data
	c.playable = data != nil
}

// AudioData implements domain.AudioSlot
func (c *AudioCell) AudioData(mc *opqueue.MainContext) []byte {
	mc.Assert()
	return c.audio
}

// PlayEnabled reports whether the play affordance is active
func (c *AudioCell) PlayEnabled(mc *opqueue.MainContext) bool {
	mc.Assert()
	return c.playable
}

// AuthorLabel is the text of the author label
func (c *AudioCell) AuthorLabel(mc *opqueue.MainContext) string {
	mc.Assert()
	return c.author
}

// SetDelegate replaces the play handler; nil detaches it
func (c *AudioCell) SetDelegate(mc *opqueue.MainContext, d domain.PlaybackDelegate) {
	mc.Assert()
	c.delegate = d
}

// TapPlay forwards a tap on an enabled play affordance to the delegate
func (c *AudioCell) TapPlay(mc *opqueue.MainContext) bool {
	mc.Assert()
	if !c.playable || c.delegate == nil {
		return false
	}
	c.delegate.PlayRecording(mc, c)
	return true
}

// Teardown detaches the delegate
func (c *AudioCell) Teardown(mc *opqueue.MainContext) { c.SetDelegate(mc, nil) }
