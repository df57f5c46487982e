package service

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"timeline/internal/core/cache"
	"timeline/internal/core/fetch"
	"timeline/internal/core/opqueue"
	perr "timeline/internal/platform/errors"
	"timeline/internal/platform/logger"
	"timeline/internal/platform/notify"
	"timeline/internal/services/detail/domain"
	posts "timeline/internal/services/posts/domain"
)

// DefaultPoolSize is the number of reusable audio cells
const DefaultPoolSize = 4

// Config wires an ImagePostDetail
type Config struct {
	Post       posts.Post
	Controller posts.PostController
	Session    fetch.Session
	Background *opqueue.Queue
	Main       *opqueue.MainQueue
	Player     domain.Player

	// Center delivers AudioCommentPosted and ReplacePost; nil gets a private one
	Center   *notify.Center
	Metrics  *Metrics
	Cache    *cache.Cache[uuid.UUID, []byte]
	PoolSize int
}

// RowKind tells text rows from audio rows
type RowKind int

const (
	RowText RowKind = iota
	RowAudio
)

// Row is what CellForRow hands back for display
type Row struct {
	Index  int
	Kind   RowKind
	Text   string
	Author string
	Cell   *AudioCell // audio rows only
}

// SlotState describes one pooled cell for printing
type SlotState struct {
	Cell        int
	Row         int // -1 when unbound
	CommentID   string
	Author      string
	Bytes       int
	PlayEnabled bool
}

// ImagePostDetail is the data source of a post's comment table. Row r shows
// Comments[r+1]; comment 0 is the caption and is shown as the title. All
// state is owned by the main queue
type ImagePostDetail struct {
	postID uuid.UUID
	ctrl   posts.PostController
	main   *opqueue.MainQueue
	player domain.Player
	center *notify.Center
	loader *AudioLoader
	mx     *Metrics
	log    *logger.Logger

	post    posts.Post
	pool    []*AudioCell
	free    []*AudioCell
	lru     []*AudioCell // bound cells, least recently bound first
	bound   map[*AudioCell]int
	rowCell map[int]*AudioCell
	visible []int
	reloads int
	torn    bool

	subID    string
	stop     chan struct{}
	stopOnce sync.Once
}

var (
	_ domain.Table            = (*ImagePostDetail)(nil)
	_ domain.PlaybackDelegate = (*ImagePostDetail)(nil)
)

// NewImagePostDetail builds the screen and starts listening for notifications
func NewImagePostDetail(cfg Config) (*ImagePostDetail, error) {
	if cfg.Controller == nil || cfg.Player == nil {
		return nil, perr.InvalidArgf("detail needs a post controller and a player")
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = DefaultPoolSize
	}
	if cfg.Center == nil {
		cfg.Center = notify.New()
	}
	d := &ImagePostDetail{
		postID:  cfg.Post.ID,
		ctrl:    cfg.Controller,
		main:    cfg.Main,
		player:  cfg.Player,
		center:  cfg.Center,
		mx:      cfg.Metrics,
		log:     logger.Named("detail"),
		post:    cfg.Post,
		bound:   make(map[*AudioCell]int),
		rowCell: make(map[int]*AudioCell),
		subID:   "detail-" + uuid.NewString(),
		stop:    make(chan struct{}),
	}
	for i := range cfg.PoolSize {
		c := NewAudioCell(i)
		d.pool = append(d.pool, c)
		d.free = append(d.free, c)
	}
	d.loader = NewAudioLoader(LoaderConfig{
		Session:    cfg.Session,
		Background: cfg.Background,
		Main:       cfg.Main,
		Table:      d,
		Cache:      cfg.Cache,
		Metrics:    cfg.Metrics,
	})

	ch := make(chan notify.Notification, 16)
	if err := d.center.Subscribe(d.subID, ch, domain.AudioCommentPosted, domain.ReplacePost); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnavailable, "subscribe detail notifications")
	}
	go d.listen(ch)
	return d, nil
}

// listen forwards notifications to the main queue until teardown
func (d *ImagePostDetail) listen(ch <-chan notify.Notification) {
	for {
		select {
		case n := <-ch:
			d.main.Async(func(mc *opqueue.MainContext) { d.handle(mc, n) })
		case <-d.stop:
			return
		}
	}
}

func (d *ImagePostDetail) handle(mc *opqueue.MainContext, n notify.Notification) {
	if d.torn {
		return
	}
	switch n.Name {
	case domain.AudioCommentPosted:
		if c, ok := n.Object.(posts.Comment); ok && c.PostID == d.postID {
			d.appendComment(c)
		}
		d.reload(mc)
	case domain.ReplacePost:
		p, ok := n.Object.(posts.Post)
		if !ok || p.ID != d.postID {
			return
		}
		d.post = p
		d.reload(mc)
	}
}

// Loader is the screen's audio loader
func (d *ImagePostDetail) Loader() *AudioLoader { return d.loader }

// Post is the post currently shown
func (d *ImagePostDetail) Post(mc *opqueue.MainContext) posts.Post {
	mc.Assert()
	return d.post
}

// Title is the caption
func (d *ImagePostDetail) Title(mc *opqueue.MainContext) string {
	mc.Assert()
	return d.post.Title()
}

// NumberOfRows is the comment count without the caption
func (d *ImagePostDetail) NumberOfRows(mc *opqueue.MainContext) int {
	mc.Assert()
	return max(len(d.post.Comments)-1, 0)
}

// Reloads counts table reloads
func (d *ImagePostDetail) Reloads(mc *opqueue.MainContext) int {
	mc.Assert()
	return d.reloads
}

// CellForRow renders row r. Audio rows get a pooled cell and start loading
func (d *ImagePostDetail) CellForRow(mc *opqueue.MainContext, r int) (Row, error) {
	mc.Assert()
	if r < 0 || r >= d.NumberOfRows(mc) {
		return Row{}, perr.InvalidArgf("row %d out of range [0,%d)", r, d.NumberOfRows(mc))
	}
	if !slices.Contains(d.visible, r) {
		d.visible = append(d.visible, r)
	}
	c := d.post.Comments[r+1]
	if !c.HasAudio() {
		return Row{Index: r, Kind: RowText, Text: c.Text, Author: c.Author.Name}, nil
	}

	cell, ok := d.rowCell[r]
	if ok && cell.PlayEnabled(mc) {
		return Row{Index: r, Kind: RowAudio, Author: c.Author.Name, Cell: cell}, nil
	}
	if !ok {
		cell = d.dequeue()
		cell.PrepareForReuse(mc)
		d.bind(cell, r)
		cell.Configure(mc, c, d)
	}
	d.loader.EnsureAudioLoaded(mc, domain.RowHandle{Row: r, Slot: cell}, c)
	return Row{Index: r, Kind: RowAudio, Author: c.Author.Name, Cell: cell}, nil
}

// DidEndDisplaying releases the cell of row r and cancels its load
func (d *ImagePostDetail) DidEndDisplaying(mc *opqueue.MainContext, r int) {
	mc.Assert()
	d.visible = slices.DeleteFunc(d.visible, func(v int) bool { return v == r })
	cell, ok := d.rowCell[r]
	if !ok {
		return
	}
	d.unbind(cell)
	d.free = append(d.free, cell)
	if c, ok := cell.Comment(mc); ok {
		d.loader.CancelLoad(mc, c)
	}
}

// Scroll shows rows [first, first+count), ending the display of rows that
// left the window, and returns the rows now visible
func (d *ImagePostDetail) Scroll(mc *opqueue.MainContext, first, count int) ([]Row, error) {
	mc.Assert()
	n := d.NumberOfRows(mc)
	first = min(max(first, 0), n)
	last := min(first+max(count, 0), n)

	var next []int
	for r := first; r < last; r++ {
		next = append(next, r)
	}
	for _, r := range slices.Clone(d.visible) {
		if !slices.Contains(next, r) {
			d.DidEndDisplaying(mc, r)
		}
	}
	d.visible = next

	rows := make([]Row, 0, len(next))
	for _, r := range next {
		row, err := d.CellForRow(mc, r)
		if err != nil {
			return rows, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// reload rebinds every visible row from scratch
func (d *ImagePostDetail) reload(mc *opqueue.MainContext) {
	d.reloads++
	for _, cell := range slices.Clone(d.lru) {
		cell.PrepareForReuse(mc)
		d.unbind(cell)
		d.free = append(d.free, cell)
	}
	n := d.NumberOfRows(mc)
	d.visible = slices.DeleteFunc(d.visible, func(r int) bool { return r >= n })
	for _, r := range d.visible {
		if _, err := d.CellForRow(mc, r); err != nil {
			d.log.Warn().Err(err).Int("row", r).Msg("reload row")
		}
	}
	d.log.Debug().Int("rows", n).Int("reloads", d.reloads).Msg("table reloaded")
}

// dequeue hands out a free cell, or reuses the least recently bound one
func (d *ImagePostDetail) dequeue() *AudioCell {
	if len(d.free) > 0 {
		c := d.free[0]
		d.free = d.free[1:]
		return c
	}
	c := d.lru[0]
	d.unbind(c)
	return c
}

func (d *ImagePostDetail) bind(c *AudioCell, r int) {
	d.bound[c] = r
	d.rowCell[r] = c
	d.lru = append(d.lru, c)
}

func (d *ImagePostDetail) unbind(c *AudioCell) {
	r, ok := d.bound[c]
	if !ok {
		return
	}
	delete(d.bound, c)
	delete(d.rowCell, r)
	d.lru = slices.DeleteFunc(d.lru, func(x *AudioCell) bool { return x == c })
}

// RowForSlot implements domain.Table
func (d *ImagePostDetail) RowForSlot(mc *opqueue.MainContext, s domain.AudioSlot) (int, bool) {
	mc.Assert()
	c, ok := s.(*AudioCell)
	if !ok {
		return 0, false
	}
	r, ok := d.bound[c]
	return r, ok
}

// SlotForRow implements domain.Table
func (d *ImagePostDetail) SlotForRow(mc *opqueue.MainContext, r int) (domain.AudioSlot, bool) {
	mc.Assert()
	c, ok := d.rowCell[r]
	if !ok {
		return nil, false
	}
	return c, true
}

// PlayRecording plays the cached audio of the slot's comment. Playback
// errors are logged only
func (d *ImagePostDetail) PlayRecording(mc *opqueue.MainContext, s domain.AudioSlot) {
	mc.Assert()
	c, ok := s.Comment(mc)
	if !ok {
		return
	}
	data, ok := d.loader.Cached(c.ID)
	if !ok {
		d.mx.played("no_audio")
		return
	}
	if err := d.player.Play(data); err != nil {
		d.mx.played("error")
		d.log.Error().Err(err).Str("comment_id", c.ID.String()).Msg("error playing recording")
		return
	}
	d.mx.played("ok")
}

// PlayRow taps play on the cell showing row r
func (d *ImagePostDetail) PlayRow(mc *opqueue.MainContext, r int) bool {
	mc.Assert()
	cell, ok := d.rowCell[r]
	return ok && cell.TapPlay(mc)
}

// AddTextComment posts a text comment and reloads the table. It talks to the
// network, so it must not be called from the main queue
func (d *ImagePostDetail) AddTextComment(ctx context.Context, author, text string) (posts.Comment, error) {
	c, err := d.ctrl.AddComment(ctx, d.postID, posts.AddCommentInput{Author: author, Text: text})
	if err != nil {
		return posts.Comment{}, err
	}
	err = d.main.Sync(ctx, func(mc *opqueue.MainContext) {
		if d.torn {
			return
		}
		d.appendComment(c)
		d.reload(mc)
	})
	return c, err
}

// AddAudioComment uploads a recording and announces it with AudioCommentPosted
func (d *ImagePostDetail) AddAudioComment(ctx context.Context, author, contentType string, audio []byte) (posts.Comment, error) {
	c, err := d.ctrl.AddAudioComment(ctx, d.postID, posts.AddAudioCommentInput{Author: author, ContentType: contentType, Audio: audio})
	if err != nil {
		return posts.Comment{}, err
	}
	d.center.Post(notify.Notification{Name: domain.AudioCommentPosted, Object: c})
	return c, nil
}

// Refresh refetches the post and announces it with ReplacePost
func (d *ImagePostDetail) Refresh(ctx context.Context) error {
	p, err := d.ctrl.Post(ctx, d.postID)
	if err != nil {
		return err
	}
	d.center.Post(notify.Notification{Name: domain.ReplacePost, Object: p})
	return nil
}

func (d *ImagePostDetail) appendComment(c posts.Comment) {
	if slices.ContainsFunc(d.post.Comments, func(x posts.Comment) bool { return x.ID == c.ID }) {
		return
	}
	d.post.Comments = append(d.post.Comments, c)
}

// Slots snapshots the cell pool
func (d *ImagePostDetail) Slots(mc *opqueue.MainContext) []SlotState {
	mc.Assert()
	out := make([]SlotState, 0, len(d.pool))
	for _, c := range d.pool {
		st := SlotState{Cell: c.ID(), Row: -1, Bytes: len(c.AudioData(mc)), PlayEnabled: c.PlayEnabled(mc)}
		if r, ok := d.bound[c]; ok {
			st.Row = r
			if cm, ok := c.Comment(mc); ok {
				st.CommentID = cm.ID.String()
				st.Author = c.AuthorLabel(mc)
			}
		}
		out = append(out, st)
	}
	return out
}

// Teardown detaches the cells' delegate and stops observing notifications
func (d *ImagePostDetail) Teardown(mc *opqueue.MainContext) {
	mc.Assert()
	if d.torn {
		return
	}
	d.torn = true
	for _, c := range d.pool {
		c.Teardown(mc)
	}
	if err := d.center.Unsubscribe(d.subID); err != nil {
		d.log.Debug().Err(err).Msg("unsubscribe detail notifications")
	}
	d.stopOnce.Do(func() { close(d.stop) })
}
