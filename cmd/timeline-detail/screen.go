package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"timeline/internal/adapters/media/httpfetch"
	"timeline/internal/adapters/media/player"
	"timeline/internal/core/opqueue"
	"timeline/internal/platform/logger"
	"timeline/internal/services/detail/service"
	"timeline/internal/services/posts/client"
)

// screenFlags are shared by commands that open a post
type screenFlags struct {
	pool      int
	window    int
	workers   int
	maxBytes  int64
	playerCmd string
	playerDir string
	settle    time.Duration
}

func (f *screenFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.pool, "pool", env.MayInt("POOL_SIZE", service.DefaultPoolSize), "reusable audio cells")
	cmd.Flags().IntVar(&f.window, "window", env.MayInt("WINDOW", 3), "rows visible at once")
	cmd.Flags().IntVar(&f.workers, "workers", env.MayInt("WORKERS", 4), "concurrent audio fetches")
	cmd.Flags().Int64Var(&f.maxBytes, "max-bytes", env.MayInt64("MAX_AUDIO_BYTES", 8<<20), "largest recording fetched")
	cmd.Flags().StringVar(&f.playerCmd, "player-cmd", env.MayString("PLAYER_CMD", ""), "command that plays a file, e.g. \"ffplay -nodisp -autoexit\"")
	cmd.Flags().StringVar(&f.playerDir, "player-dir", env.MayString("PLAYER_DIR", ""), "directory for played recordings")
	cmd.Flags().DurationVar(&f.settle, "settle", env.MayDuration("SETTLE_TIMEOUT", 30*time.Second), "how long to wait for loads")
}

// screen runs one detail screen on its own main loop
type screen struct {
	main   *opqueue.MainQueue
	bg     *opqueue.Queue
	d      *service.ImagePostDetail
	player *player.Player
	f      screenFlags

	cancel context.CancelFunc
	exited chan struct{}
}

func openScreen(ctx context.Context, c *client.Client, arg string, f screenFlags) (*screen, error) {
	id, err := uuid.Parse(arg)
	if err != nil {
		return nil, fmt.Errorf("post id %q: %w", arg, err)
	}
	p, err := c.Post(ctx, id)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &screen{
		main:   opqueue.NewMainQueue(),
		bg:     opqueue.NewQueue("audio", f.workers),
		player: player.New(player.Options{Dir: f.playerDir, Command: f.playerCmd}),
		f:      f,
		cancel: cancel,
		exited: make(chan struct{}),
	}
	go func() {
		defer close(s.exited)
		_ = s.main.Run(runCtx)
	}()

	s.d, err = service.NewImagePostDetail(service.Config{
		Post:       p,
		Controller: c,
		Session:    httpfetch.New(httpfetch.Options{Timeout: reqTimeout, MaxBytes: f.maxBytes, UserAgent: "timeline-detail"}),
		Background: s.bg,
		Main:       s.main,
		Player:     s.player,
		Metrics:    service.NewMetrics(nil),
		PoolSize:   f.pool,
	})
	if err != nil {
		s.stop()
		return nil, err
	}
	return s, nil
}

// settle waits for queued fetches and the main units they scheduled
func (s *screen) settle(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.f.settle)
	defer cancel()
	if err := s.bg.Wait(ctx); err != nil {
		return err
	}
	return s.main.Barrier(ctx)
}

// scroll shows rows [first, first+window) and waits for their audio
func (s *screen) scroll(ctx context.Context, first int) ([]service.Row, error) {
	var (
		rows []service.Row
		err  error
	)
	if serr := s.main.Sync(ctx, func(mc *opqueue.MainContext) {
		rows, err = s.d.Scroll(mc, first, s.f.window)
	}); serr != nil {
		return nil, serr
	}
	if err != nil {
		return rows, err
	}
	return rows, s.settle(ctx)
}

func (s *screen) rowCount(ctx context.Context) (int, error) {
	n := 0
	err := s.main.Sync(ctx, func(mc *opqueue.MainContext) { n = s.d.NumberOfRows(mc) })
	return n, err
}

func (s *screen) title(ctx context.Context) (string, error) {
	var t string
	err := s.main.Sync(ctx, func(mc *opqueue.MainContext) { t = s.d.Title(mc) })
	return t, err
}

func (s *screen) printSlots(ctx context.Context, w io.Writer) error {
	var slots []service.SlotState
	if err := s.main.Sync(ctx, func(mc *opqueue.MainContext) { slots = s.d.Slots(mc) }); err != nil {
		return err
	}
	t := newTable("Cell", "Row", "Comment", "Author", "Bytes", "Play")
	for _, st := range slots {
		row := "-"
		if st.Row >= 0 {
			row = strconv.Itoa(st.Row)
		}
		t.AddRow(strconv.Itoa(st.Cell), row, st.CommentID, st.Author, strconv.Itoa(st.Bytes), strconv.FormatBool(st.PlayEnabled))
	}
	return printTable(w, t)
}

func printRows(w io.Writer, rows []service.Row) error {
	t := newTable("Row", "Kind", "Author", "Content")
	for _, r := range rows {
		kind, content := "text", r.Text
		if r.Kind == service.RowAudio {
			kind, content = "audio", "cell "+strconv.Itoa(r.Cell.ID())
		}
		t.AddRow(strconv.Itoa(r.Index), kind, r.Author, content)
	}
	return printTable(w, t)
}

func (s *screen) printStats(w io.Writer) error {
	st := s.d.Loader().Stats()
	t := newTable("Counter", "Value")
	for _, kv := range []struct {
		k string
		v int
	}{
		{"cache hits", st.CacheHits},
		{"cache misses", st.CacheMisses},
		{"fetches started", st.FetchesStarted},
		{"joined in flight", st.DedupAttaches},
		{"stale discards", st.StaleDiscards},
		{"succeeded", st.Succeeded},
		{"failed", st.Failed},
		{"cancelled", st.Cancelled},
		{"cached", st.Cached},
	} {
		t.AddRow(kv.k, strconv.Itoa(kv.v))
	}
	return printTable(w, t)
}

// stop tears the screen down, then stops its queues
func (s *screen) stop() {
	if s.d != nil {
		if err := s.main.Sync(context.Background(), s.d.Teardown); err != nil {
			logger.Named("detail").Debug().Err(err).Msg("teardown")
		}
	}
	s.bg.Close()
	s.cancel()
	<-s.exited
	s.player.Wait()
}
