// Package player plays audio by handing a file to an external command
package player

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	perr "timeline/internal/platform/errors"
	"timeline/internal/platform/logger"
)

// Options configures the player
type Options struct {
	// Dir receives one file per playback; empty means the OS temp dir
	Dir string
	// Command is run with the file path appended, e.g. "afplay" or "ffplay -nodisp -autoexit".
	// Empty only writes the file
	Command string
	// Ext is the file extension, default ".m4a"
	Ext string
}

// Player implements the detail screen's Player
type Player struct {
	opt  Options
	argv []string
	log  *logger.Logger

	mu   sync.Mutex
	last string
	wg   sync.WaitGroup
}

// New returns a Player
func New(o Options) *Player {
	if o.Dir == "" {
		o.Dir = os.TempDir()
	}
	if o.Ext == "" {
		o.Ext = ".m4a"
	}
	return &Player{opt: o, argv: strings.Fields(o.Command), log: logger.Named("player")}
}

// Play writes data to a fresh file and starts the command on it without
// waiting for playback to end
func (p *Player) Play(data []byte) error {
	if len(data) == 0 {
		return perr.Emptyf("no audio to play")
	}
	f, err := os.CreateTemp(p.opt.Dir, "recording-*"+p.opt.Ext)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "create playback file")
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "write playback file")
	}
	if err := f.Close(); err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "close playback file")
	}
	path := f.Name()
	p.mu.Lock()
	p.last = path
	p.mu.Unlock()

	if len(p.argv) == 0 {
		p.log.Info().Str("file", path).Int("bytes", len(data)).Msg("recording written")
		return nil
	}
	cmd := exec.Command(p.argv[0], append(p.argv[1:], path)...)
	if err := cmd.Start(); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "start %s", filepath.Base(p.argv[0]))
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := cmd.Wait(); err != nil {
			p.log.Warn().Err(err).Str("file", path).Msg("player exited")
			return
		}
		p.log.Debug().Str("file", path).Msg("playback finished")
	}()
	return nil
}

// Last is the file of the most recent playback
func (p *Player) Last() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// Wait blocks until every started command has exited
func (p *Player) Wait() { p.wg.Wait() }
