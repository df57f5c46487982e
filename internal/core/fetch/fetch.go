// Package fetch downloads a comment's audio payload as a cancellable operation.
// A task is terminal and silent: failures are logged and leave no result,
// they are never surfaced to the caller as errors
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"timeline/internal/core/opqueue"
	perr "timeline/internal/platform/errors"
	"timeline/internal/platform/logger"
)

// Response is the payload and metadata of one completed request
type Response struct {
	Data        []byte
	Status      int
	ContentType string
}

// Session issues byte fetches. Implementations must honour ctx cancellation
type Session interface {
	DataTask(ctx context.Context, url string) (Response, error)
}

// Outcome labels how a task ended, for metrics
type Outcome string

const (
	OutcomeNone      Outcome = "" // not finished
	OutcomeOK        Outcome = "ok"
	OutcomeFailed    Outcome = "failed"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeSkipped   Outcome = "skipped" // no url, no request
)

// AudioTask fetches the audio for one comment with exactly one request
type AudioTask struct {
	opqueue.Base

	key     uuid.UUID
	url     string
	session Session
	log     *logger.Logger

	requests atomic.Int32

	mu      sync.Mutex
	abort   context.CancelFunc
	aborts  int
	data    []byte
	err     error
	outcome Outcome
}

// NewAudioTask prepares a fetch of url for the comment identified by key
func NewAudioTask(key uuid.UUID, url string, session Session) *AudioTask {
	return &AudioTask{
		key:     key,
		url:     url,
		session: session,
		log:     logger.Named("fetch"),
	}
}

// Key is the comment id the task fetches for
func (t *AudioTask) Key() uuid.UUID { return t.key }

// URL is the remote location of the payload
func (t *AudioTask) URL() string { return t.url }

// Start performs the request on the calling goroutine. It must be driven by
// a background queue; starting it on the main queue panics
func (t *AudioTask) Start(ctx context.Context) {
	if opqueue.MainFrom(ctx) != nil {
		panic("fetch: audio task started on the main queue")
	}
	if !t.BeginExecuting() {
		return
	}
	if t.url == "" {
		t.complete(nil, perr.InvalidArgf("comment %s has no audio url", t.key), OutcomeSkipped)
		return
	}

	rctx, cancel := context.WithCancel(ctx)
	defer cancel()

	t.mu.Lock()
	if t.IsCancelled() {
		// cancelled between BeginExecuting and here
		t.mu.Unlock()
		t.complete(nil, perr.Canceledf("fetch %s cancelled", t.key), OutcomeCancelled)
		return
	}
	t.abort = cancel
	t.mu.Unlock()

	t.requests.Add(1)
	resp, err := t.session.DataTask(rctx, t.url)

	data, ferr := classify(resp, err, rctx)
	switch {
	case ferr == nil:
		t.complete(data, nil, OutcomeOK)
	case perr.IsCode(ferr, perr.ErrorCodeCanceled):
		t.complete(nil, ferr, OutcomeCancelled)
	default:
		t.complete(nil, ferr, OutcomeFailed)
	}
}

// classify turns a session result into payload bytes or a local failure
func classify(resp Response, err error, rctx context.Context) ([]byte, error) {
	if err != nil {
		if rctx.Err() != nil {
			return nil, perr.Wrap(err, perr.ErrorCodeCanceled, "request aborted")
		}
		if _, ok := perr.As(err); ok {
			return nil, err
		}
		return nil, perr.Wrap(err, perr.ErrorCodeUnavailable, "transport")
	}
	switch {
	case resp.Status == http.StatusNotFound:
		return nil, perr.NotFoundf("audio not found (status %d)", resp.Status)
	case resp.Status >= 400 && resp.Status < 500:
		return nil, perr.InvalidArgf("audio request rejected (status %d)", resp.Status)
	case resp.Status != 0 && (resp.Status < 200 || resp.Status > 299):
		return nil, perr.Unavailablef("audio fetch failed (status %d)", resp.Status)
	}
	if len(resp.Data) == 0 {
		return nil, perr.Emptyf("audio payload is empty")
	}
	return resp.Data, nil
}

// complete records the result and finishes the task under the same lock
// Cancel takes, so a late cancel can never observe a half-written result
func (t *AudioTask) complete(data []byte, err error, outcome Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.abort = nil
	if err == nil && t.IsCancelled() {
		data, outcome = nil, OutcomeCancelled
		err = perr.Canceledf("fetch %s cancelled", t.key)
	}
	t.data, t.err, t.outcome = data, err, outcome
	t.Finish()

	switch outcome {
	case OutcomeFailed:
		t.log.Warn().Err(err).
			Str("comment_id", t.key.String()).
			Str("url", t.url).
			Str("code", perr.CodeOf(err).String()).
			Msg("audio fetch failed")
	case OutcomeCancelled, OutcomeSkipped:
		t.log.Debug().Str("comment_id", t.key.String()).Str("outcome", string(outcome)).Msg("audio fetch ended without data")
	}
}

// Cancel is idempotent. Pending tasks finish without a request, an
// executing task has its request aborted once, a finished task is untouched
func (t *AudioTask) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.State() == opqueue.Finished {
		return
	}
	t.Base.Cancel()
	if t.abort != nil {
		t.aborts++
		t.abort()
		t.abort = nil
	}
	if t.State() == opqueue.Finished && t.outcome == OutcomeNone {
		t.outcome = OutcomeCancelled
		t.err = perr.Canceledf("fetch %s cancelled before start", t.key)
	}
}

// AudioData returns the payload when the fetch succeeded
func (t *AudioTask) AudioData() ([]byte, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.data, t.data != nil
}

// Err is the classified failure, nil on success or while unfinished
func (t *AudioTask) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Outcome reports how the task ended
func (t *AudioTask) Outcome() Outcome {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.outcome
}

// AbortCount is the number of in-flight requests Cancel aborted (0 or 1)
func (t *AudioTask) AbortCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.aborts
}

// Requests is the number of DataTask calls issued (0 or 1)
func (t *AudioTask) Requests() int { return int(t.requests.Load()) }

func (t *AudioTask) String() string {
	return fmt.Sprintf("AudioTask(%s, %s)", t.key, t.State())
}
