// Package httpfetch is the byte-fetch session the audio tasks download through
package httpfetch

import (
	"context"
	"io"
	"net/http"
	"time"

	"timeline/internal/core/fetch"
	perr "timeline/internal/platform/errors"
	"timeline/internal/platform/logger"
)

const (
	defaultTimeout  = 30 * time.Second
	defaultMaxBytes = 8 << 20
	defaultUA       = "timeline-detail"
)

// Options configures the Session
type Options struct {
	Timeout   time.Duration
	MaxBytes  int64
	UserAgent string

	// HTTPClient overrides the transport, Timeout is ignored when set
	HTTPClient *http.Client
}

// Session implements fetch.Session over net/http. One DataTask is one GET
type Session struct {
	http *http.Client
	opts Options
	log  logger.Logger
}

var _ fetch.Session = (*Session)(nil)

// New creates a Session with defaults filled in
func New(o Options) *Session {
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.MaxBytes <= 0 {
		o.MaxBytes = defaultMaxBytes
	}
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	hc := o.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: o.Timeout}
	}
	return &Session{http: hc, opts: o, log: *logger.Named("httpfetch")}
}

// DataTask downloads url. Non-2xx answers come back as a Response without
// data so the caller can classify them; ctx cancellation aborts the transfer
func (s *Session) DataTask(ctx context.Context, url string) (fetch.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fetch.Response{}, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "bad audio url %q", url)
	}
	req.Header.Set("User-Agent", s.opts.UserAgent)
	req.Header.Set("Accept", "audio/*, application/octet-stream;q=0.5")

	start := time.Now()
	resp, err := s.http.Do(req)
	if err != nil {
		return fetch.Response{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	out := fetch.Response{Status: resp.StatusCode, ContentType: resp.Header.Get("Content-Type")}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain a little so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		s.log.Debug().Str("url", url).Int("status", resp.StatusCode).Msg("audio fetch non-2xx")
		return out, nil
	}

	if resp.ContentLength > s.opts.MaxBytes {
		return out, perr.Newf(perr.ErrorCodeTooLarge, "audio is %d bytes, limit %d", resp.ContentLength, s.opts.MaxBytes)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, s.opts.MaxBytes+1))
	if err != nil {
		return out, err
	}
	if int64(len(data)) > s.opts.MaxBytes {
		return out, perr.Newf(perr.ErrorCodeTooLarge, "audio exceeds %d bytes", s.opts.MaxBytes)
	}
	out.Data = data

	s.log.Debug().
		Str("url", url).
		Int("status", resp.StatusCode).
		Int("bytes", len(data)).
		Dur("elapsed", time.Since(start)).
		Msg("audio fetched")
	return out, nil
}
