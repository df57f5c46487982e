// Package client talks to the posts API over HTTP for the detail screen
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	perr "timeline/internal/platform/errors"
	"timeline/internal/platform/logger"
	"timeline/internal/services/posts/domain"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultUA        = "timeline-detail"
	defaultMaxRetry  = 3
	defaultRetryBase = 200 * time.Millisecond
	maxEnvelopeBytes = 8 << 20
)

// Options configures the Client
type Options struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration

	// Retries apply to GET requests that fail in transport or answer 5xx
	MaxRetries int
	RetryBase  time.Duration

	// HTTPClient overrides the transport, Timeout is ignored when set
	HTTPClient *http.Client
}

// Client implements domain.PostController against the posts HTTP API
type Client struct {
	http  *http.Client
	opts  Options
	log   logger.Logger
	sleep func(time.Duration)
}

var _ domain.PostController = (*Client)(nil)

// New creates a Client with defaults filled in
func New(o Options) *Client {
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	} else if o.MaxRetries == 0 {
		o.MaxRetries = defaultMaxRetry
	}
	if o.RetryBase <= 0 {
		o.RetryBase = defaultRetryBase
	}
	hc := o.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: o.Timeout}
	}
	return &Client{http: hc, opts: o, log: *logger.Named("posts.client"), sleep: time.Sleep}
}

// envelope mirrors the server response body with data left raw
type envelope struct {
	StatusCode int             `json:"status_code"`
	Code       perr.ErrorCode  `json:"code"`
	Error      string          `json:"error"`
	Field      string          `json:"field"`
	RequestID  string          `json:"request_id"`
	Data       json.RawMessage `json:"data"`
}

// Post fetches a post with its ordered comments
func (c *Client) Post(ctx context.Context, id uuid.UUID) (domain.Post, error) {
	var p domain.Post
	err := c.do(ctx, http.MethodGet, "/posts/"+id.String(), nil, &p)
	return p, err
}

// Posts lists posts newest first
func (c *Client) Posts(ctx context.Context, limit int) ([]domain.Post, error) {
	path := "/posts"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out []domain.Post
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// CreatePost creates a post whose caption becomes comment 0
func (c *Client) CreatePost(ctx context.Context, in domain.CreatePostInput) (domain.Post, error) {
	var p domain.Post
	err := c.do(ctx, http.MethodPost, "/posts", in, &p)
	return p, err
}

// AddComment posts a text comment
func (c *Client) AddComment(ctx context.Context, postID uuid.UUID, in domain.AddCommentInput) (domain.Comment, error) {
	var cm domain.Comment
	err := c.do(ctx, http.MethodPost, "/posts/"+postID.String()+"/comments", in, &cm)
	return cm, err
}

// AddAudioComment uploads an audio comment
func (c *Client) AddAudioComment(ctx context.Context, postID uuid.UUID, in domain.AddAudioCommentInput) (domain.Comment, error) {
	var cm domain.Comment
	err := c.do(ctx, http.MethodPost, "/posts/"+postID.String()+"/audio-comments", in, &cm)
	return cm, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return perr.Wrap(err, perr.ErrorCodeJSON, "encode request")
		}
		body = b
	}

	attempts := 0
	for {
		if err := ctx.Err(); err != nil {
			return perr.Wrap(err, perr.ErrorCodeCanceled, "posts request canceled")
		}
		err := c.once(ctx, method, path, body, out)
		if err == nil {
			return nil
		}
		if method != http.MethodGet || !perr.Retryable(err) || attempts >= c.opts.MaxRetries {
			return err
		}
		back := c.opts.RetryBase << attempts
		c.log.Warn().Err(err).Str("path", path).Int("attempt", attempts).Dur("retry_in", back).Msg("posts request failed retrying")
		c.sleep(back)
		attempts++
	}
}

func (c *Client) once(ctx context.Context, method, path string, body []byte, out any) error {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.opts.BaseURL+path, rd)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeInvalidArgument, "posts new request failed")
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return perr.Wrap(ctx.Err(), perr.ErrorCodeCanceled, "posts request canceled")
		}
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "posts request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxEnvelopeBytes))
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "read posts response")
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		// proxies answer with html on 502 and friends
		if resp.StatusCode >= 500 {
			return perr.Newf(perr.ErrorCodeUnavailable, "posts api status %d", resp.StatusCode)
		}
		return perr.Wrapf(err, perr.ErrorCodeJSON, "decode posts response (status %d)", resp.StatusCode)
	}

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Str("request_id", env.RequestID).
		Msg("posts api")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return remoteError(resp.StatusCode, env)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return perr.Wrap(err, perr.ErrorCodeJSON, "decode posts data")
	}
	return nil
}

// remoteError rebuilds the server side error so callers can branch on codes
func remoteError(status int, env envelope) error {
	code := env.Code
	if code == perr.ErrorCodeUnknown && status >= 500 {
		code = perr.ErrorCodeUnavailable
	}
	msg := env.Error
	if msg == "" {
		msg = "posts api status " + strconv.Itoa(status)
	}
	err := perr.New(code, msg)
	if env.Field != "" {
		err = perr.WithField(err, env.Field)
	}
	return err
}
