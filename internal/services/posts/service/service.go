// Package service implements the posts use cases
package service

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"timeline/internal/core/normalize"
	perr "timeline/internal/platform/errors"
	"timeline/internal/platform/logger"
	"timeline/internal/platform/net/http/bind"
	"timeline/internal/services/posts/domain"
	"timeline/internal/services/posts/repo"
)

// Options tunes the service
type Options struct {
	// PublicBaseURL prefixes audio_url; audio is served at <base>/media/audio/<comment id>
	PublicBaseURL string
	// ListLimit caps Posts when the caller asks for zero or more
	ListLimit int
	// MaxTextRunes truncates comment text after normalization
	MaxTextRunes int
}

// Service implements domain.ServicePort
type Service struct {
	repo  repo.Repo
	media domain.MediaStore
	opt   Options
	now   func() time.Time
}

var _ domain.ServicePort = (*Service)(nil)

// New builds the service. media nil means payloads go through the repo
func New(r repo.Repo, media domain.MediaStore, opt Options) *Service {
	if opt.ListLimit <= 0 {
		opt.ListLimit = 50
	}
	if opt.MaxTextRunes <= 0 {
		opt.MaxTextRunes = 2000
	}
	opt.PublicBaseURL = strings.TrimRight(opt.PublicBaseURL, "/")
	if media == nil {
		media = mediaOnRepo{r}
	}
	return &Service{repo: r, media: media, opt: opt, now: time.Now}
}

type mediaOnRepo struct{ r repo.Repo }

func (m mediaOnRepo) PutAudio(ctx context.Context, id uuid.UUID, b domain.Blob) error {
	return m.r.PutAudio(ctx, id, b)
}

func (m mediaOnRepo) GetAudio(ctx context.Context, id uuid.UUID) (domain.Blob, error) {
	return m.r.GetAudio(ctx, id)
}

// AudioURL is the public location of a comment's audio
func (s *Service) AudioURL(commentID uuid.UUID) string {
	return s.opt.PublicBaseURL + "/media/audio/" + url.PathEscape(commentID.String())
}

// Posts lists posts newest first
func (s *Service) Posts(ctx context.Context, q domain.ListQuery) ([]domain.Post, error) {
	if err := bind.Struct(q); err != nil {
		return nil, err
	}
	limit := q.Limit
	if limit <= 0 || limit > s.opt.ListLimit {
		limit = s.opt.ListLimit
	}
	return s.repo.ListPosts(ctx, limit)
}

// Post returns one post with its comments in order
func (s *Service) Post(ctx context.Context, id uuid.UUID) (domain.Post, error) {
	return s.repo.GetPost(ctx, id)
}

// CreatePost stores a post and its caption as comment 0
func (s *Service) CreatePost(ctx context.Context, in domain.CreatePostInput) (domain.Post, error) {
	if err := bind.Struct(in); err != nil {
		return domain.Post{}, err
	}
	now := s.now().UTC()
	author := domain.Author{Name: normalize.Text(in.Author, 64)}
	p := domain.Post{
		ID:        uuid.New(),
		Author:    author,
		MediaType: in.MediaType,
		MediaURL:  in.MediaURL,
		Ratio:     in.Ratio,
		CreatedAt: now,
	}
	caption := domain.Comment{
		ID:        uuid.New(),
		PostID:    p.ID,
		Author:    author,
		Text:      normalize.Text(in.Title, s.opt.MaxTextRunes),
		CreatedAt: now,
	}
	err := s.repo.Tx(ctx, func(st repo.Storage) error {
		if err := st.InsertPost(ctx, p); err != nil {
			return err
		}
		return st.InsertComment(ctx, caption)
	})
	if err != nil {
		return domain.Post{}, perr.WithOp(err, "create_post")
	}
	p.Comments = []domain.Comment{caption}
	logger.C(ctx).Info().Str("post_id", p.ID.String()).Str("media_type", string(p.MediaType)).Msg("post created")
	return p, nil
}

// AddComment appends a text comment; text is normalized and must not end up blank
func (s *Service) AddComment(ctx context.Context, postID uuid.UUID, in domain.AddCommentInput) (domain.Comment, error) {
	if err := bind.Struct(in); err != nil {
		return domain.Comment{}, err
	}
	text := normalize.Text(in.Text, s.opt.MaxTextRunes)
	if normalize.IsBlank(text) {
		return domain.Comment{}, perr.WithField(perr.Newf(perr.ErrorCodeValidation, "text is blank after normalization"), "text")
	}
	c := domain.Comment{
		ID:        uuid.New(),
		PostID:    postID,
		Author:    domain.Author{Name: normalize.Text(in.Author, 64)},
		Text:      text,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.InsertComment(ctx, c); err != nil {
		return domain.Comment{}, perr.WithOp(err, "add_comment")
	}
	logger.C(logger.WithPost(ctx, postID.String())).Debug().Str("comment_id", c.ID.String()).Msg("comment added")
	return c, nil
}

// AddAudioComment stores the payload, then the comment pointing at it
func (s *Service) AddAudioComment(ctx context.Context, postID uuid.UUID, in domain.AddAudioCommentInput) (domain.Comment, error) {
	if err := bind.Struct(in); err != nil {
		return domain.Comment{}, err
	}
	ctx = logger.WithPost(ctx, postID.String())
	if _, err := s.repo.GetPost(ctx, postID); err != nil {
		return domain.Comment{}, err
	}
	id := uuid.New()
	ctx = logger.WithComment(ctx, id.String())
	blob := domain.Blob{ContentType: strings.ToLower(strings.TrimSpace(in.ContentType)), Data: in.Audio}
	if err := s.media.PutAudio(ctx, id, blob); err != nil {
		return domain.Comment{}, perr.WithOp(err, "put_audio")
	}
	c := domain.Comment{
		ID:        id,
		PostID:    postID,
		Author:    domain.Author{Name: normalize.Text(in.Author, 64)},
		AudioURL:  s.AudioURL(id),
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.InsertComment(ctx, c); err != nil {
		// the orphaned payload is unreachable without its comment
		logger.C(ctx).Warn().Err(err).Msg("audio stored but comment insert failed")
		return domain.Comment{}, perr.WithOp(err, "add_audio_comment")
	}
	logger.C(ctx).Info().Int("bytes", len(in.Audio)).Msg("audio comment posted")
	return c, nil
}

// AudioBlob returns the payload of an audio comment
func (s *Service) AudioBlob(ctx context.Context, commentID uuid.UUID) (domain.Blob, error) {
	return s.media.GetAudio(ctx, commentID)
}
