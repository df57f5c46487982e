package repo

import (
	"context"
	"time"

	"github.com/google/uuid"

	"timeline/internal/modkit/repokit"
	perr "timeline/internal/platform/errors"
	"timeline/internal/platform/store"
	"timeline/internal/services/posts/domain"
)

type (
	pg     struct{ q repokit.Queryer }
	binder struct{}
)

// Binder binds the Postgres storage to a Queryer
func Binder() repokit.Binder[Storage] { return binder{} }

// Bind implements repokit.Binder
func (binder) Bind(q repokit.Queryer) Storage { return &pg{q: q} }

type pgRepo struct {
	Storage
	tx repokit.TxRunner
}

// NewPG returns a Repo on tx; every transaction runs with a statement timeout
func NewPG(tx repokit.TxRunner, statementTimeout time.Duration) Repo {
	if statementTimeout > 0 {
		tx = repokit.WithBeginHooks(tx, repokit.StatementTimeout(statementTimeout))
	}
	return pgRepo{Storage: repokit.MustBind(Binder(), tx), tx: tx}
}

func (r pgRepo) Tx(ctx context.Context, fn func(Storage) error) error {
	return repokit.WithTx(ctx, r.tx, func(q repokit.Queryer) error {
		return fn(binder{}.Bind(q))
	})
}

const postCols = `id::text, author, media_type, media_url, ratio, created_at`

const commentCols = `id::text, post_id::text, author, body, audio_url, created_at`

func scanPost(r store.Row) (domain.Post, error) {
	var (
		p  domain.Post
		id string
		mt string
	)
	if err := r.Scan(&id, &p.Author.Name, &mt, &p.MediaURL, &p.Ratio, &p.CreatedAt); err != nil {
		return p, err
	}
	p.MediaType = domain.MediaType(mt)
	var err error
	p.ID, err = uuid.Parse(id)
	return p, err
}

func scanComment(r store.Row) (domain.Comment, error) {
	var (
		c          domain.Comment
		id, postID string
	)
	if err := r.Scan(&id, &postID, &c.Author.Name, &c.Text, &c.AudioURL, &c.CreatedAt); err != nil {
		return c, err
	}
	var err error
	if c.ID, err = uuid.Parse(id); err != nil {
		return c, err
	}
	c.PostID, err = uuid.Parse(postID)
	return c, err
}

// ListPosts implements Storage; posts newest first, comments in insert order
func (s *pg) ListPosts(ctx context.Context, limit int) ([]domain.Post, error) {
	posts, err := store.Many(ctx, s.q, scanPost,
		`SELECT `+postCols+` FROM posts ORDER BY created_at DESC, id LIMIT $1`, limit)
	if err != nil {
		return nil, perr.FromPostgres(err, "list posts")
	}
	if len(posts) == 0 {
		return []domain.Post{}, nil
	}

	ids := make([]string, len(posts))
	index := make(map[uuid.UUID]int, len(posts))
	for i, p := range posts {
		ids[i] = p.ID.String()
		index[p.ID] = i
		posts[i].Comments = []domain.Comment{}
	}
	comments, err := store.Many(ctx, s.q, scanComment,
		`SELECT `+commentCols+` FROM comments WHERE post_id = ANY($1::uuid[]) ORDER BY post_id, seq`, ids)
	if err != nil {
		return nil, perr.FromPostgres(err, "list comments")
	}
	for _, c := range comments {
		i := index[c.PostID]
		posts[i].Comments = append(posts[i].Comments, c)
	}
	return posts, nil
}

// GetPost implements Storage
func (s *pg) GetPost(ctx context.Context, id uuid.UUID) (domain.Post, error) {
	p, err := store.One(ctx, s.q, scanPost,
		`SELECT `+postCols+` FROM posts WHERE id = $1::uuid`, id.String())
	if err != nil {
		if perr.IsCode(err, perr.ErrorCodeNotFound) {
			return domain.Post{}, perr.NotFoundf("post %s not found", id)
		}
		return domain.Post{}, perr.FromPostgres(err, "get post")
	}
	comments, err := store.Many(ctx, s.q, scanComment,
		`SELECT `+commentCols+` FROM comments WHERE post_id = $1::uuid ORDER BY seq`, id.String())
	if err != nil {
		return domain.Post{}, perr.FromPostgres(err, "get comments")
	}
	if comments == nil {
		comments = []domain.Comment{}
	}
	p.Comments = comments
	return p, nil
}

// InsertPost implements Storage; comments are inserted separately
func (s *pg) InsertPost(ctx context.Context, p domain.Post) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO posts (id, author, media_type, media_url, ratio, created_at)
		 VALUES ($1::uuid, $2, $3, $4, $5, $6)`,
		p.ID.String(), p.Author.Name, string(p.MediaType), p.MediaURL, p.Ratio, p.CreatedAt)
	return perr.FromPostgres(err, "insert post")
}

// InsertComment implements Storage; a missing post maps to NotFound
func (s *pg) InsertComment(ctx context.Context, c domain.Comment) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO comments (id, post_id, author, body, audio_url, created_at)
		 VALUES ($1::uuid, $2::uuid, $3, $4, $5, $6)`,
		c.ID.String(), c.PostID.String(), c.Author.Name, c.Text, c.AudioURL, c.CreatedAt)
	return perr.FromPostgres(err, "insert comment")
}

// PutAudio implements Storage; a second write for the same comment replaces the first
func (s *pg) PutAudio(ctx context.Context, commentID uuid.UUID, b domain.Blob) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO audio_blobs (comment_id, content_type, data) VALUES ($1::uuid, $2, $3)
		 ON CONFLICT (comment_id) DO UPDATE SET content_type = EXCLUDED.content_type, data = EXCLUDED.data`,
		commentID.String(), b.ContentType, b.Data)
	return perr.FromPostgres(err, "put audio")
}

// GetAudio implements Storage
func (s *pg) GetAudio(ctx context.Context, commentID uuid.UUID) (domain.Blob, error) {
	b, err := store.One(ctx, s.q, func(r store.Row) (domain.Blob, error) {
		var b domain.Blob
		err := r.Scan(&b.ContentType, &b.Data)
		return b, err
	}, `SELECT content_type, data FROM audio_blobs WHERE comment_id = $1::uuid`, commentID.String())
	if err != nil {
		if perr.IsCode(err, perr.ErrorCodeNotFound) {
			return domain.Blob{}, perr.NotFoundf("audio for comment %s not found", commentID)
		}
		return domain.Blob{}, perr.FromPostgres(err, "get audio")
	}
	return b, nil
}
