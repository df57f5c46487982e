// Package repo stores posts, comments and audio blobs in Postgres or memory
package repo

import (
	"context"

	"github.com/google/uuid"

	"timeline/internal/services/posts/domain"
)

// Storage is the posts persistence surface
type Storage interface {
	ListPosts(ctx context.Context, limit int) ([]domain.Post, error)
	GetPost(ctx context.Context, id uuid.UUID) (domain.Post, error)
	InsertPost(ctx context.Context, p domain.Post) error
	InsertComment(ctx context.Context, c domain.Comment) error
	PutAudio(ctx context.Context, commentID uuid.UUID, b domain.Blob) error
	GetAudio(ctx context.Context, commentID uuid.UUID) (domain.Blob, error)
}

// Repo is Storage plus transactions
type Repo interface {
	Storage
	// Tx runs fn against a Storage whose writes commit only when fn returns nil
	Tx(ctx context.Context, fn func(Storage) error) error
}
