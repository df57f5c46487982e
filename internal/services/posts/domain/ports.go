package domain

import (
	"context"

	"github.com/google/uuid"
)

// PostController is what a post detail screen needs from the posts service
type PostController interface {
	Post(ctx context.Context, id uuid.UUID) (Post, error)
	AddComment(ctx context.Context, postID uuid.UUID, in AddCommentInput) (Comment, error)
	AddAudioComment(ctx context.Context, postID uuid.UUID, in AddAudioCommentInput) (Comment, error)
}

// ServicePort is the full posts surface served over HTTP
type ServicePort interface {
	PostController
	Posts(ctx context.Context, q ListQuery) ([]Post, error)
	CreatePost(ctx context.Context, in CreatePostInput) (Post, error)
	AudioBlob(ctx context.Context, commentID uuid.UUID) (Blob, error)
}

// MediaStore keeps audio payloads by comment id
type MediaStore interface {
	PutAudio(ctx context.Context, commentID uuid.UUID, b Blob) error
	GetAudio(ctx context.Context, commentID uuid.UUID) (Blob, error)
}
