// Package media stores audio payloads in the database or an S3 bucket
package media

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"timeline/internal/platform/config"
	"timeline/internal/services/posts/domain"
	"timeline/internal/services/posts/repo"
)

// Backend selects where audio payloads live
type Backend string

const (
	BackendDB Backend = "db"
	BackendS3 Backend = "s3"
)

// Config selects and configures the media backend
type Config struct {
	Backend Backend

	Bucket          string
	Region          string
	Endpoint        string // set for MinIO or localstack; switches to path style
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
}

// FromConfig reads TIMELINE_MEDIA_* values
func FromConfig(cfg config.Conf) Config {
	mc := cfg.Prefix("TIMELINE_MEDIA_")
	return Config{
		Backend:         Backend(mc.MayEnum("BACKEND", string(BackendDB), string(BackendDB), string(BackendS3))),
		Bucket:          mc.MayString("S3_BUCKET", ""),
		Region:          mc.MayString("S3_REGION", "us-east-1"),
		Endpoint:        mc.MayString("S3_ENDPOINT", ""),
		Prefix:          mc.MayString("S3_PREFIX", "audio/"),
		AccessKeyID:     mc.MayString("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: mc.MayString("S3_SECRET_ACCESS_KEY", ""),
	}
}

// Open returns the configured store; the db backend writes through s
func Open(ctx context.Context, cfg Config, s repo.Storage) (domain.MediaStore, error) {
	switch cfg.Backend {
	case BackendS3:
		if cfg.Bucket == "" {
			return nil, fmt.Errorf("media: s3 backend requires a bucket")
		}
		client, err := NewS3Client(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return NewS3(client, cfg.Bucket, cfg.Prefix), nil
	case BackendDB, "":
		return FromStorage(s), nil
	default:
		return nil, fmt.Errorf("media: unknown backend %q", cfg.Backend)
	}
}

type storageStore struct{ s repo.Storage }

// FromStorage keeps payloads next to the posts rows
func FromStorage(s repo.Storage) domain.MediaStore { return storageStore{s: s} }

func (d storageStore) PutAudio(ctx context.Context, id uuid.UUID, b domain.Blob) error {
	return d.s.PutAudio(ctx, id, b)
}

func (d storageStore) GetAudio(ctx context.Context, id uuid.UUID) (domain.Blob, error) {
	return d.s.GetAudio(ctx, id)
}

func objectKey(prefix string, id uuid.UUID) string {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix + id.String()
}
