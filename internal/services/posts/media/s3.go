package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	perr "timeline/internal/platform/errors"
	"timeline/internal/services/posts/domain"
)

// S3API is the part of the s3 client the store calls
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// NewS3Client builds a client from cfg, falling back to the default AWS credential chain
func NewS3Client(ctx context.Context, cfg Config) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	if cfg.Endpoint == "" {
		return s3.NewFromConfig(awsCfg), nil
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	}), nil
}

// S3 keeps each payload as one object under prefix
type S3 struct {
	client S3API
	bucket string
	prefix string
}

// NewS3 returns a store on bucket
func NewS3(client S3API, bucket, prefix string) *S3 {
	return &S3{client: client, bucket: bucket, prefix: prefix}
}

// PutAudio uploads the payload with its content type
func (s *S3) PutAudio(ctx context.Context, id uuid.UUID, b domain.Blob) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(objectKey(s.prefix, id)),
		Body:          bytes.NewReader(b.Data),
		ContentLength: aws.Int64(int64(len(b.Data))),
		ContentType:   aws.String(b.ContentType),
	})
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "put audio %s", id)
	}
	return nil
}

// GetAudio downloads the payload; a missing object is NotFound
func (s *S3) GetAudio(ctx context.Context, id uuid.UUID) (domain.Blob, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(s.prefix, id)),
	})
	if err != nil {
		if isNotFound(err) {
			return domain.Blob{}, perr.NotFoundf("audio for comment %s not found", id)
		}
		return domain.Blob{}, perr.Wrapf(err, perr.ErrorCodeUnavailable, "get audio %s", id)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(io.LimitReader(out.Body, domain.MaxAudioBytes+1))
	if err != nil {
		return domain.Blob{}, perr.Wrapf(err, perr.ErrorCodeUnavailable, "read audio %s", id)
	}
	if len(data) > domain.MaxAudioBytes {
		return domain.Blob{}, perr.Newf(perr.ErrorCodeTooLarge, "audio %s exceeds %d bytes", id, domain.MaxAudioBytes)
	}
	return domain.Blob{ContentType: aws.ToString(out.ContentType), Data: data}, nil
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "404":
			return true
		}
	}
	return false
}
