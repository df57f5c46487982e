package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"timeline/internal/platform/config"
	perr "timeline/internal/platform/errors"
	"timeline/internal/platform/testkit"
	"timeline/internal/services/posts/domain"
	"timeline/internal/services/posts/repo"
)

// fakeS3 is an in-memory bucket
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]fakeObject
	fail    error
}

type fakeObject struct {
	data        []byte
	contentType string
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	data, _ := io.ReadAll(in.Body)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects == nil {
		f.objects = map[string]fakeObject{}
	}
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = fakeObject{data: data, contentType: aws.ToString(in.ContentType)}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body:        io.NopCloser(bytes.NewReader(o.data)),
		ContentType: aws.String(o.contentType),
	}, nil
}

func TestS3_PutGet(t *testing.T) {
	ctx := context.Background()
	fake := &fakeS3{}
	st := NewS3(fake, "media", "audio")
	id := uuid.New()

	if err := st.PutAudio(ctx, id, domain.Blob{ContentType: "audio/mp4", Data: []byte{1, 2, 3}}); err != nil {
		t.Fatal(err)
	}
	if _, ok := fake.objects["media/audio/"+id.String()]; !ok {
		t.Fatalf("object key not prefixed: %v", fake.objects)
	}
	b, err := st.GetAudio(ctx, id)
	if err != nil || b.ContentType != "audio/mp4" || !bytes.Equal(b.Data, []byte{1, 2, 3}) {
		t.Fatalf("GetAudio = %+v, %v", b, err)
	}
	if _, err := st.GetAudio(ctx, uuid.New()); !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("missing object err = %v", err)
	}

	fake.fail = errors.New("throttled")
	if err := st.PutAudio(ctx, id, domain.Blob{}); !perr.IsCode(err, perr.ErrorCodeUnavailable) {
		t.Fatalf("put failure err = %v", err)
	}
}

func TestFromStorage(t *testing.T) {
	ctx := context.Background()
	st := FromStorage(repo.NewMemory())
	id := uuid.New()
	if err := st.PutAudio(ctx, id, domain.Blob{ContentType: "audio/aac", Data: []byte("a")}); err != nil {
		t.Fatal(err)
	}
	if b, err := st.GetAudio(ctx, id); err != nil || string(b.Data) != "a" {
		t.Fatalf("GetAudio = %+v, %v", b, err)
	}
}

func TestFromConfigAndOpen(t *testing.T) {
	testkit.Serial(t)
	t.Setenv("TIMELINE_MEDIA_BACKEND", "S3")
	t.Setenv("TIMELINE_MEDIA_S3_BUCKET", "")

	cfg := FromConfig(config.New())
	if cfg.Backend != BackendS3 || cfg.Region != "us-east-1" || cfg.Prefix != "audio/" {
		t.Fatalf("config = %+v", cfg)
	}
	if _, err := Open(context.Background(), cfg, repo.NewMemory()); err == nil {
		t.Fatalf("s3 without bucket should fail")
	}

	cfg.Backend = BackendDB
	if st, err := Open(context.Background(), cfg, repo.NewMemory()); err != nil || st == nil {
		t.Fatalf("db backend = %v, %v", st, err)
	}
	if objectKey("p", uuid.Nil) != "p/"+uuid.Nil.String() || objectKey("", uuid.Nil) != uuid.Nil.String() {
		t.Fatalf("objectKey prefix handling")
	}
}
