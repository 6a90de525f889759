// Package archive stores generated documents in S3-compatible object storage.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/jkindrix/draftwise/internal/config"
	"github.com/jkindrix/draftwise/internal/domain"
)

const defaultRegion = "us-east-1"

// Archiver keeps a copy of every generation outside the database.
type Archiver interface {
	Put(ctx context.Context, gen *domain.Generation) error
	Delete(ctx context.Context, owner string, id uuid.UUID) error
}

// ObjectKey returns the object name of a generation.
func ObjectKey(owner string, id uuid.UUID) string {
	if owner == "" {
		owner = domain.AnonymousOwner
	}
	return fmt.Sprintf("generations/%s/%s.md", owner, id)
}

// Document renders gen as a markdown file with a title header.
func Document(gen *domain.Generation) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", gen.Title())
	fmt.Fprintf(&b, "- Type: %s\n", gen.ContentType.Label())
	fmt.Fprintf(&b, "- Tone: %s\n", gen.Tone)
	fmt.Fprintf(&b, "- Word limit: %d\n", gen.WordLimit)
	fmt.Fprintf(&b, "- Updated: %s\n\n", gen.UpdatedAt.UTC().Format(time.RFC3339))
	b.WriteString(strings.TrimSpace(gen.GeneratedContent))
	b.WriteString("\n")
	return []byte(b.String())
}

// MinioArchive writes documents to a bucket with minio-go.
type MinioArchive struct {
	client   *minio.Client
	bucket   string
	initOnce sync.Once
	initErr  error
}

// Option configures a MinioArchive.
type Option func(*minio.Options)

// WithPathStyle forces path-style bucket addressing.
func WithPathStyle() Option {
	return func(o *minio.Options) { o.BucketLookup = minio.BucketLookupPath }
}

// NewMinioArchive creates an archive client. The bucket is created on first
// use when missing.
func NewMinioArchive(cfg config.ArchiveConfig, opts ...Option) (*MinioArchive, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("archive endpoint is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("archive access key and secret key are required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("archive bucket is required")
	}

	mo := &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: defaultRegion,
	}
	for _, opt := range opts {
		opt(mo)
	}
	client, err := minio.New(endpoint, mo)
	if err != nil {
		return nil, fmt.Errorf("init archive client: %w", err)
	}
	return &MinioArchive{client: client, bucket: cfg.Bucket}, nil
}

func (a *MinioArchive) ensureBucket(ctx context.Context) error {
	a.initOnce.Do(func() {
		exists, err := a.client.BucketExists(ctx, a.bucket)
		if err != nil {
			a.initErr = err
			return
		}
		if !exists {
			a.initErr = a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{Region: defaultRegion})
		}
	})
	return a.initErr
}

// Put writes the generation's document, replacing any previous version.
func (a *MinioArchive) Put(ctx context.Context, gen *domain.Generation) error {
	if err := a.ensureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}
	doc := Document(gen)
	_, err := a.client.PutObject(ctx, a.bucket, ObjectKey(gen.UserID, gen.ID), bytes.NewReader(doc), int64(len(doc)),
		minio.PutObjectOptions{
			ContentType: "text/markdown; charset=utf-8",
			UserMetadata: map[string]string{
				"content-type-key": string(gen.ContentType),
			},
		})
	if err != nil {
		return fmt.Errorf("failed to put document: %w", err)
	}
	return nil
}

// Delete removes the generation's document. A missing object is not an error.
func (a *MinioArchive) Delete(ctx context.Context, owner string, id uuid.UUID) error {
	if err := a.ensureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}
	if err := a.client.RemoveObject(ctx, a.bucket, ObjectKey(owner, id), minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove document: %w", err)
	}
	return nil
}

// Nop is the archive used when archiving is disabled.
type Nop struct{}

// Put does nothing.
func (Nop) Put(context.Context, *domain.Generation) error {
	return nil
}

// Delete does nothing.
func (Nop) Delete(context.Context, string, uuid.UUID) error {
	return nil
}
