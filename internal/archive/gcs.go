package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
)

const uploadTimeout = 2 * time.Minute

// Bucket stores and fetches archived report objects.
type Bucket interface {
	Put(ctx context.Context, name, contentType string, data []byte) error
	Get(ctx context.Context, name string) ([]byte, error)
}

// GCSBucket is a Bucket on Google Cloud Storage. It uses Application Default
// Credentials.
type GCSBucket struct {
	client *storage.Client
	name   string
}

var _ Bucket = (*GCSBucket)(nil)

func NewGCSBucket(ctx context.Context, bucketName string) (*GCSBucket, error) {
	if bucketName == "" {
		return nil, errors.New("missing GCS_BUCKET")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSBucket{client: client, name: bucketName}, nil
}

func (b *GCSBucket) Put(ctx context.Context, name, contentType string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := b.client.Bucket(b.name).Object(name).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write gs://%s/%s: %w", b.name, name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload gs://%s/%s: %w", b.name, name, err)
	}
	return nil
}

func (b *GCSBucket) Get(ctx context.Context, name string) ([]byte, error) {
	r, err := b.client.Bucket(b.name).Object(name).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("gs://%s/%s: %w", b.name, name, ErrNotArchived)
		}
		return nil, fmt.Errorf("open GCS object reader: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read GCS object: %w", err)
	}
	return data, nil
}

func (b *GCSBucket) Close() error {
	return b.client.Close()
}
