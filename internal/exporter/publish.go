package exporter

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"

	"github.com/minio/minio-go/v7"
)

// Publisher uploads rendered exports to an S3 compatible bucket.
type Publisher struct {
	client *minio.Client
	bucket string
	prefix string
	logger *slog.Logger
}

// NewPublisher returns a Publisher storing objects under prefix in bucket.
func NewPublisher(client *minio.Client, bucket, prefix string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{client: client, bucket: bucket, prefix: prefix, logger: logger}
}

// Publish uploads data as name and returns the object key.
func (p *Publisher) Publish(ctx context.Context, name string, f Format, data []byte) (string, error) {
	key := path.Join(p.prefix, name)
	info, err := p.client.PutObject(ctx, p.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: f.ContentType()})
	if err != nil {
		return "", fmt.Errorf("failed to publish %s: %w", key, err)
	}

	p.logger.InfoContext(ctx, "export published",
		slog.String("bucket", p.bucket),
		slog.String("key", key),
		slog.Int64("size", info.Size))
	return key, nil
}
