package payload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"

	"github.com/minio/minio-go/v7"
)

// ObjectStore keeps payloads as JSON objects in a bucket. Objects are not
// deleted on expiry; configure a bucket lifecycle rule for that.
type ObjectStore struct {
	policy
	client *minio.Client
	bucket string
	prefix string
}

// NewObjectStore returns a store writing below prefix in bucket.
func NewObjectStore(client *minio.Client, bucket, prefix string, opts ...Option) *ObjectStore {
	return &ObjectStore{policy: newPolicy(opts), client: client, bucket: bucket, prefix: prefix}
}

func (s *ObjectStore) key(id string) string {
	return path.Join(s.prefix, id+".json")
}

// Put implements Store.
func (s *ObjectStore) Put(ctx context.Context, p *Payload) (*Stored, error) {
	data, err := s.seal(p)
	if err != nil {
		return nil, err
	}
	stored := s.stored(p, data)

	_, err = s.client.PutObject(ctx, s.bucket, s.key(p.Meta.ID), bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{
			ContentType: "application/json",
			UserMetadata: map[string]string{
				"digest": stored.ETag,
				"source": p.Meta.Source,
			},
		})
	if err != nil {
		return nil, fmt.Errorf("failed to upload payload %s: %w", p.Meta.ID, err)
	}
	return stored, nil
}

// Get implements Store.
func (s *ObjectStore) Get(ctx context.Context, id string) (*Stored, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.key(id), minio.GetObjectOptions{})
	if err != nil {
		return nil, s.readErr(id, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, s.readErr(id, err)
	}
	return s.open(id, data)
}

func (s *ObjectStore) readErr(id string, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return fmt.Errorf("payload %s: %w", id, ErrNotFound)
	}
	return fmt.Errorf("failed to download payload %s: %w", id, err)
}

// Delete implements Store.
func (s *ObjectStore) Delete(ctx context.Context, id string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, s.key(id), minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete payload %s: %w", id, err)
	}
	return nil
}

// Ping checks that the bucket is reachable.
func (s *ObjectStore) Ping(ctx context.Context) error {
	ok, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to reach bucket %s: %w", s.bucket, err)
	}
	if !ok {
		return fmt.Errorf("bucket %s does not exist", s.bucket)
	}
	return nil
}
