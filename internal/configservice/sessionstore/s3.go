package sessionstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/imamik/chainfleet/internal/configservice"
	"github.com/imamik/chainfleet/internal/util/naming"
)

// ObjectStore is the subset of the s3 client the S3 backend needs.
type ObjectStore interface {
	PutObjectIfAbsent(ctx context.Context, bucket, key string, data []byte) error
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
	HeadObject(ctx context.Context, bucket, key string) (string, error)
	DeleteObjectIfMatch(ctx context.Context, bucket, key, etag string) error
}

// S3 stores each session as one JSON object.
type S3 struct {
	objects ObjectStore
	bucket  string
	prefix  string
}

var _ configservice.SessionStore = (*S3)(nil)

// NewS3 creates an S3 backend writing under bucket/prefix.
func NewS3(objects ObjectStore, bucket, prefix string) *S3 {
	return &S3{objects: objects, bucket: bucket, prefix: prefix}
}

func (s *S3) key(id configservice.SessionID) string {
	return naming.SessionObjectKey(s.prefix, id.String())
}

// Insert implements configservice.SessionStore.
func (s *S3) Insert(ctx context.Context, session *configservice.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", session.ID, err)
	}
	return s.objects.PutObjectIfAbsent(ctx, s.bucket, s.key(session.ID), data)
}

// Get implements configservice.SessionStore.
func (s *S3) Get(ctx context.Context, id configservice.SessionID) (*configservice.Session, error) {
	data, err := s.objects.GetObject(ctx, s.bucket, s.key(id))
	if err != nil {
		return nil, err
	}
	return decodeSession(id, data)
}

// Delete implements configservice.SessionStore.
func (s *S3) Delete(ctx context.Context, id configservice.SessionID) error {
	etag, err := s.objects.HeadObject(ctx, s.bucket, s.key(id))
	if err != nil {
		return err
	}
	return s.objects.DeleteObjectIfMatch(ctx, s.bucket, s.key(id), etag)
}

func decodeSession(id configservice.SessionID, data []byte) (*configservice.Session, error) {
	var session configservice.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	return &session, nil
}
