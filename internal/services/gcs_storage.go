package services

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"

	"github.com/shutterverse/backend/internal/models"
)

// GCSStorage implements ObjectStorage against a Firebase Storage bucket.
// Handles are V4 signed PUT URLs under pending/; moderation promotes safe
// objects to photos/ before the ref is attached to a record.
type GCSStorage struct {
	client *storage.Client
	bucket string
}

func NewGCSStorage(ctx context.Context, bucket string) (*GCSStorage, error) {
	// Uses Application Default Credentials in Cloud Run.
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs: storage client: %w", err)
	}
	return &GCSStorage{client: client, bucket: bucket}, nil
}

func (s *GCSStorage) Close() error {
	return s.client.Close()
}

func (s *GCSStorage) IssueUploadHandle(ctx context.Context, contentType string) (*models.UploadHandle, error) {
	ref := "pending/" + uuid.New().String() + extForContentType(contentType)

	url, err := s.client.Bucket(s.bucket).SignedURL(ref, &storage.SignedURLOptions{
		Scheme:      storage.SigningSchemeV4,
		Method:      http.MethodPut,
		ContentType: contentType,
		Expires:     time.Now().Add(15 * time.Minute),
	})
	if err != nil {
		return nil, fmt.Errorf("gcs: signed url: %w", err)
	}

	return &models.UploadHandle{Ref: ref, URL: url}, nil
}

func (s *GCSStorage) ResolveURL(ref string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, ref)
}

func (s *GCSStorage) Remove(ctx context.Context, ref string) error {
	err := s.client.Bucket(s.bucket).Object(ref).Delete(ctx)
	if err != nil && err != storage.ErrObjectNotExist {
		return err
	}
	return nil
}

// Promote copies a pending object to its final path and deletes the pending
// one. Returns the final ref.
func (s *GCSStorage) Promote(ctx context.Context, pendingRef, finalRef string) (string, error) {
	bkt := s.client.Bucket(s.bucket)
	src := bkt.Object(pendingRef)
	dst := bkt.Object(finalRef)

	if _, err := dst.CopierFrom(src).Run(ctx); err != nil {
		return "", fmt.Errorf("gcs: promote copy: %w", err)
	}
	if err := src.Delete(ctx); err != nil && err != storage.ErrObjectNotExist {
		return "", fmt.Errorf("gcs: promote delete: %w", err)
	}
	return finalRef, nil
}
