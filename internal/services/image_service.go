package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/shutterverse/backend/internal/models"
)

var (
	ErrImageNotFound = errors.New("image not found")
	ErrInvalidImage  = errors.New("invalid image file")
)

// ObjectStorage is the binary storage collaborator. Uploads are two-phase:
// the client asks for a handle, pushes bytes to the handle's URL, then
// attaches the handle's ref to the photo record. This package never sees the
// photo bytes on the GCS path and only streams them to disk on the local one.
type ObjectStorage interface {
	IssueUploadHandle(ctx context.Context, contentType string) (*models.UploadHandle, error)
	ResolveURL(ref string) string
	// Remove deletes the stored object. Best effort; photo records outlive
	// missing objects.
	Remove(ctx context.Context, ref string) error
}

// LocalImageStore keeps images on disk under uploadDir and serves them from
// /uploads/. Dev-mode implementation of ObjectStorage.
type LocalImageStore struct {
	uploadDir string
}

func NewLocalImageStore(uploadDir string) *LocalImageStore {
	// Create upload directory if it doesn't exist
	os.MkdirAll(uploadDir, 0755)

	return &LocalImageStore{uploadDir: uploadDir}
}

func (s *LocalImageStore) IssueUploadHandle(ctx context.Context, contentType string) (*models.UploadHandle, error) {
	ref := uuid.New().String() + extForContentType(contentType)
	return &models.UploadHandle{
		Ref: ref,
		URL: "/api/upload/" + ref,
	}, nil
}

func (s *LocalImageStore) ResolveURL(ref string) string {
	return "/uploads/" + ref
}

// Put streams uploaded bytes into the file backing an issued handle.
func (s *LocalImageStore) Put(ref string, file io.Reader) error {
	if !validRef(ref) {
		return ErrInvalidImage
	}

	filePath := filepath.Join(s.uploadDir, ref)
	dst, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		os.Remove(filePath) // Clean up on error
		return fmt.Errorf("failed to save file: %w", err)
	}
	return nil
}

// Store saves a directly uploaded file (multipart form path) and returns its
// handle in one step.
func (s *LocalImageStore) Store(filename string, file io.Reader) (*models.UploadHandle, error) {
	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".jpg"
	}
	ref := uuid.New().String() + ext

	if err := s.Put(ref, file); err != nil {
		return nil, err
	}
	return &models.UploadHandle{Ref: ref, URL: s.ResolveURL(ref)}, nil
}

func (s *LocalImageStore) Remove(ctx context.Context, ref string) error {
	if !validRef(ref) {
		return ErrInvalidImage
	}
	if err := os.Remove(filepath.Join(s.uploadDir, ref)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// validRef rejects refs that could escape the upload directory.
func validRef(ref string) bool {
	if ref == "" || strings.Contains(ref, "/") || strings.Contains(ref, "\\") || strings.Contains(ref, "..") {
		return false
	}
	return true
}

func extForContentType(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
