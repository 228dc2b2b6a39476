// Package uploads stores testimonial avatar images in S3-compatible object storage.
package uploads

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const maxAvatarBytes = 2 << 20 // 2 MiB

var (
	ErrEmptyUpload     = errors.New("upload is empty")
	ErrUploadTooLarge  = errors.New("upload exceeds size limit")
	ErrUnsupportedType = errors.New("unsupported image type")
)

var avatarExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
}

// Service wraps a MinIO client for avatar storage.
type Service struct {
	client *minio.Client
	bucket string
}

// NewService creates an object storage client for the given endpoint.
func NewService(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*Service, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &Service{client: client, bucket: bucket}, nil
}

// EnsureBucket creates the bucket if it does not exist yet.
func (s *Service) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("make bucket: %w", err)
	}
	return nil
}

// UploadAvatar validates and stores an avatar image, returning the object key.
func (s *Service) UploadAvatar(ctx context.Context, testimonialID string, data []byte) (string, error) {
	contentType, ext, err := validateAvatar(data)
	if err != nil {
		return "", err
	}

	objectName := "avatars/" + testimonialID + ext
	_, err = s.client.PutObject(ctx, s.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put avatar object: %w", err)
	}
	return objectName, nil
}

// PublicURL returns the browsable address of a stored object.
func (s *Service) PublicURL(objectName string) string {
	return s.client.EndpointURL().String() + "/" + s.bucket + "/" + objectName
}

// DeleteAvatar removes a stored avatar object.
func (s *Service) DeleteAvatar(ctx context.Context, objectName string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, objectName, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove avatar object: %w", err)
	}
	return nil
}

// validateAvatar sniffs the content type and enforces the size limit.
func validateAvatar(data []byte) (contentType, ext string, err error) {
	if len(data) == 0 {
		return "", "", ErrEmptyUpload
	}
	if len(data) > maxAvatarBytes {
		return "", "", ErrUploadTooLarge
	}

	contentType = http.DetectContentType(data)
	ext, ok := avatarExtensions[contentType]
	if !ok {
		return "", "", ErrUnsupportedType
	}
	return contentType, ext, nil
}
