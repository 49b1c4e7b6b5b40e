// Package storage provides the S3-compatible object storage adapter used for
// proof-of-visit attachments. The engine only ever holds object keys; bytes go
// straight from the field client to the bucket through presigned URLs.
package storage

import (
	"context"
	"time"
)

// PresignedURL contains the URL and metadata for a presigned upload/download operation.
type PresignedURL struct {
	URL       string    `json:"url"`
	FileKey   string    `json:"fileKey"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// StorageService defines the object storage operations the engine needs.
type StorageService interface {
	// GenerateUploadURL creates a presigned PUT URL under folder. The returned
	// FileKey is what the client later submits as the attachment reference.
	GenerateUploadURL(ctx context.Context, bucket, folder, fileName, contentType string, sizeBytes int64) (*PresignedURL, error)

	// GenerateDownloadURL creates a presigned GET URL for an existing key.
	GenerateDownloadURL(ctx context.Context, bucket, fileKey string) (*PresignedURL, error)

	// ObjectExists reports whether fileKey has been uploaded.
	ObjectExists(ctx context.Context, bucket, fileKey string) (bool, error)

	// EnsureBucketExists creates the bucket if it doesn't exist.
	EnsureBucketExists(ctx context.Context, bucket string) error
}

// Config defines the configuration interface for storage.
type Config interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	IsMinIOEnabled() bool
}
