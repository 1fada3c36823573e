// Package storage adapts S3-compatible object storage (MinIO) to the
// acquisition ports: checklist document uploads and contract PDF downloads.
package storage

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// DocumentStorage is what the acquisition pipeline needs from object storage.
type DocumentStorage interface {
	// Upload stores data under {org}/{folder}/ and returns its durable URL.
	Upload(ctx context.Context, orgID uuid.UUID, folder, fileName, contentType string, data []byte) (string, error)

	// DownloadPDF opens a stored contract PDF. The caller closes the reader.
	DownloadPDF(ctx context.Context, fileKey string) (io.ReadCloser, error)

	// EnsureBuckets creates the configured buckets when missing.
	EnsureBuckets(ctx context.Context) error
}

// Config defines the configuration interface for storage.
type Config interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	GetMinIOPublicBaseURL() string
	GetMinioBucketAcquisitionDocuments() string
	GetMinioBucketContractPDFs() string
	IsMinIOEnabled() bool
}
