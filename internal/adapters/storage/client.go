package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"acquisition_backend/platform/apperr"
)

// MinIOService implements DocumentStorage using MinIO.
type MinIOService struct {
	client          *minio.Client
	documentsBucket string
	pdfBucket       string
	publicBaseURL   string
	maxFileSize     int64
}

var _ DocumentStorage = (*MinIOService)(nil)

// NewMinIOService creates a new MinIO storage service.
func NewMinIOService(cfg Config) (*MinIOService, error) {
	if !cfg.IsMinIOEnabled() {
		return nil, fmt.Errorf("MinIO is not configured")
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	publicBaseURL := strings.TrimRight(cfg.GetMinIOPublicBaseURL(), "/")
	if publicBaseURL == "" {
		publicBaseURL = strings.TrimRight(client.EndpointURL().String(), "/")
	}

	return &MinIOService{
		client:          client,
		documentsBucket: cfg.GetMinioBucketAcquisitionDocuments(),
		pdfBucket:       cfg.GetMinioBucketContractPDFs(),
		publicBaseURL:   publicBaseURL,
		maxFileSize:     cfg.GetMinIOMaxFileSize(),
	}, nil
}

// EnsureBuckets creates the documents and PDF buckets if they don't exist.
func (s *MinIOService) EnsureBuckets(ctx context.Context) error {
	for _, bucket := range []string{s.documentsBucket, s.pdfBucket} {
		if err := s.ensureBucketExists(ctx, bucket); err != nil {
			return err
		}
	}
	return nil
}

func (s *MinIOService) ensureBucketExists(ctx context.Context, bucket string) error {
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		err = s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
		}
	}

	return nil
}

// Upload stores a checklist document and returns its durable URL.
func (s *MinIOService) Upload(ctx context.Context, orgID uuid.UUID, folder, fileName, contentType string, data []byte) (string, error) {
	if err := s.ValidateContentType(contentType); err != nil {
		return "", err
	}
	if err := s.ValidateFileSize(int64(len(data))); err != nil {
		return "", err
	}

	fileKey := objectKey(orgID, folder, fileName)
	_, err := s.client.PutObject(ctx, s.documentsBucket, fileKey, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", apperr.Upload("failed to upload document", err).WithOp("storage.upload")
	}
	return s.publicURL(s.documentsBucket, fileKey), nil
}

// DownloadPDF opens a contract PDF. A missing object is NotFound.
func (s *MinIOService) DownloadPDF(ctx context.Context, fileKey string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.pdfBucket, fileKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", fileKey, err)
	}
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, apperr.NotFound("contract PDF not found")
		}
		return nil, fmt.Errorf("failed to stat object %s: %w", fileKey, err)
	}
	return obj, nil
}

// GetMaxFileSize returns the configured maximum file size in bytes.
func (s *MinIOService) GetMaxFileSize() int64 {
	return s.maxFileSize
}

func (s *MinIOService) publicURL(bucket, fileKey string) string {
	segments := strings.Split(fileKey, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return s.publicBaseURL + "/" + bucket + "/" + strings.Join(segments, "/")
}

// objectKey builds {org}/{folder}/{name}_{suffix}{ext}; the suffix keeps
// repeated captures of the same type from overwriting each other.
func objectKey(orgID uuid.UUID, folder, fileName string) string {
	ext := path.Ext(fileName)
	baseName := strings.TrimSuffix(path.Base(fileName), ext)
	if baseName == "" || baseName == "." || baseName == "/" {
		baseName = "document"
	}
	uniqueFileName := fmt.Sprintf("%s_%s%s", baseName, uuid.New().String()[:8], ext)
	return path.Join(orgID.String(), strings.Trim(folder, "/"), uniqueFileName)
}
