package storage

import (
	"fmt"
	"strings"

	"acquisition_backend/platform/apperr"
)

// AllowedContentTypes defines the allowed MIME types for checklist documents.
var AllowedContentTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"image/heic":      true,
	"image/heif":      true,
	"application/pdf": true,
}

// ValidateContentType checks if the content type is allowed.
func (s *MinIOService) ValidateContentType(contentType string) error {
	if !IsAllowedContentType(contentType) {
		return apperr.Validation(fmt.Sprintf("content type %q is not allowed", contentType))
	}
	return nil
}

// ValidateFileSize checks if the file size is within limits.
func (s *MinIOService) ValidateFileSize(sizeBytes int64) error {
	if sizeBytes <= 0 {
		return apperr.Validation("file size must be greater than 0")
	}
	if s.maxFileSize > 0 && sizeBytes > s.maxFileSize {
		return apperr.Validation(fmt.Sprintf("file size %d bytes exceeds maximum allowed size of %d bytes", sizeBytes, s.maxFileSize))
	}
	return nil
}

// IsAllowedContentType normalizes the content type (dropping parameters) and checks it.
func IsAllowedContentType(contentType string) bool {
	normalized := strings.Split(contentType, ";")[0]
	normalized = strings.TrimSpace(strings.ToLower(normalized))
	return AllowedContentTypes[normalized]
}
