package checklist

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rwcarlsen/goexif/exif"

	"acquisition_backend/internal/acquisition/domain"
)

// PendingDocument is a captured image that has not been uploaded yet.
// It lives only in the owning session's memory.
type PendingDocument struct {
	Handle     string    `json:"handle"`
	DocType    string    `json:"docType"`
	MIMEType   string    `json:"mimeType"`
	FileName   string    `json:"fileName"`
	CapturedAt time.Time `json:"capturedAt"`
	Data       []byte    `json:"-"`
}

// NewPendingDocument wraps captured bytes. The capture time comes from the
// image EXIF when present, otherwise from now.
func NewPendingDocument(docType string, data []byte, mimeType, fileName string) PendingDocument {
	capturedAt := time.Now().UTC()
	if x, err := exif.Decode(bytes.NewReader(data)); err == nil {
		if taken, err := x.DateTime(); err == nil {
			capturedAt = taken.UTC()
		}
	}

	canonical := domain.ParseDocumentType(docType)
	if strings.TrimSpace(fileName) == "" {
		fileName = fmt.Sprintf("%s_%s%s", canonical, capturedAt.Format("20060102_150405"), extensionFor(mimeType))
	}

	return PendingDocument{
		Handle:     uuid.NewString(),
		DocType:    docType,
		MIMEType:   mimeType,
		FileName:   filepath.Base(fileName),
		CapturedAt: capturedAt,
		Data:       data,
	}
}

// Canonical maps the captured type onto the checklist vocabulary.
func (p PendingDocument) Canonical() domain.DocumentType {
	return domain.ParseDocumentType(p.DocType)
}

func extensionFor(mimeType string) string {
	switch strings.ToLower(mimeType) {
	case "image/png":
		return ".png"
	case "image/heic":
		return ".heic"
	case "application/pdf":
		return ".pdf"
	default:
		return ".jpg"
	}
}
