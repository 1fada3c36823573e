package ocr

import (
	"context"

	"acquisition_backend/internal/acquisition/domain"
	"acquisition_backend/internal/acquisition/ports"
	"acquisition_backend/platform/apperr"
)

// UnavailableExtractor is used when no OCR model is configured. Every
// capture still lands in the pending list; the agent fills the form by hand.
type UnavailableExtractor struct{}

var _ ports.Extractor = UnavailableExtractor{}

func (UnavailableExtractor) ExtractForContract(context.Context, domain.MediationContract, ports.Image, domain.DocumentType) (domain.ExtractionResult, error) {
	return domain.ExtractionResult{}, apperr.Extraction("document extraction is not configured")
}

func (UnavailableExtractor) ExtractStandalone(context.Context, ports.Image, domain.DocumentType) (domain.ExtractionResult, error) {
	return domain.ExtractionResult{}, apperr.Extraction("document extraction is not configured")
}
