// Package ocr classifies captured images, extracts their fields and maps
// them onto the contract form for the party chosen at capture time.
package ocr

import (
	"context"
	"fmt"
	"strings"

	"acquisition_backend/internal/acquisition/checklist"
	"acquisition_backend/internal/acquisition/domain"
	"acquisition_backend/internal/acquisition/ports"
	"acquisition_backend/platform/apperr"
	"acquisition_backend/platform/logger"
	"acquisition_backend/platform/sanitize"
)

// DefaultMinConfidence is used when no threshold is configured.
const DefaultMinConfidence = 0.5

// Pipeline routes extraction and maps results.
type Pipeline struct {
	extractor     ports.Extractor
	minConfidence float64
	log           *logger.Logger
}

// NewPipeline creates a pipeline. A non-positive minConfidence selects the default.
func NewPipeline(extractor ports.Extractor, minConfidence float64, log *logger.Logger) *Pipeline {
	if minConfidence <= 0 {
		minConfidence = DefaultMinConfidence
	}
	return &Pipeline{extractor: extractor, minConfidence: minConfidence, log: log}
}

// Capture is the agent's capture intent plus the image.
type Capture struct {
	Image         ports.Image
	RequestedType string
	TargetParty   domain.Party
}

// Outcome is the result of ingesting one capture.
type Outcome struct {
	Result        domain.ExtractionResult   `json:"result"`
	RequestedType domain.DocumentType       `json:"requestedType"`
	TargetParty   domain.Party              `json:"targetParty"`
	Patch         domain.ContractPatch      `json:"patch"`
	Pending       checklist.PendingDocument `json:"pending"`
	PendingIndex  int                       `json:"pendingIndex"`
	// Err is an ExtractionFailure; the capture is still pending.
	Err error `json:"-"`
}

// ClassifyAndExtract runs the contract-scoped extractor when a contract is
// given and the standalone one otherwise. A low-confidence success is
// reported as success=false. The returned error is always of kind Extraction.
func (p *Pipeline) ClassifyAndExtract(ctx context.Context, img ports.Image, requested domain.DocumentType, contract *domain.MediationContract) (domain.ExtractionResult, error) {
	var (
		result domain.ExtractionResult
		err    error
	)
	if contract != nil {
		result, err = p.extractor.ExtractForContract(ctx, *contract, img, requested)
	} else {
		result, err = p.extractor.ExtractStandalone(ctx, img, requested)
	}
	if err != nil {
		p.log.WithContext(ctx).ExtractionFailure(string(requested), err.Error())
		return domain.ExtractionResult{Success: false, DetectedType: requested, Message: "extraction unavailable"},
			apperr.Wrap(apperr.KindExtraction, "document extraction failed; fill the fields manually", err).WithOp("ocr.classify_and_extract")
	}

	result = normalize(result, requested)
	if result.Success && result.Confidence < p.minConfidence {
		result.Success = false
		result.Message = fmt.Sprintf("confidence %.2f below %.2f", result.Confidence, p.minConfidence)
	}
	if !result.Success {
		reason := result.Message
		if reason == "" {
			reason = "document could not be read"
		}
		p.log.WithContext(ctx).ExtractionFailure(string(requested), reason)
		return result, apperr.Extraction(reason).WithOp("ocr.classify_and_extract")
	}
	return result, nil
}

// Ingest extracts a capture, maps the fields by the detected type onto the
// capture's target party and appends the image to the pending list. The
// image is appended whether or not extraction succeeded.
func (p *Pipeline) Ingest(ctx context.Context, capture Capture, contract *domain.MediationContract, manager *checklist.Manager) Outcome {
	requested := domain.ParseDocumentType(capture.RequestedType)
	result, err := p.ClassifyAndExtract(ctx, capture.Image, requested, contract)

	outcome := Outcome{
		Result:        result,
		RequestedType: requested,
		TargetParty:   capture.TargetParty,
		Err:           err,
	}

	bucket := requested
	if err == nil {
		bucket = result.DetectedType
		outcome.Patch = domain.MapExtraction(result.DetectedType, capture.TargetParty, result.Fields)
	}

	outcome.Pending = checklist.NewPendingDocument(string(bucket), capture.Image.Data, capture.Image.MIMEType, capture.Image.FileName)
	outcome.PendingIndex = manager.AddPending(outcome.Pending)
	return outcome
}

func normalize(result domain.ExtractionResult, requested domain.DocumentType) domain.ExtractionResult {
	if strings.TrimSpace(string(result.DetectedType)) == "" {
		result.DetectedType = requested
	} else {
		result.DetectedType = domain.ParseDocumentType(string(result.DetectedType))
	}
	if result.Confidence < 0 {
		result.Confidence = 0
	}
	if result.Confidence > 1 {
		result.Confidence = 1
	}

	fields := make(map[string]string, len(result.Fields))
	for key, value := range result.Fields {
		if clean := sanitize.Text(value); clean != "" {
			fields[strings.ToLower(strings.TrimSpace(key))] = clean
		}
	}
	result.Fields = fields
	return result
}
