package ocr

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"acquisition_backend/internal/acquisition/checklist"
	"acquisition_backend/internal/acquisition/domain"
	"acquisition_backend/internal/acquisition/ports"
	"acquisition_backend/platform/apperr"
	"acquisition_backend/platform/logger"
)

type fakeExtractor struct {
	result          domain.ExtractionResult
	err             error
	contractCalls   int
	standaloneCalls int
}

func (f *fakeExtractor) ExtractForContract(_ context.Context, _ domain.MediationContract, _ ports.Image, _ domain.DocumentType) (domain.ExtractionResult, error) {
	f.contractCalls++
	return f.result, f.err
}

func (f *fakeExtractor) ExtractStandalone(_ context.Context, _ ports.Image, _ domain.DocumentType) (domain.ExtractionResult, error) {
	f.standaloneCalls++
	return f.result, f.err
}

func image() ports.Image {
	return ports.Image{Data: []byte("jpeg"), MIMEType: "image/jpeg", FileName: "capture.jpg"}
}

func TestClassifyAndExtractRoutesOnContract(t *testing.T) {
	ext := &fakeExtractor{result: domain.ExtractionResult{Success: true, DetectedType: domain.DocIDFront, Confidence: 0.9}}
	p := NewPipeline(ext, 0.5, logger.Discard())

	if _, err := p.ClassifyAndExtract(context.Background(), image(), domain.DocIDFront, nil); err != nil {
		t.Fatalf("standalone: %v", err)
	}
	contract := domain.MediationContract{ID: uuid.New()}
	if _, err := p.ClassifyAndExtract(context.Background(), image(), domain.DocIDFront, &contract); err != nil {
		t.Fatalf("contract scoped: %v", err)
	}
	if ext.standaloneCalls != 1 || ext.contractCalls != 1 {
		t.Fatalf("expected one call per mode, got standalone=%d contract=%d", ext.standaloneCalls, ext.contractCalls)
	}
}

func TestIngestUsesDetectedType(t *testing.T) {
	ext := &fakeExtractor{result: domain.ExtractionResult{
		Success:      true,
		DetectedType: "certidao_permanente",
		Confidence:   0.92,
		Fields: map[string]string{
			domain.FieldCadastralArticle: "U-4821",
			domain.FieldPostalCode:       "4000-123",
			domain.FieldMunicipality:     "Porto",
		},
	}}
	p := NewPipeline(ext, 0.5, logger.Discard())
	m := checklist.NewManager()

	out := p.Ingest(context.Background(), Capture{Image: image(), RequestedType: "caderneta_predial", TargetParty: domain.Party1}, nil, m)

	if out.Err != nil {
		t.Fatalf("unexpected error: %v", out.Err)
	}
	if out.Result.DetectedType != domain.DocPermanentCertificate {
		t.Fatalf("expected detected type to win, got %s", out.Result.DetectedType)
	}
	if out.Patch.Property.PostalCode != nil {
		t.Fatal("permanent-certificate mapping must not write postal code")
	}
	if out.Patch.Property.CadastralArticle == nil || *out.Patch.Property.CadastralArticle != "U-4821" {
		t.Fatalf("expected cadastral article, got %+v", out.Patch.Property)
	}
	if got := m.PendingByType(domain.DocPermanentCertificate); len(got) != 1 {
		t.Fatalf("expected capture pending under detected type, got %d", len(got))
	}
}

func TestIngestWritesOnlyTargetParty(t *testing.T) {
	ext := &fakeExtractor{result: domain.ExtractionResult{
		Success:      true,
		DetectedType: domain.DocIDBack,
		Confidence:   0.8,
		Fields: map[string]string{
			domain.FieldName:           "Maria  <b>Sousa</b>",
			domain.FieldTaxID:          "287654321",
			domain.FieldDocumentNumber: "30001234",
			domain.FieldDocumentExpiry: "2030-01-31",
		},
	}}
	p := NewPipeline(ext, 0.5, logger.Discard())

	out := p.Ingest(context.Background(), Capture{Image: image(), RequestedType: "cc_verso", TargetParty: domain.Party2}, nil, checklist.NewManager())

	if out.Patch.Party1 != nil {
		t.Fatal("party 1 must be untouched")
	}
	if out.Patch.Party2 == nil || *out.Patch.Party2.Name != "Maria Sousa" || *out.Patch.Party2.DocumentExpiry != "2030-01-31" {
		t.Fatalf("unexpected party 2 patch %+v", out.Patch.Party2)
	}
	if out.TargetParty != domain.Party2 {
		t.Fatal("target party must be carried through unchanged")
	}
}

func TestIngestFailureKeepsPendingAndWritesNothing(t *testing.T) {
	ext := &fakeExtractor{result: domain.ExtractionResult{Success: false, DetectedType: domain.DocIDFront, Message: "blurred"}}
	p := NewPipeline(ext, 0.5, logger.Discard())
	m := checklist.NewManager()

	out := p.Ingest(context.Background(), Capture{Image: image(), RequestedType: "cc_frente", TargetParty: domain.Party1}, nil, m)

	if !apperr.Is(out.Err, apperr.KindExtraction) {
		t.Fatalf("expected extraction failure, got %v", out.Err)
	}
	if !out.Patch.IsEmpty() {
		t.Fatalf("expected no fields written, got %+v", out.Patch)
	}
	if len(m.Pending()) != 1 || out.PendingIndex != 0 {
		t.Fatal("capture must stay pending after a failed extraction")
	}
}

func TestIngestTransportErrorKeepsPending(t *testing.T) {
	ext := &fakeExtractor{err: errors.New("timeout")}
	p := NewPipeline(ext, 0.5, logger.Discard())
	m := checklist.NewManager()

	out := p.Ingest(context.Background(), Capture{Image: image(), RequestedType: "caderneta_predial"}, nil, m)

	if !apperr.Is(out.Err, apperr.KindExtraction) {
		t.Fatalf("expected extraction failure, got %v", out.Err)
	}
	if got := m.PendingByType(domain.DocPropertyTaxCard); len(got) != 1 {
		t.Fatal("capture must stay pending under the requested type")
	}
}

func TestLowConfidenceIsFailure(t *testing.T) {
	ext := &fakeExtractor{result: domain.ExtractionResult{
		Success:      true,
		DetectedType: domain.DocEnergyCertificate,
		Confidence:   0.3,
		Fields:       map[string]string{domain.FieldEnergyClass: "B"},
	}}
	p := NewPipeline(ext, 0.5, logger.Discard())

	out := p.Ingest(context.Background(), Capture{Image: image(), RequestedType: "certificado_energetico"}, nil, checklist.NewManager())

	if out.Result.Success || !apperr.Is(out.Err, apperr.KindExtraction) {
		t.Fatalf("expected low confidence to fail, got %+v %v", out.Result, out.Err)
	}
	if !out.Patch.IsEmpty() {
		t.Fatal("low confidence must not write fields")
	}
}

func TestUnrecognizedDetectedTypeFallsBackToGeneric(t *testing.T) {
	ext := &fakeExtractor{result: domain.ExtractionResult{
		Success:      true,
		DetectedType: "recibo_renda",
		Confidence:   0.9,
		Fields:       map[string]string{domain.FieldName: "x"},
	}}
	p := NewPipeline(ext, 0.5, logger.Discard())
	m := checklist.NewManager()

	out := p.Ingest(context.Background(), Capture{Image: image(), RequestedType: "cc_frente"}, nil, m)

	if out.Result.DetectedType != domain.DocGenericOwner || !out.Patch.IsEmpty() {
		t.Fatalf("expected generic with no fields, got %s %+v", out.Result.DetectedType, out.Patch)
	}
	if len(m.PendingByType(domain.DocGenericOwner)) != 1 {
		t.Fatal("expected generic pending document")
	}
}
