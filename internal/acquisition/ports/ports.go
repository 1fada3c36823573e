// Package ports defines the collaborators the acquisition domain depends on.
// Every store method is scoped to an organization; implementations return
// apperr.NotFound for missing entities and apperr.Conflict when a 1:1 child
// already exists for its First Impression.
package ports

import (
	"context"
	"io"

	"github.com/google/uuid"

	"acquisition_backend/internal/acquisition/domain"
)

// FirstImpressionStore persists First Impressions.
type FirstImpressionStore interface {
	CreateFirstImpression(ctx context.Context, fi domain.FirstImpression) (domain.FirstImpression, error)
	GetFirstImpression(ctx context.Context, orgID, id uuid.UUID) (domain.FirstImpression, error)
	UpdateFirstImpression(ctx context.Context, fi domain.FirstImpression) (domain.FirstImpression, error)
	UpdateFirstImpressionStatus(ctx context.Context, orgID, id uuid.UUID, status domain.Status) (domain.FirstImpression, error)
}

// FolderStore persists Pre-Listing Folders and their document list.
type FolderStore interface {
	// CreateFolderFromFirstImpression returns NotFound when the First Impression
	// is missing and Conflict when its folder already exists.
	CreateFolderFromFirstImpression(ctx context.Context, orgID, firstImpressionID uuid.UUID) (domain.PreListingFolder, error)
	GetFolder(ctx context.Context, orgID, id uuid.UUID) (domain.PreListingFolder, error)
	GetFolderByFirstImpression(ctx context.Context, orgID, firstImpressionID uuid.UUID) (domain.PreListingFolder, error)
	UpdateFolder(ctx context.Context, orgID, id uuid.UUID, update domain.FolderUpdate) (domain.PreListingFolder, error)
	// AddFolderDocument appends one record; the list is append-only per call.
	AddFolderDocument(ctx context.Context, orgID, folderID uuid.UUID, doc domain.DocumentRecord) (domain.PreListingFolder, error)
	// RemoveFolderDocument deletes by list index.
	RemoveFolderDocument(ctx context.Context, orgID, folderID uuid.UUID, index int) (domain.PreListingFolder, error)
}

// ContractStore persists Mediation Contracts.
type ContractStore interface {
	// CreateContractFromFirstImpression has the same NotFound/Conflict contract
	// as CreateFolderFromFirstImpression.
	CreateContractFromFirstImpression(ctx context.Context, orgID, firstImpressionID uuid.UUID) (domain.MediationContract, error)
	GetContract(ctx context.Context, orgID, id uuid.UUID) (domain.MediationContract, error)
	GetContractByFirstImpression(ctx context.Context, orgID, firstImpressionID uuid.UUID) (domain.MediationContract, error)
	UpdateContract(ctx context.Context, contract domain.MediationContract) (domain.MediationContract, error)
	UpdateContractStatus(ctx context.Context, orgID, id uuid.UUID, status domain.Status) (domain.MediationContract, error)
	AddClientSignature(ctx context.Context, orgID, id uuid.UUID, sig domain.ClientSignature) (domain.MediationContract, error)
	AddAgentSignature(ctx context.Context, orgID, id uuid.UUID, imageURL string) (domain.MediationContract, error)
}

// Image is a captured image handed to the extractor.
type Image struct {
	Data     []byte
	MIMEType string
	FileName string
}

// Extractor classifies an image and extracts its fields.
type Extractor interface {
	// ExtractForContract runs with the contract as context and records the
	// result against it.
	ExtractForContract(ctx context.Context, contract domain.MediationContract, img Image, requested domain.DocumentType) (domain.ExtractionResult, error)
	// ExtractStandalone runs before any contract exists.
	ExtractStandalone(ctx context.Context, img Image, requested domain.DocumentType) (domain.ExtractionResult, error)
}

// ExtractionLog stores contract-scoped extraction results.
type ExtractionLog interface {
	RecordExtraction(ctx context.Context, contractID uuid.UUID, requested domain.DocumentType, result domain.ExtractionResult) error
}

// FileStorage uploads bytes and returns a durable URL.
type FileStorage interface {
	Upload(ctx context.Context, orgID uuid.UUID, folder, fileName, contentType string, data []byte) (string, error)
}

// ContractPDFs fetches the stored contract PDF artifact.
type ContractPDFs interface {
	DownloadPDF(ctx context.Context, fileKey string) (io.ReadCloser, error)
}
