package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"acquisition_backend/internal/acquisition/domain"
	"acquisition_backend/internal/acquisition/ports"
	"acquisition_backend/platform/apperr"
)

// Memory is an in-process implementation of every store port with the same
// NotFound/Conflict semantics as Repository. Used by tests and local runs.
type Memory struct {
	mu               sync.Mutex
	firstImpressions map[uuid.UUID]domain.FirstImpression
	folders          map[uuid.UUID]domain.PreListingFolder
	contracts        map[uuid.UUID]domain.MediationContract
	extractions      []ExtractionRow

	// FailFolderUpdate makes UpdateFolder fail when set.
	FailFolderUpdate error
	// Calls counts store calls by method name.
	Calls map[string]int
}

// ExtractionRow is one recorded extraction.
type ExtractionRow struct {
	ContractID uuid.UUID
	Requested  domain.DocumentType
	Result     domain.ExtractionResult
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		firstImpressions: make(map[uuid.UUID]domain.FirstImpression),
		folders:          make(map[uuid.UUID]domain.PreListingFolder),
		contracts:        make(map[uuid.UUID]domain.MediationContract),
		Calls:            make(map[string]int),
	}
}

var (
	_ ports.FirstImpressionStore = (*Memory)(nil)
	_ ports.FolderStore          = (*Memory)(nil)
	_ ports.ContractStore        = (*Memory)(nil)
	_ ports.ExtractionLog        = (*Memory)(nil)
)

func (m *Memory) track(name string) {
	m.Calls[name]++
}

// TotalCalls returns the number of store calls so far.
func (m *Memory) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.Calls {
		total += n
	}
	return total
}

// CallCount returns how many times a store method was called.
func (m *Memory) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls[method]
}

// Extractions returns the recorded extraction rows.
func (m *Memory) Extractions() []ExtractionRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ExtractionRow(nil), m.extractions...)
}

func (m *Memory) CreateFirstImpression(_ context.Context, fi domain.FirstImpression) (domain.FirstImpression, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.track("CreateFirstImpression")
	if fi.ID == uuid.Nil {
		fi.ID = uuid.New()
	}
	if _, exists := m.firstImpressions[fi.ID]; exists {
		return domain.FirstImpression{}, apperr.Conflict("first impression already exists")
	}
	if fi.Status == "" {
		fi.Status = domain.StatusDraft
	}
	if fi.Photos == nil {
		fi.Photos = []string{}
	}
	now := time.Now().UTC()
	fi.CreatedAt, fi.UpdatedAt = now, now
	m.firstImpressions[fi.ID] = fi
	return fi, nil
}

func (m *Memory) GetFirstImpression(_ context.Context, orgID, id uuid.UUID) (domain.FirstImpression, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.track("GetFirstImpression")
	return m.firstImpressionLocked(orgID, id)
}

func (m *Memory) firstImpressionLocked(orgID, id uuid.UUID) (domain.FirstImpression, error) {
	fi, ok := m.firstImpressions[id]
	if !ok || fi.OrganizationID != orgID {
		return domain.FirstImpression{}, apperr.NotFound(firstImpressionNotFoundMsg)
	}
	return fi, nil
}

func (m *Memory) UpdateFirstImpression(_ context.Context, fi domain.FirstImpression) (domain.FirstImpression, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.track("UpdateFirstImpression")
	current, err := m.firstImpressionLocked(fi.OrganizationID, fi.ID)
	if err != nil {
		return domain.FirstImpression{}, err
	}
	fi.AgentID = current.AgentID
	fi.Status = current.Status
	fi.CreatedAt = current.CreatedAt
	fi.UpdatedAt = time.Now().UTC()
	m.firstImpressions[fi.ID] = fi
	return fi, nil
}

func (m *Memory) UpdateFirstImpressionStatus(_ context.Context, orgID, id uuid.UUID, status domain.Status) (domain.FirstImpression, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.track("UpdateFirstImpressionStatus")
	fi, err := m.firstImpressionLocked(orgID, id)
	if err != nil {
		return domain.FirstImpression{}, err
	}
	fi.Status = status
	fi.UpdatedAt = time.Now().UTC()
	m.firstImpressions[id] = fi
	return fi, nil
}

func (m *Memory) CreateFolderFromFirstImpression(_ context.Context, orgID, firstImpressionID uuid.UUID) (domain.PreListingFolder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.track("CreateFolderFromFirstImpression")
	fi, err := m.firstImpressionLocked(orgID, firstImpressionID)
	if err != nil {
		return domain.PreListingFolder{}, err
	}
	for _, f := range m.folders {
		if f.FirstImpressionID == firstImpressionID {
			return domain.PreListingFolder{}, apperr.Conflict("pre-listing folder already exists")
		}
	}
	now := time.Now().UTC()
	folder := domain.PreListingFolder{
		ID:                uuid.New(),
		OrganizationID:    orgID,
		FirstImpressionID: firstImpressionID,
		OwnerName:         fi.ClientName,
		OwnerPhone:        fi.ClientPhone,
		OwnerEmail:        fi.ClientEmail,
		Typology:          fi.Typology,
		GrossAreaM2:       fi.AreaM2,
		AskingPrice:       fi.EstimatedValue,
		Documents:         []domain.DocumentRecord{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	m.folders[folder.ID] = folder
	return folder, nil
}

func (m *Memory) GetFolder(_ context.Context, orgID, id uuid.UUID) (domain.PreListingFolder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.track("GetFolder")
	return m.folderLocked(orgID, id)
}

func (m *Memory) folderLocked(orgID, id uuid.UUID) (domain.PreListingFolder, error) {
	f, ok := m.folders[id]
	if !ok || f.OrganizationID != orgID {
		return domain.PreListingFolder{}, apperr.NotFound(folderNotFoundMsg)
	}
	return copyFolder(f), nil
}

func (m *Memory) GetFolderByFirstImpression(_ context.Context, orgID, firstImpressionID uuid.UUID) (domain.PreListingFolder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.track("GetFolderByFirstImpression")
	for _, f := range m.folders {
		if f.FirstImpressionID == firstImpressionID && f.OrganizationID == orgID {
			return copyFolder(f), nil
		}
	}
	return domain.PreListingFolder{}, apperr.NotFound(folderNotFoundMsg)
}

func (m *Memory) UpdateFolder(_ context.Context, orgID, id uuid.UUID, update domain.FolderUpdate) (domain.PreListingFolder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.track("UpdateFolder")
	if m.FailFolderUpdate != nil {
		return domain.PreListingFolder{}, m.FailFolderUpdate
	}
	f, err := m.folderLocked(orgID, id)
	if err != nil {
		return domain.PreListingFolder{}, err
	}
	update.Apply(&f)
	f.UpdatedAt = time.Now().UTC()
	m.folders[id] = f
	return copyFolder(f), nil
}

func (m *Memory) AddFolderDocument(_ context.Context, orgID, folderID uuid.UUID, doc domain.DocumentRecord) (domain.PreListingFolder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.track("AddFolderDocument")
	f, err := m.folderLocked(orgID, folderID)
	if err != nil {
		return domain.PreListingFolder{}, err
	}
	f.Documents = append(f.Documents, doc)
	f.UpdatedAt = time.Now().UTC()
	m.folders[folderID] = f
	return copyFolder(f), nil
}

func (m *Memory) RemoveFolderDocument(_ context.Context, orgID, folderID uuid.UUID, index int) (domain.PreListingFolder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.track("RemoveFolderDocument")
	f, err := m.folderLocked(orgID, folderID)
	if err != nil {
		return domain.PreListingFolder{}, err
	}
	if index < 0 || index >= len(f.Documents) {
		return domain.PreListingFolder{}, apperr.Validation(fmt.Sprintf("document index %d out of range", index))
	}
	f.Documents = append(f.Documents[:index:index], f.Documents[index+1:]...)
	f.UpdatedAt = time.Now().UTC()
	m.folders[folderID] = f
	return copyFolder(f), nil
}

func (m *Memory) CreateContractFromFirstImpression(_ context.Context, orgID, firstImpressionID uuid.UUID) (domain.MediationContract, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.track("CreateContractFromFirstImpression")
	fi, err := m.firstImpressionLocked(orgID, firstImpressionID)
	if err != nil {
		return domain.MediationContract{}, err
	}
	for _, c := range m.contracts {
		if c.FirstImpressionID == firstImpressionID {
			return domain.MediationContract{}, apperr.Conflict("mediation contract already exists")
		}
	}
	now := time.Now().UTC()
	contract := domain.MediationContract{
		ID:                uuid.New(),
		OrganizationID:    orgID,
		FirstImpressionID: firstImpressionID,
		Party1:            domain.ContractParty{Name: fi.ClientName, Phone: fi.ClientPhone, Email: fi.ClientEmail},
		Typology:          fi.Typology,
		AskingPrice:       fi.EstimatedValue,
		ClientSignatures:  []domain.ClientSignature{},
		Status:            domain.StatusDraft,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	m.contracts[contract.ID] = contract
	return contract, nil
}

func (m *Memory) GetContract(_ context.Context, orgID, id uuid.UUID) (domain.MediationContract, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.track("GetContract")
	return m.contractLocked(orgID, id)
}

func (m *Memory) contractLocked(orgID, id uuid.UUID) (domain.MediationContract, error) {
	c, ok := m.contracts[id]
	if !ok || c.OrganizationID != orgID {
		return domain.MediationContract{}, apperr.NotFound(contractNotFoundMsg)
	}
	return copyContract(c), nil
}

func (m *Memory) GetContractByFirstImpression(_ context.Context, orgID, firstImpressionID uuid.UUID) (domain.MediationContract, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.track("GetContractByFirstImpression")
	for _, c := range m.contracts {
		if c.FirstImpressionID == firstImpressionID && c.OrganizationID == orgID {
			return copyContract(c), nil
		}
	}
	return domain.MediationContract{}, apperr.NotFound(contractNotFoundMsg)
}

func (m *Memory) UpdateContract(_ context.Context, c domain.MediationContract) (domain.MediationContract, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.track("UpdateContract")
	current, err := m.contractLocked(c.OrganizationID, c.ID)
	if err != nil {
		return domain.MediationContract{}, err
	}
	c.FirstImpressionID = current.FirstImpressionID
	c.Status = current.Status
	c.ClientSignatures = current.ClientSignatures
	c.AgentSignatureURL = current.AgentSignatureURL
	c.PDFFileKey = current.PDFFileKey
	c.CreatedAt = current.CreatedAt
	c.UpdatedAt = time.Now().UTC()
	m.contracts[c.ID] = copyContract(c)
	return copyContract(c), nil
}

func (m *Memory) UpdateContractStatus(_ context.Context, orgID, id uuid.UUID, status domain.Status) (domain.MediationContract, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.track("UpdateContractStatus")
	c, err := m.contractLocked(orgID, id)
	if err != nil {
		return domain.MediationContract{}, err
	}
	c.Status = status
	c.UpdatedAt = time.Now().UTC()
	m.contracts[id] = c
	return copyContract(c), nil
}

func (m *Memory) AddClientSignature(_ context.Context, orgID, id uuid.UUID, sig domain.ClientSignature) (domain.MediationContract, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.track("AddClientSignature")
	c, err := m.contractLocked(orgID, id)
	if err != nil {
		return domain.MediationContract{}, err
	}
	if sig.SignedAt.IsZero() {
		sig.SignedAt = time.Now().UTC()
	}
	kept := make([]domain.ClientSignature, 0, len(c.ClientSignatures)+1)
	for _, existing := range c.ClientSignatures {
		if existing.Party != sig.Party {
			kept = append(kept, existing)
		}
	}
	c.ClientSignatures = append(kept, sig)
	m.contracts[id] = c
	return copyContract(c), nil
}

func (m *Memory) AddAgentSignature(_ context.Context, orgID, id uuid.UUID, imageURL string) (domain.MediationContract, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.track("AddAgentSignature")
	c, err := m.contractLocked(orgID, id)
	if err != nil {
		return domain.MediationContract{}, err
	}
	c.AgentSignatureURL = imageURL
	m.contracts[id] = c
	return copyContract(c), nil
}

// SetContractPDF stores a PDF key on a contract; PDF generation happens elsewhere.
func (m *Memory) SetContractPDF(id uuid.UUID, fileKey string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.contracts[id]; ok {
		c.PDFFileKey = fileKey
		m.contracts[id] = c
	}
}

func (m *Memory) RecordExtraction(_ context.Context, contractID uuid.UUID, requested domain.DocumentType, result domain.ExtractionResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.track("RecordExtraction")
	m.extractions = append(m.extractions, ExtractionRow{ContractID: contractID, Requested: requested, Result: result})
	return nil
}

func copyFolder(f domain.PreListingFolder) domain.PreListingFolder {
	f.Documents = append([]domain.DocumentRecord{}, f.Documents...)
	return f
}

func copyContract(c domain.MediationContract) domain.MediationContract {
	if c.Party2 != nil {
		p := *c.Party2
		c.Party2 = &p
	}
	c.ClientSignatures = append([]domain.ClientSignature{}, c.ClientSignatures...)
	return c
}
