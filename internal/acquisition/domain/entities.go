package domain

import (
	"time"

	"github.com/google/uuid"
)

// FirstImpression is the root of the acquisition chain.
type FirstImpression struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organizationId"`
	AgentID        uuid.UUID `json:"agentId"`
	ClientName     string    `json:"clientName"`
	ClientPhone    string    `json:"clientPhone,omitempty"`
	ClientEmail    string    `json:"clientEmail,omitempty"`
	ReferralSource string    `json:"referralSource,omitempty"`
	AreaM2         *float64  `json:"areaM2,omitempty"`
	Typology       string    `json:"typology,omitempty"`
	EstimatedValue *float64  `json:"estimatedValue,omitempty"`
	Latitude       *float64  `json:"latitude,omitempty"`
	Longitude      *float64  `json:"longitude,omitempty"`
	Observations   string    `json:"observations,omitempty"`
	Photos         []string  `json:"photos"`
	Status         Status    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// DocumentRecord is a persisted checklist entry. Records are addressed by
// their position in the folder's list.
type DocumentRecord struct {
	Type DocumentType `json:"type"`
	Name string       `json:"name"`
	URL  string       `json:"url"`
}

// PreListingFolder is the backoffice view of an acquisition in progress.
type PreListingFolder struct {
	ID                uuid.UUID        `json:"id"`
	OrganizationID    uuid.UUID        `json:"organizationId"`
	FirstImpressionID uuid.UUID        `json:"firstImpressionId"`
	OwnerName         string           `json:"ownerName,omitempty"`
	OwnerTaxID        string           `json:"ownerTaxId,omitempty"`
	OwnerPhone        string           `json:"ownerPhone,omitempty"`
	OwnerEmail        string           `json:"ownerEmail,omitempty"`
	Address           string           `json:"address,omitempty"`
	Parish            string           `json:"parish,omitempty"`
	Municipality      string           `json:"municipality,omitempty"`
	Typology          string           `json:"typology,omitempty"`
	GrossAreaM2       *float64         `json:"grossAreaM2,omitempty"`
	UsableAreaM2      *float64         `json:"usableAreaM2,omitempty"`
	ConservationState string           `json:"conservationState,omitempty"`
	AskingPrice       *float64         `json:"askingPrice,omitempty"`
	Documents         []DocumentRecord `json:"documents"`
	CreatedAt         time.Time        `json:"createdAt"`
	UpdatedAt         time.Time        `json:"updatedAt"`
}

// FolderUpdate is the subset of folder fields mirrored from a saved contract.
type FolderUpdate struct {
	OwnerName         string
	OwnerTaxID        string
	OwnerPhone        string
	OwnerEmail        string
	Address           string
	Parish            string
	Municipality      string
	Typology          string
	GrossAreaM2       *float64
	UsableAreaM2      *float64
	ConservationState string
	AskingPrice       *float64
}

// Apply writes the mirrored subset onto the folder.
func (u FolderUpdate) Apply(f *PreListingFolder) {
	f.OwnerName = u.OwnerName
	f.OwnerTaxID = u.OwnerTaxID
	f.OwnerPhone = u.OwnerPhone
	f.OwnerEmail = u.OwnerEmail
	f.Address = u.Address
	f.Parish = u.Parish
	f.Municipality = u.Municipality
	f.Typology = u.Typology
	f.GrossAreaM2 = u.GrossAreaM2
	f.UsableAreaM2 = u.UsableAreaM2
	f.ConservationState = u.ConservationState
	f.AskingPrice = u.AskingPrice
}

// ContractParty is one signer (outorgante) of the mediation contract.
type ContractParty struct {
	Name           string `json:"name,omitempty"`
	TaxID          string `json:"taxId,omitempty"`
	DocumentNumber string `json:"documentNumber,omitempty"`
	DocumentExpiry string `json:"documentExpiry,omitempty"`
	MaritalStatus  string `json:"maritalStatus,omitempty"`
	Address        string `json:"address,omitempty"`
	Phone          string `json:"phone,omitempty"`
	Email          string `json:"email,omitempty"`
}

// IsZero reports whether no field has been filled.
func (p ContractParty) IsZero() bool {
	return p == ContractParty{}
}

// ClientSignature is a captured signature image for one party.
type ClientSignature struct {
	Party    Party     `json:"party"`
	ImageURL string    `json:"imageUrl"`
	SignedAt time.Time `json:"signedAt"`
}

// MediationContract is the CMI. Party1 always exists; Party2 is optional.
type MediationContract struct {
	ID                uuid.UUID         `json:"id"`
	OrganizationID    uuid.UUID         `json:"organizationId"`
	FirstImpressionID uuid.UUID         `json:"firstImpressionId"`
	Party1            ContractParty     `json:"party1"`
	Party2            *ContractParty    `json:"party2,omitempty"`
	CadastralArticle  string            `json:"cadastralArticle,omitempty"`
	Address           string            `json:"address,omitempty"`
	PostalCode        string            `json:"postalCode,omitempty"`
	Parish            string            `json:"parish,omitempty"`
	Municipality      string            `json:"municipality,omitempty"`
	Typology          string            `json:"typology,omitempty"`
	GrossAreaM2       *float64          `json:"grossAreaM2,omitempty"`
	UsableAreaM2      *float64          `json:"usableAreaM2,omitempty"`
	ConservationState string            `json:"conservationState,omitempty"`
	EnergyClass       string            `json:"energyClass,omitempty"`
	ContractType      string            `json:"contractType,omitempty"`
	AskingPrice       *float64          `json:"askingPrice,omitempty"`
	MinimumPrice      *float64          `json:"minimumPrice,omitempty"`
	CommissionPct     *float64          `json:"commissionPct,omitempty"`
	TermMonths        *int              `json:"termMonths,omitempty"`
	AgentName         string            `json:"agentName,omitempty"`
	AgentLicense      string            `json:"agentLicense,omitempty"`
	ClientSignatures  []ClientSignature `json:"clientSignatures"`
	AgentSignatureURL string            `json:"agentSignatureUrl,omitempty"`
	PDFFileKey        string            `json:"-"`
	Status            Status            `json:"status"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}

// FolderMirror derives the folder subset kept in sync with this contract.
// Owner contact data comes from Party1.
func (c MediationContract) FolderMirror() FolderUpdate {
	return FolderUpdate{
		OwnerName:         c.Party1.Name,
		OwnerTaxID:        c.Party1.TaxID,
		OwnerPhone:        c.Party1.Phone,
		OwnerEmail:        c.Party1.Email,
		Address:           c.Address,
		Parish:            c.Parish,
		Municipality:      c.Municipality,
		Typology:          c.Typology,
		GrossAreaM2:       c.GrossAreaM2,
		UsableAreaM2:      c.UsableAreaM2,
		ConservationState: c.ConservationState,
		AskingPrice:       c.AskingPrice,
	}
}

// ExtractionResult is what the OCR service reports for one image.
// DetectedType is authoritative over the type the agent requested.
type ExtractionResult struct {
	Success      bool              `json:"success"`
	DetectedType DocumentType      `json:"detectedType"`
	Confidence   float64           `json:"confidence"`
	Fields       map[string]string `json:"extractedFields"`
	Message      string            `json:"message,omitempty"`
}
