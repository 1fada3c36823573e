package transport

import (
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"acquisition_backend/internal/acquisition/checklist"
	"acquisition_backend/internal/acquisition/domain"
	platformvalidator "acquisition_backend/platform/validator"
)

// RegisterValidations adds the acquisition tags to the shared validator:
// doctype accepts the checklist vocabulary and its aliases, party accepts 1 or 2.
func RegisterValidations(val *platformvalidator.Validator) error {
	if err := val.RegisterValidation("doctype", func(fl validator.FieldLevel) bool {
		return domain.IsKnownDocumentType(fl.Field().String())
	}); err != nil {
		return err
	}
	return val.RegisterValidation("party", func(fl validator.FieldLevel) bool {
		n := fl.Field().Int()
		return n == 1 || n == 2
	})
}

// FirstImpressionRequest is the body for creating or replacing a First Impression.
type FirstImpressionRequest struct {
	ClientName     string   `json:"clientName" validate:"required,min=1,max=200"`
	ClientPhone    string   `json:"clientPhone,omitempty" validate:"max=40"`
	ClientEmail    string   `json:"clientEmail,omitempty" validate:"omitempty,email,max=254"`
	ReferralSource string   `json:"referralSource,omitempty" validate:"max=200"`
	AreaM2         *float64 `json:"areaM2,omitempty" validate:"omitempty,gt=0"`
	Typology       string   `json:"typology,omitempty" validate:"max=20"`
	EstimatedValue *float64 `json:"estimatedValue,omitempty" validate:"omitempty,gte=0"`
	Latitude       *float64 `json:"latitude,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Longitude      *float64 `json:"longitude,omitempty" validate:"omitempty,gte=-180,lte=180"`
	Observations   string   `json:"observations,omitempty" validate:"max=5000"`
	Photos         []string `json:"photos,omitempty" validate:"omitempty,max=50,dive,url"`
}

// StatusRequest is the body for a lifecycle status change.
type StatusRequest struct {
	Status string `json:"status" validate:"required,oneof=draft signed completed cancelled"`
}

// StartSessionRequest opens a capture session for a First Impression.
type StartSessionRequest struct {
	FirstImpressionID uuid.UUID `json:"firstImpressionId" validate:"required"`
}

// SessionResponse describes a session and the chain entities it has ensured.
type SessionResponse struct {
	SessionID         string                    `json:"sessionId"`
	FirstImpressionID uuid.UUID                 `json:"firstImpressionId"`
	Folder            *domain.PreListingFolder  `json:"folder,omitempty"`
	Contract          *domain.MediationContract `json:"contract,omitempty"`
}

// CaptureRequest is the multipart form sent alongside the image file.
type CaptureRequest struct {
	DocType     string `form:"docType" validate:"required,doctype"`
	TargetParty int    `form:"targetParty" validate:"omitempty,party"`
}

// CaptureResponse reports an OCR run. The capture is pending either way;
// Warning is set when extraction failed and the agent must fill fields by hand.
type CaptureResponse struct {
	Result        domain.ExtractionResult   `json:"result"`
	RequestedType domain.DocumentType       `json:"requestedType"`
	TargetParty   domain.Party              `json:"targetParty"`
	Patch         domain.ContractPatch      `json:"patch"`
	Pending       checklist.PendingDocument `json:"pending"`
	PendingIndex  int                       `json:"pendingIndex"`
	Warning       string                    `json:"warning,omitempty"`
}

// ChecklistResponse is the checklist view of a session.
type ChecklistResponse struct {
	FolderID  uuid.UUID                   `json:"folderId"`
	Items     []checklist.Item            `json:"items"`
	Persisted []domain.DocumentRecord     `json:"persisted"`
	Pending   []checklist.PendingDocument `json:"pending"`
}

// PartyInput is one contracting party on the contract form.
type PartyInput struct {
	Name           string `json:"name" validate:"max=200"`
	TaxID          string `json:"taxId,omitempty" validate:"omitempty,numeric,len=9"`
	DocumentNumber string `json:"documentNumber,omitempty" validate:"max=40"`
	DocumentExpiry string `json:"documentExpiry,omitempty" validate:"max=20"`
	MaritalStatus  string `json:"maritalStatus,omitempty" validate:"max=40"`
	Address        string `json:"address,omitempty" validate:"max=300"`
	Phone          string `json:"phone,omitempty" validate:"max=40"`
	Email          string `json:"email,omitempty" validate:"omitempty,email,max=254"`
}

// SaveContractRequest is the full contract form. Fields not sent are cleared.
type SaveContractRequest struct {
	Party1            PartyInput  `json:"party1"`
	Party2            *PartyInput `json:"party2,omitempty"`
	CadastralArticle  string      `json:"cadastralArticle,omitempty" validate:"max=60"`
	Address           string      `json:"address,omitempty" validate:"max=300"`
	PostalCode        string      `json:"postalCode,omitempty" validate:"omitempty,max=10"`
	Parish            string      `json:"parish,omitempty" validate:"max=120"`
	Municipality      string      `json:"municipality,omitempty" validate:"max=120"`
	Typology          string      `json:"typology,omitempty" validate:"max=20"`
	GrossAreaM2       *float64    `json:"grossAreaM2,omitempty" validate:"omitempty,gt=0"`
	UsableAreaM2      *float64    `json:"usableAreaM2,omitempty" validate:"omitempty,gt=0"`
	ConservationState string      `json:"conservationState,omitempty" validate:"max=60"`
	EnergyClass       string      `json:"energyClass,omitempty" validate:"max=4"`
	ContractType      string      `json:"contractType,omitempty" validate:"omitempty,oneof=exclusive non_exclusive"`
	AskingPrice       *float64    `json:"askingPrice,omitempty" validate:"omitempty,gte=0"`
	MinimumPrice      *float64    `json:"minimumPrice,omitempty" validate:"omitempty,gte=0"`
	CommissionPct     *float64    `json:"commissionPct,omitempty" validate:"omitempty,gte=0,lte=100"`
	TermMonths        *int        `json:"termMonths,omitempty" validate:"omitempty,min=1,max=60"`
	AgentName         string      `json:"agentName,omitempty" validate:"max=200"`
	AgentLicense      string      `json:"agentLicense,omitempty" validate:"max=40"`
}

// SaveContractResponse reports the save, the upload sequence and the folder mirror.
type SaveContractResponse struct {
	Contract     domain.MediationContract `json:"contract"`
	Uploads      []UploadResponse         `json:"uploads"`
	UploadError  string                   `json:"uploadError,omitempty"`
	FolderSynced bool                     `json:"folderSynced"`
	Checklist    []checklist.Item         `json:"checklist"`
}

// UploadResponse is one pending document's upload outcome.
type UploadResponse struct {
	checklist.UploadResult
	Error string `json:"error,omitempty"`
}

// ClientSignatureRequest attaches a party's signature image.
type ClientSignatureRequest struct {
	Party    int    `json:"party" validate:"required,party"`
	ImageURL string `json:"imageUrl" validate:"required,url"`
}

// AgentSignatureRequest attaches the agent's signature image.
type AgentSignatureRequest struct {
	ImageURL string `json:"imageUrl" validate:"required,url"`
}
