// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"acquisition_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Acquisition Domain Events
// =============================================================================

// ContractSaved is published after a Mediation Contract save completes.
type ContractSaved struct {
	BaseEvent
	OrganizationID    uuid.UUID `json:"organizationId"`
	ContractID        uuid.UUID `json:"contractId"`
	FirstImpressionID uuid.UUID `json:"firstImpressionId"`
	FolderID          uuid.UUID `json:"folderId"`
	UploadedDocuments int       `json:"uploadedDocuments"`
	PendingDocuments  int       `json:"pendingDocuments"`
	FolderSynced      bool      `json:"folderSynced"`
}

func (e ContractSaved) EventName() string { return "acquisition.contract.saved" }

// ContractStatusChanged is published when a contract moves through its lifecycle.
type ContractStatusChanged struct {
	BaseEvent
	OrganizationID uuid.UUID `json:"organizationId"`
	ContractID     uuid.UUID `json:"contractId"`
	OldStatus      string    `json:"oldStatus"`
	NewStatus      string    `json:"newStatus"`
	ActorID        uuid.UUID `json:"actorId"`
}

func (e ContractStatusChanged) EventName() string { return "acquisition.contract.status_changed" }

// FolderSyncFailed is published when the folder mirror after a contract save fails.
type FolderSyncFailed struct {
	BaseEvent
	OrganizationID uuid.UUID `json:"organizationId"`
	ContractID     uuid.UUID `json:"contractId"`
	FolderID       uuid.UUID `json:"folderId"`
	Reason         string    `json:"reason"`
}

func (e FolderSyncFailed) EventName() string { return "acquisition.folder.sync_failed" }

// DocumentsUploaded is published after a checklist upload sequence persisted at least one document.
type DocumentsUploaded struct {
	BaseEvent
	OrganizationID uuid.UUID `json:"organizationId"`
	FolderID       uuid.UUID `json:"folderId"`
	Count          int       `json:"count"`
	Remaining      int       `json:"remaining"`
}

func (e DocumentsUploaded) EventName() string { return "acquisition.documents.uploaded" }
