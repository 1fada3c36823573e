// Package reconcile mirrors a saved contract onto its Pre-Listing Folder.
// The contract is canonical; the folder copy may be briefly stale.
package reconcile

import (
	"context"

	"github.com/google/uuid"

	"acquisition_backend/internal/acquisition/domain"
	"acquisition_backend/internal/acquisition/ports"
	"acquisition_backend/internal/events"
	"acquisition_backend/platform/apperr"
	"acquisition_backend/platform/logger"
	"acquisition_backend/platform/phone"
)

// Reconciler pushes the mirrored field subset to the folder.
type Reconciler struct {
	folders ports.FolderStore
	bus     events.Bus
	log     *logger.Logger
}

// New creates a reconciler. bus may be nil.
func New(folders ports.FolderStore, bus events.Bus, log *logger.Logger) *Reconciler {
	return &Reconciler{folders: folders, bus: bus, log: log}
}

// Mirror writes the contract's folder subset and returns a SyncFailure on error.
func (r *Reconciler) Mirror(ctx context.Context, contract domain.MediationContract, folderID uuid.UUID) (domain.PreListingFolder, error) {
	update := contract.FolderMirror()
	update.OwnerPhone = phone.NormalizeE164(update.OwnerPhone)

	folder, err := r.folders.UpdateFolder(ctx, contract.OrganizationID, folderID, update)
	if err != nil {
		return domain.PreListingFolder{}, apperr.Sync("pre-listing folder update failed", err).WithOp("reconcile.mirror")
	}
	return folder, nil
}

// OnContractSaved mirrors best-effort. A failure is logged and published,
// never returned; the result reports whether the folder is in sync.
func (r *Reconciler) OnContractSaved(ctx context.Context, contract domain.MediationContract, folderID uuid.UUID) bool {
	if _, err := r.Mirror(ctx, contract, folderID); err != nil {
		r.log.WithContext(ctx).SyncFailure(contract.ID.String(), folderID.String(), err)
		if r.bus != nil {
			r.bus.Publish(ctx, events.FolderSyncFailed{
				BaseEvent:      events.NewBaseEvent(),
				OrganizationID: contract.OrganizationID,
				ContractID:     contract.ID,
				FolderID:       folderID,
				Reason:         err.Error(),
			})
		}
		return false
	}
	return true
}
