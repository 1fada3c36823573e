package checklist

import (
	"context"

	"github.com/google/uuid"

	"acquisition_backend/internal/acquisition/domain"
	"acquisition_backend/internal/acquisition/ports"
)

// FolderRemote binds the checklist to one Pre-Listing Folder.
type FolderRemote struct {
	storage  ports.FileStorage
	folders  ports.FolderStore
	orgID    uuid.UUID
	folderID uuid.UUID
}

// NewFolderRemote creates a Remote for a folder.
func NewFolderRemote(storage ports.FileStorage, folders ports.FolderStore, orgID, folderID uuid.UUID) *FolderRemote {
	return &FolderRemote{storage: storage, folders: folders, orgID: orgID, folderID: folderID}
}

func (r *FolderRemote) Store(ctx context.Context, doc PendingDocument) (string, error) {
	return r.storage.Upload(ctx, r.orgID, "folders/"+r.folderID.String(), doc.FileName, doc.MIMEType, doc.Data)
}

func (r *FolderRemote) Append(ctx context.Context, record domain.DocumentRecord) ([]domain.DocumentRecord, error) {
	folder, err := r.folders.AddFolderDocument(ctx, r.orgID, r.folderID, record)
	if err != nil {
		return nil, err
	}
	return folder.Documents, nil
}

func (r *FolderRemote) Refresh(ctx context.Context) ([]domain.DocumentRecord, error) {
	folder, err := r.folders.GetFolder(ctx, r.orgID, r.folderID)
	if err != nil {
		return nil, err
	}
	return folder.Documents, nil
}

func (r *FolderRemote) Remove(ctx context.Context, index int) ([]domain.DocumentRecord, error) {
	folder, err := r.folders.RemoveFolderDocument(ctx, r.orgID, r.folderID, index)
	if err != nil {
		return nil, err
	}
	return folder.Documents, nil
}

var _ Remote = (*FolderRemote)(nil)
