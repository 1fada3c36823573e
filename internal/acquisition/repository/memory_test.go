package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"acquisition_backend/internal/acquisition/domain"
	"acquisition_backend/platform/apperr"
)

func TestMemoryCreateFolderSemantics(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	orgID := uuid.New()
	value := 180000.0
	fi, _ := m.CreateFirstImpression(ctx, domain.FirstImpression{OrganizationID: orgID, ClientName: "Ana Silva", EstimatedValue: &value})

	folder, err := m.CreateFolderFromFirstImpression(ctx, orgID, fi.ID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if folder.OwnerName != "Ana Silva" || folder.AskingPrice == nil || *folder.AskingPrice != value {
		t.Fatalf("expected folder seeded from first impression, got %+v", folder)
	}
	if _, err := m.CreateFolderFromFirstImpression(ctx, orgID, fi.ID); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict on second create, got %v", err)
	}
	if _, err := m.CreateFolderFromFirstImpression(ctx, orgID, uuid.New()); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for missing parent, got %v", err)
	}
	if _, err := m.GetFolder(ctx, uuid.New(), folder.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected folders to be organization scoped, got %v", err)
	}
}

func TestMemoryClientSignatureReplacesSameParty(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	orgID := uuid.New()
	fi, _ := m.CreateFirstImpression(ctx, domain.FirstImpression{OrganizationID: orgID, ClientName: "Ana"})
	c, _ := m.CreateContractFromFirstImpression(ctx, orgID, fi.ID)

	_, _ = m.AddClientSignature(ctx, orgID, c.ID, domain.ClientSignature{Party: domain.Party1, ImageURL: "a"})
	_, _ = m.AddClientSignature(ctx, orgID, c.ID, domain.ClientSignature{Party: domain.Party2, ImageURL: "b"})
	got, _ := m.AddClientSignature(ctx, orgID, c.ID, domain.ClientSignature{Party: domain.Party1, ImageURL: "c"})

	if len(got.ClientSignatures) != 2 {
		t.Fatalf("expected one signature per party, got %+v", got.ClientSignatures)
	}
	if got.ClientSignatures[1].ImageURL != "c" {
		t.Fatalf("expected latest party 1 signature last, got %+v", got.ClientSignatures)
	}
}
