package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"acquisition_backend/internal/acquisition/domain"
	"acquisition_backend/platform/apperr"
)

const folderColumns = `
	id, organization_id, first_impression_id, owner_name, owner_tax_id,
	owner_phone, owner_email, address, parish, municipality, typology,
	gross_area_m2, usable_area_m2, conservation_state, asking_price,
	documents, created_at, updated_at`

func scanFolder(row pgx.Row) (domain.PreListingFolder, error) {
	var (
		f    domain.PreListingFolder
		docs []byte
	)
	err := row.Scan(
		&f.ID,
		&f.OrganizationID,
		&f.FirstImpressionID,
		&f.OwnerName,
		&f.OwnerTaxID,
		&f.OwnerPhone,
		&f.OwnerEmail,
		&f.Address,
		&f.Parish,
		&f.Municipality,
		&f.Typology,
		&f.GrossAreaM2,
		&f.UsableAreaM2,
		&f.ConservationState,
		&f.AskingPrice,
		&docs,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	if err != nil {
		return domain.PreListingFolder{}, err
	}
	f.Documents = []domain.DocumentRecord{}
	if err := unmarshalJSON(docs, &f.Documents); err != nil {
		return domain.PreListingFolder{}, err
	}
	return f, nil
}

// CreateFolderFromFirstImpression seeds owner contact data from the First
// Impression. No row means the First Impression does not exist; the unique
// key on first_impression_id reports a concurrent create as Conflict.
func (r *Repository) CreateFolderFromFirstImpression(ctx context.Context, orgID, firstImpressionID uuid.UUID) (domain.PreListingFolder, error) {
	query := `
		INSERT INTO pre_listing_folders (
			id, organization_id, first_impression_id, owner_name, owner_phone,
			owner_email, typology, gross_area_m2, asking_price
		)
		SELECT $1, fi.organization_id, fi.id, fi.client_name, fi.client_phone,
			fi.client_email, fi.typology, fi.area_m2, fi.estimated_value
		FROM first_impressions fi
		WHERE fi.id = $2 AND fi.organization_id = $3
		RETURNING` + folderColumns

	folder, err := scanFolder(r.pool.QueryRow(ctx, query, uuid.New(), firstImpressionID, orgID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PreListingFolder{}, apperr.NotFound(firstImpressionNotFoundMsg).WithOp("create folder")
		}
		return domain.PreListingFolder{}, mapWriteError("create folder", err, "pre-listing folder already exists")
	}
	return folder, nil
}

func (r *Repository) GetFolder(ctx context.Context, orgID, id uuid.UUID) (domain.PreListingFolder, error) {
	query := `SELECT` + folderColumns + `
		FROM pre_listing_folders
		WHERE id = $1 AND organization_id = $2`

	folder, err := scanFolder(r.pool.QueryRow(ctx, query, id, orgID))
	if err != nil {
		return domain.PreListingFolder{}, mapReadError("get folder", err, folderNotFoundMsg)
	}
	return folder, nil
}

func (r *Repository) GetFolderByFirstImpression(ctx context.Context, orgID, firstImpressionID uuid.UUID) (domain.PreListingFolder, error) {
	query := `SELECT` + folderColumns + `
		FROM pre_listing_folders
		WHERE first_impression_id = $1 AND organization_id = $2`

	folder, err := scanFolder(r.pool.QueryRow(ctx, query, firstImpressionID, orgID))
	if err != nil {
		return domain.PreListingFolder{}, mapReadError("get folder by first impression", err, folderNotFoundMsg)
	}
	return folder, nil
}

func (r *Repository) UpdateFolder(ctx context.Context, orgID, id uuid.UUID, u domain.FolderUpdate) (domain.PreListingFolder, error) {
	query := `
		UPDATE pre_listing_folders
		SET
			owner_name = $3,
			owner_tax_id = $4,
			owner_phone = $5,
			owner_email = $6,
			address = $7,
			parish = $8,
			municipality = $9,
			typology = $10,
			gross_area_m2 = $11,
			usable_area_m2 = $12,
			conservation_state = $13,
			asking_price = $14,
			updated_at = now()
		WHERE id = $1 AND organization_id = $2
		RETURNING` + folderColumns

	folder, err := scanFolder(r.pool.QueryRow(ctx, query,
		id,
		orgID,
		u.OwnerName,
		u.OwnerTaxID,
		u.OwnerPhone,
		u.OwnerEmail,
		u.Address,
		u.Parish,
		u.Municipality,
		u.Typology,
		u.GrossAreaM2,
		u.UsableAreaM2,
		u.ConservationState,
		u.AskingPrice,
	))
	if err != nil {
		return domain.PreListingFolder{}, mapReadError("update folder", err, folderNotFoundMsg)
	}
	return folder, nil
}

func (r *Repository) AddFolderDocument(ctx context.Context, orgID, folderID uuid.UUID, doc domain.DocumentRecord) (domain.PreListingFolder, error) {
	payload, err := marshalJSON([]domain.DocumentRecord{doc})
	if err != nil {
		return domain.PreListingFolder{}, err
	}

	query := `
		UPDATE pre_listing_folders
		SET documents = documents || $3::jsonb, updated_at = now()
		WHERE id = $1 AND organization_id = $2
		RETURNING` + folderColumns

	folder, err := scanFolder(r.pool.QueryRow(ctx, query, folderID, orgID, payload))
	if err != nil {
		return domain.PreListingFolder{}, mapReadError("add folder document", err, folderNotFoundMsg)
	}
	return folder, nil
}

func (r *Repository) RemoveFolderDocument(ctx context.Context, orgID, folderID uuid.UUID, index int) (domain.PreListingFolder, error) {
	query := `
		UPDATE pre_listing_folders
		SET documents = documents - $3::int, updated_at = now()
		WHERE id = $1 AND organization_id = $2
			AND $3::int >= 0 AND $3::int < jsonb_array_length(documents)
		RETURNING` + folderColumns

	folder, err := scanFolder(r.pool.QueryRow(ctx, query, folderID, orgID, index))
	if err == nil {
		return folder, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.PreListingFolder{}, fmt.Errorf("remove folder document: %w", err)
	}
	if _, getErr := r.GetFolder(ctx, orgID, folderID); getErr != nil {
		return domain.PreListingFolder{}, getErr
	}
	return domain.PreListingFolder{}, apperr.Validation(fmt.Sprintf("document index %d out of range", index))
}
