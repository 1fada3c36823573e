package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"acquisition_backend/internal/acquisition/domain"
)

const firstImpressionColumns = `
	id, organization_id, agent_id, client_name, client_phone, client_email,
	referral_source, area_m2, typology, estimated_value, latitude, longitude,
	observations, photos, status, created_at, updated_at`

func scanFirstImpression(row pgx.Row) (domain.FirstImpression, error) {
	var (
		fi     domain.FirstImpression
		photos []byte
		status string
	)
	err := row.Scan(
		&fi.ID,
		&fi.OrganizationID,
		&fi.AgentID,
		&fi.ClientName,
		&fi.ClientPhone,
		&fi.ClientEmail,
		&fi.ReferralSource,
		&fi.AreaM2,
		&fi.Typology,
		&fi.EstimatedValue,
		&fi.Latitude,
		&fi.Longitude,
		&fi.Observations,
		&photos,
		&status,
		&fi.CreatedAt,
		&fi.UpdatedAt,
	)
	if err != nil {
		return domain.FirstImpression{}, err
	}
	fi.Status = domain.Status(status)
	fi.Photos = []string{}
	if err := unmarshalJSON(photos, &fi.Photos); err != nil {
		return domain.FirstImpression{}, err
	}
	return fi, nil
}

func (r *Repository) CreateFirstImpression(ctx context.Context, fi domain.FirstImpression) (domain.FirstImpression, error) {
	if fi.ID == uuid.Nil {
		fi.ID = uuid.New()
	}
	if fi.Status == "" {
		fi.Status = domain.StatusDraft
	}
	if fi.Photos == nil {
		fi.Photos = []string{}
	}
	photos, err := marshalJSON(fi.Photos)
	if err != nil {
		return domain.FirstImpression{}, err
	}
	now := time.Now().UTC()

	query := `
		INSERT INTO first_impressions (
			id, organization_id, agent_id, client_name, client_phone, client_email,
			referral_source, area_m2, typology, estimated_value, latitude, longitude,
			observations, photos, status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $16
		)
		RETURNING` + firstImpressionColumns

	created, err := scanFirstImpression(r.pool.QueryRow(ctx, query,
		fi.ID,
		fi.OrganizationID,
		fi.AgentID,
		fi.ClientName,
		fi.ClientPhone,
		fi.ClientEmail,
		fi.ReferralSource,
		fi.AreaM2,
		fi.Typology,
		fi.EstimatedValue,
		fi.Latitude,
		fi.Longitude,
		fi.Observations,
		photos,
		string(fi.Status),
		now,
	))
	if err != nil {
		return domain.FirstImpression{}, mapWriteError("create first impression", err, "first impression already exists")
	}
	return created, nil
}

func (r *Repository) GetFirstImpression(ctx context.Context, orgID, id uuid.UUID) (domain.FirstImpression, error) {
	query := `SELECT` + firstImpressionColumns + `
		FROM first_impressions
		WHERE id = $1 AND organization_id = $2`

	fi, err := scanFirstImpression(r.pool.QueryRow(ctx, query, id, orgID))
	if err != nil {
		return domain.FirstImpression{}, mapReadError("get first impression", err, firstImpressionNotFoundMsg)
	}
	return fi, nil
}

func (r *Repository) UpdateFirstImpression(ctx context.Context, fi domain.FirstImpression) (domain.FirstImpression, error) {
	if fi.Photos == nil {
		fi.Photos = []string{}
	}
	photos, err := marshalJSON(fi.Photos)
	if err != nil {
		return domain.FirstImpression{}, err
	}

	query := `
		UPDATE first_impressions
		SET
			client_name = $3,
			client_phone = $4,
			client_email = $5,
			referral_source = $6,
			area_m2 = $7,
			typology = $8,
			estimated_value = $9,
			latitude = $10,
			longitude = $11,
			observations = $12,
			photos = $13,
			updated_at = now()
		WHERE id = $1 AND organization_id = $2
		RETURNING` + firstImpressionColumns

	updated, err := scanFirstImpression(r.pool.QueryRow(ctx, query,
		fi.ID,
		fi.OrganizationID,
		fi.ClientName,
		fi.ClientPhone,
		fi.ClientEmail,
		fi.ReferralSource,
		fi.AreaM2,
		fi.Typology,
		fi.EstimatedValue,
		fi.Latitude,
		fi.Longitude,
		fi.Observations,
		photos,
	))
	if err != nil {
		return domain.FirstImpression{}, mapReadError("update first impression", err, firstImpressionNotFoundMsg)
	}
	return updated, nil
}

func (r *Repository) UpdateFirstImpressionStatus(ctx context.Context, orgID, id uuid.UUID, status domain.Status) (domain.FirstImpression, error) {
	query := `
		UPDATE first_impressions
		SET status = $3, updated_at = now()
		WHERE id = $1 AND organization_id = $2
		RETURNING` + firstImpressionColumns

	fi, err := scanFirstImpression(r.pool.QueryRow(ctx, query, id, orgID, string(status)))
	if err != nil {
		return domain.FirstImpression{}, mapReadError("update first impression status", err, firstImpressionNotFoundMsg)
	}
	return fi, nil
}
