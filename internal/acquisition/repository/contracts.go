package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"acquisition_backend/internal/acquisition/domain"
	"acquisition_backend/platform/apperr"
)

const contractColumns = `
	id, organization_id, first_impression_id, party1, party2,
	cadastral_article, address, postal_code, parish, municipality, typology,
	gross_area_m2, usable_area_m2, conservation_state, energy_class,
	contract_type, asking_price, minimum_price, commission_pct, term_months,
	agent_name, agent_license, client_signatures, agent_signature_url,
	pdf_file_key, status, created_at, updated_at`

func scanContract(row pgx.Row) (domain.MediationContract, error) {
	var (
		c              domain.MediationContract
		party1, party2 []byte
		signatures     []byte
		agentSignature *string
		pdfKey         *string
		status         string
	)
	err := row.Scan(
		&c.ID,
		&c.OrganizationID,
		&c.FirstImpressionID,
		&party1,
		&party2,
		&c.CadastralArticle,
		&c.Address,
		&c.PostalCode,
		&c.Parish,
		&c.Municipality,
		&c.Typology,
		&c.GrossAreaM2,
		&c.UsableAreaM2,
		&c.ConservationState,
		&c.EnergyClass,
		&c.ContractType,
		&c.AskingPrice,
		&c.MinimumPrice,
		&c.CommissionPct,
		&c.TermMonths,
		&c.AgentName,
		&c.AgentLicense,
		&signatures,
		&agentSignature,
		&pdfKey,
		&status,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return domain.MediationContract{}, err
	}

	if err := unmarshalJSON(party1, &c.Party1); err != nil {
		return domain.MediationContract{}, err
	}
	if len(party2) > 0 && string(party2) != "null" {
		c.Party2 = &domain.ContractParty{}
		if err := unmarshalJSON(party2, c.Party2); err != nil {
			return domain.MediationContract{}, err
		}
	}
	c.ClientSignatures = []domain.ClientSignature{}
	if err := unmarshalJSON(signatures, &c.ClientSignatures); err != nil {
		return domain.MediationContract{}, err
	}
	c.AgentSignatureURL = derefString(agentSignature)
	c.PDFFileKey = derefString(pdfKey)
	c.Status = domain.Status(status)
	return c, nil
}

// CreateContractFromFirstImpression seeds Party1 with the First Impression's
// client. Same NotFound/Conflict rules as folder creation.
func (r *Repository) CreateContractFromFirstImpression(ctx context.Context, orgID, firstImpressionID uuid.UUID) (domain.MediationContract, error) {
	query := `
		INSERT INTO mediation_contracts (
			id, organization_id, first_impression_id, party1, typology, asking_price
		)
		SELECT $1, fi.organization_id, fi.id,
			jsonb_strip_nulls(jsonb_build_object(
				'name', NULLIF(fi.client_name, ''),
				'phone', NULLIF(fi.client_phone, ''),
				'email', NULLIF(fi.client_email, '')
			)),
			fi.typology, fi.estimated_value
		FROM first_impressions fi
		WHERE fi.id = $2 AND fi.organization_id = $3
		RETURNING` + contractColumns

	contract, err := scanContract(r.pool.QueryRow(ctx, query, uuid.New(), firstImpressionID, orgID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.MediationContract{}, apperr.NotFound(firstImpressionNotFoundMsg).WithOp("create contract")
		}
		return domain.MediationContract{}, mapWriteError("create contract", err, "mediation contract already exists")
	}
	return contract, nil
}

func (r *Repository) GetContract(ctx context.Context, orgID, id uuid.UUID) (domain.MediationContract, error) {
	query := `SELECT` + contractColumns + `
		FROM mediation_contracts
		WHERE id = $1 AND organization_id = $2`

	contract, err := scanContract(r.pool.QueryRow(ctx, query, id, orgID))
	if err != nil {
		return domain.MediationContract{}, mapReadError("get contract", err, contractNotFoundMsg)
	}
	return contract, nil
}

func (r *Repository) GetContractByFirstImpression(ctx context.Context, orgID, firstImpressionID uuid.UUID) (domain.MediationContract, error) {
	query := `SELECT` + contractColumns + `
		FROM mediation_contracts
		WHERE first_impression_id = $1 AND organization_id = $2`

	contract, err := scanContract(r.pool.QueryRow(ctx, query, firstImpressionID, orgID))
	if err != nil {
		return domain.MediationContract{}, mapReadError("get contract by first impression", err, contractNotFoundMsg)
	}
	return contract, nil
}

// UpdateContract writes the form fields. Status, signatures and the PDF key
// have their own writers.
func (r *Repository) UpdateContract(ctx context.Context, c domain.MediationContract) (domain.MediationContract, error) {
	party1, err := marshalJSON(c.Party1)
	if err != nil {
		return domain.MediationContract{}, err
	}
	var party2 []byte
	if c.Party2 != nil && !c.Party2.IsZero() {
		if party2, err = marshalJSON(c.Party2); err != nil {
			return domain.MediationContract{}, err
		}
	}

	query := `
		UPDATE mediation_contracts
		SET
			party1 = $3,
			party2 = $4,
			cadastral_article = $5,
			address = $6,
			postal_code = $7,
			parish = $8,
			municipality = $9,
			typology = $10,
			gross_area_m2 = $11,
			usable_area_m2 = $12,
			conservation_state = $13,
			energy_class = $14,
			contract_type = $15,
			asking_price = $16,
			minimum_price = $17,
			commission_pct = $18,
			term_months = $19,
			agent_name = $20,
			agent_license = $21,
			updated_at = now()
		WHERE id = $1 AND organization_id = $2
		RETURNING` + contractColumns

	updated, err := scanContract(r.pool.QueryRow(ctx, query,
		c.ID,
		c.OrganizationID,
		party1,
		party2,
		c.CadastralArticle,
		c.Address,
		c.PostalCode,
		c.Parish,
		c.Municipality,
		c.Typology,
		c.GrossAreaM2,
		c.UsableAreaM2,
		c.ConservationState,
		c.EnergyClass,
		c.ContractType,
		c.AskingPrice,
		c.MinimumPrice,
		c.CommissionPct,
		c.TermMonths,
		c.AgentName,
		c.AgentLicense,
	))
	if err != nil {
		return domain.MediationContract{}, mapReadError("update contract", err, contractNotFoundMsg)
	}
	return updated, nil
}

func (r *Repository) UpdateContractStatus(ctx context.Context, orgID, id uuid.UUID, status domain.Status) (domain.MediationContract, error) {
	query := `
		UPDATE mediation_contracts
		SET status = $3, updated_at = now()
		WHERE id = $1 AND organization_id = $2
		RETURNING` + contractColumns

	contract, err := scanContract(r.pool.QueryRow(ctx, query, id, orgID, string(status)))
	if err != nil {
		return domain.MediationContract{}, mapReadError("update contract status", err, contractNotFoundMsg)
	}
	return contract, nil
}

// AddClientSignature replaces any earlier signature of the same party.
func (r *Repository) AddClientSignature(ctx context.Context, orgID, id uuid.UUID, sig domain.ClientSignature) (domain.MediationContract, error) {
	if sig.SignedAt.IsZero() {
		sig.SignedAt = time.Now().UTC()
	}
	payload, err := marshalJSON([]domain.ClientSignature{sig})
	if err != nil {
		return domain.MediationContract{}, err
	}

	query := `
		UPDATE mediation_contracts
		SET client_signatures = (
				SELECT COALESCE(jsonb_agg(s), '[]'::jsonb)
				FROM jsonb_array_elements(client_signatures) s
				WHERE (s->>'party')::int <> $4
			) || $3::jsonb,
			updated_at = now()
		WHERE id = $1 AND organization_id = $2
		RETURNING` + contractColumns

	contract, err := scanContract(r.pool.QueryRow(ctx, query, id, orgID, payload, int(sig.Party)))
	if err != nil {
		return domain.MediationContract{}, mapReadError("add client signature", err, contractNotFoundMsg)
	}
	return contract, nil
}

func (r *Repository) AddAgentSignature(ctx context.Context, orgID, id uuid.UUID, imageURL string) (domain.MediationContract, error) {
	query := `
		UPDATE mediation_contracts
		SET agent_signature_url = $3, updated_at = now()
		WHERE id = $1 AND organization_id = $2
		RETURNING` + contractColumns

	contract, err := scanContract(r.pool.QueryRow(ctx, query, id, orgID, nullableString(imageURL)))
	if err != nil {
		return domain.MediationContract{}, mapReadError("add agent signature", err, contractNotFoundMsg)
	}
	return contract, nil
}
