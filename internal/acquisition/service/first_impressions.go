package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"acquisition_backend/internal/acquisition/domain"
	"acquisition_backend/internal/acquisition/transport"
	"acquisition_backend/platform/apperr"
	"acquisition_backend/platform/phone"
	"acquisition_backend/platform/sanitize"
)

// CreateFirstImpression records a new capture in draft status.
func (s *Service) CreateFirstImpression(ctx context.Context, tenantID, agentID uuid.UUID, req transport.FirstImpressionRequest) (domain.FirstImpression, error) {
	fi := domain.FirstImpression{OrganizationID: tenantID, AgentID: agentID, Status: domain.StatusDraft}
	if err := applyFirstImpression(&fi, req); err != nil {
		return domain.FirstImpression{}, err
	}
	return s.firstImpressions.CreateFirstImpression(ctx, fi)
}

// GetFirstImpression returns one First Impression of the tenant.
func (s *Service) GetFirstImpression(ctx context.Context, tenantID, id uuid.UUID) (domain.FirstImpression, error) {
	return s.firstImpressions.GetFirstImpression(ctx, tenantID, id)
}

// UpdateFirstImpression replaces the editable fields. Terminal records are read-only.
func (s *Service) UpdateFirstImpression(ctx context.Context, tenantID, id uuid.UUID, req transport.FirstImpressionRequest) (domain.FirstImpression, error) {
	fi, err := s.firstImpressions.GetFirstImpression(ctx, tenantID, id)
	if err != nil {
		return domain.FirstImpression{}, err
	}
	if err := domain.GuardMutable(fi.Status, entityFirstImpression); err != nil {
		return domain.FirstImpression{}, err
	}
	if err := applyFirstImpression(&fi, req); err != nil {
		return domain.FirstImpression{}, err
	}
	return s.firstImpressions.UpdateFirstImpression(ctx, fi)
}

// ChangeFirstImpressionStatus moves the First Impression through the same
// lifecycle as the contract. It is independent of the contract status.
func (s *Service) ChangeFirstImpressionStatus(ctx context.Context, tenantID, id uuid.UUID, rawStatus string) (domain.FirstImpression, error) {
	next, err := domain.ParseStatus(rawStatus)
	if err != nil {
		return domain.FirstImpression{}, err
	}
	fi, err := s.firstImpressions.GetFirstImpression(ctx, tenantID, id)
	if err != nil {
		return domain.FirstImpression{}, err
	}
	if err := domain.CheckTransition(fi.Status, next); err != nil {
		return domain.FirstImpression{}, err
	}
	return s.firstImpressions.UpdateFirstImpressionStatus(ctx, tenantID, id, next)
}

func applyFirstImpression(fi *domain.FirstImpression, req transport.FirstImpressionRequest) error {
	name := sanitize.Text(req.ClientName)
	if name == "" {
		return apperr.Validation("clientName is required")
	}
	if err := checkCoordinates(req.Latitude, req.Longitude); err != nil {
		return err
	}

	fi.ClientName = name
	fi.ClientPhone = ""
	if raw := sanitize.Text(req.ClientPhone); raw != "" {
		fi.ClientPhone = phone.NormalizeE164(raw)
	}
	fi.ClientEmail = sanitize.Text(req.ClientEmail)
	fi.ReferralSource = sanitize.Text(req.ReferralSource)
	fi.AreaM2 = req.AreaM2
	fi.Typology = sanitize.Text(req.Typology)
	fi.EstimatedValue = req.EstimatedValue
	fi.Latitude = req.Latitude
	fi.Longitude = req.Longitude
	fi.Observations = sanitize.StripHTML(req.Observations)
	fi.Photos = append([]string{}, req.Photos...)
	return nil
}

func checkCoordinates(lat, lng *float64) error {
	if (lat == nil) != (lng == nil) {
		return apperr.Validation("latitude and longitude must be sent together")
	}
	if lat == nil {
		return nil
	}
	if *lat < -90 || *lat > 90 {
		return apperr.Validation(fmt.Sprintf("latitude %.6f out of range", *lat))
	}
	if *lng < -180 || *lng > 180 {
		return apperr.Validation(fmt.Sprintf("longitude %.6f out of range", *lng))
	}
	return nil
}
