// Package chain creates and links First Impression -> Pre-Listing Folder ->
// Mediation Contract lazily and idempotently.
package chain

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"acquisition_backend/internal/acquisition/domain"
	"acquisition_backend/internal/acquisition/ports"
	"acquisition_backend/internal/acquisition/session"
	"acquisition_backend/platform/apperr"
)

// Coordinator ensures the 1:1 children of a First Impression exist.
type Coordinator struct {
	folders   ports.FolderStore
	contracts ports.ContractStore
	inflight  singleflight.Group
}

// New creates a coordinator.
func New(folders ports.FolderStore, contracts ports.ContractStore) *Coordinator {
	return &Coordinator{folders: folders, contracts: contracts}
}

// EnsureFolder returns the session's folder, creating it on first use.
// The id is cached on the session; a cached id short-circuits to a lookup.
func (c *Coordinator) EnsureFolder(ctx context.Context, s *session.Session) (domain.PreListingFolder, error) {
	if s.FolderID != nil {
		folder, err := c.folders.GetFolder(ctx, s.OrganizationID, *s.FolderID)
		if err == nil {
			return folder, nil
		}
		if !apperr.Is(err, apperr.KindNotFound) {
			return domain.PreListingFolder{}, err
		}
		s.FolderID = nil
	}

	folder, err := coalesce(&c.inflight, "folder:"+s.FirstImpressionID.String(), func() (domain.PreListingFolder, error) {
		return ensureEntity(context.WithoutCancel(ctx),
			func(ctx context.Context) (domain.PreListingFolder, error) {
				return c.folders.GetFolderByFirstImpression(ctx, s.OrganizationID, s.FirstImpressionID)
			},
			func(ctx context.Context) (domain.PreListingFolder, error) {
				return c.folders.CreateFolderFromFirstImpression(ctx, s.OrganizationID, s.FirstImpressionID)
			},
		)
	})
	if err != nil {
		return domain.PreListingFolder{}, wrapEnsure("folder", s.FirstImpressionID, err)
	}

	id := folder.ID
	s.FolderID = &id
	return folder, nil
}

// EnsureContract returns the session's contract, creating it on first use.
func (c *Coordinator) EnsureContract(ctx context.Context, s *session.Session) (domain.MediationContract, error) {
	if s.ContractID != nil {
		contract, err := c.contracts.GetContract(ctx, s.OrganizationID, *s.ContractID)
		if err == nil {
			return contract, nil
		}
		if !apperr.Is(err, apperr.KindNotFound) {
			return domain.MediationContract{}, err
		}
		s.ContractID = nil
	}

	contract, err := coalesce(&c.inflight, "contract:"+s.FirstImpressionID.String(), func() (domain.MediationContract, error) {
		return ensureEntity(context.WithoutCancel(ctx),
			func(ctx context.Context) (domain.MediationContract, error) {
				return c.contracts.GetContractByFirstImpression(ctx, s.OrganizationID, s.FirstImpressionID)
			},
			func(ctx context.Context) (domain.MediationContract, error) {
				return c.contracts.CreateContractFromFirstImpression(ctx, s.OrganizationID, s.FirstImpressionID)
			},
		)
	})
	if err != nil {
		return domain.MediationContract{}, wrapEnsure("contract", s.FirstImpressionID, err)
	}

	id := contract.ID
	s.ContractID = &id
	return contract, nil
}

// ensureEntity runs fetch -> (NotFound) create -> (Conflict) fetch, with at
// most one re-fetch. Any other error is returned unchanged.
func ensureEntity[T any](ctx context.Context, fetch, create func(context.Context) (T, error)) (T, error) {
	var zero T

	entity, err := fetch(ctx)
	if err == nil {
		return entity, nil
	}
	if !apperr.Is(err, apperr.KindNotFound) {
		return zero, err
	}

	entity, err = create(ctx)
	if err == nil {
		return entity, nil
	}
	if !apperr.Is(err, apperr.KindConflict) {
		return zero, err
	}

	return fetch(ctx)
}

// coalesce shares one in-flight ensure between concurrent callers for the
// same key. fn must not depend on the first caller's cancellation, since
// every joined caller receives its result.
func coalesce[T any](g *singleflight.Group, key string, fn func() (T, error)) (T, error) {
	v, err, _ := g.Do(key, func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

func wrapEnsure(entity string, firstImpressionID uuid.UUID, err error) error {
	if apperr.Is(err, apperr.KindNotFound) {
		return apperr.Wrap(apperr.KindNotFound, fmt.Sprintf("first impression %s not found", firstImpressionID), err).
			WithOp("chain.ensure_" + entity)
	}
	return err
}
