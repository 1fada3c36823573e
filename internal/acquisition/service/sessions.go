package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"acquisition_backend/internal/acquisition/checklist"
	"acquisition_backend/internal/acquisition/domain"
	"acquisition_backend/internal/acquisition/ocr"
	"acquisition_backend/internal/acquisition/ports"
	"acquisition_backend/internal/acquisition/session"
	"acquisition_backend/internal/acquisition/transport"
	"acquisition_backend/internal/adapters/storage"
	"acquisition_backend/platform/apperr"
	"acquisition_backend/platform/logger"
)

// StartSession opens a capture session for a First Impression and ensures
// its Pre-Listing Folder. An existing contract is picked up so a reopened
// session continues where the last one stopped.
func (s *Service) StartSession(ctx context.Context, tenantID, agentID, firstImpressionID uuid.UUID) (transport.SessionResponse, error) {
	if _, err := s.firstImpressions.GetFirstImpression(ctx, tenantID, firstImpressionID); err != nil {
		return transport.SessionResponse{}, err
	}

	sess := session.New(tenantID, agentID, firstImpressionID)
	folder, err := s.chain.EnsureFolder(ctx, sess)
	if err != nil {
		return transport.SessionResponse{}, err
	}

	resp := transport.SessionResponse{SessionID: sess.ID, FirstImpressionID: firstImpressionID, Folder: &folder}
	contract, err := s.contracts.GetContractByFirstImpression(ctx, tenantID, firstImpressionID)
	switch {
	case err == nil:
		sess.ContractID = &contract.ID
		resp.Contract = &contract
	case !apperr.Is(err, apperr.KindNotFound):
		return transport.SessionResponse{}, err
	}

	if err := s.sessions.Save(ctx, sess); err != nil {
		return transport.SessionResponse{}, apperr.Wrap(apperr.KindInternal, "could not store session", err)
	}

	manager := checklist.NewManager()
	manager.RecordPersisted(folder.Documents)
	s.mu.Lock()
	s.managers[sess.ID] = &trackedManager{manager: manager, touched: s.now()}
	s.mu.Unlock()

	return resp, nil
}

// EndSession drops the session and discards its pending documents.
func (s *Service) EndSession(ctx context.Context, tenantID uuid.UUID, sessionID string) error {
	if _, err := s.loadSession(ctx, tenantID, sessionID); err != nil {
		return err
	}
	s.evict(sessionID)
	return s.sessions.Delete(ctx, sessionID)
}

// EnsureContract returns the session's contract, creating it on first use.
func (s *Service) EnsureContract(ctx context.Context, tenantID uuid.UUID, sessionID string) (domain.MediationContract, error) {
	sess, err := s.loadSession(ctx, tenantID, sessionID)
	if err != nil {
		return domain.MediationContract{}, err
	}
	contract, err := s.chain.EnsureContract(ctx, sess)
	if err != nil {
		return domain.MediationContract{}, err
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return domain.MediationContract{}, apperr.Wrap(apperr.KindInternal, "could not store session", err)
	}
	return contract, nil
}

// Checklist returns the checklist view of the session.
func (s *Service) Checklist(ctx context.Context, tenantID uuid.UUID, sessionID string) (transport.ChecklistResponse, error) {
	sess, err := s.loadSession(ctx, tenantID, sessionID)
	if err != nil {
		return transport.ChecklistResponse{}, err
	}
	manager, err := s.managerFor(ctx, sess)
	if err != nil {
		return transport.ChecklistResponse{}, err
	}
	return checklistResponse(sess, manager), nil
}

// Capture runs OCR on an image and queues it as a pending document. An
// extraction failure is not an error: the image is still pending and the
// response carries a warning.
func (s *Service) Capture(ctx context.Context, tenantID uuid.UUID, sessionID string, img ports.Image, req transport.CaptureRequest) (transport.CaptureResponse, error) {
	party, err := domain.ParseParty(req.TargetParty)
	if err != nil {
		return transport.CaptureResponse{}, err
	}
	if len(img.Data) == 0 {
		return transport.CaptureResponse{}, apperr.Validation("image is empty")
	}
	if !storage.IsAllowedContentType(img.MIMEType) {
		return transport.CaptureResponse{}, apperr.Validation(fmt.Sprintf("image type %q is not supported", img.MIMEType))
	}

	sess, err := s.loadSession(ctx, tenantID, sessionID)
	if err != nil {
		return transport.CaptureResponse{}, err
	}
	manager, err := s.managerFor(ctx, sess)
	if err != nil {
		return transport.CaptureResponse{}, err
	}

	var contract *domain.MediationContract
	if sess.ContractID != nil {
		c, err := s.contracts.GetContract(ctx, tenantID, *sess.ContractID)
		if err != nil {
			return transport.CaptureResponse{}, err
		}
		if err := domain.GuardMutable(c.Status, entityContract); err != nil {
			return transport.CaptureResponse{}, err
		}
		contract = &c
	}

	ctx = context.WithValue(ctx, logger.SessionIDKey, sess.ID)
	outcome := s.pipeline.Ingest(ctx, ocr.Capture{Image: img, RequestedType: req.DocType, TargetParty: party}, contract, manager)

	resp := transport.CaptureResponse{
		Result:        outcome.Result,
		RequestedType: outcome.RequestedType,
		TargetParty:   outcome.TargetParty,
		Patch:         outcome.Patch,
		Pending:       outcome.Pending,
		PendingIndex:  outcome.PendingIndex,
	}
	if outcome.Err != nil {
		resp.Warning = outcome.Err.Error()
		var appErr *apperr.Error
		if errors.As(outcome.Err, &appErr) {
			resp.Warning = appErr.Message
		}
	}
	return resp, nil
}

// RemovePending drops a pending capture by its index in the pending list.
func (s *Service) RemovePending(ctx context.Context, tenantID uuid.UUID, sessionID string, index int) (transport.ChecklistResponse, error) {
	sess, err := s.loadSession(ctx, tenantID, sessionID)
	if err != nil {
		return transport.ChecklistResponse{}, err
	}
	manager, err := s.managerFor(ctx, sess)
	if err != nil {
		return transport.ChecklistResponse{}, err
	}
	if _, err := manager.RemovePending(index); err != nil {
		return transport.ChecklistResponse{}, err
	}
	return checklistResponse(sess, manager), nil
}

// RemovePersisted deletes an uploaded document by its folder list index.
// The list is re-fetched first so the index refers to the current state.
func (s *Service) RemovePersisted(ctx context.Context, tenantID uuid.UUID, sessionID string, index int) (transport.ChecklistResponse, error) {
	sess, err := s.loadSession(ctx, tenantID, sessionID)
	if err != nil {
		return transport.ChecklistResponse{}, err
	}
	manager, err := s.managerFor(ctx, sess)
	if err != nil {
		return transport.ChecklistResponse{}, err
	}
	if err := s.guardSessionContract(ctx, sess); err != nil {
		return transport.ChecklistResponse{}, err
	}
	if err := manager.RemovePersisted(ctx, s.folderRemote(sess), index); err != nil {
		return transport.ChecklistResponse{}, err
	}
	return checklistResponse(sess, manager), nil
}

// loadSession fetches a session and hides sessions of other tenants. An
// expired session drops its pending documents.
func (s *Service) loadSession(ctx context.Context, tenantID uuid.UUID, sessionID string) (*session.Session, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			s.evict(sessionID)
		}
		return nil, err
	}
	if sess.OrganizationID != tenantID {
		return nil, apperr.NotFound("session not found")
	}
	return sess, nil
}

// managerFor returns the process-local checklist of a session. A session
// started on another instance gets a fresh manager seeded from the folder;
// its pending captures stayed with the instance that took them.
func (s *Service) managerFor(ctx context.Context, sess *session.Session) (*checklist.Manager, error) {
	s.mu.Lock()
	tracked, ok := s.managers[sess.ID]
	if ok {
		tracked.touched = s.now()
	}
	s.mu.Unlock()
	if ok {
		return tracked.manager, nil
	}

	folder, err := s.chain.EnsureFolder(ctx, sess)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "could not store session", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.managers[sess.ID]; ok {
		existing.touched = s.now()
		return existing.manager, nil
	}
	manager := checklist.NewManager()
	manager.RecordPersisted(folder.Documents)
	s.managers[sess.ID] = &trackedManager{manager: manager, touched: s.now()}
	return manager, nil
}

func (s *Service) evict(sessionID string) {
	s.mu.Lock()
	delete(s.managers, sessionID)
	s.mu.Unlock()
}

// ActiveSessions is the number of sessions holding a checklist in memory.
func (s *Service) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.managers)
}

// SweepSessions drops the checklists of sessions that are gone from the
// store or were not touched within the session TTL, along with their
// pending documents. It returns how many were dropped.
func (s *Service) SweepSessions(ctx context.Context) int {
	cutoff := s.now().Add(-s.sessionTTL)
	dropped := 0

	s.mu.Lock()
	live := make([]string, 0, len(s.managers))
	for id, tracked := range s.managers {
		if tracked.touched.Before(cutoff) {
			delete(s.managers, id)
			dropped++
			continue
		}
		live = append(live, id)
	}
	s.mu.Unlock()

	for _, id := range live {
		if _, err := s.sessions.Get(ctx, id); apperr.Is(err, apperr.KindNotFound) {
			s.evict(id)
			dropped++
		}
	}
	return dropped
}

func (s *Service) folderRemote(sess *session.Session) *checklist.FolderRemote {
	return checklist.NewFolderRemote(s.storage, s.folders, sess.OrganizationID, *sess.FolderID)
}

// guardSessionContract rejects document changes once the contract is terminal.
func (s *Service) guardSessionContract(ctx context.Context, sess *session.Session) error {
	if sess.ContractID == nil {
		return nil
	}
	contract, err := s.contracts.GetContract(ctx, sess.OrganizationID, *sess.ContractID)
	if err != nil {
		return err
	}
	return domain.GuardMutable(contract.Status, entityContract)
}

func checklistResponse(sess *session.Session, manager *checklist.Manager) transport.ChecklistResponse {
	resp := transport.ChecklistResponse{
		Items:     manager.Checklist(),
		Persisted: manager.Persisted(),
		Pending:   manager.Pending(),
	}
	if sess.FolderID != nil {
		resp.FolderID = *sess.FolderID
	}
	return resp
}
