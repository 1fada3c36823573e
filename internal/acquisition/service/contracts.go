package service

import (
	"context"
	"io"

	"github.com/google/uuid"

	"acquisition_backend/internal/acquisition/checklist"
	"acquisition_backend/internal/acquisition/domain"
	"acquisition_backend/internal/acquisition/session"
	"acquisition_backend/internal/acquisition/transport"
	"acquisition_backend/internal/events"
	"acquisition_backend/platform/apperr"
	"acquisition_backend/platform/phone"
	"acquisition_backend/platform/sanitize"
)

// SaveContract stores the contract form, uploads the pending documents in
// capture order and mirrors the contract onto its folder. Upload and mirror
// failures do not fail the save; they are reported in the response.
func (s *Service) SaveContract(ctx context.Context, tenantID uuid.UUID, sessionID string, req transport.SaveContractRequest) (transport.SaveContractResponse, error) {
	sess, err := s.loadSession(ctx, tenantID, sessionID)
	if err != nil {
		return transport.SaveContractResponse{}, err
	}
	manager, err := s.managerFor(ctx, sess)
	if err != nil {
		return transport.SaveContractResponse{}, err
	}
	contract, err := s.chain.EnsureContract(ctx, sess)
	if err != nil {
		return transport.SaveContractResponse{}, err
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return transport.SaveContractResponse{}, apperr.Wrap(apperr.KindInternal, "could not store session", err)
	}
	if err := domain.GuardMutable(contract.Status, entityContract); err != nil {
		return transport.SaveContractResponse{}, err
	}

	applyContractForm(&contract, req)
	saved, err := s.contracts.UpdateContract(ctx, contract)
	if err != nil {
		return transport.SaveContractResponse{}, err
	}

	folderID := *sess.FolderID
	resp := transport.SaveContractResponse{Contract: saved}
	uploaded := s.uploadPending(ctx, sess, manager, &resp)

	resp.FolderSynced = s.reconciler.OnContractSaved(ctx, saved, folderID)
	resp.Checklist = manager.Checklist()

	s.publish(ctx, events.ContractSaved{
		BaseEvent:         events.NewBaseEvent(),
		OrganizationID:    tenantID,
		ContractID:        saved.ID,
		FirstImpressionID: saved.FirstImpressionID,
		FolderID:          folderID,
		UploadedDocuments: uploaded,
		PendingDocuments:  len(manager.Pending()),
		FolderSynced:      resp.FolderSynced,
	})
	return resp, nil
}

// uploadPending runs the checklist upload sequence and returns how many
// documents were persisted.
func (s *Service) uploadPending(ctx context.Context, sess *session.Session, manager *checklist.Manager, resp *transport.SaveContractResponse) int {
	results := manager.UploadPending(ctx, s.folderRemote(sess))
	resp.Uploads = make([]transport.UploadResponse, 0, len(results))

	uploaded := 0
	for position, result := range results {
		item := transport.UploadResponse{UploadResult: result}
		switch {
		case result.Success:
			uploaded++
		case result.Err != nil:
			item.Error = result.Err.Error()
			resp.UploadError = result.Err.Error()
			s.log.WithContext(ctx).UploadFailure(sess.FolderID.String(), string(result.DocType), position, result.Err)
		}
		resp.Uploads = append(resp.Uploads, item)
	}

	if uploaded > 0 {
		s.publish(ctx, events.DocumentsUploaded{
			BaseEvent:      events.NewBaseEvent(),
			OrganizationID: sess.OrganizationID,
			FolderID:       *sess.FolderID,
			Count:          uploaded,
			Remaining:      len(manager.Pending()),
		})
	}
	return uploaded
}

// ChangeContractStatus moves the session's contract through its lifecycle.
func (s *Service) ChangeContractStatus(ctx context.Context, tenantID, actorID uuid.UUID, sessionID, rawStatus string) (domain.MediationContract, error) {
	sess, err := s.loadSession(ctx, tenantID, sessionID)
	if err != nil {
		return domain.MediationContract{}, err
	}
	if sess.ContractID == nil {
		return domain.MediationContract{}, apperr.Validation(msgNoContract)
	}
	return s.ChangeContractStatusByID(ctx, tenantID, actorID, *sess.ContractID, rawStatus)
}

// ChangeContractStatusByID checks the transition before anything is written.
func (s *Service) ChangeContractStatusByID(ctx context.Context, tenantID, actorID, contractID uuid.UUID, rawStatus string) (domain.MediationContract, error) {
	next, err := domain.ParseStatus(rawStatus)
	if err != nil {
		return domain.MediationContract{}, err
	}
	contract, err := s.contracts.GetContract(ctx, tenantID, contractID)
	if err != nil {
		return domain.MediationContract{}, err
	}
	if err := domain.CheckTransition(contract.Status, next); err != nil {
		return domain.MediationContract{}, err
	}

	updated, err := s.contracts.UpdateContractStatus(ctx, tenantID, contractID, next)
	if err != nil {
		return domain.MediationContract{}, err
	}
	s.publish(ctx, events.ContractStatusChanged{
		BaseEvent:      events.NewBaseEvent(),
		OrganizationID: tenantID,
		ContractID:     contractID,
		OldStatus:      string(contract.Status),
		NewStatus:      string(next),
		ActorID:        actorID,
	})
	return updated, nil
}

// AddClientSignature stores a party's signature. The status is not changed.
func (s *Service) AddClientSignature(ctx context.Context, tenantID uuid.UUID, sessionID string, req transport.ClientSignatureRequest) (domain.MediationContract, error) {
	party, err := domain.ParseParty(req.Party)
	if err != nil {
		return domain.MediationContract{}, err
	}
	contract, err := s.mutableSessionContract(ctx, tenantID, sessionID)
	if err != nil {
		return domain.MediationContract{}, err
	}
	if party == domain.Party2 && contract.Party2 == nil {
		return domain.MediationContract{}, apperr.Validation("contract has no second party")
	}
	return s.contracts.AddClientSignature(ctx, tenantID, contract.ID, domain.ClientSignature{Party: party, ImageURL: req.ImageURL})
}

// AddAgentSignature stores the agent's signature. The status is not changed.
func (s *Service) AddAgentSignature(ctx context.Context, tenantID uuid.UUID, sessionID string, req transport.AgentSignatureRequest) (domain.MediationContract, error) {
	contract, err := s.mutableSessionContract(ctx, tenantID, sessionID)
	if err != nil {
		return domain.MediationContract{}, err
	}
	return s.contracts.AddAgentSignature(ctx, tenantID, contract.ID, req.ImageURL)
}

func (s *Service) mutableSessionContract(ctx context.Context, tenantID uuid.UUID, sessionID string) (domain.MediationContract, error) {
	sess, err := s.loadSession(ctx, tenantID, sessionID)
	if err != nil {
		return domain.MediationContract{}, err
	}
	if sess.ContractID == nil {
		return domain.MediationContract{}, apperr.Validation(msgNoContract)
	}
	contract, err := s.contracts.GetContract(ctx, tenantID, *sess.ContractID)
	if err != nil {
		return domain.MediationContract{}, err
	}
	if err := domain.GuardMutable(contract.Status, entityContract); err != nil {
		return domain.MediationContract{}, err
	}
	return contract, nil
}

// ContractPDF opens the stored PDF of a contract.
func (s *Service) ContractPDF(ctx context.Context, tenantID, contractID uuid.UUID) (io.ReadCloser, string, error) {
	contract, err := s.contracts.GetContract(ctx, tenantID, contractID)
	if err != nil {
		return nil, "", err
	}
	if contract.PDFFileKey == "" || s.pdfs == nil {
		return nil, "", apperr.NotFound("contract PDF not found")
	}
	reader, err := s.pdfs.DownloadPDF(ctx, contract.PDFFileKey)
	if err != nil {
		return nil, "", err
	}
	return reader, "cmi-" + contract.ID.String() + ".pdf", nil
}

// ResyncFolder re-runs the folder mirror for a contract. Unlike a save, a
// failure is returned to the caller.
func (s *Service) ResyncFolder(ctx context.Context, tenantID, contractID uuid.UUID) (domain.PreListingFolder, error) {
	contract, err := s.contracts.GetContract(ctx, tenantID, contractID)
	if err != nil {
		return domain.PreListingFolder{}, err
	}
	folder, err := s.folders.GetFolderByFirstImpression(ctx, tenantID, contract.FirstImpressionID)
	if err != nil {
		return domain.PreListingFolder{}, err
	}
	return s.reconciler.Mirror(ctx, contract, folder.ID)
}

// FolderChecklist renders the persisted checklist of a folder without a session.
func (s *Service) FolderChecklist(ctx context.Context, tenantID, folderID uuid.UUID) ([]checklist.Item, error) {
	folder, err := s.folders.GetFolder(ctx, tenantID, folderID)
	if err != nil {
		return nil, err
	}
	manager := checklist.NewManager()
	manager.RecordPersisted(folder.Documents)
	return manager.Checklist(), nil
}

// EnsureChain ensures the folder and the contract of a First Impression.
func (s *Service) EnsureChain(ctx context.Context, tenantID, firstImpressionID uuid.UUID) (domain.PreListingFolder, domain.MediationContract, error) {
	sess := session.New(tenantID, uuid.Nil, firstImpressionID)
	folder, err := s.chain.EnsureFolder(ctx, sess)
	if err != nil {
		return domain.PreListingFolder{}, domain.MediationContract{}, err
	}
	contract, err := s.chain.EnsureContract(ctx, sess)
	if err != nil {
		return domain.PreListingFolder{}, domain.MediationContract{}, err
	}
	return folder, contract, nil
}

func applyContractForm(c *domain.MediationContract, req transport.SaveContractRequest) {
	c.Party1 = partyFromInput(req.Party1)
	c.Party2 = nil
	if req.Party2 != nil {
		if p := partyFromInput(*req.Party2); !p.IsZero() {
			c.Party2 = &p
		}
	}
	c.CadastralArticle = sanitize.Text(req.CadastralArticle)
	c.Address = sanitize.Text(req.Address)
	c.PostalCode = sanitize.Text(req.PostalCode)
	c.Parish = sanitize.Text(req.Parish)
	c.Municipality = sanitize.Text(req.Municipality)
	c.Typology = sanitize.Text(req.Typology)
	c.GrossAreaM2 = req.GrossAreaM2
	c.UsableAreaM2 = req.UsableAreaM2
	c.ConservationState = sanitize.Text(req.ConservationState)
	c.EnergyClass = sanitize.Text(req.EnergyClass)
	c.ContractType = req.ContractType
	c.AskingPrice = req.AskingPrice
	c.MinimumPrice = req.MinimumPrice
	c.CommissionPct = req.CommissionPct
	c.TermMonths = req.TermMonths
	c.AgentName = sanitize.Text(req.AgentName)
	c.AgentLicense = sanitize.Text(req.AgentLicense)
}

func partyFromInput(in transport.PartyInput) domain.ContractParty {
	p := domain.ContractParty{
		Name:           sanitize.Text(in.Name),
		TaxID:          sanitize.Text(in.TaxID),
		DocumentNumber: sanitize.Text(in.DocumentNumber),
		DocumentExpiry: sanitize.Text(in.DocumentExpiry),
		MaritalStatus:  sanitize.Text(in.MaritalStatus),
		Address:        sanitize.Text(in.Address),
		Email:          sanitize.Text(in.Email),
	}
	if raw := sanitize.Text(in.Phone); raw != "" {
		p.Phone = phone.NormalizeE164(raw)
	}
	return p
}
