package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"acquisition_backend/internal/acquisition/domain"
	"acquisition_backend/internal/acquisition/ports"
	"acquisition_backend/internal/acquisition/repository"
	"acquisition_backend/internal/acquisition/session"
	"acquisition_backend/internal/acquisition/transport"
	"acquisition_backend/internal/events"
	"acquisition_backend/platform/apperr"
	"acquisition_backend/platform/logger"
)

type fakeExtractor struct {
	result domain.ExtractionResult
	err    error
}

func (f *fakeExtractor) ExtractForContract(_ context.Context, _ domain.MediationContract, _ ports.Image, _ domain.DocumentType) (domain.ExtractionResult, error) {
	return f.result, f.err
}

func (f *fakeExtractor) ExtractStandalone(_ context.Context, _ ports.Image, _ domain.DocumentType) (domain.ExtractionResult, error) {
	return f.result, f.err
}

type fakeStorage struct {
	mu     sync.Mutex
	calls  int
	failAt int
	names  []string
}

func (f *fakeStorage) Upload(_ context.Context, _ uuid.UUID, folder, fileName, _ string, _ []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failAt > 0 && f.calls == f.failAt {
		return "", errors.New("connection reset")
	}
	f.names = append(f.names, fileName)
	return "https://files.example.pt/" + folder + "/" + fileName, nil
}

type fakePDFs struct{}

func (fakePDFs) DownloadPDF(_ context.Context, fileKey string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("%PDF " + fileKey)), nil
}

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *recordingBus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.EventName())
	}
	return out
}

type fixture struct {
	svc       *Service
	store     *repository.Memory
	storage   *fakeStorage
	extractor *fakeExtractor
	bus       *recordingBus
	tenantID  uuid.UUID
	agentID   uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, nil)
}

func newFixtureWith(t *testing.T, configure func(*Deps)) *fixture {
	t.Helper()
	f := &fixture{
		store:     repository.NewMemory(),
		storage:   &fakeStorage{},
		extractor: &fakeExtractor{result: domain.ExtractionResult{Success: true, Confidence: 0.9}},
		bus:       &recordingBus{},
		tenantID:  uuid.New(),
		agentID:   uuid.New(),
	}
	deps := Deps{
		FirstImpressions: f.store,
		Folders:          f.store,
		Contracts:        f.store,
		Extractor:        f.extractor,
		Storage:          f.storage,
		PDFs:             fakePDFs{},
		EventBus:         f.bus,
		MinConfidence:    0.5,
		Logger:           logger.Discard(),
	}
	if configure != nil {
		configure(&deps)
	}
	f.svc = New(deps)
	return f
}

func (f *fixture) firstImpression(t *testing.T) domain.FirstImpression {
	t.Helper()
	value := 250000.0
	fi, err := f.svc.CreateFirstImpression(context.Background(), f.tenantID, f.agentID, transport.FirstImpressionRequest{
		ClientName:     "Ana Silva",
		ClientPhone:    "912 345 678",
		EstimatedValue: &value,
	})
	if err != nil {
		t.Fatalf("create first impression: %v", err)
	}
	return fi
}

func (f *fixture) session(t *testing.T) string {
	t.Helper()
	fi := f.firstImpression(t)
	resp, err := f.svc.StartSession(context.Background(), f.tenantID, f.agentID, fi.ID)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	return resp.SessionID
}

func (f *fixture) capture(t *testing.T, sessionID, docType string) transport.CaptureResponse {
	t.Helper()
	resp, err := f.svc.Capture(context.Background(), f.tenantID, sessionID,
		ports.Image{Data: []byte("jpeg"), MIMEType: "image/jpeg"},
		transport.CaptureRequest{DocType: docType, TargetParty: 1})
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	return resp
}

func TestCreateFirstImpressionNormalisesPhone(t *testing.T) {
	f := newFixture(t)
	fi := f.firstImpression(t)

	if fi.ClientPhone != "+351912345678" {
		t.Fatalf("expected E.164 phone, got %q", fi.ClientPhone)
	}
	if fi.Status != domain.StatusDraft {
		t.Fatalf("expected draft, got %s", fi.Status)
	}
}

func TestCreateFirstImpressionValidation(t *testing.T) {
	f := newFixture(t)
	lat := 95.0
	lng := 10.0
	tests := []struct {
		name string
		req  transport.FirstImpressionRequest
	}{
		{name: "blank name", req: transport.FirstImpressionRequest{ClientName: "   "}},
		{name: "latitude out of range", req: transport.FirstImpressionRequest{ClientName: "Rui", Latitude: &lat, Longitude: &lng}},
		{name: "latitude without longitude", req: transport.FirstImpressionRequest{ClientName: "Rui", Longitude: &lng}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateFirstImpression(context.Background(), f.tenantID, f.agentID, tt.req)
			if !apperr.Is(err, apperr.KindValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestUpdateFirstImpressionRejectedWhenTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fi := f.firstImpression(t)

	if _, err := f.svc.ChangeFirstImpressionStatus(ctx, f.tenantID, fi.ID, "cancelled"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	_, err := f.svc.UpdateFirstImpression(ctx, f.tenantID, fi.ID, transport.FirstImpressionRequest{ClientName: "Outro"})
	if !apperr.Is(err, apperr.KindTransitionRejected) {
		t.Fatalf("expected transition rejected, got %v", err)
	}
	if _, err := f.svc.ChangeFirstImpressionStatus(ctx, f.tenantID, fi.ID, "draft"); !apperr.Is(err, apperr.KindTransitionRejected) {
		t.Fatalf("expected terminal status to stay, got %v", err)
	}
}

func TestStartSessionTwiceReusesFolder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fi := f.firstImpression(t)

	first, err := f.svc.StartSession(ctx, f.tenantID, f.agentID, fi.ID)
	if err != nil {
		t.Fatalf("first session: %v", err)
	}
	second, err := f.svc.StartSession(ctx, f.tenantID, f.agentID, fi.ID)
	if err != nil {
		t.Fatalf("second session: %v", err)
	}
	if first.Folder.ID != second.Folder.ID {
		t.Fatalf("expected one folder, got %s and %s", first.Folder.ID, second.Folder.ID)
	}
	if n := f.store.CallCount("CreateFolderFromFirstImpression"); n != 1 {
		t.Fatalf("expected one folder create, got %d", n)
	}
}

func TestStartSessionMissingFirstImpression(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.StartSession(context.Background(), f.tenantID, f.agentID, uuid.New())
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSessionOfAnotherTenantIsHidden(t *testing.T) {
	f := newFixture(t)
	sid := f.session(t)

	_, err := f.svc.Checklist(context.Background(), uuid.New(), sid)
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCaptureUsesDetectedTypeForBucket(t *testing.T) {
	f := newFixture(t)
	sid := f.session(t)
	f.extractor.result = domain.ExtractionResult{
		Success:      true,
		DetectedType: domain.DocPermanentCertificate,
		Confidence:   0.8,
		Fields:       map[string]string{"parish": "Arroios"},
	}

	resp := f.capture(t, sid, "caderneta_predial")
	if resp.Warning != "" {
		t.Fatalf("unexpected warning %q", resp.Warning)
	}
	if resp.Patch.Property.Parish == nil || *resp.Patch.Property.Parish != "Arroios" {
		t.Fatalf("expected parish in patch, got %+v", resp.Patch.Property)
	}

	view, err := f.svc.Checklist(context.Background(), f.tenantID, sid)
	if err != nil {
		t.Fatalf("checklist: %v", err)
	}
	for _, item := range view.Items {
		if item.Type == domain.DocPermanentCertificate && item.Pending != 1 {
			t.Fatalf("expected certificate pending, got %+v", item)
		}
		if item.Type == domain.DocPropertyTaxCard && item.Pending != 0 {
			t.Fatalf("expected requested type untouched, got %+v", item)
		}
	}
}

func TestCaptureExtractionFailureStillPending(t *testing.T) {
	f := newFixture(t)
	sid := f.session(t)
	f.extractor.err = errors.New("timeout")

	resp := f.capture(t, sid, "cc_frente")
	if resp.Warning == "" {
		t.Fatal("expected a warning")
	}
	if !resp.Patch.IsEmpty() {
		t.Fatalf("expected no fields written, got %+v", resp.Patch)
	}
	view, _ := f.svc.Checklist(context.Background(), f.tenantID, sid)
	if len(view.Pending) != 1 {
		t.Fatalf("expected one pending capture, got %d", len(view.Pending))
	}
}

func TestCaptureRejectsUnknownParty(t *testing.T) {
	f := newFixture(t)
	sid := f.session(t)

	_, err := f.svc.Capture(context.Background(), f.tenantID, sid,
		ports.Image{Data: []byte("jpeg")}, transport.CaptureRequest{DocType: "cc_frente", TargetParty: 3})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCaptureRecordsContractScopedExtraction(t *testing.T) {
	f := newFixture(t)
	sid := f.session(t)
	if _, err := f.svc.EnsureContract(context.Background(), f.tenantID, sid); err != nil {
		t.Fatalf("ensure contract: %v", err)
	}

	resp := f.capture(t, sid, "cc_frente")
	if resp.Result.DetectedType != domain.DocIDFront {
		t.Fatalf("unexpected detected type %s", resp.Result.DetectedType)
	}
}

func TestSaveContractUploadsInOrderAndMirrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sid := f.session(t)
	f.capture(t, sid, "cc_frente")
	f.capture(t, sid, "cc_verso")

	resp, err := f.svc.SaveContract(ctx, f.tenantID, sid, transport.SaveContractRequest{
		Party1:       transport.PartyInput{Name: "Ana Silva", TaxID: "123456789", Phone: "912345678"},
		Parish:       "Arroios",
		Municipality: "Lisboa",
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if len(resp.Uploads) != 2 || !resp.Uploads[0].Success || !resp.Uploads[1].Success {
		t.Fatalf("expected two uploads, got %+v", resp.Uploads)
	}
	if !resp.FolderSynced {
		t.Fatal("expected folder in sync")
	}

	view, _ := f.svc.Checklist(ctx, f.tenantID, sid)
	if len(view.Pending) != 0 || len(view.Persisted) != 2 {
		t.Fatalf("expected all persisted, got %d pending %d persisted", len(view.Pending), len(view.Persisted))
	}
	if view.Persisted[0].Type != domain.DocIDFront || view.Persisted[1].Type != domain.DocIDBack {
		t.Fatalf("expected capture order, got %+v", view.Persisted)
	}

	folder, err := f.store.GetFolder(ctx, f.tenantID, view.FolderID)
	if err != nil {
		t.Fatalf("get folder: %v", err)
	}
	if folder.OwnerTaxID != "123456789" || folder.Parish != "Arroios" || folder.OwnerPhone != "+351912345678" {
		t.Fatalf("expected mirrored folder, got %+v", folder)
	}

	names := f.bus.names()
	if len(names) != 2 || names[0] != "acquisition.documents.uploaded" || names[1] != "acquisition.contract.saved" {
		t.Fatalf("unexpected events %v", names)
	}
}

func TestSaveContractUploadFailureKeepsRemainingPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sid := f.session(t)
	for _, docType := range []string{"cc_frente", "cc_verso", "caderneta_predial"} {
		f.capture(t, sid, docType)
	}
	f.storage.failAt = 2

	resp, err := f.svc.SaveContract(ctx, f.tenantID, sid, transport.SaveContractRequest{Party1: transport.PartyInput{Name: "Ana"}})
	if err != nil {
		t.Fatalf("save must succeed despite the upload failure: %v", err)
	}
	if resp.UploadError == "" {
		t.Fatal("expected upload error in response")
	}
	if !resp.Uploads[2].Skipped {
		t.Fatalf("expected third upload skipped, got %+v", resp.Uploads[2])
	}

	view, _ := f.svc.Checklist(ctx, f.tenantID, sid)
	if len(view.Persisted) != 1 || len(view.Pending) != 2 {
		t.Fatalf("expected 1 persisted and 2 pending, got %d and %d", len(view.Persisted), len(view.Pending))
	}

	f.storage.failAt = 0
	resp, err = f.svc.SaveContract(ctx, f.tenantID, sid, transport.SaveContractRequest{Party1: transport.PartyInput{Name: "Ana"}})
	if err != nil || resp.UploadError != "" {
		t.Fatalf("retry: %v %q", err, resp.UploadError)
	}
	view, _ = f.svc.Checklist(ctx, f.tenantID, sid)
	if len(view.Persisted) != 3 || len(view.Pending) != 0 {
		t.Fatalf("expected all persisted after retry, got %d and %d", len(view.Persisted), len(view.Pending))
	}
}

func TestSaveContractFolderSyncFailureIsWarning(t *testing.T) {
	f := newFixture(t)
	sid := f.session(t)
	f.store.FailFolderUpdate = errors.New("folder service down")

	resp, err := f.svc.SaveContract(context.Background(), f.tenantID, sid, transport.SaveContractRequest{Party1: transport.PartyInput{Name: "Ana"}})
	if err != nil {
		t.Fatalf("save must succeed: %v", err)
	}
	if resp.FolderSynced {
		t.Fatal("expected folder out of sync")
	}
	if resp.Contract.Party1.Name != "Ana" {
		t.Fatalf("expected saved contract, got %+v", resp.Contract.Party1)
	}
}

func TestCaptureRejectedWhenContractTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sid := f.session(t)
	if _, err := f.svc.EnsureContract(ctx, f.tenantID, sid); err != nil {
		t.Fatalf("ensure contract: %v", err)
	}
	if _, err := f.svc.ChangeContractStatus(ctx, f.tenantID, f.agentID, sid, "cancelled"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	_, err := f.svc.Capture(ctx, f.tenantID, sid, ports.Image{Data: []byte("jpeg"), MIMEType: "image/jpeg"}, transport.CaptureRequest{DocType: "cc_frente"})
	if !apperr.Is(err, apperr.KindTransitionRejected) {
		t.Fatalf("expected capture rejected on a cancelled contract, got %v", err)
	}
	if _, err := f.svc.RemovePending(ctx, f.tenantID, sid, 0); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected empty pending list, got %v", err)
	}
}

func TestTerminalContractRejectsEverything(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sid := f.session(t)
	f.capture(t, sid, "cc_frente")
	if _, err := f.svc.EnsureContract(ctx, f.tenantID, sid); err != nil {
		t.Fatalf("ensure contract: %v", err)
	}
	if _, err := f.svc.ChangeContractStatus(ctx, f.tenantID, f.agentID, sid, "completed"); err != nil {
		t.Fatalf("complete: %v", err)
	}

	statusWrites := f.store.CallCount("UpdateContractStatus")
	contractWrites := f.store.CallCount("UpdateContract")

	if _, err := f.svc.ChangeContractStatus(ctx, f.tenantID, f.agentID, sid, "signed"); !apperr.Is(err, apperr.KindTransitionRejected) {
		t.Fatalf("expected transition rejected, got %v", err)
	}
	if _, err := f.svc.SaveContract(ctx, f.tenantID, sid, transport.SaveContractRequest{}); !apperr.Is(err, apperr.KindTransitionRejected) {
		t.Fatalf("expected save rejected, got %v", err)
	}
	if _, err := f.svc.AddAgentSignature(ctx, f.tenantID, sid, transport.AgentSignatureRequest{ImageURL: "https://x.pt/s.png"}); !apperr.Is(err, apperr.KindTransitionRejected) {
		t.Fatalf("expected signature rejected, got %v", err)
	}

	if f.store.CallCount("UpdateContractStatus") != statusWrites || f.store.CallCount("UpdateContract") != contractWrites {
		t.Fatal("expected no contract writes after a rejected change")
	}
	if f.storage.calls != 0 {
		t.Fatalf("expected no uploads, got %d", f.storage.calls)
	}
}

func TestChangeContractStatusPublishesEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sid := f.session(t)
	if _, err := f.svc.ChangeContractStatus(ctx, f.tenantID, f.agentID, sid, "signed"); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error without a contract, got %v", err)
	}
	if _, err := f.svc.EnsureContract(ctx, f.tenantID, sid); err != nil {
		t.Fatalf("ensure contract: %v", err)
	}

	contract, err := f.svc.ChangeContractStatus(ctx, f.tenantID, f.agentID, sid, "signed")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if contract.Status != domain.StatusSigned {
		t.Fatalf("expected signed, got %s", contract.Status)
	}
	names := f.bus.names()
	if len(names) != 1 || names[0] != "acquisition.contract.status_changed" {
		t.Fatalf("unexpected events %v", names)
	}
}

func TestSignaturesDoNotChangeStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sid := f.session(t)
	if _, err := f.svc.EnsureContract(ctx, f.tenantID, sid); err != nil {
		t.Fatalf("ensure contract: %v", err)
	}

	if _, err := f.svc.AddClientSignature(ctx, f.tenantID, sid, transport.ClientSignatureRequest{Party: 2, ImageURL: "https://x.pt/p2.png"}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for missing party 2, got %v", err)
	}
	contract, err := f.svc.AddClientSignature(ctx, f.tenantID, sid, transport.ClientSignatureRequest{Party: 1, ImageURL: "https://x.pt/p1.png"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if len(contract.ClientSignatures) != 1 || contract.Status != domain.StatusDraft {
		t.Fatalf("unexpected contract %+v", contract)
	}
}

func TestRemovePendingAndPersisted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sid := f.session(t)
	f.capture(t, sid, "cc_frente")
	f.capture(t, sid, "cc_verso")
	if _, err := f.svc.SaveContract(ctx, f.tenantID, sid, transport.SaveContractRequest{Party1: transport.PartyInput{Name: "Ana"}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	f.capture(t, sid, "caderneta_predial")

	view, err := f.svc.RemovePending(ctx, f.tenantID, sid, 0)
	if err != nil {
		t.Fatalf("remove pending: %v", err)
	}
	if len(view.Pending) != 0 {
		t.Fatalf("expected no pending, got %d", len(view.Pending))
	}

	view, err = f.svc.RemovePersisted(ctx, f.tenantID, sid, 0)
	if err != nil {
		t.Fatalf("remove persisted: %v", err)
	}
	if len(view.Persisted) != 1 || view.Persisted[0].Type != domain.DocIDBack {
		t.Fatalf("expected the back side to remain, got %+v", view.Persisted)
	}
	if _, err := f.svc.RemovePersisted(ctx, f.tenantID, sid, 5); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected out of range validation, got %v", err)
	}
}

func TestContractPDF(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sid := f.session(t)
	contract, err := f.svc.EnsureContract(ctx, f.tenantID, sid)
	if err != nil {
		t.Fatalf("ensure contract: %v", err)
	}

	if _, _, err := f.svc.ContractPDF(ctx, f.tenantID, contract.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found without a PDF, got %v", err)
	}

	f.store.SetContractPDF(contract.ID, "pdfs/cmi.pdf")
	reader, name, err := f.svc.ContractPDF(ctx, f.tenantID, contract.ID)
	if err != nil {
		t.Fatalf("pdf: %v", err)
	}
	defer reader.Close()
	body, _ := io.ReadAll(reader)
	if !strings.HasPrefix(string(body), "%PDF") || !strings.HasSuffix(name, ".pdf") {
		t.Fatalf("unexpected pdf %q %q", name, body)
	}
}

func TestResyncFolderReturnsSyncFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fi := f.firstImpression(t)
	_, contract, err := f.svc.EnsureChain(ctx, f.tenantID, fi.ID)
	if err != nil {
		t.Fatalf("ensure chain: %v", err)
	}

	if _, err := f.svc.ResyncFolder(ctx, f.tenantID, contract.ID); err != nil {
		t.Fatalf("resync: %v", err)
	}
	f.store.FailFolderUpdate = errors.New("down")
	if _, err := f.svc.ResyncFolder(ctx, f.tenantID, contract.ID); !apperr.Is(err, apperr.KindSync) {
		t.Fatalf("expected sync failure, got %v", err)
	}
}

func TestCaptureRejectsUnsupportedImageType(t *testing.T) {
	f := newFixture(t)
	sid := f.session(t)

	_, err := f.svc.Capture(context.Background(), f.tenantID, sid,
		ports.Image{Data: []byte("GIF89a"), MIMEType: "image/gif"},
		transport.CaptureRequest{DocType: "cc_frente", TargetParty: 1})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	f.capture(t, sid, "cc_verso")
	resp, err := f.svc.SaveContract(context.Background(), f.tenantID, sid, transport.SaveContractRequest{Party1: transport.PartyInput{Name: "Ana"}})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if resp.UploadError != "" || len(resp.Uploads) != 1 || !resp.Uploads[0].Success {
		t.Fatalf("expected the valid capture to upload, got %+v", resp)
	}
}

func TestExpiredSessionReleasesPendingDocuments(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := newFixtureWith(t, func(d *Deps) {
		d.Sessions = session.NewRedisStoreWithClient(client, time.Minute)
	})
	ctx := context.Background()
	sid := f.session(t)
	f.capture(t, sid, "cc_frente")
	if f.svc.ActiveSessions() != 1 {
		t.Fatalf("expected one active session, got %d", f.svc.ActiveSessions())
	}

	mr.FastForward(2 * time.Minute)

	if _, err := f.svc.Checklist(ctx, f.tenantID, sid); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected expired session, got %v", err)
	}
	if f.svc.ActiveSessions() != 0 {
		t.Fatalf("expected pending documents to be released, got %d sessions", f.svc.ActiveSessions())
	}
}

func TestSweepDropsExpiredAndIdleSessions(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	now := time.Now()
	f := newFixtureWith(t, func(d *Deps) {
		d.Sessions = session.NewRedisStoreWithClient(client, time.Minute)
		d.SessionTTL = time.Hour
		d.Now = func() time.Time { return now }
	})
	ctx := context.Background()

	expired := f.session(t)
	f.capture(t, expired, "cc_frente")
	mr.FastForward(2 * time.Minute)

	if dropped := f.svc.SweepSessions(ctx); dropped != 1 {
		t.Fatalf("expected the expired session to be swept, got %d", dropped)
	}

	idle := f.session(t)
	f.capture(t, idle, "cc_verso")
	now = now.Add(30 * time.Minute)
	if dropped := f.svc.SweepSessions(ctx); dropped != 0 {
		t.Fatalf("expected recently used session to survive, got %d dropped", dropped)
	}

	now = now.Add(2 * time.Hour)
	if dropped := f.svc.SweepSessions(ctx); dropped != 1 {
		t.Fatalf("expected the idle session to be swept, got %d", dropped)
	}
	if f.svc.ActiveSessions() != 0 {
		t.Fatalf("expected no active sessions, got %d", f.svc.ActiveSessions())
	}
}
