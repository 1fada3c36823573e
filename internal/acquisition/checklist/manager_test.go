package checklist

import (
	"context"
	"errors"
	"testing"

	"acquisition_backend/internal/acquisition/domain"
	"acquisition_backend/platform/apperr"
)

type fakeRemote struct {
	documents []domain.DocumentRecord
	stored    []string
	failAt    int // 1-based store call that fails; 0 never
	calls     int
}

func (f *fakeRemote) Store(_ context.Context, doc PendingDocument) (string, error) {
	f.calls++
	if f.failAt == f.calls {
		return "", errors.New("storage unavailable")
	}
	f.stored = append(f.stored, doc.Handle)
	return "https://files.example.pt/" + doc.FileName, nil
}

func (f *fakeRemote) Append(_ context.Context, record domain.DocumentRecord) ([]domain.DocumentRecord, error) {
	f.documents = append(f.documents, record)
	return append([]domain.DocumentRecord(nil), f.documents...), nil
}

func (f *fakeRemote) Refresh(context.Context) ([]domain.DocumentRecord, error) {
	return append([]domain.DocumentRecord(nil), f.documents...), nil
}

func (f *fakeRemote) Remove(_ context.Context, index int) ([]domain.DocumentRecord, error) {
	f.documents = append(f.documents[:index:index], f.documents[index+1:]...)
	return append([]domain.DocumentRecord(nil), f.documents...), nil
}

func pending(docType, name string) PendingDocument {
	return NewPendingDocument(docType, []byte("not-a-jpeg"), "image/jpeg", name)
}

func TestCountByType(t *testing.T) {
	m := NewManager()
	m.RecordPersisted([]domain.DocumentRecord{
		{Type: "caderneta_predial"},
		{Type: "caderneta_predial"},
		{Type: "cc_frente"},
	})

	if got := m.CountByType(domain.DocPropertyTaxCard); got != 2 {
		t.Fatalf("expected 2 caderneta_predial, got %d", got)
	}
	if got := m.CountByType(domain.DocIDFront); got != 1 {
		t.Fatalf("expected 1 cc_frente, got %d", got)
	}
	if got := m.CountByType(domain.DocEnergyCertificate); got != 0 {
		t.Fatalf("expected 0 energy certificates, got %d", got)
	}
}

func TestCountByTypeBucketsUnknownAsGeneric(t *testing.T) {
	m := NewManager()
	m.RecordPersisted([]domain.DocumentRecord{{Type: "fatura_agua"}, {Type: ""}})

	if got := m.CountByType(domain.DocGenericOwner); got != 2 {
		t.Fatalf("expected unknown types in generic bucket, got %d", got)
	}
}

func TestRemovePendingPreservesOrder(t *testing.T) {
	m := NewManager()
	a := pending("cc_frente", "a.jpg")
	b := pending("cc_verso", "b.jpg")
	c := pending("caderneta_predial", "c.jpg")
	m.AddPending(a)
	m.AddPending(b)
	m.AddPending(c)

	removed, err := m.RemovePending(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed.Handle != b.Handle {
		t.Fatalf("removed wrong document %s", removed.FileName)
	}

	left := m.Pending()
	if len(left) != 2 || left[0].Handle != a.Handle || left[1].Handle != c.Handle {
		t.Fatalf("unexpected pending order %+v", left)
	}

	if _, err := m.RemovePending(5); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for out of range index, got %v", err)
	}
}

func TestPendingByType(t *testing.T) {
	m := NewManager()
	m.AddPending(pending("caderneta", "one.jpg"))
	m.AddPending(pending("cc_frente", "two.jpg"))
	m.AddPending(pending("property_tax_card", "three.jpg"))

	got := m.PendingByType(domain.DocPropertyTaxCard)
	if len(got) != 2 || got[0].FileName != "one.jpg" || got[1].FileName != "three.jpg" {
		t.Fatalf("unexpected pending by type %+v", got)
	}
}

func TestUploadPendingInCaptureOrder(t *testing.T) {
	m := NewManager()
	docs := []PendingDocument{
		pending("cc_frente", "1.jpg"),
		pending("certidao_permanente", "2.jpg"),
		pending("cc_verso", "3.jpg"),
		pending("unknown", "4.jpg"),
	}
	for _, d := range docs {
		m.AddPending(d)
	}
	remote := &fakeRemote{}

	results := m.UploadPending(context.Background(), remote)

	if len(results) != len(docs) {
		t.Fatalf("expected %d results, got %d", len(docs), len(results))
	}
	for i, r := range results {
		if !r.Success || r.Handle != docs[i].Handle {
			t.Fatalf("result %d: unexpected %+v", i, r)
		}
	}
	persisted := m.Persisted()
	if len(persisted) != len(docs) {
		t.Fatalf("expected %d persisted, got %d", len(docs), len(persisted))
	}
	for i, rec := range persisted {
		if rec.Name != docs[i].FileName {
			t.Fatalf("persisted out of order at %d: %s", i, rec.Name)
		}
	}
	if persisted[3].Type != domain.DocGenericOwner {
		t.Fatalf("expected unknown capture stored as generic, got %s", persisted[3].Type)
	}
	if len(m.Pending()) != 0 {
		t.Fatalf("expected empty pending list, got %d", len(m.Pending()))
	}
}

func TestUploadPendingStopsAtFirstFailure(t *testing.T) {
	m := NewManager()
	for _, name := range []string{"1.jpg", "2.jpg", "3.jpg", "4.jpg"} {
		m.AddPending(pending("caderneta_predial", name))
	}
	remote := &fakeRemote{failAt: 2}

	results := m.UploadPending(context.Background(), remote)

	if len(m.Persisted()) != 1 {
		t.Fatalf("expected exactly 1 persisted, got %d", len(m.Persisted()))
	}
	left := m.Pending()
	if len(left) != 3 || left[0].FileName != "2.jpg" {
		t.Fatalf("expected 3 pending starting at the failed one, got %+v", left)
	}
	if !apperr.Is(results[1].Err, apperr.KindUpload) {
		t.Fatalf("expected upload failure kind, got %v", results[1].Err)
	}
	if !results[2].Skipped || !results[3].Skipped {
		t.Fatal("expected documents after the failure to be skipped")
	}

	// retry picks up where it stopped
	remote.failAt = 0
	m.UploadPending(context.Background(), remote)
	if len(m.Persisted()) != 4 || len(m.Pending()) != 0 {
		t.Fatalf("expected retry to finish, got %d persisted %d pending", len(m.Persisted()), len(m.Pending()))
	}
}

func TestChecklistView(t *testing.T) {
	m := NewManager()
	m.RecordPersisted([]domain.DocumentRecord{{Type: domain.DocIDFront}})
	m.AddPending(pending("cc_frente", "x.jpg"))
	m.AddPending(pending("certificado_energetico", "y.jpg"))

	items := m.Checklist()
	if len(items) != len(domain.ChecklistOrder) {
		t.Fatalf("expected %d rows, got %d", len(domain.ChecklistOrder), len(items))
	}
	if items[0].Type != domain.DocIDFront || items[0].Uploaded != 1 || items[0].Pending != 1 {
		t.Fatalf("unexpected first row %+v", items[0])
	}
	if items[5].Type != domain.DocEnergyCertificate || items[5].Pending != 1 {
		t.Fatalf("unexpected energy row %+v", items[5])
	}
}

func TestRemovePersistedRefetchesFirst(t *testing.T) {
	m := NewManager()
	remote := &fakeRemote{documents: []domain.DocumentRecord{
		{Type: domain.DocIDFront, Name: "a"},
		{Type: domain.DocIDBack, Name: "b"},
	}}
	// local view is stale: it has never seen the server list
	if err := m.RemovePersisted(context.Background(), remote, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	persisted := m.Persisted()
	if len(persisted) != 1 || persisted[0].Name != "a" {
		t.Fatalf("unexpected persisted %+v", persisted)
	}

	if err := m.RemovePersisted(context.Background(), remote, 3); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
