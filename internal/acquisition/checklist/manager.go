// Package checklist tracks, per contract session, which checklist documents
// are persisted on the folder and which are captured but still pending.
package checklist

import (
	"context"
	"fmt"
	"sync"

	"acquisition_backend/internal/acquisition/domain"
	"acquisition_backend/platform/apperr"
)

// Remote is the server side of the checklist: durable storage plus the
// folder's index-addressed document list.
type Remote interface {
	Store(ctx context.Context, doc PendingDocument) (string, error)
	Append(ctx context.Context, record domain.DocumentRecord) ([]domain.DocumentRecord, error)
	Refresh(ctx context.Context) ([]domain.DocumentRecord, error)
	Remove(ctx context.Context, index int) ([]domain.DocumentRecord, error)
}

// Item is one row of the checklist view.
type Item struct {
	Type     domain.DocumentType `json:"type"`
	Label    string              `json:"label"`
	Uploaded int                 `json:"uploaded"`
	Pending  int                 `json:"pending"`
}

// UploadResult reports one pending document's outcome.
type UploadResult struct {
	Handle  string                 `json:"handle"`
	DocType domain.DocumentType    `json:"docType"`
	Success bool                   `json:"success"`
	Skipped bool                   `json:"skipped,omitempty"`
	Record  *domain.DocumentRecord `json:"record,omitempty"`
	Err     error                  `json:"-"`
}

// Manager holds the persisted and pending views. Every mutation happens
// under one lock so the two views are never observed out of step.
type Manager struct {
	mu        sync.RWMutex
	persisted []domain.DocumentRecord
	counts    map[domain.DocumentType]int
	pending   []PendingDocument

	uploadMu sync.Mutex
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{counts: make(map[domain.DocumentType]int)}
}

// RecordPersisted replaces the persisted view with the server's list.
func (m *Manager) RecordPersisted(documents []domain.DocumentRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setPersistedLocked(documents)
}

func (m *Manager) setPersistedLocked(documents []domain.DocumentRecord) {
	m.persisted = append([]domain.DocumentRecord(nil), documents...)
	m.counts = make(map[domain.DocumentType]int, len(domain.ChecklistOrder))
	for _, doc := range m.persisted {
		m.counts[domain.ParseDocumentType(string(doc.Type))]++
	}
}

// AddPending appends a captured document and returns its index.
func (m *Manager) AddPending(doc PendingDocument) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, doc)
	return len(m.pending) - 1
}

// RemovePending discards the pending document at index.
func (m *Manager) RemovePending(index int) (PendingDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index < 0 || index >= len(m.pending) {
		return PendingDocument{}, apperr.Validation(fmt.Sprintf("pending index %d out of range", index))
	}
	removed := m.pending[index]
	m.pending = append(m.pending[:index:index], m.pending[index+1:]...)
	return removed, nil
}

// CountByType returns how many persisted documents fall in the type's bucket.
func (m *Manager) CountByType(t domain.DocumentType) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.counts[domain.ParseDocumentType(string(t))]
}

// PendingByType returns the pending documents of a type in capture order.
func (m *Manager) PendingByType(t domain.DocumentType) []PendingDocument {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bucket := domain.ParseDocumentType(string(t))
	var out []PendingDocument
	for _, doc := range m.pending {
		if doc.Canonical() == bucket {
			out = append(out, doc)
		}
	}
	return out
}

// Pending returns a copy of the pending list.
func (m *Manager) Pending() []PendingDocument {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]PendingDocument{}, m.pending...)
}

// Persisted returns a copy of the persisted list.
func (m *Manager) Persisted() []domain.DocumentRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.DocumentRecord{}, m.persisted...)
}

// Checklist renders "N uploaded / M pending" per type in display order.
func (m *Manager) Checklist() []Item {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pendingCounts := make(map[domain.DocumentType]int, len(domain.ChecklistOrder))
	for _, doc := range m.pending {
		pendingCounts[doc.Canonical()]++
	}

	items := make([]Item, 0, len(domain.ChecklistOrder))
	for _, t := range domain.ChecklistOrder {
		items = append(items, Item{
			Type:     t,
			Label:    t.Label(),
			Uploaded: m.counts[t],
			Pending:  pendingCounts[t],
		})
	}
	return items
}

// UploadPending uploads every pending document strictly in capture order.
// Each success moves the document from pending to persisted in one step.
// The first failure stops the sequence: earlier uploads stay persisted and
// the failed and later documents stay pending.
func (m *Manager) UploadPending(ctx context.Context, remote Remote) []UploadResult {
	m.uploadMu.Lock()
	defer m.uploadMu.Unlock()

	queue := m.Pending()
	results := make([]UploadResult, 0, len(queue))
	failed := false

	for _, doc := range queue {
		result := UploadResult{Handle: doc.Handle, DocType: doc.Canonical()}
		if failed || !m.isPending(doc.Handle) {
			result.Skipped = true
			results = append(results, result)
			continue
		}

		record, documents, err := uploadOne(ctx, remote, doc)
		if err != nil {
			failed = true
			result.Err = err
			results = append(results, result)
			continue
		}

		m.commit(doc.Handle, documents)
		result.Success = true
		result.Record = &record
		results = append(results, result)
	}
	return results
}

// uploadOne is the per-document pipeline: store -> canonical type -> append.
func uploadOne(ctx context.Context, remote Remote, doc PendingDocument) (domain.DocumentRecord, []domain.DocumentRecord, error) {
	url, err := remote.Store(ctx, doc)
	if err != nil {
		return domain.DocumentRecord{}, nil, asUploadError("store document", err)
	}

	record := domain.DocumentRecord{
		Type: doc.Canonical(),
		Name: doc.FileName,
		URL:  url,
	}

	documents, err := remote.Append(ctx, record)
	if err != nil {
		return domain.DocumentRecord{}, nil, asUploadError("add document to folder", err)
	}
	return record, documents, nil
}

// RemovePersisted deletes the persisted document at index. The list is
// re-fetched first so the index is checked against the server's order.
func (m *Manager) RemovePersisted(ctx context.Context, remote Remote, index int) error {
	documents, err := remote.Refresh(ctx)
	if err != nil {
		return err
	}
	m.RecordPersisted(documents)

	if index < 0 || index >= len(documents) {
		return apperr.Validation(fmt.Sprintf("document index %d out of range", index))
	}

	documents, err = remote.Remove(ctx, index)
	if err != nil {
		return err
	}
	m.RecordPersisted(documents)
	return nil
}

func (m *Manager) isPending(handle string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.indexOfLocked(handle) >= 0
}

func (m *Manager) commit(handle string, documents []domain.DocumentRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.indexOfLocked(handle); i >= 0 {
		m.pending = append(m.pending[:i:i], m.pending[i+1:]...)
	}
	m.setPersistedLocked(documents)
}

func (m *Manager) indexOfLocked(handle string) int {
	for i, doc := range m.pending {
		if doc.Handle == handle {
			return i
		}
	}
	return -1
}

func asUploadError(op string, err error) error {
	if apperr.GetKind(err) != apperr.KindUnknown {
		return err
	}
	return apperr.Upload(op+" failed", err).WithOp("checklist.upload")
}
