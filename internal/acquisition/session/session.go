// Package session holds the explicit per-capture-session context
// {firstImpressionId, folderId?, contractId?} that the chain coordinator
// reads and writes instead of ambient screen state.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"acquisition_backend/platform/apperr"
)

// Session is the context of one agent working one First Impression.
type Session struct {
	ID                string     `json:"id"`
	OrganizationID    uuid.UUID  `json:"organizationId"`
	AgentID           uuid.UUID  `json:"agentId"`
	FirstImpressionID uuid.UUID  `json:"firstImpressionId"`
	FolderID          *uuid.UUID `json:"folderId,omitempty"`
	ContractID        *uuid.UUID `json:"contractId,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
}

// New starts a session for a First Impression.
func New(orgID, agentID, firstImpressionID uuid.UUID) *Session {
	return &Session{
		ID:                uuid.NewString(),
		OrganizationID:    orgID,
		AgentID:           agentID,
		FirstImpressionID: firstImpressionID,
		CreatedAt:         time.Now().UTC(),
	}
}

// Store keeps sessions between requests.
type Store interface {
	Save(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}

// DefaultTTL bounds an idle session when no TTL is configured.
const DefaultTTL = 12 * time.Hour

// MemoryStore is a process-local Store. Entries expire ttl after their last
// Save, same as RedisStore.
type MemoryStore struct {
	mu       sync.RWMutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]memoryEntry
}

type memoryEntry struct {
	session   Session
	expiresAt time.Time
}

// NewMemoryStore creates an empty in-memory store. A non-positive ttl
// selects DefaultTTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{ttl: ttl, now: time.Now, sessions: make(map[string]memoryEntry)}
}

func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = memoryEntry{session: *s, expiresAt: m.now().Add(m.ttl)}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.sessions[id]
	if !ok {
		return nil, apperr.NotFound("session not found")
	}
	if !m.now().Before(entry.expiresAt) {
		delete(m.sessions, id)
		return nil, apperr.NotFound("session not found")
	}
	s := entry.session
	return &s, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

var _ Store = (*MemoryStore)(nil)
