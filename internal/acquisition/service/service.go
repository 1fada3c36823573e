// Package service orchestrates the acquisition pipeline: First Impressions,
// capture sessions, the document checklist, OCR ingestion, contract saves
// and the contract lifecycle.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"acquisition_backend/internal/acquisition/chain"
	"acquisition_backend/internal/acquisition/checklist"
	"acquisition_backend/internal/acquisition/ocr"
	"acquisition_backend/internal/acquisition/ports"
	"acquisition_backend/internal/acquisition/reconcile"
	"acquisition_backend/internal/acquisition/session"
	"acquisition_backend/internal/events"
	"acquisition_backend/platform/apperr"
	"acquisition_backend/platform/logger"
)

const (
	entityFirstImpression = "first impression"
	entityContract        = "mediation contract"
	msgNoContract         = "session has no mediation contract yet"
)

// Deps lists the collaborators of the service. Storage and PDFs may be nil
// when MinIO is not configured; EventBus may be nil. SessionTTL is how long
// an untouched capture session keeps its pending documents in memory.
type Deps struct {
	FirstImpressions ports.FirstImpressionStore
	Folders          ports.FolderStore
	Contracts        ports.ContractStore
	Extractor        ports.Extractor
	Storage          ports.FileStorage
	PDFs             ports.ContractPDFs
	Sessions         session.Store
	EventBus         events.Bus
	MinConfidence    float64
	SessionTTL       time.Duration
	Logger           *logger.Logger
	Now              func() time.Time
}

// Service provides business logic for the acquisition pipeline.
type Service struct {
	firstImpressions ports.FirstImpressionStore
	folders          ports.FolderStore
	contracts        ports.ContractStore
	storage          ports.FileStorage
	pdfs             ports.ContractPDFs
	sessions         session.Store
	chain            *chain.Coordinator
	pipeline         *ocr.Pipeline
	reconciler       *reconcile.Reconciler
	eventBus         events.Bus
	log              *logger.Logger
	sessionTTL       time.Duration
	now              func() time.Time

	mu       sync.Mutex
	managers map[string]*trackedManager
}

// trackedManager is a session's checklist plus when it was last used.
type trackedManager struct {
	manager *checklist.Manager
	touched time.Time
}

// New creates the acquisition service.
func New(deps Deps) *Service {
	log := deps.Logger
	if log == nil {
		log = logger.Discard()
	}
	sessionTTL := deps.SessionTTL
	if sessionTTL <= 0 {
		sessionTTL = session.DefaultTTL
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	sessions := deps.Sessions
	if sessions == nil {
		sessions = session.NewMemoryStore(sessionTTL)
	}
	storage := deps.Storage
	if storage == nil {
		storage = unavailableStorage{}
	}

	return &Service{
		firstImpressions: deps.FirstImpressions,
		folders:          deps.Folders,
		contracts:        deps.Contracts,
		storage:          storage,
		pdfs:             deps.PDFs,
		sessions:         sessions,
		chain:            chain.New(deps.Folders, deps.Contracts),
		pipeline:         ocr.NewPipeline(deps.Extractor, deps.MinConfidence, log),
		reconciler:       reconcile.New(deps.Folders, deps.EventBus, log),
		eventBus:         deps.EventBus,
		log:              log,
		sessionTTL:       sessionTTL,
		now:              now,
		managers:         make(map[string]*trackedManager),
	}
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.eventBus != nil {
		s.eventBus.Publish(ctx, event)
	}
}

// unavailableStorage fails every upload so pending documents stay queued.
type unavailableStorage struct{}

func (unavailableStorage) Upload(context.Context, uuid.UUID, string, string, string, []byte) (string, error) {
	return "", apperr.Upload("file storage is not configured", nil)
}
