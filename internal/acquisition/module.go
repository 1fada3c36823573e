// Package acquisition provides the acquisition pipeline module, from the
// First Impression to the signed mediation contract.
package acquisition

import (
	"context"
	"log/slog"
	"time"

	"acquisition_backend/internal/acquisition/handler"
	"acquisition_backend/internal/acquisition/ocr"
	"acquisition_backend/internal/acquisition/ports"
	"acquisition_backend/internal/acquisition/repository"
	"acquisition_backend/internal/acquisition/service"
	"acquisition_backend/internal/acquisition/session"
	"acquisition_backend/internal/acquisition/transport"
	"acquisition_backend/internal/events"
	apphttp "acquisition_backend/internal/http"
	"acquisition_backend/platform/logger"
	"acquisition_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"google.golang.org/adk/model"
)

// Options carries the optional collaborators of the module.
type Options struct {
	// OCRModel backs the extraction agent. Nil disables OCR.
	OCRModel      model.LLM
	MinConfidence float64
	Storage       ports.FileStorage
	PDFs          ports.ContractPDFs
	Sessions      session.Store
	EventBus      events.Bus
	MaxImageBytes int64
	SessionTTL    time.Duration
}

// Module represents the acquisition domain module
type Module struct {
	handler *handler.Handler
	service *service.Service
	log     *logger.Logger
}

// NewModule creates the acquisition module with all dependencies wired
func NewModule(pool *pgxpool.Pool, val *validator.Validator, opts Options, log *logger.Logger) (*Module, error) {
	repo := repository.New(pool)
	svc, err := newService(repo, opts, log)
	if err != nil {
		return nil, err
	}
	if err := transport.RegisterValidations(val); err != nil {
		return nil, err
	}

	return &Module{
		handler: handler.New(svc, val, opts.MaxImageBytes),
		service: svc,
		log:     log,
	}, nil
}

// NewService builds the service alone, for tools that do not serve HTTP.
func NewService(pool *pgxpool.Pool, opts Options, log *logger.Logger) (*service.Service, error) {
	return newService(repository.New(pool), opts, log)
}

func newService(repo *repository.Repository, opts Options, log *logger.Logger) (*service.Service, error) {
	var extractor ports.Extractor = ocr.UnavailableExtractor{}
	if opts.OCRModel != nil {
		agent, err := ocr.NewAgentExtractor(opts.OCRModel, repo, log)
		if err != nil {
			return nil, err
		}
		extractor = agent
	}

	return service.New(service.Deps{
		FirstImpressions: repo,
		Folders:          repo,
		Contracts:        repo,
		Extractor:        extractor,
		Storage:          opts.Storage,
		PDFs:             opts.PDFs,
		Sessions:         opts.Sessions,
		EventBus:         opts.EventBus,
		MinConfidence:    opts.MinConfidence,
		SessionTTL:       opts.SessionTTL,
		Logger:           log,
	}), nil
}

// Service returns the acquisition service
func (m *Module) Service() *service.Service {
	return m.service
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "acquisition"
}

// RegisterRoutes registers the module's routes under /api/v1
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	var captureLimit gin.HandlerFunc
	if ctx.CaptureRateLimiter != nil {
		captureLimit = ctx.CaptureRateLimiter.RateLimit()
	}
	m.handler.RegisterRoutes(ctx.Protected, captureLimit)
}

// RegisterHandlers subscribes the acquisition audit log to the module's events.
func (m *Module) RegisterHandlers(bus events.Bus) {
	audit := events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		m.log.WithContext(ctx).Info("acquisition_event",
			slog.String("event", event.EventName()),
			slog.String("event_id", event.EventID().String()),
			slog.Time("occurred_at", event.OccurredAt()),
			slog.Any("payload", event),
		)
		return nil
	})
	for _, name := range []string{
		events.ContractSaved{}.EventName(),
		events.ContractStatusChanged{}.EventName(),
		events.FolderSyncFailed{}.EventName(),
		events.DocumentsUploaded{}.EventName(),
	} {
		bus.Subscribe(name, audit)
	}
}

// RunSessionSweeper drops abandoned capture sessions every interval until
// ctx is done.
func (m *Module) RunSessionSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if dropped := m.service.SweepSessions(ctx); dropped > 0 {
				m.log.Info("capture sessions swept",
					slog.Int("dropped", dropped),
					slog.Int("active", m.service.ActiveSessions()),
				)
			}
		}
	}
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
