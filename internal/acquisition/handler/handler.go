package handler

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"acquisition_backend/internal/acquisition/ports"
	"acquisition_backend/internal/acquisition/service"
	"acquisition_backend/internal/acquisition/transport"
	"acquisition_backend/internal/adapters/storage"
	"acquisition_backend/platform/httpkit"
	"acquisition_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidIndex     = "invalid index"
	contentTypePDF      = "application/pdf"

	// DefaultMaxImageBytes bounds one captured image.
	DefaultMaxImageBytes int64 = 15 << 20
)

// Handler handles HTTP requests for the acquisition pipeline
type Handler struct {
	svc           *service.Service
	val           *validator.Validator
	maxImageBytes int64
}

// New creates a new acquisition handler
func New(svc *service.Service, val *validator.Validator, maxImageBytes int64) *Handler {
	if maxImageBytes <= 0 {
		maxImageBytes = DefaultMaxImageBytes
	}
	return &Handler{svc: svc, val: val, maxImageBytes: maxImageBytes}
}

// RegisterRoutes registers the acquisition routes. captureLimit guards the
// capture endpoint, which fans out to OCR; it may be nil.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, captureLimit gin.HandlerFunc) {
	fi := rg.Group("/first-impressions")
	fi.POST("", h.CreateFirstImpression)
	fi.GET("/:id", h.GetFirstImpression)
	fi.PUT("/:id", h.UpdateFirstImpression)
	fi.POST("/:id/status", h.ChangeFirstImpressionStatus)

	sessions := rg.Group("/acquisition/sessions")
	sessions.POST("", h.StartSession)
	sessions.DELETE("/:sid", h.EndSession)
	sessions.GET("/:sid/checklist", h.Checklist)
	if captureLimit != nil {
		sessions.POST("/:sid/captures", captureLimit, h.Capture)
	} else {
		sessions.POST("/:sid/captures", h.Capture)
	}
	sessions.DELETE("/:sid/captures/:index", h.RemovePending)
	sessions.DELETE("/:sid/documents/:index", h.RemovePersisted)
	sessions.POST("/:sid/contract", h.EnsureContract)
	sessions.PUT("/:sid/contract", h.SaveContract)
	sessions.POST("/:sid/contract/status", h.ChangeContractStatus)
	sessions.POST("/:sid/contract/signatures/client", h.AddClientSignature)
	sessions.POST("/:sid/contract/signatures/agent", h.AddAgentSignature)

	rg.GET("/contracts/:id/pdf", h.ContractPDF)
}

// CreateFirstImpression handles POST /api/v1/first-impressions
func (h *Handler) CreateFirstImpression(c *gin.Context) {
	var req transport.FirstImpressionRequest
	if !h.bindJSON(c, &req) {
		return
	}
	identity, tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}

	result, err := h.svc.CreateFirstImpression(c.Request.Context(), tenantID, identity.UserID(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// GetFirstImpression handles GET /api/v1/first-impressions/:id
func (h *Handler) GetFirstImpression(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	_, tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}

	result, err := h.svc.GetFirstImpression(c.Request.Context(), tenantID, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// UpdateFirstImpression handles PUT /api/v1/first-impressions/:id
func (h *Handler) UpdateFirstImpression(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req transport.FirstImpressionRequest
	if !h.bindJSON(c, &req) {
		return
	}
	_, tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}

	result, err := h.svc.UpdateFirstImpression(c.Request.Context(), tenantID, id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ChangeFirstImpressionStatus handles POST /api/v1/first-impressions/:id/status
func (h *Handler) ChangeFirstImpressionStatus(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req transport.StatusRequest
	if !h.bindJSON(c, &req) {
		return
	}
	_, tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}

	result, err := h.svc.ChangeFirstImpressionStatus(c.Request.Context(), tenantID, id, req.Status)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// StartSession handles POST /api/v1/acquisition/sessions
func (h *Handler) StartSession(c *gin.Context) {
	var req transport.StartSessionRequest
	if !h.bindJSON(c, &req) {
		return
	}
	identity, tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}

	result, err := h.svc.StartSession(c.Request.Context(), tenantID, identity.UserID(), req.FirstImpressionID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// EndSession handles DELETE /api/v1/acquisition/sessions/:sid
func (h *Handler) EndSession(c *gin.Context) {
	_, tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}
	if httpkit.HandleError(c, h.svc.EndSession(c.Request.Context(), tenantID, c.Param("sid"))) {
		return
	}
	c.Status(http.StatusNoContent)
}

// Checklist handles GET /api/v1/acquisition/sessions/:sid/checklist
func (h *Handler) Checklist(c *gin.Context) {
	_, tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}

	result, err := h.svc.Checklist(c.Request.Context(), tenantID, c.Param("sid"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Capture handles POST /api/v1/acquisition/sessions/:sid/captures
func (h *Handler) Capture(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxImageBytes+(1<<20))

	var req transport.CaptureRequest
	if err := c.ShouldBind(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	img, ok := h.readImage(c)
	if !ok {
		return
	}
	_, tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}

	result, err := h.svc.Capture(c.Request.Context(), tenantID, c.Param("sid"), img, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// RemovePending handles DELETE /api/v1/acquisition/sessions/:sid/captures/:index
func (h *Handler) RemovePending(c *gin.Context) {
	index, ok := parseIndexParam(c)
	if !ok {
		return
	}
	_, tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}

	result, err := h.svc.RemovePending(c.Request.Context(), tenantID, c.Param("sid"), index)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// RemovePersisted handles DELETE /api/v1/acquisition/sessions/:sid/documents/:index
func (h *Handler) RemovePersisted(c *gin.Context) {
	index, ok := parseIndexParam(c)
	if !ok {
		return
	}
	_, tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}

	result, err := h.svc.RemovePersisted(c.Request.Context(), tenantID, c.Param("sid"), index)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// EnsureContract handles POST /api/v1/acquisition/sessions/:sid/contract
func (h *Handler) EnsureContract(c *gin.Context) {
	_, tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}

	result, err := h.svc.EnsureContract(c.Request.Context(), tenantID, c.Param("sid"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// SaveContract handles PUT /api/v1/acquisition/sessions/:sid/contract
func (h *Handler) SaveContract(c *gin.Context) {
	var req transport.SaveContractRequest
	if !h.bindJSON(c, &req) {
		return
	}
	_, tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}

	result, err := h.svc.SaveContract(c.Request.Context(), tenantID, c.Param("sid"), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ChangeContractStatus handles POST /api/v1/acquisition/sessions/:sid/contract/status
func (h *Handler) ChangeContractStatus(c *gin.Context) {
	var req transport.StatusRequest
	if !h.bindJSON(c, &req) {
		return
	}
	identity, tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}

	result, err := h.svc.ChangeContractStatus(c.Request.Context(), tenantID, identity.UserID(), c.Param("sid"), req.Status)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// AddClientSignature handles POST /api/v1/acquisition/sessions/:sid/contract/signatures/client
func (h *Handler) AddClientSignature(c *gin.Context) {
	var req transport.ClientSignatureRequest
	if !h.bindJSON(c, &req) {
		return
	}
	_, tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}

	result, err := h.svc.AddClientSignature(c.Request.Context(), tenantID, c.Param("sid"), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// AddAgentSignature handles POST /api/v1/acquisition/sessions/:sid/contract/signatures/agent
func (h *Handler) AddAgentSignature(c *gin.Context) {
	var req transport.AgentSignatureRequest
	if !h.bindJSON(c, &req) {
		return
	}
	_, tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}

	result, err := h.svc.AddAgentSignature(c.Request.Context(), tenantID, c.Param("sid"), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ContractPDF handles GET /api/v1/contracts/:id/pdf
func (h *Handler) ContractPDF(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	_, tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}

	reader, fileName, err := h.svc.ContractPDF(c.Request.Context(), tenantID, id)
	if httpkit.HandleError(c, err) {
		return
	}
	defer func() { _ = reader.Close() }()

	c.Header("Content-Type", contentTypePDF)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, fileName))
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, reader); err != nil {
		_ = c.Error(err)
	}
}

func (h *Handler) bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return false
	}
	return true
}

func (h *Handler) readImage(c *gin.Context) (ports.Image, bool) {
	fh, err := c.FormFile("image")
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "image file is required", nil)
		return ports.Image{}, false
	}
	if fh.Size > h.maxImageBytes {
		httpkit.Error(c, http.StatusRequestEntityTooLarge, "image is too large", gin.H{"maxBytes": h.maxImageBytes})
		return ports.Image{}, false
	}

	f, err := fh.Open()
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "unable to read image", nil)
		return ports.Image{}, false
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, h.maxImageBytes+1))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "unable to read image", nil)
		return ports.Image{}, false
	}
	if int64(len(data)) > h.maxImageBytes {
		httpkit.Error(c, http.StatusRequestEntityTooLarge, "image is too large", gin.H{"maxBytes": h.maxImageBytes})
		return ports.Image{}, false
	}

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	if !storage.IsAllowedContentType(contentType) {
		httpkit.Error(c, http.StatusUnsupportedMediaType, "image type is not supported", gin.H{"contentType": contentType})
		return ports.Image{}, false
	}
	return ports.Image{Data: data, MIMEType: contentType, FileName: fh.Filename}, true
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return uuid.UUID{}, false
	}
	return id, true
}

func parseIndexParam(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidIndex, nil)
		return 0, false
	}
	return index, true
}
