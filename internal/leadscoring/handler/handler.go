package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"leadscore_backend/internal/leadscoring/archive"
	"leadscore_backend/internal/leadscoring/service"
	"leadscore_backend/internal/leadscoring/session"
	"leadscore_backend/internal/leadscoring/transport"
	"leadscore_backend/platform/apperr"
	"leadscore_backend/platform/httpkit"
	"leadscore_backend/platform/logger"
	"leadscore_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

// SessionHeader selects the scoring session of a request.
const SessionHeader = "X-Session-ID"

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgFileRequired     = "multipart field \"file\" is required"
	msgUploadTooLarge   = "upload exceeds the maximum size"
	uploadFormField     = "file"
	exportDisposition   = "attachment; filename=results.csv"
)

// RunLister lists archived scoring runs.
type RunLister interface {
	ListRuns(ctx context.Context, sessionID string, limit int) ([]archive.Run, error)
}

// Handler handles HTTP requests for lead scoring.
type Handler struct {
	svc            *service.Service
	val            *validator.Validator
	runs           RunLister
	maxUploadBytes int64
}

// New creates a new lead scoring handler.
func New(svc *service.Service, val *validator.Validator, maxUploadBytes int64) *Handler {
	return &Handler{svc: svc, val: val, maxUploadBytes: maxUploadBytes}
}

// SetRunLister enables GET /runs.
func (h *Handler) SetRunLister(runs RunLister) {
	h.runs = runs
}

// RegisterRoutes registers the lead scoring routes. scoreMiddleware runs in
// front of POST /score only.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, scoreMiddleware ...gin.HandlerFunc) {
	rg.POST("/offer", h.SetOffer)
	rg.POST("/leads/upload", h.UploadLeads)
	rg.POST("/score", append(scoreMiddleware, h.Score)...)
	rg.GET("/results", h.Results)
	rg.GET("/results/export", h.Export)
	rg.POST("/sessions", h.NewSession)
	if h.svc.HasExportStorage() {
		rg.POST("/results/export/store", h.StoreExport)
	}
	if h.runs != nil {
		rg.GET("/runs", h.ListRuns)
	}
}

// SetOffer handles POST /offer
func (h *Handler) SetOffer(c *gin.Context) {
	sessionID, ok := h.session(c)
	if !ok {
		return
	}

	var req transport.OfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Describe(err))
		return
	}

	offer, err := h.svc.SetOffer(c.Request.Context(), sessionID, req.ToDomain())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.OfferResponse{Status: service.StatusOfferSaved, Offer: offer})
}

// UploadLeads handles POST /leads/upload
func (h *Handler) UploadLeads(c *gin.Context) {
	sessionID, ok := h.session(c)
	if !ok {
		return
	}

	if h.maxUploadBytes > 0 {
		if c.Request.ContentLength > h.maxUploadBytes {
			httpkit.HandleError(c, apperr.TooLarge(msgUploadTooLarge))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}

	fileHeader, err := c.FormFile(uploadFormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpkit.HandleError(c, apperr.TooLarge(msgUploadTooLarge))
			return
		}
		httpkit.Error(c, http.StatusBadRequest, msgFileRequired, nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		httpkit.HandleError(c, apperr.Wrap(apperr.KindBadRequest, "failed to read upload", err))
		return
	}
	defer func() { _ = file.Close() }()

	total, err := h.svc.UploadLeads(c.Request.Context(), sessionID, file)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.UploadResponse{Status: service.StatusLeadsUploaded, Total: total})
}

// Score handles POST /score
func (h *Handler) Score(c *gin.Context) {
	sessionID, ok := h.session(c)
	if !ok {
		return
	}

	outcome, err := h.svc.Score(c.Request.Context(), sessionID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, outcome)
}

// Results handles GET /results
func (h *Handler) Results(c *gin.Context) {
	sessionID, ok := h.session(c)
	if !ok {
		return
	}

	results, err := h.svc.Results(c.Request.Context(), sessionID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, results)
}

// Export handles GET /results/export
func (h *Handler) Export(c *gin.Context) {
	sessionID, ok := h.session(c)
	if !ok {
		return
	}

	data, err := h.svc.ExportCSV(c.Request.Context(), sessionID)
	if errors.Is(err, service.ErrNoResults) {
		httpkit.Status(c, service.StatusNoResults)
		return
	}
	if httpkit.HandleError(c, err) {
		return
	}

	c.Header("Content-Disposition", exportDisposition)
	c.Data(http.StatusOK, "text/csv", data)
}

// StoreExport handles POST /results/export/store
func (h *Handler) StoreExport(c *gin.Context) {
	sessionID, ok := h.session(c)
	if !ok {
		return
	}

	stored, err := h.svc.StoreExport(c.Request.Context(), sessionID)
	if errors.Is(err, service.ErrNoResults) {
		httpkit.Status(c, service.StatusNoResults)
		return
	}
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, stored)
}

// NewSession handles POST /sessions
func (h *Handler) NewSession(c *gin.Context) {
	id, err := h.svc.NewSession(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, transport.SessionResponse{SessionID: id})
}

// ListRuns handles GET /runs
func (h *Handler) ListRuns(c *gin.Context) {
	sessionID, ok := h.session(c)
	if !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := h.runs.ListRuns(c.Request.Context(), sessionID, limit)
	if err != nil {
		httpkit.HandleError(c, apperr.Wrap(apperr.KindInternal, "failed to list runs", err))
		return
	}

	httpkit.OK(c, runs)
}

// session resolves the request's session and tags the request context with it.
func (h *Handler) session(c *gin.Context) (string, bool) {
	id, err := session.ValidateID(c.GetHeader(SessionHeader))
	if httpkit.HandleError(c, err) {
		return "", false
	}
	ctx := context.WithValue(c.Request.Context(), logger.SessionIDKey, id)
	c.Request = c.Request.WithContext(ctx)
	c.Header(SessionHeader, id)
	return id, true
}
