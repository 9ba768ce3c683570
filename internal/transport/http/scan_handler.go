package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "liciel/internal/errors"
	"liciel/internal/middleware"
	"liciel/internal/services"
)

// ScanHandler handles scan requests.
type ScanHandler struct {
	service      ScanServiceInterface
	validator    *middleware.Validator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewScanHandler creates a scan handler.
func NewScanHandler(service ScanServiceInterface, validator *middleware.Validator, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ScanHandler {
	return &ScanHandler{
		service:      service,
		validator:    validator,
		logger:       logger.With(slog.String("handler", "scan")),
		errorHandler: errorHandler,
	}
}

// Routes returns the scan routes.
func (h *ScanHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.StartScan)
	r.Get("/latest", h.LatestScan)
	return r
}

// StartScan handles POST /api/scans. The body is optional; an empty body
// scans with the configured defaults.
func (h *ScanHandler) StartScan(w http.ResponseWriter, r *http.Request) {
	var req services.ScanRequest
	if r.ContentLength != 0 {
		if err := h.validator.DecodeJSON(r, &req); err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
	}
	if req.Filter.Field != "" && !req.Filter.Field.Valid() {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("filter.field", "unknown filter field"))
		return
	}

	summary, err := h.service.Scan(r.Context(), req)
	if err != nil {
		h.errorHandler.HandleError(w, r, mapScanError(err))
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, summary)
}

// LatestScan handles GET /api/scans/latest.
func (h *ScanHandler) LatestScan(w http.ResponseWriter, r *http.Request) {
	summary, ok := h.service.LastSummary()
	if !ok {
		h.errorHandler.HandleError(w, r, errNoScan)
		return
	}
	render.JSON(w, r, summary)
}
