package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "liciel/internal/errors"
	"liciel/internal/exporter"
	"liciel/internal/middleware"
	"liciel/internal/payload"
)

// PayloadMeta is the response of a payload creation.
type PayloadMeta struct {
	payload.Meta
	Rows      int       `json:"rows"`
	ETag      string    `json:"etag"`
	Size      int       `json:"size"`
	ExpiresAt time.Time `json:"expires_at"`
}

func storedMeta(s *payload.Stored) PayloadMeta {
	return PayloadMeta{
		Meta:      s.Payload.Meta,
		Rows:      len(s.Payload.Rows),
		ETag:      s.ETag,
		Size:      s.Size,
		ExpiresAt: s.ExpiresAt,
	}
}

func quoteETag(tag string) string {
	return `"` + tag + `"`
}

// etagMatches reports whether an If-None-Match header names tag.
func etagMatches(header, tag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == quoteETag(tag) {
			return true
		}
	}
	return false
}

// PayloadHandler handles payload storage, grouping and export.
type PayloadHandler struct {
	payloads     PayloadServiceInterface
	exports      ExportServiceInterface
	validator    *middleware.Validator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewPayloadHandler creates a payload handler.
func NewPayloadHandler(payloads PayloadServiceInterface, exports ExportServiceInterface, validator *middleware.Validator, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *PayloadHandler {
	return &PayloadHandler{
		payloads:     payloads,
		exports:      exports,
		validator:    validator,
		logger:       logger.With(slog.String("handler", "payload")),
		errorHandler: errorHandler,
	}
}

// Routes returns the payload routes.
func (h *PayloadHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.CreatePayload)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.GetPayload)
		r.Get("/groups", h.GetGroups)
		r.Get("/export.{format}", h.Export)
	})
	return r
}

// CreatePayload handles POST /api/payloads. A missing meta id or creation
// time is filled in by the store.
func (h *PayloadHandler) CreatePayload(w http.ResponseWriter, r *http.Request) {
	var p payload.Payload
	if err := h.validator.Decode(r, &p); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	stored, err := h.payloads.Put(r.Context(), &p)
	if err != nil {
		h.errorHandler.HandleError(w, r, mapError(err))
		return
	}

	w.Header().Set("ETag", quoteETag(stored.ETag))
	w.Header().Set("Location", strings.TrimSuffix(r.URL.Path, "/")+"/"+stored.Payload.Meta.ID)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, storedMeta(stored))
}

// GetPayload handles GET /api/payloads/{id}. The body is the payload
// document itself; a matching If-None-Match yields 304.
func (h *PayloadHandler) GetPayload(w http.ResponseWriter, r *http.Request) {
	stored, err := h.payloads.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, mapError(err))
		return
	}

	w.Header().Set("ETag", quoteETag(stored.ETag))
	w.Header().Set("Expires", stored.ExpiresAt.UTC().Format(http.TimeFormat))
	w.Header().Set("Cache-Control", "private, max-age="+strconv.Itoa(maxAge(stored.ExpiresAt)))
	if etagMatches(r.Header.Get("If-None-Match"), stored.ETag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	render.JSON(w, r, stored.Payload)
}

func maxAge(expires time.Time) int {
	if s := int(time.Until(expires).Seconds()); s > 0 {
		return s
	}
	return 0
}

// GetGroups handles GET /api/payloads/{id}/groups.
func (h *PayloadHandler) GetGroups(w http.ResponseWriter, r *http.Request) {
	tree, err := h.payloads.Groups(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, mapError(err))
		return
	}
	render.JSON(w, r, tree)
}

// Export handles GET /api/payloads/{id}/export.{format}.
func (h *PayloadHandler) Export(w http.ResponseWriter, r *http.Request) {
	f, err := exporter.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("format", err.Error()))
		return
	}

	id := chi.URLParam(r, "id")
	exp, err := h.exports.Render(r.Context(), id, f)
	if err != nil {
		h.errorHandler.HandleError(w, r, mapError(err))
		return
	}

	if etagMatches(r.Header.Get("If-None-Match"), exp.ETag) {
		w.Header().Set("ETag", quoteETag(exp.ETag))
		w.WriteHeader(http.StatusNotModified)
		return
	}

	h.logger.InfoContext(r.Context(), "export served",
		slog.String("payload_id", id),
		slog.String("format", string(f)),
		slog.Int("size_bytes", len(exp.Data)),
		slog.String("request_id", middleware.GetRequestID(r.Context())))

	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+exp.Filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(exp.Data)))
	w.Header().Set("ETag", quoteETag(exp.ETag))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(exp.Data)
}
