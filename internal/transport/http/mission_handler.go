package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "liciel/internal/errors"
	"liciel/internal/middleware"
	"liciel/internal/mission"
	"liciel/internal/synthesis"
)

// MissionSummary is a mission as listed by GET /api/missions.
type MissionSummary struct {
	ID        string   `json:"id"`
	Label     string   `json:"label"`
	Commune   string   `json:"commune,omitempty"`
	Adresse   string   `json:"adresse,omitempty"`
	Domains   []string `json:"domains"`
	Zones     int      `json:"zones"`
	Rows      int      `json:"rows"`
	Photos    int      `json:"photos"`
	Recovered []string `json:"recovered,omitempty"`
}

func summarize(m *mission.Mission) MissionSummary {
	return MissionSummary{
		ID:        m.ID,
		Label:     m.Label,
		Commune:   m.General.Commune,
		Adresse:   m.General.NomEI,
		Domains:   m.Domains,
		Zones:     len(m.Zones),
		Rows:      len(m.Rows),
		Photos:    len(m.Photos),
		Recovered: m.Recovered,
	}
}

// maxMissionLimit bounds ?limit on GET /api/missions.
const maxMissionLimit = 10000

// MissionList is the response of GET /api/missions. Count is the number
// of matching missions, before ?limit applies.
type MissionList struct {
	Filter   mission.Filter   `json:"filter"`
	Label    string           `json:"label"`
	Count    int              `json:"count"`
	Missions []MissionSummary `json:"missions"`
}

// MissionDetail is the response of GET /api/missions/{id}.
type MissionDetail struct {
	mission.Detail
	Rows []synthesis.Row `json:"rows"`
}

// MissionHandler serves the missions of the last scan.
type MissionHandler struct {
	service      ScanServiceInterface
	validator    *middleware.Validator
	query        *middleware.QueryParamValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewMissionHandler creates a mission handler.
func NewMissionHandler(service ScanServiceInterface, validator *middleware.Validator, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *MissionHandler {
	return &MissionHandler{
		service:      service,
		validator:    validator,
		query:        middleware.NewQueryParamValidator(errorHandler),
		logger:       logger.With(slog.String("handler", "mission")),
		errorHandler: errorHandler,
	}
}

// Routes returns the mission routes.
func (h *MissionHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListMissions)
	r.Get("/facets", h.Facets)
	r.Post("/payload", h.CreatePayload)
	r.Get("/{id}", h.GetMission)
	return r
}

func filterFields() []string {
	names := make([]string, 0, len(mission.Fields))
	for _, f := range mission.Fields {
		names = append(names, string(f))
	}
	return names
}

// parseFilter reads ?field=&value=&domain= into a filter. It writes the
// problem response itself and reports false on invalid input.
func (h *MissionHandler) parseFilter(w http.ResponseWriter, r *http.Request) (mission.Filter, bool) {
	field, ok := h.query.ValidateEnum(w, r, "field", filterFields(), "")
	if !ok {
		return mission.Filter{}, false
	}
	q := r.URL.Query()
	f := mission.Filter{
		Field:   mission.Field(field),
		Value:   q.Get("value"),
		Domains: q["domain"],
	}
	if f.Field == "" && f.Value != "" {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("value", "value requires field"))
		return f, false
	}
	return f, true
}

// ListMissions handles GET /api/missions. ?limit=0 or no limit lists
// every match.
func (h *MissionHandler) ListMissions(w http.ResponseWriter, r *http.Request) {
	f, ok := h.parseFilter(w, r)
	if !ok {
		return
	}
	limit, ok := h.query.ValidateInt(w, r, "limit", 0, maxMissionLimit, 0)
	if !ok {
		return
	}

	missions, err := h.service.Missions(f)
	if err != nil {
		h.errorHandler.HandleError(w, r, mapError(err))
		return
	}

	out := MissionList{
		Filter:   f,
		Label:    f.Label(len(missions)),
		Count:    len(missions),
		Missions: make([]MissionSummary, 0, len(missions)),
	}
	if limit > 0 && limit < len(missions) {
		missions = missions[:limit]
	}
	for _, m := range missions {
		out.Missions = append(out.Missions, summarize(m))
	}
	render.JSON(w, r, out)
}

// Facets handles GET /api/missions/facets.
func (h *MissionHandler) Facets(w http.ResponseWriter, r *http.Request) {
	facets, domains, err := h.service.Facets()
	if err != nil {
		h.errorHandler.HandleError(w, r, mapError(err))
		return
	}
	render.JSON(w, r, map[string]any{
		"facets":  facets,
		"domains": domains,
	})
}

// GetMission handles GET /api/missions/{id}.
func (h *MissionHandler) GetMission(w http.ResponseWriter, r *http.Request) {
	m, err := h.service.Mission(chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, mapError(err))
		return
	}
	render.JSON(w, r, MissionDetail{Detail: mission.BuildDetail(m), Rows: m.Rows})
}

// CreatePayload handles POST /api/missions/payload: it stores a payload of
// the missions selected by the body filter without rescanning.
func (h *MissionHandler) CreatePayload(w http.ResponseWriter, r *http.Request) {
	var f mission.Filter
	if r.ContentLength != 0 {
		if err := h.validator.DecodeJSON(r, &f); err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
	}

	stored, err := h.service.Snapshot(r.Context(), f)
	if err != nil {
		h.errorHandler.HandleError(w, r, mapError(err))
		return
	}

	h.logger.InfoContext(r.Context(), "payload created from missions",
		slog.String("payload_id", stored.Payload.Meta.ID),
		slog.String("request_id", middleware.GetRequestID(r.Context())))

	w.Header().Set("ETag", quoteETag(stored.ETag))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, storedMeta(stored))
}
