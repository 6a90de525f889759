package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/jkindrix/draftwise/internal/domain"
	apperrors "github.com/jkindrix/draftwise/internal/errors"
)

// ScheduleLister exposes the question schedules. *schedule.Registry satisfies it.
type ScheduleLister interface {
	Get(ct domain.ContentType) (*domain.Schedule, error)
	Types() []domain.ContentType
}

// ScheduleHandler serves question schedules so clients can render forms.
type ScheduleHandler struct {
	BaseHandler
	schedules ScheduleLister
}

// NewScheduleHandler creates a new ScheduleHandler.
func NewScheduleHandler(schedules ScheduleLister, logger *zap.Logger) *ScheduleHandler {
	return &ScheduleHandler{
		BaseHandler: NewBaseHandler(logger),
		schedules:   schedules,
	}
}

// RegisterRoutes registers schedule routes.
func (h *ScheduleHandler) RegisterRoutes(r chi.Router) {
	r.Get("/schedules", h.List)
	r.Get("/schedules/{contentType}", h.Get)
}

// ScheduleSummary is one entry of the schedule list.
type ScheduleSummary struct {
	ContentType domain.ContentType `json:"content_type"`
	Label       string             `json:"label"`
	Title       string             `json:"title"`
	Questions   int                `json:"questions"`
}

// List handles GET /api/v1/schedules
func (h *ScheduleHandler) List(w http.ResponseWriter, r *http.Request) {
	types := h.schedules.Types()
	out := make([]ScheduleSummary, 0, len(types))
	for _, ct := range types {
		s, err := h.schedules.Get(ct)
		if err != nil {
			h.WriteError(w, r, apperrors.InternalError("failed to load schedule", err))
			return
		}
		out = append(out, ScheduleSummary{
			ContentType: ct,
			Label:       ct.Label(),
			Title:       s.Title,
			Questions:   s.Len(),
		})
	}
	h.WriteJSON(w, r, http.StatusOK, map[string]interface{}{"schedules": out})
}

// Get handles GET /api/v1/schedules/{contentType}
func (h *ScheduleHandler) Get(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "contentType")
	s, err := h.schedules.Get(domain.ContentType(raw))
	if err != nil {
		h.WriteError(w, r, apperrors.UnknownContentType(raw))
		return
	}
	h.WriteJSON(w, r, http.StatusOK, s)
}
