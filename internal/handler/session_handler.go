package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/jkindrix/draftwise/internal/audit"
	"github.com/jkindrix/draftwise/internal/domain"
	"github.com/jkindrix/draftwise/internal/middleware"
	"github.com/jkindrix/draftwise/internal/realtime"
	"github.com/jkindrix/draftwise/internal/service"
)

// WizardSessions is the session API consumed by the HTTP layer.
// *service.WizardService satisfies it.
type WizardSessions interface {
	Start(ctx context.Context, contentType domain.ContentType, owner string) (*service.SessionView, error)
	Get(ctx context.Context, owner, id string) (*service.SessionView, error)
	Submit(ctx context.Context, owner, id, text string) (*service.SessionView, error)
	Edit(ctx context.Context, owner, id, key string) (*service.SessionView, error)
	Finalize(ctx context.Context, owner, id string, opts service.FinalizeOptions) (*service.SessionView, error)
	Abandon(ctx context.Context, owner, id string) error
	Subscribe(ctx context.Context, owner, id string) (<-chan realtime.Event, func(), error)
}

// SessionHandler serves chat-mode wizard sessions.
type SessionHandler struct {
	BaseHandler
	sessions WizardSessions
	audit    *audit.Logger
}

// NewSessionHandler creates a new SessionHandler. auditLogger may be nil.
func NewSessionHandler(sessions WizardSessions, auditLogger *audit.Logger, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		BaseHandler: NewBaseHandler(logger),
		sessions:    sessions,
		audit:       auditLogger,
	}
}

// RegisterRoutes registers session routes.
func (h *SessionHandler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.BodySizeLimiterAnswers())
		r.Post("/sessions", h.Create)
		r.Get("/sessions/{sessionID}", h.Get)
		r.Post("/sessions/{sessionID}/answers", h.Answer)
		r.Post("/sessions/{sessionID}/edit", h.Edit)
		r.Post("/sessions/{sessionID}/finalize", h.Finalize)
		r.Delete("/sessions/{sessionID}", h.Abandon)
	})
}

// CreateSessionRequest opens a session.
type CreateSessionRequest struct {
	ContentType string `json:"content_type"`
}

// AnswerRequest submits one answer.
type AnswerRequest struct {
	Text string `json:"text"`
}

// EditRequest re-opens a field.
type EditRequest struct {
	Key string `json:"key"`
}

// FinalizeRequest carries the generation knobs. Both fields are optional.
type FinalizeRequest struct {
	Tone      string `json:"tone,omitempty"`
	WordLimit int    `json:"word_limit,omitempty"`
}

// FinalizeResponse pairs the completed session with its generation.
type FinalizeResponse struct {
	Session    *service.SessionView `json:"session"`
	Generation *domain.Generation   `json:"generation"`
}

// Create handles POST /api/v1/sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := DecodeJSON(r, &req, false); err != nil {
		h.WriteError(w, r, err)
		return
	}

	view, err := h.sessions.Start(r.Context(), domain.ContentType(req.ContentType), middleware.GetOwner(r.Context()))
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/sessions/"+view.ID)
	h.WriteJSON(w, r, http.StatusCreated, view)
}

// Get handles GET /api/v1/sessions/{sessionID}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.sessions.Get(r.Context(), middleware.GetOwner(r.Context()), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	h.WriteJSON(w, r, http.StatusOK, view)
}

// Answer handles POST /api/v1/sessions/{sessionID}/answers
func (h *SessionHandler) Answer(w http.ResponseWriter, r *http.Request) {
	var req AnswerRequest
	if err := DecodeJSON(r, &req, false); err != nil {
		h.WriteError(w, r, err)
		return
	}

	view, err := h.sessions.Submit(r.Context(), middleware.GetOwner(r.Context()), chi.URLParam(r, "sessionID"), req.Text)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	h.WriteJSON(w, r, http.StatusOK, view)
}

// Edit handles POST /api/v1/sessions/{sessionID}/edit
func (h *SessionHandler) Edit(w http.ResponseWriter, r *http.Request) {
	var req EditRequest
	if err := DecodeJSON(r, &req, false); err != nil {
		h.WriteError(w, r, err)
		return
	}

	view, err := h.sessions.Edit(r.Context(), middleware.GetOwner(r.Context()), chi.URLParam(r, "sessionID"), req.Key)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	h.WriteJSON(w, r, http.StatusOK, view)
}

// Finalize handles POST /api/v1/sessions/{sessionID}/finalize
func (h *SessionHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	var req FinalizeRequest
	if err := DecodeJSON(r, &req, true); err != nil {
		h.WriteError(w, r, err)
		return
	}

	view, err := h.sessions.Finalize(r.Context(), middleware.GetOwner(r.Context()), chi.URLParam(r, "sessionID"),
		service.FinalizeOptions{Tone: domain.Tone(req.Tone), WordLimit: req.WordLimit})
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	h.WriteJSON(w, r, http.StatusOK, FinalizeResponse{Session: view, Generation: view.Generation})
}

// Abandon handles DELETE /api/v1/sessions/{sessionID}
func (h *SessionHandler) Abandon(w http.ResponseWriter, r *http.Request) {
	owner := middleware.GetOwner(r.Context())
	id := chi.URLParam(r, "sessionID")
	if err := h.sessions.Abandon(r.Context(), owner, id); err != nil {
		h.WriteError(w, r, err)
		return
	}
	h.audit.SessionAbandoned(r.Context(), owner, id, clientIP(r), middleware.GetRequestID(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}
