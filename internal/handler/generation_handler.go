package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jkindrix/draftwise/internal/audit"
	"github.com/jkindrix/draftwise/internal/domain"
	apperrors "github.com/jkindrix/draftwise/internal/errors"
	"github.com/jkindrix/draftwise/internal/middleware"
	"github.com/jkindrix/draftwise/internal/render"
	"github.com/jkindrix/draftwise/internal/service"
	"github.com/jkindrix/draftwise/internal/validation"
)

// Generations is the generation API consumed by the HTTP layer.
// *service.GenerationService satisfies it.
type Generations interface {
	Generate(ctx context.Context, in service.GenerateInput) (*domain.Generation, error)
	Refine(ctx context.Context, owner string, id uuid.UUID, prompt string) (*domain.Generation, error)
	Get(ctx context.Context, owner string, id uuid.UUID) (*domain.Generation, error)
	List(ctx context.Context, owner string, limit, offset int) ([]*domain.Generation, int, error)
	Delete(ctx context.Context, owner string, id uuid.UUID) error
}

// GenerationHandler serves stored generations and the flat-form endpoint.
type GenerationHandler struct {
	BaseHandler
	generations Generations
	audit       *audit.Logger
}

// NewGenerationHandler creates a new GenerationHandler. auditLogger may be nil.
func NewGenerationHandler(generations Generations, auditLogger *audit.Logger, logger *zap.Logger) *GenerationHandler {
	return &GenerationHandler{
		BaseHandler: NewBaseHandler(logger),
		generations: generations,
		audit:       auditLogger,
	}
}

// RegisterRoutes registers generation routes.
func (h *GenerationHandler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.BodySizeLimiter(middleware.DefaultMaxBodySize))
		r.Post("/generations", h.Create)
		r.Get("/generations", h.List)
		r.Get("/generations/{generationID}", h.Get)
		r.Post("/generations/{generationID}/refine", h.Refine)
		r.Delete("/generations/{generationID}", h.Delete)
	})
}

// CreateGenerationRequest is the flat form submission.
type CreateGenerationRequest struct {
	ContentType string           `json:"content_type"`
	Tone        string           `json:"tone,omitempty"`
	WordLimit   int              `json:"word_limit,omitempty"`
	InputData   domain.AnswerSet `json:"input_data"`
}

// RefineRequest asks for a revision of stored content.
type RefineRequest struct {
	Prompt string `json:"prompt"`
}

// GenerationResponse is a generation with its content rendered to HTML.
type GenerationResponse struct {
	*domain.Generation
	Title       string `json:"title"`
	ContentHTML string `json:"content_html,omitempty"`
}

// GenerationListResponse is one page of generations.
type GenerationListResponse struct {
	Generations []GenerationResponse `json:"generations"`
	Total       int                  `json:"total"`
	Limit       int                  `json:"limit"`
	Offset      int                  `json:"offset"`
}

func toGenerationResponse(gen *domain.Generation) GenerationResponse {
	return GenerationResponse{
		Generation:  gen,
		Title:       gen.Title(),
		ContentHTML: render.MarkdownOrEmpty(gen.GeneratedContent),
	}
}

// Create handles POST /api/v1/generations
func (h *GenerationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateGenerationRequest
	if err := DecodeJSON(r, &req, false); err != nil {
		h.WriteError(w, r, err)
		return
	}

	gen, err := h.generations.Generate(r.Context(), service.GenerateInput{
		Owner:       middleware.GetOwner(r.Context()),
		ContentType: domain.ContentType(req.ContentType),
		Tone:        domain.Tone(req.Tone),
		WordLimit:   req.WordLimit,
		Answers:     req.InputData,
		Mode:        service.ModeForm,
	})
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/generations/"+gen.ID.String())
	h.WriteJSON(w, r, http.StatusCreated, toGenerationResponse(gen))
}

// List handles GET /api/v1/generations
func (h *GenerationHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	page := validation.NormalizePaginationParams(limit, offset, nil)

	gens, total, err := h.generations.List(r.Context(), middleware.GetOwner(r.Context()), page.Limit, page.Offset)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}

	resp := GenerationListResponse{
		Generations: make([]GenerationResponse, 0, len(gens)),
		Total:       total,
		Limit:       page.Limit,
		Offset:      page.Offset,
	}
	for _, gen := range gens {
		resp.Generations = append(resp.Generations, toGenerationResponse(gen))
	}
	h.WriteJSON(w, r, http.StatusOK, resp)
}

// Get handles GET /api/v1/generations/{generationID}
func (h *GenerationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := generationID(r)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}

	gen, err := h.generations.Get(r.Context(), middleware.GetOwner(r.Context()), id)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	h.WriteJSON(w, r, http.StatusOK, toGenerationResponse(gen))
}

// Refine handles POST /api/v1/generations/{generationID}/refine
func (h *GenerationHandler) Refine(w http.ResponseWriter, r *http.Request) {
	id, err := generationID(r)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	var req RefineRequest
	if err := DecodeJSON(r, &req, false); err != nil {
		h.WriteError(w, r, err)
		return
	}

	gen, err := h.generations.Refine(r.Context(), middleware.GetOwner(r.Context()), id, req.Prompt)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	h.WriteJSON(w, r, http.StatusOK, toGenerationResponse(gen))
}

// Delete handles DELETE /api/v1/generations/{generationID}
func (h *GenerationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := generationID(r)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}

	owner := middleware.GetOwner(r.Context())
	if err := h.generations.Delete(r.Context(), owner, id); err != nil {
		h.WriteError(w, r, err)
		return
	}
	h.audit.GenerationDeleted(r.Context(), owner, id.String(), clientIP(r), middleware.GetRequestID(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

func generationID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "generationID"))
	if err != nil {
		return uuid.Nil, apperrors.InvalidInput("invalid generation id")
	}
	return id, nil
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.InvalidInput(name + " must be an integer")
	}
	v := validation.New()
	if !v.NonNegativeInt(name, n) {
		return 0, apperrors.InvalidInput(v.Errors().Error())
	}
	return n, nil
}
