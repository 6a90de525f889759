package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/jkindrix/draftwise/internal/audit"
	apperrors "github.com/jkindrix/draftwise/internal/errors"
	"github.com/jkindrix/draftwise/internal/logging"
	"github.com/jkindrix/draftwise/internal/middleware"
)

// LogLevelHandler handles runtime log level adjustment.
type LogLevelHandler struct {
	BaseHandler
	level zap.AtomicLevel
	audit *audit.Logger
}

// NewLogLevelHandler creates a handler for log level management.
func NewLogLevelHandler(level zap.AtomicLevel, logger *zap.Logger) *LogLevelHandler {
	return &LogLevelHandler{
		BaseHandler: NewBaseHandler(logger),
		level:       level,
	}
}

// WithAudit records level changes as audit events.
func (h *LogLevelHandler) WithAudit(l *audit.Logger) *LogLevelHandler {
	h.audit = l
	return h
}

// LogLevelResponse is the response for log level queries.
type LogLevelResponse struct {
	Level           string   `json:"level"`
	AvailableLevels []string `json:"available_levels,omitempty"`
	Message         string   `json:"message,omitempty"`
}

// LogLevelRequest is the request body for changing log level.
type LogLevelRequest struct {
	Level string `json:"level"`
}

// GetLevel handles GET requests to return current log level.
func (h *LogLevelHandler) GetLevel(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, r, http.StatusOK, LogLevelResponse{
		Level:           h.level.Level().String(),
		AvailableLevels: logging.AvailableLevels,
	})
}

// SetLevel handles PUT/POST requests to change log level. The level is read
// from the query string, a form value, or a JSON body, in that order.
func (h *LogLevelHandler) SetLevel(w http.ResponseWriter, r *http.Request) {
	levelStr := r.URL.Query().Get("level")
	if levelStr == "" {
		if err := r.ParseForm(); err == nil {
			levelStr = r.FormValue("level")
		}
	}
	if levelStr == "" && r.Body != nil {
		var req LogLevelRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			levelStr = req.Level
		}
	}

	if levelStr == "" {
		h.WriteError(w, r, apperrors.InvalidInput("level parameter is required"))
		return
	}

	newLevel, err := logging.ParseLevel(levelStr)
	if err != nil {
		h.WriteError(w, r, apperrors.InvalidInput(err.Error()))
		return
	}

	previousLevel := h.level.Level().String()
	h.level.SetLevel(newLevel)

	h.logger.Info("log level changed",
		zap.String("previous_level", previousLevel),
		zap.String("new_level", newLevel.String()),
	)
	h.audit.LogLevelChanged(r.Context(), previousLevel, newLevel.String(), clientIP(r), middleware.GetRequestID(r.Context()))

	h.WriteJSON(w, r, http.StatusOK, LogLevelResponse{
		Level:   newLevel.String(),
		Message: fmt.Sprintf("log level changed from %s to %s", previousLevel, newLevel.String()),
	})
}

// ServeHTTP implements http.Handler for the log level endpoint.
func (h *LogLevelHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.GetLevel(w, r)
	case http.MethodPut, http.MethodPost:
		h.SetLevel(w, r)
	default:
		w.Header().Set("Allow", "GET, PUT, POST")
		h.WriteJSON(w, r, http.StatusMethodNotAllowed, apperrors.ErrorResponse{
			Error: apperrors.ErrorDetail{Code: apperrors.CodeInvalidInput, Message: "method not allowed"},
		})
	}
}
