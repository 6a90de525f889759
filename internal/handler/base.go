// Package handler provides HTTP handlers for the application.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/jkindrix/draftwise/internal/errors"
	"github.com/jkindrix/draftwise/internal/middleware"
)

// BaseHandler provides shared functionality for all handlers.
type BaseHandler struct {
	logger *zap.Logger
}

// NewBaseHandler creates a new BaseHandler.
func NewBaseHandler(logger *zap.Logger) BaseHandler {
	if logger == nil {
		panic("logger is required")
	}
	return BaseHandler{logger: logger}
}

// Logger returns the handler's logger.
func (b *BaseHandler) Logger() *zap.Logger {
	return b.logger
}

// WriteJSON writes a JSON response with the appropriate headers.
func (b *BaseHandler) WriteJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if reqID := middleware.GetRequestID(r.Context()); reqID != "" {
		w.Header().Set(middleware.RequestIDHeader, reqID)
	}

	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			b.logger.Debug("failed to write JSON response", zap.Error(err))
		}
	}
}

// WriteError writes err as an API error. Unclassified errors become a 500
// with a generic message; their detail is only logged.
func (b *BaseHandler) WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		appErr = apperrors.InternalError("internal server error", err)
	}

	status := appErr.HTTPStatus()
	logger := middleware.LoggerWithCorrelation(r.Context(), b.logger)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("code", string(appErr.Code)),
			zap.Error(err),
		)
	} else {
		logger.Debug("request rejected",
			zap.String("path", r.URL.Path),
			zap.String("code", string(appErr.Code)),
			zap.Error(err),
		)
	}

	if appErr.Code == apperrors.CodeRateLimited {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	}
	b.WriteJSON(w, r, status, appErr.ToResponse())
}

var errRouteNotFound = apperrors.New(apperrors.CodeNotFound, "route not found")

// retryAfterSeconds is advertised on rate limited responses.
const retryAfterSeconds = 60

// DecodeJSON reads a JSON body into dst. An empty body leaves dst untouched
// when allowEmpty is set.
func DecodeJSON(r *http.Request, dst interface{}, allowEmpty bool) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF) && allowEmpty:
			return nil
		case errors.Is(err, io.EOF):
			return apperrors.InvalidInput("request body is required")
		case errors.As(err, &maxErr):
			return apperrors.InvalidInput(fmt.Sprintf("request body must not exceed %d bytes", maxErr.Limit))
		default:
			return apperrors.InvalidInput("invalid request body: " + err.Error())
		}
	}
	return nil
}

// clientIP extracts the caller's address for audit records.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
