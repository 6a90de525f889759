package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/jkindrix/draftwise/internal/domain"
	apperrors "github.com/jkindrix/draftwise/internal/errors"
	"github.com/jkindrix/draftwise/internal/middleware"
	"github.com/jkindrix/draftwise/internal/realtime"
	"github.com/jkindrix/draftwise/internal/service"
)

const (
	streamWriteWait = 10 * time.Second
	streamPongWait  = 60 * time.Second
	streamPingEvery = (streamPongWait * 9) / 10
	streamBuffer    = 64
)

var streamUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// streamInbound is a client message on the session socket.
type streamInbound struct {
	Type      string `json:"type"`
	Text      string `json:"text,omitempty"`
	Key       string `json:"key,omitempty"`
	Tone      string `json:"tone,omitempty"`
	WordLimit int    `json:"word_limit,omitempty"`
}

// streamOutbound is a server message: a transcript event or a reply.
type streamOutbound struct {
	Type      string                  `json:"type"`
	SessionID string                  `json:"session_id,omitempty"`
	Entry     *domain.TranscriptEntry `json:"entry,omitempty"`
	Mode      string                  `json:"mode,omitempty"`
	Busy      bool                    `json:"busy,omitempty"`
	At        *time.Time              `json:"at,omitempty"`
	Code      string                  `json:"code,omitempty"`
	Message   string                  `json:"message,omitempty"`
}

func outboundFromEvent(ev realtime.Event) streamOutbound {
	at := ev.At
	return streamOutbound{
		Type:      string(ev.Type),
		SessionID: ev.SessionID,
		Entry:     ev.Entry,
		Mode:      ev.Mode,
		Busy:      ev.Busy,
		At:        &at,
	}
}

func outboundFromError(err error) streamOutbound {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		return streamOutbound{Type: "error", Code: string(apperrors.CodeInternal), Message: "internal server error"}
	}
	return streamOutbound{Type: "error", Code: string(appErr.Code), Message: appErr.Message}
}

// StreamHandler serves the live transcript of a session over a websocket.
type StreamHandler struct {
	BaseHandler
	sessions WizardSessions
}

// NewStreamHandler creates a new StreamHandler.
func NewStreamHandler(sessions WizardSessions, logger *zap.Logger) *StreamHandler {
	return &StreamHandler{
		BaseHandler: NewBaseHandler(logger),
		sessions:    sessions,
	}
}

// RegisterRoutes registers the stream route.
func (h *StreamHandler) RegisterRoutes(r chi.Router) {
	r.Get("/sessions/{sessionID}/stream", h.Stream)
}

// Stream handles GET /api/v1/sessions/{sessionID}/stream
//
// Transcript events are pushed as they happen. Clients may drive the session
// on the same socket with {"type":"answer","text":...}, {"type":"edit","key":...}
// and {"type":"finalize"} messages; turn failures come back as error messages.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	owner := middleware.GetOwner(r.Context())
	sessionID := chi.URLParam(r, "sessionID")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Subscribe before upgrading so unknown sessions get a plain 404.
	events, unsubscribe, err := h.sessions.Subscribe(ctx, owner, sessionID)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	defer unsubscribe()

	conn, err := streamUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	logger := middleware.LoggerWithCorrelation(r.Context(), h.logger).With(zap.String("session_id", sessionID))

	if err := conn.SetReadDeadline(time.Now().Add(streamPongWait)); err != nil {
		logger.Debug("failed to set read deadline", zap.Error(err))
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})

	writeCh := make(chan streamOutbound, streamBuffer)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(ctx, conn, writeCh)
	}()

	if view, err := h.sessions.Get(ctx, owner, sessionID); err == nil {
		pushStream(writeCh, streamOutbound{Type: "subscribed", SessionID: sessionID, Mode: string(view.Mode), Busy: view.Busy})
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					pushStream(writeCh, streamOutbound{Type: string(realtime.EventClosed), SessionID: sessionID})
					return
				}
				pushStream(writeCh, outboundFromEvent(ev))
				if ev.Type == realtime.EventClosed {
					return
				}
			}
		}
	}()

	for {
		var in streamInbound
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("stream read ended", zap.Error(err))
			}
			cancel()
			<-writerDone
			return
		}
		if reply, ok := h.dispatch(ctx, owner, sessionID, in); ok {
			pushStream(writeCh, reply)
		}
	}
}

// dispatch runs one inbound message. Successful turns reply only through
// the transcript events they produce.
func (h *StreamHandler) dispatch(ctx context.Context, owner, sessionID string, in streamInbound) (streamOutbound, bool) {
	var err error
	switch strings.ToLower(strings.TrimSpace(in.Type)) {
	case "ping":
		return streamOutbound{Type: "pong"}, true
	case "answer":
		_, err = h.sessions.Submit(ctx, owner, sessionID, in.Text)
	case "edit":
		_, err = h.sessions.Edit(ctx, owner, sessionID, strings.TrimSpace(in.Key))
	case "finalize":
		_, err = h.sessions.Finalize(ctx, owner, sessionID,
			service.FinalizeOptions{Tone: domain.Tone(in.Tone), WordLimit: in.WordLimit})
	case "":
		err = apperrors.InvalidInput("type is required")
	default:
		err = apperrors.InvalidInput("unsupported message type: " + in.Type)
	}
	if err != nil {
		return outboundFromError(err), true
	}
	return streamOutbound{}, false
}

func (h *StreamHandler) writeLoop(ctx context.Context, conn *websocket.Conn, writeCh <-chan streamOutbound) {
	ticker := time.NewTicker(streamPingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case out := <-writeCh:
			if err := conn.SetWriteDeadline(time.Now().Add(streamWriteWait)); err != nil {
				return
			}
			if err := conn.WriteJSON(out); err != nil {
				return
			}
			if out.Type == string(realtime.EventClosed) {
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed")
				_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(streamWriteWait))
				// Unblocks the reader.
				_ = conn.Close()
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return
			}
		}
	}
}

// pushStream queues out, dropping the oldest queued message when the client
// falls behind. Clients resync with a snapshot.
func pushStream(writeCh chan streamOutbound, out streamOutbound) {
	select {
	case writeCh <- out:
		return
	default:
	}
	select {
	case <-writeCh:
	default:
	}
	select {
	case writeCh <- out:
	default:
	}
}
