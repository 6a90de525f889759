// Package realtime fans transcript changes out to stream subscribers.
package realtime

import (
	"context"
	"errors"
	"time"

	"github.com/jkindrix/draftwise/internal/conversation"
	"github.com/jkindrix/draftwise/internal/domain"
)

// EventType is the kind of stream event.
type EventType string

const (
	EventAppend  EventType = "append"
	EventRetract EventType = "retract"
	// EventState reports a mode or busy change without a transcript entry.
	EventState EventType = "state"
	// EventClosed is the last event of a session.
	EventClosed EventType = "closed"
)

// Event is one message on a session stream.
type Event struct {
	Type      EventType               `json:"type"`
	SessionID string                  `json:"session_id"`
	Entry     *domain.TranscriptEntry `json:"entry,omitempty"`
	Mode      string                  `json:"mode,omitempty"`
	Busy      bool                    `json:"busy,omitempty"`
	At        time.Time               `json:"at"`
}

// ErrClosed is returned by a closed bus.
var ErrClosed = errors.New("realtime bus closed")

// subscriberBuffer is the per-subscriber queue length.
const subscriberBuffer = 64

// offer queues ev on ch, evicting the oldest queued event when ch is full.
// The caller must be the only sender on ch. It reports the evicted event.
func offer(ch chan Event, ev Event) (Event, bool) {
	select {
	case ch <- ev:
		return Event{}, false
	default:
	}
	var dropped Event
	evicted := false
	select {
	case dropped = <-ch:
		evicted = true
	default:
	}
	ch <- ev
	return dropped, evicted
}

// Bus publishes session events and delivers them to subscribers of the same
// session. Subscribe returns a channel and a cancel func that stops delivery
// and closes the channel.
type Bus interface {
	Publish(ctx context.Context, sessionID string, ev Event) error
	Subscribe(ctx context.Context, sessionID string) (<-chan Event, func(), error)
	Close() error
}

// FromChanges converts transcript changes into stream events.
func FromChanges(sessionID string, changes []conversation.Change, at time.Time) []Event {
	out := make([]Event, 0, len(changes))
	for _, c := range changes {
		entry := c.Entry
		typ := EventAppend
		if c.Op == conversation.ChangeRetract {
			typ = EventRetract
		}
		out = append(out, Event{Type: typ, SessionID: sessionID, Entry: &entry, At: at})
	}
	return out
}
