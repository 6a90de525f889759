package realtime

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// MemoryBus delivers events within one process. Slow subscribers lose their
// oldest queued events rather than block publishers, so the newest event
// (including EventClosed) always arrives.
type MemoryBus struct {
	mu     sync.Mutex
	subs   map[string]map[int]chan Event
	nextID int
	closed bool
	logger *zap.Logger
}

// NewMemoryBus creates an in-process bus.
func NewMemoryBus(logger *zap.Logger) *MemoryBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryBus{
		subs:   make(map[string]map[int]chan Event),
		logger: logger,
	}
}

// Publish delivers ev to every current subscriber of sessionID.
func (b *MemoryBus) Publish(_ context.Context, sessionID string, ev Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	b.deliver(sessionID, ev)
	return nil
}

// deliver must be called with mu held.
func (b *MemoryBus) deliver(sessionID string, ev Event) {
	for id, ch := range b.subs[sessionID] {
		if dropped, ok := offer(ch, ev); ok {
			b.logger.Warn("dropping stream event for slow subscriber",
				zap.String("session_id", sessionID),
				zap.Int("subscriber", id),
				zap.String("type", string(dropped.Type)),
			)
		}
	}
}

// Subscribe registers a subscriber for sessionID. The subscription also ends
// when ctx is done.
func (b *MemoryBus) Subscribe(ctx context.Context, sessionID string) (<-chan Event, func(), error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, nil, ErrClosed
	}
	b.nextID++
	id := b.nextID
	ch := make(chan Event, subscriberBuffer)
	if b.subs[sessionID] == nil {
		b.subs[sessionID] = make(map[int]chan Event)
	}
	b.subs[sessionID][id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() { b.remove(sessionID, id) })
	}
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return ch, cancel, nil
}

func (b *MemoryBus) remove(sessionID string, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.subs[sessionID][id]
	if !ok {
		return
	}
	delete(b.subs[sessionID], id)
	if len(b.subs[sessionID]) == 0 {
		delete(b.subs, sessionID)
	}
	close(ch)
}

// Subscribers returns the number of subscribers of sessionID.
func (b *MemoryBus) Subscribers(sessionID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[sessionID])
}

// Close ends every subscription.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for sessionID, subs := range b.subs {
		for _, ch := range subs {
			close(ch)
		}
		delete(b.subs, sessionID)
	}
	return nil
}
