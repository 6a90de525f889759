package realtime

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/jkindrix/draftwise/internal/config"
	"github.com/jkindrix/draftwise/internal/conversation"
	"github.com/jkindrix/draftwise/internal/domain"
)

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestMemoryBus_PublishSubscribe(t *testing.T) {
	bus := NewMemoryBus(zap.NewNop())
	defer bus.Close()

	a, cancelA, err := bus.Subscribe(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer cancelA()
	other, cancelOther, _ := bus.Subscribe(context.Background(), "s2")
	defer cancelOther()

	if err := bus.Publish(context.Background(), "s1", Event{Type: EventState, Mode: "confirming"}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if ev := receive(t, a); ev.Mode != "confirming" {
		t.Errorf("event = %+v", ev)
	}
	select {
	case ev := <-other:
		t.Errorf("other session received %+v", ev)
	default:
	}
}

func TestMemoryBus_CancelClosesChannel(t *testing.T) {
	bus := NewMemoryBus(zap.NewNop())
	defer bus.Close()

	ch, cancel, _ := bus.Subscribe(context.Background(), "s1")
	if bus.Subscribers("s1") != 1 {
		t.Fatalf("subscribers = %d", bus.Subscribers("s1"))
	}
	cancel()
	cancel()

	if _, ok := <-ch; ok {
		t.Error("expected closed channel")
	}
	if bus.Subscribers("s1") != 0 {
		t.Errorf("subscribers = %d after cancel", bus.Subscribers("s1"))
	}
}

func TestMemoryBus_ContextEndsSubscription(t *testing.T) {
	bus := NewMemoryBus(zap.NewNop())
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, _, _ := bus.Subscribe(ctx, "s1")
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("subscription not ended by context")
	}
}

func TestMemoryBus_SlowSubscriberDoesNotBlock(t *testing.T) {
	bus := NewMemoryBus(zap.NewNop())
	defer bus.Close()

	_, cancel, _ := bus.Subscribe(context.Background(), "s1")
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*2; i++ {
			_ = bus.Publish(context.Background(), "s1", Event{Type: EventState})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher blocked on a full subscriber")
	}
}

func TestMemoryBus_FullSubscriberDropsOldest(t *testing.T) {
	bus := NewMemoryBus(zap.NewNop())
	defer bus.Close()

	ch, cancel, _ := bus.Subscribe(context.Background(), "s1")
	defer cancel()

	for i := 0; i < subscriberBuffer; i++ {
		_ = bus.Publish(context.Background(), "s1", Event{Type: EventState, Mode: strconv.Itoa(i)})
	}
	_ = bus.Publish(context.Background(), "s1", Event{Type: EventClosed})

	first := receive(t, ch)
	if first.Mode != "1" {
		t.Errorf("first queued event mode = %q, expected the oldest (0) to be dropped", first.Mode)
	}
	var last Event
	for i := 1; i < subscriberBuffer; i++ {
		last = receive(t, ch)
	}
	if last.Type != EventClosed {
		t.Errorf("last event type = %s, expected %s", last.Type, EventClosed)
	}
}

func TestOffer(t *testing.T) {
	ch := make(chan Event, 2)

	if _, dropped := offer(ch, Event{Mode: "a"}); dropped {
		t.Error("expected no eviction with room in the queue")
	}
	offer(ch, Event{Mode: "b"})
	evicted, dropped := offer(ch, Event{Mode: "c"})
	if !dropped || evicted.Mode != "a" {
		t.Errorf("offer() evicted %q (%v), expected a", evicted.Mode, dropped)
	}
	if got := (<-ch).Mode; got != "b" {
		t.Errorf("head = %q, expected b", got)
	}
	if got := (<-ch).Mode; got != "c" {
		t.Errorf("tail = %q, expected c", got)
	}
}

func TestMemoryBus_Close(t *testing.T) {
	bus := NewMemoryBus(zap.NewNop())
	ch, cancel, _ := bus.Subscribe(context.Background(), "s1")

	if err := bus.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, ok := <-ch; ok {
		t.Error("expected closed channel after Close")
	}
	cancel()

	if err := bus.Publish(context.Background(), "s1", Event{}); !errors.Is(err, ErrClosed) {
		t.Errorf("Publish() error = %v, expected ErrClosed", err)
	}
	if _, _, err := bus.Subscribe(context.Background(), "s1"); !errors.Is(err, ErrClosed) {
		t.Errorf("Subscribe() error = %v, expected ErrClosed", err)
	}
}

func TestFromChanges(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	changes := []conversation.Change{
		{Op: conversation.ChangeRetract, Entry: domain.TranscriptEntry{ID: 4, Kind: domain.EntryConfirmation}},
		{Op: conversation.ChangeAppend, Entry: domain.TranscriptEntry{ID: 7, Kind: domain.EntryPrompt, Text: "What's your full name?"}},
	}

	events := FromChanges("s1", changes, at)
	if len(events) != 2 {
		t.Fatalf("len = %d", len(events))
	}
	if events[0].Type != EventRetract || events[0].Entry.ID != 4 {
		t.Errorf("events[0] = %+v", events[0])
	}
	if events[1].Type != EventAppend || events[1].Entry.Text != "What's your full name?" {
		t.Errorf("events[1] = %+v", events[1])
	}
	if events[1].SessionID != "s1" || !events[1].At.Equal(at) {
		t.Errorf("events[1] = %+v", events[1])
	}
}

func TestChannel(t *testing.T) {
	if got := Channel("abc"); got != "draftwise:session:abc" {
		t.Errorf("Channel() = %q", got)
	}
}

func TestNewRedisBus_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := NewRedisBus(ctx, config.RedisConfig{Addr: "127.0.0.1:1"}, zap.NewNop()); err == nil {
		t.Error("expected ping error for unreachable redis")
	}
}
