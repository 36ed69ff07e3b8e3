package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestDispatcherDeliversToSink(t *testing.T) {
	sink := NewChannelSink(8)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 8}, sink)
	defer d.Close()

	d.Emit(context.Background(), Event{Type: EventLoginSuccess, UserID: "u-1", Success: true})

	select {
	case got := <-sink.Events():
		if got.Type != EventLoginSuccess || got.UserID != "u-1" {
			t.Fatalf("delivered event = %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestDisabledDispatcherIsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, nil)
	if d != nil {
		t.Fatal("disabled dispatcher is not nil")
	}

	// All operations on the nil dispatcher are no-ops.
	d.Emit(context.Background(), Event{Type: EventLogout})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatalf("Dropped = %d on nil dispatcher", d.Dropped())
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	// A sink that blocks forever keeps the buffer saturated.
	blocked := make(chan struct{})
	sink := sinkFunc(func(context.Context, Event) { <-blocked })

	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)
	t.Cleanup(d.Close)
	t.Cleanup(func() { close(blocked) }) // unblock the sink before Close waits

	// First event occupies the drain goroutine, second fills the buffer,
	// everything after that must be counted as dropped, not block.
	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Event{Type: EventRateLimited})
	}

	deadline := time.After(2 * time.Second)
	for d.Dropped() == 0 {
		select {
		case <-deadline:
			t.Fatal("no events dropped under backpressure")
		default:
			time.Sleep(time.Millisecond)
		}
	}
}

func TestDispatcherDrainsOnClose(t *testing.T) {
	// Close waits for the drain goroutine, so reading buf afterwards is safe.
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	d := NewDispatcher(Config{Enabled: true, BufferSize: 16}, sink)
	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), Event{Type: EventRedirect, Path: "/shop"})
	}
	d.Close()

	lines := bytes.Count(buf.Bytes(), []byte("\n"))
	if lines != 5 {
		t.Fatalf("drained %d events, want 5", lines)
	}

	var event Event
	if err := json.Unmarshal(bytes.SplitN(buf.Bytes(), []byte("\n"), 2)[0], &event); err != nil {
		t.Fatalf("sink output is not JSON lines: %v", err)
	}
	if event.Type != EventRedirect {
		t.Fatalf("event type = %q", event.Type)
	}
}

type sinkFunc func(ctx context.Context, event Event)

func (f sinkFunc) Emit(ctx context.Context, event Event) { f(ctx, event) }
