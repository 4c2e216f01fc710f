package jobs

import (
	"testing"

	"stemsmith/internal/domain"
)

// TestEventBusSince verifies incremental event reads by sequence.
func TestEventBusSince(t *testing.T) {
	bus := NewEventBus(3)
	bus.Publish(Event{Status: domain.JobStatusQueued, Message: "1"})
	bus.Publish(Event{Status: domain.JobStatusRunning, Message: "2"})
	bus.Publish(Event{Status: domain.JobStatusCompleted, Message: "3"})

	events := bus.Since(1)
	if len(events) != 2 {
		t.Fatalf("len = %d, want 2", len(events))
	}
	if events[0].Seq != 2 || events[1].Seq != 3 {
		t.Fatalf("unexpected seqs: %+v", events)
	}
}

// TestEventBusCapsHistory verifies buffer limit trimming behavior.
func TestEventBusCapsHistory(t *testing.T) {
	bus := NewEventBus(2)
	bus.Publish(Event{Message: "1"})
	bus.Publish(Event{Message: "2"})
	bus.Publish(Event{Message: "3"})

	events := bus.Since(0)
	if len(events) != 2 {
		t.Fatalf("len = %d, want 2", len(events))
	}
	if events[0].Message != "2" || events[1].Message != "3" {
		t.Fatalf("unexpected events: %+v", events)
	}
}

// TestEventBusLast verifies retrieval of the most recent event.
func TestEventBusLast(t *testing.T) {
	bus := NewEventBus(5)
	if _, ok := bus.Last(); ok {
		t.Fatal("expected no last event on empty bus")
	}

	bus.Publish(Event{Message: "1"})
	bus.Publish(Event{Message: "2"})

	last, ok := bus.Last()
	if !ok {
		t.Fatal("expected a last event")
	}
	if last.Message != "2" {
		t.Fatalf("message = %q, want 2", last.Message)
	}
}
