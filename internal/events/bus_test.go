package events_test

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/govmigrate/govmigrate/internal/events"
)

func TestBus_PublishReachesAllSubscribers(t *testing.T) {
	bus := events.NewBus(zerolog.Nop())

	var a, b int
	bus.Subscribe(func(events.Event) { a++ })
	bus.Subscribe(func(events.Event) { b++ })

	bus.Publish(events.Event{Name: events.EventEmergencyRollback, Timestamp: time.Now()})

	if a != 1 || b != 1 {
		t.Errorf("expected both subscribers to receive the event, got %d/%d", a, b)
	}
}

func TestBus_PanickingSubscriberIsIsolated(t *testing.T) {
	bus := events.NewBus(zerolog.Nop())

	var delivered int
	bus.Subscribe(func(events.Event) { panic("bad subscriber") })
	bus.Subscribe(func(events.Event) { delivered++ })

	bus.Publish(events.Event{Name: events.EventPhaseChanged, Timestamp: time.Now()})

	if delivered != 1 {
		t.Errorf("expected delivery to continue past the panicking subscriber, got %d", delivered)
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := events.NewBus(zerolog.Nop())

	var delivered int
	cancel := bus.Subscribe(func(events.Event) { delivered++ })

	bus.Publish(events.Event{Name: events.EventEmergencyRollback, Timestamp: time.Now()})
	cancel()
	bus.Publish(events.Event{Name: events.EventEmergencyRollback, Timestamp: time.Now()})

	if delivered != 1 {
		t.Errorf("expected one delivery, got %d", delivered)
	}
}
