package event

import "testing"

func TestHub_PublishSubscribe(t *testing.T) {
	hub := NewHub[int]()

	ch, cancel := hub.Subscribe(4)
	defer cancel()

	hub.Publish(42)

	env := <-ch
	if env.Payload != 42 {
		t.Errorf("Expected 42, got %d", env.Payload)
	}
	if env.Version != 1 {
		t.Errorf("Expected version 1, got %d", env.Version)
	}
}

func TestHub_LateSubscriberGetsSnapshot(t *testing.T) {
	hub := NewHub[string]()
	hub.Publish("first")
	hub.Publish("second")

	ch, cancel := hub.Subscribe(1)
	defer cancel()

	env := <-ch
	if env.Payload != "second" {
		t.Errorf("Expected latest snapshot, got %q", env.Payload)
	}
	if env.Version != 2 {
		t.Errorf("Expected version 2, got %d", env.Version)
	}
}

func TestHub_SlowSubscriberDropsOldest(t *testing.T) {
	hub := NewHub[int]()

	ch, cancel := hub.Subscribe(1)
	defer cancel()

	// Subscriber never reads between publishes; only the newest survives.
	hub.Publish(1)
	hub.Publish(2)
	hub.Publish(3)

	env := <-ch
	if env.Payload != 3 {
		t.Errorf("Expected newest payload 3, got %d", env.Payload)
	}
}

func TestHub_CancelUnsubscribes(t *testing.T) {
	hub := NewHub[int]()

	_, cancel := hub.Subscribe(1)
	if hub.SubscriberCount() != 1 {
		t.Fatalf("Expected 1 subscriber, got %d", hub.SubscriberCount())
	}

	cancel()
	cancel() // idempotent

	if hub.SubscriberCount() != 0 {
		t.Errorf("Expected 0 subscribers, got %d", hub.SubscriberCount())
	}

	// Publishing after cancel must not panic.
	hub.Publish(7)
}

func TestHub_Latest(t *testing.T) {
	hub := NewHub[int]()

	if _, ok := hub.Latest(); ok {
		t.Error("Empty hub should have no snapshot")
	}

	hub.Publish(5)
	env, ok := hub.Latest()
	if !ok || env.Payload != 5 {
		t.Errorf("Expected snapshot 5, got %v ok=%v", env.Payload, ok)
	}
}
