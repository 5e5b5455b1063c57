package events

import (
	"sync"
	"testing"
	"time"
)

func TestBusPublishSubscribe(t *testing.T) {
	bus := NewBus(64)
	defer bus.Close()

	var mu sync.Mutex
	var received []Event

	bus.Subscribe(func(e Event) {
		mu.Lock()
		received = append(received, e)
		mu.Unlock()
	}, EventTaskRecorded)

	bus.Publish(NewTypedEvent("engine", TaskRecordedPayload{AgentID: "agent_1", Skill: "Balance Checker", Success: true}))
	bus.Publish(NewTypedEvent("chain", ChainStatusPayload{Healthy: true}))

	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	if len(received) != 1 {
		t.Fatalf("expected 1 event, got %d", len(received))
	}
	if received[0].Type != EventTaskRecorded {
		t.Errorf("expected task.recorded, got %s", received[0].Type)
	}
}

func TestBusSubscribeAll(t *testing.T) {
	bus := NewBus(64)
	defer bus.Close()

	var mu sync.Mutex
	count := 0

	bus.Subscribe(func(e Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	bus.Publish(NewTypedEvent("engine", MessageProcessedPayload{Route: RouteCommand}))
	bus.Publish(NewTypedEvent("profile", AgentRegisteredPayload{AgentID: "agent_1"}))

	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	if count != 2 {
		t.Errorf("expected 2 events, got %d", count)
	}
}

func TestPublishDuringClose(t *testing.T) {
	bus := NewBus(4)

	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for j := 0; j < 200; j++ {
				bus.Publish(NewTypedEvent("engine", MessageProcessedPayload{Route: RouteCommand}))
			}
		}()
	}

	close(start)
	bus.Close()
	wg.Wait()

	// Publishing after close stays a no-op.
	bus.Publish(NewTypedEvent("engine", MessageProcessedPayload{Route: RouteGuidance}))
}

func TestNilBusPublish(t *testing.T) {
	var bus *Bus
	// Must not panic.
	bus.Publish(NewTypedEvent("engine", MessageProcessedPayload{Route: RouteGuidance}))
}

func TestRingBuffer(t *testing.T) {
	rb := NewRingBuffer(3)

	for i := 0; i < 5; i++ {
		rb.Add(NewEvent(EventMessageProcessed, "engine", map[string]any{"i": i}))
	}

	events := rb.Get(10)
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
}

func TestSubscribeChan(t *testing.T) {
	bus := NewBus(64)
	defer bus.Close()

	ch, unsub := bus.SubscribeChan(8, EventChainStatus)
	defer unsub()

	bus.Publish(NewTypedEvent("chain", ChainStatusPayload{Healthy: true, TPS: 2400}))

	select {
	case e := <-ch:
		if e.Type != EventChainStatus {
			t.Errorf("expected chain.status.refreshed, got %s", e.Type)
		}
		payload, ok := GetChainStatusPayload(e)
		if !ok {
			t.Fatal("payload did not round-trip")
		}
		if payload.TPS != 2400 {
			t.Errorf("expected tps 2400, got %v", payload.TPS)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestTypedEventForAgent(t *testing.T) {
	e := NewTypedEventForAgent("profile", CapabilityChangedPayload{
		AgentID: "agent_42",
		Name:    "price_lookup",
		Enabled: false,
		Action:  "toggled",
	}, "agent_42")

	if e.AgentID != "agent_42" {
		t.Errorf("expected agent id on event, got %q", e.AgentID)
	}
	payload, ok := GetCapabilityChangedPayload(e)
	if !ok {
		t.Fatal("payload did not round-trip")
	}
	if payload.Name != "price_lookup" || payload.Enabled {
		t.Errorf("unexpected payload: %+v", payload)
	}
}
