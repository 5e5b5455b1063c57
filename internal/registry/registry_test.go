package registry

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

func testClock(start time.Time) (func() time.Time, func(time.Duration)) {
	var mu sync.Mutex
	now := start
	get := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(d)
	}
	return get, advance
}

func TestRegisterAssignsUniqueIDs(t *testing.T) {
	reg := New(Config{})

	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		id, err := reg.Register(AgentInfo{Name: "worker", Version: "1.0.0"})
		if err != nil {
			t.Fatalf("register %d: %v", i, err)
		}
		if !strings.HasPrefix(id, "agent_") {
			t.Fatalf("id %q missing agent_ prefix", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q after %d registrations", id, i)
		}
		seen[id] = true
	}

	if reg.Count() != 500 {
		t.Errorf("expected 500 agents, got %d", reg.Count())
	}
}

func TestRegisterValidation(t *testing.T) {
	reg := New(Config{})

	cases := []struct {
		name    string
		info    AgentInfo
		field   string
	}{
		{"empty name", AgentInfo{Version: "1.0.0"}, "name"},
		{"blank name", AgentInfo{Name: "   ", Version: "1.0.0"}, "name"},
		{"empty version", AgentInfo{Name: "worker"}, "version"},
		{"blank version", AgentInfo{Name: "worker", Version: "\t"}, "version"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := reg.Register(tc.info)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tc.field {
				t.Errorf("expected field %q, got %q", tc.field, verr.Field)
			}
		})
	}

	if reg.Count() != 0 {
		t.Errorf("rejected registrations must not be stored, got %d", reg.Count())
	}
}

func TestRegisterDefaults(t *testing.T) {
	start := time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)
	now, _ := testClock(start)
	reg := New(Config{Now: now})

	id, err := reg.Register(AgentInfo{
		Name:        "helper",
		Description: "test agent",
		Version:     "0.2.1",
		Capabilities: []AgentCapability{
			{Name: "balance_check", Enabled: true},
		},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	p, ok := reg.Get(id)
	if !ok {
		t.Fatal("registered agent not found")
	}
	if p.TasksCompleted != 0 {
		t.Errorf("expected 0 tasks, got %d", p.TasksCompleted)
	}
	if p.SuccessRate != 100 {
		t.Errorf("expected success rate 100, got %v", p.SuccessRate)
	}
	if p.Reputation != DefaultReputationPolicy().Initial {
		t.Errorf("expected reputation %d, got %d", DefaultReputationPolicy().Initial, p.Reputation)
	}
	if !p.CreatedAt.Equal(start) || !p.LastActive.Equal(start) {
		t.Errorf("expected created/last-active %v, got %v / %v", start, p.CreatedAt, p.LastActive)
	}
	if len(p.Capabilities) != 1 || p.Capabilities[0].Name != "balance_check" {
		t.Errorf("capabilities not carried over: %+v", p.Capabilities)
	}
}

func TestRegisterNeverDeduplicates(t *testing.T) {
	reg := New(Config{})

	info := AgentInfo{Name: "twin", Version: "1.0.0"}
	a, err := reg.Register(info)
	if err != nil {
		t.Fatalf("first register: %v", err)
	}
	b, err := reg.Register(info)
	if err != nil {
		t.Fatalf("second register: %v", err)
	}

	if a == b {
		t.Fatalf("identical registrations must yield distinct ids, both got %q", a)
	}
	if reg.Count() != 2 {
		t.Errorf("expected 2 agents, got %d", reg.Count())
	}
}

func TestGetUnknown(t *testing.T) {
	reg := New(Config{})

	if _, ok := reg.Get("agent_missing"); ok {
		t.Fatal("expected ok=false for unknown id")
	}
}

func TestRecordTaskMath(t *testing.T) {
	reg := New(Config{})
	id, err := reg.Register(AgentInfo{Name: "worker", Version: "1.0.0"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	outcomes := []bool{true, true, false, true, false, false, false, true, true, false}
	successes, failures := 0, 0

	for i, success := range outcomes {
		reg.RecordTask(id, fmt.Sprintf("task %d", i), "Balance Checker", success)
		if success {
			successes++
		} else {
			failures++
		}

		p, ok := reg.Get(id)
		if !ok {
			t.Fatal("agent disappeared")
		}
		if p.TasksCompleted != i+1 {
			t.Fatalf("step %d: expected %d tasks, got %d", i, i+1, p.TasksCompleted)
		}
		want := 100 * float64(successes) / float64(successes+failures)
		if p.SuccessRate != want {
			t.Fatalf("step %d: expected rate %v, got %v", i, want, p.SuccessRate)
		}
		if p.Reputation < 0 || p.Reputation > 100 {
			t.Fatalf("step %d: reputation %d out of bounds", i, p.Reputation)
		}
	}
}

func TestRecordTaskUnknownID(t *testing.T) {
	reg := New(Config{})
	id, _ := reg.Register(AgentInfo{Name: "worker", Version: "1.0.0"})

	before, _ := reg.Get(id)
	reg.RecordTask("agent_nope", "who", "Price Monitor", true)
	after, _ := reg.Get(id)

	if after.TasksCompleted != before.TasksCompleted || after.Reputation != before.Reputation {
		t.Errorf("unknown-id record mutated another agent: %+v vs %+v", before, after)
	}
	if reg.Count() != 1 {
		t.Errorf("unknown-id record must not create agents, got %d", reg.Count())
	}
}

func TestReputationClamping(t *testing.T) {
	policy := ReputationPolicy{Initial: 5, SuccessDelta: 10, FailurePenalty: 7}
	reg := New(Config{Policy: policy})
	id, _ := reg.Register(AgentInfo{Name: "worker", Version: "1.0.0"})

	for i := 0; i < 3; i++ {
		reg.RecordTask(id, "bad", "Network Status", false)
	}
	p, _ := reg.Get(id)
	if p.Reputation != 0 {
		t.Fatalf("expected reputation clamped at 0, got %d", p.Reputation)
	}

	for i := 0; i < 20; i++ {
		reg.RecordTask(id, "good", "Network Status", true)
	}
	p, _ = reg.Get(id)
	if p.Reputation != 100 {
		t.Fatalf("expected reputation clamped at 100, got %d", p.Reputation)
	}
}

func TestRecordTaskUpdatesLastActive(t *testing.T) {
	start := time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)
	now, advance := testClock(start)
	reg := New(Config{Now: now})
	id, _ := reg.Register(AgentInfo{Name: "worker", Version: "1.0.0"})

	advance(90 * time.Second)
	reg.RecordTask(id, "check balance", "Balance Checker", true)

	p, _ := reg.Get(id)
	if !p.LastActive.Equal(start.Add(90 * time.Second)) {
		t.Errorf("expected last active %v, got %v", start.Add(90*time.Second), p.LastActive)
	}
	if !p.CreatedAt.Equal(start) {
		t.Errorf("created-at must not move, got %v", p.CreatedAt)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	reg := New(Config{})
	id, _ := reg.Register(AgentInfo{
		Name:    "worker",
		Version: "1.0.0",
		Capabilities: []AgentCapability{
			{Name: "balance_check", Enabled: true},
		},
		Pricing: &Pricing{PricePerTask: 0.1, Currency: CurrencySOL},
	})

	p, _ := reg.Get(id)
	p.Capabilities[0].Enabled = false
	p.Pricing.PricePerTask = 99

	fresh, _ := reg.Get(id)
	if !fresh.Capabilities[0].Enabled {
		t.Error("mutating a returned profile leaked into the registry")
	}
	if fresh.Pricing.PricePerTask != 0.1 {
		t.Error("mutating returned pricing leaked into the registry")
	}
}

func TestRecentTasks(t *testing.T) {
	reg := New(Config{})
	id, _ := reg.Register(AgentInfo{Name: "worker", Version: "1.0.0"})

	for i := 0; i < maxRecentTasks+10; i++ {
		reg.RecordTask(id, fmt.Sprintf("task %d", i), "Price Monitor", true)
	}

	recent := reg.RecentTasks(id)
	if len(recent) != maxRecentTasks {
		t.Fatalf("expected %d recent tasks, got %d", maxRecentTasks, len(recent))
	}
	if recent[len(recent)-1].Description != fmt.Sprintf("task %d", maxRecentTasks+9) {
		t.Errorf("expected newest record last, got %q", recent[len(recent)-1].Description)
	}
	if reg.RecentTasks("agent_nope") != nil {
		t.Error("expected nil recent tasks for unknown id")
	}
}

func TestConcurrentRecordTask(t *testing.T) {
	reg := New(Config{})
	id, _ := reg.Register(AgentInfo{Name: "worker", Version: "1.0.0"})

	const workers = 8
	const perWorker = 100

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(success bool) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				reg.RecordTask(id, "load", "Transaction Analyzer", success)
			}
		}(w%2 == 0)
	}
	wg.Wait()

	p, _ := reg.Get(id)
	if p.TasksCompleted != workers*perWorker {
		t.Fatalf("expected %d tasks, got %d", workers*perWorker, p.TasksCompleted)
	}
	if p.SuccessRate != 50 {
		t.Errorf("expected success rate 50, got %v", p.SuccessRate)
	}
}
