package chain

import (
	"context"
	"testing"
	"time"

	"github.com/gish1337/alm-agent/internal/events"
)

func TestParseCron(t *testing.T) {
	expr, err := ParseCron("*/5 * * * *")
	if err != nil {
		t.Fatalf("ParseCron: %v", err)
	}

	base := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	next := expr.Next(base)
	want := time.Date(2026, 8, 25, 10, 5, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("Next = %v, want %v", next, want)
	}

	if _, err := ParseCron("not a cron"); err == nil {
		t.Error("expected error for invalid expression")
	}
}

func TestCronMatches(t *testing.T) {
	expr, err := ParseCron("*/5 * * * *")
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		at   time.Time
		want bool
	}{
		{time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC), true},
		{time.Date(2026, 8, 25, 10, 5, 30, 0, time.UTC), true}, // mid-minute still matches
		{time.Date(2026, 8, 25, 10, 3, 0, 0, time.UTC), false},
	}
	for _, tc := range cases {
		if got := expr.Matches(tc.at); got != tc.want {
			t.Errorf("Matches(%v) = %v, want %v", tc.at, got, tc.want)
		}
	}
}

func TestMonitorRefresh(t *testing.T) {
	cron, err := ParseCron("*/5 * * * *")
	if err != nil {
		t.Fatal(err)
	}

	bus := events.NewBus(16)
	defer bus.Close()

	ch, cancel := bus.SubscribeChan(4, events.EventChainStatus)
	defer cancel()

	m := NewMonitor(MonitorConfig{
		RPC:    healthyRPC(),
		Prices: &fakePrices{price: 99.5},
		Bus:    bus,
		Cron:   cron,
	})

	snap := m.Refresh(context.Background())
	if !snap.Healthy {
		t.Error("expected healthy snapshot")
	}
	if snap.Slot != 123456 {
		t.Errorf("expected slot 123456, got %d", snap.Slot)
	}
	if snap.TPS != 1000 {
		t.Errorf("expected 1000 TPS, got %v", snap.TPS)
	}
	if snap.SolPriceUSD != 99.5 {
		t.Errorf("expected price 99.5, got %v", snap.SolPriceUSD)
	}

	cached, fresh := m.Snapshot()
	if !fresh {
		t.Fatal("expected fresh snapshot right after refresh")
	}
	if cached.Slot != snap.Slot {
		t.Errorf("cached snapshot differs: %+v vs %+v", cached, snap)
	}

	select {
	case e := <-ch:
		payload, ok := events.GetChainStatusPayload(e)
		if !ok {
			t.Fatal("expected chain status payload")
		}
		if !payload.Healthy || payload.Slot != 123456 {
			t.Errorf("unexpected payload %+v", payload)
		}
	case <-time.After(time.Second):
		t.Fatal("no chain.status.refreshed event published")
	}
}

func TestMonitorSnapshot_EmptyBeforeRefresh(t *testing.T) {
	cron, _ := ParseCron("* * * * *")
	m := NewMonitor(MonitorConfig{RPC: healthyRPC(), Cron: cron})

	if _, fresh := m.Snapshot(); fresh {
		t.Error("expected no fresh snapshot before first refresh")
	}
}
