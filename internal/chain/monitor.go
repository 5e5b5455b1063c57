package chain

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/gish1337/alm-agent/internal/events"
)

// snapshotMaxAge is how long a refresh result stays servable from cache.
const snapshotMaxAge = 10 * time.Minute

// StatusSnapshot is the monitor's cached view of the cluster.
type StatusSnapshot struct {
	Healthy     bool      `json:"healthy"`
	Slot        uint64    `json:"slot,omitempty"`
	TPS         float64   `json:"tps,omitempty"`
	SolPriceUSD float64   `json:"sol_price_usd,omitempty"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

// CronExpr wraps a parsed 5-field cron schedule.
type CronExpr struct {
	raw      string
	schedule cron.Schedule
}

// ParseCron parses a standard 5-field (minute-based) cron expression.
func ParseCron(expr string) (*CronExpr, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("parse cron %q: %w", expr, err)
	}
	return &CronExpr{raw: expr, schedule: schedule}, nil
}

// Next returns the next activation time after t.
func (c *CronExpr) Next(t time.Time) time.Time {
	return c.schedule.Next(t)
}

// Matches returns true if t falls within the same minute as a scheduled
// activation.
func (c *CronExpr) Matches(t time.Time) bool {
	truncated := t.Truncate(time.Minute)
	next := c.schedule.Next(truncated.Add(-time.Minute))
	return next.Equal(truncated)
}

// String returns the raw cron expression.
func (c *CronExpr) String() string {
	return c.raw
}

// MonitorConfig wires a Monitor.
type MonitorConfig struct {
	RPC    rpcReader
	Prices priceReader // optional
	Bus    *events.Bus // optional
	Cron   *CronExpr
}

// Monitor refreshes the network snapshot on a cron schedule and
// publishes the result to the bus. The cached snapshot backs /network.
type Monitor struct {
	rpc    rpcReader
	prices priceReader
	bus    *events.Bus
	cron   *CronExpr

	mu   sync.RWMutex
	snap StatusSnapshot

	done     chan struct{}
	stopOnce sync.Once
}

// NewMonitor creates a Monitor.
func NewMonitor(cfg MonitorConfig) *Monitor {
	return &Monitor{
		rpc:    cfg.RPC,
		prices: cfg.Prices,
		bus:    cfg.Bus,
		cron:   cfg.Cron,
		done:   make(chan struct{}),
	}
}

// Start refreshes once immediately and then begins the cron loop.
func (m *Monitor) Start(ctx context.Context) {
	m.Refresh(ctx)
	go m.loop(ctx)
	slog.Info("chain monitor started", "cron", m.cron.String())
}

// Stop halts the cron loop.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.done) })
}

func (m *Monitor) loop(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if m.cron.Matches(now) {
				m.Refresh(ctx)
			}
		}
	}
}

// Refresh pulls health, slot, throughput and price, stores the snapshot
// and publishes a chain.status.refreshed event. Partial data is fine: a
// failing price feed doesn't block the health sample.
func (m *Monitor) Refresh(ctx context.Context) StatusSnapshot {
	snap := StatusSnapshot{RefreshedAt: time.Now()}
	payload := events.ChainStatusPayload{}

	healthy, err := m.rpc.Health(ctx)
	if err != nil {
		slog.Warn("chain monitor: health check failed", "error", err)
		payload.Error = err.Error()
	} else {
		snap.Healthy = healthy
	}
	payload.Healthy = snap.Healthy

	if slot, err := m.rpc.Slot(ctx); err == nil {
		snap.Slot = slot
		payload.Slot = slot
	}
	if samples, err := m.rpc.PerformanceSamples(ctx, 1); err == nil && len(samples) > 0 {
		snap.TPS = samples[0].TPS()
		payload.TPS = snap.TPS
	}
	if m.prices != nil {
		if price, err := m.prices.SolUSD(ctx); err == nil {
			snap.SolPriceUSD = price
			payload.SolPriceUSD = price
		}
	}

	m.mu.Lock()
	m.snap = snap
	m.mu.Unlock()

	m.bus.Publish(events.NewTypedEvent(events.SourceChain, payload))
	return snap
}

// Snapshot returns the cached snapshot and whether it is still fresh
// enough to serve.
func (m *Monitor) Snapshot() (StatusSnapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.snap.RefreshedAt.IsZero() {
		return StatusSnapshot{}, false
	}
	return m.snap, time.Since(m.snap.RefreshedAt) < snapshotMaxAge
}
