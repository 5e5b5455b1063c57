// Package heartbeat provides liveness detection for the agent: a
// periodically rewritten status file that external monitors (and the
// status command) can read without talking to the gateway.
package heartbeat

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Status represents the liveness state of the agent.
type Status string

const (
	StatusAlive Status = "alive"
	StatusStale Status = "stale"
	StatusDead  Status = "dead"
)

// Heartbeat is the data written to the heartbeat file.
type Heartbeat struct {
	PID            int       `json:"pid"`
	AgentID        string    `json:"agent_id,omitempty"`
	Name           string    `json:"name,omitempty"`
	Reputation     int       `json:"reputation"`
	TasksCompleted int       `json:"tasks_completed"`
	SuccessRate    float64   `json:"success_rate"`
	StartedAt      time.Time `json:"started_at"`
	Timestamp      time.Time `json:"timestamp"`
	Uptime         string    `json:"uptime"`
}

// AgentSnapshot captures the agent state one heartbeat carries.
type AgentSnapshot struct {
	AgentID        string
	Name           string
	Reputation     int
	TasksCompleted int
	SuccessRate    float64
}

// Writer periodically writes a heartbeat file to disk. The snapshot
// function supplies current agent statistics for each write.
type Writer struct {
	path     string
	interval time.Duration
	snapshot func() AgentSnapshot
	started  time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewWriter creates a heartbeat writer. A nil snapshot function writes
// liveness only. A zero interval defaults to 30s.
func NewWriter(path string, interval time.Duration, snapshot func() AgentSnapshot) *Writer {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Writer{
		path:     path,
		interval: interval,
		snapshot: snapshot,
	}
}

// Start begins writing heartbeat files in a background goroutine.
func (w *Writer) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil {
		return // already running
	}

	w.started = time.Now()
	w.done = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel

	// Write initial heartbeat immediately
	w.write()

	go func() {
		defer close(w.done)
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				w.write()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops writing and removes the heartbeat file.
func (w *Writer) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel == nil {
		return
	}

	w.cancel()
	<-w.done
	w.cancel = nil

	os.Remove(w.path)
}

func (w *Writer) write() {
	hb := Heartbeat{
		PID:       os.Getpid(),
		StartedAt: w.started,
		Timestamp: time.Now(),
		Uptime:    time.Since(w.started).Truncate(time.Second).String(),
	}

	if w.snapshot != nil {
		snap := w.snapshot()
		hb.AgentID = snap.AgentID
		hb.Name = snap.Name
		hb.Reputation = snap.Reputation
		hb.TasksCompleted = snap.TasksCompleted
		hb.SuccessRate = snap.SuccessRate
	}

	data, err := json.MarshalIndent(hb, "", "  ")
	if err != nil {
		return
	}

	// Atomic write: tmp + rename
	tmp := w.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return
	}
	os.Rename(tmp, w.path)
}

// Check reads a heartbeat file and returns the liveness status.
// maxAge determines how old a heartbeat can be before it's considered stale.
func Check(path string, maxAge time.Duration) (Status, *Heartbeat, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return StatusDead, nil, nil
		}
		return StatusDead, nil, fmt.Errorf("read heartbeat: %w", err)
	}

	var hb Heartbeat
	if err := json.Unmarshal(data, &hb); err != nil {
		return StatusDead, nil, fmt.Errorf("unmarshal heartbeat: %w", err)
	}

	age := time.Since(hb.Timestamp)
	if age > maxAge {
		return StatusStale, &hb, nil
	}

	return StatusAlive, &hb, nil
}
