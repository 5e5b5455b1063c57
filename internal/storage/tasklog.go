// Package storage persists the agent's activity stream: a JSONL log of
// bus events on disk and an in-memory per-skill dispatch tally.
package storage

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/gish1337/alm-agent/internal/events"
)

// TaskLogger persists task and dispatch events to JSONL files, one file
// per day under the logs directory.
type TaskLogger struct {
	dir         string
	bus         *events.Bus
	unsubscribe func()

	// now is swappable for tests.
	now func() time.Time
}

// NewTaskLogger creates a TaskLogger that subscribes to task outcomes,
// dispatch summaries and chain status refreshes and appends them to dir.
func NewTaskLogger(dir string, bus *events.Bus) *TaskLogger {
	tl := &TaskLogger{
		dir: dir,
		bus: bus,
		now: time.Now,
	}
	tl.unsubscribe = bus.Subscribe(tl.handleEvent,
		events.EventTaskRecorded,
		events.EventMessageProcessed,
		events.EventChainStatus,
	)
	return tl
}

// Close unsubscribes the logger from the event bus.
func (tl *TaskLogger) Close() {
	if tl.unsubscribe != nil {
		tl.unsubscribe()
	}
}

func (tl *TaskLogger) handleEvent(e events.Event) {
	_ = tl.writeEvent(e)
}

func (tl *TaskLogger) writeEvent(e events.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	path := tl.logPath(e.Timestamp)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(data)
	return err
}

func (tl *TaskLogger) logPath(ts time.Time) string {
	if ts.IsZero() {
		ts = tl.now()
	}
	return filepath.Join(tl.dir, ts.Format("2006-01-02")+".jsonl")
}

// ReadDay returns the events logged on the given day, oldest first.
// A missing file means no events, not an error.
func (tl *TaskLogger) ReadDay(day time.Time) ([]events.Event, error) {
	f, err := os.Open(tl.logPath(day))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var result []events.Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e events.Event
		if err := json.Unmarshal(line, &e); err != nil {
			// Skip corrupt lines rather than losing the whole day.
			continue
		}
		result = append(result, e)
	}
	return result, scanner.Err()
}
