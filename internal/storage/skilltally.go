package storage

import (
	"sort"
	"sync"

	"github.com/gish1337/alm-agent/internal/events"
)

// SkillCount is one row of the tally snapshot.
type SkillCount struct {
	Skill       string  `json:"skill"`
	Dispatches  int     `json:"dispatches"`
	Failures    int     `json:"failures"`
	SuccessRate float64 `json:"success_rate"`
}

type tallyEntry struct {
	dispatches int
	failures   int
}

// SkillTally subscribes to dispatch events and accumulates per-skill
// counts for the stats endpoint.
type SkillTally struct {
	mu          sync.Mutex
	bus         *events.Bus
	bySkill     map[string]*tallyEntry
	byRoute     map[events.Route]int
	unsubscribe func()
}

// NewSkillTally creates a SkillTally that listens for processed messages.
func NewSkillTally(bus *events.Bus) *SkillTally {
	st := &SkillTally{
		bus:     bus,
		bySkill: make(map[string]*tallyEntry),
		byRoute: make(map[events.Route]int),
	}
	st.unsubscribe = bus.Subscribe(st.handleEvent, events.EventMessageProcessed)
	return st
}

// Close unsubscribes the tally from the event bus.
func (st *SkillTally) Close() {
	if st.unsubscribe != nil {
		st.unsubscribe()
	}
}

func (st *SkillTally) handleEvent(e events.Event) {
	payload, ok := events.GetMessageProcessedPayload(e)
	if !ok {
		return
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	st.byRoute[payload.Route]++

	if payload.Skill == "" {
		return
	}
	entry, ok := st.bySkill[payload.Skill]
	if !ok {
		entry = &tallyEntry{}
		st.bySkill[payload.Skill] = entry
	}
	entry.dispatches++
	if !payload.Success {
		entry.failures++
	}
}

// Record counts one dispatch directly, bypassing the bus. Used by
// surfaces that process messages synchronously.
func (st *SkillTally) Record(skill string, route events.Route, failed bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.byRoute[route]++
	if skill == "" {
		return
	}
	entry, ok := st.bySkill[skill]
	if !ok {
		entry = &tallyEntry{}
		st.bySkill[skill] = entry
	}
	entry.dispatches++
	if failed {
		entry.failures++
	}
}

// Skills returns per-skill counts sorted by dispatch count, busiest first.
func (st *SkillTally) Skills() []SkillCount {
	st.mu.Lock()
	defer st.mu.Unlock()

	result := make([]SkillCount, 0, len(st.bySkill))
	for skill, entry := range st.bySkill {
		rate := 1.0
		if entry.dispatches > 0 {
			rate = float64(entry.dispatches-entry.failures) / float64(entry.dispatches)
		}
		result = append(result, SkillCount{
			Skill:       skill,
			Dispatches:  entry.dispatches,
			Failures:    entry.failures,
			SuccessRate: rate,
		})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Dispatches != result[j].Dispatches {
			return result[i].Dispatches > result[j].Dispatches
		}
		return result[i].Skill < result[j].Skill
	})
	return result
}

// Routes returns the dispatch count per route.
func (st *SkillTally) Routes() map[string]int {
	st.mu.Lock()
	defer st.mu.Unlock()

	result := make(map[string]int, len(st.byRoute))
	for route, n := range st.byRoute {
		result[string(route)] = n
	}
	return result
}
