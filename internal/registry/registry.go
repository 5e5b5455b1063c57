// Package registry maintains the in-memory catalog of agent profiles and
// their task statistics. State lives for the process lifetime only;
// nothing is persisted or re-read on start.
package registry

import (
	"strings"
	"sync"
	"time"
)

// maxRecentTasks bounds the per-agent task history kept in memory.
const maxRecentTasks = 50

// Config tunes a Registry. Zero values fall back to production defaults,
// so Registry{} via New(Config{}) is fully usable.
type Config struct {
	// Policy weights reputation adjustments. Zero means the default policy.
	Policy ReputationPolicy

	// NewID and Now are injection points for tests.
	NewID func() string
	Now   func() time.Time
}

func applyDefaults(cfg *Config) {
	if cfg.Policy == (ReputationPolicy{}) {
		cfg.Policy = DefaultReputationPolicy()
	}
	if cfg.NewID == nil {
		cfg.NewID = GenerateAgentID
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
}

// record pairs a profile with the running outcome counters that back
// SuccessRate recomputation.
type record struct {
	profile   AgentProfile
	successes int
	failures  int
	recent    []TaskRecord
}

// Registry is the in-memory agent catalog. A single mutex guards the whole
// map, which keeps every RecordTask atomic per agent: readers never see a
// profile with the counter bumped but the rate not yet recomputed.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]*record
	order  []string // ids in registration order, for stable listings

	policy ReputationPolicy
	newID  func() string
	now    func() time.Time
}

// New creates a Registry.
func New(cfg Config) *Registry {
	applyDefaults(&cfg)
	return &Registry{
		agents: make(map[string]*record),
		policy: cfg.Policy,
		newID:  cfg.NewID,
		now:    cfg.Now,
	}
}

// Policy returns the reputation policy the registry applies.
func (r *Registry) Policy() ReputationPolicy {
	return r.policy
}

// Register adds a new agent and returns its fresh id. Every call creates a
// new record; registering identical data twice yields two distinct agents.
func (r *Registry) Register(in AgentInfo) (string, error) {
	if strings.TrimSpace(in.Name) == "" {
		return "", &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if strings.TrimSpace(in.Version) == "" {
		return "", &ValidationError{Field: "version", Reason: "must not be empty"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	profile := AgentProfile{
		ID:          r.newID(),
		Name:        in.Name,
		Description: in.Description,
		Version:     in.Version,
		PublicKey:   in.PublicKey,
		Reputation:  clampReputation(r.policy.Initial),
		SuccessRate: 100,
		CreatedAt:   now,
		LastActive:  now,
	}
	if len(in.Capabilities) > 0 {
		profile.Capabilities = make([]AgentCapability, len(in.Capabilities))
		copy(profile.Capabilities, in.Capabilities)
	}
	if in.Pricing != nil {
		pricing := *in.Pricing
		profile.Pricing = &pricing
	}

	r.agents[profile.ID] = &record{profile: profile}
	r.order = append(r.order, profile.ID)
	return profile.ID, nil
}

// Get returns a copy of the profile for id. The second return is false
// when the agent is unknown.
func (r *Registry) Get(id string) (AgentProfile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.agents[id]
	if !ok {
		return AgentProfile{}, false
	}
	return rec.profile.clone(), true
}

// RecordTask folds one task outcome into an agent's statistics: the task
// counter, the recomputed success rate, the reputation score and the
// last-active stamp move together under the lock. Unknown ids are ignored
// so that recording can never fail a dispatch.
func (r *Registry) RecordTask(id, description, skillName string, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.agents[id]
	if !ok {
		return
	}

	if success {
		rec.successes++
	} else {
		rec.failures++
	}

	rec.profile.TasksCompleted++
	rec.profile.SuccessRate = successRate(rec.successes, rec.failures)
	rec.profile.Reputation = r.policy.apply(rec.profile.Reputation, success)
	rec.profile.LastActive = r.now()

	rec.recent = append(rec.recent, TaskRecord{
		Description: description,
		Skill:       skillName,
		Success:     success,
		At:          rec.profile.LastActive,
	})
	if len(rec.recent) > maxRecentTasks {
		rec.recent = rec.recent[len(rec.recent)-maxRecentTasks:]
	}
}

// SetCapabilities replaces an agent's capability list. The profile
// manager owns capability semantics (ordering, name uniqueness); the
// registry just stores the result. Returns false for unknown ids.
func (r *Registry) SetCapabilities(id string, caps []AgentCapability) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.agents[id]
	if !ok {
		return false
	}

	copied := make([]AgentCapability, len(caps))
	copy(copied, caps)
	rec.profile.Capabilities = copied
	return true
}

// SetPricing replaces an agent's pricing. Returns false for unknown ids.
func (r *Registry) SetPricing(id string, pricing Pricing) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.agents[id]
	if !ok {
		return false
	}

	p := pricing
	rec.profile.Pricing = &p
	return true
}

// RecentTasks returns the most recent task records for id, oldest first.
func (r *Registry) RecentTasks(id string) []TaskRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.agents[id]
	if !ok || len(rec.recent) == 0 {
		return nil
	}
	out := make([]TaskRecord, len(rec.recent))
	copy(out, rec.recent)
	return out
}

// List returns all profiles in registration order.
func (r *Registry) List() []AgentProfile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]AgentProfile, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.agents[id].profile.clone())
	}
	return out
}

// Count returns the number of registered agents.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}

// successRate is 100*successes/(successes+failures), or 100 while no
// outcome has been recorded yet.
func successRate(successes, failures int) float64 {
	total := successes + failures
	if total == 0 {
		return 100
	}
	return 100 * float64(successes) / float64(total)
}
