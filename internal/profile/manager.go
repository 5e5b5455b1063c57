// Package profile manages the local agent's identity: its registration,
// capability set, pricing and marketplace export.
package profile

import (
	"fmt"
	"sync"

	"github.com/gish1337/alm-agent/internal/events"
	"github.com/gish1337/alm-agent/internal/registry"
)

// Identity describes the local agent.
type Identity struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`
	PublicKey   string `json:"public_key,omitempty"`
}

// StatusUninitialized and StatusActive are the two summary states.
const (
	StatusUninitialized = "uninitialized"
	StatusActive        = "active"
)

// Summary is a read-only projection of the local agent's state. Before
// Initialize it carries only the uninitialized status sentinel.
type Summary struct {
	Status         string            `json:"status"`
	AgentID        string            `json:"agent_id,omitempty"`
	Name           string            `json:"name,omitempty"`
	Version        string            `json:"version,omitempty"`
	Capabilities   int               `json:"capabilities"`
	Enabled        int               `json:"enabled"`
	Reputation     int               `json:"reputation"`
	TasksCompleted int               `json:"tasks_completed"`
	SuccessRate    float64           `json:"success_rate"`
	Pricing        *registry.Pricing `json:"pricing,omitempty"`
}

// Config wires a Manager.
type Config struct {
	Registry *registry.Registry
	Bus      *events.Bus // optional
}

// Manager is a façade over the registry entry for the one local agent.
// It owns the capability list and mirrors every change into the registry
// so both views stay consistent.
type Manager struct {
	mu       sync.Mutex
	registry *registry.Registry
	bus      *events.Bus

	agentID  string
	identity Identity
	caps     []registry.AgentCapability
	pricing  *registry.Pricing
}

// NewManager creates a Manager. The registry is required.
func NewManager(cfg Config) *Manager {
	return &Manager{
		registry: cfg.Registry,
		bus:      cfg.Bus,
	}
}

// starterCapabilities is the fixed set every fresh profile starts with.
func starterCapabilities() []registry.AgentCapability {
	return []registry.AgentCapability{
		{Name: "balance_check", Description: "Check SOL balances for any wallet address", Version: "1.0.0", Enabled: true},
		{Name: "transaction_history", Description: "Summarize recent transactions for an address", Version: "1.0.0", Enabled: true},
		{Name: "price_lookup", Description: "Report current token prices", Version: "1.0.0", Enabled: true},
		{Name: "network_status", Description: "Report cluster health and throughput", Version: "1.0.0", Enabled: true},
	}
}

// Initialize registers the local agent with the starter capability set and
// caches its id. Calling it again is idempotent and returns the cached id.
func (m *Manager) Initialize(id Identity) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.agentID != "" {
		return m.agentID, nil
	}

	caps := starterCapabilities()
	agentID, err := m.registry.Register(registry.AgentInfo{
		Name:         id.Name,
		Description:  id.Description,
		Version:      id.Version,
		PublicKey:    id.PublicKey,
		Capabilities: caps,
		Pricing:      m.pricing,
	})
	if err != nil {
		return "", fmt.Errorf("register local agent: %w", err)
	}

	m.agentID = agentID
	m.identity = id
	m.caps = caps

	m.bus.Publish(events.NewTypedEventForAgent(events.SourceProfile, events.AgentRegisteredPayload{
		AgentID: agentID,
		Name:    id.Name,
		Version: id.Version,
	}, agentID))

	return agentID, nil
}

// AgentID returns the local agent's id, or "" before Initialize.
func (m *Manager) AgentID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.agentID
}

// AddCapability appends a capability to the profile. A capability with an
// already-present name merges into the existing entry, keeping its
// original position, so names stay unique. Returns false before
// Initialize.
func (m *Manager) AddCapability(cap registry.AgentCapability) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.agentID == "" {
		return false
	}

	merged := false
	for i := range m.caps {
		if m.caps[i].Name == cap.Name {
			m.caps[i] = cap
			merged = true
			break
		}
	}
	if !merged {
		m.caps = append(m.caps, cap)
	}

	m.registry.SetCapabilities(m.agentID, m.caps)
	m.bus.Publish(events.NewTypedEventForAgent(events.SourceProfile, events.CapabilityChangedPayload{
		AgentID: m.agentID,
		Name:    cap.Name,
		Enabled: cap.Enabled,
		Action:  "added",
	}, m.agentID))
	return true
}

// ToggleCapability flips the enabled flag on the first capability with the
// given name. Returns false when the name is unknown or the profile is
// uninitialized.
func (m *Manager) ToggleCapability(name string, enabled bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.agentID == "" {
		return false
	}

	for i := range m.caps {
		if m.caps[i].Name == name {
			m.caps[i].Enabled = enabled
			m.registry.SetCapabilities(m.agentID, m.caps)
			m.bus.Publish(events.NewTypedEventForAgent(events.SourceProfile, events.CapabilityChangedPayload{
				AgentID: m.agentID,
				Name:    name,
				Enabled: enabled,
				Action:  "toggled",
			}, m.agentID))
			return true
		}
	}
	return false
}

// EnabledCapabilities returns the enabled capabilities in the order they
// were added. Empty before Initialize.
func (m *Manager) EnabledCapabilities() []registry.AgentCapability {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []registry.AgentCapability
	for _, c := range m.caps {
		if c.Enabled {
			out = append(out, c)
		}
	}
	return out
}

// SetPricing validates and stores the task pricing. Before Initialize the
// pricing is held back and applied at registration time.
func (m *Manager) SetPricing(p registry.Pricing) error {
	if p.PricePerTask < 0 {
		return fmt.Errorf("price per task must not be negative, got %v", p.PricePerTask)
	}
	if !p.Currency.Valid() {
		return fmt.Errorf("unsupported currency %q", p.Currency)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.pricing = &p
	if m.agentID != "" {
		m.registry.SetPricing(m.agentID, p)
	}
	return nil
}

// Summary projects the current profile state. It never fails: before
// Initialize the status sentinel is the whole story.
func (m *Manager) Summary() Summary {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.agentID == "" {
		return Summary{Status: StatusUninitialized}
	}

	enabled := 0
	for _, c := range m.caps {
		if c.Enabled {
			enabled++
		}
	}

	s := Summary{
		Status:       StatusActive,
		AgentID:      m.agentID,
		Name:         m.identity.Name,
		Version:      m.identity.Version,
		Capabilities: len(m.caps),
		Enabled:      enabled,
		Pricing:      m.pricing,
	}

	if p, ok := m.registry.Get(m.agentID); ok {
		s.Reputation = p.Reputation
		s.TasksCompleted = p.TasksCompleted
		s.SuccessRate = p.SuccessRate
	}
	return s
}
