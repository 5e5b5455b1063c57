package registry

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Currency is an accepted settlement currency for task pricing.
type Currency string

const (
	CurrencySOL  Currency = "SOL"
	CurrencyUSDC Currency = "USDC"
)

// Valid reports whether the currency is one of the accepted values.
func (c Currency) Valid() bool {
	return c == CurrencySOL || c == CurrencyUSDC
}

// Pricing describes what an agent charges per completed task.
type Pricing struct {
	PricePerTask float64  `json:"price_per_task"`
	Currency     Currency `json:"currency"`
}

// AgentCapability is a single advertised capability. Enabled is the only
// field that changes after registration, via the profile toggle.
type AgentCapability struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`
	Enabled     bool   `json:"enabled"`
}

// AgentProfile is the registry's view of one agent. The ID is opaque and
// never changes; capability order is the order they were added in.
type AgentProfile struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Description    string            `json:"description"`
	Version        string            `json:"version"`
	PublicKey      string            `json:"public_key,omitempty"`
	Capabilities   []AgentCapability `json:"capabilities"`
	Reputation     int               `json:"reputation"`
	TasksCompleted int               `json:"tasks_completed"`
	SuccessRate    float64           `json:"success_rate"`
	Pricing        *Pricing          `json:"pricing,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	LastActive     time.Time         `json:"last_active"`
}

// AgentInfo is the caller-supplied part of a registration.
type AgentInfo struct {
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	Version      string            `json:"version"`
	PublicKey    string            `json:"public_key,omitempty"`
	Capabilities []AgentCapability `json:"capabilities,omitempty"`
	Pricing      *Pricing          `json:"pricing,omitempty"`
}

// TaskRecord is one recorded task outcome.
type TaskRecord struct {
	Description string    `json:"description"`
	Skill       string    `json:"skill"`
	Success     bool      `json:"success"`
	At          time.Time `json:"at"`
}

// clone returns a deep copy safe to hand out to callers.
func (p AgentProfile) clone() AgentProfile {
	out := p
	if p.Capabilities != nil {
		out.Capabilities = make([]AgentCapability, len(p.Capabilities))
		copy(out.Capabilities, p.Capabilities)
	}
	if p.Pricing != nil {
		pricing := *p.Pricing
		out.Pricing = &pricing
	}
	return out
}

// GenerateAgentID creates a unique agent identifier.
func GenerateAgentID() string {
	u := uuid.New().String()
	return "agent_" + strings.ReplaceAll(u[:8], "-", "")
}
