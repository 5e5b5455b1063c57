package events

import (
	"encoding/json"
	"time"
)

// EventPayload is the interface all typed payloads implement.
type EventPayload interface {
	EventType() EventType
}

// Route names which path a dispatched message took through the engine.
type Route string

const (
	RouteGuidance   Route = "guidance"
	RouteCommand    Route = "command"
	RouteCompletion Route = "completion"
)

// AgentRegisteredPayload announces a new registry entry.
type AgentRegisteredPayload struct {
	AgentID string `json:"agent_id"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

func (AgentRegisteredPayload) EventType() EventType { return EventAgentRegistered }

// TaskRecordedPayload carries one task outcome and the statistics it
// produced.
type TaskRecordedPayload struct {
	AgentID     string  `json:"agent_id"`
	Description string  `json:"description"`
	Skill       string  `json:"skill"`
	Success     bool    `json:"success"`
	Reputation  int     `json:"reputation"`
	SuccessRate float64 `json:"success_rate"`
}

func (TaskRecordedPayload) EventType() EventType { return EventTaskRecorded }

// CapabilityChangedPayload reports a capability added or toggled on the
// local profile.
type CapabilityChangedPayload struct {
	AgentID string `json:"agent_id"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
	Action  string `json:"action"` // "added" or "toggled"
}

func (CapabilityChangedPayload) EventType() EventType { return EventCapabilityChanged }

// MessageProcessedPayload summarizes one pass through the dispatch engine.
// Success reflects the command outcome on the command route and reachability
// of the model on the completion route.
type MessageProcessedPayload struct {
	Route    Route         `json:"route"`
	Skill    string        `json:"skill,omitempty"`
	Success  bool          `json:"success"`
	Length   int           `json:"length"`
	Duration time.Duration `json:"duration,omitempty"`
	Error    string        `json:"error,omitempty"`
}

func (MessageProcessedPayload) EventType() EventType { return EventMessageProcessed }

// ChainStatusPayload is the monitor's view of the cluster after a refresh.
type ChainStatusPayload struct {
	Healthy     bool    `json:"healthy"`
	TPS         float64 `json:"tps,omitempty"`
	Slot        uint64  `json:"slot,omitempty"`
	SolPriceUSD float64 `json:"sol_price_usd,omitempty"`
	Error       string  `json:"error,omitempty"`
}

func (ChainStatusPayload) EventType() EventType { return EventChainStatus }

// NewTypedEvent builds an Event from a typed payload.
func NewTypedEvent(source EventSource, payload EventPayload) Event {
	return Event{
		ID:        generateEventID(),
		Type:      payload.EventType(),
		Timestamp: time.Now(),
		Source:    source,
		Payload:   toMap(payload),
	}
}

// NewTypedEventForAgent builds an Event tied to a specific agent.
func NewTypedEventForAgent(source EventSource, payload EventPayload, agentID string) Event {
	e := NewTypedEvent(source, payload)
	e.AgentID = agentID
	return e
}

func toMap(v any) map[string]any {
	var result map[string]any
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil
	}
	return result
}

// ExtractPayload converts an event's payload map back into its typed form.
func ExtractPayload[T EventPayload](e Event) (T, bool) {
	var result T
	data, err := json.Marshal(e.Payload)
	if err != nil {
		return result, false
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return result, false
	}
	return result, true
}

func GetAgentRegisteredPayload(e Event) (AgentRegisteredPayload, bool) {
	return ExtractPayload[AgentRegisteredPayload](e)
}

func GetTaskRecordedPayload(e Event) (TaskRecordedPayload, bool) {
	return ExtractPayload[TaskRecordedPayload](e)
}

func GetCapabilityChangedPayload(e Event) (CapabilityChangedPayload, bool) {
	return ExtractPayload[CapabilityChangedPayload](e)
}

func GetMessageProcessedPayload(e Event) (MessageProcessedPayload, bool) {
	return ExtractPayload[MessageProcessedPayload](e)
}

func GetChainStatusPayload(e Event) (ChainStatusPayload, bool) {
	return ExtractPayload[ChainStatusPayload](e)
}
