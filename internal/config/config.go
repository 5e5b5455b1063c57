package config

import "time"

// Config is the root configuration for the ALM agent node.
type Config struct {
	Agent      AgentConfig      `json:"agent"`
	Pricing    PricingConfig    `json:"pricing"`
	Reputation ReputationConfig `json:"reputation"`
	Dispatch   DispatchConfig   `json:"dispatch"`
	Chain      ChainConfig      `json:"chain"`
	Models     ModelsConfig     `json:"models"`
	Gateway    GatewayConfig    `json:"gateway"`
	Heartbeat  HeartbeatConfig  `json:"heartbeat"`
	Events     EventsConfig     `json:"events"`
}

// AgentConfig describes the local agent identity registered at startup.
type AgentConfig struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`
	PublicKey   string `json:"public_key,omitempty"`
}

// PricingConfig is the advertised per-task price. Empty currency means
// no pricing is published.
type PricingConfig struct {
	PricePerTask float64 `json:"price_per_task"`
	Currency     string  `json:"currency,omitempty"` // "SOL" or "USDC"
}

// ReputationConfig overrides the reputation policy weights. Zero values
// fall back to the registry defaults.
type ReputationConfig struct {
	Initial        int `json:"initial"`
	SuccessDelta   int `json:"success_delta"`
	FailurePenalty int `json:"failure_penalty"`
}

// DispatchConfig tunes the message dispatch engine.
type DispatchConfig struct {
	MaxMessageLength int    `json:"max_message_length"`
	HistoryWindow    int    `json:"history_window,omitempty"`
	SystemPrompt     string `json:"system_prompt,omitempty"`
}

// ChainConfig points at the Solana RPC endpoint and the price feed.
type ChainConfig struct {
	RPCURL      string `json:"rpc_url"`
	PriceURL    string `json:"price_url,omitempty"`
	RefreshCron string `json:"refresh_cron"` // standard 5-field cron
	Commitment  string `json:"commitment"`   // "processed", "confirmed", "finalized"
}

// GatewayConfig holds the gateway server settings.
type GatewayConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// HeartbeatConfig controls the liveness file writer.
type HeartbeatConfig struct {
	Enabled  *bool    `json:"enabled,omitempty"` // nil means enabled
	Interval Duration `json:"interval,omitempty"`
}

// On reports whether the heartbeat writer should run.
func (h HeartbeatConfig) On() bool {
	return h.Enabled == nil || *h.Enabled
}

// ModelsConfig holds model provider configuration.
type ModelsConfig struct {
	Default   string                    `json:"default"`
	Providers map[string]ProviderConfig `json:"providers"`
}

// ProviderConfig configures a single LLM provider.
type ProviderConfig struct {
	Driver    string         `json:"driver"` // "anthropic", "openai", "mistral", "ollama"
	Model     string         `json:"model"`
	BaseURL   string         `json:"base_url,omitempty"`
	Auth      AuthConfig     `json:"auth"`
	MaxTokens int            `json:"max_tokens,omitempty"`
	Timeout   Duration       `json:"timeout,omitempty"`
	Options   map[string]any `json:"options,omitempty"`
}

// AuthConfig configures API key resolution.
type AuthConfig struct {
	APIKey string `json:"api_key,omitempty"` // direct key, ${VAR} indirection, or ENC[age:...] blob
	Token  string `json:"token,omitempty"`   // OAuth/Bearer token
}

// EventsConfig holds event bus settings.
type EventsConfig struct {
	BufferSize int `json:"buffer_size"`
}

// Duration wraps time.Duration for JSON unmarshaling.
type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}
