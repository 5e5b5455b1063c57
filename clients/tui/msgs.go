package tui

// ReplyMsg carries the engine's reply to a dispatched message.
type ReplyMsg struct {
	ID    string
	Reply string
	Err   string
}

// ChainStatusMsg carries a chain.status.refreshed event for the status bar.
type ChainStatusMsg struct {
	Healthy     bool
	TPS         float64
	Slot        uint64
	SolPriceUSD float64
}

// TaskRecordedMsg carries a task outcome for the status bar.
type TaskRecordedMsg struct {
	Skill       string
	Success     bool
	Reputation  int
	SuccessRate float64
}

// DisconnectedMsg signals a lost WS connection.
type DisconnectedMsg struct {
	Err error
}

// sendErrorMsg carries an error from an async WS send.
type sendErrorMsg struct {
	err error
}
