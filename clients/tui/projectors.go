package tui

import (
	"encoding/json"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gish1337/alm-agent/internal/events"
	ws "github.com/gish1337/alm-agent/internal/gateway/ws"
)

// Project converts a gateway WS Frame into a typed tea.Msg.
// Returns nil for frames that don't map to a TUI message.
func Project(frame ws.Frame) tea.Msg {
	switch frame.Type {
	case ws.FrameTypeResponse:
		return projectResponse(frame)
	case ws.FrameTypeEvent:
		return projectEvent(frame)
	default:
		return nil
	}
}

func projectResponse(frame ws.Frame) tea.Msg {
	if frame.OK != nil && !*frame.OK {
		return ReplyMsg{ID: frame.ID, Err: frame.Error}
	}

	var payload ws.ReplyPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		return nil
	}
	return ReplyMsg{ID: frame.ID, Reply: payload.Reply}
}

func projectEvent(frame ws.Frame) tea.Msg {
	switch events.EventType(frame.Event) {
	case events.EventChainStatus:
		return projectChainStatus(frame)
	case events.EventTaskRecorded:
		return projectTaskRecorded(frame)
	default:
		return nil
	}
}

func projectChainStatus(frame ws.Frame) tea.Msg {
	var evt events.Event
	if err := json.Unmarshal(frame.Payload, &evt); err != nil {
		return nil
	}
	payload, ok := events.GetChainStatusPayload(evt)
	if !ok {
		return nil
	}
	return ChainStatusMsg{
		Healthy:     payload.Healthy,
		TPS:         payload.TPS,
		Slot:        payload.Slot,
		SolPriceUSD: payload.SolPriceUSD,
	}
}

func projectTaskRecorded(frame ws.Frame) tea.Msg {
	var evt events.Event
	if err := json.Unmarshal(frame.Payload, &evt); err != nil {
		return nil
	}
	payload, ok := events.GetTaskRecordedPayload(evt)
	if !ok {
		return nil
	}
	return TaskRecordedMsg{
		Skill:       payload.Skill,
		Success:     payload.Success,
		Reputation:  payload.Reputation,
		SuccessRate: payload.SuccessRate,
	}
}
