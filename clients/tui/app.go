// Package tui is a terminal chat client for the agent gateway. It keeps
// a single scrolling transcript, a one-line input and a status bar fed
// by chain and task events.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	wsclient "github.com/gish1337/alm-agent/clients/ws"
	wsprotocol "github.com/gish1337/alm-agent/internal/gateway/ws"
)

const inputHeight = 3

// App is the root bubbletea model.
type App struct {
	client *wsclient.Client

	viewport viewport.Model
	input    textarea.Model
	spin     spinner.Model

	width    int
	height   int
	waiting  bool
	quitting bool

	transcript []string
	history    []wsprotocol.Turn

	chainLine string
	taskLine  string
	connErr   error
}

// NewApp creates the TUI model over a connected gateway client.
func NewApp(client *wsclient.Client) *App {
	input := textarea.New()
	input.Placeholder = "Ask about balances, prices, the network... (/help for commands)"
	input.SetHeight(1)
	input.ShowLineNumbers = false
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	return &App{
		client:   client,
		viewport: viewport.New(80, 20),
		input:    input,
		spin:     spin,
	}
}

// Init starts the frame listener and the spinner.
func (a *App) Init() tea.Cmd {
	return tea.Batch(listen(a.client), a.spin.Tick, textarea.Blink)
}

// listen reads the next frame off the WS connection.
func listen(client *wsclient.Client) tea.Cmd {
	return func() tea.Msg {
		frame, err := client.ReadFrame()
		if err != nil {
			return DisconnectedMsg{Err: err}
		}
		if msg := Project(frame); msg != nil {
			return msg
		}
		// Unmapped frame: keep reading.
		return listenAgain{}
	}
}

type listenAgain struct{}

// Update processes all incoming messages.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.viewport.Width = a.width
		a.viewport.Height = a.height - inputHeight - 1 // input + status bar
		if a.viewport.Height < 1 {
			a.viewport.Height = 1
		}
		a.input.SetWidth(a.width - 2)
		a.refreshViewport()
		return a, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			a.quitting = true
			return a, tea.Quit
		case "enter":
			return a.handleSubmit()
		case "pgup", "pgdown":
			var cmd tea.Cmd
			a.viewport, cmd = a.viewport.Update(msg)
			return a, cmd
		}

		var cmd tea.Cmd
		a.input, cmd = a.input.Update(msg)
		return a, cmd

	case ReplyMsg:
		a.waiting = false
		if msg.Err != "" {
			a.appendLine(errorStyle.Render("error: " + msg.Err))
		} else {
			a.appendAssistant(msg.Reply)
			a.history = append(a.history, wsprotocol.Turn{Role: "assistant", Content: msg.Reply})
		}
		return a, listen(a.client)

	case ChainStatusMsg:
		health := "healthy"
		if !msg.Healthy {
			health = "degraded"
		}
		a.chainLine = fmt.Sprintf("chain %s | slot %d | %.0f tps | SOL $%.2f",
			health, msg.Slot, msg.TPS, msg.SolPriceUSD)
		return a, listen(a.client)

	case TaskRecordedMsg:
		outcome := "ok"
		if !msg.Success {
			outcome = "failed"
		}
		a.taskLine = fmt.Sprintf("last task %s (%s) | rep %d | %.0f%% success",
			msg.Skill, outcome, msg.Reputation, msg.SuccessRate)
		return a, listen(a.client)

	case listenAgain:
		return a, listen(a.client)

	case DisconnectedMsg:
		a.connErr = msg.Err
		a.appendLine(errorStyle.Render("connection lost: " + msg.Err.Error()))
		return a, nil

	case sendErrorMsg:
		a.waiting = false
		a.appendLine(errorStyle.Render("send failed: " + msg.err.Error()))
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		return a, cmd
	}

	var cmd tea.Cmd
	a.viewport, cmd = a.viewport.Update(msg)
	return a, cmd
}

func (a *App) handleSubmit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(a.input.Value())
	if text == "" || a.waiting {
		return a, nil
	}

	if text == "/quit" {
		a.quitting = true
		return a, tea.Quit
	}
	if text == "/clear" {
		a.transcript = nil
		a.input.Reset()
		a.refreshViewport()
		return a, nil
	}

	a.input.Reset()
	a.appendLine(userStyle.Render("you: ") + text)
	a.waiting = true

	history := a.history
	a.history = append(a.history, wsprotocol.Turn{Role: "user", Content: text})

	client := a.client
	return a, func() tea.Msg {
		if _, err := client.SendMessage(text, history); err != nil {
			return sendErrorMsg{err: err}
		}
		return nil
	}
}

func (a *App) appendAssistant(reply string) {
	rendered := reply
	if r, err := newMarkdownRenderer(a.viewport.Width); err == nil {
		if out, err := r.Render(reply); err == nil {
			rendered = strings.TrimRight(out, "\n")
		}
	}
	a.appendLine(assistantStyle.Render("alm: ") + rendered)
}

func (a *App) appendLine(line string) {
	a.transcript = append(a.transcript, line, "")
	a.refreshViewport()
}

func (a *App) refreshViewport() {
	a.viewport.SetContent(strings.Join(a.transcript, "\n"))
	a.viewport.GotoBottom()
}

// View renders transcript, input and status bar.
func (a *App) View() string {
	if a.quitting {
		return "Goodbye!\n"
	}

	input := a.input.View()
	if a.waiting {
		input = a.spin.View() + mutedStyle.Render(" waiting for reply...")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		a.viewport.View(),
		input,
		a.statusBar(),
	)
}

func (a *App) statusBar() string {
	parts := []string{"alm"}
	if a.chainLine != "" {
		parts = append(parts, a.chainLine)
	}
	if a.taskLine != "" {
		parts = append(parts, a.taskLine)
	}
	if a.connErr != nil {
		parts = append(parts, "disconnected")
	}
	bar := statusBarStyle.Render(strings.Join(parts, " | "))
	if a.width > 0 {
		bar = lipgloss.PlaceHorizontal(a.width, lipgloss.Left, bar)
	}
	return bar
}
