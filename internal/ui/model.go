package ui

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/reinhart/mcpdemo/internal/assistant"
	"github.com/reinhart/mcpdemo/internal/history"
	"github.com/reinhart/mcpdemo/internal/logger"
)

// --- Mocha Palette & Styles ---

var (
	mochaText    = lipgloss.Color("#cdd6f4")
	colorSubtext = lipgloss.Color("#9399b2")

	colorCream  = lipgloss.Color("#f5e0dc")
	colorLatte  = lipgloss.Color("#ef9f76") // User
	colorMatcha = lipgloss.Color("#a6e3a1") // Agent
	colorCoffee = lipgloss.Color("#fab387")
	colorMauve  = lipgloss.Color("#cba6f7")
	colorSky    = lipgloss.Color("#89dceb") // Tool traffic
	colorRed    = lipgloss.Color("#f38ba8")

	colorBorder = lipgloss.Color("#45475a")
	colorActive = lipgloss.Color("#f9e2af")

	styleBase = lipgloss.NewStyle().Foreground(mochaText)

	styleBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	styleFocusBorder = styleBorder.
				BorderForeground(colorActive)

	styleUserHeader = lipgloss.NewStyle().
			Foreground(colorLatte).
			Bold(true).
			MarginTop(1)

	styleAgentHeader = lipgloss.NewStyle().
				Foreground(colorMatcha).
				Bold(true).
				MarginTop(1)

	styleToolCall = lipgloss.NewStyle().
			Foreground(colorSky).
			Bold(true)

	styleToolResult = lipgloss.NewStyle().
			Foreground(colorMauve)

	styleArguments = lipgloss.NewStyle().
			Foreground(colorSubtext).
			PaddingLeft(2)

	styleError = lipgloss.NewStyle().
			Foreground(colorRed).
			Bold(true)

	styleStatus = lipgloss.NewStyle().
			Foreground(colorSubtext).
			Italic(true)

	styleScenario = lipgloss.NewStyle().
			Foreground(colorCoffee).
			Bold(true)
)

type State int

const (
	StateReady State = iota
	StateThinking
)

// Options tune a Model. Zero values are usable.
type Options struct {
	// RequestTimeout bounds one run; zero means no bound.
	RequestTimeout time.Duration
	// Header names the client in the chat view.
	Header string
}

type Model struct {
	conversation *history.Conversation
	opts         Options

	textarea textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	state    State
	scenario int

	blocks        []string
	statusHistory []string

	events <-chan assistant.Event
	cancel context.CancelFunc

	// Layout
	width  int
	height int
}

// eventMsg carries one orchestration event into the update loop.
type eventMsg struct {
	event assistant.Event
}

// runFinishedMsg arrives once the event stream of a run is exhausted.
type runFinishedMsg struct{}

type resetMsg struct {
	err error
}

func NewModel(conversation *history.Conversation, opts Options) Model {
	if opts.Header == "" {
		opts.Header = "MCP Demo"
	}

	vp := viewport.New(80, 20)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(colorMauve)

	m := Model{
		conversation: conversation,
		opts:         opts,
		textarea:     newInput(80),
		viewport:     vp,
		spinner:      s,
		state:        StateReady,
	}
	m.blocks = []string{
		styleAgentHeader.Render(opts.Header) + "\n" +
			styleBase.Render("Connected to the task tools over MCP. Pick a scenario with tab or just start typing."),
	}
	m.refresh()
	return m
}

func newInput(width int) textarea.Model {
	ta := textarea.New()
	ta.Placeholder = "Ask about users, calls or tasks..."
	ta.Focus()
	ta.SetHeight(3)
	ta.ShowLineNumbers = false
	ta.Prompt = ""
	ta.CharLimit = 1000

	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(colorSubtext)
	ta.FocusedStyle.Prompt = lipgloss.NewStyle().Foreground(colorCoffee)
	ta.FocusedStyle.Text = lipgloss.NewStyle().Foreground(colorCream)

	if width > 4 {
		ta.SetWidth(width - 4)
	}
	return ta
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}

// Scenario returns the currently selected scenario.
func (m Model) Scenario() Scenario {
	return Scenarios[m.scenario]
}

// submit starts a run in the background and returns the command that
// delivers its first event. Events are pulled one at a time from a channel
// fed by the conversation's event sequence.
func (m Model) submit(input string) (Model, tea.Cmd) {
	m.blocks = append(m.blocks, styleUserHeader.Render("You")+"\n"+styleBase.Render(m.wrap(input)))
	m.state = StateThinking
	m.statusHistory = []string{"Connecting to tools..."}

	// quit is cancelled when the UI stops listening. The timeout only bounds
	// the run, so its error event still reaches the chat view.
	quit, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	ctx, stop := quit, context.CancelFunc(func() {})
	if m.opts.RequestTimeout > 0 {
		ctx, stop = context.WithTimeout(quit, m.opts.RequestTimeout)
	}

	events := make(chan assistant.Event)
	m.events = events
	scenario := m.Scenario()
	conversation := m.conversation
	go func() {
		defer close(events)
		defer cancel()
		defer stop()
		for ev := range conversation.Send(ctx, input, scenario.Context) {
			select {
			case events <- ev:
			case <-quit.Done():
				return
			}
		}
	}()

	m.textarea = newInput(m.width)
	m.refresh()
	return m, waitForEvent(events)
}

func waitForEvent(events <-chan assistant.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return runFinishedMsg{}
		}
		return eventMsg{event: ev}
	}
}

func (m Model) reset() tea.Cmd {
	conversation := m.conversation
	return func() tea.Msg {
		return resetMsg{err: conversation.Reset(context.Background())}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		// Borders + Status + Input
		verticalMargins := 9
		viewportHeight := msg.Height - verticalMargins
		if viewportHeight < 5 {
			viewportHeight = 5
		}

		m.viewport.Width = msg.Width - 4
		m.viewport.Height = viewportHeight
		m.textarea.SetWidth(msg.Width - 4)
		m.refresh()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		case tea.KeyTab, tea.KeyShiftTab:
			if m.state == StateReady {
				step := 1
				if msg.Type == tea.KeyShiftTab {
					step = len(Scenarios) - 1
				}
				m.scenario = (m.scenario + step) % len(Scenarios)
				m.textarea.SetValue(m.Scenario().Prompt)
				return m, nil
			}
		case tea.KeyCtrlR:
			if m.state == StateReady {
				return m, m.reset()
			}
		case tea.KeyEnter:
			if !msg.Alt && m.state == StateReady {
				input := strings.TrimSpace(m.textarea.Value())
				if input == "" {
					break
				}
				var run tea.Cmd
				m, run = m.submit(input)
				return m, tea.Batch(run, m.spinner.Tick)
			}
		}

	case eventMsg:
		m = m.apply(msg.event)
		return m, waitForEvent(m.events)

	case runFinishedMsg:
		m.state = StateReady
		m.events = nil
		m.cancel = nil
		separator := lipgloss.NewStyle().Foreground(colorBorder).Render(strings.Repeat("─", max(m.width/2, 10)))
		m.blocks = append(m.blocks, separator)
		m.refresh()
		m.textarea.Focus()
		return m, nil

	case resetMsg:
		if msg.err != nil {
			logger.Error("Resetting conversation: %v", msg.err)
			m.blocks = append(m.blocks, styleError.Render(fmt.Sprintf("Reset failed: %v", msg.err)))
		} else {
			m.blocks = m.blocks[:1]
			m.blocks = append(m.blocks, styleStatus.Render("Conversation memory cleared."))
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if m.state == StateThinking {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	if m.state == StateReady {
		m.textarea, cmd = m.textarea.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// apply renders one event into the chat view or the status line.
func (m Model) apply(ev assistant.Event) Model {
	switch ev.Type {
	case assistant.EventInfo:
		m.pushStatus(ev.Message)
	case assistant.EventLLMStart:
		m.pushStatus(fmt.Sprintf("Thinking (round %d)", ev.Round))
	case assistant.EventLLMStreamChunk:
		m.blocks = append(m.blocks, styleStatus.Render(m.wrap(ev.Message)))
	case assistant.EventToolCallRequested:
		m.pushStatus("Calling " + ev.ToolName)
		m.blocks = append(m.blocks, renderToolCall(ev))
	case assistant.EventToolResult:
		m.blocks = append(m.blocks, styleToolResult.Render("← "+ev.ToolName)+"\n"+styleBase.Render(m.wrap(ev.Message)))
	case assistant.EventFinalAnswer:
		m.blocks = append(m.blocks, styleAgentHeader.Render(m.opts.Header)+"\n"+styleBase.Render(m.wrap(ev.Message)))
	case assistant.EventConversationSnapshot:
		m.pushStatus(fmt.Sprintf("Saved %d messages", len(ev.Transcript)))
	case assistant.EventError:
		m.blocks = append(m.blocks, styleError.Render(m.wrap("Error: "+ev.Message)))
	case assistant.EventDone:
		m.pushStatus("Done")
	}
	m.refresh()
	return m
}

func renderToolCall(ev assistant.Event) string {
	args := "{}"
	if len(ev.Arguments) > 0 {
		if b, err := json.MarshalIndent(ev.Arguments, "", "  "); err == nil {
			args = string(b)
		}
	}
	return styleToolCall.Render("→ "+ev.ToolName) + "\n" + styleArguments.Render(args)
}

func (m *Model) pushStatus(s string) {
	m.statusHistory = append(m.statusHistory, s)
	if len(m.statusHistory) > 3 {
		m.statusHistory = m.statusHistory[len(m.statusHistory)-3:]
	}
}

func (m *Model) refresh() {
	m.viewport.SetContent(strings.Join(m.blocks, "\n"))
	m.viewport.GotoBottom()
}

func (m Model) wrap(s string) string {
	if m.viewport.Width <= 0 {
		return s
	}
	return lipgloss.NewStyle().Width(m.viewport.Width).Render(s)
}

func (m Model) View() string {
	chatView := styleBorder.Width(m.width - 2).Height(m.viewport.Height + 2).Render(m.viewport.View())

	var statusStr string
	if m.state == StateThinking {
		fullStatus := strings.Join(m.statusHistory, "  ➜  ")
		statusStr = fmt.Sprintf(" %s %s", m.spinner.View(), styleStatus.Render(fullStatus))
	} else {
		statusStr = styleStatus.Render(" Ready. tab: scenario  ctrl+r: clear memory  esc: quit")
	}
	statusView := lipgloss.NewStyle().Width(m.width).PaddingLeft(1).Render(statusStr)

	scenarioView := lipgloss.NewStyle().PaddingLeft(1).Render(
		styleScenario.Render(m.Scenario().Title) + styleStatus.Render("  conversation "+shortID(m.conversation.ID)))

	prompt := lipgloss.NewStyle().Foreground(colorCoffee).Render("› ")
	inputContent := lipgloss.JoinHorizontal(lipgloss.Top, prompt, m.textarea.View())
	inputView := styleFocusBorder.Width(m.width - 2).Render(inputContent)

	return lipgloss.JoinVertical(lipgloss.Left,
		chatView,
		statusView,
		scenarioView,
		inputView,
	)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
