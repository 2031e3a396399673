package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/concierge/internal/events"
	"github.com/ShayCichocki/concierge/internal/orchestrator"
	"github.com/ShayCichocki/concierge/pkg/models"
)

// Turner processes one conversation turn.
type Turner interface {
	ProcessMessage(ctx context.Context, text string, tc orchestrator.TurnContext) models.Reply
}

// ReplyMsg carries the reply to a submitted message.
type ReplyMsg struct {
	Reply models.Reply
}

// EventMsg carries an orchestrator event.
type EventMsg struct {
	Event events.Event
}

// eventsClosedMsg is sent once the event channel is closed.
type eventsClosedMsg struct{}

// ChatApp is the bubbletea model of the interactive chat.
type ChatApp struct {
	ctx        context.Context
	turner     Turner
	sessionID  string
	userID     string
	events     <-chan events.Event
	header     *Header
	transcript *Transcript
	input      *InputField
	footer     *Footer
	spinner    spinner.Model
	busy       bool
	width      int
	height     int
	quitting   bool
}

// ChatConfig configures a ChatApp.
type ChatConfig struct {
	SessionID string
	UserID    string
	// Providers are shown in the header. Empty means fallback-only.
	Providers []string
	// Events is optional; deep-path progress is shown when set.
	Events <-chan events.Event
}

// NewChatApp creates a chat model bound to turner.
func NewChatApp(ctx context.Context, turner Turner, cfg ChatConfig) *ChatApp {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))

	return &ChatApp{
		ctx:        ctx,
		turner:     turner,
		sessionID:  cfg.SessionID,
		userID:     cfg.UserID,
		events:     cfg.Events,
		header:     NewHeader(cfg.SessionID, cfg.Providers),
		transcript: NewTranscript(),
		input:      NewInputField(),
		footer:     NewFooter(),
		spinner:    sp,
	}
}

// NewChatProgram creates a tea.Program running a ChatApp in the alternate screen.
func NewChatProgram(ctx context.Context, turner Turner, cfg ChatConfig) (*tea.Program, *ChatApp) {
	app := NewChatApp(ctx, turner, cfg)
	return tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx)), app
}

// Init implements tea.Model.
func (a *ChatApp) Init() tea.Cmd {
	return tea.Batch(a.input.Focus(), a.listen())
}

// Update implements tea.Model.
func (a *ChatApp) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			a.quitting = true
			return a, tea.Quit
		case "up", "down", "pgup", "pgdown", "end":
			a.transcript.Update(msg)
			return a, nil
		}
		if a.busy {
			// One turn at a time; keep typing but do not submit.
			if msg.Type == tea.KeyEnter {
				return a, nil
			}
		}
		var cmd tea.Cmd
		a.input, cmd = a.input.Update(msg)
		return a, cmd

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.updateSizes()
		return a, nil

	case MessageSubmittedMsg:
		a.transcript.Append(Entry{Kind: EntryUser, Text: msg.Text})
		a.busy = true
		a.footer.SetMessage("", false)
		return a, tea.Batch(a.spinner.Tick, a.process(msg.Text))

	case ReplyMsg:
		a.busy = false
		r := msg.Reply
		a.transcript.Append(Entry{
			Kind:     EntryAssistant,
			Label:    r.AgentID,
			Text:     r.Content,
			Degraded: r.Degraded(),
		})
		a.footer.SetTurn(r.AgentID, r.Metadata.Stage)
		a.footer.SetMessage(turnSummary(r), r.Degraded())
		return a, nil

	case EventMsg:
		a.applyEvent(msg.Event)
		return a, a.listen()

	case eventsClosedMsg:
		a.events = nil
		return a, nil

	case spinner.TickMsg:
		if !a.busy {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}
	return a, nil
}

// View implements tea.Model.
func (a *ChatApp) View() string {
	if a.quitting {
		return ""
	}
	status := a.footer.View()
	if a.busy {
		status = a.spinner.View() + " thinking  " + status
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		a.header.View(),
		a.transcript.View(),
		a.input.View(),
		status,
	)
}

// Transcript returns the conversation transcript.
func (a *ChatApp) Transcript() *Transcript {
	return a.transcript
}

// Busy reports whether a turn is in flight.
func (a *ChatApp) Busy() bool {
	return a.busy
}

// updateSizes lays out header, transcript, input (3 lines) and status (1 line).
func (a *ChatApp) updateSizes() {
	a.header.SetWidth(a.width)
	a.input.SetWidth(a.width)
	a.footer.SetWidth(a.width)
	a.transcript.SetSize(a.width, a.height-a.header.Height()-3-1)
}

func (a *ChatApp) process(text string) tea.Cmd {
	return func() tea.Msg {
		reply := a.turner.ProcessMessage(a.ctx, text, orchestrator.TurnContext{
			SessionID: a.sessionID,
			UserID:    a.userID,
		})
		return ReplyMsg{Reply: reply}
	}
}

// listen waits for the next orchestrator event.
func (a *ChatApp) listen() tea.Cmd {
	if a.events == nil {
		return nil
	}
	ch := a.events
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return eventsClosedMsg{}
		}
		return EventMsg{Event: ev}
	}
}

func (a *ChatApp) applyEvent(ev events.Event) {
	if ev.SessionID != a.sessionID {
		return
	}
	switch ev.Type {
	case events.TypeDeepProgress:
		a.footer.SetDeepProgress(&DeepProgress{Phase: ev.Phase, Completed: ev.Completed, Total: ev.Total})
	case events.TypeTurnCompleted:
		a.footer.SetDeepProgress(nil)
	}
}

// turnSummary is the status line text for a finished turn.
func turnSummary(r models.Reply) string {
	md := r.Metadata
	if md.Error != "" {
		return "degraded: " + md.Error
	}
	s := fmt.Sprintf("%dms", md.ProcessingTimeMs)
	if md.DeepAgent {
		s += fmt.Sprintf(" · %d/%d tasks", md.TasksCompleted, md.TotalTasks)
	}
	if len(md.ToolsUsed) > 0 {
		s += fmt.Sprintf(" · tools %v", md.ToolsUsed)
	}
	if md.IsRepeatedQuery {
		s += " · repeated"
	}
	return s
}
