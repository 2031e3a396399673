package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ShayCichocki/concierge/internal/events"
	"github.com/ShayCichocki/concierge/internal/orchestrator"
	"github.com/ShayCichocki/concierge/pkg/models"
)

type stubTurner struct {
	calls []orchestrator.TurnContext
	reply models.Reply
}

func (s *stubTurner) ProcessMessage(_ context.Context, _ string, tc orchestrator.TurnContext) models.Reply {
	s.calls = append(s.calls, tc)
	return s.reply
}

func newTestChat(turner Turner, ch <-chan events.Event) *ChatApp {
	return NewChatApp(context.Background(), turner, ChatConfig{
		SessionID: "s1",
		UserID:    "u1",
		Providers: []string{"anthropic"},
		Events:    ch,
	})
}

func TestChatApp_SubmitRunsTurn(t *testing.T) {
	turner := &stubTurner{reply: models.Reply{
		Role:     models.RoleAssistant,
		Content:  "Let's talk runway.",
		AgentID:  "funding",
		Metadata: models.ResponseMetadata{Stage: models.StageSpecialized},
	}}
	app := newTestChat(turner, nil)

	_, cmd := app.Update(MessageSubmittedMsg{Text: "How much runway do I need?"})
	if !app.Busy() {
		t.Error("App should be busy after submit")
	}
	if app.Transcript().Len() != 1 {
		t.Fatalf("Transcript len = %d, want 1", app.Transcript().Len())
	}
	if cmd == nil {
		t.Fatal("Expected a command to run the turn")
	}

	reply := app.process("How much runway do I need?")()
	if len(turner.calls) != 1 || turner.calls[0].SessionID != "s1" || turner.calls[0].UserID != "u1" {
		t.Errorf("Turn context not forwarded: %+v", turner.calls)
	}

	app.Update(reply)
	if app.Busy() {
		t.Error("App should not be busy after reply")
	}
	entries := app.Transcript().Entries()
	if len(entries) != 2 {
		t.Fatalf("Transcript len = %d, want 2", len(entries))
	}
	if entries[1].Label != "funding" || entries[1].Kind != EntryAssistant {
		t.Errorf("Unexpected reply entry: %+v", entries[1])
	}
	if app.footer.stage != models.StageSpecialized || app.footer.responder != "funding" {
		t.Errorf("Footer not updated: stage=%s responder=%s", app.footer.stage, app.footer.responder)
	}
}

func TestChatApp_DegradedReply(t *testing.T) {
	app := newTestChat(&stubTurner{}, nil)

	app.Update(ReplyMsg{Reply: models.Reply{
		Content:  "fallback",
		AgentID:  "general",
		Metadata: models.ResponseMetadata{Error: "provider unreachable"},
	}})

	entries := app.Transcript().Entries()
	if len(entries) != 1 || !entries[0].Degraded {
		t.Fatalf("Expected one degraded entry, got %+v", entries)
	}
	if !app.footer.isError || !strings.Contains(app.footer.message, "provider unreachable") {
		t.Errorf("Footer should show the error, got %q", app.footer.message)
	}
}

func TestChatApp_EnterIgnoredWhileBusy(t *testing.T) {
	app := newTestChat(&stubTurner{}, nil)
	app.busy = true
	app.input.input.SetValue("second question")

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})

	if cmd != nil {
		t.Error("Enter should be ignored while a turn is pending")
	}
	if app.input.Value() != "second question" {
		t.Errorf("Input should be kept, got %q", app.input.Value())
	}
}

func TestChatApp_DeepProgressEvents(t *testing.T) {
	ch := make(chan events.Event, 2)
	app := newTestChat(&stubTurner{}, ch)

	ch <- events.Event{Type: events.TypeDeepProgress, SessionID: "s1", Phase: "executing", Completed: 1, Total: 3}
	msg := app.listen()()
	if _, cmd := app.Update(msg); cmd == nil {
		t.Error("Listener should be re-armed after an event")
	}
	if app.footer.deep == nil || app.footer.deep.Completed != 1 || app.footer.deep.Total != 3 {
		t.Fatalf("Deep progress not applied: %+v", app.footer.deep)
	}

	// Events for other sessions are ignored.
	app.Update(EventMsg{Event: events.Event{Type: events.TypeTurnCompleted, SessionID: "other"}})
	if app.footer.deep == nil {
		t.Error("Event for another session should not clear progress")
	}

	app.Update(EventMsg{Event: events.Event{Type: events.TypeTurnCompleted, SessionID: "s1"}})
	if app.footer.deep != nil {
		t.Error("Turn completion should clear deep progress")
	}

	close(ch)
	if _, ok := app.listen()().(eventsClosedMsg); !ok {
		t.Error("Closed channel should yield eventsClosedMsg")
	}
}

func TestChatApp_WindowResize(t *testing.T) {
	app := newTestChat(&stubTurner{}, nil)

	app.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	if app.transcript.width != 100 {
		t.Errorf("Transcript width = %d, want 100", app.transcript.width)
	}
	if want := 30 - app.header.Height() - 4; app.transcript.height != want {
		t.Errorf("Transcript height = %d, want %d", app.transcript.height, want)
	}
}

func TestChatApp_Quit(t *testing.T) {
	app := newTestChat(&stubTurner{}, nil)

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlC})

	if cmd == nil {
		t.Fatal("Expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("ctrl+c should quit")
	}
	if app.View() != "" {
		t.Error("View should be empty after quitting")
	}
}

func TestTurnSummary(t *testing.T) {
	r := models.Reply{Metadata: models.ResponseMetadata{
		ProcessingTimeMs: 42,
		DeepAgent:        true,
		TasksCompleted:   2,
		TotalTasks:       3,
		IsRepeatedQuery:  true,
	}}

	got := turnSummary(r)
	for _, want := range []string{"42ms", "2/3 tasks", "repeated"} {
		if !strings.Contains(got, want) {
			t.Errorf("turnSummary() = %q, missing %q", got, want)
		}
	}
}
