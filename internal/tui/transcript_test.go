package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestTranscript_EmptyView(t *testing.T) {
	tr := NewTranscript()

	if !strings.Contains(tr.View(), "Say hello") {
		t.Errorf("Empty transcript should show a hint, got %q", tr.View())
	}
}

func TestTranscript_AppendAndView(t *testing.T) {
	tr := NewTranscript()
	tr.Append(Entry{Kind: EntryUser, Text: "Hello"})
	tr.Append(Entry{Kind: EntryAssistant, Label: "general", Text: "Hi there"})

	if tr.Len() != 2 {
		t.Fatalf("Len = %d, want 2", tr.Len())
	}
	view := tr.View()
	for _, want := range []string{"you", "Hello", "general", "Hi there"} {
		if !strings.Contains(view, want) {
			t.Errorf("View missing %q:\n%s", want, view)
		}
	}
}

func TestTranscript_DegradedLabel(t *testing.T) {
	tr := NewTranscript()
	tr.Append(Entry{Kind: EntryAssistant, Label: "funding", Text: "...", Degraded: true})

	if !strings.Contains(tr.View(), "funding (fallback)") {
		t.Errorf("Degraded entry should be labelled, got %q", tr.View())
	}
}

func TestTranscript_AutoScrollKeepsNewestVisible(t *testing.T) {
	tr := NewTranscript()
	tr.SetSize(40, 3)
	for i := 0; i < 10; i++ {
		tr.Append(Entry{Kind: EntryNotice, Text: strings.Repeat("x", i+1)})
	}

	if !strings.Contains(tr.View(), "xxxxxxxxxx") {
		t.Errorf("Newest entry not visible:\n%s", tr.View())
	}
}

func TestTranscript_ScrollUpDisablesAutoScroll(t *testing.T) {
	tr := NewTranscript()
	tr.SetSize(40, 2)
	for i := 0; i < 5; i++ {
		tr.Append(Entry{Kind: EntryNotice, Text: "line"})
	}
	bottom := tr.scrollOffset

	tr.Update(tea.KeyMsg{Type: tea.KeyUp})
	if tr.scrollOffset != bottom-1 {
		t.Errorf("scrollOffset = %d, want %d", tr.scrollOffset, bottom-1)
	}
	if tr.autoScroll {
		t.Error("autoScroll should be off after scrolling up")
	}

	tr.Update(tea.KeyMsg{Type: tea.KeyEnd})
	if tr.scrollOffset != bottom || !tr.autoScroll {
		t.Errorf("End should return to bottom, offset=%d autoScroll=%v", tr.scrollOffset, tr.autoScroll)
	}
}

func TestWrap(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		width int
		want  []string
	}{
		{"fits", "short", 10, []string{"short"}},
		{"zero width", "anything", 0, []string{"anything"}},
		{"break at space", "hello world again", 12, []string{"hello world ", "again"}},
		{"hard break", "abcdefghij", 4, []string{"abcd", "efgh", "ij"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := wrap(tt.line, tt.width)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("wrap(%q, %d) = %q, want %q", tt.line, tt.width, got, tt.want)
			}
		})
	}
}
