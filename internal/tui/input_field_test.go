package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestNewInputField(t *testing.T) {
	field := NewInputField()

	if field == nil {
		t.Fatal("NewInputField returned nil")
	}
	if field.width != 80 {
		t.Errorf("Default width = %d, want 80", field.width)
	}
}

func TestInputField_SetWidth(t *testing.T) {
	field := NewInputField()

	field.SetWidth(120)

	if field.width != 120 {
		t.Errorf("Width after SetWidth(120) = %d, want 120", field.width)
	}
	if field.input.Width != 116 {
		t.Errorf("Input width = %d, want 116", field.input.Width)
	}
}

func TestInputField_Update_Enter_EmptyInput(t *testing.T) {
	field := NewInputField()
	field.input.SetValue("   ")

	_, cmd := field.Update(tea.KeyMsg{Type: tea.KeyEnter})

	if cmd != nil {
		if _, ok := cmd().(MessageSubmittedMsg); ok {
			t.Error("Should not submit blank input")
		}
	}
}

func TestInputField_Update_Enter_Submits(t *testing.T) {
	field := NewInputField()
	field.input.SetValue("  How do I raise a seed round?  ")

	updated, cmd := field.Update(tea.KeyMsg{Type: tea.KeyEnter})

	if cmd == nil {
		t.Fatal("Expected a command for non-empty input")
	}
	msg, ok := cmd().(MessageSubmittedMsg)
	if !ok {
		t.Fatalf("Expected MessageSubmittedMsg, got %T", cmd())
	}
	if msg.Text != "How do I raise a seed round?" {
		t.Errorf("Text = %q, want trimmed input", msg.Text)
	}
	if updated.Value() != "" {
		t.Errorf("Input not reset after submit: %q", updated.Value())
	}
}

func TestInputField_Update_Typing(t *testing.T) {
	field := NewInputField()

	field.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("hi")})

	if field.Value() != "hi" {
		t.Errorf("Value = %q, want %q", field.Value(), "hi")
	}
}
