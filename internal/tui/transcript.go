package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// EntryKind classifies a transcript entry.
type EntryKind int

const (
	EntryUser EntryKind = iota
	EntryAssistant
	EntryNotice
)

// Entry is one block of the transcript.
type Entry struct {
	Kind EntryKind
	// Label is shown before the text, e.g. the responder id.
	Label string
	Text  string
	// Degraded marks assistant replies produced by a fallback.
	Degraded bool
}

var (
	userLabelStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	assistantLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#96E6A1")).Bold(true)
	degradedLabelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	noticeStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("243")).Italic(true)
)

// Transcript displays a scrollable view of the conversation.
type Transcript struct {
	entries []Entry
	// scrollOffset is the current scroll position (0 = top).
	scrollOffset int
	width        int
	height       int
	// autoScroll keeps the newest line visible as entries arrive.
	autoScroll bool
}

// NewTranscript creates an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{
		width:      80,
		height:     20,
		autoScroll: true,
	}
}

// Update handles scroll keys.
func (t *Transcript) Update(msg tea.Msg) (*Transcript, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return t, nil
	}
	switch key.String() {
	case "up":
		t.ScrollUp()
		t.autoScroll = false
	case "down":
		t.ScrollDown()
	case "pgup":
		t.ScrollPageUp()
		t.autoScroll = false
	case "pgdown":
		t.ScrollPageDown()
	case "end":
		t.autoScroll = true
		t.scrollToBottom()
	}
	return t, nil
}

// Append adds an entry.
func (t *Transcript) Append(e Entry) {
	t.entries = append(t.entries, e)
	if t.autoScroll {
		t.scrollToBottom()
	}
}

// Len returns the number of entries.
func (t *Transcript) Len() int {
	return len(t.entries)
}

// Entries returns a copy of the entries.
func (t *Transcript) Entries() []Entry {
	return append([]Entry(nil), t.entries...)
}

// View renders the visible part of the transcript.
func (t *Transcript) View() string {
	lines := t.wrapLines()
	if len(lines) == 0 {
		return noticeStyle.Render("Say hello to get started. Enter sends, ctrl+c quits.")
	}

	total := len(lines)
	if t.scrollOffset > total-t.height {
		t.scrollOffset = max(0, total-t.height)
	}
	start := t.scrollOffset
	end := min(start+t.height, total)
	return strings.Join(lines[start:end], "\n")
}

// ScrollUp moves the view up by one line.
func (t *Transcript) ScrollUp() {
	if t.scrollOffset > 0 {
		t.scrollOffset--
	}
}

// ScrollDown moves the view down by one line.
func (t *Transcript) ScrollDown() {
	maxOffset := max(0, len(t.wrapLines())-t.height)
	if t.scrollOffset < maxOffset {
		t.scrollOffset++
	}
	if t.scrollOffset == maxOffset {
		t.autoScroll = true
	}
}

// ScrollPageUp moves the view up by one page.
func (t *Transcript) ScrollPageUp() {
	t.scrollOffset = max(0, t.scrollOffset-t.height)
}

// ScrollPageDown moves the view down by one page.
func (t *Transcript) ScrollPageDown() {
	maxOffset := max(0, len(t.wrapLines())-t.height)
	t.scrollOffset = min(t.scrollOffset+t.height, maxOffset)
	if t.scrollOffset == maxOffset {
		t.autoScroll = true
	}
}

// SetSize updates the view dimensions.
func (t *Transcript) SetSize(width, height int) {
	t.width = width
	t.height = max(1, height)
	if t.autoScroll {
		t.scrollToBottom()
	}
}

func (t *Transcript) scrollToBottom() {
	t.scrollOffset = max(0, len(t.wrapLines())-t.height)
}

// wrapLines renders every entry and wraps it to the view width.
// Labels get their own line so wrapping only ever splits plain text.
func (t *Transcript) wrapLines() []string {
	var out []string
	for i, e := range t.entries {
		if i > 0 {
			out = append(out, "")
		}
		if e.Kind == EntryNotice {
			for _, line := range wrap("· "+e.Text, t.width) {
				out = append(out, noticeStyle.Render(line))
			}
			continue
		}
		out = append(out, entryLabel(e))
		for _, line := range strings.Split(e.Text, "\n") {
			for _, w := range wrap(line, t.width-2) {
				out = append(out, "  "+w)
			}
		}
	}
	return out
}

func entryLabel(e Entry) string {
	if e.Kind == EntryUser {
		return userLabelStyle.Render("you")
	}
	if e.Degraded {
		return degradedLabelStyle.Render(e.Label + " (fallback)")
	}
	return assistantLabelStyle.Render(e.Label)
}

// wrap breaks line into chunks of at most width runes, preferring spaces.
func wrap(line string, width int) []string {
	if width <= 0 || len([]rune(line)) <= width {
		return []string{line}
	}

	var out []string
	runes := []rune(line)
	for len(runes) > width {
		breakPoint := width
		for i := width - 1; i > width/2; i-- {
			if runes[i] == ' ' {
				breakPoint = i + 1
				break
			}
		}
		out = append(out, string(runes[:breakPoint]))
		runes = runes[breakPoint:]
	}
	if len(runes) > 0 {
		out = append(out, string(runes))
	}
	return out
}
