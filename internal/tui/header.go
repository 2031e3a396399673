package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Header renders the title bar.
type Header struct {
	width     int
	sessionID string
	providers []string
}

// NewHeader creates a new Header.
func NewHeader(sessionID string, providers []string) *Header {
	return &Header{
		width:     80,
		sessionID: sessionID,
		providers: providers,
	}
}

// SetWidth sets the header width.
func (h *Header) SetWidth(width int) {
	h.width = width
}

// View renders the header.
func (h *Header) View() string {
	title := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#4ECDC4")).
		Bold(true).
		Render("concierge")

	info := "session " + h.sessionID
	if len(h.providers) == 0 {
		info += " · offline (fallback replies only)"
	} else {
		info += " · " + strings.Join(h.providers, ", ")
	}
	subtitle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("243")).
		Italic(true).
		Render(info)

	return lipgloss.NewStyle().
		Width(h.width).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(lipgloss.Color("236")).
		Render(title + "  " + subtitle)
}

// Height returns the header height in lines.
func (h *Header) Height() int {
	return 2 // title + bottom border
}
