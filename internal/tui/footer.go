package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/concierge/pkg/models"
)

// DeepProgress is the latest deep-path progress of the running turn.
type DeepProgress struct {
	Phase     string
	Completed int
	Total     int
}

// Footer renders the status bar and keyboard hints.
type Footer struct {
	width     int
	responder string
	stage     models.Stage
	message   string
	isError   bool
	deep      *DeepProgress

	// Styles
	statusStyle    lipgloss.Style
	errorStyle     lipgloss.Style
	hintStyle      lipgloss.Style
	separatorStyle lipgloss.Style
}

// NewFooter creates a new Footer instance.
func NewFooter() *Footer {
	return &Footer{
		stage: models.StageGreeting,

		statusStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4")),

		errorStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true),

		hintStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),

		separatorStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("236")),
	}
}

// SetWidth sets the footer width.
func (f *Footer) SetWidth(width int) {
	f.width = width
}

// SetTurn records the outcome of the latest turn.
func (f *Footer) SetTurn(responder string, stage models.Stage) {
	f.responder = responder
	if stage.Valid() {
		f.stage = stage
	}
	f.deep = nil
}

// SetDeepProgress shows deep-path progress. Nil clears it.
func (f *Footer) SetDeepProgress(p *DeepProgress) {
	f.deep = p
}

// SetMessage sets the status message.
func (f *Footer) SetMessage(message string, isError bool) {
	f.message = message
	f.isError = isError
}

// View renders the footer.
func (f *Footer) View() string {
	sep := f.separatorStyle.Render(" │ ")

	left := f.statusStyle.Render(fmt.Sprintf("stage %s", f.stage))
	if f.responder != "" {
		left += sep + f.statusStyle.Render("responder "+f.responder)
	}
	if f.deep != nil {
		left += sep + f.statusStyle.Render(fmt.Sprintf("deep %s %d/%d", f.deep.Phase, f.deep.Completed, f.deep.Total))
	}
	if f.message != "" {
		if f.isError {
			left += sep + f.errorStyle.Render(f.message)
		} else {
			left += sep + f.hintStyle.Render(f.message)
		}
	}

	return left + sep + f.hintStyle.Render("↑/↓ scroll │ end follow │ ctrl+c quit")
}
