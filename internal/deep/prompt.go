package deep

import (
	"fmt"
	"strings"

	"github.com/ShayCichocki/concierge/pkg/models"
)

// systemPrompt frames every deep-path call.
const systemPrompt = `You are the research desk of a startup funding concierge. A complex request is
being worked through one step at a time. Be factual and concise, and say so when
information is missing instead of guessing.`

// taskPrompt is the template for one step. Arguments: request, step type,
// step description, results so far.
const taskPrompt = `Original request:
%s

Current step (%s): %s

Results so far:
%s

Respond with the output of the current step only.`

// synthesisPrompt is the template for the final answer. Arguments: request,
// results, reasoning notes.
const synthesisPrompt = `Original request:
%s

Step results:
%s

Notes from the run:
%s

Write one well-structured answer to the original request using the step results.
If a step failed or was skipped, say which part of the request could not be covered.`

// fallbackHeader opens the locally assembled answer when synthesis fails.
const fallbackHeader = "I could not produce a full synthesis right now. Here is what the individual steps found:"

// fallbackEmptyHeader is used when no step produced a result.
const fallbackEmptyHeader = "I could not work through this request right now."

func buildTaskPrompt(query string, task *models.DeepTask, results []models.TaskResult) string {
	return fmt.Sprintf(taskPrompt, query, task.Type, task.Description, formatResults(results))
}

func buildSynthesisPrompt(query string, results []models.TaskResult, notes []string) string {
	return fmt.Sprintf(synthesisPrompt, query, formatResults(results), formatNotes(notes))
}

func formatResults(results []models.TaskResult) string {
	if len(results) == 0 {
		return "(none yet)"
	}
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%s] %s:\n%s", r.Type, r.Description, strings.TrimSpace(r.Content))
	}
	return b.String()
}

func formatNotes(notes []string) string {
	if len(notes) == 0 {
		return "(none)"
	}
	return "- " + strings.Join(notes, "\n- ")
}

// localAnswer concatenates task results and run notes. It is never empty.
func localAnswer(s *models.DeepAgentSession) string {
	var b strings.Builder
	if len(s.Results) == 0 {
		b.WriteString(fallbackEmptyHeader)
	} else {
		b.WriteString(fallbackHeader)
		for _, r := range s.Results {
			fmt.Fprintf(&b, "\n\n**%s:** %s", r.Description, strings.TrimSpace(r.Content))
		}
	}
	if len(s.ReasoningLog) > 0 {
		b.WriteString("\n\nNotes:\n")
		b.WriteString(formatNotes(s.ReasoningLog))
	}
	return b.String()
}
