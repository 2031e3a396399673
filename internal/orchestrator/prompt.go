package orchestrator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ShayCichocki/concierge/internal/llm"
	"github.com/ShayCichocki/concierge/internal/registry"
	"github.com/ShayCichocki/concierge/internal/tools"
	"github.com/ShayCichocki/concierge/pkg/models"
)

const toolInstructions = `You may call a tool by writing a marker on its own line:
[[tool:<id> {"param": value}]]
The marker is replaced with the tool result before the user sees your reply.
Available tools:`

const repeatHint = "The user has asked this before. Answer more briefly than last time and point to what was already covered."

// promptContext is everything the simple path tells a responder about the turn.
type promptContext struct {
	responder registry.Descriptor
	state     *models.ConversationState
	repeated  bool
	profile   map[string]string
	tools     []tools.Tool
}

// buildSystemPrompt frames a simple-path generation call.
func buildSystemPrompt(pc promptContext) string {
	var b strings.Builder
	if pc.responder.SystemPrompt != "" {
		b.WriteString(pc.responder.SystemPrompt)
	} else {
		fmt.Fprintf(&b, "You are %s, a startup funding assistant.", displayName(pc.responder))
	}

	st := pc.state
	if st == nil {
		st = models.NewConversationState("")
	}

	b.WriteString("\n\nConversation context:\n")
	fmt.Fprintf(&b, "- stage: %s\n", st.Stage)
	if st.Style == models.StyleDetailed {
		b.WriteString("- the user prefers detailed answers\n")
	} else {
		b.WriteString("- keep the answer brief\n")
	}
	if len(st.TopicsCovered) > 0 {
		fmt.Fprintf(&b, "- topics already covered: %s\n", strings.Join(st.TopicsCovered, ", "))
	}
	if len(pc.profile) > 0 {
		keys := make([]string, 0, len(pc.profile))
		for k := range pc.profile {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, k+"="+pc.profile[k])
		}
		fmt.Fprintf(&b, "- known about the user: %s\n", strings.Join(pairs, ", "))
	}
	if pc.repeated {
		b.WriteString("\n")
		b.WriteString(repeatHint)
		b.WriteString("\n")
	}

	if len(pc.tools) > 0 {
		b.WriteString("\n")
		b.WriteString(toolInstructions)
		b.WriteString("\n")
		for _, t := range pc.tools {
			fmt.Fprintf(&b, "- %s: %s", t.ID, t.Description)
			if len(t.Params) > 0 {
				names := make([]string, 0, len(t.Params))
				for name := range t.Params {
					names = append(names, name)
				}
				sort.Strings(names)
				fmt.Fprintf(&b, " (params: %s)", strings.Join(names, ", "))
			}
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// conversationMessages converts the history window into prompt messages.
func conversationMessages(system string, window []models.Message) []llm.Message {
	msgs := make([]llm.Message, 0, len(window)+1)
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: system})
	for _, m := range window {
		role := llm.RoleUser
		if m.Role == models.RoleAssistant {
			role = llm.RoleAssistant
		}
		msgs = append(msgs, llm.Message{Role: role, Content: m.Content})
	}
	return msgs
}

// responderTools returns the definitions of the tools a responder may call.
func responderTools(exec tools.Executor, allowed []string) []tools.Tool {
	if len(allowed) == 0 {
		return nil
	}
	catalog, ok := exec.(interface{ Definitions() []tools.Tool })
	if !ok {
		return nil
	}
	permitted := make(map[string]bool, len(allowed))
	for _, id := range allowed {
		permitted[id] = true
	}
	var out []tools.Tool
	for _, t := range catalog.Definitions() {
		if permitted[t.ID] {
			out = append(out, t)
		}
	}
	return out
}

func displayName(d registry.Descriptor) string {
	if d.Name != "" {
		return d.Name
	}
	return d.ID
}
