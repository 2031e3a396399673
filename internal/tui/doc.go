// Package tui provides the interactive terminal chat for the concierge.
//
// The chat shows the transcript of one session, an input line and a status
// bar with the conversation stage, the responder that answered last and,
// while a deep-path turn runs, its progress. Replies produced by a fallback
// are labelled as such.
//
// Usage:
//
//	program, _ := tui.NewChatProgram(ctx, orch, tui.ChatConfig{
//	    SessionID: "default",
//	    Events:    emitter.Events(),
//	})
//	if _, err := program.Run(); err != nil {
//	    return err
//	}
//
// One turn runs at a time; Enter is ignored while a reply is pending.
package tui
