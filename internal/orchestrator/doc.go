// Package orchestrator is the turn-processing entry point of concierge.
//
// For each incoming message it:
//   - appends the message to the session history
//   - scores the query's complexity
//   - either picks one responder and generates a reply (simple path), or
//     decomposes the query into a task plan, runs it and synthesizes an answer
//     (deep path)
//   - updates the conversation state and appends the reply
//
// Turns of one session run strictly in arrival order; different sessions run
// concurrently. ProcessMessage never returns an error: every failure ends in a
// usable reply whose metadata carries the error.
//
// Example usage:
//
//	reg, _ := registry.DefaultCatalog().Build()
//	o, err := orchestrator.New(orchestrator.RequiredConfig{
//		Registry:  reg,
//		Generator: router,
//	})
//	reply := o.ProcessMessage(ctx, "How long will my runway last?", orchestrator.TurnContext{SessionID: "s1"})
package orchestrator
