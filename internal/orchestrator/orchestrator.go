package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/concierge/internal/complexity"
	"github.com/ShayCichocki/concierge/internal/convstate"
	"github.com/ShayCichocki/concierge/internal/decompose"
	"github.com/ShayCichocki/concierge/internal/deep"
	"github.com/ShayCichocki/concierge/internal/events"
	"github.com/ShayCichocki/concierge/internal/history"
	"github.com/ShayCichocki/concierge/internal/llm"
	"github.com/ShayCichocki/concierge/internal/registry"
	"github.com/ShayCichocki/concierge/internal/selector"
	"github.com/ShayCichocki/concierge/internal/tools"
	"github.com/ShayCichocki/concierge/pkg/models"
)

// DefaultSessionID is used for turns that arrive without a session id.
const DefaultSessionID = "default"

// ErrNoResponders is returned by New when the registry is empty.
var ErrNoResponders = errors.New("registry has no responders")

// TurnContext carries caller-supplied context for one turn.
type TurnContext struct {
	SessionID string
	UserID    string
	// Metadata is merged into the session's user profile.
	Metadata map[string]string
}

// Orchestrator processes conversation turns.
// It wires together: history -> complexity -> [selector -> responder] or
// [decompose -> deep runner] -> conversation state -> history.
type Orchestrator struct {
	reg      *registry.Registry
	gen      llm.Generator
	selector *selector.Selector
	opts     orchestratorOptions

	gate  *sessionGate
	table *sessionTable
}

// New creates an Orchestrator. The registry is frozen if it is not already.
func New(req RequiredConfig, opts ...Option) (*Orchestrator, error) {
	if req.Registry == nil || req.Registry.Len() == 0 {
		return nil, fmt.Errorf("create orchestrator: %w", ErrNoResponders)
	}
	req.Registry.Freeze()

	o := orchestratorOptions{
		defaultResponder: DefaultResponder,
		llmTimeout:       DefaultLLMTimeout,
		eventsTimeout:    DefaultEventsTimeout,
		idleThreshold:    DefaultIdleThreshold,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if o.logger != nil {
		setPackageLogger(o.logger)
	}
	if o.tracker == nil {
		o.tracker = convstate.NewTracker(convstate.DefaultVocabulary, convstate.DefaultDetailThreshold)
	}
	if o.history == nil {
		h, err := history.NewManager(history.NewMemoryStore(),
			history.WithTopicExtractor(o.tracker.Vocabulary().ExtractTopics),
			history.WithDebugLog(debugLog),
		)
		if err != nil {
			return nil, fmt.Errorf("create orchestrator: %w", err)
		}
		o.history = h
	}
	if o.analyzer == nil {
		o.analyzer = complexity.New(complexity.DefaultKeywords)
	}
	if o.decomposer == nil {
		o.decomposer = decompose.New(decompose.WithDebugLog(debugLog))
	}
	if o.tools == nil {
		o.tools = tools.NewToolExecutor(0)
	}
	if o.publisher == nil {
		o.publisher = events.NopPublisher{}
	}

	table := newSessionTable()
	var gen llm.Generator
	if req.Generator != nil {
		gen = llm.WithTimeout(&usageCounter{next: req.Generator, table: table}, o.llmTimeout)
	}

	return &Orchestrator{
		reg:      req.Registry,
		gen:      gen,
		selector: selector.New(req.Registry, o.defaultResponder),
		opts:     o,
		gate:     newSessionGate(),
		table:    table,
	}, nil
}

// ProcessMessage handles one turn and always returns a usable reply.
// Turns of the same session are processed in arrival order; a turn whose
// context is cancelled while waiting for its session returns a degraded reply
// and leaves the session untouched.
func (o *Orchestrator) ProcessMessage(ctx context.Context, text string, tc TurnContext) (reply models.Reply) {
	start := o.opts.now()
	sessionID := tc.SessionID
	if sessionID == "" {
		sessionID = DefaultSessionID
	}

	release, err := o.gate.acquire(ctx, sessionID)
	if err != nil {
		debugLog("[orchestrator] session %s: turn abandoned while queued: %v", sessionID, err)
		return o.abandoned(start, fmt.Errorf("wait for session: %w", err))
	}
	defer release()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("[orchestrator] session %s: turn panicked: %v", sessionID, r)
			debugLog("[orchestrator] session %s: turn panicked: %v", sessionID, r)
			reply = o.abandoned(start, fmt.Errorf("turn panicked: %v", r))
		}
	}()

	return o.process(ctx, sessionID, text, tc, start)
}

func (o *Orchestrator) process(ctx context.Context, sessionID, text string, tc TurnContext, start time.Time) models.Reply {
	o.table.touch(sessionID, tc.UserID, start)
	o.opts.emitter.Emit(events.Event{
		Type:      events.TypeTurnStarted,
		SessionID: sessionID,
		Message:   text,
		Timestamp: start,
	})

	userMsg := models.Message{
		ID:        uuid.New().String(),
		Role:      models.RoleUser,
		Content:   text,
		Timestamp: start,
	}
	if err := o.opts.history.Append(ctx, sessionID, userMsg); err != nil {
		log.Printf("[orchestrator] session %s: %v", sessionID, err)
	}
	o.opts.history.UpdateProfile(sessionID, tc.Metadata)

	snapshot := o.opts.tracker.Snapshot(sessionID)
	repeated := o.opts.tracker.RepeatCount(sessionID, text) > 0
	analysis := o.opts.analyzer.Analyze(text)
	sel := o.selector.Explain(text, snapshot)
	debugLog("[orchestrator] session %s: complexity=%.2f responder=%s fallback=%v", sessionID, analysis.Score, sel.ResponderID, sel.Fallback)

	reply := models.Reply{
		ID:      uuid.New().String(),
		Role:    models.RoleAssistant,
		AgentID: sel.ResponderID,
		Metadata: models.ResponseMetadata{
			IsRepeatedQuery: repeated,
			Complexity:      analysis.Score,
		},
	}

	if analysis.Deep() && !o.simpleOnly() {
		o.runDeep(ctx, sessionID, text, analysis, &reply)
	} else {
		if analysis.Deep() {
			debugLog("[orchestrator] session %s: deep path suspended, answering directly", sessionID)
		}
		o.runSimple(ctx, sessionID, text, snapshot, repeated, sel, &reply)
	}

	st := o.opts.tracker.Update(sessionID, convstate.Turn{
		Message: text,
		Reply:   reply.Content,
		AgentID: reply.AgentID,
	})
	reply.Metadata.Stage = st.Stage

	end := o.opts.now()
	reply.Timestamp = end
	reply.Metadata.ProcessingTimeMs = end.Sub(start).Milliseconds()

	if err := o.opts.history.Append(ctx, sessionID, reply.AsMessage()); err != nil {
		log.Printf("[orchestrator] session %s: %v", sessionID, err)
	}

	sess := o.table.record(sessionID, reply, end)
	o.persistSession(ctx, sess)
	o.announce(ctx, sess, reply)
	return reply
}

// runSimple answers with the selected responder.
func (o *Orchestrator) runSimple(ctx context.Context, sessionID, text string, st *models.ConversationState, repeated bool, sel selector.Selection, reply *models.Reply) {
	desc, _ := o.reg.Get(sel.ResponderID)
	confidence := sel.Confidence
	reply.Metadata.Confidence = &confidence

	allowed := desc.Tools
	if allowed == nil {
		allowed = []string{}
	}

	system := buildSystemPrompt(promptContext{
		responder: desc,
		state:     st,
		repeated:  repeated,
		profile:   o.opts.history.Summary(sessionID).Profile,
		tools:     responderTools(o.opts.tools, allowed),
	})
	window := o.opts.history.Window(ctx, sessionID)
	if len(window) == 0 {
		window = []models.Message{{Role: models.RoleUser, Content: text}}
	}

	content, provider, err := o.generate(ctx, llm.Request{
		Model:    o.opts.model,
		Messages: conversationMessages(system, window),
		Params:   o.paramsFor(desc),
	})
	if err != nil {
		debugLog("[orchestrator] session %s: responder %s generation failed: %v", sessionID, desc.ID, err)
		reply.Content = fallbackText(desc)
		reply.Metadata.Error = err.Error()
		return
	}

	expanded, calls := tools.Expand(ctx, o.opts.tools, content, allowed)
	for _, c := range calls {
		reply.Metadata.ToolsUsed = append(reply.Metadata.ToolsUsed, c.Marker.ID)
		if !c.Result.Success {
			debugLog("[orchestrator] session %s: tool %s failed: %s", sessionID, c.Marker.ID, c.Result.Error)
		}
	}
	if facts := tools.ProfileUpdates(calls); len(facts) > 0 {
		debugLog("[orchestrator] session %s: profile updated from tools: %v", sessionID, facts)
		o.opts.history.UpdateProfile(sessionID, facts)
	}
	reply.Content = expanded
	reply.Metadata.Provider = provider
}

// runDeep answers through decomposition, scheduling and synthesis.
func (o *Orchestrator) runDeep(ctx context.Context, sessionID, text string, analysis complexity.Analysis, reply *models.Reply) {
	tasks := o.opts.decomposer.Decompose(text, analysis)

	params := o.opts.params
	if desc, ok := o.reg.Get(reply.AgentID); ok && desc.Provider != "" {
		params.PreferredProvider = desc.Provider
	}
	runner := deep.New(o.gen,
		deep.WithModel(o.opts.model),
		deep.WithParams(params),
		deep.WithDebugLog(debugLog),
		deep.WithClock(o.opts.now),
		deep.WithProgress(func(p deep.Progress) {
			o.opts.emitter.Emit(events.Event{
				Type:        events.TypeDeepProgress,
				SessionID:   sessionID,
				ResponderID: reply.AgentID,
				Phase:       string(p.Phase),
				TaskID:      p.TaskID,
				TaskStatus:  string(p.Status),
				Completed:   p.Completed,
				Total:       p.Total,
				Timestamp:   o.opts.now(),
			})
		}),
	)
	s := runner.Run(ctx, text, tasks)

	completed := s.CompletedCount()
	total := len(s.Tasks)
	reply.Content = s.Answer
	reply.Metadata.DeepAgent = true
	reply.Metadata.TasksCompleted = completed
	reply.Metadata.TotalTasks = total
	if total > 0 {
		confidence := math.Round(float64(completed)/float64(total)*100) / 100
		reply.Metadata.Confidence = &confidence
	}
	if s.Status == models.DeepSessionFailed {
		reply.Metadata.Error = fmt.Sprintf("synthesis unavailable: %d of %d tasks completed", completed, total)
	}
}

// generate calls the language model and rejects empty output.
func (o *Orchestrator) generate(ctx context.Context, req llm.Request) (content, provider string, err error) {
	if o.gen == nil {
		return "", "", llm.ErrNoProvider
	}
	resp, err := o.gen.Generate(ctx, req)
	if err != nil {
		return "", "", fmt.Errorf("generate reply: %w", err)
	}
	if resp == nil || resp.Content == "" {
		return "", "", errors.New("generate reply: empty response")
	}
	return resp.Content, resp.Provider, nil
}

func (o *Orchestrator) paramsFor(desc registry.Descriptor) llm.Params {
	p := o.opts.params
	if desc.Provider != "" {
		p.PreferredProvider = desc.Provider
	}
	return p
}

func (o *Orchestrator) simpleOnly() bool {
	return o.opts.deepGate != nil && o.opts.deepGate.SimpleOnlyActive()
}

// abandoned builds the reply for a turn that could not run.
func (o *Orchestrator) abandoned(start time.Time, err error) models.Reply {
	id := o.opts.defaultResponder
	desc, ok := o.reg.Get(id)
	if !ok {
		desc = o.reg.All()[0]
	}
	end := o.opts.now()
	return models.Reply{
		ID:        uuid.New().String(),
		Role:      models.RoleAssistant,
		Content:   fallbackText(desc),
		AgentID:   desc.ID,
		Timestamp: end,
		Metadata: models.ResponseMetadata{
			ProcessingTimeMs: end.Sub(start).Milliseconds(),
			Error:            err.Error(),
		},
	}
}

func (o *Orchestrator) persistSession(ctx context.Context, sess models.Session) {
	if o.opts.sessions == nil {
		return
	}
	if err := o.opts.sessions.SaveSession(ctx, &sess); err != nil {
		log.Printf("[orchestrator] session %s: save session: %v", sess.SessionID, err)
	}
}

// announce notifies in-process subscribers and the external publisher.
func (o *Orchestrator) announce(ctx context.Context, sess models.Session, reply models.Reply) {
	o.opts.emitter.Emit(events.Event{
		Type:        events.TypeTurnCompleted,
		SessionID:   sess.SessionID,
		ResponderID: reply.AgentID,
		Message:     reply.Content,
		Completed:   reply.Metadata.TasksCompleted,
		Total:       reply.Metadata.TotalTasks,
		Degraded:    reply.Degraded(),
		Timestamp:   reply.Timestamp,
	})

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.opts.eventsTimeout)
	defer cancel()
	err := o.opts.publisher.Publish(pubCtx, events.TurnEvent{
		ID:               reply.ID,
		SessionID:        sess.SessionID,
		UserID:           sess.UserID,
		ResponderID:      reply.AgentID,
		Stage:            string(reply.Metadata.Stage),
		Deep:             reply.Metadata.DeepAgent,
		Complexity:       reply.Metadata.Complexity,
		TasksCompleted:   reply.Metadata.TasksCompleted,
		TotalTasks:       reply.Metadata.TotalTasks,
		ProcessingTimeMs: reply.Metadata.ProcessingTimeMs,
		Degraded:         reply.Degraded(),
		Error:            reply.Metadata.Error,
		Timestamp:        reply.Timestamp,
	})
	if err != nil {
		log.Printf("[orchestrator] publish turn event: %v", err)
	}
}

// Stats returns in-memory diagnostics since process start.
func (o *Orchestrator) Stats() Stats {
	return o.table.stats(o.opts.now(), o.opts.idleThreshold)
}

// Session returns a copy of a session record.
func (o *Orchestrator) Session(sessionID string) (models.Session, bool) {
	return o.table.get(sessionID)
}

// ConversationState returns a copy of the session's conversation state, or
// nil before the first completed turn.
func (o *Orchestrator) ConversationState(sessionID string) *models.ConversationState {
	return o.opts.tracker.Snapshot(sessionID)
}

// HistorySummary returns the derived summary of a session's history.
func (o *Orchestrator) HistorySummary(sessionID string) history.Summary {
	return o.opts.history.Summary(sessionID)
}

// Explain reports how a message would be routed without running a turn.
func (o *Orchestrator) Explain(sessionID, text string) (selector.Selection, complexity.Analysis) {
	return o.selector.Explain(text, o.opts.tracker.Snapshot(sessionID)), o.opts.analyzer.Analyze(text)
}

// Registry returns the responder registry.
func (o *Orchestrator) Registry() *registry.Registry {
	return o.reg
}

func fallbackText(d registry.Descriptor) string {
	if d.Fallback != "" {
		return d.Fallback
	}
	return fmt.Sprintf("%s is unavailable right now. Please try again shortly.", displayName(d))
}
