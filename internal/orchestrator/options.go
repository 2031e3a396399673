package orchestrator

import (
	"time"

	"github.com/ShayCichocki/concierge/internal/complexity"
	"github.com/ShayCichocki/concierge/internal/convstate"
	"github.com/ShayCichocki/concierge/internal/decompose"
	"github.com/ShayCichocki/concierge/internal/events"
	"github.com/ShayCichocki/concierge/internal/history"
	"github.com/ShayCichocki/concierge/internal/llm"
	"github.com/ShayCichocki/concierge/internal/registry"
	"github.com/ShayCichocki/concierge/internal/state"
	"github.com/ShayCichocki/concierge/internal/tools"
)

// RequiredConfig contains the minimal required configuration for an Orchestrator.
type RequiredConfig struct {
	// Registry is the frozen responder registry.
	Registry *registry.Registry
	// Generator produces replies. A nil generator makes every turn fall back.
	Generator llm.Generator
}

// Option configures an Orchestrator. Use With* functions to create Options.
type Option func(*orchestratorOptions)

// DeepPathGate reports whether the deep path is suspended.
type DeepPathGate interface {
	SimpleOnlyActive() bool
}

// orchestratorOptions holds all optional configuration.
type orchestratorOptions struct {
	logger           *DebugLogger
	defaultResponder string
	model            string
	params           llm.Params
	llmTimeout       time.Duration
	eventsTimeout    time.Duration
	idleThreshold    time.Duration
	now              func() time.Time

	history    *history.Manager
	sessions   state.SessionStore
	tracker    *convstate.Tracker
	analyzer   *complexity.Analyzer
	decomposer *decompose.Decomposer
	tools      tools.Executor
	emitter    *events.Emitter
	publisher  events.Publisher
	deepGate   DeepPathGate
}

// Defaults.
const (
	DefaultResponder     = "general"
	DefaultLLMTimeout    = 30 * time.Second
	DefaultEventsTimeout = 2 * time.Second
	DefaultIdleThreshold = 30 * time.Minute
)

// WithLogger sets the debug logger.
func WithLogger(l *DebugLogger) Option {
	return func(o *orchestratorOptions) { o.logger = l }
}

// WithDefaultResponder sets the responder used when no responder accepts a message.
func WithDefaultResponder(id string) Option {
	return func(o *orchestratorOptions) { o.defaultResponder = id }
}

// WithModel sets the model requested on every generation call.
func WithModel(model string) Option {
	return func(o *orchestratorOptions) { o.model = model }
}

// WithParams sets the generation parameters. The preferred provider is
// overridden per responder when the responder names one.
func WithParams(p llm.Params) Option {
	return func(o *orchestratorOptions) { o.params = p }
}

// WithLLMTimeout bounds every generation call.
func WithLLMTimeout(d time.Duration) Option {
	return func(o *orchestratorOptions) { o.llmTimeout = d }
}

// WithEventsTimeout bounds every publish call.
func WithEventsTimeout(d time.Duration) Option {
	return func(o *orchestratorOptions) { o.eventsTimeout = d }
}

// WithIdleThreshold sets how long a session may be idle before it stops
// counting as active in Stats.
func WithIdleThreshold(d time.Duration) Option {
	return func(o *orchestratorOptions) { o.idleThreshold = d }
}

// WithClock overrides time.Now (mainly for testing).
func WithClock(now func() time.Time) Option {
	return func(o *orchestratorOptions) { o.now = now }
}

// WithHistory sets the history manager. By default an in-memory one is used.
func WithHistory(h *history.Manager) Option {
	return func(o *orchestratorOptions) { o.history = h }
}

// WithSessionStore persists session records after every turn.
func WithSessionStore(s state.SessionStore) Option {
	return func(o *orchestratorOptions) { o.sessions = s }
}

// WithTracker sets a custom conversation state tracker.
func WithTracker(t *convstate.Tracker) Option {
	return func(o *orchestratorOptions) { o.tracker = t }
}

// WithAnalyzer sets a custom complexity analyzer.
func WithAnalyzer(a *complexity.Analyzer) Option {
	return func(o *orchestratorOptions) { o.analyzer = a }
}

// WithDecomposer sets a custom task decomposer.
func WithDecomposer(d *decompose.Decomposer) Option {
	return func(o *orchestratorOptions) { o.decomposer = d }
}

// WithTools sets the tool executor used to expand tool-call markers.
func WithTools(e tools.Executor) Option {
	return func(o *orchestratorOptions) { o.tools = e }
}

// WithEmitter sets the in-process event emitter.
func WithEmitter(e *events.Emitter) Option {
	return func(o *orchestratorOptions) { o.emitter = e }
}

// WithPublisher sets the external turn event publisher.
func WithPublisher(p events.Publisher) Option {
	return func(o *orchestratorOptions) { o.publisher = p }
}

// WithDeepPathGate lets an operator suspend the deep path at runtime.
func WithDeepPathGate(g DeepPathGate) Option {
	return func(o *orchestratorOptions) { o.deepGate = g }
}
