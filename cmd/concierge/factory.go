package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/ShayCichocki/concierge/internal/complexity"
	"github.com/ShayCichocki/concierge/internal/config"
	"github.com/ShayCichocki/concierge/internal/convstate"
	"github.com/ShayCichocki/concierge/internal/events"
	"github.com/ShayCichocki/concierge/internal/history"
	"github.com/ShayCichocki/concierge/internal/llm"
	"github.com/ShayCichocki/concierge/internal/orchestrator"
	"github.com/ShayCichocki/concierge/internal/registry"
	"github.com/ShayCichocki/concierge/internal/signals"
	"github.com/ShayCichocki/concierge/internal/state"
	"github.com/ShayCichocki/concierge/internal/tools"
)

// runtimeOptions selects the optional parts of a runtime.
type runtimeOptions struct {
	// emitterBuffer enables the in-process event emitter when > 0.
	emitterBuffer int
	// watchSignals starts the operator signal watcher.
	watchSignals bool
}

// runtime holds everything a command needs to process turns.
type runtime struct {
	cfg       *config.Config
	orch      *orchestrator.Orchestrator
	router    *llm.Router
	store     state.Store
	emitter   *events.Emitter
	publisher events.Publisher
	signals   *signals.Watcher
	logger    *orchestrator.DebugLogger
}

// loadConfig loads configuration from --config or the default locations.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromPath(configPath)
	}
	return config.Load()
}

// loadRegistry builds the responder registry from the configured catalog.
// It returns the catalog's default responder when it names one.
func loadRegistry(cfg *config.Config) (*registry.Registry, string, error) {
	catalog := registry.DefaultCatalog()
	if cfg.Catalog.Path != "" {
		c, err := registry.LoadCatalog(cfg.Catalog.Path)
		if err != nil {
			return nil, "", err
		}
		catalog = c
	}

	reg, err := catalog.Build()
	if err != nil {
		return nil, "", fmt.Errorf("build registry: %w", err)
	}

	defaultID := cfg.Conversation.DefaultResponder
	if catalog.DefaultResponder != "" {
		defaultID = catalog.DefaultResponder
	}
	return reg, defaultID, nil
}

// buildProviders creates a provider for every entry of llm.provider_order that
// has credentials. Providers that fail to start are skipped with a warning.
func buildProviders(ctx context.Context, cfg *config.Config) []llm.Provider {
	var providers []llm.Provider
	for _, name := range cfg.LLM.ProviderOrder {
		p, err := buildProvider(ctx, cfg, name)
		if err != nil {
			if !errors.Is(err, config.ErrNoAPIKey) {
				log.Printf("[factory] skipping provider %s: %v", name, err)
			}
			continue
		}
		providers = append(providers, p)
	}
	return providers
}

func buildProvider(ctx context.Context, cfg *config.Config, name string) (llm.Provider, error) {
	maxTokens := cfg.LLM.MaxTokens
	switch name {
	case llm.ProviderAnthropic:
		ac := cfg.LLM.Anthropic
		if ac.UseBedrock {
			return llm.NewAnthropicProvider(ctx, llm.AnthropicConfig{
				Model:         ac.Model,
				UseAWSBedrock: true,
				AWSRegion:     ac.AWSRegion,
				AWSProfile:    ac.AWSProfile,
				MaxTokens:     maxTokens,
			})
		}
		key, err := config.GetAPIKey(cfg, name)
		if err != nil {
			return nil, err
		}
		return llm.NewAnthropicProvider(ctx, llm.AnthropicConfig{Model: ac.Model, APIKey: key, MaxTokens: maxTokens})
	case llm.ProviderOpenAI:
		key, err := config.GetAPIKey(cfg, name)
		if err != nil {
			return nil, err
		}
		return llm.NewOpenAIProvider(llm.OpenAIConfig{
			Model:     cfg.LLM.OpenAI.Model,
			APIKey:    key,
			BaseURL:   cfg.LLM.OpenAI.BaseURL,
			MaxTokens: maxTokens,
		})
	case llm.ProviderGemini:
		key, err := config.GetAPIKey(cfg, name)
		if err != nil {
			return nil, err
		}
		return llm.NewGeminiProvider(ctx, llm.GeminiConfig{Model: cfg.LLM.Gemini.Model, APIKey: key, MaxTokens: maxTokens})
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}

// openStore opens the configured session store.
func openStore(ctx context.Context, cfg *config.Config) (state.Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return state.OpenStore(ctx, state.Config{
		Driver: cfg.Store.Driver,
		DSN:    cfg.ResolvedDSN(),
		Redis: state.RedisConfig{
			Addr:     cfg.Store.RedisAddr,
			Password: cfg.Store.RedisPassword,
			DB:       cfg.Store.RedisDB,
		},
	})
}

// openPublisher returns the AMQP publisher when configured. A broker that
// cannot be reached disables publishing rather than failing startup.
func openPublisher(cfg *config.Config) events.Publisher {
	if cfg.Events.AMQPURL == "" {
		return events.NopPublisher{}
	}
	p, err := events.NewAMQPPublisher(events.AMQPConfig{URL: cfg.Events.AMQPURL, Exchange: cfg.Events.Exchange})
	if err != nil {
		log.Printf("[factory] turn events disabled: %v", err)
		return events.NopPublisher{}
	}
	return p
}

// newRuntime wires a complete orchestrator from cfg.
func newRuntime(ctx context.Context, cfg *config.Config, ro runtimeOptions) (*runtime, error) {
	rt := &runtime{cfg: cfg}
	logger, err := orchestrator.NewDebugLogger(cfg.DebugLogPath())
	if err != nil {
		log.Printf("[factory] debug log disabled: %v", err)
		logger = orchestrator.NopLogger()
	}
	rt.logger = logger

	reg, defaultID, err := loadRegistry(cfg)
	if err != nil {
		rt.Close()
		return nil, err
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}
	rt.store = store

	tracker := convstate.NewTracker(convstate.DefaultVocabulary.Merge(cfg.Conversation.Vocabulary), cfg.Conversation.DetailThreshold)
	hist, err := history.NewManager(store,
		history.WithWindow(cfg.Conversation.HistoryWindow),
		history.WithCacheSize(cfg.Conversation.CacheSize),
		history.WithTopicExtractor(tracker.Vocabulary().ExtractTopics),
		history.WithStoreTimeout(cfg.Timeouts.Store),
		history.WithDebugLog(rt.logger.Log),
	)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("create history: %w", err)
	}

	exec := tools.NewToolExecutor(cfg.Timeouts.Tool)
	for _, t := range tools.Builtins() {
		if err := exec.Register(t); err != nil {
			rt.Close()
			return nil, err
		}
	}

	rt.publisher = openPublisher(cfg)

	opts := []orchestrator.Option{
		orchestrator.WithLogger(rt.logger),
		orchestrator.WithDefaultResponder(defaultID),
		orchestrator.WithParams(llm.Params{
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			TopP:        cfg.LLM.TopP,
		}),
		orchestrator.WithLLMTimeout(cfg.Timeouts.LLM),
		orchestrator.WithEventsTimeout(cfg.Timeouts.Events),
		orchestrator.WithIdleThreshold(cfg.Conversation.IdleThreshold),
		orchestrator.WithTracker(tracker),
		orchestrator.WithAnalyzer(complexity.New(cfg.Complexity)),
		orchestrator.WithHistory(hist),
		orchestrator.WithSessionStore(store),
		orchestrator.WithTools(exec),
		orchestrator.WithPublisher(rt.publisher),
	}

	if ro.emitterBuffer > 0 {
		rt.emitter = events.NewEmitter(ro.emitterBuffer)
		opts = append(opts, orchestrator.WithEmitter(rt.emitter))
	}

	if ro.watchSignals {
		w, err := signals.NewWatcher(cfg.DataDir, signals.WithDebugLog(rt.logger.Log))
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("watch signals: %w", err)
		}
		rt.signals = w
		opts = append(opts, orchestrator.WithDeepPathGate(w))
	}

	req := orchestrator.RequiredConfig{Registry: reg}
	if providers := buildProviders(ctx, cfg); len(providers) > 0 {
		rt.router = llm.NewRouter(providers...)
		rt.router.SetDebugLog(rt.logger.Log)
		req.Generator = rt.router
	}

	orch, err := orchestrator.New(req, opts...)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.orch = orch
	return rt, nil
}

// providerNames returns the active providers in fallback order.
func (rt *runtime) providerNames() []string {
	if rt.router == nil {
		return nil
	}
	return rt.router.Providers()
}

// Close releases every resource the runtime opened.
func (rt *runtime) Close() {
	if rt.signals != nil {
		rt.signals.Close()
	}
	if rt.emitter != nil {
		rt.emitter.Close()
	}
	if rt.publisher != nil {
		if err := rt.publisher.Close(); err != nil {
			log.Printf("[factory] close publisher: %v", err)
		}
	}
	if rt.store != nil {
		if err := rt.store.Close(); err != nil {
			log.Printf("[factory] close store: %v", err)
		}
	}
	if rt.logger != nil {
		rt.logger.Close()
	}
}
