// Package config handles configuration loading and management for concierge.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/ShayCichocki/concierge/internal/complexity"
	"github.com/ShayCichocki/concierge/internal/convstate"
)

// Config holds all configuration for concierge.
type Config struct {
	LLM          LLMConfig          `mapstructure:"llm"`
	Timeouts     TimeoutsConfig     `mapstructure:"timeouts"`
	Conversation ConversationConfig `mapstructure:"conversation"`
	Catalog      CatalogConfig      `mapstructure:"catalog"`
	Store        StoreConfig        `mapstructure:"store"`
	Events       EventsConfig       `mapstructure:"events"`
	Server       ServerConfig       `mapstructure:"server"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	// Complexity overrides keyword tables of the complexity analyzer.
	// Empty tables keep the built-in ones.
	Complexity complexity.Keywords `mapstructure:"complexity"`
	// DataDir holds the SQLite database, debug log and signal files.
	DataDir string `mapstructure:"data_dir"`
}

// LLMConfig holds language model settings.
type LLMConfig struct {
	// DefaultProvider is tried first when a responder names no provider.
	DefaultProvider string `mapstructure:"default_provider"`
	// ProviderOrder is the fallthrough order. Providers without credentials are skipped.
	ProviderOrder []string        `mapstructure:"provider_order"`
	Temperature   float64         `mapstructure:"temperature"`
	MaxTokens     int             `mapstructure:"max_tokens"`
	TopP          float64         `mapstructure:"top_p"`
	Anthropic     AnthropicConfig `mapstructure:"anthropic"`
	OpenAI        OpenAIConfig    `mapstructure:"openai"`
	Gemini        GeminiConfig    `mapstructure:"gemini"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey     string `mapstructure:"api_key"`
	Model      string `mapstructure:"model"`
	UseBedrock bool   `mapstructure:"bedrock"`
	AWSRegion  string `mapstructure:"aws_region"`
	AWSProfile string `mapstructure:"aws_profile"`
}

// OpenAIConfig holds OpenAI API settings.
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// GeminiConfig holds Gemini API settings.
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// TimeoutsConfig bounds every call to an external collaborator.
type TimeoutsConfig struct {
	LLM    time.Duration `mapstructure:"llm"`
	Tool   time.Duration `mapstructure:"tool"`
	Store  time.Duration `mapstructure:"store"`
	Events time.Duration `mapstructure:"events"`
}

// ConversationConfig holds per-session behavior settings.
type ConversationConfig struct {
	DefaultResponder string        `mapstructure:"default_responder"`
	DetailThreshold  int           `mapstructure:"detail_threshold"`
	HistoryWindow    int           `mapstructure:"history_window"`
	CacheSize        int           `mapstructure:"cache_size"`
	IdleThreshold    time.Duration `mapstructure:"idle_threshold"`
	// Vocabulary overrides the stage and topic keyword tables.
	// Empty tables keep the built-in ones.
	Vocabulary convstate.Vocabulary `mapstructure:"vocabulary"`
}

// CatalogConfig points at the responder catalog.
type CatalogConfig struct {
	// Path is a YAML catalog file. Empty uses the built-in catalog.
	Path string `mapstructure:"path"`
}

// StoreConfig selects the session store backend.
type StoreConfig struct {
	// Driver is one of memory, sqlite, sqlite3, mysql, redis.
	Driver        string `mapstructure:"driver"`
	DSN           string `mapstructure:"dsn"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
}

// EventsConfig holds turn event publishing settings.
type EventsConfig struct {
	// AMQPURL enables publishing when set.
	AMQPURL  string `mapstructure:"amqp_url"`
	Exchange string `mapstructure:"exchange"`
}

// ServerConfig holds HTTP transport settings.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig holds debug log settings.
type LoggingConfig struct {
	Debug bool `mapstructure:"debug"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY, OPENAI_API_KEY, GEMINI_API_KEY, CONCIERGE_*)
// 2. Project config (.concierge.yaml in current directory or parent)
// 3. User config (~/.config/concierge/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			// Merge project config (takes precedence)
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	bindEnv(v)

	return unmarshal(v)
}

// LoadFromPath loads configuration from a specific path.
// Environment variables still override the file.
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	bindEnv(v)

	return unmarshal(v)
}

func bindEnv(v *viper.Viper) {
	v.BindEnv("llm.anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("llm.openai.api_key", "OPENAI_API_KEY")
	v.BindEnv("llm.gemini.api_key", "GEMINI_API_KEY")
	v.BindEnv("store.driver", "CONCIERGE_STORE_DRIVER")
	v.BindEnv("store.dsn", "CONCIERGE_STORE_DSN")
	v.BindEnv("store.redis_addr", "CONCIERGE_REDIS_ADDR")
	v.BindEnv("events.amqp_url", "CONCIERGE_AMQP_URL")
	v.BindEnv("server.addr", "CONCIERGE_ADDR")
	v.BindEnv("data_dir", "CONCIERGE_DATA_DIR")
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand ${VAR} references
	cfg.LLM.Anthropic.APIKey = expandEnv(cfg.LLM.Anthropic.APIKey)
	cfg.LLM.OpenAI.APIKey = expandEnv(cfg.LLM.OpenAI.APIKey)
	cfg.LLM.Gemini.APIKey = expandEnv(cfg.LLM.Gemini.APIKey)
	cfg.Store.DSN = expandEnv(cfg.Store.DSN)
	cfg.Store.RedisPassword = expandEnv(cfg.Store.RedisPassword)
	cfg.Events.AMQPURL = expandEnv(cfg.Events.AMQPURL)
	cfg.DataDir = expandEnv(cfg.DataDir)

	return cfg, nil
}

// Save writes the configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return SaveToPath(cfg, filepath.Join(userConfigDir, "config.yaml"))
}

// SaveToPath writes the configuration to path as YAML.
func SaveToPath(cfg *Config, path string) error {
	v := viper.New()
	v.SetConfigFile(path)

	for key, value := range settings(cfg) {
		v.Set(key, value)
	}

	if err := v.WriteConfig(); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// settings flattens cfg into viper keys. Durations are written as strings.
// Keyword tables are only written when set.
func settings(cfg *Config) map[string]any {
	out := map[string]any{
		"llm.default_provider":           cfg.LLM.DefaultProvider,
		"llm.provider_order":             cfg.LLM.ProviderOrder,
		"llm.temperature":                cfg.LLM.Temperature,
		"llm.max_tokens":                 cfg.LLM.MaxTokens,
		"llm.top_p":                      cfg.LLM.TopP,
		"llm.anthropic.api_key":          cfg.LLM.Anthropic.APIKey,
		"llm.anthropic.model":            cfg.LLM.Anthropic.Model,
		"llm.anthropic.bedrock":          cfg.LLM.Anthropic.UseBedrock,
		"llm.anthropic.aws_region":       cfg.LLM.Anthropic.AWSRegion,
		"llm.anthropic.aws_profile":      cfg.LLM.Anthropic.AWSProfile,
		"llm.openai.api_key":             cfg.LLM.OpenAI.APIKey,
		"llm.openai.model":               cfg.LLM.OpenAI.Model,
		"llm.openai.base_url":            cfg.LLM.OpenAI.BaseURL,
		"llm.gemini.api_key":             cfg.LLM.Gemini.APIKey,
		"llm.gemini.model":               cfg.LLM.Gemini.Model,
		"timeouts.llm":                   cfg.Timeouts.LLM.String(),
		"timeouts.tool":                  cfg.Timeouts.Tool.String(),
		"timeouts.store":                 cfg.Timeouts.Store.String(),
		"timeouts.events":                cfg.Timeouts.Events.String(),
		"conversation.default_responder": cfg.Conversation.DefaultResponder,
		"conversation.detail_threshold":  cfg.Conversation.DetailThreshold,
		"conversation.history_window":    cfg.Conversation.HistoryWindow,
		"conversation.cache_size":        cfg.Conversation.CacheSize,
		"conversation.idle_threshold":    cfg.Conversation.IdleThreshold.String(),
		"catalog.path":                   cfg.Catalog.Path,
		"store.driver":                   cfg.Store.Driver,
		"store.dsn":                      cfg.Store.DSN,
		"store.redis_addr":               cfg.Store.RedisAddr,
		"store.redis_password":           cfg.Store.RedisPassword,
		"store.redis_db":                 cfg.Store.RedisDB,
		"events.amqp_url":                cfg.Events.AMQPURL,
		"events.exchange":                cfg.Events.Exchange,
		"server.addr":                    cfg.Server.Addr,
		"logging.debug":                  cfg.Logging.Debug,
		"data_dir":                       cfg.DataDir,
	}

	vocab := cfg.Conversation.Vocabulary
	if len(vocab.Topics) > 0 {
		topics := make([]map[string]any, 0, len(vocab.Topics))
		for _, t := range vocab.Topics {
			topics = append(topics, map[string]any{"name": t.Name, "keywords": t.Keywords})
		}
		out["conversation.vocabulary.topics"] = topics
	}
	setList(out, "conversation.vocabulary.specialized", vocab.Specialized)
	setList(out, "conversation.vocabulary.action", vocab.Action)
	setList(out, "conversation.vocabulary.greetings", vocab.Greetings)

	kw := cfg.Complexity
	setList(out, "complexity.complexity", kw.Complexity)
	setList(out, "complexity.domain", kw.Domain)
	setList(out, "complexity.connectives", kw.Connectives)
	setList(out, "complexity.research", kw.Research)
	setList(out, "complexity.analysis", kw.Analysis)
	return out
}

func setList(out map[string]any, key string, values []string) {
	if len(values) > 0 {
		out[key] = values
	}
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	d := Default()
	for key, value := range settings(d) {
		v.SetDefault(key, value)
	}
}

// getUserConfigDir returns the XDG config directory for concierge.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "concierge")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "concierge")
	}
	return filepath.Join(home, ".config", "concierge")
}

// DefaultDataDir returns the XDG data directory for concierge.
func DefaultDataDir() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".", ".concierge")
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "concierge")
}

// findProjectConfig searches for .concierge.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".concierge.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			DefaultProvider: "anthropic",
			ProviderOrder:   []string{"anthropic", "openai", "gemini"},
			Temperature:     0.7,
			MaxTokens:       1024,
			TopP:            0,
			Anthropic: AnthropicConfig{
				AWSRegion: "us-east-1",
			},
		},
		Timeouts: TimeoutsConfig{
			LLM:    30 * time.Second,
			Tool:   5 * time.Second,
			Store:  5 * time.Second,
			Events: 2 * time.Second,
		},
		Conversation: ConversationConfig{
			DefaultResponder: "general",
			DetailThreshold:  500,
			HistoryWindow:    20,
			CacheSize:        1024,
			IdleThreshold:    30 * time.Minute,
		},
		Store: StoreConfig{
			Driver: "memory",
		},
		Events: EventsConfig{
			Exchange: "concierge.turns",
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8080",
		},
		DataDir: DefaultDataDir(),
	}
}

// ResolvedDSN returns the store DSN, defaulting SQLite drivers to a file under DataDir.
func (c *Config) ResolvedDSN() string {
	if c.Store.DSN != "" {
		return c.Store.DSN
	}
	switch c.Store.Driver {
	case "sqlite", "sqlite3":
		return filepath.Join(c.DataDir, "concierge.db")
	}
	return ""
}

// DebugLogPath returns the debug log path, or "" when debug logging is off.
func (c *Config) DebugLogPath() string {
	if !c.Logging.Debug {
		return ""
	}
	return filepath.Join(c.DataDir, "logs", "concierge-debug.log")
}
