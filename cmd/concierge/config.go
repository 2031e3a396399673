package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/concierge/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify concierge configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/concierge/config.yaml
Project-specific overrides can be placed in .concierge.yaml`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		w := cmd.OutOrStdout()
		switch len(args) {
		case 0:
			displayAllConfig(w, cfg)
			return nil
		case 1:
			value, err := getConfigValue(cfg, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(w, value)
			return nil
		default:
			if err := setConfigValue(cfg, args[0], args[1]); err != nil {
				return err
			}
			if configPath != "" {
				err = config.SaveToPath(cfg, configPath)
			} else {
				err = config.Save(cfg)
			}
			if err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			fmt.Fprintf(w, "Set %s = %s\n", args[0], args[1])
			return nil
		}
	},
}

// configKeys lists the keys shown by 'concierge config', in display order.
var configKeys = []string{
	"llm.default_provider",
	"llm.provider_order",
	"llm.temperature",
	"llm.max_tokens",
	"llm.top_p",
	"llm.anthropic.api_key",
	"llm.anthropic.model",
	"llm.anthropic.bedrock",
	"llm.anthropic.aws_region",
	"llm.openai.api_key",
	"llm.openai.model",
	"llm.openai.base_url",
	"llm.gemini.api_key",
	"llm.gemini.model",
	"timeouts.llm",
	"timeouts.tool",
	"timeouts.store",
	"timeouts.events",
	"conversation.default_responder",
	"conversation.detail_threshold",
	"conversation.history_window",
	"conversation.cache_size",
	"conversation.idle_threshold",
	"catalog.path",
	"store.driver",
	"store.dsn",
	"store.redis_addr",
	"events.amqp_url",
	"events.exchange",
	"server.addr",
	"logging.debug",
	"data_dir",
}

// displayAllConfig prints all configuration values.
func displayAllConfig(w io.Writer, cfg *config.Config) {
	for _, key := range configKeys {
		value, _ := getConfigValue(cfg, key)
		fmt.Fprintf(w, "%s: %s\n", key, value)
	}
}

// getConfigValue retrieves a configuration value by dot-notation key.
// Secrets are masked.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "llm.default_provider":
		return cfg.LLM.DefaultProvider, nil
	case "llm.provider_order":
		return strings.Join(cfg.LLM.ProviderOrder, ","), nil
	case "llm.temperature":
		return strconv.FormatFloat(cfg.LLM.Temperature, 'g', -1, 64), nil
	case "llm.max_tokens":
		return strconv.Itoa(cfg.LLM.MaxTokens), nil
	case "llm.top_p":
		return strconv.FormatFloat(cfg.LLM.TopP, 'g', -1, 64), nil
	case "llm.anthropic.api_key":
		return config.MaskAPIKey(cfg.LLM.Anthropic.APIKey), nil
	case "llm.anthropic.model":
		return cfg.LLM.Anthropic.Model, nil
	case "llm.anthropic.bedrock":
		return strconv.FormatBool(cfg.LLM.Anthropic.UseBedrock), nil
	case "llm.anthropic.aws_region":
		return cfg.LLM.Anthropic.AWSRegion, nil
	case "llm.openai.api_key":
		return config.MaskAPIKey(cfg.LLM.OpenAI.APIKey), nil
	case "llm.openai.model":
		return cfg.LLM.OpenAI.Model, nil
	case "llm.openai.base_url":
		return cfg.LLM.OpenAI.BaseURL, nil
	case "llm.gemini.api_key":
		return config.MaskAPIKey(cfg.LLM.Gemini.APIKey), nil
	case "llm.gemini.model":
		return cfg.LLM.Gemini.Model, nil
	case "timeouts.llm":
		return cfg.Timeouts.LLM.String(), nil
	case "timeouts.tool":
		return cfg.Timeouts.Tool.String(), nil
	case "timeouts.store":
		return cfg.Timeouts.Store.String(), nil
	case "timeouts.events":
		return cfg.Timeouts.Events.String(), nil
	case "conversation.default_responder":
		return cfg.Conversation.DefaultResponder, nil
	case "conversation.detail_threshold":
		return strconv.Itoa(cfg.Conversation.DetailThreshold), nil
	case "conversation.history_window":
		return strconv.Itoa(cfg.Conversation.HistoryWindow), nil
	case "conversation.cache_size":
		return strconv.Itoa(cfg.Conversation.CacheSize), nil
	case "conversation.idle_threshold":
		return cfg.Conversation.IdleThreshold.String(), nil
	case "catalog.path":
		return cfg.Catalog.Path, nil
	case "store.driver":
		return cfg.Store.Driver, nil
	case "store.dsn":
		if cfg.Store.DSN == "" {
			return cfg.ResolvedDSN(), nil
		}
		return "****", nil
	case "store.redis_addr":
		return cfg.Store.RedisAddr, nil
	case "events.amqp_url":
		if cfg.Events.AMQPURL == "" {
			return "(not set)", nil
		}
		return "****", nil
	case "events.exchange":
		return cfg.Events.Exchange, nil
	case "server.addr":
		return cfg.Server.Addr, nil
	case "logging.debug":
		return strconv.FormatBool(cfg.Logging.Debug), nil
	case "data_dir":
		return cfg.DataDir, nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch strings.ToLower(key) {
	case "llm.default_provider":
		cfg.LLM.DefaultProvider = value
	case "llm.provider_order":
		var order []string
		for _, p := range strings.Split(value, ",") {
			if p = strings.TrimSpace(p); p != "" {
				order = append(order, p)
			}
		}
		cfg.LLM.ProviderOrder = order
	case "llm.temperature":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid value for llm.temperature: %w", err)
		}
		cfg.LLM.Temperature = f
	case "llm.max_tokens":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for llm.max_tokens: %w", err)
		}
		cfg.LLM.MaxTokens = n
	case "llm.top_p":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid value for llm.top_p: %w", err)
		}
		cfg.LLM.TopP = f
	case "llm.anthropic.api_key":
		cfg.LLM.Anthropic.APIKey = value
	case "llm.anthropic.model":
		cfg.LLM.Anthropic.Model = value
	case "llm.anthropic.bedrock":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for llm.anthropic.bedrock: %w", err)
		}
		cfg.LLM.Anthropic.UseBedrock = b
	case "llm.anthropic.aws_region":
		cfg.LLM.Anthropic.AWSRegion = value
	case "llm.openai.api_key":
		cfg.LLM.OpenAI.APIKey = value
	case "llm.openai.model":
		cfg.LLM.OpenAI.Model = value
	case "llm.openai.base_url":
		cfg.LLM.OpenAI.BaseURL = value
	case "llm.gemini.api_key":
		cfg.LLM.Gemini.APIKey = value
	case "llm.gemini.model":
		cfg.LLM.Gemini.Model = value
	case "timeouts.llm", "timeouts.tool", "timeouts.store", "timeouts.events", "conversation.idle_threshold":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for %s: %w", key, err)
		}
		switch strings.ToLower(key) {
		case "timeouts.llm":
			cfg.Timeouts.LLM = d
		case "timeouts.tool":
			cfg.Timeouts.Tool = d
		case "timeouts.store":
			cfg.Timeouts.Store = d
		case "timeouts.events":
			cfg.Timeouts.Events = d
		default:
			cfg.Conversation.IdleThreshold = d
		}
	case "conversation.default_responder":
		cfg.Conversation.DefaultResponder = value
	case "conversation.detail_threshold", "conversation.history_window", "conversation.cache_size":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}
		switch strings.ToLower(key) {
		case "conversation.detail_threshold":
			cfg.Conversation.DetailThreshold = n
		case "conversation.history_window":
			cfg.Conversation.HistoryWindow = n
		default:
			cfg.Conversation.CacheSize = n
		}
	case "catalog.path":
		cfg.Catalog.Path = value
	case "store.driver":
		cfg.Store.Driver = value
	case "store.dsn":
		cfg.Store.DSN = value
	case "store.redis_addr":
		cfg.Store.RedisAddr = value
	case "events.amqp_url":
		cfg.Events.AMQPURL = value
	case "events.exchange":
		cfg.Events.Exchange = value
	case "server.addr":
		cfg.Server.Addr = value
	case "logging.debug":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for logging.debug: %w", err)
		}
		cfg.Logging.Debug = b
	case "data_dir":
		cfg.DataDir = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}
