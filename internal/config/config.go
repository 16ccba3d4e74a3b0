package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	Server ServerConfig
	Log    LogConfig
	Store  StoreConfig
	LLM    LLMConfig
	SMS    SMSConfig
}

// ServerConfig holds the HTTP server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

// LogConfig holds the logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// StoreConfig selects and configures the conversation store backend.
// Driver is either "sqlite" (embedded single-file store) or "postgres".
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
	DSN    string `mapstructure:"dsn"`
}

// LLMConfig holds the chat-completion client configuration
type LLMConfig struct {
	Provider        string        `mapstructure:"provider"`
	BaseURL         string        `mapstructure:"base_url"`
	APIKey          string        `mapstructure:"api_key"`
	Model           string        `mapstructure:"model"`
	SystemPrompt    string        `mapstructure:"system_prompt"`
	MaxTokens       int           `mapstructure:"max_tokens"`
	Temperature     float32       `mapstructure:"temperature"`
	DisableThinking bool          `mapstructure:"disable_thinking"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// SMSConfig holds the SMS gateway client configuration
type SMSConfig struct {
	URL      string        `mapstructure:"url"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

const defaultSystemPrompt = "You are Mchili, a concise and helpful assistant made by the Zoofam company. " +
	"Keep replies short and actionable, never longer than 4 sentences. " +
	"When asked who you are, say you are Mchili."

// Load reads the configuration from config.yaml (or the file named by
// CONFIG_PATH) with environment-variable overrides prefixed MCHILI_.
func Load() (*Config, error) {
	v := viper.New()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "3061")
	v.SetDefault("log.level", "info")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "mchili.db")
	v.SetDefault("llm.provider", "zai")
	v.SetDefault("llm.base_url", "https://api.z.ai/api/paas/v4/chat/completions")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "GLM-4.5-Flash")
	v.SetDefault("llm.system_prompt", defaultSystemPrompt)
	v.SetDefault("llm.max_tokens", 512)
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.disable_thinking", true)
	v.SetDefault("llm.timeout", 30*time.Second)
	v.SetDefault("sms.url", "https://api.sms-gate.app/3rdparty/v1/message")
	v.SetDefault("sms.username", "")
	v.SetDefault("sms.password", "")
	v.SetDefault("sms.timeout", 15*time.Second)

	// Secrets come from the environment in deployments, e.g.
	// MCHILI_LLM_API_KEY and MCHILI_SMS_PASSWORD.
	v.SetEnvPrefix("MCHILI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case "sqlite":
		if c.Store.Path == "" {
			return fmt.Errorf("config: store.path is required for the sqlite driver")
		}
	case "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("config: store.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("config: unknown store driver %q", c.Store.Driver)
	}

	if c.LLM.APIKey == "" {
		return fmt.Errorf("config: llm.api_key is required")
	}
	if c.SMS.Username == "" || c.SMS.Password == "" {
		return fmt.Errorf("config: sms.username and sms.password are required")
	}
	return nil
}
