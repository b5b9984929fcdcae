package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Providers ProvidersConfig `yaml:"providers" mapstructure:"providers"`
	Agent     AgentConfig     `yaml:"agent" mapstructure:"agent"`
	Images    ImagesConfig    `yaml:"images" mapstructure:"images"`
	Audit     AuditConfig     `yaml:"audit" mapstructure:"audit"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// ProvidersConfig holds credentials and default models per LLM backend.
type ProvidersConfig struct {
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	OpenAI    OpenAIConfig    `yaml:"openai" mapstructure:"openai"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// OpenAIConfig holds OpenAI API settings.
type OpenAIConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	Model   string `yaml:"model" mapstructure:"model"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// AgentConfig configures agent execution behavior.
type AgentConfig struct {
	Provider            string  `yaml:"provider" mapstructure:"provider"`
	Model               string  `yaml:"model" mapstructure:"model"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold" mapstructure:"confidence_threshold"`
	Strategy            string  `yaml:"strategy" mapstructure:"strategy"`
}

// ImagesConfig configures the image discovery tool.
type ImagesConfig struct {
	BaseDir         string  `yaml:"base_dir" mapstructure:"base_dir"`
	TimeoutSecs     int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	PerHostRate     float64 `yaml:"per_host_rate" mapstructure:"per_host_rate"`
	MinFaviconBytes int     `yaml:"min_favicon_bytes" mapstructure:"min_favicon_bytes"`
}

// AuditConfig configures the append-only audit log store.
type AuditConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("AGENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("batch.max_concurrent", 4)
	v.SetDefault("agent.provider", "anthropic")
	v.SetDefault("agent.confidence_threshold", 0.7)
	v.SetDefault("agent.strategy", "two_step")
	v.SetDefault("providers.anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("providers.openai.model", "gpt-4o")
	v.SetDefault("providers.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("images.base_dir", "static/images")
	v.SetDefault("images.timeout_secs", 30)
	v.SetDefault("images.per_host_rate", 2)
	v.SetDefault("images.min_favicon_bytes", 1000)
	v.SetDefault("audit.path", "logs/agent_audit.jsonl")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
