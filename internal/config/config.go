package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration. It is loaded once at
// startup and passed explicitly into constructors; nothing reads the
// environment ad hoc after that.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Vapi      VapiConfig      `yaml:"vapi" mapstructure:"vapi"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Audit     AuditConfig     `yaml:"audit" mapstructure:"audit"`
	Export    ExportConfig    `yaml:"export" mapstructure:"export"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend for run checkpoints.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "sqlite" or "postgres"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// VapiConfig holds voice provider API settings.
type VapiConfig struct {
	Key           string  `yaml:"key" mapstructure:"key"`
	BaseURL       string  `yaml:"base_url" mapstructure:"base_url"`
	PhoneNumberID string  `yaml:"phone_number_id" mapstructure:"phone_number_id"`
	AssistantID   string  `yaml:"assistant_id" mapstructure:"assistant_id"` // empty = bootstrap by name
	AssistantName string  `yaml:"assistant_name" mapstructure:"assistant_name"`
	RateLimitRPS  float64 `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
}

// AnthropicConfig holds reasoning API settings for semantic classification.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// AuditConfig configures the call audit engine.
type AuditConfig struct {
	// Classifier selects the active tier configuration: "llm" runs the
	// semantic tier before the keyword fallback, "heuristic" skips it.
	Classifier string `yaml:"classifier" mapstructure:"classifier"`

	CeilingSeconds      int `yaml:"ceiling_seconds" mapstructure:"ceiling_seconds"`
	PollFastSeconds     int `yaml:"poll_fast_seconds" mapstructure:"poll_fast_seconds"`
	PollSteadySeconds   int `yaml:"poll_steady_seconds" mapstructure:"poll_steady_seconds"`
	PollFastWindowSecs  int `yaml:"poll_fast_window_seconds" mapstructure:"poll_fast_window_seconds"`
	DelayBetweenCalls   int `yaml:"delay_between_calls_seconds" mapstructure:"delay_between_calls_seconds"`
	CheckpointEvery     int `yaml:"checkpoint_every" mapstructure:"checkpoint_every"`
	MaxDispatchAttempts int `yaml:"max_dispatch_attempts" mapstructure:"max_dispatch_attempts"`
}

// Ceiling returns the completion-wait ceiling as a duration.
func (a AuditConfig) Ceiling() time.Duration {
	return time.Duration(a.CeilingSeconds) * time.Second
}

// Delay returns the inter-call courtesy delay as a duration.
func (a AuditConfig) Delay() time.Duration {
	return time.Duration(a.DelayBetweenCalls) * time.Second
}

// ExportConfig configures result sink output.
type ExportConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// ServerConfig configures the status HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from config.yaml and NIGHTLINE_* environment
// variables, applying defaults for everything unset.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("NIGHTLINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, val := range Defaults() {
		v.SetDefault(key, val)
	}

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

// Defaults returns the default configuration values keyed by viper path.
// Exposed so `config init` can write a complete starter file.
func Defaults() map[string]any {
	return map[string]any{
		"store.driver":                     "sqlite",
		"store.database_url":               "nightline.db",
		"vapi.key":                         "",
		"vapi.base_url":                    "https://api.vapi.ai",
		"vapi.phone_number_id":             "",
		"vapi.assistant_id":                "",
		"vapi.assistant_name":              "Stealth",
		"vapi.rate_limit_rps":              2.0,
		"anthropic.key":                    "",
		"anthropic.model":                  "claude-haiku-4-5-20251001",
		"audit.classifier":                 "llm",
		"audit.ceiling_seconds":            180,
		"audit.poll_fast_seconds":          2,
		"audit.poll_steady_seconds":        3,
		"audit.poll_fast_window_seconds":   30,
		"audit.delay_between_calls_seconds": 5,
		"audit.checkpoint_every":           10,
		"audit.max_dispatch_attempts":      4,
		"export.dir":                       "data",
		"server.port":                      8080,
		"log.level":                        "info",
		"log.format":                       "json",
	}
}

// InitLogger initializes the global zap logger from LogConfig.
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
