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
	Env       string          `yaml:"env" mapstructure:"env"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Harvester HarvesterConfig `yaml:"harvester" mapstructure:"harvester"`
	Redis     RedisConfig     `yaml:"redis" mapstructure:"redis"`
	Quota     QuotaConfig     `yaml:"quota" mapstructure:"quota"`
	Session   SessionConfig   `yaml:"session" mapstructure:"session"`
	Verify    VerifyConfig    `yaml:"verify" mapstructure:"verify"`
	Profile   ProfileConfig   `yaml:"profile" mapstructure:"profile"`
	Assemble  AssembleConfig  `yaml:"assemble" mapstructure:"assemble"`
	Chat      ChatConfig      `yaml:"chat" mapstructure:"chat"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// Production reports whether the service runs with production policies.
func (c *Config) Production() bool {
	return c.Env == "production"
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port                  int      `yaml:"port" mapstructure:"port"`
	CORSOrigins           []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	ReadHeaderTimeoutSecs int      `yaml:"read_header_timeout_secs" mapstructure:"read_header_timeout_secs"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	Model         string `yaml:"model" mapstructure:"model"`
	FallbackModel string `yaml:"fallback_model" mapstructure:"fallback_model"`
}

// HarvesterConfig holds scraping service settings, including the poll
// schedule used while a submitted job runs.
type HarvesterConfig struct {
	BaseURL           string  `yaml:"base_url" mapstructure:"base_url"`
	Key               string  `yaml:"key" mapstructure:"key"`
	SubmitTimeoutSecs int     `yaml:"submit_timeout_secs" mapstructure:"submit_timeout_secs"`
	PollInitialMS     int     `yaml:"poll_initial_ms" mapstructure:"poll_initial_ms"`
	PollMaxMS         int     `yaml:"poll_max_ms" mapstructure:"poll_max_ms"`
	PollFactor        float64 `yaml:"poll_factor" mapstructure:"poll_factor"`
	PollDeadlineSecs  int     `yaml:"poll_deadline_secs" mapstructure:"poll_deadline_secs"`
	SubmitRPS         float64 `yaml:"submit_rps" mapstructure:"submit_rps"`
}

// RedisConfig configures the quota ledger backend.
type RedisConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
}

// QuotaConfig configures per-client daily limits.
type QuotaConfig struct {
	DailyLimit int64 `yaml:"daily_limit" mapstructure:"daily_limit"`
}

// SessionConfig holds the token signing secret. Token lifetime is fixed
// at 24 hours and is not configurable.
type SessionConfig struct {
	Secret string `yaml:"secret" mapstructure:"secret"`
}

// VerifyConfig configures the human verification provider.
type VerifyConfig struct {
	Required    bool   `yaml:"required" mapstructure:"required"`
	Secret      string `yaml:"secret" mapstructure:"secret"`
	URL         string `yaml:"url" mapstructure:"url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// ProfileConfig selects where the subject profile is loaded from.
type ProfileConfig struct {
	Source       string `yaml:"source" mapstructure:"source"`
	Path         string `yaml:"path" mapstructure:"path"`
	NotionToken  string `yaml:"notion_token" mapstructure:"notion_token"`
	NotionPageID string `yaml:"notion_page_id" mapstructure:"notion_page_id"`
	CacheTTLMins int    `yaml:"cache_ttl_mins" mapstructure:"cache_ttl_mins"`
}

// AssembleConfig bounds how much scraped or pasted content reaches the
// model.
type AssembleConfig struct {
	BudgetChars          int `yaml:"budget_chars" mapstructure:"budget_chars"`
	MinContentChars      int `yaml:"min_content_chars" mapstructure:"min_content_chars"`
	PastedThresholdChars int `yaml:"pasted_threshold_chars" mapstructure:"pasted_threshold_chars"`
}

// ChatConfig bounds inbound request fields.
type ChatConfig struct {
	MaxMessageChars int `yaml:"max_message_chars" mapstructure:"max_message_chars"`
	MaxHistory      int `yaml:"max_history" mapstructure:"max_history"`
	MaxContextChars int `yaml:"max_context_chars" mapstructure:"max_context_chars"`
}

// StoreConfig configures the scrape cache database.
type StoreConfig struct {
	Driver              string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL         string `yaml:"database_url" mapstructure:"database_url"`
	ScrapeCacheTTLHours int    `yaml:"scrape_cache_ttl_hours" mapstructure:"scrape_cache_ttl_hours"`
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
	v.SetEnvPrefix("CONCIERGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("env", "development")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_header_timeout_secs", 5)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.fallback_model", "claude-haiku-4-5-20251001")
	v.SetDefault("harvester.submit_timeout_secs", 10)
	v.SetDefault("harvester.poll_initial_ms", 1500)
	v.SetDefault("harvester.poll_max_ms", 10000)
	v.SetDefault("harvester.poll_factor", 2.0)
	v.SetDefault("harvester.poll_deadline_secs", 45)
	v.SetDefault("harvester.submit_rps", 2.0)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("quota.daily_limit", 40)
	v.SetDefault("verify.required", true)
	v.SetDefault("verify.timeout_secs", 8)
	v.SetDefault("profile.source", "file")
	v.SetDefault("profile.path", "profile.yaml")
	v.SetDefault("profile.cache_ttl_mins", 15)
	v.SetDefault("assemble.budget_chars", 100000)
	v.SetDefault("assemble.min_content_chars", 200)
	v.SetDefault("assemble.pasted_threshold_chars", 500)
	v.SetDefault("chat.max_message_chars", 2000)
	v.SetDefault("chat.max_history", 20)
	v.SetDefault("chat.max_context_chars", 2000)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "concierge.db")
	v.SetDefault("store.scrape_cache_ttl_hours", 24)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// Validate checks the settings the named command depends on. Mode is
// "serve" for the full service, "token" for token minting, and "scrape"
// for one-off scrape calls. All problems are reported in one error.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be positive")
		}
		if c.Anthropic.Key == "" {
			problems = append(problems, "anthropic.key is required")
		}
		if c.Harvester.BaseURL == "" {
			problems = append(problems, "harvester.base_url is required")
		}
		if c.Quota.DailyLimit <= 0 {
			problems = append(problems, "quota.daily_limit must be positive")
		}
		if c.Production() && c.Session.Secret == "" {
			problems = append(problems, "session.secret is required in production")
		}
		if c.Production() && c.Verify.Required && c.Verify.Secret == "" {
			problems = append(problems, "verify.secret is required when verification is enforced")
		}
		switch c.Profile.Source {
		case "file", "off":
		case "notion":
			if c.Profile.NotionToken == "" || c.Profile.NotionPageID == "" {
				problems = append(problems, "profile.notion_token and profile.notion_page_id are required for the notion source")
			}
		default:
			problems = append(problems, "profile.source must be file, notion, or off")
		}
		if c.Store.Driver != "sqlite" && c.Store.Driver != "postgres" {
			problems = append(problems, "store.driver must be sqlite or postgres")
		}
	case "token":
		if c.Session.Secret == "" {
			problems = append(problems, "session.secret is required")
		}
	case "scrape":
		if c.Harvester.BaseURL == "" {
			problems = append(problems, "harvester.base_url is required")
		}
	default:
		return eris.Errorf("config: unknown validation mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
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
