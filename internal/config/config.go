package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port         string        `mapstructure:"PORT"`
	Env          string        `mapstructure:"ENV"`
	GinMode      string        `mapstructure:"GIN_MODE"`
	LogLevel     string        `mapstructure:"LOG_LEVEL"`
	EnableDB     bool          `mapstructure:"ENABLE_DB"`
	DatabaseURL  string        `mapstructure:"DATABASE_URL"`
	SQLitePath   string        `mapstructure:"SQLITE_PATH"`
	DrugDataFile string        `mapstructure:"DRUG_DATA_FILE"`
	UploadDir    string        `mapstructure:"UPLOAD_DIR"`
	MaxBodyBytes int64         `mapstructure:"MAX_BODY_BYTES"`
	StaticRoot   string        `mapstructure:"STATIC_ROOT"`
	CORSOrigins  []string      `mapstructure:"CORS_ORIGINS"`
	AIProvider   string        `mapstructure:"AI_PROVIDER"`
	AIModels     []string      `mapstructure:"AI_MODELS"`
	AITimeout    time.Duration `mapstructure:"AI_TIMEOUT"`

	GeminiAPIKey    string `mapstructure:"GEMINI_API_KEY"`
	GeminiBaseURL   string `mapstructure:"GEMINI_BASE_URL"`
	OpenAIAPIKey    string `mapstructure:"OPENAI_API_KEY"`
	AnthropicAPIKey string `mapstructure:"ANTHROPIC_API_KEY"`
}

var defaults = map[string]any{
	"PORT":              "8080",
	"ENV":               "development",
	"GIN_MODE":          "release",
	"LOG_LEVEL":         "info",
	"ENABLE_DB":         false,
	"DATABASE_URL":      "",
	"SQLITE_PATH":       "data/medical_history.db",
	"DRUG_DATA_FILE":    "data/drugs.csv",
	"UPLOAD_DIR":        "temp_uploads",
	"MAX_BODY_BYTES":    20 << 20,
	"STATIC_ROOT":       "",
	"CORS_ORIGINS":      "*",
	"AI_PROVIDER":       "gemini",
	"AI_MODELS":         "",
	"AI_TIMEOUT":        "60s",
	"GEMINI_API_KEY":    "",
	"GEMINI_BASE_URL":   "",
	"OPENAI_API_KEY":    "",
	"ANTHROPIC_API_KEY": "",
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	for key, val := range defaults {
		v.SetDefault(key, val)
		_ = v.BindEnv(key)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.AIProvider = strings.ToLower(strings.TrimSpace(cfg.AIProvider))
	cfg.CORSOrigins = cleanList(cfg.CORSOrigins)
	cfg.AIModels = cleanList(cfg.AIModels)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.EnableDB && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required when ENABLE_DB=true")
	}
	if !c.EnableDB && strings.TrimSpace(c.SQLitePath) == "" {
		return fmt.Errorf("SQLITE_PATH is required when ENABLE_DB=false")
	}
	switch c.AIProvider {
	case "gemini", "openai", "anthropic":
	default:
		return fmt.Errorf("AI_PROVIDER must be \"gemini\", \"openai\", or \"anthropic\", got %q", c.AIProvider)
	}
	if c.AITimeout <= 0 {
		return fmt.Errorf("AI_TIMEOUT must be positive, got %s", c.AITimeout)
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("MAX_BODY_BYTES must be positive, got %d", c.MaxBodyBytes)
	}
	return nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// APIKey returns the key for the configured AI provider.
func (c *Config) APIKey() string {
	switch c.AIProvider {
	case "openai":
		return c.OpenAIAPIKey
	case "anthropic":
		return c.AnthropicAPIKey
	default:
		return c.GeminiAPIKey
	}
}

// cleanList accepts both already-split values and a single comma-joined
// entry, which is what viper yields for plain env strings.
func cleanList(in []string) []string {
	out := []string{}
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
