package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"ideabot/internal/prompts"
	"ideabot/internal/schema"
)

type Config struct {
	Env       string
	LLM       LLMConfig
	Rubric    RubricConfig
	Collector CollectorConfig
	Discord   DiscordConfig
	HTTP      HTTPConfig
}

type LLMConfig struct {
	APIKey string
	Model  string
	// Timeout is the pause before every backend call.
	Timeout     time.Duration
	CallTimeout time.Duration
	Fake        bool
}

// RubricConfig selects the schema and template. Schema and Template default
// to the rubric's own pair.
type RubricConfig struct {
	Name     string
	Schema   string
	Template string
}

type CollectorConfig struct {
	Mode            string
	SessionCapacity int
	SessionIdleTTL  time.Duration
}

type DiscordConfig struct {
	Token  string
	Prefix string
}

type HTTPConfig struct {
	Enabled        bool
	Port           string
	AllowedOrigins []string
}

func (d DiscordConfig) Enabled() bool { return strings.TrimSpace(d.Token) != "" }

// Load reads configuration from the environment, after merging a .env file
// when one is present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "local"
	}
	rubric := firstNonEmpty(strings.TrimSpace(os.Getenv("RUBRIC")), schema.NameValueFormula)

	cfg := &Config{
		Env: env,
		LLM: LLMConfig{
			APIKey:      firstNonEmpty(strings.TrimSpace(os.Getenv("GEMINI_API_KEY")), strings.TrimSpace(os.Getenv("GOOGLE_API_KEY"))),
			Model:       firstNonEmpty(strings.TrimSpace(os.Getenv("LLM_MODEL")), "gemini-2.5-flash"),
			Timeout:     getEnvSeconds("LLM_TIMEOUT_SECONDS", 10*time.Second),
			CallTimeout: getEnvSeconds("LLM_CALL_TIMEOUT_SECONDS", 60*time.Second),
			Fake:        getEnvBool("LLM_FAKE", false),
		},
		Rubric: RubricConfig{
			Name:     rubric,
			Schema:   firstNonEmpty(strings.TrimSpace(os.Getenv("EVAL_SCHEMA")), rubric),
			Template: firstNonEmpty(strings.TrimSpace(os.Getenv("EVAL_TEMPLATE")), rubric),
		},
		Collector: CollectorConfig{
			Mode:            firstNonEmpty(strings.TrimSpace(os.Getenv("COLLECTOR_MODE")), "multi_stage"),
			SessionCapacity: getEnvInt("SESSION_CAPACITY", 1024),
			SessionIdleTTL:  getEnvDuration("SESSION_IDLE_TTL", 30*time.Minute),
		},
		Discord: DiscordConfig{
			Token:  strings.TrimSpace(os.Getenv("DISCORD_BOT_TOKEN")),
			Prefix: firstNonEmpty(os.Getenv("DISCORD_COMMAND_PREFIX"), "!"),
		},
		HTTP: HTTPConfig{
			Enabled:        getEnvBool("HTTP_ENABLED", true),
			Port:           normalizePort(firstNonEmpty(strings.TrimSpace(os.Getenv("PORT")), ":8080")),
			AllowedOrigins: splitList(firstNonEmpty(os.Getenv("CORS_ALLOWED_ORIGINS"), "*")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that every setting can be resolved.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.LLM.Model) == "" {
		return fmt.Errorf("LLM_MODEL cannot be empty")
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("LLM_TIMEOUT_SECONDS must be > 0")
	}
	if c.LLM.CallTimeout < 0 {
		return fmt.Errorf("LLM_CALL_TIMEOUT_SECONDS must be >= 0")
	}
	if !c.LLM.Fake && c.LLM.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required unless LLM_FAKE is set")
	}
	if _, ok := schema.Lookup(c.Rubric.Schema); !ok {
		return fmt.Errorf("unknown schema %q (want one of %s)", c.Rubric.Schema, strings.Join(schema.Names(), ", "))
	}
	if _, ok := prompts.Lookup(c.Rubric.Template); !ok {
		return fmt.Errorf("unknown template %q", c.Rubric.Template)
	}
	switch strings.ToLower(strings.TrimSpace(c.Collector.Mode)) {
	case "multi_stage", "single_message":
	default:
		return fmt.Errorf("COLLECTOR_MODE must be multi_stage or single_message, got %q", c.Collector.Mode)
	}
	if c.Collector.SessionCapacity <= 0 {
		return fmt.Errorf("SESSION_CAPACITY must be > 0")
	}
	if c.HTTP.Enabled && c.HTTP.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	return nil
}

// ApplyRubric switches to a named rubric, resetting schema and template to
// its pair.
func (c *Config) ApplyRubric(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	c.Rubric = RubricConfig{Name: name, Schema: name, Template: name}
}

func normalizePort(p string) string {
	if p == "" || strings.Contains(p, ":") {
		return p
	}
	return ":" + p
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvSeconds(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return time.Duration(f * float64(time.Second))
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
