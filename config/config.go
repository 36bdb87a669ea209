package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dyike/fupanxia/consts"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr string `json:"addr" yaml:"addr"`

	LLMProvider string `json:"llm_provider" yaml:"llm_provider"`
	MaxTokens   int    `json:"max_tokens" yaml:"max_tokens"`

	// Gemini (structured output)
	GeminiAPIKey  string `json:"gemini_api_key" yaml:"gemini_api_key"`
	GeminiModel   string `json:"gemini_model" yaml:"gemini_model"`
	GeminiBaseURL string `json:"gemini_base_url" yaml:"gemini_base_url"`

	// OpenAI compatible multimodal
	OpenAIAPIKey  string `json:"openai_api_key" yaml:"openai_api_key"`
	OpenAIModel   string `json:"openai_model" yaml:"openai_model"`
	OpenAIBaseURL string `json:"openai_base_url" yaml:"openai_base_url"`

	// DeepSeek free-text fallback
	DeepSeekAPIKey  string `json:"deepseek_api_key" yaml:"deepseek_api_key"`
	DeepSeekModel   string `json:"deepseek_model" yaml:"deepseek_model"`
	DeepSeekBaseURL string `json:"deepseek_base_url" yaml:"deepseek_base_url"`

	MaxUploadBytes  int64         `json:"max_upload_bytes" yaml:"max_upload_bytes"`
	SessionTTL      time.Duration `json:"session_ttl" yaml:"session_ttl"`
	LoadingInterval time.Duration `json:"loading_interval" yaml:"loading_interval"`

	Debug     bool   `json:"debug" yaml:"debug"`
	EinoDebug bool   `json:"eino_debug" yaml:"eino_debug"` // Eino visual debugger for the chat chains
	LogLevel  string `json:"log_level" yaml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format"` // console | json
}

func DefaultConfig() *Config {
	cfg := defaults()

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg.loadFromEnv()
	return cfg
}

// LoadFile overlays a YAML file on the defaults, then applies the environment.
// An empty path behaves like DefaultConfig.
func LoadFile(path string) (*Config, error) {
	cfg := defaults()
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	_ = godotenv.Load()
	cfg.loadFromEnv()
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Addr: ":8080",

		LLMProvider: consts.ProviderGemini,
		MaxTokens:   8192,

		GeminiModel:   "gemini-3-flash-preview",
		OpenAIModel:   "gpt-4o-mini",
		OpenAIBaseURL: "https://api.openai.com/v1",
		DeepSeekModel: "deepseek-chat",

		MaxUploadBytes:  10 << 20,
		SessionTTL:      30 * time.Minute,
		LoadingInterval: 2500 * time.Millisecond,

		LogLevel:  "info",
		LogFormat: "json",
	}
}

func (c *Config) loadFromEnv() {
	if val := os.Getenv("FUPANXIA_ADDR"); val != "" {
		c.Addr = val
	}
	if val := os.Getenv("LLM_PROVIDER"); val != "" {
		c.LLMProvider = strings.ToLower(strings.TrimSpace(val))
	}
	if val := os.Getenv("MAX_TOKENS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.MaxTokens = v
		}
	}

	// API_KEY is the legacy Gemini variable; GEMINI_API_KEY wins
	if val := os.Getenv("API_KEY"); val != "" {
		c.GeminiAPIKey = val
	}
	if val := os.Getenv("GEMINI_API_KEY"); val != "" {
		c.GeminiAPIKey = val
	}
	if val := os.Getenv("GEMINI_MODEL"); val != "" {
		c.GeminiModel = val
	}
	if val := os.Getenv("GEMINI_BASE_URL"); val != "" {
		c.GeminiBaseURL = val
	}

	if val := os.Getenv("OPENAI_API_KEY"); val != "" {
		c.OpenAIAPIKey = val
	}
	if val := os.Getenv("OPENAI_MODEL"); val != "" {
		c.OpenAIModel = val
	}
	if val := os.Getenv("OPENAI_BASE_URL"); val != "" {
		c.OpenAIBaseURL = val
	}

	if val := os.Getenv("DEEPSEEK_API_KEY"); val != "" {
		c.DeepSeekAPIKey = val
	}
	if val := os.Getenv("DEEPSEEK_MODEL"); val != "" {
		c.DeepSeekModel = val
	}
	if val := os.Getenv("DEEPSEEK_BASE_URL"); val != "" {
		c.DeepSeekBaseURL = val
	}

	if val := os.Getenv("FUPANXIA_MAX_UPLOAD_BYTES"); val != "" {
		if v, err := strconv.ParseInt(val, 10, 64); err == nil {
			c.MaxUploadBytes = v
		}
	}
	if val := os.Getenv("FUPANXIA_SESSION_TTL"); val != "" {
		if v, err := time.ParseDuration(val); err == nil {
			c.SessionTTL = v
		}
	}
	if val := os.Getenv("FUPANXIA_LOADING_INTERVAL"); val != "" {
		if v, err := time.ParseDuration(val); err == nil {
			c.LoadingInterval = v
		}
	}

	if val := os.Getenv("FUPANXIA_DEBUG"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.Debug = enabled
		}
	}
	if val := os.Getenv("FUPANXIA_EINO_DEBUG"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.EinoDebug = enabled
		}
	}
	if val := os.Getenv("FUPANXIA_LOG_LEVEL"); val != "" {
		c.LogLevel = val
	}
	if val := os.Getenv("FUPANXIA_LOG_FORMAT"); val != "" {
		c.LogFormat = val
	}
}

// Validate checks structural settings. A missing API key is not an error here;
// it surfaces on the first analysis attempt instead.
func (c *Config) Validate() error {
	var errs []error
	if !isKnownProvider(c.LLMProvider) {
		errs = append(errs, fmt.Errorf("unknown llm_provider %q (want one of %s)",
			c.LLMProvider, strings.Join(consts.Providers, ", ")))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("max_upload_bytes must be positive"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("session_ttl must be positive"))
	}
	if c.LoadingInterval <= 0 {
		errs = append(errs, errors.New("loading_interval must be positive"))
	}
	if c.MaxTokens < 0 {
		errs = append(errs, errors.New("max_tokens must not be negative"))
	}
	switch c.LogFormat {
	case "", "json", "console":
	default:
		errs = append(errs, fmt.Errorf("unknown log_format %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// APIKeyFor returns the credential configured for provider.
func (c *Config) APIKeyFor(provider string) string {
	switch provider {
	case consts.ProviderGemini:
		return c.GeminiAPIKey
	case consts.ProviderOpenAI:
		return c.OpenAIAPIKey
	case consts.ProviderDeepSeek:
		return c.DeepSeekAPIKey
	}
	return ""
}

// APIKeyEnv names the environment variable that supplies provider's key.
func APIKeyEnv(provider string) string {
	switch provider {
	case consts.ProviderGemini:
		return "GEMINI_API_KEY"
	case consts.ProviderOpenAI:
		return "OPENAI_API_KEY"
	case consts.ProviderDeepSeek:
		return "DEEPSEEK_API_KEY"
	}
	return "API_KEY"
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() Config {
	out := *c
	out.GeminiAPIKey = mask(c.GeminiAPIKey)
	out.OpenAIAPIKey = mask(c.OpenAIAPIKey)
	out.DeepSeekAPIKey = mask(c.DeepSeekAPIKey)
	return out
}

func mask(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}

func isKnownProvider(p string) bool {
	for _, known := range consts.Providers {
		if p == known {
			return true
		}
	}
	return false
}
