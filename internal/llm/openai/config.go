package openai

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joseph-ayodele/protocol-extractor/internal/common"
)

// Config for the OpenAI client.
type Config struct {
	APIKey      string        // if empty, falls back to env OPENAI_API_KEY
	BaseURL     string        // default https://api.openai.com/v1
	Model       string        // default gpt-4o
	Temperature float32       // 0..2, default 0
	MaxTokens   int           // default 4096
	Timeout     time.Duration // per-request http timeout
	Retry       RetryConfig
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	cfg.Retry = cfg.Retry.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.cfg.Model }

// ConfigFrom maps the LLM section of the application config.
func ConfigFrom(c common.LLMConfig) Config {
	return Config{
		APIKey:      c.APIKey,
		BaseURL:     c.BaseURL,
		Model:       c.Model,
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
		Timeout:     c.Timeout,
		Retry:       RetryConfig{MaxAttempts: c.MaxAttempts},
	}
}
