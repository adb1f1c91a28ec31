package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Extract  ExtractConfig  `yaml:"extract"`
	Chunk    ChunkConfig    `yaml:"chunk"`
	Fields   FieldsConfig   `yaml:"fields"`
	LLM      LLMConfig      `yaml:"llm"`
	Log      LogConfig      `yaml:"log"`
}

// DatabaseConfig holds run journal configuration.
// An empty DSN disables the journal; "postgres://" DSNs go through pgx,
// anything else is treated as a SQLite path.
type DatabaseConfig struct {
	DSN              string        `yaml:"dsn"`
	MaxConns         int32         `yaml:"max_conns"`
	MinConns         int32         `yaml:"min_conns"`
	MaxConnLifetime  time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime  time.Duration `yaml:"max_conn_idle_time"`
	DialTimeout      time.Duration `yaml:"dial_timeout"`
	StatementTimeout time.Duration `yaml:"statement_timeout"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr       string        `yaml:"grpc_addr"`
	Workers        int           `yaml:"workers"`
	QueueSize      int           `yaml:"queue_size"`
	ProcessTimeout time.Duration `yaml:"process_timeout"`

	// ShutdownTimeout bounds the queue drain; in-flight jobs are cancelled after it.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ExtractConfig holds text extraction configuration
type ExtractConfig struct {
	Pdftotext      string `yaml:"pdftotext"`
	PdfcpuFallback bool   `yaml:"pdfcpu_fallback"`
	MaxFileMB      int    `yaml:"max_file_mb"`
}

type ChunkConfig struct {
	MaxSize int `yaml:"max_size"`
}

type FieldsConfig struct {
	MaxCountedOutcomes int `yaml:"max_counted_outcomes"`
	PrefixChunks       int `yaml:"prefix_chunks"`
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	Temperature float32       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxAttempts int           `yaml:"max_attempts"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json | text
}

// DefaultConfig returns the configuration used when nothing else is set.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			MaxConns:        10,
			MinConns:        1,
			MaxConnLifetime: 30 * time.Minute,
			MaxConnIdleTime: 5 * time.Minute,
			DialTimeout:     3 * time.Second,
		},
		Server: ServerConfig{
			GRPCAddr:        ":8080",
			Workers:         4,
			QueueSize:       256,
			ProcessTimeout:  30 * time.Minute,
			ShutdownTimeout: 30 * time.Second,
		},
		Extract: ExtractConfig{
			Pdftotext:      "pdftotext",
			PdfcpuFallback: true,
			MaxFileMB:      100,
		},
		Chunk: ChunkConfig{
			MaxSize: 64000,
		},
		Fields: FieldsConfig{
			MaxCountedOutcomes: 20,
			PrefixChunks:       3,
		},
		LLM: LLMConfig{
			Model:       "gpt-4o",
			BaseURL:     "https://api.openai.com/v1",
			Temperature: 0,
			MaxTokens:   4096,
			Timeout:     120 * time.Second,
			MaxAttempts: 3,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadConfig builds the configuration from defaults, an optional YAML file
// and environment variables, in that order of precedence (env wins).
// An empty path falls back to PROTOCOL_CONFIG.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = os.Getenv("PROTOCOL_CONFIG")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("read config file %q", path), err)
	}
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), c); err != nil {
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("parse config file %q", path), err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Database.DSN = getEnv("DB_URL", c.Database.DSN)
	c.Database.MaxConns = getEnvAsInt32("DB_MAX_CONNS", c.Database.MaxConns)
	c.Database.MinConns = getEnvAsInt32("DB_MIN_CONNS", c.Database.MinConns)
	c.Database.MaxConnLifetime = getEnvAsDuration("DB_MAX_CONN_LIFETIME", c.Database.MaxConnLifetime)
	c.Database.MaxConnIdleTime = getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", c.Database.MaxConnIdleTime)
	c.Database.DialTimeout = getEnvAsDuration("DB_DIAL_TIMEOUT", c.Database.DialTimeout)
	c.Database.StatementTimeout = getEnvAsDuration("DB_STATEMENT_TIMEOUT", c.Database.StatementTimeout)

	c.Server.GRPCAddr = getEnv("GRPC_ADDR", c.Server.GRPCAddr)
	c.Server.Workers = getEnvAsInt("WORKERS", c.Server.Workers)
	c.Server.QueueSize = getEnvAsInt("QUEUE_SIZE", c.Server.QueueSize)
	c.Server.ProcessTimeout = getEnvAsDuration("PROCESS_TIMEOUT", c.Server.ProcessTimeout)
	c.Server.ShutdownTimeout = getEnvAsDuration("SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)

	c.Extract.Pdftotext = getEnv("PDFTOTEXT", c.Extract.Pdftotext)
	c.Extract.PdfcpuFallback = getEnvAsBool("PDF_FALLBACK", c.Extract.PdfcpuFallback)
	c.Extract.MaxFileMB = getEnvAsInt("MAX_FILE_MB", c.Extract.MaxFileMB)

	c.Chunk.MaxSize = getEnvAsInt("CHUNK_MAX_SIZE", c.Chunk.MaxSize)

	c.Fields.MaxCountedOutcomes = getEnvAsInt("MAX_COUNTED_OUTCOMES", c.Fields.MaxCountedOutcomes)
	c.Fields.PrefixChunks = getEnvAsInt("PREFIX_CHUNKS", c.Fields.PrefixChunks)

	c.LLM.APIKey = getEnv("API_KEY", c.LLM.APIKey)
	c.LLM.APIKey = getEnv("OPENAI_API_KEY", c.LLM.APIKey)
	c.LLM.Model = getEnv("OPENAI_MODEL", c.LLM.Model)
	c.LLM.BaseURL = getEnv("OPENAI_BASE_URL", c.LLM.BaseURL)
	c.LLM.Temperature = getEnvAsFloat32("OPENAI_TEMPERATURE", c.LLM.Temperature)
	c.LLM.MaxTokens = getEnvAsInt("OPENAI_MAX_TOKENS", c.LLM.MaxTokens)
	c.LLM.Timeout = getEnvAsDuration("OPENAI_TIMEOUT", c.LLM.Timeout)
	c.LLM.MaxAttempts = getEnvAsInt("OPENAI_MAX_ATTEMPTS", c.LLM.MaxAttempts)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "OPENAI_API_KEY is required", ErrInvalidInput)
	}
	if c.Chunk.MaxSize <= 0 {
		return NewAppError("CONFIG_ERROR", "chunk max size must be positive", ErrInvalidInput)
	}
	if c.Fields.PrefixChunks <= 0 {
		return NewAppError("CONFIG_ERROR", "prefix chunks must be positive", ErrInvalidInput)
	}
	return nil
}

// ValidateServer adds the checks only the daemon needs.
func (c *Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Server.GRPCAddr == "" {
		return NewAppError("CONFIG_ERROR", "GRPC_ADDR is required", ErrInvalidInput)
	}
	return nil
}
