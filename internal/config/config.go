// Package config loads the chat server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
)

const (
	APITypeAzure  = "azure"
	APITypeOpenAI = "openai"

	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Config holds the chat server configuration.
type Config struct {
	// Provider
	APIKey     string
	Endpoint   string
	Deployment string
	APIVersion string
	APIType    string

	// Server settings
	ListenAddr string
	Title      string

	// Request assembly
	SystemPrompt  string
	UserPreamble  string
	AllowImages   bool
	ReplayImages  bool
	MaxImageBytes int64

	// Sessions
	Store      string
	DBPath     string
	SessionTTL time.Duration

	// Logging
	LogLevel string
}

// Load reads a .env file if one exists, then the environment.
func Load() *Config {
	// A missing .env file is fine; the variables may already be exported.
	_ = godotenv.Load()

	return &Config{
		APIKey:        os.Getenv("AZURE_OPENAI_API_KEY"),
		Endpoint:      os.Getenv("AZURE_OPENAI_ENDPOINT"),
		Deployment:    os.Getenv("AZURE_OPENAI_DEPLOYMENT_NAME"),
		APIVersion:    os.Getenv("AZURE_OPENAI_API_VERSION"),
		APIType:       getEnv("VISCHAT_API_TYPE", APITypeAzure),
		ListenAddr:    getEnv("VISCHAT_LISTEN_ADDR", ":8501"),
		Title:         getEnv("VISCHAT_TITLE", "DL God"),
		SystemPrompt:  getEnv("VISCHAT_SYSTEM_PROMPT", "You are an AI assistant that helps people find information."),
		UserPreamble:  os.Getenv("VISCHAT_USER_PREAMBLE"),
		AllowImages:   getEnvBool("VISCHAT_ALLOW_IMAGES", true),
		ReplayImages:  getEnvBool("VISCHAT_REPLAY_IMAGES", false),
		MaxImageBytes: int64(getEnvInt("VISCHAT_MAX_IMAGE_BYTES", 20<<20)),
		Store:         getEnv("VISCHAT_STORE", StoreMemory),
		DBPath:        getEnv("VISCHAT_DB_PATH", ":memory:"),
		SessionTTL:    getEnvDuration("VISCHAT_SESSION_TTL", 24*time.Hour),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}
}

// Validate reports every missing or malformed setting at once.
func (c *Config) Validate() error {
	var err error
	required := []struct{ key, val string }{
		{"AZURE_OPENAI_API_KEY", c.APIKey},
		{"AZURE_OPENAI_ENDPOINT", c.Endpoint},
		{"AZURE_OPENAI_DEPLOYMENT_NAME", c.Deployment},
	}
	// Only Azure deployments are addressed by API version.
	if c.APIType == APITypeAzure {
		required = append(required, struct{ key, val string }{"AZURE_OPENAI_API_VERSION", c.APIVersion})
	}
	for _, req := range required {
		if req.val == "" {
			err = multierr.Append(err, fmt.Errorf("missing required environment variable: %s", req.key))
		}
	}
	if c.APIType != APITypeAzure && c.APIType != APITypeOpenAI {
		err = multierr.Append(err, fmt.Errorf("unsupported VISCHAT_API_TYPE %q", c.APIType))
	}
	if c.Store != StoreMemory && c.Store != StoreSQLite {
		err = multierr.Append(err, fmt.Errorf("unsupported VISCHAT_STORE %q", c.Store))
	}
	if c.MaxImageBytes <= 0 {
		err = multierr.Append(err, errors.New("VISCHAT_MAX_IMAGE_BYTES must be positive"))
	}
	return err
}

func (c *Config) Debug() bool {
	return c.LogLevel == "debug"
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
