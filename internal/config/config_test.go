package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func setRequired(t *testing.T) {
	t.Setenv("AZURE_OPENAI_API_KEY", "key")
	t.Setenv("AZURE_OPENAI_ENDPOINT", "https://example.openai.azure.com")
	t.Setenv("AZURE_OPENAI_DEPLOYMENT_NAME", "gpt-4o")
	t.Setenv("AZURE_OPENAI_API_VERSION", "2024-02-15-preview")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg := Load()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, APITypeAzure, cfg.APIType)
	assert.Equal(t, ":8501", cfg.ListenAddr)
	assert.True(t, cfg.AllowImages)
	assert.False(t, cfg.ReplayImages)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, int64(20<<20), cfg.MaxImageBytes)
	assert.False(t, cfg.Debug())
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("VISCHAT_ALLOW_IMAGES", "false")
	t.Setenv("VISCHAT_STORE", "sqlite")
	t.Setenv("VISCHAT_SESSION_TTL", "30m")
	t.Setenv("VISCHAT_USER_PREAMBLE", "Answer briefly.")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := Load()
	require.NoError(t, cfg.Validate())
	assert.False(t, cfg.AllowImages)
	assert.Equal(t, StoreSQLite, cfg.Store)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, "Answer briefly.", cfg.UserPreamble)
	assert.True(t, cfg.Debug())
}

func TestValidateReportsEveryMissingVariable(t *testing.T) {
	cfg := &Config{APIType: APITypeAzure, Store: StoreMemory, MaxImageBytes: 1}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 4)
	assert.Contains(t, err.Error(), "AZURE_OPENAI_API_KEY")
	assert.Contains(t, err.Error(), "AZURE_OPENAI_API_VERSION")
}

func TestValidateRejectsUnknownStore(t *testing.T) {
	setRequired(t)
	t.Setenv("VISCHAT_STORE", "redis")

	err := Load().Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VISCHAT_STORE")
}

func TestValidateAPIVersionOnlyForAzure(t *testing.T) {
	setRequired(t)
	t.Setenv("AZURE_OPENAI_API_VERSION", "")

	t.Setenv("VISCHAT_API_TYPE", APITypeOpenAI)
	assert.NoError(t, Load().Validate())

	t.Setenv("VISCHAT_API_TYPE", APITypeAzure)
	err := Load().Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AZURE_OPENAI_API_VERSION")
}
