package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/batch-sub-translator/internal/backend"
)

func TestNewFromEnv_Defaults(t *testing.T) {
	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "auto", cfg.Translate.SourceLang)
	assert.Equal(t, "pt-BR", cfg.Translate.TargetLang)
	assert.Equal(t, 1, cfg.Translate.MaxParallelism)
	assert.True(t, cfg.Translate.SkipExisting)
	assert.Equal(t, 0, cfg.Translate.SRTBatchSize)
	assert.Equal(t, 2, cfg.Translate.ASSBatchSize)

	assert.Equal(t, 5, cfg.Prompt.ContextWindowSize)
	assert.Equal(t, 2048, cfg.Prompt.NumCtx)
	assert.InDelta(t, 0.3, cfg.Prompt.Temperature, 1e-9)
	assert.True(t, cfg.Prompt.EnableContextual)
	assert.False(t, cfg.Prompt.EnableBatch)

	assert.Equal(t, "ollama", cfg.Backend.Kind)
	assert.Equal(t, "http://localhost:11434", cfg.Backend.OllamaURL)
	assert.Equal(t, "0 4 * * *", cfg.Storage.CleanupCron)
	assert.Equal(t, 90, cfg.Storage.CacheMaxAgeDays)
}

func TestNewFromEnv_Overrides(t *testing.T) {
	t.Setenv("SOURCE_LANG", "ja")
	t.Setenv("TARGET_LANG", "pt-BR")
	t.Setenv("MAX_PARALLELISM", "2")
	t.Setenv("SKIP_EXISTING", "false")
	t.Setenv("SRT_BATCH_SIZE", "4")
	t.Setenv("TEMPERATURE", "0.5")
	t.Setenv("OLLAMA_MODEL", "llama3:8b")
	t.Setenv("CACHE_DB", "/data/cache.db")

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "ja", cfg.Translate.SourceLang)
	assert.Equal(t, 2, cfg.Translate.MaxParallelism)
	assert.False(t, cfg.Translate.SkipExisting)
	assert.Equal(t, 4, cfg.Translate.SRTBatchSize)
	assert.InDelta(t, 0.5, cfg.Prompt.Temperature, 1e-9)
	assert.Equal(t, "llama3:8b", cfg.Backend.OllamaModel)
	assert.Equal(t, "/data/cache.db", cfg.Storage.CacheDB)
}

func TestNewFromEnv_Options(t *testing.T) {
	cfg, err := NewFromEnv(func(c *Config) {
		c.Translate.TargetLang = "es"
		c.Backend.OllamaModel = "custom:latest"
	})
	require.NoError(t, err)

	assert.Equal(t, "es", cfg.Translate.TargetLang)
	assert.Equal(t, "custom:latest", cfg.Backend.OllamaModel)
}

func TestNewFromEnv_Validation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "unknown backend",
			env:     map[string]string{"BACKEND": "bing"},
			wantErr: "unknown BACKEND",
		},
		{
			name:    "gpt needs api key",
			env:     map[string]string{"BACKEND": "gpt"},
			wantErr: "API_KEY is required",
		},
		{
			name:    "deepl needs api key",
			env:     map[string]string{"BACKEND": "deepl"},
			wantErr: "API_KEY is required",
		},
		{
			name:    "libretranslate needs server url",
			env:     map[string]string{"BACKEND": "libretranslate"},
			wantErr: "LIBRETRANSLATE_URL is required",
		},
		{
			name:    "same source and target",
			env:     map[string]string{"SOURCE_LANG": "pt-br", "TARGET_LANG": "pt-BR"},
			wantErr: "must differ",
		},
		{
			name:    "srt batch size outside the tuned set",
			env:     map[string]string{"SRT_BATCH_SIZE": "5"},
			wantErr: "SRT_BATCH_SIZE must be one of",
		},
		{
			name:    "srt batch size negative",
			env:     map[string]string{"SRT_BATCH_SIZE": "-4"},
			wantErr: "SRT_BATCH_SIZE must be one of",
		},
		{
			name:    "ass batch size zero",
			env:     map[string]string{"ASS_BATCH_SIZE": "0"},
			wantErr: "ASS_BATCH_SIZE must be one of",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := NewFromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestBackendConfig_Settings(t *testing.T) {
	t.Setenv("BACKEND", "gemini")
	t.Setenv("API_KEY", "secret")
	t.Setenv("API_MODEL", "gemini-1.5-flash")

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	s := cfg.Backend.Settings()
	assert.Equal(t, backend.KindGemini, s.Kind)
	assert.Equal(t, "secret", s.APIKey)
	assert.Equal(t, "gemini-1.5-flash", s.Model)
}
