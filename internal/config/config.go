package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/MimeLyc/batch-sub-translator/internal/backend"
)

// Config holds all application configuration
// Supports environment variables with sensible defaults
//
// Environment Variables:
// Translation:
// - SOURCE_LANG: source language code, or "auto" (default: auto)
// - TARGET_LANG: target language code (default: pt-BR)
// - MAX_PARALLELISM: concurrent files, clamped to 1-2 (default: 1)
// - SKIP_EXISTING: skip files whose translation already exists (default: true)
// - SRT_BATCH_SIZE: lines per batch request for SRT, 0 disables (default: 0)
// - ASS_BATCH_SIZE: lines per batch request for ASS (default: 2)
//
// Prompting:
// - CONTEXT_WINDOW_SIZE: previous lines fed as context (default: 5)
// - NUM_CTX: model context window in tokens (default: 2048)
// - NUM_THREAD: CPU threads for the local model, 0 = auto (default: 0)
// - TEMPERATURE: sampling temperature (default: 0.3)
// - ENABLE_CONTEXTUAL: include rolling context in prompts (default: true)
// - ENABLE_FEWSHOT: include few-shot examples (default: true)
// - ENABLE_BATCH: allow batched requests (default: false)
// - ENABLE_AUTO_GLOSSARY: prescan and auto-track glossary terms (default: true)
//
// Backend:
// - BACKEND: ollama, gpt, gemini, deepl, google, or libretranslate (default: ollama)
// - OLLAMA_URL: Ollama server URL (default: http://localhost:11434)
// - OLLAMA_MODEL: model name (default: qwen2.5:7b-instruct)
// - API_KEY: key for hosted backends
// - API_BASE_URL: override the hosted backend endpoint (optional)
// - API_MODEL: model for chat backends (default: gpt-4o-mini)
// - DEEPL_GLOSSARY_ID: pre-created DeepL glossary id (optional)
// - LIBRETRANSLATE_URL: LibreTranslate server URL (optional)
//
// Storage and maintenance:
// - CACHE_DB: SQLite cache path (default: ./data/translations.db)
// - GLOSSARY_DIR: per-series glossary directory (default: ./data/glossaries)
// - CLEANUP_CRON: cron spec for cache maintenance, empty disables (default: "0 4 * * *")
// - CACHE_MAX_AGE_DAYS: entries older than this are purged (default: 90)
//
// System:
// - LOG_LEVEL: debug, info, warn, or error (default: info)

type Config struct {
	Translate TranslateConfig `json:"translate"`
	Prompt    PromptConfig    `json:"prompt"`
	Backend   BackendConfig   `json:"backend"`
	Storage   StorageConfig   `json:"storage"`
	System    SystemConfig    `json:"system"`
}

type TranslateConfig struct {
	SourceLang     string `json:"source_lang"`
	TargetLang     string `json:"target_lang"`
	MaxParallelism int    `json:"max_parallelism"`
	SkipExisting   bool   `json:"skip_existing"`
	SRTBatchSize   int    `json:"srt_batch_size"`
	ASSBatchSize   int    `json:"ass_batch_size"`
}

type PromptConfig struct {
	ContextWindowSize  int     `json:"context_window_size"`
	NumCtx             int     `json:"num_ctx"`
	NumThread          int     `json:"num_thread"`
	Temperature        float64 `json:"temperature"`
	EnableContextual   bool    `json:"enable_contextual"`
	EnableFewshot      bool    `json:"enable_fewshot"`
	EnableBatch        bool    `json:"enable_batch"`
	EnableAutoGlossary bool    `json:"enable_auto_glossary"`
}

type BackendConfig struct {
	Kind            string `json:"kind"`
	OllamaURL       string `json:"ollama_url"`
	OllamaModel     string `json:"ollama_model"`
	APIKey          string `json:"-"`
	APIBaseURL      string `json:"api_base_url"`
	APIModel        string `json:"api_model"`
	DeepLGlossaryID string `json:"deepl_glossary_id"`
	ServerURL       string `json:"server_url"`
}

// Settings shapes the backend section for the adapter registry.
func (b BackendConfig) Settings() backend.Settings {
	return backend.Settings{
		Kind:            backend.Kind(b.Kind),
		OllamaURL:       b.OllamaURL,
		OllamaModel:     b.OllamaModel,
		APIBaseURL:      b.APIBaseURL,
		APIKey:          b.APIKey,
		Model:           b.APIModel,
		DeepLGlossaryID: b.DeepLGlossaryID,
		ServerURL:       b.ServerURL,
	}
}

type StorageConfig struct {
	CacheDB         string `json:"cache_db"`
	GlossaryDir     string `json:"glossary_dir"`
	CleanupCron     string `json:"cleanup_cron"`
	CacheMaxAgeDays int    `json:"cache_max_age_days"`
}

type SystemConfig struct {
	LogLevel string `json:"log_level"`
}

// Option is a function type for configuring Config
type Option func(*Config)

// NewFromEnv creates a new Config instance with values from environment variables and options
func NewFromEnv(opts ...Option) (*Config, error) {
	config := &Config{
		Translate: TranslateConfig{
			SourceLang:     getEnvString("SOURCE_LANG", "auto"),
			TargetLang:     getEnvString("TARGET_LANG", "pt-BR"),
			MaxParallelism: getEnvInt("MAX_PARALLELISM", 1),
			SkipExisting:   getEnvBool("SKIP_EXISTING", true),
			SRTBatchSize:   getEnvInt("SRT_BATCH_SIZE", 0),
			ASSBatchSize:   getEnvInt("ASS_BATCH_SIZE", 2),
		},
		Prompt: PromptConfig{
			ContextWindowSize:  getEnvInt("CONTEXT_WINDOW_SIZE", 5),
			NumCtx:             getEnvInt("NUM_CTX", 2048),
			NumThread:          getEnvInt("NUM_THREAD", 0),
			Temperature:        getEnvFloat("TEMPERATURE", 0.3),
			EnableContextual:   getEnvBool("ENABLE_CONTEXTUAL", true),
			EnableFewshot:      getEnvBool("ENABLE_FEWSHOT", true),
			EnableBatch:        getEnvBool("ENABLE_BATCH", false),
			EnableAutoGlossary: getEnvBool("ENABLE_AUTO_GLOSSARY", true),
		},
		Backend: BackendConfig{
			Kind:            getEnvString("BACKEND", "ollama"),
			OllamaURL:       getEnvString("OLLAMA_URL", "http://localhost:11434"),
			OllamaModel:     getEnvString("OLLAMA_MODEL", "qwen2.5:7b-instruct"),
			APIKey:          getEnvString("API_KEY", ""),
			APIBaseURL:      getEnvString("API_BASE_URL", ""),
			APIModel:        getEnvString("API_MODEL", "gpt-4o-mini"),
			DeepLGlossaryID: getEnvString("DEEPL_GLOSSARY_ID", ""),
			ServerURL:       getEnvString("LIBRETRANSLATE_URL", ""),
		},
		Storage: StorageConfig{
			CacheDB:         getEnvString("CACHE_DB", "./data/translations.db"),
			GlossaryDir:     getEnvString("GLOSSARY_DIR", "./data/glossaries"),
			CleanupCron:     getEnvString("CLEANUP_CRON", "0 4 * * *"),
			CacheMaxAgeDays: getEnvInt("CACHE_MAX_AGE_DAYS", 90),
		},
		System: SystemConfig{
			LogLevel: getEnvString("LOG_LEVEL", "info"),
		},
	}

	// Apply custom options
	for _, opt := range opts {
		opt(config)
	}

	// Validate required configuration
	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// validate checks if all required configuration is properly set
func (c *Config) validate() error {
	switch backend.Kind(c.Backend.Kind) {
	case backend.KindOllama:
		if c.Backend.OllamaURL == "" {
			return fmt.Errorf("OLLAMA_URL is required for the ollama backend")
		}
		if c.Backend.OllamaModel == "" {
			return fmt.Errorf("OLLAMA_MODEL is required for the ollama backend")
		}
	case backend.KindGPT, backend.KindGemini, backend.KindDeepL, backend.KindGoogle:
		if c.Backend.APIKey == "" {
			return fmt.Errorf("API_KEY is required for the %s backend", c.Backend.Kind)
		}
	case backend.KindLibreTranslate:
		if c.Backend.ServerURL == "" {
			return fmt.Errorf("LIBRETRANSLATE_URL is required for the libretranslate backend")
		}
	default:
		return fmt.Errorf("unknown BACKEND %q", c.Backend.Kind)
	}

	if c.Translate.TargetLang == "" {
		return fmt.Errorf("TARGET_LANG must not be empty")
	}
	if strings.EqualFold(c.Translate.SourceLang, c.Translate.TargetLang) {
		return fmt.Errorf("SOURCE_LANG and TARGET_LANG must differ")
	}

	// batch prompts are tuned for these block sizes only
	if !containsInt(validSRTBatchSizes, c.Translate.SRTBatchSize) {
		return fmt.Errorf("SRT_BATCH_SIZE must be one of %v, got %d", validSRTBatchSizes, c.Translate.SRTBatchSize)
	}
	if !containsInt(validASSBatchSizes, c.Translate.ASSBatchSize) {
		return fmt.Errorf("ASS_BATCH_SIZE must be one of %v, got %d", validASSBatchSizes, c.Translate.ASSBatchSize)
	}
	return nil
}

var (
	validSRTBatchSizes = []int{0, 4, 6, 8, 10, 12}
	validASSBatchSizes = []int{1, 2, 4, 6, 8, 10, 12}
)

func containsInt(values []int, v int) bool {
	for _, value := range values {
		if value == v {
			return true
		}
	}
	return false
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat gets a float value from environment variables with default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvBool gets a boolean value from environment variables with default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
