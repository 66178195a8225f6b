package backend

import (
	"fmt"
)

// Settings carries everything needed to construct one backend.
type Settings struct {
	Kind Kind

	// ollama
	OllamaURL   string
	OllamaModel string

	// chat APIs
	APIBaseURL string
	APIKey     string
	Model      string

	// deepl
	DeepLGlossaryID string

	// libretranslate
	ServerURL string
}

// New builds the adapter for the configured kind, wrapped with the
// shared retry policy.
func New(s Settings) (Translator, error) {
	var (
		inner Translator
		err   error
	)
	switch s.Kind {
	case KindOllama:
		inner, err = NewOllama(s.OllamaURL, s.OllamaModel)
	case KindGPT:
		base := s.APIBaseURL
		if base == "" {
			base = "https://api.openai.com/v1"
		}
		inner, err = NewChatAPI(KindGPT, base, s.APIKey, s.Model)
	case KindGemini:
		base := s.APIBaseURL
		if base == "" {
			base = "https://generativelanguage.googleapis.com/v1beta/openai"
		}
		inner, err = NewChatAPI(KindGemini, base, s.APIKey, s.Model)
	case KindDeepL:
		inner, err = NewDeepL(s.APIBaseURL, s.APIKey, s.DeepLGlossaryID)
	case KindGoogle:
		inner, err = NewGoogleTranslate(s.APIBaseURL, s.APIKey)
	case KindLibreTranslate:
		inner, err = NewLibreTranslate(s.ServerURL, s.APIKey)
	default:
		return nil, fmt.Errorf("unknown backend kind %q", s.Kind)
	}
	if err != nil {
		return nil, err
	}
	return WithRetries(inner), nil
}
