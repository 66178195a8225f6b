package backend

import (
	"context"

	"github.com/MimeLyc/batch-sub-translator/internal/prompt"
)

// Kind identifies a backend family.
type Kind string

const (
	KindOllama         Kind = "ollama"
	KindGPT            Kind = "gpt"
	KindGemini         Kind = "gemini"
	KindDeepL          Kind = "deepl"
	KindGoogle         Kind = "google"
	KindLibreTranslate Kind = "libretranslate"
)

// Request is one translation call. Chat backends use Prompt; plain MT
// backends use Text plus the optional glossary entries.
type Request struct {
	Text       string
	SourceLang string
	TargetLang string

	Prompt          prompt.LLMPrompt
	GlossaryEntries []prompt.GlossaryEntry
}

// Translator is one configured translation backend.
type Translator interface {
	Name() string
	Kind() Kind
	Translate(ctx context.Context, req Request) (string, error)
}

// Warmer is implemented by backends that benefit from a warm-up call
// before the first real line.
type Warmer interface {
	Warmup(ctx context.Context) error
}

// IsLocal reports whether the backend runs on the local machine, which
// makes extra calls (self-consistency retries) effectively free.
func IsLocal(k Kind) bool {
	return k == KindOllama
}
