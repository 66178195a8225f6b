package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/MimeLyc/batch-sub-translator/internal/glossary"
)

var langNames = map[string]string{
	"pt-BR": "Brazilian Portuguese",
	"pt-PT": "European Portuguese",
	"pt":    "Portuguese",
	"es":    "Spanish",
	"fr":    "French",
	"de":    "German",
	"it":    "Italian",
	"en":    "English",
	"ja":    "Japanese",
	"ko":    "Korean",
	"zh":    "Chinese",
	"auto":  "English",
}

// LangName renders a language code as the name used inside prompts.
func LangName(code string) string {
	if name, ok := langNames[code]; ok {
		return name
	}
	return code
}

const systemPromptSingle = `You are a professional subtitle translator. MANDATORY RULES:

1. Reply with ONLY the translated line
2. NEVER add explanations, comments, 'translation:', etc.
3. Match gender and number agreement correctly
4. Use correct conditional forms
5. Natural, fluent target language
6. Keep formatting [XXX] if present
7. Preserve ellipses (...) and emotional punctuation
8. Use colloquial register when appropriate

TRANSLATE ONLY:`

const systemPromptBatch = `You are a subtitle translator. Your ONLY task is to receive N numbered lines and return EXACTLY N lines in the SAME format and order.

MANDATORY OUTPUT FORMAT (one line per number, skip none):
1│ translation of line 1
2│ translation of line 2
3│ translation of line 3
... (up to N│)

RULES:
- Return EXACTLY the same number of lines received, in the same order (1, 2, 3, …).
- Use ONLY the format "number│ text" per line. No header, footer, or explanations.
- Natural target language; preserve tone, slang, and dialogue continuity.
- Keep ASS/SRT tags ({\i1}, {\an8}, etc.) and formatting; do not translate proper nouns, (*effects*), [notes].
- If a line is only a sound effect or name, repeat it unchanged with the same number.`

// StopSequences cut local model output before it drifts into notes or
// echoes of the context.
var StopSequences = []string{
	"\n", "\\n", "Nota:", "Note:", "explain", "explicar",
	"English:", "Inglês:", "Previous context",
}

// Input carries everything a prompt may draw from. Zero-value fields
// simply omit their section.
type Input struct {
	Text       string
	Texts      []string
	SourceLang string
	TargetLang string

	SeriesGlossary map[string]string
	RecentContext  []string
	Metadata       SeriesMetadata
	Fewshot        []Example
}

// LLMPrompt is a ready-to-send chat prompt.
type LLMPrompt struct {
	System  string
	User    string
	Options map[string]any
}

// GlossaryEntry is one native DeepL glossary pair.
type GlossaryEntry struct {
	Source string
	Target string
}

// Builder assembles prompts for every backend family, spending the
// token budget in priority order: glossary, metadata, context,
// few-shots.
type Builder struct {
	profile    Profile
	glossaries *glossary.Manager
}

func NewBuilder(profile Profile, glossaries *glossary.Manager) *Builder {
	return &Builder{profile: profile, glossaries: glossaries}
}

func (b *Builder) Profile() Profile {
	return b.profile
}

// WithProfile returns a builder using a different profile but the same
// glossaries.
func (b *Builder) WithProfile(profile Profile) *Builder {
	return &Builder{profile: profile, glossaries: b.glossaries}
}

// Build assembles the full single-line prompt for a local model,
// including generation options and stop sequences.
func (b *Builder) Build(in Input) LLMPrompt {
	srcName := LangName(in.SourceLang)
	tgtName := LangName(in.TargetLang)

	budget := b.profile.MaxTokensBudget
	systemParts := []string{systemPromptSingle}
	var userParts []string
	usedTokens := estimateTokens(systemPromptSingle)

	// glossary always goes first, it is the cheapest way to keep names
	// stable across a season
	if section := b.glossarySection(in.SeriesGlossary); section != "" {
		tokens := estimateTokens(section)
		if usedTokens+tokens < budget {
			systemParts = append(systemParts, section)
			usedTokens += tokens
		}
	}

	if section := metadataSection(in.Metadata); section != "" {
		tokens := estimateTokens(section)
		if usedTokens+tokens < budget {
			systemParts = append(systemParts, section)
			usedTokens += tokens
		}
	}

	if section := b.contextSection(in.RecentContext); section != "" {
		tokens := estimateTokens(section)
		if usedTokens+tokens < budget {
			userParts = append(userParts, section)
			usedTokens += tokens
		}
	}

	if len(in.Fewshot) > 0 && b.profile.EnableFewshot && fewshotApplies(in.SourceLang, in.TargetLang) {
		section := fewshotSection(in.Fewshot)
		tokens := estimateTokens(section)
		if usedTokens+tokens < budget {
			userParts = append([]string{section}, userParts...)
			usedTokens += tokens
		}
	}

	userParts = append(userParts, fmt.Sprintf(
		"TRANSLATE the line below from %s to %s.\n"+
			"IMPORTANT: You MUST translate it. Do NOT return the original %s text.\n"+
			"RESPOND WITH ONLY THE TRANSLATION in %s. NO explanations. NO notes.\n\n"+
			"%s: %s\n%s:",
		srcName, tgtName, srcName, tgtName, srcName, in.Text, tgtName,
	))

	options := b.profile.OllamaOptions(len(in.Text))
	options["stop"] = StopSequences

	return LLMPrompt{
		System:  strings.Join(systemParts, "\n\n"),
		User:    strings.Join(userParts, "\n\n"),
		Options: options,
	}
}

// fewshotApplies gates the example bank to the one language pair it was
// written for.
func fewshotApplies(sourceLang, targetLang string) bool {
	return (sourceLang == "en" || sourceLang == "auto") && targetLang == "pt-BR"
}

// BuildLean assembles the trimmed prompt used with paid chat APIs:
// minimal system prompt, at most 10 series terms, no few-shots, and two
// lines of context. Cuts input tokens by roughly two thirds.
func (b *Builder) BuildLean(in Input) LLMPrompt {
	srcName := LangName(in.SourceLang)
	tgtName := LangName(in.TargetLang)

	systemParts := []string{fmt.Sprintf(
		"Translate the subtitle line from %s to %s. Reply with ONLY the translation. Preserve formatting tags, proper nouns, and punctuation.",
		srcName, tgtName,
	)}

	if len(in.SeriesGlossary) > 0 {
		keys := sortedKeys(in.SeriesGlossary)
		if len(keys) > 10 {
			keys = keys[:10]
		}
		lines := make([]string, 0, len(keys))
		for _, k := range keys {
			lines = append(lines, fmt.Sprintf("  %s → %s", k, in.SeriesGlossary[k]))
		}
		systemParts = append(systemParts, "Keep these terms untranslated:\n"+strings.Join(lines, "\n"))
	}

	var userParts []string
	if b.profile.EnableContextual && len(in.RecentContext) > 0 {
		recent := in.RecentContext
		if len(recent) > 2 {
			recent = recent[len(recent)-2:]
		}
		userParts = append(userParts, fmt.Sprintf("[Previous: %s]", strings.Join(recent, " / ")))
	}
	userParts = append(userParts, fmt.Sprintf("%s: %s\n%s:", srcName, in.Text, tgtName))

	return LLMPrompt{
		System: strings.Join(systemParts, "\n\n"),
		User:   strings.Join(userParts, "\n"),
	}
}

// BuildBatch assembles the numbered multi-line prompt for a local
// model. With useBatchPrompt the stricter N-in/N-out system prompt is
// used; otherwise the single-line prompt plus inline rules.
func (b *Builder) BuildBatch(in Input, useBatchPrompt bool) LLMPrompt {
	n := len(in.Texts)
	tgtName := LangName(in.TargetLang)

	numbered := make([]string, 0, n)
	for i, t := range in.Texts {
		numbered = append(numbered, fmt.Sprintf("%d│ %s", i+1, t))
	}
	numberedBatch := strings.Join(numbered, "\n")

	glossarySection := b.glossarySection(in.SeriesGlossary)

	contextSection := ""
	if len(in.RecentContext) > 0 {
		recent := in.RecentContext
		if len(recent) > 3 {
			recent = recent[len(recent)-3:]
		}
		var sb strings.Builder
		sb.WriteString("Previous context (use for consistency, do NOT translate):\n")
		for i, ctx := range recent {
			fmt.Fprintf(&sb, "  [%d] %s\n", i+1, ctx)
		}
		sb.WriteString("\n")
		contextSection = sb.String()
	}

	var system, user string
	if useBatchPrompt {
		system = systemPromptBatch
		if glossarySection != "" {
			system += "\n\n" + glossarySection
		}

		limit := n
		if limit > 4 {
			limit = 4
		}
		exampleLines := make([]string, 0, limit)
		for i := 1; i <= limit; i++ {
			exampleLines = append(exampleLines, fmt.Sprintf("%d│ ...", i))
		}
		example := strings.Join(exampleLines, "\n")
		if n > 4 {
			example += fmt.Sprintf("\n...\n%d│ ...", n)
		}

		user = fmt.Sprintf(
			"%sTranslate the %d lines below to %s. Reply with ONLY %d lines in the format:\n%s\n\nINPUT (%d lines):\n%s",
			contextSection, n, tgtName, n, example, n, numberedBatch,
		)
	} else {
		system = systemPromptSingle
		if glossarySection != "" {
			system += "\n\n" + glossarySection
		}

		user = fmt.Sprintf(
			"%sTranslate ONLY the numbered lines below to %s, keeping tone, slang, and dialogue continuity.\n"+
				"Reply with ONLY the translated lines in the same numbered format (1│ translation):\n\n"+
				"%s\n"+
				"Rules:\n"+
				"- ONLY the numbered lines (format: 1│ translated text)\n"+
				`- Preserve ASS/SSA tags like {\i1}, {\an8}, etc.`+"\n"+
				"- Do not translate proper nouns, sound effects (*sigh*), onomatopoeia\n"+
				"- Use pronouns and tone consistent with the previous context",
			contextSection, tgtName, numberedBatch,
		)
	}

	return LLMPrompt{
		System:  system,
		User:    user,
		Options: b.profile.BatchOllamaOptions(len(numberedBatch)),
	}
}

// BuildDeepL returns the text (context-prefixed when enabled) plus up
// to 50 native glossary entries.
func (b *Builder) BuildDeepL(in Input) (string, []GlossaryEntry) {
	var entries []GlossaryEntry
	if len(in.SeriesGlossary) > 0 && b.glossaries != nil {
		combined := make(map[string]string)
		for k, v := range b.glossaries.GlobalTerms() {
			combined[k] = v
		}
		for k, v := range in.SeriesGlossary {
			combined[k] = v
		}
		for _, k := range sortedKeys(combined) {
			if len(entries) >= 50 {
				break
			}
			entries = append(entries, GlossaryEntry{Source: k, Target: combined[k]})
		}
	}

	text := in.Text
	if b.profile.EnableContextual && len(in.RecentContext) > 0 {
		recent := in.RecentContext
		if len(recent) > 2 {
			recent = recent[len(recent)-2:]
		}
		text = fmt.Sprintf("[Context: %s] %s", strings.Join(recent, " // "), text)
	}
	return text, entries
}

// BuildGoogle inlines up to 10 series terms as a keep-list prefix.
func (b *Builder) BuildGoogle(in Input) string {
	if len(in.SeriesGlossary) == 0 {
		return in.Text
	}
	keys := sortedKeys(in.SeriesGlossary)
	if len(keys) > 10 {
		keys = keys[:10]
	}
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%s", k, in.SeriesGlossary[k]))
	}
	return fmt.Sprintf("[Keep: %s] %s", strings.Join(pairs, ", "), in.Text)
}

// BuildFallback is the bare prompt for backends with no dedicated
// shape.
func (b *Builder) BuildFallback(in Input) LLMPrompt {
	return LLMPrompt{
		System: systemPromptSingle,
		User:   fmt.Sprintf("Translate to %s:\n%s", LangName(in.TargetLang), in.Text),
	}
}

// glossarySection renders the mandatory-terms block: all series terms
// first, then up to 50 globals.
func (b *Builder) glossarySection(seriesTerms map[string]string) string {
	if b.glossaries == nil || len(seriesTerms) == 0 {
		return ""
	}

	var items []string
	for _, k := range sortedKeys(seriesTerms) {
		items = append(items, fmt.Sprintf("  %s → %s", k, seriesTerms[k]))
	}

	global := b.glossaries.GlobalTerms()
	count := 0
	for _, k := range sortedKeys(global) {
		if _, ok := seriesTerms[k]; ok {
			continue
		}
		items = append(items, fmt.Sprintf("  %s → %s", k, global[k]))
		count++
		if count >= 50 {
			break
		}
	}

	if len(items) == 0 {
		return ""
	}
	return "GLOSSÁRIO OBRIGATÓRIO — use exatamente estes termos:\n" +
		strings.Join(items, "\n") +
		"\n\nREGRA CRÍTICA: Mantenha estes termos SEM TRADUZIR em suas respostas."
}

func metadataSection(meta SeriesMetadata) string {
	if meta.Title == "" {
		return ""
	}
	parts := []string{fmt.Sprintf("Série: %s", meta.Title)}
	if len(meta.Genres) > 0 {
		parts = append(parts, fmt.Sprintf("Gêneros: %s", strings.Join(meta.Genres, ", ")))
	}
	if len(meta.Characters) > 0 {
		chars := meta.Characters
		if len(chars) > 10 {
			chars = chars[:10]
		}
		parts = append(parts, fmt.Sprintf("Personagens: %s", strings.Join(chars, ", ")))
	}
	parts = append(parts, fmt.Sprintf("Tipo: %s", meta.DetectType()))
	return strings.Join(parts, "\n")
}

func (b *Builder) contextSection(recent []string) string {
	if !b.profile.EnableContextual || len(recent) == 0 {
		return ""
	}
	lines := []string{"Contexto anterior (leia para consistência, NÃO traduza):"}
	for i, ctx := range recent {
		lines = append(lines, fmt.Sprintf("  [anterior -%d]: %s", len(recent)-i, ctx))
	}
	return strings.Join(lines, "\n")
}

func fewshotSection(examples []Example) string {
	lines := []string{"Exemplos de tradução (siga o mesmo estilo):"}
	for _, ex := range examples {
		lines = append(lines, fmt.Sprintf("  EN: %s", ex.EN))
		lines = append(lines, fmt.Sprintf("  PT: %s", ex.PT))
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// estimateTokens is a rough chars/4 heuristic, enough for budgeting.
func estimateTokens(text string) int {
	return len(text) / 4
}
