package prompt

import (
	"strings"
	"testing"

	"github.com/MimeLyc/batch-sub-translator/internal/glossary"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBuilder(t *testing.T, profile Profile) *Builder {
	t.Helper()
	m, err := glossary.NewManager(t.TempDir())
	require.NoError(t, err)
	return NewBuilder(profile, m)
}

func TestBuild_FullPrompt(t *testing.T) {
	t.Parallel()

	b := newTestBuilder(t, DefaultProfile())
	p := b.Build(Input{
		Text:           "I can't believe it.",
		SourceLang:     "en",
		TargetLang:     "pt-BR",
		SeriesGlossary: map[string]string{"akane": "Akane"},
		RecentContext:  []string{"Ele chegou.", "Abra a porta."},
		Metadata:       SeriesMetadata{Title: "Ranma", Genres: []string{"anime", "comedy"}},
		Fewshot:        FewshotExamples("anime", nil, 2),
	})

	assert.Contains(t, p.System, "professional subtitle translator")
	assert.Contains(t, p.System, "GLOSSÁRIO OBRIGATÓRIO")
	assert.Contains(t, p.System, "akane → Akane")
	assert.Contains(t, p.System, "Série: Ranma")
	assert.Contains(t, p.System, "Tipo: anime")

	assert.Contains(t, p.User, "Exemplos de tradução")
	assert.Contains(t, p.User, "Contexto anterior")
	assert.Contains(t, p.User, "[anterior -1]: Abra a porta.")
	assert.Contains(t, p.User, "English: I can't believe it.")
	assert.True(t, strings.HasSuffix(p.User, "Brazilian Portuguese:"))

	// few-shots come before the sliding context in the user message
	assert.Less(t, strings.Index(p.User, "Exemplos"), strings.Index(p.User, "Contexto anterior"))

	require.NotNil(t, p.Options)
	assert.Equal(t, StopSequences, p.Options["stop"])
	assert.Equal(t, 2048, p.Options["num_ctx"])
}

func TestBuild_FewshotOnlyForEnglishToBrazilian(t *testing.T) {
	t.Parallel()

	b := newTestBuilder(t, DefaultProfile())
	p := b.Build(Input{
		Text:       "Bonjour.",
		SourceLang: "fr",
		TargetLang: "pt-BR",
		Fewshot:    FewshotExamples("", nil, 2),
	})
	assert.NotContains(t, p.User, "Exemplos de tradução")

	p = b.Build(Input{
		Text:       "Hello.",
		SourceLang: "auto",
		TargetLang: "pt-BR",
		Fewshot:    FewshotExamples("", nil, 2),
	})
	assert.Contains(t, p.User, "Exemplos de tradução")
}

func TestBuild_BudgetDropsOptionalSections(t *testing.T) {
	t.Parallel()

	profile := DefaultProfile()
	profile.MaxTokensBudget = 120 // just above the base system prompt
	b := newTestBuilder(t, profile)

	p := b.Build(Input{
		Text:           "Hello.",
		SourceLang:     "en",
		TargetLang:     "pt-BR",
		SeriesGlossary: map[string]string{"akane": "Akane"},
		RecentContext:  []string{"Linha anterior."},
		Fewshot:        FewshotExamples("anime", nil, 4),
	})

	assert.NotContains(t, p.System, "GLOSSÁRIO")
	assert.NotContains(t, p.User, "Exemplos de tradução")
	// the line itself is never dropped
	assert.Contains(t, p.User, "English: Hello.")
}

func TestBuildLean(t *testing.T) {
	t.Parallel()

	b := newTestBuilder(t, DefaultProfile())
	p := b.BuildLean(Input{
		Text:           "Hello.",
		SourceLang:     "en",
		TargetLang:     "pt-BR",
		SeriesGlossary: map[string]string{"akane": "Akane"},
		RecentContext:  []string{"um", "dois", "três"},
	})

	assert.Contains(t, p.System, "Reply with ONLY the translation")
	assert.Contains(t, p.System, "Keep these terms untranslated")
	assert.NotContains(t, p.System, "GLOSSÁRIO")
	// only the last two context lines survive
	assert.Contains(t, p.User, "[Previous: dois / três]")
	assert.NotContains(t, p.User, "um")
	assert.Nil(t, p.Options)
}

func TestBuildBatch_StrictFormat(t *testing.T) {
	t.Parallel()

	b := newTestBuilder(t, DefaultProfile())
	texts := []string{"One.", "Two.", "Three.", "Four.", "Five.", "Six."}
	p := b.BuildBatch(Input{
		Texts:         texts,
		SourceLang:    "en",
		TargetLang:    "pt-BR",
		RecentContext: []string{"a", "b", "c", "d"},
	}, true)

	assert.Contains(t, p.System, "EXACTLY N lines")
	assert.Contains(t, p.User, "1│ One.")
	assert.Contains(t, p.User, "6│ Six.")
	assert.Contains(t, p.User, "INPUT (6 lines):")
	// the format example is elided past four lines
	assert.Contains(t, p.User, "4│ ...\n...\n6│ ...")
	// only the last three context lines are kept
	assert.Contains(t, p.User, "[1] b")
	assert.NotContains(t, p.User, "[1] a")

	predict, ok := p.Options["num_predict"].(int)
	require.True(t, ok)
	assert.GreaterOrEqual(t, predict, 200)
}

func TestBuildBatch_LoosePromptKeepsRules(t *testing.T) {
	t.Parallel()

	b := newTestBuilder(t, DefaultProfile())
	p := b.BuildBatch(Input{
		Texts:      []string{"One.", "Two."},
		SourceLang: "en",
		TargetLang: "pt-BR",
	}, false)

	assert.Contains(t, p.System, "professional subtitle translator")
	assert.Contains(t, p.User, `Preserve ASS/SSA tags like {\i1}, {\an8}, etc.`)
}

func TestBuildDeepL(t *testing.T) {
	t.Parallel()

	b := newTestBuilder(t, DefaultProfile())
	text, entries := b.BuildDeepL(Input{
		Text:           "Hello.",
		SourceLang:     "en",
		TargetLang:     "pt-BR",
		SeriesGlossary: map[string]string{"akane": "Akane"},
		RecentContext:  []string{"Oi.", "Entre."},
	})

	assert.Equal(t, "[Context: Oi. // Entre.] Hello.", text)
	assert.Len(t, entries, 50)
	found := false
	for _, e := range entries {
		if e.Source == "akane" && e.Target == "Akane" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestBuildGoogle(t *testing.T) {
	t.Parallel()

	b := newTestBuilder(t, DefaultProfile())
	out := b.BuildGoogle(Input{
		Text:           "Hello.",
		SeriesGlossary: map[string]string{"akane": "Akane"},
	})
	assert.Equal(t, "[Keep: akane=Akane] Hello.", out)

	out = b.BuildGoogle(Input{Text: "Hello."})
	assert.Equal(t, "Hello.", out)
}

func TestOllamaOptions_ScalesPrediction(t *testing.T) {
	t.Parallel()

	p := DefaultProfile()
	opts := p.OllamaOptions(0)
	assert.Equal(t, 80, opts["num_predict"])

	opts = p.OllamaOptions(100)
	assert.Equal(t, 300, opts["num_predict"])

	opts = p.OllamaOptions(10000)
	assert.Equal(t, 2048, opts["num_predict"])
}

func TestDetectType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		meta SeriesMetadata
		want string
	}{
		{name: "explicit wins", meta: SeriesMetadata{SeriesType: "anime", Genres: []string{"news"}}, want: "anime"},
		{name: "anime genre", meta: SeriesMetadata{Genres: []string{"Action", "Shounen"}}, want: "anime"},
		{name: "documentary genre", meta: SeriesMetadata{Genres: []string{"News"}}, want: "documentary"},
		{name: "default", meta: SeriesMetadata{Genres: []string{"Drama"}}, want: "live_action"},
		{name: "empty", meta: SeriesMetadata{}, want: "live_action"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.meta.DetectType())
		})
	}
}

func TestFewshotExamples(t *testing.T) {
	t.Parallel()

	anime := FewshotExamples("anime", nil, 4)
	assert.Len(t, anime, 4)
	assert.Contains(t, anime[1].EN, "Saiyan")

	byGenre := FewshotExamples("", []string{"unknown", "documentary"}, 4)
	assert.Len(t, byGenre, 3)
	assert.Contains(t, byGenre[0].EN, "migration")

	neutral := FewshotExamples("", nil, 2)
	assert.Len(t, neutral, 2)
	assert.Equal(t, "Se minha vida fosse predeterminada", neutral[0].PT)
}
