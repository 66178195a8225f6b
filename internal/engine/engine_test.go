package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/batch-sub-translator/internal/backend"
	"github.com/MimeLyc/batch-sub-translator/internal/cache"
	"github.com/MimeLyc/batch-sub-translator/internal/classifier"
	"github.com/MimeLyc/batch-sub-translator/internal/glossary"
	"github.com/MimeLyc/batch-sub-translator/internal/prompt"
)

type fakeBackend struct {
	kind    backend.Kind
	calls   atomic.Int32
	respond func(req backend.Request) (string, error)
}

func (f *fakeBackend) Name() string { return "fake" }
func (f *fakeBackend) Kind() backend.Kind {
	if f.kind == "" {
		return backend.KindOllama
	}
	return f.kind
}
func (f *fakeBackend) Translate(_ context.Context, req backend.Request) (string, error) {
	f.calls.Add(1)
	return f.respond(req)
}

func newTestEngine(t *testing.T, fake backend.Translator, opts Options) *Engine {
	t.Helper()
	dir := t.TempDir()

	c, err := cache.New(filepath.Join(dir, "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	g, err := glossary.NewManager(filepath.Join(dir, "glossaries"))
	require.NoError(t, err)

	if opts.SourceLang == "" {
		opts.SourceLang = "en"
	}
	if opts.TargetLang == "" {
		opts.TargetLang = "pt-BR"
	}
	builder := prompt.NewBuilder(prompt.DefaultProfile(), g)
	return New(fake, c, g, classifier.New(), builder, opts)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

const dedupeSRT = `1
00:00:01,000 --> 00:00:02,000
We need to move now.

2
00:00:03,000 --> 00:00:04,000
We need to move now.
`

func TestTranslateFile_DeduplicatesIdenticalLines(t *testing.T) {
	t.Parallel()

	fake := &fakeBackend{respond: func(req backend.Request) (string, error) {
		return "Precisamos ir agora.", nil
	}}
	e := newTestEngine(t, fake, Options{})

	path := filepath.Join(t.TempDir(), "episode.srt")
	writeFile(t, path, dedupeSRT)

	result, err := e.TranslateFile(context.Background(), path, prompt.SeriesMetadata{})
	require.NoError(t, err)
	assert.Equal(t, int32(1), fake.calls.Load())
	assert.Equal(t, 2, result.Stats.TotalLines)
	assert.Equal(t, 2, result.Stats.SuccessfulTranslations)
	assert.Equal(t, 1, result.Stats.CacheHits)

	out, err := os.ReadFile(result.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(out), "Precisamos ir agora."))
	assert.Equal(t, filepath.Join(filepath.Dir(path), "episode.pt-BR.srt"), result.OutputPath)
}

func TestTranslateFile_SoundEffectsSkipBackend(t *testing.T) {
	t.Parallel()

	fake := &fakeBackend{respond: func(req backend.Request) (string, error) {
		t.Fatal("backend must not be called for sound effects")
		return "", nil
	}}
	e := newTestEngine(t, fake, Options{})

	path := filepath.Join(t.TempDir(), "episode.srt")
	writeFile(t, path, `1
00:00:01,000 --> 00:00:02,000
[door creaking]
`)

	result, err := e.TranslateFile(context.Background(), path, prompt.SeriesMetadata{})
	require.NoError(t, err)
	assert.Equal(t, int32(0), fake.calls.Load())
	assert.Equal(t, 1, result.Stats.ClassifiedSFX)

	out, err := os.ReadFile(result.OutputPath)
	require.NoError(t, err)
	assert.Contains(t, string(out), "[porta rangendo]")
}

const italicASS = `[Script Info]
Title: test

[Events]
Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text
Dialogue: 0,0:00:01.00,0:00:03.00,Default,,0,0,0,,{\i1}Hello{\i0}
`

func TestTranslateFile_PreservesASSTags(t *testing.T) {
	t.Parallel()

	fake := &fakeBackend{respond: func(req backend.Request) (string, error) {
		return "Olá", nil
	}}
	e := newTestEngine(t, fake, Options{})

	path := filepath.Join(t.TempDir(), "episode.ass")
	writeFile(t, path, italicASS)

	result, err := e.TranslateFile(context.Background(), path, prompt.SeriesMetadata{})
	require.NoError(t, err)

	out, err := os.ReadFile(result.OutputPath)
	require.NoError(t, err)
	assert.Contains(t, string(out), `{\i1}Olá{\i0}`)
	assert.NotContains(t, string(out), "Hello")
}

func TestTranslateFile_GoodTranslationIsCached(t *testing.T) {
	t.Parallel()

	fake := &fakeBackend{respond: func(req backend.Request) (string, error) {
		return "Ela é médica.", nil
	}}
	e := newTestEngine(t, fake, Options{})

	dir := t.TempDir()
	content := `1
00:00:01,000 --> 00:00:02,000
She is a doctor.
`
	first := filepath.Join(dir, "ep1.srt")
	writeFile(t, first, content)

	result, err := e.TranslateFile(context.Background(), first, prompt.SeriesMetadata{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Stats.SuccessfulTranslations)
	assert.Equal(t, int32(1), fake.calls.Load())

	// an identical line in another file resolves from the cache
	second := filepath.Join(dir, "ep2.srt")
	writeFile(t, second, content)
	result, err = e.TranslateFile(context.Background(), second, prompt.SeriesMetadata{})
	require.NoError(t, err)
	assert.Equal(t, int32(1), fake.calls.Load())
	assert.Equal(t, 1, result.Stats.CacheHits)
}

func TestTranslateFile_SelfConsistencyFixesInversion(t *testing.T) {
	t.Parallel()

	fake := &fakeBackend{respond: func(req backend.Request) (string, error) {
		temp, _ := req.Prompt.Options["temperature"].(float64)
		if temp > 0.5 {
			return "Eu não sei.", nil
		}
		return "Eu sei.", nil
	}}
	e := newTestEngine(t, fake, Options{})

	path := filepath.Join(t.TempDir(), "episode.srt")
	writeFile(t, path, `1
00:00:01,000 --> 00:00:02,000
I don't know.
`)

	result, err := e.TranslateFile(context.Background(), path, prompt.SeriesMetadata{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Stats.SelfConsistencyTriggered)
	assert.Equal(t, 1, result.Stats.SuccessfulTranslations)
	assert.Equal(t, 0, result.Stats.ValidationRejections)

	out, err := os.ReadFile(result.OutputPath)
	require.NoError(t, err)
	assert.Contains(t, string(out), "Eu não sei.")
}

func TestTranslateFile_RejectionKeepsOriginal(t *testing.T) {
	t.Parallel()

	fake := &fakeBackend{respond: func(req backend.Request) (string, error) {
		// inverted on both attempts
		return "Eu sei.", nil
	}}
	e := newTestEngine(t, fake, Options{})

	path := filepath.Join(t.TempDir(), "episode.srt")
	writeFile(t, path, `1
00:00:01,000 --> 00:00:02,000
I don't know.
`)

	result, err := e.TranslateFile(context.Background(), path, prompt.SeriesMetadata{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Stats.ValidationRejections)

	out, err := os.ReadFile(result.OutputPath)
	require.NoError(t, err)
	assert.Contains(t, string(out), "I don't know.")
	assert.NotContains(t, string(out), "Eu sei.")
}

func TestTranslateFile_PrescanRunsOncePerSeries(t *testing.T) {
	t.Parallel()

	var prescans atomic.Int32
	fake := &fakeBackend{respond: func(req backend.Request) (string, error) {
		if strings.Contains(req.Prompt.User, "proper nouns") {
			prescans.Add(1)
			return `{"Akane": "Akane"}`, nil
		}
		return "Akane é forte.", nil
	}}
	e := newTestEngine(t, fake, Options{})

	dir := filepath.Join(t.TempDir(), "tvdbid=12345")
	content := `1
00:00:01,000 --> 00:00:02,000
Akane is strong.
`
	first := filepath.Join(dir, "ep1.srt")
	writeFile(t, first, content)

	result, err := e.TranslateFile(context.Background(), first, prompt.SeriesMetadata{Title: "Test Show"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), prescans.Load())

	assert.Equal(t, 1, e.glossaries.EpisodesScanned("12345"))
	terms := e.glossaries.Terms("12345")
	require.Contains(t, terms, "akane")
	assert.Equal(t, glossary.SourcePrescan, terms["akane"].Source)

	out, err := os.ReadFile(result.OutputPath)
	require.NoError(t, err)
	assert.Contains(t, string(out), "Akane é forte.")

	// a second episode of the same series skips the prescan
	second := filepath.Join(dir, "ep2.srt")
	writeFile(t, second, `1
00:00:01,000 --> 00:00:02,000
Akane is very strong.
`)
	_, err = e.TranslateFile(context.Background(), second, prompt.SeriesMetadata{Title: "Test Show"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), prescans.Load())
}

func TestTranslateFile_SkipExisting(t *testing.T) {
	t.Parallel()

	fake := &fakeBackend{respond: func(req backend.Request) (string, error) {
		return "Olá.", nil
	}}
	e := newTestEngine(t, fake, Options{SkipExisting: true})

	dir := t.TempDir()
	path := filepath.Join(dir, "episode.srt")
	writeFile(t, path, dedupeSRT)
	writeFile(t, filepath.Join(dir, "episode.pt-BR.srt"), "existing")

	result, err := e.TranslateFile(context.Background(), path, prompt.SeriesMetadata{})
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Equal(t, int32(0), fake.calls.Load())
}

func TestTranslateFile_BatchWithFallback(t *testing.T) {
	t.Parallel()

	var batchCalls atomic.Int32
	fake := &fakeBackend{respond: func(req backend.Request) (string, error) {
		if strings.Contains(req.Prompt.User, "│") {
			batchCalls.Add(1)
			return "1│ Primeira linha aqui.\n2│ Segunda linha aqui.\n3│ Terceira linha aqui.\n4│ Quarta linha aqui.", nil
		}
		return "Linha avulsa traduzida.", nil
	}}
	e := newTestEngine(t, fake, Options{SRTBatchSize: 4})

	var sb strings.Builder
	originals := []string{
		"The first line is here.",
		"The second line is here.",
		"The third line is here.",
		"The fourth line is here.",
		"One leftover line remains.",
	}
	for i, text := range originals {
		sb.WriteString(strings.Join([]string{
			string(rune('1' + i)),
			"00:00:0" + string(rune('1'+i)) + ",000 --> 00:00:0" + string(rune('2'+i)) + ",000",
			text, "", "",
		}, "\n"))
	}

	path := filepath.Join(t.TempDir(), "episode.srt")
	writeFile(t, path, sb.String())

	result, err := e.TranslateFile(context.Background(), path, prompt.SeriesMetadata{})
	require.NoError(t, err)
	assert.Equal(t, int32(1), batchCalls.Load())
	assert.Equal(t, 5, result.Stats.TotalLines)
	assert.Equal(t, 5, result.Stats.ClassifiedDialogue)
	assert.Equal(t, 5, result.Stats.CacheMisses)
	assert.Equal(t, 5, result.Stats.SuccessfulTranslations)

	out, err := os.ReadFile(result.OutputPath)
	require.NoError(t, err)
	assert.Contains(t, string(out), "Primeira linha aqui.")
	assert.Contains(t, string(out), "Quarta linha aqui.")
	assert.Contains(t, string(out), "Linha avulsa traduzida.")
}

func TestTranslateFile_BatchResultsAreCached(t *testing.T) {
	t.Parallel()

	fake := &fakeBackend{respond: func(req backend.Request) (string, error) {
		if !strings.Contains(req.Prompt.User, "│") {
			return "", fmt.Errorf("unexpected single-line call: %q", req.Prompt.User)
		}
		return "1│ Primeira linha aqui.\n2│ Segunda linha aqui.\n3│ Terceira linha aqui.\n4│ Quarta linha aqui.", nil
	}}
	e := newTestEngine(t, fake, Options{SRTBatchSize: 4})

	content := `1
00:00:01,000 --> 00:00:02,000
The first line is here.

2
00:00:03,000 --> 00:00:04,000
The second line is here.

3
00:00:05,000 --> 00:00:06,000
The third line is here.

4
00:00:07,000 --> 00:00:08,000
The fourth line is here.
`
	dir := t.TempDir()
	first := filepath.Join(dir, "ep1.srt")
	writeFile(t, first, content)

	result, err := e.TranslateFile(context.Background(), first, prompt.SeriesMetadata{})
	require.NoError(t, err)
	assert.Equal(t, int32(1), fake.calls.Load())
	assert.Equal(t, 4, result.Stats.CacheMisses)
	assert.Equal(t, 4, result.Stats.SuccessfulTranslations)

	// the same block in another episode never reaches the backend
	second := filepath.Join(dir, "ep2.srt")
	writeFile(t, second, content)
	result, err = e.TranslateFile(context.Background(), second, prompt.SeriesMetadata{})
	require.NoError(t, err)
	assert.Equal(t, int32(1), fake.calls.Load())
	assert.Equal(t, 4, result.Stats.TotalLines)
	assert.Equal(t, 4, result.Stats.CacheHits)
	assert.Equal(t, 4, result.Stats.SuccessfulTranslations)

	out, err := os.ReadFile(result.OutputPath)
	require.NoError(t, err)
	assert.Contains(t, string(out), "Primeira linha aqui.")
	assert.Contains(t, string(out), "Quarta linha aqui.")
}

func TestTranslateFile_SelfConsistencyRescuesInvalidTranslation(t *testing.T) {
	t.Parallel()

	fake := &fakeBackend{respond: func(req backend.Request) (string, error) {
		temp, _ := req.Prompt.Options["temperature"].(float64)
		if temp > 0.5 {
			return "Ele não sabe.", nil
		}
		// inverted and with the wrong pronoun, fails validation outright
		return "Ela sabe.", nil
	}}
	e := newTestEngine(t, fake, Options{})

	path := filepath.Join(t.TempDir(), "episode.srt")
	writeFile(t, path, `1
00:00:01,000 --> 00:00:02,000
He doesn't know.
`)

	result, err := e.TranslateFile(context.Background(), path, prompt.SeriesMetadata{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Stats.SelfConsistencyTriggered)
	assert.Equal(t, 0, result.Stats.ValidationRejections)
	assert.Equal(t, 1, result.Stats.SuccessfulTranslations)

	out, err := os.ReadFile(result.OutputPath)
	require.NoError(t, err)
	assert.Contains(t, string(out), "Ele não sabe.")
}

func TestTranslateFile_QuotaStopsFurtherCalls(t *testing.T) {
	t.Parallel()

	fake := &fakeBackend{kind: backend.KindGPT, respond: func(req backend.Request) (string, error) {
		return "", fmt.Errorf("gpt: you exceeded your current quota: %w", backend.ErrQuota)
	}}
	e := newTestEngine(t, fake, Options{})

	path := filepath.Join(t.TempDir(), "episode.srt")
	writeFile(t, path, `1
00:00:01,000 --> 00:00:02,000
The first line is here.

2
00:00:03,000 --> 00:00:04,000
The second line is here.

3
00:00:05,000 --> 00:00:06,000
The third line is here.
`)

	result, err := e.TranslateFile(context.Background(), path, prompt.SeriesMetadata{})
	require.NoError(t, err)
	assert.Equal(t, int32(1), fake.calls.Load())
	assert.Equal(t, 3, result.Stats.APIFailures)
	assert.Equal(t, 0, result.Stats.SuccessfulTranslations)

	// every line keeps its original text
	out, err := os.ReadFile(result.OutputPath)
	require.NoError(t, err)
	assert.Contains(t, string(out), "The first line is here.")
	assert.Contains(t, string(out), "The third line is here.")
}

func TestTranslateFile_ChatBackendsGetLeanPrompt(t *testing.T) {
	t.Parallel()

	var system string
	fake := &fakeBackend{kind: backend.KindGPT, respond: func(req backend.Request) (string, error) {
		system = req.Prompt.System
		return "Ela é médica.", nil
	}}
	e := newTestEngine(t, fake, Options{})

	path := filepath.Join(t.TempDir(), "episode.srt")
	writeFile(t, path, `1
00:00:01,000 --> 00:00:02,000
She is a doctor.
`)

	_, err := e.TranslateFile(context.Background(), path, prompt.SeriesMetadata{})
	require.NoError(t, err)
	assert.Equal(t, int32(1), fake.calls.Load())
	assert.Contains(t, system, "Reply with ONLY the translation")
	assert.NotContains(t, system, "MANDATORY RULES")
}

func TestBatchAutoDisable(t *testing.T) {
	t.Parallel()

	fake := &fakeBackend{respond: func(req backend.Request) (string, error) {
		if strings.Contains(req.Prompt.User, "│") {
			return "nonsense without numbering", nil
		}
		return "Linha traduzida com sucesso.", nil
	}}
	e := newTestEngine(t, fake, Options{SRTBatchSize: 4})

	for i := 0; i < maxBatchFailures; i++ {
		e.recordBatchFailure()
	}
	assert.False(t, e.batchAllowed())

	// with batching benched, everything goes line by line
	path := filepath.Join(t.TempDir(), "episode.srt")
	writeFile(t, path, dedupeSRT)
	result, err := e.TranslateFile(context.Background(), path, prompt.SeriesMetadata{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Stats.SuccessfulTranslations)
}

func TestSimpleTranslation(t *testing.T) {
	t.Parallel()

	out, ok := SimpleTranslation("Roger.", "auto", "pt-BR")
	assert.True(t, ok)
	assert.Equal(t, "Entendido.", out)

	out, ok = SimpleTranslation("Shit!", "en", "pt-BR")
	assert.True(t, ok)
	assert.Equal(t, "Merda!", out)

	_, ok = SimpleTranslation("Something longer.", "en", "pt-BR")
	assert.False(t, ok)

	_, ok = SimpleTranslation("Roger.", "en", "es")
	assert.False(t, ok)
}

func TestSeriesIDFromPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "12345", SeriesIDFromPath("/tv/Show tvdbid=12345/s01e01.srt"))
	assert.Equal(t, "98765", SeriesIDFromPath(`C:\tv\show tvdbid_98765\ep.ass`))
	assert.Equal(t, "1234567", SeriesIDFromPath("/media/1234567/episode.srt"))
	assert.Equal(t, "", SeriesIDFromPath("/media/show/episode.srt"))
}

func TestOutputPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/tv/ep.pt-BR.srt", OutputPath("/tv/ep.srt", "pt-BR"))
	assert.Equal(t, "/tv/ep.pt-BR.ass", OutputPath("/tv/ep.ass", "pt-BR"))
	assert.Equal(t, "/tv/ep.pt-BR.ass", OutputPath("/tv/ep.sub", "pt-BR"))
}

func TestCleanResponse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Olá, tudo bem?", "Olá, tudo bem?"},
		{"timestamps pass through", "00:00:01,000 --> 00:00:02,000", "00:00:01,000 --> 00:00:02,000"},
		{"prefix stripped", "Portuguese: Olá, amigo.", "Olá, amigo."},
		{"english echo stripped", "Olá, amigo. English: Hello, friend.", "Olá, amigo."},
		{"html entities", "Ele disse &quot;sim&quot; e saiu.", `Ele disse "sim" e saiu.`},
		{"asian punctuation", "Olá。Tudo bem？", "Olá.Tudo bem?"},
		{"excess dots", "Espere......", "Espere..."},
		{"cjk stripped", "Olá 世界 mundo", "Olá mundo"},
		{"wrapping quotes", `"Olá, mundo."`, "Olá, mundo."},
		{"grammar fix", "Se eu foresse você...", "Se eu fosse você..."},
		{"em onde fix", "Em onde você está?", "Onde você está?"},
		{"corrupted tail", "Olá amigoaaaaaaaaaaaaaaaaaaa", ""},
		{"double spaces", "Olá,  mundo.", "Olá, mundo."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanResponse(tt.in))
		})
	}
}

func TestCleanResponse_StripsExplanation(t *testing.T) {
	t.Parallel()

	long := "Como tradutor profissional, analisei o contexto e o glossário desta série para encontrar a tradução mais natural possível para esta linha. Vou embora." +
		" A escolha considera os termos da série."
	assert.Equal(t, "Vou embora.", CleanResponse(long))
}
