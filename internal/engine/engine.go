package engine

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/abadojack/whatlanggo"

	"github.com/MimeLyc/batch-sub-translator/internal/backend"
	"github.com/MimeLyc/batch-sub-translator/internal/cache"
	"github.com/MimeLyc/batch-sub-translator/internal/classifier"
	"github.com/MimeLyc/batch-sub-translator/internal/glossary"
	"github.com/MimeLyc/batch-sub-translator/internal/job"
	"github.com/MimeLyc/batch-sub-translator/internal/prompt"
	"github.com/MimeLyc/batch-sub-translator/internal/subtitle"
	"github.com/MimeLyc/batch-sub-translator/internal/validator"
	"github.com/MimeLyc/batch-sub-translator/pkg/log"
)

const (
	// terms injected into prompts per line
	maxPromptGlossaryTerms = 30
	// occurrences before an auto-tracked word enters the glossary
	autoGlossaryMinOccurrences = 3
	// batch failures (with zero successes) before batching turns off
	maxBatchFailures = 3

	selfConsistencyThreshold = 0.6
)

// Options configure one Engine instance.
type Options struct {
	SourceLang   string
	TargetLang   string
	SkipExisting bool
	SRTBatchSize int
	ASSBatchSize int
}

// Result summarizes one translated file.
type Result struct {
	OutputPath string
	Skipped    bool
	Stats      job.Stats
}

// Engine translates whole subtitle files: classification, caching,
// glossary enforcement, prompting, validation, and self-consistency
// retries, one file per call.
type Engine struct {
	translator backend.Translator
	cache      *cache.Cache
	glossaries *glossary.Manager
	classifier *classifier.Classifier
	builder    *prompt.Builder
	opts       Options
	reporter   ProgressReporter

	mu             sync.Mutex
	benched        bool
	batchDisabled  bool
	batchFailures  int
	batchSuccesses int
}

func New(t backend.Translator, c *cache.Cache, g *glossary.Manager, cl *classifier.Classifier, b *prompt.Builder, opts Options) *Engine {
	if opts.TargetLang == "" {
		opts.TargetLang = "pt-BR"
	}
	return &Engine{
		translator: t,
		cache:      c,
		glossaries: g,
		classifier: cl,
		builder:    b,
		opts:       opts,
	}
}

// SetReporter attaches an optional progress sink.
func (e *Engine) SetReporter(r ProgressReporter) {
	e.reporter = r
}

func (e *Engine) reportProgress(path string, doneLines, totalLines int) {
	if e.reporter == nil || totalLines == 0 {
		return
	}
	e.reporter.Progress(path, doneLines*100/totalLines)
}

func (e *Engine) effectiveSource() string {
	src := strings.ToLower(e.opts.SourceLang)
	if src == "" || src == "auto" {
		return "en"
	}
	return e.opts.SourceLang
}

// TranslateFile translates one subtitle file and writes the result next
// to it. Already-translated files are skipped when configured so.
func (e *Engine) TranslateFile(ctx context.Context, path string, meta prompt.SeriesMetadata) (*Result, error) {
	out := OutputPath(path, e.opts.TargetLang)
	if e.opts.SkipExisting {
		if _, err := os.Stat(out); err == nil {
			log.Info("already translated: %s", filepath.Base(out))
			return &Result{OutputPath: out, Skipped: true}, nil
		}
	}

	file, err := subtitle.Parse(path)
	if err != nil {
		return nil, err
	}

	seriesID := SeriesIDFromPath(path)
	profile := e.builder.Profile()

	j := job.New(path, seriesID, e.opts.SourceLang, e.opts.TargetLang, profile.ContextWindowSize, profile.EnableAutoGlossary)
	j.OutputPath = out

	// one light prescan per series, before the first episode
	if seriesID != "" && profile.EnableAutoGlossary && e.glossaries.EpisodesScanned(seriesID) == 0 {
		e.prescan(ctx, file, seriesID, meta.Title)
	}

	e.translateEntries(ctx, j, file, seriesID, meta)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := subtitle.Emit(file, out); err != nil {
		return nil, err
	}

	// whole-file gate warns but never discards a finished translation
	if original, rErr := os.ReadFile(path); rErr == nil {
		if translated, rErr := os.ReadFile(out); rErr == nil {
			if ok, msg := validator.ValidateTranslation(string(original), string(translated)); !ok {
				log.Warn("quality below target for %s: %s (keeping output)", filepath.Base(out), msg)
			}
		}
	}

	if seriesID != "" && profile.EnableAutoGlossary {
		if suggested := j.SuggestedGlossary(autoGlossaryMinOccurrences); len(suggested) > 0 {
			if err := e.glossaries.MergeSuggested(seriesID, suggested, autoGlossaryMinOccurrences); err != nil {
				log.Warn("merge suggested glossary for series %s: %v", seriesID, err)
			}
		}
	}

	e.logStats(j)
	return &Result{OutputPath: out, Stats: j.Stats}, nil
}

// translateEntries walks the cues in order, deduplicating identical
// lines within the file and batching dialogue when the backend is
// local.
func (e *Engine) translateEntries(ctx context.Context, j *job.TranslationJob, file *subtitle.File, seriesID string, meta prompt.SeriesMetadata) {
	var items []int
	for i := range file.Entries {
		if e.isTranslatable(file.Entries[i].PlainText) {
			items = append(items, i)
		}
	}
	if len(items) == 0 {
		log.Warn("no translatable lines in %s", filepath.Base(file.Path))
		return
	}
	log.Info("translating %d lines from %s", len(items), filepath.Base(file.Path))

	batchSize := e.opts.ASSBatchSize
	if file.Format == subtitle.FormatSRT {
		batchSize = e.opts.SRTBatchSize
	}

	done := make(map[string]string) // plain text -> final translation, "" keeps the original
	pos := 0
	for pos < len(items) {
		if ctx.Err() != nil {
			return
		}
		e.reportProgress(file.Path, pos, len(items))
		idx := items[pos]
		text := file.Entries[idx].PlainText

		// repeats share the first occurrence's translation and count
		// as cache hits
		if translated, ok := done[text]; ok {
			j.Stats.TotalLines++
			j.Stats.CacheHits++
			if translated != "" {
				j.Stats.SuccessfulTranslations++
			}
			e.apply(file, idx, translated)
			pos++
			continue
		}

		// non-dialogue lines never reach the backend
		class, processed := e.classifier.Classify(text)
		j.Stats.TotalLines++
		switch class {
		case classifier.Dialogue:
			j.Stats.ClassifiedDialogue++
		case classifier.SoundEffect:
			j.Stats.ClassifiedSFX++
			j.Stats.SuccessfulTranslations++
			translated := ""
			if processed != text {
				translated = processed
			}
			done[text] = translated
			e.apply(file, idx, translated)
			pos++
			continue
		case classifier.MusicLyrics:
			j.Stats.ClassifiedMusic++
			done[text] = ""
			pos++
			continue
		case classifier.TechnicalTag:
			j.Stats.ClassifiedTag++
			done[text] = ""
			pos++
			continue
		case classifier.Untranslatable:
			j.Stats.ClassifiedUntranslatable++
			done[text] = ""
			pos++
			continue
		}

		if simple, ok := SimpleTranslation(text, e.opts.SourceLang, e.opts.TargetLang); ok {
			j.Stats.SuccessfulTranslations++
			done[text] = simple
			e.apply(file, idx, simple)
			pos++
			continue
		}

		// every pending dialogue line probes the cache here, whether it
		// ends up in a batch or goes alone
		prev, next := neighbors(file, items, pos)
		src := e.effectiveSource()
		if cached, ok := e.cache.Get(ctx, text, prev, next, src, e.opts.TargetLang); ok {
			if !strings.EqualFold(strings.TrimSpace(cached), strings.TrimSpace(text)) {
				j.Stats.CacheHits++
				j.Stats.SuccessfulTranslations++
				done[text] = cached
				e.apply(file, idx, cached)
				j.AddContext(cached)
				pos++
				continue
			}
			log.Warn("identical cache entry, retranslating: %q", truncate(text, 80))
			j.Stats.RetryCount++
		} else {
			j.Stats.CacheMisses++
		}

		if batchSize >= 4 && backend.IsLocal(e.translator.Kind()) && e.batchAllowed() && !e.isBenched() {
			blockPos, blockTexts := e.collectBlock(ctx, file, items, pos, batchSize, done)
			if len(blockTexts) == batchSize {
				prevs := make([]string, len(blockPos))
				nexts := make([]string, len(blockPos))
				for i, p := range blockPos {
					prevs[i], nexts[i] = neighbors(file, items, p)
				}
				if results, ok := e.translateBatch(ctx, j, blockTexts, prevs, nexts, seriesID, meta); ok {
					for i, p := range blockPos {
						if i > 0 {
							// the first line was counted at the loop top
							j.Stats.TotalLines++
							j.Stats.ClassifiedDialogue++
							j.Stats.CacheMisses++
						}
						done[blockTexts[i]] = results[i]
						e.apply(file, items[p], results[i])
						j.Stats.SuccessfulTranslations++
						j.AddContext(results[i])
						j.TrackAutoGlossary(blockTexts[i], results[i])
					}
					pos += len(blockPos)
					continue
				}
			}
		}

		if batchSize >= 2 && backend.IsLocal(e.translator.Kind()) && !e.isBenched() && pos+1 < len(items) {
			if e.pairable(ctx, file, items, pos, done) {
				nextText := file.Entries[items[pos+1]].PlainText
				nprev, nnext := neighbors(file, items, pos+1)
				results, ok := e.translateBatch(ctx, j, []string{text, nextText},
					[]string{prev, nprev}, []string{next, nnext}, seriesID, meta)
				if ok {
					for i, t := range []string{text, nextText} {
						if i > 0 {
							j.Stats.TotalLines++
							j.Stats.ClassifiedDialogue++
							j.Stats.CacheMisses++
						}
						done[t] = results[i]
						e.apply(file, items[pos+i], results[i])
						j.Stats.SuccessfulTranslations++
						j.AddContext(results[i])
						j.TrackAutoGlossary(t, results[i])
					}
					pos += 2
					continue
				}
			}
		}

		translated := e.translateLine(ctx, j, text, prev, next, seriesID, meta)
		done[text] = translated
		e.apply(file, idx, translated)
		pos++
	}
	e.reportProgress(file.Path, len(items), len(items))
}

// neighbors returns the surrounding plain texts for the item at p, used
// both for contextual cache keys and for prompt context.
func neighbors(file *subtitle.File, items []int, p int) (prev, next string) {
	if p > 0 {
		prev = file.Entries[items[p-1]].PlainText
	}
	if p+1 < len(items) {
		next = file.Entries[items[p+1]].PlainText
	}
	return prev, next
}

// collectBlock gathers the next size pending dialogue texts starting at
// pos. It stops at lines already translated in this file, at repeats,
// at non-dialogue lines, and at cached lines, so those resolve at their
// own loop iteration instead of burning a batch slot.
func (e *Engine) collectBlock(ctx context.Context, file *subtitle.File, items []int, pos, size int, done map[string]string) ([]int, []string) {
	var blockPos []int
	var blockTexts []string
	seen := make(map[string]struct{})
	src := e.effectiveSource()
	for p := pos; p < len(items) && len(blockTexts) < size; p++ {
		text := file.Entries[items[p]].PlainText
		if _, ok := done[text]; ok {
			break
		}
		if _, dup := seen[text]; dup {
			break
		}
		if p > pos {
			if class, _ := e.classifier.Classify(text); class != classifier.Dialogue {
				break
			}
			prev, next := neighbors(file, items, p)
			if cached, ok := e.cache.Get(ctx, text, prev, next, src, e.opts.TargetLang); ok &&
				!strings.EqualFold(strings.TrimSpace(cached), strings.TrimSpace(text)) {
				break
			}
		}
		seen[text] = struct{}{}
		blockPos = append(blockPos, p)
		blockTexts = append(blockTexts, text)
	}
	return blockPos, blockTexts
}

// pairable reports whether the line after pos can join a micro-batch:
// pending, distinct, dialogue, and not already cached.
func (e *Engine) pairable(ctx context.Context, file *subtitle.File, items []int, pos int, done map[string]string) bool {
	text := file.Entries[items[pos]].PlainText
	nextText := file.Entries[items[pos+1]].PlainText
	if _, seen := done[nextText]; seen || nextText == text {
		return false
	}
	if class, _ := e.classifier.Classify(nextText); class != classifier.Dialogue {
		return false
	}
	nprev, nnext := neighbors(file, items, pos+1)
	if cached, ok := e.cache.Get(ctx, nextText, nprev, nnext, e.effectiveSource(), e.opts.TargetLang); ok &&
		!strings.EqualFold(strings.TrimSpace(cached), strings.TrimSpace(nextText)) {
		return false
	}
	return true
}

func (e *Engine) apply(file *subtitle.File, idx int, translated string) {
	if translated == "" {
		return
	}
	entry := &file.Entries[idx]
	entry.TranslatedText = subtitle.ReplacePlain(*entry, translated)
}

// translateBatch sends a numbered block to a local model. Failure never
// loses lines, the caller falls back to smaller batches or single
// calls. prevs and nexts carry each line's neighbors for the cache key.
func (e *Engine) translateBatch(ctx context.Context, j *job.TranslationJob, texts, prevs, nexts []string, seriesID string, meta prompt.SeriesMetadata) ([]string, bool) {
	in := prompt.Input{
		Texts:          texts,
		SourceLang:     e.effectiveSource(),
		TargetLang:     e.opts.TargetLang,
		SeriesGlossary: e.seriesTerms(seriesID),
		RecentContext:  j.RecentContext(2),
		Metadata:       meta,
	}
	p := e.builder.BuildBatch(in, true)

	raw, err := e.translator.Translate(ctx, backend.Request{
		SourceLang: e.effectiveSource(),
		TargetLang: e.opts.TargetLang,
		Prompt:     p,
	})
	if err != nil {
		j.Stats.APIFailures++
		if backend.IsQuotaError(err) {
			e.bench(err)
		}
		e.recordBatchFailure()
		return nil, false
	}

	parsed := backend.ParseBatchResponse(raw, len(texts))
	if parsed == nil {
		e.recordBatchFailure()
		return nil, false
	}
	out := make([]string, len(texts))
	for i, text := range texts {
		reply, ok := parsed[i+1]
		if !ok {
			e.recordBatchFailure()
			return nil, false
		}
		clean := CleanResponse(reply)
		if clean == "" || strings.EqualFold(strings.TrimSpace(clean), strings.TrimSpace(text)) {
			e.recordBatchFailure()
			return nil, false
		}
		out[i] = e.glossaries.ApplyToText(seriesID, clean)
	}
	src := e.effectiveSource()
	for i := range texts {
		e.cache.Set(ctx, texts[i], prevs[i], nexts[i], src, e.opts.TargetLang, out[i], e.translator.Name())
	}
	e.recordBatchSuccess()
	return out, true
}

// translateLine runs the full single-line pipeline. An empty return
// keeps the original text in place. The caller has already checked the
// cache and the simple-translation table.
func (e *Engine) translateLine(ctx context.Context, j *job.TranslationJob, text, prev, next, seriesID string, meta prompt.SeriesMetadata) string {
	if e.isBenched() {
		j.Stats.APIFailures++
		return ""
	}

	req := e.buildRequest(j, text, seriesID, meta, e.builder)
	result, err := e.translator.Translate(ctx, req)
	if err != nil {
		j.Stats.APIFailures++
		if backend.IsQuotaError(err) {
			e.bench(err)
		}
		log.Warn("%s failed for %q: %v", e.translator.Name(), truncate(text, 50), err)
		return ""
	}

	clean := CleanResponse(result)
	if clean == "" {
		j.Stats.APIFailures++
		return ""
	}
	if strings.EqualFold(strings.TrimSpace(clean), strings.TrimSpace(text)) {
		j.Stats.RetryCount++
		log.Warn("translation identical to original: %q", truncate(text, 80))
		return ""
	}
	clean = e.glossaries.ApplyToText(seriesID, clean)

	// a local model gets one self-consistency retry whether the first
	// candidate scored low or failed validation outright
	check := validator.ValidateLine(text, clean)
	if backend.IsLocal(e.translator.Kind()) {
		if !check.Valid || check.Confidence < selfConsistencyThreshold {
			clean, check = e.selfConsistency(ctx, j, text, clean, check, seriesID, meta)
		}
		if !check.Valid || check.Confidence < selfConsistencyThreshold {
			j.Stats.ValidationRejections++
			log.Warn("validation rejected after retry (%s): %q", check.Message, truncate(text, 50))
			return ""
		}
	} else if !check.Valid {
		j.Stats.ValidationRejections++
		log.Warn("validation rejected (%s): %q", check.Message, truncate(text, 50))
		return ""
	}
	if !validator.IsColloquialValid(clean) {
		j.Stats.ValidationRejections++
		log.Warn("slang-heavy translation rejected: %q", truncate(text, 50))
		return ""
	}

	e.cache.Set(ctx, text, prev, next, e.effectiveSource(), e.opts.TargetLang, clean, e.translator.Name())
	j.Stats.SuccessfulTranslations++
	j.AddContext(clean)
	j.TrackAutoGlossary(text, clean)
	return clean
}

// selfConsistency retranslates at a higher temperature and keeps the
// candidate the validator trusts more; on a tie the shorter one wins.
func (e *Engine) selfConsistency(ctx context.Context, j *job.TranslationJob, text, first string, firstCheck validator.LineResult, seriesID string, meta prompt.SeriesMetadata) (string, validator.LineResult) {
	j.Stats.SelfConsistencyTriggered++

	profile := e.builder.Profile()
	hotter := profile
	hotter.Temperature = profile.Temperature + 0.3
	if hotter.Temperature > 0.7 {
		hotter.Temperature = 0.7
	}

	req := e.buildRequest(j, text, seriesID, meta, e.builder.WithProfile(hotter))
	result, err := e.translator.Translate(ctx, req)
	if err != nil {
		return first, firstCheck
	}
	second := CleanResponse(result)
	if second == "" || strings.EqualFold(strings.TrimSpace(second), strings.TrimSpace(text)) {
		return first, firstCheck
	}
	second = e.glossaries.ApplyToText(seriesID, second)
	if strings.EqualFold(second, first) {
		return first, firstCheck
	}

	secondCheck := validator.ValidateLine(text, second)
	switch {
	case secondCheck.Confidence > firstCheck.Confidence:
		return second, secondCheck
	case secondCheck.Confidence == firstCheck.Confidence &&
		len(strings.TrimSpace(second)) < len(strings.TrimSpace(first))*8/10:
		// subtitles favor the less verbose candidate
		return second, secondCheck
	default:
		return first, firstCheck
	}
}

// buildRequest shapes the call for the configured backend family.
func (e *Engine) buildRequest(j *job.TranslationJob, text, seriesID string, meta prompt.SeriesMetadata, builder *prompt.Builder) backend.Request {
	profile := builder.Profile()
	in := prompt.Input{
		Text:           text,
		SourceLang:     e.effectiveSource(),
		TargetLang:     e.opts.TargetLang,
		SeriesGlossary: e.seriesTerms(seriesID),
		Metadata:       meta,
	}
	if profile.EnableContextual {
		in.RecentContext = j.RecentContext(profile.ContextWindowSize)
	}
	if profile.EnableFewshot {
		in.Fewshot = prompt.FewshotExamples(meta.DetectType(), meta.Genres, prompt.DefaultMaxExamples)
	}

	req := backend.Request{
		Text:       text,
		SourceLang: e.effectiveSource(),
		TargetLang: e.opts.TargetLang,
	}
	switch e.translator.Kind() {
	case backend.KindDeepL:
		deeplText, entries := builder.BuildDeepL(in)
		req.Text = deeplText
		req.GlossaryEntries = entries
	case backend.KindGoogle:
		req.Text = builder.BuildGoogle(in)
	case backend.KindLibreTranslate:
		// plain MT, the server accepts no prompt
	case backend.KindGPT, backend.KindGemini:
		// paid per token, so the trimmed prompt
		req.Prompt = builder.BuildLean(in)
	case backend.KindOllama:
		req.Prompt = builder.Build(in)
	default:
		req.Prompt = builder.BuildFallback(in)
	}
	return req
}

func (e *Engine) seriesTerms(seriesID string) map[string]string {
	if seriesID == "" {
		return nil
	}
	budgeted := e.glossaries.Budgeted(seriesID, maxPromptGlossaryTerms)
	if len(budgeted) == 0 {
		return nil
	}
	terms := make(map[string]string, len(budgeted))
	for _, t := range budgeted {
		terms[t.Key] = t.Value
	}
	return terms
}

// isTranslatable filters out numbers, symbol-only lines, and text that
// is already in the target language.
func (e *Engine) isTranslatable(text string) bool {
	text = strings.TrimSpace(text)
	if len(text) < 2 {
		return false
	}
	alpha := 0
	for _, r := range text {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r > 127 {
			alpha++
		}
	}
	if alpha < 2 {
		return false
	}
	if len(text) >= 50 {
		target := strings.SplitN(strings.ToLower(e.opts.TargetLang), "-", 2)[0]
		if whatlanggo.DetectLang(text).Iso6391() == target {
			return false
		}
	}
	return true
}

func (e *Engine) isBenched() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.benched
}

// bench stops all further backend calls for this engine, used when the
// account is out of quota and retrying would only burn money.
func (e *Engine) bench(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.benched {
		return
	}
	e.benched = true
	log.Error("%s quota exhausted, remaining lines keep their original text: %v", e.translator.Name(), err)
}

func (e *Engine) batchAllowed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.batchDisabled
}

func (e *Engine) recordBatchFailure() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.batchFailures++
	if e.batchFailures >= maxBatchFailures && e.batchSuccesses == 0 && !e.batchDisabled {
		e.batchDisabled = true
		log.Warn("batch translation disabled after %d consecutive failures", e.batchFailures)
	}
}

func (e *Engine) recordBatchSuccess() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.batchSuccesses++
}

func (e *Engine) logStats(j *job.TranslationJob) {
	s := j.Stats
	if s.TotalLines == 0 {
		return
	}
	log.Info("job stats for %s: %d dialogue, %d sfx, %d music, %d tags, %d untranslatable",
		filepath.Base(j.Path), s.ClassifiedDialogue, s.ClassifiedSFX, s.ClassifiedMusic,
		s.ClassifiedTag, s.ClassifiedUntranslatable)
	log.Info("  %d translated, %d cache hits, %d misses, %d rejected, %d api failures, %d self-consistency",
		s.SuccessfulTranslations, s.CacheHits, s.CacheMisses, s.ValidationRejections,
		s.APIFailures, s.SelfConsistencyTriggered)

	rate := float64(s.SuccessfulTranslations) / float64(s.TotalLines) * 100
	band := "poor"
	switch {
	case rate >= 90:
		band = "excellent"
	case rate >= 70:
		band = "good"
	case rate >= 50:
		band = "fair"
	}
	log.Info("  quality rate %.1f%% (%s)", rate, band)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
