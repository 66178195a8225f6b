package job

import (
	"regexp"
	"strings"
)

// Stats counts what happened to every line of one subtitle file.
type Stats struct {
	TotalLines               int `json:"total_lines"`
	CacheHits                int `json:"cache_hits"`
	CacheMisses              int `json:"cache_misses"`
	ValidationRejections     int `json:"validation_rejections"`
	APIFailures              int `json:"api_failures"`
	SuccessfulTranslations   int `json:"successful_translations"`
	SelfConsistencyTriggered int `json:"self_consistency_triggered"`
	RetryCount               int `json:"retry_count"`

	ClassifiedDialogue       int `json:"classified_dialogue"`
	ClassifiedSFX            int `json:"classified_sfx"`
	ClassifiedMusic          int `json:"classified_music"`
	ClassifiedTag            int `json:"classified_tag"`
	ClassifiedUntranslatable int `json:"classified_untranslatable"`
}

var capitalizedWordRe = regexp.MustCompile(`\b[A-Z][a-zA-Z]+\b`)

// TranslationJob is the mutable state of one file being translated:
// counters, the rolling dialogue context, and the capitalized words
// that keep surviving translation untouched.
type TranslationJob struct {
	Path       string
	OutputPath string
	SeriesID   string
	SourceLang string
	TargetLang string

	Stats Stats

	contextWindow int
	autoGlossary  bool
	context       []string
	candidates    map[string]map[string]int
}

func New(path, seriesID, sourceLang, targetLang string, contextWindow int, autoGlossary bool) *TranslationJob {
	if contextWindow < 1 {
		contextWindow = 5
	}
	return &TranslationJob{
		Path:          path,
		SeriesID:      seriesID,
		SourceLang:    sourceLang,
		TargetLang:    targetLang,
		contextWindow: contextWindow,
		autoGlossary:  autoGlossary,
		candidates:    make(map[string]map[string]int),
	}
}

// AddContext appends one translated dialogue line to the rolling
// window, trimming to twice the window size so the slice never grows
// with the file.
func (j *TranslationJob) AddContext(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	j.context = append(j.context, line)
	if limit := j.contextWindow * 2; len(j.context) > limit {
		j.context = j.context[len(j.context)-limit:]
	}
}

// RecentContext returns up to the last n context lines, oldest first.
func (j *TranslationJob) RecentContext(n int) []string {
	if n <= 0 || len(j.context) == 0 {
		return nil
	}
	if n > len(j.context) {
		n = len(j.context)
	}
	out := make([]string, n)
	copy(out, j.context[len(j.context)-n:])
	return out
}

// TrackAutoGlossary records capitalized words from the original that
// survived into the translation verbatim. Names and proper nouns that
// keep doing this across a file become glossary candidates.
func (j *TranslationJob) TrackAutoGlossary(original, translated string) {
	if !j.autoGlossary || translated == "" {
		return
	}
	for _, word := range capitalizedWordRe.FindAllString(original, -1) {
		if !strings.Contains(translated, word) {
			continue
		}
		lower := strings.ToLower(word)
		if j.candidates[lower] == nil {
			j.candidates[lower] = make(map[string]int)
		}
		j.candidates[lower][word]++
	}
}

// SuggestedGlossary returns candidates seen at least minOccurrences
// times, keyed by the lowercase word with the most frequent surface
// form as the value.
func (j *TranslationJob) SuggestedGlossary(minOccurrences int) map[string]string {
	if minOccurrences < 1 {
		minOccurrences = 1
	}
	out := make(map[string]string)
	for lower, forms := range j.candidates {
		total := 0
		best := ""
		bestCount := 0
		for form, count := range forms {
			total += count
			if count > bestCount || (count == bestCount && form < best) {
				best = form
				bestCount = count
			}
		}
		if total >= minOccurrences {
			out[lower] = best
		}
	}
	return out
}
