package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/MimeLyc/batch-sub-translator/internal/backend"
	"github.com/MimeLyc/batch-sub-translator/internal/glossary"
	"github.com/MimeLyc/batch-sub-translator/internal/prompt"
	"github.com/MimeLyc/batch-sub-translator/internal/subtitle"
	"github.com/MimeLyc/batch-sub-translator/pkg/log"
)

const prescanMaxLines = 80

// prescan extracts proper nouns from the first episode of a series with
// a single model call and seeds the series glossary with them. Failures
// only cost the prescan, translation proceeds regardless.
func (e *Engine) prescan(ctx context.Context, file *subtitle.File, seriesID, seriesTitle string) {
	lines := prescanLines(file, prescanMaxLines)
	if len(lines) == 0 {
		return
	}
	if seriesTitle == "" {
		seriesTitle = "Unknown"
	}

	user := fmt.Sprintf(
		"Analyze these subtitle lines and extract ALL proper nouns (character names, places, techniques, titles). "+
			"Reply ONLY with a JSON object: {\"OriginalName\": \"PreservedName\", ...}. "+
			"Preserve the original form (do not translate).\n\nLines:\n%s",
		strings.Join(lines, "\n"))

	raw, err := e.translator.Translate(ctx, backend.Request{
		SourceLang: e.effectiveSource(),
		TargetLang: e.opts.TargetLang,
		Prompt:     prompt.LLMPrompt{User: user},
	})
	if err != nil {
		log.Warn("glossary prescan for %q failed: %v", seriesTitle, err)
		return
	}

	terms := glossary.ParsePrescanResponse(raw)
	if len(terms) == 0 {
		return
	}
	if err := e.glossaries.MergePrescan(seriesID, terms); err != nil {
		log.Warn("merge prescan terms for series %s: %v", seriesID, err)
		return
	}
	log.Info("prescan extracted %d terms for %q", len(terms), seriesTitle)
}

// prescanLines samples up to max dialogue lines from the file.
func prescanLines(file *subtitle.File, max int) []string {
	var out []string
	for _, entry := range file.Entries {
		text := strings.TrimSpace(entry.PlainText)
		if text == "" {
			continue
		}
		out = append(out, text)
		if len(out) >= max {
			break
		}
	}
	return out
}
