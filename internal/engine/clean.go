package engine

import (
	"html"
	"regexp"
	"strings"
)

var (
	digitsOnlyRe = regexp.MustCompile(`^\d+$`)

	// prompt leakage: the model echoing its own instructions back
	prevContextRe    = regexp.MustCompile(`(?is)\s*Previous context \(read only, do NOT translate\):.*$`)
	brazilMarkerRe   = regexp.MustCompile(`(?i)\s*\(Brazil\)\s*`)
	portugueseFullRe = regexp.MustCompile(`(?i)^\s*Portuguese\s*\(FULL translation\):\s*`)
	portuguesePfxRe  = regexp.MustCompile(`(?i)^\s*Portuguese:\s*`)
	englishEchoRe    = regexp.MustCompile(`(?is)\s*English:.*$`)

	manyDotsRe     = regexp.MustCompile(`\.{4,}`)
	ellipsisRunRe  = regexp.MustCompile(`(\.{3,}\s*){2,}`)
	noteParensRe   = regexp.MustCompile(`(?is)\(Note that.*?\)`)
	ouSejaRe       = regexp.MustCompile(`(?is)\(ou seja.*?\)`)
	observeQueRe   = regexp.MustCompile(`(?is)\(observe que.*?\)`)
	bracketNoteRe  = regexp.MustCompile(`(?is)\[[^\]]*(?:tradução|português)[^\]]*\]`)
	cjkIdeographRe = regexp.MustCompile(`[\x{4e00}-\x{9fff}]+`)
	kanaRe         = regexp.MustCompile(`[\x{3040}-\x{309f}\x{30a0}-\x{30ff}]+`)

	trailingNeTaRe  = regexp.MustCompile(`(, né\?|, tá\?)`)
	taLegalizeRe    = regexp.MustCompile(`\btá legalize\?`)
	emOndeRe        = regexp.MustCompile(`\bEm onde\b`)
	noAmorComRe     = regexp.MustCompile(`\bno amor com\b`)
	shortSentenceRe = regexp.MustCompile(`[^.!?\n]{1,40}[.!?]`)
	firstSentenceRe = regexp.MustCompile(`^([^.!?\n]{1,80}[.!?])`)
	corruptTailRe   = regexp.MustCompile(`[a-zA-Z]{15,}$`)
	spaceRunRe      = regexp.MustCompile(`\s{2,}`)
)

var explanationMarkers = []string{
	"tradutor", "glossário", "contexto", "nesta linha", "tradução mais natural",
}

var explanationNoise = []string{
	"tradutor", "glossário", "contexto", "termos", "parabéns", "acertou",
}

// CleanResponse scrubs one model reply down to the bare translation:
// prompt echoes, explanations, HTML entities, leaked CJK text, and
// punctuation damage. An empty return means the reply was too corrupted
// to use and the line should be retried or kept original.
func CleanResponse(text string) string {
	if text == "" {
		return text
	}
	if strings.Contains(text, "-->") || digitsOnlyRe.MatchString(strings.TrimSpace(text)) {
		return text
	}
	text = strings.TrimSpace(text)

	text = prevContextRe.ReplaceAllString(text, "")
	text = brazilMarkerRe.ReplaceAllString(text, " ")
	text = portugueseFullRe.ReplaceAllString(text, "")
	text = portuguesePfxRe.ReplaceAllString(text, "")
	text = englishEchoRe.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)

	text = stripExplanation(text)

	text = html.UnescapeString(text)

	text = strings.NewReplacer(
		"。", ".",
		"、", ",",
		"！", "!",
		"？", "?",
		"…", "...",
	).Replace(text)

	text = manyDotsRe.ReplaceAllString(text, "...")
	text = ellipsisRunRe.ReplaceAllString(text, "...")

	text = noteParensRe.ReplaceAllString(text, "")
	text = ouSejaRe.ReplaceAllString(text, "")
	text = observeQueRe.ReplaceAllString(text, "")
	text = bracketNoteRe.ReplaceAllString(text, "")

	text = cjkIdeographRe.ReplaceAllString(text, "")
	text = kanaRe.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, `"`) && strings.HasSuffix(text, `"`) && len(text) >= 2 {
		text = text[1 : len(text)-1]
	}

	text = strings.ReplaceAll(text, "foresse", "fosse")
	text = trailingNeTaRe.ReplaceAllString(text, "")
	text = taLegalizeRe.ReplaceAllString(text, "certo?")
	text = emOndeRe.ReplaceAllString(text, "Onde")
	text = noAmorComRe.ReplaceAllString(text, "apaixonado por")

	if strings.HasSuffix(text, " naquela") {
		text = strings.Replace(text, " naquela", " naquela hora", 1)
	} else if strings.HasSuffix(text, " naquele") {
		text = strings.Replace(text, " naquele", " naquele momento", 1)
	}

	// a long letter run at the end means truncated or corrupted output
	if corruptTailRe.MatchString(text) {
		return ""
	}

	text = spaceRunRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// stripExplanation digs the actual translation out of a reply that is
// mostly the model talking about its work.
func stripExplanation(text string) string {
	if len(text) <= 120 {
		return text
	}
	lower := strings.ToLower(text)
	found := false
	for _, marker := range explanationMarkers {
		if strings.Contains(lower, marker) {
			found = true
			break
		}
	}
	if !found {
		return text
	}

	// a very short sentence is likely the real translation buried inside
	for _, s := range shortSentenceRe.FindAllString(text, -1) {
		s = strings.TrimSpace(s)
		if len(s) <= 25 && !containsAnyFold(s, explanationNoise) {
			return s
		}
	}
	for _, sep := range []string{". ", "! ", "? ", "\n"} {
		before, _, ok := strings.Cut(text, sep)
		if !ok {
			continue
		}
		first := strings.TrimSpace(before + strings.TrimSuffix(sep, " "))
		if sep == "\n" {
			first = strings.TrimSpace(before)
		}
		if len(first) <= 80 && !containsAnyFold(first, explanationNoise[:4]) {
			return first
		}
	}
	if m := firstSentenceRe.FindStringSubmatch(text); m != nil {
		if !containsAnyFold(m[1], explanationNoise[:3]) {
			return strings.TrimSpace(m[1])
		}
	}
	return text
}

func containsAnyFold(s string, needles []string) bool {
	lower := strings.ToLower(s)
	for _, n := range needles {
		if strings.Contains(lower, n) {
			return true
		}
	}
	return false
}
