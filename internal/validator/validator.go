package validator

import (
	"fmt"
	"regexp"
	"strings"
)

// LineResult is the outcome of a single-line semantic check.
type LineResult struct {
	Valid      bool
	Message    string
	Confidence float64
}

// confidenceFloor below which a line is rejected and retried.
const confidenceFloor = 0.3

var englishNegations = map[string]struct{}{
	"not": {}, "n't": {}, "never": {}, "no": {}, "neither": {}, "nor": {},
	"nobody": {}, "nothing": {}, "nowhere": {}, "hardly": {}, "barely": {},
	"scarcely": {}, "don't": {}, "doesn't": {}, "didn't": {}, "won't": {},
	"wouldn't": {}, "can't": {}, "cannot": {}, "couldn't": {}, "shouldn't": {},
	"isn't": {}, "aren't": {}, "wasn't": {}, "weren't": {}, "haven't": {},
	"hasn't": {}, "hadn't": {}, "mustn't": {}, "hate": {}, "refuse": {}, "deny": {},
}

var portugueseNegations = map[string]struct{}{
	"não": {}, "nunca": {}, "nenhum": {}, "nenhuma": {}, "nem": {},
	"ninguém": {}, "nada": {}, "jamais": {}, "tampouco": {}, "sequer": {},
	"odeio": {}, "recuso": {}, "nego": {}, "impossível": {}, "incapaz": {},
}

var femininePronounsEN = map[string]struct{}{
	"she": {}, "her": {}, "herself": {}, "hers": {},
}

var masculinePronounsEN = map[string]struct{}{
	"he": {}, "him": {}, "himself": {}, "his": {},
}

var artifactPrefixes = []string{
	"translation:", "tradução:", "note:", "nota:", "here is",
	"aqui está", "the translation", "a tradução", "in portuguese",
	"em português", "translated:", "output:", "result:",
}

var (
	wordRe = regexp.MustCompile(`[\p{L}\p{N}_']+`)
	cjkRe  = regexp.MustCompile(`[\x{4e00}-\x{9fff}\x{3040}-\x{309f}\x{30a0}-\x{30ff}]`)
)

func wordSet(text string) map[string]struct{} {
	words := wordRe.FindAllString(strings.ToLower(text), -1)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func intersects(a, b map[string]struct{}) bool {
	for w := range a {
		if _, ok := b[w]; ok {
			return true
		}
	}
	return false
}

// ValidateLine runs the per-line semantic checks: identity, negation
// inversion, pronoun gender flips, length ratio, LLM artifacts, and CJK
// leakage. Each problem subtracts from a confidence that starts at 1.0;
// below 0.3 the line is rejected.
func ValidateLine(original, translated string) LineResult {
	if strings.TrimSpace(original) == "" || strings.TrimSpace(translated) == "" {
		return LineResult{Valid: false, Message: "empty input", Confidence: 0.0}
	}
	if strings.EqualFold(strings.TrimSpace(original), strings.TrimSpace(translated)) {
		return LineResult{Valid: false, Message: "translation identical to original", Confidence: 0.0}
	}

	confidence := 1.0
	var issues []string

	if msg := checkSemanticInversion(original, translated); msg != "" {
		issues = append(issues, msg)
		confidence -= 0.4
	}

	if msg := checkPronounMismatch(original, translated); msg != "" {
		issues = append(issues, msg)
		confidence -= 0.5
	}

	origLen := len(strings.TrimSpace(original))
	transLen := len(strings.TrimSpace(translated))
	ratio := float64(transLen) / float64(max(1, origLen))
	if ratio < 0.2 {
		issues = append(issues, fmt.Sprintf("translation too short (ratio=%.2f)", ratio))
		confidence -= 0.3
	} else if ratio > 4.0 {
		issues = append(issues, fmt.Sprintf("translation too long (ratio=%.2f)", ratio))
		confidence -= 0.2
	}

	transLower := strings.ToLower(strings.TrimSpace(translated))
	for _, artifact := range artifactPrefixes {
		if strings.HasPrefix(transLower, artifact) {
			issues = append(issues, fmt.Sprintf("artifact detected: %q", artifact))
			confidence -= 0.5
			break
		}
	}

	if cjkRe.MatchString(translated) {
		issues = append(issues, "CJK characters in translation")
		confidence -= 0.6
	}

	if confidence < 0 {
		confidence = 0
	}

	message := "OK"
	if len(issues) > 0 {
		message = strings.Join(issues, "; ")
	}
	return LineResult{
		Valid:      confidence >= confidenceFloor,
		Message:    message,
		Confidence: confidence,
	}
}

// checkSemanticInversion flags translations that drop a negation
// present in the original.
func checkSemanticInversion(original, translated string) string {
	origWords := wordSet(original)
	origHasNeg := intersects(origWords, englishNegations)
	if !origHasNeg {
		for _, w := range strings.Fields(strings.ToLower(original)) {
			if strings.Contains(w, "n't") {
				origHasNeg = true
				break
			}
		}
	}
	if !origHasNeg {
		return ""
	}

	if !intersects(wordSet(translated), portugueseNegations) {
		return "semantic inversion: original has negation but translation doesn't"
	}
	return ""
}

// checkPronounMismatch flags she/her rendered as ele/dele and he/him
// rendered as ela/dela.
func checkPronounMismatch(original, translated string) string {
	origWords := wordSet(original)
	transWords := wordSet(translated)

	hasFeminine := intersects(transWords, map[string]struct{}{"ela": {}, "dela": {}})
	hasMasculine := intersects(transWords, map[string]struct{}{"ele": {}, "dele": {}})

	if intersects(origWords, femininePronounsEN) && hasMasculine && !hasFeminine {
		return "pronoun mismatch: she/her translated as ele/dele"
	}
	if intersects(origWords, masculinePronounsEN) && hasFeminine && !hasMasculine {
		return "pronoun mismatch: he/him translated as ela/dela"
	}
	return ""
}

var colloquialWords = map[string]struct{}{
	"né": {}, "tá": {}, "tipo": {}, "mano": {}, "véi": {}, "cara": {},
	"mina": {}, "tô": {}, "cê": {}, "pra": {}, "num": {}, "dum": {},
}

// IsColloquialValid accepts legitimate spoken register and only rejects
// lines where colloquialisms dominate the sentence.
func IsColloquialValid(translated string) bool {
	words := strings.Fields(strings.ToLower(translated))
	if len(words) == 0 {
		return true
	}
	count := 0
	for _, w := range words {
		if _, ok := colloquialWords[w]; ok {
			count++
		}
	}
	return float64(count)/float64(len(words)) <= 0.4
}
