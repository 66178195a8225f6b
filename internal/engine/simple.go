package engine

import (
	"path/filepath"
	"regexp"
	"strings"
)

// simpleTranslations covers very short phrases that models reliably
// mangle, keyed by source then target language.
var simpleTranslations = map[string]map[string]map[string]string{
	"en": {
		"pt-BR": {
			"Shit!":                "Merda!",
			"Damn!":                "Droga!",
			"Roger.":               "Entendido.",
			"Roger!":               "Entendido!",
			"Later!":               "Até mais!",
			"What?!":               "O quê?!",
			"Wha...":               "O quê...",
			"Um...":                "Hum...",
			"Uh...":                "Ah...",
			"Y-Yes...":             "S-Sim...",
			"I repeat.":            "Repito.",
			"A hostage?!":          "Um refém?!",
			"Don't......":          "Não...",
			"Please don't......":   "Por favor, não...",
			"Stop it already......": "Pare com isso...",
		},
	},
}

// SimpleTranslation looks a phrase up in the fixed dictionary. The
// source defaults to English when detection is left on auto.
func SimpleTranslation(text, sourceLang, targetLang string) (string, bool) {
	src := strings.ToLower(sourceLang)
	if src == "auto" || src == "" {
		src = "en"
	}
	byTarget, ok := simpleTranslations[src]
	if !ok {
		return "", false
	}
	dict, ok := byTarget[targetLang]
	if !ok {
		return "", false
	}
	out, ok := dict[strings.TrimSpace(text)]
	return out, ok
}

var (
	tvdbIDRe    = regexp.MustCompile(`(?i)tvdbid[=_](\d+)`)
	numericDirRe = regexp.MustCompile(`[\\/\-](\d{6,8})[\\/\-]`)
)

// SeriesIDFromPath extracts the series identifier media managers embed
// in library paths. Empty when the path carries none.
func SeriesIDFromPath(path string) string {
	if m := tvdbIDRe.FindStringSubmatch(path); m != nil {
		return m[1]
	}
	if m := numericDirRe.FindStringSubmatch(path); m != nil {
		return m[1]
	}
	return ""
}

// OutputPath names the translated file next to the source, inserting
// the target language before the extension. Image-based .sub input
// produces .ass output.
func OutputPath(path, targetLang string) string {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(filepath.Base(path), ext)
	if strings.EqualFold(ext, ".sub") {
		ext = ".ass"
	}
	return filepath.Join(filepath.Dir(path), stem+"."+targetLang+ext)
}
