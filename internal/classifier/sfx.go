package classifier

import (
	"sort"
	"strings"
)

// sfxTranslations maps common English sound-effect captions to their
// Brazilian Portuguese equivalents. Used for the local SOUND_EFFECT path
// so these lines never reach a translation backend.
var sfxTranslations = map[string]string{
	"sighs": "suspira", "sigh": "suspiro",
	"gasps": "ofega", "gasp": "ofego",
	"groans": "geme", "groan": "gemido",
	"screams": "grita", "scream": "grito",
	"laughs": "ri", "laugh": "risada",
	"laughing": "rindo", "laughter": "risadas",
	"coughs": "tosse", "cough": "tosse",
	"sobs": "soluça", "sob": "soluço",
	"sobbing": "soluçando",
	"sniffs":  "funga", "sniff": "fungada",
	"chuckles": "dá risada", "chuckle": "risadinha",
	"giggles": "dá risadinha", "giggle": "risadinha",
	"whispers": "sussurra", "whisper": "sussurro",
	"whispering": "sussurrando",
	"shouts":     "grita", "shout": "grito",
	"shouting": "gritando",
	"yells":    "berra", "yell": "berro",
	"yelling": "berrando",
	"cries":   "chora", "cry": "choro",
	"crying": "chorando",
	"moans":  "geme", "moan": "gemido",
	"grunts": "rosna", "grunt": "rosnado",
	"growls": "rosna", "growl": "rosnado",
	"hums": "cantarola", "hum": "cantarolar",
	"humming":  "cantarolando",
	"whistles": "assobia", "whistle": "assobio",
	"claps":  "aplaude", "clap": "aplauso",
	"knocks": "bate", "knock": "batida",
	"knocking":  "batendo na porta",
	"footsteps": "passos",
	"gunshot":   "tiro", "gunshots": "tiros",
	"explosion": "explosão", "explosions": "explosões",
	"thunder":            "trovão",
	"wind":               "vento",
	"rain":               "chuva",
	"door":               "porta",
	"phone":              "telefone",
	"music playing":      "música tocando",
	"indistinct chatter": "conversa indistinta",
	"crowd cheering":     "multidão comemorando",
	"alarm":              "alarme",
	"siren":              "sirene",
	"breathing":          "respirando",
	"panting":            "ofegando",
	"stammering":         "gaguejando",
	"stuttering":         "gaguejando",
	"ringing":            "tocando",
	"beeping":            "bipando",
	"buzzing":            "zumbindo",
	"ticking":            "tiquetaqueando",
	"clicking":           "clicando",
	"creaking":           "rangendo",
	"applause":           "aplausos",
	"silence":            "silêncio",
	"static":             "estática",
	"singing":            "cantando",
	"talking":            "falando",
	"wailing":            "lamentando",
	"inhales":            "inspira", "inhale": "inspiração",
	"exhales": "expira", "exhale": "expiração",
	"snoring": "roncando", "snores": "ronca",
	"screaming": "gritando",
	"gasping":   "ofegando",
	"groaning":  "gemendo",
	"coughing":  "tossindo",
	"sniffing":  "fungando",
	"barks":     "late", "bark": "latido",
	"barking": "latindo",
	"meows":   "mia", "meow": "miado",
	"meowing": "miando",
	"howls":   "uiva", "howl": "uivo",
	"howling": "uivando",
	"snorts":  "bufa", "snort": "bufada",
	"chirping":          "piando",
	"engine revving":    "motor acelerando",
	"glass shattering":  "vidro estilhaçando",
	"baby crying":       "bebê chorando",
	"thudding":          "baque surdo",
	"rustling":          "farfalhando",
	"splashing":         "espirrando água",
	"dripping":          "pingando",
	"crackling":         "crepitando",
	"horn honking":      "buzina tocando",
	"tires screeching":  "pneus cantando",
	"birds chirping":    "pássaros piando",
	"dog barking":       "cachorro latindo",
	"cat meowing":       "gato miando",
	"clears throat":     "limpa a garganta",
	"camera shutter":    "obturador da câmera",
	"keyboard clacking": "teclado digitando",
}

// sfxTargetForms holds the target-side forms so that re-classifying an
// already translated caption still lands on SOUND_EFFECT.
var sfxTargetForms = buildTargetForms()

func buildTargetForms() map[string]struct{} {
	forms := make(map[string]struct{}, len(sfxTranslations))
	for _, pt := range sfxTranslations {
		forms[pt] = struct{}{}
		for _, word := range strings.Fields(pt) {
			forms[word] = struct{}{}
		}
	}
	return forms
}

// isTargetForm reports whether the caption is already in the target
// language, either as a whole or word by word.
func isTargetForm(caption string) bool {
	if caption == "" {
		return false
	}
	if _, ok := sfxTargetForms[caption]; ok {
		return true
	}
	words := strings.Fields(caption)
	if len(words) == 0 {
		return false
	}
	for _, w := range words {
		if _, ok := sfxTargetForms[w]; !ok {
			return false
		}
	}
	return true
}

// translateSFX translates a sound-effect caption via the dictionary.
// Compounds like "door creaking" get every known word replaced,
// longest entries first so "music playing" wins over "singing".
func translateSFX(effect string, dict map[string]string) string {
	effectLower := strings.ToLower(strings.TrimSpace(effect))

	if pt, ok := dict[effectLower]; ok {
		return pt
	}

	keys := make([]string, 0, len(dict))
	for en := range dict {
		keys = append(keys, en)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	replaced := false
	result := effectLower
	for _, en := range keys {
		if strings.Contains(result, en) {
			result = strings.ReplaceAll(result, en, dict[en])
			replaced = true
		}
	}
	if replaced {
		return result
	}

	return effect
}
