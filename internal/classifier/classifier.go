package classifier

import (
	"regexp"
	"strings"
	"unicode"
)

// Class tells the pipeline how to process a subtitle line.
type Class string

const (
	// Dialogue lines are translated through a backend.
	Dialogue Class = "dialogue"
	// SoundEffect lines are translated locally via the SFX dictionary.
	SoundEffect Class = "sound_effect"
	// MusicLyrics lines are kept unchanged by default.
	MusicLyrics Class = "music_lyrics"
	// TechnicalTag lines are styling blocks preserved byte-for-byte.
	TechnicalTag Class = "technical_tag"
	// Untranslatable lines keep their original text.
	Untranslatable Class = "untranslatable"
)

// Onomatopoeia common in anime and series that must stay as-is.
var onomatopoeia = map[string]struct{}{
	"bang": {}, "boom": {}, "pow": {}, "crash": {}, "splash": {}, "thud": {},
	"whoosh": {}, "buzz": {}, "hiss": {}, "click": {}, "clack": {}, "snap": {},
	"crack": {}, "pop": {}, "thump": {}, "slam": {}, "screech": {}, "rumble": {},
	"clang": {}, "swoosh": {}, "whack": {}, "zap": {}, "beep": {}, "boing": {},
	"ding": {}, "dong": {}, "wham": {}, "zoom": {}, "vroom": {},
}

// Japanese terms that stay untranslated regardless of target language.
var japaneseKeep = map[string]struct{}{
	"bankai": {}, "sharingan": {}, "rasengan": {}, "kamehameha": {}, "jutsu": {},
	"chakra": {}, "senpai": {}, "sensei": {}, "sama": {}, "kun": {}, "chan": {},
	"san": {}, "dono": {}, "nani": {}, "baka": {}, "sugoi": {}, "kawaii": {},
	"yatta": {}, "ganbatte": {}, "itadakimasu": {}, "gochisousama": {},
	"tadaima": {}, "okaeri": {}, "ohayo": {}, "konnichiwa": {}, "konbanwa": {},
	"sayonara": {}, "matte": {},
}

var (
	reMusic           = regexp.MustCompile(`^\s*[♪♫🎵🎶]+[\s\S]*[♪♫🎵🎶]+\s*$`)
	reSoundBracket    = regexp.MustCompile(`^\s*[\[\(]([^\]\)]+)[\]\)]\s*$`)
	reSoundAsterisk   = regexp.MustCompile(`^\s*\*([^*]+)\*\s*$`)
	reASSFullTag      = regexp.MustCompile(`^\s*\{[^}]+\}\s*$`)
	reOnlyPunctuation = regexp.MustCompile(`^[\s\W]+$`)
	reSoundWords      = regexp.MustCompile(`(?i)^\s*[\[\(]?\s*\b(` +
		`sighs?|gasps?|groans?|screams?|laughs?|coughs?|sobs?|sniffs?|` +
		`chuckles?|giggles?|whispers?|shouts?|yells?|cries?|moans?|` +
		`grunts?|snores?|growls?|hums?|whistles?|claps?|knocks?|` +
		`footsteps|gunshots?|explosions?|thunder|wind|rain|door|phone|` +
		`music playing|indistinct chatter|crowd cheering|alarm|siren|` +
		`breathing|panting|stammering|stuttering|` +
		`ringing|beeping|buzzing|ticking|clicking|creaking|` +
		`applause|laughter|silence|static|` +
		`speaking [a-z]+|talking|singing|crying|sobbing|wailing|` +
		`inhales?|exhales?` +
		`)\s*[\]\)]?\s*$`)
)

// Classifier tags each subtitle line so the pipeline knows whether to
// send it to a backend, translate it locally, or keep it verbatim.
type Classifier struct {
	sfxDict map[string]string
}

// Option customizes a Classifier.
type Option func(*Classifier)

// WithSFXDictionary replaces the built-in EN→pt-BR dictionary, e.g. for
// other target languages.
func WithSFXDictionary(dict map[string]string) Option {
	return func(c *Classifier) {
		c.sfxDict = dict
	}
}

func New(opts ...Option) *Classifier {
	c := &Classifier{sfxDict: sfxTranslations}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify tags a line and returns the processed text. For SoundEffect
// the processed text is already the local translation; for TechnicalTag
// and Untranslatable it is the original verbatim; for Dialogue and
// MusicLyrics it is the trimmed text to send downstream. The rules run
// top to bottom and the first match wins.
func (c *Classifier) Classify(text string) (Class, string) {
	if strings.TrimSpace(text) == "" {
		return Untranslatable, text
	}

	stripped := strings.TrimSpace(text)

	// 1. Pure override block without any text
	if reASSFullTag.MatchString(stripped) {
		return TechnicalTag, text
	}

	// 2. Only punctuation or symbols
	if reOnlyPunctuation.MatchString(stripped) {
		return Untranslatable, text
	}

	// 3. Music glyphs on both ends
	if reMusic.MatchString(stripped) ||
		(strings.HasPrefix(stripped, "♪") && strings.HasSuffix(stripped, "♪")) {
		return MusicLyrics, stripped
	}

	// 4. Sound effect in brackets or parentheses: [door creaking], (sighs)
	if m := reSoundBracket.FindStringSubmatch(stripped); m != nil {
		inner := strings.ToLower(strings.TrimSpace(m[1]))
		openDelim := string(stripped[0])
		closeDelim := string(stripped[len(stripped)-1])

		if translated := translateSFX(inner, c.sfxDict); translated != inner {
			return SoundEffect, openDelim + translated + closeDelim
		}
		if reSoundWords.MatchString(stripped) {
			return SoundEffect, openDelim + translateSFX(inner, c.sfxDict) + closeDelim
		}
		if isTargetForm(inner) {
			// already translated caption, keep it stable
			return SoundEffect, stripped
		}
	}

	// 5. Sound effect between asterisks: *sighs*
	if m := reSoundAsterisk.FindStringSubmatch(stripped); m != nil {
		inner := strings.ToLower(strings.TrimSpace(m[1]))
		return SoundEffect, "*" + translateSFX(inner, c.sfxDict) + "*"
	}

	// 6. Bare sound-effect word without delimiters
	if reSoundWords.MatchString(stripped) {
		inner := strings.ToLower(strings.Trim(stripped, "[]() "))
		return SoundEffect, translateSFX(inner, c.sfxDict)
	}
	if isTargetForm(strings.ToLower(stripped)) {
		return SoundEffect, stripped
	}

	// 7. Pure onomatopoeia
	bare := strings.TrimSpace(strings.TrimRight(strings.ToLower(stripped), "!."))
	if _, ok := onomatopoeia[bare]; ok {
		return Untranslatable, text
	}

	// 8. Preserved Japanese term
	if _, ok := japaneseKeep[bare]; ok {
		return Untranslatable, text
	}

	// 9. Too little translatable content
	alphaCount := 0
	for _, r := range stripped {
		if unicode.IsLetter(r) {
			alphaCount++
		}
	}
	if alphaCount < 2 {
		return Untranslatable, text
	}

	// 10. Default: dialogue
	return Dialogue, stripped
}

// ClassifyAll classifies a batch of lines.
func (c *Classifier) ClassifyAll(texts []string) []Class {
	classes := make([]Class, len(texts))
	for i, t := range texts {
		classes[i], _ = c.Classify(t)
	}
	return classes
}
