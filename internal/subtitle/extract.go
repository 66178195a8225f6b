package subtitle

import (
	"html"
	"regexp"
	"strings"
)

var (
	overrideBlockRe = regexp.MustCompile(`\{[^}]*\}`)
	htmlTagRe       = regexp.MustCompile(`<[^>]+>`)
	spaceRunRe      = regexp.MustCompile(`[ \t]{2,}`)
)

// ExtractPlain strips ASS override blocks and HTML tags from a cue text
// and decodes HTML entities, leaving only the translatable text.
func ExtractPlain(text string) string {
	plain := overrideBlockRe.ReplaceAllString(text, "")
	plain = htmlTagRe.ReplaceAllString(plain, "")
	plain = strings.ReplaceAll(plain, `\N`, "\n")
	plain = strings.ReplaceAll(plain, `\n`, "\n")
	plain = html.UnescapeString(plain)
	plain = spaceRunRe.ReplaceAllString(plain, " ")
	return strings.TrimSpace(plain)
}

// OverrideBlocks returns the {...} blocks of a cue text in source order.
func OverrideBlocks(text string) []string {
	return overrideBlockRe.FindAllString(text, -1)
}

// ReplacePlain rebuilds a cue text from its translation. When the cue
// holds a single text run between override blocks (the common case, e.g.
// "{\i1}Hello{\i0}"), the translation replaces that run in place. Cues
// with several separate text runs get all blocks reattached as a prefix
// in their original order.
func ReplacePlain(entry Entry, translated string) string {
	blocks := OverrideBlocks(entry.Text)
	if len(blocks) == 0 {
		return translated
	}

	textRuns := 0
	for _, segment := range overrideBlockRe.Split(entry.Text, -1) {
		if strings.TrimSpace(segment) != "" {
			textRuns++
		}
	}

	if textRuns <= 1 {
		replaced := false
		var sb strings.Builder
		rest := entry.Text
		for len(rest) > 0 {
			loc := overrideBlockRe.FindStringIndex(rest)
			if loc == nil {
				if strings.TrimSpace(rest) != "" && !replaced {
					sb.WriteString(translated)
					replaced = true
				}
				break
			}
			if strings.TrimSpace(rest[:loc[0]]) != "" && !replaced {
				sb.WriteString(translated)
				replaced = true
			}
			sb.WriteString(rest[loc[0]:loc[1]])
			rest = rest[loc[1]:]
		}
		if !replaced {
			sb.WriteString(translated)
		}
		return sb.String()
	}

	return strings.Join(blocks, "") + translated
}
