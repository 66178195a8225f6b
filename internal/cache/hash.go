package cache

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"strings"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// normalize collapses whitespace and lowercases so trivially different
// renderings of the same line share one cache slot.
func normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " ")))
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// keyV1 hashes the line alone. Kept for entries written before context
// became part of the key.
func keyV1(text, sourceLang, targetLang string) string {
	return md5Hex(normalize(text) + "|" + sourceLang + "|" + targetLang)
}

// keyV2 hashes the line together with its neighbours, so the same line
// in a different scene does not collide.
func keyV2(text, prevLine, nextLine, sourceLang, targetLang string) string {
	return md5Hex(normalize(text) + "|" + normalize(prevLine) + "|" + normalize(nextLine) +
		"|" + sourceLang + "|" + targetLang + "|v2")
}
