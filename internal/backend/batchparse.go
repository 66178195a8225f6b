package backend

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	batchLineRe     = regexp.MustCompile(`^(\d+)[│.\):\s]+(.+)$`)
	batchFallbackRe = regexp.MustCompile(`^(\d+)\s*[-–—]?\s+(.+)$`)
)

// ParseBatchResponse extracts numbered translations from a batch model
// reply. Keys are the 1-based line numbers the prompt used. It returns
// nil when too little of the reply is parseable or too many lines are
// missing, which tells the caller to fall back to smaller batches.
func ParseBatchResponse(response string, expected int) map[int]string {
	if expected <= 0 {
		return nil
	}

	parse := func(re *regexp.Regexp) map[int]string {
		out := make(map[int]string)
		for _, line := range strings.Split(response, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			m := re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			n, err := strconv.Atoi(m[1])
			if err != nil || n < 1 || n > expected {
				continue
			}
			text := strings.TrimSpace(m[2])
			text = strings.TrimSpace(strings.TrimLeft(text, "-–—"))
			text = stripQuotes(text)
			if text == "" || text == "..." {
				continue
			}
			if _, seen := out[n]; !seen {
				out[n] = text
			}
		}
		return out
	}

	parsed := parse(batchLineRe)
	if fallback := parse(batchFallbackRe); len(fallback) > len(parsed) {
		parsed = fallback
	}

	if float64(len(parsed)) < 0.6*float64(expected) {
		return nil
	}
	missing := expected - len(parsed)
	if float64(missing) > 0.3*float64(expected) {
		return nil
	}
	return parsed
}

func stripQuotes(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			return strings.TrimSpace(s[1 : len(s)-1])
		}
	}
	if strings.HasPrefix(s, "“") && strings.HasSuffix(s, "”") {
		return strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(s, "“"), "”"))
	}
	return s
}
