package glossary

import (
	"encoding/json"
	"strings"
)

// ParsePrescanResponse extracts term pairs from a model's pre-scan
// answer. It prefers the first JSON object in the text; when no valid
// JSON is present it falls back to line-by-line "term -> value" pairs.
func ParsePrescanResponse(response string) map[string]string {
	if terms := parseJSONBlock(response); len(terms) > 0 {
		return terms
	}
	return parseLinePairs(response)
}

func parseJSONBlock(response string) map[string]string {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start < 0 || end <= start {
		return nil
	}

	var raw map[string]string
	if err := json.Unmarshal([]byte(response[start:end+1]), &raw); err != nil {
		return nil
	}

	terms := make(map[string]string, len(raw))
	for key, value := range raw {
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		if len(key) < 2 || value == "" {
			continue
		}
		terms[key] = value
	}
	return terms
}

var pairSeparators = []string{"->", "→", ":"}

func parseLinePairs(response string) map[string]string {
	terms := make(map[string]string)
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*• "))
		if line == "" {
			continue
		}
		for _, sep := range pairSeparators {
			idx := strings.Index(line, sep)
			if idx <= 0 {
				continue
			}
			key := strings.ToLower(strings.TrimSpace(line[:idx]))
			value := strings.TrimSpace(strings.Trim(line[idx+len(sep):], `"' `))
			key = strings.Trim(key, `"' `)
			if len(key) >= 2 && value != "" {
				terms[key] = value
			}
			break
		}
	}
	return terms
}
