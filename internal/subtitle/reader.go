package subtitle

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"
)

var srtTimeRe = regexp.MustCompile(`(\d{2}):(\d{2}):(\d{2}),(\d{3}) --> (\d{2}):(\d{2}):(\d{2}),(\d{3})`)
var assTimeRe = regexp.MustCompile(`^(\d+):(\d{2}):(\d{2})\.(\d{2})$`)

// Parse reads a subtitle file and detects its format from the extension
// and content. Only text-form SRT and ASS/SSA are handled; .sub files
// must be extracted upstream.
func Parse(path string) (*File, error) {
	ext := strings.TrimPrefix(strings.ToLower(getExt(path)), ".")
	if ext == "sub" {
		return nil, fmt.Errorf("%w: %s", ErrFormatMismatch, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read subtitle file: %w", err)
	}

	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	content = strings.TrimPrefix(content, "\ufeff")
	lines := strings.Split(content, "\n")

	var file *File
	if isASSContent(ext, content) {
		file, err = parseASS(lines)
	} else {
		file, err = parseSRT(lines)
	}
	if err != nil {
		return nil, err
	}

	file.Path = path
	file.Language = detectLanguage(file.Entries)
	return file, nil
}

func getExt(path string) string {
	idx := strings.LastIndex(path, ".")
	if idx < 0 {
		return ""
	}
	return path[idx:]
}

// isASSContent sniffs the format: the extension wins, content markers
// decide when the extension is ambiguous or missing.
func isASSContent(ext, content string) bool {
	switch ext {
	case "ass", "ssa":
		return true
	case "srt":
		return false
	}
	return strings.Contains(content, "[Script Info]") || strings.Contains(content, "Dialogue:")
}

func parseSRT(lines []string) (*File, error) {
	var entries []Entry

	current := Entry{rawLine: -1}
	state := "index"
	var textLines []string

	for _, raw := range lines {
		line := strings.TrimSpace(raw)

		switch state {
		case "index":
			if line == "" {
				continue
			}
			index, err := strconv.Atoi(line)
			if err != nil {
				continue // skip non-index lines
			}
			current.Index = index
			state = "time"

		case "time":
			if line == "" {
				continue
			}
			startTime, endTime, err := parseSRTTime(line)
			if err != nil {
				return nil, fmt.Errorf("parse time range: %w", err)
			}
			current.StartTime = startTime
			current.EndTime = endTime
			state = "text"
			textLines = []string{}

		case "text":
			if line == "" {
				if len(textLines) > 0 {
					current.Text = strings.Join(textLines, "\n")
					current.PlainText = ExtractPlain(current.Text)
					entries = append(entries, current)
					current = Entry{rawLine: -1}
				}
				state = "index"
				textLines = []string{}
			} else {
				textLines = append(textLines, line)
			}
		}
	}

	// handle last cue without trailing blank line
	if state == "text" && len(textLines) > 0 {
		current.Text = strings.Join(textLines, "\n")
		current.PlainText = ExtractPlain(current.Text)
		entries = append(entries, current)
	}

	return &File{
		Entries: entries,
		Format:  FormatSRT,
	}, nil
}

func parseSRTTime(timeString string) (time.Duration, time.Duration, error) {
	matches := srtTimeRe.FindStringSubmatch(timeString)
	if len(matches) != 9 {
		return 0, 0, fmt.Errorf("invalid time format: %s", timeString)
	}

	parseTime := func(hours, minutes, seconds, milliseconds string) time.Duration {
		h, _ := strconv.Atoi(hours)
		m, _ := strconv.Atoi(minutes)
		s, _ := strconv.Atoi(seconds)
		ms, _ := strconv.Atoi(milliseconds)

		return time.Duration(h)*time.Hour +
			time.Duration(m)*time.Minute +
			time.Duration(s)*time.Second +
			time.Duration(ms)*time.Millisecond
	}

	return parseTime(matches[1], matches[2], matches[3], matches[4]),
		parseTime(matches[5], matches[6], matches[7], matches[8]),
		nil
}

func parseASS(lines []string) (*File, error) {
	var entries []Entry

	inEvents := false
	for i, raw := range lines {
		line := strings.TrimSpace(raw)

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			inEvents = strings.EqualFold(line, "[Events]")
			continue
		}
		if !inEvents || !strings.HasPrefix(line, "Dialogue:") {
			continue
		}

		entry, err := parseDialogueLine(line, i)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return &File{
		Entries:  entries,
		Format:   FormatASS,
		rawLines: lines,
	}, nil
}

// parseDialogueLine splits an ASS event row. The Text field may itself
// contain commas, so only the first nine separators count.
func parseDialogueLine(line string, rawLine int) (Entry, error) {
	body := strings.TrimSpace(strings.TrimPrefix(line, "Dialogue:"))
	fields := strings.SplitN(body, ",", 10)
	if len(fields) < 10 {
		return Entry{}, fmt.Errorf("malformed dialogue line: %s", line)
	}

	layer, _ := strconv.Atoi(strings.TrimSpace(fields[0]))
	startTime, err := parseASSTime(strings.TrimSpace(fields[1]))
	if err != nil {
		return Entry{}, fmt.Errorf("parse dialogue start: %w", err)
	}
	endTime, err := parseASSTime(strings.TrimSpace(fields[2]))
	if err != nil {
		return Entry{}, fmt.Errorf("parse dialogue end: %w", err)
	}

	text := fields[9]
	return Entry{
		Layer:     layer,
		Style:     fields[3],
		Name:      fields[4],
		MarginL:   fields[5],
		MarginR:   fields[6],
		MarginV:   fields[7],
		Effect:    fields[8],
		StartTime: startTime,
		EndTime:   endTime,
		Text:      text,
		PlainText: ExtractPlain(text),
		rawLine:   rawLine,
	}, nil
}

func parseASSTime(s string) (time.Duration, error) {
	matches := assTimeRe.FindStringSubmatch(s)
	if len(matches) != 5 {
		return 0, fmt.Errorf("invalid time format: %s", s)
	}
	h, _ := strconv.Atoi(matches[1])
	m, _ := strconv.Atoi(matches[2])
	sec, _ := strconv.Atoi(matches[3])
	cs, _ := strconv.Atoi(matches[4])

	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(sec)*time.Second +
		time.Duration(cs)*10*time.Millisecond, nil
}

// detectLanguage picks the majority language across cue texts.
func detectLanguage(entries []Entry) language.Tag {
	if len(entries) == 0 {
		return language.Und
	}

	langMap := make(map[string]int)
	for _, entry := range entries {
		lang := whatlanggo.DetectLang(entry.PlainText).Iso6391()
		langMap[lang]++
	}

	var topLang string
	var topCount int
	for lang, count := range langMap {
		if count > topCount {
			topLang = lang
			topCount = count
		}
	}

	return language.Make(topLang)
}
