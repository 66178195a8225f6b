package subtitle

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"
)

// Emit writes the subtitle file to the given path, UTF-8 without BOM.
// Cues with a TranslatedText use it; others keep their original text.
// ASS output preserves every non-dialogue line verbatim.
func Emit(file *File, path string) error {
	if file == nil {
		return fmt.Errorf("subtitle data is empty")
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer out.Close()

	writer := bufio.NewWriter(out)
	defer writer.Flush()

	switch file.Format {
	case FormatASS:
		return emitASS(writer, file)
	default:
		return emitSRT(writer, file)
	}
}

func emitSRT(writer *bufio.Writer, file *File) error {
	for _, entry := range file.Entries {
		fmt.Fprintf(writer, "%d\n", entry.Index)

		startTime := formatSRTDuration(entry.StartTime)
		endTime := formatSRTDuration(entry.EndTime)
		fmt.Fprintf(writer, "%s --> %s\n", startTime, endTime)

		text := entry.TranslatedText
		if text == "" {
			text = entry.Text
		}
		fmt.Fprintf(writer, "%s\n\n", text)
	}
	return nil
}

func emitASS(writer *bufio.Writer, file *File) error {
	lines := make([]string, len(file.rawLines))
	copy(lines, file.rawLines)

	for _, entry := range file.Entries {
		if entry.TranslatedText == "" || entry.rawLine < 0 || entry.rawLine >= len(lines) {
			continue
		}
		rebuilt, err := rebuildDialogueLine(lines[entry.rawLine], entry.TranslatedText)
		if err != nil {
			return err
		}
		lines[entry.rawLine] = rebuilt
	}

	for i, line := range lines {
		if i == len(lines)-1 && line == "" {
			break // do not duplicate the trailing newline
		}
		fmt.Fprintf(writer, "%s\n", line)
	}
	return nil
}

// rebuildDialogueLine swaps only the Text field of a Dialogue row,
// keeping layer, timestamps, style and margins byte-for-byte.
func rebuildDialogueLine(raw string, translated string) (string, error) {
	idx := strings.Index(raw, "Dialogue:")
	if idx < 0 {
		return "", fmt.Errorf("not a dialogue line: %s", raw)
	}
	head := raw[:idx+len("Dialogue:")]
	body := raw[idx+len("Dialogue:"):]

	fields := strings.SplitN(body, ",", 10)
	if len(fields) < 10 {
		return "", fmt.Errorf("malformed dialogue line: %s", raw)
	}
	fields[9] = translated
	return head + strings.Join(fields, ","), nil
}

// formatSRTDuration renders a duration in the SRT HH:MM:SS,mmm form.
func formatSRTDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	milliseconds := int(d.Milliseconds()) % 1000

	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, milliseconds)
}

// FormatASSDuration renders a duration in the ASS H:MM:SS.cc form.
func FormatASSDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	centis := int(d.Milliseconds()) % 1000 / 10

	return fmt.Sprintf("%d:%02d:%02d.%02d", hours, minutes, seconds, centis)
}
