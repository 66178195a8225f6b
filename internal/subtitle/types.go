package subtitle

import (
	"errors"
	"time"

	"golang.org/x/text/language"
)

// Format identifies the subtitle container format.
type Format string

const (
	FormatSRT Format = "SRT"
	FormatASS Format = "ASS"
)

// ErrFormatMismatch is returned for formats the codec does not handle
// directly (e.g. image-based .sub files that need prior extraction).
var ErrFormatMismatch = errors.New("unsupported subtitle format")

// Entry represents a single subtitle cue.
type Entry struct {
	Index     int           // SRT cue index
	Layer     int           // ASS layer
	Style     string        // ASS style name
	Name      string        // ASS actor name
	MarginL   string        // ASS margins kept verbatim
	MarginR   string
	MarginV   string
	Effect    string
	StartTime time.Duration
	EndTime   time.Duration

	Text           string // raw text field as read, tags included
	PlainText      string // extracted translatable text
	TranslatedText string

	// rawLine points at the source line inside File.rawLines for ASS
	// round-tripping; -1 for SRT entries.
	rawLine int
}

// File represents a parsed subtitle file.
type File struct {
	Entries  []Entry
	Language language.Tag
	Format   Format
	Path     string

	// rawLines holds the original file lines for ASS so that every
	// section except dialogue text is emitted verbatim.
	rawLines []string
}
