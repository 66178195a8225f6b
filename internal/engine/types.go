package engine

import (
	"context"

	"github.com/MimeLyc/batch-sub-translator/internal/prompt"
)

// SubtitleSource yields already-extracted text subtitle files for a
// video. Container demuxing and OCR live behind this seam.
type SubtitleSource interface {
	Extract(ctx context.Context, videoPath string, preferredTrack int) ([]ExtractedSubtitle, error)
}

// ExtractedSubtitle describes one subtitle file produced by a
// SubtitleSource.
type ExtractedSubtitle struct {
	Path     string
	Language string
	CodecID  string
}

// SeriesMetadataProvider resolves show metadata for a series id.
// Sonarr and AniList clients implement this; when none is available the
// engine runs with path-derived metadata only.
type SeriesMetadataProvider interface {
	Metadata(ctx context.Context, seriesID string) (prompt.SeriesMetadata, error)
}

// ProgressReporter receives per-file completion percentages and
// categorized log lines for an external UI.
type ProgressReporter interface {
	Progress(path string, percent int)
	Log(level, message string)
}
