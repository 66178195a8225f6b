package prompt

import "strings"

// Series types used to pick few-shot banks and prompt metadata.
const (
	TypeAnime       = "anime"
	TypeLiveAction  = "live_action"
	TypeDocumentary = "documentary"
)

// SeriesMetadata enriches prompts with what the show is about.
type SeriesMetadata struct {
	Title      string
	Genres     []string
	Characters []string
	SeriesType string
}

var animeSignals = map[string]struct{}{
	"animation": {}, "anime": {}, "shounen": {}, "shoujo": {}, "seinen": {},
	"josei": {}, "isekai": {}, "mecha": {}, "magical girl": {}, "slice of life": {},
}

var documentarySignals = map[string]struct{}{
	"documentary": {}, "news": {}, "reality": {}, "talk show": {},
}

// DetectType infers the series type from its genres when it was not set
// explicitly.
func (m SeriesMetadata) DetectType() string {
	if m.SeriesType != "" {
		return m.SeriesType
	}
	for _, genre := range m.Genres {
		if _, ok := animeSignals[strings.ToLower(genre)]; ok {
			return TypeAnime
		}
	}
	for _, genre := range m.Genres {
		if _, ok := documentarySignals[strings.ToLower(genre)]; ok {
			return TypeDocumentary
		}
	}
	return TypeLiveAction
}
