package glossary

import "time"

// SchemaVersion is the current on-disk format of series glossaries.
const SchemaVersion = 2

// Term is one glossary entry for a series.
type Term struct {
	Value    string    `json:"value"`
	Source   string    `json:"source"`
	Count    int       `json:"count"`
	Pinned   bool      `json:"pinned"`
	LastSeen time.Time `json:"last_seen"`
}

// Term sources, in rough order of trust.
const (
	SourceManual    = "manual"
	SourceSonarr    = "sonarr"
	SourceAniList   = "anilist"
	SourcePrescan   = "llm_prescan"
	SourceAutoTrack = "auto_track"
	SourceMigrated  = "migrated"
)

// SeriesGlossary is the per-series term file.
type SeriesGlossary struct {
	SchemaVersion   int             `json:"schema_version"`
	SeriesID        string          `json:"series_id"`
	EpisodesScanned int             `json:"episodes_scanned"`
	UpdatedAt       string          `json:"updated_at"`
	Terms           map[string]Term `json:"terms"`
}

// BudgetedTerm is a term selected for prompt injection.
type BudgetedTerm struct {
	Key        string
	Value      string
	Confidence float64
	Pinned     bool
	Count      int
}

// stopwords are high-frequency words never worth tracking as terms.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "you": {}, "are": {}, "not": {},
	"but": {}, "his": {}, "her": {}, "has": {}, "had": {}, "was": {},
	"all": {}, "can": {}, "out": {}, "did": {}, "get": {}, "him": {},
	"say": {}, "she": {}, "they": {}, "this": {}, "with": {}, "that": {},
	"from": {}, "have": {}, "will": {}, "one": {}, "yes": {}, "no": {},
	"ok": {}, "oh": {}, "ah": {},
}

// Confidence derives a 0..1 trust score for a term. Pinned terms are
// absolute; otherwise the source sets a base and repeated sightings add
// up to 0.2 on top.
func Confidence(term Term) float64 {
	if term.Pinned {
		return 1.0
	}
	base := 0.5
	switch term.Source {
	case SourceSonarr:
		base = 0.9
	case SourceAniList:
		base = 0.85
	case SourcePrescan:
		base = 0.75
	case SourceManual:
		base = 0.95
	case SourceMigrated:
		base = 0.7
	}
	bonus := float64(term.Count) * 0.02
	if bonus > 0.2 {
		bonus = 0.2
	}
	conf := base + bonus
	if conf > 1.0 {
		conf = 1.0
	}
	return conf
}
