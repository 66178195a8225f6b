package glossary

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/MimeLyc/batch-sub-translator/pkg/log"
)

const (
	// DefaultMaxTerms caps how many terms the budgeted view returns.
	DefaultMaxTerms = 200
	// DefaultMinOccurrences is how often an auto-tracked name must be
	// seen before it is merged into the glossary.
	DefaultMinOccurrences = 3

	maxValueLen    = 80
	maxValueSpaces = 10
)

// Manager owns the per-series glossary files plus the built-in global
// glossary. Each series is guarded by its own lock so parallel jobs for
// different series never contend.
type Manager struct {
	dir string

	mu     sync.Mutex
	locks  map[string]*sync.Mutex
	loaded map[string]*SeriesGlossary
}

func NewManager(dir string) (*Manager, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("glossary dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create glossary directory: %w", err)
	}
	return &Manager{
		dir:    dir,
		locks:  make(map[string]*sync.Mutex),
		loaded: make(map[string]*SeriesGlossary),
	}, nil
}

func (m *Manager) seriesLock(seriesID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[seriesID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[seriesID] = lock
	}
	return lock
}

func (m *Manager) filePath(seriesID string) string {
	return filepath.Join(m.dir, fmt.Sprintf("series_%s.json", seriesID))
}

// load returns the series glossary, reading it from disk on first use.
// Caller holds the series lock.
func (m *Manager) load(seriesID string) *SeriesGlossary {
	m.mu.Lock()
	cached, ok := m.loaded[seriesID]
	m.mu.Unlock()
	if ok {
		return cached
	}

	g := m.loadFromDisk(seriesID)
	if g == nil {
		g = &SeriesGlossary{
			SchemaVersion: SchemaVersion,
			SeriesID:      seriesID,
			Terms:         make(map[string]Term),
		}
	}

	m.mu.Lock()
	m.loaded[seriesID] = g
	m.mu.Unlock()
	return g
}

func (m *Manager) loadFromDisk(seriesID string) *SeriesGlossary {
	path := m.filePath(seriesID)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("read glossary %s: %v", path, err)
		}
		return nil
	}

	var g SeriesGlossary
	if err := json.Unmarshal(data, &g); err == nil && g.Terms != nil {
		if g.SeriesID == "" {
			g.SeriesID = seriesID
		}
		return &g
	}

	// v1 files stored terms as a flat string map
	if migrated := migrateV1(data, seriesID); migrated != nil {
		log.Info("migrated glossary %s from v1", path)
		return migrated
	}

	quarantine := fmt.Sprintf("%s.corrupt.%d", path, time.Now().Unix())
	if err := os.Rename(path, quarantine); err != nil {
		log.Warn("quarantine corrupt glossary %s: %v", path, err)
	} else {
		log.Warn("corrupt glossary %s moved to %s", path, quarantine)
	}
	return nil
}

func migrateV1(data []byte, seriesID string) *SeriesGlossary {
	var flat map[string]string
	if err := json.Unmarshal(data, &flat); err != nil || len(flat) == 0 {
		return nil
	}
	now := time.Now().UTC()
	terms := make(map[string]Term, len(flat))
	for key, value := range flat {
		terms[strings.ToLower(key)] = Term{
			Value:    value,
			Source:   SourceMigrated,
			Count:    1,
			LastSeen: now,
		}
	}
	return &SeriesGlossary{
		SchemaVersion: SchemaVersion,
		SeriesID:      seriesID,
		Terms:         terms,
	}
}

// save writes the glossary atomically. Caller holds the series lock.
func (m *Manager) save(seriesID string, g *SeriesGlossary) error {
	g.SchemaVersion = SchemaVersion
	g.UpdatedAt = time.Now().UTC().Format(time.RFC3339)

	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal glossary: %w", err)
	}

	path := m.filePath(seriesID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write glossary temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace glossary file: %w", err)
	}
	return nil
}

// EpisodesScanned reports how many episodes contributed terms so far.
func (m *Manager) EpisodesScanned(seriesID string) int {
	lock := m.seriesLock(seriesID)
	lock.Lock()
	defer lock.Unlock()
	return m.load(seriesID).EpisodesScanned
}

// Terms returns a copy of the series term map.
func (m *Manager) Terms(seriesID string) map[string]Term {
	lock := m.seriesLock(seriesID)
	lock.Lock()
	defer lock.Unlock()

	g := m.load(seriesID)
	out := make(map[string]Term, len(g.Terms))
	for k, v := range g.Terms {
		out[k] = v
	}
	return out
}

// GlobalTerms returns the built-in glossary.
func (m *Manager) GlobalTerms() map[string]string {
	return globalTerms
}

// SetTerm pins or updates a term by hand.
func (m *Manager) SetTerm(seriesID, key, value string, pinned bool) error {
	lock := m.seriesLock(seriesID)
	lock.Lock()
	defer lock.Unlock()

	g := m.load(seriesID)
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return fmt.Errorf("term key is empty")
	}
	g.Terms[key] = Term{
		Value:    value,
		Source:   SourceManual,
		Count:    1,
		Pinned:   pinned,
		LastSeen: time.Now().UTC(),
	}
	return m.save(seriesID, g)
}

// MergeSuggested folds auto-tracked proper nouns into the glossary and
// counts the episode as scanned. Keys that are too short, stopwords, or
// whose value looks like a whole sentence are dropped.
func (m *Manager) MergeSuggested(seriesID string, suggested map[string]string, minOccurrences int) error {
	if minOccurrences <= 0 {
		minOccurrences = DefaultMinOccurrences
	}

	lock := m.seriesLock(seriesID)
	lock.Lock()
	defer lock.Unlock()

	g := m.load(seriesID)
	now := time.Now().UTC()
	for key, value := range suggested {
		key = strings.ToLower(strings.TrimSpace(key))
		if len(key) < 3 {
			continue
		}
		if _, ok := stopwords[key]; ok {
			continue
		}
		if len(value) > maxValueLen || strings.Count(value, " ") > maxValueSpaces {
			continue
		}

		existing, ok := g.Terms[key]
		if !ok {
			g.Terms[key] = Term{
				Value:    value,
				Source:   SourceAutoTrack,
				Count:    minOccurrences,
				LastSeen: now,
			}
			continue
		}
		if existing.Source == SourceAutoTrack {
			if minOccurrences > existing.Count {
				existing.Count = minOccurrences
			}
			existing.Value = value
			existing.LastSeen = now
			g.Terms[key] = existing
		}
	}
	g.EpisodesScanned++
	return m.save(seriesID, g)
}

// MergePrescan folds terms discovered by a pre-translation scan into
// the glossary. Existing entries always win over prescan output.
func (m *Manager) MergePrescan(seriesID string, terms map[string]string) error {
	lock := m.seriesLock(seriesID)
	lock.Lock()
	defer lock.Unlock()

	g := m.load(seriesID)
	now := time.Now().UTC()
	for key, value := range terms {
		key = strings.ToLower(strings.TrimSpace(key))
		if len(key) < 2 {
			continue
		}
		if _, ok := g.Terms[key]; ok {
			continue
		}
		g.Terms[key] = Term{
			Value:    value,
			Source:   SourcePrescan,
			Count:    1,
			LastSeen: now,
		}
	}
	if g.EpisodesScanned == 0 {
		g.EpisodesScanned = 1
	}
	return m.save(seriesID, g)
}

// Budgeted returns up to maxTerms entries for prompt injection: series
// terms first, most trusted first, then global terms in key order.
func (m *Manager) Budgeted(seriesID string, maxTerms int) []BudgetedTerm {
	if maxTerms <= 0 {
		maxTerms = DefaultMaxTerms
	}

	lock := m.seriesLock(seriesID)
	lock.Lock()
	g := m.load(seriesID)
	series := make([]BudgetedTerm, 0, len(g.Terms))
	for key, term := range g.Terms {
		series = append(series, BudgetedTerm{
			Key:        key,
			Value:      term.Value,
			Confidence: Confidence(term),
			Pinned:     term.Pinned,
			Count:      term.Count,
		})
	}
	lock.Unlock()

	sort.Slice(series, func(i, j int) bool {
		if series[i].Pinned != series[j].Pinned {
			return series[i].Pinned
		}
		if series[i].Confidence != series[j].Confidence {
			return series[i].Confidence > series[j].Confidence
		}
		if series[i].Count != series[j].Count {
			return series[i].Count > series[j].Count
		}
		return series[i].Key < series[j].Key
	})
	if len(series) > maxTerms {
		series = series[:maxTerms]
	}

	taken := make(map[string]struct{}, len(series))
	for _, t := range series {
		taken[t.Key] = struct{}{}
	}

	globalKeys := make([]string, 0, len(globalTerms))
	for key := range globalTerms {
		globalKeys = append(globalKeys, key)
	}
	sort.Strings(globalKeys)

	for _, key := range globalKeys {
		if len(series) >= maxTerms {
			break
		}
		if _, ok := taken[key]; ok {
			continue
		}
		series = append(series, BudgetedTerm{
			Key:        key,
			Value:      globalTerms[key],
			Confidence: 1.0,
		})
	}
	return series
}

// ApplyToText force-replaces glossary terms in a translated line,
// preserving the casing of the matched word. Series terms win over the
// global glossary.
func (m *Manager) ApplyToText(seriesID, text string) string {
	combined := make(map[string]string, len(globalTerms))
	for key, value := range globalTerms {
		combined[key] = value
	}
	for key, term := range m.Terms(seriesID) {
		combined[key] = term.Value
	}

	keys := make([]string, 0, len(combined))
	for key := range combined {
		if strings.TrimSpace(key) == "" || combined[key] == "" {
			continue
		}
		keys = append(keys, key)
	}
	// longest first so "super saiyan" wins over "saiyan"
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	for _, key := range keys {
		value := combined[key]
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(key) + `\b`)
		if err != nil {
			continue
		}
		text = re.ReplaceAllStringFunc(text, func(match string) string {
			return matchCase(match, value)
		})
	}
	return text
}

// matchCase renders the replacement in the same casing as the match.
func matchCase(match, value string) string {
	if match == strings.ToUpper(match) && strings.ContainsFunc(match, unicode.IsLetter) {
		return strings.ToUpper(value)
	}
	runes := []rune(match)
	if len(runes) > 0 && unicode.IsUpper(runes[0]) {
		return capitalize(value)
	}
	return strings.ToLower(value)
}

func capitalize(s string) string {
	runes := []rune(strings.ToLower(s))
	if len(runes) == 0 {
		return s
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
