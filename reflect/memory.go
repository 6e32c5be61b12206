package reflect

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/calibrateai/accuracy/accuracytype"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const defaultMaxResults = 5

var stopWords = map[string]struct{}{
	"what": {}, "is": {}, "the": {}, "of": {}, "a": {}, "an": {},
	"to": {}, "for": {}, "in": {}, "on": {}, "at": {},
}

var punctRe = regexp.MustCompile(`[^\p{L}\p{N}\s]`)

// extractKeywords lowercases text, strips punctuation/symbols, and drops
// stop words.
func extractKeywords(text string) []string {
	lower := strings.ToLower(text)
	cleaned := punctRe.ReplaceAllString(lower, " ")
	var keywords []string
	for _, tok := range strings.Fields(cleaned) {
		if _, stop := stopWords[tok]; stop {
			continue
		}
		keywords = append(keywords, tok)
	}
	return keywords
}

// Store is the storage backend a Memory persists entries through: an
// in-process map, or a shared table (redis-backed "ets" mode).
type Store interface {
	Put(ctx context.Context, entry accuracytype.ReflexionMemoryEntry) error
	All(ctx context.Context) ([]accuracytype.ReflexionMemoryEntry, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}

// Config configures a Memory instance.
type Config struct {
	MaxEntries        int
	SimilarityThreshold float64
	MaxResults        int
}

// Memory is the keyword-indexed episodic mistake/correction store of
// spec §4.8.
type Memory struct {
	store Store
	cfg   Config
}

// NewInProcessMemory builds a Memory backed by an in-process ("memory"
// mode) store.
func NewInProcessMemory(cfg Config) *Memory {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = defaultMaxResults
	}
	return &Memory{store: newInProcessStore(), cfg: cfg}
}

// NewSharedMemory builds a Memory backed by a redis-backed shared table
// ("ets" mode), keyed under tableName.
func NewSharedMemory(client *redis.Client, tableName string, cfg Config) *Memory {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = defaultMaxResults
	}
	return &Memory{store: newRedisStore(client, tableName), cfg: cfg}
}

// Store records entry, auto-generating ID/Timestamp/Keywords as needed and
// evicting the oldest entry if MaxEntries would be exceeded.
func (m *Memory) Store(ctx context.Context, entry accuracytype.ReflexionMemoryEntry) error {
	if entry.Prompt == "" {
		return accuracytype.NewPipelineError("reflect.Memory.Store", "reflect", accuracytype.ErrPromptRequired)
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if len(entry.Keywords) == 0 {
		entry.Keywords = extractKeywords(entry.Prompt + " " + entry.Mistake + " " + entry.Correction)
	}

	all, err := m.store.All(ctx)
	if err != nil {
		return err
	}
	if m.cfg.MaxEntries > 0 && len(all) >= m.cfg.MaxEntries {
		oldest := all[0]
		for _, e := range all[1:] {
			if e.Timestamp.Before(oldest.Timestamp) {
				oldest = e
			}
		}
		if err := m.store.Delete(ctx, oldest.ID); err != nil {
			return err
		}
	}

	return m.store.Put(ctx, entry)
}

// RetrieveSimilar returns entries whose keyword-set Jaccard similarity to
// query meets the configured threshold, sorted by descending similarity
// and truncated to MaxResults.
func (m *Memory) RetrieveSimilar(ctx context.Context, query string) ([]accuracytype.ReflexionMemoryEntry, error) {
	all, err := m.store.All(ctx)
	if err != nil {
		return nil, err
	}
	queryKeywords := keywordSet(extractKeywords(query))

	type scored struct {
		entry accuracytype.ReflexionMemoryEntry
		sim   float64
	}
	var matches []scored
	for _, e := range all {
		sim := jaccardSets(queryKeywords, keywordSet(e.Keywords))
		if sim >= m.cfg.SimilarityThreshold {
			matches = append(matches, scored{entry: e, sim: sim})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].sim > matches[j].sim })

	maxResults := m.cfg.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	if len(matches) > maxResults {
		matches = matches[:maxResults]
	}

	out := make([]accuracytype.ReflexionMemoryEntry, len(matches))
	for i, s := range matches {
		out[i] = s.entry
	}
	return out, nil
}

func keywordSet(keywords []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keywords))
	for _, k := range keywords {
		set[k] = struct{}{}
	}
	return set
}

func jaccardSets(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	intersection := 0
	for k := range a {
		if _, ok := b[k]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

// FormatForPrompt renders entries as the fixed human-readable block the
// spec names. Empty input returns an empty string.
func FormatForPrompt(entries []accuracytype.ReflexionMemoryEntry) string {
	if len(entries) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Past mistakes to learn from:\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "Question: %s\nMistake: %s\nCorrection: %s\n\n", e.Prompt, e.Mistake, e.Correction)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Clear removes all entries.
func (m *Memory) Clear(ctx context.Context) error { return m.store.Clear(ctx) }

// Count reports the number of stored entries.
func (m *Memory) Count(ctx context.Context) (int, error) {
	all, err := m.store.All(ctx)
	if err != nil {
		return 0, err
	}
	return len(all), nil
}

// ListEntries returns every stored entry.
func (m *Memory) ListEntries(ctx context.Context) ([]accuracytype.ReflexionMemoryEntry, error) {
	return m.store.All(ctx)
}

// Stop is idempotent and releases nothing for any store; a redis-backed
// store's client is not closed by it.
func (m *Memory) Stop(_ context.Context) error { return nil }

// inProcessStore is the "memory" storage mode: a process-local, mutex
// guarded map.
type inProcessStore struct {
	mu      sync.Mutex
	entries map[string]accuracytype.ReflexionMemoryEntry
}

func newInProcessStore() *inProcessStore {
	return &inProcessStore{entries: map[string]accuracytype.ReflexionMemoryEntry{}}
}

func (s *inProcessStore) Put(_ context.Context, entry accuracytype.ReflexionMemoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.ID] = entry
	return nil
}

func (s *inProcessStore) All(_ context.Context) ([]accuracytype.ReflexionMemoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]accuracytype.ReflexionMemoryEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	return out, nil
}

func (s *inProcessStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

func (s *inProcessStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = map[string]accuracytype.ReflexionMemoryEntry{}
	return nil
}
