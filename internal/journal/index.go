package journal

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/madhatter5501/aegis/internal/apperr"
)

// IndexEntry mirrors a journal entry's header for scan-free search; it is
// the unit stored in the sidecar index.json file.
type IndexEntry struct {
	Filename  string         `json:"filename"`
	Author    string         `json:"author"`
	Tags      []string       `json:"tags"`
	Summary   string         `json:"summary"`
	CreatedAt time.Time      `json:"created_at"`
	Decay     RelevanceDecay `json:"relevance_decay"`
}

type indexFile struct {
	Entries   []IndexEntry `json:"entries"`
	UpdatedAt time.Time    `json:"updated_at"`
	Count     int          `json:"count"`
}

// Index is the loaded-on-demand, saved-after-every-mutation journal index.
type Index struct {
	mu      sync.Mutex
	path    string
	entries []IndexEntry
}

// OpenIndex loads the index from path, or starts empty if the file does
// not yet exist.
func OpenIndex(path string) (*Index, error) {
	ix := &Index{path: path}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return ix, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStoreUnavailable, err, "read journal index")
	}
	var f indexFile
	if err := json.Unmarshal(data, &f); err != nil {
		// A corrupt index starts fresh rather than blocking every write,
		// mirroring the original's load() fallback.
		return ix, nil
	}
	ix.entries = f.Entries
	return ix, nil
}

func (ix *Index) save() error {
	if err := os.MkdirAll(filepath.Dir(ix.path), 0o755); err != nil {
		return apperr.Wrap(apperr.KindStoreUnavailable, err, "create journal index directory")
	}
	f := indexFile{Entries: ix.entries, UpdatedAt: time.Now().UTC(), Count: len(ix.entries)}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return apperr.Wrap(apperr.KindInvalidInput, err, "encode journal index")
	}
	tmp := ix.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return apperr.Wrap(apperr.KindStoreUnavailable, err, "write journal index temp file")
	}
	if err := os.Rename(tmp, ix.path); err != nil {
		return apperr.Wrap(apperr.KindStoreUnavailable, err, "rename journal index into place")
	}
	return nil
}

// AddEntry upserts by filename: a second write for the same filename
// replaces the first entry's metadata in place.
func (ix *Index) AddEntry(e IndexEntry) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	for i, existing := range ix.entries {
		if existing.Filename == e.Filename {
			ix.entries[i] = e
			return ix.save()
		}
	}
	ix.entries = append(ix.entries, e)
	return ix.save()
}

// RemoveEntry deletes an entry by filename, reporting whether one was
// found.
func (ix *Index) RemoveEntry(filename string) (bool, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	for i, e := range ix.entries {
		if e.Filename == filename {
			ix.entries = append(ix.entries[:i], ix.entries[i+1:]...)
			return true, ix.save()
		}
	}
	return false, nil
}

// GetEntry looks up a single entry by filename.
func (ix *Index) GetEntry(filename string) (IndexEntry, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	for _, e := range ix.entries {
		if e.Filename == filename {
			return e, true
		}
	}
	return IndexEntry{}, false
}

// Search filters entries by tag overlap (any shared tag matches) and
// keyword substring match against summary and joined tags.
func (ix *Index) Search(tags []string, keywords string) []IndexEntry {
	ix.mu.Lock()
	snapshot := append([]IndexEntry(nil), ix.entries...)
	ix.mu.Unlock()

	var results []IndexEntry
	queryTags := map[string]bool{}
	for _, t := range tags {
		queryTags[t] = true
	}
	keywordTokens := strings.Fields(strings.ToLower(keywords))

	for _, e := range snapshot {
		if len(queryTags) > 0 && !tagsOverlap(e.Tags, queryTags) {
			continue
		}
		if len(keywordTokens) > 0 {
			summaryLower := strings.ToLower(e.Summary)
			tagsText := strings.ToLower(strings.Join(e.Tags, " "))
			matched := false
			for _, tok := range keywordTokens {
				if strings.Contains(summaryLower, tok) || strings.Contains(tagsText, tok) {
					matched = true
					break
				}
			}
			if !matched {
				continue
			}
		}
		results = append(results, e)
	}
	return results
}

func tagsOverlap(entryTags []string, queryTags map[string]bool) bool {
	for _, t := range entryTags {
		if queryTags[t] {
			return true
		}
	}
	return false
}

// GetByDateRange returns entries created within [start, end], newest
// first.
func (ix *Index) GetByDateRange(start, end time.Time) []IndexEntry {
	ix.mu.Lock()
	snapshot := append([]IndexEntry(nil), ix.entries...)
	ix.mu.Unlock()

	var results []IndexEntry
	for _, e := range snapshot {
		if !e.CreatedAt.Before(start) && !e.CreatedAt.After(end) {
			results = append(results, e)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].CreatedAt.After(results[j].CreatedAt) })
	return results
}

// GetByAuthor returns every entry attributed to author.
func (ix *Index) GetByAuthor(author string) []IndexEntry {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	var results []IndexEntry
	for _, e := range ix.entries {
		if e.Author == author {
			results = append(results, e)
		}
	}
	return results
}

// GetAllTags returns the sorted set of unique tags across all entries.
func (ix *Index) GetAllTags() []string {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	set := map[string]bool{}
	for _, e := range ix.entries {
		for _, t := range e.Tags {
			set[t] = true
		}
	}
	tags := make([]string, 0, len(set))
	for t := range set {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

// GetRecent returns the most recently created entries, newest first.
func (ix *Index) GetRecent(limit int) []IndexEntry {
	ix.mu.Lock()
	snapshot := append([]IndexEntry(nil), ix.entries...)
	ix.mu.Unlock()

	sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].CreatedAt.After(snapshot[j].CreatedAt) })
	if limit > 0 && limit < len(snapshot) {
		snapshot = snapshot[:limit]
	}
	return snapshot
}

// All returns a defensive copy of every entry, in index order.
func (ix *Index) All() []IndexEntry {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return append([]IndexEntry(nil), ix.entries...)
}
