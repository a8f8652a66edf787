package journal

import (
	"math"
	"sort"
	"strings"
	"time"
)

const (
	relevanceWeight = 0.6
	recencyWeight   = 0.4
)

// ScoredEntry is an IndexEntry annotated with its retrieval scores.
type ScoredEntry struct {
	IndexEntry
	Relevance float64
	Recency   float64
	Combined  float64
}

// Retriever ranks journal entries by a weighted blend of tag/keyword
// relevance and recency with per-entry exponential decay.
type Retriever struct {
	index *Index
}

// NewRetriever builds a Retriever over an already-open index.
func NewRetriever(index *Index) *Retriever {
	return &Retriever{index: index}
}

// Retrieve runs the two-pass process: filter by tags/keywords (or take
// every entry if both are empty), score, sort descending by combined
// score, and return the first topN. Ties keep candidate iteration order
// (sort.SliceStable).
func (r *Retriever) Retrieve(tags []string, queryText string, topN int) []ScoredEntry {
	var candidates []IndexEntry
	if len(tags) > 0 || queryText != "" {
		candidates = r.index.Search(tags, queryText)
	} else {
		candidates = r.index.All()
	}
	if len(candidates) == 0 {
		return nil
	}

	now := time.Now().UTC()
	scored := make([]ScoredEntry, len(candidates))
	for i, e := range candidates {
		relevance := relevanceScore(e, tags, queryText)
		recency := recencyScore(e, now)
		scored[i] = ScoredEntry{
			IndexEntry: e,
			Relevance:  relevance,
			Recency:    recency,
			Combined:   relevanceWeight*relevance + recencyWeight*recency,
		}
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Combined > scored[j].Combined })
	if topN > 0 && topN < len(scored) {
		scored = scored[:topN]
	}
	return scored
}

// GetRelatedEntries uses the reference entry's own tags as the query and
// excludes the reference from the results.
func (r *Retriever) GetRelatedEntries(filename string, topN int) []ScoredEntry {
	reference, ok := r.index.GetEntry(filename)
	if !ok || len(reference.Tags) == 0 {
		return nil
	}

	results := r.Retrieve(reference.Tags, "", topN+1)
	filtered := make([]ScoredEntry, 0, len(results))
	for _, e := range results {
		if e.Filename != filename {
			filtered = append(filtered, e)
		}
	}
	if len(filtered) > topN {
		filtered = filtered[:topN]
	}
	return filtered
}

func relevanceScore(e IndexEntry, queryTags []string, queryText string) float64 {
	var score, maxPossible float64

	if len(queryTags) > 0 {
		maxPossible += 0.5
		entryTags := map[string]bool{}
		for _, t := range e.Tags {
			entryTags[t] = true
		}
		matched := 0
		for _, t := range queryTags {
			if entryTags[t] {
				matched++
			}
		}
		score += 0.5 * (float64(matched) / float64(len(queryTags)))
	}

	if queryText != "" {
		maxPossible += 0.5
		tokens := strings.Fields(strings.ToLower(queryText))
		if len(tokens) > 0 {
			summaryLower := strings.ToLower(e.Summary)
			tagsText := strings.ToLower(strings.Join(e.Tags, " "))

			summaryMatches, tagMatches := 0, 0
			for _, tok := range tokens {
				if strings.Contains(summaryLower, tok) {
					summaryMatches++
				}
				if strings.Contains(tagsText, tok) {
					tagMatches++
				}
			}
			summaryRatio := float64(summaryMatches) / float64(len(tokens))
			tagRatio := float64(tagMatches) / float64(len(tokens))
			score += 0.5 * math.Max(summaryRatio, tagRatio)
		}
	}

	if maxPossible > 0 {
		return score / maxPossible
	}
	return 0.5
}

func recencyScore(e IndexEntry, now time.Time) float64 {
	if e.CreatedAt.IsZero() {
		return 0.5
	}
	ageDays := now.Sub(e.CreatedAt).Seconds() / 86400
	rate, ok := decayRates[e.Decay]
	if !ok {
		rate = decayRates[DecayMedium]
	}
	score := math.Exp(-rate * ageDays)
	return math.Max(0, math.Min(1, score))
}
