// Package ranking computes deterministic per-viewer orderings over feed item
// candidates. Everything here is a pure function over in-memory slices: no
// shared state, safe to call once per page load.
package ranking

import (
	"cmp"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/roboticshub/newsfeed/app/database"
)

const (
	// recencyWindowHours is the freshness window: items younger than this get
	// a linear boost scaled to 1.0 at age zero.
	recencyWindowHours = 72

	// keywordHitWeight is the score contribution per matched interest word.
	keywordHitWeight = 2
)

// NormalizeInterests lowercases, trims, and drops empty interest words.
func NormalizeInterests(words []string) []string {
	normalized := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			normalized = append(normalized, w)
		}
	}
	return normalized
}

// Score is base score + recency decay + keyword match bonus. Interest words
// are expected pre-normalized (see NormalizeInterests).
func Score(item database.Item, now time.Time, interests []string) float64 {
	score := item.Score

	hours := now.Sub(item.PublishedAt).Hours()
	if hours < 0 {
		hours = 0
	}
	score += math.Max(0, recencyWindowHours-hours) / recencyWindowHours

	if len(interests) > 0 {
		haystack := strings.ToLower(item.Title + " " + item.Excerpt + " " + item.Author + " " + item.SourceName)
		hits := 0
		for _, word := range interests {
			if word == "" {
				continue
			}
			// Each word counts once no matter how often it occurs.
			if strings.Contains(haystack, word) {
				hits++
			}
		}
		score += float64(hits * keywordHitWeight)
	}

	return score
}

// Rank orders items strictly descending by score. The sort is stable over the
// input order, so identical inputs always produce identical output.
func Rank(items []database.Item, now time.Time, interests []string) []database.Item {
	type scored struct {
		item  database.Item
		score float64
	}

	pairs := make([]scored, 0, len(items))
	for _, item := range items {
		pairs = append(pairs, scored{item: item, score: Score(item, now, interests)})
	}

	slices.SortStableFunc(pairs, func(a, b scored) int {
		return cmp.Compare(b.score, a.score)
	})

	ranked := make([]database.Item, 0, len(pairs))
	for _, pair := range pairs {
		ranked = append(ranked, pair.item)
	}
	return ranked
}

// Merge folds a freshly loaded page into an already-ranked list: dedupe by id
// with the newer page winning, then fully re-rank the union. A lower-priority
// page is never just appended below what was already shown.
func Merge(prev, next []database.Item, now time.Time, interests []string) []database.Item {
	seen := make(map[string]int, len(prev)+len(next))
	merged := make([]database.Item, 0, len(prev)+len(next))

	for _, item := range prev {
		seen[item.ID] = len(merged)
		merged = append(merged, item)
	}
	for _, item := range next {
		if at, ok := seen[item.ID]; ok {
			merged[at] = item
			continue
		}
		seen[item.ID] = len(merged)
		merged = append(merged, item)
	}

	return Rank(merged, now, interests)
}
