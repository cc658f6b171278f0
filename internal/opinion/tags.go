// Package opinion handles the opinion form and the tag cloud aggregated from
// every stored opinion.
package opinion

import (
	"sort"
	"strings"

	"github.com/peacoop/campaign-site/internal/normalize"
	"github.com/peacoop/campaign-site/internal/types"
)

// DefaultTagLimit is the number of tags kept in the cloud.
const DefaultTagLimit = 30

// Default font scale range of the cloud, in rem.
const (
	DefaultMinScale = 0.8
	DefaultMaxScale = 2.4
)

// BuildTagFrequency counts, for each lower-cased tag, the number of opinions
// that carry it. A tag repeated inside one opinion counts once. The result is
// sorted by count, highest first; ties keep first-seen order. Only the first
// limit tags are returned (all of them when limit <= 0).
func BuildTagFrequency(opinions []types.OpinionSubmission, limit int) []types.TagCount {
	counts := make(map[string]int)
	var order []string

	for _, op := range opinions {
		seen := make(map[string]bool)
		for _, tag := range normalize.SplitTags(op.Tags) {
			tag = strings.ToLower(tag)
			if seen[tag] {
				continue
			}
			seen[tag] = true
			if _, ok := counts[tag]; !ok {
				order = append(order, tag)
			}
			counts[tag]++
		}
	}

	ranked := make([]types.TagCount, len(order))
	for i, tag := range order {
		ranked[i] = types.TagCount{Tag: tag, Count: counts[tag]}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// FontScale interpolates count between minCount and maxCount onto [lo, hi].
// When every count is equal the result is lo.
func FontScale(count, minCount, maxCount int, lo, hi float64) float64 {
	if maxCount <= minCount {
		return lo
	}
	ratio := float64(count-minCount) / float64(maxCount-minCount)
	return lo + ratio*(hi-lo)
}

// Scale assigns a font scale to every ranked tag, in place.
func Scale(ranked []types.TagCount, lo, hi float64) []types.TagCount {
	if len(ranked) == 0 {
		return ranked
	}
	minCount, maxCount := ranked[0].Count, ranked[0].Count
	for _, tc := range ranked {
		minCount = min(minCount, tc.Count)
		maxCount = max(maxCount, tc.Count)
	}
	for i := range ranked {
		ranked[i].Scale = FontScale(ranked[i].Count, minCount, maxCount, lo, hi)
	}
	return ranked
}
