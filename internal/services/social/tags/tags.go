// Package tags extracts hashtags from captions and ranks tag usage.
package tags

import (
	"cmp"
	"regexp"
	"slices"
)

var hashtagPattern = regexp.MustCompile(`#([\w\-]+)`)

// Extract returns every hashtag in caption in order of appearance.
// Case and duplicates are preserved.
func Extract(caption string) []string {
	matches := hashtagPattern.FindAllStringSubmatch(caption, -1)
	if len(matches) == 0 {
		return []string{}
	}
	tags := make([]string, 0, len(matches))
	for _, match := range matches {
		tags = append(tags, match[1])
	}
	return tags
}

// Count is the number of uses of one tag.
type Count struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Rank sorts counts by usage descending, then by tag ascending.
func Rank(counts []Count) []Count {
	ranked := slices.Clone(counts)
	slices.SortStableFunc(ranked, func(a, b Count) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Tag, b.Tag)
	})
	return ranked
}
