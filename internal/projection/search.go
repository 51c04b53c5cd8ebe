package projection

import (
	"github.com/nikbrunner/tora/internal/model"
	"github.com/sahilm/fuzzy"
)

// SearchResult represents a fuzzy search match.
type SearchResult struct {
	Link           model.Link
	MatchedIndexes []int
	Score          int
}

// linkTitles implements fuzzy.Source over link titles.
type linkTitles []model.Link

func (lt linkTitles) String(i int) string {
	return lt[i].Title
}

func (lt linkTitles) Len() int {
	return len(lt)
}

// FuzzySearch ranks links by fuzzy title match, best first.
// An empty query matches nothing.
func FuzzySearch(links []model.Link, query string) []SearchResult {
	if query == "" {
		return nil
	}

	matches := fuzzy.FindFrom(query, linkTitles(links))

	results := make([]SearchResult, len(matches))
	for i, m := range matches {
		results[i] = SearchResult{
			Link:           links[m.Index],
			MatchedIndexes: m.MatchedIndexes,
			Score:          m.Score,
		}
	}
	return results
}
