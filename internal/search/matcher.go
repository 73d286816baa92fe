package search

import (
	"math/rand/v2"
	"strings"

	"github.com/Aman-CERP/perfshop/internal/catalog"
)

// Terms splits a query into lower-cased, whitespace-separated terms.
// An empty or whitespace-only query has no terms.
func Terms(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// Matches reports whether every term is a substring of the product's
// lower-cased name, description or category.
func Matches(p catalog.Product, terms []string) bool {
	if len(terms) == 0 {
		return false
	}
	name := strings.ToLower(p.Name)
	desc := strings.ToLower(p.Description)
	category := strings.ToLower(p.Category)

	for _, term := range terms {
		if !strings.Contains(name, term) &&
			!strings.Contains(desc, term) &&
			!strings.Contains(category, term) {
			return false
		}
	}
	return true
}

// RelevanceFunc produces the cosmetic relevance shown next to a result.
type RelevanceFunc func() int

// randomRelevance returns a value in [60, 99].
func randomRelevance() int {
	return 60 + rand.IntN(40)
}

// Filter returns every matching product in catalog order, never nil.
func Filter(products []catalog.Product, terms []string, relevance RelevanceFunc) []SearchResult {
	if relevance == nil {
		relevance = randomRelevance
	}
	results := []SearchResult{}
	for _, p := range products {
		if Matches(p, terms) {
			results = append(results, SearchResult{Product: p, Relevance: relevance()})
		}
	}
	return results
}

func truncate(results []SearchResult, max int) []SearchResult {
	if max > 0 && len(results) > max {
		return results[:max]
	}
	return results
}
