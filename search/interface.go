// Package search defines the pluggable full-text search index contract
// (spec §4.5). A concrete implementation lives in a sibling package such
// as search/bleveindex.
package search

import "github.com/eldrix/snomed-terminology/snomed"

// Search is the pluggable backend for description search. A search
// service must implement this interface.
type Search interface {
	// Index adds or replaces the indexed documents for the given extended
	// descriptions, keyed by description id.
	Index(descriptions []*snomed.ExtendedDescription) error
	// Search executes a search request and returns matching hits, ranked
	// best-first per spec §4.5.
	Search(params snomed.SearchParams) ([]snomed.SearchHit, error)
	Close() error
}
