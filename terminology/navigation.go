package terminology

import (
	"github.com/eldrix/snomed-terminology/apperr"
	"github.com/eldrix/snomed-terminology/snomed"
)

// GetParents returns the direct IS_A parents of concept.
func (svc *Svc) GetParents(concept *snomed.Concept) ([]*snomed.Concept, error) {
	return svc.GetParentsOfKind(concept, snomed.IsA)
}

// GetParentsOfKind returns the concepts targeted by concept's active
// relationships of any of the given kinds.
func (svc *Svc) GetParentsOfKind(concept *snomed.Concept, kinds ...int64) ([]*snomed.Concept, error) {
	ids, err := svc.GetParentIDsOfKind(concept, kinds...)
	if err != nil {
		return nil, err
	}
	return svc.GetConcepts(ids...)
}

// GetParentIDsOfKind returns the deduplicated destination concept ids of
// concept's active relationships of any of the given kinds.
func (svc *Svc) GetParentIDsOfKind(concept *snomed.Concept, kinds ...int64) ([]int64, error) {
	seen := make(map[int64]struct{})
	for _, kind := range kinds {
		relations, err := svc.GetParentRelationships(concept.Id, kind)
		if err != nil {
			return nil, err
		}
		for _, r := range relations {
			if r.Active {
				seen[r.DestinationId] = struct{}{}
			}
		}
	}
	result := make([]int64, 0, len(seen))
	for id := range seen {
		result = append(result, id)
	}
	return result, nil
}

// GetChildren returns the direct IS_A children of concept.
func (svc *Svc) GetChildren(concept *snomed.Concept) ([]*snomed.Concept, error) {
	return svc.GetChildrenOfKind(concept, snomed.IsA)
}

// GetChildrenOfKind returns the concepts sourcing an active relationship
// of the given kind that targets concept.
func (svc *Svc) GetChildrenOfKind(concept *snomed.Concept, kind int64) ([]*snomed.Concept, error) {
	relations, err := svc.GetChildRelationships(concept.Id, kind)
	if err != nil {
		return nil, err
	}
	seen := make(map[int64]struct{})
	for _, r := range relations {
		if r.Active {
			seen[r.SourceId] = struct{}{}
		}
	}
	ids := make([]int64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	return svc.GetConcepts(ids...)
}

// GetAllParents returns every ancestor of concept, using the closure
// index.Builder maintains.
func (svc *Svc) GetAllParents(concept *snomed.Concept) ([]*snomed.Concept, error) {
	ids, err := svc.Ancestors(concept.Id)
	if err != nil {
		return nil, err
	}
	return svc.GetConcepts(ids...)
}

// GetAllChildren returns every descendant of concept, using the closure
// index.Builder maintains.
func (svc *Svc) GetAllChildren(concept *snomed.Concept) ([]*snomed.Concept, error) {
	ids, err := svc.Descendants(concept.Id)
	if err != nil {
		return nil, err
	}
	return svc.GetConcepts(ids...)
}

// GetSiblings returns the other direct children of concept's direct
// parents, excluding concept itself.
func (svc *Svc) GetSiblings(concept *snomed.Concept) ([]*snomed.Concept, error) {
	parents, err := svc.GetParents(concept)
	if err != nil {
		return nil, err
	}
	seen := map[int64]struct{}{concept.Id: {}}
	var siblings []*snomed.Concept
	for _, parent := range parents {
		children, err := svc.GetChildren(parent)
		if err != nil {
			return nil, err
		}
		for _, child := range children {
			if _, ok := seen[child.Id]; ok {
				continue
			}
			seen[child.Id] = struct{}{}
			siblings = append(siblings, child)
		}
	}
	return siblings, nil
}

// PathsToRoot returns every path from concept to the SNOMED CT root,
// concept first and the root last. A concept with multiple parents
// yields one path per parent chain.
func (svc *Svc) PathsToRoot(concept *snomed.Concept) ([][]*snomed.Concept, error) {
	parents, err := svc.GetParents(concept)
	if err != nil {
		return nil, err
	}
	if len(parents) == 0 {
		return [][]*snomed.Concept{{concept}}, nil
	}
	var results [][]*snomed.Concept
	for _, parent := range parents {
		parentPaths, err := svc.PathsToRoot(parent)
		if err != nil {
			return nil, err
		}
		for _, path := range parentPaths {
			results = append(results, append([]*snomed.Concept{concept}, path...))
		}
	}
	return results, nil
}

// LongestPathToRoot returns the longest of PathsToRoot's paths.
func (svc *Svc) LongestPathToRoot(concept *snomed.Concept) ([]*snomed.Concept, error) {
	paths, err := svc.PathsToRoot(concept)
	if err != nil {
		return nil, err
	}
	var longest []*snomed.Concept
	for _, path := range paths {
		if len(path) >= len(longest) {
			longest = path
		}
	}
	return longest, nil
}

// ShortestPathToRoot returns the shortest of PathsToRoot's paths.
func (svc *Svc) ShortestPathToRoot(concept *snomed.Concept) ([]*snomed.Concept, error) {
	paths, err := svc.PathsToRoot(concept)
	if err != nil {
		return nil, err
	}
	shortest := paths[0]
	for _, path := range paths[1:] {
		if len(path) < len(shortest) {
			shortest = path
		}
	}
	return shortest, nil
}

// GenericiseTo returns the closest ancestor of concept (or concept itself)
// present in the generics set, preferring the shortest path to it and, on
// a tie, the longest overall path (the most specific hierarchy branch).
func (svc *Svc) GenericiseTo(concept *snomed.Concept, generics map[int64]bool) (*snomed.Concept, bool) {
	if generics[concept.Id] {
		return concept, true
	}
	paths, err := svc.PathsToRoot(concept)
	if err != nil {
		return nil, false
	}
	var bestPath []*snomed.Concept
	bestPos, bestLength := -1, 0
	for _, path := range paths {
		for i, c := range path {
			if !generics[c.Id] {
				continue
			}
			if bestPos == -1 || bestPos > i || (bestPos == i && len(path) > bestLength) {
				bestPos, bestLength, bestPath = i, len(path), path
			}
		}
	}
	if bestPos == -1 {
		return nil, false
	}
	return bestPath[bestPos], true
}

// GenericiseToRoot walks the shortest path to root, returning the concept
// one step below the given root - the most general classification of
// concept still beneath root.
func (svc *Svc) GenericiseToRoot(concept *snomed.Concept, root int64) (*snomed.Concept, error) {
	paths, err := svc.PathsToRoot(concept)
	if err != nil {
		return nil, err
	}
	var bestPath []*snomed.Concept
	bestPos := -1
	for _, path := range paths {
		for i, c := range path {
			if c.Id != root || i == 0 {
				continue
			}
			if bestPos == -1 || bestPos > i {
				bestPos, bestPath = i, path
			}
		}
	}
	if bestPos == -1 {
		return nil, apperr.Usage("root concept %d not found in any path from concept %d", root, concept.Id)
	}
	return bestPath[bestPos-1], nil
}
