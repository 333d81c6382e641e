package terminology

import "github.com/eldrix/snomed-terminology/snomed"

// GetExtendedConcept builds the spec §3/§4.8 ExtendedConcept projection for
// conceptID: the concept, its active descriptions, its relationships
// grouped by type (both direct and transitive-closure variants) and its
// refset memberships.
func (svc *Svc) GetExtendedConcept(conceptID int64) (*snomed.ExtendedConcept, error) {
	concept, err := svc.GetConcept(conceptID)
	if err != nil {
		return nil, err
	}
	all, err := svc.GetDescriptions(conceptID)
	if err != nil {
		return nil, err
	}
	descs := make([]*snomed.Description, 0, len(all))
	for _, d := range all {
		if d.Active {
			descs = append(descs, d)
		}
	}
	direct, err := svc.directParentRelationshipsByType(conceptID)
	if err != nil {
		return nil, err
	}
	transitive, err := svc.transitiveParentRelationshipsByType(conceptID, direct)
	if err != nil {
		return nil, err
	}
	refsets, err := svc.RefsetsFor(conceptID)
	if err != nil {
		return nil, err
	}
	return &snomed.ExtendedConcept{
		Concept:                   concept,
		Descriptions:              descs,
		ParentRelationships:       transitive,
		DirectParentRelationships: direct,
		Refsets:                   refsets,
	}, nil
}

// directParentRelationshipsByType groups conceptID's active outbound
// relationships by type, one destination-id set per type.
func (svc *Svc) directParentRelationshipsByType(conceptID int64) (map[int64][]int64, error) {
	relations, err := svc.GetParentRelationships(conceptID, 0)
	if err != nil {
		return nil, err
	}
	byType := make(map[int64]map[int64]struct{})
	for _, r := range relations {
		if !r.Active {
			continue
		}
		set, ok := byType[r.TypeId]
		if !ok {
			set = make(map[int64]struct{})
			byType[r.TypeId] = set
		}
		set[r.DestinationId] = struct{}{}
	}
	return flattenSets(byType), nil
}

// transitiveParentRelationshipsByType extends direct with, for the IS_A
// type only, the full ancestor closure - the only relationship whose
// transitive closure the index maintains (spec §4.4). Other relationship
// types are reported as their direct destinations only.
func (svc *Svc) transitiveParentRelationshipsByType(conceptID int64, direct map[int64][]int64) (map[int64][]int64, error) {
	result := make(map[int64][]int64, len(direct))
	for typeID, ids := range direct {
		result[typeID] = ids
	}
	ancestors, err := svc.Ancestors(conceptID)
	if err != nil {
		return nil, err
	}
	if len(ancestors) > 0 {
		result[snomed.IsA] = ancestors
	}
	return result, nil
}

func flattenSets(byType map[int64]map[int64]struct{}) map[int64][]int64 {
	result := make(map[int64][]int64, len(byType))
	for typeID, set := range byType {
		ids := make([]int64, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		result[typeID] = ids
	}
	return result
}
