package ecl

import (
	"sort"

	"github.com/eldrix/snomed-terminology/apperr"
	"github.com/eldrix/snomed-terminology/snomed"
	"github.com/eldrix/snomed-terminology/store"
)

// Evaluator resolves a parsed ECL expression into a concept id set against
// a Store, using the closure indices index.Builder maintains.
type Evaluator struct {
	store store.Store
}

// NewEvaluator returns an Evaluator backed by s.
func NewEvaluator(s store.Store) *Evaluator {
	return &Evaluator{store: s}
}

// Eval parses and evaluates an ECL expression string, returning the
// matching concept ids in ascending order.
func Eval(s store.Store, expr string) ([]int64, error) {
	tree, err := Parse(expr)
	if err != nil {
		return nil, err
	}
	return NewEvaluator(s).Eval(tree)
}

// Eval evaluates an already-parsed expression tree.
func (e *Evaluator) Eval(expr Expr) ([]int64, error) {
	set, err := e.eval(expr)
	if err != nil {
		return nil, err
	}
	result := make([]int64, 0, len(set))
	for id := range set {
		result = append(result, id)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result, nil
}

func (e *Evaluator) eval(expr Expr) (map[int64]bool, error) {
	switch v := expr.(type) {
	case Wildcard:
		set := make(map[int64]bool)
		err := e.store.Iterate(func(c *snomed.Concept) error {
			if c.Active {
				set[c.Id] = true
			}
			return nil
		})
		if err != nil {
			return nil, apperr.Query(0, "evaluating wildcard: %s", err)
		}
		return set, nil
	case *MemberOf:
		ids, err := e.store.MembersOf(v.RefsetID)
		if err != nil {
			return nil, apperr.Query(0, "evaluating ^%d: %s", v.RefsetID, err)
		}
		return toSet(ids), nil
	case *ConceptRef:
		return e.evalConceptRef(v)
	case *BinaryExpr:
		left, err := e.eval(v.Left)
		if err != nil {
			return nil, err
		}
		right, err := e.eval(v.Right)
		if err != nil {
			return nil, err
		}
		switch v.Op {
		case SetOpAnd:
			return intersect(left, right), nil
		case SetOpOr:
			return union(left, right), nil
		case SetOpMinus:
			return minus(left, right), nil
		}
	}
	return nil, apperr.Query(0, "unsupported expression node %T", expr)
}

func (e *Evaluator) evalConceptRef(ref *ConceptRef) (map[int64]bool, error) {
	base := make(map[int64]bool)
	switch ref.Op {
	case OpSelf:
		base[ref.ConceptID] = true
	case OpDescendant, OpDescendantOrSelf:
		ids, err := e.store.Descendants(ref.ConceptID)
		if err != nil {
			return nil, apperr.Query(0, "evaluating descendants of %d: %s", ref.ConceptID, err)
		}
		base = toSet(ids)
		if ref.Op == OpDescendantOrSelf {
			base[ref.ConceptID] = true
		}
	case OpAncestor, OpAncestorOrSelf:
		ids, err := e.store.Ancestors(ref.ConceptID)
		if err != nil {
			return nil, apperr.Query(0, "evaluating ancestors of %d: %s", ref.ConceptID, err)
		}
		base = toSet(ids)
		if ref.Op == OpAncestorOrSelf {
			base[ref.ConceptID] = true
		}
	case OpChild:
		rels, err := e.store.GetChildRelationships(ref.ConceptID, int64(snomed.IsA))
		if err != nil {
			return nil, apperr.Query(0, "evaluating children of %d: %s", ref.ConceptID, err)
		}
		for _, r := range rels {
			if r.Active {
				base[r.SourceId] = true
			}
		}
	case OpParent:
		rels, err := e.store.GetParentRelationships(ref.ConceptID, int64(snomed.IsA))
		if err != nil {
			return nil, apperr.Query(0, "evaluating parents of %d: %s", ref.ConceptID, err)
		}
		for _, r := range rels {
			if r.Active {
				base[r.DestinationId] = true
			}
		}
	}

	if ref.Refinement == nil {
		return base, nil
	}
	filtered := make(map[int64]bool)
	for id := range base {
		ok, err := e.matchesRefinement(id, ref.Refinement)
		if err != nil {
			return nil, err
		}
		if ok {
			filtered[id] = true
		}
	}
	return filtered, nil
}

// matchesRefinement reports whether conceptID satisfies every clause in r.
// Ungrouped clauses (a bare "attr=value") need only some active outbound
// relationship matching the constraint, independent of which
// relationshipGroup it falls in. Grouped clauses ("{ attr=value, ... }")
// require a single relationshipGroup (necessarily > 0, per spec §3's
// "group > 0 on the same source is read as a conjunction") in which every
// attribute in the clause is satisfied by some relationship of that
// group.
func (e *Evaluator) matchesRefinement(conceptID int64, r *Refinement) (bool, error) {
	rels, err := e.store.GetParentRelationships(conceptID, 0)
	if err != nil {
		return false, apperr.Query(0, "reading relationships for concept %d: %s", conceptID, err)
	}
	var active []*snomed.Relationship
	for _, rel := range rels {
		if rel.Active {
			active = append(active, rel)
		}
	}

	for _, clause := range r.Clauses {
		if clause.Grouped {
			ok, err := e.matchesGroupedClause(clause, active)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
			continue
		}
		attr := clause.Attributes[0]
		ok, err := e.attributeMatchesAny(attr, active)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// matchesGroupedClause reports whether some single relationshipGroup > 0
// among rels satisfies every attribute in clause.
func (e *Evaluator) matchesGroupedClause(clause RefinementClause, rels []*snomed.Relationship) (bool, error) {
	groups := make(map[int64][]*snomed.Relationship)
	for _, rel := range rels {
		if rel.RelationshipGroup > 0 {
			groups[rel.RelationshipGroup] = append(groups[rel.RelationshipGroup], rel)
		}
	}
	for _, groupRels := range groups {
		allMatch := true
		for _, attr := range clause.Attributes {
			ok, err := e.attributeMatchesAny(attr, groupRels)
			if err != nil {
				return false, err
			}
			if !ok {
				allMatch = false
				break
			}
		}
		if allMatch {
			return true, nil
		}
	}
	return false, nil
}

// attributeMatchesAny reports whether any relationship in rels has a
// TypeId in attr.Name's result set and a DestinationId in attr.Value's
// result set.
func (e *Evaluator) attributeMatchesAny(attr Attribute, rels []*snomed.Relationship) (bool, error) {
	_, nameIsWildcard := attr.Name.(Wildcard)
	_, valueIsWildcard := attr.Value.(Wildcard)

	var nameSet, valueSet map[int64]bool
	var err error
	if !nameIsWildcard {
		nameSet, err = e.eval(attr.Name)
		if err != nil {
			return false, err
		}
	}
	if !valueIsWildcard {
		valueSet, err = e.eval(attr.Value)
		if err != nil {
			return false, err
		}
	}

	for _, rel := range rels {
		if !nameIsWildcard && !nameSet[rel.TypeId] {
			continue
		}
		if !valueIsWildcard && !valueSet[rel.DestinationId] {
			continue
		}
		return true, nil
	}
	return false, nil
}

func toSet(ids []int64) map[int64]bool {
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func intersect(a, b map[int64]bool) map[int64]bool {
	result := make(map[int64]bool)
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	for id := range small {
		if large[id] {
			result[id] = true
		}
	}
	return result
}

func union(a, b map[int64]bool) map[int64]bool {
	result := make(map[int64]bool, len(a)+len(b))
	for id := range a {
		result[id] = true
	}
	for id := range b {
		result[id] = true
	}
	return result
}

func minus(a, b map[int64]bool) map[int64]bool {
	result := make(map[int64]bool)
	for id := range a {
		if !b[id] {
			result[id] = true
		}
	}
	return result
}
