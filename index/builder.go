// Package index builds the relationship-closure and refset-membership
// secondary indices a Store needs before GetParentRelationships,
// GetChildRelationships, Descendants, Ancestors, RefsetsFor and MembersOf
// return meaningful results (spec §4.4). It is a separate, re-runnable
// pass over the primary tables, grounded on the teacher's
// terminology/indexer.go "walk every concept, build derived structures"
// shape, retargeted to build store-level indices rather than search
// documents.
package index

import (
	"strconv"

	"go.uber.org/zap"

	"github.com/eldrix/snomed-terminology/apperr"
	"github.com/eldrix/snomed-terminology/snomed"
	"github.com/eldrix/snomed-terminology/store"
)

// Builder runs the index-building pass over a Store.
type Builder struct {
	store  store.Store
	logger *zap.Logger
}

// NewBuilder returns a Builder for the given store.
func NewBuilder(s store.Store, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{store: s, logger: logger}
}

// Build clears and rebuilds every secondary index from the primary
// tables. It is safe to call repeatedly (e.g. after every import run).
func (b *Builder) Build() error {
	if err := b.store.ClearIndices(); err != nil {
		return apperr.Index("clearing indices: %s", err)
	}

	parentOf := make(map[int64][]int64) // child concept -> parent concept ids, active IS_A only
	childOf := make(map[int64][]int64)  // parent concept -> child concept ids, active IS_A only

	relCount := 0
	err := b.store.IterateRelationships(func(r *snomed.Relationship) error {
		if !r.Active {
			return nil
		}
		relCount++
		if err := b.store.PutParentRelationshipIndex(r.SourceId, r.TypeId, r.Id); err != nil {
			return err
		}
		if err := b.store.PutChildRelationshipIndex(r.DestinationId, r.TypeId, r.Id); err != nil {
			return err
		}
		if r.TypeId == int64(snomed.IsA) {
			parentOf[r.SourceId] = append(parentOf[r.SourceId], r.DestinationId)
			childOf[r.DestinationId] = append(childOf[r.DestinationId], r.SourceId)
		}
		return nil
	})
	if err != nil {
		return apperr.Index("building relationship adjacency: %s", err)
	}
	b.logger.Info("indexed relationships", zap.Int("count", relCount))

	cycleIDs := detectCycles(parentOf)
	if len(cycleIDs) > 0 {
		cycleSet := make(map[int64]bool, len(cycleIDs))
		for _, id := range cycleIDs {
			cycleSet[id] = true
			b.logger.Warn("IS_A cycle detected during index build", zap.Int64("conceptId", id))
		}
		// Drop edges between two cycle participants so the cyclic links
		// themselves never contribute to a closure - spec §4.4: "detection
		// logs the cycle and skips adding those edges to closure". Edges
		// from a non-cyclic concept into the cycle, or vice versa, are left
		// alone; only the closed loop itself is broken.
		parentOf = withoutCyclicEdges(parentOf, cycleSet)
		childOf = withoutCyclicEdges(childOf, cycleSet)
	}

	conceptCount := 0
	err = b.store.Iterate(func(c *snomed.Concept) error {
		conceptCount++
		for _, ancestor := range closure(c.Id, parentOf) {
			if err := b.store.PutAncestor(c.Id, ancestor); err != nil {
				return err
			}
		}
		for _, descendant := range closure(c.Id, childOf) {
			if err := b.store.PutDescendant(c.Id, descendant); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return apperr.Index("building relationship closure: %s", err)
	}
	b.logger.Info("built closure", zap.Int("concepts", conceptCount))

	if err := b.buildRefsetMembership(); err != nil {
		return err
	}

	if err := b.store.SetDirty(false); err != nil {
		return apperr.Index("clearing dirty flag: %s", err)
	}
	return nil
}

// closure returns every id transitively reachable from start via edges,
// excluding start itself. A breadth-first walk with a visited set is safe
// even in the presence of a cycle (detectCycles logs those separately).
func closure(start int64, edges map[int64][]int64) []int64 {
	visited := map[int64]bool{start: true}
	queue := append([]int64{}, edges[start]...)
	var result []int64
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true
		result = append(result, id)
		queue = append(queue, edges[id]...)
	}
	return result
}

// withoutCyclicEdges returns edges with every link between two
// cycle-participant ids removed, leaving edges into or out of a cyclic
// concept from outside the cycle untouched.
func withoutCyclicEdges(edges map[int64][]int64, cycleSet map[int64]bool) map[int64][]int64 {
	out := make(map[int64][]int64, len(edges))
	for id, neighbors := range edges {
		if !cycleSet[id] {
			out[id] = neighbors
			continue
		}
		var kept []int64
		for _, n := range neighbors {
			if !cycleSet[n] {
				kept = append(kept, n)
			}
		}
		if len(kept) > 0 {
			out[id] = kept
		}
	}
	return out
}

// detectCycles finds every concept that participates in an IS_A cycle, via
// a recursion-stack DFS. Real SNOMED CT releases shouldn't have any; this
// exists to surface a malformed or partial import rather than let it
// silently produce an incomplete closure.
func detectCycles(parentOf map[int64][]int64) []int64 {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[int64]int)
	var cycles []int64
	var visit func(id int64) bool
	visit = func(id int64) bool {
		switch state[id] {
		case done:
			return false
		case visiting:
			return true
		}
		state[id] = visiting
		inCycle := false
		for _, parent := range parentOf[id] {
			if visit(parent) {
				inCycle = true
			}
		}
		state[id] = done
		if inCycle {
			cycles = append(cycles, id)
		}
		return inCycle
	}
	for id := range parentOf {
		visit(id)
	}
	return cycles
}

// buildRefsetMembership scans every refset item once, populating
// componentRefsets, installedRefsets and recovering extension column
// names from any imported RefsetDescriptor rows.
func (b *Builder) buildRefsetMembership() error {
	type fieldName struct {
		order uint32
		attr  int64
	}
	fieldsByRefset := make(map[int64][]fieldName)

	itemCount := 0
	err := b.store.IterateRefsetItems(func(item *snomed.ReferenceSetItem) error {
		if !item.Active {
			return nil
		}
		itemCount++
		if err := b.store.PutComponentRefset(item.ReferencedComponentId, item.RefsetId, item.Id); err != nil {
			return err
		}
		if err := b.store.PutInstalledRefset(item.RefsetId); err != nil {
			return err
		}
		if rd, ok := item.Body.(snomed.RefSetDescriptorReferenceSet); ok {
			// A RefsetDescriptor row's ReferencedComponentId is the refset it
			// describes, not a member of it.
			fieldsByRefset[item.ReferencedComponentId] = append(fieldsByRefset[item.ReferencedComponentId],
				fieldName{order: rd.AttributeOrder, attr: rd.AttributeDescriptionId})
		}
		return nil
	})
	if err != nil {
		return apperr.Index("building refset membership: %s", err)
	}
	b.logger.Info("indexed refset items", zap.Int("count", itemCount))

	for refsetID, fields := range fieldsByRefset {
		// insertion sort by declared attribute order; these lists are short
		for i := 1; i < len(fields); i++ {
			for j := i; j > 0 && fields[j].order < fields[j-1].order; j-- {
				fields[j], fields[j-1] = fields[j-1], fields[j]
			}
		}
		names := make([]string, len(fields))
		for i, f := range fields {
			// The human-readable column name lives in the attribute concept's
			// FSN, which isn't available at this layer; the attribute
			// concept id is recorded instead and resolved by callers that
			// have a Store handle to look up its FSN on demand.
			names[i] = formatAttributeName(f.attr)
		}
		if err := b.store.PutRefsetFieldNames(refsetID, names); err != nil {
			return apperr.Index("writing field names for refset %d: %s", refsetID, err)
		}
	}
	return nil
}

func formatAttributeName(conceptID int64) string {
	return "attr:" + strconv.FormatInt(conceptID, 10)
}
