// Copyright 2018 Mark Wardle / Eldrix Ltd
//
//    Licensed under the Apache License, Version 2.0 (the "License");
//    you may not use this file except in compliance with the License.
//    You may obtain a copy of the License at
//
//        http://www.apache.org/licenses/LICENSE-2.0
//
//    Unless required by applicable law or agreed to in writing, software
//    distributed under the License is distributed on an "AS IS" BASIS,
//    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//    See the License for the specific language governing permissions and
//    limitations under the License.
//

// Package store defines the persistent component store contract (spec §4.3)
// and its statistics type. A concrete implementation lives in a sibling
// package such as store/boltstore.
package store

import (
	"fmt"
	"strings"

	"github.com/eldrix/snomed-terminology/snomed"
)

// Batch is an atomically-applied group of components of possibly-mixed
// type, as produced by one import worker's parse of one RF2 file chunk.
type Batch struct {
	Concepts      []*snomed.Concept
	Descriptions  []*snomed.Description
	Relationships []*snomed.Relationship
	RefsetItems   []*snomed.ReferenceSetItem
}

// Empty reports whether the batch carries no components at all.
func (b *Batch) Empty() bool {
	return len(b.Concepts) == 0 && len(b.Descriptions) == 0 && len(b.Relationships) == 0 && len(b.RefsetItems) == 0
}

// Store is the pluggable, persistent backend for SNOMED CT components. A
// storage service must implement this interface. Put performs only
// effective-time reconciliation and primary-table maintenance; the
// relationship-closure and refset-membership secondary indices are the
// responsibility of a separate index-building pass (spec §4.4) run after
// all imports commit, so GetParentRelationships/GetChildRelationships/
// Descendants/Ancestors/RefsetsFor/MembersOf only return meaningful results
// once that pass has completed at least once.
type Store interface {
	// Put atomically applies a batch, keeping for each id the record with
	// the greatest EffectiveTime (ties broken by active=true over
	// active=false, per spec §4.2).
	Put(batch Batch) error

	GetConcept(conceptID int64) (*snomed.Concept, error)
	GetConcepts(conceptIDs ...int64) ([]*snomed.Concept, error)
	GetDescription(descriptionID int64) (*snomed.Description, error)
	GetDescriptions(conceptID int64) ([]*snomed.Description, error)
	GetRelationship(relationshipID int64) (*snomed.Relationship, error)
	GetRefsetItem(itemUUID string) (*snomed.ReferenceSetItem, error)

	// GetParentRelationships returns relationships in which conceptID is
	// the source (i.e. outbound edges) - optionally restricted to typeID
	// if non-zero.
	GetParentRelationships(conceptID int64, typeID int64) ([]*snomed.Relationship, error)
	// GetChildRelationships returns relationships in which conceptID is
	// the destination (i.e. inbound edges) - optionally restricted to
	// typeID if non-zero.
	GetChildRelationships(conceptID int64, typeID int64) ([]*snomed.Relationship, error)

	// Descendants returns every concept reachable from conceptID by a
	// directed path of active IS_A relationships (strict: excludes
	// conceptID itself).
	Descendants(conceptID int64) ([]int64, error)
	// Ancestors returns every concept from which conceptID is reachable by
	// a directed path of active IS_A relationships (strict).
	Ancestors(conceptID int64) ([]int64, error)

	// RefsetsFor returns the active refset ids of which componentID is a
	// member.
	RefsetsFor(componentID int64) ([]int64, error)
	// MembersOf returns the active member component ids of refsetID.
	MembersOf(refsetID int64) ([]int64, error)
	// GetFromRefset returns the active refset item for the given
	// (refsetID, componentID) pair, as recorded by the membership index;
	// inactive items are not returned.
	GetFromRefset(refsetID int64, componentID int64) (*snomed.ReferenceSetItem, bool, error)
	// InstalledRefsets lists every refset id with at least one indexed member.
	InstalledRefsets() ([]int64, error)
	// RefsetFieldNames returns the recovered extension column schema for a
	// refset, as recorded by the index builder.
	RefsetFieldNames(refsetID int64) ([]string, error)

	// Iterate calls fn once per concept in the store. Used for
	// pre-processing passes (index building, export).
	Iterate(fn func(*snomed.Concept) error) error
	// IterateRelationships calls fn once per relationship in the store.
	// Used by index.Builder to build the closure and adjacency indices.
	IterateRelationships(fn func(*snomed.Relationship) error) error
	// IterateRefsetItems calls fn once per reference set item in the
	// store. Used by index.Builder to build the membership indices.
	IterateRefsetItems(fn func(*snomed.ReferenceSetItem) error) error

	GetStatistics() (Statistics, error)

	// Dirty reports whether the store has committed import batches since
	// the last successful index build (spec §4.2/§7): true means query
	// results may be stale or incomplete.
	Dirty() (bool, error)
	SetDirty(dirty bool) error

	// Compact rewrites the store to reclaim space freed by superseded
	// effective-time rows and cleared indices (spec §3's explicit compact
	// operation), preserving every logical read the store would otherwise
	// answer.
	Compact() error

	// IndexWriter is exposed to index.Builder so a rebuild of the
	// closure and refset-membership indices doesn't need a second,
	// backend-specific handle onto the same file.
	IndexWriter

	Close() error
}

// IndexWriter is the write side of the secondary indices that
// index.Builder maintains: relationship closure and refset membership.
// It is deliberately separate from the primary-table Put so it's clear
// that these indices are derived data, rebuildable from the primary
// tables at any time.
type IndexWriter interface {
	// ClearIndices empties every secondary index bucket, so a rebuild
	// starts from a clean slate (spec §4.4: index building is
	// idempotent and re-runnable).
	ClearIndices() error

	// PutParentRelationshipIndex records that relationshipID is an
	// outbound edge of conceptID with the given typeID.
	PutParentRelationshipIndex(conceptID, typeID, relationshipID int64) error
	// PutChildRelationshipIndex records that relationshipID is an
	// inbound edge of conceptID with the given typeID.
	PutChildRelationshipIndex(conceptID, typeID, relationshipID int64) error
	// PutDescendant records that descendantID is reachable from
	// conceptID by a directed path of active IS_A relationships.
	PutDescendant(conceptID, descendantID int64) error
	// PutAncestor records that conceptID is reachable from ancestorID by
	// a directed path of active IS_A relationships.
	PutAncestor(conceptID, ancestorID int64) error

	// PutComponentRefset records that itemUUID makes componentID an
	// active member of refsetID.
	PutComponentRefset(componentID, refsetID int64, itemUUID string) error
	// PutInstalledRefset marks refsetID as having at least one indexed
	// member.
	PutInstalledRefset(refsetID int64) error
	// PutRefsetFieldNames records the recovered extension column names
	// for refsetID, keyed from its RefsetDescriptor members if present.
	PutRefsetFieldNames(refsetID int64, fields []string) error
}

// Statistics summarises the size of the persistence store.
type Statistics struct {
	Concepts      int
	Descriptions  int
	Relationships int
	RefsetItems   int
	Refsets       []int64
}

// String produces human-readable output of the persistence store statistics.
func (st Statistics) String() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Number of concepts: %d\n", st.Concepts))
	b.WriteString(fmt.Sprintf("Number of descriptions: %d\n", st.Descriptions))
	b.WriteString(fmt.Sprintf("Number of relationships: %d\n", st.Relationships))
	b.WriteString(fmt.Sprintf("Number of reference set items: %d\n", st.RefsetItems))
	b.WriteString(fmt.Sprintf("Number of installed refsets: %d\n", len(st.Refsets)))
	return b.String()
}
