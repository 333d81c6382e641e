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

// Package boltstore is a BoltDB-backed implementation of store.Store: a
// single memory-mapped file holding every primary table and secondary
// index as a set of named buckets, addressed by the composite keys spec
// §4.3 describes. It implements the storage half of the teacher's
// terminology/storage/bolt package, generalised from four flat buckets to
// the full index set the specification requires.
package boltstore

import (
	"bytes"
	"fmt"
	"os"
	"time"

	boltdb "github.com/boltdb/bolt"
	"github.com/gogo/protobuf/proto"

	"github.com/eldrix/snomed-terminology/apperr"
	"github.com/eldrix/snomed-terminology/snomed"
	"github.com/eldrix/snomed-terminology/store"
)

var (
	bucketConcepts                   = []byte("concepts")
	bucketDescriptions                = []byte("descriptions")
	bucketRelationships               = []byte("relationships")
	bucketRefsetItems                 = []byte("refsetItems")
	bucketConceptDescriptions         = []byte("conceptDescriptions")
	bucketConceptParentRelationships  = []byte("conceptParentRelationships")
	bucketConceptChildRelationships   = []byte("conceptChildRelationships")
	bucketDescendantRelationships     = []byte("descendantRelationships")
	bucketAncestorRelationships       = []byte("ancestorRelationships")
	bucketInstalledRefsets            = []byte("installedRefsets")
	bucketComponentRefsets            = []byte("componentRefsets")
	bucketRefsetFieldNames            = []byte("refsetFieldNames")
	bucketMeta                        = []byte("meta")

	allBuckets = [][]byte{
		bucketConcepts, bucketDescriptions, bucketRelationships, bucketRefsetItems,
		bucketConceptDescriptions, bucketConceptParentRelationships, bucketConceptChildRelationships,
		bucketDescendantRelationships, bucketAncestorRelationships,
		bucketInstalledRefsets, bucketComponentRefsets, bucketRefsetFieldNames, bucketMeta,
	}

	keyDirty = []byte("dirty")

	defaultOptions  = &boltdb.Options{Timeout: time.Second}
	readOnlyOptions = &boltdb.Options{Timeout: time.Second, ReadOnly: true}
)

// boltStore is the BoltDB-backed store.Store implementation.
type boltStore struct {
	db       *boltdb.DB
	readOnly bool
}

// New opens or creates a component store at the given file path. Opening
// the same path twice concurrently fails with a KindStore error (spec §5:
// "a single engine instance per on-disk path"), since BoltDB itself takes
// an exclusive flock on the file.
func New(path string, readOnly bool) (store.Store, error) {
	options := defaultOptions
	if readOnly {
		options = readOnlyOptions
	}
	db, err := boltdb.Open(path, 0644, options)
	if err != nil {
		return nil, apperr.StoreWrap(err, "store locked or unavailable at %s", path)
	}
	bs := &boltStore{db: db, readOnly: readOnly}
	if !readOnly {
		if err := bs.createBuckets(); err != nil {
			db.Close()
			return nil, apperr.StoreWrap(err, "initialising store buckets")
		}
	}
	return bs, nil
}

func (bs *boltStore) createBuckets() error {
	return bs.db.Update(func(tx *boltdb.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
}

func (bs *boltStore) Close() error {
	return bs.db.Close()
}

// Compact rewrites the store to a fresh file and swaps it into place,
// reclaiming the space BoltDB's free list otherwise holds onto
// indefinitely after superseded rows and cleared indices accumulate
// (spec §3). It copies every bucket in a single read transaction over
// the source into a freshly created destination file, then closes and
// replaces the source, matching the copy-and-swap approach the bolt
// project itself documents for offline compaction.
func (bs *boltStore) Compact() error {
	if bs.readOnly {
		return apperr.Usage("cannot compact a read-only store")
	}
	path := bs.db.Path()
	tmpPath := path + ".compact"
	os.Remove(tmpPath)

	dst, err := boltdb.Open(tmpPath, 0644, defaultOptions)
	if err != nil {
		return apperr.StoreWrap(err, "opening compaction target at %s", tmpPath)
	}

	err = bs.db.View(func(srcTx *boltdb.Tx) error {
		return srcTx.ForEach(func(name []byte, srcBucket *boltdb.Bucket) error {
			return dst.Update(func(dstTx *boltdb.Tx) error {
				dstBucket, err := dstTx.CreateBucketIfNotExists(name)
				if err != nil {
					return err
				}
				return srcBucket.ForEach(func(k, v []byte) error {
					return dstBucket.Put(append([]byte{}, k...), append([]byte{}, v...))
				})
			})
		})
	})
	if err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return apperr.StoreWrap(err, "copying store contents during compaction")
	}
	if err := dst.Close(); err != nil {
		os.Remove(tmpPath)
		return apperr.StoreWrap(err, "closing compaction target")
	}
	if err := bs.db.Close(); err != nil {
		return apperr.StoreWrap(err, "closing store before compaction swap")
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return apperr.StoreWrap(err, "swapping compacted store into place")
	}
	db, err := boltdb.Open(path, 0644, defaultOptions)
	if err != nil {
		return apperr.StoreWrap(err, "reopening store after compaction")
	}
	bs.db = db
	return nil
}

// Dirty reports whether the store has uncommitted-to-index import batches.
func (bs *boltStore) Dirty() (bool, error) {
	dirty := false
	err := bs.db.View(func(tx *boltdb.Tx) error {
		b := tx.Bucket(bucketMeta)
		if b == nil {
			return nil
		}
		v := b.Get(keyDirty)
		dirty = len(v) == 1 && v[0] == 1
		return nil
	})
	return dirty, err
}

func (bs *boltStore) SetDirty(dirty bool) error {
	return bs.db.Update(func(tx *boltdb.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return err
		}
		v := byte(0)
		if dirty {
			v = 1
		}
		return b.Put(keyDirty, []byte{v})
	})
}

// Put applies a batch atomically, one bucket transaction per component
// type present, performing effective-time reconciliation for each (spec
// §4.2). A non-empty batch always marks the store dirty; a caller runs
// index.Builder afterwards to clear it.
func (bs *boltStore) Put(batch store.Batch) error {
	if batch.Empty() {
		return nil
	}
	if len(batch.Concepts) > 0 {
		if err := bs.putConcepts(batch.Concepts); err != nil {
			return apperr.StoreWrap(err, "writing concept batch")
		}
	}
	if len(batch.Descriptions) > 0 {
		if err := bs.putDescriptions(batch.Descriptions); err != nil {
			return apperr.StoreWrap(err, "writing description batch")
		}
	}
	if len(batch.Relationships) > 0 {
		if err := bs.putRelationships(batch.Relationships); err != nil {
			return apperr.StoreWrap(err, "writing relationship batch")
		}
	}
	if len(batch.RefsetItems) > 0 {
		if err := bs.putRefsetItems(batch.RefsetItems); err != nil {
			return apperr.StoreWrap(err, "writing refset item batch")
		}
	}
	return bs.SetDirty(true)
}

func (bs *boltStore) putConcepts(concepts []*snomed.Concept) error {
	return bs.db.Update(func(tx *boltdb.Tx) error {
		bucket := tx.Bucket(bucketConcepts)
		for _, c := range concepts {
			key := itob(c.Id)
			existing := bucket.Get(key)
			if existing != nil {
				var prev snomed.Concept
				if err := proto.Unmarshal(existing, &prev); err != nil {
					return err
				}
				if !newerConcept(c, &prev) {
					continue
				}
			}
			data, err := proto.Marshal(c)
			if err != nil {
				return err
			}
			if err := bucket.Put(key, data); err != nil {
				return err
			}
		}
		return nil
	})
}

func newerConcept(a, b *snomed.Concept) bool {
	at, bt := tsSeconds(a.EffectiveTime), tsSeconds(b.EffectiveTime)
	if at != bt {
		return at > bt
	}
	return a.Active && !b.Active
}

func tsSeconds(ts interface{ GetSeconds() int64 }) int64 {
	if ts == nil {
		return 0
	}
	return ts.GetSeconds()
}

func (bs *boltStore) putDescriptions(descriptions []*snomed.Description) error {
	return bs.db.Update(func(tx *boltdb.Tx) error {
		descBucket := tx.Bucket(bucketDescriptions)
		conceptDescBucket := tx.Bucket(bucketConceptDescriptions)
		for _, d := range descriptions {
			key := itob(d.Id)
			existing := descBucket.Get(key)
			if existing != nil {
				var prev snomed.Description
				if err := proto.Unmarshal(existing, &prev); err != nil {
					return err
				}
				if !newerDescription(d, &prev) {
					continue
				}
				// remove any stale conceptDescriptions entry if the concept changed
				if prev.ConceptId != d.ConceptId {
					if err := conceptDescBucket.Delete(concat(itob(prev.ConceptId), itob(prev.Id))); err != nil {
						return err
					}
				}
			}
			data, err := proto.Marshal(d)
			if err != nil {
				return err
			}
			if err := descBucket.Put(key, data); err != nil {
				return err
			}
			if err := conceptDescBucket.Put(concat(itob(d.ConceptId), itob(d.Id)), nil); err != nil {
				return err
			}
		}
		return nil
	})
}

func newerDescription(a, b *snomed.Description) bool {
	at, bt := tsSeconds(a.EffectiveTime), tsSeconds(b.EffectiveTime)
	if at != bt {
		return at > bt
	}
	return a.Active && !b.Active
}

func (bs *boltStore) putRelationships(relationships []*snomed.Relationship) error {
	return bs.db.Update(func(tx *boltdb.Tx) error {
		bucket := tx.Bucket(bucketRelationships)
		for _, r := range relationships {
			key := itob(r.Id)
			existing := bucket.Get(key)
			if existing != nil {
				var prev snomed.Relationship
				if err := proto.Unmarshal(existing, &prev); err != nil {
					return err
				}
				if !newerRelationship(r, &prev) {
					continue
				}
			}
			data, err := proto.Marshal(r)
			if err != nil {
				return err
			}
			if err := bucket.Put(key, data); err != nil {
				return err
			}
		}
		return nil
	})
}

func newerRelationship(a, b *snomed.Relationship) bool {
	at, bt := tsSeconds(a.EffectiveTime), tsSeconds(b.EffectiveTime)
	if at != bt {
		return at > bt
	}
	return a.Active && !b.Active
}

func (bs *boltStore) putRefsetItems(items []*snomed.ReferenceSetItem) error {
	return bs.db.Update(func(tx *boltdb.Tx) error {
		bucket := tx.Bucket(bucketRefsetItems)
		for _, item := range items {
			key := []byte(item.Id)
			existing := bucket.Get(key)
			if existing != nil {
				var prev snomed.ReferenceSetItem
				if err := proto.Unmarshal(existing, &prev); err != nil {
					return err
				}
				if !newerRefsetItem(item, &prev) {
					continue
				}
			}
			data, err := proto.Marshal(item)
			if err != nil {
				return err
			}
			if err := bucket.Put(key, data); err != nil {
				return err
			}
		}
		return nil
	})
}

func newerRefsetItem(a, b *snomed.ReferenceSetItem) bool {
	at, bt := tsSeconds(a.EffectiveTime), tsSeconds(b.EffectiveTime)
	if at != bt {
		return at > bt
	}
	return a.Active && !b.Active
}

func (bs *boltStore) GetConcept(conceptID int64) (*snomed.Concept, error) {
	var concept snomed.Concept
	found := false
	err := bs.db.View(func(tx *boltdb.Tx) error {
		data := tx.Bucket(bucketConcepts).Get(itob(conceptID))
		if data == nil {
			return nil
		}
		found = true
		return proto.Unmarshal(data, &concept)
	})
	if err != nil {
		return nil, apperr.StoreWrap(err, "reading concept %d", conceptID)
	}
	if !found {
		return nil, apperr.Store("no concept found with id %d", conceptID)
	}
	return &concept, nil
}

func (bs *boltStore) GetConcepts(conceptIDs ...int64) ([]*snomed.Concept, error) {
	result := make([]*snomed.Concept, len(conceptIDs))
	err := bs.db.View(func(tx *boltdb.Tx) error {
		bucket := tx.Bucket(bucketConcepts)
		for i, id := range conceptIDs {
			data := bucket.Get(itob(id))
			if data == nil {
				return fmt.Errorf("no concept found with id %d", id)
			}
			var c snomed.Concept
			if err := proto.Unmarshal(data, &c); err != nil {
				return err
			}
			result[i] = &c
		}
		return nil
	})
	if err != nil {
		return nil, apperr.StoreWrap(err, "reading concepts")
	}
	return result, nil
}

func (bs *boltStore) GetDescription(descriptionID int64) (*snomed.Description, error) {
	var d snomed.Description
	found := false
	err := bs.db.View(func(tx *boltdb.Tx) error {
		data := tx.Bucket(bucketDescriptions).Get(itob(descriptionID))
		if data == nil {
			return nil
		}
		found = true
		return proto.Unmarshal(data, &d)
	})
	if err != nil {
		return nil, apperr.StoreWrap(err, "reading description %d", descriptionID)
	}
	if !found {
		return nil, apperr.Store("no description found with id %d", descriptionID)
	}
	return &d, nil
}

func (bs *boltStore) GetDescriptions(conceptID int64) ([]*snomed.Description, error) {
	result := make([]*snomed.Description, 0)
	err := bs.db.View(func(tx *boltdb.Tx) error {
		index := tx.Bucket(bucketConceptDescriptions)
		descriptions := tx.Bucket(bucketDescriptions)
		c := index.Cursor()
		prefix := itob(conceptID)
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			descriptionID := btoi(k[len(prefix):])
			data := descriptions.Get(itob(descriptionID))
			if data == nil {
				continue
			}
			var d snomed.Description
			if err := proto.Unmarshal(data, &d); err != nil {
				return err
			}
			result = append(result, &d)
		}
		return nil
	})
	if err != nil {
		return nil, apperr.StoreWrap(err, "reading descriptions for concept %d", conceptID)
	}
	return result, nil
}

func (bs *boltStore) GetRelationship(relationshipID int64) (*snomed.Relationship, error) {
	var r snomed.Relationship
	found := false
	err := bs.db.View(func(tx *boltdb.Tx) error {
		data := tx.Bucket(bucketRelationships).Get(itob(relationshipID))
		if data == nil {
			return nil
		}
		found = true
		return proto.Unmarshal(data, &r)
	})
	if err != nil {
		return nil, apperr.StoreWrap(err, "reading relationship %d", relationshipID)
	}
	if !found {
		return nil, apperr.Store("no relationship found with id %d", relationshipID)
	}
	return &r, nil
}

func (bs *boltStore) GetRefsetItem(itemUUID string) (*snomed.ReferenceSetItem, error) {
	var item snomed.ReferenceSetItem
	found := false
	err := bs.db.View(func(tx *boltdb.Tx) error {
		data := tx.Bucket(bucketRefsetItems).Get([]byte(itemUUID))
		if data == nil {
			return nil
		}
		found = true
		return proto.Unmarshal(data, &item)
	})
	if err != nil {
		return nil, apperr.StoreWrap(err, "reading refset item %s", itemUUID)
	}
	if !found {
		return nil, apperr.Store("no refset item found with id %s", itemUUID)
	}
	return &item, nil
}

// GetParentRelationships returns relationships sourced at conceptID
// (optionally filtered by typeID, 0 meaning "any"), resolved from the
// index built by index.Builder.
func (bs *boltStore) GetParentRelationships(conceptID int64, typeID int64) ([]*snomed.Relationship, error) {
	return bs.relationshipsByPrefix(bucketConceptParentRelationships, conceptID, typeID)
}

// GetChildRelationships returns relationships destined at conceptID
// (optionally filtered by typeID), resolved from the index built by
// index.Builder.
func (bs *boltStore) GetChildRelationships(conceptID int64, typeID int64) ([]*snomed.Relationship, error) {
	return bs.relationshipsByPrefix(bucketConceptChildRelationships, conceptID, typeID)
}

func (bs *boltStore) relationshipsByPrefix(bucketName []byte, conceptID int64, typeID int64) ([]*snomed.Relationship, error) {
	result := make([]*snomed.Relationship, 0)
	prefix := itob(conceptID)
	if typeID != 0 {
		prefix = concat(prefix, itob(typeID))
	}
	err := bs.db.View(func(tx *boltdb.Tx) error {
		index := tx.Bucket(bucketName)
		relationships := tx.Bucket(bucketRelationships)
		c := index.Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			relationshipID := btoi(k[len(k)-8:])
			data := relationships.Get(itob(relationshipID))
			if data == nil {
				continue
			}
			var r snomed.Relationship
			if err := proto.Unmarshal(data, &r); err != nil {
				return err
			}
			result = append(result, &r)
		}
		return nil
	})
	if err != nil {
		return nil, apperr.StoreWrap(err, "reading relationships for concept %d", conceptID)
	}
	return result, nil
}

func (bs *boltStore) Descendants(conceptID int64) ([]int64, error) {
	return bs.closureByPrefix(bucketDescendantRelationships, conceptID)
}

func (bs *boltStore) Ancestors(conceptID int64) ([]int64, error) {
	return bs.closureByPrefix(bucketAncestorRelationships, conceptID)
}

func (bs *boltStore) closureByPrefix(bucketName []byte, conceptID int64) ([]int64, error) {
	result := make([]int64, 0)
	prefix := itob(conceptID)
	err := bs.db.View(func(tx *boltdb.Tx) error {
		c := tx.Bucket(bucketName).Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			result = append(result, btoi(k[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, apperr.StoreWrap(err, "reading closure for concept %d", conceptID)
	}
	return result, nil
}

func (bs *boltStore) RefsetsFor(componentID int64) ([]int64, error) {
	result := make([]int64, 0)
	prefix := itob(componentID)
	err := bs.db.View(func(tx *boltdb.Tx) error {
		c := tx.Bucket(bucketComponentRefsets).Cursor()
		var lastRefset int64 = -1
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			refsetID := btoi(k[len(prefix) : len(prefix)+8])
			if refsetID != lastRefset {
				result = append(result, refsetID)
				lastRefset = refsetID
			}
		}
		return nil
	})
	if err != nil {
		return nil, apperr.StoreWrap(err, "reading refsets for component %d", componentID)
	}
	return result, nil
}

func (bs *boltStore) MembersOf(refsetID int64) ([]int64, error) {
	result := make([]int64, 0)
	err := bs.db.View(func(tx *boltdb.Tx) error {
		installed := tx.Bucket(bucketInstalledRefsets)
		if k, _ := installed.Cursor().Seek(itob(refsetID)); k == nil || !bytes.Equal(k, itob(refsetID)) {
			return nil // unknown refsetId: return empty set, not an error (spec §7)
		}
		members := tx.Bucket(bucketComponentRefsets)
		c := members.Cursor()
		seen := make(map[int64]bool)
		// componentRefsets is keyed (componentId, refsetId, itemUUID); there is
		// no direct refsetId-prefixed ordering, so this is a full scan filtered
		// by refsetId. See DESIGN.md for the reverse-index alternative.
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			if len(k) < 16 {
				continue
			}
			rid := btoi(k[8:16])
			if rid != refsetID {
				continue
			}
			cid := btoi(k[:8])
			if !seen[cid] {
				seen[cid] = true
				result = append(result, cid)
			}
		}
		return nil
	})
	if err != nil {
		return nil, apperr.StoreWrap(err, "reading members of refset %d", refsetID)
	}
	return result, nil
}

func (bs *boltStore) GetFromRefset(refsetID int64, componentID int64) (*snomed.ReferenceSetItem, bool, error) {
	var uuid string
	err := bs.db.View(func(tx *boltdb.Tx) error {
		prefix := concat(itob(componentID), itob(refsetID))
		c := tx.Bucket(bucketComponentRefsets).Cursor()
		if k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix) {
			uuid = string(k[len(prefix):])
		}
		return nil
	})
	if err != nil {
		return nil, false, apperr.StoreWrap(err, "looking up refset %d for component %d", refsetID, componentID)
	}
	if uuid == "" {
		return nil, false, nil
	}
	item, err := bs.GetRefsetItem(uuid)
	if err != nil {
		return nil, false, err
	}
	return item, true, nil
}

func (bs *boltStore) InstalledRefsets() ([]int64, error) {
	result := make([]int64, 0)
	err := bs.db.View(func(tx *boltdb.Tx) error {
		return tx.Bucket(bucketInstalledRefsets).ForEach(func(k, v []byte) error {
			result = append(result, btoi(k))
			return nil
		})
	})
	if err != nil {
		return nil, apperr.StoreWrap(err, "reading installed refsets")
	}
	return result, nil
}

func (bs *boltStore) RefsetFieldNames(refsetID int64) ([]string, error) {
	var fields []string
	err := bs.db.View(func(tx *boltdb.Tx) error {
		data := tx.Bucket(bucketRefsetFieldNames).Get(itob(refsetID))
		if data == nil {
			return nil
		}
		return decodeFieldNames(data, &fields)
	})
	if err != nil {
		return nil, apperr.StoreWrap(err, "reading field names for refset %d", refsetID)
	}
	return fields, nil
}

func (bs *boltStore) Iterate(fn func(*snomed.Concept) error) error {
	return bs.db.View(func(tx *boltdb.Tx) error {
		return tx.Bucket(bucketConcepts).ForEach(func(k, v []byte) error {
			var c snomed.Concept
			if err := proto.Unmarshal(v, &c); err != nil {
				return err
			}
			return fn(&c)
		})
	})
}

// ClearIndices empties every secondary index bucket ahead of a rebuild.
func (bs *boltStore) ClearIndices() error {
	return bs.db.Update(func(tx *boltdb.Tx) error {
		for _, name := range [][]byte{
			bucketConceptParentRelationships, bucketConceptChildRelationships,
			bucketDescendantRelationships, bucketAncestorRelationships,
			bucketInstalledRefsets, bucketComponentRefsets, bucketRefsetFieldNames,
		} {
			if err := tx.DeleteBucket(name); err != nil && err != boltdb.ErrBucketNotFound {
				return err
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}
		return nil
	})
}

func (bs *boltStore) PutParentRelationshipIndex(conceptID, typeID, relationshipID int64) error {
	return bs.db.Update(func(tx *boltdb.Tx) error {
		key := concat(itob(conceptID), itob(typeID), itob(relationshipID))
		return tx.Bucket(bucketConceptParentRelationships).Put(key, nil)
	})
}

func (bs *boltStore) PutChildRelationshipIndex(conceptID, typeID, relationshipID int64) error {
	return bs.db.Update(func(tx *boltdb.Tx) error {
		key := concat(itob(conceptID), itob(typeID), itob(relationshipID))
		return tx.Bucket(bucketConceptChildRelationships).Put(key, nil)
	})
}

func (bs *boltStore) PutDescendant(conceptID, descendantID int64) error {
	return bs.db.Update(func(tx *boltdb.Tx) error {
		key := concat(itob(conceptID), itob(descendantID))
		return tx.Bucket(bucketDescendantRelationships).Put(key, nil)
	})
}

func (bs *boltStore) PutAncestor(conceptID, ancestorID int64) error {
	return bs.db.Update(func(tx *boltdb.Tx) error {
		key := concat(itob(conceptID), itob(ancestorID))
		return tx.Bucket(bucketAncestorRelationships).Put(key, nil)
	})
}

func (bs *boltStore) PutComponentRefset(componentID, refsetID int64, itemUUID string) error {
	return bs.db.Update(func(tx *boltdb.Tx) error {
		key := concat(itob(componentID), itob(refsetID), []byte(itemUUID))
		return tx.Bucket(bucketComponentRefsets).Put(key, nil)
	})
}

func (bs *boltStore) PutInstalledRefset(refsetID int64) error {
	return bs.db.Update(func(tx *boltdb.Tx) error {
		return tx.Bucket(bucketInstalledRefsets).Put(itob(refsetID), nil)
	})
}

func (bs *boltStore) PutRefsetFieldNames(refsetID int64, fields []string) error {
	data, err := encodeFieldNames(fields)
	if err != nil {
		return err
	}
	return bs.db.Update(func(tx *boltdb.Tx) error {
		return tx.Bucket(bucketRefsetFieldNames).Put(itob(refsetID), data)
	})
}

func (bs *boltStore) IterateRelationships(fn func(*snomed.Relationship) error) error {
	return bs.db.View(func(tx *boltdb.Tx) error {
		var r snomed.Relationship
		return tx.Bucket(bucketRelationships).ForEach(func(k, v []byte) error {
			if err := proto.Unmarshal(v, &r); err != nil {
				return err
			}
			return fn(&r)
		})
	})
}

func (bs *boltStore) IterateRefsetItems(fn func(*snomed.ReferenceSetItem) error) error {
	return bs.db.View(func(tx *boltdb.Tx) error {
		var item snomed.ReferenceSetItem
		return tx.Bucket(bucketRefsetItems).ForEach(func(k, v []byte) error {
			if err := proto.Unmarshal(v, &item); err != nil {
				return err
			}
			return fn(&item)
		})
	})
}

func (bs *boltStore) GetStatistics() (store.Statistics, error) {
	var st store.Statistics
	err := bs.db.View(func(tx *boltdb.Tx) error {
		st.Concepts = tx.Bucket(bucketConcepts).Stats().KeyN
		st.Descriptions = tx.Bucket(bucketDescriptions).Stats().KeyN
		st.Relationships = tx.Bucket(bucketRelationships).Stats().KeyN
		st.RefsetItems = tx.Bucket(bucketRefsetItems).Stats().KeyN
		return tx.Bucket(bucketInstalledRefsets).ForEach(func(k, v []byte) error {
			st.Refsets = append(st.Refsets, btoi(k))
			return nil
		})
	})
	if err != nil {
		return st, apperr.StoreWrap(err, "reading statistics")
	}
	return st, nil
}
