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

// Package terminology is the facade over a Store and a Search index (spec
// §4.7): it composes the two backends, adds semantic inference (language
// matching, hierarchy navigation, generalisation) and the extended-concept
// builder (spec §4.8). Grounded directly on the teacher's
// terminology/service.go, terminology/indexer.go and
// terminology/exporter.go.
package terminology

import (
	"context"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/eldrix/snomed-terminology/apperr"
	"github.com/eldrix/snomed-terminology/ecl"
	"github.com/eldrix/snomed-terminology/index"
	"github.com/eldrix/snomed-terminology/search"
	"github.com/eldrix/snomed-terminology/search/bleveindex"
	"github.com/eldrix/snomed-terminology/snomed"
	"github.com/eldrix/snomed-terminology/store"
	"github.com/eldrix/snomed-terminology/store/boltstore"
)

// storeVersion is the on-disk layout version this build writes and
// expects; bumped whenever the bucket layout in store/boltstore changes
// in an incompatible way.
const storeVersion float32 = 1.0

// Svc composes the component store and search index behind a single
// handle and adds the derived operations spec §4.7/§4.8 describe.
type Svc struct {
	store.Store
	search.Search
	logger *zap.Logger
	cache  *cache
}

// Options configures Svc beyond the defaults New applies.
type Options struct {
	// IndexPath overrides the search index location (default: alongside
	// the component store, under the same directory).
	IndexPath string
	// IndexReadOnly sets the search index's read-only state when IndexPath
	// is set; when IndexPath is empty it is ignored and the index follows
	// readOnly.
	IndexReadOnly bool
	Logger        *zap.Logger
	// Cache configures an optional Redis-backed result cache for the
	// facade's recursive graph walks (GetAllParentIDs, EvalECL).
	Cache CacheOptions
}

// New opens or creates a terminology engine at path: a directory holding
// a version descriptor, a BoltDB component store and a bleve search
// index. Opening the same path twice concurrently fails, since BoltDB
// takes an exclusive lock on its file (spec §5).
func New(path string, readOnly bool, options ...Options) (*Svc, error) {
	var opts Options
	if len(options) > 0 {
		opts = options[0]
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	if !readOnly {
		if _, err := store.CreateOrOpenDescriptor(path, storeVersion, "bolt+bleve"); err != nil {
			return nil, err
		}
	}

	componentStore, err := boltstore.New(filepath.Join(path, "component.db"), readOnly)
	if err != nil {
		return nil, err
	}

	indexPath := opts.IndexPath
	if indexPath == "" {
		indexPath = path
	}
	indexReadOnly := readOnly
	if opts.IndexPath != "" {
		indexReadOnly = opts.IndexReadOnly
	}
	searchIndex, err := bleveindex.New(indexPath, indexReadOnly)
	if err != nil {
		componentStore.Close()
		return nil, err
	}

	return &Svc{
		Store:  componentStore,
		Search: searchIndex,
		logger: opts.Logger,
		cache:  newCache(opts.Cache, opts.Logger),
	}, nil
}

// Close closes both backends and the result cache, if configured.
func (svc *Svc) Close() error {
	if err := svc.cache.close(); err != nil {
		return err
	}
	if err := svc.Store.Close(); err != nil {
		return err
	}
	return svc.Search.Close()
}

// Logger returns the logger this Svc was constructed with, for callers
// (e.g. the server package) that want to log using the same sink.
func (svc *Svc) Logger() *zap.Logger {
	return svc.logger
}

// Status reports the store's statistics and whether it needs reindexing.
type Status struct {
	store.Statistics
	Dirty bool
}

// Status returns a summary of the engine's current state.
func (svc *Svc) Status() (Status, error) {
	stats, err := svc.GetStatistics()
	if err != nil {
		return Status{}, err
	}
	dirty, err := svc.Dirty()
	if err != nil {
		return Status{}, err
	}
	return Status{Statistics: stats, Dirty: dirty}, nil
}

// BuildIndices runs the closure and refset-membership index build (spec
// §4.4) followed by a full description search re-index (spec §4.5).
func (svc *Svc) BuildIndices() error {
	builder := index.NewBuilder(svc.Store, svc.logger)
	if err := builder.Build(); err != nil {
		return err
	}
	return svc.Index()
}

// IsA reports whether concept is, or is a descendant of, parent.
func (svc *Svc) IsA(concept *snomed.Concept, parent int64) bool {
	if concept.Id == parent {
		return true
	}
	descendants, err := svc.Ancestors(concept.Id)
	if err != nil {
		return false
	}
	for _, id := range descendants {
		if id == parent {
			return true
		}
	}
	return false
}

// Subsumes reports whether childID is parentID itself or a descendant of it
// (spec §4.7: childID ∈ descendants(parentID) ∪ {parentID}), for callers
// that hold only ids rather than a loaded *snomed.Concept.
func (svc *Svc) Subsumes(parentID, childID int64) (bool, error) {
	if parentID == childID {
		return true, nil
	}
	ancestors, err := svc.Ancestors(childID)
	if err != nil {
		return false, err
	}
	for _, id := range ancestors {
		if id == parentID {
			return true, nil
		}
	}
	return false, nil
}

// EvalECL evaluates an Expression Constraint Language query against this
// engine's store (spec §4.6), cached by the literal expression text.
func (svc *Svc) EvalECL(expr string) ([]int64, error) {
	key := "ecl:" + expr
	if ids, ok := svc.cache.getIDs(context.Background(), key); ok {
		return ids, nil
	}
	ids, err := ecl.Eval(svc.Store, expr)
	if err != nil {
		return nil, err
	}
	svc.cache.setIDs(context.Background(), key, ids)
	return ids, nil
}

// SearchWithECL intersects a free-text search with an ECL-derived concept
// set (spec §4.7's searchWithEcl): expr is evaluated via EvalECL and
// merged into params.ConceptIDFilter (intersected with any filter the
// caller already supplied) before delegating to the search index. Named
// distinctly from the embedded search.Search's own Search method, since a
// method can't share a name with the struct's "Search" field.
func (svc *Svc) SearchWithECL(expr string, params snomed.SearchParams) ([]snomed.SearchHit, error) {
	ids, err := svc.EvalECL(expr)
	if err != nil {
		return nil, err
	}
	if len(params.ConceptIDFilter) > 0 {
		params.ConceptIDFilter = intersectInt64(params.ConceptIDFilter, ids)
	} else {
		params.ConceptIDFilter = ids
	}
	if len(params.ConceptIDFilter) == 0 {
		return []snomed.SearchHit{}, nil
	}
	return svc.Search.Search(params)
}

func intersectInt64(a, b []int64) []int64 {
	set := make(map[int64]bool, len(b))
	for _, id := range b {
		set[id] = true
	}
	result := make([]int64, 0, len(a))
	for _, id := range a {
		if set[id] {
			result = append(result, id)
		}
	}
	return result
}

// GetFullySpecifiedName returns the FSN for concept, preferring the given
// language reference sets in order, falling back to a simple language-tag
// match against the description's own LanguageCode.
func (svc *Svc) GetFullySpecifiedName(concept *snomed.Concept, refsetIDs []int64, tags []language.Tag) (*snomed.Description, bool, error) {
	descs, err := svc.GetDescriptions(concept.Id)
	if err != nil {
		return nil, false, err
	}
	return svc.languageMatch(descs, snomed.FullySpecifiedName, refsetIDs, tags)
}

// GetPreferredSynonym returns the preferred synonym for concept using the
// same matching strategy as GetFullySpecifiedName.
func (svc *Svc) GetPreferredSynonym(concept *snomed.Concept, refsetIDs []int64, tags []language.Tag) (*snomed.Description, bool, error) {
	descs, err := svc.GetDescriptions(concept.Id)
	if err != nil {
		return nil, false, err
	}
	return svc.languageMatch(descs, snomed.Synonym, refsetIDs, tags)
}

func (svc *Svc) languageMatch(descs []*snomed.Description, typeID snomed.DescriptionTypeID, refsetIDs []int64, tags []language.Tag) (*snomed.Description, bool, error) {
	d, found, err := svc.refsetLanguageMatch(descs, typeID, refsetIDs)
	if found || err != nil {
		return d, found, err
	}
	return svc.simpleLanguageMatch(descs, typeID, tags)
}

// refsetLanguageMatch finds the first description of typeID marked
// preferred in the highest-priority language reference set that has an
// opinion on it.
func (svc *Svc) refsetLanguageMatch(descs []*snomed.Description, typeID snomed.DescriptionTypeID, refsetIDs []int64) (*snomed.Description, bool, error) {
	for _, refsetID := range refsetIDs {
		for _, desc := range descs {
			if desc.TypeId != int64(typeID) {
				continue
			}
			item, found, err := svc.GetFromRefset(refsetID, desc.Id)
			if err != nil {
				return nil, false, err
			}
			if found && item.Active {
				if lang := item.GetLanguage(); lang != nil && lang.IsPreferred() {
					return desc, true, nil
				}
			}
		}
	}
	return nil, false, nil
}

// simpleLanguageMatch falls back to matching a description's own
// LanguageCode against the requested BCP-47 tags, for concepts not
// covered by any installed language reference set.
func (svc *Svc) simpleLanguageMatch(descs []*snomed.Description, typeID snomed.DescriptionTypeID, tags []language.Tag) (*snomed.Description, bool, error) {
	var dTags []language.Tag
	var ds []*snomed.Description
	for _, desc := range descs {
		if desc.TypeId == int64(typeID) {
			dTags = append(dTags, desc.LanguageTag())
			ds = append(ds, desc)
		}
	}
	if len(ds) == 0 {
		return nil, false, nil
	}
	matcher := language.NewMatcher(dTags)
	_, i, _ := matcher.Match(tags...)
	return ds[i], true, nil
}

// mustErr builds the error the Must* helpers panic with, so a caller
// recovering the panic gets a meaningful KindUsage message rather than a
// bare nil-pointer dereference.
func mustErr(conceptID int64, what string, err error) error {
	if err != nil {
		return apperr.Usage("could not determine %s for concept %d: %s", what, conceptID, err)
	}
	return apperr.Usage("could not determine %s for concept %d", what, conceptID)
}

// MustGetFullySpecifiedName is GetFullySpecifiedName, panicking on failure
// - for call sites (templates, formatters) where a missing FSN is a data
// integrity bug, not a recoverable condition.
func (svc *Svc) MustGetFullySpecifiedName(concept *snomed.Concept, refsetIDs []int64, tags []language.Tag) *snomed.Description {
	d, found, err := svc.GetFullySpecifiedName(concept, refsetIDs, tags)
	if err != nil || !found {
		panic(mustErr(concept.Id, "FSN", err))
	}
	return d
}

// MustGetPreferredSynonym is GetPreferredSynonym, panicking on failure.
func (svc *Svc) MustGetPreferredSynonym(concept *snomed.Concept, refsetIDs []int64, tags []language.Tag) *snomed.Description {
	d, found, err := svc.GetPreferredSynonym(concept, refsetIDs, tags)
	if err != nil || !found {
		panic(mustErr(concept.Id, "preferred synonym", err))
	}
	return d
}
