// Package bleveindex is a bleve-backed implementation of search.Search: an
// inverted index over description terms with prefix and fuzzy matching,
// refset/concept-id/type filters and preferred/acceptable-aware ranking (spec
// §4.5), adapted from the teacher's terminology/search/bleve.go.
package bleveindex

import (
	"fmt"
	"path/filepath"
	"strconv"

	blevesearch "github.com/blevesearch/bleve"
	"github.com/blevesearch/bleve/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/index/store/goleveldb"
	"github.com/blevesearch/bleve/index/store/moss"
	"github.com/blevesearch/bleve/index/upsidedown"

	"github.com/eldrix/snomed-terminology/apperr"
	"github.com/eldrix/snomed-terminology/search"
	"github.com/eldrix/snomed-terminology/snomed"
)

type document struct {
	ConceptId           string
	DescriptionId       string
	Term                string
	PreferredTerm       string
	SortWeight          string
	Active              bool
	IsFSN               bool
	IsPreferred         bool
	IsAcceptable        bool
	TypeId              string
	DirectParentIds     []string
	RecursiveParentIds  []string
	ConceptRefsetIds    []string
	PreferredInRefsets  []string
	AcceptableInRefsets []string
}

type service struct {
	index blevesearch.Index
}

var _ search.Search = (*service)(nil)

// New opens or creates a bleve index at path.
func New(path string, readOnly bool) (search.Search, error) {
	var index blevesearch.Index
	var err error
	if !readOnly {
		textMapping := blevesearch.NewTextFieldMapping()
		textMapping.IncludeInAll = false

		boolMapping := blevesearch.NewBooleanFieldMapping()
		boolMapping.IncludeInAll = false

		idMapping := blevesearch.NewTextFieldMapping()
		idMapping.IncludeInAll = false
		idMapping.IncludeTermVectors = false
		idMapping.Analyzer = keyword.Name

		storedOnlyMapping := blevesearch.NewTextFieldMapping()
		storedOnlyMapping.IncludeInAll = false
		storedOnlyMapping.Index = false
		storedOnlyMapping.Analyzer = keyword.Name

		documentMapping := blevesearch.NewDocumentMapping()
		documentMapping.AddFieldMappingsAt("ConceptId", idMapping)
		documentMapping.AddFieldMappingsAt("DescriptionId", idMapping)
		documentMapping.AddFieldMappingsAt("Term", textMapping)
		documentMapping.AddFieldMappingsAt("PreferredTerm", storedOnlyMapping)
		documentMapping.AddFieldMappingsAt("SortWeight", idMapping)
		documentMapping.AddFieldMappingsAt("Active", boolMapping)
		documentMapping.AddFieldMappingsAt("IsFSN", boolMapping)
		documentMapping.AddFieldMappingsAt("IsPreferred", boolMapping)
		documentMapping.AddFieldMappingsAt("IsAcceptable", boolMapping)
		documentMapping.AddFieldMappingsAt("TypeId", idMapping)
		documentMapping.AddFieldMappingsAt("DirectParentIds", idMapping)
		documentMapping.AddFieldMappingsAt("RecursiveParentIds", idMapping)
		documentMapping.AddFieldMappingsAt("ConceptRefsetIds", idMapping)
		documentMapping.AddFieldMappingsAt("PreferredInRefsets", idMapping)
		documentMapping.AddFieldMappingsAt("AcceptableInRefsets", idMapping)

		mapping := blevesearch.NewIndexMapping()
		mapping.StoreDynamic = false
		mapping.DefaultType = "document"
		mapping.AddDocumentMapping("document", documentMapping)
		// moss buffers writes in memory and flushes to a goleveldb-backed
		// lower-level store, matching the teacher's own trade-off of fast
		// indexing against a space-efficient store (terminology/search/bleve.go).
		kvconfig := map[string]interface{}{"mossLowerLevelStoreName": goleveldb.Name}
		index, err = blevesearch.NewUsing(filepath.Join(path, "descriptions.bleve"), mapping, upsidedown.Name, moss.Name, kvconfig)
	} else {
		index, err = blevesearch.OpenUsing(filepath.Join(path, "descriptions.bleve"), map[string]interface{}{"read_only": true})
	}
	if err != nil {
		return nil, apperr.Index("opening search index at %s: %s", path, err)
	}
	return &service{index: index}, nil
}

func (s *service) Index(descriptions []*snomed.ExtendedDescription) error {
	batch := s.index.NewBatch()
	for _, ed := range descriptions {
		d := document{
			ConceptId:     strconv.FormatInt(ed.Concept.Id, 10),
			DescriptionId: strconv.FormatInt(ed.Description.Id, 10),
			Term:          ed.Description.Term,
			SortWeight:    fmt.Sprintf("%04d", len(ed.Description.Term)),
			Active:        ed.Description.Active,
			IsFSN:         ed.Description.TypeId == int64(snomed.FullySpecifiedName),
			TypeId:        strconv.FormatInt(ed.Description.TypeId, 10),
		}
		if ed.PreferredDescription != nil && ed.PreferredDescription.Id == ed.Description.Id {
			d.IsPreferred = true
		}
		if ed.PreferredDescription != nil {
			d.PreferredTerm = ed.PreferredDescription.Term
		}
		for _, id := range ed.DirectParentIds {
			d.DirectParentIds = append(d.DirectParentIds, strconv.FormatInt(id, 10))
		}
		for _, id := range ed.RecursiveParentIds {
			d.RecursiveParentIds = append(d.RecursiveParentIds, strconv.FormatInt(id, 10))
		}
		for _, id := range ed.ConceptRefsets {
			d.ConceptRefsetIds = append(d.ConceptRefsetIds, strconv.FormatInt(id, 10))
		}
		for _, id := range ed.PreferredInRefsets {
			d.PreferredInRefsets = append(d.PreferredInRefsets, strconv.FormatInt(id, 10))
		}
		for _, id := range ed.AcceptableInRefsets {
			d.AcceptableInRefsets = append(d.AcceptableInRefsets, strconv.FormatInt(id, 10))
		}
		if len(ed.PreferredInRefsets) > 0 || len(ed.AcceptableInRefsets) > 0 {
			d.IsAcceptable = true
		}
		if err := batch.Index(d.DescriptionId, d); err != nil {
			return apperr.Index("indexing description %d: %s", ed.Description.Id, err)
		}
	}
	if err := s.index.Batch(batch); err != nil {
		return apperr.Index("committing batch of %d descriptions: %s", len(descriptions), err)
	}
	return nil
}

// Search implements spec §4.5's ranking: an exact-term hit ranks above a
// preferred-synonym hit, which ranks above an acceptable-synonym hit,
// which ranks above an FSN hit; within a rank, the shortest matching term
// wins ties, since a shorter label is usually the more specific answer to
// a short query.
func (s *service) Search(params snomed.SearchParams) ([]snomed.SearchHit, error) {
	mapping := s.index.Mapping()
	analyzer := mapping.AnalyzerNamed(mapping.AnalyzerNameForPath("Term"))
	tokens := analyzer.Analyze([]byte(params.Text))

	textQuery := blevesearch.NewBooleanQuery()
	exactQuery := blevesearch.NewMatchPhraseQuery(params.Text)
	exactQuery.SetField("Term")
	for _, token := range tokens {
		term := string(token.Term)
		prefixQuery := blevesearch.NewPrefixQuery(term)
		prefixQuery.SetField("Term")
		if params.Fuzziness > 0 {
			fuzzyQuery := blevesearch.NewFuzzyQuery(term)
			fuzzyQuery.SetField("Term")
			fuzzyQuery.SetFuzziness(params.Fuzziness)
			disjunction := blevesearch.NewDisjunctionQuery(prefixQuery, fuzzyQuery)
			textQuery.AddMust(disjunction)
		} else {
			textQuery.AddMust(prefixQuery)
		}
	}

	// Ranking preference (spec §4.5: exact > preferred synonym > acceptable
	// synonym > FSN) is expressed as additive score boosts on top of the
	// text match, rather than a hard sort order, so a strong text match on
	// a lower-preference term can still surface above a weak match on a
	// higher-preference one.
	exactQuery.SetBoost(5)
	preferredQuery := blevesearch.NewBoolFieldQuery(true)
	preferredQuery.SetField("IsPreferred")
	preferredQuery.SetBoost(3)
	acceptableQuery := blevesearch.NewBoolFieldQuery(true)
	acceptableQuery.SetField("IsAcceptable")
	acceptableQuery.SetBoost(2)

	ranked := blevesearch.NewBooleanQuery()
	ranked.AddMust(textQuery)
	ranked.AddShould(exactQuery, preferredQuery, acceptableQuery)
	query := blevesearch.NewConjunctionQuery(ranked)
	if params.ActiveOnly {
		activeQuery := blevesearch.NewBoolFieldQuery(true)
		activeQuery.SetField("Active")
		query.AddQuery(activeQuery)
	}
	if !params.IncludeFSN {
		fsnQuery := blevesearch.NewBoolFieldQuery(false)
		fsnQuery.SetField("IsFSN")
		query.AddQuery(fsnQuery)
	}
	if len(params.TypeFilter) > 0 {
		typeDisjunction := blevesearch.NewDisjunctionQuery()
		for _, t := range params.TypeFilter {
			q := blevesearch.NewTermQuery(strconv.FormatInt(t, 10))
			q.SetField("TypeId")
			typeDisjunction.AddQuery(q)
		}
		query.AddQuery(typeDisjunction)
	}
	if len(params.RefsetFilter) > 0 {
		refsetDisjunction := blevesearch.NewDisjunctionQuery()
		for _, r := range params.RefsetFilter {
			q := blevesearch.NewTermQuery(strconv.FormatInt(r, 10))
			q.SetField("ConceptRefsetIds")
			refsetDisjunction.AddQuery(q)
		}
		query.AddQuery(refsetDisjunction)
	}
	if len(params.ConceptIDFilter) > 0 {
		conceptDisjunction := blevesearch.NewDisjunctionQuery()
		for _, id := range params.ConceptIDFilter {
			q := blevesearch.NewTermQuery(strconv.FormatInt(id, 10))
			q.SetField("ConceptId")
			conceptDisjunction.AddQuery(q)
		}
		query.AddQuery(conceptDisjunction)
	}
	if len(params.PreferredIn) > 0 {
		preferredDisjunction := blevesearch.NewDisjunctionQuery()
		for _, r := range params.PreferredIn {
			q := blevesearch.NewTermQuery(strconv.FormatInt(r, 10))
			q.SetField("PreferredInRefsets")
			preferredDisjunction.AddQuery(q)
		}
		query.AddQuery(preferredDisjunction)
	}
	if len(params.AcceptableIn) > 0 {
		// Preferred-in-refset X implies acceptable-in-refset X, so either
		// field satisfies an "acceptable in one of these dialects" filter.
		acceptableDisjunction := blevesearch.NewDisjunctionQuery()
		for _, r := range params.AcceptableIn {
			pq := blevesearch.NewTermQuery(strconv.FormatInt(r, 10))
			pq.SetField("PreferredInRefsets")
			aq := blevesearch.NewTermQuery(strconv.FormatInt(r, 10))
			aq.SetField("AcceptableInRefsets")
			acceptableDisjunction.AddQuery(pq, aq)
		}
		query.AddQuery(acceptableDisjunction)
	}

	maxHits := params.MaxHits
	if maxHits <= 0 {
		maxHits = 200
	}
	req := blevesearch.NewSearchRequest(query)
	req.Size = maxHits
	req.Fields = []string{"ConceptId", "DescriptionId", "Term", "PreferredTerm", "IsPreferred", "SortWeight"}
	req.SortBy([]string{"-_score", "SortWeight"})

	results, err := s.index.Search(req)
	if err != nil {
		return nil, apperr.Index("executing search %q: %s", params.Text, err)
	}

	hits := make([]snomed.SearchHit, 0, len(results.Hits))
	for _, hit := range results.Hits {
		conceptID, _ := strconv.ParseInt(fieldString(hit.Fields["ConceptId"]), 10, 64)
		descriptionID, _ := strconv.ParseInt(fieldString(hit.Fields["DescriptionId"]), 10, 64)
		hits = append(hits, snomed.SearchHit{
			ConceptID:     conceptID,
			DescriptionID: descriptionID,
			Term:          fieldString(hit.Fields["Term"]),
			PreferredTerm: fieldString(hit.Fields["PreferredTerm"]),
		})
	}
	return hits, nil
}

func fieldString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func (s *service) Close() error {
	return s.index.Close()
}
