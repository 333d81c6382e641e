package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/eldrix/snomed-terminology/snomed"
	"github.com/eldrix/snomed-terminology/terminology"
)

// conceptView is the teacher's server.C, trimmed of medicine-only fields.
type conceptView struct {
	*snomed.Concept
	IsA                  []int64               `json:"isA"`
	Descriptions         []*snomed.Description `json:"descriptions"`
	PreferredDescription *snomed.Description   `json:"preferredDescription,omitempty"`
	PreferredFsn         *snomed.Description   `json:"preferredFsn,omitempty"`
	Refsets              []int64               `json:"refsets"`
}

func viewForConcept(svc *terminology.Svc, r *http.Request, concept *snomed.Concept) result {
	tags := acceptLanguageTags(r)
	descs, err := svc.GetDescriptions(concept.Id)
	if err != nil {
		return result{nil, err, statusFor(err)}
	}
	preferred, _, err := svc.GetPreferredSynonym(concept, nil, tags)
	if err != nil {
		return result{nil, err, statusFor(err)}
	}
	fsn, _, err := svc.GetFullySpecifiedName(concept, nil, tags)
	if err != nil {
		return result{nil, err, statusFor(err)}
	}
	ancestors, err := svc.Ancestors(concept.Id)
	if err != nil {
		return result{nil, err, statusFor(err)}
	}
	refsets, err := svc.RefsetsFor(concept.Id)
	if err != nil {
		return result{nil, err, statusFor(err)}
	}
	return result{&conceptView{
		Concept:              concept,
		IsA:                  ancestors,
		Descriptions:         filterDescriptions(r, descs),
		PreferredDescription: preferred,
		PreferredFsn:         fsn,
		Refsets:              refsets,
	}, nil, http.StatusOK}
}

func filterDescriptions(r *http.Request, descs []*snomed.Description) []*snomed.Description {
	includeInactive, _ := strconv.ParseBool(r.FormValue("includeInactive"))
	includeFSN, _ := strconv.ParseBool(r.FormValue("includeFsn"))
	out := make([]*snomed.Description, 0, len(descs))
	for _, d := range descs {
		if !d.Active && !includeInactive {
			continue
		}
		if d.TypeId == int64(snomed.FullySpecifiedName) && !includeFSN {
			continue
		}
		out = append(out, d)
	}
	return out
}

func getConcept(svc *terminology.Svc, r *http.Request) result {
	id, err := pathInt64(r, "id")
	if err != nil {
		return result{nil, err, http.StatusBadRequest}
	}
	concept, err := svc.GetConcept(id)
	if err != nil {
		return result{nil, err, http.StatusNotFound}
	}
	return viewForConcept(svc, r, concept)
}

func getConceptDescriptions(svc *terminology.Svc, r *http.Request) result {
	id, err := pathInt64(r, "id")
	if err != nil {
		return result{nil, err, http.StatusBadRequest}
	}
	descs, err := svc.GetDescriptions(id)
	if err != nil {
		return result{nil, err, statusFor(err)}
	}
	return result{filterDescriptions(r, descs), nil, http.StatusOK}
}

func getExtendedConcept(svc *terminology.Svc, r *http.Request) result {
	id, err := pathInt64(r, "id")
	if err != nil {
		return result{nil, err, http.StatusBadRequest}
	}
	ec, err := svc.GetExtendedConcept(id)
	if err != nil {
		return result{nil, err, statusFor(err)}
	}
	return result{ec, nil, http.StatusOK}
}

func getParents(svc *terminology.Svc, r *http.Request) result {
	id, err := pathInt64(r, "id")
	if err != nil {
		return result{nil, err, http.StatusBadRequest}
	}
	concept, err := svc.GetConcept(id)
	if err != nil {
		return result{nil, err, http.StatusNotFound}
	}
	if r.FormValue("recursive") == "true" {
		parents, err := svc.GetAllParents(concept)
		if err != nil {
			return result{nil, err, statusFor(err)}
		}
		return result{parents, nil, http.StatusOK}
	}
	parents, err := svc.GetParents(concept)
	if err != nil {
		return result{nil, err, statusFor(err)}
	}
	return result{parents, nil, http.StatusOK}
}

func getChildren(svc *terminology.Svc, r *http.Request) result {
	id, err := pathInt64(r, "id")
	if err != nil {
		return result{nil, err, http.StatusBadRequest}
	}
	concept, err := svc.GetConcept(id)
	if err != nil {
		return result{nil, err, http.StatusNotFound}
	}
	if r.FormValue("recursive") == "true" {
		children, err := svc.GetAllChildren(concept)
		if err != nil {
			return result{nil, err, statusFor(err)}
		}
		return result{children, nil, http.StatusOK}
	}
	children, err := svc.GetChildren(concept)
	if err != nil {
		return result{nil, err, statusFor(err)}
	}
	return result{children, nil, http.StatusOK}
}

// genericise maps a concept onto the closest ancestor in the "root" query
// parameters (spec §4.7 GenericiseTo).
func genericise(svc *terminology.Svc, r *http.Request) result {
	id, err := pathInt64(r, "id")
	if err != nil {
		return result{nil, err, http.StatusBadRequest}
	}
	concept, err := svc.GetConcept(id)
	if err != nil {
		return result{nil, err, http.StatusNotFound}
	}
	roots := r.URL.Query()["root"]
	if len(roots) == 0 {
		return result{nil, errBadRequest("must specify at least one root"), http.StatusBadRequest}
	}
	generics := make(map[int64]bool, len(roots))
	for _, root := range roots {
		v, err := strconv.ParseInt(root, 10, 64)
		if err != nil {
			return result{nil, err, http.StatusBadRequest}
		}
		generics[v] = true
	}
	generic, ok := svc.GenericiseTo(concept, generics)
	if !ok {
		return result{nil, errBadRequest("no matching ancestor among the given roots"), http.StatusNotFound}
	}
	return viewForConcept(svc, r, generic)
}

func crossmap(svc *terminology.Svc, r *http.Request) result {
	refsetID, err := pathInt64(r, "refset")
	if err != nil {
		return result{nil, err, http.StatusBadRequest}
	}
	componentID, err := pathInt64(r, "id")
	if err != nil {
		return result{nil, err, http.StatusBadRequest}
	}
	item, found, err := svc.GetFromRefset(refsetID, componentID)
	if err != nil {
		return result{nil, err, statusFor(err)}
	}
	if !found {
		return result{nil, errBadRequest("not a member"), http.StatusNotFound}
	}
	return result{item, nil, http.StatusOK}
}

// searchHit is the teacher's server.SearchResult, unchanged in shape.
type searchHit struct {
	Term          string `json:"term"`
	ConceptID     int64  `json:"conceptId"`
	PreferredTerm string `json:"preferredTerm"`
}

func search(svc *terminology.Svc, r *http.Request) result {
	query := r.URL.Query()
	text := query.Get("s")
	if text == "" {
		return result{nil, errBadRequest("missing parameter: s"), http.StatusBadRequest}
	}
	params := snomed.SearchParams{
		Text:       text,
		MaxHits:    intOr(query.Get("maxHits"), 200),
		ActiveOnly: query.Get("inactive") != "true",
		IncludeFSN: query.Get("includeFsn") == "true",
	}
	if fuzzy, _ := strconv.ParseBool(query.Get("fuzzy")); fuzzy {
		params.Fuzziness = 1
	}
	params.ConceptIDFilter = parseInt64List(query["is"])
	params.RefsetFilter = parseInt64List(query["refset"])

	var hits []snomed.SearchHit
	var err error
	if expr := query.Get("ecl"); expr != "" {
		hits, err = svc.SearchWithECL(expr, params)
	} else {
		hits, err = svc.Search.Search(params)
	}
	if err != nil {
		return result{nil, err, statusFor(err)}
	}
	tags := acceptLanguageTags(r)
	out := make([]*searchHit, 0, len(hits))
	for _, h := range hits {
		concept, err := svc.GetConcept(h.ConceptID)
		if err != nil {
			return result{nil, err, statusFor(err)}
		}
		preferred, found, err := svc.GetPreferredSynonym(concept, nil, tags)
		if err != nil {
			return result{nil, err, statusFor(err)}
		}
		preferredTerm := h.Term
		if found {
			preferredTerm = preferred.Term
		}
		out = append(out, &searchHit{Term: h.Term, ConceptID: h.ConceptID, PreferredTerm: preferredTerm})
	}
	return result{out, nil, http.StatusOK}
}

func evalECL(svc *terminology.Svc, r *http.Request) result {
	expr := r.URL.Query().Get("expression")
	if expr == "" {
		return result{nil, errBadRequest("missing parameter: expression"), http.StatusBadRequest}
	}
	ids, err := svc.EvalECL(expr)
	if err != nil {
		return result{nil, err, statusFor(err)}
	}
	return result{ids, nil, http.StatusOK}
}

func status(svc *terminology.Svc, r *http.Request) result {
	st, err := svc.Status()
	if err != nil {
		return result{nil, err, statusFor(err)}
	}
	return result{st, nil, http.StatusOK}
}

func intOr(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

func parseInt64List(vs []string) []int64 {
	if len(vs) == 0 {
		return nil
	}
	out := make([]int64, 0, len(vs))
	for _, v := range vs {
		n, err := strconv.ParseInt(v, 10, 64)
		if err == nil {
			out = append(out, n)
		}
	}
	return out
}

type simpleError string

func (e simpleError) Error() string { return string(e) }

func errBadRequest(msg string) error {
	return simpleError(strings.TrimSpace(msg))
}
