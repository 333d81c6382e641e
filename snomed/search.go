package snomed

// ExtendedDescription is one description enriched with everything the
// search index needs to filter and rank it without a further store lookup:
// its owning concept, that concept's preferred synonym (for FSN fallback
// display), its parent identifiers and refset memberships. The index
// builder (index.Builder) produces a stream of these, one per active
// description, and hands them to search.Search.Index.
type ExtendedDescription struct {
	Concept              *Concept     `protobuf:"bytes,1,opt,name=concept" json:"concept"`
	Description          *Description `protobuf:"bytes,2,opt,name=description" json:"description"`
	PreferredDescription *Description `protobuf:"bytes,3,opt,name=preferred_description" json:"preferredDescription"`
	DirectParentIds      []int64      `protobuf:"varint,4,rep,name=direct_parent_ids" json:"directParentIds"`
	RecursiveParentIds   []int64      `protobuf:"varint,5,rep,name=recursive_parent_ids" json:"recursiveParentIds"`
	ConceptRefsets       []int64      `protobuf:"varint,6,rep,name=concept_refsets" json:"conceptRefsets"`
	DescriptionRefsets   []int64      `protobuf:"varint,7,rep,name=description_refsets" json:"descriptionRefsets"`
	// PreferredInRefsets/AcceptableInRefsets are the language reference
	// set ids in which this description carries preferred/acceptable
	// acceptability (spec §4.5's acceptabilityMap, flattened by
	// acceptability value for indexing). A refset id appears in at most
	// one of the two.
	PreferredInRefsets  []int64 `protobuf:"varint,8,rep,name=preferred_in_refsets" json:"preferredInRefsets"`
	AcceptableInRefsets []int64 `protobuf:"varint,9,rep,name=acceptable_in_refsets" json:"acceptableInRefsets"`
}

func (m *ExtendedDescription) Reset()         { *m = ExtendedDescription{} }
func (m *ExtendedDescription) String() string { return protoString(m) }
func (*ExtendedDescription) ProtoMessage()    {}

// SearchParams is a query against the search index, as specified in
// spec §4.5.
type SearchParams struct {
	Text            string
	MaxHits         int
	Fuzziness       int // 0, 1 or 2
	AcceptableIn    []int64
	PreferredIn     []int64
	ConceptIDFilter []int64
	RefsetFilter    []int64
	TypeFilter      []int64
	ActiveOnly      bool
	IncludeFSN      bool
}

// SearchHit is one ranked result of a SearchParams query.
type SearchHit struct {
	ConceptID      int64
	DescriptionID  int64
	Term           string
	PreferredTerm  string
}
