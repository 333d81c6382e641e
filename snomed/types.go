package snomed

import (
	"github.com/golang/protobuf/ptypes/timestamp"
	"golang.org/x/text/language"
)

// Concept identifies a single SNOMED CT meaning. Active status and every
// other field is effective-time resolved: only the row with the greatest
// EffectiveTime for a given Id survives import (see store.Store.Put).
type Concept struct {
	Id                 int64                `protobuf:"varint,1,opt,name=id" json:"id"`
	EffectiveTime      *timestamp.Timestamp `protobuf:"bytes,2,opt,name=effective_time" json:"effectiveTime"`
	Active             bool                 `protobuf:"varint,3,opt,name=active" json:"active"`
	ModuleId           int64                `protobuf:"varint,4,opt,name=module_id" json:"moduleId"`
	DefinitionStatusId int64                `protobuf:"varint,5,opt,name=definition_status_id" json:"definitionStatusId"`
}

func (m *Concept) Reset()         { *m = Concept{} }
func (m *Concept) String() string { return protoString(m) }
func (*Concept) ProtoMessage()    {}

// Description is a lexical label bound to a Concept.
type Description struct {
	Id                 int64                `protobuf:"varint,1,opt,name=id" json:"id"`
	EffectiveTime      *timestamp.Timestamp `protobuf:"bytes,2,opt,name=effective_time" json:"effectiveTime"`
	Active             bool                 `protobuf:"varint,3,opt,name=active" json:"active"`
	ModuleId           int64                `protobuf:"varint,4,opt,name=module_id" json:"moduleId"`
	ConceptId          int64                `protobuf:"varint,5,opt,name=concept_id" json:"conceptId"`
	LanguageCode       string               `protobuf:"bytes,6,opt,name=language_code" json:"languageCode"`
	TypeId             int64                `protobuf:"varint,7,opt,name=type_id" json:"typeId"`
	Term               string               `protobuf:"bytes,8,opt,name=term" json:"term"`
	CaseSignificanceId int64                `protobuf:"varint,9,opt,name=case_significance_id" json:"caseSignificanceId"`
}

func (m *Description) Reset()         { *m = Description{} }
func (m *Description) String() string { return protoString(m) }
func (*Description) ProtoMessage()    {}

// LanguageTag returns the best-effort BCP-47 tag for this description's
// LanguageCode, falling back to English if the code isn't parseable - RF2
// language codes are frequently bare ISO-639 codes such as "en" or "en-GB".
func (m *Description) LanguageTag() language.Tag {
	tag, err := language.Parse(m.LanguageCode)
	if err != nil {
		return language.English
	}
	return tag
}

// Relationship is a directed, typed edge between two concepts.
type Relationship struct {
	Id                   int64                `protobuf:"varint,1,opt,name=id" json:"id"`
	EffectiveTime        *timestamp.Timestamp `protobuf:"bytes,2,opt,name=effective_time" json:"effectiveTime"`
	Active               bool                 `protobuf:"varint,3,opt,name=active" json:"active"`
	ModuleId             int64                `protobuf:"varint,4,opt,name=module_id" json:"moduleId"`
	SourceId             int64                `protobuf:"varint,5,opt,name=source_id" json:"sourceId"`
	DestinationId        int64                `protobuf:"varint,6,opt,name=destination_id" json:"destinationId"`
	RelationshipGroup    int64                `protobuf:"varint,7,opt,name=relationship_group" json:"relationshipGroup"`
	TypeId               int64                `protobuf:"varint,8,opt,name=type_id" json:"typeId"`
	CharacteristicTypeId int64                `protobuf:"varint,9,opt,name=characteristic_type_id" json:"characteristicTypeId"`
	ModifierId           int64                `protobuf:"varint,10,opt,name=modifier_id" json:"modifierId"`
}

func (m *Relationship) Reset()         { *m = Relationship{} }
func (m *Relationship) String() string { return protoString(m) }
func (*Relationship) ProtoMessage()    {}

// ExtendedConcept is the derived, read-only projection defined in spec §3:
// a concept together with its active descriptions, the transitive closure
// of its IS_A parents (grouped by relationship type), the direct-parent-only
// variant of the same, and its refset memberships.
type ExtendedConcept struct {
	Concept                   *Concept
	Descriptions              []*Description
	ParentRelationships       map[int64][]int64 // typeId -> destination ids: every ancestor (excluding the concept itself) for IS_A, the concept's own direct destinations for other types; ancestors' non-IS_A relationships are not included
	DirectParentRelationships map[int64][]int64 // typeId -> set of direct destination concept ids
	Refsets                   []int64
}

// protoString gives a stable, cheap Stringer for wire types without pulling
// in a generated String() - none of the callers in this module rely on the
// canonical protobuf text format, only on having *some* representation for
// log lines.
func protoString(v interface{}) string {
	return sprintStruct(v)
}
