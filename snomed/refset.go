package snomed

import (
	"encoding/json"
	"fmt"

	"github.com/golang/protobuf/ptypes/timestamp"
	"google.golang.org/protobuf/encoding/protowire"
)

// ReferenceSetBody is the schema-specific payload of a ReferenceSetItem. The
// concrete type stored here is chosen by the RF2 file's recognised naming
// schema at parse time (see rf2.FileType); a refset file whose name doesn't
// match a known schema falls back to GenericReferenceSet so no row is ever
// dropped for want of a known layout.
type ReferenceSetBody interface {
	refsetBodyKind() string
}

// LanguageReferenceSet carries the acceptability of a description within a
// particular dialect/language reference set.
type LanguageReferenceSet struct {
	AcceptabilityId int64 `json:"acceptabilityId"`
}

func (LanguageReferenceSet) refsetBodyKind() string { return "language" }

// IsPreferred reports whether this language refset entry marks its
// description as the preferred term for its dialect.
func (l LanguageReferenceSet) IsPreferred() bool { return IsPreferredAcceptability(l.AcceptabilityId) }

// SimpleReferenceSet carries no additional payload beyond membership itself.
type SimpleReferenceSet struct{}

func (SimpleReferenceSet) refsetBodyKind() string { return "simple" }

// SimpleMapReferenceSet maps a component to an external code system value.
type SimpleMapReferenceSet struct {
	MapTarget string `json:"mapTarget"`
}

func (SimpleMapReferenceSet) refsetBodyKind() string { return "simpleMap" }

// ComplexMapReferenceSet maps a component to an external code system with
// grouping, priority, rule and advice metadata (also used for "extended"
// map refsets, which add MapCategory instead of MapBlock).
type ComplexMapReferenceSet struct {
	MapGroup    int64  `json:"mapGroup"`
	MapPriority int64  `json:"mapPriority"`
	MapRule     string `json:"mapRule"`
	MapAdvice   string `json:"mapAdvice"`
	MapTarget   string `json:"mapTarget"`
	Correlation int64  `json:"correlationId"`
	MapCategory int64  `json:"mapCategoryId,omitempty"`
	MapBlock    int64  `json:"mapBlock,omitempty"`
}

func (ComplexMapReferenceSet) refsetBodyKind() string { return "complexMap" }

// AttributeValueReferenceSet attaches a concept-valued attribute to a component.
type AttributeValueReferenceSet struct {
	ValueId int64 `json:"valueId"`
}

func (AttributeValueReferenceSet) refsetBodyKind() string { return "attributeValue" }

// AssociationReferenceSet records an inter-component association, e.g.
// "SAME AS" or "REPLACED BY" on an inactivated concept.
type AssociationReferenceSet struct {
	TargetComponentId int64 `json:"targetComponentId"`
}

func (AssociationReferenceSet) refsetBodyKind() string { return "association" }

// RefSetDescriptorReferenceSet describes the extension columns of another
// refset, letting a build recover the schema of refsets it doesn't know
// about natively.
type RefSetDescriptorReferenceSet struct {
	AttributeDescriptionId int64  `json:"attributeDescriptionId"`
	AttributeTypeId        int64  `json:"attributeTypeId"`
	AttributeOrder         uint32 `json:"attributeOrder"`
}

func (RefSetDescriptorReferenceSet) refsetBodyKind() string { return "refsetDescriptor" }

// GenericReferenceSet is the fallback for a refset file whose naming doesn't
// match a recognised schema: the extension columns beyond the six standard
// ones are kept, in file order, as an opaque attribute array (spec §4.1).
type GenericReferenceSet struct {
	Fields []string `json:"fields"`
}

func (GenericReferenceSet) refsetBodyKind() string { return "generic" }

// ReferenceSetItem is a polymorphic RF2 refset row, discriminated by RefsetId.
// Id is the row's UUID as it appears in the RF2 file, not a numeric SCTID.
type ReferenceSetItem struct {
	Id                    string
	EffectiveTime         *timestamp.Timestamp
	Active                bool
	ModuleId              int64
	RefsetId              int64
	ReferencedComponentId int64
	Body                  ReferenceSetBody
}

func (m *ReferenceSetItem) Reset()         { *m = ReferenceSetItem{} }
func (m *ReferenceSetItem) String() string { return protoString(m) }
func (*ReferenceSetItem) ProtoMessage()    {}

// GetLanguage returns the Body as a LanguageReferenceSet, or nil if this item
// isn't a language refset member.
func (m *ReferenceSetItem) GetLanguage() *LanguageReferenceSet {
	if l, ok := m.Body.(LanguageReferenceSet); ok {
		return &l
	}
	return nil
}

// GetSimple returns the Body as a SimpleReferenceSet, or nil otherwise.
func (m *ReferenceSetItem) GetSimple() *SimpleReferenceSet {
	if s, ok := m.Body.(SimpleReferenceSet); ok {
		return &s
	}
	return nil
}

// GetAssociation returns the Body as an AssociationReferenceSet, or nil otherwise.
func (m *ReferenceSetItem) GetAssociation() *AssociationReferenceSet {
	if a, ok := m.Body.(AssociationReferenceSet); ok {
		return &a
	}
	return nil
}

// Marshal implements the gogo/protobuf Marshaler interface directly rather
// than relying on reflection over struct tags, since Body is a Go interface
// (a oneof in spirit) that reflection-based protobuf can't discriminate on
// its own. proto.Marshal detects this method and uses it in preference to
// reflection, so callers never need to know the difference.
func (m *ReferenceSetItem) Marshal() ([]byte, error) {
	var buf []byte
	buf = appendTagString(buf, 1, m.Id)
	var seconds int64
	if m.EffectiveTime != nil {
		seconds = m.EffectiveTime.Seconds
	}
	buf = appendTagVarint(buf, 2, uint64(seconds))
	buf = appendTagVarint(buf, 3, boolToUint64(m.Active))
	buf = appendTagVarint(buf, 4, uint64(m.ModuleId))
	buf = appendTagVarint(buf, 5, uint64(m.RefsetId))
	buf = appendTagVarint(buf, 6, uint64(m.ReferencedComponentId))
	kind := "generic"
	if m.Body != nil {
		kind = m.Body.refsetBodyKind()
	}
	payload, err := json.Marshal(m.Body)
	if err != nil {
		return nil, fmt.Errorf("marshal refset item %s body: %w", m.Id, err)
	}
	buf = appendTagString(buf, 7, kind)
	buf = protowire.AppendTag(buf, 8, protowire.BytesType)
	buf = protowire.AppendBytes(buf, payload)
	return buf, nil
}

// Unmarshal is the counterpart to Marshal, detected by proto.Unmarshal in
// the same way.
func (m *ReferenceSetItem) Unmarshal(data []byte) error {
	var kind string
	var payload []byte
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]
		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			data = data[n:]
			switch num {
			case 2:
				m.EffectiveTime = &timestamp.Timestamp{Seconds: int64(v)}
			case 3:
				m.Active = v != 0
			case 4:
				m.ModuleId = int64(v)
			case 5:
				m.RefsetId = int64(v)
			case 6:
				m.ReferencedComponentId = int64(v)
			}
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			data = data[n:]
			switch num {
			case 1:
				m.Id = string(v)
			case 7:
				kind = string(v)
			case 8:
				payload = append([]byte{}, v...)
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			data = data[n:]
		}
	}
	body, err := decodeBody(kind, payload)
	if err != nil {
		return err
	}
	m.Body = body
	return nil
}

func decodeBody(kind string, payload []byte) (ReferenceSetBody, error) {
	switch kind {
	case "language":
		var b LanguageReferenceSet
		return b, json.Unmarshal(payload, &b)
	case "simple":
		return SimpleReferenceSet{}, nil
	case "simpleMap":
		var b SimpleMapReferenceSet
		return b, json.Unmarshal(payload, &b)
	case "complexMap":
		var b ComplexMapReferenceSet
		return b, json.Unmarshal(payload, &b)
	case "attributeValue":
		var b AttributeValueReferenceSet
		return b, json.Unmarshal(payload, &b)
	case "association":
		var b AssociationReferenceSet
		return b, json.Unmarshal(payload, &b)
	case "refsetDescriptor":
		var b RefSetDescriptorReferenceSet
		return b, json.Unmarshal(payload, &b)
	default:
		var b GenericReferenceSet
		if len(payload) == 0 {
			return b, nil
		}
		return b, json.Unmarshal(payload, &b)
	}
}

func appendTagVarint(buf []byte, num protowire.Number, v uint64) []byte {
	buf = protowire.AppendTag(buf, num, protowire.VarintType)
	return protowire.AppendVarint(buf, v)
}

func appendTagString(buf []byte, num protowire.Number, s string) []byte {
	buf = protowire.AppendTag(buf, num, protowire.BytesType)
	return protowire.AppendString(buf, s)
}

func boolToUint64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
