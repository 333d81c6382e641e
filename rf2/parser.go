package rf2

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/golang/protobuf/ptypes"
	"github.com/golang/protobuf/ptypes/timestamp"
	"github.com/google/uuid"

	"github.com/eldrix/snomed-terminology/apperr"
	"github.com/eldrix/snomed-terminology/snomed"
)

// Record is any decoded RF2 row: *snomed.Concept, *snomed.Description,
// *snomed.Relationship or *snomed.ReferenceSetItem.
type Record interface{}

// Reader streams the rows of one RF2 file, decoding each into a typed
// Record. Malformed rows fail the import with the offending file name and
// line number (spec §4.1), reported via apperr.Input from Err after Scan
// returns false, matching the bufio.Scanner idiom the rest of Go I/O uses.
type Reader struct {
	fileType FileType
	filename string
	scanner  *bufio.Scanner
	line     int
	current  Record
	err      error
}

// NewReader validates the header row of r against fileType's expected
// columns and returns a Reader ready to Scan. filename is used only for
// error messages.
func NewReader(r io.Reader, fileType FileType, filename string) (*Reader, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	if !scanner.Scan() {
		return nil, apperr.Input(filename, 0, fmt.Errorf("empty file"))
	}
	header := strings.Split(scanner.Text(), "\t")
	expected := fileType.Columns()
	// A generic refset's extension columns aren't known in advance - only
	// its standard header is checked, and whatever follows is captured
	// verbatim by decodeGenericRefset.
	if fileType == GenericRefsetFileType {
		if len(header) < len(expected) || !reflect.DeepEqual(header[:len(expected)], expected) {
			return nil, apperr.Input(filename, 1, fmt.Errorf("expecting columns %v followed by extension columns, got %v", expected, header))
		}
	} else if !reflect.DeepEqual(header, expected) {
		return nil, apperr.Input(filename, 1, fmt.Errorf("expecting columns %v, got %v", expected, header))
	}
	return &Reader{fileType: fileType, filename: filepath.Base(filename), scanner: scanner, line: 1}, nil
}

// Scan advances to the next row, decoding it into the Record retrievable
// via Record(). It returns false at EOF or on the first malformed row; call
// Err to distinguish the two.
func (r *Reader) Scan() bool {
	if !r.scanner.Scan() {
		r.err = r.scanner.Err()
		return false
	}
	r.line++
	rec, err := decode(r.fileType, r.scanner.Bytes())
	if err != nil {
		r.err = apperr.Input(r.filename, r.line, err)
		return false
	}
	r.current = rec
	return true
}

// Record returns the most recently decoded row.
func (r *Reader) Record() Record { return r.current }

// Err returns the first non-EOF error encountered, if any.
func (r *Reader) Err() error { return r.err }

func decode(ft FileType, row []byte) (Record, error) {
	columns := bytes.Split(row, []byte{'\t'})
	if len(columns) < len(ft.Columns()) {
		return nil, fmt.Errorf("expected %d columns for %s, got %d", len(ft.Columns()), ft, len(columns))
	}
	switch ft {
	case ConceptFileType:
		return decodeConcept(columns)
	case DescriptionFileType:
		return decodeDescription(columns)
	case RelationshipFileType:
		return decodeRelationship(columns)
	case RefsetDescriptorFileType:
		return decodeRefsetDescriptor(columns)
	case LanguageRefsetFileType:
		return decodeLanguageRefset(columns)
	case SimpleRefsetFileType:
		return decodeSimpleRefset(columns)
	case SimpleMapRefsetFileType:
		return decodeSimpleMapRefset(columns)
	case ExtendedMapRefsetFileType:
		return decodeComplexMapRefset(columns, true)
	case ComplexMapRefsetFileType:
		return decodeComplexMapRefset(columns, false)
	case AttributeValueRefsetFileType:
		return decodeAttributeValueRefset(columns)
	case AssociationRefsetFileType:
		return decodeAssociationRefset(columns)
	case GenericRefsetFileType:
		return decodeGenericRefset(columns)
	default:
		return nil, fmt.Errorf("unrecognised file type %s", ft)
	}
}

func parseIdentifier(name string, b []byte) (int64, error) {
	v, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, b, err)
	}
	return v, nil
}

func parseActive(b []byte) (bool, error) {
	switch string(b) {
	case "1":
		return true, nil
	case "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid active flag %q, expected 0 or 1", b)
	}
}

func parseDate(b []byte) (*timestamp.Timestamp, error) {
	t, err := time.Parse("20060102", string(b))
	if err != nil {
		return nil, fmt.Errorf("invalid effectiveTime %q: %w", b, err)
	}
	return ptypes.TimestampProto(t)
}

func decodeConcept(c [][]byte) (*snomed.Concept, error) {
	id, err := parseIdentifier("id", c[0])
	if err != nil {
		return nil, err
	}
	effectiveTime, err := parseDate(c[1])
	if err != nil {
		return nil, err
	}
	active, err := parseActive(c[2])
	if err != nil {
		return nil, err
	}
	moduleID, err := parseIdentifier("moduleId", c[3])
	if err != nil {
		return nil, err
	}
	definitionStatusID, err := parseIdentifier("definitionStatusId", c[4])
	if err != nil {
		return nil, err
	}
	return &snomed.Concept{
		Id:                 id,
		EffectiveTime:      effectiveTime,
		Active:             active,
		ModuleId:           moduleID,
		DefinitionStatusId: definitionStatusID,
	}, nil
}

func decodeDescription(c [][]byte) (*snomed.Description, error) {
	id, err := parseIdentifier("id", c[0])
	if err != nil {
		return nil, err
	}
	effectiveTime, err := parseDate(c[1])
	if err != nil {
		return nil, err
	}
	active, err := parseActive(c[2])
	if err != nil {
		return nil, err
	}
	moduleID, err := parseIdentifier("moduleId", c[3])
	if err != nil {
		return nil, err
	}
	conceptID, err := parseIdentifier("conceptId", c[4])
	if err != nil {
		return nil, err
	}
	typeID, err := parseIdentifier("typeId", c[6])
	if err != nil {
		return nil, err
	}
	caseSignificanceID, err := parseIdentifier("caseSignificanceId", c[8])
	if err != nil {
		return nil, err
	}
	return &snomed.Description{
		Id:                 id,
		EffectiveTime:      effectiveTime,
		Active:             active,
		ModuleId:           moduleID,
		ConceptId:          conceptID,
		LanguageCode:       string(c[5]),
		TypeId:             typeID,
		Term:               string(c[7]),
		CaseSignificanceId: caseSignificanceID,
	}, nil
}

func decodeRelationship(c [][]byte) (*snomed.Relationship, error) {
	id, err := parseIdentifier("id", c[0])
	if err != nil {
		return nil, err
	}
	effectiveTime, err := parseDate(c[1])
	if err != nil {
		return nil, err
	}
	active, err := parseActive(c[2])
	if err != nil {
		return nil, err
	}
	moduleID, err := parseIdentifier("moduleId", c[3])
	if err != nil {
		return nil, err
	}
	sourceID, err := parseIdentifier("sourceId", c[4])
	if err != nil {
		return nil, err
	}
	destinationID, err := parseIdentifier("destinationId", c[5])
	if err != nil {
		return nil, err
	}
	group, err := parseIdentifier("relationshipGroup", c[6])
	if err != nil {
		return nil, err
	}
	typeID, err := parseIdentifier("typeId", c[7])
	if err != nil {
		return nil, err
	}
	characteristicTypeID, err := parseIdentifier("characteristicTypeId", c[8])
	if err != nil {
		return nil, err
	}
	modifierID, err := parseIdentifier("modifierId", c[9])
	if err != nil {
		return nil, err
	}
	return &snomed.Relationship{
		Id:                   id,
		EffectiveTime:        effectiveTime,
		Active:               active,
		ModuleId:             moduleID,
		SourceId:             sourceID,
		DestinationId:        destinationID,
		RelationshipGroup:    group,
		TypeId:               typeID,
		CharacteristicTypeId: characteristicTypeID,
		ModifierId:           modifierID,
	}, nil
}

func decodeRefsetHeader(c [][]byte) (*snomed.ReferenceSetItem, error) {
	id, err := uuid.Parse(string(c[0]))
	if err != nil {
		return nil, fmt.Errorf("invalid refset item id %q: %w", c[0], err)
	}
	effectiveTime, err := parseDate(c[1])
	if err != nil {
		return nil, err
	}
	active, err := parseActive(c[2])
	if err != nil {
		return nil, err
	}
	moduleID, err := parseIdentifier("moduleId", c[3])
	if err != nil {
		return nil, err
	}
	refsetID, err := parseIdentifier("refsetId", c[4])
	if err != nil {
		return nil, err
	}
	componentID, err := parseIdentifier("referencedComponentId", c[5])
	if err != nil {
		return nil, err
	}
	return &snomed.ReferenceSetItem{
		Id:                    id.String(),
		EffectiveTime:         effectiveTime,
		Active:                active,
		ModuleId:              moduleID,
		RefsetId:              refsetID,
		ReferencedComponentId: componentID,
	}, nil
}

func decodeRefsetDescriptor(c [][]byte) (*snomed.ReferenceSetItem, error) {
	item, err := decodeRefsetHeader(c)
	if err != nil {
		return nil, err
	}
	attrDescID, err := parseIdentifier("attributeDescription", c[6])
	if err != nil {
		return nil, err
	}
	attrTypeID, err := parseIdentifier("attributeType", c[7])
	if err != nil {
		return nil, err
	}
	order, err := parseIdentifier("attributeOrder", c[8])
	if err != nil {
		return nil, err
	}
	item.Body = snomed.RefSetDescriptorReferenceSet{
		AttributeDescriptionId: attrDescID,
		AttributeTypeId:        attrTypeID,
		AttributeOrder:         uint32(order),
	}
	return item, nil
}

func decodeLanguageRefset(c [][]byte) (*snomed.ReferenceSetItem, error) {
	item, err := decodeRefsetHeader(c)
	if err != nil {
		return nil, err
	}
	acceptability, err := parseIdentifier("acceptabilityId", c[6])
	if err != nil {
		return nil, err
	}
	item.Body = snomed.LanguageReferenceSet{AcceptabilityId: acceptability}
	return item, nil
}

func decodeSimpleRefset(c [][]byte) (*snomed.ReferenceSetItem, error) {
	item, err := decodeRefsetHeader(c)
	if err != nil {
		return nil, err
	}
	item.Body = snomed.SimpleReferenceSet{}
	return item, nil
}

func decodeSimpleMapRefset(c [][]byte) (*snomed.ReferenceSetItem, error) {
	item, err := decodeRefsetHeader(c)
	if err != nil {
		return nil, err
	}
	item.Body = snomed.SimpleMapReferenceSet{MapTarget: string(c[6])}
	return item, nil
}

func decodeComplexMapRefset(c [][]byte, extended bool) (*snomed.ReferenceSetItem, error) {
	item, err := decodeRefsetHeader(c)
	if err != nil {
		return nil, err
	}
	group, err := parseIdentifier("mapGroup", c[6])
	if err != nil {
		return nil, err
	}
	priority, err := parseIdentifier("mapPriority", c[7])
	if err != nil {
		return nil, err
	}
	correlation, err := parseIdentifier("correlationId", c[11])
	if err != nil {
		return nil, err
	}
	body := snomed.ComplexMapReferenceSet{
		MapGroup:    group,
		MapPriority: priority,
		MapRule:     string(c[8]),
		MapAdvice:   string(c[9]),
		MapTarget:   strings.TrimSpace(string(c[10])),
		Correlation: correlation,
	}
	last, err := parseIdentifier("mapCategoryId/mapBlock", c[12])
	if err != nil {
		return nil, err
	}
	if extended {
		body.MapCategory = last
	} else {
		body.MapBlock = last
	}
	item.Body = body
	return item, nil
}

func decodeAttributeValueRefset(c [][]byte) (*snomed.ReferenceSetItem, error) {
	item, err := decodeRefsetHeader(c)
	if err != nil {
		return nil, err
	}
	valueID, err := parseIdentifier("valueId", c[6])
	if err != nil {
		return nil, err
	}
	item.Body = snomed.AttributeValueReferenceSet{ValueId: valueID}
	return item, nil
}

func decodeAssociationRefset(c [][]byte) (*snomed.ReferenceSetItem, error) {
	item, err := decodeRefsetHeader(c)
	if err != nil {
		return nil, err
	}
	targetID, err := parseIdentifier("targetComponentId", c[6])
	if err != nil {
		return nil, err
	}
	item.Body = snomed.AssociationReferenceSet{TargetComponentId: targetID}
	return item, nil
}

// decodeGenericRefset handles a refset row from a file whose naming doesn't
// match any known schema: everything past the standard six columns is
// captured, in order, as an opaque attribute array (spec §4.1).
func decodeGenericRefset(c [][]byte) (*snomed.ReferenceSetItem, error) {
	item, err := decodeRefsetHeader(c)
	if err != nil {
		return nil, err
	}
	fields := make([]string, 0, len(c)-6)
	for _, col := range c[6:] {
		fields = append(fields, string(col))
	}
	item.Body = snomed.GenericReferenceSet{Fields: fields}
	return item, nil
}
