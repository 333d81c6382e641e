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

// Package rf2 recognises and decodes SNOMED CT Release Format 2 files:
// tab-separated, UTF-8, header-first, one row per component version. It has
// no dependency on how those rows end up persisted.
package rf2

import "regexp"

// FileType identifies a kind of RF2 distribution file by its component and
// content subtype. Ordering matters for import: earlier types should be
// imported first since later types (relationships, refsets) reference
// concepts and descriptions by id.
type FileType int

// Supported RF2 file types, in import precedence order.
const (
	ConceptFileType FileType = iota
	DescriptionFileType
	RelationshipFileType
	RefsetDescriptorFileType
	LanguageRefsetFileType
	SimpleRefsetFileType
	SimpleMapRefsetFileType
	ExtendedMapRefsetFileType
	ComplexMapRefsetFileType
	AttributeValueRefsetFileType
	AssociationRefsetFileType
	GenericRefsetFileType
	lastFileType
)

var fileTypeNames = []string{
	"Concept",
	"Description",
	"Relationship",
	"RefsetDescriptor refset",
	"Language refset",
	"Simple refset",
	"SimpleMap refset",
	"ExtendedMap refset",
	"ComplexMap refset",
	"AttributeValue refset",
	"Association refset",
	"Generic refset",
}

var fileTypeColumns = [][]string{
	{"id", "effectiveTime", "active", "moduleId", "definitionStatusId"},
	{"id", "effectiveTime", "active", "moduleId", "conceptId", "languageCode", "typeId", "term", "caseSignificanceId"},
	{"id", "effectiveTime", "active", "moduleId", "sourceId", "destinationId", "relationshipGroup", "typeId", "characteristicTypeId", "modifierId"},
	{"id", "effectiveTime", "active", "moduleId", "refsetId", "referencedComponentId", "attributeDescription", "attributeType", "attributeOrder"},
	{"id", "effectiveTime", "active", "moduleId", "refsetId", "referencedComponentId", "acceptabilityId"},
	{"id", "effectiveTime", "active", "moduleId", "refsetId", "referencedComponentId"},
	{"id", "effectiveTime", "active", "moduleId", "refsetId", "referencedComponentId", "mapTarget"},
	{"id", "effectiveTime", "active", "moduleId", "refsetId", "referencedComponentId", "mapGroup", "mapPriority", "mapRule", "mapAdvice", "mapTarget", "correlationId", "mapCategoryId"},
	{"id", "effectiveTime", "active", "moduleId", "refsetId", "referencedComponentId", "mapGroup", "mapPriority", "mapRule", "mapAdvice", "mapTarget", "correlationId", "mapBlock"},
	{"id", "effectiveTime", "active", "moduleId", "refsetId", "referencedComponentId", "valueId"},
	{"id", "effectiveTime", "active", "moduleId", "refsetId", "referencedComponentId", "targetComponentId"},
	{"id", "effectiveTime", "active", "moduleId", "refsetId", "referencedComponentId"},
}

// filenamePatterns match the standard RF2 naming convention:
// {Full|Snapshot|Delta}_{Concepts|Descriptions|Relationships|Refset_*}_{tag}_{date}.txt
var filenamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`sct2_Concept_(Full|Snapshot|Delta)\S*_\S+_\d{8}\.txt`),
	regexp.MustCompile(`sct2_Description_(Full|Snapshot|Delta)-\S+_\S+_\d{8}\.txt`),
	regexp.MustCompile(`sct2_(Stated)?Relationship_(Full|Snapshot|Delta)\S*_\S+_\d{8}\.txt`),
	regexp.MustCompile(`der2_cciRefset_RefsetDescriptor(Full|Snapshot|Delta)_\S+_\d{8}\.txt`),
	regexp.MustCompile(`der2_cRefset_Language(Full|Snapshot|Delta)-\S+_\S+_\d{8}\.txt`),
	regexp.MustCompile(`der2_Refset_Simple(Full|Snapshot|Delta)_\S+_\d{8}\.txt`),
	regexp.MustCompile(`der2_sRefset_SimpleMap(Full|Snapshot|Delta)_\S+_\d{8}\.txt`),
	regexp.MustCompile(`der2_iisssccRefset_ExtendedMap(Full|Snapshot|Delta)_\S+_\d{8}\.txt`),
	regexp.MustCompile(`der2_iisssciRefset_ComplexMap(Full|Snapshot|Delta)_\S+_\d{8}\.txt`),
	regexp.MustCompile(`der2_cRefset_AttributeValue(Full|Snapshot|Delta)_\S+_\d{8}\.txt`),
	regexp.MustCompile(`der2_cRefset_Association(Full|Snapshot|Delta)_\S+_\d{8}\.txt`),
	// Catch-all: any der2_*Refset* file whose shape doesn't match one of the
	// eleven named schemas above. Recognise tries the named patterns first
	// (see the loop order in Recognise), so this only ever matches a refset
	// file this build has never seen before; its rows decode via
	// decodeGenericRefset instead of being silently skipped by Discover.
	regexp.MustCompile(`der2_\S*[rR]efset\S*(Full|Snapshot|Delta)\S*_\S+_\d{8}\.txt`),
}

// Regexp returns the filename pattern used to recognise files of this type.
func (ft FileType) Regexp() *regexp.Regexp { return filenamePatterns[ft] }

// Columns returns the expected header column names for this file type.
func (ft FileType) Columns() []string { return fileTypeColumns[ft] }

// String returns a human-readable name for this file type.
func (ft FileType) String() string {
	if ft < 0 || int(ft) >= len(fileTypeNames) {
		return "Unknown"
	}
	return fileTypeNames[ft]
}

// IsRefset reports whether this file type carries reference set rows.
func (ft FileType) IsRefset() bool { return ft >= RefsetDescriptorFileType }

// AllFileTypes returns every recognised file type, in import precedence order.
func AllFileTypes() []FileType {
	types := make([]FileType, 0, int(lastFileType))
	for ft := ConceptFileType; ft < lastFileType; ft++ {
		types = append(types, ft)
	}
	return types
}

// Recognise returns the FileType matching the given base filename, and
// whether a match was found at all.
func Recognise(filename string) (FileType, bool) {
	for ft := ConceptFileType; ft < lastFileType; ft++ {
		if ft.Regexp().MatchString(filename) {
			return ft, true
		}
	}
	return 0, false
}
