package snomed

// DescriptionTypeID distinguishes the kind of a Description (FSN, synonym...).
type DescriptionTypeID int64

// Well-known SNOMED CT description type identifiers.
const (
	FullySpecifiedName DescriptionTypeID = 900000000000003001
	Synonym            DescriptionTypeID = 900000000000013009
	Definition         DescriptionTypeID = 900000000000550004
)

// Well-known SNOMED CT concept and relationship identifiers used throughout
// the engine.
const (
	// IsA is the relationship type identifier for the subsumption ("IS_A")
	// relationship that forms the concept hierarchy.
	IsA int64 = 116680003

	// Root is the identifier of the SNOMED CT root concept.
	Root int64 = 138875005

	// PreferredAcceptability and AcceptableAcceptability are the two
	// acceptabilityId values carried by language reference set members.
	PreferredAcceptability int64 = 900000000000548007
	AcceptableAcceptability int64 = 900000000000549004
)

// IsPreferredAcceptability reports whether an acceptabilityId denotes "preferred".
func IsPreferredAcceptability(acceptabilityID int64) bool {
	return acceptabilityID == PreferredAcceptability
}

// Well-known language reference set identifiers, used to resolve a
// caller's language preference to preferred/acceptable terms (spec §4.7).
const (
	UKEnglishLanguageRefsetID int64 = 999001261000000100
	USEnglishLanguageRefsetID int64 = 900000000000509007
)
