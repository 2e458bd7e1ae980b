package annotation

import "sort"

// Attributes is the attribute bag of a span.
type Attributes map[string]string

// Well-known attribute names.
const (
	AttrPartOfSpeech = "partOfSpeech"
	AttrPolarity     = "polarity"
	AttrUncertainty  = "uncertainty"
	AttrGeneric      = "generic"
	AttrConditional  = "conditional"
	AttrHistoryOf    = "historyOf"
	AttrSubject      = "subject"
	AttrSegmentID    = "id"
)

// Closed value sets for the semantic attributes.
const (
	PolarityPositive = "positive"
	PolarityNegated  = "negated"

	UncertaintyAbsent  = "absent"
	UncertaintyPresent = "present"

	HistoryAbsent  = "absent"
	HistoryPresent = "present"

	SubjectPatient      = "patient"
	SubjectFamilyMember = "family_member"
	SubjectDonor        = "donor"
	SubjectOther        = "other"

	True  = "true"
	False = "false"
)

// EntityDefaults returns the fresh bag of a newly detected entity: not
// negated, no uncertainty, not generic, not conditional, no history, about
// the patient.
func EntityDefaults() Attributes {
	return Attributes{
		AttrPolarity:    PolarityPositive,
		AttrUncertainty: UncertaintyAbsent,
		AttrGeneric:     False,
		AttrConditional: False,
		AttrHistoryOf:   HistoryAbsent,
		AttrSubject:     SubjectPatient,
	}
}

// Clone returns an independent copy. A nil bag clones to nil.
func (a Attributes) Clone() Attributes {
	if a == nil {
		return nil
	}
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Keys returns the attribute names in sorted order.
func (a Attributes) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Is reports whether name is set to want.
func (a Attributes) Is(name, want string) bool {
	v, ok := a[name]
	return ok && v == want
}
