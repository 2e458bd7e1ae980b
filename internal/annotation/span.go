package annotation

import "fmt"

// Type is the discriminant of a span (token, NP, entity, ...).
type Type string

// Span types produced or consumed by the built-in stages.
const (
	TypeSegment      Type = "Segment"
	TypeSentence     Type = "Sentence"
	TypeToken        Type = "token"
	TypeNounPhrase   Type = "NP"
	TypePrepPhrase   Type = "PP"
	TypeEntity       Type = "entity"
	TypeLookupWindow Type = "LookupWindow"
)

// Span is a typed, attributed half-open interval [Begin, End) of the document
// text. Spans returned by a Store are copies; attributes change only through
// Store.Update.
type Span struct {
	Type       Type
	Begin      int
	End        int
	Origin     string
	Attributes Attributes

	ref ref
}

// ref ties a span copy back to the store entry it came from.
type ref struct {
	store *Store
	seq   uint64
}

// New returns an uninserted span with an empty attribute bag.
func New(typ Type, begin, end int) Span {
	return Span{Type: typ, Begin: begin, End: end}
}

// WithAttributes returns a copy of s carrying attrs.
func (s Span) WithAttributes(attrs Attributes) Span {
	s.Attributes = attrs.Clone()
	return s
}

// Len returns the number of bytes covered.
func (s Span) Len() int {
	return s.End - s.Begin
}

// Overlaps reports whether the two intervals intersect.
func (s Span) Overlaps(other Span) bool {
	return s.Begin < other.End && other.Begin < s.End
}

// Encloses reports whether other lies within s.
func (s Span) Encloses(other Span) bool {
	return s.Begin <= other.Begin && other.End <= s.End
}

// Attr returns a single attribute value.
func (s Span) Attr(name string) (string, bool) {
	v, ok := s.Attributes[name]
	return v, ok
}

func (s Span) String() string {
	return fmt.Sprintf("%s[%d,%d)", s.Type, s.Begin, s.End)
}

// less orders spans by Begin, then End, then insertion sequence.
func less(a, b Span) bool {
	if a.Begin != b.Begin {
		return a.Begin < b.Begin
	}
	if a.End != b.End {
		return a.End < b.End
	}
	return a.ref.seq < b.ref.seq
}
