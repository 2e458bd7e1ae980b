package annotation

import (
	"iter"
	"sort"

	"github.com/kingrea/spanweave/internal/errs"
)

// Store is the interval-indexed collection of spans for one document. It is
// owned by a single pipeline run and is not safe for concurrent mutation.
type Store struct {
	text    string
	entries []*entry // sorted by Begin, End, seq
	bySeq   map[uint64]*entry
	nextSeq uint64
	// maxLen bounds the length of every span ever inserted; overlap queries
	// only need to look at spans starting within maxLen of the target.
	maxLen int
}

type entry struct {
	span    Span
	removed bool
}

func (e *entry) copy() Span {
	s := e.span
	s.Attributes = e.span.Attributes.Clone()
	return s
}

// NewStore returns an empty store for text.
func NewStore(text string) *Store {
	return &Store{text: text, bySeq: map[uint64]*entry{}}
}

// Text returns the document text the offsets refer to.
func (s *Store) Text() string {
	return s.text
}

// Len returns the number of spans held.
func (s *Store) Len() int {
	return len(s.entries)
}

// Insert validates span against the document bounds and adds a copy of it.
// The returned span is the stored copy and can be passed to Update.
func (s *Store) Insert(span Span) (Span, error) {
	if err := s.validate(span); err != nil {
		return Span{}, err
	}
	s.nextSeq++
	span.ref = ref{store: s, seq: s.nextSeq}
	span.Attributes = span.Attributes.Clone()
	e := &entry{span: span}

	idx := sort.Search(len(s.entries), func(i int) bool {
		return less(span, s.entries[i].span)
	})
	s.entries = append(s.entries, nil)
	copy(s.entries[idx+1:], s.entries[idx:])
	s.entries[idx] = e
	s.bySeq[span.ref.seq] = e
	if n := span.Len(); n > s.maxLen {
		s.maxLen = n
	}
	return e.copy(), nil
}

func (s *Store) validate(span Span) error {
	invalid := func(reason string) error {
		return &errs.InvalidSpanError{
			Type:           string(span.Type),
			Begin:          span.Begin,
			End:            span.End,
			DocumentLength: len(s.text),
			Reason:         reason,
		}
	}
	switch {
	case span.Type == "":
		return invalid("type is required")
	case span.Begin >= span.End:
		return invalid("begin must be less than end")
	case span.Begin < 0:
		return invalid("begin is negative")
	case span.End > len(s.text):
		return invalid("end is past the end of the document")
	}
	return nil
}

// Select yields spans of the given types in store order: ascending Begin,
// then End, then insertion order. With no types every span is yielded. The
// sequence is lazy and can be ranged over any number of times; each pass
// sees the spans present when it starts.
func (s *Store) Select(types ...Type) iter.Seq[Span] {
	want := typeSet(types)
	return func(yield func(Span) bool) {
		for _, e := range s.snapshot(0, len(s.entries)) {
			if e.removed || (want != nil && !want[e.span.Type]) {
				continue
			}
			if !yield(e.copy()) {
				return
			}
		}
	}
}

// All yields every span in store order.
func (s *Store) All() iter.Seq[Span] {
	return s.Select()
}

// Overlapping yields the spans whose interval intersects span's, excluding
// span itself when it belongs to this store. Results come in store order.
func (s *Store) Overlapping(span Span) iter.Seq[Span] {
	return func(yield func(Span) bool) {
		lo := sort.Search(len(s.entries), func(i int) bool {
			return s.entries[i].span.Begin > span.Begin-s.maxLen
		})
		hi := sort.Search(len(s.entries), func(i int) bool {
			return s.entries[i].span.Begin >= span.End
		})
		if lo >= hi {
			return
		}
		for _, e := range s.snapshot(lo, hi) {
			if e.removed || !e.span.Overlaps(span) {
				continue
			}
			if span.ref.store == s && e.span.ref.seq == span.ref.seq {
				continue
			}
			if !yield(e.copy()) {
				return
			}
		}
	}
}

// Covered yields spans of the given types lying within span, excluding span
// itself.
func (s *Store) Covered(span Span, types ...Type) iter.Seq[Span] {
	want := typeSet(types)
	return func(yield func(Span) bool) {
		for other := range s.Overlapping(span) {
			if !span.Encloses(other) || (want != nil && !want[other.Type]) {
				continue
			}
			if !yield(other) {
				return
			}
		}
	}
}

// Contains reports whether a span of typ covering exactly [begin, end) is held.
func (s *Store) Contains(typ Type, begin, end int) bool {
	idx := sort.Search(len(s.entries), func(i int) bool {
		e := s.entries[i].span
		return e.Begin > begin || (e.Begin == begin && e.End >= end)
	})
	for ; idx < len(s.entries); idx++ {
		e := s.entries[idx].span
		if e.Begin != begin || e.End != end {
			return false
		}
		if e.Type == typ {
			return true
		}
	}
	return false
}

// Lookup returns the current copy of a previously inserted span.
func (s *Store) Lookup(span Span) (Span, bool) {
	e, ok := s.entry(span)
	if !ok {
		return Span{}, false
	}
	return e.copy(), true
}

// Update sets one attribute on a stored span and returns the refreshed copy.
func (s *Store) Update(span Span, name, value string) (Span, error) {
	e, ok := s.entry(span)
	if !ok {
		return Span{}, unknown(span)
	}
	if e.span.Attributes == nil {
		e.span.Attributes = Attributes{}
	}
	e.span.Attributes[name] = value
	return e.copy(), nil
}

// Remove drops a stored span.
func (s *Store) Remove(span Span) error {
	e, ok := s.entry(span)
	if !ok {
		return unknown(span)
	}
	idx := sort.Search(len(s.entries), func(i int) bool {
		return !less(s.entries[i].span, e.span)
	})
	if idx < len(s.entries) && s.entries[idx] == e {
		s.entries = append(s.entries[:idx], s.entries[idx+1:]...)
	}
	delete(s.bySeq, e.span.ref.seq)
	e.removed = true
	return nil
}

// CoveredText returns the slice of the document under span.
func (s *Store) CoveredText(span Span) string {
	begin, end := span.Begin, span.End
	if begin < 0 {
		begin = 0
	}
	if end > len(s.text) {
		end = len(s.text)
	}
	if begin >= end {
		return ""
	}
	return s.text[begin:end]
}

// Types returns the distinct span types held, sorted.
func (s *Store) Types() []Type {
	seen := map[Type]struct{}{}
	for _, e := range s.entries {
		seen[e.span.Type] = struct{}{}
	}
	out := make([]Type, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Count returns how many spans of typ are held.
func (s *Store) Count(typ Type) int {
	n := 0
	for _, e := range s.entries {
		if e.span.Type == typ {
			n++
		}
	}
	return n
}

func (s *Store) entry(span Span) (*entry, bool) {
	if span.ref.store != s {
		return nil, false
	}
	e, ok := s.bySeq[span.ref.seq]
	return e, ok
}

func (s *Store) snapshot(lo, hi int) []*entry {
	out := make([]*entry, hi-lo)
	copy(out, s.entries[lo:hi])
	return out
}

func unknown(span Span) error {
	return &errs.UnknownSpanError{Type: string(span.Type), Begin: span.Begin, End: span.End}
}

func typeSet(types []Type) map[Type]bool {
	if len(types) == 0 {
		return nil
	}
	set := make(map[Type]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	return set
}
