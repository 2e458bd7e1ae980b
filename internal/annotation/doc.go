// Package annotation holds the per-document span model.
//
// A [Span] is a typed half-open byte interval of the document text with a
// small attribute bag. A [Store] owns every span for one document and keeps
// them ordered by position:
//
//	store := annotation.NewStore("Mother sister")
//	np, err := store.Insert(annotation.New(annotation.TypeNounPhrase, 0, 6))
//	for span := range store.Select(annotation.TypeNounPhrase) {
//	    fmt.Println(span, store.CoveredText(span))
//	}
//
// Spans are never renumbered. Stages that enrich an existing span go through
// [Store.Update]; the spans a store hands out are copies.
package annotation
