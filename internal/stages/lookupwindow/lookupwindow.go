// Package lookupwindow restricts dictionary lookup to noun-phrase windows:
// one stage copies chunks into LookupWindow spans, another drops windows
// that sit inside a larger window.
package lookupwindow

import (
	"github.com/kingrea/spanweave/internal/annotation"
	"github.com/kingrea/spanweave/internal/errs"
	"github.com/kingrea/spanweave/internal/stage"
)

// Registry ids of the two stages.
const (
	CopyID     = "lookup-windows"
	EnclosedID = "remove-enclosed"
)

// Copier turns every span of a source type into a window span.
type Copier struct {
	stage.Base
	source annotation.Type
	target annotation.Type
}

// NewCopier returns a copier from source to target.
func NewCopier(source, target annotation.Type) (*Copier, error) {
	if source == "" {
		return nil, errs.Configf(CopyID, "source_type", "source type is required")
	}
	if target == "" {
		return nil, errs.Configf(CopyID, "window_type", "window type is required")
	}
	if source == target {
		return nil, errs.Configf(CopyID, "window_type", "window type must differ from source type %s", source)
	}
	c := &Copier{
		Base: stage.NewBase(stage.Info{
			ID:          CopyID,
			Name:        "Lookup Window Copier",
			Description: "Copies " + string(source) + " spans to " + string(target),
			Version:     "1.0.0",
		}),
		source: source,
		target: target,
	}
	c.SetReads(source)
	c.SetWrites(target)
	return c, nil
}

// CopierFactory accepts source_type (default NP) and window_type (default
// LookupWindow).
func CopierFactory(opts stage.Config) (stage.Stage, error) {
	if err := opts.RejectUnknown(CopyID, "source_type", "window_type"); err != nil {
		return nil, err
	}
	source, err := opts.String(CopyID, "source_type", string(annotation.TypeNounPhrase))
	if err != nil {
		return nil, err
	}
	target, err := opts.String(CopyID, "window_type", string(annotation.TypeLookupWindow))
	if err != nil {
		return nil, err
	}
	return NewCopier(annotation.Type(source), annotation.Type(target))
}

// Process copies each source span once; windows that already exist on the
// same interval are kept as they are.
func (c *Copier) Process(ctx *stage.Context) error {
	for span := range ctx.Store.Select(c.source) {
		if ctx.Store.Contains(c.target, span.Begin, span.End) {
			continue
		}
		if _, err := ctx.Insert(annotation.New(c.target, span.Begin, span.End)); err != nil {
			return err
		}
	}
	return nil
}

// EnclosedRemover drops spans of one type that lie strictly inside another
// span of the same type.
type EnclosedRemover struct {
	stage.Base
	typ annotation.Type
}

// NewEnclosedRemover returns a remover for typ.
func NewEnclosedRemover(typ annotation.Type) (*EnclosedRemover, error) {
	if typ == "" {
		return nil, errs.Configf(EnclosedID, "type", "type is required")
	}
	r := &EnclosedRemover{
		Base: stage.NewBase(stage.Info{
			ID:          EnclosedID,
			Name:        "Enclosed Span Remover",
			Description: "Removes " + string(typ) + " spans enclosed by a larger one",
			Version:     "1.0.0",
		}),
		typ: typ,
	}
	r.SetReads(typ)
	r.SetWrites(typ)
	return r, nil
}

// EnclosedFactory accepts type (default LookupWindow).
func EnclosedFactory(opts stage.Config) (stage.Stage, error) {
	if err := opts.RejectUnknown(EnclosedID, "type"); err != nil {
		return nil, err
	}
	typ, err := opts.String(EnclosedID, "type", string(annotation.TypeLookupWindow))
	if err != nil {
		return nil, err
	}
	return NewEnclosedRemover(annotation.Type(typ))
}

// Process removes every span strictly enclosed by a longer span of the same
// type. Spans with identical offsets do not enclose each other strictly and
// are both kept.
func (r *EnclosedRemover) Process(ctx *stage.Context) error {
	removed := 0
	for outer := range ctx.Store.Select(r.typ) {
		var inner []annotation.Span
		for span := range ctx.Store.Covered(outer, r.typ) {
			if span.Len() < outer.Len() {
				inner = append(inner, span)
			}
		}
		for _, span := range inner {
			// A longer span visited earlier may already have taken it.
			if _, held := ctx.Store.Lookup(span); !held {
				continue
			}
			if err := ctx.Store.Remove(span); err != nil {
				return err
			}
			removed++
		}
	}
	if ctx.Logger != nil && removed > 0 {
		ctx.Logger.Debug("enclosed spans removed", "type", string(r.typ), "removed", removed)
	}
	return nil
}
