// Package entity marks entities of interest: spans of a source type whose
// attributes satisfy a criterion get a derived entity span carrying the
// default semantic attributes, ready for later assertion stages.
package entity

import (
	"github.com/kingrea/spanweave/internal/annotation"
	"github.com/kingrea/spanweave/internal/criterion"
	"github.com/kingrea/spanweave/internal/errs"
	"github.com/kingrea/spanweave/internal/stage"
	"github.com/kingrea/spanweave/internal/tracelog"
)

// ID is the registry id of the stage.
const ID = "entity-annotator"

// DefaultCriterion selects nouns by their part-of-speech tag.
const DefaultCriterion = `partOfSpeech ^= "N"`

// Config controls the annotator. Insert and Trace are independent: either,
// both or neither may be on.
type Config struct {
	SourceType annotation.Type
	EntityType annotation.Type
	Criterion  string
	// Insert adds an entity span for every match.
	Insert bool
	// Trace emits one trace record for every match.
	Trace bool
}

// DefaultConfig returns the noun-entity setup: tokens tagged N* become
// entities and are traced.
func DefaultConfig() Config {
	return Config{
		SourceType: annotation.TypeToken,
		EntityType: annotation.TypeEntity,
		Criterion:  DefaultCriterion,
		Insert:     true,
		Trace:      true,
	}
}

// Annotator is the entity-annotator stage.
type Annotator struct {
	stage.Base
	cfg       Config
	criterion *criterion.Criterion
}

// New compiles the criterion and returns an annotator.
func New(cfg Config) (*Annotator, error) {
	if cfg.SourceType == "" {
		return nil, errs.Configf(ID, "source_type", "source type is required")
	}
	if cfg.EntityType == "" {
		return nil, errs.Configf(ID, "entity_type", "entity type is required")
	}
	crit, err := criterion.Parse(cfg.Criterion)
	if err != nil {
		return nil, &errs.ConfigurationError{Stage: ID, Option: "criterion", Err: err}
	}
	a := &Annotator{
		Base: stage.NewBase(stage.Info{
			ID:          ID,
			Name:        "Entity Annotator",
			Description: "Marks " + string(cfg.SourceType) + " spans matching " + crit.String(),
			Version:     "1.0.0",
		}),
		cfg:       cfg,
		criterion: crit,
	}
	a.SetReads(cfg.SourceType)
	if cfg.Insert {
		a.SetWrites(cfg.EntityType)
	}
	return a, nil
}

// Factory builds an annotator from stage options: source_type, entity_type,
// criterion, insert and trace.
func Factory(opts stage.Config) (stage.Stage, error) {
	if err := opts.RejectUnknown(ID, "source_type", "entity_type", "criterion", "insert", "trace"); err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	source, err := opts.String(ID, "source_type", string(cfg.SourceType))
	if err != nil {
		return nil, err
	}
	target, err := opts.String(ID, "entity_type", string(cfg.EntityType))
	if err != nil {
		return nil, err
	}
	if cfg.Criterion, err = opts.String(ID, "criterion", cfg.Criterion); err != nil {
		return nil, err
	}
	if cfg.Insert, err = opts.Bool(ID, "insert", cfg.Insert); err != nil {
		return nil, err
	}
	if cfg.Trace, err = opts.Bool(ID, "trace", cfg.Trace); err != nil {
		return nil, err
	}
	cfg.SourceType = annotation.Type(source)
	cfg.EntityType = annotation.Type(target)
	return New(cfg)
}

// Config returns the annotator's configuration.
func (a *Annotator) Config() Config {
	return a.cfg
}

// Process walks the source spans in store order. A matching span whose
// entity already exists on the same interval is traced but not inserted
// again.
func (a *Annotator) Process(ctx *stage.Context) error {
	matched, inserted := 0, 0
	for span := range ctx.Store.Select(a.cfg.SourceType) {
		if !a.criterion.Match(ctx.Env(span)) {
			continue
		}
		matched++
		defaults := annotation.EntityDefaults()
		if a.cfg.Insert && !ctx.Store.Contains(a.cfg.EntityType, span.Begin, span.End) {
			entity := annotation.New(a.cfg.EntityType, span.Begin, span.End).WithAttributes(defaults)
			if _, err := ctx.Insert(entity); err != nil {
				return err
			}
			inserted++
		}
		if a.cfg.Trace {
			if err := ctx.Emit(a.record(ctx, span, defaults)); err != nil {
				return err
			}
		}
	}
	if ctx.Logger != nil {
		ctx.Logger.Debug("entities annotated", "matched", matched, "inserted", inserted)
	}
	return nil
}

// record describes a match: the source span's own attributes, completed with
// the entity defaults it would receive.
func (a *Annotator) record(ctx *stage.Context, span annotation.Span, defaults annotation.Attributes) tracelog.Record {
	attrs := span.Attributes.Clone()
	if attrs == nil {
		attrs = annotation.Attributes{}
	}
	for k, v := range defaults {
		if _, ok := attrs[k]; !ok {
			attrs[k] = v
		}
	}
	return tracelog.Record{
		Type:        string(span.Type),
		Begin:       span.Begin,
		End:         span.End,
		CoveredText: ctx.Store.CoveredText(span),
		Criterion:   a.criterion.String(),
		Attributes:  attrs,
	}
}
