// Package attrset updates one attribute on existing spans, the way assertion
// stages (negation, uncertainty, subject) enrich entities after detection.
package attrset

import (
	"github.com/kingrea/spanweave/internal/annotation"
	"github.com/kingrea/spanweave/internal/criterion"
	"github.com/kingrea/spanweave/internal/errs"
	"github.com/kingrea/spanweave/internal/stage"
)

// ID is the registry id of the stage.
const ID = "attribute-setter"

// Config declares which spans get which attribute value. An empty Criterion
// selects every span of Type.
type Config struct {
	Type      annotation.Type
	Criterion string
	Attribute string
	Value     string
}

// Setter is the attribute-setter stage.
type Setter struct {
	stage.Base
	cfg       Config
	criterion *criterion.Criterion
}

// New validates cfg and compiles its criterion.
func New(cfg Config) (*Setter, error) {
	if cfg.Type == "" {
		return nil, errs.Configf(ID, "type", "span type is required")
	}
	if cfg.Attribute == "" {
		return nil, errs.Configf(ID, "attribute", "attribute name is required")
	}
	var crit *criterion.Criterion
	if cfg.Criterion != "" {
		c, err := criterion.Parse(cfg.Criterion)
		if err != nil {
			return nil, &errs.ConfigurationError{Stage: ID, Option: "criterion", Err: err}
		}
		crit = c
	}
	s := &Setter{
		Base: stage.NewBase(stage.Info{
			ID:          ID,
			Name:        "Attribute Setter",
			Description: "Sets " + cfg.Attribute + "=" + cfg.Value + " on " + string(cfg.Type) + " spans",
			Version:     "1.0.0",
		}),
		cfg:       cfg,
		criterion: crit,
	}
	s.SetReads(cfg.Type)
	s.SetWrites(cfg.Type)
	return s, nil
}

// Factory reads type, criterion, attribute and value.
func Factory(opts stage.Config) (stage.Stage, error) {
	if err := opts.RejectUnknown(ID, "type", "criterion", "attribute", "value"); err != nil {
		return nil, err
	}
	var cfg Config
	typ, err := opts.String(ID, "type", string(annotation.TypeEntity))
	if err != nil {
		return nil, err
	}
	cfg.Type = annotation.Type(typ)
	if cfg.Criterion, err = opts.String(ID, "criterion", ""); err != nil {
		return nil, err
	}
	if cfg.Attribute, err = opts.String(ID, "attribute", ""); err != nil {
		return nil, err
	}
	if cfg.Value, err = opts.String(ID, "value", ""); err != nil {
		return nil, err
	}
	return New(cfg)
}

// Process updates every matching span through the store.
func (s *Setter) Process(ctx *stage.Context) error {
	updated := 0
	for span := range ctx.Store.Select(s.cfg.Type) {
		if !s.criterion.Match(ctx.Env(span)) {
			continue
		}
		if _, err := ctx.Store.Update(span, s.cfg.Attribute, s.cfg.Value); err != nil {
			return err
		}
		updated++
	}
	if ctx.Logger != nil {
		ctx.Logger.Debug("attributes set", "attribute", s.cfg.Attribute, "value", s.cfg.Value, "updated", updated)
	}
	return nil
}
