package pipeline

import (
	"fmt"

	"github.com/kingrea/spanweave/internal/errs"
	"github.com/kingrea/spanweave/internal/stage"
)

// Entry is one stage appended to a builder, with its optional instance alias.
type Entry struct {
	Alias string
	Stage stage.Stage
}

// Sequence is anything that can hand over an ordered list of stages: a
// Builder or a built Pipeline.
type Sequence interface {
	Entries() []Entry
}

// Builder accumulates stages in order. It is not safe for concurrent use.
type Builder struct {
	entries []Entry
	err     error
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Append adds one stage after the ones already appended.
func (b *Builder) Append(st stage.Stage) *Builder {
	return b.AppendNamed("", st)
}

// AppendNamed adds one stage under an explicit instance name.
func (b *Builder) AppendNamed(alias string, st stage.Stage) *Builder {
	b.entries = append(b.entries, Entry{Alias: alias, Stage: st})
	return b
}

// AppendAll adds every stage of seq, preserving its internal order.
func (b *Builder) AppendAll(seq Sequence) *Builder {
	if seq == nil {
		return b
	}
	b.entries = append(b.entries, seq.Entries()...)
	return b
}

// AppendDefinition resolves each reference of def through reg and appends the
// resulting stages. The first failure is kept and reported by Build.
func (b *Builder) AppendDefinition(reg *stage.Registry, def Definition) *Builder {
	if b.err != nil {
		return b
	}
	if reg == nil {
		b.err = errs.Configf("", "", "stage registry is required")
		return b
	}
	if err := def.Validate(); err != nil {
		b.err = err
		return b
	}
	for _, ref := range def.Stages {
		st, err := reg.Resolve(ref.Stage, ref.Options)
		if err != nil {
			b.err = err
			return b
		}
		b.AppendNamed(ref.ID, st)
	}
	return b
}

// Entries returns a copy of the appended stages.
func (b *Builder) Entries() []Entry {
	return append([]Entry(nil), b.entries...)
}

// Len returns the number of appended stages.
func (b *Builder) Len() int {
	return len(b.entries)
}

// Build snapshots the appended stages into a runnable pipeline. Appending to
// the builder afterwards does not change the result.
func (b *Builder) Build(opts ...Option) (*Pipeline, error) {
	if b.err != nil {
		return nil, b.err
	}
	entries := b.Entries()
	for idx, e := range entries {
		if e.Stage == nil {
			return nil, &errs.ConfigurationError{Stage: e.Alias, Message: fmt.Sprintf("stage[%d] is nil", idx)}
		}
		if err := e.Stage.Info().Validate(); err != nil {
			return nil, &errs.ConfigurationError{Stage: e.Alias, Message: fmt.Sprintf("stage[%d]", idx), Err: err}
		}
	}
	names, err := instanceNames(entries)
	if err != nil {
		return nil, err
	}
	p := newPipeline(entries, names)
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	if p.strict {
		if err := checkDependencies(entries, names); err != nil {
			return nil, err
		}
	}
	return p, nil
}
