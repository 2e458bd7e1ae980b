package stage

import (
	"fmt"

	"github.com/kingrea/spanweave/internal/annotation"
)

// Info describes a stage's identity and the span types it reads and writes.
type Info struct {
	ID          string
	Name        string
	Description string
	Version     string
	// Reads lists span types the stage expects earlier stages to have written.
	Reads []annotation.Type
	// Writes lists span types the stage may insert or update.
	Writes []annotation.Type
}

// Validate ensures the info block is well-formed.
func (i Info) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("stage: id is required")
	}
	if i.Name == "" {
		return fmt.Errorf("stage: name is required for %s", i.ID)
	}
	if i.Version == "" {
		return fmt.Errorf("stage: version is required for %s", i.ID)
	}
	for _, t := range i.Reads {
		if t == "" {
			return fmt.Errorf("stage: %s declares an empty read type", i.ID)
		}
	}
	for _, t := range i.Writes {
		if t == "" {
			return fmt.Errorf("stage: %s declares an empty write type", i.ID)
		}
	}
	return nil
}

// Stage is one unit of document processing. Process reads the document text
// and the store through ctx and inserts or updates spans. A stage must not
// keep references to the store after Process returns.
type Stage interface {
	Info() Info
	Process(ctx *Context) error
}

// Base provides common plumbing for stages (identity + IO declarations).
type Base struct {
	info Info
}

// NewBase seeds the helper with stage info.
func NewBase(info Info) Base {
	return Base{info: info}
}

// SetReads declares the span types the stage consumes.
func (b *Base) SetReads(types ...annotation.Type) {
	b.info.Reads = append([]annotation.Type{}, types...)
}

// SetWrites declares the span types the stage produces.
func (b *Base) SetWrites(types ...annotation.Type) {
	b.info.Writes = append([]annotation.Type{}, types...)
}

// Info implements Stage.Info.
func (b *Base) Info() Info {
	info := b.info
	info.Reads = append([]annotation.Type(nil), b.info.Reads...)
	info.Writes = append([]annotation.Type(nil), b.info.Writes...)
	return info
}

type funcStage struct {
	Base
	fn func(*Context) error
}

// Func adapts a plain function into a Stage. It is the usual way to plug an
// external component (a tokenizer, a tagger, a classifier) into a pipeline.
func Func(info Info, fn func(*Context) error) Stage {
	if info.Name == "" {
		info.Name = info.ID
	}
	if info.Version == "" {
		info.Version = "0.0.0"
	}
	return &funcStage{Base: NewBase(info), fn: fn}
}

func (s *funcStage) Process(ctx *Context) error {
	if s.fn == nil {
		return nil
	}
	return s.fn(ctx)
}
