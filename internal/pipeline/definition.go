package pipeline

import (
	"fmt"

	"github.com/kingrea/spanweave/internal/errs"
	"github.com/kingrea/spanweave/internal/stage"
)

// Definition declares a pipeline as an ordered list of (stage id, options)
// pairs, the form pipelines take on the command line.
type Definition struct {
	Name        string
	Description string
	Stages      []StageRef
}

// StageRef describes how a definition composes and configures one stage.
type StageRef struct {
	// ID optionally names the instance; it defaults to the stage id.
	ID      string
	Stage   string
	Options stage.Config
}

// Clone returns a deep copy of the definition.
func (def Definition) Clone() Definition {
	clone := Definition{Name: def.Name, Description: def.Description}
	if len(def.Stages) > 0 {
		clone.Stages = make([]StageRef, len(def.Stages))
		for i, ref := range def.Stages {
			clone.Stages[i] = ref.Clone()
		}
	}
	return clone
}

// Clone returns a copy of the reference with its own options map.
func (ref StageRef) Clone() StageRef {
	return StageRef{ID: ref.ID, Stage: ref.Stage, Options: ref.Options.Clone()}
}

// Validate ensures the reference is usable.
func (ref StageRef) Validate() error {
	if ref.Stage == "" {
		return fmt.Errorf("pipeline: stage id is required")
	}
	return nil
}

// Validate ensures the definition is self-consistent. An empty definition is
// valid and builds a pipeline that leaves the store empty.
func (def Definition) Validate() error {
	seen := map[string]struct{}{}
	for idx, ref := range def.Stages {
		if err := ref.Validate(); err != nil {
			return &errs.ConfigurationError{Message: fmt.Sprintf("stage[%d]", idx), Err: err}
		}
		if ref.ID == "" {
			continue
		}
		if _, exists := seen[ref.ID]; exists {
			return errs.Configf(ref.ID, "", "duplicate stage instance id")
		}
		seen[ref.ID] = struct{}{}
	}
	return nil
}

// StageIDs returns the referenced stage ids in declaration order.
func (def Definition) StageIDs() []string {
	ids := make([]string, 0, len(def.Stages))
	for _, ref := range def.Stages {
		ids = append(ids, ref.Stage)
	}
	return ids
}

// FromDefinition resolves every reference through reg and builds the result.
func FromDefinition(reg *stage.Registry, def Definition, opts ...Option) (*Pipeline, error) {
	return NewBuilder().AppendDefinition(reg, def).Build(opts...)
}

// instanceNames assigns each entry its pipeline-local name. Explicit aliases
// are kept and must be unique; unnamed entries take their stage id, suffixed
// with -2, -3, ... when the id repeats.
func instanceNames(entries []Entry) ([]string, error) {
	names := make([]string, len(entries))
	taken := map[string]struct{}{}
	for i, e := range entries {
		if e.Alias == "" {
			continue
		}
		if _, dup := taken[e.Alias]; dup {
			return nil, errs.Configf(e.Alias, "", "duplicate stage instance id")
		}
		taken[e.Alias] = struct{}{}
		names[i] = e.Alias
	}
	counts := map[string]int{}
	for i, e := range entries {
		if names[i] != "" {
			continue
		}
		base := e.Stage.Info().ID
		for {
			counts[base]++
			name := base
			if n := counts[base]; n > 1 {
				name = fmt.Sprintf("%s-%d", base, n)
			}
			if _, dup := taken[name]; !dup {
				taken[name] = struct{}{}
				names[i] = name
				break
			}
		}
	}
	return names, nil
}
