package main

import (
	"fmt"
	"strings"

	"github.com/kingrea/spanweave/internal/errs"
	"github.com/kingrea/spanweave/internal/pipeline"
	"github.com/kingrea/spanweave/internal/stage"
	"github.com/kingrea/spanweave/internal/stages/segment"
)

// defaultStages runs when no --stage flag is given.
var defaultStages = []string{segment.ID}

// parseDefinition turns repeated --stage and --set flags into a pipeline
// definition.
//
// A stage flag is "id" or "alias=id". A set flag is "instance.key=value"
// where instance is an alias or, for stages without one, the stage id.
func parseDefinition(stageFlags, setFlags []string) (pipeline.Definition, error) {
	if len(stageFlags) == 0 {
		stageFlags = defaultStages
	}
	def := pipeline.Definition{Name: "cli"}
	for _, raw := range stageFlags {
		ref, err := parseStageFlag(raw)
		if err != nil {
			return pipeline.Definition{}, err
		}
		def.Stages = append(def.Stages, ref)
	}
	for _, raw := range setFlags {
		if err := applySetFlag(&def, raw); err != nil {
			return pipeline.Definition{}, err
		}
	}
	if err := def.Validate(); err != nil {
		return pipeline.Definition{}, err
	}
	return def, nil
}

func parseStageFlag(raw string) (pipeline.StageRef, error) {
	raw = strings.TrimSpace(raw)
	alias, id, found := strings.Cut(raw, "=")
	if !found {
		alias, id = "", alias
	}
	alias, id = strings.TrimSpace(alias), strings.TrimSpace(id)
	if id == "" || (found && alias == "") {
		return pipeline.StageRef{}, &errs.ConfigurationError{Option: "stage", Message: fmt.Sprintf("expected [alias=]id, got %q", raw)}
	}
	return pipeline.StageRef{ID: alias, Stage: id}, nil
}

func applySetFlag(def *pipeline.Definition, raw string) error {
	target, value, found := strings.Cut(raw, "=")
	instance, key, dotted := strings.Cut(strings.TrimSpace(target), ".")
	if !found || !dotted || instance == "" || key == "" {
		return &errs.ConfigurationError{Option: "set", Message: fmt.Sprintf("expected instance.key=value, got %q", raw)}
	}
	idx, err := findInstance(*def, instance)
	if err != nil {
		return err
	}
	ref := &def.Stages[idx]
	if ref.Options == nil {
		ref.Options = stage.Config{}
	}
	ref.Options[key] = value
	return nil
}

// findInstance locates the stage an option targets: an exact alias first,
// then the single unaliased stage with that id.
func findInstance(def pipeline.Definition, instance string) (int, error) {
	for i, ref := range def.Stages {
		if ref.ID == instance {
			return i, nil
		}
	}
	match := -1
	for i, ref := range def.Stages {
		if ref.ID != "" || ref.Stage != instance {
			continue
		}
		if match >= 0 {
			return -1, errs.Configf(instance, "set", "stage is used more than once; give each use an alias")
		}
		match = i
	}
	if match < 0 {
		return -1, errs.Configf(instance, "set", "no such stage in the pipeline")
	}
	return match, nil
}
