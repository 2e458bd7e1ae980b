// Package pipeline composes stages into an ordered, reusable pipeline and runs
// documents through it.
//
// A Builder collects stages (directly, from another builder or pipeline, or
// from a Definition resolved through a stage.Registry) and Build freezes them.
// Every Run starts from an empty annotation store, executes the stages in
// declared order and stops at the first failure, which is returned as an
// *errs.StageError naming the stage instance.
package pipeline
