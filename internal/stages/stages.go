// Package stages registers the built-in stages.
package stages

import (
	"github.com/kingrea/spanweave/internal/stage"
	"github.com/kingrea/spanweave/internal/stages/attrset"
	"github.com/kingrea/spanweave/internal/stages/chunkadjust"
	"github.com/kingrea/spanweave/internal/stages/entity"
	"github.com/kingrea/spanweave/internal/stages/external"
	"github.com/kingrea/spanweave/internal/stages/lookupwindow"
	"github.com/kingrea/spanweave/internal/stages/segment"
)

// RegisterBuiltins installs every built-in stage factory into reg.
func RegisterBuiltins(reg *stage.Registry) error {
	builtins := []struct {
		id      string
		factory stage.Factory
	}{
		{segment.ID, segment.Factory},
		{chunkadjust.ID, chunkadjust.Factory},
		{lookupwindow.CopyID, lookupwindow.CopierFactory},
		{lookupwindow.EnclosedID, lookupwindow.EnclosedFactory},
		{entity.ID, entity.Factory},
		{attrset.ID, attrset.Factory},
		{external.ID, external.Factory},
	}
	for _, b := range builtins {
		if err := reg.Register(b.id, b.factory); err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry returns a registry holding the built-in stages.
func NewRegistry() *stage.Registry {
	reg := stage.NewRegistry()
	if err := RegisterBuiltins(reg); err != nil {
		panic(err)
	}
	return reg
}
