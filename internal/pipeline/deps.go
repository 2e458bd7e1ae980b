package pipeline

import (
	"sort"
	"strings"

	"github.com/kingrea/spanweave/internal/annotation"
	"github.com/kingrea/spanweave/internal/errs"
)

// checkDependencies verifies that every type a stage declares in Reads is
// declared in the Writes of some earlier stage.
func checkDependencies(entries []Entry, names []string) error {
	written := map[annotation.Type]struct{}{}
	for idx, e := range entries {
		info := e.Stage.Info()
		var missing []string
		for _, t := range info.Reads {
			if _, ok := written[t]; !ok {
				missing = append(missing, string(t))
			}
		}
		if len(missing) > 0 {
			sort.Strings(missing)
			return errs.Configf(names[idx], "", "reads %s but no earlier stage writes it", strings.Join(missing, ", "))
		}
		for _, t := range info.Writes {
			written[t] = struct{}{}
		}
	}
	return nil
}
