// Package chunkadjust merges runs of adjacent chunks whose types follow a
// fixed pattern (for example NP NP, or NP PP NP) into one enclosing chunk.
package chunkadjust

import (
	"strings"

	"github.com/kingrea/spanweave/internal/annotation"
	"github.com/kingrea/spanweave/internal/errs"
	"github.com/kingrea/spanweave/internal/stage"
)

// ID is the registry id of the stage.
const ID = "chunk-adjuster"

// Adjacency decides which gaps between two consecutive chunks still count as
// adjacent.
type Adjacency string

const (
	// AdjacencyWhitespace accepts an empty gap or one made only of whitespace.
	AdjacencyWhitespace Adjacency = "whitespace"
	// AdjacencyExact accepts only chunks that touch.
	AdjacencyExact Adjacency = "exact"
)

// Config declares one adjuster.
type Config struct {
	Pattern []annotation.Type
	// HeadIndex selects the pattern position whose type and attributes the
	// merged chunk takes.
	HeadIndex int
	Adjacency Adjacency
	// MaxGap bounds the gap length in bytes when > 0.
	MaxGap int
}

// Validate reports a pattern the adjuster cannot run.
func (c Config) Validate() error {
	if len(c.Pattern) == 0 {
		return errs.Configf(ID, "pattern", "pattern must not be empty")
	}
	for i, t := range c.Pattern {
		if strings.TrimSpace(string(t)) == "" {
			return errs.Configf(ID, "pattern", "pattern element %d is empty", i)
		}
	}
	if c.HeadIndex < 0 || c.HeadIndex >= len(c.Pattern) {
		return errs.Configf(ID, "head", "head index %d outside pattern of length %d", c.HeadIndex, len(c.Pattern))
	}
	switch c.Adjacency {
	case "", AdjacencyWhitespace, AdjacencyExact:
	default:
		return errs.Configf(ID, "adjacency", "unknown adjacency %q (want whitespace or exact)", c.Adjacency)
	}
	if c.MaxGap < 0 {
		return errs.Configf(ID, "max_gap", "max gap must be >= 0")
	}
	return nil
}

// StandardPatterns returns the two adjusters a noun-phrase chunking pipeline
// runs after the chunker: NP NP keeping the second NP, and NP PP NP keeping
// the final NP.
func StandardPatterns() []Config {
	return []Config{
		{Pattern: []annotation.Type{annotation.TypeNounPhrase, annotation.TypeNounPhrase}, HeadIndex: 1},
		{Pattern: []annotation.Type{annotation.TypeNounPhrase, annotation.TypePrepPhrase, annotation.TypeNounPhrase}, HeadIndex: 2},
	}
}

// Adjuster is the chunk-adjuster stage.
type Adjuster struct {
	stage.Base
	cfg Config
}

// New validates cfg and returns an adjuster.
func New(cfg Config) (*Adjuster, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Adjacency == "" {
		cfg.Adjacency = AdjacencyWhitespace
	}
	cfg.Pattern = append([]annotation.Type(nil), cfg.Pattern...)

	a := &Adjuster{
		Base: stage.NewBase(stage.Info{
			ID:          ID,
			Name:        "Chunk Adjuster",
			Description: "Merges adjacent chunks matching " + patternString(cfg.Pattern),
			Version:     "1.0.0",
		}),
		cfg: cfg,
	}
	a.SetReads(distinct(cfg.Pattern)...)
	a.SetWrites(cfg.Pattern[cfg.HeadIndex])
	return a, nil
}

// MustNew panics if cfg is invalid.
func MustNew(cfg Config) *Adjuster {
	a, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return a
}

// Factory builds an adjuster from stage options: pattern, head, adjacency and
// max_gap.
func Factory(opts stage.Config) (stage.Stage, error) {
	if err := opts.RejectUnknown(ID, "pattern", "head", "adjacency", "max_gap"); err != nil {
		return nil, err
	}
	pattern, err := opts.Strings(ID, "pattern", nil)
	if err != nil {
		return nil, err
	}
	head, err := opts.Int(ID, "head", 0)
	if err != nil {
		return nil, err
	}
	adjacency, err := opts.String(ID, "adjacency", string(AdjacencyWhitespace))
	if err != nil {
		return nil, err
	}
	maxGap, err := opts.Int(ID, "max_gap", 0)
	if err != nil {
		return nil, err
	}
	cfg := Config{HeadIndex: head, Adjacency: Adjacency(adjacency), MaxGap: maxGap}
	for _, p := range pattern {
		cfg.Pattern = append(cfg.Pattern, annotation.Type(p))
	}
	return New(cfg)
}

// Config returns a copy of the adjuster's configuration.
func (a *Adjuster) Config() Config {
	cfg := a.cfg
	cfg.Pattern = append([]annotation.Type(nil), a.cfg.Pattern...)
	return cfg
}

// Process scans the pattern's constituent chunks in store order and inserts
// one merged chunk per match. Matching is greedy from the left: chunks
// consumed by a match never start another one. Constituents stay in the
// store.
//
// After the first constituent, each position takes the next chunk starting
// at or after the previous constituent's end. Chunks nested inside the
// previous constituent are stepped over, so a merge made by an earlier
// adjuster can itself be a constituent. When several chunks start at the
// same offset the longest of the wanted type is taken.
//
// Chunks this instance created earlier are not candidates, and a merge that
// already exists with the same type and offsets is not inserted again, so
// running the stage twice over one store adds nothing the second time.
func (a *Adjuster) Process(ctx *stage.Context) error {
	var candidates []annotation.Span
	for span := range ctx.Store.Select(distinct(a.cfg.Pattern)...) {
		if ctx.Instance != "" && span.Origin == ctx.Instance {
			continue
		}
		candidates = append(candidates, span)
	}

	merged, skipped := 0, 0
	for i := 0; i < len(candidates); {
		picked := a.match(ctx.Store.Text(), candidates, i)
		if picked == nil {
			i++
			continue
		}
		first, last := candidates[picked[0]], candidates[picked[len(picked)-1]]
		head := candidates[picked[a.cfg.HeadIndex]]
		if ctx.Store.Contains(head.Type, first.Begin, last.End) {
			skipped++
		} else {
			span := annotation.New(head.Type, first.Begin, last.End).WithAttributes(head.Attributes)
			if _, err := ctx.Insert(span); err != nil {
				return err
			}
			merged++
		}
		i = picked[len(picked)-1] + 1
		for i < len(candidates) && candidates[i].Begin < last.End {
			i++
		}
	}
	if ctx.Logger != nil {
		ctx.Logger.Debug("chunks adjusted",
			"pattern", patternString(a.cfg.Pattern),
			"candidates", len(candidates),
			"merged", merged,
			"existing", skipped,
		)
	}
	return nil
}

// match returns the candidate indexes of a pattern match starting at
// candidates[start], or nil.
func (a *Adjuster) match(text string, candidates []annotation.Span, start int) []int {
	if candidates[start].Type != a.cfg.Pattern[0] {
		return nil
	}
	picked := make([]int, 1, len(a.cfg.Pattern))
	picked[0] = start
	k := start + 1
	for _, want := range a.cfg.Pattern[1:] {
		prev := candidates[picked[len(picked)-1]]
		for k < len(candidates) && candidates[k].Begin < prev.End {
			k++
		}
		if k == len(candidates) {
			return nil
		}
		next := -1
		for begin := candidates[k].Begin; k < len(candidates) && candidates[k].Begin == begin; k++ {
			if candidates[k].Type == want {
				next = k
			}
		}
		if next < 0 || !a.adjacent(text, prev, candidates[next]) {
			return nil
		}
		picked = append(picked, next)
	}
	return picked
}

// adjacent reports whether next may follow prev given the gap between them.
func (a *Adjuster) adjacent(text string, prev, next annotation.Span) bool {
	gap := text[prev.End:next.Begin]
	if a.cfg.MaxGap > 0 && len(gap) > a.cfg.MaxGap {
		return false
	}
	if a.cfg.Adjacency == AdjacencyExact {
		return gap == ""
	}
	return strings.TrimSpace(gap) == ""
}

func distinct(types []annotation.Type) []annotation.Type {
	seen := make(map[annotation.Type]struct{}, len(types))
	out := make([]annotation.Type, 0, len(types))
	for _, t := range types {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func patternString(pattern []annotation.Type) string {
	parts := make([]string, len(pattern))
	for i, t := range pattern {
		parts[i] = string(t)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
