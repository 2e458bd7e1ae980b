package chunkadjust

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/spanweave/internal/annotation"
	"github.com/kingrea/spanweave/internal/errs"
	"github.com/kingrea/spanweave/internal/stage"
)

const note = "Mother sister with multiple sclerosis."

type chunk struct {
	typ        annotation.Type
	begin, end int
	head       string
}

func chunkedContext(t *testing.T, text string, chunks ...chunk) *stage.Context {
	t.Helper()
	ctx := stage.NewContext(text)
	for _, c := range chunks {
		span := annotation.New(c.typ, c.begin, c.end).WithAttributes(annotation.Attributes{"head": c.head})
		_, err := ctx.Store.Insert(span)
		require.NoError(t, err)
	}
	return ctx
}

func noteChunks(t *testing.T) *stage.Context {
	return chunkedContext(t, note,
		chunk{annotation.TypeNounPhrase, 0, 6, "Mother"},
		chunk{annotation.TypeNounPhrase, 7, 13, "sister"},
		chunk{annotation.TypePrepPhrase, 14, 18, "with"},
		chunk{annotation.TypeNounPhrase, 19, 37, "sclerosis"},
	)
}

func spansOf(ctx *stage.Context, typ annotation.Type) []annotation.Span {
	return slices.Collect(ctx.Store.Select(typ))
}

func TestAdjacentNounPhrasesMergeWithHeadAttributes(t *testing.T) {
	ctx := noteChunks(t).ForStage(ID, 0)
	adj := MustNew(StandardPatterns()[0])

	require.NoError(t, adj.Process(ctx))

	nps := spansOf(ctx, annotation.TypeNounPhrase)
	require.Len(t, nps, 4, "originals stay selectable next to the merged chunk")
	merged := nps[1]
	assert.Equal(t, 0, merged.Begin)
	assert.Equal(t, 13, merged.End)
	assert.Equal(t, "sister", merged.Attributes["head"])
	assert.Equal(t, ID, merged.Origin)
	assert.Equal(t, "Mother sister", ctx.Store.CoveredText(merged))
}

func TestNounPrepNounPatternKeepsFinalHead(t *testing.T) {
	ctx := noteChunks(t).ForStage(ID, 0)
	require.NoError(t, MustNew(StandardPatterns()[1]).Process(ctx))

	require.True(t, ctx.Store.Contains(annotation.TypeNounPhrase, 7, 37))
	for span := range ctx.Store.Select(annotation.TypeNounPhrase) {
		if span.Begin == 7 && span.End == 37 {
			assert.Equal(t, "sclerosis", span.Attributes["head"])
		}
	}
	assert.Equal(t, 1, ctx.Store.Count(annotation.TypePrepPhrase))
}

func TestAdjusterIsIdempotent(t *testing.T) {
	base := noteChunks(t)
	adj := MustNew(StandardPatterns()[0])

	first := base.ForStage(ID, 0)
	require.NoError(t, adj.Process(first))
	before := base.Store.Digest()

	require.NoError(t, adj.Process(first))
	assert.Equal(t, before, base.Store.Digest(), "same instance must not merge its own output")

	require.NoError(t, adj.Process(base.ForStage(ID+"-2", 1)))
	assert.Equal(t, before, base.Store.Digest(), "an identical merge is not inserted twice")
}

func TestOverlappingMatchesResolveGreedilyFromTheLeft(t *testing.T) {
	ctx := chunkedContext(t, "aa bb cc",
		chunk{annotation.TypeNounPhrase, 0, 2, "a"},
		chunk{annotation.TypeNounPhrase, 3, 5, "b"},
		chunk{annotation.TypeNounPhrase, 6, 8, "c"},
	).ForStage(ID, 0)

	require.NoError(t, MustNew(StandardPatterns()[0]).Process(ctx))
	assert.True(t, ctx.Store.Contains(annotation.TypeNounPhrase, 0, 5))
	assert.False(t, ctx.Store.Contains(annotation.TypeNounPhrase, 3, 8))
	assert.Equal(t, 4, ctx.Store.Count(annotation.TypeNounPhrase))
}

func TestAdjacencyTolerance(t *testing.T) {
	pair := func(text string, second int) *stage.Context {
		return chunkedContext(t, text,
			chunk{annotation.TypeNounPhrase, 0, 6, "Mother"},
			chunk{annotation.TypeNounPhrase, second, second + 6, "sister"},
		).ForStage(ID, 0)
	}
	np := []annotation.Type{annotation.TypeNounPhrase, annotation.TypeNounPhrase}

	tests := []struct {
		name   string
		text   string
		second int
		cfg    Config
		merged bool
	}{
		{"whitespace gap", "Mother sister", 7, Config{Pattern: np, HeadIndex: 1}, true},
		{"touching", "Mothersister", 6, Config{Pattern: np, HeadIndex: 1}, true},
		{"punctuation gap", "Mother, sister", 8, Config{Pattern: np, HeadIndex: 1}, false},
		{"exact rejects space", "Mother sister", 7, Config{Pattern: np, HeadIndex: 1, Adjacency: AdjacencyExact}, false},
		{"exact accepts touching", "Mothersister", 6, Config{Pattern: np, HeadIndex: 1, Adjacency: AdjacencyExact}, true},
		{"gap over max", "Mother   sister", 9, Config{Pattern: np, HeadIndex: 1, MaxGap: 2}, false},
		{"gap within max", "Mother  sister", 8, Config{Pattern: np, HeadIndex: 1, MaxGap: 2}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := pair(tt.text, tt.second)
			require.NoError(t, MustNew(tt.cfg).Process(ctx))
			assert.Equal(t, tt.merged, ctx.Store.Contains(annotation.TypeNounPhrase, 0, tt.second+6))
		})
	}
}

func TestNestedChunksDoNotCountAsAdjacent(t *testing.T) {
	ctx := chunkedContext(t, note,
		chunk{annotation.TypeNounPhrase, 0, 13, "sister"},
		chunk{annotation.TypeNounPhrase, 7, 13, "sister"},
	).ForStage(ID, 0)
	require.NoError(t, MustNew(StandardPatterns()[0]).Process(ctx))
	assert.Equal(t, 2, ctx.Store.Count(annotation.TypeNounPhrase))
}

func TestLaterAdjusterBuildsOnEarlierMerge(t *testing.T) {
	base := noteChunks(t)
	patterns := StandardPatterns()
	require.NoError(t, MustNew(patterns[0]).Process(base.ForStage(ID, 0)))
	require.NoError(t, MustNew(patterns[1]).Process(base.ForStage(ID+"-2", 1)))

	assert.True(t, base.Store.Contains(annotation.TypeNounPhrase, 0, 13))
	assert.True(t, base.Store.Contains(annotation.TypeNounPhrase, 0, 37))
	assert.False(t, base.Store.Contains(annotation.TypeNounPhrase, 7, 37), "sister was consumed by the wider chunk")
	for span := range base.Store.Select(annotation.TypeNounPhrase) {
		if span.Begin == 0 && span.End == 37 {
			assert.Equal(t, "sclerosis", span.Attributes["head"])
			assert.Equal(t, ID+"-2", span.Origin)
		}
	}
}

func TestNestedChunksAreSteppedOver(t *testing.T) {
	ctx := chunkedContext(t, note,
		chunk{annotation.TypeNounPhrase, 0, 13, "sister"},
		chunk{annotation.TypeNounPhrase, 7, 13, "sister"},
		chunk{annotation.TypePrepPhrase, 14, 18, "with"},
		chunk{annotation.TypeNounPhrase, 19, 27, "multiple"},
		chunk{annotation.TypeNounPhrase, 19, 37, "sclerosis"},
	).ForStage(ID, 0)

	require.NoError(t, MustNew(StandardPatterns()[1]).Process(ctx))
	assert.True(t, ctx.Store.Contains(annotation.TypeNounPhrase, 0, 37), "longest chunk at an offset wins")
	assert.False(t, ctx.Store.Contains(annotation.TypeNounPhrase, 0, 27))
	assert.False(t, ctx.Store.Contains(annotation.TypeNounPhrase, 7, 37), "nested chunk was consumed")
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	np := annotation.TypeNounPhrase
	tests := []struct {
		name   string
		cfg    Config
		option string
	}{
		{"empty pattern", Config{}, "pattern"},
		{"blank element", Config{Pattern: []annotation.Type{np, " "}}, "pattern"},
		{"head past end", Config{Pattern: []annotation.Type{np, np}, HeadIndex: 2}, "head"},
		{"negative head", Config{Pattern: []annotation.Type{np}, HeadIndex: -1}, "head"},
		{"unknown adjacency", Config{Pattern: []annotation.Type{np}, Adjacency: "fuzzy"}, "adjacency"},
		{"negative gap", Config{Pattern: []annotation.Type{np}, MaxGap: -1}, "max_gap"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			var cfgErr *errs.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.option, cfgErr.Option)
			assert.Equal(t, errs.KindConfiguration, errs.Classify(err))
		})
	}
}

func TestFactoryParsesOptions(t *testing.T) {
	st, err := Factory(stage.Config{"pattern": "NP, PP, NP", "head": "2", "adjacency": "exact"})
	require.NoError(t, err)
	adj := st.(*Adjuster)
	cfg := adj.Config()
	assert.Equal(t, []annotation.Type{"NP", "PP", "NP"}, cfg.Pattern)
	assert.Equal(t, 2, cfg.HeadIndex)
	assert.Equal(t, AdjacencyExact, cfg.Adjacency)

	info := st.Info()
	assert.Equal(t, []annotation.Type{"NP", "PP"}, info.Reads)
	assert.Equal(t, []annotation.Type{"NP"}, info.Writes)
	assert.NoError(t, info.Validate())

	_, err = Factory(stage.Config{})
	assert.ErrorIs(t, err, errs.ErrConfiguration)
	_, err = Factory(stage.Config{"pattern": []any{"NP"}, "heads": 0})
	assert.ErrorIs(t, err, errs.ErrConfiguration)
}
