package criterion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatch(t *testing.T) {
	token := MapEnv{"partOfSpeech": "NNS", "type": "token", "text": "sisters"}
	verb := MapEnv{"partOfSpeech": "VBD", "type": "token", "text": "had"}
	bare := MapEnv{"type": "token", "text": "the"}

	tests := []struct {
		expr string
		env  MapEnv
		want bool
	}{
		{`partOfSpeech ^= "N"`, token, true},
		{`partOfSpeech ^= "N"`, verb, false},
		{`partOfSpeech ^= "N"`, bare, false},
		{`partOfSpeech == "NNS"`, token, true},
		{`partOfSpeech != "NNS"`, verb, true},
		{`partOfSpeech != "NNS"`, bare, true},
		{`partOfSpeech $= "S"`, token, true},
		{`text *= "ste"`, token, true},
		{`partOfSpeech in ["NN", "NNS"]`, token, true},
		{`partOfSpeech in ["NN", "NNP"]`, token, false},
		{`partOfSpeech in ["NN"]`, bare, false},
		{`has partOfSpeech`, bare, false},
		{`not has partOfSpeech`, bare, true},
		{`type == "token" and partOfSpeech ^= "V"`, verb, true},
		{`type == "token" and partOfSpeech ^= "V"`, token, false},
		{`partOfSpeech ^= "V" or text == "sisters"`, token, true},
		{`not (partOfSpeech ^= "V" or text == "the")`, token, true},
		{`not (partOfSpeech ^= "V" or text == "the")`, bare, false},
		{`text == "say \"hi\""`, MapEnv{"text": `say "hi"`}, true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			c, err := Parse(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Match(tt.env))
		})
	}
}

func TestParseRejectsMalformedExpressions(t *testing.T) {
	for _, expr := range []string{
		"",
		"   ",
		`partOfSpeech`,
		`partOfSpeech ^= N`,
		`partOfSpeech in []`,
		`(partOfSpeech == "NN"`,
		`partOfSpeech == "NN" and`,
	} {
		_, err := Parse(expr)
		assert.Error(t, err, "expression %q", expr)
	}
}

func TestStringKeepsSource(t *testing.T) {
	c := MustParse(`  partOfSpeech ^= "N" `)
	assert.Equal(t, `partOfSpeech ^= "N"`, c.String())
}

func TestNilCriterionMatchesEverything(t *testing.T) {
	var c *Criterion
	assert.True(t, c.Match(MapEnv{}))
	assert.Equal(t, "", c.String())
}

func TestMustParsePanicsOnError(t *testing.T) {
	assert.Panics(t, func() { MustParse("==") })
}
