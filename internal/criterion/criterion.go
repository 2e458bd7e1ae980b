// Package criterion parses and evaluates the small predicate language stages
// use to pick spans by attribute, e.g.
//
//	partOfSpeech ^= "N"
//	type == "NP" and not (text in ["patient", "Patient"])
//	has polarity and polarity != "negated"
//
// Comparisons: == != ^= (prefix) $= (suffix) *= (contains) and in [...].
// The pseudo attributes type and text resolve to the span type and covered
// text unless the span carries a real attribute of that name.
package criterion

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var criterionLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "String", Pattern: `"(?:\\.|[^"\\])*"`},
	{Name: "Op", Pattern: `==|!=|\^=|\$=|\*=`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_.\-]*`},
	{Name: "Punct", Pattern: `[()\[\],]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

type orExpr struct {
	Terms []*andExpr `parser:"@@ ( 'or' @@ )*"`
}

type andExpr struct {
	Terms []*unary `parser:"@@ ( 'and' @@ )*"`
}

type unary struct {
	Not     *unary      `parser:"  'not' @@"`
	Group   *orExpr     `parser:"| '(' @@ ')'"`
	Has     string      `parser:"| 'has' @Ident"`
	Compare *comparison `parser:"| @@"`
}

type comparison struct {
	Attr  string   `parser:"@Ident"`
	Op    string   `parser:"( @Op"`
	Value string   `parser:"  @String"`
	In    []string `parser:"| 'in' '[' @String ( ',' @String )* ']' )"`
}

var parser = participle.MustBuild[orExpr](
	participle.Lexer(criterionLexer),
	participle.Elide("Whitespace"),
	participle.Unquote("String"),
	participle.UseLookahead(3),
)

// Env resolves attribute names for one candidate span.
type Env interface {
	Lookup(name string) (string, bool)
}

// MapEnv resolves names from a plain map.
type MapEnv map[string]string

// Lookup implements Env.
func (m MapEnv) Lookup(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

// Criterion is a parsed predicate. It is immutable and safe for concurrent use.
type Criterion struct {
	source string
	root   *orExpr
}

// Parse compiles src.
func Parse(src string) (*Criterion, error) {
	trimmed := strings.TrimSpace(src)
	if trimmed == "" {
		return nil, fmt.Errorf("criterion: expression is empty")
	}
	root, err := parser.ParseString("", trimmed)
	if err != nil {
		return nil, fmt.Errorf("criterion: parse %q: %w", trimmed, err)
	}
	return &Criterion{source: trimmed, root: root}, nil
}

// MustParse panics if src does not compile. Use for known-good expressions.
func MustParse(src string) *Criterion {
	c, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return c
}

// String returns the expression as written.
func (c *Criterion) String() string {
	if c == nil {
		return ""
	}
	return c.source
}

// Match evaluates the criterion. A nil criterion matches everything.
func (c *Criterion) Match(env Env) bool {
	if c == nil || c.root == nil {
		return true
	}
	return c.root.eval(env)
}

func (e *orExpr) eval(env Env) bool {
	for _, t := range e.Terms {
		if t.eval(env) {
			return true
		}
	}
	return false
}

func (e *andExpr) eval(env Env) bool {
	for _, t := range e.Terms {
		if !t.eval(env) {
			return false
		}
	}
	return true
}

func (u *unary) eval(env Env) bool {
	switch {
	case u.Not != nil:
		return !u.Not.eval(env)
	case u.Group != nil:
		return u.Group.eval(env)
	case u.Has != "":
		_, ok := env.Lookup(u.Has)
		return ok
	case u.Compare != nil:
		return u.Compare.eval(env)
	}
	return false
}

func (c *comparison) eval(env Env) bool {
	got, ok := env.Lookup(c.Attr)
	if len(c.In) > 0 {
		if !ok {
			return false
		}
		for _, want := range c.In {
			if got == want {
				return true
			}
		}
		return false
	}
	// A missing attribute only satisfies !=.
	if !ok {
		return c.Op == "!="
	}
	switch c.Op {
	case "==":
		return got == c.Value
	case "!=":
		return got != c.Value
	case "^=":
		return strings.HasPrefix(got, c.Value)
	case "$=":
		return strings.HasSuffix(got, c.Value)
	case "*=":
		return strings.Contains(got, c.Value)
	}
	return false
}
