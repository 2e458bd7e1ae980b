package stage

import (
	"log/slog"

	"github.com/kingrea/spanweave/internal/annotation"
	"github.com/kingrea/spanweave/internal/tracelog"
)

// Context carries the document, its store and the shared runtime
// dependencies into every Process call.
type Context struct {
	Text     string
	Store    *annotation.Store
	Logger   *slog.Logger
	Trace    tracelog.Sink
	RunID    string
	Instance string // Instance name of the running stage within its pipeline
	Index    int
}

// NewContext builds a Context over a fresh store for text.
func NewContext(text string) *Context {
	return &Context{
		Text:   text,
		Store:  annotation.NewStore(text),
		Logger: slog.New(slog.DiscardHandler),
		Trace:  tracelog.Discard{},
	}
}

// ForStage returns a copy of ctx scoped to one stage instance.
func (ctx *Context) ForStage(instance string, index int) *Context {
	clone := *ctx
	clone.Instance = instance
	clone.Index = index
	if clone.Logger != nil {
		clone.Logger = clone.Logger.With(slog.String("stage", instance))
	}
	return &clone
}

// Insert stamps span with the running stage's instance name and inserts it.
func (ctx *Context) Insert(span annotation.Span) (annotation.Span, error) {
	span.Origin = ctx.Instance
	return ctx.Store.Insert(span)
}

// Emit sends a trace record to the run's sink, filling in run and stage.
func (ctx *Context) Emit(rec tracelog.Record) error {
	rec.RunID = ctx.RunID
	if rec.Stage == "" {
		rec.Stage = ctx.Instance
	}
	if ctx.Trace == nil {
		ctx.log().Info("trace", slog.String("record", rec.Line()))
		return nil
	}
	return ctx.Trace.Record(rec)
}

func (ctx *Context) log() *slog.Logger {
	if ctx.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return ctx.Logger
}

// Env returns the criterion environment for span: its attributes plus the
// pseudo attributes type and text.
func (ctx *Context) Env(span annotation.Span) SpanEnv {
	return SpanEnv{Span: span, Text: ctx.Store.CoveredText(span)}
}

// SpanEnv resolves criterion names against one span.
type SpanEnv struct {
	Span annotation.Span
	Text string
}

// Lookup implements criterion.Env.
func (e SpanEnv) Lookup(name string) (string, bool) {
	if v, ok := e.Span.Attributes[name]; ok {
		return v, true
	}
	switch name {
	case "type":
		return string(e.Span.Type), true
	case "text":
		return e.Text, true
	}
	return "", false
}
